package gbpsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/listings_backend/gbp"
	"bitbucket.org/mmdatafocus/listings_backend/models"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
	"gorm.io/gorm"
)

const performanceWindowDays = 30
const keywordWindowMonths = 3

var dailyMetricNames = []string{
	"BUSINESS_IMPRESSIONS_DESKTOP_MAPS",
	"BUSINESS_IMPRESSIONS_DESKTOP_SEARCH",
	"BUSINESS_IMPRESSIONS_MOBILE_MAPS",
	"BUSINESS_IMPRESSIONS_MOBILE_SEARCH",
	"WEBSITE_CLICKS",
	"CALL_CLICKS",
	"BUSINESS_DIRECTION_REQUESTS",
	"BUSINESS_BOOKINGS",
}

func starRatingValue(s string) int {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FIVE":
		return 5
	case "FOUR":
		return 4
	case "THREE":
		return 3
	case "TWO":
		return 2
	case "ONE":
		return 1
	default:
		return 0
	}
}

// sentimentForRating derives sentiment purely from the star rating.
// Unknown ratings land on neutral.
func sentimentForRating(rating int) string {
	switch {
	case rating >= 4:
		return models.SentimentPositive
	case rating == 3:
		return models.SentimentNeutral
	case rating >= 1:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// locationPath reduces a v4 resource name ("accounts/{a}/locations/{l}") to
// the "locations/{l}" form the performance API expects.
func locationPath(resourceName string) string {
	parts := strings.Split(resourceName, "/")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], "/")
	}
	return resourceName
}

func normalizePhone(raw string, regionCode string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if regionCode == "" {
		regionCode = "US"
	}
	num, err := libphonenumber.Parse(raw, regionCode)
	if err != nil {
		return raw
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}

func parseProviderTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t
	}
	return nil
}

// syncLocation maps the remote location detail onto the local listing in one
// single-row update. Any failure aborts the whole family: a half-mapped
// location is never committed.
func (e *Engine) syncLocation(ctx context.Context, db *gorm.DB, listing *models.Listing, ts gbp.TokenSource) error {
	if listing.ResourceName == nil || *listing.ResourceName == "" {
		return errors.New("listing has no linked resource name")
	}

	loc, err := e.client.GetLocation(ctx, ts, *listing.ResourceName)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"location_synced_at": time.Now(),
	}
	if loc.Title != "" {
		updates["name"] = loc.Title
	}
	if addr := loc.StorefrontAddress; addr != nil {
		updates["address_line"] = strings.Join(addr.AddressLines, ", ")
		updates["locality"] = addr.Locality
		updates["region"] = addr.AdministrativeArea
		updates["postal_code"] = addr.PostalCode
		updates["country_code"] = addr.RegionCode
	}
	if loc.PhoneNumbers != nil {
		regionCode := ""
		if loc.StorefrontAddress != nil {
			regionCode = loc.StorefrontAddress.RegionCode
		}
		updates["phone"] = normalizePhone(loc.PhoneNumbers.PrimaryPhone, regionCode)
	}
	updates["website"] = loc.WebsiteUri
	if loc.Profile != nil {
		updates["description"] = loc.Profile.Description
	}
	if cats := loc.Categories; cats != nil {
		if cats.PrimaryCategory != nil {
			updates["primary_category"] = cats.PrimaryCategory.DisplayName
		}
		names := make([]string, 0, len(cats.AdditionalCategories))
		for _, cat := range cats.AdditionalCategories {
			names = append(names, cat.DisplayName)
		}
		if b, err := json.Marshal(names); err == nil {
			updates["additional_categories_json"] = b
		}
	}
	if loc.Latlng != nil {
		updates["latitude"] = loc.Latlng.Latitude
		updates["longitude"] = loc.Latlng.Longitude
	}
	if loc.RegularHours != nil {
		if b, err := json.Marshal(loc.RegularHours); err == nil {
			updates["hours_json"] = b
		}
	}
	if loc.Metadata != nil {
		updates["is_verified"] = loc.Metadata.HasVoiceOfMerchant
	}

	return db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", listing.ID).
		Updates(updates).Error
}

// syncMedia stamps the provider-side photo inventory onto the listing so the
// audit engine can score visual content from local state alone.
func (e *Engine) syncMedia(ctx context.Context, db *gorm.DB, listing *models.Listing, ts gbp.TokenSource) (int, error) {
	if listing.ResourceName == nil || *listing.ResourceName == "" {
		return 0, errors.New("listing has no linked resource name")
	}

	items, err := e.client.ListMedia(ctx, ts, *listing.ResourceName)
	if err != nil {
		return 0, err
	}

	photoCount := 0
	hasCover := false
	for _, item := range items {
		if strings.EqualFold(item.MediaFormat, "PHOTO") {
			photoCount++
		}
		if item.LocationAssociation != nil && strings.EqualFold(item.LocationAssociation.Category, "COVER") {
			hasCover = true
		}
	}

	err = db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", listing.ID).
		Updates(map[string]interface{}{
			"photo_count":     photoCount,
			"has_cover_photo": hasCover,
			"media_synced_at": time.Now(),
		}).Error
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// reviewUpdates computes the column updates that bring an existing local row
// in line with the remote review. Keyed by the immutable external review id,
// re-applying the same remote state is a no-op apart from timestamps.
func reviewUpdates(remote gbp.Review) map[string]interface{} {
	rating := starRatingValue(remote.StarRating)
	updates := map[string]interface{}{
		"star_rating": rating,
		"sentiment":   sentimentForRating(rating),
		"comment":     remote.Comment,
	}
	if remote.Reviewer != nil {
		updates["reviewer_name"] = remote.Reviewer.DisplayName
		updates["reviewer_photo_url"] = remote.Reviewer.ProfilePhotoUrl
	}
	if t := parseProviderTime(remote.UpdateTime); t != nil {
		updates["external_updated_at"] = t
	}
	if remote.ReviewRepl != nil && remote.ReviewRepl.Comment != "" {
		updates["reply_text"] = remote.ReviewRepl.Comment
		if t := parseProviderTime(remote.ReviewRepl.UpdateTime); t != nil {
			updates["replied_at"] = t
		}
	}
	return updates
}

func newReviewRow(businessId string, listingId int, remote gbp.Review) models.Review {
	rating := starRatingValue(remote.StarRating)
	row := models.Review{
		BusinessId:       businessId,
		ListingId:        listingId,
		ExternalReviewId: remote.ReviewId,
		StarRating:       rating,
		Sentiment:        sentimentForRating(rating),
		Comment:          remote.Comment,
		ResponseStatus:   models.ResponseStatusPending,
	}
	if remote.Reviewer != nil {
		row.ReviewerName = remote.Reviewer.DisplayName
		row.ReviewerPhotoUrl = remote.Reviewer.ProfilePhotoUrl
	}
	row.ExternalCreatedAt = parseProviderTime(remote.CreateTime)
	row.ExternalUpdatedAt = parseProviderTime(remote.UpdateTime)
	if remote.ReviewRepl != nil && remote.ReviewRepl.Comment != "" {
		row.ReplyText = remote.ReviewRepl.Comment
		row.ResponseStatus = models.ResponseStatusPublished
		row.RepliedAt = parseProviderTime(remote.ReviewRepl.UpdateTime)
	}
	return row
}

// syncReviews pulls every remote review and upserts by
// (listing_id, external_review_id). At-least-once and idempotent: a second
// run over unchanged remote state inserts nothing.
func (e *Engine) syncReviews(ctx context.Context, db *gorm.DB, run *models.ListingSyncRun, listing *models.Listing, ts gbp.TokenSource) (newCount int, total int, err error) {
	if listing.ResourceName == nil || *listing.ResourceName == "" {
		return 0, 0, errors.New("listing has no linked resource name")
	}

	result, err := e.client.ListReviews(ctx, ts, *listing.ResourceName)
	if err != nil {
		return 0, 0, err
	}

	for _, remote := range result.Reviews {
		extID := strings.TrimSpace(remote.ReviewId)
		if extID == "" {
			_ = createSyncError(ctx, db, run, listing.ID, "review", "", "missing_id", "review id missing", remote, false)
			continue
		}
		remote.ReviewId = extID

		var existing models.Review
		lookupErr := db.WithContext(ctx).
			Where("listing_id = ? AND external_review_id = ?", listing.ID, extID).
			Take(&existing).Error
		switch {
		case lookupErr == nil:
			if updErr := db.WithContext(ctx).Model(&models.Review{}).
				Where("id = ?", existing.ID).
				Updates(reviewUpdates(remote)).Error; updErr != nil {
				_ = createSyncError(ctx, db, run, listing.ID, "review", extID, "sync_failed", updErr.Error(), remote, true)
				continue
			}
		case errors.Is(lookupErr, gorm.ErrRecordNotFound):
			row := newReviewRow(listing.BusinessId, listing.ID, remote)
			if insErr := db.WithContext(ctx).Create(&row).Error; insErr != nil {
				_ = createSyncError(ctx, db, run, listing.ID, "review", extID, "sync_failed", insErr.Error(), remote, true)
				continue
			}
			newCount++
		default:
			_ = createSyncError(ctx, db, run, listing.ID, "review", extID, "sync_failed", lookupErr.Error(), remote, true)
			continue
		}
		total++
	}

	updates := map[string]interface{}{
		"reviews_synced_at": time.Now(),
	}
	if result.TotalReviewCount > 0 {
		updates["average_rating"] = decimal.NewFromFloat(result.AverageRating).Round(2)
		updates["total_review_count"] = result.TotalReviewCount
	}
	if err := db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", listing.ID).
		Updates(updates).Error; err != nil {
		return newCount, total, err
	}

	return newCount, total, nil
}

// dailyMetricRow is one calendar day's merged metric values.
type dailyMetricRow struct {
	Date   time.Time
	Values map[string]int
}

// mergeDailyMetrics folds the provider's parallel named time series into one
// row per calendar date, sorted ascending.
func mergeDailyMetrics(series []gbp.DailyMetricSeries) []dailyMetricRow {
	byDate := map[string]*dailyMetricRow{}

	for _, s := range series {
		if s.TimeSeries == nil {
			continue
		}
		for _, dv := range s.TimeSeries.DatedValues {
			if dv.Date == nil {
				continue
			}
			key := dv.Date.String()
			row := byDate[key]
			if row == nil {
				row = &dailyMetricRow{
					Date:   time.Date(dv.Date.Year, time.Month(dv.Date.Month), dv.Date.Day, 0, 0, 0, 0, time.UTC),
					Values: map[string]int{},
				}
				byDate[key] = row
			}
			if n, err := strconv.Atoi(dv.Value); err == nil {
				row.Values[s.DailyMetric] = n
			}
		}
	}

	rows := make([]dailyMetricRow, 0, len(byDate))
	for _, row := range byDate {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows
}

// syncPerformance fetches the trailing 30-day daily metrics and upserts one
// row per (listing, date). Values are overwritten, never summed.
func (e *Engine) syncPerformance(ctx context.Context, db *gorm.DB, listing *models.Listing, ts gbp.TokenSource) (int, error) {
	if listing.ResourceName == nil || *listing.ResourceName == "" {
		return 0, errors.New("listing has no linked resource name")
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -performanceWindowDays)

	series, err := e.client.FetchDailyMetrics(ctx, ts, locationPath(*listing.ResourceName), start, end, dailyMetricNames)
	if err != nil {
		return 0, err
	}

	rows := mergeDailyMetrics(series)
	for _, row := range rows {
		sample := models.PerformanceSample{
			BusinessId:               listing.BusinessId,
			ListingId:                listing.ID,
			Date:                     row.Date,
			ImpressionsDesktopMaps:   row.Values["BUSINESS_IMPRESSIONS_DESKTOP_MAPS"],
			ImpressionsDesktopSearch: row.Values["BUSINESS_IMPRESSIONS_DESKTOP_SEARCH"],
			ImpressionsMobileMaps:    row.Values["BUSINESS_IMPRESSIONS_MOBILE_MAPS"],
			ImpressionsMobileSearch:  row.Values["BUSINESS_IMPRESSIONS_MOBILE_SEARCH"],
			WebsiteClicks:            row.Values["WEBSITE_CLICKS"],
			CallClicks:               row.Values["CALL_CLICKS"],
			DirectionRequests:        row.Values["BUSINESS_DIRECTION_REQUESTS"],
			Bookings:                 row.Values["BUSINESS_BOOKINGS"],
		}

		var existing models.PerformanceSample
		lookupErr := db.WithContext(ctx).
			Where("listing_id = ? AND date = ?", listing.ID, row.Date).
			Take(&existing).Error
		if lookupErr == nil {
			sample.ID = existing.ID
			sample.CreatedAt = existing.CreatedAt
			if err := db.WithContext(ctx).Save(&sample).Error; err != nil {
				return 0, err
			}
			continue
		}
		if !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return 0, lookupErr
		}
		if err := db.WithContext(ctx).Create(&sample).Error; err != nil {
			return 0, err
		}
	}

	if err := db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", listing.ID).
		Updates(map[string]interface{}{"performance_synced_at": time.Now()}).Error; err != nil {
		return len(rows), err
	}
	return len(rows), nil
}

// keywordSyncPeriod derives the natural-key period segment from the month
// range, so runs over different windows never collide.
func keywordSyncPeriod(startMonth time.Time, endMonth time.Time) string {
	return fmt.Sprintf("%04d-%02d_%04d-%02d",
		startMonth.Year(), int(startMonth.Month()),
		endMonth.Year(), int(endMonth.Month()))
}

func impressionsValue(v *gbp.InsightsValue) int {
	if v == nil {
		return 0
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v.Value)); err == nil {
		return n
	}
	// Below-threshold keywords report only a floor value.
	if n, err := strconv.Atoi(strings.TrimSpace(v.Threshold)); err == nil {
		return n
	}
	return 0
}

// syncKeywords upserts the trailing 3 months of keyword impressions by
// (listing, keyword, sync period).
func (e *Engine) syncKeywords(ctx context.Context, db *gorm.DB, run *models.ListingSyncRun, listing *models.Listing, ts gbp.TokenSource) (int, error) {
	if listing.ResourceName == nil || *listing.ResourceName == "" {
		return 0, errors.New("listing has no linked resource name")
	}

	// The provider lags a month on keyword data; the window ends last month.
	now := time.Now().UTC()
	endMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	startMonth := endMonth.AddDate(0, -(keywordWindowMonths - 1), 0)
	period := keywordSyncPeriod(startMonth, endMonth)

	counts, err := e.client.ListSearchKeywordImpressions(ctx, ts, locationPath(*listing.ResourceName), startMonth, endMonth)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, count := range counts {
		keyword := strings.TrimSpace(count.SearchKeyword)
		if keyword == "" {
			continue
		}

		row := models.SearchKeyword{
			BusinessId:  listing.BusinessId,
			ListingId:   listing.ID,
			Keyword:     keyword,
			SyncPeriod:  period,
			Impressions: impressionsValue(count.InsightsValue),
		}

		var existing models.SearchKeyword
		lookupErr := db.WithContext(ctx).
			Where("listing_id = ? AND keyword = ? AND sync_period = ?", listing.ID, keyword, period).
			Take(&existing).Error
		switch {
		case lookupErr == nil:
			if err := db.WithContext(ctx).Model(&models.SearchKeyword{}).
				Where("id = ?", existing.ID).
				Updates(map[string]interface{}{"impressions": row.Impressions}).Error; err != nil {
				_ = createSyncError(ctx, db, run, listing.ID, "keyword", keyword, "sync_failed", err.Error(), count, true)
				continue
			}
		case errors.Is(lookupErr, gorm.ErrRecordNotFound):
			if err := db.WithContext(ctx).Create(&row).Error; err != nil {
				_ = createSyncError(ctx, db, run, listing.ID, "keyword", keyword, "sync_failed", err.Error(), count, true)
				continue
			}
		default:
			_ = createSyncError(ctx, db, run, listing.ID, "keyword", keyword, "sync_failed", lookupErr.Error(), count, true)
			continue
		}
		total++
	}

	if err := db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", listing.ID).
		Updates(map[string]interface{}{"keywords_synced_at": time.Now()}).Error; err != nil {
		return total, err
	}
	return total, nil
}

func createSyncError(ctx context.Context, db *gorm.DB, run *models.ListingSyncRun, listingId int, entityType string, externalId string, code string, message string, payload any, retryable bool) error {
	errRec := models.ListingSyncError{
		SyncRunId:  run.ID,
		BusinessId: run.BusinessId,
		ListingId:  listingId,
		EntityType: entityType,
		ExternalId: externalId,
		ErrorCode:  code,
		Message:    message,
		Retryable:  retryable,
	}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			errRec.PayloadJSON = b
		}
	}
	return db.WithContext(ctx).Create(&errRec).Error
}
