package gbpsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/listings_backend/config"
	"bitbucket.org/mmdatafocus/listings_backend/gbp"
	"bitbucket.org/mmdatafocus/listings_backend/models"
	"bitbucket.org/mmdatafocus/listings_backend/utils"
)

// mapPostToLocalPost converts a local post row into the provider's wire
// shape. It validates the type-specific requirements and never touches the
// database.
func mapPostToLocalPost(post *models.Post) (*gbp.LocalPost, error) {
	lp := &gbp.LocalPost{
		LanguageCode: "en",
		Summary:      post.Body,
	}

	switch post.ContentType {
	case models.PostTypeStandard, "":
		lp.TopicType = "STANDARD"
	case models.PostTypeEvent:
		if post.EventTitle == "" || post.EventStartAt == nil {
			return nil, errors.New("event posts require an event title and start date")
		}
		lp.TopicType = "EVENT"
		lp.Event = eventOf(post)
	case models.PostTypeOffer:
		if post.EventTitle == "" || post.EventStartAt == nil {
			return nil, errors.New("offer posts require an offer title and start date")
		}
		lp.TopicType = "OFFER"
		lp.Event = eventOf(post)
		lp.Offer = &gbp.PostOffer{
			CouponCode:      post.CouponCode,
			RedeemOnlineUrl: post.RedeemOnlineUrl,
			TermsConditions: post.TermsConditions,
		}
	case models.PostTypeAlert:
		lp.TopicType = "ALERT"
	default:
		return nil, fmt.Errorf("content type %q cannot be published", post.ContentType)
	}

	if post.CallToActionType != "" {
		lp.CallToAction = &gbp.CallToAction{
			ActionType: strings.ToUpper(post.CallToActionType),
			Url:        post.CallToActionUrl,
		}
	}

	if len(post.MediaJSON) > 0 {
		var urls []string
		if err := json.Unmarshal(post.MediaJSON, &urls); err != nil {
			return nil, fmt.Errorf("decode post media: %w", err)
		}
		for _, u := range urls {
			lp.Media = append(lp.Media, gbp.PostMedia{MediaFormat: "PHOTO", SourceUrl: u})
		}
	}

	return lp, nil
}

func eventOf(post *models.Post) *gbp.PostEvent {
	ev := &gbp.PostEvent{
		Title:    post.EventTitle,
		Schedule: &gbp.EventSchedule{},
	}
	if post.EventStartAt != nil {
		ev.Schedule.StartDate = gbp.DateOf(*post.EventStartAt)
		ev.Schedule.StartTime = &gbp.TimeOfDay{Hours: post.EventStartAt.Hour(), Minutes: post.EventStartAt.Minute()}
	}
	if post.EventEndAt != nil {
		ev.Schedule.EndDate = gbp.DateOf(*post.EventEndAt)
		ev.Schedule.EndTime = &gbp.TimeOfDay{Hours: post.EventEndAt.Hour(), Minutes: post.EventEndAt.Minute()}
	}
	return ev
}

// markPostFailed persists the failure before the error propagates, so a
// crash right after still leaves the failure visible.
func markPostFailed(ctx context.Context, postId int, cause error) {
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postId).
		Updates(map[string]interface{}{
			"status":     models.PostStatusFailed,
			"last_error": cause.Error(),
		}).Error; err != nil {
		config.LogError(logger, "gbpsync", "markPostFailed", "persist failure", postId, err)
	}
}

// PublishPost pushes one local post to the provider. On failure the post is
// marked failed with the cause BEFORE the error is returned.
func (e *Engine) PublishPost(ctx context.Context, postId int) (*models.Post, error) {
	post, err := models.GetPost(ctx, postId)
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusPublished && post.ExternalPostId != "" {
		return nil, fmt.Errorf("post %d is already published", postId)
	}

	listing, err := models.GetListing(ctx, post.ListingId)
	if err != nil {
		return nil, err
	}
	if listing.ResourceName == nil || *listing.ResourceName == "" {
		err := errors.New("listing has no linked resource name")
		markPostFailed(ctx, post.ID, err)
		return nil, err
	}

	lp, err := mapPostToLocalPost(post)
	if err != nil {
		markPostFailed(ctx, post.ID, err)
		return nil, err
	}

	db := config.GetDB()
	ts := TokenSourceForListing(db, listing.BusinessId, listing.ID)
	created, err := e.client.CreateLocalPost(ctx, ts, *listing.ResourceName, lp)
	if err != nil {
		markPostFailed(ctx, post.ID, err)
		return nil, err
	}

	publishedAt := time.Now()
	if err := db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]interface{}{
			"status":           models.PostStatusPublished,
			"external_post_id": created.Name,
			"published_at":     publishedAt,
			"last_error":       "",
		}).Error; err != nil {
		return nil, err
	}
	post.Status = models.PostStatusPublished
	post.ExternalPostId = created.Name
	post.PublishedAt = &publishedAt
	post.LastError = ""

	_ = models.LogActivity(ctx, "post_published", fmt.Sprintf("Post #%d published to listing #%d", post.ID, listing.ID), post.ID, "post", nil)

	return post, nil
}

// replyTextOf picks the text a reply publish would send: the approved reply
// text, falling back to the draft.
func replyTextOf(review *models.Review) string {
	if text := strings.TrimSpace(review.ReplyText); text != "" {
		return text
	}
	return strings.TrimSpace(review.ReplyDraft)
}

// markReviewFailed persists the failure before the error propagates, same
// contract as markPostFailed.
func markReviewFailed(ctx context.Context, reviewId int, cause error) {
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&models.Review{}).
		Where("id = ?", reviewId).
		Updates(map[string]interface{}{
			"response_status": models.ResponseStatusFailed,
			"last_error":      cause.Error(),
		}).Error; err != nil {
		config.LogError(logger, "gbpsync", "markReviewFailed", "persist failure", reviewId, err)
	}
}

// PublishReviewReply pushes the approved reply of one review to the
// provider and records the transition locally. Any failure is written to
// the review row before it propagates.
func (e *Engine) PublishReviewReply(ctx context.Context, reviewId int) (*models.Review, error) {
	review, err := models.GetReview(ctx, reviewId)
	if err != nil {
		return nil, err
	}

	replyText := replyTextOf(review)
	if replyText == "" {
		err := errors.New("review has no reply text to publish")
		markReviewFailed(ctx, review.ID, err)
		return nil, err
	}

	listing, err := models.GetListing(ctx, review.ListingId)
	if err != nil {
		return nil, err
	}
	if listing.ResourceName == nil || *listing.ResourceName == "" {
		err := errors.New("listing has no linked resource name")
		markReviewFailed(ctx, review.ID, err)
		return nil, err
	}

	db := config.GetDB()
	ts := TokenSourceForListing(db, listing.BusinessId, listing.ID)
	reviewName := *listing.ResourceName + "/reviews/" + review.ExternalReviewId

	if _, err := e.client.ReplyReview(ctx, ts, reviewName, replyText); err != nil {
		markReviewFailed(ctx, review.ID, err)
		return nil, err
	}

	repliedAt := time.Now()
	if err := db.WithContext(ctx).Model(&models.Review{}).
		Where("id = ?", review.ID).
		Updates(map[string]interface{}{
			"reply_text":      replyText,
			"response_status": models.ResponseStatusPublished,
			"replied_at":      repliedAt,
			"last_error":      "",
		}).Error; err != nil {
		return nil, err
	}
	review.ReplyText = replyText
	review.ResponseStatus = models.ResponseStatusPublished
	review.RepliedAt = &repliedAt
	review.LastError = ""

	_ = models.LogActivity(ctx, "review_reply_published", fmt.Sprintf("Reply published for review #%d", review.ID), review.ID, "review", nil)

	return review, nil
}

type BulkItemResult struct {
	Id      int    `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type BulkSummary struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
}

// missingIds returns the requested ids absent from found, sorted ascending.
// Duplicated requests for the same missing id are reported once.
func missingIds(requested []int, found []int) []int {
	foundSet := make(map[int]bool, len(found))
	for _, id := range found {
		foundSet[id] = true
	}
	seen := make(map[int]bool, len(requested))
	var missing []int
	for _, id := range requested {
		if !foundSet[id] && !seen[id] {
			seen[id] = true
			missing = append(missing, id)
		}
	}
	sort.Ints(missing)
	return missing
}

// runBulkSequential publishes ids strictly in order, one at a time, pausing
// delay between consecutive items. One failed item never stops the batch.
// The result slice always has one entry per input id, in input order.
func runBulkSequential(ids []int, delay time.Duration, sleep func(time.Duration), publish func(id int) error) ([]BulkItemResult, BulkSummary) {
	results := make([]BulkItemResult, 0, len(ids))
	summary := BulkSummary{Total: len(ids)}

	for i, id := range ids {
		if i > 0 && delay > 0 {
			sleep(delay)
		}
		if err := publish(id); err != nil {
			results = append(results, BulkItemResult{Id: id, Success: false, Error: err.Error()})
			summary.Failed++
			continue
		}
		results = append(results, BulkItemResult{Id: id, Success: true})
		summary.Published++
	}

	return results, summary
}

// BulkPublishPosts validates the whole batch up front: one unknown id
// rejects the request before any post is touched. Valid batches publish
// strictly sequentially with a fixed pause between items.
func (e *Engine) BulkPublishPosts(ctx context.Context, req BulkPublishRequest) (*BulkPublishResponse, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var found []int
	if err := db.WithContext(ctx).Model(&models.Post{}).
		Where("business_id = ? AND id IN ?", businessId, req.PostIds).
		Pluck("id", &found).Error; err != nil {
		return nil, err
	}

	if missing := missingIds(req.PostIds, found); len(missing) > 0 {
		return nil, fmt.Errorf("%w: posts not found: %v", utils.ErrorRecordNotFound, missing)
	}

	delay := time.Duration(utils.IntFromEnv("GBP_BULK_PUBLISH_DELAY_MS", 2000)) * time.Millisecond
	results, summary := runBulkSequential(req.PostIds, delay, time.Sleep, func(id int) error {
		_, err := e.PublishPost(ctx, id)
		return err
	})

	_ = models.LogActivity(ctx, "posts_bulk_published", fmt.Sprintf("Bulk publish finished: %d published, %d failed", summary.Published, summary.Failed), 0, "post", summary)

	return &BulkPublishResponse{Results: results, Summary: summary}, nil
}
