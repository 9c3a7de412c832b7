package gbpsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/listings_backend/config"
	"bitbucket.org/mmdatafocus/listings_backend/models"
	"gorm.io/gorm"
)

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Graduated check caps: a listing earns full visual-content credit at 16
// photos and full posting-cadence credit at 4 posts in 30 days.
const (
	fullCreditPhotoCount   = 16
	fullCreditMonthlyPosts = 4
	recentPostWindow       = 14 * 24 * time.Hour
	minDescriptionLength   = 100
)

type AuditCheck struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"maxScore"`
	Passed   bool    `json:"passed"`
}

type AuditCategory struct {
	Name     string       `json:"name"`
	Score    float64      `json:"score"`
	MaxScore float64      `json:"maxScore"`
	Checks   []AuditCheck `json:"checks"`
}

type Recommendation struct {
	Priority string `json:"priority"`
	Effort   string `json:"effort"`
	Impact   string `json:"impact"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

type AuditResult struct {
	Score           float64          `json:"score"`
	MaxScore        float64          `json:"maxScore"`
	Percentage      float64          `json:"percentage"`
	Grade           string           `json:"grade"`
	Categories      []AuditCategory  `json:"categories"`
	Recommendations []Recommendation `json:"recommendations"`
}

// auditInput is the full local state the scorer reads. No provider call
// happens during an audit.
type auditInput struct {
	listing          *models.Listing
	postsLast30Days  int
	lastPostAt       *time.Time
	reviewsTotal     int
	reviewsResponded int
	now              time.Time
}

type checkSpec struct {
	name     string
	max      float64
	score    float64
	priority string
	effort   string
	impact   string
	message  string
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func buildCategory(name string, specs []checkSpec, recs *[]Recommendation) AuditCategory {
	cat := AuditCategory{Name: name}
	for _, s := range specs {
		score := round1(s.score)
		if score > s.max {
			score = s.max
		}
		passed := score >= s.max
		cat.Checks = append(cat.Checks, AuditCheck{Name: s.name, Score: score, MaxScore: s.max, Passed: passed})
		cat.Score += score
		cat.MaxScore += s.max
		if !passed && s.message != "" {
			effort := s.effort
			if effort == "" {
				effort = "low"
			}
			impact := s.impact
			if impact == "" {
				impact = s.priority
			}
			*recs = append(*recs, Recommendation{Priority: s.priority, Effort: effort, Impact: impact, Category: name, Message: s.message})
		}
	}
	cat.Score = round1(cat.Score)
	return cat
}

func boolScore(ok bool, max float64) float64 {
	if ok {
		return max
	}
	return 0
}

// evaluateAudit scores one listing from local state alone. It is pure:
// same input, same result.
func evaluateAudit(in auditInput) AuditResult {
	l := in.listing
	var recs []Recommendation

	hasAddress := l.AddressLine != "" && l.Locality != ""
	hasHours := len(l.HoursJSON) > 0 && string(l.HoursJSON) != "null" && string(l.HoursJSON) != "{}"
	hasAdditionalCats := len(l.AdditionalCategoriesJSON) > 0 && string(l.AdditionalCategoriesJSON) != "null" && string(l.AdditionalCategoriesJSON) != "[]"

	basic := buildCategory("Basic Information", []checkSpec{
		{name: "Business name", max: 5, score: boolScore(l.Name != "", 5),
			priority: PriorityHigh, message: "Set the business name."},
		{name: "Address", max: 10, score: boolScore(hasAddress, 10),
			priority: PriorityHigh, message: "Complete the street address and locality."},
		{name: "Phone number", max: 10, score: boolScore(l.Phone != "", 10),
			priority: PriorityHigh, message: "Add a primary phone number."},
		{name: "Website", max: 10, score: boolScore(l.Website != "", 10),
			priority: PriorityHigh, message: "Add a website link."},
		{name: "Description", max: 10, score: boolScore(len(l.Description) >= minDescriptionLength, 10),
			priority: PriorityMedium, effort: "medium", message: fmt.Sprintf("Write a business description of at least %d characters.", minDescriptionLength)},
		{name: "Business hours", max: 10, score: boolScore(hasHours, 10),
			priority: PriorityHigh, message: "Set regular business hours."},
		{name: "Primary category", max: 10, score: boolScore(l.PrimaryCategory != "", 10),
			priority: PriorityHigh, message: "Choose a primary business category."},
		{name: "Additional categories", max: 5, score: boolScore(hasAdditionalCats, 5),
			priority: PriorityLow, message: "Add one or more additional categories."},
	}, &recs)

	photoScore := 15 * math.Min(float64(l.PhotoCount), fullCreditPhotoCount) / fullCreditPhotoCount
	hasCover := l.HasCoverPhoto != nil && *l.HasCoverPhoto
	visual := buildCategory("Visual Content", []checkSpec{
		{name: "Photos", max: 15, score: photoScore,
			priority: PriorityMedium, effort: "medium", impact: "high", message: fmt.Sprintf("Upload more photos; %d or more earns full credit.", fullCreditPhotoCount)},
		{name: "Cover photo", max: 5, score: boolScore(hasCover, 5),
			priority: PriorityMedium, message: "Set a cover photo."},
	}, &recs)

	avgRating := l.AverageRating.InexactFloat64()
	responseRate := 0.0
	if in.reviewsTotal > 0 {
		responseRate = float64(in.reviewsResponded) / float64(in.reviewsTotal)
	}
	reviews := buildCategory("Reviews & Reputation", []checkSpec{
		{name: "Average rating", max: 10, score: boolScore(avgRating >= 4.0, 10),
			priority: PriorityMedium, effort: "high", message: "Improve the average rating to 4.0 or higher."},
		{name: "Review volume", max: 5, score: boolScore(l.TotalReviewCount >= 10, 5),
			priority: PriorityLow, message: "Collect at least 10 reviews."},
		{name: "Response rate", max: 15, score: 15 * responseRate,
			priority: PriorityMedium, effort: "medium", impact: "high", message: "Respond to more customer reviews."},
	}, &recs)

	postScore := 15 * math.Min(float64(in.postsLast30Days), fullCreditMonthlyPosts) / fullCreditMonthlyPosts
	recentPost := in.lastPostAt != nil && in.now.Sub(*in.lastPostAt) <= recentPostWindow
	posting := buildCategory("Posting Activity", []checkSpec{
		{name: "Posting cadence", max: 15, score: postScore,
			priority: PriorityMedium, effort: "medium", message: fmt.Sprintf("Publish %d or more posts per month for full credit.", fullCreditMonthlyPosts)},
		{name: "Recent post", max: 5, score: boolScore(recentPost, 5),
			priority: PriorityLow, message: "Publish a post within the last 14 days."},
	}, &recs)

	result := AuditResult{Categories: []AuditCategory{basic, visual, reviews, posting}}
	for _, cat := range result.Categories {
		result.Score += cat.Score
		result.MaxScore += cat.MaxScore
	}
	result.Score = round1(result.Score)
	if result.MaxScore > 0 {
		result.Percentage = round1(result.Score / result.MaxScore * 100)
	}
	result.Grade = letterGrade(result.Percentage)

	sortRecommendations(recs)
	result.Recommendations = recs

	return result
}

var priorityRank = map[string]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// sortRecommendations orders by descending priority, keeping the original
// order within a priority band.
func sortRecommendations(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
	})
}

// letterGrade maps a percentage to a letter grade. Boundaries are
// inclusive: exactly 93.0 is an A, exactly 60.0 is a D-.
func letterGrade(pct float64) string {
	switch {
	case pct >= 97:
		return "A+"
	case pct >= 93:
		return "A"
	case pct >= 90:
		return "A-"
	case pct >= 87:
		return "B+"
	case pct >= 83:
		return "B"
	case pct >= 80:
		return "B-"
	case pct >= 77:
		return "C+"
	case pct >= 73:
		return "C"
	case pct >= 70:
		return "C-"
	case pct >= 67:
		return "D+"
	case pct >= 63:
		return "D"
	case pct >= 60:
		return "D-"
	default:
		return "F"
	}
}

// NarrativeForAudit renders a stored audit record as plain prose for
// client-facing reports.
func NarrativeForAudit(record *models.AuditRecord) (string, error) {
	var categories []AuditCategory
	if len(record.CategoriesJSON) > 0 {
		if err := json.Unmarshal(record.CategoriesJSON, &categories); err != nil {
			return "", fmt.Errorf("decode audit categories: %w", err)
		}
	}
	var recs []Recommendation
	if len(record.RecommendationsJSON) > 0 {
		if err := json.Unmarshal(record.RecommendationsJSON, &recs); err != nil {
			return "", fmt.Errorf("decode audit recommendations: %w", err)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "This listing scored %.1f of %.1f points (%.1f%%), a grade of %s.",
		record.Score, record.MaxScore, record.Percentage, record.Grade)

	var strongest, weakest *AuditCategory
	for i := range categories {
		cat := &categories[i]
		if cat.MaxScore == 0 {
			continue
		}
		if strongest == nil || cat.Score/cat.MaxScore > strongest.Score/strongest.MaxScore {
			strongest = cat
		}
		if weakest == nil || cat.Score/cat.MaxScore < weakest.Score/weakest.MaxScore {
			weakest = cat
		}
	}
	if strongest != nil && weakest != nil && strongest != weakest {
		fmt.Fprintf(&b, " The strongest area is %s (%.1f of %.1f); the biggest opportunity is %s (%.1f of %.1f).",
			strongest.Name, strongest.Score, strongest.MaxScore,
			weakest.Name, weakest.Score, weakest.MaxScore)
	}

	if len(recs) > 0 {
		fmt.Fprintf(&b, " Top recommendation: %s", recs[0].Message)
		if len(recs) > 1 {
			fmt.Fprintf(&b, " %d further improvements are suggested.", len(recs)-1)
		}
	}

	return b.String(), nil
}

// RunAudit scores the listing from local state and persists an immutable
// audit record. Sync first if fresh provider data matters.
func (e *Engine) RunAudit(ctx context.Context, listingId int) (*models.AuditRecord, *AuditResult, error) {
	listing, err := models.GetListing(ctx, listingId)
	if err != nil {
		return nil, nil, err
	}

	db := config.GetDB()
	now := time.Now()

	var postsLast30Days int64
	if err := db.WithContext(ctx).Model(&models.Post{}).
		Where("listing_id = ? AND status = ? AND published_at > ?", listing.ID, models.PostStatusPublished, now.AddDate(0, 0, -30)).
		Count(&postsLast30Days).Error; err != nil {
		return nil, nil, err
	}

	var lastPost models.Post
	var lastPostAt *time.Time
	err = db.WithContext(ctx).
		Where("listing_id = ? AND status = ?", listing.ID, models.PostStatusPublished).
		Order("published_at desc").
		Take(&lastPost).Error
	switch {
	case err == nil:
		lastPostAt = lastPost.PublishedAt
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No published post yet; the recency check scores zero.
	default:
		return nil, nil, err
	}

	var reviewsTotal, reviewsResponded int64
	if err := db.WithContext(ctx).Model(&models.Review{}).
		Where("listing_id = ?", listing.ID).
		Count(&reviewsTotal).Error; err != nil {
		return nil, nil, err
	}
	if err := db.WithContext(ctx).Model(&models.Review{}).
		Where("listing_id = ? AND (reply_text <> '' OR response_status = ?)", listing.ID, models.ResponseStatusPublished).
		Count(&reviewsResponded).Error; err != nil {
		return nil, nil, err
	}

	result := evaluateAudit(auditInput{
		listing:          listing,
		postsLast30Days:  int(postsLast30Days),
		lastPostAt:       lastPostAt,
		reviewsTotal:     int(reviewsTotal),
		reviewsResponded: int(reviewsResponded),
		now:              now,
	})

	record := models.AuditRecord{
		BusinessId: listing.BusinessId,
		ListingId:  listing.ID,
		Score:      result.Score,
		MaxScore:   result.MaxScore,
		Percentage: result.Percentage,
		Grade:      result.Grade,
	}
	if b, err := json.Marshal(result.Categories); err == nil {
		record.CategoriesJSON = b
	}
	if b, err := json.Marshal(result.Recommendations); err == nil {
		record.RecommendationsJSON = b
	}
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, nil, err
	}

	_ = models.LogActivity(ctx, "listing_audited", fmt.Sprintf("Audit for listing #%d scored %.1f%% (%s)", listing.ID, result.Percentage, result.Grade), listing.ID, "listing", map[string]any{"grade": result.Grade, "percentage": result.Percentage})

	return &record, &result, nil
}
