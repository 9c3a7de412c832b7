package gbpsync

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/listings_backend/models"
	"bitbucket.org/mmdatafocus/listings_backend/utils"
	"github.com/shopspring/decimal"
)

func completeListing() *models.Listing {
	return &models.Listing{
		ID:                       1,
		BusinessId:               "biz-1",
		Name:                     "Golden Bowl Cafe",
		AddressLine:              "12 Main St",
		Locality:                 "Yangon",
		Region:                   "Yangon Region",
		PostalCode:               "11181",
		CountryCode:              "MM",
		Phone:                    "+959123456789",
		Website:                  "https://goldenbowl.example.com",
		Description:              strings.Repeat("Fresh noodles and tea served daily. ", 5),
		PrimaryCategory:          "Cafe",
		AdditionalCategoriesJSON: []byte(`["Restaurant","Tea House"]`),
		HoursJSON:                []byte(`{"periods":[{"openDay":"MONDAY","openTime":"09:00","closeDay":"MONDAY","closeTime":"17:00"}]}`),
		AverageRating:            decimal.NewFromFloat(4.6),
		TotalReviewCount:         42,
		PhotoCount:               20,
		HasCoverPhoto:            utils.NewTrue(),
	}
}

func TestEvaluateAuditCompleteListing(t *testing.T) {
	now := time.Now()
	lastPost := now.Add(-24 * time.Hour)

	result := evaluateAudit(auditInput{
		listing:          completeListing(),
		postsLast30Days:  5,
		lastPostAt:       &lastPost,
		reviewsTotal:     40,
		reviewsResponded: 40,
		now:              now,
	})

	if result.Score != result.MaxScore {
		t.Fatalf("expected full score, got %.1f of %.1f", result.Score, result.MaxScore)
	}
	if result.Percentage != 100 {
		t.Fatalf("expected 100%%, got %.1f", result.Percentage)
	}
	if result.Grade != "A+" {
		t.Fatalf("expected A+, got %s", result.Grade)
	}
	if len(result.Recommendations) != 0 {
		t.Fatalf("expected no recommendations, got %d", len(result.Recommendations))
	}
}

func TestEvaluateAuditEmptyListing(t *testing.T) {
	result := evaluateAudit(auditInput{
		listing: &models.Listing{ID: 2, BusinessId: "biz-1"},
		now:     time.Now(),
	})

	if result.Score != 0 {
		t.Fatalf("expected zero score, got %.1f", result.Score)
	}
	if result.Grade != "F" {
		t.Fatalf("expected F, got %s", result.Grade)
	}
	if len(result.Recommendations) == 0 {
		t.Fatal("expected recommendations for an empty listing")
	}
}

func TestEvaluateAuditNeverExceedsMax(t *testing.T) {
	now := time.Now()
	lastPost := now
	listing := completeListing()
	listing.PhotoCount = 500
	listing.TotalReviewCount = 10000

	result := evaluateAudit(auditInput{
		listing:          listing,
		postsLast30Days:  100,
		lastPostAt:       &lastPost,
		reviewsTotal:     100,
		reviewsResponded: 100,
		now:              now,
	})

	if result.Score > result.MaxScore {
		t.Fatalf("score %.1f exceeds max %.1f", result.Score, result.MaxScore)
	}
	for _, cat := range result.Categories {
		if cat.Score > cat.MaxScore {
			t.Fatalf("category %s score %.1f exceeds max %.1f", cat.Name, cat.Score, cat.MaxScore)
		}
		for _, check := range cat.Checks {
			if check.Score > check.MaxScore {
				t.Fatalf("check %s score %.1f exceeds max %.1f", check.Name, check.Score, check.MaxScore)
			}
		}
	}
}

func TestPhotoScoreGraduated(t *testing.T) {
	now := time.Now()
	prev := -1.0
	for _, count := range []int{0, 1, 4, 8, 15, 16, 17, 100} {
		listing := completeListing()
		listing.PhotoCount = count
		result := evaluateAudit(auditInput{listing: listing, now: now})

		var photoScore float64
		for _, cat := range result.Categories {
			if cat.Name != "Visual Content" {
				continue
			}
			for _, check := range cat.Checks {
				if check.Name == "Photos" {
					photoScore = check.Score
				}
			}
		}

		if photoScore < prev {
			t.Fatalf("photo score decreased at count %d: %.1f < %.1f", count, photoScore, prev)
		}
		if count >= 16 && photoScore != 15 {
			t.Fatalf("expected full photo credit at %d photos, got %.1f", count, photoScore)
		}
		prev = photoScore
	}
}

func TestRecommendationsOrderedByPriority(t *testing.T) {
	// Missing phone (high), short description (medium), no additional
	// categories (low) must come back in that order.
	listing := completeListing()
	listing.Phone = ""
	listing.Description = "Too short."
	listing.AdditionalCategoriesJSON = nil

	now := time.Now()
	lastPost := now
	result := evaluateAudit(auditInput{
		listing:          listing,
		postsLast30Days:  5,
		lastPostAt:       &lastPost,
		reviewsTotal:     40,
		reviewsResponded: 40,
		now:              now,
	})

	if len(result.Recommendations) < 3 {
		t.Fatalf("expected at least 3 recommendations, got %d", len(result.Recommendations))
	}
	lastRank := -1
	for _, rec := range result.Recommendations {
		rank, ok := priorityRank[rec.Priority]
		if !ok {
			t.Fatalf("unknown priority %q", rec.Priority)
		}
		if rank < lastRank {
			t.Fatalf("recommendations out of order: %s after rank %d", rec.Priority, lastRank)
		}
		lastRank = rank
	}
	if result.Recommendations[0].Priority != PriorityHigh {
		t.Fatalf("expected first recommendation to be high priority, got %s", result.Recommendations[0].Priority)
	}
}

func TestNarrativeForAudit(t *testing.T) {
	now := time.Now()
	lastPost := now
	listing := completeListing()
	listing.PhotoCount = 0
	listing.HasCoverPhoto = nil

	result := evaluateAudit(auditInput{
		listing:          listing,
		postsLast30Days:  5,
		lastPostAt:       &lastPost,
		reviewsTotal:     40,
		reviewsResponded: 40,
		now:              now,
	})

	record := &models.AuditRecord{
		Score:      result.Score,
		MaxScore:   result.MaxScore,
		Percentage: result.Percentage,
		Grade:      result.Grade,
	}
	record.CategoriesJSON, _ = json.Marshal(result.Categories)
	record.RecommendationsJSON, _ = json.Marshal(result.Recommendations)

	narrative, err := NarrativeForAudit(record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(narrative, record.Grade) {
		t.Fatalf("narrative missing grade: %q", narrative)
	}
	if !strings.Contains(narrative, "Visual Content") {
		t.Fatalf("narrative should call out the weakest category: %q", narrative)
	}
}

func TestLetterGradeBoundaries(t *testing.T) {
	cases := []struct {
		pct  float64
		want string
	}{
		{100, "A+"},
		{97, "A+"},
		{96.9, "A"},
		{93, "A"},
		{92.9, "A-"},
		{90, "A-"},
		{89.9, "B+"},
		{87, "B+"},
		{83, "B"},
		{80, "B-"},
		{77, "C+"},
		{73, "C"},
		{70, "C-"},
		{67, "D+"},
		{63, "D"},
		{60, "D-"},
		{59.9, "F"},
		{0, "F"},
	}
	for _, tc := range cases {
		if got := letterGrade(tc.pct); got != tc.want {
			t.Fatalf("letterGrade(%.1f) = %s, want %s", tc.pct, got, tc.want)
		}
	}
}
