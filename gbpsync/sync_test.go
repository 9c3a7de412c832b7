package gbpsync

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/listings_backend/gbp"
	"bitbucket.org/mmdatafocus/listings_backend/models"
)

func TestSentimentForRating(t *testing.T) {
	cases := []struct {
		rating int
		want   string
	}{
		{5, models.SentimentPositive},
		{4, models.SentimentPositive},
		{3, models.SentimentNeutral},
		{2, models.SentimentNegative},
		{1, models.SentimentNegative},
		{0, models.SentimentNeutral},
		{-1, models.SentimentNeutral},
	}
	for _, tc := range cases {
		if got := sentimentForRating(tc.rating); got != tc.want {
			t.Fatalf("sentimentForRating(%d) = %s, want %s", tc.rating, got, tc.want)
		}
	}
}

func TestStarRatingValue(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"FIVE", 5},
		{"four", 4},
		{"THREE", 3},
		{"TWO", 2},
		{"ONE", 1},
		{"", 0},
		{"STAR_RATING_UNSPECIFIED", 0},
	}
	for _, tc := range cases {
		if got := starRatingValue(tc.in); got != tc.want {
			t.Fatalf("starRatingValue(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestLocationPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"accounts/123/locations/456", "locations/456"},
		{"locations/456", "locations/456"},
		{"456", "456"},
	}
	for _, tc := range cases {
		if got := locationPath(tc.in); got != tc.want {
			t.Fatalf("locationPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestKeywordSyncPeriod(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	if got := keywordSyncPeriod(start, end); got != "2026-05_2026-07" {
		t.Fatalf("keywordSyncPeriod = %q, want 2026-05_2026-07", got)
	}

	// Window crossing a year boundary.
	start = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := keywordSyncPeriod(start, end); got != "2025-11_2026-01" {
		t.Fatalf("keywordSyncPeriod = %q, want 2025-11_2026-01", got)
	}
}

func TestMergeDailyMetrics(t *testing.T) {
	d1 := &gbp.Date{Year: 2026, Month: 8, Day: 1}
	d2 := &gbp.Date{Year: 2026, Month: 8, Day: 2}

	series := []gbp.DailyMetricSeries{
		{
			DailyMetric: "WEBSITE_CLICKS",
			TimeSeries: &gbp.TimeSeries{DatedValues: []gbp.DatedValue{
				{Date: d2, Value: "7"},
				{Date: d1, Value: "3"},
			}},
		},
		{
			DailyMetric: "CALL_CLICKS",
			TimeSeries: &gbp.TimeSeries{DatedValues: []gbp.DatedValue{
				{Date: d1, Value: "2"},
			}},
		},
		{
			DailyMetric: "BUSINESS_BOOKINGS",
			TimeSeries:  nil,
		},
	}

	rows := mergeDailyMetrics(series)
	if len(rows) != 2 {
		t.Fatalf("expected 2 merged rows, got %d", len(rows))
	}
	if !rows[0].Date.Before(rows[1].Date) {
		t.Fatal("rows not sorted by date")
	}
	if rows[0].Values["WEBSITE_CLICKS"] != 3 || rows[0].Values["CALL_CLICKS"] != 2 {
		t.Fatalf("day 1 merged wrong: %v", rows[0].Values)
	}
	if rows[1].Values["WEBSITE_CLICKS"] != 7 {
		t.Fatalf("day 2 merged wrong: %v", rows[1].Values)
	}
	if _, ok := rows[0].Values["BUSINESS_BOOKINGS"]; ok {
		t.Fatal("empty series should contribute nothing")
	}
}

func TestImpressionsValue(t *testing.T) {
	cases := []struct {
		in   *gbp.InsightsValue
		want int
	}{
		{nil, 0},
		{&gbp.InsightsValue{Value: "42"}, 42},
		{&gbp.InsightsValue{Threshold: "15"}, 15},
		{&gbp.InsightsValue{Value: "bad", Threshold: "15"}, 15},
		{&gbp.InsightsValue{}, 0},
	}
	for i, tc := range cases {
		if got := impressionsValue(tc.in); got != tc.want {
			t.Fatalf("case %d: impressionsValue = %d, want %d", i, got, tc.want)
		}
	}
}

func TestReviewUpdatesIdempotent(t *testing.T) {
	remote := gbp.Review{
		ReviewId:   "r-1",
		StarRating: "FIVE",
		Comment:    "great",
		UpdateTime: "2026-08-01T10:00:00Z",
		Reviewer:   &gbp.Reviewer{DisplayName: "Aye Aye"},
	}

	first := reviewUpdates(remote)
	second := reviewUpdates(remote)

	if first["star_rating"] != 5 || first["sentiment"] != models.SentimentPositive {
		t.Fatalf("unexpected updates: %v", first)
	}
	for k, v := range first {
		if k == "external_updated_at" {
			continue
		}
		if second[k] != v {
			t.Fatalf("updates not stable for key %s: %v vs %v", k, v, second[k])
		}
	}
}

func TestNewReviewRowCarriesExistingReply(t *testing.T) {
	remote := gbp.Review{
		ReviewId:   "r-2",
		StarRating: "TWO",
		Comment:    "slow service",
		ReviewRepl: &gbp.ReviewReply{Comment: "sorry, we will do better", UpdateTime: "2026-08-05T09:00:00Z"},
	}

	row := newReviewRow("biz-1", 7, remote)
	if row.Sentiment != models.SentimentNegative {
		t.Fatalf("expected negative sentiment, got %s", row.Sentiment)
	}
	if row.ResponseStatus != models.ResponseStatusPublished {
		t.Fatalf("expected published response status, got %s", row.ResponseStatus)
	}
	if row.ReplyText == "" || row.RepliedAt == nil {
		t.Fatal("expected reply text and replied_at from remote reply")
	}
}

func TestParseProviderTime(t *testing.T) {
	if got := parseProviderTime("2026-08-01T10:00:00Z"); got == nil || got.UTC().Hour() != 10 {
		t.Fatalf("parseProviderTime failed: %v", got)
	}
	if got := parseProviderTime(""); got != nil {
		t.Fatal("expected nil for empty value")
	}
	if got := parseProviderTime("not-a-time"); got != nil {
		t.Fatal("expected nil for malformed value")
	}
}

func TestNormalizePhone(t *testing.T) {
	if got := normalizePhone("(415) 555-2671", "US"); got != "+14155552671" {
		t.Fatalf("normalizePhone = %q", got)
	}
	// Unparseable input passes through untouched.
	if got := normalizePhone("call us", ""); got != "call us" {
		t.Fatalf("normalizePhone fallback = %q", got)
	}
	if got := normalizePhone("", "US"); got != "" {
		t.Fatalf("expected empty result for empty input, got %q", got)
	}
}
