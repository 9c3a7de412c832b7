package gbp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type staticTokenSource string

func (s staticTokenSource) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("GBP_API_BASE_URL", srv.URL)
	t.Setenv("GBP_PERFORMANCE_BASE_URL", srv.URL)
	return NewClient(NewRateLimiter(time.Millisecond)), srv
}

func TestListReviewsPaginates(t *testing.T) {
	var tokens []string
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/1/locations/2/reviews", func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.URL.Query().Get("pageToken"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("pageToken") {
		case "":
			fmt.Fprint(w, `{"reviews":[{"reviewId":"r1","starRating":"FIVE"},{"reviewId":"r2","starRating":"ONE"}],"averageRating":4.2,"totalReviewCount":3,"nextPageToken":"p2"}`)
		case "p2":
			fmt.Fprint(w, `{"reviews":[{"reviewId":"r3","starRating":"THREE"}]}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	client, _ := newTestClient(t, mux)
	result, err := client.ListReviews(context.Background(), staticTokenSource("tok"), "accounts/1/locations/2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Reviews) != 3 {
		t.Fatalf("expected 3 reviews across pages, got %d", len(result.Reviews))
	}
	if result.Reviews[0].ReviewId != "r1" || result.Reviews[2].ReviewId != "r3" {
		t.Fatalf("reviews out of order: %+v", result.Reviews)
	}
	if result.AverageRating != 4.2 || result.TotalReviewCount != 3 {
		t.Fatalf("aggregates not captured: %+v", result)
	}
	if len(tokens) != 2 || tokens[1] != "p2" {
		t.Fatalf("pagination tokens wrong: %v", tokens)
	}
}

func TestBearerTokenSent(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/1/locations/2", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"name":"accounts/1/locations/2","title":"Cafe"}`)
	})

	client, _ := newTestClient(t, mux)
	loc, err := client.GetLocation(context.Background(), staticTokenSource("secret-token"), "accounts/1/locations/2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if loc.Title != "Cafe" {
		t.Fatalf("location not decoded: %+v", loc)
	}
}

func TestStructuredErrorParsing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/1/locations/9", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`)
	})

	client, _ := newTestClient(t, mux)
	_, err := client.GetLocation(context.Background(), staticTokenSource("tok"), "accounts/1/locations/9")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if !apiErr.IsNotFound() {
		t.Fatalf("expected not-found classification: %+v", apiErr)
	}
	if apiErr.Status != "NOT_FOUND" || apiErr.Message == "" {
		t.Fatalf("structured fields not parsed: %+v", apiErr)
	}
}

func TestQuotaErrorClassification(t *testing.T) {
	err := parseAPIError(http.StatusTooManyRequests, []byte(`{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	if !err.IsQuotaExceeded() {
		t.Fatalf("expected quota classification: %+v", err)
	}

	// Non-JSON bodies keep the raw text.
	raw := parseAPIError(http.StatusBadGateway, []byte("upstream timeout"))
	if raw.Message != "upstream timeout" {
		t.Fatalf("raw body not preserved: %+v", raw)
	}
}

func TestRateLimiterHonorsContextCancel(t *testing.T) {
	limiter := NewRateLimiter(time.Hour)

	// First slot is free.
	if err := limiter.WaitForSlot(context.Background()); err != nil {
		t.Fatalf("first slot should be immediate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := limiter.WaitForSlot(ctx); err == nil {
		t.Fatal("expected cancellation waiting for second slot")
	}
}

func TestFetchDailyMetricsFlattens(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/locations/2:fetchMultiDailyMetricsTimeSeries", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"multiDailyMetricTimeSeries":[{"dailyMetricTimeSeries":[{"dailyMetric":"WEBSITE_CLICKS","timeSeries":{"datedValues":[{"date":{"year":2026,"month":8,"day":1},"value":"5"}]}},{"dailyMetric":"CALL_CLICKS","timeSeries":{"datedValues":[{"date":{"year":2026,"month":8,"day":1},"value":"2"}]}}]}]}`)
	})

	client, _ := newTestClient(t, mux)
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	series, err := client.FetchDailyMetrics(context.Background(), staticTokenSource("tok"), "locations/2", start, end, []string{"WEBSITE_CLICKS", "CALL_CLICKS"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 flattened series, got %d", len(series))
	}
	if series[0].DailyMetric != "WEBSITE_CLICKS" || series[1].DailyMetric != "CALL_CLICKS" {
		t.Fatalf("series order wrong: %+v", series)
	}
}
