package gbp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// TokenSource yields a live bearer token for one listing's linked account.
// Resolution happens per call so an expired token is refreshed transparently
// between two requests of the same sync run.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client wraps the provider's v4 business API and v1 performance API.
// Every call passes through the shared rate limiter before resolving its
// token. List operations paginate to completion; callers never see a
// partial page. There is no retry on transient failure: a failed call
// surfaces immediately.
type Client struct {
	baseURL     string
	perfBaseURL string
	http        *http.Client
	limiter     *RateLimiter
}

func NewClient(limiter *RateLimiter) *Client {
	baseURL := strings.TrimSpace(os.Getenv("GBP_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://mybusiness.googleapis.com/v4"
	}
	perfBaseURL := strings.TrimSpace(os.Getenv("GBP_PERFORMANCE_BASE_URL"))
	if perfBaseURL == "" {
		perfBaseURL = "https://businessprofileperformance.googleapis.com/v1"
	}
	if limiter == nil {
		limiter = NewRateLimiter(6 * time.Second)
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		perfBaseURL: strings.TrimRight(perfBaseURL, "/"),
		http:        &http.Client{Timeout: 30 * time.Second},
		limiter:     limiter,
	}
}

func (c *Client) do(ctx context.Context, ts TokenSource, method string, endpoint string, body any, out any) error {
	if err := c.limiter.WaitForSlot(ctx); err != nil {
		return err
	}

	token, err := ts.Token(ctx)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

// GetLocation fetches the full location detail by resource name
// ("accounts/{accountId}/locations/{locationId}").
func (c *Client) GetLocation(ctx context.Context, ts TokenSource, name string) (*Location, error) {
	var loc Location
	if err := c.do(ctx, ts, http.MethodGet, c.baseURL+"/"+name, nil, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

// UpdateLocation patches the named fields of a location. updateMask is a
// comma-separated field list per the provider's PATCH semantics.
func (c *Client) UpdateLocation(ctx context.Context, ts TokenSource, name string, loc *Location, updateMask string) (*Location, error) {
	endpoint := c.baseURL + "/" + name + "?updateMask=" + url.QueryEscape(updateMask)
	var updated Location
	if err := c.do(ctx, ts, http.MethodPatch, endpoint, loc, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListReviews returns every review for the location along with the
// aggregate rating figures reported by the provider.
func (c *Client) ListReviews(ctx context.Context, ts TokenSource, parent string) (*ReviewsResult, error) {
	result := &ReviewsResult{}
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("pageSize", "50")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page listReviewsResponse
		endpoint := c.baseURL + "/" + parent + "/reviews?" + params.Encode()
		if err := c.do(ctx, ts, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		result.Reviews = append(result.Reviews, page.Reviews...)
		if page.TotalReviewCount > 0 {
			result.AverageRating = page.AverageRating
			result.TotalReviewCount = page.TotalReviewCount
		}

		if page.NextPageToken == "" {
			return result, nil
		}
		pageToken = page.NextPageToken
	}
}

// ReplyReview upserts the owner reply on a review
// (reviewName is "accounts/.../locations/.../reviews/{reviewId}").
func (c *Client) ReplyReview(ctx context.Context, ts TokenSource, reviewName string, comment string) (*ReviewReply, error) {
	body := ReviewReply{Comment: comment}
	var reply ReviewReply
	if err := c.do(ctx, ts, http.MethodPut, c.baseURL+"/"+reviewName+"/reply", body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) DeleteReviewReply(ctx context.Context, ts TokenSource, reviewName string) error {
	return c.do(ctx, ts, http.MethodDelete, c.baseURL+"/"+reviewName+"/reply", nil, nil)
}

func (c *Client) ListLocalPosts(ctx context.Context, ts TokenSource, parent string) ([]LocalPost, error) {
	var posts []LocalPost
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("pageSize", "100")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page listLocalPostsResponse
		endpoint := c.baseURL + "/" + parent + "/localPosts?" + params.Encode()
		if err := c.do(ctx, ts, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		posts = append(posts, page.LocalPosts...)
		if page.NextPageToken == "" {
			return posts, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *Client) CreateLocalPost(ctx context.Context, ts TokenSource, parent string, post *LocalPost) (*LocalPost, error) {
	var created LocalPost
	if err := c.do(ctx, ts, http.MethodPost, c.baseURL+"/"+parent+"/localPosts", post, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteLocalPost(ctx context.Context, ts TokenSource, name string) error {
	return c.do(ctx, ts, http.MethodDelete, c.baseURL+"/"+name, nil, nil)
}

func (c *Client) ListMedia(ctx context.Context, ts TokenSource, parent string) ([]MediaItem, error) {
	var items []MediaItem
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("pageSize", "100")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page listMediaResponse
		endpoint := c.baseURL + "/" + parent + "/media?" + params.Encode()
		if err := c.do(ctx, ts, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		items = append(items, page.MediaItems...)
		if page.NextPageToken == "" {
			return items, nil
		}
		pageToken = page.NextPageToken
	}
}

// FetchDailyMetrics pulls the named daily metric time series for a location
// ("locations/{locationId}") over [start, end] and returns them flattened.
func (c *Client) FetchDailyMetrics(ctx context.Context, ts TokenSource, location string, start time.Time, end time.Time, metrics []string) ([]DailyMetricSeries, error) {
	params := url.Values{}
	for _, m := range metrics {
		params.Add("dailyMetrics", m)
	}
	params.Set("dailyRange.start_date.year", strconv.Itoa(start.Year()))
	params.Set("dailyRange.start_date.month", strconv.Itoa(int(start.Month())))
	params.Set("dailyRange.start_date.day", strconv.Itoa(start.Day()))
	params.Set("dailyRange.end_date.year", strconv.Itoa(end.Year()))
	params.Set("dailyRange.end_date.month", strconv.Itoa(int(end.Month())))
	params.Set("dailyRange.end_date.day", strconv.Itoa(end.Day()))

	endpoint := c.perfBaseURL + "/" + location + ":fetchMultiDailyMetricsTimeSeries?" + params.Encode()
	var resp fetchDailyMetricsResponse
	if err := c.do(ctx, ts, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	var series []DailyMetricSeries
	for _, group := range resp.MultiDailyMetricTimeSeries {
		series = append(series, group.DailyMetricTimeSeries...)
	}
	return series, nil
}

// ListSearchKeywordImpressions returns all monthly search keyword impression
// counts for a location over [startMonth, endMonth], paginated to completion.
func (c *Client) ListSearchKeywordImpressions(ctx context.Context, ts TokenSource, location string, startMonth time.Time, endMonth time.Time) ([]SearchKeywordCount, error) {
	var counts []SearchKeywordCount
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("monthlyRange.start_month.year", strconv.Itoa(startMonth.Year()))
		params.Set("monthlyRange.start_month.month", strconv.Itoa(int(startMonth.Month())))
		params.Set("monthlyRange.end_month.year", strconv.Itoa(endMonth.Year()))
		params.Set("monthlyRange.end_month.month", strconv.Itoa(int(endMonth.Month())))
		params.Set("pageSize", "100")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page listSearchKeywordsResponse
		endpoint := c.perfBaseURL + "/" + location + "/searchkeywords/impressions/monthly?" + params.Encode()
		if err := c.do(ctx, ts, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		counts = append(counts, page.SearchKeywordsCounts...)
		if page.NextPageToken == "" {
			return counts, nil
		}
		pageToken = page.NextPageToken
	}
}
