package gbpsync

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/listings_backend/models"
)

func TestRunBulkSequentialMiddleFailure(t *testing.T) {
	ids := []int{10, 20, 30}
	var published []int

	results, summary := runBulkSequential(ids, 0, func(time.Duration) {}, func(id int) error {
		if id == 20 {
			return errors.New("provider rejected post")
		}
		published = append(published, id)
		return nil
	})

	if len(results) != len(ids) {
		t.Fatalf("expected %d results, got %d", len(ids), len(results))
	}
	for i, r := range results {
		if r.Id != ids[i] {
			t.Fatalf("result %d out of order: got id %d, want %d", i, r.Id, ids[i])
		}
	}
	if results[0].Success != true || results[2].Success != true {
		t.Fatal("expected first and last items to succeed")
	}
	if results[1].Success {
		t.Fatal("expected middle item to fail")
	}
	if results[1].Error == "" {
		t.Fatal("failed item must carry an error message")
	}
	if summary.Total != 3 || summary.Published != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(published) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(published))
	}
}

func TestRunBulkSequentialDelaysBetweenItems(t *testing.T) {
	ids := []int{1, 2, 3, 4}
	var sleeps []time.Duration

	runBulkSequential(ids, 2*time.Second, func(d time.Duration) { sleeps = append(sleeps, d) }, func(int) error {
		return nil
	})

	// No pause before the first item, one between each consecutive pair.
	if len(sleeps) != len(ids)-1 {
		t.Fatalf("expected %d sleeps, got %d", len(ids)-1, len(sleeps))
	}
	for _, d := range sleeps {
		if d != 2*time.Second {
			t.Fatalf("expected 2s pause, got %s", d)
		}
	}
}

func TestRunBulkSequentialAllFail(t *testing.T) {
	ids := []int{1, 2}
	results, summary := runBulkSequential(ids, 0, func(time.Duration) {}, func(id int) error {
		return fmt.Errorf("post %d broken", id)
	})

	if summary.Published != 0 || summary.Failed != 2 || summary.Total != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	for _, r := range results {
		if r.Success || r.Error == "" {
			t.Fatalf("expected failure with message, got %+v", r)
		}
	}
}

func TestMissingIds(t *testing.T) {
	cases := []struct {
		requested []int
		found     []int
		want      []int
	}{
		{[]int{1, 2, 3}, []int{1, 2, 3}, nil},
		{[]int{1, 2, 3}, []int{1, 3}, []int{2}},
		{[]int{5, 1}, []int{}, []int{1, 5}},
		{[]int{7, 7, 2}, []int{2}, []int{7}},
		{nil, nil, nil},
	}
	for i, tc := range cases {
		got := missingIds(tc.requested, tc.found)
		if len(got) != len(tc.want) {
			t.Fatalf("case %d: missingIds = %v, want %v", i, got, tc.want)
		}
		for j := range got {
			if got[j] != tc.want[j] {
				t.Fatalf("case %d: missingIds = %v, want %v", i, got, tc.want)
			}
		}
	}
}

func TestReplyTextOfPrefersApprovedText(t *testing.T) {
	review := &models.Review{ReplyText: " thanks! ", ReplyDraft: "draft"}
	if got := replyTextOf(review); got != "thanks!" {
		t.Fatalf("replyTextOf = %q, want approved text", got)
	}

	review = &models.Review{ReplyDraft: "we appreciate it"}
	if got := replyTextOf(review); got != "we appreciate it" {
		t.Fatalf("replyTextOf = %q, want draft fallback", got)
	}

	review = &models.Review{ReplyText: "  ", ReplyDraft: " "}
	if got := replyTextOf(review); got != "" {
		t.Fatalf("replyTextOf = %q, want empty for blank reply", got)
	}
}

func TestMapPostToLocalPostStandard(t *testing.T) {
	post := &models.Post{
		ContentType:      models.PostTypeStandard,
		Body:             "Fresh menu this week",
		CallToActionType: "learn_more",
		CallToActionUrl:  "https://example.com/menu",
		MediaJSON:        []byte(`["https://example.com/a.jpg","https://example.com/b.jpg"]`),
	}

	lp, err := mapPostToLocalPost(post)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lp.TopicType != "STANDARD" {
		t.Fatalf("expected STANDARD, got %s", lp.TopicType)
	}
	if lp.Summary != post.Body {
		t.Fatalf("summary not mapped: %q", lp.Summary)
	}
	if lp.CallToAction == nil || lp.CallToAction.ActionType != "LEARN_MORE" {
		t.Fatalf("call to action not mapped: %+v", lp.CallToAction)
	}
	if len(lp.Media) != 2 || lp.Media[0].MediaFormat != "PHOTO" {
		t.Fatalf("media not mapped: %+v", lp.Media)
	}
}

func TestMapPostToLocalPostEvent(t *testing.T) {
	start := time.Date(2026, 9, 10, 18, 30, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)
	post := &models.Post{
		ContentType:  models.PostTypeEvent,
		Body:         "Join our tasting night",
		EventTitle:   "Tasting Night",
		EventStartAt: &start,
		EventEndAt:   &end,
	}

	lp, err := mapPostToLocalPost(post)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lp.TopicType != "EVENT" {
		t.Fatalf("expected EVENT, got %s", lp.TopicType)
	}
	if lp.Event == nil || lp.Event.Title != "Tasting Night" {
		t.Fatalf("event not mapped: %+v", lp.Event)
	}
	if lp.Event.Schedule.StartDate.Day != 10 || lp.Event.Schedule.StartTime.Hours != 18 {
		t.Fatalf("schedule not mapped: %+v", lp.Event.Schedule)
	}
}

func TestMapPostToLocalPostEventRequiresSchedule(t *testing.T) {
	post := &models.Post{
		ContentType: models.PostTypeEvent,
		Body:        "Missing details",
	}
	if _, err := mapPostToLocalPost(post); err == nil {
		t.Fatal("expected error for event without title and start date")
	}
}

func TestMapPostToLocalPostOffer(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	post := &models.Post{
		ContentType:     models.PostTypeOffer,
		Body:            "10% off all week",
		EventTitle:      "September Deal",
		EventStartAt:    &start,
		CouponCode:      "SEPT10",
		RedeemOnlineUrl: "https://example.com/deal",
	}

	lp, err := mapPostToLocalPost(post)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lp.TopicType != "OFFER" {
		t.Fatalf("expected OFFER, got %s", lp.TopicType)
	}
	if lp.Offer == nil || lp.Offer.CouponCode != "SEPT10" {
		t.Fatalf("offer not mapped: %+v", lp.Offer)
	}
}

func TestMapPostToLocalPostRejectsUnknownType(t *testing.T) {
	post := &models.Post{ContentType: models.PostTypeProduct, Body: "x"}
	if _, err := mapPostToLocalPost(post); err == nil {
		t.Fatal("expected error for unpublishable content type")
	}
}

func TestMapPostToLocalPostBadMedia(t *testing.T) {
	post := &models.Post{
		ContentType: models.PostTypeStandard,
		Body:        "x",
		MediaJSON:   []byte(`{"not":"a list"}`),
	}
	if _, err := mapPostToLocalPost(post); err == nil {
		t.Fatal("expected error for malformed media payload")
	}
}
