package gbpsync

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/listings_backend/config"
	"bitbucket.org/mmdatafocus/listings_backend/gbp"
	"bitbucket.org/mmdatafocus/listings_backend/models"
	"bitbucket.org/mmdatafocus/listings_backend/utils"
	"gorm.io/gorm"
)

func requireIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "true" {
		t.Skip("set INTEGRATION_TESTS=true to run database tests")
	}
	config.ConnectDatabaseWithRetry()
	models.MigrateTable()
	return config.GetDB()
}

// Re-applying the same remote review state twice must leave exactly one row
// per (listing, external review id).
func TestReviewUpsertIdempotent(t *testing.T) {
	db := requireIntegrationDB(t)
	ctx := context.Background()

	listing := models.Listing{BusinessId: "it-biz", Name: "Upsert Test Cafe", Status: models.ListingStatusActive}
	if err := db.WithContext(ctx).Create(&listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	t.Cleanup(func() {
		db.Where("listing_id = ?", listing.ID).Delete(&models.Review{})
		db.Delete(&listing)
	})

	remote := gbp.Review{
		ReviewId:   "it-review-1",
		StarRating: "FOUR",
		Comment:    "good",
		UpdateTime: "2026-08-01T10:00:00Z",
	}

	row := newReviewRow(listing.BusinessId, listing.ID, remote)
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		t.Fatalf("first sync insert: %v", err)
	}

	// Second sync over unchanged remote state: update in place, no new row.
	var existing models.Review
	if err := db.WithContext(ctx).
		Where("listing_id = ? AND external_review_id = ?", listing.ID, remote.ReviewId).
		Take(&existing).Error; err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if err := db.WithContext(ctx).Model(&models.Review{}).
		Where("id = ?", existing.ID).
		Updates(reviewUpdates(remote)).Error; err != nil {
		t.Fatalf("second sync update: %v", err)
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Review{}).
		Where("listing_id = ? AND external_review_id = ?", listing.ID, remote.ReviewId).
		Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 row after re-sync, got %d", count)
	}
}

// A batch containing one unknown id is rejected as a whole: the error names
// the missing id and the known post is never touched.
func TestBulkPublishUnknownIdRejectsWholeBatch(t *testing.T) {
	db := requireIntegrationDB(t)
	ctx := utils.SetBusinessIdInContext(context.Background(), "it-biz")

	listing := models.Listing{BusinessId: "it-biz", Name: "Bulk Test Cafe", Status: models.ListingStatusActive}
	if err := db.WithContext(ctx).Create(&listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	post := models.Post{BusinessId: "it-biz", ListingId: listing.ID, ContentType: models.PostTypeStandard, Body: "draft body", Status: models.PostStatusDraft}
	if err := db.WithContext(ctx).Create(&post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	t.Cleanup(func() {
		db.Delete(&post)
		db.Delete(&listing)
	})

	unknown := post.ID + 1000000
	e := NewEngine(nil)
	resp, err := e.BulkPublishPosts(ctx, BulkPublishRequest{PostIds: []int{post.ID, unknown}})
	if err == nil {
		t.Fatalf("expected rejection, got %+v", resp)
	}
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if !strings.Contains(err.Error(), strconv.Itoa(unknown)) {
		t.Fatalf("error should name the missing id %d: %v", unknown, err)
	}

	var reloaded models.Post
	if err := db.WithContext(ctx).Where("id = ?", post.ID).Take(&reloaded).Error; err != nil {
		t.Fatalf("reload post: %v", err)
	}
	if reloaded.Status != models.PostStatusDraft || reloaded.ExternalPostId != "" {
		t.Fatalf("known post must be untouched after rejection: %+v", reloaded)
	}
}

// A reply publish that fails before reaching the provider still writes the
// failure to the review row before the error propagates.
func TestPublishReviewReplyWritesFailureBeforePropagating(t *testing.T) {
	db := requireIntegrationDB(t)
	ctx := utils.SetBusinessIdInContext(context.Background(), "it-biz")

	// No resource name linked, so the publish fails locally.
	listing := models.Listing{BusinessId: "it-biz", Name: "Reply Test Cafe", Status: models.ListingStatusPending}
	if err := db.WithContext(ctx).Create(&listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	review := models.Review{
		BusinessId:       "it-biz",
		ListingId:        listing.ID,
		ExternalReviewId: "it-review-reply",
		StarRating:       4,
		Sentiment:        models.SentimentPositive,
		ReplyDraft:       "thank you for visiting",
		ResponseStatus:   models.ResponseStatusApproved,
	}
	if err := db.WithContext(ctx).Create(&review).Error; err != nil {
		t.Fatalf("create review: %v", err)
	}
	t.Cleanup(func() {
		db.Delete(&review)
		db.Delete(&listing)
	})

	e := NewEngine(nil)
	if _, err := e.PublishReviewReply(ctx, review.ID); err == nil {
		t.Fatal("expected error for listing without resource name")
	}

	var reloaded models.Review
	if err := db.WithContext(ctx).Where("id = ?", review.ID).Take(&reloaded).Error; err != nil {
		t.Fatalf("reload review: %v", err)
	}
	if reloaded.ResponseStatus != models.ResponseStatusFailed {
		t.Fatalf("expected failed response status, got %s", reloaded.ResponseStatus)
	}
	if reloaded.LastError == "" {
		t.Fatal("expected last_error to carry the failure text")
	}
}

// An audit over a listing with no published posts succeeds and persists a
// record; the empty post history scores zero rather than erroring.
func TestRunAuditPersistsRecord(t *testing.T) {
	db := requireIntegrationDB(t)
	ctx := utils.SetBusinessIdInContext(context.Background(), "it-biz")

	listing := models.Listing{BusinessId: "it-biz", Name: "Audit Test Cafe", Status: models.ListingStatusActive}
	if err := db.WithContext(ctx).Create(&listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	t.Cleanup(func() {
		db.Where("listing_id = ?", listing.ID).Delete(&models.AuditRecord{})
		db.Delete(&listing)
	})

	e := NewEngine(nil)
	record, result, err := e.RunAudit(ctx, listing.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ID == 0 || record.Grade == "" {
		t.Fatalf("record not persisted: %+v", record)
	}
	if result.MaxScore <= 0 || result.Score > result.MaxScore {
		t.Fatalf("implausible result: %+v", result)
	}
}

// The unique index on the natural key must reject a duplicate insert even if
// the lookup path is bypassed.
func TestReviewNaturalKeyUnique(t *testing.T) {
	db := requireIntegrationDB(t)
	ctx := context.Background()

	listing := models.Listing{BusinessId: "it-biz", Name: "Unique Test Cafe", Status: models.ListingStatusActive}
	if err := db.WithContext(ctx).Create(&listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	t.Cleanup(func() {
		db.Where("listing_id = ?", listing.ID).Delete(&models.Review{})
		db.Delete(&listing)
	})

	remote := gbp.Review{ReviewId: "it-review-dup", StarRating: "FIVE"}
	first := newReviewRow(listing.BusinessId, listing.ID, remote)
	if err := db.WithContext(ctx).Create(&first).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	second := newReviewRow(listing.BusinessId, listing.ID, remote)
	if err := db.WithContext(ctx).Create(&second).Error; err == nil {
		t.Fatal("expected unique violation for duplicate natural key")
	}
}
