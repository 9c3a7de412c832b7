package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/listings_backend/config"
	"bitbucket.org/mmdatafocus/listings_backend/utils"
	"gorm.io/gorm"
)

const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

const (
	ResponseStatusPending    = "pending"
	ResponseStatusDraftReady = "draft_ready"
	ResponseStatusApproved   = "approved"
	ResponseStatusPublished  = "published"
	ResponseStatusFailed     = "failed"
)

// Review is one customer review pulled from the provider. Exactly one row
// exists per (listing_id, external_review_id); sync upserts by that key.
type Review struct {
	ID               int    `gorm:"primary_key" json:"id"`
	BusinessId       string `gorm:"index;not null" json:"business_id"`
	ListingId        int    `gorm:"uniqueIndex:idx_review_natural,priority:1;not null" json:"listing_id"`
	ExternalReviewId string `gorm:"uniqueIndex:idx_review_natural,priority:2;size:191;not null" json:"external_review_id"`

	ReviewerName     string `gorm:"size:255" json:"reviewer_name"`
	ReviewerPhotoUrl string `gorm:"size:512" json:"reviewer_photo_url"`
	StarRating       int    `gorm:"not null" json:"star_rating"`
	Comment          string `gorm:"type:text" json:"comment"`
	Sentiment        string `gorm:"size:10;not null" json:"sentiment"`

	ReplyDraft     string     `gorm:"type:text" json:"reply_draft"`
	ReplyText      string     `gorm:"type:text" json:"reply_text"`
	ResponseStatus string     `gorm:"size:20;not null;default:pending" json:"response_status"`
	RepliedAt      *time.Time `json:"replied_at"`
	LastError      string     `gorm:"type:text" json:"last_error"`

	ExternalCreatedAt *time.Time `json:"external_created_at"`
	ExternalUpdatedAt *time.Time `json:"external_updated_at"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetReview(ctx context.Context, id int) (*Review, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var result Review
	err := db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessId).
		Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

func GetReviewsByListing(ctx context.Context, listingId int) ([]*Review, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var results []*Review
	err := db.WithContext(ctx).
		Where("business_id = ? AND listing_id = ?", businessId, listingId).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
