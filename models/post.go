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
	PostTypeStandard = "standard"
	PostTypeEvent    = "event"
	PostTypeOffer    = "offer"
	PostTypeProduct  = "product"
	PostTypeAlert    = "alert"
)

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

// Post is one piece of outbound content for a listing. The type-specific
// fields (event schedule, offer coupon) are only read for their content type.
type Post struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"index;not null" json:"business_id"`
	ListingId  int    `gorm:"index;not null" json:"listing_id"`

	ContentType string `gorm:"size:20;not null;default:standard" json:"content_type"`
	Title       string `gorm:"size:255" json:"title"`
	Body        string `gorm:"type:text;not null" json:"body"`

	CallToActionType string `gorm:"size:30" json:"call_to_action_type"`
	CallToActionUrl  string `gorm:"size:512" json:"call_to_action_url"`
	MediaJSON        []byte `gorm:"type:json" json:"media"`

	EventTitle   string     `gorm:"size:255" json:"event_title"`
	EventStartAt *time.Time `json:"event_start_at"`
	EventEndAt   *time.Time `json:"event_end_at"`

	CouponCode      string `gorm:"size:64" json:"coupon_code"`
	RedeemOnlineUrl string `gorm:"size:512" json:"redeem_online_url"`
	TermsConditions string `gorm:"type:text" json:"terms_conditions"`

	Status         string     `gorm:"size:20;not null;default:draft" json:"status"`
	ScheduledAt    *time.Time `json:"scheduled_at"`
	ExternalPostId string     `gorm:"size:255" json:"external_post_id"`
	PublishedAt    *time.Time `json:"published_at"`
	LastError      string     `gorm:"type:text" json:"last_error"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetPost(ctx context.Context, id int) (*Post, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var result Post
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
