package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/listings_backend/config"
	"bitbucket.org/mmdatafocus/listings_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ListingStatusPending      = "pending"
	ListingStatusActive       = "active"
	ListingStatusDisconnected = "disconnected"
)

// Listing is one managed business entry on the directory provider.
// ResourceName stays nil until the listing is linked to a remote location
// ("accounts/{accountId}/locations/{locationId}").
type Listing struct {
	ID           int     `gorm:"primary_key" json:"id"`
	BusinessId   string  `gorm:"index;not null" json:"business_id"`
	ResourceName *string `gorm:"size:255;index" json:"resource_name"`

	Name        string `gorm:"size:255;not null" json:"name"`
	AddressLine string `gorm:"size:255" json:"address_line"`
	Locality    string `gorm:"size:100" json:"locality"`
	Region      string `gorm:"size:100" json:"region"`
	PostalCode  string `gorm:"size:20" json:"postal_code"`
	CountryCode string `gorm:"size:2" json:"country_code"`
	Phone       string `gorm:"size:30" json:"phone"`
	Website     string `gorm:"size:512" json:"website"`
	Description string `gorm:"type:text" json:"description"`

	PrimaryCategory          string `gorm:"size:255" json:"primary_category"`
	AdditionalCategoriesJSON []byte `gorm:"type:json" json:"additional_categories"`
	HoursJSON                []byte `gorm:"type:json" json:"hours"`

	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	Status     string `gorm:"size:20;not null;default:pending" json:"status"`
	IsVerified *bool  `gorm:"default:false" json:"is_verified"`

	AverageRating    decimal.Decimal `gorm:"type:decimal(3,2)" json:"average_rating"`
	TotalReviewCount int             `json:"total_review_count"`

	PhotoCount    int   `json:"photo_count"`
	HasCoverPhoto *bool `gorm:"default:false" json:"has_cover_photo"`

	LocationSyncedAt    *time.Time `json:"location_synced_at"`
	MediaSyncedAt       *time.Time `json:"media_synced_at"`
	ReviewsSyncedAt     *time.Time `json:"reviews_synced_at"`
	PerformanceSyncedAt *time.Time `json:"performance_synced_at"`
	KeywordsSyncedAt    *time.Time `json:"keywords_synced_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetListing(ctx context.Context, id int) (*Listing, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var result Listing
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

func GetListings(ctx context.Context) ([]*Listing, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var results []*Listing
	err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
