package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/listings_backend/config"
	"bitbucket.org/mmdatafocus/listings_backend/utils"
	"gorm.io/gorm"
)

// AuditRecord is one scoring run for a listing. Records are immutable:
// a new audit run always creates a new row.
type AuditRecord struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"index;not null" json:"business_id"`
	ListingId  int    `gorm:"index;not null" json:"listing_id"`

	Score      float64 `gorm:"not null" json:"score"`
	MaxScore   float64 `gorm:"not null" json:"max_score"`
	Percentage float64 `gorm:"not null" json:"percentage"`
	Grade      string  `gorm:"size:2;not null" json:"grade"`

	CategoriesJSON      []byte `gorm:"type:json" json:"categories"`
	RecommendationsJSON []byte `gorm:"type:json" json:"recommendations"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func GetAuditRecord(ctx context.Context, id int) (*AuditRecord, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var result AuditRecord
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

func GetAuditRecords(ctx context.Context, listingId int, limit int) ([]*AuditRecord, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var results []*AuditRecord
	err := db.WithContext(ctx).
		Where("business_id = ? AND listing_id = ?", businessId, listingId).
		Order("id desc").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
