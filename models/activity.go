package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/listings_backend/config"
	"bitbucket.org/mmdatafocus/listings_backend/utils"
)

const (
	ActorTypeUser   = "user"
	ActorTypeSystem = "system"
)

// Activity is the append-only trail every successful sync/publish/audit
// writes one entry to. Writes are best-effort: callers ignore the error so
// a failed log write never fails the primary state transition.
type Activity struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"index;not null" json:"business_id"`

	ActorType   string `gorm:"size:10;not null" json:"actor_type"`
	Action      string `gorm:"size:50;not null" json:"action"`
	Description string `gorm:"type:text;not null" json:"description"`

	ReferenceId   int    `gorm:"index" json:"reference_id"`
	ReferenceType string `gorm:"size:50" json:"reference_type"`
	MetadataJSON  []byte `gorm:"type:json" json:"metadata"`

	UserId   int    `gorm:"index" json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// LogActivity records one trail entry for the business in ctx. ActorType is
// "user" when a user id is present in ctx, "system" otherwise.
func LogActivity(ctx context.Context, action string, description string, referenceId int, referenceType string, metadata any) error {
	db := config.GetDB()
	if db == nil {
		return errors.New("db is nil")
	}

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return errors.New("business id is required")
	}

	activity := Activity{
		BusinessId:    businessId,
		ActorType:     ActorTypeSystem,
		Action:        action,
		Description:   description,
		ReferenceId:   referenceId,
		ReferenceType: referenceType,
	}

	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			activity.MetadataJSON = b
		}
	}

	if userId, ok := utils.GetUserIdFromContext(ctx); ok && userId > 0 {
		activity.ActorType = ActorTypeUser
		activity.UserId = userId
		if userName, ok := utils.GetUserNameFromContext(ctx); ok {
			activity.UserName = userName
		}
	}

	return db.WithContext(ctx).Create(&activity).Error
}

func GetActivities(ctx context.Context, referenceId *int, referenceType *string, limit int) ([]*Activity, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if referenceId != nil && *referenceId > 0 {
		dbCtx = dbCtx.Where("reference_id = ?", *referenceId)
	}
	if referenceType != nil && *referenceType != "" {
		dbCtx = dbCtx.Where("reference_type = ?", *referenceType)
	}

	var results []*Activity
	err := dbCtx.Order("created_at DESC").Limit(limit).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
