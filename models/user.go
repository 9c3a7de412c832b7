package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/listings_backend/config"
	"gorm.io/gorm"
)

const (
	UserRoleAdmin = "admin"
	UserRoleStaff = "staff"
)

type User struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"index;not null" json:"business_id"`
	Username   string `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password   string `gorm:"size:100;not null" json:"-"`
	Name       string `gorm:"size:100" json:"name"`
	Role       string `gorm:"size:20;not null;default:staff" json:"role"`
	IsActive   *bool  `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetUserByUsername(ctx context.Context, username string) (*User, error) {
	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}

	var user User
	err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	return &user, nil
}
