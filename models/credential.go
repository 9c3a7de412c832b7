package models

import "time"

const ProviderGoogleBusinessProfile = "google_business_profile"

// ProviderCredential holds the per-listing OAuth tokens for the directory
// provider. The resolver refreshes AccessToken in place when it expires.
type ProviderCredential struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"index;not null" json:"business_id"`
	ListingId  int    `gorm:"uniqueIndex:idx_credential_listing,priority:1;not null" json:"listing_id"`
	Provider   string `gorm:"uniqueIndex:idx_credential_listing,priority:2;size:50;not null" json:"provider"`

	AccessToken  string     `gorm:"type:text" json:"-"`
	RefreshToken string     `gorm:"type:text" json:"-"`
	TokenExpiry  *time.Time `json:"token_expiry"`
	Scope        string     `gorm:"size:512" json:"scope"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
