package models

import "time"

// PerformanceSample is one (listing, day) aggregate of provider-reported
// metrics. Values are overwritten on re-sync, never summed across syncs.
type PerformanceSample struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	ListingId  int       `gorm:"uniqueIndex:idx_performance_natural,priority:1;not null" json:"listing_id"`
	Date       time.Time `gorm:"uniqueIndex:idx_performance_natural,priority:2;type:date;not null" json:"date"`

	ImpressionsDesktopMaps   int `json:"impressions_desktop_maps"`
	ImpressionsDesktopSearch int `json:"impressions_desktop_search"`
	ImpressionsMobileMaps    int `json:"impressions_mobile_maps"`
	ImpressionsMobileSearch  int `json:"impressions_mobile_search"`
	WebsiteClicks            int `json:"website_clicks"`
	CallClicks               int `json:"call_clicks"`
	DirectionRequests        int `json:"direction_requests"`
	Bookings                 int `json:"bookings"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SearchKeyword is one (listing, keyword, sync period) impression count.
// SyncPeriod is derived from the requested month range so that re-running
// for a different window never collides with prior periods.
type SearchKeyword struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"index;not null" json:"business_id"`
	ListingId  int    `gorm:"uniqueIndex:idx_keyword_natural,priority:1;not null" json:"listing_id"`
	Keyword    string `gorm:"uniqueIndex:idx_keyword_natural,priority:2;size:191;not null" json:"keyword"`
	SyncPeriod string `gorm:"uniqueIndex:idx_keyword_natural,priority:3;size:32;not null" json:"sync_period"`

	Impressions int `json:"impressions"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
