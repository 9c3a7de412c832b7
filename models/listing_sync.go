package models

import "time"

const (
	SyncRunStatusQueued  = "queued"
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusFailed  = "failed"
	SyncRunStatusPartial = "partial"
)

const (
	SyncTriggeredManual = "manual"
	SyncTriggeredRetry  = "retry"
	SyncTriggeredSystem = "system"
)

type ListingSyncRun struct {
	ID         uint   `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"index;not null" json:"business_id"`
	ListingId  int    `gorm:"index;not null" json:"listing_id"`

	Status      string `gorm:"size:20;not null" json:"status"`
	TriggeredBy string `gorm:"size:20" json:"triggered_by"`
	ModulesJSON []byte `gorm:"type:json" json:"modules"`
	StatsJSON   []byte `gorm:"type:json" json:"stats"`

	RecordsSynced int        `json:"records_synced"`
	ErrorCount    int        `json:"error_count"`
	ParentRunId   *uint      `gorm:"index" json:"parent_run_id"`
	CorrelationId string     `gorm:"size:64" json:"correlation_id"`
	StartedAt     *time.Time `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	DurationMs    int64      `json:"duration_ms"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type ListingSyncError struct {
	ID         uint   `gorm:"primary_key" json:"id"`
	SyncRunId  uint   `gorm:"index;not null" json:"sync_run_id"`
	BusinessId string `gorm:"index;not null" json:"business_id"`
	ListingId  int    `gorm:"index" json:"listing_id"`

	EntityType  string `gorm:"size:50" json:"entity_type"`
	ExternalId  string `gorm:"size:191" json:"external_id"`
	ErrorCode   string `gorm:"size:64" json:"error_code"`
	Message     string `gorm:"type:text" json:"message"`
	PayloadJSON []byte `gorm:"type:json" json:"payload"`
	Retryable   bool   `gorm:"default:false" json:"retryable"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
