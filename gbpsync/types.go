package gbpsync

import "encoding/json"

// SyncModules selects which entity families a sync run reconciles.
type SyncModules struct {
	Location    bool `json:"location"`
	Media       bool `json:"media"`
	Reviews     bool `json:"reviews"`
	Performance bool `json:"performance"`
	Keywords    bool `json:"keywords"`
}

func DefaultModules() SyncModules {
	return SyncModules{
		Location:    true,
		Media:       true,
		Reviews:     true,
		Performance: true,
		Keywords:    true,
	}
}

func DecodeModules(raw []byte) SyncModules {
	if len(raw) == 0 {
		return DefaultModules()
	}
	var mod SyncModules
	if err := json.Unmarshal(raw, &mod); err != nil {
		return DefaultModules()
	}
	return mod
}

func EncodeModules(mod SyncModules) []byte {
	b, _ := json.Marshal(mod)
	return b
}

func isEmptyModules(mod SyncModules) bool {
	return !mod.Location && !mod.Media && !mod.Reviews && !mod.Performance && !mod.Keywords
}

type TriggerSyncRequest struct {
	Modules SyncModules `json:"modules"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreatePostRequest struct {
	ContentType      string   `json:"contentType" binding:"omitempty,oneof=standard event offer product alert"`
	Title            string   `json:"title"`
	Body             string   `json:"body" binding:"required"`
	CallToActionType string   `json:"callToActionType" binding:"omitempty,ctatype"`
	CallToActionUrl  string   `json:"callToActionUrl" binding:"omitempty,url"`
	Media            []string `json:"media"`

	EventTitle   string `json:"eventTitle"`
	EventStartAt string `json:"eventStartAt"`
	EventEndAt   string `json:"eventEndAt"`

	CouponCode      string `json:"couponCode"`
	RedeemOnlineUrl string `json:"redeemOnlineUrl" binding:"omitempty,url"`
	TermsConditions string `json:"termsConditions"`

	ScheduledAt string `json:"scheduledAt"`
}

type ReviewReplyDraftRequest struct {
	Draft string `json:"draft" binding:"required"`
}

type BulkPublishRequest struct {
	PostIds []int `json:"postIds" binding:"required,min=1,dive,gt=0"`
}

type SyncStatusResponse struct {
	ListingId           int              `json:"listingId"`
	Status              string           `json:"status"`
	LocationSyncedAt    *string          `json:"locationSyncedAt"`
	MediaSyncedAt       *string          `json:"mediaSyncedAt"`
	ReviewsSyncedAt     *string          `json:"reviewsSyncedAt"`
	PerformanceSyncedAt *string          `json:"performanceSyncedAt"`
	KeywordsSyncedAt    *string          `json:"keywordsSyncedAt"`
	LastRun             *SyncRunResponse `json:"lastRun"`
}

type SyncHistoryResponse struct {
	Items []SyncRunResponse `json:"items"`
}

type SyncRunResponse struct {
	ID            uint    `json:"id"`
	ListingId     int     `json:"listingId"`
	Status        string  `json:"status"`
	StartedAt     *string `json:"startedAt"`
	FinishedAt    *string `json:"finishedAt"`
	DurationMs    int64   `json:"durationMs"`
	RecordsSynced int     `json:"recordsSynced"`
	ErrorCount    int     `json:"errorCount"`
	TriggeredBy   string  `json:"triggeredBy"`
}

type SyncRunDetailResponse struct {
	SyncRunResponse
	Stats  json.RawMessage     `json:"stats"`
	Errors []SyncErrorResponse `json:"errors"`
}

type SyncErrorResponse struct {
	ID         uint   `json:"id"`
	EntityType string `json:"entityType"`
	ExternalId string `json:"externalId"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

type BulkPublishResponse struct {
	Results []BulkItemResult `json:"results"`
	Summary BulkSummary      `json:"summary"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type SyncPubSubPayload struct {
	RunId      uint   `json:"run_id"`
	BusinessId string `json:"business_id"`
	ListingId  int    `json:"listing_id"`
}
