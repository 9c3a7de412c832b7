package gbp

import (
	"fmt"
	"time"
)

// Wire types for the provider's v4 business-information API and the v1
// performance API. Optional fields are pointers or zero values; a malformed
// payload fails fast at decode time instead of propagating empty structs.

type Location struct {
	Name              string            `json:"name"`
	Title             string            `json:"title"`
	StorefrontAddress *PostalAddress    `json:"storefrontAddress"`
	PhoneNumbers      *PhoneNumbers     `json:"phoneNumbers"`
	WebsiteUri        string            `json:"websiteUri"`
	Profile           *LocationProfile  `json:"profile"`
	Categories        *Categories       `json:"categories"`
	Latlng            *LatLng           `json:"latlng"`
	RegularHours      *BusinessHours    `json:"regularHours"`
	OpenInfo          *OpenInfo         `json:"openInfo"`
	Metadata          *LocationMetadata `json:"metadata"`
}

type PostalAddress struct {
	AddressLines       []string `json:"addressLines"`
	Locality           string   `json:"locality"`
	AdministrativeArea string   `json:"administrativeArea"`
	PostalCode         string   `json:"postalCode"`
	RegionCode         string   `json:"regionCode"`
}

type PhoneNumbers struct {
	PrimaryPhone string `json:"primaryPhone"`
}

type LocationProfile struct {
	Description string `json:"description"`
}

type Categories struct {
	PrimaryCategory      *Category  `json:"primaryCategory"`
	AdditionalCategories []Category `json:"additionalCategories"`
}

type Category struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type BusinessHours struct {
	Periods []TimePeriod `json:"periods"`
}

type TimePeriod struct {
	OpenDay   string `json:"openDay"`
	OpenTime  string `json:"openTime"`
	CloseDay  string `json:"closeDay"`
	CloseTime string `json:"closeTime"`
}

type OpenInfo struct {
	Status string `json:"status"`
}

type LocationMetadata struct {
	HasVoiceOfMerchant bool `json:"hasVoiceOfMerchant"`
}

type Review struct {
	ReviewId   string       `json:"reviewId"`
	Name       string       `json:"name"`
	Reviewer   *Reviewer    `json:"reviewer"`
	StarRating string       `json:"starRating"`
	Comment    string       `json:"comment"`
	CreateTime string       `json:"createTime"`
	UpdateTime string       `json:"updateTime"`
	ReviewRepl *ReviewReply `json:"reviewReply"`
}

type Reviewer struct {
	DisplayName     string `json:"displayName"`
	ProfilePhotoUrl string `json:"profilePhotoUrl"`
}

type ReviewReply struct {
	Comment    string `json:"comment"`
	UpdateTime string `json:"updateTime"`
}

type listReviewsResponse struct {
	Reviews          []Review `json:"reviews"`
	AverageRating    float64  `json:"averageRating"`
	TotalReviewCount int      `json:"totalReviewCount"`
	NextPageToken    string   `json:"nextPageToken"`
}

// ReviewsResult is the fully paginated review listing plus the aggregate
// figures the provider reports alongside the first page.
type ReviewsResult struct {
	Reviews          []Review
	AverageRating    float64
	TotalReviewCount int
}

type LocalPost struct {
	Name         string        `json:"name,omitempty"`
	LanguageCode string        `json:"languageCode,omitempty"`
	Summary      string        `json:"summary,omitempty"`
	TopicType    string        `json:"topicType,omitempty"`
	CallToAction *CallToAction `json:"callToAction,omitempty"`
	Media        []PostMedia   `json:"media,omitempty"`
	Event        *PostEvent    `json:"event,omitempty"`
	Offer        *PostOffer    `json:"offer,omitempty"`
	CreateTime   string        `json:"createTime,omitempty"`
	State        string        `json:"state,omitempty"`
}

type CallToAction struct {
	ActionType string `json:"actionType,omitempty"`
	Url        string `json:"url,omitempty"`
}

type PostMedia struct {
	MediaFormat string `json:"mediaFormat,omitempty"`
	SourceUrl   string `json:"sourceUrl,omitempty"`
}

type PostEvent struct {
	Title    string         `json:"title,omitempty"`
	Schedule *EventSchedule `json:"schedule,omitempty"`
}

type EventSchedule struct {
	StartDate *Date      `json:"startDate,omitempty"`
	StartTime *TimeOfDay `json:"startTime,omitempty"`
	EndDate   *Date      `json:"endDate,omitempty"`
	EndTime   *TimeOfDay `json:"endTime,omitempty"`
}

type PostOffer struct {
	CouponCode      string `json:"couponCode,omitempty"`
	RedeemOnlineUrl string `json:"redeemOnlineUrl,omitempty"`
	TermsConditions string `json:"termsConditions,omitempty"`
}

type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

func DateOf(t time.Time) *Date {
	return &Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

type TimeOfDay struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

type listLocalPostsResponse struct {
	LocalPosts    []LocalPost `json:"localPosts"`
	NextPageToken string      `json:"nextPageToken"`
}

type MediaItem struct {
	Name                string               `json:"name"`
	MediaFormat         string               `json:"mediaFormat"`
	LocationAssociation *LocationAssociation `json:"locationAssociation"`
	GoogleUrl           string               `json:"googleUrl"`
	CreateTime          string               `json:"createTime"`
}

type LocationAssociation struct {
	Category string `json:"category"`
}

type listMediaResponse struct {
	MediaItems    []MediaItem `json:"mediaItems"`
	NextPageToken string      `json:"nextPageToken"`
}

// DailyMetricSeries is one named time series from the performance API.
type DailyMetricSeries struct {
	DailyMetric string      `json:"dailyMetric"`
	TimeSeries  *TimeSeries `json:"timeSeries"`
}

type TimeSeries struct {
	DatedValues []DatedValue `json:"datedValues"`
}

type DatedValue struct {
	Date  *Date  `json:"date"`
	Value string `json:"value"`
}

type fetchDailyMetricsResponse struct {
	MultiDailyMetricTimeSeries []struct {
		DailyMetricTimeSeries []DailyMetricSeries `json:"dailyMetricTimeSeries"`
	} `json:"multiDailyMetricTimeSeries"`
}

type SearchKeywordCount struct {
	SearchKeyword string         `json:"searchKeyword"`
	InsightsValue *InsightsValue `json:"insightsValue"`
}

type InsightsValue struct {
	Value     string `json:"value"`
	Threshold string `json:"threshold"`
}

type listSearchKeywordsResponse struct {
	SearchKeywordsCounts []SearchKeywordCount `json:"searchKeywordsCounts"`
	NextPageToken        string               `json:"nextPageToken"`
}
