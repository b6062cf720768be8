// Package domain provides domain models for the application
package domain

import (
	"encoding/json"
	"time"
)

// Resource identifies one upstream endpoint
type Resource string

const (
	ResourceApod        Resource = "apod"
	ResourceMarsPhotos  Resource = "mars"
	ResourceNeoFeed     Resource = "neo"
	ResourceImageSearch Resource = "search"
)

// Resources lists every supported resource in display order
var Resources = []Resource{ResourceApod, ResourceMarsPhotos, ResourceNeoFeed, ResourceImageSearch}

// ParseResource maps a path or flag value to a Resource
func ParseResource(s string) (Resource, bool) {
	for _, r := range Resources {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// MediaKind is the type of a record's media attachment
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Media describes a record's image or video
type Media struct {
	Kind         MediaKind `json:"kind"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
}

// Field is one labelled display value
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Record is one normalized, display-ready unit derived from a single upstream entity.
// Records are read-only once produced by a decoder.
type Record struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	PrimaryDate string   `json:"primary_date"`
	Fields      []Field  `json:"fields"`
	Media       *Media   `json:"media,omitempty"`
	Detail      string   `json:"detail,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`

	// NEO-specific sort and filter keys
	Hazardous      bool     `json:"hazardous,omitempty"`
	MissDistanceKm *float64 `json:"miss_distance_km,omitempty"`
	Brightness     *float64 `json:"brightness,omitempty"`
}

// Normalized is the output of a decoder
type Normalized struct {
	Records   []Record
	TotalHits int
}

// FetchResult is the outcome of one fetch: either a raw JSON body or a failure
type FetchResult struct {
	Body json.RawMessage
	Err  *Failure
}

// OkResult wraps a successful body
func OkResult(body json.RawMessage) FetchResult {
	return FetchResult{Body: body}
}

// ErrResult wraps a failure
func ErrResult(f *Failure) FetchResult {
	return FetchResult{Err: f}
}

// Ok reports whether the fetch produced a body
func (r FetchResult) Ok() bool {
	return r.Err == nil
}

// PageCursor carries pagination state for paginated resources
type PageCursor struct {
	Page           int  `json:"page"`
	TotalHits      int  `json:"total_hits"`
	EstimatedPages int  `json:"estimated_pages"`
	HasPrev        bool `json:"has_prev"`
	HasNext        bool `json:"has_next"`
}

// ViewState is the page-scoped state of one resource view
type ViewState struct {
	LastQuery   *QueryDescriptor `json:"query,omitempty"`
	LastRecords []Record         `json:"records"`
	IsLoading   bool             `json:"loading"`
	LastError   string           `json:"error,omitempty"`
	FailureKind FailureKind      `json:"failure_kind,omitempty"`
	FailedQuery *QueryDescriptor `json:"failed_query,omitempty"`
	NoResults   bool             `json:"empty"`
	PageCursor  PageCursor       `json:"page"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Load outcomes recorded in history
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// LoadEntry is one recorded load action
type LoadEntry struct {
	ID          int64       `json:"id"`
	Resource    Resource    `json:"resource"`
	Query       string      `json:"query"`
	Outcome     string      `json:"outcome"`
	FailureKind FailureKind `json:"failure_kind,omitempty"`
	Status      int         `json:"status,omitempty"`
	RecordCount int         `json:"record_count"`
	LoadedAt    time.Time   `json:"loaded_at"`
}

// Health represents health check response
type Health struct {
	Status string    `json:"status"`
	Now    time.Time `json:"now"`
}

// Summary is the combined APOD and NEO view
type Summary struct {
	Apod ViewState `json:"apod"`
	Neo  ViewState `json:"neo"`
}

// ApiResponse wraps API responses
type ApiResponse struct {
	Ok    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error *ApiError   `json:"error,omitempty"`
}

// ApiError represents an error response
type ApiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// SuccessResponse creates a successful response
func SuccessResponse(data interface{}) ApiResponse {
	return ApiResponse{Ok: true, Data: data}
}

// ErrorResponse creates an error response
func ErrorResponse(code, message string) ApiResponse {
	return ApiResponse{Ok: false, Error: &ApiError{Code: code, Message: message}}
}

// FailureResponse creates an error response from a classified failure
func FailureResponse(f *Failure) ApiResponse {
	return ApiResponse{Ok: false, Error: &ApiError{Code: f.Code(), Message: f.Message(), Field: f.Field}}
}
