package models

// MediaKind enumerates the supported media item kinds
const (
	MediaKindPhoto = "photo"
	MediaKindVideo = "video"
)

// MediaItem represents a single capture record from the media source.
// The capture fields are immutable after ingest; ClusterRef and Hidden form
// the mutable organizational overlay.
type MediaItem struct {
	ID              string   `json:"id" db:"id"`
	Kind            string   `json:"kind" db:"kind"`
	CapturedAt      int64    `json:"capturedAt" db:"captured_at"` // Unix timestamp in milliseconds
	DayKey          string   `json:"dayKey" db:"day_key"`         // Local calendar date, YYYY-MM-DD
	Latitude        *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude       *float64 `json:"longitude,omitempty" db:"longitude"`
	SizeBytes       int64    `json:"sizeBytes" db:"size_bytes"`
	Width           int      `json:"width" db:"width"`
	Height          int      `json:"height" db:"height"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty" db:"duration_seconds"`
	ClusterRef      *string  `json:"clusterRef,omitempty" db:"cluster_ref"`
	Hidden          bool     `json:"hidden" db:"hidden"`
	ModifiedAt      int64    `json:"modifiedAt" db:"modified_at"` // Source-side modification time, ms
}

// Geotagged reports whether the item carries a coordinate
func (m *MediaItem) Geotagged() bool {
	return m.Latitude != nil && m.Longitude != nil
}

// MediaItemsResponse represents a paginated response of media items
type MediaItemsResponse struct {
	Data       []*MediaItem `json:"data"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalPages int          `json:"totalPages"`
}

// DeleteResult reports the outcome of a batched device deletion.
// Failures are retryable by the caller.
type DeleteResult struct {
	DeletedIDs []string `json:"deletedIds"`
	FailedIDs  []string `json:"failedIds"`
}
