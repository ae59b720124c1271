package repository

import "time"

// Entry is a journal record pairing metadata with an audio blob path.
type Entry struct {
	ID         int64     `json:"id"`
	Title      *string   `json:"title,omitempty"`
	AudioPath  string    `json:"audioPath"`
	Duration   *float64  `json:"duration,omitempty"` // seconds
	Transcript *string   `json:"transcript,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`

	// Tags is populated only when requested (GetEntry with includeTags).
	Tags []Tag `json:"tags,omitempty"`
}

// Tag is a named label. Names are unique.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NewEntry holds the fields for CreateEntry. AudioPath is required.
type NewEntry struct {
	Title      *string
	AudioPath  string
	Duration   *float64
	Transcript *string
}

// EntryUpdate holds the mutable fields of an entry. Both are written as
// given; nil clears the column.
type EntryUpdate struct {
	Title      *string
	Transcript *string
}

// UpdateResult reports the outcome of UpdateEntry.
type UpdateResult struct {
	ID      int64 `json:"id"`
	Changed int64 `json:"changes"`
}

// DeleteResult reports the outcome of DeleteEntry.
type DeleteResult struct {
	Changed int64 `json:"changes"`
}

// Sort fields accepted by GetAllEntries.
const (
	SortCreatedAt  = "createdAt"
	SortModifiedAt = "modifiedAt"
	SortTitle      = "title"
	SortDuration   = "duration"
)

// Sort orders accepted by GetAllEntries.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListOptions controls GetAllEntries. The zero value lists every entry,
// newest first.
type ListOptions struct {
	// SortBy is one of the Sort* constants. Anything else falls back to
	// SortCreatedAt.
	SortBy string

	// Order is "asc" or "desc" (case-insensitive). Anything else means desc.
	Order string

	// Limit caps the result size when positive.
	Limit int
}

// Ptr returns a pointer to v. Convenient for optional fields.
func Ptr[T any](v T) *T {
	return &v
}
