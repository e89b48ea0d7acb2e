package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaFile is the catalog record an analysis job is attached to.
// Upload and CRUD of media live outside this service; jobs only need the
// owner, the object-storage URL, and the media type.
type MediaFile struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	UserID     uuid.UUID `db:"user_id"     json:"user_id"`
	Title      string    `db:"title"       json:"title"`
	MediaType  string    `db:"media_type"  json:"media_type"`
	ContentURL string    `db:"content_url" json:"content_url"`
	FileSize   int64     `db:"file_size"   json:"file_size"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"  json:"updated_at"`
}
