package database

import (
	"time"
)

// Location is a user-recorded place with one photo. Image and thumbnail
// payloads are stored base64-encoded in TEXT columns and never serialized to
// API clients.
type Location struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Latitude    float64   `gorm:"not null" json:"latitude"`
	Longitude   float64   `gorm:"not null" json:"longitude"`
	Description string    `gorm:"type:text;not null;default:''" json:"description"`
	ImageType   *string   `gorm:"type:text;check:chk_locations_image_pair,(image_data IS NULL) = (image_type IS NULL)" json:"imageType,omitempty"`
	ImageSize   int64     `gorm:"not null;default:0" json:"imageSize"` // decoded bytes
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`

	ImageData     *string `gorm:"type:text" json:"-"`
	ThumbnailData *string `gorm:"type:text" json:"-"`
}

// NewLocation carries a validated upload into the repository.
type NewLocation struct {
	Title       string
	Latitude    float64
	Longitude   float64
	Description string
	Image       []byte
	ImageType   string
	Thumbnail   []byte // optional
}

// LocationUpdate holds editable metadata. The photo cannot be replaced.
type LocationUpdate struct {
	Title       string
	Latitude    float64
	Longitude   float64
	Description string
}

// ImagePayload is decoded binary image content with its MIME type.
type ImagePayload struct {
	Data     []byte
	MimeType string
}

// metadataColumns excludes the payload columns from listings.
var metadataColumns = []string{"id", "title", "latitude", "longitude", "description", "image_type", "image_size", "created_at"}
