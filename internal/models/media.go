package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaType is the kind of a media asset.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// ParseMediaType returns the type for s, or false for anything other than "image" or "video".
func ParseMediaType(s string) (MediaType, bool) {
	switch MediaType(s) {
	case MediaImage, MediaVideo:
		return MediaType(s), true
	}
	return "", false
}

// Media is a standalone image or video asset. Events reference media by id; media never references events.
type Media struct {
	ID          uuid.UUID  `json:"id"`
	Type        MediaType  `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	URL         string     `json:"url"` // absolute URL, uploads/ relative path, or canonical YouTube watch URL
	CreatedBy   *uuid.UUID `json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
