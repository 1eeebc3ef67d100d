package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a public event page. The five reference sets hold ids only; Media is changed
// exclusively through atomic add/remove, never by a bulk update.
type Event struct {
	ID             uuid.UUID   `json:"id"`
	Name           string      `json:"name"`
	Slug           string      `json:"slug"`
	Description    string      `json:"description"`
	Date           *time.Time  `json:"date,omitempty"`
	Location       string      `json:"location"`
	IsUpcoming     bool        `json:"isUpcoming"`
	BannerURL      string      `json:"bannerUrl"`
	Price          float64     `json:"price"`
	Currency       string      `json:"currency"`
	SpeakerIDs     []uuid.UUID `json:"speakers"`
	SponsorIDs     []uuid.UUID `json:"sponsors"`
	OrganizerIDs   []uuid.UUID `json:"organizers"`
	CoordinatorIDs []uuid.UUID `json:"coordinators"`
	MediaIDs       []uuid.UUID `json:"media"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// HasMedia reports whether id is in the event's media set.
func (e *Event) HasMedia(id uuid.UUID) bool {
	for _, m := range e.MediaIDs {
		if m == id {
			return true
		}
	}
	return false
}

// EventWithMedia is an event whose media set is expanded to full records.
// The outer Media field shadows Event.MediaIDs in JSON.
type EventWithMedia struct {
	Event
	Media []Media `json:"media"`
}

// EventDetail is an event with every reference set expanded.
type EventDetail struct {
	Event
	Speakers     []Speaker     `json:"speakers"`
	Sponsors     []Sponsor     `json:"sponsors"`
	Organizers   []Organizer   `json:"organizers"`
	Coordinators []Coordinator `json:"coordinators"`
	Media        []Media       `json:"media"`
}
