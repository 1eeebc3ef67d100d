package models

import (
	"time"

	"github.com/google/uuid"
)

// SocialLinks is stored as jsonb on speakers.
type SocialLinks struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
	Website   string `json:"website,omitempty"`
}

// Speaker is a person presenting at an event.
type Speaker struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Designation string      `json:"designation"`
	Topic       string      `json:"topic"`
	Bio         string      `json:"bio"`
	Photo       string      `json:"photo"`    // uploads/ path or absolute URL
	ImageURL    string      `json:"imageUrl"` // legacy field some clients still send
	SocialLinks SocialLinks `json:"socialLinks"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Sponsor is an organization backing an event.
type Sponsor struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Website     string    `json:"website"`
	Description string    `json:"description"`
	Logo        string    `json:"logo"`    // uploads/ path
	LogoURL     string    `json:"logoUrl"` // optional absolute URL
	CreatedAt   time.Time `json:"createdAt"`
}

// Organizer is a member of the organizing team.
type Organizer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	LinkedIn  string    `json:"linkedin"`
	Twitter   string    `json:"twitter"`
	Photo     string    `json:"photo"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"createdAt"`
}

// Coordinator is a faculty coordinator.
type Coordinator struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	Contact    string    `json:"contact"`
	Photo      string    `json:"photo"`
	Bio        string    `json:"bio"`
	CreatedAt  time.Time `json:"createdAt"`
}
