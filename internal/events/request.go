package events

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
)

// EventRequest is the JSON or multipart body for admin event create and update.
// A multipart "banner" file overrides bannerUrl.
type EventRequest struct {
	Name        *string  `json:"name" form:"name"`
	Slug        *string  `json:"slug" form:"slug"`
	Description *string  `json:"description" form:"description"`
	Date        *string  `json:"date" form:"date"`
	Location    *string  `json:"location" form:"location"`
	IsUpcoming  *bool    `json:"isUpcoming" form:"isUpcoming"`
	BannerURL   *string  `json:"bannerUrl" form:"bannerUrl"`
	Price       *float64 `json:"price" form:"price" binding:"omitempty,gte=0"`
	Currency    *string  `json:"currency" form:"currency" binding:"omitempty,len=3,alpha"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// Fields validates the request into column updates.
func (r EventRequest) Fields() (Fields, error) {
	f := Fields{
		Description: trim(r.Description),
		Location:    trim(r.Location),
		IsUpcoming:  r.IsUpcoming,
		BannerURL:   trim(r.BannerURL),
		Price:       r.Price,
	}
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" {
			return Fields{}, apperr.Invalid("Name is required")
		}
		f.Name = &name
	}
	if r.Slug != nil {
		slug := Slugify(*r.Slug)
		if slug == "" {
			return Fields{}, apperr.Invalid("Invalid slug")
		}
		f.Slug = &slug
	}
	if r.Currency != nil {
		c := strings.ToUpper(strings.TrimSpace(*r.Currency))
		f.Currency = &c
	}
	if r.Date != nil && strings.TrimSpace(*r.Date) != "" {
		d, err := parseDate(*r.Date)
		if err != nil {
			return Fields{}, err
		}
		f.Date = &d
	}
	return f, nil
}

// NewEvent builds an event for creation. The slug defaults to one derived from the name.
func (r EventRequest) NewEvent() (*models.Event, error) {
	if r.Name == nil {
		return nil, apperr.Invalid("Name is required")
	}
	f, err := r.Fields()
	if err != nil {
		return nil, err
	}
	e := &models.Event{Name: *f.Name, IsUpcoming: true, Currency: "INR"}
	if f.Slug != nil {
		e.Slug = *f.Slug
	} else if e.Slug = Slugify(e.Name); e.Slug == "" {
		return nil, apperr.Invalid("Invalid slug")
	}
	if f.Description != nil {
		e.Description = *f.Description
	}
	e.Date = f.Date
	if f.Location != nil {
		e.Location = *f.Location
	}
	if f.IsUpcoming != nil {
		e.IsUpcoming = *f.IsUpcoming
	}
	if f.BannerURL != nil {
		e.BannerURL = *f.BannerURL
	}
	if f.Price != nil {
		e.Price = *f.Price
	}
	if f.Currency != nil {
		e.Currency = *f.Currency
	}
	return e, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Invalid("Invalid date")
}

// MapRequest is the body of POST /admin/map/:eventId.
type MapRequest struct {
	Speakers     []string `json:"speakers"`
	Sponsors     []string `json:"sponsors"`
	Organizers   []string `json:"organizers"`
	Coordinators []string `json:"coordinators"`
}

// References parses and de-duplicates the id lists, keeping first occurrences in order.
func (r MapRequest) References() (References, error) {
	var refs References
	var err error
	if refs.Speakers, err = parseIDs(r.Speakers); err != nil {
		return References{}, err
	}
	if refs.Sponsors, err = parseIDs(r.Sponsors); err != nil {
		return References{}, err
	}
	if refs.Organizers, err = parseIDs(r.Organizers); err != nil {
		return References{}, err
	}
	if refs.Coordinators, err = parseIDs(r.Coordinators); err != nil {
		return References{}, err
	}
	return refs, nil
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]struct{}, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, apperr.Invalid("Invalid id(s)")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-"), "-")
}

func trim(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
