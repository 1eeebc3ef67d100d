package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
)

// memEvents is an in-memory Store. Each mutation runs under one lock, matching the
// single-row atomic UPDATE of the real repository.
type memEvents struct {
	mu     sync.Mutex
	events map[uuid.UUID]*models.Event
	// removeNoop makes RemoveMedia report success without changing the set.
	removeNoop bool
	err        error
}

func newMemEvents() *memEvents {
	return &memEvents{events: map[uuid.UUID]*models.Event{}}
}

func (s *memEvents) put(e models.Event) models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.MediaIDs == nil {
		e.MediaIDs = []uuid.UUID{}
	}
	e.CreatedAt = time.Now()
	s.events[e.ID] = &e
	return e
}

func (s *memEvents) copyOf(e *models.Event) *models.Event {
	cp := *e
	cp.MediaIDs = append([]uuid.UUID{}, e.MediaIDs...)
	return &cp
}

func (s *memEvents) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	e, ok := s.events[id]
	if !ok {
		return nil, apperr.ErrNoRows
	}
	return s.copyOf(e), nil
}

func (s *memEvents) AddMedia(_ context.Context, eventID, mediaID uuid.UUID) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, apperr.ErrNoRows
	}
	if !e.HasMedia(mediaID) {
		e.MediaIDs = append(e.MediaIDs, mediaID)
	}
	return s.copyOf(e), nil
}

func (s *memEvents) RemoveMedia(_ context.Context, eventID, mediaID uuid.UUID) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, apperr.ErrNoRows
	}
	if !s.removeNoop {
		kept := e.MediaIDs[:0]
		for _, id := range e.MediaIDs {
			if id != mediaID {
				kept = append(kept, id)
			}
		}
		e.MediaIDs = kept
	}
	return s.copyOf(e), nil
}

func (s *memEvents) Create(_ context.Context, e *models.Event) (*models.Event, error) {
	s.mu.Lock()
	for _, existing := range s.events {
		if existing.Slug == e.Slug {
			s.mu.Unlock()
			return nil, apperr.Conflict("Slug already exists")
		}
	}
	s.mu.Unlock()
	created := s.put(*e)
	return &created, nil
}

func (s *memEvents) Update(_ context.Context, id uuid.UUID, f Fields) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, apperr.ErrNoRows
	}
	if f.Name != nil {
		e.Name = *f.Name
	}
	if f.Slug != nil {
		e.Slug = *f.Slug
	}
	if f.Description != nil {
		e.Description = *f.Description
	}
	if f.Date != nil {
		e.Date = f.Date
	}
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
	return s.copyOf(e), nil
}

func (s *memEvents) Delete(_ context.Context, id uuid.UUID) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, apperr.ErrNoRows
	}
	delete(s.events, id)
	return e, nil
}

func (s *memEvents) GetBySlug(_ context.Context, slug string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Slug == slug {
			return s.copyOf(e), nil
		}
	}
	return nil, apperr.ErrNoRows
}

func (s *memEvents) List(_ context.Context, upcoming *bool) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, 0, len(s.events))
	for _, e := range s.events {
		if upcoming == nil || e.IsUpcoming == *upcoming {
			out = append(out, *s.copyOf(e))
		}
	}
	return out, nil
}

func (s *memEvents) SetReferences(_ context.Context, id uuid.UUID, refs References) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, apperr.ErrNoRows
	}
	e.SpeakerIDs, e.SponsorIDs, e.OrganizerIDs, e.CoordinatorIDs = refs.Speakers, refs.Sponsors, refs.Organizers, refs.Coordinators
	return s.copyOf(e), nil
}

type memMedia struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Media
}

func newMemMedia() *memMedia {
	return &memMedia{items: map[uuid.UUID]models.Media{}}
}

func (s *memMedia) add(m models.Media) models.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = uuid.New()
	s.items[m.ID] = m
	return m
}

func (s *memMedia) GetByID(_ context.Context, id uuid.UUID) (*models.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.items[id]
	if !ok {
		return nil, apperr.ErrNoRows
	}
	return &m, nil
}

func (s *memMedia) Create(_ context.Context, m *models.Media) error {
	*m = s.add(*m)
	return nil
}

func (s *memMedia) ListByIDs(_ context.Context, ids []uuid.UUID) ([]models.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Media, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.items[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

type lister[T any] struct {
	items map[uuid.UUID]T
}

func (l lister[T]) ListByIDs(_ context.Context, ids []uuid.UUID) ([]T, error) {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if v, ok := l.items[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}
