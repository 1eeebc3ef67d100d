package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/urls"
)

type (
	SpeakerLister interface {
		ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Speaker, error)
	}
	SponsorLister interface {
		ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Sponsor, error)
	}
	OrganizerLister interface {
		ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Organizer, error)
	}
	CoordinatorLister interface {
		ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Coordinator, error)
	}
	MediaLister interface {
		ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Media, error)
	}
)

// Populator expands an event's id sets into full records.
type Populator struct {
	speakers     SpeakerLister
	sponsors     SponsorLister
	organizers   OrganizerLister
	coordinators CoordinatorLister
	media        MediaLister
}

// NewPopulator creates a Populator.
func NewPopulator(speakers SpeakerLister, sponsors SponsorLister, organizers OrganizerLister,
	coordinators CoordinatorLister, media MediaLister) *Populator {
	return &Populator{
		speakers:     speakers,
		sponsors:     sponsors,
		organizers:   organizers,
		coordinators: coordinators,
		media:        media,
	}
}

// Expand resolves every reference set of events with one query per referenced table.
// References to deleted records are skipped and each set keeps its stored order.
func (p *Populator) Expand(ctx context.Context, events []models.Event) ([]models.EventDetail, error) {
	var (
		speakers     map[uuid.UUID]models.Speaker
		sponsors     map[uuid.UUID]models.Sponsor
		organizers   map[uuid.UUID]models.Organizer
		coordinators map[uuid.UUID]models.Coordinator
		media        map[uuid.UUID]models.Media
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		speakers, err = fetch(gctx, "speakers", union(events, func(e models.Event) []uuid.UUID { return e.SpeakerIDs }),
			p.speakers.ListByIDs, func(s models.Speaker) uuid.UUID { return s.ID })
		return err
	})
	g.Go(func() (err error) {
		sponsors, err = fetch(gctx, "sponsors", union(events, func(e models.Event) []uuid.UUID { return e.SponsorIDs }),
			p.sponsors.ListByIDs, func(s models.Sponsor) uuid.UUID { return s.ID })
		return err
	})
	g.Go(func() (err error) {
		organizers, err = fetch(gctx, "organizers", union(events, func(e models.Event) []uuid.UUID { return e.OrganizerIDs }),
			p.organizers.ListByIDs, func(o models.Organizer) uuid.UUID { return o.ID })
		return err
	})
	g.Go(func() (err error) {
		coordinators, err = fetch(gctx, "coordinators", union(events, func(e models.Event) []uuid.UUID { return e.CoordinatorIDs }),
			p.coordinators.ListByIDs, func(c models.Coordinator) uuid.UUID { return c.ID })
		return err
	})
	g.Go(func() (err error) {
		media, err = fetch(gctx, "media", union(events, func(e models.Event) []uuid.UUID { return e.MediaIDs }),
			p.media.ListByIDs, func(m models.Media) uuid.UUID { return m.ID })
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.EventDetail, len(events))
	for i, e := range events {
		out[i] = models.EventDetail{
			Event:        e,
			Speakers:     pick(e.SpeakerIDs, speakers),
			Sponsors:     pick(e.SponsorIDs, sponsors),
			Organizers:   pick(e.OrganizerIDs, organizers),
			Coordinators: pick(e.CoordinatorIDs, coordinators),
			Media:        pick(e.MediaIDs, media),
		}
	}
	return out, nil
}

// Detail expands a single event.
func (p *Populator) Detail(ctx context.Context, e *models.Event) (*models.EventDetail, error) {
	list, err := p.Expand(ctx, []models.Event{*e})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Absolutize rewrites stored upload paths in d to absolute URLs under base.
// Speakers prefer photo over imageUrl, sponsors prefer logo over logoUrl.
func Absolutize(base string, d *models.EventDetail) {
	d.BannerURL = urls.Absolute(base, d.BannerURL)
	for i := range d.Speakers {
		s := &d.Speakers[i]
		s.Photo = urls.Resolve(base, s.Photo, s.ImageURL)
	}
	for i := range d.Sponsors {
		s := &d.Sponsors[i]
		s.Logo = urls.Resolve(base, s.Logo, s.LogoURL)
	}
	for i := range d.Organizers {
		d.Organizers[i].Photo = urls.Resolve(base, d.Organizers[i].Photo)
	}
	for i := range d.Coordinators {
		d.Coordinators[i].Photo = urls.Resolve(base, d.Coordinators[i].Photo)
	}
	for i := range d.Media {
		if d.Media[i].Type == models.MediaImage {
			d.Media[i].URL = urls.Absolute(base, d.Media[i].URL)
		}
	}
}

func union(events []models.Event, ids func(models.Event) []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, e := range events {
		for _, id := range ids(e) {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out
}

func fetch[T any](ctx context.Context, what string, ids []uuid.UUID,
	list func(context.Context, []uuid.UUID) ([]T, error), key func(T) uuid.UUID) (map[uuid.UUID]T, error) {
	byID := make(map[uuid.UUID]T, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	items, err := list(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", what, err)
	}
	for _, it := range items {
		byID[key(it)] = it
	}
	return byID, nil
}

func pick[T any](ids []uuid.UUID, byID map[uuid.UUID]T) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out
}
