package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventsite/cms/internal/models"
)

type countingLister struct {
	lister[models.Organizer]
	calls int
}

func (c *countingLister) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Organizer, error) {
	c.calls++
	return c.lister.ListByIDs(ctx, ids)
}

type failingMedia struct{}

func (failingMedia) ListByIDs(context.Context, []uuid.UUID) ([]models.Media, error) {
	return nil, errors.New("boom")
}

func TestPopulator_ExpandSharesLookups(t *testing.T) {
	t.Parallel()
	o1 := models.Organizer{ID: uuid.New(), Name: "One"}
	o2 := models.Organizer{ID: uuid.New(), Name: "Two"}
	orgs := &countingLister{lister: lister[models.Organizer]{items: map[uuid.UUID]models.Organizer{o1.ID: o1, o2.ID: o2}}}
	p := NewPopulator(
		lister[models.Speaker]{}, lister[models.Sponsor]{}, orgs, lister[models.Coordinator]{}, newMemMedia(),
	)

	out, err := p.Expand(context.Background(), []models.Event{
		{Name: "A", OrganizerIDs: []uuid.UUID{o2.ID, o1.ID}},
		{Name: "B", OrganizerIDs: []uuid.UUID{o1.ID}},
		{Name: "C"},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 1, orgs.calls)
	assert.Equal(t, []models.Organizer{o2, o1}, out[0].Organizers)
	assert.Equal(t, []models.Organizer{o1}, out[1].Organizers)
	assert.NotNil(t, out[2].Organizers)
	assert.Empty(t, out[2].Organizers)
}

func TestPopulator_PropagatesErrors(t *testing.T) {
	t.Parallel()
	p := NewPopulator(lister[models.Speaker]{}, lister[models.Sponsor]{}, lister[models.Organizer]{},
		lister[models.Coordinator]{}, failingMedia{})
	_, err := p.Detail(context.Background(), &models.Event{MediaIDs: []uuid.UUID{uuid.New()}})
	assert.ErrorContains(t, err, "load media")
}

func TestAbsolutize(t *testing.T) {
	t.Parallel()
	d := &models.EventDetail{
		Event:        models.Event{BannerURL: "https://img.example.com/b.jpg"},
		Sponsors:     []models.Sponsor{{Logo: "uploads/logo.png", LogoURL: "https://x.example.com/l.png"}},
		Organizers:   []models.Organizer{{Photo: "//uploads/o.jpg"}},
		Coordinators: []models.Coordinator{{}},
		Media: []models.Media{
			{Type: models.MediaVideo, URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
			{Type: models.MediaImage, URL: "uploads/m.jpg"},
		},
	}
	Absolutize("http://localhost:4000/", d)

	assert.Equal(t, "https://img.example.com/b.jpg", d.BannerURL)
	assert.Equal(t, "http://localhost:4000/uploads/logo.png", d.Sponsors[0].Logo)
	assert.Equal(t, "http://localhost:4000/uploads/o.jpg", d.Organizers[0].Photo)
	assert.Equal(t, "", d.Coordinators[0].Photo)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", d.Media[0].URL)
	assert.Equal(t, "http://localhost:4000/uploads/m.jpg", d.Media[1].URL)
}

func TestSlugify(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "tech-fest-2025", Slugify("  Tech Fest 2025! "))
	assert.Equal(t, "a-b", Slugify("--A__B--"))
	assert.Equal(t, "", Slugify("!!!"))
}
