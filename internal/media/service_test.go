package media

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
	"github.com/eventsite/cms/pkg/queue"
)

type memStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Media
	clock time.Time
	err   error
}

func newMemStore() *memStore {
	return &memStore{items: map[uuid.UUID]models.Media{}, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (s *memStore) add(typ models.MediaType, title, description, url string) models.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = s.clock.Add(time.Minute)
	m := models.Media{ID: uuid.New(), Type: typ, Title: title, Description: description, URL: url, CreatedAt: s.clock, UpdatedAt: s.clock}
	s.items[m.ID] = m
	return m
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	m, ok := s.items[id]
	if !ok {
		return nil, apperr.ErrNoRows
	}
	return &m, nil
}

func (s *memStore) Create(_ context.Context, m *models.Media) error {
	if s.err != nil {
		return s.err
	}
	created := s.add(m.Type, m.Title, m.Description, m.URL)
	created.CreatedBy = m.CreatedBy
	s.mu.Lock()
	s.items[created.ID] = created
	s.mu.Unlock()
	*m = created
	return nil
}

func (s *memStore) Update(_ context.Context, id uuid.UUID, f UpdateFields) (*models.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.items[id]
	if !ok {
		return nil, apperr.ErrNoRows
	}
	if f.Title != nil {
		m.Title = *f.Title
	}
	if f.Description != nil {
		m.Description = *f.Description
	}
	if f.URL != nil {
		m.URL = *f.URL
	}
	s.items[id] = m
	return &m, nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) (*models.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.items[id]
	if !ok {
		return nil, apperr.ErrNoRows
	}
	delete(s.items, id)
	return &m, nil
}

func (s *memStore) ListByIDs(_ context.Context, ids []uuid.UUID) ([]models.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Media, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.items[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) List(_ context.Context, f ListFilter) ([]models.Media, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, 0, s.err
	}
	var matched []models.Media
	q := strings.ToLower(f.Query)
	for _, m := range s.items {
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(m.Title), q) && !strings.Contains(strings.ToLower(m.Description), q) {
			continue
		}
		matched = append(matched, m)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	if f.Offset >= total {
		return []models.Media{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return matched[f.Offset:end], total, nil
}

type fakeEvents map[uuid.UUID][]uuid.UUID

func (f fakeEvents) MediaIDs(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	ids, ok := f[id]
	if !ok {
		return nil, apperr.ErrNoRows
	}
	return ids, nil
}

type fakeMirror struct{ jobs []queue.MediaMirrorPayload }

func (f *fakeMirror) EnqueueMediaMirror(_ context.Context, p queue.MediaMirrorPayload) error {
	f.jobs = append(f.jobs, p)
	return nil
}

type fakeAssets struct{ removed []string }

func (f *fakeAssets) Remove(_ context.Context, u string) error {
	f.removed = append(f.removed, u)
	return nil
}

func TestParseListParams(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name                string
		page, limit, typ, q string
		wantPage, wantLimit int
		wantType            models.MediaType
		wantQuery           string
	}{
		{name: "defaults", wantPage: 1, wantLimit: 24},
		{name: "zero page", page: "0", wantPage: 1, wantLimit: 24},
		{name: "negative page", page: "-3", wantPage: 1, wantLimit: 24},
		{name: "non-numeric", page: "abc", limit: "lots", wantPage: 1, wantLimit: 24},
		{name: "limit floor", page: "2", limit: "0", wantPage: 2, wantLimit: 1},
		{name: "limit ceiling", limit: "1000", wantPage: 1, wantLimit: 200},
		{name: "image", typ: "image", wantPage: 1, wantLimit: 24, wantType: models.MediaImage},
		{name: "unknown type ignored", typ: "audio", wantPage: 1, wantLimit: 24},
		{name: "query trimmed", q: "  keynote ", wantPage: 1, wantLimit: 24, wantQuery: "keynote"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParseListParams(tt.page, tt.limit, tt.typ, tt.q)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, tt.wantQuery, p.Query)
		})
	}
}

func TestService_List(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	for i := 0; i < 5; i++ {
		store.add(models.MediaImage, "Gallery", "", "uploads/a.jpg")
	}
	video := store.add(models.MediaVideo, "Keynote", "Opening talk", "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	svc := NewService(store, fakeEvents{}, nil, nil, nil)
	ctx := context.Background()

	res, err := svc.List(ctx, ParseListParams("1", "4", "", ""))
	require.NoError(t, err)
	assert.Len(t, res.Items, 4)
	assert.Equal(t, 6, res.Total)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, video.ID, res.Items[0].ID, "newest first")

	res, err = svc.List(ctx, ParseListParams("1", "", "audio", ""))
	require.NoError(t, err)
	assert.Equal(t, 6, res.Total, "unknown type does not filter")

	res, err = svc.List(ctx, ParseListParams("", "", "video", ""))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, video.ID, res.Items[0].ID)

	res, err = svc.List(ctx, ParseListParams("", "", "", "OPENING"))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, video.ID, res.Items[0].ID)

	res, err = svc.List(ctx, ParseListParams("9", "", "", ""))
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 1, res.Pages)
}

func TestService_ListStoreFailure(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.err = errors.New("timeout")
	_, err := NewService(store, fakeEvents{}, nil, nil, nil).List(context.Background(), ParseListParams("", "", "", ""))
	assert.True(t, apperr.Is(err, apperr.KindInternal))
}

func TestService_GetByID(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	m := store.add(models.MediaImage, "", "", "uploads/a.jpg")
	svc := NewService(store, fakeEvents{}, nil, nil, nil)

	got, err := svc.GetByID(context.Background(), m.ID.String())
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	_, err = svc.GetByID(context.Background(), "not-an-id")
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	_, err = svc.GetByID(context.Background(), uuid.NewString())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestService_ListForEvent(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	a := store.add(models.MediaImage, "a", "", "uploads/a.jpg")
	b := store.add(models.MediaImage, "b", "", "uploads/b.jpg")
	withMedia, empty := uuid.New(), uuid.New()
	events := fakeEvents{
		withMedia: {b.ID, uuid.New(), a.ID},
		empty:     {},
	}
	svc := NewService(store, events, nil, nil, nil)
	ctx := context.Background()

	items, err := svc.ListForEvent(ctx, withMedia.String())
	require.NoError(t, err)
	require.Len(t, items, 2, "dangling ids are skipped")
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)

	items, err = svc.ListForEvent(ctx, empty.String())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	_, err = svc.ListForEvent(ctx, "bogus")
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	_, err = svc.ListForEvent(ctx, uuid.NewString())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestService_Create(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("video is normalized", func(t *testing.T) {
		svc := NewService(newMemStore(), fakeEvents{}, nil, nil, nil)
		m, err := svc.Create(ctx, CreateInput{Type: "video", URL: "https://youtu.be/dQw4w9WgXcQ"})
		require.NoError(t, err)
		assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", m.URL)
	})

	t.Run("non youtube video", func(t *testing.T) {
		svc := NewService(newMemStore(), fakeEvents{}, nil, nil, nil)
		_, err := svc.Create(ctx, CreateInput{Type: "video", URL: "https://example.com/not-youtube"})
		assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
		assert.Equal(t, "Invalid YouTube URL", apperr.Message(err, ""))
	})

	t.Run("bad type", func(t *testing.T) {
		svc := NewService(newMemStore(), fakeEvents{}, nil, nil, nil)
		_, err := svc.Create(ctx, CreateInput{Type: "audio", URL: "x"})
		assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))
	})

	t.Run("local image is mirrored", func(t *testing.T) {
		mirror := &fakeMirror{}
		svc := NewService(newMemStore(), fakeEvents{}, mirror, nil, nil)
		m, err := svc.Create(ctx, CreateInput{Type: "image", URL: "uploads/x.png"})
		require.NoError(t, err)
		require.Len(t, mirror.jobs, 1)
		assert.Equal(t, m.ID, mirror.jobs[0].MediaID)
		assert.Equal(t, "uploads/x.png", mirror.jobs[0].LocalPath)

		_, err = svc.Create(ctx, CreateInput{Type: "image", URL: "https://cdn.example.com/x.png"})
		require.NoError(t, err)
		assert.Len(t, mirror.jobs, 1, "remote images are not mirrored")
	})
}

func TestService_UpdateAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemStore()
	assets := &fakeAssets{}
	svc := NewService(store, fakeEvents{}, nil, assets, nil)

	video := store.add(models.MediaVideo, "old", "", "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	url := "https://www.youtube.com/embed/aaaaaaaaaaa"
	title := " New title "
	m, err := svc.Update(ctx, video.ID.String(), UpdateInput{Title: &title, URL: &url})
	require.NoError(t, err)
	assert.Equal(t, "New title", m.Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=aaaaaaaaaaa", m.URL)
	assert.Empty(t, assets.removed, "videos have no stored file")

	bad := "https://vimeo.com/1"
	_, err = svc.Update(ctx, video.ID.String(), UpdateInput{URL: &bad})
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	image := store.add(models.MediaImage, "", "", "uploads/a.jpg")
	require.NoError(t, svc.Delete(ctx, image.ID.String()))
	assert.Equal(t, []string{"uploads/a.jpg"}, assets.removed)

	assert.True(t, apperr.Is(svc.Delete(ctx, image.ID.String()), apperr.KindNotFound))
	assert.True(t, apperr.Is(svc.Delete(ctx, "nope"), apperr.KindInvalidArgument))
}
