package media

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
	"github.com/eventsite/cms/pkg/queue"
	"github.com/eventsite/cms/pkg/storage"
	"github.com/eventsite/cms/pkg/urls"
)

const (
	DefaultLimit = 24
	MaxLimit     = 200
)

// Store is the media persistence the service needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	Create(ctx context.Context, m *models.Media) error
	Update(ctx context.Context, id uuid.UUID, f UpdateFields) (*models.Media, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Media, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Media, error)
	List(ctx context.Context, f ListFilter) ([]models.Media, int, error)
}

// EventMedia returns the ordered media ids of an event, or apperr.ErrNoRows if the event does not exist.
type EventMedia interface {
	MediaIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error)
}

// Mirror schedules copying a local upload to object storage.
type Mirror interface {
	EnqueueMediaMirror(ctx context.Context, p queue.MediaMirrorPayload) error
}

// AssetRemover deletes the stored file behind a media url.
type AssetRemover interface {
	Remove(ctx context.Context, u string) error
}

// Service implements media queries and admin media management.
type Service struct {
	store  Store
	events EventMedia
	mirror Mirror       // nil when mirroring is disabled
	assets AssetRemover // nil when nothing should be removed
	logger *zap.Logger
}

// NewService creates a media service. mirror and assets may be nil.
func NewService(store Store, events EventMedia, mirror Mirror, assets AssetRemover, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, events: events, mirror: mirror, assets: assets, logger: logger}
}

// ListParams is a normalized list query.
type ListParams struct {
	Page  int
	Limit int
	Type  models.MediaType
	Query string
}

// ParseListParams normalizes raw query values. It never fails: bad numbers fall back to
// defaults and unknown types mean no type filter.
func ParseListParams(page, limit, typ, q string) ListParams {
	p := ListParams{Page: 1, Limit: DefaultLimit, Query: strings.TrimSpace(q)}
	if n, err := strconv.Atoi(strings.TrimSpace(page)); err == nil && n > 1 {
		p.Page = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(limit)); err == nil {
		p.Limit = n
	}
	if p.Limit < 1 {
		p.Limit = 1
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if t, ok := models.ParseMediaType(typ); ok {
		p.Type = t
	}
	return p
}

// ListResult is one page of media.
type ListResult struct {
	Items []models.Media
	Page  int
	Limit int
	Total int
	Pages int
}

// List returns one page of media, newest first.
func (s *Service) List(ctx context.Context, p ListParams) (*ListResult, error) {
	items, total, err := s.store.List(ctx, ListFilter{
		Type:   p.Type,
		Query:  p.Query,
		Limit:  p.Limit,
		Offset: (p.Page - 1) * p.Limit,
	})
	if err != nil {
		return nil, apperr.Internal("Server error", err)
	}
	return &ListResult{
		Items: items,
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
		Pages: int(math.Ceil(float64(total) / float64(p.Limit))),
	}, nil
}

// GetByID returns one media record.
func (s *Service) GetByID(ctx context.Context, rawID string) (*models.Media, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperr.Invalid("Invalid id")
	}
	m, err := s.store.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNoRows) {
		return nil, apperr.NotFound("Not found")
	}
	if err != nil {
		return nil, apperr.Internal("Server error", err)
	}
	return m, nil
}

// ListForEvent returns the media mapped to an event in mapping order.
func (s *Service) ListForEvent(ctx context.Context, rawEventID string) ([]models.Media, error) {
	eventID, err := uuid.Parse(rawEventID)
	if err != nil {
		return nil, apperr.Invalid("Invalid eventId")
	}
	ids, err := s.events.MediaIDs(ctx, eventID)
	if errors.Is(err, apperr.ErrNoRows) {
		return nil, apperr.NotFound("Event not found")
	}
	if err != nil {
		return nil, apperr.Internal("Server error", err)
	}
	items, err := s.store.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("Server error", err)
	}
	return items, nil
}

// CreateInput is an admin media creation. For images URL may be a local upload path.
type CreateInput struct {
	Type        string
	Title       string
	Description string
	URL         string
	CreatedBy   *uuid.UUID
}

// Create validates in and stores a new media record. Local image uploads are queued for mirroring.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Media, error) {
	typ, ok := models.ParseMediaType(in.Type)
	if !ok {
		return nil, apperr.Invalid("type must be image or video")
	}
	u, err := normalizeURL(typ, in.URL)
	if err != nil {
		return nil, err
	}
	m := &models.Media{
		Type:        typ,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		URL:         u,
		CreatedBy:   in.CreatedBy,
	}
	if err := s.store.Create(ctx, m); err != nil {
		return nil, apperr.Internal("Failed to create media", err)
	}
	s.scheduleMirror(ctx, m)
	return m, nil
}

// UpdateInput changes any subset of a media record's editable fields.
type UpdateInput struct {
	Title       *string
	Description *string
	URL         *string
}

// Update applies in to an existing record. Video urls are re-normalized.
func (s *Service) Update(ctx context.Context, rawID string, in UpdateInput) (*models.Media, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperr.Invalid("Invalid id")
	}
	existing, err := s.store.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNoRows) {
		return nil, apperr.NotFound("Media not found")
	}
	if err != nil {
		return nil, apperr.Internal("Server error", err)
	}
	f := UpdateFields{Title: trimmed(in.Title), Description: trimmed(in.Description)}
	if in.URL != nil {
		u, err := normalizeURL(existing.Type, *in.URL)
		if err != nil {
			return nil, err
		}
		f.URL = &u
	}
	m, err := s.store.Update(ctx, id, f)
	if errors.Is(err, apperr.ErrNoRows) {
		return nil, apperr.NotFound("Media not found")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to update media", err)
	}
	if f.URL != nil && *f.URL != existing.URL {
		s.removeAsset(ctx, existing)
		s.scheduleMirror(ctx, m)
	}
	return m, nil
}

// Delete removes a media record, unmaps it from every event and deletes its stored file.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return apperr.Invalid("Invalid id")
	}
	m, err := s.store.Delete(ctx, id)
	if errors.Is(err, apperr.ErrNoRows) {
		return apperr.NotFound("Media not found")
	}
	if err != nil {
		return apperr.Internal("Failed to delete media", err)
	}
	s.removeAsset(ctx, m)
	return nil
}

func (s *Service) scheduleMirror(ctx context.Context, m *models.Media) {
	if s.mirror == nil || m.Type != models.MediaImage || !storage.IsLocalPath(m.URL) {
		return
	}
	// Best effort: the local copy keeps serving.
	if err := s.mirror.EnqueueMediaMirror(ctx, queue.MediaMirrorPayload{MediaID: m.ID, LocalPath: m.URL}); err != nil {
		s.logger.Warn("enqueue media mirror", zap.Error(err), zap.String("media_id", m.ID.String()))
	}
}

func (s *Service) removeAsset(ctx context.Context, m *models.Media) {
	if s.assets == nil || m.Type != models.MediaImage {
		return
	}
	if err := s.assets.Remove(ctx, m.URL); err != nil {
		s.logger.Warn("remove media file", zap.Error(err), zap.String("media_id", m.ID.String()), zap.String("url", m.URL))
	}
}

func normalizeURL(typ models.MediaType, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if typ == models.MediaVideo {
		u, ok := urls.NormalizeYouTube(raw)
		if !ok {
			return "", apperr.Invalid("Invalid YouTube URL")
		}
		return u, nil
	}
	if raw == "" {
		return "", apperr.Invalid("url or file required")
	}
	return raw, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
