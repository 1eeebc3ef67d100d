package events

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
	"github.com/eventsite/cms/pkg/urls"
)

// MediaStore is the media persistence the association needs.
type MediaStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	Create(ctx context.Context, m *models.Media) error
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Media, error)
}

// MediaSetStore holds events and their media sets. AddMedia and RemoveMedia must be
// atomic per event and return the event as stored after the change.
type MediaSetStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	AddMedia(ctx context.Context, eventID, mediaID uuid.UUID) (*models.Event, error)
	RemoveMedia(ctx context.Context, eventID, mediaID uuid.UUID) (*models.Event, error)
}

// AddMediaRequest is the body of POST /events/:eventId/media.
// Either mediaId references an existing record, or type "video" with url creates one.
type AddMediaRequest struct {
	MediaID string `json:"mediaId"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}

// AddMediaCommand is a validated AddMediaRequest. Exactly one of MediaID and Video is set.
type AddMediaCommand struct {
	MediaID uuid.UUID
	Video   *models.Media
}

// Validate checks the request shape and normalizes a new video's URL.
func (r AddMediaRequest) Validate() (AddMediaCommand, error) {
	if r.MediaID != "" {
		id, err := uuid.Parse(r.MediaID)
		if err != nil {
			return AddMediaCommand{}, apperr.Invalid("Invalid mediaId")
		}
		return AddMediaCommand{MediaID: id}, nil
	}
	if r.Type == string(models.MediaVideo) && strings.TrimSpace(r.URL) != "" {
		u, ok := urls.NormalizeYouTube(r.URL)
		if !ok {
			return AddMediaCommand{}, apperr.Invalid("Invalid YouTube URL")
		}
		return AddMediaCommand{Video: &models.Media{
			Type:  models.MediaVideo,
			Title: strings.TrimSpace(r.Title),
			URL:   u,
		}}, nil
	}
	return AddMediaCommand{}, apperr.Invalid("mediaId or (type=video + url) required")
}

// RemoveMediaRequest is the body of POST /events/:eventId/media/remove.
type RemoveMediaRequest struct {
	MediaID string `json:"mediaId"`
}

// Validate returns the media id to unmap.
func (r RemoveMediaRequest) Validate() (uuid.UUID, error) {
	if r.MediaID == "" {
		return uuid.Nil, apperr.Invalid("mediaId required")
	}
	id, err := uuid.Parse(r.MediaID)
	if err != nil {
		return uuid.Nil, apperr.Invalid("Invalid id(s)")
	}
	return id, nil
}

// Association maps media onto events.
type Association struct {
	events MediaSetStore
	media  MediaStore
	logger *zap.Logger
}

// NewAssociation creates the event-media association service.
func NewAssociation(events MediaSetStore, media MediaStore, logger *zap.Logger) *Association {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Association{events: events, media: media, logger: logger}
}

// Add maps the media described by cmd onto the event. Adding an id already present is a no-op.
func (a *Association) Add(ctx context.Context, eventID uuid.UUID, cmd AddMediaCommand, createdBy *uuid.UUID) (*models.EventWithMedia, error) {
	if err := a.requireEvent(ctx, eventID, "Failed to map media"); err != nil {
		return nil, err
	}

	mediaID := cmd.MediaID
	if cmd.Video != nil {
		v := *cmd.Video
		v.CreatedBy = createdBy
		if err := a.media.Create(ctx, &v); err != nil {
			return nil, apperr.Internal("Failed to map media", err)
		}
		a.logger.Info("created video for event", zap.String("event_id", eventID.String()), zap.String("media_id", v.ID.String()))
		mediaID = v.ID
	} else {
		if _, err := a.media.GetByID(ctx, mediaID); err != nil {
			if errors.Is(err, apperr.ErrNoRows) {
				return nil, apperr.NotFound("Media not found")
			}
			return nil, apperr.Internal("Failed to map media", err)
		}
	}

	updated, err := a.events.AddMedia(ctx, eventID, mediaID)
	if err != nil {
		if errors.Is(err, apperr.ErrNoRows) {
			return nil, apperr.NotFound("Event not found")
		}
		return nil, apperr.Internal("Failed to map media", err)
	}
	return a.withMedia(ctx, updated, "Failed to map media")
}

// Remove unmaps mediaID from the event. Removing an id that is not mapped succeeds.
// The media record itself is kept.
func (a *Association) Remove(ctx context.Context, eventID, mediaID uuid.UUID) (*models.EventWithMedia, error) {
	if err := a.requireEvent(ctx, eventID, "Failed to unmap media"); err != nil {
		return nil, err
	}
	updated, err := a.events.RemoveMedia(ctx, eventID, mediaID)
	if err != nil {
		if errors.Is(err, apperr.ErrNoRows) {
			return nil, apperr.NotFound("Event not found")
		}
		return nil, apperr.Internal("Failed to unmap media", err)
	}
	if updated.HasMedia(mediaID) {
		a.logger.Error("media still mapped after removal",
			zap.String("event_id", eventID.String()), zap.String("media_id", mediaID.String()))
		return nil, apperr.Internal("Failed to unmap media", nil)
	}
	return a.withMedia(ctx, updated, "Failed to unmap media")
}

func (a *Association) requireEvent(ctx context.Context, eventID uuid.UUID, failMsg string) error {
	_, err := a.events.GetByID(ctx, eventID)
	if errors.Is(err, apperr.ErrNoRows) {
		return apperr.NotFound("Event not found")
	}
	if err != nil {
		return apperr.Internal(failMsg, err)
	}
	return nil
}

func (a *Association) withMedia(ctx context.Context, e *models.Event, failMsg string) (*models.EventWithMedia, error) {
	items, err := a.media.ListByIDs(ctx, e.MediaIDs)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	return &models.EventWithMedia{Event: *e, Media: items}, nil
}
