package events

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventsite/cms/internal/middleware"
	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
	"github.com/eventsite/cms/pkg/response"
	"github.com/eventsite/cms/pkg/storage"
)

// Store is the event persistence used by the handlers.
type Store interface {
	MediaSetStore
	Create(ctx context.Context, e *models.Event) (*models.Event, error)
	Update(ctx context.Context, id uuid.UUID, f Fields) (*models.Event, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetBySlug(ctx context.Context, slug string) (*models.Event, error)
	List(ctx context.Context, upcoming *bool) ([]models.Event, error)
	SetReferences(ctx context.Context, eventID uuid.UUID, refs References) (*models.Event, error)
}

// FileRemover deletes a stored upload. Foreign URLs are ignored.
type FileRemover interface {
	Remove(ctx context.Context, u string) error
}

// Handler serves public event pages, admin event management and media mapping.
type Handler struct {
	store      Store
	assoc      *Association
	populator  *Populator
	images     storage.ImageSaver
	files      FileRemover
	publicBase string
	logger     *zap.Logger
}

// HandlerConfig groups the Handler dependencies.
type HandlerConfig struct {
	Store      Store
	Assoc      *Association
	Populator  *Populator
	Images     storage.ImageSaver
	Files      FileRemover // optional
	PublicBase string      // empty means derive from the request
	Logger     *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:      cfg.Store,
		assoc:      cfg.Assoc,
		populator:  cfg.Populator,
		images:     cfg.Images,
		files:      cfg.Files,
		publicBase: cfg.PublicBase,
		logger:     logger,
	}
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.logger.Error(op, zap.Error(err), zap.String("path", c.Request.URL.Path))
	}
	response.Error(c, err)
}

// baseURL is the origin upload paths are resolved against.
func (h *Handler) baseURL(c *gin.Context) string {
	if h.publicBase != "" {
		return h.publicBase
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func parseEventID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Invalid("Invalid eventId")
	}
	return id, nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, apperr.ErrNoRows) {
		return apperr.NotFound("Event not found")
	}
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	return apperr.Internal(msg, err)
}

// List handles GET /events?upcoming=true|false.
func (h *Handler) List(c *gin.Context) {
	var upcoming *bool
	switch c.Query("upcoming") {
	case "true":
		v := true
		upcoming = &v
	case "false":
		v := false
		upcoming = &v
	}
	list, err := h.store.List(c.Request.Context(), upcoming)
	if err != nil {
		h.fail(c, "list events", apperr.Internal("Server error", err))
		return
	}
	details, err := h.populator.Expand(c.Request.Context(), list)
	if err != nil {
		h.fail(c, "expand events", apperr.Internal("Server error", err))
		return
	}
	base := h.baseURL(c)
	for i := range details {
		Absolutize(base, &details[i])
	}
	response.OK(c, details)
}

// GetBySlug handles GET /events/:slug.
func (h *Handler) GetBySlug(c *gin.Context) {
	e, err := h.store.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, "get event", notFoundOr(err, "Server error"))
		return
	}
	h.respondDetail(c, e, "")
}

func (h *Handler) respondDetail(c *gin.Context, e *models.Event, message string) {
	d, err := h.populator.Detail(c.Request.Context(), e)
	if err != nil {
		h.fail(c, "expand event", apperr.Internal("Server error", err))
		return
	}
	Absolutize(h.baseURL(c), d)
	response.OKMessage(c, message, d)
}

// AdminList handles GET /admin/events. References are returned as ids.
func (h *Handler) AdminList(c *gin.Context) {
	list, err := h.store.List(c.Request.Context(), nil)
	if err != nil {
		h.fail(c, "list events", apperr.Internal("Server error", err))
		return
	}
	response.OK(c, list)
}

// AdminGet handles GET /admin/events/:id.
func (h *Handler) AdminGet(c *gin.Context) {
	id, err := parseEventID(c.Param("id"))
	if err != nil {
		h.fail(c, "get event", err)
		return
	}
	e, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get event", notFoundOr(err, "Server error"))
		return
	}
	h.respondDetail(c, e, "")
}

// bindEvent binds JSON or multipart and stores an uploaded banner.
func (h *Handler) bindEvent(c *gin.Context) (EventRequest, bool) {
	var req EventRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return req, false
	}
	if fh, err := c.FormFile("banner"); err == nil {
		rel, err := h.images.SaveImage(fh)
		if err != nil {
			if storage.IsRejected(err) {
				response.BadRequest(c, err.Error())
			} else {
				h.logger.Error("save banner", zap.Error(err))
				response.Internal(c, "Failed to save upload")
			}
			return req, false
		}
		req.BannerURL = &rel
	}
	return req, true
}

// Create handles POST /admin/events.
func (h *Handler) Create(c *gin.Context) {
	req, ok := h.bindEvent(c)
	if !ok {
		return
	}
	e, err := req.NewEvent()
	if err != nil {
		h.fail(c, "create event", err)
		return
	}
	created, err := h.store.Create(c.Request.Context(), e)
	if err != nil {
		h.fail(c, "create event", notFoundOr(err, "Failed to create event"))
		return
	}
	response.Created(c, created)
}

// Update handles PUT /admin/events/:id. The media set is never touched here.
func (h *Handler) Update(c *gin.Context) {
	id, err := parseEventID(c.Param("id"))
	if err != nil {
		h.fail(c, "update event", err)
		return
	}
	req, ok := h.bindEvent(c)
	if !ok {
		return
	}
	f, err := req.Fields()
	if err != nil {
		h.fail(c, "update event", err)
		return
	}
	var oldBanner string
	if f.BannerURL != nil {
		if prev, err := h.store.GetByID(c.Request.Context(), id); err == nil {
			oldBanner = prev.BannerURL
		}
	}
	updated, err := h.store.Update(c.Request.Context(), id, f)
	if err != nil {
		h.fail(c, "update event", notFoundOr(err, "Failed to update event"))
		return
	}
	if oldBanner != "" && oldBanner != updated.BannerURL {
		h.removeFile(c, oldBanner)
	}
	response.OKMessage(c, "Updated", updated)
}

// Delete handles DELETE /admin/events/:id. Mapped media and people are kept.
func (h *Handler) Delete(c *gin.Context) {
	id, err := parseEventID(c.Param("id"))
	if err != nil {
		h.fail(c, "delete event", err)
		return
	}
	deleted, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "delete event", notFoundOr(err, "Failed to delete event"))
		return
	}
	h.removeFile(c, deleted.BannerURL)
	response.OKMessage(c, "Deleted", nil)
}

func (h *Handler) removeFile(c *gin.Context, u string) {
	if h.files == nil || u == "" {
		return
	}
	if err := h.files.Remove(c.Request.Context(), u); err != nil {
		h.logger.Warn("remove file", zap.Error(err), zap.String("url", u))
	}
}

// Map handles POST /admin/map/:eventId and replaces the four people sets.
func (h *Handler) Map(c *gin.Context) {
	id, err := parseEventID(c.Param("eventId"))
	if err != nil {
		h.fail(c, "map references", err)
		return
	}
	var req MapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	refs, err := req.References()
	if err != nil {
		h.fail(c, "map references", err)
		return
	}
	updated, err := h.store.SetReferences(c.Request.Context(), id, refs)
	if err != nil {
		h.fail(c, "map references", notFoundOr(err, "Mapping failed"))
		return
	}
	h.respondDetail(c, updated, "Mapped")
}

// AddMedia handles POST /events/:eventId/media.
func (h *Handler) AddMedia(c *gin.Context) {
	eventID, err := parseEventID(c.Param("eventId"))
	if err != nil {
		h.fail(c, "map media", err)
		return
	}
	var req AddMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "mediaId or (type=video + url) required")
		return
	}
	cmd, err := req.Validate()
	if err != nil {
		h.fail(c, "map media", err)
		return
	}
	var createdBy *uuid.UUID
	if uid, ok := middleware.UserID(c); ok {
		createdBy = &uid
	}
	ev, err := h.assoc.Add(c.Request.Context(), eventID, cmd, createdBy)
	if err != nil {
		h.fail(c, "map media", err)
		return
	}
	response.OKMessage(c, "Mapped", ev)
}

// RemoveMedia handles POST /events/:eventId/media/remove.
func (h *Handler) RemoveMedia(c *gin.Context) {
	var req RemoveMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "mediaId required")
		return
	}
	mediaID, err := req.Validate()
	if err != nil {
		h.fail(c, "unmap media", err)
		return
	}
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		h.fail(c, "unmap media", apperr.Invalid("Invalid id(s)"))
		return
	}
	ev, err := h.assoc.Remove(c.Request.Context(), eventID, mediaID)
	if err != nil {
		h.fail(c, "unmap media", err)
		return
	}
	response.OKMessage(c, "Unmapped", ev)
}
