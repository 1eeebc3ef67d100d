package speakers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
	"github.com/eventsite/cms/pkg/response"
	"github.com/eventsite/cms/pkg/storage"
)

// Store is the speaker persistence used by the handler.
type Store interface {
	List(ctx context.Context) ([]models.Speaker, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Speaker, error)
	Create(ctx context.Context, s *models.Speaker) error
	Update(ctx context.Context, s *models.Speaker) error
	Delete(ctx context.Context, id uuid.UUID) (*models.Speaker, error)
}

// FileRemover deletes a stored upload.
type FileRemover interface {
	Remove(ctx context.Context, u string) error
}

// Request is the JSON or multipart body for create and update. Multipart requests
// carry the image in "photo" and socialLinks as a JSON string.
type Request struct {
	Name        *string             `json:"name" form:"name"`
	Designation *string             `json:"designation" form:"designation"`
	Topic       *string             `json:"topic" form:"topic"`
	Bio         *string             `json:"bio" form:"bio"`
	Photo       *string             `json:"photo" form:"-"`
	ImageURL    *string             `json:"imageUrl" form:"imageUrl"`
	SocialLinks *models.SocialLinks `json:"socialLinks" form:"-"`
}

func (r Request) apply(s *models.Speaker) error {
	if r.Name != nil {
		s.Name = strings.TrimSpace(*r.Name)
	}
	if s.Name == "" {
		return apperr.Invalid("Name is required")
	}
	set(&s.Designation, r.Designation)
	set(&s.Topic, r.Topic)
	set(&s.Bio, r.Bio)
	set(&s.Photo, r.Photo)
	set(&s.ImageURL, r.ImageURL)
	if r.SocialLinks != nil {
		s.SocialLinks = *r.SocialLinks
	}
	return nil
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// Handler handles admin speaker endpoints.
type Handler struct {
	store  Store
	images storage.ImageSaver
	files  FileRemover
	logger *zap.Logger
}

// NewHandler creates a speaker handler. files may be nil.
func NewHandler(store Store, images storage.ImageSaver, files FileRemover, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, images: images, files: files, logger: logger}
}

// List handles GET /admin/speakers.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list speakers", zap.Error(err))
		response.Internal(c, "Server error")
		return
	}
	response.OK(c, list)
}

// Get handles GET /admin/speakers/:id.
func (h *Handler) Get(c *gin.Context) {
	s, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, s)
}

// Create handles POST /admin/speakers.
func (h *Handler) Create(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	var s models.Speaker
	if err := req.apply(&s); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.Create(c.Request.Context(), &s); err != nil {
		h.logger.Error("create speaker", zap.Error(err))
		response.Internal(c, "Failed to create speaker")
		return
	}
	response.Created(c, s)
}

// Update handles PUT /admin/speakers/:id.
func (h *Handler) Update(c *gin.Context) {
	s, ok := h.load(c)
	if !ok {
		return
	}
	req, ok := h.bind(c)
	if !ok {
		return
	}
	oldPhoto := s.Photo
	if err := req.apply(s); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.Update(c.Request.Context(), s); err != nil {
		if errors.Is(err, apperr.ErrNoRows) {
			response.NotFound(c, "Speaker not found")
			return
		}
		h.logger.Error("update speaker", zap.Error(err), zap.String("speaker_id", s.ID.String()))
		response.Internal(c, "Failed to update speaker")
		return
	}
	if oldPhoto != s.Photo {
		h.remove(c, oldPhoto)
	}
	response.OKMessage(c, "Updated", s)
}

// Delete handles DELETE /admin/speakers/:id. The speaker is also removed from every event.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid id")
		return
	}
	s, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNoRows) {
			response.NotFound(c, "Speaker not found")
			return
		}
		h.logger.Error("delete speaker", zap.Error(err), zap.String("speaker_id", id.String()))
		response.Internal(c, "Failed to delete speaker")
		return
	}
	h.remove(c, s.Photo)
	response.OKMessage(c, "Deleted", nil)
}

func (h *Handler) load(c *gin.Context) (*models.Speaker, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid id")
		return nil, false
	}
	s, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNoRows) {
			response.NotFound(c, "Speaker not found")
		} else {
			h.logger.Error("get speaker", zap.Error(err), zap.String("speaker_id", id.String()))
			response.Internal(c, "Server error")
		}
		return nil, false
	}
	return s, true
}

func (h *Handler) bind(c *gin.Context) (Request, bool) {
	var req Request
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return req, false
	}
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return req, true
	}
	if raw := c.PostForm("socialLinks"); raw != "" {
		var links models.SocialLinks
		if err := json.Unmarshal([]byte(raw), &links); err != nil {
			response.BadRequest(c, "socialLinks must be a JSON object")
			return req, false
		}
		req.SocialLinks = &links
	}
	if fh, err := c.FormFile("photo"); err == nil {
		rel, err := h.images.SaveImage(fh)
		if err != nil {
			if storage.IsRejected(err) {
				response.BadRequest(c, err.Error())
			} else {
				h.logger.Error("save speaker photo", zap.Error(err))
				response.Internal(c, "Failed to save upload")
			}
			return req, false
		}
		req.Photo = &rel
	}
	return req, true
}

func (h *Handler) remove(c *gin.Context, u string) {
	if h.files == nil || !storage.IsLocalPath(u) {
		return
	}
	if err := h.files.Remove(c.Request.Context(), u); err != nil {
		h.logger.Warn("remove speaker photo", zap.Error(err), zap.String("path", u))
	}
}
