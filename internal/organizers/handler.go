package organizers

import (
	"context"
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

type Store interface {
	List(ctx context.Context) ([]models.Organizer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organizer, error)
	Create(ctx context.Context, o *models.Organizer) error
	Update(ctx context.Context, o *models.Organizer) error
	Delete(ctx context.Context, id uuid.UUID) (*models.Organizer, error)
}

type FileRemover interface {
	Remove(ctx context.Context, u string) error
}

type Request struct {
	Name     *string `json:"name" form:"name"`
	Role     *string `json:"role" form:"role"`
	LinkedIn *string `json:"linkedin" form:"linkedin"`
	Twitter  *string `json:"twitter" form:"twitter"`
	Photo    *string `json:"photo" form:"-"`
	Bio      *string `json:"bio" form:"bio"`
}

func (r Request) apply(o *models.Organizer) error {
	if r.Name != nil {
		o.Name = strings.TrimSpace(*r.Name)
	}
	if o.Name == "" {
		return apperr.Invalid("Name is required")
	}
	assign(&o.Role, r.Role)
	assign(&o.LinkedIn, r.LinkedIn)
	assign(&o.Twitter, r.Twitter)
	assign(&o.Photo, r.Photo)
	assign(&o.Bio, r.Bio)
	return nil
}

func assign(dst, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// Handler serves the admin organizer endpoints.
type Handler struct {
	store  Store
	images storage.ImageSaver
	files  FileRemover
	logger *zap.Logger
}

func NewHandler(store Store, images storage.ImageSaver, files FileRemover, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, images: images, files: files, logger: logger}
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list organizers", zap.Error(err))
		response.Internal(c, "Server error")
		return
	}
	response.OK(c, list)
}

func (h *Handler) Get(c *gin.Context) {
	if o, ok := h.load(c); ok {
		response.OK(c, o)
	}
}

func (h *Handler) Create(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	var o models.Organizer
	if err := req.apply(&o); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.Create(c.Request.Context(), &o); err != nil {
		h.logger.Error("create organizer", zap.Error(err))
		response.Internal(c, "Failed to create organizer")
		return
	}
	response.Created(c, o)
}

func (h *Handler) Update(c *gin.Context) {
	o, ok := h.load(c)
	if !ok {
		return
	}
	req, ok := h.bind(c)
	if !ok {
		return
	}
	oldPhoto := o.Photo
	if err := req.apply(o); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.Update(c.Request.Context(), o); err != nil {
		if errors.Is(err, apperr.ErrNoRows) {
			response.NotFound(c, "Organizer not found")
			return
		}
		h.logger.Error("update organizer", zap.Error(err), zap.String("organizer_id", o.ID.String()))
		response.Internal(c, "Failed to update organizer")
		return
	}
	if oldPhoto != o.Photo {
		h.remove(c, oldPhoto)
	}
	response.OKMessage(c, "Updated", o)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid id")
		return
	}
	o, err := h.store.Delete(c.Request.Context(), id)
	if errors.Is(err, apperr.ErrNoRows) {
		response.NotFound(c, "Organizer not found")
		return
	}
	if err != nil {
		h.logger.Error("delete organizer", zap.Error(err), zap.String("organizer_id", id.String()))
		response.Internal(c, "Failed to delete organizer")
		return
	}
	h.remove(c, o.Photo)
	response.OKMessage(c, "Deleted", nil)
}

func (h *Handler) load(c *gin.Context) (*models.Organizer, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid id")
		return nil, false
	}
	o, err := h.store.GetByID(c.Request.Context(), id)
	if errors.Is(err, apperr.ErrNoRows) {
		response.NotFound(c, "Organizer not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("get organizer", zap.Error(err), zap.String("organizer_id", id.String()))
		response.Internal(c, "Server error")
		return nil, false
	}
	return o, true
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
	fh, err := c.FormFile("photo")
	if err != nil {
		return req, true
	}
	rel, err := h.images.SaveImage(fh)
	if err != nil {
		if storage.IsRejected(err) {
			response.BadRequest(c, err.Error())
		} else {
			h.logger.Error("save organizer photo", zap.Error(err))
			response.Internal(c, "Failed to save upload")
		}
		return req, false
	}
	req.Photo = &rel
	return req, true
}

func (h *Handler) remove(c *gin.Context, u string) {
	if h.files == nil || !storage.IsLocalPath(u) {
		return
	}
	if err := h.files.Remove(c.Request.Context(), u); err != nil {
		h.logger.Warn("remove organizer photo", zap.Error(err), zap.String("path", u))
	}
}
