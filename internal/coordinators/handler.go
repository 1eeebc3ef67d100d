package coordinators

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
	List(ctx context.Context) ([]models.Coordinator, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Coordinator, error)
	Create(ctx context.Context, fc *models.Coordinator) error
	Update(ctx context.Context, fc *models.Coordinator) error
	Delete(ctx context.Context, id uuid.UUID) (*models.Coordinator, error)
}

type FileRemover interface {
	Remove(ctx context.Context, u string) error
}

// Request is the create/update body. A multipart "photo" file replaces Photo.
type Request struct {
	Name       *string `json:"name" form:"name"`
	Department *string `json:"department" form:"department"`
	Contact    *string `json:"contact" form:"contact"`
	Photo      *string `json:"photo" form:"-"`
	Bio        *string `json:"bio" form:"bio"`
}

func (r Request) apply(fc *models.Coordinator) error {
	if r.Name != nil {
		fc.Name = strings.TrimSpace(*r.Name)
	}
	if fc.Name == "" {
		return apperr.Invalid("Name is required")
	}
	assign(&fc.Department, r.Department)
	assign(&fc.Contact, r.Contact)
	assign(&fc.Photo, r.Photo)
	assign(&fc.Bio, r.Bio)
	return nil
}

func assign(dst, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// Handler serves the admin faculty coordinator endpoints.
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
		h.logger.Error("list coordinators", zap.Error(err))
		response.Internal(c, "Server error")
		return
	}
	response.OK(c, list)
}

func (h *Handler) Get(c *gin.Context) {
	if fc, ok := h.load(c); ok {
		response.OK(c, fc)
	}
}

func (h *Handler) Create(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	var fc models.Coordinator
	if err := req.apply(&fc); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.Create(c.Request.Context(), &fc); err != nil {
		h.logger.Error("create coordinator", zap.Error(err))
		response.Internal(c, "Failed to create coordinator")
		return
	}
	response.Created(c, fc)
}

func (h *Handler) Update(c *gin.Context) {
	fc, ok := h.load(c)
	if !ok {
		return
	}
	req, ok := h.bind(c)
	if !ok {
		return
	}
	oldPhoto := fc.Photo
	if err := req.apply(fc); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.Update(c.Request.Context(), fc); err != nil {
		if errors.Is(err, apperr.ErrNoRows) {
			response.NotFound(c, "Coordinator not found")
			return
		}
		h.logger.Error("update coordinator", zap.Error(err), zap.String("coordinator_id", fc.ID.String()))
		response.Internal(c, "Failed to update coordinator")
		return
	}
	if oldPhoto != fc.Photo {
		h.remove(c, oldPhoto)
	}
	response.OKMessage(c, "Updated", fc)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid id")
		return
	}
	fc, err := h.store.Delete(c.Request.Context(), id)
	if errors.Is(err, apperr.ErrNoRows) {
		response.NotFound(c, "Coordinator not found")
		return
	}
	if err != nil {
		h.logger.Error("delete coordinator", zap.Error(err), zap.String("coordinator_id", id.String()))
		response.Internal(c, "Failed to delete coordinator")
		return
	}
	h.remove(c, fc.Photo)
	response.OKMessage(c, "Deleted", nil)
}

func (h *Handler) load(c *gin.Context) (*models.Coordinator, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid id")
		return nil, false
	}
	fc, err := h.store.GetByID(c.Request.Context(), id)
	if errors.Is(err, apperr.ErrNoRows) {
		response.NotFound(c, "Coordinator not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("get coordinator", zap.Error(err), zap.String("coordinator_id", id.String()))
		response.Internal(c, "Server error")
		return nil, false
	}
	return fc, true
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
			h.logger.Error("save coordinator photo", zap.Error(err))
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
		h.logger.Warn("remove coordinator photo", zap.Error(err), zap.String("path", u))
	}
}
