package sponsors

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
	List(ctx context.Context) ([]models.Sponsor, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Sponsor, error)
	Create(ctx context.Context, s *models.Sponsor) error
	Update(ctx context.Context, s *models.Sponsor) error
	Delete(ctx context.Context, id uuid.UUID) (*models.Sponsor, error)
}

type FileRemover interface {
	Remove(ctx context.Context, u string) error
}

// Request is the create/update body. Multipart uploads put the image in "logo".
type Request struct {
	Name        *string `json:"name" form:"name"`
	Website     *string `json:"website" form:"website"`
	Description *string `json:"description" form:"description"`
	Logo        *string `json:"logo" form:"-"`
	LogoURL     *string `json:"logoUrl" form:"logoUrl"`
}

func (r Request) apply(s *models.Sponsor) error {
	if r.Name != nil {
		s.Name = strings.TrimSpace(*r.Name)
	}
	if s.Name == "" {
		return apperr.Invalid("Name is required")
	}
	for dst, v := range map[*string]*string{
		&s.Website:     r.Website,
		&s.Description: r.Description,
		&s.Logo:        r.Logo,
		&s.LogoURL:     r.LogoURL,
	} {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	return nil
}

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
		h.logger.Error("list sponsors", zap.Error(err))
		response.Internal(c, "Server error")
		return
	}
	response.OK(c, list)
}

func (h *Handler) Get(c *gin.Context) {
	if s, ok := h.load(c); ok {
		response.OK(c, s)
	}
}

func (h *Handler) Create(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	var s models.Sponsor
	if err := req.apply(&s); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.Create(c.Request.Context(), &s); err != nil {
		h.logger.Error("create sponsor", zap.Error(err))
		response.Internal(c, "Failed to create sponsor")
		return
	}
	response.Created(c, s)
}

func (h *Handler) Update(c *gin.Context) {
	s, ok := h.load(c)
	if !ok {
		return
	}
	req, ok := h.bind(c)
	if !ok {
		return
	}
	oldLogo := s.Logo
	if err := req.apply(s); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.Update(c.Request.Context(), s); err != nil {
		if errors.Is(err, apperr.ErrNoRows) {
			response.NotFound(c, "Sponsor not found")
			return
		}
		h.logger.Error("update sponsor", zap.Error(err), zap.String("sponsor_id", s.ID.String()))
		response.Internal(c, "Failed to update sponsor")
		return
	}
	if oldLogo != s.Logo {
		h.remove(c, oldLogo)
	}
	response.OKMessage(c, "Updated", s)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid id")
		return
	}
	s, err := h.store.Delete(c.Request.Context(), id)
	if errors.Is(err, apperr.ErrNoRows) {
		response.NotFound(c, "Sponsor not found")
		return
	}
	if err != nil {
		h.logger.Error("delete sponsor", zap.Error(err), zap.String("sponsor_id", id.String()))
		response.Internal(c, "Failed to delete sponsor")
		return
	}
	h.remove(c, s.Logo)
	response.OKMessage(c, "Deleted", nil)
}

func (h *Handler) load(c *gin.Context) (*models.Sponsor, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid id")
		return nil, false
	}
	s, err := h.store.GetByID(c.Request.Context(), id)
	if errors.Is(err, apperr.ErrNoRows) {
		response.NotFound(c, "Sponsor not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("get sponsor", zap.Error(err), zap.String("sponsor_id", id.String()))
		response.Internal(c, "Server error")
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
	fh, err := c.FormFile("logo")
	if err != nil {
		return req, true
	}
	rel, err := h.images.SaveImage(fh)
	if err != nil {
		if storage.IsRejected(err) {
			response.BadRequest(c, err.Error())
		} else {
			h.logger.Error("save sponsor logo", zap.Error(err))
			response.Internal(c, "Failed to save upload")
		}
		return req, false
	}
	req.Logo = &rel
	return req, true
}

func (h *Handler) remove(c *gin.Context, u string) {
	if h.files == nil || !storage.IsLocalPath(u) {
		return
	}
	if err := h.files.Remove(c.Request.Context(), u); err != nil {
		h.logger.Warn("remove sponsor logo", zap.Error(err), zap.String("path", u))
	}
}
