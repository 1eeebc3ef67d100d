package media

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventsite/cms/internal/middleware"
	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
	"github.com/eventsite/cms/pkg/response"
	"github.com/eventsite/cms/pkg/storage"
)

// Handler serves public media reads and admin media management.
type Handler struct {
	svc    *Service
	images storage.ImageSaver
	logger *zap.Logger
}

// NewHandler creates a media handler.
func NewHandler(svc *Service, images storage.ImageSaver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, images: images, logger: logger}
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.logger.Error(op, zap.Error(err), zap.String("path", c.Request.URL.Path))
	}
	response.Error(c, err)
}

// List handles GET /media?page=&limit=&type=&q=.
func (h *Handler) List(c *gin.Context) {
	p := ParseListParams(c.Query("page"), c.Query("limit"), c.Query("type"), c.Query("q"))
	res, err := h.svc.List(c.Request.Context(), p)
	if err != nil {
		h.fail(c, "list media", err)
		return
	}
	response.Page(c, res.Items, response.Meta{Page: res.Page, Limit: res.Limit, Total: res.Total, Pages: res.Pages})
}

// Get handles GET /media/:id.
func (h *Handler) Get(c *gin.Context) {
	m, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get media", err)
		return
	}
	response.OK(c, m)
}

// ListForEvent handles GET /media/event/:eventId.
func (h *Handler) ListForEvent(c *gin.Context) {
	items, err := h.svc.ListForEvent(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		h.fail(c, "list event media", err)
		return
	}
	response.OK(c, items)
}

// CreateRequest is the JSON or multipart body for POST /admin/media.
// With a multipart "file" the type defaults to image and url is ignored.
type CreateRequest struct {
	Type        string `json:"type" form:"type"`
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	URL         string `json:"url" form:"url"`
}

// Create handles POST /admin/media.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if fh, err := c.FormFile("file"); err == nil {
		if req.Type == "" {
			req.Type = string(models.MediaImage)
		}
		if req.Type != string(models.MediaImage) {
			response.BadRequest(c, "Uploaded files must be images")
			return
		}
		rel, err := h.images.SaveImage(fh)
		if err != nil {
			h.uploadFailed(c, err)
			return
		}
		req.URL = rel
	}

	in := CreateInput{Type: req.Type, Title: req.Title, Description: req.Description, URL: req.URL}
	if id, ok := middleware.UserID(c); ok {
		in.CreatedBy = &id
	}
	m, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "create media", err)
		return
	}
	response.Created(c, m)
}

// UpdateRequest is the body for PUT /admin/media/:id. Omitted fields are left unchanged.
type UpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
}

// Update handles PUT /admin/media/:id.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	m, err := h.svc.Update(c.Request.Context(), c.Param("id"), UpdateInput(req))
	if err != nil {
		h.fail(c, "update media", err)
		return
	}
	response.OKMessage(c, "Updated", m)
}

// Delete handles DELETE /admin/media/:id.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete media", err)
		return
	}
	response.OKMessage(c, "Deleted", nil)
}

func (h *Handler) uploadFailed(c *gin.Context, err error) {
	if storage.IsRejected(err) {
		response.BadRequest(c, err.Error())
		return
	}
	h.logger.Error("save upload", zap.Error(err))
	response.Internal(c, "Failed to save upload")
}
