package sponsors

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
	"github.com/eventsite/cms/pkg/storage"
)

type memStore map[uuid.UUID]models.Sponsor

func (m memStore) List(context.Context) ([]models.Sponsor, error) {
	out := make([]models.Sponsor, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	return out, nil
}

func (m memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Sponsor, error) {
	s, ok := m[id]
	if !ok {
		return nil, apperr.ErrNoRows
	}
	return &s, nil
}

func (m memStore) Create(_ context.Context, s *models.Sponsor) error {
	s.ID = uuid.New()
	m[s.ID] = *s
	return nil
}

func (m memStore) Update(_ context.Context, s *models.Sponsor) error {
	if _, ok := m[s.ID]; !ok {
		return apperr.ErrNoRows
	}
	m[s.ID] = *s
	return nil
}

func (m memStore) Delete(_ context.Context, id uuid.UUID) (*models.Sponsor, error) {
	s, ok := m[id]
	if !ok {
		return nil, apperr.ErrNoRows
	}
	delete(m, id)
	return &s, nil
}

type saver struct{}

func (saver) SaveImage(fh *multipart.FileHeader) (string, error) {
	return storage.UploadsPrefix + fh.Filename, nil
}

type removed []string

func (r *removed) Remove(_ context.Context, u string) error {
	*r = append(*r, u)
	return nil
}

func TestHandler_SponsorLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memStore{}
	files := &removed{}
	h := NewHandler(store, saver{}, files, nil)
	r := gin.New()
	r.POST("/sponsors", h.Create)
	r.PUT("/sponsors/:id", h.Update)
	r.DELETE("/sponsors/:id", h.Delete)
	r.GET("/sponsors", h.List)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Acme"))
	require.NoError(t, mw.WriteField("website", "https://acme.example.com"))
	fw, err := mw.CreateFormFile("logo", "acme.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("\x89PNG"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/sponsors", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var env struct {
		Data models.Sponsor `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "uploads/acme.png", env.Data.Logo)
	assert.Equal(t, "https://acme.example.com", env.Data.Website)
	id := env.Data.ID.String()

	req = httptest.NewRequest(http.MethodPut, "/sponsors/"+id, bytes.NewBufferString(`{"logoUrl":"https://cdn.example.com/a.png","logo":""}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Acme", store[env.Data.ID].Name)
	assert.Equal(t, "https://cdn.example.com/a.png", store[env.Data.ID].LogoURL)
	assert.Equal(t, []string{"uploads/acme.png"}, []string(*files))

	req = httptest.NewRequest(http.MethodPost, "/sponsors", bytes.NewBufferString(`{"website":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/sponsors/"+id, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/sponsors/"+id, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
