package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventsite/cms/internal/auth"
	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers map[uuid.UUID]*models.User

func (f fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, apperr.ErrNoRows
}

type failingUsers struct{}

func (failingUsers) GetByID(context.Context, uuid.UUID) (*models.User, error) {
	return nil, errors.New("db down")
}

func adminRouter(jwtSvc *auth.JWTService, users UserLookup) *gin.Engine {
	r := gin.New()
	r.GET("/admin", JWT(jwtSvc, users, nil), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, id.String())
	})
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAdminChain(t *testing.T) {
	t.Parallel()
	jwtSvc := auth.NewJWTService("secret", 8)
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	editor := &models.User{ID: uuid.New(), Role: models.RoleEditor}
	r := adminRouter(jwtSvc, fakeUsers{admin.ID: admin, editor.ID: editor})

	adminToken, err := jwtSvc.Generate(admin.ID, "admin")
	require.NoError(t, err)
	w := get(r, adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, admin.ID.String(), w.Body.String())

	// The stored role wins over the role in the token.
	editorToken, err := jwtSvc.Generate(editor.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(r, editorToken).Code)

	goneToken, err := jwtSvc.Generate(uuid.New(), "admin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, goneToken).Code)

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "garbage").Code)
}

func TestJWT_LookupFailure(t *testing.T) {
	t.Parallel()
	jwtSvc := auth.NewJWTService("secret", 8)
	token, err := jwtSvc.Generate(uuid.New(), "admin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, get(adminRouter(jwtSvc, failingUsers{}), token).Code)
}

func TestRateLimit_MemoryStore(t *testing.T) {
	t.Parallel()
	store, err := NewLimiterStore(nil)
	require.NoError(t, err)
	mw, err := RateLimit(store, "2-M", nil)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/", mw, func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_BadFormat(t *testing.T) {
	t.Parallel()
	store, err := NewLimiterStore(nil)
	require.NoError(t, err)
	_, err = RateLimit(store, "ten per minute", nil)
	assert.Error(t, err)
}

func TestCORS(t *testing.T) {
	t.Parallel()
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
