package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcrm/internal/authz"
)

var testSecret = []byte("test-secret")

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), AuthMiddleware(testSecret), ReadOnlyGuard())
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt("user_id"), "role_id": c.GetInt("role_id")})
	}
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/events/1", handler)
	r.POST("/api/events", RequireRoles("create events", authz.EventEditors...), handler)
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func token(t *testing.T, role int) string {
	t.Helper()
	tok, err := IssueToken(testSecret, 7, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/events/1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/events/1", "garbage").Code)

	w := do(r, http.MethodGet, "/api/events/1", token(t, authz.RoleStaff))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7,"role_id":10}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestAuthMiddleware_RejectsForeignAndExpiredTokens(t *testing.T) {
	r := newRouter()

	foreign, err := IssueToken([]byte("other-secret"), 7, authz.RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/events/1", foreign).Code)

	expired, err := IssueToken(testSecret, 7, authz.RoleAdmin, -time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/events/1", expired).Code)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 7, RoleID: authz.RoleAdmin}).SignedString(testSecret)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/events/1", noExp).Code)
}

func TestRoleGuards(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/events", token(t, authz.RoleCoordinator)).Code)
	w := do(r, http.MethodPost, "/api/events", token(t, authz.RoleStaff))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"role staff cannot create events"}`, w.Body.String())
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/events", token(t, authz.RoleAudit)).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/events/1", token(t, authz.RoleAudit)).Code)
}

func TestReadOnlyGuard(t *testing.T) {
	r := newRouter()

	w := do(r, http.MethodPost, "/api/events", token(t, authz.RoleAudit))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"role audit is read-only"}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/events/1", token(t, 99))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"unknown role"}`, w.Body.String())
}

func TestRequestID_KeepsValidIncomingID(t *testing.T) {
	r := newRouter()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "5f0c7a4e-4d7b-4a3c-9d51-6f7b2c1e9a10")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "5f0c7a4e-4d7b-4a3c-9d51-6f7b2c1e9a10", w.Header().Get(RequestIDHeader))
}
