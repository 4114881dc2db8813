package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bloomforlungs/bloom/internal/auth"
	"github.com/bloomforlungs/bloom/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	issuer, err := auth.NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/", AuthMiddleware(issuer), func(ctx *gin.Context) {
		identity := ctx.MustGet(types.ContextUserKey).(types.Identity)
		ctx.String(http.StatusOK, identity.Email)
	})

	token, err := issuer.GenerateJWT(types.Identity{Email: "ada@example.com", Name: "Ada"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
		body   string
	}{
		{"missing", func(*http.Request) {}, http.StatusUnauthorized, "Authorization token is required"},
		{"bad scheme", func(r *http.Request) { r.Header.Set("Authorization", "Token "+token) }, http.StatusUnauthorized, "Bearer"},
		{"invalid", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, "Invalid or expired token"},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK, "ada@example.com"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: types.TokenCookie, Value: token}) }, http.StatusOK, "ada@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	issuer, err := auth.NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/", OptionalAuth(issuer), func(ctx *gin.Context) {
		identity, _ := ctx.Get(types.ContextUserKey)
		id, _ := identity.(types.Identity)
		ctx.String(http.StatusOK, "email=%s", id.Email)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "email=", w.Body.String())

	token, err := issuer.GenerateJWT(types.Identity{Email: "ada@example.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "email=ada@example.com", w.Body.String())
}
