package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookworm-labs/books-api/internal/middleware"
	"github.com/bookworm-labs/books-api/internal/service"
)

func authRouter(validator service.TokenValidator, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Auth(validator))
	handlers := append(extra, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString("user_id"),
			"email":   c.GetString("email"),
			"role":    c.GetString("role"),
		})
	})
	r.GET("/whoami", handlers...)
	return r
}

func authRequest(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMissingHeaderPassesThrough(t *testing.T) {
	t.Parallel()

	r := authRouter(&fakeValidator{err: errors.New("should not be called")})

	w := authRequest(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":""`)
}

func TestAuthNonBearerSchemePassesThrough(t *testing.T) {
	t.Parallel()

	r := authRouter(&fakeValidator{err: errors.New("should not be called")})

	w := authRequest(r, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthInvalidTokenRejectedGenerically(t *testing.T) {
	t.Parallel()

	for _, reason := range []string{"token expired", "signature invalid", "malformed"} {
		r := authRouter(&fakeValidator{err: errors.New(reason)})

		w := authRequest(r, "Bearer bad-token")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Invalid or expired token"}`, w.Body.String())
		assert.NotContains(t, w.Body.String(), reason)
	}
}

func TestAuthValidTokenSetsIdentity(t *testing.T) {
	t.Parallel()

	r := authRouter(&fakeValidator{claims: &service.Claims{
		UserID: "u-1",
		Email:  "reader@example.com",
		Role:   "admin",
	}})

	w := authRequest(r, "Bearer good-token")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u-1","email":"reader@example.com","role":"admin"}`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		validator  *fakeValidator
		header     string
		wantStatus int
	}{
		{
			name:       "unauthenticated",
			validator:  &fakeValidator{},
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong role",
			validator:  &fakeValidator{claims: &service.Claims{UserID: "u-1", Role: "user"}},
			header:     "Bearer t",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "admin",
			validator:  &fakeValidator{claims: &service.Claims{UserID: "u-1", Role: "admin"}},
			header:     "Bearer t",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := authRouter(tt.validator, middleware.RequireRole("admin"))
			w := authRequest(r, tt.header)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
