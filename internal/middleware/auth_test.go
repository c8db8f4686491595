package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/esyasil/clearroom/internal/config"
	"github.com/esyasil/clearroom/pkg/models"
)

func newTestAuthenticator() *Authenticator {
	return NewAuthenticator(config.AuthConfig{
		JWTSecret:   "test-secret",
		TokenExpiry: 1 * time.Hour,
	})
}

func TestGenerateToken(t *testing.T) {
	auth := newTestAuthenticator()

	token, err := auth.GenerateToken("test-user-id", "test@example.com", models.UserRoleUser)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newTestAuthenticator()

	tests := []struct {
		name           string
		token          string
		expectedStatus int
	}{
		{
			name:           "Missing authorization header",
			token:          "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid token format",
			token:          "InvalidToken",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Garbage bearer token",
			token:          "Bearer not-a-jwt",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			req := httptest.NewRequest("POST", "/test", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", tt.token)
			}
			c.Request = req

			auth.Middleware()(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestAuthMiddlewareWithValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newTestAuthenticator()

	userID := "test-user-id"
	token, err := auth.GenerateToken(userID, "test@example.com", models.UserRoleUser)
	assert.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest("POST", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c.Request = req

	auth.Middleware()(c)
	assert.False(t, c.IsAborted())

	extractedUserID, exists := GetUserID(c)
	assert.True(t, exists)
	assert.Equal(t, userID, extractedUserID)

	claims, exists := GetClaims(c)
	assert.True(t, exists)
	assert.Equal(t, "test@example.com", claims.Email)
}

func TestAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)

	other := NewAuthenticator(config.AuthConfig{JWTSecret: "other-secret", TokenExpiry: time.Hour})
	token, err := other.GenerateToken("test-user-id", "test@example.com", models.UserRoleUser)
	assert.NoError(t, err)

	auth := newTestAuthenticator()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest("POST", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c.Request = req

	auth.Middleware()(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newTestAuthenticator()

	tests := []struct {
		name           string
		role           models.UserRole
		expectedStatus int
	}{
		{
			name:           "Admin role allowed",
			role:           models.UserRoleAdmin,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "User role forbidden",
			role:           models.UserRoleUser,
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := auth.GenerateToken("test-user-id", "test@example.com", tt.role)
			assert.NoError(t, err)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			req := httptest.NewRequest("GET", "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			c.Request = req

			auth.Middleware()(c)
			if !c.IsAborted() {
				auth.RequireAdmin()(c)
			}
			if !c.IsAborted() {
				c.Status(http.StatusOK)
			}

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}
