package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/esyasil/clearroom/internal/config"
	"github.com/esyasil/clearroom/pkg/models"
)

const (
	// AuthContextKey is the gin context key holding the caller's user id
	AuthContextKey = "user_id"

	// ClaimsContextKey is the gin context key holding the full token claims
	ClaimsContextKey = "claims"
)

// Claims represents JWT claims issued by the identity provider
type Claims struct {
	UserID string          `json:"user_id"`
	Email  string          `json:"email"`
	Name   string          `json:"name,omitempty"`
	Role   models.UserRole `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies request-scoped bearer credentials. The secret is
// injected at construction; handlers never read ambient session state.
type Authenticator struct {
	secret      []byte
	tokenExpiry time.Duration
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		secret:      []byte(cfg.JWTSecret),
		tokenExpiry: cfg.TokenExpiry,
	}
}

// Middleware validates the Authorization bearer token on every request
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
			c.Abort()
			return
		}

		claims, err := a.verify(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(AuthContextKey, claims.UserID)
		c.Set(ClaimsContextKey, claims)
		c.Next()
	}
}

// RequireAdmin rejects callers whose token lacks the admin role. Must run
// after Middleware.
func (a *Authenticator) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok || claims.Role != models.UserRoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GenerateToken issues a signed token, used by tests and tooling
func (a *Authenticator) GenerateToken(userID, email string, role models.UserRole) (string, error) {
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Authenticator) verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// GetUserID retrieves the user ID from the context
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(AuthContextKey)
	if !exists {
		return "", false
	}

	userIDStr, ok := userID.(string)
	return userIDStr, ok
}

// GetClaims retrieves the full token claims from the context
func GetClaims(c *gin.Context) (*Claims, bool) {
	value, exists := c.Get(ClaimsContextKey)
	if !exists {
		return nil, false
	}

	claims, ok := value.(*Claims)
	return claims, ok
}
