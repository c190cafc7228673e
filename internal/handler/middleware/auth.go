package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"courtdesk/internal/pkg/jwt"
	"courtdesk/internal/usecase/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthMiddleware struct {
	tokens *jwt.Service
}

const (
	ctxUserIDKey    = "user_id"
	ctxComplexIDKey = "complex_id"
)

func NewAuthMiddleware(tokens *jwt.Service) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimSpace(authHeader[len("Bearer "):])
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Access token required",
			})
			c.Abort()
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			slog.Warn("Token validation failed in auth middleware", "error", err.Error())
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxComplexIDKey, claims.ComplexID)
		c.Set("jwt_claims", map[string]any{
			"user_id":    claims.UserID.String(),
			"complex_id": claims.ComplexID.String(),
		})
		c.Next()
	}
}

// GetScope returns the authenticated caller identity set by RequireAuth.
func GetScope(c *gin.Context) (shared.Scope, bool) {
	userID, uok := c.Get(ctxUserIDKey)
	complexID, cok := c.Get(ctxComplexIDKey)
	if !uok || !cok {
		return shared.Scope{}, false
	}

	uid, uok := userID.(uuid.UUID)
	cid, cok := complexID.(uuid.UUID)
	if !uok || !cok {
		return shared.Scope{}, false
	}
	return shared.Scope{UserID: uid, ComplexID: cid}, true
}
