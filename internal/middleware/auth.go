package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicore/visit-api/internal/model"
	"github.com/clinicore/visit-api/pkg/auth"
	apperrors "github.com/clinicore/visit-api/pkg/errors"
	"github.com/clinicore/visit-api/pkg/httputil"
)

const (
	ContextParticipantID = "participant_id"
	ContextRole          = "participant_role"
)

type AuthMiddleware struct {
	jwtSvc auth.JWTService
}

func NewAuthMiddleware(jwtSvc auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtSvc: jwtSvc}
}

// Authenticate verifies the bearer token and sets participant identity in
// the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"message": "missing authorization header"}})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"message": "invalid authorization format"}})
			return
		}

		claims, err := m.jwtSvc.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"message": "invalid token"}})
			return
		}

		c.Set(ContextParticipantID, claims.ParticipantID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRole rejects the request unless the authenticated participant has
// one of the given roles.
func (m *AuthMiddleware) RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFrom(c)
		if !ok {
			httputil.RespondWithError(c, apperrors.Authorization("missing participant role"))
			c.Abort()
			return
		}
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		httputil.RespondWithError(c, apperrors.Authorization("operation not permitted for role "+string(role)))
		c.Abort()
	}
}

// ParticipantFrom returns the authenticated participant id from the context.
func ParticipantFrom(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ContextParticipantID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// RoleFrom returns the authenticated participant role from the context.
func RoleFrom(c *gin.Context) (model.Role, bool) {
	v, exists := c.Get(ContextRole)
	if !exists {
		return "", false
	}
	role, ok := v.(model.Role)
	return role, ok
}
