package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"guidia_backend/internal/auth"
	"guidia_backend/internal/logger"
	"guidia_backend/internal/models"
	"guidia_backend/internal/services"
	"guidia_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token and stores userID/userRole on
// the context. Every rejection is written to the security audit log first;
// if that write fails the request is answered 500, not 401, because an
// unauditable rejection must not look like a normal one.
func AuthMiddleware(audit services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			rejectUnauthenticated(c, audit, "", "missing authorization header")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			rejectUnauthenticated(c, audit, "", "malformed authorization header")
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			rejectUnauthenticated(c, audit, "", fmt.Sprintf("token rejected: %v", err))
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userRole", string(claims.Role))

		ctx := logger.WithUserID(c.Request.Context(), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RoleMiddleware gates a route group to the given roles. Must run after
// AuthMiddleware.
func RoleMiddleware(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[string(r)] = true
	}

	return func(c *gin.Context) {
		role := c.GetString("userRole")
		if !allowed[role] {
			logger.CtxWarn(c.Request.Context(), "forbidden: role not allowed",
				"role", role, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
			c.Abort()
			return
		}
		c.Next()
	}
}

func rejectUnauthenticated(c *gin.Context, audit services.AuditService, actorID, reason string) {
	detail := fmt.Sprintf("%s (path=%s, ip=%s)", reason, c.Request.URL.Path, c.ClientIP())
	if _, err := audit.Record(actorID, models.AuditEventAuthFailure, detail); err != nil {
		logger.CtxWithError(c.Request.Context(), "auth failure could not be audited", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "AUDIT_WRITE_FAILED", "message": "Request could not be processed"},
		})
		return
	}

	logger.CtxWarn(c.Request.Context(), "authentication rejected", "reason", reason, "ip", c.ClientIP())
	apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authentication required"))
	c.Abort()
}
