package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
	"go.uber.org/zap"
)

// CasbinMW enforces role policies on authenticated routes
type CasbinMW struct {
	policySvc domain.PolicyService
	log       *zap.Logger
}

// NewCasbinMW creates new casbin middleware wrapper
func NewCasbinMW(policySvc domain.PolicyService, log *zap.Logger) *CasbinMW {
	return &CasbinMW{policySvc: policySvc, log: log.Named("authz")}
}

// Enforce returns the casbin authorization middleware. It must run after
// AuthMiddleware.
func (mw *CasbinMW) Enforce() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		role := c.GetString(ContextUserRole)
		if userID == "" || role == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID or role not found in token"})
			c.Abort()
			return
		}

		path := c.Request.URL.Path
		method := c.Request.Method

		allowed, err := mw.policySvc.CheckPermission(role, path, method)
		if err != nil {
			mw.log.Error("authorization check failed", zap.String("role", role), zap.String("path", path), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
			c.Abort()
			return
		}

		if !allowed {
			mw.log.Info("access denied",
				zap.String("user_id", userID),
				zap.String("role", role),
				zap.String("method", method),
				zap.String("path", path))
			c.JSON(http.StatusForbidden, gin.H{"error": "Access Denied"})
			c.Abort()
			return
		}

		c.Next()
	})
}
