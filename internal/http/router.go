package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/http/handlers"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/internal/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// APIPrefix is the global route prefix.
const APIPrefix = "/api/v1"

func BuildRouter(log *zap.Logger, ah *handlers.AuthHandlers, ph *handlers.PolicyHandlers, jwtmw *middleware.AuthMW, cb *middleware.CasbinMW) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group(APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register/payer", ah.RegisterPayer)
	auth.POST("/register/hospital", ah.RegisterHospital)
	auth.POST("/login", ah.Login)
	auth.POST("/verify-otp", ah.VerifyOTP)
	auth.POST("/social-login", ah.SocialLogin)
	auth.POST("/refresh", ah.Refresh)

	v := api.Group("/").Use(jwtmw.WithJWT(), cb.Enforce())
	v.GET("/auth/me", ah.Me)

	adm := api.Group("/admin").Use(jwtmw.WithJWT(), cb.Enforce())
	adm.GET("/policies", ph.List)
	adm.POST("/policies", ph.Add)
	adm.DELETE("/policies", ph.Remove)

	return r
}
