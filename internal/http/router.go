package httpx

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/http/handlers"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/http/middleware"
)

// RouterConfig carries the cross-cutting router settings
type RouterConfig struct {
	ServiceName      string
	AllowOrigins     []string
	OTPRatePerMinute int
}

func BuildRouter(cfg RouterConfig, ah *handlers.AuthHandlers, ph *handlers.PolicyHandlers, jwtmw *middleware.AuthMW, guard *middleware.RoleGuard, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(middleware.RequestLogger(logger))
	if len(cfg.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.AllowOrigins,
			AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposeHeaders: []string{"X-Request-ID", "Retry-After"},
		}))
	}

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	otpLimiter := middleware.NewRateLimiter(cfg.OTPRatePerMinute)

	auth := r.Group("/auth")
	otp := auth.Group("/otp", otpLimiter.Handler())
	otp.POST("/request", ah.RequestOTP)
	otp.GET("/resend", ah.ResendIn)
	otp.POST("/verify", ah.VerifyOTP)

	auth.GET("/authorize", jwtmw.OptionalJWT(), ah.Authorize)

	session := auth.Group("/").Use(jwtmw.WithJWT())
	session.GET("/session", ah.Session)
	session.POST("/session/role", ah.SelectRole)
	session.POST("/session/switch", ah.SwitchRole)
	session.POST("/logout", ah.Logout)

	api := r.Group("/api").Use(jwtmw.WithJWT(), guard.Require())
	api.GET("/me/profile", ah.Profile)

	adm := r.Group("/admin").Use(jwtmw.WithJWT(), guard.Require(domain.RoleAdmin))
	adm.GET("/policies", ph.List)
	adm.POST("/policies", ph.Add)
	adm.DELETE("/policies", ph.Remove)

	return r
}
