package router

import (
	"time"

	"github.com/bloomforlungs/bloom/internal/handlers"
	"github.com/bloomforlungs/bloom/internal/logging"
	"github.com/bloomforlungs/bloom/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(h *handlers.Handler, origins []string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(logging.GinLogger(logger), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	requireAuth := middleware.AuthMiddleware(h.Issuer)
	optionalAuth := middleware.OptionalAuth(h.Issuer)

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/ws/pledges", h.StreamPledges)

		auth := api.Group("/auth")
		{
			auth.GET("/google", h.BeginSignIn)
			auth.GET("/google/callback", h.SignInCallback)
			auth.POST("/logout", optionalAuth, h.Logout)
			auth.GET("/me", requireAuth, h.Me)
		}

		form := api.Group("/pledge/form")
		{
			form.POST("", requireAuth, h.OpenForm)
			form.GET("", requireAuth, h.FormStatus)
			form.DELETE("", requireAuth, h.CloseForm)
			form.POST("/check", optionalAuth, h.CheckPledge)
		}

		pledges := api.Group("/pledges")
		{
			pledges.POST("", optionalAuth, h.SubmitPledge)
			pledges.GET("/mine", requireAuth, h.MyPledge)
			pledges.GET("/count", h.PledgeCount)
		}
	}

	return r
}
