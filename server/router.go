package server

import (
	"time"

	httpHandler "crosspost/interfaces/http"
	"crosspost/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Health      httpHandler.IHealthHandler
	Publish     httpHandler.ITikTokPublishHandler
	Schedule    httpHandler.IScheduleHandler
	TikTokOAuth httpHandler.ITikTokOAuthHandler
	// Stream serves the SSE feed of publish events.
	Stream gin.HandlerFunc
}

func InitiateRouter(h Handlers, secretKey string, allowedOrigins []string, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	auth := middleware.Auth(secretKey)
	api := router.Group("api")
	api.Use(auth)

	router.GET("/healthz", h.Health.Healthz)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	if h.TikTokOAuth != nil {
		router.GET("/auth/tiktok", auth, h.TikTokOAuth.GetAuthURL)
		router.GET("/auth/tiktok/callback", h.TikTokOAuth.Callback)
	}

	tiktok := api.Group("/tiktok")
	{
		tiktok.POST("/publish", h.Publish.Publish)
		if h.Stream != nil {
			tiktok.GET("/stream", h.Stream)
		}
	}

	if h.Schedule != nil {
		schedules := api.Group("/schedules")
		{
			schedules.POST("/:id/publish", h.Schedule.Publish)
			schedules.GET("/:id/result", h.Schedule.Result)
		}
	}

	return router
}
