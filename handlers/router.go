package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"portfolio/api/config"
	"portfolio/api/metrics"
	"portfolio/api/middleware"
	"portfolio/api/models"
	"portfolio/api/services"
)

// Deps is everything the router wires into handlers and middleware.
type Deps struct {
	Config   config.Config
	Log      *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	Recorder *services.Recorder
	Stats    *services.StatsService
	Contacts *services.ContactService
	Queue    middleware.TaskQueue
	Limiter  middleware.Limiter
	Checks   []HealthCheck
}

// NewRouter builds the gin engine serving /api and /metrics.
func NewRouter(d Deps) (*gin.Engine, error) {
	cfg := d.Config
	production := cfg.IsProduction()

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.App.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	r.Use(
		middleware.Recovery(d.Log, production),
		middleware.RequestLogger(d.Log),
		middleware.Instrument(d.Metrics),
		middleware.SecurityHeaders(production),
		middleware.CORS(cfg.App.FrontendURL),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/api/resume"})),
		middleware.ErrorHandler(d.Log, production),
		// Engine level: NoRoute requests under /api pass through these as well.
		apiOnly(middleware.RateLimit(d.Limiter, cfg.RateLimit.Max, d.Log, d.Metrics)),
		apiOnly(middleware.TrackAPIUsage(d.Recorder, d.Queue, d.Log)),
	)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	health := NewHealthHandlers(cfg.App.Env, cfg.App.Version, d.Checks)
	analytics := NewAnalyticsHandlers(d.Recorder, d.Stats)
	contact := NewContactHandlers(d.Contacts)
	resume := NewResumeHandlers(cfg.ResumePath)

	api := r.Group("/api")
	{
		api.GET("", health.Info)
		api.GET("/health", health.Health)
		api.GET("/health/ready", health.Ready)

		analyticsGroup := api.Group("/analytics")
		{
			analyticsGroup.POST("/track", analytics.TrackEvent)
			analyticsGroup.GET("/stats", analytics.GetStats)
			analyticsGroup.GET("/recent", analytics.GetRecent)
			analyticsGroup.GET("/popular", analytics.GetPopular)
		}

		contactGroup := api.Group("/contact")
		{
			contactGroup.POST("", contact.Submit)
			contactGroup.GET("", contact.List)
			contactGroup.PUT("/:id/status", contact.UpdateStatus)
		}

		api.GET("/resume",
			middleware.TrackResponse(models.EventResumeDownload, d.Recorder, d.Queue, ResumeMetadata, d.Log),
			resume.Download,
		)
	}

	r.NoRoute(health.NotFound)
	return r, nil
}

func apiOnly(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p := c.Request.URL.Path; p != "/api" && !strings.HasPrefix(p, "/api/") {
			c.Next()
			return
		}
		h(c)
	}
}
