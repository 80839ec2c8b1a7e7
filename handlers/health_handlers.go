package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 2 * time.Second

var availableEndpoints = []string{"/api/contact", "/api/analytics", "/api/health", "/api/resume"}

// HealthCheck is one dependency probed by the readiness endpoint.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandlers struct {
	env     string
	version string
	started time.Time
	checks  []HealthCheck

	Now func() time.Time
}

func NewHealthHandlers(env, version string, checks []HealthCheck) *HealthHandlers {
	return &HealthHandlers{
		env:     env,
		version: version,
		started: time.Now(),
		checks:  checks,
		Now:     time.Now,
	}
}

// Health is the liveness probe. It never touches dependencies.
func (h *HealthHandlers) Health(c *gin.Context) {
	now := h.Now()
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"timestamp":   now.UTC(),
		"uptime":      now.Sub(h.started).Seconds(),
		"environment": h.env,
		"version":     h.version,
	})
}

// Ready pings every dependency concurrently and answers 503 if any fails.
func (h *HealthHandlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	results := make([]string, len(h.checks))
	var g errgroup.Group
	for i, check := range h.checks {
		g.Go(func() error {
			if err := check.Ping(ctx); err != nil {
				results[i] = err.Error()
				return err
			}
			results[i] = "ok"
			return nil
		})
	}
	err := g.Wait()

	checks := make(gin.H, len(h.checks))
	for i, check := range h.checks {
		checks[check.Name] = results[i]
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}

func (h *HealthHandlers) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Portfolio API Server",
		"version": h.version,
		"endpoints": gin.H{
			"contact":   "/api/contact",
			"analytics": "/api/analytics",
			"health":    "/api/health",
			"resume":    "/api/resume",
		},
	})
}

// NotFound answers unmatched routes; API paths also list the known endpoints.
func (h *HealthHandlers) NotFound(c *gin.Context) {
	path := c.Request.URL.Path
	if path == "/api" || strings.HasPrefix(path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{
			"success":            false,
			"error":              "API endpoint not found",
			"message":            "The endpoint " + c.Request.RequestURI + " does not exist",
			"availableEndpoints": availableEndpoints,
		})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Not found"})
}
