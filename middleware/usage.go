package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio/api/async"
	"portfolio/api/models"
	"portfolio/api/services"
	"portfolio/api/utils"
)

// EventRecorder persists analytics events.
type EventRecorder interface {
	Record(ctx context.Context, in services.TrackInput, rc models.RequestContext) (*models.AnalyticsEvent, error)
	RecordSystem(ctx context.Context, in services.TrackInput, rc models.RequestContext) (*models.AnalyticsEvent, error)
}

// TaskQueue runs work after the response has been sent.
type TaskQueue interface {
	Submit(name string, fn async.Task) bool
}

// TrackAPIUsage schedules an api_request event for every request outside
// the health and analytics endpoints. The request never waits on it.
func TrackAPIUsage(rec EventRecorder, q TaskQueue, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.Contains(path, "/health") || strings.Contains(path, "/analytics") {
			c.Next()
			return
		}

		rc := utils.RequestInfo(c, timeNow())
		in := services.TrackInput{
			Type:      models.EventAPIRequest,
			Page:      utils.Truncate(c.Request.RequestURI, models.MaxPageLength),
			SessionID: rc.SessionID,
			Metadata:  usageMetadata(c, log),
		}
		q.Submit("api_usage", func(ctx context.Context) error {
			_, err := rec.RecordSystem(ctx, in, rc)
			return err
		})

		c.Next()
	}
}

func usageMetadata(c *gin.Context, log *zap.Logger) models.Metadata {
	query := map[string]any{}
	for k, vs := range c.Request.URL.Query() {
		if len(vs) == 1 {
			query[k] = vs[0]
		} else {
			query[k] = vs
		}
	}
	md, err := models.NewMetadata(map[string]any{
		"method":   c.Request.Method,
		"endpoint": c.Request.URL.Path,
		"query":    query,
	})
	if err != nil {
		log.Debug("usage metadata not encodable", zap.Error(err))
		return models.Metadata{}
	}
	return md
}
