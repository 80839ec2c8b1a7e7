package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio/api/apperr"
	"portfolio/api/models"
	"portfolio/api/services"
	"portfolio/api/store"
	"portfolio/api/utils"
)

type AnalyticsHandlers struct {
	recorder *services.Recorder
	stats    *services.StatsService
}

func NewAnalyticsHandlers(rec *services.Recorder, stats *services.StatsService) *AnalyticsHandlers {
	return &AnalyticsHandlers{recorder: rec, stats: stats}
}

// TrackEvent stores one client event and answers once it is persisted.
func (h *AnalyticsHandlers) TrackEvent(c *gin.Context) {
	var req models.TrackRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	event, err := h.recorder.Record(c.Request.Context(), services.TrackInput{
		Type:      models.EventType(strings.TrimSpace(req.Type)),
		Page:      req.Page,
		SessionID: req.SessionID,
		Metadata:  req.Metadata,
	}, utils.RequestInfo(c, h.recorder.Now()))
	if err != nil {
		_ = c.Error(err)
		return
	}

	created(c, "Event tracked successfully", gin.H{
		"id":        event.ID,
		"timestamp": event.CreatedAt,
	})
}

// GetStats returns the overview and breakdowns for the optional
// startDate, endDate, type and page filters.
func (h *AnalyticsHandlers) GetStats(c *gin.Context) {
	ve := &apperr.ValidationError{}
	from, err := utils.ParseTimeParam(c.Query("startDate"), false)
	if err != nil {
		ve.Add("startDate", err.Error())
	}
	to, err := utils.ParseTimeParam(c.Query("endDate"), true)
	if err != nil {
		ve.Add("endDate", err.Error())
	}
	if err := ve.OrNil(); err != nil {
		_ = c.Error(err)
		return
	}

	sum, err := h.stats.Summarize(c.Request.Context(), store.EventFilter{
		From: from,
		To:   to,
		Type: models.EventType(strings.TrimSpace(c.Query("type"))),
		Page: strings.TrimSpace(c.Query("page")),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, sum)
}

func (h *AnalyticsHandlers) GetRecent(c *gin.Context) {
	limit, err := utils.ParseIntParam(c.Query("limit"), services.DefaultRecentLimit, 1, services.MaxRecentLimit)
	if err != nil {
		_ = c.Error(apperr.Validation(apperr.FieldError{Field: "limit", Message: err.Error()}))
		return
	}

	events, err := h.stats.Recent(c.Request.Context(), limit, models.EventType(strings.TrimSpace(c.Query("type"))))
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, events)
}

func (h *AnalyticsHandlers) GetPopular(c *gin.Context) {
	days, err := utils.ParseIntParam(c.Query("days"), services.DefaultPopularDays, 1, services.MaxPopularDays)
	if err != nil {
		_ = c.Error(apperr.Validation(apperr.FieldError{Field: "days", Message: err.Error()}))
		return
	}

	popular, err := h.stats.Popular(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, popular)
}
