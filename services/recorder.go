package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portfolio/api/apperr"
	"portfolio/api/metrics"
	"portfolio/api/models"
	"portfolio/api/store"
	"portfolio/api/utils"
)

// TrackInput is a candidate event before validation.
type TrackInput struct {
	Type      models.EventType
	Page      string
	SessionID string
	Metadata  models.Metadata
}

type trackFields struct {
	Page      string `json:"page" validate:"required,max=500"`
	SessionID string `json:"sessionId" validate:"required,max=100"`
}

// Recorder validates and persists single analytics events.
type Recorder struct {
	events  store.EventStore
	log     *zap.Logger
	metrics *metrics.Metrics

	Now func() time.Time
}

func NewRecorder(events store.EventStore, log *zap.Logger, m *metrics.Metrics) *Recorder {
	return &Recorder{
		events:  events,
		log:     log.Named("recorder"),
		metrics: m,
		Now:     time.Now,
	}
}

// Record stores one client event. Only the client event types are accepted.
func (r *Recorder) Record(ctx context.Context, in TrackInput, rc models.RequestContext) (*models.AnalyticsEvent, error) {
	return r.record(ctx, in, rc, false)
}

// RecordSystem stores an event produced by the server itself, such as api_request.
func (r *Recorder) RecordSystem(ctx context.Context, in TrackInput, rc models.RequestContext) (*models.AnalyticsEvent, error) {
	return r.record(ctx, in, rc, true)
}

func (r *Recorder) record(ctx context.Context, in TrackInput, rc models.RequestContext, system bool) (*models.AnalyticsEvent, error) {
	in.Page = strings.TrimSpace(in.Page)
	in.SessionID = strings.TrimSpace(in.SessionID)

	if err := validateTrack(in, system); err != nil {
		r.metrics.EventFailuresTotal.WithLabelValues(string(in.Type), "validation").Inc()
		return nil, err
	}

	rc = rc.Normalized()
	md := in.Metadata
	if md == nil {
		md = models.Metadata{}
	}

	event := models.AnalyticsEvent{
		ID:        uuid.NewString(),
		Type:      in.Type,
		Page:      in.Page,
		Referrer:  rc.Referrer,
		UserAgent: rc.UserAgent,
		IPAddress: rc.IPAddress,
		Device:    utils.ParseUserAgent(rc.UserAgent),
		SessionID: in.SessionID,
		Metadata:  md,
		CreatedAt: r.Now().UTC().Truncate(time.Millisecond),
	}

	if err := r.events.InsertEvents(ctx, []models.AnalyticsEvent{event}); err != nil {
		r.metrics.EventFailuresTotal.WithLabelValues(string(in.Type), "store").Inc()
		return nil, apperr.Dependency("record analytics event", err)
	}

	r.metrics.EventsRecordedTotal.WithLabelValues(string(event.Type)).Inc()
	r.log.Debug("analytics event recorded",
		zap.String("id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("page", event.Page),
	)
	return &event, nil
}

func validateTrack(in TrackInput, system bool) error {
	ve := &apperr.ValidationError{}

	switch {
	case in.Type == "":
		ve.Add("type", "is required")
	case system && !in.Type.IsKnown(), !system && !in.Type.IsClientType():
		ve.Add("type", "must be one of: "+joinTypes(models.ClientEventTypes))
	}

	if err := validateStruct(ve, trackFields{Page: in.Page, SessionID: in.SessionID}); err != nil {
		return err
	}

	if err := in.Metadata.Validate(); err != nil {
		ve.Add("metadata", err.Error())
	}
	return ve.OrNil()
}

func joinTypes(types []models.EventType) string {
	s := make([]string, len(types))
	for i, t := range types {
		s[i] = string(t)
	}
	return strings.Join(s, ", ")
}
