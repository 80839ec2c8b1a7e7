package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"portfolio/api/apperr"
	"portfolio/api/metrics"
	"portfolio/api/models"
	"portfolio/api/store"
)

var fixedNow = time.Date(2024, 6, 15, 10, 30, 0, 123456789, time.UTC)

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

func newTestRecorder(t *testing.T, events store.EventStore) (*Recorder, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewNop()
	r := NewRecorder(events, zaptest.NewLogger(t), m)
	r.Now = func() time.Time { return fixedNow }
	return r, m
}

type failingEventStore struct {
	store.EventStore
}

func (failingEventStore) InsertEvents(ctx context.Context, events []models.AnalyticsEvent) error {
	return errors.New("connection refused")
}

func TestRecorder_Record(t *testing.T) {
	events := store.NewMemoryEventStore()
	r, m := newTestRecorder(t, events)

	md, err := models.NewMetadata(map[string]any{"projectId": "p1", "position": 3})
	require.NoError(t, err)

	got, err := r.Record(context.Background(), TrackInput{
		Type:      models.EventProjectClick,
		Page:      "  /projects  ",
		SessionID: "s-1",
		Metadata:  md,
	}, models.RequestContext{IPAddress: "203.0.113.4", UserAgent: iphoneUA, Referrer: "https://example.com/"})
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "/projects", got.Page)
	assert.Equal(t, fixedNow.Truncate(time.Millisecond), got.CreatedAt)
	assert.Equal(t, models.DeviceInfo{Type: "mobile", Browser: "Safari", OS: "iOS"}, got.Device)

	stored := events.Events()
	require.Len(t, stored, 1)
	assert.Equal(t, *got, stored[0])
	assert.JSONEq(t, `3`, string(stored[0].Metadata["position"]))
	assert.Equal(t, "https://example.com/", stored[0].Referrer)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsRecordedTotal.WithLabelValues("project_click")))
}

func TestRecorder_MissingClientFieldsBecomeUnknown(t *testing.T) {
	events := store.NewMemoryEventStore()
	r, _ := newTestRecorder(t, events)

	got, err := r.Record(context.Background(), TrackInput{Type: models.EventPageView, Page: "/", SessionID: "s"}, models.RequestContext{})
	require.NoError(t, err)

	assert.Equal(t, models.Unknown, got.IPAddress)
	assert.Equal(t, models.Unknown, got.UserAgent)
	assert.Equal(t, models.UnknownDevice(), got.Device)
	assert.NotNil(t, got.Metadata)
}

func TestRecorder_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		in     TrackInput
		fields []string
	}{
		{
			name:   "unknown type",
			in:     TrackInput{Type: "button_click", Page: "/", SessionID: "s"},
			fields: []string{"type"},
		},
		{
			name:   "system type from client",
			in:     TrackInput{Type: models.EventAPIRequest, Page: "/", SessionID: "s"},
			fields: []string{"type"},
		},
		{
			name:   "everything missing",
			in:     TrackInput{Page: "   "},
			fields: []string{"type", "page", "sessionId"},
		},
		{
			name:   "page too long",
			in:     TrackInput{Type: models.EventPageView, Page: "/" + strings.Repeat("a", 500), SessionID: "s"},
			fields: []string{"page"},
		},
		{
			name:   "session too long",
			in:     TrackInput{Type: models.EventPageView, Page: "/", SessionID: strings.Repeat("s", 101)},
			fields: []string{"sessionId"},
		},
		{
			name: "bad metadata",
			in: TrackInput{Type: models.EventPageView, Page: "/", SessionID: "s",
				Metadata: models.Metadata{"": json.RawMessage(`1`)}},
			fields: []string{"metadata"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := store.NewMemoryEventStore()
			r, m := newTestRecorder(t, events)

			_, err := r.Record(context.Background(), tt.in, models.RequestContext{})
			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)

			var got []string
			for _, f := range ve.Fields {
				got = append(got, f.Field)
			}
			assert.ElementsMatch(t, tt.fields, got)
			assert.Empty(t, events.Events())
			assert.Equal(t, 1.0, testutil.ToFloat64(m.EventFailuresTotal.WithLabelValues(string(tt.in.Type), "validation")))
		})
	}
}

func TestRecorder_BoundaryLengthsAccepted(t *testing.T) {
	r, _ := newTestRecorder(t, store.NewMemoryEventStore())

	_, err := r.Record(context.Background(), TrackInput{
		Type:      models.EventPageView,
		Page:      "/" + strings.Repeat("a", 499),
		SessionID: strings.Repeat("s", 100),
	}, models.RequestContext{})
	assert.NoError(t, err)
}

func TestRecorder_RecordSystem(t *testing.T) {
	events := store.NewMemoryEventStore()
	r, _ := newTestRecorder(t, events)

	_, err := r.RecordSystem(context.Background(), TrackInput{Type: models.EventAPIRequest, Page: "/api/contact", SessionID: "s"}, models.RequestContext{})
	require.NoError(t, err)

	_, err = r.RecordSystem(context.Background(), TrackInput{Type: "bogus", Page: "/api/contact", SessionID: "s"}, models.RequestContext{})
	assert.True(t, apperr.IsValidation(err))
	assert.Len(t, events.Events(), 1)
}

func TestRecorder_StoreFailure(t *testing.T) {
	r, m := newTestRecorder(t, failingEventStore{})

	_, err := r.Record(context.Background(), TrackInput{Type: models.EventPageView, Page: "/", SessionID: "s"}, models.RequestContext{})
	var de *apperr.DependencyError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Error(), "connection refused")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventFailuresTotal.WithLabelValues("page_view", "store")))
}
