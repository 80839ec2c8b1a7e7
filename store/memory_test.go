package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/api/models"
)

var base = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func ev(id string, typ models.EventType, page, session string, at time.Time, md models.Metadata) models.AnalyticsEvent {
	return models.AnalyticsEvent{
		ID: id, Type: typ, Page: page, SessionID: session, CreatedAt: at, Metadata: md,
		Device: models.DeviceInfo{Type: "desktop", Browser: "Chrome", OS: "Linux"},
	}
}

func seeded(t *testing.T) *MemoryEventStore {
	t.Helper()
	s := NewMemoryEventStore()
	require.NoError(t, s.InsertEvents(context.Background(), []models.AnalyticsEvent{
		ev("1", models.EventPageView, "/", "a", base, nil),
		ev("2", models.EventPageView, "/", "a", base.Add(time.Hour), nil),
		ev("3", models.EventPageView, "/projects", "b", base.Add(24*time.Hour), nil),
		ev("4", models.EventProjectClick, "/projects", "b", base.Add(25*time.Hour),
			models.Metadata{"projectId": json.RawMessage(`"p1"`), "projectName": json.RawMessage(`"Alpha"`)}),
		ev("5", models.EventProjectClick, "/projects", "c", base.Add(26*time.Hour),
			models.Metadata{"projectId": json.RawMessage(` "p1" `), "projectName": json.RawMessage(`"Alpha v2"`)}),
		ev("6", models.EventProjectClick, "/projects", "c", base.Add(27*time.Hour),
			models.Metadata{"projectId": json.RawMessage(`2`)}),
	}))
	return s
}

func TestMemoryEventStore_Counts(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	n, err := s.CountEvents(ctx, EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	n, err = s.CountDistinctSessions(ctx, EventFilter{Type: models.EventPageView})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	from := base.Add(24 * time.Hour)
	n, err = s.CountEvents(ctx, EventFilter{From: &from, Page: "/projects"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestMemoryEventStore_CountByFieldOrdering(t *testing.T) {
	s := seeded(t)

	buckets, err := s.CountByField(context.Background(), EventFilter{}, GroupByPage, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.CountBucket{{Key: "/projects", Count: 4}, {Key: "/", Count: 2}}, buckets)

	// Equal counts fall back to key order.
	buckets, err = s.CountByField(context.Background(), EventFilter{}, GroupByType, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.CountBucket{{Key: "page_view", Count: 3}}, buckets)
}

func TestMemoryEventStore_CountByDay(t *testing.T) {
	s := seeded(t)
	days, err := s.CountByDay(context.Background(), EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, []models.DailyCount{{Date: "2024-05-10", Count: 2}, {Date: "2024-05-11", Count: 4}}, days)
}

func TestMemoryEventStore_TopProjects(t *testing.T) {
	s := seeded(t)
	projects, err := s.TopProjects(context.Background(), EventFilter{Type: models.EventProjectClick}, 10)
	require.NoError(t, err)
	require.Len(t, projects, 2)

	assert.Equal(t, models.RawValue(`"p1"`), projects[0].ProjectID)
	assert.Equal(t, "Alpha", projects[0].ProjectName)
	assert.Equal(t, int64(2), projects[0].Clicks)
	assert.Equal(t, models.RawValue(`2`), projects[1].ProjectID)
	assert.Equal(t, "", projects[1].ProjectName)
}

func TestMemoryEventStore_RecentNewestFirst(t *testing.T) {
	s := seeded(t)
	recent, err := s.RecentEvents(context.Background(), models.EventPageView, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "3", recent[0].ID)
	assert.Equal(t, "2", recent[1].ID)

	empty, err := NewMemoryEventStore().RecentEvents(context.Background(), "", 50)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMemoryEventStore_ReturnsCopies(t *testing.T) {
	s := seeded(t)
	events := s.Events()
	events[3].Metadata["projectId"] = json.RawMessage(`"changed"`)

	again := s.Events()
	assert.JSONEq(t, `"p1"`, string(again[3].Metadata["projectId"]))
}

func TestMemoryContactStore(t *testing.T) {
	s := NewMemoryContactStore()
	ctx := context.Background()
	for i, status := range []models.ContactStatus{models.ContactStatusNew, models.ContactStatusRead, models.ContactStatusNew} {
		require.NoError(t, s.CreateContact(ctx, &models.ContactSubmission{
			ID:        string(rune('a' + i)),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, total, err := s.ListContacts(ctx, ContactFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].ID)
	assert.Equal(t, "b", page[1].ID)

	page, total, err = s.ListContacts(ctx, ContactFilter{Status: models.ContactStatusNew, Offset: 1, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].ID)

	updated, err := s.UpdateStatus(ctx, "a", models.ContactStatusReplied, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.ContactStatusReplied, updated.Status)
	assert.Equal(t, base.Add(time.Hour), updated.UpdatedAt)

	_, err = s.UpdateStatus(ctx, "zzz", models.ContactStatusRead, base)
	assert.ErrorIs(t, err, ErrNotFound)
}
