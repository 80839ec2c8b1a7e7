package store

import (
	"context"
	"errors"
	"time"

	"portfolio/api/models"
)

var ErrNotFound = errors.New("record not found")

// EventFilter narrows an aggregation. Nil bounds and empty fields match everything.
type EventFilter struct {
	From *time.Time // inclusive
	To   *time.Time // inclusive
	Type models.EventType
	Page string
}

// GroupField is a dimension events can be counted by.
type GroupField string

const (
	GroupByType    GroupField = "type"
	GroupByPage    GroupField = "page"
	GroupByDevice  GroupField = "device_type"
	GroupByBrowser GroupField = "device_browser"
)

func (g GroupField) Valid() bool {
	switch g {
	case GroupByType, GroupByPage, GroupByDevice, GroupByBrowser:
		return true
	default:
		return false
	}
}

// EventStore persists analytics events and answers the primitive reads the
// stats service composes. Grouped results are ordered by count descending,
// then key ascending. A limit of 0 means unlimited.
type EventStore interface {
	InsertEvents(ctx context.Context, events []models.AnalyticsEvent) error
	CountEvents(ctx context.Context, f EventFilter) (int64, error)
	CountDistinctSessions(ctx context.Context, f EventFilter) (int64, error)
	CountByField(ctx context.Context, f EventFilter, field GroupField, limit int) ([]models.CountBucket, error)
	CountByDay(ctx context.Context, f EventFilter) ([]models.DailyCount, error)
	TopProjects(ctx context.Context, f EventFilter, limit int) ([]models.ProjectClicks, error)
	RecentEvents(ctx context.Context, eventType models.EventType, limit int) ([]models.AnalyticsEvent, error)
	Ping(ctx context.Context) error
}

type ContactFilter struct {
	Status models.ContactStatus
	Offset int
	Limit  int
}

// ContactStore persists contact submissions. UpdateStatus returns
// ErrNotFound for unknown ids.
type ContactStore interface {
	CreateContact(ctx context.Context, c *models.ContactSubmission) error
	ListContacts(ctx context.Context, f ContactFilter) ([]models.ContactSubmission, int64, error)
	UpdateStatus(ctx context.Context, id string, status models.ContactStatus, at time.Time) (*models.ContactSubmission, error)
	Ping(ctx context.Context) error
}
