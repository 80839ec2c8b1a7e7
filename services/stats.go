package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"portfolio/api/apperr"
	"portfolio/api/models"
	"portfolio/api/store"
)

const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 100
	DefaultPopularDays = 7
	MaxPopularDays     = 365

	topPagesLimit = 20
	popularLimit  = 10
	dailyWindow   = 30 * 24 * time.Hour
)

// StatsService answers read-only summary queries over stored events.
type StatsService struct {
	events store.EventStore

	Now func() time.Time
}

func NewStatsService(events store.EventStore) *StatsService {
	return &StatsService{events: events, Now: time.Now}
}

// Summarize computes totals and breakdowns over the filtered events. The
// per-day series ignores the filter's date range and always covers the
// last 30 days.
func (s *StatsService) Summarize(ctx context.Context, f store.EventFilter) (*models.Summary, error) {
	if err := validateTypeFilter(f.Type); err != nil {
		return nil, err
	}

	var (
		sum      models.Summary
		total    int64
		sessions int64
	)
	since := s.Now().UTC().Add(-dailyWindow)
	daily := f
	daily.From, daily.To = &since, nil

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		total, err = s.events.CountEvents(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		sessions, err = s.events.CountDistinctSessions(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		sum.Breakdown.ByType, err = s.events.CountByField(gctx, f, store.GroupByType, 0)
		return err
	})
	g.Go(func() (err error) {
		sum.Breakdown.ByPage, err = s.events.CountByField(gctx, f, store.GroupByPage, topPagesLimit)
		return err
	})
	g.Go(func() (err error) {
		sum.Breakdown.ByDevice, err = s.events.CountByField(gctx, f, store.GroupByDevice, 0)
		return err
	})
	g.Go(func() (err error) {
		sum.Breakdown.ByBrowser, err = s.events.CountByField(gctx, f, store.GroupByBrowser, 0)
		return err
	})
	g.Go(func() (err error) {
		sum.Breakdown.ByDate, err = s.events.CountByDay(gctx, daily)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Dependency("summarize events", err)
	}

	sum.Overview = models.Overview{
		TotalEvents:         total,
		UniqueSessions:      sessions,
		AvgEventsPerSession: averagePerSession(total, sessions),
	}
	sum.Breakdown.ByType = nonNil(sum.Breakdown.ByType)
	sum.Breakdown.ByPage = nonNil(sum.Breakdown.ByPage)
	sum.Breakdown.ByDevice = nonNil(sum.Breakdown.ByDevice)
	sum.Breakdown.ByBrowser = nonNil(sum.Breakdown.ByBrowser)
	sum.Breakdown.ByDate = nonNil(sum.Breakdown.ByDate)
	return &sum, nil
}

// Recent lists the newest events without client identifiers.
func (s *StatsService) Recent(ctx context.Context, limit int, eventType models.EventType) ([]models.PublicEvent, error) {
	if err := validateTypeFilter(eventType); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	events, err := s.events.RecentEvents(ctx, eventType, limit)
	if err != nil {
		return nil, apperr.Dependency("list recent events", err)
	}
	out := make([]models.PublicEvent, 0, len(events))
	for _, e := range events {
		out = append(out, e.Public())
	}
	return out, nil
}

// Popular ranks page views and project clicks over the trailing window.
func (s *StatsService) Popular(ctx context.Context, days int) (*models.Popular, error) {
	if days <= 0 {
		days = DefaultPopularDays
	}
	since := s.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	var (
		pages    []models.CountBucket
		projects []models.ProjectClicks
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		pages, err = s.events.CountByField(gctx, store.EventFilter{From: &since, Type: models.EventPageView}, store.GroupByPage, popularLimit)
		return err
	})
	g.Go(func() (err error) {
		projects, err = s.events.TopProjects(gctx, store.EventFilter{From: &since, Type: models.EventProjectClick}, popularLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Dependency("rank popular content", err)
	}

	out := &models.Popular{
		Pages:     make([]models.PageViews, 0, len(pages)),
		Projects:  nonNil(projects),
		Timeframe: fmt.Sprintf("Last %d days", days),
	}
	for _, p := range pages {
		out.Pages = append(out.Pages, models.PageViews{Page: p.Key, Views: p.Count})
	}
	return out, nil
}

func averagePerSession(total, sessions int64) float64 {
	if sessions == 0 {
		return 0
	}
	return math.Round(float64(total)/float64(sessions)*100) / 100
}

func validateTypeFilter(t models.EventType) error {
	if t == "" || t.IsKnown() {
		return nil
	}
	return apperr.Validation(apperr.FieldError{Field: "type", Message: "unknown event type"})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
