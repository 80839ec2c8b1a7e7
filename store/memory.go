package store

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"portfolio/api/models"
)

// MemoryEventStore keeps events in process. It backs tests and the
// STORAGE_BACKEND=memory development mode.
type MemoryEventStore struct {
	mu     sync.RWMutex
	events []models.AnalyticsEvent
}

func NewMemoryEventStore() *MemoryEventStore { return &MemoryEventStore{} }

func (s *MemoryEventStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryEventStore) InsertEvents(ctx context.Context, events []models.AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		e.Metadata = cloneMetadata(e.Metadata)
		s.events = append(s.events, e)
	}
	return nil
}

// Events returns a copy of everything stored, in insertion order.
func (s *MemoryEventStore) Events() []models.AnalyticsEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AnalyticsEvent, len(s.events))
	for i, e := range s.events {
		e.Metadata = cloneMetadata(e.Metadata)
		out[i] = e
	}
	return out
}

func (s *MemoryEventStore) CountEvents(ctx context.Context, f EventFilter) (int64, error) {
	var n int64
	s.each(f, func(models.AnalyticsEvent) { n++ })
	return n, nil
}

func (s *MemoryEventStore) CountDistinctSessions(ctx context.Context, f EventFilter) (int64, error) {
	seen := map[string]struct{}{}
	s.each(f, func(e models.AnalyticsEvent) { seen[e.SessionID] = struct{}{} })
	return int64(len(seen)), nil
}

func (s *MemoryEventStore) CountByField(ctx context.Context, f EventFilter, field GroupField, limit int) ([]models.CountBucket, error) {
	counts := map[string]int64{}
	s.each(f, func(e models.AnalyticsEvent) { counts[fieldValue(e, field)]++ })

	out := make([]models.CountBucket, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.CountBucket{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return truncate(out, limit), nil
}

func (s *MemoryEventStore) CountByDay(ctx context.Context, f EventFilter) ([]models.DailyCount, error) {
	counts := map[string]int64{}
	s.each(f, func(e models.AnalyticsEvent) { counts[e.CreatedAt.UTC().Format("2006-01-02")]++ })

	out := make([]models.DailyCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, models.DailyCount{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *MemoryEventStore) TopProjects(ctx context.Context, f EventFilter, limit int) ([]models.ProjectClicks, error) {
	type group struct {
		clicks    int64
		name      string
		firstSeen time.Time
	}
	groups := map[string]*group{}
	s.each(f, func(e models.AnalyticsEvent) {
		id := compactRaw(e.Metadata["projectId"])
		name, _ := e.Metadata.String("projectName")
		g, ok := groups[id]
		if !ok {
			groups[id] = &group{clicks: 1, name: name, firstSeen: e.CreatedAt}
			return
		}
		g.clicks++
		if e.CreatedAt.Before(g.firstSeen) {
			g.name, g.firstSeen = name, e.CreatedAt
		}
	})

	out := make([]models.ProjectClicks, 0, len(groups))
	for id, g := range groups {
		out = append(out, models.ProjectClicks{ProjectID: models.RawValue(id), ProjectName: g.name, Clicks: g.clicks})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Clicks != out[j].Clicks {
			return out[i].Clicks > out[j].Clicks
		}
		return out[i].ProjectID < out[j].ProjectID
	})
	return truncate(out, limit), nil
}

func (s *MemoryEventStore) RecentEvents(ctx context.Context, eventType models.EventType, limit int) ([]models.AnalyticsEvent, error) {
	var matched []models.AnalyticsEvent
	s.each(EventFilter{Type: eventType}, func(e models.AnalyticsEvent) {
		e.Metadata = cloneMetadata(e.Metadata)
		matched = append(matched, e)
	})
	// Stable so equal timestamps keep newest-inserted first after the reverse.
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if matched == nil {
		matched = []models.AnalyticsEvent{}
	}
	return truncate(matched, limit), nil
}

func (s *MemoryEventStore) each(f EventFilter, fn func(models.AnalyticsEvent)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if matches(e, f) {
			fn(e)
		}
	}
}

func matches(e models.AnalyticsEvent, f EventFilter) bool {
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Page != "" && e.Page != f.Page {
		return false
	}
	return true
}

func fieldValue(e models.AnalyticsEvent, field GroupField) string {
	switch field {
	case GroupByType:
		return string(e.Type)
	case GroupByPage:
		return e.Page
	case GroupByDevice:
		return e.Device.Type
	case GroupByBrowser:
		return e.Device.Browser
	default:
		return ""
	}
}

func compactRaw(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func cloneMetadata(m models.Metadata) models.Metadata {
	out := make(models.Metadata, len(m))
	for k, v := range m {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

// MemoryContactStore keeps contact submissions in process.
type MemoryContactStore struct {
	mu       sync.RWMutex
	contacts []models.ContactSubmission
}

func NewMemoryContactStore() *MemoryContactStore { return &MemoryContactStore{} }

func (s *MemoryContactStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryContactStore) CreateContact(ctx context.Context, c *models.ContactSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = append(s.contacts, *c)
	return nil
}

func (s *MemoryContactStore) ListContacts(ctx context.Context, f ContactFilter) ([]models.ContactSubmission, int64, error) {
	s.mu.RLock()
	var matched []models.ContactSubmission
	for i := len(s.contacts) - 1; i >= 0; i-- {
		if f.Status == "" || s.contacts[i].Status == f.Status {
			matched = append(matched, s.contacts[i])
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	page := make([]models.ContactSubmission, 0, f.Limit)
	if f.Offset < len(matched) {
		end := len(matched)
		if f.Limit > 0 && f.Offset+f.Limit < end {
			end = f.Offset + f.Limit
		}
		page = append(page, matched[f.Offset:end]...)
	}
	return page, total, nil
}

func (s *MemoryContactStore) UpdateStatus(ctx context.Context, id string, status models.ContactStatus, at time.Time) (*models.ContactSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			s.contacts[i].Status = status
			s.contacts[i].UpdatedAt = at
			c := s.contacts[i]
			return &c, nil
		}
	}
	return nil, ErrNotFound
}
