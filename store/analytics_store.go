package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"portfolio/api/database"
	"portfolio/api/models"
)

const eventsTable = "analytics_events"

// Event columns mirror the document model; metadata is stored as a JSON
// string and queried with JSONExtract*. Skip indexes back the page and
// session lookups, the sort key covers type and time.
var eventsDDL = []string{
	`CREATE TABLE IF NOT EXISTS analytics_events (
		id              String,
		type            LowCardinality(String),
		page            String,
		referrer        String,
		user_agent      String,
		ip_address      String,
		device_type     LowCardinality(String),
		device_browser  LowCardinality(String),
		device_os       LowCardinality(String),
		session_id      String,
		metadata        String,
		created_at      DateTime64(3, 'UTC'),
		INDEX idx_page page TYPE bloom_filter GRANULARITY 4,
		INDEX idx_session session_id TYPE bloom_filter GRANULARITY 4
	) ENGINE = MergeTree
	ORDER BY (type, created_at)`,
}

type AnalyticsStore struct {
	DB  *database.ClickHouseClient
	log *zap.Logger
}

func NewAnalyticsStore(chClient *database.ClickHouseClient, log *zap.Logger) *AnalyticsStore {
	return &AnalyticsStore{
		DB:  chClient,
		log: log.Named("analytics_store"),
	}
}

// EnsureSchema creates the events table when missing.
func (s *AnalyticsStore) EnsureSchema(ctx context.Context) error {
	for _, ddl := range eventsDDL {
		if err := s.DB.Conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create analytics schema: %w", err)
		}
	}
	return nil
}

func (s *AnalyticsStore) Ping(ctx context.Context) error {
	return s.DB.Conn.Ping(ctx)
}

func (s *AnalyticsStore) InsertEvents(ctx context.Context, events []models.AnalyticsEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO analytics_events (
			id, type, page, referrer, user_agent, ip_address,
			device_type, device_browser, device_os, session_id, metadata, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		err := batch.Append(
			event.ID,
			string(event.Type),
			event.Page,
			event.Referrer,
			event.UserAgent,
			event.IPAddress,
			event.Device.Type,
			event.Device.Browser,
			event.Device.OS,
			event.SessionID,
			event.Metadata.Encode(),
			event.CreatedAt,
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append event %s to batch: %w", event.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	s.log.Debug("inserted analytics events", zap.Int("count", len(events)))
	return nil
}

func (s *AnalyticsStore) CountEvents(ctx context.Context, f EventFilter) (int64, error) {
	where, args := buildWhere(f)
	var n uint64
	query := "SELECT count() FROM analytics_events " + where
	if err := s.DB.Conn.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return int64(n), nil
}

func (s *AnalyticsStore) CountDistinctSessions(ctx context.Context, f EventFilter) (int64, error) {
	where, args := buildWhere(f)
	var n uint64
	query := "SELECT uniqExact(session_id) FROM analytics_events " + where
	if err := s.DB.Conn.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return int64(n), nil
}

func (s *AnalyticsStore) CountByField(ctx context.Context, f EventFilter, field GroupField, limit int) ([]models.CountBucket, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("invalid group field: %s", field)
	}
	where, args := buildWhere(f)

	// field is validated against a fixed set of column names above.
	query := fmt.Sprintf(`
		SELECT toString(%s) AS bucket, count() AS total
		FROM analytics_events
		%s
		GROUP BY bucket
		ORDER BY total DESC, bucket ASC
	`, field, where)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query counts by %s: %w", field, err)
	}
	defer rows.Close()

	results := make([]models.CountBucket, 0)
	for rows.Next() {
		var key string
		var count uint64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan counts by %s: %w", field, err)
		}
		results = append(results, models.CountBucket{Key: key, Count: int64(count)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during counts by %s: %w", field, err)
	}
	return results, nil
}

func (s *AnalyticsStore) CountByDay(ctx context.Context, f EventFilter) ([]models.DailyCount, error) {
	where, args := buildWhere(f)
	query := fmt.Sprintf(`
		SELECT formatDateTime(created_at, '%%Y-%%m-%%d', 'UTC') AS day, count() AS total
		FROM analytics_events
		%s
		GROUP BY day
		ORDER BY day ASC
	`, where)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer rows.Close()

	results := make([]models.DailyCount, 0)
	for rows.Next() {
		var day string
		var count uint64
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("failed to scan daily counts: %w", err)
		}
		results = append(results, models.DailyCount{Date: day, Count: int64(count)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during daily counts: %w", err)
	}
	return results, nil
}

// TopProjects groups events by the raw JSON value of metadata.projectId. The
// project name is taken from the earliest event of each group.
func (s *AnalyticsStore) TopProjects(ctx context.Context, f EventFilter, limit int) ([]models.ProjectClicks, error) {
	where, args := buildWhere(f)
	query := fmt.Sprintf(`
		SELECT
			JSONExtractRaw(metadata, 'projectId') AS project_id,
			argMin(JSONExtractString(metadata, 'projectName'), created_at) AS project_name,
			count() AS clicks
		FROM analytics_events
		%s
		GROUP BY project_id
		ORDER BY clicks DESC, project_id ASC
	`, where)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top projects: %w", err)
	}
	defer rows.Close()

	results := make([]models.ProjectClicks, 0)
	for rows.Next() {
		var id, name string
		var clicks uint64
		if err := rows.Scan(&id, &name, &clicks); err != nil {
			return nil, fmt.Errorf("failed to scan top projects: %w", err)
		}
		results = append(results, models.ProjectClicks{
			ProjectID:   models.RawValue(id),
			ProjectName: name,
			Clicks:      int64(clicks),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during top projects: %w", err)
	}
	return results, nil
}

// RecentEvents never selects user_agent or ip_address.
func (s *AnalyticsStore) RecentEvents(ctx context.Context, eventType models.EventType, limit int) ([]models.AnalyticsEvent, error) {
	where, args := buildWhere(EventFilter{Type: eventType})
	query := fmt.Sprintf(`
		SELECT id, type, page, referrer, device_type, device_browser, device_os,
			session_id, metadata, created_at
		FROM analytics_events
		%s
		ORDER BY created_at DESC
		LIMIT ?
	`, where)
	args = append(args, limit)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	results := make([]models.AnalyticsEvent, 0, limit)
	for rows.Next() {
		var (
			e        models.AnalyticsEvent
			typ      string
			metadata string
		)
		if err := rows.Scan(
			&e.ID, &typ, &e.Page, &e.Referrer,
			&e.Device.Type, &e.Device.Browser, &e.Device.OS,
			&e.SessionID, &metadata, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recent events: %w", err)
		}
		e.Type = models.EventType(typ)
		e.Metadata = models.DecodeMetadata(metadata)
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during recent events: %w", err)
	}
	return results, nil
}

func buildWhere(f EventFilter) (string, []any) {
	var conds []string
	var args []any

	if f.From != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, *f.To)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Page != "" {
		conds = append(conds, "page = ?")
		args = append(args, f.Page)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
