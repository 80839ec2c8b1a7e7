package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"portfolio/api/models"
)

var contactsDDL = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL,
		email       TEXT NOT NULL,
		subject     TEXT NOT NULL,
		message     TEXT NOT NULL,
		ip_address  TEXT NOT NULL,
		user_agent  TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'new' CHECK (status IN ('new', 'read', 'replied')),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_created_at ON contacts (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_status_created_at ON contacts (status, created_at DESC)`,
}

const contactColumns = `id, name, email, subject, message, ip_address, user_agent, status, created_at, updated_at`

// PostgresContactStore is the ContactStore backed by the contacts table.
type PostgresContactStore struct {
	db  *sql.DB
	log *zap.Logger
}

var _ ContactStore = (*PostgresContactStore)(nil)

// NewContactStore creates a Postgres-backed contact store.
func NewContactStore(db *sql.DB, log *zap.Logger) *PostgresContactStore {
	return &PostgresContactStore{db: db, log: log.Named("contact_store")}
}

// EnsureSchema creates the contacts table and its indexes when missing.
func (s *PostgresContactStore) EnsureSchema(ctx context.Context) error {
	for _, ddl := range contactsDDL {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create contacts schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresContactStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateContact inserts a new submission.
func (s *PostgresContactStore) CreateContact(ctx context.Context, c *models.ContactSubmission) error {
	query := `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Email, c.Subject, c.Message,
		c.IPAddress, c.UserAgent, string(c.Status), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	s.log.Debug("contact created", zap.String("id", c.ID))
	return nil
}

// ListContacts returns one page of submissions, newest first, and the total
// number of submissions matching the filter.
func (s *PostgresContactStore) ListContacts(ctx context.Context, f ContactFilter) ([]models.ContactSubmission, int64, error) {
	where := ""
	var args []any
	if f.Status != "" {
		where = "WHERE status = $1"
		args = append(args, string(f.Status))
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contacts "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count contacts: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM contacts
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, contactColumns, where, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]models.ContactSubmission, 0, f.Limit)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row error while listing contacts: %w", err)
	}
	return contacts, total, nil
}

// UpdateStatus sets the status of one submission and returns the stored record.
func (s *PostgresContactStore) UpdateStatus(ctx context.Context, id string, status models.ContactStatus, at time.Time) (*models.ContactSubmission, error) {
	query := `
		UPDATE contacts
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + contactColumns

	c, err := scanContact(s.db.QueryRowContext(ctx, query, string(status), at, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update contact status: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(r rowScanner) (*models.ContactSubmission, error) {
	c := &models.ContactSubmission{}
	var status string
	err := r.Scan(
		&c.ID, &c.Name, &c.Email, &c.Subject, &c.Message,
		&c.IPAddress, &c.UserAgent, &status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = models.ContactStatus(status)
	return c, nil
}
