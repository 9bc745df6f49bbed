package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marathon/internal/adapters/storage"
	domain "marathon/internal/domain/outbox"
)

// SQLStore implements Store on SQLite or Postgres.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new outbox store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

const columns = "id, action_type, payload, status, attempts, max_attempts, last_attempted_at, next_attempt_at, created_at, error_message"

// GetByID retrieves an outbox entry by its ID.
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM outbox WHERE id = ?", id)
	return scanEntry(row.Scan)
}

// Save persists an outbox entry (insert or update).
func (s *SQLStore) Save(ctx context.Context, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outbox (`+columns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status = excluded.status, attempts = excluded.attempts, max_attempts = excluded.max_attempts,
		   last_attempted_at = excluded.last_attempted_at, next_attempt_at = excluded.next_attempt_at,
		   error_message = excluded.error_message`,
		e.ID, e.ActionType, e.Payload, e.Status, e.Attempts, e.MaxAttempts,
		optionalTime(e.LastAttemptedAt), optionalTime(e.NextAttemptAt), storage.FormatTime(e.CreatedAt), e.ErrorMessage)
	if err != nil {
		return fmt.Errorf("save outbox entry: %w", err)
	}
	return nil
}

// ListDue returns pending or retrying entries whose next attempt is at or before now,
// the longest overdue first. An empty next_attempt_at sorts first and is always due.
func (s *SQLStore) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error) {
	return s.list(ctx,
		"SELECT "+columns+" FROM outbox WHERE status IN (?, ?) AND next_attempt_at <= ? ORDER BY next_attempt_at, created_at, id LIMIT ?",
		domain.StatusPending, domain.StatusRetrying, storage.FormatTime(now), limit)
}

// ListFailed returns entries that have permanently failed.
func (s *SQLStore) ListFailed(ctx context.Context, limit int) ([]domain.Entry, error) {
	return s.list(ctx,
		"SELECT "+columns+" FROM outbox WHERE status = ? ORDER BY last_attempted_at DESC, id LIMIT ?",
		domain.StatusFailed, limit)
}

func (s *SQLStore) list(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outbox entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(scan func(dest ...any) error) (domain.Entry, error) {
	var e domain.Entry
	var lastAttemptedAt sql.NullString
	var nextAttemptAt, createdAt string
	err := scan(&e.ID, &e.ActionType, &e.Payload, &e.Status, &e.Attempts, &e.MaxAttempts,
		&lastAttemptedAt, &nextAttemptAt, &createdAt, &e.ErrorMessage)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, ErrNotFound
	}
	if err != nil {
		return domain.Entry{}, err
	}
	if lastAttemptedAt.Valid && lastAttemptedAt.String != "" {
		e.LastAttemptedAt, _ = storage.ParseTime(lastAttemptedAt.String)
	}
	if nextAttemptAt != "" {
		e.NextAttemptAt, _ = storage.ParseTime(nextAttemptAt)
	}
	e.CreatedAt, _ = storage.ParseTime(createdAt)
	return e, nil
}

// optionalTime stores the zero time as an empty string.
func optionalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return storage.FormatTime(t)
}
