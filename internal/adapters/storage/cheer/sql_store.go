package cheer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marathon/internal/adapters/storage"
	domain "marathon/internal/domain/cheer"
	"marathon/internal/domain/plan"
)

// SQLStore implements Store on SQLite or Postgres.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new SQLStore.
// PRE: db is open with migrations applied
// POST: store is ready for use
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

const columns = "id, owner, week_num, day, message, timestamp, created_at"

// List returns cheers in arrival order, limited to owner when it is non-empty.
// POST: returns an empty slice when nothing matches
func (s *SQLStore) List(ctx context.Context, owner string) ([]domain.Cheer, error) {
	query := "SELECT " + columns + " FROM cheer"
	var args []any
	if owner != "" {
		query += " WHERE owner = ?"
		args = append(args, owner)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cheers: %w", err)
	}
	defer rows.Close()

	results := []domain.Cheer{}
	for rows.Next() {
		c, err := scanCheer(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// GetByID retrieves a cheer.
// POST: returns ErrNotFound if absent
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Cheer, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM cheer WHERE id = ?", id)
	return scanCheer(row.Scan)
}

// Insert stores a new cheer.
// PRE: c is valid and c.ID is unique
func (s *SQLStore) Insert(ctx context.Context, c domain.Cheer) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO cheer ("+columns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.Owner, c.WeekNum, string(c.Day), c.Message, c.Timestamp, storage.FormatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert cheer: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of a cheer.
// POST: returns ErrNotFound if no row has c.ID
func (s *SQLStore) Update(ctx context.Context, c domain.Cheer) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cheer SET week_num = ?, day = ?, message = ?, timestamp = ? WHERE id = ?",
		c.WeekNum, string(c.Day), c.Message, c.Timestamp, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update cheer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a cheer.
// POST: returns ErrNotFound if no row has id
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cheer WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete cheer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCheer(scan func(dest ...any) error) (domain.Cheer, error) {
	var c domain.Cheer
	var day, createdAt string
	err := scan(&c.ID, &c.Owner, &c.WeekNum, &day, &c.Message, &c.Timestamp, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Cheer{}, ErrNotFound
	}
	if err != nil {
		return domain.Cheer{}, err
	}
	c.Day = plan.Day(day)
	c.CreatedAt, _ = storage.ParseTime(createdAt)
	return c, nil
}
