package completion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"marathon/internal/adapters/storage"
	domain "marathon/internal/domain/completion"
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

const columns = "id, owner, week_num, day, is_completed, created_at, updated_at"

// dayOrder sorts by training week position rather than alphabetically.
const dayOrder = "CASE day WHEN 'Mon' THEN 0 WHEN 'Tue' THEN 1 WHEN 'Wed' THEN 2 WHEN 'Thu' THEN 3 WHEN 'Fri' THEN 4 WHEN 'Sat' THEN 5 ELSE 6 END"

// List returns the owner's completions ordered by week then day.
// PRE: owner is non-empty
// POST: returns an empty slice when nothing matches
func (s *SQLStore) List(ctx context.Context, owner string, filter domain.Filter) ([]domain.Completion, error) {
	var q strings.Builder
	args := []any{owner}
	q.WriteString("SELECT " + columns + " FROM workout_completion WHERE owner = ?")
	if filter.OnlyCompleted {
		q.WriteString(" AND is_completed = 1")
	}
	if filter.Key != nil {
		q.WriteString(" AND week_num = ? AND day = ?")
		args = append(args, filter.Key.Week, string(filter.Key.Day))
	}
	q.WriteString(" ORDER BY week_num, " + dayOrder)

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	results := []domain.Completion{}
	for rows.Next() {
		c, err := scanCompletion(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// GetByID retrieves a completion by id.
// POST: returns ErrNotFound if absent
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Completion, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM workout_completion WHERE id = ?", id)
	return scanCompletion(row.Scan)
}

// Insert creates a completion.
// PRE: c is valid
// POST: returns domain.ErrDuplicate if (owner, week, day) is already recorded
func (s *SQLStore) Insert(ctx context.Context, c domain.Completion) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO workout_completion ("+columns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.Owner, c.WeekNum, string(c.Day), boolToInt(c.IsCompleted),
		storage.FormatTime(c.CreatedAt), storage.FormatTime(c.UpdatedAt),
	)
	if storage.IsUniqueViolation(err) {
		return fmt.Errorf("insert completion %s: %w", c.Key(), domain.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of an existing completion.
// POST: returns ErrNotFound if no row has c.ID, domain.ErrDuplicate if the new day is taken
func (s *SQLStore) Update(ctx context.Context, c domain.Completion) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE workout_completion SET week_num = ?, day = ?, is_completed = ?, updated_at = ? WHERE id = ?",
		c.WeekNum, string(c.Day), boolToInt(c.IsCompleted), storage.FormatTime(c.UpdatedAt), c.ID,
	)
	if storage.IsUniqueViolation(err) {
		return fmt.Errorf("update completion %s: %w", c.Key(), domain.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("update completion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a completion.
// POST: returns ErrNotFound if no row has id
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM workout_completion WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert writes is_completed for (owner, week, day) in one statement and returns the stored row.
// The existing row keeps its id and created_at.
// PRE: c is valid; c.ID is used only when no row exists yet
// POST: exactly one row exists for the key
func (s *SQLStore) Upsert(ctx context.Context, c domain.Completion) (domain.Completion, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO workout_completion (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(owner, week_num, day) DO UPDATE SET
		   is_completed=excluded.is_completed, updated_at=excluded.updated_at
		 RETURNING `+columns,
		c.ID, c.Owner, c.WeekNum, string(c.Day), boolToInt(c.IsCompleted),
		storage.FormatTime(c.CreatedAt), storage.FormatTime(c.UpdatedAt),
	)
	stored, err := scanCompletion(row.Scan)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("upsert completion: %w", err)
	}
	return stored, nil
}

func scanCompletion(scan func(dest ...any) error) (domain.Completion, error) {
	var c domain.Completion
	var day, createdAt, updatedAt string
	var done int
	err := scan(&c.ID, &c.Owner, &c.WeekNum, &day, &done, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Completion{}, ErrNotFound
	}
	if err != nil {
		return domain.Completion{}, err
	}
	c.Day = plan.Day(day)
	c.IsCompleted = done != 0
	c.CreatedAt, _ = storage.ParseTime(createdAt)
	c.UpdatedAt, _ = storage.ParseTime(updatedAt)
	return c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
