package outbox

import (
	"context"
	"fmt"
	"time"

	"marathon/internal/domain/access"
	domain "marathon/internal/domain/outbox"
)

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = fmt.Errorf("outbox entry: %w", access.ErrNotFound)

// Store defines the interface for outbox entry persistence.
type Store interface {
	// GetByID retrieves an outbox entry by its ID.
	// POST: Returns ErrNotFound if absent
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save inserts or updates an entry.
	// PRE: entry has been validated
	Save(ctx context.Context, e domain.Entry) error

	// ListDue returns pending or retrying entries due at now, longest overdue first.
	// PRE: limit > 0
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error)

	// ListFailed returns entries that ran out of attempts, most recent attempt first.
	// PRE: limit > 0
	ListFailed(ctx context.Context, limit int) ([]domain.Entry, error)
}

var _ Store = (*SQLStore)(nil)
