package completion

import (
	"context"
	"fmt"

	"marathon/internal/domain/access"
	domain "marathon/internal/domain/completion"
)

// ErrNotFound is returned when no completion has the requested id.
var ErrNotFound = fmt.Errorf("completion: %w", access.ErrNotFound)

// Store persists WorkoutCompletion records.
type Store interface {
	List(ctx context.Context, owner string, filter domain.Filter) ([]domain.Completion, error)
	GetByID(ctx context.Context, id string) (domain.Completion, error)
	Insert(ctx context.Context, c domain.Completion) error
	Update(ctx context.Context, c domain.Completion) error
	Delete(ctx context.Context, id string) error
	Upsert(ctx context.Context, c domain.Completion) (domain.Completion, error)
}
