package cheer

import (
	"context"
	"fmt"

	"marathon/internal/domain/access"
	domain "marathon/internal/domain/cheer"
)

// ErrNotFound is returned when no cheer has the requested id.
var ErrNotFound = fmt.Errorf("cheer: %w", access.ErrNotFound)

// Store persists Cheer records. An empty owner lists every owner's cheers.
type Store interface {
	List(ctx context.Context, owner string) ([]domain.Cheer, error)
	GetByID(ctx context.Context, id string) (domain.Cheer, error)
	Insert(ctx context.Context, c domain.Cheer) error
	Update(ctx context.Context, c domain.Cheer) error
	Delete(ctx context.Context, id string) error
}
