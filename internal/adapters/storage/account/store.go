package account

import (
	"context"
	"fmt"

	"marathon/internal/domain/access"
	domain "marathon/internal/domain/account"
)

// ErrNotFound is returned when no account or key matches.
var ErrNotFound = fmt.Errorf("account: %w", access.ErrNotFound)

// Store persists Account state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Save(ctx context.Context, value domain.Account) error
	Count(ctx context.Context) (int, error)
}

// KeyStore persists API keys.
type KeyStore interface {
	SaveAPIKey(ctx context.Context, key domain.APIKey) error
	GetAPIKeyByHash(ctx context.Context, hash string) (domain.APIKey, error)
	ListAPIKeys(ctx context.Context, accountID string) ([]domain.APIKey, error)
	RevokeAPIKey(ctx context.Context, id, accountID string) error
}
