package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"marathon/internal/domain/access"
	"marathon/internal/domain/account"
)

// KeyStoreForOrchestrator defines the store interface needed by the API key orchestrators.
type KeyStoreForOrchestrator interface {
	SaveAPIKey(ctx context.Context, key account.APIKey) error
	GetAPIKeyByHash(ctx context.Context, hash string) (account.APIKey, error)
	ListAPIKeys(ctx context.Context, accountID string) ([]account.APIKey, error)
	RevokeAPIKey(ctx context.Context, id, accountID string) error
}

// AccountStoreForKeys resolves the account behind a key.
type AccountStoreForKeys interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
}

// APIKeyDeps holds dependencies for the API key orchestrators.
type APIKeyDeps struct {
	KeyStore     KeyStoreForOrchestrator
	AccountStore AccountStoreForKeys
	GenerateID   func() string
	Now          func() time.Time
	TTL          time.Duration
}

// ErrInvalidAPIKey is returned for unknown, expired or revoked keys.
var ErrInvalidAPIKey = errors.New("invalid api key")

// ExecuteCreateAPIKey issues a key for the caller's own account.
// PRE: caller authenticated with a session, not with another key
// POST: returns the stored key and its plaintext secret, which is never stored
func ExecuteCreateAPIKey(ctx context.Context, caller access.Caller, name string, deps APIKeyDeps) (account.APIKey, string, error) {
	if caller.Mode != access.ModeIdentity || caller.AccountID == "" {
		return account.APIKey{}, "", access.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return account.APIKey{}, "", access.NewValidationError("name", "is required")
	}
	key, secret, err := account.NewAPIKey(deps.GenerateID(), caller.AccountID, name, deps.Now(), deps.TTL)
	if err != nil {
		return account.APIKey{}, "", err
	}
	if err := deps.KeyStore.SaveAPIKey(ctx, key); err != nil {
		return account.APIKey{}, "", err
	}
	slog.Info("auth_event", "event", "api_key_created", "account_id", caller.AccountID, "key_id", key.ID, "expires_at", key.ExpiresAt)
	return key, secret, nil
}

// ExecuteAuthenticateAPIKey resolves a secret to an API-key-mode caller.
// PRE: none
// POST: returns ErrInvalidAPIKey unless the key exists, is unrevoked and unexpired
func ExecuteAuthenticateAPIKey(ctx context.Context, secret string, deps APIKeyDeps) (access.Caller, error) {
	if secret == "" {
		return access.Anonymous, ErrInvalidAPIKey
	}
	key, err := deps.KeyStore.GetAPIKeyByHash(ctx, account.HashAPIKey(secret))
	if err != nil {
		return access.Anonymous, ErrInvalidAPIKey
	}
	if err := key.Check(deps.Now()); err != nil {
		slog.Info("auth_event", "event", "api_key_rejected", "key_id", key.ID, "reason", err.Error())
		return access.Anonymous, ErrInvalidAPIKey
	}
	acct, err := deps.AccountStore.GetByID(ctx, key.AccountID)
	if err != nil {
		return access.Anonymous, ErrInvalidAPIKey
	}
	return access.Caller{AccountID: acct.ID, Role: acct.Role, Mode: access.ModeAPIKey}, nil
}

// ExecuteListAPIKeys returns the caller's keys.
func ExecuteListAPIKeys(ctx context.Context, caller access.Caller, deps APIKeyDeps) ([]account.APIKey, error) {
	if caller.Mode != access.ModeIdentity {
		return nil, access.ErrForbidden
	}
	return deps.KeyStore.ListAPIKeys(ctx, caller.AccountID)
}

// ExecuteRevokeAPIKey revokes one of the caller's keys.
// POST: the key can no longer authenticate
func ExecuteRevokeAPIKey(ctx context.Context, caller access.Caller, id string, deps APIKeyDeps) error {
	if caller.Mode != access.ModeIdentity {
		return access.ErrForbidden
	}
	if err := deps.KeyStore.RevokeAPIKey(ctx, id, caller.AccountID); err != nil {
		return err
	}
	slog.Info("auth_event", "event", "api_key_revoked", "account_id", caller.AccountID, "key_id", id)
	return nil
}
