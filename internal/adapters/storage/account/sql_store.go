package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"marathon/internal/adapters/storage"
	domain "marathon/internal/domain/account"
)

// SQLStore implements Store and KeyStore on SQLite or Postgres.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new SQLStore.
// PRE: db is open with migrations applied
// POST: store is ready for use
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

const accountColumns = "id, email, password_hash, role, created_at, failed_logins, locked_until"

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE id = ?", id)
	return scanAccount(row.Scan)
}

// GetByEmail retrieves an Account by email, case-insensitively.
// PRE: email is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM account WHERE LOWER(email) = ?", strings.ToLower(email))
	return scanAccount(row.Scan)
}

// Save persists an Account (insert or update).
// PRE: entity has been validated
// POST: Entity is persisted
func (s *SQLStore) Save(ctx context.Context, entity domain.Account) error {
	var lockedUntil any
	if !entity.LockedUntil.IsZero() {
		lockedUntil = storage.FormatTime(entity.LockedUntil)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   email=excluded.email, password_hash=excluded.password_hash, role=excluded.role,
		   failed_logins=excluded.failed_logins, locked_until=excluded.locked_until`,
		entity.ID,
		entity.Email,
		entity.PasswordHash,
		entity.Role,
		storage.FormatTime(entity.CreatedAt),
		entity.FailedLogins,
		lockedUntil,
	)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// Count returns the total number of accounts.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account").Scan(&count)
	return count, err
}

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var createdAt string
	var lockedUntil sql.NullString
	err := scan(
		&entity.ID,
		&entity.Email,
		&entity.PasswordHash,
		&entity.Role,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, ErrNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	entity.CreatedAt, _ = storage.ParseTime(createdAt)
	if lockedUntil.Valid && lockedUntil.String != "" {
		entity.LockedUntil, _ = storage.ParseTime(lockedUntil.String)
	}
	return entity, nil
}

const keyColumns = "id, account_id, name, key_hash, created_at, expires_at, revoked"

// SaveAPIKey inserts a new API key.
// PRE: key.Hash is the SHA-256 of the secret
// POST: key is persisted
func (s *SQLStore) SaveAPIKey(ctx context.Context, key domain.APIKey) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO api_key ("+keyColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		key.ID, key.AccountID, key.Name, key.Hash,
		storage.FormatTime(key.CreatedAt), storage.FormatTime(key.ExpiresAt), boolToInt(key.Revoked),
	)
	if err != nil {
		return fmt.Errorf("save api key: %w", err)
	}
	return nil
}

// GetAPIKeyByHash looks a key up by the hash of its secret.
func (s *SQLStore) GetAPIKeyByHash(ctx context.Context, hash string) (domain.APIKey, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+keyColumns+" FROM api_key WHERE key_hash = ?", hash)
	return scanKey(row.Scan)
}

// ListAPIKeys returns an account's keys, newest first.
func (s *SQLStore) ListAPIKeys(ctx context.Context, accountID string) ([]domain.APIKey, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+keyColumns+" FROM api_key WHERE account_id = ? ORDER BY created_at DESC, id", accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.APIKey
	for rows.Next() {
		k, err := scanKey(rows.Scan)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RevokeAPIKey marks one of the account's keys revoked.
// POST: returns ErrNotFound if the account owns no key with that id
func (s *SQLStore) RevokeAPIKey(ctx context.Context, id, accountID string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE api_key SET revoked = 1 WHERE id = ? AND account_id = ?", id, accountID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanKey(scan func(dest ...any) error) (domain.APIKey, error) {
	var k domain.APIKey
	var createdAt, expiresAt string
	var revoked int
	err := scan(&k.ID, &k.AccountID, &k.Name, &k.Hash, &createdAt, &expiresAt, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.APIKey{}, ErrNotFound
	}
	if err != nil {
		return domain.APIKey{}, err
	}
	k.CreatedAt, _ = storage.ParseTime(createdAt)
	k.ExpiresAt, _ = storage.ParseTime(expiresAt)
	k.Revoked = revoked != 0
	return k, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
