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

// AccountStoreForCreate defines the store interface needed by CreateAccount.
type AccountStoreForCreate interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	Count(ctx context.Context) (int, error)
}

// CreateAccountInput carries input for the orchestrator.
type CreateAccountInput struct {
	Caller   access.Caller
	Email    string
	Password string
	Role     string
}

// CreateAccountDeps holds dependencies for CreateAccount.
type CreateAccountDeps struct {
	AccountStore AccountStoreForCreate
	GenerateID   func() string
	Now          func() time.Time
}

var ErrEmailAlreadyExists = errors.New("an account with this email already exists")

// ExecuteCreateAccount creates a login for a viewer or another admin.
// PRE: caller holds the admin claim
// POST: Account created with hashed password
// INVARIANT: Email must be unique
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (account.Account, error) {
	if !input.Caller.IsAdmin() {
		return account.Account{}, access.ErrForbidden
	}
	return createAccount(ctx, input, deps)
}

func createAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (account.Account, error) {
	email := strings.TrimSpace(input.Email)
	if _, err := deps.AccountStore.GetByEmail(ctx, email); err == nil {
		return account.Account{}, ErrEmailAlreadyExists
	}

	acct := account.Account{
		ID:        deps.GenerateID(),
		Email:     email,
		Role:      input.Role,
		CreatedAt: deps.Now(),
	}
	if err := acct.Validate(); err != nil {
		return account.Account{}, access.NewValidationError("account", err.Error())
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return account.Account{}, access.NewValidationError("password", err.Error())
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return account.Account{}, err
	}

	slog.Info("auth_event", "event", "account_created", "email", email, "role", acct.Role)
	return acct, nil
}

// ExecuteSeedAdmin creates the admin account when the database has no accounts yet.
// PRE: email and password come from configuration
// POST: at least one account exists
func ExecuteSeedAdmin(ctx context.Context, deps CreateAccountDeps, email, password string) error {
	count, err := deps.AccountStore.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = createAccount(ctx, CreateAccountInput{Email: email, Password: password, Role: account.RoleAdmin}, deps)
	return err
}
