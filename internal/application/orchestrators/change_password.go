package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"marathon/internal/domain/access"
	"marathon/internal/domain/account"
)

// ChangePasswordInput carries input for the change-password orchestrator.
type ChangePasswordInput struct {
	Caller          access.Caller
	CurrentPassword string
	NewPassword     string
}

// AccountStoreForChangePassword defines the store interface needed by ChangePassword.
type AccountStoreForChangePassword interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// ChangePasswordDeps holds dependencies for ChangePassword.
type ChangePasswordDeps struct {
	AccountStore AccountStoreForChangePassword
}

var (
	ErrCurrentPasswordWrong = errors.New("current password is incorrect")
	ErrNewPasswordSame      = errors.New("new password must be different from current password")
)

// ExecuteChangePassword validates the current password and updates to the new one.
// PRE: caller authenticated with a session, not with an API key
// POST: the new bcrypt hash is stored; existing sessions stay valid
func ExecuteChangePassword(ctx context.Context, input ChangePasswordInput, deps ChangePasswordDeps) error {
	if input.Caller.Mode != access.ModeIdentity || input.Caller.AccountID == "" {
		return access.ErrForbidden
	}
	if input.CurrentPassword == "" {
		return access.NewValidationError("current_password", "is required")
	}

	acct, err := deps.AccountStore.GetByID(ctx, input.Caller.AccountID)
	if err != nil {
		return err
	}
	if err := acct.CheckPassword(input.CurrentPassword); err != nil {
		return ErrCurrentPasswordWrong
	}
	if input.CurrentPassword == input.NewPassword {
		return access.NewValidationError("new_password", ErrNewPasswordSame.Error())
	}
	if err := acct.SetPassword(input.NewPassword); err != nil {
		return access.NewValidationError("new_password", err.Error())
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "password_changed", "account_id", acct.ID)
	return nil
}
