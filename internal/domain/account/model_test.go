package account_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"marathon/internal/domain/access"
	"marathon/internal/domain/account"
)

// TestAccount_Validate tests validation of Account.
func TestAccount_Validate(t *testing.T) {
	tests := []struct {
		name    string
		account account.Account
		wantErr error
	}{
		{"valid admin", account.Account{ID: "1", Email: "runner@example.com", Role: account.RoleAdmin}, nil},
		{"valid viewer", account.Account{ID: "2", Email: "fan@example.com", Role: account.RoleViewer}, nil},
		{"empty email", account.Account{ID: "3", Email: "  ", Role: account.RoleAdmin}, account.ErrEmptyEmail},
		{"no at sign", account.Account{ID: "4", Email: "runner.example.com", Role: account.RoleAdmin}, account.ErrInvalidEmail},
		{"too long", account.Account{ID: "5", Email: strings.Repeat("a", 250) + "@x.io", Role: account.RoleAdmin}, account.ErrEmailTooLong},
		{"bad role", account.Account{ID: "6", Email: "coach@example.com", Role: "coach"}, account.ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestAccount_Password tests hashing and verification.
func TestAccount_Password(t *testing.T) {
	a := account.Account{}
	if err := a.SetPassword(""); !errors.Is(err, account.ErrEmptyPassword) {
		t.Errorf("expected ErrEmptyPassword, got %v", err)
	}
	if err := a.SetPassword("short"); !errors.Is(err, account.ErrPasswordTooShort) {
		t.Errorf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := a.SetPassword("sub 3:25 or bust"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if a.PasswordHash == "sub 3:25 or bust" {
		t.Fatal("expected password to be hashed")
	}
	if err := a.CheckPassword("sub 3:25 or bust"); err != nil {
		t.Errorf("expected correct password to verify, got %v", err)
	}
	if err := a.CheckPassword("sub 3:30 or bust"); !errors.Is(err, account.ErrWrongPassword) {
		t.Errorf("expected ErrWrongPassword, got %v", err)
	}
}

// TestAccount_Lockout tests the failed login counter.
func TestAccount_Lockout(t *testing.T) {
	now := time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC)
	a := account.Account{}
	for i := 0; i < account.MaxFailedLogins-1; i++ {
		a.RecordFailedLogin(now)
	}
	if a.IsLocked(now) {
		t.Fatal("expected account to be unlocked before the limit")
	}
	a.RecordFailedLogin(now)
	if !a.IsLocked(now) {
		t.Fatal("expected account to be locked at the limit")
	}
	if a.IsLocked(now.Add(account.LockoutDuration)) {
		t.Error("expected lock to expire")
	}
	a.ResetFailedLogins()
	if a.FailedLogins != 0 || a.IsLocked(now) {
		t.Error("expected reset to clear the lock")
	}
}

// TestAccount_Caller tests the identity claim.
func TestAccount_Caller(t *testing.T) {
	a := account.Account{ID: "a1", Role: account.RoleAdmin}
	c := a.Caller()
	if !c.IsAdmin() || c.Mode != access.ModeIdentity || c.AccountID != "a1" {
		t.Errorf("unexpected caller: %+v", c)
	}
}

// TestAPIKey tests generation, hashing and expiry.
func TestAPIKey(t *testing.T) {
	now := time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC)
	key, secret, err := account.NewAPIKey("k1", "a1", "cli", now, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("NewAPIKey: %v", err)
	}
	if !strings.HasPrefix(secret, "mk_") {
		t.Errorf("expected mk_ prefix, got %s", secret)
	}
	if key.Hash != account.HashAPIKey(secret) || key.Hash == secret {
		t.Error("expected stored hash of the secret")
	}
	if err := key.Check(now.Add(29 * 24 * time.Hour)); err != nil {
		t.Errorf("expected key valid on day 29, got %v", err)
	}
	if err := key.Check(now.Add(30 * 24 * time.Hour)); !errors.Is(err, account.ErrKeyExpired) {
		t.Errorf("expected ErrKeyExpired on day 30, got %v", err)
	}
	key.Revoked = true
	if err := key.Check(now); !errors.Is(err, account.ErrKeyRevoked) {
		t.Errorf("expected ErrKeyRevoked, got %v", err)
	}
}
