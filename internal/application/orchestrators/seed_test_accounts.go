package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"marathon/internal/domain/account"
)

// TestAccountPassword is shared by the development test accounts.
const TestAccountPassword = "long run sunday!"

// testAccountDef defines a single test account to seed.
type testAccountDef struct {
	Email string
	Role  string
}

// testAccounts returns one login per role.
func testAccounts() []testAccountDef {
	return []testAccountDef{
		{Email: "runner@test.local", Role: account.RoleAdmin},
		{Email: "fan@test.local", Role: account.RoleViewer},
	}
}

// ExecuteSeedTestAccounts creates one account per role if they don't already exist.
// PRE: development only; the admin seed has run
// POST: every test account exists; existing emails are left untouched
func ExecuteSeedTestAccounts(ctx context.Context, deps CreateAccountDeps) error {
	created := 0
	for _, def := range testAccounts() {
		if _, err := deps.AccountStore.GetByEmail(ctx, def.Email); err == nil {
			continue
		}
		if _, err := createAccount(ctx, CreateAccountInput{Email: def.Email, Password: TestAccountPassword, Role: def.Role}, deps); err != nil {
			return fmt.Errorf("seed test account %s: %w", def.Email, err)
		}
		created++
	}
	if created > 0 {
		slog.Info("seed_event", "event", "test_accounts_seeded", "created", created)
	}
	return nil
}
