package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"marathon/internal/adapters/http/middleware"
	"marathon/internal/adapters/http/perf"
	"marathon/internal/adapters/storage"
	accountStore "marathon/internal/adapters/storage/account"
	cheerStore "marathon/internal/adapters/storage/cheer"
	completionStore "marathon/internal/adapters/storage/completion"
	outboxStore "marathon/internal/adapters/storage/outbox"
	"marathon/internal/application/calendarsync"
	"marathon/internal/domain/access"
	"marathon/internal/domain/account"
)

var fixedTime = time.Date(2025, 1, 6, 6, 30, 0, 0, time.UTC)

var (
	adminSession  = middleware.Session{AccountID: "admin-1", Email: "runner@example.com", Role: access.RoleAdmin}
	viewerSession = middleware.Session{AccountID: "viewer-1", Email: "fan@example.com", Role: access.RoleViewer}
)

// setupWeb points the package globals at fresh in-memory stores.
func setupWeb(t *testing.T) {
	t.Helper()
	db, err := storage.Open(storage.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db, storage.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	tdb := storage.NewTimedDB(db, storage.DriverSQLite, nil, 0)
	accounts := accountStore.NewSQLStore(tdb)
	stores = &Stores{
		AccountStore:    accounts,
		KeyStore:        accounts,
		CompletionStore: completionStore.NewSQLStore(tdb),
		CheerStore:      cheerStore.NewSQLStore(tdb),
		OutboxStore:     outboxStore.NewSQLStore(tdb),
	}
	sessions = middleware.NewSessionStore()
	syncs = calendarsync.NewRegistry()
	perfCollector = perf.NewCollector(100)
	cheerNotifier = nil
	outboxProcessor = nil
	seasonStart = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	apiKeyTTL = 30 * 24 * time.Hour

	var n atomic.Int64
	prevID, prevNow := idGen, timeNow
	idGen = func() string { return fmt.Sprintf("id-%d", n.Add(1)) }
	timeNow = func() time.Time { return fixedTime }
	t.Cleanup(func() { idGen, timeNow = prevID, prevNow })

	for _, s := range []middleware.Session{adminSession, viewerSession} {
		acct := account.Account{ID: s.AccountID, Email: s.Email, Role: s.Role, PasswordHash: "x", CreatedAt: fixedTime}
		if err := accounts.Save(context.Background(), acct); err != nil {
			t.Fatalf("seed account: %v", err)
		}
	}
}

// authRequest builds a request carrying sess as if the Auth middleware had resolved it.
func authRequest(method, target, body string, sess middleware.Session) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(middleware.ContextWithSession(req.Context(), "tok-"+sess.AccountID, sess))
}

// formRequest builds a form POST carrying sess.
func formRequest(target string, form url.Values, sess middleware.Session) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req.WithContext(middleware.ContextWithSession(req.Context(), "tok-"+sess.AccountID, sess))
}
