package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	emailPkg "marathon/internal/adapters/email"
	web "marathon/internal/adapters/http"
	"marathon/internal/adapters/http/perf"
	"marathon/internal/adapters/storage"
	accountStore "marathon/internal/adapters/storage/account"
	cheerStore "marathon/internal/adapters/storage/cheer"
	completionStore "marathon/internal/adapters/storage/completion"
	outboxStore "marathon/internal/adapters/storage/outbox"
	"marathon/internal/application/orchestrators"
	"marathon/internal/config"
	"marathon/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("startup_event", "event", "server_failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	db, err := storage.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.MigrateDB(db, cfg.DBDriver); err != nil {
		return err
	}

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, cfg.DBDriver, collector, cfg.SlowQueryMs)

	accounts := accountStore.NewSQLStore(timedDB)
	stores := &web.Stores{
		AccountStore:    accounts,
		KeyStore:        accounts,
		CompletionStore: completionStore.NewSQLStore(timedDB),
		CheerStore:      cheerStore.NewSQLStore(timedDB),
		OutboxStore:     outboxStore.NewSQLStore(timedDB),
	}

	seedDeps := orchestrators.CreateAccountDeps{AccountStore: accounts, GenerateID: uuid.NewString, Now: time.Now}
	if err := orchestrators.ExecuteSeedAdmin(context.Background(), seedDeps, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}
	if cfg.SeedTestAccounts {
		if err := orchestrators.ExecuteSeedTestAccounts(context.Background(), seedDeps); err != nil {
			return err
		}
	}

	var sender emailPkg.Sender
	if cfg.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.ResendFrom)
		slog.Info("startup_event", "event", "email_configured", "provider", "resend")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("startup_event", "event", "email_disabled", "reason", "MARATHON_RESEND_KEY is not set")
		}
	}
	notifier := emailPkg.NewCheerNotifier(sender, cfg.CheerRecipients(), cfg.BaseURL)
	processor := orchestrators.NewOutboxProcessor(stores.OutboxStore, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeCheerEmail: orchestrators.CheerEmailExecutor{Notifier: notifier},
	}, time.Now)

	csrfKey := cfg.CSRFKey
	if len(csrfKey) != 32 {
		// development only; Validate rejects this in production
		csrfKey = make([]byte, 32)
		if _, err := rand.Read(csrfKey); err != nil {
			return err
		}
		slog.Warn("startup_event", "event", "ephemeral_csrf_key")
	}

	handler := web.NewMux(stores, web.Options{
		CSRFKey:        csrfKey,
		SecureCookies:  cfg.IsProduction(),
		TrustedOrigins: trustedOrigins(cfg.BaseURL),
		RateLimit:      cfg.RateLimit,
		SlowRequestMs:  cfg.SlowRequestMs,
		SeasonStart:    cfg.SeasonStart,
		APIKeyTTL:      cfg.APIKeyTTL,
		Notifier:       notifier,
		Outbox:         processor,
	}, collector)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go pruneSessions(ctx, 10*time.Minute)
	workerDone := orchestrators.StartBackgroundWorker(ctx, processor, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		schema, _ := storage.SchemaVersion(db)
		slog.Info("startup_event", "event", "listening", "addr", cfg.Addr, "version", version,
			"env", cfg.Env, "driver", cfg.DBDriver, "schema", schema)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("startup_event", "event", "shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	<-workerDone
	return err
}

// pruneSessions releases the view state of expired sessions until ctx ends.
func pruneSessions(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := web.PruneSessions(); n > 0 {
				slog.Debug("auth_event", "event", "sessions_pruned", "count", n)
			}
		}
	}
}

func trustedOrigins(baseURL string) []string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
