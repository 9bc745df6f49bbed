package web

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"marathon/internal/adapters/http/middleware"
	"marathon/internal/adapters/http/perf"
	accountStore "marathon/internal/adapters/storage/account"
	cheerStore "marathon/internal/adapters/storage/cheer"
	completionStore "marathon/internal/adapters/storage/completion"
	outboxStore "marathon/internal/adapters/storage/outbox"
	"marathon/internal/application/calendarsync"
	"marathon/internal/application/orchestrators"
	"marathon/internal/domain/plan"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore    accountStore.Store
	KeyStore        accountStore.KeyStore
	CompletionStore completionStore.Store
	CheerStore      cheerStore.Store
	OutboxStore     outboxStore.Store // optional
}

// Options carries the settings NewMux needs beyond storage.
type Options struct {
	CSRFKey        []byte
	SecureCookies  bool
	TrustedOrigins []string
	RateLimit      int // requests per minute per IP
	SlowRequestMs  int
	SeasonStart    time.Time // zero means Jan 6 of the current year
	APIKeyTTL      time.Duration
	Notifier       orchestrators.CheerNotifier
	Outbox         *orchestrators.OutboxProcessor // optional; enables /api/admin/outbox
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// Per-session view state, keyed by session token
var syncs *calendarsync.Registry

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

var cheerNotifier orchestrators.CheerNotifier

var seasonStart time.Time

var apiKeyTTL time.Duration

var outboxProcessor *orchestrators.OutboxProcessor

// NewMux wires HTTP handlers for the app.
func NewMux(s *Stores, opts Options, collector *perf.Collector) http.Handler {
	stores = s
	perfCollector = collector
	sessions = middleware.NewSessionStore()
	syncs = calendarsync.NewRegistry()
	cheerNotifier = opts.Notifier
	seasonStart = opts.SeasonStart
	apiKeyTTL = opts.APIKeyTTL
	outboxProcessor = opts.Outbox
	middleware.SecureCookies = opts.SecureCookies

	mux := http.NewServeMux()
	registerRoutes(mux)

	rate := opts.RateLimit
	if rate <= 0 {
		rate = 120
	}
	limiter := middleware.NewRateLimiter(rate, time.Minute)

	// Apply middleware: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, opts.SecureCookies, opts.TrustedOrigins),
		middleware.Auth(sessions, authenticateAPIKey),
		middleware.RateLimit(limiter),
		middleware.Timing(collector, opts.SlowRequestMs),
	)
}

func registerRoutes(mux *http.ServeMux) {
	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	mux.HandleFunc("/", handleRoot)
	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)
	mux.Handle("/calendar", middleware.RequireAuth(http.HandlerFunc(handleCalendar)))
	mux.Handle("/calendar/toggle", middleware.RequireAuth(http.HandlerFunc(handleCalendarToggle)))
	mux.Handle("/calendar/cheers", middleware.RequireAuth(http.HandlerFunc(handleCalendarCheer)))
	mux.Handle("/calendar/cheers/delete", middleware.RequireAuth(http.HandlerFunc(handleCalendarUncheer)))

	mux.HandleFunc("/api/session", handleAPISession)
	mux.HandleFunc("/api/session/password", handleChangePassword)
	mux.HandleFunc("/api/completions", handleCompletions)
	mux.HandleFunc("/api/cheers", handleCheers)
	mux.HandleFunc("/api/plan", handlePlan)
	mux.HandleFunc("/api/keys", handleAPIKeys)
	mux.HandleFunc("/api/admin/accounts", handleAdminAccounts)
	mux.HandleFunc("/api/admin/perf", handleAdminPerf)
	mux.HandleFunc("/api/admin/outbox", handleAdminOutbox)
	mux.HandleFunc("/api/admin/outbox/retry", handleAdminOutboxAction)
	mux.HandleFunc("/api/admin/outbox/abandon", handleAdminOutboxAction)
}

// PruneSessions forgets view state of expired or logged-out sessions.
func PruneSessions() int {
	if syncs == nil || sessions == nil {
		return 0
	}
	return syncs.Retain(sessions.Valid)
}

func currentSeasonStart(now time.Time) time.Time {
	if !seasonStart.IsZero() {
		return seasonStart
	}
	return plan.DefaultSeasonStart(now)
}
