package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"marathon/internal/domain/access"
)

type contextKey string

const (
	sessionContextKey contextKey = "session"
	callerContextKey  contextKey = "caller"
	tokenContextKey   contextKey = "session_token"
)

// SessionTTL is how long a session stays valid after login.
const SessionTTL = 24 * time.Hour

// APIKeyHeader carries an API key for the public authorization mode.
const APIKeyHeader = "X-Api-Key"

// SecureCookies marks session cookies Secure. Set in production.
var SecureCookies bool

// Session represents an authenticated browser or CLI session.
type Session struct {
	AccountID string
	Email     string
	Role      string
	CreatedAt time.Time
}

// Caller returns the identity-mode caller for the session.
func (s Session) Caller() access.Caller {
	return access.Caller{AccountID: s.AccountID, Role: s.Role, Mode: access.ModeIdentity}
}

// SessionStore is an in-memory session store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// Create stores a new session and returns the token.
// PRE: accountID and role are non-empty
// POST: Session is stored, token is returned
func (ss *SessionStore) Create(accountID, email, role string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[token] = Session{
		AccountID: accountID,
		Email:     email,
		Role:      role,
		CreatedAt: ss.now(),
	}
	return token, nil
}

// Get retrieves a session by token. Expired sessions are removed.
func (ss *SessionStore) Get(token string) (Session, bool) {
	ss.mu.RLock()
	session, ok := ss.sessions[token]
	ss.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if ss.now().Sub(session.CreatedAt) > SessionTTL {
		ss.Delete(token)
		return Session{}, false
	}
	return session, true
}

// Valid reports whether token names a live session.
func (ss *SessionStore) Valid(token string) bool {
	_, ok := ss.Get(token)
	return ok
}

// Delete removes a session by token.
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, token)
}

// APIKeyAuthenticator resolves an API key secret to a caller.
type APIKeyAuthenticator func(ctx context.Context, secret string) (access.Caller, error)

const sessionCookieName = "marathon_session"

// Auth returns middleware that resolves the caller from the session cookie, a
// bearer token, or the API key header. It does NOT block unauthenticated
// requests; handlers decide through the access rules.
func Auth(sessions *SessionStore, keys APIKeyAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret := r.Header.Get(APIKeyHeader); secret != "" && keys != nil {
				caller, err := keys(r.Context(), secret)
				if err != nil {
					slog.Warn("auth_event", "event", "api_key_rejected", "path", r.URL.Path, "error", err)
				} else {
					r = r.WithContext(context.WithValue(r.Context(), callerContextKey, caller))
				}
				next.ServeHTTP(w, r)
				return
			}

			if token := SessionToken(r); token != "" {
				if session, ok := sessions.Get(token); ok {
					ctx := context.WithValue(r.Context(), sessionContextKey, session)
					ctx = context.WithValue(ctx, callerContextKey, session.Caller())
					ctx = context.WithValue(ctx, tokenContextKey, token)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionToken returns the session token from the cookie or an Authorization bearer header.
func SessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// RequireAuth returns middleware that redirects requests without a session to /login.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSessionFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(Session)
	return session, ok
}

// TokenFromContext returns the session token the request authenticated with.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// CallerFromContext returns the resolved caller, or access.Anonymous.
func CallerFromContext(ctx context.Context) access.Caller {
	if caller, ok := ctx.Value(callerContextKey).(access.Caller); ok {
		return caller
	}
	return access.Anonymous
}

// ContextWithSession returns a context carrying sess and its identity caller.
// Intended for use in tests.
func ContextWithSession(ctx context.Context, token string, sess Session) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, sess)
	ctx = context.WithValue(ctx, tokenContextKey, token)
	return context.WithValue(ctx, callerContextKey, sess.Caller())
}

// ContextWithCaller returns a context carrying caller without a session.
func ContextWithCaller(ctx context.Context, caller access.Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

// IsAdmin checks if the request was made by an admin session.
func IsAdmin(ctx context.Context) bool {
	return CallerFromContext(ctx).IsAdmin()
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
