// Package client is a typed HTTP client for the marathon JSON API.
//
// A Client authenticated with Login satisfies calendarsync.Records, so the
// same synchronizer that backs the HTML calendar can drive a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"marathon/internal/application/calendarsync"
	"marathon/internal/domain/access"
	"marathon/internal/domain/cheer"
	"marathon/internal/domain/completion"
	"marathon/internal/domain/plan"
)

// RequestIDHeader carries a per-request id for correlating client and server logs.
const RequestIDHeader = "X-Request-Id"

// ErrAccountLocked is returned by Login when the server has locked the account.
var ErrAccountLocked = errors.New("account locked")

// Client talks to one marathon server as one identity.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	APIKey     string
}

var _ calendarsync.Records = (*Client)(nil)

// New returns a client for baseURL with a bounded request timeout.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Session describes the identity a token was issued for.
type Session struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// IsAdmin reports whether the session holds the admin claim.
func (s Session) IsAdmin() bool {
	return s.Role == access.RoleAdmin
}

// Login exchanges credentials for a bearer token and keeps it on the client.
// PRE: email and password are non-empty
// POST: c.Token is set on success
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var sess Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/session", nil, body, &sess); err != nil {
		return Session{}, err
	}
	c.Token = sess.Token
	return sess, nil
}

// Logout ends the server session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodDelete, "/api/session", nil, nil, nil)
	c.Token = ""
	return err
}

// ChangePassword replaces the logged-in account's password. Sessions stay valid.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"current_password": current, "new_password": next}
	return c.do(ctx, http.MethodPut, "/api/session/password", nil, body, nil)
}

// Whoami returns the identity behind the current token. Token is left empty.
func (c *Client) Whoami(ctx context.Context) (Session, error) {
	var sess Session
	err := c.do(ctx, http.MethodGet, "/api/session", nil, nil, &sess)
	return sess, err
}

// Plan fetches the static schedule reference data.
func (c *Client) Plan(ctx context.Context) (PlanResponse, error) {
	var p PlanResponse
	err := c.do(ctx, http.MethodGet, "/api/plan", nil, nil, &p)
	return p, err
}

// ListCompletions implements calendarsync.Records.
func (c *Client) ListCompletions(ctx context.Context, onlyCompleted bool) ([]completion.Completion, error) {
	q := url.Values{}
	if onlyCompleted {
		q.Set("completed", "true")
	}
	var list []completion.Completion
	err := c.do(ctx, http.MethodGet, "/api/completions", q, nil, &list)
	return list, err
}

// UpsertCompletion implements calendarsync.Records.
func (c *Client) UpsertCompletion(ctx context.Context, week int, day plan.Day, isCompleted bool) (completion.Completion, error) {
	body := struct {
		WeekNum     int      `json:"week_num"`
		Day         plan.Day `json:"day"`
		IsCompleted bool     `json:"is_completed"`
	}{week, day, isCompleted}
	var rec completion.Completion
	err := c.do(ctx, http.MethodPut, "/api/completions", nil, body, &rec)
	return rec, err
}

// ListCheers implements calendarsync.Records.
func (c *Client) ListCheers(ctx context.Context) ([]cheer.Cheer, error) {
	var list []cheer.Cheer
	err := c.do(ctx, http.MethodGet, "/api/cheers", nil, nil, &list)
	return list, err
}

// CreateCheer implements calendarsync.Records.
func (c *Client) CreateCheer(ctx context.Context, week int, day plan.Day, message, timestamp string) (cheer.Cheer, error) {
	body := struct {
		WeekNum   int      `json:"week_num"`
		Day       plan.Day `json:"day"`
		Message   string   `json:"message"`
		Timestamp string   `json:"timestamp"`
	}{week, day, message, timestamp}
	var rec cheer.Cheer
	err := c.do(ctx, http.MethodPost, "/api/cheers", nil, body, &rec)
	return rec, err
}

// DeleteCheer implements calendarsync.Records.
func (c *Client) DeleteCheer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/cheers", url.Values{"id": {id}}, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	// JSON content type keeps bodiless writes out of the form CSRF check.
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	switch {
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	case c.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	slog.Debug("client_event", "event", "request", "method", method, "path", path,
		"status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds(), "request_id", req.Header.Get(RequestIDHeader))

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

// decodeError maps an error response back onto the access error taxonomy.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eb errorBody
	if json.Unmarshal(data, &eb) != nil || eb.Error == "" {
		eb.Error = strings.TrimSpace(string(data))
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		if eb.Field != "" {
			return access.NewValidationError(eb.Field, strings.TrimPrefix(eb.Error, "invalid "+eb.Field+": "))
		}
		return fmt.Errorf("bad request: %s", eb.Error)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", access.ErrUnauthenticated, eb.Error)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", access.ErrForbidden, eb.Error)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", access.ErrNotFound, eb.Error)
	case http.StatusLocked:
		return fmt.Errorf("%w: %s", ErrAccountLocked, eb.Error)
	default:
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, eb.Error)
	}
}
