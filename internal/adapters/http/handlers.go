package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"marathon/internal/adapters/http/middleware"
	"marathon/internal/application/orchestrators"
	"marathon/internal/domain/access"
	"marathon/internal/domain/outbox"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// idGen is a variable for testability.
var idGen = func() string { return uuid.New().String() }

// generateID creates a new record ID.
func generateID() string {
	return idGen()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeJSONError(w, http.StatusInternalServerError, "internal server error", "")
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode_failed", "error", err)
	}
}

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, msg, field string) {
	writeJSON(w, status, errorBody{Error: msg, Field: field})
}

// writeError maps the record store error taxonomy to a status code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *access.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSONError(w, http.StatusBadRequest, ve.Error(), ve.Field)
	case errors.Is(err, access.ErrUnauthenticated):
		writeJSONError(w, http.StatusUnauthorized, "not authenticated", "")
	case errors.Is(err, access.ErrForbidden):
		slog.Warn("auth_denied", "path", r.URL.Path, "account_id", middleware.CallerFromContext(r.Context()).AccountID, "error", err)
		writeJSONError(w, http.StatusForbidden, "forbidden", "")
	case errors.Is(err, access.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not found", "")
	case errors.Is(err, orchestrators.ErrEmailAlreadyExists):
		writeJSONError(w, http.StatusConflict, err.Error(), "email")
	case errors.Is(err, outbox.ErrTerminal):
		writeJSONError(w, http.StatusConflict, err.Error(), "")
	default:
		internalError(w, err)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed", "")
}

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

var templateFuncs = template.FuncMap{
	"renderMarkdown": renderMarkdown,
	"add":            func(a, b int) int { return a + b },
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data map[string]any) {
	renderTemplateStatus(w, r, http.StatusOK, templateName, data)
}

func renderTemplateStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data map[string]any) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	funcs := template.FuncMap{
		"currentEmail": func() string { return sess.Email },
		"currentRole":  func() string { return sess.Role },
		"isLoggedIn":   func() bool { return ok },
		"csrfField":    func() template.HTML { return csrf.TemplateField(r) },
	}

	tpl, err := template.New("layout.html").Funcs(templateFuncs).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		internalError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
