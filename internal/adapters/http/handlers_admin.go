package web

import (
	"net/http"
	"strconv"
	"strings"

	"marathon/internal/adapters/http/middleware"
	"marathon/internal/domain/access"
)

// requireAdminAPI writes 401 or 403 unless the caller holds the admin claim.
func requireAdminAPI(w http.ResponseWriter, r *http.Request) (access.Caller, bool) {
	caller := middleware.CallerFromContext(r.Context())
	if !caller.IsAuthenticated() {
		writeError(w, r, access.ErrUnauthenticated)
		return caller, false
	}
	if !caller.IsAdmin() {
		writeError(w, r, access.ErrForbidden)
		return caller, false
	}
	return caller, true
}

// queryLimit parses ?limit=, falling back to def for missing or out of range values.
func queryLimit(r *http.Request, def, max int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= max {
			return n
		}
	}
	return def
}

// handleAdminOutbox handles GET /api/admin/outbox (failed notifications)
func handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	caller, ok := requireAdminAPI(w, r)
	if !ok {
		return
	}
	if outboxProcessor == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "outbox disabled", "")
		return
	}
	entries, err := outboxProcessor.ListFailed(r.Context(), caller, queryLimit(r, 50, 100))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleAdminOutboxAction handles POST /api/admin/outbox/retry?id= and /api/admin/outbox/abandon?id=
func handleAdminOutboxAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	caller, ok := requireAdminAPI(w, r)
	if !ok {
		return
	}
	if outboxProcessor == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "outbox disabled", "")
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid id: is required", "id")
		return
	}

	if strings.HasSuffix(r.URL.Path, "/abandon") {
		if err := outboxProcessor.AbandonEntry(r.Context(), caller, id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	entry, err := outboxProcessor.ProcessSingle(r.Context(), caller, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
