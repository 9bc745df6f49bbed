package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marathon/internal/adapters/http/middleware"
	"marathon/internal/application/orchestrators"
	"marathon/internal/domain/access"
	"marathon/internal/domain/cheer"
	"marathon/internal/domain/completion"
	"marathon/internal/domain/plan"
)

// TestHandleCompletions_Unauthenticated tests the 401 mapping.
func TestHandleCompletions_Unauthenticated(t *testing.T) {
	setupWeb(t)
	rec := httptest.NewRecorder()
	handleCompletions(rec, httptest.NewRequest("GET", "/api/completions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

// TestHandleCompletions_UpsertTwice tests that two upserts leave one record.
func TestHandleCompletions_UpsertTwice(t *testing.T) {
	setupWeb(t)
	for _, body := range []string{
		`{"week_num":1,"day":"Mon","is_completed":true}`,
		`{"week_num":1,"day":"Mon","is_completed":false}`,
	} {
		rec := httptest.NewRecorder()
		handleCompletions(rec, authRequest("PUT", "/api/completions", body, adminSession))
		if rec.Code != http.StatusOK {
			t.Fatalf("upsert: got %d, want 200: %s", rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	handleCompletions(rec, authRequest("GET", "/api/completions", "", adminSession))
	var list []completion.Completion
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d records, want 1", len(list))
	}
	if list[0].IsCompleted {
		t.Error("expected record to be not completed")
	}

	rec = httptest.NewRecorder()
	handleCompletions(rec, authRequest("GET", "/api/completions?completed=true", "", adminSession))
	list = nil
	json.NewDecoder(rec.Body).Decode(&list)
	if len(list) != 0 {
		t.Errorf("got %d completed records, want 0", len(list))
	}
}

// TestHandleCompletions_ErrorMapping tests the taxonomy to status mapping.
func TestHandleCompletions_ErrorMapping(t *testing.T) {
	setupWeb(t)
	tests := []struct {
		name   string
		method string
		target string
		body   string
		sess   middleware.Session
		want   int
		field  string
	}{
		{"viewer write", "POST", "/api/completions", `{"week_num":1,"day":"Mon","is_completed":true}`, viewerSession, http.StatusForbidden, ""},
		{"bad week", "POST", "/api/completions", `{"week_num":11,"day":"Mon","is_completed":true}`, adminSession, http.StatusBadRequest, "week_num"},
		{"bad day", "PUT", "/api/completions", `{"week_num":1,"day":"Funday","is_completed":true}`, adminSession, http.StatusBadRequest, "day"},
		{"unknown field", "POST", "/api/completions", `{"week":1}`, adminSession, http.StatusBadRequest, ""},
		{"missing id", "DELETE", "/api/completions?id=nope", "", adminSession, http.StatusNotFound, ""},
		{"bad filter", "GET", "/api/completions?completed=maybe", "", adminSession, http.StatusBadRequest, "completed"},
		{"method", "HEAD", "/api/completions", "", adminSession, http.StatusMethodNotAllowed, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleCompletions(rec, authRequest(tc.method, tc.target, tc.body, tc.sess))
			if rec.Code != tc.want {
				t.Fatalf("got %d, want %d: %s", rec.Code, tc.want, rec.Body.String())
			}
			if tc.field != "" {
				var body errorBody
				json.NewDecoder(rec.Body).Decode(&body)
				if body.Field != tc.field {
					t.Errorf("got field %q, want %q", body.Field, tc.field)
				}
			}
		})
	}
}

// TestHandleCompletions_APIKeyCaller tests that key callers cannot read owner-scoped records.
func TestHandleCompletions_APIKeyCaller(t *testing.T) {
	setupWeb(t)
	req := httptest.NewRequest("GET", "/api/completions", nil)
	req = req.WithContext(middleware.ContextWithCaller(req.Context(), access.Caller{AccountID: "admin-1", Role: access.RoleAdmin, Mode: access.ModeAPIKey}))
	rec := httptest.NewRecorder()
	handleCompletions(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("got %d, want %d", rec.Code, http.StatusForbidden)
	}
}

// TestHandleCompletions_CreatePatchDelete tests the record lifecycle.
func TestHandleCompletions_CreatePatchDelete(t *testing.T) {
	setupWeb(t)
	rec := httptest.NewRecorder()
	handleCompletions(rec, authRequest("POST", "/api/completions", `{"week_num":3,"day":"Wed","is_completed":true}`, adminSession))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d: %s", rec.Code, rec.Body.String())
	}
	var created completion.Completion
	json.NewDecoder(rec.Body).Decode(&created)
	if created.Owner != "admin-1" || created.Day != plan.Wed {
		t.Errorf("unexpected record %+v", created)
	}

	rec = httptest.NewRecorder()
	handleCompletions(rec, authRequest("POST", "/api/completions", `{"week_num":3,"day":"Wed","is_completed":false}`, adminSession))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate create: got %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	handleCompletions(rec, authRequest("PATCH", "/api/completions?id="+created.ID, `{"is_completed":false}`, adminSession))
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: got %d: %s", rec.Code, rec.Body.String())
	}
	var patched completion.Completion
	json.NewDecoder(rec.Body).Decode(&patched)
	if patched.IsCompleted {
		t.Error("expected patched record to be not completed")
	}

	rec = httptest.NewRecorder()
	handleCompletions(rec, authRequest("DELETE", "/api/completions?id="+created.ID, "", adminSession))
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: got %d, want 204", rec.Code)
	}
}

// TestHandleCheers_CreateAndList tests that viewers can read the runner's cheers.
func TestHandleCheers_CreateAndList(t *testing.T) {
	setupWeb(t)
	rec := httptest.NewRecorder()
	handleCheers(rec, authRequest("POST", "/api/cheers", `{"week_num":10,"day":"Sun","message":"  race day!  ","timestamp":"2025-03-16T05:00:00Z"}`, adminSession))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d: %s", rec.Code, rec.Body.String())
	}
	var created cheer.Cheer
	json.NewDecoder(rec.Body).Decode(&created)
	if created.Message != "race day!" {
		t.Errorf("expected trimmed message, got %q", created.Message)
	}

	rec = httptest.NewRecorder()
	handleCheers(rec, authRequest("GET", "/api/cheers", "", viewerSession))
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got %d", rec.Code)
	}
	var list []cheer.Cheer
	json.NewDecoder(rec.Body).Decode(&list)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("expected viewer to see the cheer, got %+v", list)
	}

	rec = httptest.NewRecorder()
	handleCheers(rec, authRequest("DELETE", "/api/cheers?id="+created.ID, "", viewerSession))
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer delete: got %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	handleCheers(rec, authRequest("PATCH", "/api/cheers?id="+created.ID, `{"message":"go go go"}`, adminSession))
	if rec.Code != http.StatusOK {
		t.Errorf("patch: got %d: %s", rec.Code, rec.Body.String())
	}
}

// TestHandleCheers_Validation tests message and timestamp validation.
func TestHandleCheers_Validation(t *testing.T) {
	setupWeb(t)
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"empty", `{"week_num":1,"day":"Mon","message":"   ","timestamp":"2025-01-06T05:00:00Z"}`, "message"},
		{"too long", `{"week_num":1,"day":"Mon","message":"` + strings.Repeat("x", 501) + `","timestamp":"2025-01-06T05:00:00Z"}`, "message"},
		{"bad timestamp", `{"week_num":1,"day":"Mon","message":"hi","timestamp":"yesterday"}`, "timestamp"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleCheers(rec, authRequest("POST", "/api/cheers", tc.body, adminSession))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want 400: %s", rec.Code, rec.Body.String())
			}
			var body errorBody
			json.NewDecoder(rec.Body).Decode(&body)
			if body.Field != tc.field {
				t.Errorf("got field %q, want %q", body.Field, tc.field)
			}
		})
	}
}

// TestHandlePlan tests the reference data endpoint.
func TestHandlePlan(t *testing.T) {
	setupWeb(t)
	rec := httptest.NewRecorder()
	handlePlan(rec, httptest.NewRequest("GET", "/api/plan", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	var resp PlanResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Weeks) != 10 {
		t.Errorf("got %d weeks, want 10", len(resp.Weeks))
	}
	if got := resp.Workouts[1][plan.Mon]; got != "easy 6 miles" {
		t.Errorf("got %q, want easy 6 miles", got)
	}
	if got := resp.Colors["1"][plan.Mon]; got != "green" {
		t.Errorf("got color %q, want green", got)
	}
	if resp.Nutrition["rest_day"].PreWorkout != "" {
		t.Error("rest day has no pre-workout guidance")
	}
	if resp.Span != "Jan 6 - Mar 16, 2025" {
		t.Errorf("got span %q", resp.Span)
	}
}

// TestHandleAPISession tests login, whoami and logout over JSON.
func TestHandleAPISession(t *testing.T) {
	setupWeb(t)
	deps := orchestrators.CreateAccountDeps{AccountStore: stores.AccountStore, GenerateID: generateID, Now: timeNow}
	if _, err := orchestrators.ExecuteCreateAccount(context.Background(), orchestrators.CreateAccountInput{
		Caller:   adminSession.Caller(),
		Email:    "coach@example.com",
		Password: "negative splits always",
		Role:     access.RoleViewer,
	}, deps); err != nil {
		t.Fatalf("create account: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/session", strings.NewReader(`{"email":"coach@example.com","password":"wrong password!!"}`))
	handleAPISession(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: got %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/session", strings.NewReader(`{"email":"coach@example.com","password":"negative splits always"}`))
	handleAPISession(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got %d: %s", rec.Code, rec.Body.String())
	}
	var resp sessionResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Role != access.RoleViewer || resp.Token == "" {
		t.Errorf("unexpected session %+v", resp)
	}
	if !sessions.Valid(resp.Token) {
		t.Error("expected token to be a live session")
	}

	rec = httptest.NewRecorder()
	handleAPISession(rec, authRequest("GET", "/api/session", "", viewerSession))
	var who callerResponse
	json.NewDecoder(rec.Body).Decode(&who)
	if who.Mode != string(access.ModeIdentity) || who.AccountID != "viewer-1" {
		t.Errorf("unexpected caller %+v", who)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("DELETE", "/api/session", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	handleAPISession(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("logout: got %d, want 204", rec.Code)
	}
	if sessions.Valid(resp.Token) {
		t.Error("expected session to be gone after logout")
	}
}

// TestHandleAPIKeys tests issuing a key and authenticating with it.
func TestHandleAPIKeys(t *testing.T) {
	setupWeb(t)
	rec := httptest.NewRecorder()
	handleAPIKeys(rec, authRequest("POST", "/api/keys", `{"name":"watch sync"}`, adminSession))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d: %s", rec.Code, rec.Body.String())
	}
	var resp apiKeyResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if !strings.HasPrefix(resp.Secret, "mk_") {
		t.Errorf("expected mk_ secret, got %q", resp.Secret)
	}

	caller, err := authenticateAPIKey(context.Background(), resp.Secret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if caller.Mode != access.ModeAPIKey || caller.AccountID != "admin-1" {
		t.Errorf("unexpected caller %+v", caller)
	}

	rec = httptest.NewRecorder()
	handleAPIKeys(rec, authRequest("DELETE", "/api/keys?id="+resp.Key.ID, "", adminSession))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("revoke: got %d", rec.Code)
	}
	if _, err := authenticateAPIKey(context.Background(), resp.Secret); err == nil {
		t.Error("expected revoked key to be rejected")
	}

	rec = httptest.NewRecorder()
	handleAPIKeys(rec, httptest.NewRequest("GET", "/api/keys", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: got %d, want 401", rec.Code)
	}
}

// TestHandleAdminAccounts tests admin-only account creation.
func TestHandleAdminAccounts(t *testing.T) {
	setupWeb(t)
	body := `{"email":"friend@example.com","password":"long enough secret","role":"viewer"}`

	rec := httptest.NewRecorder()
	handleAdminAccounts(rec, authRequest("POST", "/api/admin/accounts", body, viewerSession))
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer: got %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	handleAdminAccounts(rec, authRequest("POST", "/api/admin/accounts", body, adminSession))
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin: got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response must not carry the password hash")
	}

	rec = httptest.NewRecorder()
	handleAdminAccounts(rec, authRequest("POST", "/api/admin/accounts", body, adminSession))
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate: got %d, want 409", rec.Code)
	}
}

// TestHandleAdminPerf tests the admin gate and snapshot shape.
func TestHandleAdminPerf(t *testing.T) {
	setupWeb(t)

	rec := httptest.NewRecorder()
	handleAdminPerf(rec, authRequest("GET", "/api/admin/perf", "", viewerSession))
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer: got %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	handleAdminPerf(rec, authRequest("GET", "/api/admin/perf?window=bogus", "", adminSession))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad window: got %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	handleAdminPerf(rec, authRequest("GET", "/api/admin/perf?window=1h", "", adminSession))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: got %d", rec.Code)
	}
	var snap struct {
		Kinds map[string]json.RawMessage `json:"kinds"`
	}
	json.NewDecoder(rec.Body).Decode(&snap)
	for _, k := range []string{"request", "query", "sync"} {
		if _, ok := snap.Kinds[k]; !ok {
			t.Errorf("expected kind %q in snapshot", k)
		}
	}
}

// TestHandleChangePassword tests the password change round trip.
func TestHandleChangePassword(t *testing.T) {
	setupWeb(t)
	deps := orchestrators.CreateAccountDeps{AccountStore: stores.AccountStore, GenerateID: generateID, Now: timeNow}
	acct, err := orchestrators.ExecuteCreateAccount(context.Background(), orchestrators.CreateAccountInput{
		Caller:   adminSession.Caller(),
		Email:    "coach@example.com",
		Password: "negative splits always",
		Role:     access.RoleViewer,
	}, deps)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	coach := middleware.Session{AccountID: acct.ID, Email: acct.Email, Role: acct.Role}

	rec := httptest.NewRecorder()
	handleChangePassword(rec, authRequest("PUT", "/api/session/password", `{"current_password":"wrong","new_password":"tempo tuesdays rule"}`, coach))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "current_password") {
		t.Errorf("wrong current: got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handleChangePassword(rec, authRequest("PUT", "/api/session/password", `{"current_password":"negative splits always","new_password":"tempo tuesdays rule"}`, coach))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("change: got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handleAPISession(rec, httptest.NewRequest("POST", "/api/session", strings.NewReader(`{"email":"coach@example.com","password":"tempo tuesdays rule"}`)))
	if rec.Code != http.StatusOK {
		t.Errorf("login with new password: got %d", rec.Code)
	}
}
