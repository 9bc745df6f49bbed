package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"marathon/internal/adapters/http/middleware"
	"marathon/internal/application/orchestrators"
	"marathon/internal/domain/access"
	"marathon/internal/domain/account"
	"marathon/internal/domain/completion"
	"marathon/internal/domain/plan"
)

func completionDeps() orchestrators.CompletionDeps {
	return orchestrators.CompletionDeps{CompletionStore: stores.CompletionStore, GenerateID: generateID, Now: timeNow}
}

func cheerDeps() orchestrators.CheerDeps {
	deps := orchestrators.CheerDeps{CheerStore: stores.CheerStore, Notifier: cheerNotifier, GenerateID: generateID, Now: timeNow}
	if stores.OutboxStore != nil {
		deps.Outbox = stores.OutboxStore
	}
	return deps
}

func apiKeyDeps() orchestrators.APIKeyDeps {
	return orchestrators.APIKeyDeps{KeyStore: stores.KeyStore, AccountStore: stores.AccountStore, GenerateID: generateID, Now: timeNow, TTL: apiKeyTTL}
}

func loginDeps() orchestrators.LoginDeps {
	return orchestrators.LoginDeps{AccountStore: stores.AccountStore, Now: timeNow}
}

func authenticateAPIKey(ctx context.Context, secret string) (access.Caller, error) {
	return orchestrators.ExecuteAuthenticateAPIKey(ctx, secret, apiKeyDeps())
}

// sessionResponse is returned by POST /api/session.
type sessionResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// callerResponse is returned by GET /api/session.
type callerResponse struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
	Mode      string `json:"mode"`
}

// handleAPISession handles POST (login), GET (whoami) and DELETE (logout) for /api/session
func handleAPISession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := strictDecode(r, &body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}

		result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{Email: body.Email, Password: body.Password}, loginDeps())
		switch {
		case errors.Is(err, orchestrators.ErrAccountLocked):
			writeJSONError(w, http.StatusLocked, err.Error(), "")
			return
		case errors.Is(err, orchestrators.ErrInvalidCredentials):
			writeJSONError(w, http.StatusUnauthorized, err.Error(), "")
			return
		case err != nil:
			internalError(w, err)
			return
		}

		token, err := sessions.Create(result.AccountID, result.Email, result.Role)
		if err != nil {
			internalError(w, err)
			return
		}
		middleware.SetSessionCookie(w, token)
		writeJSON(w, http.StatusOK, sessionResponse{Token: token, AccountID: result.AccountID, Email: result.Email, Role: result.Role})

	case http.MethodGet:
		caller := middleware.CallerFromContext(r.Context())
		if !caller.IsAuthenticated() {
			writeError(w, r, access.ErrUnauthenticated)
			return
		}
		writeJSON(w, http.StatusOK, callerResponse{AccountID: caller.AccountID, Role: caller.Role, Mode: string(caller.Mode)})

	case http.MethodDelete:
		endSession(w, r)
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

// handleChangePassword handles PUT /api/session/password
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	if !caller.IsAuthenticated() {
		writeError(w, r, access.ErrUnauthenticated)
		return
	}
	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := strictDecode(r, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
		Caller:          caller,
		CurrentPassword: body.CurrentPassword,
		NewPassword:     body.NewPassword,
	}, orchestrators.ChangePasswordDeps{AccountStore: stores.AccountStore})
	if errors.Is(err, orchestrators.ErrCurrentPasswordWrong) {
		writeJSONError(w, http.StatusBadRequest, err.Error(), "current_password")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// endSession forgets the request's session and its view state.
func endSession(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		sessions.Delete(token)
		syncs.Drop(token)
		if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
			slog.Info("auth_event", "event", "logout", "account_id", sess.AccountID)
		}
	}
	middleware.ClearSessionCookie(w)
}

// handleCompletions handles GET/POST/PUT/PATCH/DELETE for /api/completions
func handleCompletions(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromContext(r.Context())
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		filter, err := completionFilter(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := orchestrators.ExecuteListCompletions(ctx, caller, filter, completionDeps())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var input orchestrators.CreateCompletionInput
		if err := strictDecode(r, &input); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		input.Caller = caller
		rec, err := orchestrators.ExecuteCreateCompletion(ctx, input, completionDeps())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)

	case http.MethodPut:
		var input orchestrators.UpsertCompletionInput
		if err := strictDecode(r, &input); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		input.Caller = caller
		rec, err := orchestrators.ExecuteUpsertCompletion(ctx, input, completionDeps())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)

	case http.MethodPatch:
		var input orchestrators.UpdateCompletionInput
		if err := strictDecode(r, &input); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		input.Caller = caller
		input.ID = r.URL.Query().Get("id")
		rec, err := orchestrators.ExecuteUpdateCompletion(ctx, input, completionDeps())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)

	case http.MethodDelete:
		if err := orchestrators.ExecuteDeleteCompletion(ctx, caller, r.URL.Query().Get("id"), completionDeps()); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

// completionFilter reads ?completed=true and an optional ?week=&day= key.
func completionFilter(r *http.Request) (completion.Filter, error) {
	q := r.URL.Query()
	var filter completion.Filter
	if v := q.Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, access.NewValidationError("completed", "must be true or false")
		}
		filter.OnlyCompleted = b
	}
	if q.Get("week") != "" || q.Get("day") != "" {
		week, err := strconv.Atoi(q.Get("week"))
		if err != nil {
			return filter, access.NewValidationError("week", "must be a number")
		}
		if err := completion.ValidateKey(week, plan.Day(q.Get("day"))); err != nil {
			return filter, err
		}
		key := plan.NewKey(week, plan.Day(q.Get("day")))
		filter.Key = &key
	}
	return filter, nil
}

// handleCheers handles GET/POST/PATCH/DELETE for /api/cheers
func handleCheers(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromContext(r.Context())
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		list, err := orchestrators.ExecuteListCheers(ctx, caller, cheerDeps())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var input orchestrators.CreateCheerInput
		if err := strictDecode(r, &input); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		input.Caller = caller
		rec, err := orchestrators.ExecuteCreateCheer(ctx, input, cheerDeps())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)

	case http.MethodPatch:
		var input orchestrators.UpdateCheerInput
		if err := strictDecode(r, &input); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		input.Caller = caller
		input.ID = r.URL.Query().Get("id")
		rec, err := orchestrators.ExecuteUpdateCheer(ctx, input, cheerDeps())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)

	case http.MethodDelete:
		if err := orchestrators.ExecuteDeleteCheer(ctx, caller, r.URL.Query().Get("id"), cheerDeps()); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete)
	}
}

// PlanWeek is the wire shape of a plan week.
type PlanWeek struct {
	WeekNum int    `json:"week_num"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// PlanNutrition is the wire shape of a nutrition template.
type PlanNutrition struct {
	Title      string `json:"title"`
	PreMeal    string `json:"pre_meal,omitempty"`
	PreWorkout string `json:"pre_workout,omitempty"`
}

// PlanResponse is the read-only reference data served by GET /api/plan.
type PlanResponse struct {
	Title     string                         `json:"title"`
	Goal      string                         `json:"goal"`
	Span      string                         `json:"span"`
	Weeks     []PlanWeek                     `json:"weeks"`
	Workouts  map[int]map[plan.Day]string    `json:"workouts"`
	Nutrition map[string]PlanNutrition       `json:"nutrition"`
	Colors    map[string]map[plan.Day]string `json:"colors"`
}

func toPlanNutrition(n plan.Nutrition) PlanNutrition {
	return PlanNutrition{Title: n.Title, PreMeal: n.PreMeal, PreWorkout: n.PreWorkout}
}

// handlePlan handles GET /api/plan
func handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	nutrition := map[string]PlanNutrition{
		"long_run": toPlanNutrition(plan.LongRunNutrition),
		"tempo_mp": toPlanNutrition(plan.TempoMPDayNutrition),
		"easy_day": toPlanNutrition(plan.EasyDayNutrition),
		"rest_day": toPlanNutrition(plan.RestDayNutrition),
	}
	resp := PlanResponse{
		Title:     plan.PlanHeader.Title,
		Goal:      plan.PlanHeader.Goal,
		Span:      plan.SeasonSpan(currentSeasonStart(timeNow())),
		Weeks:     make([]PlanWeek, 0, len(plan.Weeks)),
		Workouts:  plan.Workouts,
		Nutrition: nutrition,
		Colors:    make(map[string]map[plan.Day]string, len(plan.Weeks)),
	}
	for _, wk := range plan.Weeks {
		resp.Weeks = append(resp.Weeks, PlanWeek{WeekNum: wk.WeekNum, Start: wk.Start, End: wk.End})
		colors := make(map[plan.Day]string, len(plan.Days))
		for _, d := range plan.Days {
			colors[d] = string(plan.Classify(plan.WorkoutFor(wk.WeekNum, d)))
		}
		resp.Colors[strconv.Itoa(wk.WeekNum)] = colors
	}
	writeJSON(w, http.StatusOK, resp)
}

// apiKeyResponse carries a freshly issued key. The secret is shown once.
type apiKeyResponse struct {
	Key    account.APIKey `json:"key"`
	Secret string         `json:"secret"`
}

// handleAPIKeys handles GET/POST/DELETE for /api/keys
func handleAPIKeys(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFromContext(r.Context())
	if !caller.IsAuthenticated() {
		writeError(w, r, access.ErrUnauthenticated)
		return
	}

	switch r.Method {
	case http.MethodGet:
		keys, err := orchestrators.ExecuteListAPIKeys(r.Context(), caller, apiKeyDeps())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, keys)

	case http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		if err := strictDecode(r, &body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		key, secret, err := orchestrators.ExecuteCreateAPIKey(r.Context(), caller, body.Name, apiKeyDeps())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, apiKeyResponse{Key: key, Secret: secret})

	case http.MethodDelete:
		if err := orchestrators.ExecuteRevokeAPIKey(r.Context(), caller, r.URL.Query().Get("id"), apiKeyDeps()); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

// handleAdminAccounts handles POST /api/admin/accounts
func handleAdminAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	if !caller.IsAuthenticated() {
		writeError(w, r, access.ErrUnauthenticated)
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := strictDecode(r, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	acct, err := orchestrators.ExecuteCreateAccount(r.Context(), orchestrators.CreateAccountInput{
		Caller:   caller,
		Email:    body.Email,
		Password: body.Password,
		Role:     body.Role,
	}, orchestrators.CreateAccountDeps{AccountStore: stores.AccountStore, GenerateID: generateID, Now: timeNow})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

// handleAdminPerf handles GET /api/admin/perf[?window=15m]
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	caller := middleware.CallerFromContext(r.Context())
	if !caller.IsAuthenticated() {
		writeError(w, r, access.ErrUnauthenticated)
		return
	}
	if !caller.IsAdmin() {
		writeError(w, r, access.ErrForbidden)
		return
	}
	if perfCollector == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "perf collection disabled", "")
		return
	}
	window := 15 * time.Minute
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeJSONError(w, http.StatusBadRequest, "window must be a positive duration", "window")
			return
		}
		window = d
	}
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(timeNow().Add(-window), 10))
}
