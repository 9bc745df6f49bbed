package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"marathon/internal/adapters/http/middleware"
	"marathon/internal/adapters/http/perf"
	"marathon/internal/application/calendarsync"
	"marathon/internal/application/orchestrators"
	"marathon/internal/application/projections"
	"marathon/internal/domain/plan"
)

// notices maps the ?notice= codes set by form handlers to the flash shown on the calendar.
var notices = map[string]string{
	"load_failed":    "Could not load your progress. Showing what we had.",
	"toggle_failed":  "Could not save that workout. Please try again.",
	"cheer_failed":   "Could not post your cheer. Your message was kept.",
	"uncheer_failed": "Could not remove that cheer.",
	"not_admin":      "Only the runner can change the calendar.",
}

// handleRoot redirects / to the calendar and 404s everything else.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/calendar", http.StatusSeeOther)
}

// handleLogin handles GET (form) and POST (authenticate) for /login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/calendar", http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "login.html", map[string]any{})

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		input := orchestrators.LoginInput{
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
		}
		result, err := orchestrators.ExecuteLogin(r.Context(), input, loginDeps())
		if err != nil {
			if !errors.Is(err, orchestrators.ErrInvalidCredentials) && !errors.Is(err, orchestrators.ErrAccountLocked) {
				internalError(w, err)
				return
			}
			renderTemplateStatus(w, r, http.StatusUnauthorized, "login.html", map[string]any{
				"Error": err.Error(),
				"Email": input.Email,
			})
			return
		}

		token, err := sessions.Create(result.AccountID, result.Email, result.Role)
		if err != nil {
			internalError(w, err)
			return
		}
		middleware.SetSessionCookie(w, token)
		http.Redirect(w, r, "/calendar", http.StatusSeeOther)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	endSession(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// sessionSync returns the view state of the request's session, creating it on first use.
func sessionSync(r *http.Request) *calendarsync.Synchronizer {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	token := middleware.TokenFromContext(r.Context())
	s, _ := syncs.Get(token, func() *calendarsync.Synchronizer {
		caller := sess.Caller()
		records := &calendarsync.LocalRecords{
			Caller:      caller,
			Completions: completionDeps(),
			Cheers:      cheerDeps(),
		}
		return calendarsync.New(records, caller.IsAdmin(), calendarsync.Options{
			OnlyCompleted: true,
			Now:           timeNow,
			Observe:       observeSync,
		})
	})
	return s
}

func observeSync(op string, start time.Time, err error) {
	perfCollector.Observe(perf.KindSync, op, start, err)
}

// handleCalendar handles GET /calendar[?tab=guidelines][&open=<week>-<Day>][&notice=<code>]
func handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s := sessionSync(r)
	q := r.URL.Query()
	flash := notices[q.Get("notice")]
	if err := s.LoadAll(r.Context()); err != nil {
		flash = notices["load_failed"]
	}

	now := timeNow()
	view := projections.QueryCalendar(now, currentSeasonStart(now), s.Snapshot(), s.IsAdmin())

	open := ""
	if key, err := plan.ParseKey(q.Get("open")); err == nil && s.IsAdmin() {
		open = key.String()
	}
	tab := "schedule"
	if q.Get("tab") == "guidelines" {
		tab = "guidelines"
	}

	renderTemplate(w, r, "calendar.html", map[string]any{
		"View":       view,
		"Progress":   projections.SummarizeProgress(view),
		"Tab":        tab,
		"Guidelines": renderMarkdown(plan.Guidelines),
		"Flash":      flash,
		"Open":       open,
		"Draft":      s.Draft(),
	})
}

// dayForm reads the week and day fields shared by the calendar forms.
func dayForm(r *http.Request) (plan.Key, bool) {
	if err := r.ParseForm(); err != nil {
		return plan.Key{}, false
	}
	week, err := strconv.Atoi(r.FormValue("week"))
	if err != nil || !plan.ValidWeek(week) {
		return plan.Key{}, false
	}
	day, err := plan.ParseDay(r.FormValue("day"))
	if err != nil {
		return plan.Key{}, false
	}
	return plan.NewKey(week, day), true
}

// backToCalendar redirects to the calendar, optionally reopening a popover and flashing a notice.
func backToCalendar(w http.ResponseWriter, r *http.Request, key plan.Key, open bool, notice string) {
	q := url.Values{}
	if open {
		q.Set("open", key.String())
	}
	if notice != "" {
		q.Set("notice", notice)
	}
	target := "/calendar"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target+"#day-"+key.String(), http.StatusSeeOther)
}

func noticeFor(err error, fallback string) string {
	if errors.Is(err, calendarsync.ErrNotAdmin) {
		return "not_admin"
	}
	return fallback
}

// handleCalendarToggle handles POST /calendar/toggle
func handleCalendarToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	key, ok := dayForm(r)
	if !ok {
		http.Error(w, "invalid week or day", http.StatusBadRequest)
		return
	}
	region := projections.Region(r.FormValue("region"))
	if projections.Dispatch(region) != projections.ActionToggle {
		slog.Debug("calendar_event", "event", "toggle_ignored", "key", key.String(), "region", region)
		backToCalendar(w, r, key, region == projections.RegionCheerPopover, "")
		return
	}

	if _, err := sessionSync(r).ToggleCompletion(r.Context(), key.Week, key.Day); err != nil {
		backToCalendar(w, r, key, false, noticeFor(err, "toggle_failed"))
		return
	}
	backToCalendar(w, r, key, false, "")
}

// handleCalendarCheer handles POST /calendar/cheers
func handleCalendarCheer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	key, ok := dayForm(r)
	if !ok {
		http.Error(w, "invalid week or day", http.StatusBadRequest)
		return
	}
	s := sessionSync(r)
	s.SetDraft(r.FormValue("message"))
	if err := s.AddCheer(r.Context(), key.Week, key.Day, s.Draft()); err != nil {
		backToCalendar(w, r, key, true, noticeFor(err, "cheer_failed"))
		return
	}
	backToCalendar(w, r, key, true, "")
}

// handleCalendarUncheer handles POST /calendar/cheers/delete
func handleCalendarUncheer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	key, ok := dayForm(r)
	if !ok {
		http.Error(w, "invalid week or day", http.StatusBadRequest)
		return
	}
	if err := sessionSync(r).DeleteCheer(r.Context(), key, r.FormValue("id")); err != nil {
		backToCalendar(w, r, key, true, noticeFor(err, "uncheer_failed"))
		return
	}
	backToCalendar(w, r, key, true, "")
}
