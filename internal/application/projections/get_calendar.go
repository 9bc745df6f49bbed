package projections

import (
	"time"

	"marathon/internal/application/calendarsync"
	"marathon/internal/domain/plan"
)

// CalendarCell is one day of the calendar grid.
type CalendarCell struct {
	Key         plan.Key
	Workout     string
	Category    plan.Category
	CSSClass    string
	Nutrition   plan.Nutrition
	Date        time.Time
	IsToday     bool
	IsCompleted bool
	Cheers      []calendarsync.CheerSummary // admin only
	CheerCount  int                         // admin only
}

// CalendarWeek is one row of the calendar grid.
type CalendarWeek struct {
	WeekNum int
	Start   string
	End     string
	Cells   []CalendarCell
}

// CalendarView carries everything the schedule tab renders.
type CalendarView struct {
	Title   string
	Goal    string
	Span    string
	IsAdmin bool
	Loaded  bool
	Weeks   []CalendarWeek
}

// QueryCalendar derives the calendar grid from the plan and a cache snapshot.
// PRE: seasonStart is the Monday of week 1
// POST: one cell per plan day in week then Mon..Sun order; at most one cell has IsToday;
// cheers are left empty unless isAdmin
func QueryCalendar(now, seasonStart time.Time, snap calendarsync.Snapshot, isAdmin bool) CalendarView {
	view := CalendarView{
		Title:   plan.PlanHeader.Title,
		Goal:    plan.PlanHeader.Goal,
		Span:    plan.SeasonSpan(seasonStart),
		IsAdmin: isAdmin,
		Loaded:  snap.Loaded,
		Weeks:   make([]CalendarWeek, 0, len(plan.Weeks)),
	}

	for _, w := range plan.Weeks {
		row := CalendarWeek{WeekNum: w.WeekNum, Start: w.Start, End: w.End, Cells: make([]CalendarCell, 0, len(plan.Days))}
		for _, day := range plan.Days {
			key := plan.NewKey(w.WeekNum, day)
			workout := plan.WorkoutFor(w.WeekNum, day)
			category := plan.Classify(workout)
			cell := CalendarCell{
				Key:         key,
				Workout:     workout,
				Category:    category,
				CSSClass:    category.CSSClass(),
				Nutrition:   plan.NutritionFor(workout),
				Date:        plan.DateOf(seasonStart, w.WeekNum, day, now.Location()),
				IsToday:     plan.IsCurrentDay(seasonStart, w.WeekNum, day, now),
				IsCompleted: snap.IsCompleted(key),
			}
			if isAdmin {
				cell.Cheers = snap.Cheers[key]
				cell.CheerCount = len(cell.Cheers)
			}
			row.Cells = append(row.Cells, cell)
		}
		view.Weeks = append(view.Weeks, row)
	}
	return view
}

// Today returns the cell for now, if now falls inside the season.
func (v CalendarView) Today() (CalendarCell, bool) {
	for _, w := range v.Weeks {
		for _, c := range w.Cells {
			if c.IsToday {
				return c, true
			}
		}
	}
	return CalendarCell{}, false
}

// CompletedCount returns how many cells are completed.
func (v CalendarView) CompletedCount() int {
	n := 0
	for _, w := range v.Weeks {
		for _, c := range w.Cells {
			if c.IsCompleted {
				n++
			}
		}
	}
	return n
}
