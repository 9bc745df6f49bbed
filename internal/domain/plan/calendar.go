package plan

import (
	"fmt"
	"time"
)

// DefaultSeasonStart returns Jan 6 of now's year in now's location.
func DefaultSeasonStart(now time.Time) time.Time {
	return time.Date(now.Year(), time.January, 6, 0, 0, 0, 0, now.Location())
}

// DateOf returns the calendar date of a plan day: seasonStart + (week-1)*7 + day index.
// The result is midnight in loc.
func DateOf(seasonStart time.Time, week int, day Day, loc *time.Location) time.Time {
	offset := (week-1)*7 + day.Index()
	return time.Date(seasonStart.Year(), seasonStart.Month(), seasonStart.Day()+offset, 0, 0, 0, 0, loc)
}

// IsCurrentDay reports whether (week, day) falls on now's calendar date, in now's location.
// PRE: day is valid
// POST: at most one (week, day) pair of the plan returns true for a given now
func IsCurrentDay(seasonStart time.Time, week int, day Day, now time.Time) bool {
	if !day.Valid() {
		return false
	}
	d := DateOf(seasonStart, week, day, now.Location())
	y1, m1, d1 := d.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// SeasonSpan renders the first and last plan dates, e.g. "Jan 6 - Mar 16, 2026".
func SeasonSpan(seasonStart time.Time) string {
	first := DateOf(seasonStart, 1, Mon, seasonStart.Location())
	last := DateOf(seasonStart, len(Weeks), Sun, seasonStart.Location())
	return fmt.Sprintf("%s - %s", first.Format("Jan 2"), last.Format("Jan 2, 2006"))
}
