package plan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Day is a training weekday in its short display form ("Mon".."Sun").
type Day string

// Day constants, Monday first.
const (
	Mon Day = "Mon"
	Tue Day = "Tue"
	Wed Day = "Wed"
	Thu Day = "Thu"
	Fri Day = "Fri"
	Sat Day = "Sat"
	Sun Day = "Sun"
)

// Days lists the training week in display order.
var Days = []Day{Mon, Tue, Wed, Thu, Fri, Sat, Sun}

// Domain errors
var (
	ErrInvalidDay = errors.New("day must be one of Mon, Tue, Wed, Thu, Fri, Sat, Sun")
	ErrInvalidKey = errors.New("workout key must look like <week>-<Day>")
)

// Index returns the zero-based position of the day in the training week, or -1.
func (d Day) Index() int {
	for i, day := range Days {
		if day == d {
			return i
		}
	}
	return -1
}

// Valid reports whether d is one of Days.
func (d Day) Valid() bool {
	return d.Index() >= 0
}

// ParseDay converts a string to a Day.
// PRE: none
// POST: returns ErrInvalidDay for anything other than the seven short names
func ParseDay(s string) (Day, error) {
	d := Day(strings.TrimSpace(s))
	if !d.Valid() {
		return "", ErrInvalidDay
	}
	return d, nil
}

// Week is one row of the plan: its number and display date span.
type Week struct {
	WeekNum int
	Start   string
	End     string
}

// Key identifies a single training day across schedule data, completions and cheers.
type Key struct {
	Week int
	Day  Day
}

// NewKey builds a Key.
func NewKey(week int, day Day) Key {
	return Key{Week: week, Day: day}
}

// String renders the key as "<week>-<Day>", e.g. "1-Mon".
func (k Key) String() string {
	return strconv.Itoa(k.Week) + "-" + string(k.Day)
}

// ParseKey parses the "<week>-<Day>" form produced by Key.String.
// PRE: none
// POST: returns ErrInvalidKey when the week is not a positive integer or the day is invalid
func ParseKey(s string) (Key, error) {
	weekStr, dayStr, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Key{}, ErrInvalidKey
	}
	week, err := strconv.Atoi(weekStr)
	if err != nil || week < 1 {
		return Key{}, fmt.Errorf("%w: bad week %q", ErrInvalidKey, weekStr)
	}
	day, err := ParseDay(dayStr)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return Key{Week: week, Day: day}, nil
}

// Nutrition is a fueling guideline block shown under each workout.
// PreMeal and PreWorkout are optional and may be empty.
type Nutrition struct {
	Title      string
	PreMeal    string
	PreWorkout string
}

// WeekCount returns the number of weeks in the plan.
func WeekCount() int {
	return len(Weeks)
}

// ValidWeek reports whether week falls inside the plan.
func ValidWeek(week int) bool {
	return week >= 1 && week <= len(Weeks)
}

// WorkoutFor returns the workout description for a day, or "" when the plan has none.
func WorkoutFor(week int, day Day) string {
	days, ok := Workouts[week]
	if !ok {
		return ""
	}
	return days[day]
}
