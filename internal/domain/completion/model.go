package completion

import (
	"errors"
	"fmt"
	"time"

	"marathon/internal/domain/access"
	"marathon/internal/domain/plan"
)

// ErrDuplicate is returned by stores when a second completion targets an occupied plan day.
var ErrDuplicate = errors.New("completion: plan day already recorded")

// Completion records whether the owner finished the workout of one plan day.
// At most one Completion exists per (Owner, WeekNum, Day).
type Completion struct {
	ID          string    `json:"id"`
	WeekNum     int       `json:"week_num"`
	Day         plan.Day  `json:"day"`
	IsCompleted bool      `json:"is_completed"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Key returns the plan day this completion belongs to.
func (c Completion) Key() plan.Key {
	return plan.NewKey(c.WeekNum, c.Day)
}

// Validate checks the week and day against the plan.
// PRE: none
// POST: returns *access.ValidationError naming the first bad field
func (c Completion) Validate() error {
	return ValidateKey(c.WeekNum, c.Day)
}

// ValidateKey checks that (week, day) exists in the plan.
func ValidateKey(week int, day plan.Day) error {
	if !plan.ValidWeek(week) {
		return access.NewValidationError("week_num", fmt.Sprintf("must be between 1 and %d", plan.WeekCount()))
	}
	if !day.Valid() {
		return access.NewValidationError("day", plan.ErrInvalidDay.Error())
	}
	return nil
}

// Filter narrows a completion listing.
type Filter struct {
	OnlyCompleted bool
	Key           *plan.Key
}
