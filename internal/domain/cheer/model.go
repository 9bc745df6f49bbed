package cheer

import (
	"strings"
	"time"
	"unicode/utf8"

	"marathon/internal/domain/access"
	"marathon/internal/domain/completion"
	"marathon/internal/domain/plan"
)

// MaxMessageLength is the longest cheer message accepted, in characters.
const MaxMessageLength = 500

// Cheer is an encouragement message attached to a plan day.
// Timestamp is stamped by the client; CreatedAt by the server and drives arrival order.
type Cheer struct {
	ID        string    `json:"id"`
	WeekNum   int       `json:"week_num"`
	Day       plan.Day  `json:"day"`
	Message   string    `json:"message"`
	Timestamp string    `json:"timestamp"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
}

// Key returns the plan day this cheer belongs to.
func (c Cheer) Key() plan.Key {
	return plan.NewKey(c.WeekNum, c.Day)
}

// Validate checks required fields.
// PRE: Message has already been trimmed by the caller
// POST: returns *access.ValidationError naming the first bad field
func (c Cheer) Validate() error {
	if err := completion.ValidateKey(c.WeekNum, c.Day); err != nil {
		return err
	}
	if err := ValidateMessage(c.Message); err != nil {
		return err
	}
	return ValidateTimestamp(c.Timestamp)
}

// ValidateMessage rejects blank or oversized messages.
func ValidateMessage(msg string) error {
	if strings.TrimSpace(msg) == "" {
		return access.NewValidationError("message", "cannot be empty")
	}
	if utf8.RuneCountInString(msg) > MaxMessageLength {
		return access.NewValidationError("message", "cannot exceed 500 characters")
	}
	return nil
}

// ValidateTimestamp requires an RFC 3339 timestamp.
func ValidateTimestamp(ts string) error {
	if ts == "" {
		return access.NewValidationError("timestamp", "is required")
	}
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil {
		return access.NewValidationError("timestamp", "must be RFC 3339")
	}
	return nil
}
