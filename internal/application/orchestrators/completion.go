package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"marathon/internal/domain/access"
	"marathon/internal/domain/completion"
	"marathon/internal/domain/plan"
)

// CompletionStoreForOrchestrator defines the store interface needed by the completion orchestrators.
type CompletionStoreForOrchestrator interface {
	List(ctx context.Context, owner string, filter completion.Filter) ([]completion.Completion, error)
	GetByID(ctx context.Context, id string) (completion.Completion, error)
	Insert(ctx context.Context, c completion.Completion) error
	Update(ctx context.Context, c completion.Completion) error
	Delete(ctx context.Context, id string) error
	Upsert(ctx context.Context, c completion.Completion) (completion.Completion, error)
}

// CompletionDeps holds dependencies for the completion orchestrators.
type CompletionDeps struct {
	CompletionStore CompletionStoreForOrchestrator
	GenerateID      func() string
	Now             func() time.Time
}

// CreateCompletionInput carries input for creating a completion.
type CreateCompletionInput struct {
	Caller      access.Caller `json:"-"`
	WeekNum     int           `json:"week_num" validate:"required,planweek"`
	Day         plan.Day      `json:"day" validate:"required,planday"`
	IsCompleted bool          `json:"is_completed"`
}

// UpdateCompletionInput carries a partial update; nil fields keep their stored value.
type UpdateCompletionInput struct {
	Caller      access.Caller `json:"-"`
	ID          string        `json:"id" validate:"required"`
	WeekNum     *int          `json:"week_num" validate:"omitempty,planweek"`
	Day         *plan.Day     `json:"day" validate:"omitempty,planday"`
	IsCompleted *bool         `json:"is_completed"`
}

// UpsertCompletionInput carries the state to write for one plan day.
type UpsertCompletionInput struct {
	Caller      access.Caller `json:"-"`
	WeekNum     int           `json:"week_num" validate:"required,planweek"`
	Day         plan.Day      `json:"day" validate:"required,planday"`
	IsCompleted bool          `json:"is_completed"`
}

// ExecuteListCompletions returns the caller's completions ordered by week then day.
// PRE: none
// POST: returns only records owned by the caller
func ExecuteListCompletions(ctx context.Context, caller access.Caller, filter completion.Filter, deps CompletionDeps) ([]completion.Completion, error) {
	if _, err := access.CompletionRule.CanList(caller); err != nil {
		return nil, err
	}
	if filter.Key != nil {
		if err := completion.ValidateKey(filter.Key.Week, filter.Key.Day); err != nil {
			return nil, err
		}
	}
	return deps.CompletionStore.List(ctx, caller.AccountID, filter)
}

// ExecuteCreateCompletion stores a new completion owned by the caller.
// PRE: caller holds the admin claim
// POST: returns the stored record; a second record for the same day is rejected
// INVARIANT: at most one completion per (owner, week, day)
func ExecuteCreateCompletion(ctx context.Context, input CreateCompletionInput, deps CompletionDeps) (completion.Completion, error) {
	if err := access.CompletionRule.CanWrite(input.Caller); err != nil {
		return completion.Completion{}, err
	}
	if err := validateInput(input); err != nil {
		return completion.Completion{}, err
	}

	key := plan.NewKey(input.WeekNum, input.Day)
	if err := ensureNoCompletion(ctx, deps, input.Caller.AccountID, key); err != nil {
		return completion.Completion{}, err
	}

	now := deps.Now()
	c := completion.Completion{
		ID:          deps.GenerateID(),
		WeekNum:     input.WeekNum,
		Day:         input.Day,
		IsCompleted: input.IsCompleted,
		Owner:       input.Caller.AccountID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.Validate(); err != nil {
		return completion.Completion{}, err
	}
	if err := deps.CompletionStore.Insert(ctx, c); err != nil {
		return completion.Completion{}, duplicateAsValidation(err, key)
	}
	slog.Info("completion_event", "event", "completion_created", "key", key.String(), "is_completed", c.IsCompleted)
	return c, nil
}

// ExecuteUpdateCompletion merges the provided fields into an existing completion.
// PRE: caller holds the admin claim
// POST: returns access.ErrNotFound unless the record exists and is owned by the caller
func ExecuteUpdateCompletion(ctx context.Context, input UpdateCompletionInput, deps CompletionDeps) (completion.Completion, error) {
	if err := access.CompletionRule.CanWrite(input.Caller); err != nil {
		return completion.Completion{}, err
	}
	if err := validateInput(input); err != nil {
		return completion.Completion{}, err
	}

	c, err := deps.CompletionStore.GetByID(ctx, input.ID)
	if err != nil {
		return completion.Completion{}, err
	}
	if err := access.CompletionRule.CanModify(input.Caller, c.Owner); err != nil {
		return completion.Completion{}, err
	}

	oldKey := c.Key()
	if input.WeekNum != nil {
		c.WeekNum = *input.WeekNum
	}
	if input.Day != nil {
		c.Day = *input.Day
	}
	if input.IsCompleted != nil {
		c.IsCompleted = *input.IsCompleted
	}
	if c.Key() != oldKey {
		if err := ensureNoCompletion(ctx, deps, c.Owner, c.Key()); err != nil {
			return completion.Completion{}, err
		}
	}
	if err := c.Validate(); err != nil {
		return completion.Completion{}, err
	}
	c.UpdatedAt = deps.Now()
	if err := deps.CompletionStore.Update(ctx, c); err != nil {
		return completion.Completion{}, duplicateAsValidation(err, c.Key())
	}
	slog.Info("completion_event", "event", "completion_updated", "id", c.ID, "key", c.Key().String())
	return c, nil
}

// ExecuteDeleteCompletion removes a completion owned by the caller.
// PRE: caller holds the admin claim
// POST: returns access.ErrNotFound unless the record exists and is owned by the caller
func ExecuteDeleteCompletion(ctx context.Context, caller access.Caller, id string, deps CompletionDeps) error {
	if err := access.CompletionRule.CanWrite(caller); err != nil {
		return err
	}
	c, err := deps.CompletionStore.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := access.CompletionRule.CanModify(caller, c.Owner); err != nil {
		return err
	}
	if err := deps.CompletionStore.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("completion_event", "event", "completion_deleted", "id", id)
	return nil
}

// ExecuteUpsertCompletion sets the completion state of one plan day, creating the record on first use.
// PRE: caller holds the admin claim
// POST: exactly one record exists for (caller, week, day) with the requested state
func ExecuteUpsertCompletion(ctx context.Context, input UpsertCompletionInput, deps CompletionDeps) (completion.Completion, error) {
	if err := access.CompletionRule.CanWrite(input.Caller); err != nil {
		return completion.Completion{}, err
	}
	if err := validateInput(input); err != nil {
		return completion.Completion{}, err
	}
	now := deps.Now()
	c, err := deps.CompletionStore.Upsert(ctx, completion.Completion{
		ID:          deps.GenerateID(),
		WeekNum:     input.WeekNum,
		Day:         input.Day,
		IsCompleted: input.IsCompleted,
		Owner:       input.Caller.AccountID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return completion.Completion{}, err
	}
	slog.Info("completion_event", "event", "completion_set", "key", c.Key().String(), "is_completed", c.IsCompleted)
	return c, nil
}

func ensureNoCompletion(ctx context.Context, deps CompletionDeps, owner string, key plan.Key) error {
	existing, err := deps.CompletionStore.List(ctx, owner, completion.Filter{Key: &key})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return duplicateDay(key)
	}
	return nil
}

// duplicateAsValidation reports a unique index rejection from a concurrent writer
// the same way ensureNoCompletion reports it.
func duplicateAsValidation(err error, key plan.Key) error {
	if errors.Is(err, completion.ErrDuplicate) {
		return duplicateDay(key)
	}
	return err
}

func duplicateDay(key plan.Key) error {
	return access.NewValidationError("day", fmt.Sprintf("a completion for %s already exists", key))
}
