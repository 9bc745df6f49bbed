package orchestrators

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"marathon/internal/domain/access"
	"marathon/internal/domain/cheer"
	"marathon/internal/domain/plan"
)

// CheerStoreForOrchestrator defines the store interface needed by the cheer orchestrators.
// An empty owner lists every owner's cheers.
type CheerStoreForOrchestrator interface {
	List(ctx context.Context, owner string) ([]cheer.Cheer, error)
	GetByID(ctx context.Context, id string) (cheer.Cheer, error)
	Insert(ctx context.Context, c cheer.Cheer) error
	Update(ctx context.Context, c cheer.Cheer) error
	Delete(ctx context.Context, id string) error
}

// CheerNotifier is told about each new cheer. Delivery is best effort.
type CheerNotifier interface {
	NotifyCheer(ctx context.Context, c cheer.Cheer) error
}

// CheerDeps holds dependencies for the cheer orchestrators.
type CheerDeps struct {
	CheerStore CheerStoreForOrchestrator
	Notifier   CheerNotifier              // optional
	Outbox     OutboxStoreForOrchestrator // optional; failed notifications are queued here
	GenerateID func() string
	Now        func() time.Time
}

// CreateCheerInput carries input for posting a cheer.
type CreateCheerInput struct {
	Caller    access.Caller `json:"-"`
	WeekNum   int           `json:"week_num" validate:"required,planweek"`
	Day       plan.Day      `json:"day" validate:"required,planday"`
	Message   string        `json:"message" validate:"required,max=500"`
	Timestamp string        `json:"timestamp" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// UpdateCheerInput carries a partial update; nil fields keep their stored value.
type UpdateCheerInput struct {
	Caller    access.Caller `json:"-"`
	ID        string        `json:"id" validate:"required"`
	WeekNum   *int          `json:"week_num" validate:"omitempty,planweek"`
	Day       *plan.Day     `json:"day" validate:"omitempty,planday"`
	Message   *string       `json:"message" validate:"omitempty,max=500"`
	Timestamp *string       `json:"timestamp" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// ExecuteListCheers returns every cheer visible to the caller in arrival order.
// PRE: none
// POST: any authenticated identity caller sees all owners' cheers
func ExecuteListCheers(ctx context.Context, caller access.Caller, deps CheerDeps) ([]cheer.Cheer, error) {
	allOwners, err := access.CheerRule.CanList(caller)
	if err != nil {
		return nil, err
	}
	owner := caller.AccountID
	if allOwners {
		owner = ""
	}
	return deps.CheerStore.List(ctx, owner)
}

// ExecuteCreateCheer stores a cheer owned by the caller and notifies subscribers.
// PRE: caller holds the admin claim
// POST: returns the stored cheer with a server-generated ID and trimmed message
func ExecuteCreateCheer(ctx context.Context, input CreateCheerInput, deps CheerDeps) (cheer.Cheer, error) {
	if err := access.CheerRule.CanWrite(input.Caller); err != nil {
		return cheer.Cheer{}, err
	}
	input.Message = strings.TrimSpace(input.Message)
	if err := validateInput(input); err != nil {
		return cheer.Cheer{}, err
	}

	c := cheer.Cheer{
		ID:        deps.GenerateID(),
		WeekNum:   input.WeekNum,
		Day:       input.Day,
		Message:   input.Message,
		Timestamp: input.Timestamp,
		Owner:     input.Caller.AccountID,
		CreatedAt: deps.Now(),
	}
	if err := c.Validate(); err != nil {
		return cheer.Cheer{}, err
	}
	if err := deps.CheerStore.Insert(ctx, c); err != nil {
		return cheer.Cheer{}, err
	}
	slog.Info("cheer_event", "event", "cheer_created", "id", c.ID, "key", c.Key().String())

	if deps.Notifier != nil {
		if err := deps.Notifier.NotifyCheer(ctx, c); err != nil {
			slog.Warn("cheer_event", "event", "notify_failed", "id", c.ID, "error", err)
			if deps.Outbox != nil {
				enqueueCheerEmail(ctx, deps, c, err)
			}
		}
	}
	return c, nil
}

// ExecuteUpdateCheer merges the provided fields into an existing cheer.
// PRE: caller holds the admin claim
// POST: returns access.ErrNotFound unless the cheer exists and is owned by the caller
func ExecuteUpdateCheer(ctx context.Context, input UpdateCheerInput, deps CheerDeps) (cheer.Cheer, error) {
	if err := access.CheerRule.CanWrite(input.Caller); err != nil {
		return cheer.Cheer{}, err
	}
	if input.Message != nil {
		trimmed := strings.TrimSpace(*input.Message)
		input.Message = &trimmed
	}
	if err := validateInput(input); err != nil {
		return cheer.Cheer{}, err
	}

	c, err := deps.CheerStore.GetByID(ctx, input.ID)
	if err != nil {
		return cheer.Cheer{}, err
	}
	if err := access.CheerRule.CanModify(input.Caller, c.Owner); err != nil {
		return cheer.Cheer{}, err
	}
	if input.WeekNum != nil {
		c.WeekNum = *input.WeekNum
	}
	if input.Day != nil {
		c.Day = *input.Day
	}
	if input.Message != nil {
		c.Message = *input.Message
	}
	if input.Timestamp != nil {
		c.Timestamp = *input.Timestamp
	}
	if err := c.Validate(); err != nil {
		return cheer.Cheer{}, err
	}
	if err := deps.CheerStore.Update(ctx, c); err != nil {
		return cheer.Cheer{}, err
	}
	slog.Info("cheer_event", "event", "cheer_updated", "id", c.ID)
	return c, nil
}

// ExecuteDeleteCheer removes a cheer owned by the caller.
// PRE: caller holds the admin claim
// POST: returns access.ErrNotFound unless the cheer exists and is owned by the caller
func ExecuteDeleteCheer(ctx context.Context, caller access.Caller, id string, deps CheerDeps) error {
	if err := access.CheerRule.CanWrite(caller); err != nil {
		return err
	}
	c, err := deps.CheerStore.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := access.CheerRule.CanModify(caller, c.Owner); err != nil {
		return err
	}
	if err := deps.CheerStore.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("cheer_event", "event", "cheer_deleted", "id", id)
	return nil
}
