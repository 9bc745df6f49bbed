package calendarsync

import (
	"context"

	"marathon/internal/application/orchestrators"
	"marathon/internal/domain/access"
	"marathon/internal/domain/cheer"
	"marathon/internal/domain/completion"
	"marathon/internal/domain/plan"
)

// Records is the record store as seen by one caller.
type Records interface {
	ListCompletions(ctx context.Context, onlyCompleted bool) ([]completion.Completion, error)
	UpsertCompletion(ctx context.Context, week int, day plan.Day, isCompleted bool) (completion.Completion, error)
	ListCheers(ctx context.Context) ([]cheer.Cheer, error)
	CreateCheer(ctx context.Context, week int, day plan.Day, message, timestamp string) (cheer.Cheer, error)
	DeleteCheer(ctx context.Context, id string) error
}

// LocalRecords runs Records in-process through the orchestrators for a fixed caller.
type LocalRecords struct {
	Caller      access.Caller
	Completions orchestrators.CompletionDeps
	Cheers      orchestrators.CheerDeps
}

var _ Records = (*LocalRecords)(nil)

// ListCompletions implements Records.
func (r *LocalRecords) ListCompletions(ctx context.Context, onlyCompleted bool) ([]completion.Completion, error) {
	return orchestrators.ExecuteListCompletions(ctx, r.Caller, completion.Filter{OnlyCompleted: onlyCompleted}, r.Completions)
}

// UpsertCompletion implements Records.
func (r *LocalRecords) UpsertCompletion(ctx context.Context, week int, day plan.Day, isCompleted bool) (completion.Completion, error) {
	return orchestrators.ExecuteUpsertCompletion(ctx, orchestrators.UpsertCompletionInput{
		Caller:      r.Caller,
		WeekNum:     week,
		Day:         day,
		IsCompleted: isCompleted,
	}, r.Completions)
}

// ListCheers implements Records.
func (r *LocalRecords) ListCheers(ctx context.Context) ([]cheer.Cheer, error) {
	return orchestrators.ExecuteListCheers(ctx, r.Caller, r.Cheers)
}

// CreateCheer implements Records.
func (r *LocalRecords) CreateCheer(ctx context.Context, week int, day plan.Day, message, timestamp string) (cheer.Cheer, error) {
	return orchestrators.ExecuteCreateCheer(ctx, orchestrators.CreateCheerInput{
		Caller:    r.Caller,
		WeekNum:   week,
		Day:       day,
		Message:   message,
		Timestamp: timestamp,
	}, r.Cheers)
}

// DeleteCheer implements Records.
func (r *LocalRecords) DeleteCheer(ctx context.Context, id string) error {
	return orchestrators.ExecuteDeleteCheer(ctx, r.Caller, id, r.Cheers)
}
