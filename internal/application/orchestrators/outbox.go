package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"marathon/internal/domain/access"
	"marathon/internal/domain/cheer"
	"marathon/internal/domain/outbox"
)

// OutboxStoreForOrchestrator defines the store interface needed by the outbox processor.
type OutboxStoreForOrchestrator interface {
	GetByID(ctx context.Context, id string) (outbox.Entry, error)
	Save(ctx context.Context, e outbox.Entry) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]outbox.Entry, error)
	ListFailed(ctx context.Context, limit int) ([]outbox.Entry, error)
}

// ActionExecutor replays one type of outbox action.
type ActionExecutor interface {
	Execute(ctx context.Context, payload string) error
}

// OutboxProcessor retries failed side effects with exponential backoff.
type OutboxProcessor struct {
	store     OutboxStoreForOrchestrator
	executors map[string]ActionExecutor
	now       func() time.Time
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
}

// NewOutboxProcessor creates a processor. A nil now uses time.Now.
func NewOutboxProcessor(store OutboxStoreForOrchestrator, executors map[string]ActionExecutor, now func() time.Time) *OutboxProcessor {
	if now == nil {
		now = time.Now
	}
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		now:       now,
		baseDelay: outbox.DefaultBaseDelay,
		maxDelay:  outbox.DefaultMaxDelay,
		batchSize: 10,
	}
}

// ProcessPending runs up to one batch of due entries once, longest overdue first.
// POST: each attempted entry is saved with its new status and next attempt time
func (p *OutboxProcessor) ProcessPending(ctx context.Context) error {
	entries, err := p.store.ListDue(ctx, p.now(), p.batchSize)
	if err != nil {
		return fmt.Errorf("list due outbox entries: %w", err)
	}
	for _, entry := range entries {
		if err := p.attempt(ctx, entry); err != nil {
			slog.Error("outbox_event", "event", "process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err)
		}
	}
	return nil
}

// ProcessSingle retries one entry immediately, ignoring backoff.
// PRE: caller holds the admin claim
// POST: returns outbox.ErrTerminal for done or abandoned entries
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, caller access.Caller, entryID string) (outbox.Entry, error) {
	if !caller.IsAdmin() {
		return outbox.Entry{}, access.ErrForbidden
	}
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return outbox.Entry{}, err
	}
	if entry.Status == outbox.StatusDone || entry.Status == outbox.StatusAbandoned {
		return outbox.Entry{}, outbox.ErrTerminal
	}
	if entry.Attempts >= entry.MaxAttempts {
		entry.MaxAttempts = entry.Attempts + 1
	}
	if err := p.attempt(ctx, entry); err != nil {
		return outbox.Entry{}, err
	}
	return p.store.GetByID(ctx, entryID)
}

// AbandonEntry stops an entry from being retried.
// PRE: caller holds the admin claim
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, caller access.Caller, entryID string) error {
	if !caller.IsAdmin() {
		return access.ErrForbidden
	}
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	entry.MarkAbandoned()
	slog.Info("outbox_event", "event", "entry_abandoned", "entry_id", entry.ID)
	return p.store.Save(ctx, entry)
}

// ListFailed returns entries that ran out of attempts.
// PRE: caller holds the admin claim
func (p *OutboxProcessor) ListFailed(ctx context.Context, caller access.Caller, limit int) ([]outbox.Entry, error) {
	if !caller.IsAdmin() {
		return nil, access.ErrForbidden
	}
	return p.store.ListFailed(ctx, limit)
}

func (p *OutboxProcessor) attempt(ctx context.Context, entry outbox.Entry) error {
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.MarkAttempt(p.now())
		entry.MarkFailed(fmt.Errorf("no executor registered for action type: %s", entry.ActionType))
		entry.ScheduleRetry(p.baseDelay, p.maxDelay)
		return p.store.Save(ctx, entry)
	}

	entry.MarkAttempt(p.now())
	if err := executor.Execute(ctx, entry.Payload); err != nil {
		entry.MarkFailed(err)
		entry.ScheduleRetry(p.baseDelay, p.maxDelay)
		slog.Warn("outbox_event", "event", "action_failed", "entry_id", entry.ID, "attempt", entry.Attempts, "error", err)
	} else {
		entry.MarkSuccess()
		slog.Info("outbox_event", "event", "action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType)
	}
	return p.store.Save(ctx, entry)
}

// StartBackgroundWorker processes pending entries every interval until ctx is cancelled.
// POST: the returned channel is closed once the worker has stopped
func StartBackgroundWorker(ctx context.Context, processor *OutboxProcessor, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(ctx, time.Minute)
				if err := processor.ProcessPending(runCtx); err != nil {
					slog.Error("outbox_event", "event", "background_process_failed", "error", err)
				}
				cancel()
			case <-ctx.Done():
				slog.Info("outbox_event", "event", "worker_stopped")
				return
			}
		}
	}()
	return done
}

// CheerEmailExecutor replays cheer notifications. The payload is the cheer as JSON.
type CheerEmailExecutor struct {
	Notifier CheerNotifier
}

// Execute decodes the cheer and hands it to the notifier again.
func (e CheerEmailExecutor) Execute(ctx context.Context, payload string) error {
	var c cheer.Cheer
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return fmt.Errorf("unmarshal cheer payload: %w", err)
	}
	return e.Notifier.NotifyCheer(ctx, c)
}

// enqueueCheerEmail saves a failed notification for the background worker.
func enqueueCheerEmail(ctx context.Context, deps CheerDeps, c cheer.Cheer, cause error) {
	payload, err := json.Marshal(c)
	if err != nil {
		slog.Error("outbox_event", "event", "enqueue_failed", "cheer_id", c.ID, "error", err)
		return
	}
	entry := outbox.NewEntry(deps.GenerateID(), outbox.ActionTypeCheerEmail, string(payload), deps.Now())
	entry.MarkAttempt(deps.Now())
	entry.MarkFailed(cause)
	entry.ScheduleRetry(outbox.DefaultBaseDelay, outbox.DefaultMaxDelay)
	if err := deps.Outbox.Save(ctx, entry); err != nil {
		slog.Error("outbox_event", "event", "enqueue_failed", "cheer_id", c.ID, "error", err)
		return
	}
	slog.Info("outbox_event", "event", "entry_enqueued", "entry_id", entry.ID, "cheer_id", c.ID)
}
