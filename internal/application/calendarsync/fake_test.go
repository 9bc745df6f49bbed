package calendarsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marathon/internal/domain/cheer"
	"marathon/internal/domain/completion"
	"marathon/internal/domain/plan"
)

// fakeRecords is an in-memory Records that counts calls and can fail on demand.
type fakeRecords struct {
	mu          sync.Mutex
	completions map[plan.Key]completion.Completion
	cheers      []cheer.Cheer
	calls       map[string]int
	fail        map[string]error
	pause       map[string]func()
	nextID      int
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		completions: make(map[plan.Key]completion.Completion),
		calls:       make(map[string]int),
		fail:        make(map[string]error),
		pause:       make(map[string]func()),
	}
}

func (f *fakeRecords) enter(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.fail[op]
}

func (f *fakeRecords) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRecords) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

// pauseAfter makes the next call of op block once it has read the store.
// reached is closed when the call is blocked; closing release lets it return.
func (f *fakeRecords) pauseAfter(op string) (reached <-chan struct{}, release chan<- struct{}) {
	r := make(chan struct{})
	rel := make(chan struct{})
	f.mu.Lock()
	f.pause[op] = func() {
		close(r)
		<-rel
	}
	f.mu.Unlock()
	return r, rel
}

func (f *fakeRecords) paused(op string) {
	f.mu.Lock()
	hook := f.pause[op]
	delete(f.pause, op)
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (f *fakeRecords) ListCompletions(_ context.Context, onlyCompleted bool) ([]completion.Completion, error) {
	if err := f.enter("list_completions"); err != nil {
		return nil, err
	}
	defer f.paused("list_completions")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []completion.Completion{}
	for _, c := range f.completions {
		if onlyCompleted && !c.IsCompleted {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRecords) UpsertCompletion(_ context.Context, week int, day plan.Day, isCompleted bool) (completion.Completion, error) {
	if err := f.enter("upsert_completion"); err != nil {
		return completion.Completion{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := plan.NewKey(week, day)
	c, ok := f.completions[key]
	if !ok {
		f.nextID++
		c = completion.Completion{ID: fmt.Sprintf("c-%d", f.nextID), WeekNum: week, Day: day, Owner: "admin-1"}
	}
	c.IsCompleted = isCompleted
	f.completions[key] = c
	return c, nil
}

func (f *fakeRecords) ListCheers(context.Context) ([]cheer.Cheer, error) {
	if err := f.enter("list_cheers"); err != nil {
		return nil, err
	}
	defer f.paused("list_cheers")
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cheer.Cheer(nil), f.cheers...), nil
}

func (f *fakeRecords) CreateCheer(_ context.Context, week int, day plan.Day, message, timestamp string) (cheer.Cheer, error) {
	if err := f.enter("create_cheer"); err != nil {
		return cheer.Cheer{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := cheer.Cheer{ID: fmt.Sprintf("ch-%d", f.nextID), WeekNum: week, Day: day, Message: message, Timestamp: timestamp, Owner: "admin-1"}
	f.cheers = append(f.cheers, c)
	return c, nil
}

func (f *fakeRecords) DeleteCheer(_ context.Context, id string) error {
	if err := f.enter("delete_cheer"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.cheers {
		if c.ID == id {
			f.cheers = append(f.cheers[:i], f.cheers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("cheer %s: not found", id)
}

var fixedTime = time.Date(2025, 1, 12, 6, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }
