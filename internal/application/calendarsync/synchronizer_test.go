package calendarsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marathon/internal/domain/cheer"
	"marathon/internal/domain/completion"
	"marathon/internal/domain/plan"
)

var errStore = errors.New("store unavailable")

func TestLoadAll_AdminGroupsCheersInArrivalOrder(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecords()
	rec.completions[plan.NewKey(1, plan.Mon)] = completion.Completion{ID: "a", WeekNum: 1, Day: plan.Mon, IsCompleted: true}
	rec.completions[plan.NewKey(1, plan.Tue)] = completion.Completion{ID: "b", WeekNum: 1, Day: plan.Tue, IsCompleted: false}
	rec.cheers = []cheer.Cheer{
		{ID: "x", WeekNum: 1, Day: plan.Mon, Message: "first"},
		{ID: "y", WeekNum: 2, Day: plan.Sun, Message: "other"},
		{ID: "z", WeekNum: 1, Day: plan.Mon, Message: "second"},
	}

	s := New(rec, true, Options{})
	require.NoError(t, s.LoadAll(ctx))

	snap := s.Snapshot()
	assert.True(t, snap.Loaded)
	assert.True(t, snap.IsCompleted(plan.NewKey(1, plan.Mon)))
	assert.False(t, snap.IsCompleted(plan.NewKey(1, plan.Tue)), "not-completed records stay out of the set")

	mon := snap.Cheers[plan.NewKey(1, plan.Mon)]
	require.Len(t, mon, 2)
	assert.Equal(t, "first", mon[0].Message)
	assert.Equal(t, "second", mon[1].Message)
	assert.Len(t, snap.Cheers[plan.NewKey(2, plan.Sun)], 1)
}

func TestLoadAll_ViewerNeverListsCheers(t *testing.T) {
	rec := newFakeRecords()
	rec.cheers = []cheer.Cheer{{ID: "x", WeekNum: 1, Day: plan.Mon, Message: "hidden"}}

	s := New(rec, false, Options{})
	require.NoError(t, s.LoadAll(context.Background()))

	assert.Equal(t, 0, rec.count("list_cheers"))
	assert.Empty(t, s.Snapshot().Cheers)
}

func TestLoadAll_FailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecords()
	rec.completions[plan.NewKey(3, plan.Wed)] = completion.Completion{ID: "a", WeekNum: 3, Day: plan.Wed, IsCompleted: true}

	s := New(rec, true, Options{})
	require.NoError(t, s.LoadAll(ctx))

	rec.failOn("list_cheers", errStore)
	err := s.LoadAll(ctx)
	require.ErrorIs(t, err, errStore)
	assert.True(t, s.Snapshot().IsCompleted(plan.NewKey(3, plan.Wed)))
}

func TestToggleCompletion(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecords()
	s := New(rec, true, Options{})
	key := plan.NewKey(2, plan.Thu)

	done, err := s.ToggleCompletion(ctx, 2, plan.Thu)
	require.NoError(t, err)
	assert.True(t, done)
	assert.True(t, s.Snapshot().IsCompleted(key))

	done, err = s.ToggleCompletion(ctx, 2, plan.Thu)
	require.NoError(t, err)
	assert.False(t, done)
	assert.False(t, s.Snapshot().IsCompleted(key))

	assert.Len(t, rec.completions, 1, "two toggles leave exactly one record")
	assert.False(t, rec.completions[key].IsCompleted)
}

func TestToggleCompletion_StoreFailureLeavesCache(t *testing.T) {
	rec := newFakeRecords()
	rec.failOn("upsert_completion", errStore)
	s := New(rec, true, Options{})

	_, err := s.ToggleCompletion(context.Background(), 1, plan.Mon)
	require.ErrorIs(t, err, errStore)
	assert.False(t, s.Snapshot().IsCompleted(plan.NewKey(1, plan.Mon)))
}

func TestToggleCompletion_ConcurrentSameKey(t *testing.T) {
	rec := newFakeRecords()
	s := New(rec, true, Options{})

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ToggleCompletion(context.Background(), 5, plan.Sat)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	key := plan.NewKey(5, plan.Sat)
	assert.Equal(t, n, rec.count("upsert_completion"))
	assert.Len(t, rec.completions, 1)
	assert.Equal(t, n%2 == 1, rec.completions[key].IsCompleted)
	assert.Equal(t, rec.completions[key].IsCompleted, s.Snapshot().IsCompleted(key))
	assert.Equal(t, 0, s.locks.size(), "idle key locks are released")
}

func TestMutations_RequireAdmin(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecords()
	s := New(rec, false, Options{})

	_, err := s.ToggleCompletion(ctx, 1, plan.Mon)
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.ErrorIs(t, s.AddCheer(ctx, 1, plan.Mon, "go"), ErrNotAdmin)
	assert.ErrorIs(t, s.DeleteCheer(ctx, plan.NewKey(1, plan.Mon), "x"), ErrNotAdmin)

	assert.Equal(t, 0, rec.count("upsert_completion"))
	assert.Equal(t, 0, rec.count("create_cheer"))
	assert.Equal(t, 0, rec.count("delete_cheer"))
}

func TestAddCheer(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecords()
	s := New(rec, true, Options{Now: fixedNow})
	key := plan.NewKey(1, plan.Sun)

	s.SetDraft("  Crush it!  ")
	require.NoError(t, s.AddCheer(ctx, 1, plan.Sun, s.Draft()))

	got := s.Snapshot().Cheers[key]
	require.Len(t, got, 1)
	assert.Equal(t, "Crush it!", got[0].Message)
	assert.Equal(t, "2025-01-12T06:00:00Z", got[0].Timestamp)
	assert.NotEmpty(t, got[0].ID)
	assert.Empty(t, s.Draft(), "draft cleared after success")
}

func TestAddCheer_BlankIsNoop(t *testing.T) {
	rec := newFakeRecords()
	s := New(rec, true, Options{})

	for _, msg := range []string{"", "   ", "\t\n"} {
		require.NoError(t, s.AddCheer(context.Background(), 1, plan.Mon, msg))
	}
	assert.Equal(t, 0, rec.count("create_cheer"))
	assert.Empty(t, s.Snapshot().Cheers)
}

func TestAddCheer_FailureKeepsDraft(t *testing.T) {
	rec := newFakeRecords()
	rec.failOn("create_cheer", errStore)
	s := New(rec, true, Options{})

	s.SetDraft("you got this")
	err := s.AddCheer(context.Background(), 1, plan.Mon, s.Draft())
	require.ErrorIs(t, err, errStore)
	assert.Equal(t, "you got this", s.Draft())
	assert.Empty(t, s.Snapshot().Cheers)
}

func TestDeleteCheer_KeepsOthersInOrder(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecords()
	s := New(rec, true, Options{})
	key := plan.NewKey(4, plan.Fri)

	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, s.AddCheer(ctx, 4, plan.Fri, msg))
	}
	group := s.Snapshot().Cheers[key]
	require.Len(t, group, 3)

	require.NoError(t, s.DeleteCheer(ctx, key, group[1].ID))

	got := s.Snapshot().Cheers[key]
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Message)
	assert.Equal(t, "three", got[1].Message)
}

func TestDeleteCheer_FailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecords()
	s := New(rec, true, Options{})
	key := plan.NewKey(4, plan.Fri)
	require.NoError(t, s.AddCheer(ctx, 4, plan.Fri, "stay"))
	id := s.Snapshot().Cheers[key][0].ID

	rec.failOn("delete_cheer", errStore)
	require.ErrorIs(t, s.DeleteCheer(ctx, key, id), errStore)
	assert.Len(t, s.Snapshot().Cheers[key], 1)
}

func TestDeleteCheer_KeyMismatchStillRemoves(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecords()
	s := New(rec, true, Options{})
	require.NoError(t, s.AddCheer(ctx, 4, plan.Fri, "misfiled"))
	id := s.Snapshot().Cheers[plan.NewKey(4, plan.Fri)][0].ID

	require.NoError(t, s.DeleteCheer(ctx, plan.NewKey(1, plan.Mon), id))

	assert.Empty(t, s.Snapshot().Cheers, "cheer must leave the cache once the store deleted it")
	assert.Empty(t, rec.cheers)
}

// loadInBackground starts LoadAll and returns its result channel.
func loadInBackground(ctx context.Context, s *Synchronizer) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- s.LoadAll(ctx) }()
	return errc
}

func TestLoadAll_KeepsToggleCommittedDuringLoad(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecords()
	s := New(rec, true, Options{})
	key := plan.NewKey(1, plan.Mon)

	reached, release := rec.pauseAfter("list_completions")
	loaded := loadInBackground(ctx, s)
	<-reached

	done, err := s.ToggleCompletion(ctx, 1, plan.Mon)
	require.NoError(t, err)
	require.True(t, done)

	close(release)
	require.NoError(t, <-loaded)
	assert.True(t, s.Snapshot().IsCompleted(key), "load read the store before the toggle and must not undo it")

	done, err = s.ToggleCompletion(ctx, 1, plan.Mon)
	require.NoError(t, err)
	assert.False(t, done)
	assert.False(t, rec.completions[key].IsCompleted)
}

func TestLoadAll_CheerAddedDuringLoadAppearsOnce(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecords()
	s := New(rec, true, Options{})

	reached, release := rec.pauseAfter("list_completions")
	loaded := loadInBackground(ctx, s)
	<-reached

	// the load lists cheers after this, so it sees the new cheer and the replay must not repeat it
	require.NoError(t, s.AddCheer(ctx, 2, plan.Wed, "nice run"))

	close(release)
	require.NoError(t, <-loaded)
	group := s.Snapshot().Cheers[plan.NewKey(2, plan.Wed)]
	require.Len(t, group, 1)
	assert.Equal(t, "nice run", group[0].Message)
}

func TestLoadAll_KeepsDeleteCommittedDuringLoad(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecords()
	rec.cheers = []cheer.Cheer{{ID: "x", WeekNum: 1, Day: plan.Mon, Message: "gone soon"}}
	s := New(rec, true, Options{})
	require.NoError(t, s.LoadAll(ctx))

	reached, release := rec.pauseAfter("list_cheers")
	loaded := loadInBackground(ctx, s)
	<-reached

	require.NoError(t, s.DeleteCheer(ctx, plan.NewKey(1, plan.Mon), "x"))

	close(release)
	require.NoError(t, <-loaded)
	assert.Empty(t, s.Snapshot().Cheers)
}

func TestLoadAll_ResetDuringLoadWins(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecords()
	rec.completions[plan.NewKey(3, plan.Sat)] = completion.Completion{ID: "a", WeekNum: 3, Day: plan.Sat, IsCompleted: true}
	s := New(rec, true, Options{})

	reached, release := rec.pauseAfter("list_completions")
	loaded := loadInBackground(ctx, s)
	<-reached

	s.Reset()

	close(release)
	require.NoError(t, <-loaded)
	snap := s.Snapshot()
	assert.False(t, snap.Loaded)
	assert.Empty(t, snap.Completed)
}

func TestSnapshot_IsACopy(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeRecords(), true, Options{})
	require.NoError(t, s.AddCheer(ctx, 1, plan.Mon, "hello"))

	snap := s.Snapshot()
	snap.Cheers[plan.NewKey(1, plan.Mon)][0].Message = "mutated"
	snap.Completed[plan.NewKey(9, plan.Sun)] = true

	fresh := s.Snapshot()
	assert.Equal(t, "hello", fresh.Cheers[plan.NewKey(1, plan.Mon)][0].Message)
	assert.False(t, fresh.IsCompleted(plan.NewKey(9, plan.Sun)))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeRecords(), true, Options{})
	_, err := s.ToggleCompletion(ctx, 1, plan.Mon)
	require.NoError(t, err)
	s.SetDraft("pending")

	s.Reset()

	snap := s.Snapshot()
	assert.False(t, snap.Loaded)
	assert.Empty(t, snap.Completed)
	assert.Empty(t, s.Draft())
}

func TestObserve(t *testing.T) {
	ctx := context.Background()
	rec := newFakeRecords()
	var ops []string
	var failed int
	s := New(rec, true, Options{Observe: func(op string, _ time.Time, err error) {
		ops = append(ops, op)
		if err != nil {
			failed++
		}
	}})

	require.NoError(t, s.LoadAll(ctx))
	_, err := s.ToggleCompletion(ctx, 1, plan.Mon)
	require.NoError(t, err)
	rec.failOn("create_cheer", errStore)
	_ = s.AddCheer(ctx, 1, plan.Mon, "x")

	assert.Equal(t, []string{"list_completions", "list_cheers", "upsert_completion", "create_cheer"}, ops)
	assert.Equal(t, 1, failed)
}
