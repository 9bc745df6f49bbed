// Package calendarsync keeps one session's view of completions and cheers
// consistent with the record store.
//
// The store is the authority. The cache changes only after the store accepts a
// write, and every write for one plan day runs under that day's lock so that
// concurrent toggles observe each other. Writes that land while LoadAll is
// reading are replayed onto the freshly loaded cache before it is installed.
package calendarsync

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"marathon/internal/domain/plan"
)

// ErrNotAdmin is returned when a non-admin session attempts a mutation.
var ErrNotAdmin = errors.New("calendarsync: admin session required")

// Options configures a Synchronizer.
type Options struct {
	// OnlyCompleted asks the store for completed records only when loading.
	OnlyCompleted bool
	// Now defaults to time.Now.
	Now func() time.Time
	// Observe, when set, receives the outcome of every store round trip.
	Observe func(op string, start time.Time, err error)
}

// Synchronizer owns one session's Cache and the draft cheer being typed.
type Synchronizer struct {
	records Records
	isAdmin bool
	opts    Options
	locks   *keyLocks

	mu     sync.RWMutex
	cache  Cache
	loaded bool
	draft  string

	// gen counts committed writes. While loads > 0 each write is also kept in
	// journal so a load that started before it can reapply it.
	gen     uint64
	epoch   uint64 // bumped by Reset; a load from an older epoch is dropped
	loads   int
	journal []mutation
}

// mutation is one committed cache change, tagged with the generation it produced.
type mutation struct {
	gen   uint64
	apply func(Cache)
}

// New returns a Synchronizer with an empty cache.
func New(records Records, isAdmin bool, opts Options) *Synchronizer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Synchronizer{
		records: records,
		isAdmin: isAdmin,
		opts:    opts,
		locks:   newKeyLocks(),
		cache:   NewCache(),
	}
}

// IsAdmin reports whether the session may mutate records.
func (s *Synchronizer) IsAdmin() bool {
	return s.isAdmin
}

// LoadAll replaces the cache with the store's current state. Cheers are only
// fetched for admin sessions. On error the cache is left as it was.
// POST: writes committed while the load was reading survive it; a Reset during the load wins
func (s *Synchronizer) LoadAll(ctx context.Context) error {
	s.mu.Lock()
	s.loads++
	since, epoch := s.gen, s.epoch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loads--
		if s.loads == 0 {
			s.journal = nil
		}
		s.mu.Unlock()
	}()

	next := NewCache()

	start := time.Now()
	completions, err := s.records.ListCompletions(ctx, s.opts.OnlyCompleted)
	s.observe("list_completions", start, err)
	if err != nil {
		slog.Warn("sync_event", "event", "load_failed", "op", "list_completions", "error", err)
		return err
	}
	for _, c := range completions {
		if c.IsCompleted {
			next.SetCompleted(c.Key(), true)
		}
	}

	if s.isAdmin {
		start = time.Now()
		cheers, err := s.records.ListCheers(ctx)
		s.observe("list_cheers", start, err)
		if err != nil {
			slog.Warn("sync_event", "event", "load_failed", "op", "list_cheers", "error", err)
			return err
		}
		for _, c := range cheers {
			next.AppendCheer(c.Key(), CheerSummary{ID: c.ID, Message: c.Message, Timestamp: c.Timestamp})
		}
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		slog.Debug("sync_event", "event", "load_discarded", "reason", "reset")
		return nil
	}
	replayed := 0
	for _, m := range s.journal {
		if m.gen > since {
			m.apply(next)
			replayed++
		}
	}
	s.cache = next
	s.loaded = true
	s.mu.Unlock()

	slog.Debug("sync_event", "event", "loaded", "completions", len(completions), "admin", s.isAdmin, "replayed", replayed)
	return nil
}

// ToggleCompletion flips the completion of one plan day and returns the state the store recorded.
// PRE: admin session, valid week and day
// POST: cache matches the store's answer; unchanged on error
func (s *Synchronizer) ToggleCompletion(ctx context.Context, week int, day plan.Day) (bool, error) {
	if !s.isAdmin {
		return false, ErrNotAdmin
	}
	key := plan.NewKey(week, day)

	unlock := s.locks.Lock(key)
	defer unlock()

	s.mu.RLock()
	target := !s.cache.IsCompleted(key)
	s.mu.RUnlock()

	start := time.Now()
	rec, err := s.records.UpsertCompletion(ctx, week, day, target)
	s.observe("upsert_completion", start, err)
	if err != nil {
		slog.Warn("sync_event", "event", "toggle_failed", "key", key.String(), "error", err)
		return !target, err
	}

	done := rec.IsCompleted
	s.mu.Lock()
	s.commitLocked(func(c Cache) { c.SetCompleted(key, done) })
	s.mu.Unlock()
	return done, nil
}

// AddCheer posts message for one plan day. A message that is empty after
// trimming is ignored without contacting the store.
// POST: on success the cheer is appended to its day and the draft is cleared
func (s *Synchronizer) AddCheer(ctx context.Context, week int, day plan.Day, message string) error {
	if !s.isAdmin {
		return ErrNotAdmin
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	key := plan.NewKey(week, day)

	unlock := s.locks.Lock(key)
	defer unlock()

	ts := s.opts.Now().UTC().Format(time.RFC3339)
	start := time.Now()
	rec, err := s.records.CreateCheer(ctx, week, day, message, ts)
	s.observe("create_cheer", start, err)
	if err != nil {
		slog.Warn("sync_event", "event", "cheer_failed", "key", key.String(), "error", err)
		return err
	}

	summary := CheerSummary{ID: rec.ID, Message: rec.Message, Timestamp: rec.Timestamp}
	s.mu.Lock()
	s.commitLocked(func(c Cache) { c.AppendCheer(key, summary) })
	s.draft = ""
	s.mu.Unlock()
	return nil
}

// DeleteCheer removes one cheer. The cache is only touched after the store confirms.
// key locates the cheer; if the cheer is cached under another day it is removed there.
func (s *Synchronizer) DeleteCheer(ctx context.Context, key plan.Key, id string) error {
	if !s.isAdmin {
		return ErrNotAdmin
	}

	unlock := s.locks.Lock(key)
	defer unlock()

	start := time.Now()
	err := s.records.DeleteCheer(ctx, id)
	s.observe("delete_cheer", start, err)
	if err != nil {
		slog.Warn("sync_event", "event", "uncheer_failed", "key", key.String(), "id", id, "error", err)
		return err
	}

	s.mu.Lock()
	s.commitLocked(func(c Cache) { c.RemoveCheer(key, id) })
	s.mu.Unlock()
	return nil
}

// SetDraft stores the cheer text being composed.
func (s *Synchronizer) SetDraft(message string) {
	s.mu.Lock()
	s.draft = message
	s.mu.Unlock()
}

// Draft returns the cheer text being composed.
func (s *Synchronizer) Draft() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

// Snapshot returns a copy of the cache for rendering.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.snapshot(s.loaded)
}

// Reset empties the cache and draft, as on logout.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	s.cache = NewCache()
	s.loaded = false
	s.draft = ""
	s.epoch++
	s.journal = nil
	s.mu.Unlock()
}

// commitLocked applies a store-confirmed change to the cache and journals it
// for any load in flight. s.mu must be held.
func (s *Synchronizer) commitLocked(apply func(Cache)) {
	apply(s.cache)
	s.gen++
	if s.loads > 0 {
		s.journal = append(s.journal, mutation{gen: s.gen, apply: apply})
	}
}

func (s *Synchronizer) observe(op string, start time.Time, err error) {
	if s.opts.Observe != nil {
		s.opts.Observe(op, start, err)
	}
}
