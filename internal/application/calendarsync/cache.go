package calendarsync

import "marathon/internal/domain/plan"

// CheerSummary is the part of a cheer the calendar shows.
type CheerSummary struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Cache is the per-session view of the record store: which days are completed
// and the cheers of each day in arrival order. It is not safe for concurrent
// use; Synchronizer guards it.
type Cache struct {
	completed map[plan.Key]struct{}
	cheers    map[plan.Key][]CheerSummary
}

// NewCache returns an empty cache.
func NewCache() Cache {
	return Cache{
		completed: make(map[plan.Key]struct{}),
		cheers:    make(map[plan.Key][]CheerSummary),
	}
}

// IsCompleted reports whether key is in the completed set.
func (c Cache) IsCompleted(key plan.Key) bool {
	_, ok := c.completed[key]
	return ok
}

// SetCompleted adds or removes key from the completed set.
func (c Cache) SetCompleted(key plan.Key, done bool) {
	if done {
		c.completed[key] = struct{}{}
		return
	}
	delete(c.completed, key)
}

// Cheers returns the cheers of key in arrival order.
func (c Cache) Cheers(key plan.Key) []CheerSummary {
	return c.cheers[key]
}

// AppendCheer adds a cheer to the end of its day's group. A cheer whose ID is
// already in the group is ignored.
func (c Cache) AppendCheer(key plan.Key, s CheerSummary) {
	for _, existing := range c.cheers[key] {
		if existing.ID == s.ID {
			return
		}
	}
	c.cheers[key] = append(c.cheers[key], s)
}

// RemoveCheer drops the cheer with id, keeping the order of the rest. key's
// group is searched first; if the cheer is not there every other day is tried.
// It reports whether anything was removed.
func (c Cache) RemoveCheer(key plan.Key, id string) bool {
	if c.removeFrom(key, id) {
		return true
	}
	for k := range c.cheers {
		if k != key && c.removeFrom(k, id) {
			return true
		}
	}
	return false
}

func (c Cache) removeFrom(key plan.Key, id string) bool {
	group := c.cheers[key]
	for i, s := range group {
		if s.ID != id {
			continue
		}
		rest := make([]CheerSummary, 0, len(group)-1)
		rest = append(rest, group[:i]...)
		rest = append(rest, group[i+1:]...)
		if len(rest) == 0 {
			delete(c.cheers, key)
		} else {
			c.cheers[key] = rest
		}
		return true
	}
	return false
}

// Snapshot is a read-only copy of a Cache for rendering.
type Snapshot struct {
	Loaded    bool
	Completed map[plan.Key]bool
	Cheers    map[plan.Key][]CheerSummary
}

// IsCompleted reports whether key was completed when the snapshot was taken.
func (s Snapshot) IsCompleted(key plan.Key) bool {
	return s.Completed[key]
}

func (c Cache) snapshot(loaded bool) Snapshot {
	snap := Snapshot{
		Loaded:    loaded,
		Completed: make(map[plan.Key]bool, len(c.completed)),
		Cheers:    make(map[plan.Key][]CheerSummary, len(c.cheers)),
	}
	for k := range c.completed {
		snap.Completed[k] = true
	}
	for k, group := range c.cheers {
		snap.Cheers[k] = append([]CheerSummary(nil), group...)
	}
	return snap
}
