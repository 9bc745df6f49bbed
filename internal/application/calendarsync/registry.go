package calendarsync

import "sync"

// Registry holds one Synchronizer per session token.
type Registry struct {
	mu    sync.Mutex
	syncs map[string]*Synchronizer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{syncs: make(map[string]*Synchronizer)}
}

// Get returns the synchronizer for token, creating it with build on first use.
// The second result reports whether it was created by this call.
func (r *Registry) Get(token string, build func() *Synchronizer) (*Synchronizer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.syncs[token]; ok {
		return s, false
	}
	s := build()
	r.syncs[token] = s
	return s, true
}

// Drop resets and forgets the synchronizer for token.
func (r *Registry) Drop(token string) {
	r.mu.Lock()
	s, ok := r.syncs[token]
	delete(r.syncs, token)
	r.mu.Unlock()
	if ok {
		s.Reset()
	}
}

// Retain drops every synchronizer whose token keep rejects.
func (r *Registry) Retain(keep func(token string) bool) int {
	r.mu.Lock()
	var dropped []*Synchronizer
	for token, s := range r.syncs {
		if !keep(token) {
			dropped = append(dropped, s)
			delete(r.syncs, token)
		}
	}
	r.mu.Unlock()
	for _, s := range dropped {
		s.Reset()
	}
	return len(dropped)
}

// Len returns the number of live synchronizers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.syncs)
}
