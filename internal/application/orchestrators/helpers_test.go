package orchestrators

import (
	"context"
	"fmt"
	"sort"
	"time"

	"marathon/internal/domain/access"
	"marathon/internal/domain/cheer"
	"marathon/internal/domain/completion"
	"marathon/internal/domain/plan"
)

var fixedTime = time.Date(2025, 1, 6, 6, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

func fixedID() string { return "test-id-001" }

// seqIDs returns an ID generator producing id-1, id-2, ...
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

var (
	adminCaller  = access.Caller{AccountID: "admin-1", Role: access.RoleAdmin, Mode: access.ModeIdentity}
	viewerCaller = access.Caller{AccountID: "viewer-1", Role: access.RoleViewer, Mode: access.ModeIdentity}
	keyCaller    = access.Caller{AccountID: "admin-1", Role: access.RoleAdmin, Mode: access.ModeAPIKey}
)

// mockCompletionStore implements CompletionStoreForOrchestrator for testing.
type mockCompletionStore struct {
	records  map[string]completion.Completion
	upserts  int
	err      error
	writeErr error // returned by Insert and Update only
}

func newMockCompletionStore() *mockCompletionStore {
	return &mockCompletionStore{records: make(map[string]completion.Completion)}
}

func (m *mockCompletionStore) List(_ context.Context, owner string, f completion.Filter) ([]completion.Completion, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []completion.Completion{}
	for _, c := range m.records {
		if c.Owner != owner || (f.OnlyCompleted && !c.IsCompleted) || (f.Key != nil && c.Key() != *f.Key) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WeekNum != out[j].WeekNum {
			return out[i].WeekNum < out[j].WeekNum
		}
		return out[i].Day.Index() < out[j].Day.Index()
	})
	return out, nil
}

func (m *mockCompletionStore) GetByID(_ context.Context, id string) (completion.Completion, error) {
	c, ok := m.records[id]
	if !ok {
		return completion.Completion{}, access.ErrNotFound
	}
	return c, nil
}

func (m *mockCompletionStore) Insert(_ context.Context, c completion.Completion) error {
	if m.err != nil {
		return m.err
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	m.records[c.ID] = c
	return nil
}

func (m *mockCompletionStore) Update(_ context.Context, c completion.Completion) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	if _, ok := m.records[c.ID]; !ok {
		return access.ErrNotFound
	}
	m.records[c.ID] = c
	return nil
}

func (m *mockCompletionStore) Delete(_ context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return access.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *mockCompletionStore) Upsert(_ context.Context, c completion.Completion) (completion.Completion, error) {
	if m.err != nil {
		return completion.Completion{}, m.err
	}
	m.upserts++
	for id, existing := range m.records {
		if existing.Owner == c.Owner && existing.Key() == c.Key() {
			existing.IsCompleted = c.IsCompleted
			existing.UpdatedAt = c.UpdatedAt
			m.records[id] = existing
			return existing, nil
		}
	}
	m.records[c.ID] = c
	return c, nil
}

// mockCheerStore implements CheerStoreForOrchestrator for testing.
type mockCheerStore struct {
	cheers []cheer.Cheer
	err    error
}

func (m *mockCheerStore) List(_ context.Context, owner string) ([]cheer.Cheer, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []cheer.Cheer{}
	for _, c := range m.cheers {
		if owner == "" || c.Owner == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCheerStore) GetByID(_ context.Context, id string) (cheer.Cheer, error) {
	for _, c := range m.cheers {
		if c.ID == id {
			return c, nil
		}
	}
	return cheer.Cheer{}, access.ErrNotFound
}

func (m *mockCheerStore) Insert(_ context.Context, c cheer.Cheer) error {
	if m.err != nil {
		return m.err
	}
	m.cheers = append(m.cheers, c)
	return nil
}

func (m *mockCheerStore) Update(_ context.Context, c cheer.Cheer) error {
	for i := range m.cheers {
		if m.cheers[i].ID == c.ID {
			m.cheers[i] = c
			return nil
		}
	}
	return access.ErrNotFound
}

func (m *mockCheerStore) Delete(_ context.Context, id string) error {
	for i := range m.cheers {
		if m.cheers[i].ID == id {
			m.cheers = append(m.cheers[:i], m.cheers[i+1:]...)
			return nil
		}
	}
	return access.ErrNotFound
}

func dayPtr(d plan.Day) *plan.Day { return &d }

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }
