package perf

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// TestCollector_Snapshot verifies per-kind aggregation.
func TestCollector_Snapshot(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()

	c.Record(Entry{Kind: KindRequest, Label: "GET /calendar", Status: 200, DurationMs: 10, At: now})
	c.Record(Entry{Kind: KindRequest, Label: "GET /calendar", Status: 500, DurationMs: 30, At: now})
	c.Record(Entry{Kind: KindQuery, Label: "SELECT cheer", DurationMs: 5, At: now})
	c.Observe(KindSync, "toggle", now, errors.New("boom"))

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.TotalRecorded != 4 {
		t.Errorf("TotalRecorded = %d, want 4", snap.TotalRecorded)
	}
	req := snap.Kinds["request"]
	if req.Count != 2 || req.Errors != 1 {
		t.Errorf("request count/errors = %d/%d, want 2/1", req.Count, req.Errors)
	}
	if len(req.Slowest) != 1 || req.Slowest[0].AvgMs != 20 || req.Slowest[0].MaxMs != 30 {
		t.Errorf("unexpected request stats: %+v", req.Slowest)
	}
	if snap.Kinds["query"].Count != 1 {
		t.Errorf("query count = %d, want 1", snap.Kinds["query"].Count)
	}
	if snap.Kinds["sync"].Errors != 1 {
		t.Errorf("sync errors = %d, want 1", snap.Kinds["sync"].Errors)
	}
}

// TestCollector_RingBuffer_Overwrites verifies oldest entries are overwritten when full.
func TestCollector_RingBuffer_Overwrites(t *testing.T) {
	c := NewCollector(3)
	now := time.Now()
	for i := 0; i < 5; i++ {
		c.Record(Entry{Kind: KindRequest, Label: "GET /x", DurationMs: float64(i), At: now})
	}
	if c.TotalRecorded() != 5 {
		t.Errorf("TotalRecorded = %d, want 5", c.TotalRecorded())
	}
	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if got := snap.Kinds["request"].Slowest[0]; got.Count != 3 || got.AvgMs != 3 {
		t.Errorf("expected last 3 entries (avg 3), got count=%d avg=%v", got.Count, got.AvgMs)
	}
}

// TestCollector_Percentiles verifies interpolated percentiles.
func TestCollector_Percentiles(t *testing.T) {
	c := NewCollector(200)
	now := time.Now()
	for i := 1; i <= 101; i++ {
		c.Record(Entry{Kind: KindRequest, Label: "GET /p", DurationMs: float64(i), At: now})
	}
	req := c.Snapshot(now.Add(-time.Minute), 5).Kinds["request"]
	if req.P50Ms != 51 || req.P95Ms != 96 || req.P99Ms != 100 {
		t.Errorf("p50/p95/p99 = %v/%v/%v, want 51/96/100", req.P50Ms, req.P95Ms, req.P99Ms)
	}
}

// TestCollector_Snapshot_FiltersBySince verifies old entries are excluded.
func TestCollector_Snapshot_FiltersBySince(t *testing.T) {
	c := NewCollector(10)
	now := time.Now()
	c.Record(Entry{Kind: KindQuery, Label: "SELECT old", DurationMs: 1, At: now.Add(-time.Hour)})
	c.Record(Entry{Kind: KindQuery, Label: "SELECT new", DurationMs: 1, At: now})

	q := c.Snapshot(now.Add(-time.Minute), 10).Kinds["query"]
	if q.Count != 1 || q.Slowest[0].Label != "SELECT new" {
		t.Errorf("expected only the recent entry, got %+v", q)
	}
}

// TestCollector_ConcurrentWrites verifies Record is safe under contention.
func TestCollector_ConcurrentWrites(t *testing.T) {
	c := NewCollector(1000)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Observe(KindSync, "add_cheer", time.Now(), nil)
			}
		}()
	}
	wg.Wait()
	if c.TotalRecorded() != 800 {
		t.Errorf("TotalRecorded = %d, want 800", c.TotalRecorded())
	}
}

// TestCollector_NilObserve verifies a nil collector ignores observations.
func TestCollector_NilObserve(t *testing.T) {
	var c *Collector
	c.Observe(KindQuery, "SELECT x", time.Now(), nil)
}

func BenchmarkCollectorRecord(b *testing.B) {
	c := NewCollector(DefaultRingSize)
	e := Entry{Kind: KindRequest, Label: "GET /calendar", Status: 200, DurationMs: 1.5, At: time.Now()}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Record(e)
	}
}
