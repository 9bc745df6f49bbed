// Package perf keeps a bounded in-memory record of request, query and
// synchronizer timings for the admin perf endpoint.
package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// Kind distinguishes what was timed.
type Kind uint8

// Kinds
const (
	KindRequest Kind = iota
	KindQuery
	KindSync
)

var kindNames = [...]string{"request", "query", "sync"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Entry is one timed operation.
type Entry struct {
	Kind       Kind
	Label      string // "GET /api/cheers", "INSERT cheer", "toggle"
	Status     int    // HTTP status, 0 otherwise
	Failed     bool
	DurationMs float64
	At         time.Time
}

// Collector is a fixed-size ring buffer of entries. When full, the oldest entry is overwritten.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	pos     int
	total   atomic.Int64
}

// NewCollector creates a collector with the given ring buffer capacity.
// PRE: none; size <= 0 falls back to DefaultRingSize
// POST: Returns a ready-to-use collector with pre-allocated storage
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{entries: make([]Entry, size)}
}

// Record stores an entry. Safe for concurrent use.
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % len(c.entries)
	c.mu.Unlock()
	c.total.Add(1)
}

// Observe records an entry of kind for an operation that started at start.
func (c *Collector) Observe(kind Kind, label string, start time.Time, err error) {
	if c == nil {
		return
	}
	c.Record(Entry{
		Kind:       kind,
		Label:      label,
		Failed:     err != nil,
		DurationMs: Since(start),
		At:         start,
	})
}

// Since returns the milliseconds elapsed since start.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// TotalRecorded returns the number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	return c.total.Load()
}

// LabelStat aggregates timings for one label.
type LabelStat struct {
	Label  string  `json:"label"`
	Count  int     `json:"count"`
	Errors int     `json:"errors"`
	AvgMs  float64 `json:"avg_ms"`
	MaxMs  float64 `json:"max_ms"`
	sumMs  float64
}

// KindSummary aggregates one kind inside the snapshot window.
type KindSummary struct {
	Count   int         `json:"count"`
	Errors  int         `json:"errors"`
	P50Ms   float64     `json:"p50_ms"`
	P95Ms   float64     `json:"p95_ms"`
	P99Ms   float64     `json:"p99_ms"`
	Slowest []LabelStat `json:"slowest"`
}

// Snapshot is the aggregated view served to admins.
type Snapshot struct {
	Since         time.Time              `json:"since"`
	TotalRecorded int64                  `json:"total_recorded"`
	Kinds         map[string]KindSummary `json:"kinds"`
}

// Snapshot aggregates entries recorded at or after since, keeping topN labels per kind by average duration.
// PRE: topN > 0
// POST: every kind appears in Kinds, possibly with zero counts
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, len(c.entries))
	copy(buf, c.entries)
	c.mu.Unlock()

	durations := make(map[Kind][]float64)
	failures := make(map[Kind]int)
	labels := make(map[Kind]map[string]*LabelStat)
	for _, e := range buf {
		if e.At.IsZero() || e.At.Before(since) {
			continue
		}
		durations[e.Kind] = append(durations[e.Kind], e.DurationMs)
		if labels[e.Kind] == nil {
			labels[e.Kind] = make(map[string]*LabelStat)
		}
		s, ok := labels[e.Kind][e.Label]
		if !ok {
			s = &LabelStat{Label: e.Label}
			labels[e.Kind][e.Label] = s
		}
		s.Count++
		s.sumMs += e.DurationMs
		s.MaxMs = math.Max(s.MaxMs, e.DurationMs)
		if e.Failed || e.Status >= 500 {
			s.Errors++
			failures[e.Kind]++
		}
	}

	snap := Snapshot{Since: since, TotalRecorded: c.TotalRecorded(), Kinds: make(map[string]KindSummary)}
	for k := range kindNames {
		kind := Kind(k)
		sorted := durations[kind]
		sort.Float64s(sorted)
		sum := KindSummary{
			Count:   len(sorted),
			Errors:  failures[kind],
			P50Ms:   percentile(sorted, 50),
			P95Ms:   percentile(sorted, 95),
			P99Ms:   percentile(sorted, 99),
			Slowest: topByAvg(labels[kind], topN),
		}
		snap.Kinds[kind.String()] = sum
	}
	return snap
}

// percentile returns the p-th percentile of a sorted slice by linear interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func topByAvg(stats map[string]*LabelStat, n int) []LabelStat {
	list := make([]LabelStat, 0, len(stats))
	for _, s := range stats {
		s.AvgMs = s.sumMs / float64(s.Count)
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs == list[j].AvgMs {
			return list[i].Label < list[j].Label
		}
		return list[i].AvgMs > list[j].AvgMs
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}
