package llm

import (
	"errors"
	"sort"
	"sync"
	"time"
)

type sample struct {
	at        time.Time
	latencyMs int64
	errKind   ErrorKind
}

// StatsSnapshot aggregates the generation calls seen in the rolling window.
type StatsSnapshot struct {
	Count    int               `json:"count"`
	Failures int               `json:"failures"`
	ByKind   map[ErrorKind]int `json:"failures_by_kind,omitempty"`
	MinMs    int64             `json:"min_ms"`
	MaxMs    int64             `json:"max_ms"`
	AvgMs    float64           `json:"avg_ms"`
	P50Ms    float64           `json:"p50_ms"`
	P95Ms    float64           `json:"p95_ms"`
	P99Ms    float64           `json:"p99_ms"`
}

// Stats tracks generation latency and failures within a rolling window.
type Stats struct {
	mu      sync.Mutex
	samples []sample
	window  time.Duration
	now     func() time.Time
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{
		samples: make([]sample, 0, 256),
		window:  window,
		now:     time.Now,
	}
}

// Observe records one call. A nil err counts as success.
func (s *Stats) Observe(latency time.Duration, err error) {
	ms := latency.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	sm := sample{latencyMs: ms}
	if err != nil {
		sm.errKind = KindUnknown
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			sm.errKind = apiErr.Kind
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sm.at = s.now()
	s.pruneLocked(sm.at)
	s.samples = append(s.samples, sm)
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	snap := StatsSnapshot{Count: len(s.samples)}
	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		values = append(values, sm.latencyMs)
		sum += sm.latencyMs
		if sm.errKind != "" {
			snap.Failures++
			if snap.ByKind == nil {
				snap.ByKind = make(map[ErrorKind]int)
			}
			snap.ByKind[sm.errKind]++
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	kept := s.samples[:0]
	for _, sm := range s.samples {
		if !sm.at.Before(cutoff) {
			kept = append(kept, sm)
		}
	}
	s.samples = kept
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	idx := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(idx)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := idx - float64(lower)
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*weight
}
