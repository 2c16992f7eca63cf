package cache

import "sync/atomic"

// Metrics tracks cache effectiveness counters.
type Metrics struct {
	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Errors int64 `json:"errors"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
		Errors: m.errors.Load(),
	}
}

// HitRate returns the fraction of lookups served from the cache,
// or 0 when there were no lookups.
func (s Snapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
