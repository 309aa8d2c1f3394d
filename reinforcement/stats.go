package reinforcement

import (
	"sync/atomic"

	"avoidholes/atomic_float"
)

// StatsSink receives aggregate run telemetry from environments. Environments never
// reset it, so it outlives every episode; one sink may be shared by many instances.
type StatsSink interface {
	RecordSuccess()
	RecordFailure()
	RecordEpisode()
	// RecordReturn receives the cumulative reward of each finished episode.
	RecordReturn(float64)
}

// EpisodeStats is a point-in-time copy of the counters.
type EpisodeStats struct {
	Episodes    int64   `json:"episodes"`
	Successes   int64   `json:"successes"`
	Failures    int64   `json:"failures"`
	Interrupted int64   `json:"interrupted"`
	TotalReturn float64 `json:"totalReturn"`
}

// SuccessRate is successes over finished episodes, zero before the first episode.
func (es EpisodeStats) SuccessRate() float64 {
	if es.Episodes == 0 {
		return 0
	}
	return float64(es.Successes) / float64(es.Episodes)
}

// MeanReturn is the average episode return, zero before the first episode.
func (es EpisodeStats) MeanReturn() float64 {
	if es.Episodes == 0 {
		return 0
	}
	return es.TotalReturn / float64(es.Episodes)
}

// Stats is a lock-free StatsSink, safe for concurrent use by parallel environments.
type Stats struct {
	episodes    atomic.Int64
	successes   atomic.Int64
	failures    atomic.Int64
	totalReturn *atomic_float.AtomicFloat64
}

func NewStats() *Stats {
	return &Stats{
		totalReturn: atomic_float.NewAtomicFloat64(0),
	}
}

func (s *Stats) RecordSuccess() { s.successes.Add(1) }
func (s *Stats) RecordFailure() { s.failures.Add(1) }
func (s *Stats) RecordEpisode() { s.episodes.Add(1) }

func (s *Stats) RecordReturn(ret float64) {
	s.totalReturn.Add(ret)
}

// Snapshot copies the counters. Counters are read one at a time, so a snapshot
// taken while environments are running may be off by the episodes in flight.
// Episodes that ended neither in success nor failure count as interrupted.
func (s *Stats) Snapshot() EpisodeStats {
	snap := EpisodeStats{
		Episodes:    s.episodes.Load(),
		Successes:   s.successes.Load(),
		Failures:    s.failures.Load(),
		TotalReturn: s.totalReturn.AtomicRead(),
	}
	snap.Interrupted = max(0, snap.Episodes-snap.Successes-snap.Failures)
	return snap
}
