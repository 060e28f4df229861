package ratelimit

import "sync/atomic"

// Stats tracks admission outcomes for monitoring. Safe for concurrent use.
type Stats struct {
	admitted atomic.Int64
	refused  atomic.Int64
}

// Admitted reports the number of admitted requests.
func (s *Stats) Admitted() int64 { return s.admitted.Load() }

// Refused reports the number of refused requests.
func (s *Stats) Refused() int64 { return s.refused.Load() }

func (s *Stats) recordAdmit()  { s.admitted.Add(1) }
func (s *Stats) recordRefuse() { s.refused.Add(1) }

// Stats returns a snapshot-capable view of the limiter's counters.
func (l *Limiter) Stats() (admitted, refused int64) {
	return l.stats.Admitted(), l.stats.Refused()
}
