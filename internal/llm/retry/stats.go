package retry

import "sync/atomic"

// Stats accumulates retry counters across calls sharing a policy.
// All methods are safe for concurrent use and tolerate a nil receiver.
type Stats struct {
	totalAttempts atomic.Int64
	recoveries    atomic.Int64
	exhaustions   atomic.Int64
}

// TotalAttempts reports the number of operation invocations observed.
func (s *Stats) TotalAttempts() int64 {
	if s == nil {
		return 0
	}
	return s.totalAttempts.Load()
}

// Recoveries reports operations that succeeded after at least one retry.
func (s *Stats) Recoveries() int64 {
	if s == nil {
		return 0
	}
	return s.recoveries.Load()
}

// Exhaustions reports operations that failed every allowed attempt.
func (s *Stats) Exhaustions() int64 {
	if s == nil {
		return 0
	}
	return s.exhaustions.Load()
}

func (s *Stats) recordAttempt() {
	if s != nil {
		s.totalAttempts.Add(1)
	}
}

func (s *Stats) recordRecovery() {
	if s != nil {
		s.recoveries.Add(1)
	}
}

func (s *Stats) recordExhaustion() {
	if s != nil {
		s.exhaustions.Add(1)
	}
}
