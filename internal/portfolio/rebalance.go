package portfolio

import (
	"time"

	"GTAASentinel/internal/strategy"
)

// RebalanceClock schedules the first rebalance at the end of the starting day and every
// later one by Cadence.
type RebalanceClock struct {
	Cadence strategy.ExpiryFunc
	first   time.Time
}

// NewRebalanceClock creates a clock; a nil cadence means end of month.
func NewRebalanceClock(cadence strategy.ExpiryFunc) *RebalanceClock {
	if cadence == nil {
		cadence = strategy.EndOfMonth
	}
	return &RebalanceClock{Cadence: cadence}
}

// Next returns the next rebalance instant after now.
func (r *RebalanceClock) Next(now time.Time) time.Time {
	if r.first.IsZero() {
		r.first = now
		return strategy.EndOfDay(now)
	}
	return r.Cadence(now)
}

// Started reports whether the initial rebalance was scheduled.
func (r *RebalanceClock) Started() bool { return !r.first.IsZero() }

// CadenceFor maps a configured cadence name to its expiry rule.
func CadenceFor(name string) strategy.ExpiryFunc {
	switch name {
	case "day_end":
		return strategy.EndOfDay
	default:
		return strategy.EndOfMonth
	}
}
