package backoff

import (
	"time"
)

const (
	// DefaultInterval is the delay between failed acquisition attempts when
	// the configuration does not specify one.
	DefaultInterval = 5 * time.Second
)

type (
	// RetryPolicy computes the delay to insert before the next attempt.
	RetryPolicy interface {
		// ComputeNextDelay returns the delay before attempt numAttempt+1,
		// given that numAttempt attempts have already failed.
		ComputeNextDelay(numAttempt int) time.Duration
	}

	// ConstantDelayPolicy sleeps a fixed interval between attempts,
	// optionally adding a uniformly random jitter in [0, interval) so that
	// many nodes contending for the same record do not retry in lockstep.
	ConstantDelayPolicy struct {
		interval time.Duration
		jitter   bool
	}
)

var _ RetryPolicy = (*ConstantDelayPolicy)(nil)

// NewConstantDelayPolicy returns a policy with the given fixed interval and
// no jitter. A non-positive interval falls back to DefaultInterval.
func NewConstantDelayPolicy(interval time.Duration) *ConstantDelayPolicy {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &ConstantDelayPolicy{
		interval: interval,
	}
}

// WithJitter returns a copy of the policy that adds a random jitter in
// [0, interval) to every computed delay.
func (p *ConstantDelayPolicy) WithJitter() *ConstantDelayPolicy {
	copy := *p
	copy.jitter = true
	return &copy
}

// Interval returns the configured base interval.
func (p *ConstantDelayPolicy) Interval() time.Duration {
	return p.interval
}

func (p *ConstantDelayPolicy) ComputeNextDelay(_ int) time.Duration {
	if p.jitter {
		return AddJitDuration(p.interval)
	}
	return p.interval
}
