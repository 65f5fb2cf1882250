package semaphore

import (
	"context"

	"github.com/kvquorum/kvsema/common/backoff"
	"github.com/kvquorum/kvsema/common/clock"
	"github.com/kvquorum/kvsema/common/log"
	"github.com/kvquorum/kvsema/common/log/tag"
)

// UnlimitedFailures disables the Controller's failure budget.
const UnlimitedFailures = -1

type (
	// AttemptFunc is one acquisition attempt: a fresh load of the semaphore
	// followed by a single enter or exit. It reports whether the attempt
	// succeeded; an error counts the same as a false result.
	AttemptFunc func(ctx context.Context) (bool, error)

	// Controller drives repeated attempts with backoff until one succeeds
	// or the failure budget is exhausted. It is the only component that
	// sleeps or loops; a Semaphore never retries internally.
	Controller struct {
		logger     log.Logger
		timeSource clock.TimeSource
		policy     backoff.RetryPolicy
	}
)

// NewController returns a Controller using the given backoff policy.
func NewController(logger log.Logger, timeSource clock.TimeSource, policy backoff.RetryPolicy) *Controller {
	return &Controller{
		logger:     logger,
		timeSource: timeSource,
		policy:     policy,
	}
}

// WaitUntil evaluates block until it reports success, allowing up to
// maxFailures+1 failed attempts (UnlimitedFailures for no budget). Collaborator
// errors are swallowed into logged retries; the only caller-visible failure
// is the false result after the budget is gone. Context cancellation stops
// the loop early with a false result.
func (c *Controller) WaitUntil(ctx context.Context, action string, maxFailures int, block AttemptFunc) bool {
	logger := log.With(c.logger, tag.Action(action))

	for attempt := 0; ; attempt++ {
		ok, err := block(ctx)
		if err == nil && ok {
			return true
		}
		if err != nil {
			logger.Warn("attempt failed", tag.Attempt(attempt), tag.Error(err))
		} else {
			logger.Info("attempt unsuccessful", tag.Attempt(attempt))
		}

		if maxFailures != UnlimitedFailures && attempt >= maxFailures {
			logger.Warn("giving up", tag.Attempt(attempt), tag.MaxFailures(maxFailures))
			return false
		}

		delay := c.policy.ComputeNextDelay(attempt)
		logger.Debug("backing off", tag.BackoffDuration(delay))
		if err := clock.Sleep(ctx, c.timeSource, delay); err != nil {
			logger.Warn("wait canceled", tag.Attempt(attempt), tag.Error(err))
			return false
		}
	}
}
