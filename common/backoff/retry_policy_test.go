package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type (
	RetryPolicySuite struct {
		*require.Assertions
		suite.Suite
	}
)

func TestRetryPolicySuite(t *testing.T) {
	suite.Run(t, new(RetryPolicySuite))
}

func (s *RetryPolicySuite) SetupTest() {
	s.Assertions = require.New(s.T())
}

func (s *RetryPolicySuite) TestConstantDelayWithoutJitter() {
	policy := NewConstantDelayPolicy(5 * time.Second)
	for attempt := 0; attempt < 100; attempt++ {
		s.Equal(5*time.Second, policy.ComputeNextDelay(attempt))
	}
}

func (s *RetryPolicySuite) TestConstantDelayWithJitter() {
	policy := NewConstantDelayPolicy(5 * time.Second).WithJitter()
	for attempt := 0; attempt < 100; attempt++ {
		delay := policy.ComputeNextDelay(attempt)
		s.GreaterOrEqual(delay, 5*time.Second, "delay below base interval")
		s.Less(delay, 10*time.Second, "delay at or above twice the base interval")
	}
}

func (s *RetryPolicySuite) TestWithJitterDoesNotMutateReceiver() {
	policy := NewConstantDelayPolicy(5 * time.Second)
	jittered := policy.WithJitter()

	s.Equal(5*time.Second, policy.ComputeNextDelay(0))
	s.NotSame(policy, jittered)
}

func (s *RetryPolicySuite) TestNonPositiveIntervalFallsBackToDefault() {
	s.Equal(DefaultInterval, NewConstantDelayPolicy(0).Interval())
	s.Equal(DefaultInterval, NewConstantDelayPolicy(-time.Second).Interval())
}
