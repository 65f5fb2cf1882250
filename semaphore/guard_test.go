package semaphore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/kvquorum/kvsema/common/clock"
	"github.com/kvquorum/kvsema/common/log"
	"github.com/kvquorum/kvsema/config"
	"github.com/kvquorum/kvsema/store/memstore"
)

type (
	GuardSuite struct {
		*require.Assertions
		suite.Suite

		kv     *memstore.Store
		logger log.Logger
	}
)

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	s.Assertions = require.New(s.T())
	s.kv = memstore.New()
	s.logger = log.NewNoopLogger()
}

func (s *GuardSuite) newGuard(id string, concurrency int) *Guard {
	guard, err := NewGuard(&config.Config{
		Path:        testPath,
		ID:          id,
		Concurrency: concurrency,
		Backoff:     config.Duration(time.Millisecond),
	}, s.kv, nil, s.logger, clock.NewRealTimeSource())
	s.NoError(err)
	return guard
}

func (s *GuardSuite) holders() map[string]int64 {
	sem, err := Load(context.Background(), s.kv, s.logger, clock.NewEventTimeSource(), testPath, "", 2)
	s.NoError(err)
	return sem.Holders()
}

// The deploy/lock walkthrough: capacity 2, three nodes contending.
func (s *GuardSuite) TestAcquireReleaseScenario() {
	nodeA := s.newGuard("node-a", 2)
	nodeB := s.newGuard("node-b", 2)
	nodeC := s.newGuard("node-c", 2)

	s.True(nodeA.Acquire(context.Background()))
	s.Equal([]string{"node-a"}, holderIDs(s.holders()))

	s.True(nodeB.Acquire(context.Background()))
	s.ElementsMatch([]string{"node-a", "node-b"}, holderIDs(s.holders()))

	// capacity full: node-c's acquire cannot finish until a slot opens
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	s.False(nodeC.Acquire(ctx))
	cancel()
	s.ElementsMatch([]string{"node-a", "node-b"}, holderIDs(s.holders()))

	s.True(nodeA.Release(context.Background()))
	s.Equal([]string{"node-b"}, holderIDs(s.holders()))

	s.True(nodeC.Acquire(context.Background()))
	s.ElementsMatch([]string{"node-b", "node-c"}, holderIDs(s.holders()))
}

func (s *GuardSuite) TestHooksWrapProtectedWork() {
	guard := s.newGuard("node-a", 1)
	onEnter, onFinish := guard.Hooks()

	onEnter()
	s.Equal([]string{"node-a"}, holderIDs(s.holders()))

	onFinish()
	s.Empty(s.holders())
}

func (s *GuardSuite) TestReleaseIsAbandonedOnBrokenStore() {
	guard, err := NewGuard(&config.Config{
		Path:        testPath,
		ID:          "node-a",
		Concurrency: 1,
		Backoff:     config.Duration(time.Millisecond),
	}, &failingKV{}, nil, s.logger, clock.NewRealTimeSource())
	s.NoError(err)

	// bounded budget: returns false rather than blocking forever
	s.False(guard.Release(context.Background()))
}

func (s *GuardSuite) TestSnapshot() {
	guard := s.newGuard("node-a", 2)
	s.True(guard.Acquire(context.Background()))

	snapshot, err := guard.Snapshot(context.Background())
	s.NoError(err)
	s.Equal(2, snapshot.Concurrency())
	s.Contains(snapshot.Holders(), "node-a")
}

func (s *GuardSuite) TestConfigValidationIsFatal() {
	cases := []struct {
		name string
		cfg  *config.Config
	}{
		{"missing path", &config.Config{ID: "node-a", Concurrency: 1}},
		{"missing id", &config.Config{Path: testPath, Concurrency: 1}},
		{"no sizing", &config.Config{Path: testPath, ID: "node-a"}},
		{"both sizings", &config.Config{
			Path: testPath, ID: "node-a", Concurrency: 1,
			Service: &config.Service{Name: "workers", ConcurrencyRatio: 0.5},
		}},
		{"non-positive ratio", &config.Config{
			Path: testPath, ID: "node-a",
			Service: &config.Service{Name: "workers"},
		}},
	}
	for _, tc := range cases {
		_, err := NewGuard(tc.cfg, s.kv, nil, s.logger, clock.NewRealTimeSource())
		s.Truef(config.IsValidationError(err), "case %q: %v", tc.name, err)
	}
}

func (s *GuardSuite) TestServiceSizingRequiresDiscovery() {
	_, err := NewGuard(&config.Config{
		Path: testPath,
		ID:   "node-a",
		Service: &config.Service{
			Name:             "workers",
			ConcurrencyRatio: 0.5,
		},
	}, s.kv, nil, s.logger, clock.NewRealTimeSource())
	s.True(config.IsValidationError(err))
}

func holderIDs(holders map[string]int64) []string {
	ids := make([]string, 0, len(holders))
	for id := range holders {
		ids = append(ids, id)
	}
	return ids
}
