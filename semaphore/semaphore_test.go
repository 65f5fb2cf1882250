package semaphore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/kvquorum/kvsema/common/clock"
	"github.com/kvquorum/kvsema/common/log"
	"github.com/kvquorum/kvsema/store"
	"github.com/kvquorum/kvsema/store/memstore"
)

type (
	SemaphoreSuite struct {
		*require.Assertions
		suite.Suite

		kv         *memstore.Store
		logger     log.Logger
		timeSource *clock.EventTimeSource
	}
)

const testPath = "deploy/lock"

func TestSemaphoreSuite(t *testing.T) {
	suite.Run(t, new(SemaphoreSuite))
}

func (s *SemaphoreSuite) SetupTest() {
	s.Assertions = require.New(s.T())
	s.kv = memstore.New()
	s.logger = log.NewNoopLogger()
	s.timeSource = clock.NewEventTimeSource()
}

func (s *SemaphoreSuite) load(concurrency int) *Semaphore {
	sem, err := Load(context.Background(), s.kv, s.logger, s.timeSource, testPath, "", concurrency)
	s.NoError(err)
	return sem
}

func (s *SemaphoreSuite) TestBootstrapCreatesDefaultRecord() {
	sem := s.load(3)
	s.Empty(sem.Holders())
	s.Equal(3, sem.Concurrency())

	entry, err := s.kv.Get(context.Background(), testPath, "")
	s.NoError(err)
	s.Equal(int64(1), entry.Version)

	var record Record
	s.NoError(json.Unmarshal(entry.Value, &record))
	s.Equal(int64(1), record.Version)
	s.Equal(3, record.Concurrency)
	s.Empty(record.Holders)
}

func (s *SemaphoreSuite) TestEnterUpToCapacity() {
	holders := []string{"node-1", "node-2", "node-3"}
	for i, id := range holders {
		sem := s.load(3)
		ok, err := sem.Enter(context.Background(), id)
		s.NoError(err)
		s.True(ok)
		s.Len(sem.Holders(), i+1)
	}

	sem := s.load(3)
	ok, err := sem.Enter(context.Background(), "node-4")
	s.NoError(err)
	s.False(ok)
	s.Len(sem.Holders(), 3)

	reloaded := s.load(3)
	s.Len(reloaded.Holders(), 3)
	s.NotContains(reloaded.Holders(), "node-4")
}

func (s *SemaphoreSuite) TestEnterIsReentrant() {
	sem := s.load(1)
	ok, err := sem.Enter(context.Background(), "node-1")
	s.NoError(err)
	s.True(ok)

	// same snapshot
	ok, err = sem.Enter(context.Background(), "node-1")
	s.NoError(err)
	s.True(ok)
	s.Len(sem.Holders(), 1)

	// fresh load
	reloaded := s.load(1)
	ok, err = reloaded.Enter(context.Background(), "node-1")
	s.NoError(err)
	s.True(ok)
	s.Len(reloaded.Holders(), 1)
}

func (s *SemaphoreSuite) TestReentrantEnterKeepsTimestamp() {
	sem := s.load(1)
	ok, err := sem.Enter(context.Background(), "node-1")
	s.NoError(err)
	s.True(ok)
	acquiredAt := sem.Holders()["node-1"]

	s.timeSource.Advance(300 * time.Second)
	reloaded := s.load(1)
	ok, err = reloaded.Enter(context.Background(), "node-1")
	s.NoError(err)
	s.True(ok)
	s.Equal(acquiredAt, reloaded.Holders()["node-1"])
}

func (s *SemaphoreSuite) TestExitIsIdempotent() {
	sem := s.load(2)
	ok, err := sem.Enter(context.Background(), "node-1")
	s.NoError(err)
	s.True(ok)

	entryBefore, err := s.kv.Get(context.Background(), testPath, "")
	s.NoError(err)

	stranger := s.load(2)
	ok, err = stranger.Exit(context.Background(), "node-ghost")
	s.NoError(err)
	s.True(ok)

	entryAfter, err := s.kv.Get(context.Background(), testPath, "")
	s.NoError(err)
	s.Equal(entryBefore.Version, entryAfter.Version)
	s.Equal(entryBefore.Value, entryAfter.Value)
}

func (s *SemaphoreSuite) TestExitReleasesSlot() {
	sem := s.load(1)
	ok, err := sem.Enter(context.Background(), "node-1")
	s.NoError(err)
	s.True(ok)

	releaser := s.load(1)
	ok, err = releaser.Exit(context.Background(), "node-1")
	s.NoError(err)
	s.True(ok)

	next := s.load(1)
	s.Empty(next.Holders())
	ok, err = next.Enter(context.Background(), "node-2")
	s.NoError(err)
	s.True(ok)
}

func (s *SemaphoreSuite) TestHoldersRoundTrip() {
	sem := s.load(3)
	for _, id := range []string{"node-1", "node-2"} {
		ok, err := sem.Enter(context.Background(), id)
		s.NoError(err)
		s.True(ok)
	}
	written := sem.Holders()

	reloaded := s.load(3)
	s.Equal(written, reloaded.Holders())
}

func (s *SemaphoreSuite) TestLocalConcurrencyWinsOverStored() {
	sem := s.load(3)
	ok, err := sem.Enter(context.Background(), "node-1")
	s.NoError(err)
	s.True(ok)

	// operator reconfigured capacity; holders must survive
	reloaded := s.load(1)
	s.Equal(1, reloaded.Concurrency())
	s.Contains(reloaded.Holders(), "node-1")

	ok, err = reloaded.Enter(context.Background(), "node-2")
	s.NoError(err)
	s.False(ok)
}

func (s *SemaphoreSuite) TestCASRaceSingleWinner() {
	first := s.load(2)
	second := s.load(2)

	ok, err := first.Enter(context.Background(), "node-1")
	s.NoError(err)
	s.True(ok)

	// second's snapshot is now stale; its write must lose, not overwrite
	ok, err = second.Enter(context.Background(), "node-2")
	s.NoError(err)
	s.False(ok)

	reloaded := s.load(2)
	s.Len(reloaded.Holders(), 1)
	s.Contains(reloaded.Holders(), "node-1")

	ok, err = reloaded.Enter(context.Background(), "node-2")
	s.NoError(err)
	s.True(ok)
	s.Contains(reloaded.Holders(), "node-1")
	s.Contains(reloaded.Holders(), "node-2")
}

func (s *SemaphoreSuite) TestCreationRaceResolvesByReread() {
	// another node bootstraps the record between this node's read-miss and
	// its create attempt
	racedOnce := false
	kv := &hookedKV{
		KV: s.kv,
		beforePut: func() {
			if !racedOnce {
				racedOnce = true
				other, err := Load(context.Background(), s.kv, s.logger, s.timeSource, testPath, "", 2)
				require.NoError(s.T(), err)
				ok, err := other.Enter(context.Background(), "node-racer")
				require.NoError(s.T(), err)
				require.True(s.T(), ok)
			}
		},
	}

	sem, err := Load(context.Background(), kv, s.logger, s.timeSource, testPath, "", 2)
	s.NoError(err)
	s.Contains(sem.Holders(), "node-racer")
}

func (s *SemaphoreSuite) TestBootstrapBudgetExhausted() {
	kv := &vanishingKV{KV: s.kv}
	_, err := Load(context.Background(), kv, s.logger, s.timeSource, testPath, "", 2)
	s.Error(err)

	var bootstrapErr *BootstrapFailedError
	s.ErrorAs(err, &bootstrapErr)
	s.Equal(bootstrapAttempts, bootstrapErr.Attempts)
}

func (s *SemaphoreSuite) TestStoreErrorPropagates() {
	kv := &failingKV{}
	_, err := Load(context.Background(), kv, s.logger, s.timeSource, testPath, "", 2)
	s.ErrorIs(err, errStoreDown)
}

type hookedKV struct {
	store.KV
	beforePut func()
}

func (kv *hookedKV) Put(ctx context.Context, key string, value []byte, expectedVersion int64, region string) (bool, error) {
	if kv.beforePut != nil {
		kv.beforePut()
	}
	return kv.KV.Put(ctx, key, value, expectedVersion, region)
}

// vanishingKV accepts writes but never finds anything on read.
type vanishingKV struct {
	store.KV
}

func (kv *vanishingKV) Get(ctx context.Context, key string, region string) (*store.Entry, error) {
	return nil, &store.NotFoundError{Key: key, Region: region}
}

var errStoreDown = errors.New("store unreachable")

// failingKV fails every operation with a transport error.
type failingKV struct{}

func (kv *failingKV) Get(ctx context.Context, key string, region string) (*store.Entry, error) {
	return nil, errStoreDown
}

func (kv *failingKV) Put(ctx context.Context, key string, value []byte, expectedVersion int64, region string) (bool, error) {
	return false, errStoreDown
}

func (kv *failingKV) Regions(ctx context.Context) ([]string, error) {
	return nil, errStoreDown
}
