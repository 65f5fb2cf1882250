// Package semaphore implements a distributed bounded-concurrency semaphore
// coordinated through a shared, versioned key-value store. There are no
// sessions, leases or heartbeats: all agreement rides on the store's
// per-key compare-and-swap, and a node that dies holding a slot simply
// leaves a stale holder entry for a later run to observe.
package semaphore

import (
	"context"

	"github.com/kvquorum/kvsema/common/clock"
	"github.com/kvquorum/kvsema/common/log"
	"github.com/kvquorum/kvsema/common/log/tag"
	"github.com/kvquorum/kvsema/store"
)

// bootstrapAttempts bounds the create-then-reread loop on first use of a path.
const bootstrapAttempts = 5

type (
	// Semaphore owns one region-scoped record snapshot and the store version
	// token captured when it was read. Enter and Exit are single CAS
	// attempts against that snapshot; a false result means the snapshot went
	// stale and the caller must Load a fresh Semaphore to try again.
	Semaphore struct {
		kv         store.KV
		logger     log.Logger
		timeSource clock.TimeSource
		path       string
		region     string
		record     *Record
		version    int64
	}
)

// Load reads the record at path in the given region, lazily creating it on
// first use. The returned Semaphore is bound to the merged in-memory
// snapshot: holders as persisted, concurrency as resolved locally, version
// from the store's freshness token of the just-read entry.
func Load(
	ctx context.Context,
	kv store.KV,
	logger log.Logger,
	timeSource clock.TimeSource,
	path string,
	region string,
	concurrency int,
) (*Semaphore, error) {
	logger = log.With(logger, tag.LockPath(path), tag.Region(region))

	entry, err := kv.Get(ctx, path, region)
	for attempt := 0; err != nil; attempt++ {
		if !store.IsNotFound(err) {
			return nil, err
		}
		if attempt >= bootstrapAttempts {
			return nil, &BootstrapFailedError{Path: path, Region: region, Attempts: attempt}
		}

		// Create-if-absent. Losing this race is fine: some other node just
		// bootstrapped the record, and the re-read below picks it up.
		payload, encodeErr := newDefaultRecord(concurrency).encode()
		if encodeErr != nil {
			return nil, encodeErr
		}
		created, putErr := kv.Put(ctx, path, payload, store.NoVersion, region)
		if putErr != nil {
			return nil, putErr
		}
		if created {
			logger.Info("semaphore record created", tag.Concurrency(concurrency))
		}
		entry, err = kv.Get(ctx, path, region)
	}

	record, err := decodeRecord(entry.Value)
	if err != nil {
		return nil, err
	}
	// Local configuration wins over stored capacity; holders are preserved.
	record.Concurrency = concurrency
	record.Version = entry.Version

	return &Semaphore{
		kv:         kv,
		logger:     logger,
		timeSource: timeSource,
		path:       path,
		region:     region,
		record:     record,
		version:    entry.Version,
	}, nil
}

// Enter attempts to claim a slot for holderID. It reports true if holderID
// holds a slot afterwards. A false result with a nil error means either the
// semaphore is at capacity or the CAS write lost a race; either way the
// caller retries with a fresh Load.
func (s *Semaphore) Enter(ctx context.Context, holderID string) (bool, error) {
	if _, held := s.record.Holders[holderID]; held {
		// reentrant no-op; the original timestamp is kept
		s.logger.Debug("holder already present", tag.HolderID(holderID))
		return true, nil
	}
	if len(s.record.Holders) >= s.record.Concurrency {
		s.logger.Debug("semaphore at capacity",
			tag.HolderID(holderID),
			tag.HolderCount(len(s.record.Holders)),
			tag.Concurrency(s.record.Concurrency))
		return false, nil
	}

	s.record.Holders[holderID] = s.timeSource.Now().Unix()
	applied, err := s.write(ctx)
	if err != nil || !applied {
		delete(s.record.Holders, holderID)
		return false, err
	}
	s.logger.Info("slot acquired",
		tag.HolderID(holderID),
		tag.HolderCount(len(s.record.Holders)),
		tag.Concurrency(s.record.Concurrency))
	return true, nil
}

// Exit releases holderID's slot. Releasing an identity that holds no slot is
// an idempotent success with no store write.
func (s *Semaphore) Exit(ctx context.Context, holderID string) (bool, error) {
	timestamp, held := s.record.Holders[holderID]
	if !held {
		s.logger.Debug("holder not present", tag.HolderID(holderID))
		return true, nil
	}

	delete(s.record.Holders, holderID)
	applied, err := s.write(ctx)
	if err != nil || !applied {
		s.record.Holders[holderID] = timestamp
		return false, err
	}
	s.logger.Info("slot released",
		tag.HolderID(holderID),
		tag.HolderCount(len(s.record.Holders)))
	return true, nil
}

// Holders returns a copy of the current holder map of the loaded snapshot.
func (s *Semaphore) Holders() map[string]int64 {
	holders := make(map[string]int64, len(s.record.Holders))
	for id, ts := range s.record.Holders {
		holders[id] = ts
	}
	return holders
}

// Concurrency returns the locally resolved capacity of the loaded snapshot.
func (s *Semaphore) Concurrency() int {
	return s.record.Concurrency
}

// Region returns the store region this semaphore is scoped to.
func (s *Semaphore) Region() string {
	return s.region
}

// write CAS-writes the mutated record using the version token captured at
// load time. On success the snapshot stays valid under the new token, so a
// reentrant Exit after Enter works without a reload.
func (s *Semaphore) write(ctx context.Context) (bool, error) {
	s.record.Version = s.version + 1
	payload, err := s.record.encode()
	if err != nil {
		return false, err
	}
	applied, err := s.kv.Put(ctx, s.path, payload, s.version, s.region)
	if err != nil {
		s.record.Version = s.version
		return false, err
	}
	if !applied {
		s.record.Version = s.version
		s.logger.Debug("record changed concurrently", tag.StoreVersion(s.version))
		return false, nil
	}
	s.version++
	return true, nil
}
