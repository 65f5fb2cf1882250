package semaphore

import (
	"context"
	"sort"

	"go.uber.org/multierr"

	"github.com/kvquorum/kvsema/common/clock"
	"github.com/kvquorum/kvsema/common/log"
	"github.com/kvquorum/kvsema/common/log/tag"
	"github.com/kvquorum/kvsema/store"
)

type (
	// GlobalSemaphore composes one Semaphore per store region, sharing one
	// path and one holder identity, and aggregates their results into a
	// single cross-region decision: a strict majority of all known regions
	// must grant a slot.
	GlobalSemaphore struct {
		logger log.Logger
		// semaphores is region-name-sorted for deterministic iteration. It
		// may be shorter than regionCount when some regions were unreachable
		// at load time; those count against the quorum.
		semaphores  []*Semaphore
		regionCount int
	}
)

// LoadGlobal enumerates the store's regions and loads the record in each.
// Regions that cannot be loaded are logged and treated as regions that will
// not grant a slot; the load only fails outright when no region is usable.
func LoadGlobal(
	ctx context.Context,
	kv store.KV,
	logger log.Logger,
	timeSource clock.TimeSource,
	path string,
	concurrency int,
) (*GlobalSemaphore, error) {
	regions, err := kv.Regions(ctx)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, &BootstrapFailedError{Path: path, Attempts: 0}
	}
	sort.Strings(regions)

	logger = log.With(logger, tag.LockPath(path))

	var loadErr error
	semaphores := make([]*Semaphore, 0, len(regions))
	for _, region := range regions {
		sem, err := Load(ctx, kv, logger, timeSource, path, region, concurrency)
		if err != nil {
			logger.Warn("region unavailable at load", tag.Region(region), tag.Error(err))
			loadErr = multierr.Append(loadErr, err)
			continue
		}
		semaphores = append(semaphores, sem)
	}
	if len(semaphores) == 0 {
		return nil, loadErr
	}

	return &GlobalSemaphore{
		logger:      logger,
		semaphores:  semaphores,
		regionCount: len(regions),
	}, nil
}

// Enter attempts the per-region enter everywhere and requires a strict
// majority of all known regions to succeed. On a miss, every region that did
// grant a slot is rolled back with a compensating exit before returning, so
// a failed global enter holds nothing.
func (g *GlobalSemaphore) Enter(ctx context.Context, holderID string) (bool, error) {
	required := g.quorum()
	var acquired []*Semaphore
	for _, sem := range g.semaphores {
		ok, err := sem.Enter(ctx, holderID)
		if err != nil {
			g.logger.Warn("region enter failed",
				tag.Region(sem.Region()), tag.HolderID(holderID), tag.Error(err))
			continue
		}
		if ok {
			acquired = append(acquired, sem)
		}
	}

	if len(acquired) >= required {
		g.logger.Info("global slot acquired",
			tag.HolderID(holderID),
			tag.AcquiredRegions(len(acquired)),
			tag.QuorumSize(required))
		return true, nil
	}

	for _, sem := range acquired {
		if ok, err := sem.Exit(ctx, holderID); err != nil || !ok {
			// The stale entry self-heals: re-acquiring under the same
			// identity is reentrant.
			g.logger.Warn("rollback exit failed",
				tag.Region(sem.Region()), tag.HolderID(holderID), tag.Error(err))
		}
	}
	return false, &QuorumNotReachedError{
		Acquired: len(acquired),
		Required: required,
		Regions:  g.regionCount,
	}
}

// Exit releases the slot in every region unconditionally. A region's
// individual failure is only logged, matching the relaxed single-region exit
// guarantee: leaking a slot temporarily beats failing the run.
func (g *GlobalSemaphore) Exit(ctx context.Context, holderID string) (bool, error) {
	for _, sem := range g.semaphores {
		if ok, err := sem.Exit(ctx, holderID); err != nil || !ok {
			g.logger.Warn("region exit failed",
				tag.Region(sem.Region()), tag.HolderID(holderID), tag.Error(err))
		}
	}
	return true, nil
}

// Regions returns the sorted region names of the loaded per-region semaphores.
func (g *GlobalSemaphore) Regions() []string {
	regions := make([]string, len(g.semaphores))
	for i, sem := range g.semaphores {
		regions[i] = sem.Region()
	}
	return regions
}

func (g *GlobalSemaphore) quorum() int {
	return g.regionCount/2 + 1
}
