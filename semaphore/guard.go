package semaphore

import (
	"context"

	"github.com/kvquorum/kvsema/common/backoff"
	"github.com/kvquorum/kvsema/common/clock"
	"github.com/kvquorum/kvsema/common/log"
	"github.com/kvquorum/kvsema/config"
	"github.com/kvquorum/kvsema/discovery"
	"github.com/kvquorum/kvsema/store"
)

// exitMaxFailures bounds release attempts. A node that fails to release
// self-heals on its next run: it rediscovers its own stale entry, which is
// reentrant, and failing the run over a release error is worse than leaking
// a slot temporarily.
const exitMaxFailures = 5

type (
	// lock is the common surface of Semaphore and GlobalSemaphore.
	lock interface {
		Enter(ctx context.Context, holderID string) (bool, error)
		Exit(ctx context.Context, holderID string) (bool, error)
	}

	// Guard binds a validated configuration, a store client and an optional
	// discovery client into the pair of lifecycle callbacks consumed by an
	// external task runner: acquire a slot before the protected work, release
	// it after.
	Guard struct {
		cfg        *config.Config
		kv         store.KV
		policy     ConcurrencyPolicy
		controller *Controller
		logger     log.Logger
		timeSource clock.TimeSource
	}
)

var (
	_ lock = (*Semaphore)(nil)
	_ lock = (*GlobalSemaphore)(nil)
)

// NewGuard validates the configuration and wires the guard. Configuration
// problems surface here and nowhere later.
func NewGuard(
	cfg *config.Config,
	kv store.KV,
	discoveryClient discovery.Client,
	logger log.Logger,
	timeSource clock.TimeSource,
) (*Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if kv == nil {
		return nil, &config.ValidationError{Msg: "store client is required"}
	}
	if cfg.Service != nil && discoveryClient == nil {
		return nil, &config.ValidationError{Msg: "service-based sizing requires a discovery client"}
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if timeSource == nil {
		timeSource = clock.NewRealTimeSource()
	}

	backoffPolicy := backoff.NewConstantDelayPolicy(cfg.BackoffInterval())
	if cfg.Global {
		// many nodes retrying a cross-region decision must not stay in
		// lockstep
		backoffPolicy = backoffPolicy.WithJitter()
	}

	var policy ConcurrencyPolicy
	if cfg.Service != nil {
		policy = NewServiceConcurrency(discoveryClient, cfg.Service)
	} else {
		policy = NewFixedConcurrency(cfg.Concurrency)
	}

	return &Guard{
		cfg:        cfg,
		kv:         kv,
		policy:     policy,
		controller: NewController(logger, timeSource, backoffPolicy),
		logger:     logger,
		timeSource: timeSource,
	}, nil
}

// Acquire blocks until a slot is held. There is no failure budget: a
// protected critical section is never entered without a confirmed slot, so a
// permanently broken store blocks indefinitely unless the context is
// canceled.
func (g *Guard) Acquire(ctx context.Context) bool {
	return g.controller.WaitUntil(ctx, "enter", UnlimitedFailures, func(ctx context.Context) (bool, error) {
		l, err := g.load(ctx)
		if err != nil {
			return false, err
		}
		return l.Enter(ctx, g.cfg.ID)
	})
}

// Release gives the slot back, with a bounded failure budget: a broken store
// abandons the release silently rather than failing the run.
func (g *Guard) Release(ctx context.Context) bool {
	return g.controller.WaitUntil(ctx, "exit", exitMaxFailures, func(ctx context.Context) (bool, error) {
		l, err := g.load(ctx)
		if err != nil {
			return false, err
		}
		return l.Exit(ctx, g.cfg.ID)
	})
}

// Hooks returns the no-arg callback pair the task runner invokes around the
// protected unit of work.
func (g *Guard) Hooks() (onEnter func(), onFinish func()) {
	onEnter = func() {
		g.Acquire(context.Background())
	}
	onFinish = func() {
		g.Release(context.Background())
	}
	return onEnter, onFinish
}

// Snapshot loads a fresh region-pinned view of the record for inspection.
func (g *Guard) Snapshot(ctx context.Context) (*Semaphore, error) {
	concurrency, err := g.policy.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return Load(ctx, g.kv, g.logger, g.timeSource, g.cfg.Path, g.cfg.Datacenter, concurrency)
}

// load resolves the capacity and constructs a fresh snapshot, global or
// region-pinned per configuration. Every controller attempt goes through
// here, so capacity is re-resolved per attempt, never cached across loads.
func (g *Guard) load(ctx context.Context) (lock, error) {
	concurrency, err := g.policy.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if g.cfg.Global {
		return LoadGlobal(ctx, g.kv, g.logger, g.timeSource, g.cfg.Path, concurrency)
	}
	return Load(ctx, g.kv, g.logger, g.timeSource, g.cfg.Path, g.cfg.Datacenter, concurrency)
}
