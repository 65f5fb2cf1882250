package semaphore

import (
	"context"

	"github.com/kvquorum/kvsema/config"
	"github.com/kvquorum/kvsema/discovery"
)

type (
	// ConcurrencyPolicy resolves the semaphore capacity: a fixed integer, or
	// max(1, floor(ratio * member count)) from the discovery client. Resolve
	// is called once per Semaphore construction and its result lives only in
	// that construction's record snapshot; there is no process-wide cache.
	ConcurrencyPolicy struct {
		fixed   int
		service *config.Service
		client  discovery.Client
	}
)

// NewFixedConcurrency returns a policy with a static capacity.
func NewFixedConcurrency(concurrency int) ConcurrencyPolicy {
	return ConcurrencyPolicy{
		fixed: concurrency,
	}
}

// NewServiceConcurrency returns a policy sized from a discovery group.
func NewServiceConcurrency(client discovery.Client, service *config.Service) ConcurrencyPolicy {
	return ConcurrencyPolicy{
		service: service,
		client:  client,
	}
}

// Resolve computes the capacity. Discovery failures propagate so the caller
// treats the attempt as failed and retries with backoff.
func (p ConcurrencyPolicy) Resolve(ctx context.Context) (int, error) {
	if p.service == nil {
		return p.fixed, nil
	}
	count, err := p.client.MemberCount(ctx, p.service.Name, p.service.Datacenter)
	if err != nil {
		return 0, err
	}
	concurrency := int(p.service.ConcurrencyRatio * float64(count))
	if concurrency < 1 {
		concurrency = 1
	}
	return concurrency, nil
}
