// Package discovery defines the member-count contract used for dynamic
// concurrency sizing. Like the store, it is an external collaborator.
package discovery

import (
	"context"
	"errors"
	"sync"
)

// ErrUnknownService is returned for a service the client does not track.
var ErrUnknownService = errors.New("service not tracked by this client")

type (
	// Client reports the current healthy member count of a named service
	// group, optionally restricted to one region.
	Client interface {
		MemberCount(ctx context.Context, service string, region string) (int, error)
	}

	// StaticClient is a Client with operator-supplied member counts. It
	// backs tests and deployments without a discovery system.
	StaticClient struct {
		mu     sync.RWMutex
		counts map[string]int
	}
)

var _ Client = (*StaticClient)(nil)

// NewStaticClient returns an empty StaticClient.
func NewStaticClient() *StaticClient {
	return &StaticClient{
		counts: make(map[string]int),
	}
}

// SetMemberCount records the member count for a service in a region.
func (c *StaticClient) SetMemberCount(service string, region string, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counts[memberKey(service, region)] = count
}

func (c *StaticClient) MemberCount(ctx context.Context, service string, region string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count, ok := c.counts[memberKey(service, region)]
	if !ok {
		return 0, ErrUnknownService
	}
	return count, nil
}

func memberKey(service string, region string) string {
	return service + "/" + region
}
