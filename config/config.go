// Package config holds the statically typed configuration surface for the
// semaphore. All validation happens at construction time; a bad field is an
// immediate configuration error, never a runtime retry.
package config

import (
	"fmt"
	"time"

	"gopkg.in/validator.v2"

	"github.com/kvquorum/kvsema/common/backoff"
	"github.com/kvquorum/kvsema/common/log"
)

type (
	// Config is the root configuration.
	Config struct {
		// Path is the lock identity: the store key the record lives at.
		Path string `yaml:"path" validate:"nonzero"`
		// ID is this node's holder identity.
		ID string `yaml:"id" validate:"nonzero"`
		// Concurrency is the fixed semaphore capacity. Mutually exclusive
		// with Service.
		Concurrency int `yaml:"concurrency" validate:"min=0"`
		// Service sizes the capacity dynamically from the member count of a
		// discovery service group. Mutually exclusive with Concurrency.
		Service *Service `yaml:"service"`
		// Global coordinates one sub-lock per store region and requires a
		// strict majority of regions for acquisition.
		Global bool `yaml:"global"`
		// Backoff is the delay between failed acquisition attempts.
		Backoff Duration `yaml:"backoff"`
		// Datacenter pins the semaphore to one store region. Ignored when
		// Global is set.
		Datacenter string `yaml:"datacenter"`
		// AuthToken authenticates against the store, if it requires one.
		AuthToken string `yaml:"authToken"`

		// Store configures the shipped redis store binding. Optional when
		// the caller supplies its own store.KV.
		Store *Store `yaml:"store"`
		// Log configures logging.
		Log log.Config `yaml:"log"`
	}

	// Service describes discovery-based concurrency sizing: capacity is
	// max(1, floor(ConcurrencyRatio * member count)).
	Service struct {
		Name             string  `yaml:"name" validate:"nonzero"`
		ConcurrencyRatio float64 `yaml:"concurrencyRatio"`
		// Datacenter restricts the member count to one region.
		Datacenter string `yaml:"datacenter"`
		// MemberCount is the operator-declared member count, consumed by
		// deployments without a discovery system (the shipped CLI among
		// them). Ignored when a live discovery client is bound.
		MemberCount int `yaml:"memberCount" validate:"min=0"`
	}

	// Store configures the redis-backed store: one endpoint per region.
	Store struct {
		Regions map[string]Endpoint `yaml:"regions"`
		// KeyPrefix namespaces every key this system writes.
		KeyPrefix string `yaml:"keyPrefix"`
	}

	// Endpoint is one region's redis endpoint.
	Endpoint struct {
		Addr string `yaml:"addr" validate:"nonzero"`
		DB   int    `yaml:"db"`
	}
)

// Validate checks the configuration and returns a ValidationError describing
// the first problem found.
func (c *Config) Validate() error {
	if err := validator.Validate(c); err != nil {
		return &ValidationError{Msg: fmt.Sprintf("config validation failed: %v", err)}
	}
	if c.Concurrency > 0 && c.Service != nil {
		return &ValidationError{Msg: "concurrency and service are mutually exclusive"}
	}
	if c.Concurrency == 0 && c.Service == nil {
		return &ValidationError{Msg: "one of concurrency or service must be set"}
	}
	if c.Service != nil && c.Service.ConcurrencyRatio <= 0 {
		return &ValidationError{Msg: "service.concurrencyRatio must be positive"}
	}
	if c.Backoff < 0 {
		return &ValidationError{Msg: "backoff cannot be negative"}
	}
	return nil
}

// BackoffInterval returns the configured backoff, or the default when unset.
func (c *Config) BackoffInterval() time.Duration {
	if c.Backoff <= 0 {
		return backoff.DefaultInterval
	}
	return c.Backoff.Duration()
}
