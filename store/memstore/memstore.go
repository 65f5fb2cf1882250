// Package memstore implements the store contract as an in-memory versioned
// CAS register, partitioned by region. It backs tests and local runs.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/kvquorum/kvsema/store"
)

type (
	entry struct {
		value   []byte
		version int64
	}

	// Store is an in-memory store.KV. The zero value is not usable; use New.
	Store struct {
		mu      sync.Mutex
		regions []string
		data    map[string]map[string]*entry // region -> key -> entry
	}
)

var _ store.KV = (*Store)(nil)

// New returns a store spanning the given regions. With no regions, the store
// holds only the default region "".
func New(regions ...string) *Store {
	if len(regions) == 0 {
		regions = []string{""}
	}
	data := make(map[string]map[string]*entry, len(regions))
	for _, region := range regions {
		data[region] = make(map[string]*entry)
	}
	return &Store{
		regions: slices.Clone(regions),
		data:    data,
	}
}

func (s *Store) Get(ctx context.Context, key string, region string) (*store.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[region][key]
	if !ok {
		return nil, &store.NotFoundError{Key: key, Region: region}
	}
	return &store.Entry{
		Value:   slices.Clone(e.value),
		Version: e.version,
	}, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, expectedVersion int64, region string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, ok := s.data[region]
	if !ok {
		// a first write brings the region into existence; Regions must
		// enumerate every region that holds data
		keys = make(map[string]*entry)
		s.data[region] = keys
		s.regions = append(s.regions, region)
	}

	e, exists := keys[key]
	if expectedVersion == store.NoVersion {
		if exists {
			return false, nil
		}
		keys[key] = &entry{value: slices.Clone(value), version: 1}
		return true, nil
	}
	if !exists || e.version != expectedVersion {
		return false, nil
	}
	e.value = slices.Clone(value)
	e.version++
	return true, nil
}

func (s *Store) Regions(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.regions), nil
}
