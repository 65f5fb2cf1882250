// Package store defines the versioned key-value contract the semaphore is
// coordinated through. The store is an external collaborator: the semaphore
// relies entirely on the atomicity of the per-key compare-and-swap write and
// assumes nothing else about it.
package store

import (
	"context"
)

// NoVersion is the expected-version value that means "write only if the key
// does not exist yet".
const NoVersion int64 = 0

type (
	// Entry is the result of reading one key: the stored bytes and the
	// opaque version token the store issued on the last successful write.
	// The token is monotonically increasing per key and is only meaningful
	// as a CAS comparator.
	Entry struct {
		Value   []byte
		Version int64
	}

	// KV is a networked key-value store exposing read-with-version and
	// CAS-write per key, optionally scoped to a named region. An empty
	// region addresses the store's default region.
	KV interface {
		// Get reads the entry at key. Returns NotFoundError if the key has
		// never been written in the given region.
		Get(ctx context.Context, key string, region string) (*Entry, error)
		// Put writes value at key if the key's current version token equals
		// expectedVersion, or if expectedVersion is NoVersion and the key
		// does not exist. Returns whether the write applied. A false result
		// with a nil error is a lost CAS race, not a transport fault.
		Put(ctx context.Context, key string, value []byte, expectedVersion int64, region string) (bool, error)
		// Regions enumerates the region names known to the store.
		Regions(ctx context.Context) ([]string, error)
	}
)
