package tag

import "time"

// All logging tags are defined in this file. Tags are grouped by the
// component that emits them.

///////////////////  Common tags ///////////////////

// Error returns tag for Error
func Error(err error) Tag {
	return NewErrorTag(err)
}

// Timestamp returns tag for Timestamp
func Timestamp(t time.Time) Tag {
	return NewTimeTag("timestamp", t)
}

///////////////////  Semaphore tags ///////////////////

// LockPath returns tag for the semaphore record path
func LockPath(path string) Tag {
	return NewStringTag("lock-path", path)
}

// HolderID returns tag for the acquiring node's holder identity
func HolderID(id string) Tag {
	return NewStringTag("holder-id", id)
}

// HolderCount returns tag for the number of current holders
func HolderCount(n int) Tag {
	return NewInt("holder-count", n)
}

// Concurrency returns tag for the resolved semaphore capacity
func Concurrency(n int) Tag {
	return NewInt("concurrency", n)
}

// Region returns tag for the store region ("datacenter")
func Region(region string) Tag {
	return NewStringTag("region", region)
}

// Regions returns tag for a set of store regions
func Regions(regions []string) Tag {
	return NewStringsTag("regions", regions)
}

// StoreKey returns tag for the raw store key
func StoreKey(key string) Tag {
	return NewStringTag("store-key", key)
}

// StoreVersion returns tag for a store version token
func StoreVersion(version int64) Tag {
	return NewInt64("store-version", version)
}

// Service returns tag for the discovery service name
func Service(name string) Tag {
	return NewStringTag("service", name)
}

///////////////////  Controller tags ///////////////////

// Action returns tag for the controller action ("enter" or "exit")
func Action(action string) Tag {
	return NewStringTag("action", action)
}

// Attempt returns tag for the attempt counter
func Attempt(attempt int) Tag {
	return NewInt("attempt", attempt)
}

// MaxFailures returns tag for the controller failure budget
func MaxFailures(n int) Tag {
	return NewInt("max-failures", n)
}

// BackoffDuration returns tag for the computed backoff delay
func BackoffDuration(d time.Duration) Tag {
	return NewDurationTag("backoff-duration", d)
}

///////////////////  Global aggregation tags ///////////////////

// AcquiredRegions returns tag for regions whose enter succeeded
func AcquiredRegions(n int) Tag {
	return NewInt("acquired-regions", n)
}

// QuorumSize returns tag for the strict majority threshold
func QuorumSize(n int) Tag {
	return NewInt("quorum-size", n)
}
