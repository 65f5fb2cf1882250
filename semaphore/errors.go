package semaphore

import (
	"errors"
	"fmt"
)

type (
	// BootstrapFailedError is returned by Load when the record could not be
	// read back after repeated creation attempts.
	BootstrapFailedError struct {
		Path     string
		Region   string
		Attempts int
	}

	// QuorumNotReachedError is returned by GlobalSemaphore.Enter when fewer
	// than a strict majority of regions granted a slot. The minority wins
	// have already been rolled back when this error is returned.
	QuorumNotReachedError struct {
		Acquired int
		Required int
		Regions  int
	}
)

func (e *BootstrapFailedError) Error() string {
	return fmt.Sprintf("semaphore record %v could not be bootstrapped after %v attempts (region %q)",
		e.Path, e.Attempts, e.Region)
}

func (e *QuorumNotReachedError) Error() string {
	return fmt.Sprintf("quorum not reached: acquired %v of %v regions, need %v",
		e.Acquired, e.Regions, e.Required)
}

// IsQuorumNotReached checks whether the error is a QuorumNotReachedError.
func IsQuorumNotReached(err error) bool {
	var quorumErr *QuorumNotReachedError
	return errors.As(err, &quorumErr)
}
