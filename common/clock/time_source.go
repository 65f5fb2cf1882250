package clock

import (
	"context"
	"time"
)

type (
	// TimeSource is an interface to make it easier to test code that uses time.
	TimeSource interface {
		Now() time.Time
		AfterFunc(d time.Duration, f func()) Timer
	}

	// Timer is a timer returned by TimeSource.AfterFunc. Unlike the timers
	// returned by [time.AfterFunc], this timer does not have a channel.
	Timer interface {
		// Reset changes the expiration time of the timer. It returns true if
		// the timer had been active, false if the timer had fired or been stopped.
		Reset(d time.Duration) bool
		// Stop prevents the Timer from firing. It returns true if the call
		// stops the timer, false if the timer has already fired or been stopped.
		Stop() bool
	}

	realTimeSource struct{}

	realTimer struct {
		t *time.Timer
	}
)

var _ TimeSource = (*realTimeSource)(nil)

// NewRealTimeSource returns a TimeSource backed by the wall clock.
func NewRealTimeSource() TimeSource {
	return &realTimeSource{}
}

func (ts *realTimeSource) Now() time.Time {
	return time.Now().UTC()
}

func (ts *realTimeSource) AfterFunc(d time.Duration, f func()) Timer {
	return &realTimer{t: time.AfterFunc(d, f)}
}

func (t *realTimer) Reset(d time.Duration) bool {
	return t.t.Reset(d)
}

func (t *realTimer) Stop() bool {
	return t.t.Stop()
}

// Sleep blocks the calling goroutine for the given duration on the given
// TimeSource, or until the context is canceled, whichever happens first.
func Sleep(ctx context.Context, ts TimeSource, d time.Duration) error {
	done := make(chan struct{})
	timer := ts.AfterFunc(d, func() { close(done) })
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
