package timectrl

import (
	"context"
	"slices"
	"sync"
	"time"
)

// DefaultFrameInterval matches a 60 Hz display refresh.
const DefaultFrameInterval = time.Second / 60

// FrameClock is an interface for reading animation time. Components that
// only need to know which frame they are on depend on this rather than on
// the concrete controller.
type FrameClock interface {
	// Frame returns the number of frames advanced so far.
	Frame() uint64
	// Now returns the simulated time of the current frame.
	Now() time.Time
}

// Mode describes how the TimeController advances frames.
type Mode int

const (
	// RealTime advances one frame per Interval of wall-clock time.
	RealTime Mode = iota
	// Accelerated advances as quickly as the loop can run while still
	// stepping simulated time by Interval.
	Accelerated
)

// TimeController drives the frame loop and notifies registered listeners.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Interval  time.Duration
	Mode      Mode

	frame       uint64
	currentTime time.Time

	listeners []func(frame uint64, now time.Time)
}

var _ FrameClock = (*TimeController)(nil)

// NewTimeController constructs a controller. A non-positive interval
// selects DefaultFrameInterval.
func NewTimeController(start time.Time, interval time.Duration, mode Mode) *TimeController {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &TimeController{
		StartTime:   start,
		Interval:    interval,
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the simulated time of the current frame.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// Frame returns the number of frames advanced so far.
func (tc *TimeController) Frame() uint64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.frame
}

// SetTime moves simulated time without advancing the frame counter.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// AddListener registers a callback invoked on every frame.
func (tc *TimeController) AddListener(fn func(frame uint64, now time.Time)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Step advances exactly one frame and runs the listeners synchronously.
func (tc *TimeController) Step() uint64 {
	tc.mu.Lock()
	tc.frame++
	tc.currentTime = tc.currentTime.Add(tc.Interval)
	frame, now := tc.frame, tc.currentTime
	listeners := slices.Clone(tc.listeners)
	tc.mu.Unlock()

	for _, fn := range listeners {
		fn(frame, now)
	}
	return frame
}

// Run advances frames in a separate goroutine until frames have elapsed or
// ctx is cancelled; frames == 0 means run until cancelled. It returns a
// channel that is closed when the loop exits.
func (tc *TimeController) Run(ctx context.Context, frames uint64) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		var tick <-chan time.Time
		if tc.Mode == RealTime {
			ticker := time.NewTicker(tc.Interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for n := uint64(0); frames == 0 || n < frames; n++ {
			if tick != nil {
				select {
				case <-ctx.Done():
					return
				case <-tick:
				}
			} else if ctx.Err() != nil {
				return
			}
			tc.Step()
		}
	}()
	return done
}
