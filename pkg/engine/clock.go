package engine

import "time"

// Clock is the time source for every wait in the engine.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// RealClock is the wall clock.
var RealClock Clock = realClock{}

// Timing collects the fixed delays and windows used by the sequences.
type Timing struct {
	// Settle is slept between a write and its read-back.
	Settle time.Duration
	// PreDelay lets the display finish an SDR/HDR switch before an apply.
	PreDelay time.Duration
	// HDRProfileSettle and HDRBrightnessSettle are the extra waits of the
	// HDR apply path after the profile step and after brightness.
	HDRProfileSettle    time.Duration
	HDRBrightnessSettle time.Duration

	ReadyPoll             time.Duration
	ColorModeReadyTimeout time.Duration
	ReapplyReadyTimeout   time.Duration

	StabilizeWindow   time.Duration
	StabilizeInterval time.Duration
	StabilizeRequired int
}

// DefaultTiming returns the delays tuned against real monitors.
func DefaultTiming() Timing {
	return Timing{
		Settle:                200 * time.Millisecond,
		PreDelay:              3 * time.Second,
		HDRProfileSettle:      1 * time.Second,
		HDRBrightnessSettle:   2 * time.Second,
		ReadyPoll:             500 * time.Millisecond,
		ColorModeReadyTimeout: 10 * time.Second,
		ReapplyReadyTimeout:   15 * time.Second,
		StabilizeWindow:       2500 * time.Millisecond,
		StabilizeInterval:     250 * time.Millisecond,
		StabilizeRequired:     2,
	}
}
