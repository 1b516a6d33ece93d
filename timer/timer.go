// Package timer implements the kernel's software timer service: the
// countdown behind the set-timer/tick-timer pair, ported from os.c's
// Os_TickTimer and os.h's TimerDescriptor.
package timer

import "github.com/hsipos/tortkernel/event"

// Descriptor is one software timer: a countdown that, on reaching zero,
// posts Mask to OwnerTaskID. A timer with TicksRemaining == 0 is inactive
// and Tick ignores it, exactly as the original treats a zero value.
type Descriptor struct {
	TicksRemaining uint32
	OwnerTaskID    int
	Mask           event.Mask
}

// Set arms the timer for the given number of application ticks. A value
// of 0 disarms it.
func (d *Descriptor) Set(ticks uint32) {
	d.TicksRemaining = ticks
}

// Tick decrements an active timer by one application tick. It reports the
// owning task and event mask to post, and whether the timer just expired.
func (d *Descriptor) Tick() (ownerTaskID int, mask event.Mask, expired bool) {
	if d.TicksRemaining == 0 {
		return 0, 0, false
	}
	d.TicksRemaining--
	if d.TicksRemaining == 0 {
		return d.OwnerTaskID, d.Mask, true
	}
	return 0, 0, false
}
