// Package event implements the kernel's event service: the per-task
// pending/awaited bitmasks behind the set-event/clear-events/get-events/
// wait-events quartet, ported from os.c's Os_SetEvent/Os_ClearEvents/
// Os_GetEvents/Os_WaitEvents.
package event

// Mask is a bitmask over up to eight events, one bit per event, matching
// the one-hot EVENT_* convention of ap.h.
type Mask uint8

// Bits holds one task's event state: which events have occurred (Pending)
// and which ones it is currently willing to be woken by (Awaited).
type Bits struct {
	Pending Mask
	Awaited Mask
}

// Set ORs mask into Pending. Idempotent: setting an already-pending event
// changes nothing.
func (b *Bits) Set(mask Mask) {
	b.Pending |= mask
}

// Clear ANDNOTs mask out of Pending. Idempotent for the same reason.
func (b *Bits) Clear(mask Mask) {
	b.Pending &^= mask
}

// Await ORs mask into Awaited. WaitEvents calls this before checking
// SatisfiedBy so that an event set concurrently by an ISR, between the
// install and the check, is never lost: there is no window where the
// mask is awaited but not yet visible to a concurrent Set.
func (b *Bits) Await(mask Mask) {
	b.Awaited |= mask
}

// Satisfied reports whether any awaited event is pending.
func (b *Bits) Satisfied() bool {
	return b.Pending&b.Awaited != 0
}

// SatisfiedBy reports whether mask overlaps Pending, independent of
// Awaited. WaitEvents uses this to test the mask it was just asked to
// wait for, rather than the full accumulated Awaited set.
func (b *Bits) SatisfiedBy(mask Mask) bool {
	return b.Pending&mask != 0
}
