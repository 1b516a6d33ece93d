// Package resource implements the kernel's resource manager: the occupancy
// bitmask behind the get-resources/release-resources pair, ported from
// os.c's Os_GetResources/Os_ReleaseResources.
package resource

// Mask is a bitmask over up to eight resources, one bit per resource,
// matching the one-hot RESOURCE_* convention of ap.h.
type Mask uint8

// Table tracks which resources are currently held by some task, process
// wide. The scheduler consults it to skip any READY task whose declared
// requirements overlap it (priority-ceiling protocol); Table itself knows
// nothing about tasks or priorities.
type Table struct {
	occupied Mask
}

// Occupied returns the current process-wide occupancy mask.
func (t *Table) Occupied() Mask {
	return t.occupied
}

// Acquire ORs mask into the occupied set. Callers must already hold the
// kernel's critical section. Acquire never blocks, and it can only narrow
// which other tasks are eligible to run, never widen it, so it never
// triggers a reschedule.
func (t *Table) Acquire(mask Mask) {
	t.occupied |= mask
}

// Release clears mask from the occupied set. Callers must already hold
// the kernel's critical section. Releasing a resource can make a
// higher-priority task eligible to run, so every Release is followed by a
// forced reschedule at the call site.
func (t *Table) Release(mask Mask) {
	t.occupied &^= mask
}

// Blocks reports whether a task declaring required may not run because
// occupied overlaps it.
func Blocks(required, occupied Mask) bool {
	return required&occupied != 0
}
