// Package scheduler implements the kernel's single-pass scheduling
// decision, ported from os.c's Os_Scheduler. Ready-task selection uses a
// bitmap + highest-set-bit technique in place of a linear highest-wins
// scan: priorities double as bit positions in a ready mask, and the
// highest priority among them falls out of one bits.LeadingZeros32 call.
package scheduler

import (
	"math/bits"

	"github.com/hsipos/tortkernel/resource"
)

// MaxTasks bounds the task table: priorities are unique values in
// [0, MaxTasks) so they can double as bit positions in a ready mask.
const MaxTasks = 8

// State is a task's scheduling state.
type State int

const (
	Ready State = iota
	Running
	Waiting
)

// Task is the scheduler's view of one task: just enough to decide who
// runs next. The kernel package embeds this directly into its task
// descriptor rather than duplicating these fields.
type Task struct {
	State             State
	RequiredResources uint8
	Priority          uint8 // unique per task, in [0, MaxTasks)
}

// Decide runs the scheduling algorithm over a snapshot of the task table
// and the process-wide resource-occupancy mask, returning the index of
// the task that should be RUNNING and whether that differs from current.
//
// The decision tree matches Os_Scheduler exactly: find the READY task
// with no required resource currently occupied and the highest priority;
// if the current task is no longer RUNNING (it is READY or WAITING),
// adopt that candidate unconditionally; otherwise preempt only if the
// candidate's priority is strictly higher than the current task's.
func Decide(tasks []Task, occupied uint8, current int) (next int, switchNeeded bool) {
	var ready uint32
	var byPriority [MaxTasks]int
	found := false

	for i, t := range tasks {
		if t.State != Ready {
			continue
		}
		if resource.Blocks(resource.Mask(t.RequiredResources), resource.Mask(occupied)) {
			continue
		}
		ready |= 1 << t.Priority
		byPriority[t.Priority] = i
		found = true
	}

	if !found {
		return current, false
	}

	highest := uint8(31 - bits.LeadingZeros32(ready))
	candidate := byPriority[highest]

	switch tasks[current].State {
	case Ready, Waiting:
		return candidate, candidate != current
	case Running:
		if tasks[candidate].Priority > tasks[current].Priority {
			return candidate, true
		}
		return current, false
	default:
		return candidate, candidate != current
	}
}
