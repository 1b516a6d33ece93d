package kernel

import (
	"github.com/sirupsen/logrus"

	"github.com/hsipos/tortkernel/event"
	"github.com/hsipos/tortkernel/resource"
	"github.com/hsipos/tortkernel/scheduler"
)

// TaskHandle is the capability object passed to each task's entry
// function. A task can only reach its own descriptor through its handle;
// it has no way to poke another task's state directly except through
// set-event.
type TaskHandle struct {
	k  *Kernel
	id int
}

// checkpoint is the hosted port's realization of a preemption point that
// lands mid-task rather than at a blocking call: a demoted task cannot be
// stopped from outside (Go has no such primitive on a running goroutine),
// so instead every kernel entry point re-checks "am I still RUNNING?" on
// the way in and parks if not. A task that calls into the kernel often
// (as OSEK-style tasks do, with wait-events at the top of every loop) is
// preempted at its next kernel call: cooperative at the goroutine-
// scheduling level, but preemptive at the kernel's own bookkeeping level.
func (h *TaskHandle) checkpoint() *TaskDescriptor {
	td := h.k.tasks[h.id]
	h.k.mu.Enter(td)
	for td.State != scheduler.Running {
		h.k.mu.Exit(td)
		td.task.Park()
		h.k.mu.Enter(td)
	}
	return td
}

// Acquire implements acquire(mask): OR mask into the process-wide
// occupied set. Never blocks, never reschedules: acquiring can only
// narrow who else is eligible, never widen it.
func (h *TaskHandle) Acquire(mask resource.Mask) {
	td := h.checkpoint()
	h.k.resources.Acquire(mask)
	td.resourceStack = append(td.resourceStack, mask)
	h.k.mu.Exit(td)
}

// Release implements release(mask): AND-NOT mask out of the occupied
// set, then force a reschedule since a higher-priority task gated on one
// of these resources may now be eligible. Mis-stacked releases are a
// contract violation; the kernel logs and proceeds rather than
// corrupting the occupied mask.
func (h *TaskHandle) Release(mask resource.Mask) {
	td := h.checkpoint()
	if n := len(td.resourceStack); n == 0 || td.resourceStack[n-1] != mask {
		h.k.logger.WithFields(logrus.Fields{
			"task": td.name, "mask": mask,
		}).Warn("kernel: release does not match top of acquire stack")
	} else {
		td.resourceStack = td.resourceStack[:n-1]
	}
	h.k.resources.Release(mask)
	h.k.runSchedulerLocked()
	h.k.mu.Exit(td)
}

// SetEvent implements set-event from task context: the same body
// interrupt context uses via Kernel.PostEvent, preserving that symmetry.
func (h *TaskHandle) SetEvent(taskID int, mask event.Mask) {
	td := h.checkpoint()
	h.k.setEventLocked(taskID, mask)
	h.k.mu.Exit(td)
}

// ClearEvents implements clear-events(mask), restricted to the calling
// task's own pending set.
func (h *TaskHandle) ClearEvents(mask event.Mask) {
	td := h.checkpoint()
	td.events.Clear(mask)
	h.k.mu.Exit(td)
}

// GetEvents implements get-events(): a snapshot of the calling task's
// pending set. This is the one operation that is a pure read rather than
// a state transition, but the checkpoint still applies so a demoted task
// observes a consistent snapshot once it is next scheduled rather than
// racing its own pending field.
func (h *TaskHandle) GetEvents() event.Mask {
	td := h.checkpoint()
	m := td.events.Pending
	h.k.mu.Exit(td)
	return m
}

// WaitEvents implements wait-events(mask): install the awaited mask,
// re-check pending under the same critical section before blocking (no
// lost event), and only actually Park if unsatisfied. Waiting while still
// holding an acquired resource is a contract violation: it would hold a
// priority ceiling indefinitely and starve every task gated on it, so the
// kernel logs it rather than deadlocking silently.
func (h *TaskHandle) WaitEvents(mask event.Mask) {
	td := h.checkpoint()
	if len(td.resourceStack) > 0 {
		h.k.logger.WithField("task", td.name).Warn("kernel: wait-events called while holding a resource")
	}
	td.events.Await(mask)
	if td.events.SatisfiedBy(mask) {
		h.k.mu.Exit(td)
		return
	}
	td.State = scheduler.Waiting
	h.k.runSchedulerLocked()
	h.k.mu.Exit(td)

	td.task.Park()
}

// SetTimer implements set-timer(id, value).
func (h *TaskHandle) SetTimer(timerID int, value uint32) {
	td := h.checkpoint()
	if timerID < 0 || timerID >= len(h.k.timers) {
		h.k.logger.WithField("timer_id", timerID).Warn("kernel: set-timer for unknown timer id")
		h.k.mu.Exit(td)
		return
	}
	h.k.timers[timerID].Set(value)
	h.k.mu.Exit(td)
}

// ForceSchedule implements force-schedule(): ask the scheduler to run
// immediately, standing in for the original's trick of forcing the
// hardware tick timer to overflow at once (uc.c's Uc_ForceSchedule).
func (h *TaskHandle) ForceSchedule() {
	td := h.checkpoint()
	h.k.runSchedulerLocked()
	h.k.mu.Exit(td)
}
