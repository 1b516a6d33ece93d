// Package task implements the kernel's context-switch primitive over
// goroutines and a condition variable instead of a saved stack pointer,
// per the hosted-port note in the kernel specification: a task is a
// goroutine that is parked and resumed rather than a register file pushed
// to and popped from a stack.
package task

import "sync"

// state tracks whether the goroutine backing a Task may proceed.
type state int

const (
	parked state = iota
	runnable
)

// Task is the hosted-port stand-in for a saved stack pointer: the
// kernel's sole handle on a suspended task. Park and Resume are the two
// context-switch primitives of the kernel specification.
type Task struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state state
	done  bool
}

// NewParked returns a Task with no goroutine of its own, parked from the
// start. It exists for a caller that wants to block itself on Park/Resume
// directly, such as the kernel's startup/main pseudo-task, which has no
// entry function of its own, only a stack pointer to save and later discard.
func NewParked() *Task {
	t := &Task{state: parked}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// New launches entry on its own goroutine and immediately blocks it until
// the first Resume, mirroring "the first restore-context sequence lands
// the processor at the task's entry address" for a task that has never
// run before.
func New(entry func()) *Task {
	t := &Task{state: parked}
	t.cond = sync.NewCond(&t.mu)

	go func() {
		t.Park()
		entry()
		t.mu.Lock()
		t.done = true
		t.mu.Unlock()
	}()
	return t
}

// Park blocks the calling goroutine until Resume is called for this Task.
// This is the hosted-port "save-context": execution suspends here and
// resumes exactly where it left off once Resume runs.
func (t *Task) Park() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.state != runnable {
		t.cond.Wait()
	}
	t.state = parked
}

// Resume makes the task runnable and wakes it. This is the hosted-port
// "restore-context": the caller (the scheduler, with the kernel's critical
// section held) hands the CPU to this task.
func (t *Task) Resume() {
	t.mu.Lock()
	t.state = runnable
	t.cond.Signal()
	t.mu.Unlock()
}

// Done reports whether the task's entry function has returned. Tasks
// ordinarily loop forever; this exists only so tests can run a bounded
// fake task and observe completion.
func (t *Task) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}
