// Package critical implements the kernel's interrupt gate: the hosted-port
// stand-in for disabling and re-enabling interrupts on the target
// microcontroller, ported from uc.h's Uc_EnterCritical/Uc_ExitCritical. One
// process-wide mutex plays the role of the single interrupt-enable flag; a
// holder-keyed depth counter gives the pair the same nesting behavior as
// the push/pop of SREG in the original macros.
package critical

import "sync"

// Holder identifies the logical execution context entering the section: a
// task, an ISR goroutine, or the startup/main pseudo-task. Any comparable
// value works; callers typically pass a *int sentinel or a pointer that is
// stable for the lifetime of that context.
type Holder any

// Section is a reentrant lock keyed by Holder. The same holder may Enter
// any number of times; the section only actually unlocks once that
// holder's Enter/Exit calls are balanced back to zero, mirroring the
// original's nestable disable/restore of the interrupt flag.
type Section struct {
	mu    sync.Mutex // the actual gate: "interrupts disabled"
	guard sync.Mutex // protects owner/depth below
	owner Holder
	depth int
}

// Enter disables the gate for holder, blocking if some other holder
// currently has it disabled. Calling Enter again for the same holder
// before a matching Exit just increments the nesting depth.
func (s *Section) Enter(holder Holder) {
	s.guard.Lock()
	if s.depth > 0 && s.owner == holder {
		s.depth++
		s.guard.Unlock()
		return
	}
	s.guard.Unlock()

	s.mu.Lock()
	s.guard.Lock()
	s.owner = holder
	s.depth = 1
	s.guard.Unlock()
}

// Exit undoes one Enter for holder. The gate only actually reopens once
// that holder's Enter/Exit calls are balanced.
func (s *Section) Exit(holder Holder) {
	s.guard.Lock()
	if s.owner != holder {
		s.guard.Unlock()
		panic("critical: Exit called by a holder that did not Enter")
	}
	s.depth--
	reopened := s.depth == 0
	if reopened {
		s.owner = nil
	}
	s.guard.Unlock()

	if reopened {
		s.mu.Unlock()
	}
}
