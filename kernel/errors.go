package kernel

import (
	"errors"
	"fmt"
)

// Sentinel configuration errors, checked with errors.Is. These are the
// kernel's only error-return surface: everything past StartOS is logged
// rather than propagated as an error.
var (
	ErrNoTasks                = errors.New("kernel: no tasks configured")
	ErrTooManyTasks           = errors.New("kernel: too many tasks")
	ErrIdleMustBePriorityZero = errors.New("kernel: Tasks[0] must be the idle task at priority 0")
	ErrPriorityOutOfRange     = errors.New("kernel: priority out of range")
	ErrDuplicatePriority      = errors.New("kernel: duplicate task priority")
	ErrNilEntry               = errors.New("kernel: task entry function is nil")
	ErrUnknownTask            = errors.New("kernel: timer references unknown task id")
)

func configErrorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
