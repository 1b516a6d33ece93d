// Package kernel wires the task, scheduler, resource, event, timer, and
// critical packages into a running OSEK/VDX-style kernel: the task table,
// StartOS/ShutdownOS, and the simulated ISR entry points. Ported from
// os.c and os.h end to end: one struct owns every sub-component, and one
// method drives each tick.
package kernel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hsipos/tortkernel/critical"
	"github.com/hsipos/tortkernel/event"
	"github.com/hsipos/tortkernel/resource"
	"github.com/hsipos/tortkernel/scheduler"
	"github.com/hsipos/tortkernel/task"
	"github.com/hsipos/tortkernel/timer"
)

// mainHolder is the critical.Section holder token for the startup/main
// pseudo-task. Tasks use their own *TaskDescriptor as their holder token,
// and every simulated ISR entry enters with a fresh token of its own, so
// two ISR goroutines never share a holder and never nest into each
// other's section.
var mainHolder = new(int)

// TaskDescriptor is the kernel's per-task state. The *task.Task handle is
// deliberately the first field: the context switcher's "current task
// pointer" dereference expects to find the saved stack pointer (here, the
// Task handle) at a stable, primary position.
type TaskDescriptor struct {
	task *task.Task
	scheduler.Task
	events        event.Bits
	id            int
	name          string
	resourceStack []resource.Mask // acquire/release nesting, scenario 6
}

// TimerDescriptor is one configured software timer.
type TimerDescriptor struct {
	timer.Descriptor
	id int
}

// TaskConfig describes one task at configuration time.
type TaskConfig struct {
	Name              string
	Priority          uint8
	RequiredResources resource.Mask
	Entry             func(*TaskHandle)
}

// TimerConfig describes one software timer at configuration time,
// binding it to an owning task id and the event mask it posts on expiry.
type TimerConfig struct {
	OwnerTaskID int
	Mask        event.Mask
}

// Config is the kernel's compile-time configuration surface. Tasks[0] is
// always the idle task, at priority 0.
type Config struct {
	Tasks  []TaskConfig
	Timers []TimerConfig

	// SchedulerTick and AppTick are the hosted-port equivalents of os.h's
	// OS_TICK_DURATION/APP_TICK_DURATION. Zero values default to 50ms/4ms,
	// preserving the original's ratio.
	SchedulerTick time.Duration
	AppTick       time.Duration

	SchedulerSource SchedulerTickSource
	AppSource       AppTickSource
	Interrupts      []InterruptSource

	Logger *logrus.Logger
}

const (
	defaultSchedulerTick = 50 * time.Millisecond
	defaultAppTick       = 4 * time.Millisecond
)

// Kernel is the running kernel: the task table, resource/timer state, and
// the critical section guarding all of it.
type Kernel struct {
	mu critical.Section

	tasks   []*TaskDescriptor
	timers  []*TimerDescriptor
	current int

	resources resource.Table

	cfg    Config
	logger *logrus.Logger

	stopped  bool
	mainTask *task.Task
}

// NewKernel validates cfg and builds a Kernel ready for StartOS. It
// returns a configuration error for anything detectable at build time:
// duplicate priorities, a missing or misplaced idle task, a nil entry
// function, or a timer naming an unknown task.
func NewKernel(cfg Config) (*Kernel, error) {
	if len(cfg.Tasks) == 0 {
		return nil, ErrNoTasks
	}
	if len(cfg.Tasks) > scheduler.MaxTasks {
		return nil, configErrorf(ErrTooManyTasks, "got %d, max %d", len(cfg.Tasks), scheduler.MaxTasks)
	}
	if cfg.Tasks[0].Priority != 0 {
		return nil, ErrIdleMustBePriorityZero
	}

	seenPriority := make(map[uint8]int, len(cfg.Tasks))
	for i, tc := range cfg.Tasks {
		if int(tc.Priority) >= scheduler.MaxTasks {
			return nil, configErrorf(ErrPriorityOutOfRange, "task %d: priority %d", i, tc.Priority)
		}
		if other, dup := seenPriority[tc.Priority]; dup {
			return nil, configErrorf(ErrDuplicatePriority, "tasks %d and %d both declare priority %d", other, i, tc.Priority)
		}
		seenPriority[tc.Priority] = i
		if tc.Entry == nil {
			return nil, configErrorf(ErrNilEntry, "task %d (%s)", i, tc.Name)
		}
	}
	for i, tmc := range cfg.Timers {
		if tmc.OwnerTaskID < 0 || tmc.OwnerTaskID >= len(cfg.Tasks) {
			return nil, configErrorf(ErrUnknownTask, "timer %d: task id %d", i, tmc.OwnerTaskID)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	k := &Kernel{
		cfg:      cfg,
		logger:   logger,
		mainTask: task.NewParked(),
	}

	if k.cfg.SchedulerTick == 0 {
		k.cfg.SchedulerTick = defaultSchedulerTick
	}
	if k.cfg.AppTick == 0 {
		k.cfg.AppTick = defaultAppTick
	}
	if k.cfg.SchedulerSource == nil {
		k.cfg.SchedulerSource = TickerSchedulerSource{Period: k.cfg.SchedulerTick}
	}
	if k.cfg.AppSource == nil {
		k.cfg.AppSource = TickerAppSource{Period: k.cfg.AppTick}
	}

	for i, tc := range cfg.Tasks {
		td := &TaskDescriptor{
			id:   i,
			name: tc.Name,
			Task: scheduler.Task{
				State:             scheduler.Ready,
				RequiredResources: uint8(tc.RequiredResources),
				Priority:          tc.Priority,
			},
		}
		handle := &TaskHandle{k: k, id: i}
		entry := tc.Entry
		td.task = task.New(func() { entry(handle) })
		k.tasks = append(k.tasks, td)
	}

	for i, tmc := range cfg.Timers {
		k.timers = append(k.timers, &TimerDescriptor{
			id: i,
			Descriptor: timer.Descriptor{
				OwnerTaskID: tmc.OwnerTaskID,
				Mask:        tmc.Mask,
			},
		})
	}

	return k, nil
}

// StartOS runs the scheduler once, which dispatches the highest-priority
// ready task at once rather than at the first scheduler tick, then starts
// the simulated interrupt sources and blocks the caller until ctx is done
// and every source has returned. The calling goroutine plays the
// startup/main pseudo-task.
func (k *Kernel) StartOS(ctx context.Context) error {
	k.mu.Enter(mainHolder)
	k.current = -1
	k.runSchedulerLocked()
	k.mu.Exit(mainHolder)

	var wg sync.WaitGroup
	wg.Add(2 + len(k.cfg.Interrupts))

	go func() {
		defer wg.Done()
		k.cfg.SchedulerSource.Run(ctx, k.onSchedulerTick)
	}()
	go func() {
		defer wg.Done()
		k.cfg.AppSource.Run(ctx, k.onAppTick)
	}()
	for _, src := range k.cfg.Interrupts {
		src := src
		go func() {
			defer wg.Done()
			src.Run(ctx, k.PostEvent)
		}()
	}

	// The calling goroutine is the startup/main pseudo-task: it parks on
	// its own Task exactly like any real task would, and is only ever
	// resumed by ctx being done, never by the scheduler. Once resumed it
	// only waits for the interrupt sources to return.
	go func() {
		<-ctx.Done()
		k.mainTask.Resume()
	}()
	k.mainTask.Park()

	wg.Wait()
	return nil
}

// ShutdownOS marks the kernel stopped: from then on scheduler ticks,
// application ticks and PostEvent are no-ops and the scheduler never runs
// again, so tasks already parked simply stay parked. A task that is
// RUNNING when ShutdownOS is called is not stopped; it keeps executing
// until it next blocks. The interrupt sources themselves keep running
// until StartOS's ctx is done.
func (k *Kernel) ShutdownOS() {
	k.mu.Enter(mainHolder)
	k.stopped = true
	k.mu.Exit(mainHolder)
}

// runSchedulerLocked runs the scheduling algorithm (scheduler.Decide) and
// performs the resulting context switch. Caller must already hold mu.
func (k *Kernel) runSchedulerLocked() {
	if k.stopped {
		return
	}

	views := make([]scheduler.Task, len(k.tasks))
	for i, td := range k.tasks {
		views[i] = td.Task
	}

	current := k.current
	if current < 0 {
		// Startup window: no task is RUNNING yet. Treat every task as
		// eligible exactly as if "current" were WAITING, so the first
		// candidate found is adopted unconditionally.
		next, _ := scheduler.Decide(views, uint8(k.resources.Occupied()), firstReadyOr(views))
		k.switchTo(next)
		return
	}

	next, switchNeeded := scheduler.Decide(views, uint8(k.resources.Occupied()), current)
	if !switchNeeded {
		return
	}
	k.logger.WithFields(logrus.Fields{
		"from": k.tasks[current].name,
		"to":   k.tasks[next].name,
	}).Debug("kernel: scheduler switch")
	// Only a still-RUNNING task is being preempted here; a task that
	// already left RUNNING on its own (it called wait-events or is
	// otherwise READY) has already set its own state and must not be
	// overwritten back to READY.
	if k.tasks[current].State == scheduler.Running {
		k.tasks[current].State = scheduler.Ready
	}
	k.switchTo(next)
}

// firstReadyOr returns the index of a task in Ready state to seed the
// startup decision with, or 0 (the idle task, always eligible in steady
// state) if somehow none is Ready yet.
func firstReadyOr(views []scheduler.Task) int {
	for i, v := range views {
		if v.State == scheduler.Ready {
			return i
		}
	}
	return 0
}

// switchTo promotes tasks[next] to RUNNING and resumes its goroutine.
// Caller must already hold mu.
func (k *Kernel) switchTo(next int) {
	k.tasks[next].State = scheduler.Running
	k.current = next
	k.tasks[next].task.Resume()
}

// onSchedulerTick is the simulated scheduler-tick ISR, driven by
// cfg.SchedulerSource.
func (k *Kernel) onSchedulerTick() {
	holder := new(int)
	k.mu.Enter(holder)
	k.runSchedulerLocked()
	k.mu.Exit(holder)
}

// onAppTick is the simulated application-tick ISR that drives
// timer.Descriptor.Tick for every configured timer.
func (k *Kernel) onAppTick() {
	holder := new(int)
	k.mu.Enter(holder)
	if k.stopped {
		k.mu.Exit(holder)
		return
	}
	for _, tmr := range k.timers {
		owner, mask, expired := tmr.Tick()
		if expired {
			k.setEventLocked(owner, mask)
		}
	}
	k.mu.Exit(holder)
}

// PostEvent sets mask on taskID's pending events from interrupt context;
// set-event is the only operation allowed from interrupt context.
// Simulated InterruptSources call this.
func (k *Kernel) PostEvent(taskID int, mask event.Mask) {
	holder := new(int)
	k.mu.Enter(holder)
	if !k.stopped {
		k.setEventLocked(taskID, mask)
	}
	k.mu.Exit(holder)
}

// setEventLocked implements set-event. Caller must already hold mu.
func (k *Kernel) setEventLocked(taskID int, mask event.Mask) {
	if taskID < 0 || taskID >= len(k.tasks) {
		k.logger.WithField("task_id", taskID).Warn("kernel: set-event for unknown task id")
		return
	}
	td := k.tasks[taskID]
	td.events.Set(mask)
	if td.State == scheduler.Waiting && td.events.Satisfied() {
		td.State = scheduler.Ready
	}
	k.runSchedulerLocked()
}

func (k *Kernel) String() string {
	return fmt.Sprintf("kernel(tasks=%d, timers=%d)", len(k.tasks), len(k.timers))
}
