// Command ktrace runs a handful of concrete scheduling scenarios against
// a real kernel.Kernel and prints the resulting event trace. It stands in
// for the excluded Tetris main() as the demo harness a reader would
// expect next to a kernel package, following ap.h's convention of naming
// resource/event bits as exported one-hot constants.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/hsipos/tortkernel/event"
	"github.com/hsipos/tortkernel/kernel"
	"github.com/hsipos/tortkernel/resource"
)

// Resource and event bit constants, named the way ap.h names
// RESOURCE_*/EVENT_*. Application code declares masks; it never passes
// raw literals into the kernel.
const (
	ResourceR resource.Mask = 1 << 0

	EventE1 event.Mask = 1 << 0
	EventE2 event.Mask = 1 << 1
)

// Task ids for the three-task layout shared by most scenarios below:
// A(prio=3), B(prio=2), C(prio=0, idle).
const (
	TaskC = 0 // idle
	TaskB = 1
	TaskA = 2
)

func main() {
	cmd := &cli.Command{
		Name:  "ktrace",
		Usage: "replay a tortkernel scheduling scenario and print its event trace",
		Commands: []*cli.Command{
			scenarioCommand("preemption", "priority preemption (scenario 1)", scenarioPreemption),
			scenarioCommand("ceiling", "resource ceiling (scenario 2)", scenarioCeiling),
			scenarioCommand("self-event", "self-event during wait installation (scenario 3)", scenarioSelfEvent),
			scenarioCommand("timer", "timer posting (scenario 4)", scenarioTimer),
			scenarioCommand("idle-fallback", "idle fallback (scenario 5)", scenarioIdleFallback),
			scenarioCommand("nested-acquire", "nested acquires (scenario 6)", scenarioNestedAcquire),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ktrace:", err)
		os.Exit(1)
	}
}

func scenarioCommand(name, usage string, run func(ctx context.Context, log *logrus.Logger) error) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logrus.New()
			log.SetLevel(logrus.DebugLevel)
			return run(ctx, log)
		},
	}
}

// newScenarioKernel builds the standard three-task layout shared by every
// scenario, with task entry functions supplied by the caller.
func newScenarioKernel(log *logrus.Logger, entryC, entryB, entryA func(*kernel.TaskHandle)) (*kernel.Kernel, error) {
	return kernel.NewKernel(kernel.Config{
		Logger: log,
		Tasks: []kernel.TaskConfig{
			{Name: "C-idle", Priority: 0, Entry: entryC},
			{Name: "B", Priority: 2, RequiredResources: ResourceR, Entry: entryB},
			{Name: "A", Priority: 3, RequiredResources: ResourceR, Entry: entryA},
		},
		SchedulerTick: 2 * time.Millisecond,
		AppTick:       1 * time.Millisecond,
	})
}

func idleLoop(h *kernel.TaskHandle) {
	for {
		h.WaitEvents(0xFF)
	}
}

func scenarioPreemption(ctx context.Context, log *logrus.Logger) error {
	k, err := newScenarioKernel(log,
		idleLoop,
		func(h *kernel.TaskHandle) {
			for {
				h.WaitEvents(0)
			}
		},
		func(h *kernel.TaskHandle) {
			for {
				h.WaitEvents(EventE1)
				log.Info("A: woke on e1")
				h.ClearEvents(EventE1)
			}
		},
	)
	if err != nil {
		return err
	}
	return runFor(ctx, k, 20*time.Millisecond, func() {
		k.PostEvent(TaskA, EventE1)
	})
}

func scenarioCeiling(ctx context.Context, log *logrus.Logger) error {
	k, err := newScenarioKernel(log,
		idleLoop,
		func(h *kernel.TaskHandle) {
			for {
				h.Acquire(ResourceR)
				log.Info("B: holding R, working")
				time.Sleep(4 * time.Millisecond)
				h.Release(ResourceR)
				h.WaitEvents(0)
			}
		},
		func(h *kernel.TaskHandle) {
			for {
				h.WaitEvents(EventE1)
				log.Info("A: woke on e1 (after B released R)")
				h.ClearEvents(EventE1)
			}
		},
	)
	if err != nil {
		return err
	}
	return runFor(ctx, k, 20*time.Millisecond, func() {
		k.PostEvent(TaskA, EventE1)
	})
}

func scenarioSelfEvent(ctx context.Context, log *logrus.Logger) error {
	k, err := newScenarioKernel(log,
		idleLoop,
		func(h *kernel.TaskHandle) { for { h.WaitEvents(0) } },
		func(h *kernel.TaskHandle) {
			// Post e1 to self before waiting on it, standing in for an ISR
			// that lands between wait-events installing the mask and the
			// task blocking (scenario 3): by the time WaitEvents runs,
			// pending already carries e1, so it must not block.
			h.SetEvent(TaskA, EventE1)
			for {
				h.WaitEvents(EventE1)
				log.Info("A: did not block, e1 already pending")
				h.ClearEvents(EventE1)
			}
		},
	)
	if err != nil {
		return err
	}
	return runFor(ctx, k, 10*time.Millisecond, nil)
}

func scenarioTimer(ctx context.Context, log *logrus.Logger) error {
	k, err := kernel.NewKernel(kernel.Config{
		Logger: log,
		Tasks: []kernel.TaskConfig{
			{Name: "C-idle", Priority: 0, Entry: idleLoop},
			{Name: "B", Priority: 2, Entry: func(h *kernel.TaskHandle) { for { h.WaitEvents(0) } }},
			{Name: "A", Priority: 3, Entry: func(h *kernel.TaskHandle) {
				h.SetTimer(0, 3)
				for {
					h.WaitEvents(EventE2)
					log.Info("A: timer fired")
					h.ClearEvents(EventE2)
				}
			}},
		},
		Timers:        []kernel.TimerConfig{{OwnerTaskID: TaskA, Mask: EventE2}},
		SchedulerTick: 2 * time.Millisecond,
		AppTick:       1 * time.Millisecond,
	})
	if err != nil {
		return err
	}
	return runFor(ctx, k, 20*time.Millisecond, nil)
}

func scenarioIdleFallback(ctx context.Context, log *logrus.Logger) error {
	k, err := newScenarioKernel(log,
		func(h *kernel.TaskHandle) {
			for {
				log.Debug("C: idling")
				h.WaitEvents(0xFF)
			}
		},
		func(h *kernel.TaskHandle) { for { h.WaitEvents(EventE1) } },
		func(h *kernel.TaskHandle) { for { h.WaitEvents(EventE1) } },
	)
	if err != nil {
		return err
	}
	return runFor(ctx, k, 10*time.Millisecond, func() {
		k.PostEvent(TaskB, EventE1)
	})
}

func scenarioNestedAcquire(ctx context.Context, log *logrus.Logger) error {
	const ResourceR2 resource.Mask = 1 << 1
	k, err := newScenarioKernel(log,
		idleLoop,
		func(h *kernel.TaskHandle) { for { h.WaitEvents(0) } },
		func(h *kernel.TaskHandle) {
			for {
				h.Acquire(ResourceR)
				h.Acquire(ResourceR2)
				log.Info("A: holding R1+R2")
				h.Release(ResourceR2)
				h.Release(ResourceR)
				h.WaitEvents(0xFF)
			}
		},
	)
	if err != nil {
		return err
	}
	return runFor(ctx, k, 10*time.Millisecond, nil)
}

// runFor starts the kernel, optionally fires one interrupt-context action
// shortly after startup, lets the trace run for d, then shuts down.
func runFor(parent context.Context, k *kernel.Kernel, d time.Duration, fire func()) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- k.StartOS(ctx) }()

	if fire != nil {
		time.Sleep(d / 4)
		fire()
	}

	<-ctx.Done()
	k.ShutdownOS()
	return <-done
}
