package kernel

import (
	"context"
	"time"

	"github.com/hsipos/tortkernel/event"
)

// SchedulerTickSource drives the periodic scheduler-tick ISR: on the real
// target, a hardware timer overflow; here, anything that calls tick at
// roughly the configured period until ctx is done.
type SchedulerTickSource interface {
	Run(ctx context.Context, tick func())
}

// AppTickSource drives the periodic application-tick ISR that feeds
// timer.Descriptor.Tick.
type AppTickSource interface {
	Run(ctx context.Context, tick func())
}

// InterruptSource models an arbitrary asynchronous input ISR, such as the
// ADC/button handlers of the excluded driver layer, that posts events
// into the kernel. A real board port or a future Tetris input driver
// would implement this against its own hardware; the hosted port never
// needs one itself.
type InterruptSource interface {
	Run(ctx context.Context, post func(taskID int, mask event.Mask))
}

// TickerSchedulerSource is the hosted port's default SchedulerTickSource,
// standing in for the target's Timer1-overflow ISR (uc.c).
type TickerSchedulerSource struct {
	Period time.Duration
}

func (s TickerSchedulerSource) Run(ctx context.Context, tick func()) {
	runTicker(ctx, s.Period, tick)
}

// TickerAppSource is the hosted port's default AppTickSource, standing in
// for the target's Timer2-overflow ISR (uc.c).
type TickerAppSource struct {
	Period time.Duration
}

func (s TickerAppSource) Run(ctx context.Context, tick func()) {
	runTicker(ctx, s.Period, tick)
}

func runTicker(ctx context.Context, period time.Duration, fn func()) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}
