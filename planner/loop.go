package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/c360/robolink/component"
	"github.com/c360/robolink/errors"
	"github.com/c360/robolink/kinematics"
)

// StepFunc publishes one executed step. The loop logs and counts a failure
// but keeps pacing; a step is consumed whether or not it could be sent.
type StepFunc func(ctx context.Context, step kinematics.JointState) error

// Loop drives the brain: it pops one step per tick and hands it to the
// publish function, idling at a slower pace while the trajectory is empty.
type Loop struct {
	brain        *Brain
	step         StepFunc
	stepInterval time.Duration
	idlePause    time.Duration
	logger       *slog.Logger

	running   atomic.Bool
	state     atomic.Int32 // holds a component.State
	startTime time.Time

	executed   atomic.Int64
	stepErrors atomic.Int64

	cancel context.CancelFunc
	done   chan struct{}
}

var (
	_ component.LifecycleComponent = (*Loop)(nil)
	_ component.Discoverable       = (*Loop)(nil)
)

// NewLoop creates a control loop over the given brain
func NewLoop(brain *Brain, step StepFunc, stepInterval, idlePause time.Duration, logger *slog.Logger) (*Loop, error) {
	if brain == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("nil brain"),
			"Loop", "NewLoop", "brain validation")
	}
	if step == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("nil step function"),
			"Loop", "NewLoop", "step validation")
	}
	if stepInterval <= 0 || idlePause <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("intervals must be positive: step %v, idle %v", stepInterval, idlePause),
			"Loop", "NewLoop", "interval validation")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		brain:        brain,
		step:         step,
		stepInterval: stepInterval,
		idlePause:    idlePause,
		logger:       logger.With("component", "control-loop"),
		startTime:    time.Now(),
	}, nil
}

// State returns the loop's lifecycle state
func (l *Loop) State() component.State {
	return component.State(l.state.Load())
}

// Initialize validates the loop's wiring
func (l *Loop) Initialize() error {
	if l.brain == nil || l.step == nil {
		l.state.Store(int32(component.StateFailed))
		return errors.WrapInvalid(fmt.Errorf("loop not wired"),
			"Loop", "Initialize", "wiring validation")
	}
	l.state.Store(int32(component.StateInitialized))
	return nil
}

// Start launches the loop goroutine. Starting an already-running loop is an
// error.
func (l *Loop) Start(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.WrapInvalid(fmt.Errorf("loop already running"),
			"Loop", "Start", "state check")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.startTime = time.Now()
	l.state.Store(int32(component.StateStarted))

	l.logger.Info("Control loop started",
		"step_interval", l.stepInterval,
		"idle_pause", l.idlePause)

	go func() {
		defer close(l.done)
		l.run(loopCtx)
	}()
	return nil
}

// Stop cancels the loop and waits for it to finish
func (l *Loop) Stop(timeout time.Duration) error {
	if !l.running.CompareAndSwap(true, false) {
		return nil
	}

	l.cancel()
	select {
	case <-l.done:
		l.state.Store(int32(component.StateStopped))
		l.logger.Info("Control loop stopped")
		return nil
	case <-time.After(timeout):
		l.state.Store(int32(component.StateFailed))
		return errors.WrapTransient(fmt.Errorf("loop did not stop within %v", timeout),
			"Loop", "Stop", "wait for loop exit")
	}
}

func (l *Loop) run(ctx context.Context) {
	for {
		step, ok := l.brain.ExecuteNextStep()
		if !ok {
			if !sleepCtx(ctx, l.idlePause) {
				return
			}
			continue
		}

		l.logger.Info("Executing step", "angle", step.Angle, "pending", l.brain.Pending())
		if err := l.step(ctx, step); err != nil {
			l.stepErrors.Add(1)
			l.logger.Error("Failed to publish step", "error", err)
		} else {
			l.executed.Add(1)
		}

		if !sleepCtx(ctx, l.stepInterval) {
			return
		}
	}
}

// sleepCtx pauses for d, returning false if the context ended first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Meta returns the component metadata
func (l *Loop) Meta() component.Metadata {
	return component.Metadata{
		Name:        "control-loop",
		Type:        "controller",
		Description: "paced executor draining the planned trajectory",
		Version:     "1.0.0",
	}
}

// Health returns the current health status of the loop
func (l *Loop) Health() component.HealthStatus {
	return component.HealthStatus{
		Healthy:    l.running.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(l.stepErrors.Load()),
		Uptime:     time.Since(l.startTime),
	}
}

// DataFlow returns the current execution metrics
func (l *Loop) DataFlow() component.FlowMetrics {
	executed := l.executed.Load()
	failures := l.stepErrors.Load()

	var rate, errorRate float64
	if uptime := time.Since(l.startTime).Seconds(); uptime > 0 {
		rate = float64(executed) / uptime
	}
	if total := executed + failures; total > 0 {
		errorRate = float64(failures) / float64(total)
	}

	return component.FlowMetrics{
		MessagesPerSecond: rate,
		ErrorRate:         errorRate,
	}
}
