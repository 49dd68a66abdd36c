// Package engine provides the segregation model's step controller and the
// paced loop that drives it for long-running observation.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Engine drives a step function forward at a controllable pace.
type Engine struct {
	Interval time.Duration // Base step interval at speed 1

	// Step advances the simulation and reports whether it should continue.
	Step func(tick uint64) bool

	// OnHalt runs once when Step reports false.
	OnHalt func(tick uint64)

	mu      sync.Mutex
	tick    uint64
	speed   float64
	stopped bool
}

// NewEngine creates an engine with the given base interval, at speed 1.
func NewEngine(interval time.Duration) *Engine {
	return &Engine{
		Interval: interval,
		speed:    1,
	}
}

// Speed returns the current speed multiplier. 0 means paused.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Negative values pause.
func (e *Engine) SetSpeed(s float64) {
	if s < 0 {
		s = 0
	}
	e.mu.Lock()
	e.speed = s
	e.mu.Unlock()
}

// Tick returns the number of steps driven so far.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Stop makes Run return after the current step.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
}

// Run drives Step until it reports false, Stop is called, or ctx ends.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed())
	defer func() {
		slog.Info("simulation engine stopped", "tick", e.Tick())
	}()

	for {
		e.mu.Lock()
		stopped, speed := e.stopped, e.speed
		e.mu.Unlock()
		if stopped {
			return
		}

		if speed <= 0 {
			// Paused; check again shortly.
			if !sleep(ctx, 100*time.Millisecond) {
				return
			}
			continue
		}

		start := time.Now()

		e.mu.Lock()
		e.tick++
		tick := e.tick
		e.mu.Unlock()

		if !e.Step(tick) {
			if e.OnHalt != nil {
				e.OnHalt(tick)
			}
			return
		}

		// Sleep for the remainder of the interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target && !sleep(ctx, target-elapsed) {
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// sleep waits for d or until ctx ends; it reports false if ctx ended.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
