package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEngine_RunsUntilStepReportsFalse(t *testing.T) {
	e := NewEngine(time.Millisecond)
	var halted uint64
	e.Step = func(tick uint64) bool { return tick < 3 }
	e.OnHalt = func(tick uint64) { halted = tick }

	e.Run(context.Background())
	assert.Equal(t, uint64(3), e.Tick())
	assert.Equal(t, uint64(3), halted)
}

func TestEngine_StopsOnContext(t *testing.T) {
	e := NewEngine(time.Millisecond)
	e.Step = func(uint64) bool { return true }

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after context ended")
	}
	assert.Positive(t, e.Tick())
}

func TestEngine_PausedDoesNotStep(t *testing.T) {
	e := NewEngine(time.Millisecond)
	e.SetSpeed(-2)
	assert.Equal(t, 0.0, e.Speed())
	e.Step = func(uint64) bool {
		t.Error("stepped while paused")
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	e.Run(ctx)
	assert.Zero(t, e.Tick())
}

func TestEngine_Stop(t *testing.T) {
	e := NewEngine(time.Millisecond)
	e.Step = func(tick uint64) bool {
		if tick == 2 {
			e.Stop()
		}
		return true
	}
	e.Run(context.Background())
	assert.Equal(t, uint64(2), e.Tick())
}
