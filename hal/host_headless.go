//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Options

	// Ticks stops the run after that many timer interrupts (0 runs until
	// ctx is done).
	Ticks uint64
	// Fast skips wall-clock pacing and delivers ticks back to back.
	Fast bool
}

// RunHeadless runs the machine without opening a window. Every period one
// tick is delivered and step is called.
func RunHeadless(ctx context.Context, newApp func(HAL) func() error, cfg HeadlessConfig) error {
	h := newHost(cfg.Options)
	step := newApp(h)

	d := h.t.tick
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.HZ)
	}

	var pace <-chan time.Time
	if !cfg.Fast {
		t := time.NewTicker(d)
		defer t.Stop()
		pace = t.C
	}

	var tick uint64
	for {
		if pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		h.t.stepN(1)
		if step != nil {
			if err := step(); err != nil {
				return err
			}
		}
		tick++
		if cfg.Ticks > 0 && tick >= cfg.Ticks {
			return nil
		}
	}
}
