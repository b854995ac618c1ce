package preview

import (
	"context"
	"time"

	"github.com/Barryalien23/monoart/internal/logx"
)

// DefaultInterval is the 60 Hz display cadence.
const DefaultInterval = time.Second / 60

// Loop redraws a target at a fixed cadence until its context ends. It
// only reads preview state; writers go through State.
type Loop struct {
	Renderer *Renderer
	Target   Target
	Interval time.Duration
	// OnFrame, if set, runs after every successful draw. Returning an
	// error stops the loop.
	OnFrame func(ctx context.Context, t Target) error
}

// Run starts the renderer and draws until ctx is cancelled, then stops
// it. Draw failures are logged and the loop continues.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Renderer.Start(l.Target); err != nil {
		return err
	}
	defer l.Renderer.Stop()

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.Renderer.Draw(l.Target); err != nil {
				logx.Logger().Warn("preview draw failed", "error", err)
				continue
			}
			if l.OnFrame != nil {
				if err := l.OnFrame(ctx, l.Target); err != nil {
					return err
				}
			}
		}
	}
}
