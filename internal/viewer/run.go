package viewer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/cortexview/internal/engine/input"
	"github.com/Faultbox/cortexview/internal/engine/renderer"
)

// Source supplies host events once per frame. Poll reports quit when the
// host window was closed.
type Source interface {
	Poll() (events []input.Event, quit bool)
}

// Run ticks at the configured frame rate until ctx is cancelled, the source
// reports quit or a quit event is handled. A nil source runs headless and
// takes events only from Post. Exhausted surface retries are logged and the
// loop carries on; any other frame error stops it.
func (v *Viewer) Run(ctx context.Context, source Source) error {
	ticker := time.NewTicker(time.Second / time.Duration(v.opts.FPSLimit))
	defer ticker.Stop()

	v.log.Info("render loop started", zap.Int("fps_limit", v.opts.FPSLimit))
	defer v.log.Info("render loop stopped", zap.Uint64("frames", v.r.Frames()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if source != nil {
				events, quit := source.Poll()
				if quit {
					return nil
				}
				for _, e := range events {
					v.Post(e)
				}
			}
			err := v.Tick(now)
			switch {
			case err == nil, errors.Is(err, ErrFrameSkipped):
			case errors.Is(err, renderer.ErrSurfaceRetriesExhausted):
				v.log.Error("output surface unavailable", zap.Error(err))
			default:
				return err
			}
			if v.Quitting() {
				return nil
			}
		}
	}
}
