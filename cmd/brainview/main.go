// Package main is the entry point for the cortexview surface viewer.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/cortexview/internal/bridge"
	"github.com/Faultbox/cortexview/internal/config"
	"github.com/Faultbox/cortexview/internal/engine/camera"
	"github.com/Faultbox/cortexview/internal/engine/colormap"
	"github.com/Faultbox/cortexview/internal/engine/gpu"
	"github.com/Faultbox/cortexview/internal/engine/gpu/opengl"
	"github.com/Faultbox/cortexview/internal/engine/gpu/soft"
	"github.com/Faultbox/cortexview/internal/engine/input/sdlinput"
	"github.com/Faultbox/cortexview/internal/engine/renderer"
	"github.com/Faultbox/cortexview/internal/engine/scene"
	"github.com/Faultbox/cortexview/internal/engine/window"
	"github.com/Faultbox/cortexview/internal/logger"
	"github.com/Faultbox/cortexview/internal/surface"
	"github.com/Faultbox/cortexview/internal/viewer"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== cortexview ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if config.SaveRequested() {
		if err := cfg.Save(); err != nil {
			logger.Error("failed to save config", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("config saved", zap.String("dir", config.ConfigDir()))
		return
	}

	if err := run(cfg); err != nil {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
}

func run(cfg *config.Config) error {
	out, err := openOutput(cfg)
	if err != nil {
		return err
	}
	defer out.close()

	settings, err := renderSettings(cfg.Render)
	if err != nil {
		return err
	}
	r, err := renderer.New(out.backend, renderer.Config{Width: out.width, Height: out.height, Settings: settings})
	if err != nil {
		return err
	}
	defer r.Close()
	r.SetThreshold(cfg.Render.Threshold)

	if err := loadDemo(r, cfg.Demo); err != nil {
		return err
	}
	applyCamera(r.Camera(), cfg.Camera)

	v := viewer.New(r, viewer.OptionsFromConfig(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Bridge.Enabled {
		b := bridge.New(v)
		go func() {
			if err := b.ListenAndServe(ctx, cfg.Bridge.Listen); err != nil {
				logger.Error("bridge stopped", zap.Error(err))
			}
		}()
	} else {
		go logResults(ctx, v)
	}

	err = v.Run(ctx, out.source)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type output struct {
	backend       gpu.Backend
	source        viewer.Source
	width, height int
	close         func()
}

// openOutput creates the window and GL backend, or a headless software
// backend that is driven only through the bridge.
func openOutput(cfg *config.Config) (*output, error) {
	g := cfg.Graphics
	switch g.Backend {
	case "soft":
		logger.Info("running headless on the software backend")
		return &output{
			backend: soft.New(soft.Options{PickLatency: cfg.Interaction.PickLatency}),
			width:   g.Width,
			height:  g.Height,
			close:   func() {},
		}, nil
	case "gl":
		win, err := window.New(window.Config{
			Title:      "cortexview",
			Width:      g.Width,
			Height:     g.Height,
			Fullscreen: g.Fullscreen,
			VSync:      g.VSync,
		})
		if err != nil {
			return nil, &gpu.ContextError{Op: "window", Err: err}
		}
		in := sdlinput.New()
		in.SetScale(win.Scale())
		w, h := win.DrawableSize()
		return &output{
			backend: opengl.New(win),
			source:  in,
			width:   w,
			height:  h,
			close:   win.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", g.Backend)
	}
}

func renderSettings(rc config.RenderConfig) (renderer.Settings, error) {
	s := renderer.DefaultSettings()
	k, err := colormap.Parse(rc.Colormap)
	if err != nil {
		return s, err
	}
	l, err := scene.ParseLayout(rc.Layout)
	if err != nil {
		return s, err
	}
	s.Colormap, s.Layout, s.Background = k, l, rc.Background
	return s, nil
}

// loadDemo loads two synthetic hemispheres with overlays and
// parcellations.
func loadDemo(r *renderer.Renderer, demo config.DemoConfig) error {
	for i, h := range []surface.Hemisphere{surface.Left, surface.Right} {
		id := surface.ID(i)
		g := surface.Synthetic(h, demo.Subdivisions)
		if err := r.LoadSurface(id, g); err != nil {
			return fmt.Errorf("load %s hemisphere: %w", h, err)
		}
		if err := r.BindOverlay(id, surface.SyntheticOverlay(g, demo.Volumes), 0, surface.Auto()); err != nil {
			return fmt.Errorf("bind %s overlay: %w", h, err)
		}
		if demo.Parcellation {
			if err := r.BindParcellation(id, surface.SyntheticParcellation(g)); err != nil {
				return fmt.Errorf("bind %s parcellation: %w", h, err)
			}
		}
	}
	return nil
}

// applyCamera sets the configured orbit, then the --view state if given.
func applyCamera(c *camera.OrbitCamera, cc config.CameraConfig) {
	if cc.DragSensitivity > 0 {
		c.DragSensitivity = cc.DragSensitivity
	}
	c.Restore(camera.State{Distance: cc.Distance, Azimuth: cc.Theta, Elevation: cc.Phi, Target: c.Target})

	q := config.ViewQuery()
	if q == "" {
		return
	}
	values, err := url.ParseQuery(q)
	if err == nil {
		var s camera.State
		if s, err = camera.DecodeState(values); err == nil {
			c.Restore(s)
			return
		}
	}
	logger.Warn("ignoring --view", zap.String("view", q), zap.Error(err))
}

// logResults consumes results when no bridge is attached.
func logResults(ctx context.Context, v *viewer.Viewer) {
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-v.Results():
			logger.Debug("result", zap.Stringer("kind", res.Kind), zap.String("message", res.Message))
		}
	}
}
