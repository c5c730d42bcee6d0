package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagBackend  = flag.String("backend", "", "Rendering backend (gl, soft)")
	flagWidth    = flag.Int("width", 0, "Canvas width")
	flagHeight   = flag.Int("height", 0, "Canvas height")
	flagColormap = flag.String("colormap", "", "Overlay colormap")
	flagLayout   = flag.String("layout", "", "Hemisphere layout (single, side_by_side, stacked)")
	flagBridge   = flag.String("bridge", "", "Enable the websocket bridge on this address")
	flagView     = flag.String("view", "", "Camera state query string to restore")
	flagSave     = flag.Bool("save-config", false, "Write the effective config to the user config directory and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// ViewQuery returns the camera state passed via --view, if any.
func ViewQuery() string {
	return *flagView
}

// SaveRequested reports whether --save-config was given.
func SaveRequested() bool {
	return *flagSave
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagBackend != "" {
		cfg.Graphics.Backend = *flagBackend
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
	if *flagColormap != "" {
		cfg.Render.Colormap = *flagColormap
	}
	if *flagLayout != "" {
		cfg.Render.Layout = *flagLayout
	}
	if *flagBridge != "" {
		cfg.Bridge.Enabled = true
		cfg.Bridge.Listen = *flagBridge
	}
}
