// Package config handles viewer configuration loading and management.
package config

import "time"

// Config holds all viewer settings.
type Config struct {
	Graphics    GraphicsConfig    `yaml:"graphics"`
	Render      RenderConfig      `yaml:"render"`
	Camera      CameraConfig      `yaml:"camera"`
	Interaction InteractionConfig `yaml:"interaction"`
	Bridge      BridgeConfig      `yaml:"bridge"`
	Capture     CaptureConfig     `yaml:"capture"`
	Demo        DemoConfig        `yaml:"demo"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// GraphicsConfig holds display and device settings.
type GraphicsConfig struct {
	Backend    string `yaml:"backend"` // "gl" or "soft"
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
	FPSLimit   int    `yaml:"fps_limit"`
}

// RenderConfig holds the initial shading settings.
type RenderConfig struct {
	Colormap   string     `yaml:"colormap"`
	Threshold  float32    `yaml:"threshold"`
	Layout     string     `yaml:"layout"`
	Background [4]float32 `yaml:"background"`
}

// CameraConfig holds the initial orbit camera settings.
type CameraConfig struct {
	Distance        float32 `yaml:"distance"`
	Theta           float32 `yaml:"theta"`
	Phi             float32 `yaml:"phi"`
	DragSensitivity float32 `yaml:"drag_sensitivity"`
}

// InteractionConfig holds picking and selection settings.
type InteractionConfig struct {
	HoverDecay    time.Duration `yaml:"hover_decay"`
	HoverThrottle time.Duration `yaml:"hover_throttle"`
	HistoryLimit  int           `yaml:"history_limit"`
	// PickLatency is how many polls the software backend needs before a
	// readback completes. Ignored by the GL backend.
	PickLatency int `yaml:"pick_latency"`
}

// BridgeConfig holds the remote host bridge settings.
type BridgeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// CaptureConfig holds frame capture settings.
type CaptureConfig struct {
	OutputDir string `yaml:"output_dir"`
	Prefix    string `yaml:"prefix"`
}

// DemoConfig controls the synthetic surfaces loaded when no data is given.
type DemoConfig struct {
	Subdivisions int  `yaml:"subdivisions"`
	Volumes      int  `yaml:"volumes"`
	Parcellation bool `yaml:"parcellation"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Backend:    "gl",
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   60,
		},
		Render: RenderConfig{
			Colormap:   "viridis",
			Threshold:  0,
			Layout:     "side_by_side",
			Background: [4]float32{0.08, 0.08, 0.1, 1},
		},
		Camera: CameraConfig{
			Distance:        300,
			Theta:           0,
			Phi:             0.3,
			DragSensitivity: 0.005,
		},
		Interaction: InteractionConfig{
			HoverDecay:    400 * time.Millisecond,
			HoverThrottle: 50 * time.Millisecond,
			HistoryLimit:  100,
			PickLatency:   1,
		},
		Bridge: BridgeConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8765",
		},
		Capture: CaptureConfig{
			OutputDir: "captures",
			Prefix:    "cortex",
		},
		Demo: DemoConfig{
			Subdivisions: 5,
			Volumes:      3,
			Parcellation: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
