// Package debug provides frame capture and diagnostic overlays.
package debug

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/cortexview/internal/logger"
)

// Capture writes frames to PNG files named <prefix>_<timestamp>.png.
type Capture struct {
	outputDir string
	prefix    string
	now       func() time.Time
}

// NewCapture creates a capture handler writing into outputDir.
func NewCapture(outputDir, prefix string) *Capture {
	if prefix == "" {
		prefix = "frame"
	}
	return &Capture{
		outputDir: outputDir,
		prefix:    prefix,
		now:       time.Now,
	}
}

// Save encodes img and returns the written path. Captures within the same
// second get a numeric suffix instead of overwriting each other.
func (c *Capture) Save(img image.Image) (string, error) {
	if img == nil {
		return "", errors.New("no frame to capture")
	}
	if c.outputDir != "" {
		if err := os.MkdirAll(c.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename, err := c.nextFilename()
	if err != nil {
		return "", err
	}

	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}

	logger.Info("frame captured", zap.String("path", filename))
	return filename, nil
}

func (c *Capture) nextFilename() (string, error) {
	base := fmt.Sprintf("%s_%s", c.prefix, c.now().Format("2006-01-02_15-04-05"))
	for i := 0; i < 1000; i++ {
		name := base + ".png"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.png", base, i)
		}
		path := filepath.Join(c.outputDir, name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
	}
	return "", fmt.Errorf("too many captures named %s", base)
}
