package gpu

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/cortexview/internal/logger"
)

// ContextError wraps the cause of a failed context creation.
type ContextError struct {
	Op  string
	Err error
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrContextCreation, e.Op, e.Err)
}

func (e *ContextError) Unwrap() error { return e.Err }

// Is matches ErrContextCreation.
func (e *ContextError) Is(target error) bool {
	return target == ErrContextCreation
}

// Context owns the backend and the output surface size. Every other engine
// component borrows the backend through it.
type Context struct {
	backend    Backend
	width      int
	height     int
	generation uint64
}

// NewContext initializes b for a width x height surface. On failure the
// backend is closed and a *ContextError is returned.
func NewContext(b Backend, width, height int) (*Context, error) {
	if b == nil {
		return nil, &ContextError{Op: "init", Err: fmt.Errorf("nil backend")}
	}
	width, height = max(width, 1), max(height, 1)
	if err := b.Init(width, height); err != nil {
		b.Close()
		return nil, &ContextError{Op: "init", Err: err}
	}

	info := b.Info()
	logger.Info("gpu context created",
		zap.String("backend", info.Backend),
		zap.String("renderer", info.Renderer),
		zap.String("version", info.Version),
		zap.Int("width", width),
		zap.Int("height", height))

	return &Context{backend: b, width: width, height: height}, nil
}

// Backend returns the borrowed backend.
func (c *Context) Backend() Backend {
	return c.backend
}

// Size returns the surface size in pixels.
func (c *Context) Size() (width, height int) {
	return c.width, c.height
}

// Aspect returns width / height.
func (c *Context) Aspect() float32 {
	return float32(c.width) / float32(c.height)
}

// Generation increases every time the surface size changes.
func (c *Context) Generation() uint64 {
	return c.generation
}

// Resize reconfigures the surface. Calling it with the current size is a
// no-op, so it is safe to call on every layout pass. Sizes below one pixel
// clamp to one.
func (c *Context) Resize(width, height int) error {
	width, height = max(width, 1), max(height, 1)
	if width == c.width && height == c.height {
		return nil
	}
	if err := c.backend.Configure(width, height); err != nil {
		return fmt.Errorf("resize to %dx%d: %w", width, height, err)
	}
	c.width, c.height = width, height
	c.generation++
	logger.Debug("surface resized", zap.Int("width", width), zap.Int("height", height))
	return nil
}

// Reconfigure re-applies the current size after the surface was lost.
func (c *Context) Reconfigure() error {
	return c.backend.Configure(c.width, c.height)
}

// Close releases the backend.
func (c *Context) Close() {
	if c.backend != nil {
		c.backend.Close()
		c.backend = nil
	}
}
