// Package gpu defines the rendering backend abstraction and the device
// context that owns it.
package gpu

import (
	"errors"
	"image"

	"github.com/Faultbox/cortexview/internal/engine/pipeline"
	"github.com/Faultbox/cortexview/internal/surface"
	"github.com/Faultbox/cortexview/pkg/math"
)

// Backend errors.
var (
	// ErrContextCreation reports that no usable device could be created.
	ErrContextCreation = errors.New("gpu context creation failed")
	// ErrSurfaceLost reports that the output surface must be reconfigured
	// before the next frame.
	ErrSurfaceLost = errors.New("output surface lost")
	// ErrUnknownHandle reports a draw or release of a handle the backend
	// never created or already released.
	ErrUnknownHandle = errors.New("unknown gpu handle")
	// ErrReadbackBusy reports a pick pass issued while the previous
	// readback has not been released.
	ErrReadbackBusy = errors.New("pick readback already in flight")
)

// Handle names a backend resource. Zero is never a valid handle.
type Handle uint32

// Info describes the active backend.
type Info struct {
	Backend  string
	Renderer string
	Version  string
}

// SurfaceDraw is one draw of a surface mesh with its bound data.
// Zero handles mean "not bound".
type SurfaceDraw struct {
	Mesh       Handle
	Scalars    Handle
	Labels     Handle
	ColorTable Handle
	Colormap   Handle
	Uniforms   pipeline.Uniforms
}

// Readback is an in-flight read of one pick texel.
type Readback interface {
	// Poll never blocks. done is false while the copy is still in flight.
	Poll() (px [4]uint8, done bool, err error)
	// Release frees the readback buffer. Safe to call more than once.
	Release()
}

// Backend is implemented by each concrete renderer. All methods are called
// from the render loop goroutine.
type Backend interface {
	Init(width, height int) error
	Info() Info
	// Configure resizes the output surface and every offscreen target.
	Configure(width, height int) error
	Close()

	CreateMesh(g *surface.Geometry) (Handle, error)
	CreateScalars(values []float32) (Handle, error)
	CreateLabels(labels []uint32) (Handle, error)
	CreateColorTable(colors [][4]uint8) (Handle, error)
	CreateColormap(lut []byte) (Handle, error)
	Release(h Handle)

	BeginFrame(clear [4]float32) error
	DrawSurface(d *SurfaceDraw) error
	DrawMarkers(view, projection math.Mat4, markers []pipeline.Marker) error
	EndFrame() error

	// PickPass rasterizes draws with the picking pipeline around pixel
	// (x, y), origin top-left, and starts an asynchronous readback.
	PickPass(x, y int, draws []SurfaceDraw) (Readback, error)
	// ReadFrame returns the last presented frame.
	ReadFrame() (*image.RGBA, error)
}
