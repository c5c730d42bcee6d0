// Package camera provides the orbit camera used to inspect surfaces.
//
// Coordinates are RAS (x right, y anterior, z superior), so the camera's up
// axis is +Z rather than the usual +Y.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/cortexview/internal/surface"
	"github.com/Faultbox/cortexview/pkg/math"
)

// Hard limits. No input sequence can move the camera outside them.
const (
	MinDistance = 50
	MaxDistance = 500
	MinPhi      = -1.5
	MaxPhi      = 1.5
)

// Projection parameters.
const (
	FovY = math32.Pi / 4
	Near = 1
	Far  = 2000
)

// Up is the anatomical superior axis.
var Up = math.Vec3{Z: 1}

// OrbitCamera orbits around a target point.
type OrbitCamera struct {
	Target math.Vec3

	// Spherical coordinates
	Distance float32
	Theta    float32 // Azimuth in the axial plane, radians, unbounded
	Phi      float32 // Elevation above the axial plane, radians

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32

	dragging bool
	last     math.Vec2
}

// NewOrbitCamera creates a camera looking at the origin from the right.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        200.0,
		Theta:           0.0,
		Phi:             0.0,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Eye returns the camera position in world space.
func (c *OrbitCamera) Eye() math.Vec3 {
	sinPhi, cosPhi := math32.Sincos(c.Phi)
	sinTheta, cosTheta := math32.Sincos(c.Theta)
	return c.Target.Add(math.Vec3{
		X: cosPhi * cosTheta,
		Y: cosPhi * sinTheta,
		Z: sinPhi,
	}.Scale(c.Distance))
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Eye(), c.Target, Up)
}

// ProjectionMatrix returns a perspective projection for the given aspect.
func (c *OrbitCamera) ProjectionMatrix(aspect float32) math.Mat4 {
	if !finite(aspect) || aspect <= 0 {
		aspect = 1
	}
	return math.Perspective(FovY, aspect, Near, Far)
}

// BeginDrag starts a rotation drag at pointer position (x, y).
func (c *OrbitCamera) BeginDrag(x, y float32) {
	c.dragging = true
	c.last = math.Vec2{X: x, Y: y}
}

// Drag rotates by the pointer movement since the last call. It does
// nothing unless a drag is active.
func (c *OrbitCamera) Drag(x, y float32) {
	if !c.dragging {
		return
	}
	d := math.Vec2{X: x, Y: y}.Sub(c.last)
	c.HandleDrag(d.X, d.Y)
	c.last = math.Vec2{X: x, Y: y}
}

// EndDrag ends the active drag.
func (c *OrbitCamera) EndDrag() {
	c.dragging = false
}

// Dragging reports whether a drag is active.
func (c *OrbitCamera) Dragging() bool {
	return c.dragging
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	if !finite(deltaX) || !finite(deltaY) {
		return
	}
	c.Theta += deltaX * c.DragSensitivity
	c.Phi = clamp(c.Phi+deltaY*c.DragSensitivity, MinPhi, MaxPhi)
}

// HandleWheel scales distance by (1 + delta*ZoomSensitivity).
func (c *OrbitCamera) HandleWheel(delta float32) {
	if !finite(delta) {
		return
	}
	c.Distance = clamp(c.Distance*(1+delta*c.ZoomSensitivity), MinDistance, MaxDistance)
}

// FitToBounds centres the camera on a bounding box and backs off far
// enough to see all of it. Angles are kept.
func (c *OrbitCamera) FitToBounds(b math.AABB) {
	if b.IsEmpty() || !b.Min.IsFinite() || !b.Max.IsFinite() {
		return
	}
	c.Target = b.Center()
	c.Distance = clamp(b.Radius()/math32.Sin(FovY/2)*1.1, MinDistance, MaxDistance)
}

// Preset is a named anatomical view.
type Preset int

const (
	Lateral Preset = iota
	Medial
	Superior
	Inferior
	Anterior
	Posterior
)

var presetNames = [...]string{"lateral", "medial", "superior", "inferior", "anterior", "posterior"}

// Presets lists every preset in key-binding order.
func Presets() []Preset {
	return []Preset{Lateral, Medial, Superior, Inferior, Anterior, Posterior}
}

func (p Preset) String() string {
	if p < 0 || int(p) >= len(presetNames) {
		return "unknown"
	}
	return presetNames[p]
}

// ApplyPreset jumps to a named view of the given hemisphere. There is no
// animation.
func (c *OrbitCamera) ApplyPreset(p Preset, h surface.Hemisphere) {
	// Lateral of the left hemisphere is seen from -x, of the right from +x.
	outside := float32(0)
	inside := float32(math32.Pi)
	if h == surface.Left {
		outside, inside = inside, outside
	}
	switch p {
	case Lateral:
		c.Theta, c.Phi = outside, 0
	case Medial:
		c.Theta, c.Phi = inside, 0
	case Superior:
		c.Theta, c.Phi = -math32.Pi/2, MaxPhi
	case Inferior:
		c.Theta, c.Phi = -math32.Pi/2, MinPhi
	case Anterior:
		c.Theta, c.Phi = math32.Pi/2, 0
	case Posterior:
		c.Theta, c.Phi = -math32.Pi/2, 0
	}
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}

func finite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}
