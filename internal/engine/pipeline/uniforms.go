package pipeline

import "github.com/Faultbox/cortexview/pkg/math"

// Uniforms is the per-draw uniform block consumed by the surface and
// picking pipelines.
type Uniforms struct {
	View       math.Mat4
	Projection math.Mat4
	Model      math.Mat4

	ColorSource         ColorSource
	ParcellationDisplay ParcellationDisplay
	DebugView           DebugView

	// Threshold hides overlay values below it. Zero disables it.
	Threshold float32
	RangeMin  float32
	RangeMax  float32

	// SurfaceID is written into the pick target.
	SurfaceID uint32

	BaseColor [4]float32
	EdgeColor [4]float32
}

// DefaultBaseColor is the neutral gray used for unshaded cortex.
var DefaultBaseColor = [4]float32{0.7, 0.7, 0.7, 1}

// DefaultEdgeColor is the parcellation outline color.
var DefaultEdgeColor = [4]float32{0.05, 0.05, 0.05, 1}

// MVP returns Projection * View * Model.
func (u *Uniforms) MVP() math.Mat4 {
	return u.Projection.Mul(u.View).Mul(u.Model)
}

// Bindings are the per-vertex buffers and lookup tables a draw reads. All
// per-vertex slices are indexed by vertex id.
type Bindings struct {
	Scalars    []float32
	Labels     []uint32
	ColorTable [][4]uint8
	Colormap   []byte
}
