package pipeline

import "github.com/Faultbox/cortexview/pkg/math"

// MarkerDepthBias pulls markers toward the camera in clip space so they sit
// on top of the surface they annotate without writing depth.
const MarkerDepthBias = 0.002

// Marker is a screen-aligned square drawn at a world position.
type Marker struct {
	Position math.Vec3
	Color    [4]float32
	// Size is the edge length in pixels.
	Size float32
}

// Marker colors used by the viewer.
var (
	PrimaryMarkerColor  = [4]float32{1, 0.85, 0.1, 1}
	SelectedMarkerColor = [4]float32{0.2, 0.8, 1, 1}
	HoverMarkerColor    = [4]float32{1, 1, 1, 0.8}
	RegionMarkerColor   = [4]float32{0.95, 0.4, 0.9, 0.6}
)
