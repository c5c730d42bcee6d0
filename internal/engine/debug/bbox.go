package debug

import (
	"github.com/Faultbox/cortexview/internal/engine/pipeline"
	"github.com/Faultbox/cortexview/pkg/math"
)

// BoundsColor is the color of bounding box overlays.
var BoundsColor = [4]float32{1, 0.85, 0.1, 1}

// DefaultBoundsPadding is the padding applied around node bounds.
const DefaultBoundsPadding = 1.0

// BoundsEdges returns the 12 edges of a box as endpoint pairs.
func BoundsEdges(b math.AABB) [12][2]math.Vec3 {
	lo, hi := b.Min, b.Max
	c := [8]math.Vec3{
		{X: lo.X, Y: lo.Y, Z: lo.Z}, {X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: hi.X, Y: hi.Y, Z: lo.Z}, {X: lo.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z}, {X: hi.X, Y: lo.Y, Z: hi.Z},
		{X: hi.X, Y: hi.Y, Z: hi.Z}, {X: lo.X, Y: hi.Y, Z: hi.Z},
	}
	return [12][2]math.Vec3{
		// Bottom face
		{c[0], c[1]}, {c[1], c[2]}, {c[2], c[3]}, {c[3], c[0]},
		// Top face
		{c[4], c[5]}, {c[5], c[6]}, {c[6], c[7]}, {c[7], c[4]},
		// Vertical edges
		{c[0], c[4]}, {c[1], c[5]}, {c[2], c[6]}, {c[3], c[7]},
	}
}

// BoundsMarkers outlines a padded box with point markers, steps+1 per edge.
// Corners are shared between edges and emitted once per edge.
func BoundsMarkers(b math.AABB, padding float32, steps int) []pipeline.Marker {
	if b.IsEmpty() {
		return nil
	}
	steps = max(steps, 1)
	pad := math.Vec3{X: padding, Y: padding, Z: padding}
	b = math.AABB{Min: b.Min.Sub(pad), Max: b.Max.Add(pad)}

	markers := make([]pipeline.Marker, 0, 12*(steps+1))
	for _, e := range BoundsEdges(b) {
		d := e[1].Sub(e[0])
		for i := 0; i <= steps; i++ {
			markers = append(markers, pipeline.Marker{
				Position: e[0].Add(d.Scale(float32(i) / float32(steps))),
				Color:    BoundsColor,
				Size:     2,
			})
		}
	}
	return markers
}
