// Package surface holds the pre-parsed cortical surface data handed to the
// engine: geometry, statistic overlays and parcellations.
package surface

import (
	"errors"
	"fmt"

	"github.com/Faultbox/cortexview/pkg/math"
)

// Geometry and binding validation errors.
var (
	ErrInvalidGeometry  = errors.New("invalid surface geometry")
	ErrInvalidLabel     = errors.New("invalid parcellation label")
	ErrVolumeOutOfRange = errors.New("overlay volume index out of range")
	ErrEmptyOverlay     = errors.New("overlay has no volumes")
)

// MaxVertices is the largest vertex count the 24-bit pick encoding can address.
const MaxVertices = 1<<24 - 1

// MaxSurfaces is the number of surface slots the 8-bit pick encoding can address.
const MaxSurfaces = 255

// ID identifies a loaded surface slot.
type ID uint32

// Hemisphere tags which half of the cortex a surface represents.
type Hemisphere int

const (
	Left Hemisphere = iota
	Right
)

func (h Hemisphere) String() string {
	switch h {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("hemisphere(%d)", int(h))
	}
}

// Geometry is a triangle mesh with per-vertex normals.
type Geometry struct {
	Positions  []math.Vec3
	Normals    []math.Vec3
	Triangles  [][3]uint32
	Hemisphere Hemisphere
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	return len(g.Positions)
}

// Validate checks the structural invariants of the mesh.
func (g *Geometry) Validate() error {
	n := len(g.Positions)
	if n == 0 {
		return fmt.Errorf("%w: no vertices", ErrInvalidGeometry)
	}
	if n > MaxVertices {
		return fmt.Errorf("%w: %d vertices exceeds limit %d", ErrInvalidGeometry, n, MaxVertices)
	}
	if len(g.Normals) != n {
		return fmt.Errorf("%w: %d normals for %d vertices", ErrInvalidGeometry, len(g.Normals), n)
	}
	if len(g.Triangles) == 0 {
		return fmt.Errorf("%w: no triangles", ErrInvalidGeometry)
	}
	for i, tri := range g.Triangles {
		for _, idx := range tri {
			if int(idx) >= n {
				return fmt.Errorf("%w: triangle %d references vertex %d of %d", ErrInvalidGeometry, i, idx, n)
			}
		}
	}
	return nil
}

// Bounds returns the axis-aligned bounds of all vertex positions.
func (g *Geometry) Bounds() math.AABB {
	b := math.EmptyAABB()
	for _, p := range g.Positions {
		b = b.Extend(p)
	}
	return b
}

// ComputeNormals replaces Normals with area-weighted vertex normals.
func (g *Geometry) ComputeNormals() {
	normals := make([]math.Vec3, len(g.Positions))
	for _, tri := range g.Triangles {
		a, b, c := g.Positions[tri[0]], g.Positions[tri[1]], g.Positions[tri[2]]
		// Unnormalized cross product weights by triangle area.
		n := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range tri {
			normals[idx] = normals[idx].Add(n)
		}
	}
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	g.Normals = normals
}
