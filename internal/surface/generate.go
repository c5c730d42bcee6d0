package surface

import (
	gomath "math"

	"github.com/Faultbox/cortexview/pkg/math"
)

// Hemisphere dimensions of the synthetic mesh in millimetres (RAS).
const (
	synthHalfWidth  = 35
	synthHalfLength = 85
	synthHalfHeight = 60
	synthMidline    = 5
)

// Synthetic builds an ellipsoidal stand-in for a hemisphere surface from a
// subdivided icosahedron. It is used by the demo binary and tests when no
// parsed surface is available.
func Synthetic(h Hemisphere, subdivisions int) *Geometry {
	positions, triangles := icosphere(subdivisions)

	offset := float32(synthHalfWidth + synthMidline)
	if h == Left {
		offset = -offset
	}
	for i, p := range positions {
		positions[i] = math.Vec3{
			X: p.X*synthHalfWidth + offset,
			Y: p.Y * synthHalfLength,
			Z: p.Z * synthHalfHeight,
		}
	}

	g := &Geometry{
		Positions:  positions,
		Triangles:  triangles,
		Hemisphere: h,
	}
	g.ComputeNormals()
	return g
}

// SyntheticOverlay returns a smooth signed field over g with the given
// number of volumes, each phase shifted.
func SyntheticOverlay(g *Geometry, volumes int) *Overlay {
	if volumes < 1 {
		volumes = 1
	}
	vols := make([][]float32, volumes)
	for v := range vols {
		phase := float64(v) * 0.7
		vals := make([]float32, len(g.Positions))
		for i, p := range g.Positions {
			vals[i] = float32(4 * gomath.Sin(float64(p.Y)*0.05+phase) * gomath.Cos(float64(p.Z)*0.04))
		}
		vols[v] = vals
	}
	o, _ := NewOverlay(vols...)
	return o
}

// SyntheticParcellation labels vertices by lobe-like sectors along the
// anterior/superior axes.
func SyntheticParcellation(g *Geometry) *Parcellation {
	regions := []Region{
		{Name: "frontal", Color: [4]uint8{220, 90, 80, 255}},
		{Name: "parietal", Color: [4]uint8{90, 160, 220, 255}},
		{Name: "temporal", Color: [4]uint8{120, 200, 110, 255}},
		{Name: "occipital", Color: [4]uint8{230, 190, 80, 255}},
	}
	labels := make([]uint32, len(g.Positions))
	for i, p := range g.Positions {
		switch {
		case p.Y > 20:
			labels[i] = 0
		case p.Y < -45:
			labels[i] = 3
		case p.Z < -10:
			labels[i] = 2
		default:
			labels[i] = 1
		}
	}
	return &Parcellation{Labels: labels, Regions: regions}
}

// icosphere returns a unit sphere built by subdividing an icosahedron.
func icosphere(subdivisions int) ([]math.Vec3, [][3]uint32) {
	t := float32((1 + gomath.Sqrt(5)) / 2)
	verts := []math.Vec3{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	for i := range verts {
		verts[i] = verts[i].Normalize()
	}
	tris := [][3]uint32{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for s := 0; s < subdivisions; s++ {
		midpoints := make(map[[2]uint32]uint32)
		midpoint := func(a, b uint32) uint32 {
			key := [2]uint32{min(a, b), max(a, b)}
			if idx, ok := midpoints[key]; ok {
				return idx
			}
			m := verts[a].Add(verts[b]).Scale(0.5).Normalize()
			verts = append(verts, m)
			idx := uint32(len(verts) - 1)
			midpoints[key] = idx
			return idx
		}

		next := make([][3]uint32, 0, len(tris)*4)
		for _, tri := range tris {
			a := midpoint(tri[0], tri[1])
			b := midpoint(tri[1], tri[2])
			c := midpoint(tri[2], tri[0])
			next = append(next,
				[3]uint32{tri[0], a, c},
				[3]uint32{tri[1], b, a},
				[3]uint32{tri[2], c, b},
				[3]uint32{a, b, c},
			)
		}
		tris = next
	}
	return verts, tris
}
