package soft

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/cortexview/pkg/math"
)

// minW rejects triangles with a vertex at or behind the eye plane.
const minW = 1e-5

// screenVertex is a vertex after projection to window coordinates.
type screenVertex struct {
	X, Y float32 // window pixels, origin top-left
	Z    float32 // NDC depth
	InvW float32
}

// project maps a model-space point through mvp into window coordinates.
func project(mvp math.Mat4, p math.Vec3, width, height int) (screenVertex, bool) {
	clip := mvp.MulVec4(math.Vec4{p.X, p.Y, p.Z, 1})
	if clip[3] < minW {
		return screenVertex{}, false
	}
	invW := 1 / clip[3]
	ndcX, ndcY, ndcZ := clip[0]*invW, clip[1]*invW, clip[2]*invW
	return screenVertex{
		X:    (ndcX + 1) * 0.5 * float32(width),
		Y:    (1 - ndcY) * 0.5 * float32(height),
		Z:    ndcZ,
		InvW: invW,
	}, true
}

// rect limits rasterization to [MinX, MaxX] x [MinY, MaxY], inclusive.
type rect struct {
	MinX, MinY, MaxX, MaxY int
}

// fragmentFunc receives each covered pixel with its depth and
// perspective-correct barycentric weights.
type fragmentFunc func(x, y int, z float32, bary [3]float32)

// rasterize scan-converts a triangle inside clip. Both windings are drawn;
// the surface pipelines do not cull back faces.
func rasterize(sv [3]screenVertex, clip rect, fn fragmentFunc) {
	minX := max(clip.MinX, int(math32.Floor(min3(sv[0].X, sv[1].X, sv[2].X))))
	maxX := min(clip.MaxX, int(math32.Ceil(max3(sv[0].X, sv[1].X, sv[2].X))))
	minY := max(clip.MinY, int(math32.Floor(min3(sv[0].Y, sv[1].Y, sv[2].Y))))
	maxY := min(clip.MaxY, int(math32.Ceil(max3(sv[0].Y, sv[1].Y, sv[2].Y))))
	if minX > maxX || minY > maxY {
		return
	}

	area := edge(sv[0].X, sv[0].Y, sv[1].X, sv[1].Y, sv[2].X, sv[2].Y)
	if math32.Abs(area) < 1e-12 {
		return
	}
	invArea := 1 / area

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float32(x)+0.5, float32(y)+0.5

			b0 := edge(sv[1].X, sv[1].Y, sv[2].X, sv[2].Y, px, py) * invArea
			b1 := edge(sv[2].X, sv[2].Y, sv[0].X, sv[0].Y, px, py) * invArea
			b2 := 1 - b0 - b1
			if b0 < 0 || b1 < 0 || b2 < 0 {
				continue
			}

			z := b0*sv[0].Z + b1*sv[1].Z + b2*sv[2].Z
			if z < -1 || z > 1 {
				continue
			}

			// Perspective-correct weights.
			p0, p1, p2 := b0*sv[0].InvW, b1*sv[1].InvW, b2*sv[2].InvW
			sum := p0 + p1 + p2
			fn(x, y, z, [3]float32{p0 / sum, p1 / sum, p2 / sum})
		}
	}
}

// edge returns twice the signed area of (a, b, p).
func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func min3(a, b, c float32) float32 {
	return math32.Min(a, math32.Min(b, c))
}

func max3(a, b, c float32) float32 {
	return math32.Max(a, math32.Max(b, c))
}
