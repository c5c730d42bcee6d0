package pipeline

import (
	gomath "math"

	"github.com/Faultbox/cortexview/internal/engine/colormap"
	"github.com/Faultbox/cortexview/internal/surface"
	"github.com/Faultbox/cortexview/pkg/math"
)

const (
	ambient = 0.3
	diffuse = 0.7
	// minRange widens a degenerate data range before normalizing.
	minRange = 1e-6
)

// Fragment is the interpolated input of one rasterized fragment.
type Fragment struct {
	// Normal is the interpolated model-space normal.
	Normal math.Vec3
	// Bary holds the barycentric weights of the triangle corners.
	Bary [3]float32
	// Vertices holds the vertex ids of the triangle corners.
	Vertices [3]uint32
}

// Nearest returns the vertex id with the largest barycentric weight.
func (f *Fragment) Nearest() uint32 {
	i := 0
	if f.Bary[1] > f.Bary[i] {
		i = 1
	}
	if f.Bary[2] > f.Bary[i] {
		i = 2
	}
	return f.Vertices[i]
}

// ShadeSurface is the surface pipeline fragment program.
func ShadeSurface(u *Uniforms, b *Bindings, f *Fragment) [4]float32 {
	switch u.DebugView {
	case DebugNormals:
		n := u.Model.TransformDirection(f.Normal).Normalize()
		return [4]float32{n.X*0.5 + 0.5, n.Y*0.5 + 0.5, n.Z*0.5 + 0.5, 1}
	case DebugRawOverlay:
		v, ok := interpolatedValue(b, f)
		if !ok {
			return u.BaseColor
		}
		g := clamp01(normalize(v, u.RangeMin, u.RangeMax))
		return [4]float32{g, g, g, 1}
	case DebugVertexID:
		id := f.Nearest()
		return [4]float32{
			float32(id&0xFF) / 255,
			float32((id>>8)&0xFF) / 255,
			float32((id>>16)&0xFF) / 255,
			1,
		}
	}

	var c [4]float32
	if u.ColorSource == SourceParcellation {
		c = shadeParcellation(u, b, f)
	} else {
		c = shadeOverlay(u, b, f)
	}
	return light(u, f, c)
}

func shadeOverlay(u *Uniforms, b *Bindings, f *Fragment) [4]float32 {
	v, ok := interpolatedValue(b, f)
	if !ok || belowThreshold(v, u.Threshold) || len(b.Colormap) < colormap.Size*4 {
		return u.BaseColor
	}
	return colormap.Sample(b.Colormap, normalize(v, u.RangeMin, u.RangeMax))
}

func shadeParcellation(u *Uniforms, b *Bindings, f *Fragment) [4]float32 {
	fill := u.BaseColor
	if u.ParcellationDisplay != DisplayEdges {
		fill = regionColor(u, b, f.Nearest())
	}
	if u.ParcellationDisplay == DisplayFill || !straddlesEdge(b, f) {
		return fill
	}
	a := u.EdgeColor[3]
	return [4]float32{
		fill[0]*(1-a) + u.EdgeColor[0]*a,
		fill[1]*(1-a) + u.EdgeColor[1]*a,
		fill[2]*(1-a) + u.EdgeColor[2]*a,
		1,
	}
}

func regionColor(u *Uniforms, b *Bindings, vertex uint32) [4]float32 {
	if int(vertex) >= len(b.Labels) {
		return u.BaseColor
	}
	l := b.Labels[vertex]
	if l == surface.Unlabeled || int(l) >= len(b.ColorTable) {
		return u.BaseColor
	}
	c := b.ColorTable[l]
	return [4]float32{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, 1}
}

// straddlesEdge reports whether the triangle's corners carry different labels.
func straddlesEdge(b *Bindings, f *Fragment) bool {
	for _, v := range f.Vertices {
		if int(v) >= len(b.Labels) {
			return false
		}
	}
	l0, l1, l2 := b.Labels[f.Vertices[0]], b.Labels[f.Vertices[1]], b.Labels[f.Vertices[2]]
	return l0 != l1 || l1 != l2
}

// light applies a headlight Lambert term. The light shines along the view
// direction, so only the view-space normal's z component matters.
func light(u *Uniforms, f *Fragment, c [4]float32) [4]float32 {
	n := u.View.TransformDirection(u.Model.TransformDirection(f.Normal)).Normalize()
	nz := n.Z
	if nz < 0 {
		nz = -nz
	}
	k := float32(ambient + diffuse*nz)
	return [4]float32{c[0] * k, c[1] * k, c[2] * k, c[3]}
}

// ShadePick is the picking pipeline fragment program. A zero result encodes
// a miss; the fragment still occludes whatever lies behind it.
func ShadePick(u *Uniforms, b *Bindings, f *Fragment) [4]uint8 {
	if u.DebugView == DebugNone && u.ColorSource == SourceOverlay && u.Threshold > 0 {
		// Same value and test as shadeOverlay.
		if v, ok := interpolatedValue(b, f); !ok || belowThreshold(v, u.Threshold) {
			return [4]uint8{}
		}
	}
	return EncodePick(u.SurfaceID, f.Nearest())
}

func interpolatedValue(b *Bindings, f *Fragment) (float32, bool) {
	var v float32
	for i, id := range f.Vertices {
		if int(id) >= len(b.Scalars) {
			return 0, false
		}
		v += b.Scalars[id] * f.Bary[i]
	}
	if isNaN(v) {
		return 0, false
	}
	return v, true
}

// belowThreshold compares signed values. A threshold of zero or less is off.
func belowThreshold(v, threshold float32) bool {
	return threshold > 0 && v < threshold
}

func normalize(v, lo, hi float32) float32 {
	return (v - lo) / max(hi-lo, minRange)
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}

func isNaN(f float32) bool {
	return gomath.IsNaN(float64(f))
}
