package pipeline

import (
	"testing"

	"github.com/Faultbox/cortexview/internal/engine/colormap"
	"github.com/Faultbox/cortexview/internal/engine/pipeline/shaders"
	"github.com/Faultbox/cortexview/internal/surface"
	"github.com/Faultbox/cortexview/pkg/math"
)

func TestCodesStable(t *testing.T) {
	want := map[string]uint32{
		"color_source/overlay":                0,
		"color_source/parcellation":           1,
		"parcellation_display/fill":           0,
		"parcellation_display/edges":          1,
		"parcellation_display/fill_and_edges": 2,
		"debug_view/none":                     0,
		"debug_view/normals":                  1,
		"debug_view/raw_overlay":              2,
		"debug_view/vertex_id":                3,
	}
	codes := Codes()
	if len(codes) != len(want) {
		t.Fatalf("expected %d codes, got %d", len(want), len(codes))
	}
	if LayoutVersion != 1 {
		t.Errorf("layout version changed to %d; update this table with it", LayoutVersion)
	}
	for _, c := range codes {
		key := c.Enum + "/" + c.Variant
		v, ok := want[key]
		if !ok {
			t.Errorf("unexpected code %s", key)
			continue
		}
		if v != c.Value {
			t.Errorf("%s = %d, want %d", key, c.Value, v)
		}
	}
}

func TestCodesUnique(t *testing.T) {
	seen := map[string]map[uint32]string{}
	for _, c := range Codes() {
		if seen[c.Enum] == nil {
			seen[c.Enum] = map[uint32]string{}
		}
		if other, dup := seen[c.Enum][c.Value]; dup {
			t.Errorf("%s: %s and %s share code %d", c.Enum, other, c.Variant, c.Value)
		}
		seen[c.Enum][c.Value] = c.Variant
	}
}

func TestCycles(t *testing.T) {
	if DebugVertexID.Next() != DebugNone {
		t.Error("debug view should wrap to none")
	}
	if DisplayFillAndEdges.Next() != DisplayFill {
		t.Error("parcellation display should wrap to fill")
	}
	if SourceOverlay.Toggle() != SourceParcellation || SourceParcellation.Toggle() != SourceOverlay {
		t.Error("color source toggle is not an involution")
	}
}

func TestPickEncoding(t *testing.T) {
	tests := []struct {
		surface, vertex uint32
	}{
		{0, 0},
		{1, 255},
		{1, 65535},
		{254, surface.MaxVertices - 1},
	}
	for _, tt := range tests {
		px := EncodePick(tt.surface, tt.vertex)
		s, v, ok := DecodePick(px)
		if !ok || s != tt.surface || v != tt.vertex {
			t.Errorf("decode(encode(%d,%d)) = %d,%d,%v", tt.surface, tt.vertex, s, v, ok)
		}
	}
	if _, _, ok := DecodePick([4]uint8{}); ok {
		t.Error("cleared texel should decode as miss")
	}
}

func uniforms() *Uniforms {
	return &Uniforms{
		View:       math.Identity(),
		Projection: math.Identity(),
		Model:      math.Identity(),
		RangeMin:   0,
		RangeMax:   1,
		BaseColor:  DefaultBaseColor,
		EdgeColor:  DefaultEdgeColor,
	}
}

// facing is a fragment whose normal points at the viewer so lighting is 1.
func facing(bary [3]float32, verts [3]uint32) *Fragment {
	return &Fragment{Normal: math.Vec3{Z: 1}, Bary: bary, Vertices: verts}
}

func TestNearest(t *testing.T) {
	f := facing([3]float32{0.2, 0.5, 0.3}, [3]uint32{7, 8, 9})
	if f.Nearest() != 8 {
		t.Errorf("expected nearest 8, got %d", f.Nearest())
	}
}

func TestShadeOverlayThreshold(t *testing.T) {
	lut, _ := colormap.Table(colormap.Viridis)
	b := &Bindings{Scalars: []float32{0.2, 0.4, 0.9}, Colormap: lut}
	u := uniforms()
	f := facing([3]float32{1, 0, 0}, [3]uint32{0, 1, 2})

	if got := ShadeSurface(u, b, f); got == u.BaseColor {
		t.Error("unthresholded value should be colormapped")
	}

	u.Threshold = 0.3
	if got := ShadeSurface(u, b, f); got != u.BaseColor {
		t.Errorf("value below threshold should render base color, got %v", got)
	}
	if got := ShadePick(u, b, f); got != ([4]uint8{}) {
		t.Errorf("thresholded fragment should not pick, got %v", got)
	}

	// Values compare signed, so large negative values are hidden too.
	b.Scalars[0] = -0.5
	if got := ShadeSurface(u, b, f); got != u.BaseColor {
		t.Errorf("negative value should be below a positive threshold, got %v", got)
	}
	if got := ShadePick(u, b, f); got != ([4]uint8{}) {
		t.Errorf("negative value should not pick, got %v", got)
	}
}

func TestPickFollowsInterpolatedThreshold(t *testing.T) {
	lut, _ := colormap.Table(colormap.Viridis)
	u := uniforms()
	u.Threshold = 3

	// The nearest corner is above the threshold but the blend is not.
	b := &Bindings{Scalars: []float32{5, 0, 0}, Colormap: lut}
	f := facing([3]float32{0.4, 0.3, 0.3}, [3]uint32{0, 1, 2})
	if got := ShadeSurface(u, b, f); got != u.BaseColor {
		t.Fatalf("blend 2 is below threshold 3, got %v", got)
	}
	if got := ShadePick(u, b, f); got != ([4]uint8{}) {
		t.Errorf("base-colored fragment should not pick, got %v", got)
	}

	scalars := [][3]float32{{5, 0, 0}, {-8, 4, 4}, {3, 3, 3}, {10, 10, -40}, {2.9, 3.1, 3}}
	barys := [][3]float32{{1, 0, 0}, {0.4, 0.3, 0.3}, {0.2, 0.5, 0.3}, {0.34, 0.33, 0.33}, {0, 0.1, 0.9}}
	for _, sc := range scalars {
		for _, bary := range barys {
			b := &Bindings{Scalars: sc[:], Colormap: lut}
			f := facing(bary, [3]uint32{0, 1, 2})
			hidden := ShadeSurface(u, b, f) == u.BaseColor
			missed := ShadePick(u, b, f) == [4]uint8{}
			if hidden != missed {
				t.Errorf("scalars %v bary %v: hidden=%v but pick miss=%v", sc, bary, hidden, missed)
			}
		}
	}
}

func TestShadeOverlayWithoutScalars(t *testing.T) {
	u := uniforms()
	f := facing([3]float32{1, 0, 0}, [3]uint32{0, 1, 2})
	if got := ShadeSurface(u, &Bindings{}, f); got != u.BaseColor {
		t.Errorf("expected base color with no overlay, got %v", got)
	}
	if got := ShadePick(u, &Bindings{}, f); got != EncodePick(0, 0) {
		t.Errorf("expected pick without threshold, got %v", got)
	}
}

func TestShadeParcellation(t *testing.T) {
	b := &Bindings{
		Labels:     []uint32{0, 0, 1, surface.Unlabeled},
		ColorTable: [][4]uint8{{255, 0, 0, 255}, {0, 0, 255, 255}},
	}
	u := uniforms()
	u.ColorSource = SourceParcellation

	uniform := facing([3]float32{0.8, 0.1, 0.1}, [3]uint32{0, 1, 0})
	mixed := facing([3]float32{0.8, 0.1, 0.1}, [3]uint32{0, 1, 2})
	unlabeled := facing([3]float32{1, 0, 0}, [3]uint32{3, 0, 1})

	red := [4]float32{1, 0, 0, 1}
	if got := ShadeSurface(u, b, uniform); got != red {
		t.Errorf("fill: expected red, got %v", got)
	}
	if got := ShadeSurface(u, b, mixed); got != red {
		t.Errorf("fill ignores edges: expected red, got %v", got)
	}

	u.ParcellationDisplay = DisplayEdges
	if got := ShadeSurface(u, b, uniform); got != u.BaseColor {
		t.Errorf("edges: interior should be base color, got %v", got)
	}
	if got := ShadeSurface(u, b, mixed); got != u.EdgeColor {
		t.Errorf("edges: boundary should be edge color, got %v", got)
	}

	u.ParcellationDisplay = DisplayFillAndEdges
	if got := ShadeSurface(u, b, uniform); got != red {
		t.Errorf("fill+edges: interior should be red, got %v", got)
	}

	u.ParcellationDisplay = DisplayFill
	if got := ShadeSurface(u, b, unlabeled); got != u.BaseColor {
		t.Errorf("unlabeled vertex should be base color, got %v", got)
	}
}

func TestDebugViews(t *testing.T) {
	b := &Bindings{Scalars: []float32{0.5, 0.5, 0.5}}
	u := uniforms()
	f := facing([3]float32{1, 0, 0}, [3]uint32{0, 1, 2})

	u.DebugView = DebugNormals
	if got := ShadeSurface(u, b, f); got != [4]float32{0.5, 0.5, 1, 1} {
		t.Errorf("normals: got %v", got)
	}

	u.DebugView = DebugRawOverlay
	u.Threshold = 10 // debug views ignore the threshold
	if got := ShadeSurface(u, b, f); got != [4]float32{0.5, 0.5, 0.5, 1} {
		t.Errorf("raw overlay: got %v", got)
	}

	u.DebugView = DebugVertexID
	f.Vertices[0] = 0x030201
	if got := ShadeSurface(u, b, f); got != [4]float32{1.0 / 255, 2.0 / 255, 3.0 / 255, 1} {
		t.Errorf("vertex id: got %v", got)
	}
}

func TestLightingDarkensGrazingNormals(t *testing.T) {
	u := uniforms()
	b := &Bindings{}
	front := ShadeSurface(u, b, facing([3]float32{1, 0, 0}, [3]uint32{0, 0, 0}))
	side := ShadeSurface(u, b, &Fragment{Normal: math.Vec3{X: 1}, Bary: [3]float32{1, 0, 0}})
	if side[0] >= front[0] {
		t.Errorf("grazing fragment %v should be darker than facing %v", side, front)
	}
}

func TestShadersEmbedded(t *testing.T) {
	for name, src := range map[string]string{
		"surface.vert": shaders.SurfaceVertexShader,
		"surface.frag": shaders.SurfaceFragmentShader,
		"pick.vert":    shaders.PickVertexShader,
		"pick.frag":    shaders.PickFragmentShader,
		"marker.vert":  shaders.MarkerVertexShader,
		"marker.frag":  shaders.MarkerFragmentShader,
	} {
		if len(src) == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}
