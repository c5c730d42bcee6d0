package scene

import (
	"testing"

	"github.com/Faultbox/cortexview/internal/surface"
	"github.com/Faultbox/cortexview/pkg/math"
)

type source struct {
	id     surface.ID
	h      surface.Hemisphere
	bounds math.AABB
}

func (s source) ID() surface.ID                 { return s.id }
func (s source) Hemisphere() surface.Hemisphere { return s.h }
func (s source) Bounds() math.AABB              { return s.bounds }

func hemispheres() []Source {
	box := math.AABB{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	return []Source{
		source{id: 0, h: surface.Left, bounds: box},
		source{id: 1, h: surface.Right, bounds: box},
	}
}

func TestSideBySidePlacement(t *testing.T) {
	g := New()
	g.Rebuild(hemispheres())
	g.SetLayout(SideBySide)

	left, _ := g.Node(0)
	right, _ := g.Node(1)
	offset := left.Bounds.Radius() * LayoutSpacing
	if got := left.Model.Translation(); got != (math.Vec3{X: -offset}) {
		t.Errorf("left translation = %v, want -x by %f", got, offset)
	}
	if got := right.Model.Translation(); got != (math.Vec3{X: offset}) {
		t.Errorf("right translation = %v, want +x by %f", got, offset)
	}
}

func TestStackedPlacement(t *testing.T) {
	g := New()
	g.Rebuild(hemispheres())
	g.SetLayout(Stacked)

	left, _ := g.Node(0)
	right, _ := g.Node(1)
	if left.Model.Translation().Z <= 0 || right.Model.Translation().Z >= 0 {
		t.Errorf("expected left above right, got %v and %v", left.Model.Translation(), right.Model.Translation())
	}
	if left.Model.Translation().X != 0 {
		t.Error("stacked layout should not move along x")
	}
}

func TestLayoutSwitchingDoesNotDrift(t *testing.T) {
	g := New()
	g.Rebuild(hemispheres())

	for i := 0; i < 100; i++ {
		g.SetLayout(SideBySide)
		g.SetLayout(Stacked)
		g.SetLayout(Single)
	}
	for _, n := range g.Nodes() {
		if n.Model != math.Identity() {
			t.Errorf("node %d drifted: %v", n.ID, n.Model)
		}
	}
}

func TestSingleSurfaceStaysAtOrigin(t *testing.T) {
	g := New()
	g.Rebuild(hemispheres()[:1])
	g.SetLayout(SideBySide)
	n, _ := g.Node(0)
	if n.Model != math.Identity() {
		t.Errorf("lone surface should not be offset, got %v", n.Model)
	}
}

func TestVisibilitySurvivesRebuild(t *testing.T) {
	g := New()
	g.Rebuild(hemispheres())
	if err := g.SetVisible(1, false); err != nil {
		t.Fatal(err)
	}
	if got := g.VisibleNodes(); len(got) != 1 || got[0].ID != 0 {
		t.Fatalf("expected only node 0 visible, got %v", got)
	}

	g.SetLayout(SideBySide)
	g.Rebuild(hemispheres())
	n, _ := g.Node(1)
	if n.Visible {
		t.Error("visibility flag lost on rebuild")
	}
	if g.Layout() != SideBySide || n.Model == math.Identity() {
		t.Error("layout not re-applied on rebuild")
	}

	if err := g.SetVisible(7, true); err == nil {
		t.Error("expected error for unknown node")
	}
}

func TestBoundsCoversVisibleNodes(t *testing.T) {
	g := New()
	g.Rebuild(hemispheres())
	g.SetLayout(SideBySide)

	b := g.Bounds()
	left, _ := g.Node(0)
	if b.Min.X != left.WorldBounds().Min.X {
		t.Errorf("bounds min x = %f, want %f", b.Min.X, left.WorldBounds().Min.X)
	}

	_ = g.SetVisible(0, false)
	right, _ := g.Node(1)
	if g.Bounds() != right.WorldBounds() {
		t.Errorf("bounds should cover only the visible node")
	}
}

func TestParseLayout(t *testing.T) {
	for _, l := range []Layout{Single, SideBySide, Stacked} {
		got, err := ParseLayout(l.String())
		if err != nil || got != l {
			t.Errorf("ParseLayout(%q) = %v, %v", l.String(), got, err)
		}
		if l.Next().Next().Next() != l {
			t.Errorf("Next should cycle through three layouts")
		}
	}
	if _, err := ParseLayout("overlapping"); err == nil {
		t.Error("expected error for unknown layout")
	}
}
