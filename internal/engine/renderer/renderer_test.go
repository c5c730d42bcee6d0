package renderer

import (
	"errors"
	"image"
	"testing"

	"github.com/chewxy/math32"

	"github.com/Faultbox/cortexview/internal/engine/gpu"
	"github.com/Faultbox/cortexview/internal/engine/gpu/soft"
	"github.com/Faultbox/cortexview/internal/engine/picking"
	"github.com/Faultbox/cortexview/internal/engine/pipeline"
	"github.com/Faultbox/cortexview/internal/engine/scene"
	"github.com/Faultbox/cortexview/internal/surface"
	"github.com/Faultbox/cortexview/pkg/math"
)

const size = 32

// wall is a 200mm square in the sagittal plane facing +x, where the
// default camera looks from.
func wall() *surface.Geometry {
	n := math.Vec3{X: 1}
	return &surface.Geometry{
		Positions: []math.Vec3{
			{Y: -100, Z: -100}, {Y: 100, Z: -100}, {Y: 100, Z: 100}, {Y: -100, Z: 100},
		},
		Normals:    []math.Vec3{n, n, n, n},
		Triangles:  [][3]uint32{{0, 1, 2}, {0, 2, 3}},
		Hemisphere: surface.Left,
	}
}

func newRenderer(t *testing.T, opts soft.Options) (*Renderer, *soft.Backend) {
	t.Helper()
	b := soft.New(opts)
	r, err := New(b, Config{Width: size, Height: size, Settings: DefaultSettings()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(r.Close)
	return r, b
}

func loadWall(t *testing.T, r *Renderer) {
	t.Helper()
	if err := r.LoadSurface(0, wall()); err != nil {
		t.Fatal(err)
	}
	o, err := surface.NewOverlay([]float32{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.BindOverlay(0, o, 0, surface.Auto()); err != nil {
		t.Fatal(err)
	}
}

// covered returns the pixels that differ from the background.
func covered(t *testing.T, r *Renderer) [][4]uint8 {
	t.Helper()
	img, err := r.Capture()
	if err != nil {
		t.Fatal(err)
	}
	bg := background(img)
	var out [][4]uint8
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := img.PixOffset(x, y)
			px := [4]uint8{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
			if px != bg {
				out = append(out, px)
			}
		}
	}
	return out
}

// background samples the top-left corner, which the wall never reaches.
func background(img *image.RGBA) [4]uint8 {
	return [4]uint8{img.Pix[0], img.Pix[1], img.Pix[2], img.Pix[3]}
}

func gray(px [4]uint8) bool {
	return px[0] == px[1] && px[1] == px[2]
}

func TestNewReportsContextError(t *testing.T) {
	b := soft.New(soft.Options{FailInit: errors.New("no device")})
	_, err := New(b, Config{Width: size, Height: size, Settings: DefaultSettings()})
	if !errors.Is(err, gpu.ErrContextCreation) {
		t.Fatalf("expected ErrContextCreation, got %v", err)
	}
	var ce *gpu.ContextError
	if !errors.As(err, &ce) {
		t.Errorf("expected *gpu.ContextError, got %T", err)
	}
}

func TestLoadSurfaceFitsCamera(t *testing.T) {
	r, _ := newRenderer(t, soft.Options{})
	r.Camera().Target = math.Vec3{X: 999}
	loadWall(t, r)

	if len(r.Scene().Nodes()) != 1 {
		t.Fatalf("expected one node, got %d", len(r.Scene().Nodes()))
	}
	if r.Camera().Target != (math.Vec3{}) {
		t.Errorf("camera should target the wall centre, got %+v", r.Camera().Target)
	}
}

func TestFrameDrawsOverlay(t *testing.T) {
	r, b := newRenderer(t, soft.Options{})
	loadWall(t, r)

	if err := r.Frame(nil); err != nil {
		t.Fatal(err)
	}
	if b.Stats().SurfaceDraws != 1 {
		t.Errorf("expected one surface draw, got %d", b.Stats().SurfaceDraws)
	}
	px := covered(t, r)
	if len(px) == 0 {
		t.Fatal("wall should cover part of the frame")
	}
	colored := 0
	for _, p := range px {
		if !gray(p) {
			colored++
		}
	}
	if colored == 0 {
		t.Error("overlay should be colormapped, every pixel was gray")
	}
}

// A threshold above the overlay maximum leaves only base color, and none
// of those fragments can be picked.
func TestThresholdAboveMaxRendersBase(t *testing.T) {
	r, _ := newRenderer(t, soft.Options{})
	loadWall(t, r)
	r.SetThreshold(10)

	if err := r.Frame(nil); err != nil {
		t.Fatal(err)
	}
	px := covered(t, r)
	if len(px) == 0 {
		t.Fatal("wall should still be drawn")
	}
	for _, p := range px {
		if !gray(p) {
			t.Fatalf("expected base color, got %v", p)
		}
	}

	r.Picker().Request(size/2, size/2, picking.Click)
	st := r.Picker().Poll()
	if st.State != picking.Resolved {
		t.Fatalf("expected Resolved, got %v (%v)", st.State, st.Err)
	}
	if st.Result.Hit() {
		t.Errorf("thresholded fragment was picked: %+v", st.Result)
	}
}

func TestThresholdHidesNegativeValues(t *testing.T) {
	r, _ := newRenderer(t, soft.Options{})
	if err := r.LoadSurface(0, wall()); err != nil {
		t.Fatal(err)
	}
	o, err := surface.NewOverlay([]float32{-40, -30, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.BindOverlay(0, o, 0, surface.Auto()); err != nil {
		t.Fatal(err)
	}
	r.SetThreshold(3)

	if err := r.Frame(nil); err != nil {
		t.Fatal(err)
	}
	px := covered(t, r)
	if len(px) == 0 {
		t.Fatal("wall should still be drawn")
	}
	for _, p := range px {
		if !gray(p) {
			t.Fatalf("threshold 3 is above every value, got colormapped pixel %v", p)
		}
	}

	r.Picker().Request(size/2, size/2, picking.Click)
	if st := r.Picker().Poll(); st.State != picking.Resolved || st.Result.Hit() {
		t.Errorf("expected a resolved miss, got %v %+v", st.State, st.Result)
	}
}

func TestPickHitsWall(t *testing.T) {
	r, _ := newRenderer(t, soft.Options{})
	loadWall(t, r)

	r.Picker().Request(size/2, size/2, picking.Click)
	st := r.Picker().Poll()
	if st.State != picking.Resolved || !st.Result.Hit() {
		t.Fatalf("expected a hit, got %+v", st)
	}
	if st.Result.Surface != 0 || !st.Result.HasValue {
		t.Errorf("unexpected result %+v", st.Result)
	}
	if st.Result.Position.X != 0 {
		t.Errorf("position should lie on the wall, got %+v", st.Result.Position)
	}

	r.Picker().Request(0, 0, picking.Hover)
	if st := r.Picker().Poll(); st.Result.Hit() {
		t.Errorf("corner should miss, got %+v", st.Result)
	}
}

func TestSurfaceLostRecovers(t *testing.T) {
	r, b := newRenderer(t, soft.Options{})
	loadWall(t, r)
	b.LoseSurface(MaxSurfaceRetries)
	configures := b.Stats().Configures

	for i := 0; i < MaxSurfaceRetries; i++ {
		if err := r.Frame(nil); err != nil {
			t.Fatalf("frame %d: lost surface should be retried silently, got %v", i, err)
		}
	}
	if r.Frames() != 0 {
		t.Errorf("lost frames should be dropped, %d presented", r.Frames())
	}
	if err := r.Frame(nil); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if r.Frames() != 1 {
		t.Errorf("expected one presented frame, got %d", r.Frames())
	}
	if b.Stats().Configures-configures != MaxSurfaceRetries {
		t.Errorf("expected %d reconfigures, got %d", MaxSurfaceRetries, b.Stats().Configures-configures)
	}
}

func TestSurfaceLostExhausted(t *testing.T) {
	r, b := newRenderer(t, soft.Options{})
	b.LoseSurface(MaxSurfaceRetries + 1)

	var err error
	for i := 0; i <= MaxSurfaceRetries; i++ {
		err = r.Frame(nil)
	}
	if !errors.Is(err, ErrSurfaceRetriesExhausted) {
		t.Fatalf("expected ErrSurfaceRetriesExhausted, got %v", err)
	}
	if err := r.Frame(nil); err != nil {
		t.Errorf("a later frame should recover, got %v", err)
	}
}

func TestHiddenSurfaceNotDrawn(t *testing.T) {
	r, b := newRenderer(t, soft.Options{})
	loadWall(t, r)
	if err := r.SetVisible(0, false); err != nil {
		t.Fatal(err)
	}
	if err := r.Frame(nil); err != nil {
		t.Fatal(err)
	}
	if b.Stats().SurfaceDraws != 0 {
		t.Errorf("hidden surface was drawn")
	}
	if err := r.SetVisible(7, true); !errors.Is(err, scene.ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode, got %v", err)
	}
}

func TestMarkersAndDebugView(t *testing.T) {
	r, b := newRenderer(t, soft.Options{})
	loadWall(t, r)
	r.SetDebugView(pipeline.DebugNormals)
	r.SetColorSource(pipeline.SourceParcellation)
	marker := pipeline.Marker{Position: math.Vec3{}, Color: pipeline.PrimaryMarkerColor, Size: 4}
	if err := r.Frame([]pipeline.Marker{marker}); err != nil {
		t.Fatal(err)
	}
	if b.Stats().MarkerDraws != 1 {
		t.Errorf("expected a marker draw, got %d", b.Stats().MarkerDraws)
	}
	s := r.Settings()
	if s.DebugView != pipeline.DebugNormals || s.ColorSource != pipeline.SourceParcellation {
		t.Errorf("settings not applied: %+v", s)
	}
}

func TestSetLayoutInvalidatesPick(t *testing.T) {
	r, _ := newRenderer(t, soft.Options{PickLatency: 2})
	loadWall(t, r)
	r.Picker().Request(size/2, size/2, picking.Click)
	r.Picker().Poll()

	r.SetLayout(scene.Stacked)
	st := r.Picker().Poll()
	if st.State != picking.Failed || !errors.Is(st.Err, picking.ErrStale) {
		t.Errorf("expected stale pick after layout change, got %v %v", st.State, st.Err)
	}
	if r.Settings().Layout != scene.Stacked {
		t.Errorf("layout not recorded")
	}
}

func TestSetThresholdRejectsNaN(t *testing.T) {
	r, _ := newRenderer(t, soft.Options{})
	r.SetThreshold(math32.NaN())
	if r.Settings().Threshold != 0 {
		t.Errorf("NaN threshold should disable thresholding, got %f", r.Settings().Threshold)
	}
	r.SetThreshold(-1)
	if r.Settings().Threshold != 0 {
		t.Errorf("negative threshold should disable thresholding, got %f", r.Settings().Threshold)
	}
}
