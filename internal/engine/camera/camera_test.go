package camera

import (
	"errors"
	"math/rand"
	"net/url"
	"testing"

	"github.com/chewxy/math32"

	"github.com/Faultbox/cortexview/internal/surface"
	"github.com/Faultbox/cortexview/pkg/math"
)

const eps = 1e-3

func near(a, b float32) bool {
	return math32.Abs(a-b) < eps
}

func nearVec(a, b math.Vec3) bool {
	return near(a.X, b.X) && near(a.Y, b.Y) && near(a.Z, b.Z)
}

func TestNewOrbitCamera(t *testing.T) {
	c := NewOrbitCamera()
	if c.Distance != 200 {
		t.Errorf("expected distance 200, got %f", c.Distance)
	}
	if !nearVec(c.Eye(), math.Vec3{X: 200}) {
		t.Errorf("default eye should be on +x, got %+v", c.Eye())
	}
}

func TestEyeSphericalFormula(t *testing.T) {
	c := NewOrbitCamera()
	c.Target = math.Vec3{X: 1, Y: 2, Z: 3}
	c.Distance = 100
	c.Theta = math32.Pi / 2
	c.Phi = 0
	if !nearVec(c.Eye(), math.Vec3{X: 1, Y: 102, Z: 3}) {
		t.Errorf("theta=pi/2 should look from +y, got %+v", c.Eye())
	}
	c.Theta = 0
	c.Phi = 1
	want := math.Vec3{X: 1 + 100*math32.Cos(1), Y: 2, Z: 3 + 100*math32.Sin(1)}
	if !nearVec(c.Eye(), want) {
		t.Errorf("expected %+v, got %+v", want, c.Eye())
	}
}

func TestViewMatrixCentresTarget(t *testing.T) {
	c := NewOrbitCamera()
	c.Target = math.Vec3{X: 5, Y: -3, Z: 10}
	c.Theta, c.Phi = 0.7, 0.4
	got := c.ViewMatrix().TransformVec3(c.Target)
	if !nearVec(got, math.Vec3{Z: -c.Distance}) {
		t.Errorf("target should land on -z at distance, got %+v", got)
	}

	// Superior stays up on screen.
	c.Phi = 0
	up := c.ViewMatrix().TransformVec3(c.Target.Add(math.Vec3{Z: 10}))
	if up.Y <= 0 {
		t.Errorf("+z should project upwards, got %+v", up)
	}
}

func TestDragRotates(t *testing.T) {
	c := NewOrbitCamera()
	c.Drag(10, 10)
	if c.Theta != 0 || c.Phi != 0 {
		t.Error("Drag without BeginDrag should do nothing")
	}

	c.BeginDrag(100, 100)
	c.Drag(120, 90)
	if !near(c.Theta, 20*c.DragSensitivity) {
		t.Errorf("theta: expected %f, got %f", 20*c.DragSensitivity, c.Theta)
	}
	if !near(c.Phi, -10*c.DragSensitivity) {
		t.Errorf("phi: expected %f, got %f", -10*c.DragSensitivity, c.Phi)
	}
	c.EndDrag()
	if c.Dragging() {
		t.Error("EndDrag should stop dragging")
	}
	theta := c.Theta
	c.Drag(500, 500)
	if c.Theta != theta {
		t.Error("Drag after EndDrag should do nothing")
	}
}

func TestWheelScalesDistance(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleWheel(1)
	if !near(c.Distance, 220) {
		t.Errorf("expected 220, got %f", c.Distance)
	}
	c.HandleWheel(-1)
	if !near(c.Distance, 198) {
		t.Errorf("expected 198, got %f", c.Distance)
	}
}

func TestClampsHoldUnderExtremeInput(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleWheel(1e6)
	if c.Distance != MaxDistance {
		t.Errorf("expected max distance, got %f", c.Distance)
	}
	c.HandleWheel(-1e6)
	if c.Distance != MinDistance {
		t.Errorf("expected min distance, got %f", c.Distance)
	}
	c.HandleDrag(0, 1e9)
	if c.Phi != MaxPhi {
		t.Errorf("expected max phi, got %f", c.Phi)
	}
	c.HandleDrag(0, -1e9)
	if c.Phi != MinPhi {
		t.Errorf("expected min phi, got %f", c.Phi)
	}
}

func TestNonFiniteInputIgnored(t *testing.T) {
	c := NewOrbitCamera()
	before := c.State()
	c.HandleWheel(math32.NaN())
	c.HandleWheel(math32.Inf(1))
	c.HandleDrag(math32.NaN(), 1)
	c.HandleDrag(1, math32.Inf(-1))
	if c.State() != before {
		t.Errorf("non-finite input changed state: %+v -> %+v", before, c.State())
	}
}

func TestClampsRandomSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := NewOrbitCamera()
	for i := 0; i < 10000; i++ {
		switch rng.Intn(3) {
		case 0:
			c.HandleWheel(float32(rng.NormFloat64() * 20))
		case 1:
			c.HandleDrag(float32(rng.NormFloat64()*500), float32(rng.NormFloat64()*500))
		case 2:
			c.ApplyPreset(Presets()[rng.Intn(len(Presets()))], surface.Hemisphere(rng.Intn(2)))
		}
		if c.Distance < MinDistance || c.Distance > MaxDistance {
			t.Fatalf("step %d: distance %f out of range", i, c.Distance)
		}
		if c.Phi < MinPhi || c.Phi > MaxPhi {
			t.Fatalf("step %d: phi %f out of range", i, c.Phi)
		}
	}
}

func TestPresets(t *testing.T) {
	tests := []struct {
		preset Preset
		hemi   surface.Hemisphere
		dir    math.Vec3 // expected eye direction from target
	}{
		{Lateral, surface.Left, math.Vec3{X: -1}},
		{Lateral, surface.Right, math.Vec3{X: 1}},
		{Medial, surface.Left, math.Vec3{X: 1}},
		{Medial, surface.Right, math.Vec3{X: -1}},
		{Anterior, surface.Left, math.Vec3{Y: 1}},
		{Posterior, surface.Right, math.Vec3{Y: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.preset.String()+"_"+tt.hemi.String(), func(t *testing.T) {
			c := NewOrbitCamera()
			c.Distance = 100
			c.HandleDrag(37, 12)
			c.ApplyPreset(tt.preset, tt.hemi)
			dir := c.Eye().Sub(c.Target).Scale(1.0 / c.Distance)
			if !nearVec(dir, tt.dir) {
				t.Errorf("expected eye direction %+v, got %+v", tt.dir, dir)
			}
		})
	}

	c := NewOrbitCamera()
	c.ApplyPreset(Superior, surface.Left)
	if c.Phi != MaxPhi || c.Eye().Z <= 0 {
		t.Errorf("superior should look from above, phi=%f eye=%+v", c.Phi, c.Eye())
	}
	c.ApplyPreset(Inferior, surface.Left)
	if c.Phi != MinPhi || c.Eye().Z >= 0 {
		t.Errorf("inferior should look from below, phi=%f eye=%+v", c.Phi, c.Eye())
	}
}

func TestFitToBounds(t *testing.T) {
	c := NewOrbitCamera()
	c.FitToBounds(math.AABB{Min: math.Vec3{X: -70, Y: -100, Z: -50}, Max: math.Vec3{X: -10, Y: 60, Z: 70}})
	if !nearVec(c.Target, math.Vec3{X: -40, Y: -20, Z: 10}) {
		t.Errorf("target should be the box centre, got %+v", c.Target)
	}
	if c.Distance < MinDistance || c.Distance > MaxDistance {
		t.Errorf("distance %f out of range", c.Distance)
	}

	c.FitToBounds(math.AABB{Max: math.Vec3{X: 1, Y: 1, Z: 1}})
	if c.Distance != MinDistance {
		t.Errorf("tiny box should clamp to min distance, got %f", c.Distance)
	}

	before := c.State()
	c.FitToBounds(math.EmptyAABB())
	if c.State() != before {
		t.Error("empty bounds should not move the camera")
	}
}

func TestStateRestoreClamps(t *testing.T) {
	c := NewOrbitCamera()
	c.Restore(State{Distance: 9999, Azimuth: 4, Elevation: -3, Target: math.Vec3{X: 1}})
	if c.Distance != MaxDistance || c.Phi != MinPhi || c.Theta != 4 || c.Target.X != 1 {
		t.Errorf("unexpected restored camera %+v", c.State())
	}

	c.Restore(State{Distance: math32.NaN(), Azimuth: 1, Elevation: 0.5})
	if c.Distance != MaxDistance {
		t.Errorf("NaN distance should be ignored, got %f", c.Distance)
	}
}

func TestStateURLRoundTrip(t *testing.T) {
	s := State{Distance: 123.5, Azimuth: -2.25, Elevation: 0.75, Target: math.Vec3{X: -30, Y: 12.5, Z: 4}}
	q := s.Encode()
	parsed, err := url.ParseQuery(q.Encode())
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeState(parsed)
	if err != nil {
		t.Fatal(err)
	}
	if got != s {
		t.Errorf("expected %+v, got %+v", s, got)
	}
}

func TestDecodeStateErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing distance", "azimuth=1&elevation=0"},
		{"bad number", "distance=abc&azimuth=1&elevation=0"},
		{"infinite", "distance=Inf&azimuth=1&elevation=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			if _, err := DecodeState(q); !errors.Is(err, ErrInvalidState) {
				t.Errorf("expected ErrInvalidState, got %v", err)
			}
		})
	}

	q, _ := url.ParseQuery("distance=100&azimuth=1&elevation=0")
	s, err := DecodeState(q)
	if err != nil || s.Target != (math.Vec3{}) {
		t.Errorf("target should default to origin, got %+v %v", s, err)
	}
}
