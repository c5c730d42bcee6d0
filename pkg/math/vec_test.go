package math

import (
	"math"
	"testing"
)

func TestVec2Sub(t *testing.T) {
	got := Vec2{4, 6}.Sub(Vec2{1, 2})
	want := Vec2{3, 4}
	if got != want {
		t.Errorf("Vec2.Sub() = %v, want %v", got, want)
	}
	if l := got.Length(); l != 5 {
		t.Errorf("Vec2.Length() = %v, want 5", l)
	}
}

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3IsFinite(t *testing.T) {
	if !(Vec3{1, 2, 3}).IsFinite() {
		t.Error("finite vector reported as non-finite")
	}
	if (Vec3{float32(math.NaN()), 0, 0}).IsFinite() {
		t.Error("NaN component not detected")
	}
	if (Vec3{0, float32(math.Inf(1)), 0}).IsFinite() {
		t.Error("Inf component not detected")
	}
}

func TestAABB(t *testing.T) {
	b := EmptyAABB()
	if !b.IsEmpty() {
		t.Fatal("EmptyAABB should be empty")
	}
	b = b.Extend(Vec3{-1, -2, -3}).Extend(Vec3{1, 2, 3})
	if b.Center() != (Vec3{}) {
		t.Errorf("Center() = %v, want origin", b.Center())
	}
	want := float32(math.Sqrt(4+16+36)) / 2
	if d := b.Radius() - want; d > 1e-5 || d < -1e-5 {
		t.Errorf("Radius() = %v, want %v", b.Radius(), want)
	}

	moved := b.Transform(Translate(10, 0, 0))
	if moved.Min.X != 9 || moved.Max.X != 11 {
		t.Errorf("Transform x-range = [%v, %v], want [9, 11]", moved.Min.X, moved.Max.X)
	}

	u := EmptyAABB().Union(b)
	if u != b {
		t.Errorf("Union with empty = %v, want %v", u, b)
	}
}
