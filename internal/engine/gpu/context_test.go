package gpu_test

import (
	"errors"
	"testing"

	"github.com/Faultbox/cortexview/internal/engine/gpu"
	"github.com/Faultbox/cortexview/internal/engine/gpu/soft"
)

func TestNewContextFailure(t *testing.T) {
	cause := errors.New("no adapter")
	_, err := gpu.NewContext(soft.New(soft.Options{FailInit: cause}), 64, 64)
	if !errors.Is(err, gpu.ErrContextCreation) {
		t.Fatalf("expected ErrContextCreation, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be wrapped, got %v", err)
	}
	var ce *gpu.ContextError
	if !errors.As(err, &ce) || ce.Op != "init" {
		t.Errorf("expected *ContextError with op init, got %v", err)
	}
}

func TestNewContextNilBackend(t *testing.T) {
	if _, err := gpu.NewContext(nil, 1, 1); !errors.Is(err, gpu.ErrContextCreation) {
		t.Errorf("expected ErrContextCreation, got %v", err)
	}
}

func TestResizeIdempotent(t *testing.T) {
	b := soft.New(soft.Options{})
	ctx, err := gpu.NewContext(b, 64, 32)
	if err != nil {
		t.Fatal(err)
	}
	defer ctx.Close()

	if ctx.Aspect() != 2 {
		t.Errorf("expected aspect 2, got %f", ctx.Aspect())
	}

	for i := 0; i < 3; i++ {
		if err := ctx.Resize(64, 32); err != nil {
			t.Fatal(err)
		}
	}
	if ctx.Generation() != 0 || b.Stats().Configures != 0 {
		t.Errorf("same-size resize should be a no-op, generation=%d configures=%d", ctx.Generation(), b.Stats().Configures)
	}

	if err := ctx.Resize(128, 32); err != nil {
		t.Fatal(err)
	}
	if ctx.Generation() != 1 || b.Stats().Configures != 1 {
		t.Errorf("expected one reconfigure, generation=%d configures=%d", ctx.Generation(), b.Stats().Configures)
	}
}

func TestResizeClampsZero(t *testing.T) {
	ctx, err := gpu.NewContext(soft.New(soft.Options{}), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if w, h := ctx.Size(); w != 1 || h != 1 {
		t.Errorf("expected 1x1, got %dx%d", w, h)
	}
	if err := ctx.Resize(0, -5); err != nil {
		t.Fatal(err)
	}
	if ctx.Generation() != 0 {
		t.Error("clamped resize to the current size should be a no-op")
	}
}
