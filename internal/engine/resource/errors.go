package resource

import (
	"errors"
	"fmt"

	"github.com/Faultbox/cortexview/internal/surface"
)

// Binding errors. A failed bind leaves the previously bound state intact.
var (
	ErrUnknownSurface      = errors.New("unknown surface")
	ErrVertexCountMismatch = errors.New("vertex count mismatch")
	ErrNoOverlay           = errors.New("no overlay bound")
	ErrSurfaceSlot         = errors.New("surface id out of range")
)

// VertexCountMismatchError reports data whose length disagrees with the
// bound surface.
type VertexCountMismatchError struct {
	Surface surface.ID
	What    string
	Want    int
	Got     int
}

func (e *VertexCountMismatchError) Error() string {
	return fmt.Sprintf("surface %d: %s has %d values, surface has %d vertices", e.Surface, e.What, e.Got, e.Want)
}

// Is matches ErrVertexCountMismatch.
func (e *VertexCountMismatchError) Is(target error) bool {
	return target == ErrVertexCountMismatch
}
