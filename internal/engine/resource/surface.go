package resource

import (
	"github.com/Faultbox/cortexview/internal/engine/gpu"
	"github.com/Faultbox/cortexview/internal/surface"
	"github.com/Faultbox/cortexview/pkg/math"
)

type overlayBinding struct {
	overlay *surface.Overlay
	volume  int
	policy  surface.RangePolicy
	values  []float32
	lo, hi  float32
	handle  gpu.Handle
}

type parcellationBinding struct {
	parcellation *surface.Parcellation
	labels       gpu.Handle
	colors       gpu.Handle
}

// Surface is the manager's record of one loaded surface. Callers get a
// read-only view; all mutation goes through the Manager.
type Surface struct {
	id       surface.ID
	geometry *surface.Geometry
	bounds   math.AABB
	mesh     gpu.Handle

	overlay      *overlayBinding
	parcellation *parcellationBinding
}

// ID returns the surface slot.
func (s *Surface) ID() surface.ID { return s.id }

// Geometry returns the uploaded geometry. Callers must not modify it.
func (s *Surface) Geometry() *surface.Geometry { return s.geometry }

// Hemisphere returns the hemisphere tag.
func (s *Surface) Hemisphere() surface.Hemisphere { return s.geometry.Hemisphere }

// Bounds returns the model-space bounds.
func (s *Surface) Bounds() math.AABB { return s.bounds }

// VertexCount returns the number of vertices.
func (s *Surface) VertexCount() int { return s.geometry.VertexCount() }

// Mesh returns the mesh handle.
func (s *Surface) Mesh() gpu.Handle { return s.mesh }

// Scalars returns the overlay buffer handle, or 0 with no overlay bound.
func (s *Surface) Scalars() gpu.Handle {
	if s.overlay == nil {
		return 0
	}
	return s.overlay.handle
}

// Labels returns the label and color table handles, or zeros with no
// parcellation bound.
func (s *Surface) Labels() (labels, colors gpu.Handle) {
	if s.parcellation == nil {
		return 0, 0
	}
	return s.parcellation.labels, s.parcellation.colors
}

// HasOverlay reports whether an overlay is bound.
func (s *Surface) HasOverlay() bool { return s.overlay != nil }

// HasParcellation reports whether a parcellation is bound.
func (s *Surface) HasParcellation() bool { return s.parcellation != nil }

// Range returns the display range of the bound overlay.
func (s *Surface) Range() (lo, hi float32, ok bool) {
	if s.overlay == nil {
		return 0, 1, false
	}
	return s.overlay.lo, s.overlay.hi, true
}

// Volume returns the bound overlay volume index, or -1.
func (s *Surface) Volume() int {
	if s.overlay == nil {
		return -1
	}
	return s.overlay.volume
}

// VolumeCount returns the number of volumes in the bound overlay, or 0.
func (s *Surface) VolumeCount() int {
	if s.overlay == nil {
		return 0
	}
	return s.overlay.overlay.VolumeCount()
}

// RangePolicy returns the policy of the bound overlay.
func (s *Surface) RangePolicy() (surface.RangePolicy, bool) {
	if s.overlay == nil {
		return surface.RangePolicy{}, false
	}
	return s.overlay.policy, true
}

// OverlayValue returns the bound overlay value at vertex.
func (s *Surface) OverlayValue(vertex uint32) (float32, bool) {
	if s.overlay == nil || int(vertex) >= len(s.overlay.values) {
		return 0, false
	}
	return s.overlay.values[vertex], true
}

// RegionName returns the region of vertex, or "" when unlabeled or no
// parcellation is bound.
func (s *Surface) RegionName(vertex uint32) string {
	if s.parcellation == nil {
		return ""
	}
	return s.parcellation.parcellation.RegionName(vertex)
}

// RegionVertices returns every vertex labeled with region name.
func (s *Surface) RegionVertices(name string) []uint32 {
	if s.parcellation == nil || name == "" {
		return nil
	}
	p := s.parcellation.parcellation
	var out []uint32
	for v := range p.Labels {
		if p.RegionName(uint32(v)) == name {
			out = append(out, uint32(v))
		}
	}
	return out
}

// handles lists every backend resource owned by the surface.
func (s *Surface) handles() []gpu.Handle {
	out := []gpu.Handle{s.mesh}
	if s.overlay != nil {
		out = append(out, s.overlay.handle)
	}
	if s.parcellation != nil {
		out = append(out, s.parcellation.labels, s.parcellation.colors)
	}
	return out
}
