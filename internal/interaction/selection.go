// Package interaction holds the UI state built from pick results:
// the selection, the hover and the undo history. It has no GPU or
// event-loop dependencies.
package interaction

import (
	"slices"

	"github.com/Faultbox/cortexview/internal/surface"
)

// VertexRef identifies one vertex of one surface.
type VertexRef struct {
	Surface surface.ID `json:"surface"`
	Vertex  uint32     `json:"vertex"`
}

// Selection is a set of vertices and region names. The primary vertex is
// the most recently added vertex still in the set.
type Selection struct {
	// vertices is in insertion order; the last entry is primary.
	vertices []VertexRef
	regions  []string

	// untoggled is the vertex the last ToggleVertex removed and its index.
	// Any other change forgets it.
	untoggled    VertexRef
	untoggledAt  int
	hasUntoggled bool
}

// Primary returns the emphasized vertex.
func (s *Selection) Primary() (VertexRef, bool) {
	if len(s.vertices) == 0 {
		return VertexRef{}, false
	}
	return s.vertices[len(s.vertices)-1], true
}

// Vertices returns the selected vertices, oldest first.
func (s *Selection) Vertices() []VertexRef {
	return slices.Clone(s.vertices)
}

// Regions returns the selected region names in sorted order.
func (s *Selection) Regions() []string {
	out := slices.Clone(s.regions)
	slices.Sort(out)
	return out
}

// Contains reports whether v is selected.
func (s *Selection) Contains(v VertexRef) bool {
	return slices.Contains(s.vertices, v)
}

// HasRegion reports whether region name is selected.
func (s *Selection) HasRegion(name string) bool {
	return slices.Contains(s.regions, name)
}

// Empty reports whether nothing is selected.
func (s *Selection) Empty() bool {
	return len(s.vertices) == 0 && len(s.regions) == 0
}

// SetSingle replaces the whole selection, regions included, with v.
func (s *Selection) SetSingle(v VertexRef) {
	s.hasUntoggled = false
	s.vertices = append(s.vertices[:0], v)
	s.regions = s.regions[:0]
}

// AddVertex adds v and makes it primary. Adding a member again only
// moves it to primary.
func (s *Selection) AddVertex(v VertexRef) {
	s.hasUntoggled = false
	s.remove(v)
	s.vertices = append(s.vertices, v)
}

// RemoveVertex removes v. If v was primary, the most recently added
// remaining vertex becomes primary.
func (s *Selection) RemoveVertex(v VertexRef) bool {
	s.hasUntoggled = false
	return s.remove(v) >= 0
}

// ToggleVertex removes v when selected and adds it otherwise. It reports
// whether v is selected afterwards. Toggling the same vertex twice in a
// row restores its position, so a removed non-primary member comes back
// as non-primary.
func (s *Selection) ToggleVertex(v VertexRef) bool {
	if i := s.remove(v); i >= 0 {
		s.untoggled, s.untoggledAt, s.hasUntoggled = v, i, true
		return false
	}
	if s.hasUntoggled && s.untoggled == v && s.untoggledAt <= len(s.vertices) {
		s.vertices = slices.Insert(s.vertices, s.untoggledAt, v)
	} else {
		s.vertices = append(s.vertices, v)
	}
	s.hasUntoggled = false
	return true
}

// remove deletes v and returns its former index, or -1.
func (s *Selection) remove(v VertexRef) int {
	i := slices.Index(s.vertices, v)
	if i >= 0 {
		s.vertices = slices.Delete(s.vertices, i, i+1)
	}
	return i
}

// AddRegion selects a region by name. Empty names are ignored.
func (s *Selection) AddRegion(name string) {
	if name == "" || s.HasRegion(name) {
		return
	}
	s.hasUntoggled = false
	s.regions = append(s.regions, name)
}

// RemoveRegion deselects a region.
func (s *Selection) RemoveRegion(name string) bool {
	i := slices.Index(s.regions, name)
	if i < 0 {
		return false
	}
	s.hasUntoggled = false
	s.regions = slices.Delete(s.regions, i, i+1)
	return true
}

// ToggleRegion flips a region and reports whether it is selected
// afterwards.
func (s *Selection) ToggleRegion(name string) bool {
	if s.RemoveRegion(name) {
		return false
	}
	s.AddRegion(name)
	return s.HasRegion(name)
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.hasUntoggled = false
	s.vertices = s.vertices[:0]
	s.regions = s.regions[:0]
}

// Clone returns an independent copy. The copy does not remember the last
// toggle.
func (s *Selection) Clone() Selection {
	return Selection{vertices: slices.Clone(s.vertices), regions: slices.Clone(s.regions)}
}

// Equal reports whether both selections hold the same vertices in the
// same order and the same regions.
func (s *Selection) Equal(o *Selection) bool {
	return slices.Equal(s.vertices, o.vertices) && slices.Equal(s.Regions(), o.Regions())
}
