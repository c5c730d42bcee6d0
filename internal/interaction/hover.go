package interaction

import "time"

// HoverState is the transient vertex under the pointer. Vertex and region
// are set and cleared together; lastHit lets hover decay run on its own
// cadence, independent of how often picks resolve.
type HoverState struct {
	active  bool
	vertex  VertexRef
	region  string
	lastHit time.Time
}

// Set records a pick hit at time now.
func (h *HoverState) Set(v VertexRef, region string, now time.Time) {
	h.active = true
	h.vertex = v
	h.region = region
	h.lastHit = now
}

// Clear forgets the hovered vertex.
func (h *HoverState) Clear() {
	*h = HoverState{}
}

// Active reports whether a vertex is hovered.
func (h *HoverState) Active() bool {
	return h.active
}

// Vertex returns the hovered vertex.
func (h *HoverState) Vertex() (VertexRef, bool) {
	return h.vertex, h.active
}

// Region returns the hovered region name, or "".
func (h *HoverState) Region() string {
	return h.region
}

// LastHit returns the time of the last hit.
func (h *HoverState) LastHit() time.Time {
	return h.lastHit
}

// ShouldDecay reports whether an active hover has gone without a hit for
// longer than decay. It is always false when nothing is hovered.
func (h *HoverState) ShouldDecay(now time.Time, decay time.Duration) bool {
	return h.active && now.Sub(h.lastHit) > decay
}
