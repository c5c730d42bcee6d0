package interaction

import "slices"

// History is a linear undo stack: Apply discards the redo branch.
type History[T any] struct {
	past    []T
	present T
	future  []T
	limit   int
}

// NewHistory starts a history at initial. A positive limit caps how many
// undo steps are kept; the oldest are dropped first.
func NewHistory[T any](initial T, limit int) *History[T] {
	return &History[T]{present: initial, limit: limit}
}

// Present returns the current value.
func (h *History[T]) Present() T {
	return h.present
}

// Apply makes next the present and clears the redo stack.
func (h *History[T]) Apply(next T) {
	h.past = append(h.past, h.present)
	if h.limit > 0 && len(h.past) > h.limit {
		h.past = slices.Delete(h.past, 0, len(h.past)-h.limit)
	}
	h.present = next
	h.future = h.future[:0]
}

// Undo steps back. It reports whether anything changed.
func (h *History[T]) Undo() bool {
	if len(h.past) == 0 {
		return false
	}
	h.future = append(h.future, h.present)
	h.present = h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	return true
}

// Redo steps forward. It reports whether anything changed.
func (h *History[T]) Redo() bool {
	if len(h.future) == 0 {
		return false
	}
	h.past = append(h.past, h.present)
	h.present = h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	return true
}

// CanUndo reports whether Undo would change anything.
func (h *History[T]) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether Redo would change anything.
func (h *History[T]) CanRedo() bool { return len(h.future) > 0 }

// Depth returns the number of undo and redo steps available.
func (h *History[T]) Depth() (undo, redo int) {
	return len(h.past), len(h.future)
}
