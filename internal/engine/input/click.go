package input

import "github.com/Faultbox/cortexview/pkg/math"

// ClickSlop is how far, in pixels, the pointer may travel between press and
// release for the pair to count as a click rather than a drag.
const ClickSlop = 4

// Clicker synthesizes Click events from left-button press and release
// pairs.
type Clicker struct {
	down  bool
	start math.Vec2
	moved bool
}

// Observe feeds one event and returns a Click when e completes one.
func (c *Clicker) Observe(e Event) (Event, bool) {
	switch e.Kind {
	case EventMouseDown:
		if e.Button == ButtonLeft {
			c.down, c.moved = true, false
			c.start = math.Vec2{X: e.X, Y: e.Y}
		}
	case EventMouseMove:
		if c.down && !c.within(e) {
			c.moved = true
		}
	case EventMouseUp:
		if e.Button != ButtonLeft || !c.down {
			break
		}
		c.down = false
		if c.moved || !c.within(e) {
			break
		}
		return Event{Kind: EventClick, X: e.X, Y: e.Y, Button: ButtonLeft, Mods: e.Mods}, true
	}
	return Event{}, false
}

func (c *Clicker) within(e Event) bool {
	return math.Vec2{X: e.X, Y: e.Y}.Sub(c.start).Length() <= ClickSlop
}
