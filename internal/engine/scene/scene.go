// Package scene holds the shallow scene graph: one node per loaded surface,
// each with a layout transform and a visibility flag.
package scene

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/cortexview/internal/surface"
	"github.com/Faultbox/cortexview/pkg/math"
)

// ErrUnknownNode is returned for ids with no node.
var ErrUnknownNode = errors.New("unknown scene node")

// LayoutSpacing scales the bounding radius into the layout offset.
const LayoutSpacing = 1.1

// Layout places the hemispheres relative to each other.
type Layout int

const (
	// Single keeps both surfaces in their native coordinates.
	Single Layout = iota
	// SideBySide spreads the hemispheres along the lateral (x) axis.
	SideBySide
	// Stacked spreads the hemispheres along the superior (z) axis.
	Stacked
)

func (l Layout) String() string {
	switch l {
	case Single:
		return "single"
	case SideBySide:
		return "side_by_side"
	case Stacked:
		return "stacked"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// Next cycles Single -> SideBySide -> Stacked -> Single.
func (l Layout) Next() Layout {
	return (l + 1) % 3
}

// ParseLayout returns the layout with the given name.
func ParseLayout(name string) (Layout, error) {
	for _, l := range []Layout{Single, SideBySide, Stacked} {
		if strings.EqualFold(name, l.String()) {
			return l, nil
		}
	}
	return Single, fmt.Errorf("unknown layout %q", name)
}

// Source is what the graph needs to know about a loaded surface.
type Source interface {
	ID() surface.ID
	Hemisphere() surface.Hemisphere
	Bounds() math.AABB
}

// Node is one drawable surface.
type Node struct {
	ID         surface.ID
	Hemisphere surface.Hemisphere
	// Bounds is the model-space bounding box.
	Bounds  math.AABB
	Model   math.Mat4
	Visible bool
}

// WorldBounds returns Bounds transformed by Model.
func (n *Node) WorldBounds() math.AABB {
	return n.Bounds.Transform(n.Model)
}

// Graph is the scene graph. It is rebuilt, never diffed, when the set of
// loaded surfaces changes.
type Graph struct {
	nodes  []*Node
	layout Layout
	hidden map[surface.ID]bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{hidden: make(map[surface.ID]bool)}
}

// Rebuild replaces every node with one per source, keeps visibility flags
// by id and re-applies the current layout.
func (g *Graph) Rebuild(sources []Source) {
	g.nodes = g.nodes[:0]
	for _, s := range sources {
		g.nodes = append(g.nodes, &Node{
			ID:         s.ID(),
			Hemisphere: s.Hemisphere(),
			Bounds:     s.Bounds(),
			Model:      math.Identity(),
			Visible:    !g.hidden[s.ID()],
		})
	}
	g.applyLayout()
}

// Layout returns the current layout.
func (g *Graph) Layout() Layout {
	return g.layout
}

// SetLayout repositions every node. Transforms are computed from scratch,
// so switching layouts any number of times never accumulates drift.
func (g *Graph) SetLayout(l Layout) {
	g.layout = l
	g.applyLayout()
}

func (g *Graph) applyLayout() {
	for _, n := range g.nodes {
		n.Model = g.placement(n)
	}
}

func (g *Graph) placement(n *Node) math.Mat4 {
	if g.layout == Single || len(g.nodes) < 2 {
		return math.Identity()
	}
	offset := n.Bounds.Radius() * LayoutSpacing
	// Left goes to -x in SideBySide and on top in Stacked.
	sign := float32(1)
	if n.Hemisphere == surface.Left {
		sign = -1
	}
	switch g.layout {
	case SideBySide:
		return math.Translate(sign*offset, 0, 0)
	case Stacked:
		return math.Translate(0, 0, -sign*offset)
	default:
		return math.Identity()
	}
}

// SetVisible toggles draw participation without touching resources.
func (g *Graph) SetVisible(id surface.ID, visible bool) error {
	n, ok := g.Node(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	n.Visible = visible
	g.hidden[id] = !visible
	return nil
}

// Node returns the node for id.
func (g *Graph) Node(id surface.ID) (*Node, bool) {
	for _, n := range g.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Nodes returns every node in surface id order.
func (g *Graph) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}

// VisibleNodes returns the nodes that participate in drawing.
func (g *Graph) VisibleNodes() []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Visible {
			out = append(out, n)
		}
	}
	return out
}

// Bounds returns the world bounds of all visible nodes.
func (g *Graph) Bounds() math.AABB {
	b := math.EmptyAABB()
	for _, n := range g.VisibleNodes() {
		b = b.Union(n.WorldBounds())
	}
	return b
}
