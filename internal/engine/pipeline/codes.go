// Package pipeline defines the surface, picking and marker pipelines: the
// uniform block shared with the GPU programs, the fixed u32 mode codes, and
// CPU versions of the fragment programs used by the software backend.
package pipeline

import "fmt"

// LayoutVersion identifies the uniform layout and mode codes below. Bump it
// whenever a code is renumbered or a uniform changes meaning.
const LayoutVersion = 1

// ColorSource selects which bound data the surface pipeline shades with.
type ColorSource uint32

const (
	SourceOverlay      ColorSource = 0
	SourceParcellation ColorSource = 1
)

func (c ColorSource) String() string {
	switch c {
	case SourceOverlay:
		return "overlay"
	case SourceParcellation:
		return "parcellation"
	default:
		return fmt.Sprintf("color_source(%d)", uint32(c))
	}
}

// Toggle switches between overlay and parcellation shading.
func (c ColorSource) Toggle() ColorSource {
	if c == SourceOverlay {
		return SourceParcellation
	}
	return SourceOverlay
}

// ParcellationDisplay controls how region labels are drawn.
type ParcellationDisplay uint32

const (
	DisplayFill         ParcellationDisplay = 0
	DisplayEdges        ParcellationDisplay = 1
	DisplayFillAndEdges ParcellationDisplay = 2
)

func (d ParcellationDisplay) String() string {
	switch d {
	case DisplayFill:
		return "fill"
	case DisplayEdges:
		return "edges"
	case DisplayFillAndEdges:
		return "fill_and_edges"
	default:
		return fmt.Sprintf("parcellation_display(%d)", uint32(d))
	}
}

// Next cycles Fill -> Edges -> FillAndEdges -> Fill.
func (d ParcellationDisplay) Next() ParcellationDisplay {
	return (d + 1) % 3
}

// DebugView overrides shading for diagnostics.
type DebugView uint32

const (
	DebugNone       DebugView = 0
	DebugNormals    DebugView = 1
	DebugRawOverlay DebugView = 2
	DebugVertexID   DebugView = 3
)

func (v DebugView) String() string {
	switch v {
	case DebugNone:
		return "none"
	case DebugNormals:
		return "normals"
	case DebugRawOverlay:
		return "raw_overlay"
	case DebugVertexID:
		return "vertex_id"
	default:
		return fmt.Sprintf("debug_view(%d)", uint32(v))
	}
}

// Next cycles through the debug views, wrapping back to None.
func (v DebugView) Next() DebugView {
	return (v + 1) % 4
}

// Code is one entry of the mode code table.
type Code struct {
	Enum    string
	Variant string
	Value   uint32
}

// Codes returns every mode variant with its wire value.
func Codes() []Code {
	var out []Code
	for _, c := range []ColorSource{SourceOverlay, SourceParcellation} {
		out = append(out, Code{"color_source", c.String(), uint32(c)})
	}
	for _, d := range []ParcellationDisplay{DisplayFill, DisplayEdges, DisplayFillAndEdges} {
		out = append(out, Code{"parcellation_display", d.String(), uint32(d)})
	}
	for _, v := range []DebugView{DebugNone, DebugNormals, DebugRawOverlay, DebugVertexID} {
		out = append(out, Code{"debug_view", v.String(), uint32(v)})
	}
	return out
}
