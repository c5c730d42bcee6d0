package viewer

import (
	"fmt"

	"github.com/Faultbox/cortexview/internal/engine/camera"
	"github.com/Faultbox/cortexview/internal/engine/picking"
	"github.com/Faultbox/cortexview/internal/interaction"
	"github.com/Faultbox/cortexview/internal/surface"
	"github.com/Faultbox/cortexview/pkg/math"
)

// ResultKind says what an EventResult reports.
type ResultKind int

const (
	// ResultPick is a resolved click, hit or miss.
	ResultPick ResultKind = iota
	// ResultHover is a new vertex under the pointer.
	ResultHover
	// ResultHoverCleared means the hover decayed or left the surface.
	ResultHoverCleared
	// ResultCamera carries the camera after a drag, zoom or preset.
	ResultCamera
	// ResultSelection carries the selection after it changed.
	ResultSelection
	// ResultCapture carries the path of a saved frame.
	ResultCapture
	// ResultError reports a failed host command.
	ResultError
)

var resultNames = [...]string{"pick", "hover", "hover_cleared", "camera", "selection", "capture", "error"}

func (k ResultKind) String() string {
	if k < 0 || int(k) >= len(resultNames) {
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
	return resultNames[k]
}

// MarshalText encodes the kind by name.
func (k ResultKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *ResultKind) UnmarshalText(text []byte) error {
	for i, name := range resultNames {
		if name == string(text) {
			*k = ResultKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown result kind %q", text)
}

// PickInfo is a pick result in host form. Optional values are pointers so
// a miss encodes as an object with only "hit": false.
type PickInfo struct {
	Hit      bool        `json:"hit"`
	Surface  *surface.ID `json:"surface,omitempty"`
	Vertex   *uint32     `json:"vertex,omitempty"`
	Position *math.Vec3  `json:"position,omitempty"`
	Value    *float32    `json:"value,omitempty"`
	Region   string      `json:"region,omitempty"`
}

func pickInfo(r picking.Result) *PickInfo {
	info := &PickInfo{Hit: r.Hit(), Region: r.Region}
	if r.HasSurface {
		id := r.Surface
		info.Surface = &id
	}
	if r.HasVertex {
		v := r.Vertex
		info.Vertex = &v
	}
	if r.HasPosition {
		p := r.Position
		info.Position = &p
	}
	if r.HasValue {
		v := r.Value
		info.Value = &v
	}
	return info
}

// SelectionInfo is the selection in host form.
type SelectionInfo struct {
	Primary  *interaction.VertexRef  `json:"primary,omitempty"`
	Vertices []interaction.VertexRef `json:"vertices"`
	Regions  []string                `json:"regions"`
}

func selectionInfo(s *interaction.Selection) *SelectionInfo {
	info := &SelectionInfo{Vertices: s.Vertices(), Regions: s.Regions()}
	if p, ok := s.Primary(); ok {
		info.Primary = &p
	}
	if info.Vertices == nil {
		info.Vertices = []interaction.VertexRef{}
	}
	if info.Regions == nil {
		info.Regions = []string{}
	}
	return info
}

// EventResult is what the viewer reports back to the host.
type EventResult struct {
	Kind      ResultKind     `json:"kind"`
	Pick      *PickInfo      `json:"pick,omitempty"`
	Camera    *camera.State  `json:"camera,omitempty"`
	Selection *SelectionInfo `json:"selection,omitempty"`
	Message   string         `json:"message,omitempty"`
}
