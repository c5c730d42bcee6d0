// Package input defines the viewer event stream. Events carry canvas-local
// pixel coordinates, origin top-left, and are plain data so they can cross
// the bridge as JSON.
package input

import (
	"fmt"
	"strings"
)

// Kind is the event type.
type Kind int

const (
	EventNone Kind = iota
	EventQuit
	EventResize
	EventKeyDown
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventWheel
	EventClick
)

var kindNames = map[Kind]string{
	EventNone:      "none",
	EventQuit:      "quit",
	EventResize:    "resize",
	EventKeyDown:   "key_down",
	EventMouseMove: "mouse_move",
	EventMouseDown: "mouse_down",
	EventMouseUp:   "mouse_up",
	EventWheel:     "wheel",
	EventClick:     "click",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	s, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown event kind %d", int(k))
	}
	return []byte(s), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", text)
}

// Button is a mouse button.
type Button uint8

const (
	ButtonLeft   Button = 1
	ButtonMiddle Button = 2
	ButtonRight  Button = 3
)

// Modifiers is a set of held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// Has reports whether every modifier in m is held.
func (m Modifiers) Has(mod Modifiers) bool {
	return m&mod == mod
}

// Event is one host input event.
type Event struct {
	Kind   Kind      `json:"kind"`
	X      float32   `json:"x,omitempty"`
	Y      float32   `json:"y,omitempty"`
	Button Button    `json:"button,omitempty"`
	Delta  float32   `json:"delta,omitempty"`
	Width  int       `json:"width,omitempty"`
	Height int       `json:"height,omitempty"`
	Key    string    `json:"key,omitempty"`
	Mods   Modifiers `json:"mods,omitempty"`
}

// KeyName normalizes a host key name: lower case, no surrounding space.
func KeyName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
