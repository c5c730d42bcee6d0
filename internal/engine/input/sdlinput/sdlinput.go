// Package sdlinput translates SDL2 events into viewer events.
package sdlinput

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/cortexview/internal/engine/input"
)

// Input polls SDL and converts its events.
type Input struct {
	events  []input.Event
	clicker input.Clicker
	// scale converts window points to drawable pixels on HiDPI displays.
	scale float32
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events: make([]input.Event, 0, 16),
		scale:  1,
	}
}

// SetScale sets the drawable-to-window size ratio.
func (i *Input) SetScale(scale float32) {
	if scale > 0 {
		i.scale = scale
	}
}

// Poll drains the SDL queue. quit is true once the window was closed.
func (i *Input) Poll() (events []input.Event, quit bool) {
	i.events = i.events[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, input.Event{Kind: input.EventQuit})
			quit = true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				i.events = append(i.events, input.Event{
					Kind:   input.EventResize,
					Width:  int(float32(e.Data1) * i.scale),
					Height: int(float32(e.Data2) * i.scale),
				})
			}

		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN && e.Repeat == 0 {
				i.events = append(i.events, input.Event{
					Kind: input.EventKeyDown,
					Key:  input.KeyName(sdl.GetKeyName(e.Keysym.Sym)),
					Mods: modifiers(sdl.Keymod(e.Keysym.Mod)),
				})
			}

		case *sdl.MouseMotionEvent:
			i.push(input.Event{
				Kind: input.EventMouseMove,
				X:    float32(e.X) * i.scale,
				Y:    float32(e.Y) * i.scale,
			})

		case *sdl.MouseButtonEvent:
			kind := input.EventMouseUp
			if e.Type == sdl.MOUSEBUTTONDOWN {
				kind = input.EventMouseDown
			}
			i.push(input.Event{
				Kind:   kind,
				X:      float32(e.X) * i.scale,
				Y:      float32(e.Y) * i.scale,
				Button: input.Button(e.Button),
			})

		case *sdl.MouseWheelEvent:
			// Scrolling up zooms in, which shrinks the orbit distance.
			i.events = append(i.events, input.Event{
				Kind:  input.EventWheel,
				Delta: -float32(e.Y),
			})
		}
	}

	return i.events, quit
}

// push appends e and the click it completes, if any.
func (i *Input) push(e input.Event) {
	e.Mods |= modifiers(sdl.GetModState())
	i.events = append(i.events, e)
	if click, ok := i.clicker.Observe(e); ok {
		i.events = append(i.events, click)
	}
}

func modifiers(mod sdl.Keymod) input.Modifiers {
	var m input.Modifiers
	if mod&sdl.KMOD_SHIFT != 0 {
		m |= input.ModShift
	}
	if mod&sdl.KMOD_CTRL != 0 {
		m |= input.ModCtrl
	}
	if mod&sdl.KMOD_ALT != 0 {
		m |= input.ModAlt
	}
	if mod&sdl.KMOD_GUI != 0 {
		m |= input.ModMeta
	}
	return m
}
