// Package viewer is the render loop. A Viewer owns the renderer outright:
// hosts queue events with Post from any goroutine and the loop drains them
// at the top of each Tick, then polls picks, decays hover and draws.
package viewer

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/cortexview/internal/config"
	"github.com/Faultbox/cortexview/internal/engine/camera"
	"github.com/Faultbox/cortexview/internal/engine/colormap"
	"github.com/Faultbox/cortexview/internal/engine/debug"
	"github.com/Faultbox/cortexview/internal/engine/input"
	"github.com/Faultbox/cortexview/internal/engine/picking"
	"github.com/Faultbox/cortexview/internal/engine/pipeline"
	"github.com/Faultbox/cortexview/internal/engine/renderer"
	"github.com/Faultbox/cortexview/internal/interaction"
	"github.com/Faultbox/cortexview/internal/logger"
	"github.com/Faultbox/cortexview/internal/surface"
)

// ErrFrameSkipped is returned by Tick when another Tick is still running.
// Nothing is drained or drawn; queued events wait for the next tick.
var ErrFrameSkipped = errors.New("frame skipped: tick already in progress")

// Marker sizes in pixels.
const (
	primaryMarkerSize  = 10
	selectedMarkerSize = 7
	hoverMarkerSize    = 6
	regionMarkerSize   = 3
	boundsMarkerSteps  = 8
	// regionMarkerLimit caps the markers drawn per selected region and
	// surface; larger regions are subsampled.
	regionMarkerLimit = 64
)

// Options tune the render loop.
type Options struct {
	// HoverDecay clears the hover when no hit refreshed it for this long.
	HoverDecay time.Duration
	// HoverThrottle is the minimum spacing between hover picks.
	HoverThrottle time.Duration
	HistoryLimit  int
	FPSLimit      int
	// Capture saves frames on the capture key. Nil disables capture.
	Capture *debug.Capture
	// ResultBuffer is the capacity of the Results channel.
	ResultBuffer int
}

// DefaultOptions returns the options used when no config is given.
func DefaultOptions() Options {
	return Options{
		HoverDecay:    400 * time.Millisecond,
		HoverThrottle: 50 * time.Millisecond,
		HistoryLimit:  100,
		FPSLimit:      60,
		ResultBuffer:  64,
	}
}

// OptionsFromConfig maps the loaded config onto viewer options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.HoverDecay = cfg.Interaction.HoverDecay
	opts.HoverThrottle = cfg.Interaction.HoverThrottle
	opts.HistoryLimit = cfg.Interaction.HistoryLimit
	if cfg.Graphics.FPSLimit > 0 {
		opts.FPSLimit = cfg.Graphics.FPSLimit
	}
	if cfg.Capture.OutputDir != "" {
		opts.Capture = debug.NewCapture(cfg.Capture.OutputDir, cfg.Capture.Prefix)
	}
	return opts
}

type clickRequest struct {
	mods    input.Modifiers
	retried bool
}

// Viewer is the render loop around one renderer.
type Viewer struct {
	opts Options
	r    *renderer.Renderer

	mu     sync.Mutex
	queue  []input.Event
	camera camera.State

	ticking atomic.Bool
	quit    atomic.Bool

	selection interaction.Selection
	history   *interaction.History[interaction.Selection]
	hover     interaction.HoverState

	clicks        map[uint64]clickRequest
	lastHoverPick time.Time
	showBounds    bool
	wantCapture   bool

	results chan EventResult
	log     *zap.Logger
}

// New creates a viewer that takes ownership of r.
func New(r *renderer.Renderer, opts Options) *Viewer {
	if opts.ResultBuffer <= 0 {
		opts.ResultBuffer = DefaultOptions().ResultBuffer
	}
	if opts.FPSLimit <= 0 {
		opts.FPSLimit = DefaultOptions().FPSLimit
	}
	v := &Viewer{
		opts:    opts,
		r:       r,
		history: interaction.NewHistory(interaction.Selection{}, opts.HistoryLimit),
		clicks:  make(map[uint64]clickRequest),
		results: make(chan EventResult, opts.ResultBuffer),
		log:     logger.Named("viewer"),
	}
	v.camera = r.Camera().State()
	return v
}

// Renderer returns the owned renderer. It must only be used from the
// goroutine that calls Tick.
func (v *Viewer) Renderer() *renderer.Renderer { return v.r }

// Results delivers pick, hover, camera and selection updates. Results are
// dropped when the channel is full.
func (v *Viewer) Results() <-chan EventResult { return v.results }

// Post queues a host event for the next tick. Safe for concurrent use.
func (v *Viewer) Post(e input.Event) {
	v.mu.Lock()
	v.queue = append(v.queue, e)
	v.mu.Unlock()
}

// CameraState returns the camera as of the last tick. Safe for concurrent
// use.
func (v *Viewer) CameraState() camera.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.camera
}

// Quitting reports whether a quit event was handled.
func (v *Viewer) Quitting() bool { return v.quit.Load() }

// Selection returns a copy of the current selection.
func (v *Viewer) Selection() interaction.Selection { return v.selection.Clone() }

// Hover returns the hover state.
func (v *Viewer) Hover() interaction.HoverState { return v.hover }

// Tick runs one frame: drain events, poll the pick engine, decay hover,
// draw. A Tick that starts while another is running returns
// ErrFrameSkipped without touching any state.
func (v *Viewer) Tick(now time.Time) error {
	if !v.ticking.CompareAndSwap(false, true) {
		return ErrFrameSkipped
	}
	defer v.ticking.Store(false)

	v.mu.Lock()
	events := v.queue
	v.queue = nil
	v.mu.Unlock()

	for _, e := range events {
		v.handle(e, now)
	}
	v.pollPicks(now)

	if v.hover.ShouldDecay(now, v.opts.HoverDecay) {
		v.hover.Clear()
		v.emit(EventResult{Kind: ResultHoverCleared})
	}

	if err := v.r.Frame(v.markers()); err != nil {
		return err
	}
	if v.wantCapture {
		v.wantCapture = false
		v.capture()
	}

	state := v.r.Camera().State()
	v.mu.Lock()
	v.camera = state
	v.mu.Unlock()
	return nil
}

func (v *Viewer) handle(e input.Event, now time.Time) {
	cam := v.r.Camera()
	switch e.Kind {
	case input.EventQuit:
		v.quit.Store(true)
	case input.EventResize:
		if err := v.r.Resize(e.Width, e.Height); err != nil {
			v.log.Warn("resize rejected", zap.Int("width", e.Width), zap.Int("height", e.Height), zap.Error(err))
		}
	case input.EventMouseDown:
		if e.Button == input.ButtonLeft {
			cam.BeginDrag(e.X, e.Y)
		}
	case input.EventMouseMove:
		if cam.Dragging() {
			cam.Drag(e.X, e.Y)
			return
		}
		if now.Sub(v.lastHoverPick) >= v.opts.HoverThrottle {
			v.lastHoverPick = now
			v.r.Picker().Request(int(e.X), int(e.Y), picking.Hover)
		}
	case input.EventMouseUp:
		if e.Button == input.ButtonLeft && cam.Dragging() {
			cam.EndDrag()
			v.emitCamera()
		}
	case input.EventClick:
		seq := v.r.Picker().Request(int(e.X), int(e.Y), picking.Click)
		v.clicks[seq] = clickRequest{mods: e.Mods}
	case input.EventWheel:
		cam.HandleWheel(e.Delta)
		v.emitCamera()
	case input.EventKeyDown:
		v.handleKey(input.KeyName(e.Key), e.Mods)
	}
}

func (v *Viewer) pollPicks(now time.Time) {
	picker := v.r.Picker()
	for {
		st := picker.Poll()
		switch st.State {
		case picking.Resolved:
			v.resolved(st.Result, now)
		case picking.Failed:
			v.failed(st)
		default:
			return
		}
	}
}

func (v *Viewer) resolved(res picking.Result, now time.Time) {
	if res.Purpose == picking.Hover {
		v.hovered(res, now)
		return
	}
	req := v.takeClick(res.Seq)
	v.emit(EventResult{Kind: ResultPick, Pick: pickInfo(res)})

	before := v.selection.Clone()
	ref := interaction.VertexRef{Surface: res.Surface, Vertex: res.Vertex}
	switch {
	case !res.Hit():
		if req.mods == 0 {
			v.selection.Clear()
		}
	case req.mods.Has(input.ModShift):
		v.selection.ToggleVertex(ref)
	case req.mods.Has(input.ModAlt):
		if res.Region != "" {
			v.selection.ToggleRegion(res.Region)
		}
	default:
		v.selection.SetSingle(ref)
	}
	if !v.selection.Equal(&before) {
		v.history.Apply(v.selection.Clone())
		v.emitSelection()
	}
}

func (v *Viewer) hovered(res picking.Result, now time.Time) {
	if !res.Hit() {
		if v.hover.Active() {
			v.hover.Clear()
			v.emit(EventResult{Kind: ResultHoverCleared})
		}
		return
	}
	ref := interaction.VertexRef{Surface: res.Surface, Vertex: res.Vertex}
	prev, active := v.hover.Vertex()
	v.hover.Set(ref, res.Region, now)
	if !active || prev != ref {
		v.emit(EventResult{Kind: ResultHover, Pick: pickInfo(res)})
	}
}

// failed re-issues a click that went stale once; stale hovers are dropped
// since the next mouse move replaces them anyway.
func (v *Viewer) failed(st picking.Status) {
	if st.Result.Purpose != picking.Click {
		return
	}
	req := v.takeClick(st.Result.Seq)
	if errors.Is(st.Err, picking.ErrStale) && !req.retried {
		seq := v.r.Picker().Request(st.Result.X, st.Result.Y, picking.Click)
		v.clicks[seq] = clickRequest{mods: req.mods, retried: true}
		return
	}
	v.log.Warn("click pick failed", zap.Int("x", st.Result.X), zap.Int("y", st.Result.Y), zap.Error(st.Err))
	v.emit(EventResult{Kind: ResultError, Message: st.Err.Error()})
}

// takeClick returns the modifiers of click seq and forgets every click at or
// before it, including those dropped by the pick queue.
func (v *Viewer) takeClick(seq uint64) clickRequest {
	req := v.clicks[seq]
	for s := range v.clicks {
		if s <= seq {
			delete(v.clicks, s)
		}
	}
	return req
}

func (v *Viewer) handleKey(key string, mods input.Modifiers) {
	cam := v.r.Camera()
	r := v.r
	switch key {
	case "1", "2", "3", "4", "5", "6":
		preset := camera.Presets()[key[0]-'1']
		cam.ApplyPreset(preset, v.focusHemisphere())
		v.emitCamera()
	case "z":
		if !mods.Has(input.ModCtrl) {
			return
		}
		if mods.Has(input.ModShift) {
			v.redo()
		} else {
			v.undo()
		}
	case "y":
		if mods.Has(input.ModCtrl) {
			v.redo()
		}
	case "escape":
		if !v.selection.Empty() {
			v.selection.Clear()
			v.history.Apply(v.selection.Clone())
			v.emitSelection()
		}
	case "l":
		r.SetLayout(r.Settings().Layout.Next())
		v.emitCamera()
	case "d":
		r.SetDebugView(r.Settings().DebugView.Next())
	case "p":
		r.SetColorSource(r.Settings().ColorSource.Toggle())
	case "e":
		r.SetParcellationDisplay(r.Settings().ParcellationDisplay.Next())
	case "m":
		v.cycleColormap()
	case "v":
		step := 1
		if mods.Has(input.ModShift) {
			step = -1
		}
		v.stepVolume(step)
	case "r":
		v.toggleRange()
	case "b":
		v.showBounds = !v.showBounds
	case "c":
		if v.opts.Capture == nil {
			v.emit(EventResult{Kind: ResultError, Message: "frame capture is disabled"})
			return
		}
		v.wantCapture = true
	default:
		return
	}
	v.log.Debug("key handled", zap.String("key", key), zap.Uint8("mods", uint8(mods)))
}

func (v *Viewer) undo() {
	if v.history.Undo() {
		v.restoreSelection()
	}
}

func (v *Viewer) redo() {
	if v.history.Redo() {
		v.restoreSelection()
	}
}

func (v *Viewer) restoreSelection() {
	present := v.history.Present()
	v.selection = present.Clone()
	v.emitSelection()
}

// focusHemisphere is the hemisphere of the primary vertex, else of the first
// surface in the scene.
func (v *Viewer) focusHemisphere() surface.Hemisphere {
	res := v.r.Resources()
	if p, ok := v.selection.Primary(); ok {
		if s, ok := res.Surface(p.Surface); ok {
			return s.Hemisphere()
		}
	}
	if nodes := v.r.Scene().Nodes(); len(nodes) > 0 {
		return nodes[0].Hemisphere
	}
	return surface.Left
}

func (v *Viewer) cycleColormap() {
	kinds := colormap.Kinds()
	cur := v.r.Settings().Colormap
	next := kinds[0]
	for i, k := range kinds {
		if k == cur {
			next = kinds[(i+1)%len(kinds)]
			break
		}
	}
	if err := v.r.SetColormap(next); err != nil {
		v.log.Warn("colormap switch failed", zap.Stringer("colormap", next), zap.Error(err))
	}
}

// stepVolume moves every overlay to the next or previous volume, wrapping.
func (v *Viewer) stepVolume(step int) {
	for _, s := range v.r.Resources().Surfaces() {
		n := s.VolumeCount()
		if n < 2 {
			continue
		}
		next := ((s.Volume()+step)%n + n) % n
		if err := v.r.SetVolume(s.ID(), next); err != nil {
			v.log.Warn("volume switch failed", zap.Uint32("surface", uint32(s.ID())), zap.Error(err))
		}
	}
	// Picked values now belong to another volume.
	v.r.Picker().Invalidate()
}

// toggleRange switches every overlay between its own min/max and a range
// symmetric around zero.
func (v *Viewer) toggleRange() {
	for _, s := range v.r.Resources().Surfaces() {
		policy, ok := s.RangePolicy()
		if !ok {
			continue
		}
		next := surface.Symmetric(0)
		if policy.Mode == surface.RangeSymmetric {
			next = surface.Auto()
		}
		if err := v.r.SetRangePolicy(s.ID(), next); err != nil {
			v.log.Warn("range switch failed", zap.Uint32("surface", uint32(s.ID())), zap.Error(err))
		}
	}
}

func (v *Viewer) capture() {
	img, err := v.r.Capture()
	if err == nil {
		var path string
		if path, err = v.opts.Capture.Save(img); err == nil {
			v.emit(EventResult{Kind: ResultCapture, Message: path})
			return
		}
	}
	v.log.Warn("frame capture failed", zap.Error(err))
	v.emit(EventResult{Kind: ResultError, Message: err.Error()})
}

// markers places the selected regions, the selected vertices with the
// primary last, the hover and, when enabled, the scene bounds.
func (v *Viewer) markers() []pipeline.Marker {
	out := v.regionMarkers()
	primary, hasPrimary := v.selection.Primary()
	for _, ref := range v.selection.Vertices() {
		if hasPrimary && ref == primary {
			continue
		}
		if m, ok := v.marker(ref, pipeline.SelectedMarkerColor, selectedMarkerSize); ok {
			out = append(out, m)
		}
	}
	if hasPrimary {
		if m, ok := v.marker(primary, pipeline.PrimaryMarkerColor, primaryMarkerSize); ok {
			out = append(out, m)
		}
	}
	if ref, ok := v.hover.Vertex(); ok {
		if m, ok := v.marker(ref, pipeline.HoverMarkerColor, hoverMarkerSize); ok {
			out = append(out, m)
		}
	}
	if v.showBounds {
		if b := v.r.Scene().Bounds(); !b.IsEmpty() {
			out = append(out, debug.BoundsMarkers(b, debug.DefaultBoundsPadding, boundsMarkerSteps)...)
		}
	}
	return out
}

func (v *Viewer) regionMarkers() []pipeline.Marker {
	regions := v.selection.Regions()
	if len(regions) == 0 {
		return nil
	}
	var out []pipeline.Marker
	for _, s := range v.r.Resources().Surfaces() {
		if !s.HasParcellation() {
			continue
		}
		for _, name := range regions {
			vertices := s.RegionVertices(name)
			stride := (len(vertices) + regionMarkerLimit - 1) / regionMarkerLimit
			for i := 0; i < len(vertices); i += stride {
				ref := interaction.VertexRef{Surface: s.ID(), Vertex: vertices[i]}
				if m, ok := v.marker(ref, pipeline.RegionMarkerColor, regionMarkerSize); ok {
					out = append(out, m)
				}
			}
		}
	}
	return out
}

// marker returns nothing for vertices whose surface is hidden, unloaded or
// too small, which happens after a reload.
func (v *Viewer) marker(ref interaction.VertexRef, color [4]float32, size float32) (pipeline.Marker, bool) {
	s, ok := v.r.Resources().Surface(ref.Surface)
	if !ok || int(ref.Vertex) >= s.VertexCount() {
		return pipeline.Marker{}, false
	}
	n, ok := v.r.Scene().Node(ref.Surface)
	if !ok || !n.Visible {
		return pipeline.Marker{}, false
	}
	pos := n.Model.TransformVec3(s.Geometry().Positions[ref.Vertex])
	return pipeline.Marker{Position: pos, Color: color, Size: size}, true
}

func (v *Viewer) emitCamera() {
	state := v.r.Camera().State()
	v.emit(EventResult{Kind: ResultCamera, Camera: &state})
}

func (v *Viewer) emitSelection() {
	v.emit(EventResult{Kind: ResultSelection, Selection: selectionInfo(&v.selection)})
}

func (v *Viewer) emit(res EventResult) {
	select {
	case v.results <- res:
	default:
		v.log.Warn("result dropped, channel full", zap.Stringer("kind", res.Kind))
	}
}
