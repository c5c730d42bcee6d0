// Package renderer ties the engine together: it owns the GPU context, the
// resources, the scene graph, the camera and the pick engine, and draws
// one frame at a time.
package renderer

import (
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/Faultbox/cortexview/internal/engine/camera"
	"github.com/Faultbox/cortexview/internal/engine/colormap"
	"github.com/Faultbox/cortexview/internal/engine/gpu"
	"github.com/Faultbox/cortexview/internal/engine/picking"
	"github.com/Faultbox/cortexview/internal/engine/pipeline"
	"github.com/Faultbox/cortexview/internal/engine/resource"
	"github.com/Faultbox/cortexview/internal/engine/scene"
	"github.com/Faultbox/cortexview/internal/logger"
	"github.com/Faultbox/cortexview/internal/surface"
	"github.com/Faultbox/cortexview/pkg/math"
)

// MaxSurfaceRetries is how many consecutive frames may lose the output
// surface before Frame reports an error.
const MaxSurfaceRetries = 3

// ErrSurfaceRetriesExhausted is returned by Frame when reconfiguring the
// output surface kept failing.
var ErrSurfaceRetriesExhausted = errors.New("output surface lost: retries exhausted")

// Settings are the render modes applied to every surface draw.
type Settings struct {
	ColorSource         pipeline.ColorSource
	ParcellationDisplay pipeline.ParcellationDisplay
	DebugView           pipeline.DebugView
	Threshold           float32
	Colormap            colormap.Kind
	Layout              scene.Layout
	Background          [4]float32
}

// DefaultSettings returns overlay shading with viridis on a dark background.
func DefaultSettings() Settings {
	return Settings{
		ColorSource: pipeline.SourceOverlay,
		Colormap:    colormap.Viridis,
		Layout:      scene.SideBySide,
		Background:  [4]float32{0.1, 0.1, 0.15, 1.0},
	}
}

// Config holds renderer configuration.
type Config struct {
	Width    int
	Height   int
	Settings Settings
}

// Renderer handles all frame rendering.
type Renderer struct {
	settings Settings

	ctx       *gpu.Context
	resources *resource.Manager
	graph     *scene.Graph
	camera    *camera.OrbitCamera
	picker    *picking.Engine

	lost       bool
	lostFrames int
	frames     uint64

	log *zap.Logger
}

// New creates a renderer on an uninitialized backend. Any setup failure
// is a *gpu.ContextError and leaves nothing running.
func New(backend gpu.Backend, cfg Config) (*Renderer, error) {
	ctx, err := gpu.NewContext(backend, cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		settings:  cfg.Settings,
		ctx:       ctx,
		resources: resource.New(backend),
		graph:     scene.New(),
		camera:    camera.NewOrbitCamera(),
		log:       logger.Named("renderer"),
	}
	r.graph.SetLayout(cfg.Settings.Layout)
	r.picker = picking.New(ctx, r.resources, r.graph, pickView{r})

	if err := r.resources.SetColormap(cfg.Settings.Colormap); err != nil {
		r.Close()
		return nil, &gpu.ContextError{Op: "colormap", Err: err}
	}
	return r, nil
}

// Close releases every resource and the backend.
func (r *Renderer) Close() {
	r.log.Info("closing renderer", zap.Uint64("frames", r.frames))
	r.picker.Invalidate()
	r.resources.Close()
	r.ctx.Close()
}

// Camera returns the orbit camera.
func (r *Renderer) Camera() *camera.OrbitCamera { return r.camera }

// Picker returns the pick engine.
func (r *Renderer) Picker() *picking.Engine { return r.picker }

// Resources returns the resource manager.
func (r *Renderer) Resources() *resource.Manager { return r.resources }

// Scene returns the scene graph.
func (r *Renderer) Scene() *scene.Graph { return r.graph }

// Context returns the device context.
func (r *Renderer) Context() *gpu.Context { return r.ctx }

// Settings returns the current render modes.
func (r *Renderer) Settings() Settings { return r.settings }

// Frames returns how many frames were presented.
func (r *Renderer) Frames() uint64 { return r.frames }

// Frame draws every visible surface followed by markers and presents.
// A lost output surface drops the frame and is reconfigured on the next
// call; ErrSurfaceRetriesExhausted is returned after MaxSurfaceRetries
// consecutive losses.
func (r *Renderer) Frame(markers []pipeline.Marker) error {
	b := r.ctx.Backend()
	if r.lost {
		if err := r.ctx.Reconfigure(); err != nil {
			return r.surfaceLost(err)
		}
	}
	if err := b.BeginFrame(r.settings.Background); err != nil {
		if errors.Is(err, gpu.ErrSurfaceLost) {
			return r.surfaceLost(err)
		}
		return fmt.Errorf("begin frame: %w", err)
	}
	if r.lost {
		r.log.Info("output surface recovered", zap.Int("lost_frames", r.lostFrames))
	}
	r.lost, r.lostFrames = false, 0

	draws := r.draws()
	for i := range draws {
		if err := b.DrawSurface(&draws[i]); err != nil {
			return fmt.Errorf("draw surface %d: %w", draws[i].Uniforms.SurfaceID, err)
		}
	}
	if len(markers) > 0 {
		view, proj := r.matrices()
		if err := b.DrawMarkers(view, proj, markers); err != nil {
			return fmt.Errorf("draw markers: %w", err)
		}
	}
	if err := b.EndFrame(); err != nil {
		return fmt.Errorf("end frame: %w", err)
	}
	r.frames++
	return nil
}

func (r *Renderer) surfaceLost(cause error) error {
	r.lost = true
	r.lostFrames++
	if r.lostFrames > MaxSurfaceRetries {
		return fmt.Errorf("%w after %d frames: %v", ErrSurfaceRetriesExhausted, r.lostFrames, cause)
	}
	r.log.Warn("output surface lost, frame dropped", zap.Int("attempt", r.lostFrames), zap.Error(cause))
	return nil
}

func (r *Renderer) matrices() (view, projection math.Mat4) {
	return r.camera.ViewMatrix(), r.camera.ProjectionMatrix(r.ctx.Aspect())
}

// draws builds one draw per visible node whose surface is loaded. The
// same list feeds the pick pass so thresholded fragments are never picked.
func (r *Renderer) draws() []gpu.SurfaceDraw {
	view, proj := r.matrices()
	_, cmap := r.resources.Colormap()
	nodes := r.graph.VisibleNodes()
	draws := make([]gpu.SurfaceDraw, 0, len(nodes))
	for _, n := range nodes {
		s, ok := r.resources.Surface(n.ID)
		if !ok {
			continue
		}
		u := pipeline.Uniforms{
			View:                view,
			Projection:          proj,
			Model:               n.Model,
			ColorSource:         r.settings.ColorSource,
			ParcellationDisplay: r.settings.ParcellationDisplay,
			DebugView:           r.settings.DebugView,
			Threshold:           r.settings.Threshold,
			SurfaceID:           uint32(n.ID),
			BaseColor:           pipeline.DefaultBaseColor,
			EdgeColor:           pipeline.DefaultEdgeColor,
		}
		if lo, hi, ok := s.Range(); ok {
			u.RangeMin, u.RangeMax = lo, hi
		}
		labels, colors := s.Labels()
		draws = append(draws, gpu.SurfaceDraw{
			Mesh:       s.Mesh(),
			Scalars:    s.Scalars(),
			Labels:     labels,
			ColorTable: colors,
			Colormap:   cmap,
			Uniforms:   u,
		})
	}
	return draws
}

// pickView feeds the pick engine the camera and draw list of the current
// frame.
type pickView struct{ r *Renderer }

func (v pickView) Camera() (math.Mat4, math.Mat4) { return v.r.matrices() }
func (v pickView) PickDraws() []gpu.SurfaceDraw   { return v.r.draws() }

// Capture returns the last presented frame.
func (r *Renderer) Capture() (*image.RGBA, error) {
	return r.ctx.Backend().ReadFrame()
}

// Resize resizes the output surface. In-flight picks become stale.
func (r *Renderer) Resize(width, height int) error {
	return r.ctx.Resize(width, height)
}

// LoadSurface uploads geometry into slot id and rebuilds the scene. The
// camera is fitted when the first surface arrives.
func (r *Renderer) LoadSurface(id surface.ID, g *surface.Geometry) error {
	empty := len(r.graph.Nodes()) == 0
	if err := r.resources.LoadSurface(id, g); err != nil {
		return err
	}
	r.rebuild()
	if empty {
		r.camera.FitToBounds(r.graph.Bounds())
	}
	return nil
}

// Unload removes a surface and its bindings.
func (r *Renderer) Unload(id surface.ID) error {
	if err := r.resources.Unload(id); err != nil {
		return err
	}
	r.rebuild()
	return nil
}

func (r *Renderer) rebuild() {
	surfaces := r.resources.Surfaces()
	sources := make([]scene.Source, len(surfaces))
	for i, s := range surfaces {
		sources[i] = s
	}
	r.graph.Rebuild(sources)
	r.picker.Invalidate()
}

// BindOverlay binds one volume of an overlay to a surface.
func (r *Renderer) BindOverlay(id surface.ID, o *surface.Overlay, volume int, policy surface.RangePolicy) error {
	return r.resources.BindOverlay(id, o, volume, policy)
}

// SetVolume switches the displayed volume of a bound overlay.
func (r *Renderer) SetVolume(id surface.ID, volume int) error {
	return r.resources.SetVolume(id, volume)
}

// SetRangePolicy changes how the colormap range of a bound overlay is
// derived.
func (r *Renderer) SetRangePolicy(id surface.ID, policy surface.RangePolicy) error {
	return r.resources.SetRangePolicy(id, policy)
}

// BindParcellation binds region labels to a surface.
func (r *Renderer) BindParcellation(id surface.ID, p *surface.Parcellation) error {
	return r.resources.BindParcellation(id, p)
}

// SetColormap switches the overlay colormap.
func (r *Renderer) SetColormap(k colormap.Kind) error {
	if err := r.resources.SetColormap(k); err != nil {
		return err
	}
	r.settings.Colormap = k
	return nil
}

// SetLayout repositions the hemispheres and refits the camera.
func (r *Renderer) SetLayout(l scene.Layout) {
	r.settings.Layout = l
	r.graph.SetLayout(l)
	r.camera.FitToBounds(r.graph.Bounds())
	r.picker.Invalidate()
}

// SetVisible shows or hides a surface.
func (r *Renderer) SetVisible(id surface.ID, visible bool) error {
	if err := r.graph.SetVisible(id, visible); err != nil {
		return err
	}
	r.picker.Invalidate()
	return nil
}

// SetColorSource selects overlay or parcellation shading.
func (r *Renderer) SetColorSource(s pipeline.ColorSource) { r.settings.ColorSource = s }

// SetParcellationDisplay selects fill, edges or both.
func (r *Renderer) SetParcellationDisplay(d pipeline.ParcellationDisplay) {
	r.settings.ParcellationDisplay = d
}

// SetDebugView overrides shading with a diagnostic view.
func (r *Renderer) SetDebugView(d pipeline.DebugView) { r.settings.DebugView = d }

// SetThreshold hides overlay values below t, negative values included.
// Zero, negative and NaN thresholds disable thresholding.
func (r *Renderer) SetThreshold(t float32) {
	if !(t > 0) {
		t = 0
	}
	r.settings.Threshold = t
}
