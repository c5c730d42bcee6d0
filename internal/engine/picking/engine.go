package picking

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/cortexview/internal/engine/gpu"
	"github.com/Faultbox/cortexview/internal/engine/pipeline"
	"github.com/Faultbox/cortexview/internal/engine/resource"
	"github.com/Faultbox/cortexview/internal/engine/scene"
	"github.com/Faultbox/cortexview/internal/logger"
	"github.com/Faultbox/cortexview/internal/surface"
	"github.com/Faultbox/cortexview/pkg/math"
)

// ErrStale reports a pick whose geometry or output size changed while it
// was in flight.
var ErrStale = errors.New("pick result is stale")

// Purpose says what a pick is for. Clicks outrank hovers in the queue.
type Purpose int

const (
	Hover Purpose = iota
	Click
)

func (p Purpose) String() string {
	if p == Click {
		return "click"
	}
	return "hover"
}

// State is the pick state machine position.
type State int

const (
	Idle State = iota
	Submitted
	PendingReadback
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitted:
		return "submitted"
	case PendingReadback:
		return "pending_readback"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Request is a pick at canvas pixel (X, Y), origin top-left. Seq numbers
// increase with every call to Engine.Request.
type Request struct {
	Seq     uint64
	X, Y    int
	Purpose Purpose
}

// Result is a resolved pick. A miss has every Has* flag false.
type Result struct {
	Seq     uint64
	Purpose Purpose
	X, Y    int

	HasVertex  bool
	Vertex     uint32
	HasSurface bool
	Surface    surface.ID
	// Position is the vertex in world space.
	HasPosition bool
	Position    math.Vec3
	HasValue    bool
	Value       float32
	// Region is empty when no parcellation is bound or the vertex is unlabeled.
	Region string
}

// Hit reports whether the pick landed on a surface.
func (r Result) Hit() bool {
	return r.HasVertex && r.HasSurface
}

// Status is what Poll observed.
type Status struct {
	State  State
	Result Result
	Err    error
}

// View supplies the camera and the draw list when a pick pass is issued.
type View interface {
	Camera() (view, projection math.Mat4)
	// PickDraws returns one draw per visible node with resources, with
	// SurfaceID set.
	PickDraws() []gpu.SurfaceDraw
}

type inflight struct {
	req      Request
	issued   bool
	stale    bool
	culled   bool
	err      error
	gen      uint64
	readback gpu.Readback
}

// Engine runs one pick at a time. Requests that arrive while a pick is in
// flight wait in a single pending slot: the newest request wins, except that
// a hover never displaces a pending click.
type Engine struct {
	ctx       *gpu.Context
	resources *resource.Manager
	graph     *scene.Graph
	view      View

	current *inflight
	pending *Request
	seq     uint64
	log     *zap.Logger
}

// New creates an idle pick engine.
func New(ctx *gpu.Context, resources *resource.Manager, graph *scene.Graph, view View) *Engine {
	return &Engine{
		ctx:       ctx,
		resources: resources,
		graph:     graph,
		view:      view,
		log:       logger.Named("picking"),
	}
}

// Request queues a pick and returns its sequence number. The GPU pass is
// issued by the next Poll.
func (e *Engine) Request(x, y int, purpose Purpose) uint64 {
	e.seq++
	req := Request{Seq: e.seq, X: x, Y: y, Purpose: purpose}
	if e.current == nil {
		e.current = &inflight{req: req}
		return req.Seq
	}
	if e.pending != nil && e.pending.Purpose == Click && purpose == Hover {
		e.log.Debug("hover dropped behind pending click", zap.Int("x", x), zap.Int("y", y))
		return req.Seq
	}
	e.pending = &req
	return req.Seq
}

// State returns the position of the outstanding request.
func (e *Engine) State() State {
	switch {
	case e.current == nil:
		return Idle
	case e.current.issued:
		return PendingReadback
	default:
		return Submitted
	}
}

// Pending returns the queued request, if any.
func (e *Engine) Pending() (Request, bool) {
	if e.pending == nil {
		return Request{}, false
	}
	return *e.pending, true
}

// Invalidate fails the outstanding pick with ErrStale on the next Poll and
// drops the queued one.
func (e *Engine) Invalidate() {
	e.pending = nil
	if e.current == nil {
		return
	}
	e.current.stale = true
	if e.current.readback != nil {
		e.current.readback.Release()
		e.current.readback = nil
	}
}

// Poll advances the state machine without blocking. Resolved and Failed
// are each returned exactly once per request.
func (e *Engine) Poll() Status {
	cur := e.current
	if cur == nil {
		return Status{State: Idle}
	}
	if cur.stale {
		return e.finish(Status{State: Failed, Result: cur.req.result(), Err: ErrStale})
	}
	if !cur.issued {
		e.issue(cur)
	}
	miss := cur.req.result()
	if cur.err != nil {
		return e.finish(Status{State: Failed, Result: miss, Err: cur.err})
	}
	if cur.culled {
		return e.finish(Status{State: Resolved, Result: miss})
	}

	px, done, err := cur.readback.Poll()
	if err != nil {
		return e.finish(Status{State: Failed, Result: miss, Err: fmt.Errorf("pick readback: %w", err)})
	}
	if !done {
		return Status{State: PendingReadback}
	}
	if e.generation() != cur.gen {
		return e.finish(Status{State: Failed, Result: miss, Err: ErrStale})
	}
	res, err := e.resolve(cur.req, px)
	if err != nil {
		return e.finish(Status{State: Failed, Result: miss, Err: err})
	}
	return e.finish(Status{State: Resolved, Result: res})
}

func (r Request) result() Result {
	return Result{Seq: r.Seq, Purpose: r.Purpose, X: r.X, Y: r.Y}
}

func (e *Engine) generation() uint64 {
	return e.resources.Generation() + e.ctx.Generation()
}

func (e *Engine) issue(cur *inflight) {
	cur.issued = true
	cur.gen = e.generation()

	view, proj := e.view.Camera()
	if !e.rayHitsScene(cur.req, view, proj) {
		cur.culled = true
		return
	}
	rb, err := e.ctx.Backend().PickPass(cur.req.X, cur.req.Y, e.view.PickDraws())
	if err != nil {
		cur.err = fmt.Errorf("pick pass: %w", err)
		return
	}
	cur.readback = rb
}

// rayHitsScene is the CPU pre-cull: a ray that misses every visible node's
// world bounds cannot hit geometry.
func (e *Engine) rayHitsScene(req Request, view, proj math.Mat4) bool {
	w, h := e.ctx.Size()
	if req.X < 0 || req.Y < 0 || req.X >= w || req.Y >= h {
		return false
	}
	ray := ScreenToRay(float32(req.X), float32(req.Y), float32(w), float32(h), proj.Mul(view).Inverse())
	for _, n := range e.graph.VisibleNodes() {
		if _, hit := ray.IntersectAABB(n.WorldBounds()); hit {
			return true
		}
	}
	return false
}

func (e *Engine) resolve(req Request, px [4]uint8) (Result, error) {
	res := req.result()
	id, vertex, ok := pipeline.DecodePick(px)
	if !ok {
		return res, nil
	}
	s, ok := e.resources.Surface(surface.ID(id))
	if !ok || int(vertex) >= s.VertexCount() {
		return res, fmt.Errorf("%w: surface %d vertex %d", ErrStale, id, vertex)
	}

	res.HasVertex, res.Vertex = true, vertex
	res.HasSurface, res.Surface = true, s.ID()
	if n, ok := e.graph.Node(s.ID()); ok {
		res.HasPosition = true
		res.Position = n.Model.TransformVec3(s.Geometry().Positions[vertex])
	}
	res.Value, res.HasValue = s.OverlayValue(vertex)
	res.Region = s.RegionName(vertex)
	return res, nil
}

func (e *Engine) finish(st Status) Status {
	cur := e.current
	if cur.readback != nil {
		cur.readback.Release()
	}
	e.current = nil
	if e.pending != nil {
		e.current = &inflight{req: *e.pending}
		e.pending = nil
	}
	if st.State == Failed {
		e.log.Debug("pick failed", zap.Stringer("purpose", cur.req.Purpose), zap.Error(st.Err))
	} else {
		e.log.Debug("pick resolved",
			zap.Stringer("purpose", cur.req.Purpose),
			zap.Bool("hit", st.Result.Hit()),
			zap.Uint32("surface", uint32(st.Result.Surface)),
			zap.Uint32("vertex", st.Result.Vertex))
	}
	return st
}
