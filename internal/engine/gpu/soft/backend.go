// Package soft is a CPU rasterizer implementing gpu.Backend. It runs the
// same fragment programs as the GPU shaders and needs no device, so the
// engine can run headless and under test.
package soft

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/cortexview/internal/engine/gpu"
	"github.com/Faultbox/cortexview/internal/engine/pipeline"
	"github.com/Faultbox/cortexview/internal/logger"
	"github.com/Faultbox/cortexview/internal/surface"
	"github.com/Faultbox/cortexview/pkg/math"
)

// Options configures the software backend.
type Options struct {
	// PickLatency is the number of polls a readback reports as in flight
	// before completing, emulating an asynchronous GPU copy.
	PickLatency int
	// FailInit makes Init return this error.
	FailInit error
}

// Stats counts backend activity.
type Stats struct {
	Frames       int
	SurfaceDraws int
	MarkerDraws  int
	PickPasses   int
	Configures   int
	// Live is the number of resources created and not yet released.
	Live int
}

type mesh struct {
	positions []math.Vec3
	normals   []math.Vec3
	triangles [][3]uint32
}

// Backend is the software renderer.
type Backend struct {
	opts   Options
	width  int
	height int

	color []byte
	depth []float32
	frame *image.RGBA

	resources map[gpu.Handle]any
	next      gpu.Handle

	lostFrames int
	inFrame    bool
	readback   *readback
	stats      Stats
}

// New creates a software backend. Init must be called before use.
func New(opts Options) *Backend {
	return &Backend{
		opts:      opts,
		resources: make(map[gpu.Handle]any),
	}
}

// Init allocates the color and depth buffers.
func (b *Backend) Init(width, height int) error {
	if b.opts.FailInit != nil {
		return b.opts.FailInit
	}
	b.allocate(width, height)
	return nil
}

// Info describes the backend.
func (b *Backend) Info() gpu.Info {
	return gpu.Info{Backend: "soft", Renderer: "cpu rasterizer", Version: fmt.Sprintf("layout v%d", pipeline.LayoutVersion)}
}

// Configure reallocates the buffers for a new size.
func (b *Backend) Configure(width, height int) error {
	b.allocate(width, height)
	b.stats.Configures++
	return nil
}

func (b *Backend) allocate(width, height int) {
	b.width, b.height = width, height
	b.color = make([]byte, width*height*4)
	b.depth = make([]float32, width*height)
	b.frame = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Close drops every resource.
func (b *Backend) Close() {
	clear(b.resources)
	b.stats.Live = 0
	if b.readback != nil {
		b.readback.Release()
	}
}

// LoseSurface makes the next n BeginFrame calls fail with gpu.ErrSurfaceLost.
func (b *Backend) LoseSurface(n int) {
	b.lostFrames = n
}

// Stats returns the activity counters.
func (b *Backend) Stats() Stats {
	return b.stats
}

func (b *Backend) add(r any) gpu.Handle {
	b.next++
	b.resources[b.next] = r
	b.stats.Live++
	return b.next
}

// CreateMesh copies the geometry.
func (b *Backend) CreateMesh(g *surface.Geometry) (gpu.Handle, error) {
	m := &mesh{
		positions: append([]math.Vec3(nil), g.Positions...),
		normals:   append([]math.Vec3(nil), g.Normals...),
		triangles: append([][3]uint32(nil), g.Triangles...),
	}
	return b.add(m), nil
}

// CreateScalars copies per-vertex overlay values.
func (b *Backend) CreateScalars(values []float32) (gpu.Handle, error) {
	return b.add(append([]float32(nil), values...)), nil
}

// CreateLabels copies per-vertex region labels.
func (b *Backend) CreateLabels(labels []uint32) (gpu.Handle, error) {
	return b.add(append([]uint32(nil), labels...)), nil
}

// CreateColorTable copies a region color table.
func (b *Backend) CreateColorTable(colors [][4]uint8) (gpu.Handle, error) {
	return b.add(append([][4]uint8(nil), colors...)), nil
}

// CreateColormap copies an RGBA8 lookup table.
func (b *Backend) CreateColormap(lut []byte) (gpu.Handle, error) {
	return b.add(append([]byte(nil), lut...)), nil
}

// Release frees a resource. Unknown handles are ignored.
func (b *Backend) Release(h gpu.Handle) {
	if _, ok := b.resources[h]; !ok {
		return
	}
	delete(b.resources, h)
	b.stats.Live--
}

// BeginFrame clears the color and depth buffers.
func (b *Backend) BeginFrame(clearColor [4]float32) error {
	if b.lostFrames > 0 {
		b.lostFrames--
		return gpu.ErrSurfaceLost
	}
	c := toRGBA8(clearColor)
	for i := 0; i < len(b.color); i += 4 {
		copy(b.color[i:i+4], c[:])
	}
	for i := range b.depth {
		b.depth[i] = math32.MaxFloat32
	}
	b.inFrame = true
	return nil
}

// DrawSurface rasterizes a mesh with the surface fragment program.
func (b *Backend) DrawSurface(d *gpu.SurfaceDraw) error {
	m, bindings, err := b.resolve(d)
	if err != nil {
		return err
	}
	u := &d.Uniforms
	b.drawMesh(m, u.MVP(), rect{0, 0, b.width - 1, b.height - 1}, b.depth, func(x, y int, f *pipeline.Fragment) {
		c := toRGBA8(pipeline.ShadeSurface(u, bindings, f))
		copy(b.color[(y*b.width+x)*4:], c[:])
	})
	b.stats.SurfaceDraws++
	return nil
}

// DrawMarkers draws screen-aligned squares, depth tested against the
// surfaces with a bias and without writing depth.
func (b *Backend) DrawMarkers(view, projection math.Mat4, markers []pipeline.Marker) error {
	vp := projection.Mul(view)
	for _, mk := range markers {
		clip := vp.MulVec4(math.Vec4{mk.Position.X, mk.Position.Y, mk.Position.Z, 1})
		if clip[3] < minW {
			continue
		}
		clip[2] -= pipeline.MarkerDepthBias * clip[3]
		sv, _ := project(math.Identity(), math.Vec3{X: clip[0] / clip[3], Y: clip[1] / clip[3], Z: clip[2] / clip[3]}, b.width, b.height)

		half := max(mk.Size, 1) / 2
		x0, x1 := int(math32.Floor(sv.X-half)), int(math32.Ceil(sv.X+half))-1
		y0, y1 := int(math32.Floor(sv.Y-half)), int(math32.Ceil(sv.Y+half))-1
		for y := max(y0, 0); y <= min(y1, b.height-1); y++ {
			for x := max(x0, 0); x <= min(x1, b.width-1); x++ {
				if sv.Z > b.depth[y*b.width+x] {
					continue
				}
				blend(b.color[(y*b.width+x)*4:], mk.Color)
			}
		}
	}
	b.stats.MarkerDraws++
	return nil
}

// EndFrame presents the color buffer.
func (b *Backend) EndFrame() error {
	if !b.inFrame {
		return fmt.Errorf("end frame without begin")
	}
	copy(b.frame.Pix, b.color)
	b.inFrame = false
	b.stats.Frames++
	return nil
}

// ReadFrame returns a copy of the last presented frame.
func (b *Backend) ReadFrame() (*image.RGBA, error) {
	img := image.NewRGBA(b.frame.Rect)
	copy(img.Pix, b.frame.Pix)
	return img, nil
}

// PickPass rasterizes only pixel (x, y) with the picking program.
func (b *Backend) PickPass(x, y int, draws []gpu.SurfaceDraw) (gpu.Readback, error) {
	if b.readback != nil {
		return nil, gpu.ErrReadbackBusy
	}
	rb := &readback{owner: b, remaining: b.opts.PickLatency}
	b.readback = rb
	b.stats.PickPasses++

	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return rb, nil
	}

	depth := []float32{math32.MaxFloat32}
	for i := range draws {
		d := &draws[i]
		m, bindings, err := b.resolve(d)
		if err != nil {
			rb.Release()
			return nil, err
		}
		u := &d.Uniforms
		b.drawMesh(m, u.MVP(), rect{x, y, x, y}, depth, func(_, _ int, f *pipeline.Fragment) {
			rb.px = pipeline.ShadePick(u, bindings, f)
		})
	}
	logger.Debug("soft pick pass", zap.Int("x", x), zap.Int("y", y), zap.Uint8s("texel", rb.px[:]))
	return rb, nil
}

// drawMesh rasterizes every triangle of m inside clip, depth testing
// against depth (indexed relative to clip) and writing it on pass.
func (b *Backend) drawMesh(m *mesh, mvp math.Mat4, clip rect, depth []float32, shade func(x, y int, f *pipeline.Fragment)) {
	stride := clip.MaxX - clip.MinX + 1
	var f pipeline.Fragment
	for _, tri := range m.triangles {
		var sv [3]screenVertex
		visible := true
		for i, idx := range tri {
			v, ok := project(mvp, m.positions[idx], b.width, b.height)
			if !ok {
				visible = false
				break
			}
			sv[i] = v
		}
		if !visible {
			continue
		}
		rasterize(sv, clip, func(x, y int, z float32, bary [3]float32) {
			di := (y-clip.MinY)*stride + (x - clip.MinX)
			if z >= depth[di] {
				return
			}
			depth[di] = z
			n0, n1, n2 := m.normals[tri[0]], m.normals[tri[1]], m.normals[tri[2]]
			f.Normal = n0.Scale(bary[0]).Add(n1.Scale(bary[1])).Add(n2.Scale(bary[2]))
			f.Bary = bary
			f.Vertices = tri
			shade(x, y, &f)
		})
	}
}

// resolve looks up the mesh and bound buffers of a draw.
func (b *Backend) resolve(d *gpu.SurfaceDraw) (*mesh, *pipeline.Bindings, error) {
	m, ok := b.resources[d.Mesh].(*mesh)
	if !ok {
		return nil, nil, fmt.Errorf("mesh %d: %w", d.Mesh, gpu.ErrUnknownHandle)
	}
	bindings := &pipeline.Bindings{}
	if d.Scalars != 0 {
		if bindings.Scalars, ok = b.resources[d.Scalars].([]float32); !ok {
			return nil, nil, fmt.Errorf("scalars %d: %w", d.Scalars, gpu.ErrUnknownHandle)
		}
	}
	if d.Labels != 0 {
		if bindings.Labels, ok = b.resources[d.Labels].([]uint32); !ok {
			return nil, nil, fmt.Errorf("labels %d: %w", d.Labels, gpu.ErrUnknownHandle)
		}
	}
	if d.ColorTable != 0 {
		if bindings.ColorTable, ok = b.resources[d.ColorTable].([][4]uint8); !ok {
			return nil, nil, fmt.Errorf("color table %d: %w", d.ColorTable, gpu.ErrUnknownHandle)
		}
	}
	if d.Colormap != 0 {
		if bindings.Colormap, ok = b.resources[d.Colormap].([]byte); !ok {
			return nil, nil, fmt.Errorf("colormap %d: %w", d.Colormap, gpu.ErrUnknownHandle)
		}
	}
	return m, bindings, nil
}

var _ gpu.Backend = (*Backend)(nil)

// readback emulates an asynchronous copy that completes after a fixed
// number of polls.
type readback struct {
	owner     *Backend
	px        [4]uint8
	remaining int
}

func (r *readback) Poll() ([4]uint8, bool, error) {
	if r.remaining > 0 {
		r.remaining--
		return [4]uint8{}, false, nil
	}
	return r.px, true, nil
}

func (r *readback) Release() {
	if r.owner != nil && r.owner.readback == r {
		r.owner.readback = nil
	}
	r.owner = nil
}

func toRGBA8(c [4]float32) [4]uint8 {
	var out [4]uint8
	for i, v := range c {
		out[i] = uint8(min(max(v, 0), 1)*255 + 0.5)
	}
	return out
}

func blend(dst []byte, src [4]float32) {
	a := min(max(src[3], 0), 1)
	for i := 0; i < 3; i++ {
		d := float32(dst[i]) / 255
		dst[i] = uint8((src[i]*a+d*(1-a))*255 + 0.5)
	}
	dst[3] = 255
}
