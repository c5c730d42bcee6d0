// Package opengl implements gpu.Backend on OpenGL 4.1 core.
// IMPORTANT: every method must run on the thread that owns the GL context.
package opengl

import (
	"errors"
	"fmt"
	"image"
	gomath "math"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/cortexview/internal/engine/framebuffer"
	"github.com/Faultbox/cortexview/internal/engine/gpu"
	"github.com/Faultbox/cortexview/internal/engine/pipeline"
	"github.com/Faultbox/cortexview/internal/engine/pipeline/shaders"
	"github.com/Faultbox/cortexview/internal/engine/shader"
	"github.com/Faultbox/cortexview/internal/logger"
	"github.com/Faultbox/cortexview/internal/surface"
	"github.com/Faultbox/cortexview/pkg/math"
)

// Drawable is the host surface the context renders into.
type Drawable interface {
	MakeCurrent() error
	SwapBuffers()
	// DrawableSize returns the size in pixels; zero while minimized.
	DrawableSize() (int, int)
}

// Texture units used by the surface and pick programs.
const (
	unitScalars = iota
	unitLabels
	unitColorTable
	unitColormap
)

// Interleaved corner layout: position, normal, barycentric (9 floats) then
// three vertex ids.
const (
	cornerWords  = 12
	cornerStride = cornerWords * 4
)

type kind int

const (
	kindMesh kind = iota
	kindBufferTexture
	kindTexture
)

type resource struct {
	kind  kind
	vao   uint32
	vbo   uint32
	tex   uint32
	count int32
}

// Backend renders with OpenGL.
type Backend struct {
	drawable Drawable
	info     gpu.Info

	surfaceProg *shader.Program
	pickProg    *shader.Program
	markerProg  *shader.Program

	scene   *framebuffer.Target
	pick    *framebuffer.Target
	pixel   *framebuffer.PixelReadback
	pending *readback

	markerVAO uint32
	markerVBO uint32

	resources map[gpu.Handle]*resource
	next      gpu.Handle

	width, height int
}

// New creates a backend for drawable. Init must be called before use.
func New(drawable Drawable) *Backend {
	return &Backend{
		drawable:  drawable,
		resources: make(map[gpu.Handle]*resource),
	}
}

var _ gpu.Backend = (*Backend)(nil)

// Init loads GL entry points, compiles the pipelines and allocates the
// offscreen targets.
func (b *Backend) Init(width, height int) error {
	if b.drawable == nil {
		return errors.New("no drawable surface")
	}
	if err := b.drawable.MakeCurrent(); err != nil {
		return fmt.Errorf("make current: %w", err)
	}
	if err := gl.Init(); err != nil {
		return fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	b.info = gpu.Info{
		Backend:  "gl",
		Renderer: gl.GoStr(gl.GetString(gl.RENDERER)),
		Version:  gl.GoStr(gl.GetString(gl.VERSION)),
	}
	logger.Info("OpenGL initialized",
		zap.String("version", b.info.Version),
		zap.String("renderer", b.info.Renderer),
	)

	var err error
	if b.surfaceProg, err = shader.NewProgram(shaders.SurfaceVertexShader, shaders.SurfaceFragmentShader); err != nil {
		return fmt.Errorf("surface pipeline: %w", err)
	}
	if b.pickProg, err = shader.NewProgram(shaders.PickVertexShader, shaders.PickFragmentShader); err != nil {
		return fmt.Errorf("pick pipeline: %w", err)
	}
	if b.markerProg, err = shader.NewProgram(shaders.MarkerVertexShader, shaders.MarkerFragmentShader); err != nil {
		return fmt.Errorf("marker pipeline: %w", err)
	}

	if b.scene, err = framebuffer.New(width, height); err != nil {
		return fmt.Errorf("scene target: %w", err)
	}
	if b.pick, err = framebuffer.New(width, height); err != nil {
		return fmt.Errorf("pick target: %w", err)
	}
	b.pixel = framebuffer.NewPixelReadback()
	b.width, b.height = width, height

	b.createMarkerBuffers()

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Disable(gl.CULL_FACE)
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	return nil
}

// Info describes the GL implementation.
func (b *Backend) Info() gpu.Info {
	return b.info
}

// Configure resizes the offscreen targets.
func (b *Backend) Configure(width, height int) error {
	if err := b.drawable.MakeCurrent(); err != nil {
		return fmt.Errorf("make current: %w", err)
	}
	b.scene.Resize(width, height)
	b.pick.Resize(width, height)
	b.width, b.height = width, height
	return nil
}

// Close releases every GL object.
func (b *Backend) Close() {
	logger.Info("closing OpenGL backend")
	for h := range b.resources {
		b.Release(h)
	}
	if b.pending != nil {
		b.pending.Release()
	}
	if b.pixel != nil {
		b.pixel.Destroy()
	}
	if b.scene != nil {
		b.scene.Destroy()
	}
	if b.pick != nil {
		b.pick.Destroy()
	}
	if b.markerVAO != 0 {
		gl.DeleteVertexArrays(1, &b.markerVAO)
		gl.DeleteBuffers(1, &b.markerVBO)
	}
	for _, p := range []*shader.Program{b.surfaceProg, b.pickProg, b.markerProg} {
		if p != nil {
			p.Delete()
		}
	}
}

func (b *Backend) add(r *resource) gpu.Handle {
	b.next++
	b.resources[b.next] = r
	return b.next
}

// CreateMesh uploads a de-indexed copy of the mesh so every corner carries
// its barycentric coordinate and the ids of its triangle's vertices.
func (b *Backend) CreateMesh(g *surface.Geometry) (gpu.Handle, error) {
	data := make([]uint32, 0, len(g.Triangles)*3*cornerWords)
	bary := [3][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for _, tri := range g.Triangles {
		for corner, idx := range tri {
			p, n := g.Positions[idx], g.Normals[idx]
			for _, f := range []float32{p.X, p.Y, p.Z, n.X, n.Y, n.Z, bary[corner][0], bary[corner][1], bary[corner][2]} {
				data = append(data, gomath.Float32bits(f))
			}
			data = append(data, tri[0], tri[1], tri[2])
		}
	}

	r := &resource{kind: kindMesh, count: int32(len(g.Triangles) * 3)}
	gl.GenVertexArrays(1, &r.vao)
	gl.GenBuffers(1, &r.vbo)
	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, cornerStride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, cornerStride, gl.PtrOffset(12))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 3, gl.FLOAT, false, cornerStride, gl.PtrOffset(24))
	gl.EnableVertexAttribArray(3)
	gl.VertexAttribIPointer(3, 3, gl.UNSIGNED_INT, cornerStride, gl.PtrOffset(36))
	gl.BindVertexArray(0)

	if err := checkError("create mesh"); err != nil {
		gl.DeleteVertexArrays(1, &r.vao)
		gl.DeleteBuffers(1, &r.vbo)
		return 0, err
	}
	return b.add(r), nil
}

// CreateScalars uploads overlay values as an R32F buffer texture.
func (b *Backend) CreateScalars(values []float32) (gpu.Handle, error) {
	if len(values) == 0 {
		values = []float32{0}
	}
	return b.bufferTexture(gl.R32F, len(values)*4, values, "create scalars")
}

// CreateLabels uploads region labels as an R32UI buffer texture.
func (b *Backend) CreateLabels(labels []uint32) (gpu.Handle, error) {
	if len(labels) == 0 {
		labels = []uint32{surface.Unlabeled}
	}
	return b.bufferTexture(gl.R32UI, len(labels)*4, labels, "create labels")
}

// CreateColorTable uploads region colors as an RGBA8 buffer texture.
func (b *Backend) CreateColorTable(colors [][4]uint8) (gpu.Handle, error) {
	if len(colors) == 0 {
		colors = [][4]uint8{{0, 0, 0, 0}}
	}
	return b.bufferTexture(gl.RGBA8, len(colors)*4, colors, "create color table")
}

func (b *Backend) bufferTexture(format uint32, size int, data any, op string) (gpu.Handle, error) {
	r := &resource{kind: kindBufferTexture}
	gl.GenBuffers(1, &r.vbo)
	gl.BindBuffer(gl.TEXTURE_BUFFER, r.vbo)
	gl.BufferData(gl.TEXTURE_BUFFER, size, gl.Ptr(data), gl.STATIC_DRAW)
	gl.GenTextures(1, &r.tex)
	gl.BindTexture(gl.TEXTURE_BUFFER, r.tex)
	gl.TexBuffer(gl.TEXTURE_BUFFER, format, r.vbo)
	gl.BindBuffer(gl.TEXTURE_BUFFER, 0)

	if err := checkError(op); err != nil {
		gl.DeleteTextures(1, &r.tex)
		gl.DeleteBuffers(1, &r.vbo)
		return 0, err
	}
	return b.add(r), nil
}

// CreateColormap uploads an RGBA8 lookup table as a 256x1 texture.
func (b *Backend) CreateColormap(lut []byte) (gpu.Handle, error) {
	if len(lut) == 0 || len(lut)%4 != 0 {
		return 0, fmt.Errorf("colormap of %d bytes is not RGBA8", len(lut))
	}
	r := &resource{kind: kindTexture}
	gl.GenTextures(1, &r.tex)
	gl.BindTexture(gl.TEXTURE_2D, r.tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(len(lut)/4), 1, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(lut))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	if err := checkError("create colormap"); err != nil {
		gl.DeleteTextures(1, &r.tex)
		return 0, err
	}
	return b.add(r), nil
}

// Release deletes a resource. Unknown handles are ignored.
func (b *Backend) Release(h gpu.Handle) {
	r, ok := b.resources[h]
	if !ok {
		return
	}
	delete(b.resources, h)
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
	}
	if r.vbo != 0 {
		gl.DeleteBuffers(1, &r.vbo)
	}
	if r.tex != 0 {
		gl.DeleteTextures(1, &r.tex)
	}
}

// BeginFrame binds and clears the scene target. A minimized or vanished
// drawable reports gpu.ErrSurfaceLost.
func (b *Backend) BeginFrame(clearColor [4]float32) error {
	if w, h := b.drawable.DrawableSize(); w == 0 || h == 0 {
		return gpu.ErrSurfaceLost
	}
	if err := b.drawable.MakeCurrent(); err != nil {
		return fmt.Errorf("%w: %v", gpu.ErrSurfaceLost, err)
	}
	b.scene.Bind()
	gl.DepthMask(true)
	b.scene.Clear(clearColor)
	return nil
}

// DrawSurface draws one mesh with the surface pipeline.
func (b *Backend) DrawSurface(d *gpu.SurfaceDraw) error {
	mesh, ok := b.resources[d.Mesh]
	if !ok || mesh.kind != kindMesh {
		return fmt.Errorf("mesh %d: %w", d.Mesh, gpu.ErrUnknownHandle)
	}
	p := b.surfaceProg
	p.Use()
	setCommonUniforms(p, &d.Uniforms)
	p.SetUint("u_parcellationDisplay", uint32(d.Uniforms.ParcellationDisplay))
	p.SetFloat("u_rangeMin", d.Uniforms.RangeMin)
	p.SetFloat("u_rangeMax", d.Uniforms.RangeMax)
	p.SetVec4("u_baseColor", d.Uniforms.BaseColor)
	p.SetVec4("u_edgeColor", d.Uniforms.EdgeColor)

	if err := b.bindTextures(p, d); err != nil {
		return err
	}
	gl.BindVertexArray(mesh.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, mesh.count)
	gl.BindVertexArray(0)
	return nil
}

func setCommonUniforms(p *shader.Program, u *pipeline.Uniforms) {
	p.SetMat4("u_view", u.View)
	p.SetMat4("u_projection", u.Projection)
	p.SetMat4("u_model", u.Model)
	p.SetUint("u_colorSource", uint32(u.ColorSource))
	p.SetUint("u_debugView", uint32(u.DebugView))
	p.SetFloat("u_threshold", u.Threshold)
}

func (b *Backend) bindTextures(p *shader.Program, d *gpu.SurfaceDraw) error {
	bind := func(h gpu.Handle, unit int32, target uint32, sampler, flag string) error {
		var tex uint32
		if h != 0 {
			r, ok := b.resources[h]
			if !ok {
				return fmt.Errorf("%s %d: %w", sampler, h, gpu.ErrUnknownHandle)
			}
			tex = r.tex
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(target, tex)
		p.SetInt(sampler, unit)
		if flag != "" {
			p.SetInt(flag, boolInt(h != 0))
		}
		return nil
	}
	if err := bind(d.Scalars, unitScalars, gl.TEXTURE_BUFFER, "u_scalars", "u_hasScalars"); err != nil {
		return err
	}
	if err := bind(d.Labels, unitLabels, gl.TEXTURE_BUFFER, "u_labels", "u_hasLabels"); err != nil {
		return err
	}
	if err := bind(d.ColorTable, unitColorTable, gl.TEXTURE_BUFFER, "u_colorTable", ""); err != nil {
		return err
	}
	return bind(d.Colormap, unitColormap, gl.TEXTURE_2D, "u_colormap", "")
}

func (b *Backend) createMarkerBuffers() {
	gl.GenVertexArrays(1, &b.markerVAO)
	gl.GenBuffers(1, &b.markerVBO)
	gl.BindVertexArray(b.markerVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.markerVBO)
	const stride = 8 * 4
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 4, gl.FLOAT, false, stride, gl.PtrOffset(12))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 1, gl.FLOAT, false, stride, gl.PtrOffset(28))
	gl.BindVertexArray(0)
}

// DrawMarkers draws point sprites depth tested with a bias and no depth
// writes, so they never punch holes into later surface draws.
func (b *Backend) DrawMarkers(view, projection math.Mat4, markers []pipeline.Marker) error {
	if len(markers) == 0 {
		return nil
	}
	data := make([]float32, 0, len(markers)*8)
	for _, m := range markers {
		data = append(data, m.Position.X, m.Position.Y, m.Position.Z,
			m.Color[0], m.Color[1], m.Color[2], m.Color[3], m.Size)
	}

	p := b.markerProg
	p.Use()
	p.SetMat4("u_view", view)
	p.SetMat4("u_projection", projection)
	p.SetFloat("u_depthBias", pipeline.MarkerDepthBias)

	gl.DepthFunc(gl.LEQUAL)
	gl.DepthMask(false)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	gl.BindVertexArray(b.markerVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.markerVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STREAM_DRAW)
	gl.DrawArrays(gl.POINTS, 0, int32(len(markers)))
	gl.BindVertexArray(0)

	gl.Disable(gl.BLEND)
	gl.DepthMask(true)
	gl.DepthFunc(gl.LESS)
	return nil
}

// EndFrame copies the scene target to the window and presents it.
func (b *Backend) EndFrame() error {
	b.scene.Present()
	b.drawable.SwapBuffers()
	return checkError("end frame")
}

// ReadFrame reads back the scene target.
func (b *Backend) ReadFrame() (*image.RGBA, error) {
	return b.scene.Image(), checkError("read frame")
}

// PickPass renders the pick pipeline into the pick target with the scissor
// limited to the requested pixel, then queues an asynchronous copy of it.
func (b *Backend) PickPass(x, y int, draws []gpu.SurfaceDraw) (gpu.Readback, error) {
	if b.pending != nil {
		return nil, gpu.ErrReadbackBusy
	}
	// Window coordinates have a top-left origin, GL a bottom-left one.
	gx, gy := int32(x), int32(b.height-1-y)

	b.pick.Bind()
	gl.Enable(gl.SCISSOR_TEST)
	gl.Scissor(gx, gy, 1, 1)
	gl.DepthMask(true)
	b.pick.Clear([4]float32{})

	p := b.pickProg
	p.Use()
	for i := range draws {
		d := &draws[i]
		mesh, ok := b.resources[d.Mesh]
		if !ok || mesh.kind != kindMesh {
			gl.Disable(gl.SCISSOR_TEST)
			return nil, fmt.Errorf("mesh %d: %w", d.Mesh, gpu.ErrUnknownHandle)
		}
		setCommonUniforms(p, &d.Uniforms)
		p.SetUint("u_surfaceId", d.Uniforms.SurfaceID)
		if err := b.bindPickScalars(p, d.Scalars); err != nil {
			gl.Disable(gl.SCISSOR_TEST)
			return nil, err
		}
		gl.BindVertexArray(mesh.vao)
		gl.DrawArrays(gl.TRIANGLES, 0, mesh.count)
	}
	gl.BindVertexArray(0)
	gl.Disable(gl.SCISSOR_TEST)

	b.pixel.Start(b.pick, gx, gy)
	b.scene.Bind()

	b.pending = &readback{owner: b}
	return b.pending, nil
}

func (b *Backend) bindPickScalars(p *shader.Program, h gpu.Handle) error {
	var tex uint32
	if h != 0 {
		r, ok := b.resources[h]
		if !ok {
			return fmt.Errorf("scalars %d: %w", h, gpu.ErrUnknownHandle)
		}
		tex = r.tex
	}
	gl.ActiveTexture(gl.TEXTURE0 + unitScalars)
	gl.BindTexture(gl.TEXTURE_BUFFER, tex)
	p.SetInt("u_scalars", unitScalars)
	p.SetInt("u_hasScalars", boolInt(h != 0))
	return nil
}

type readback struct {
	owner *Backend
}

func (r *readback) Poll() ([4]uint8, bool, error) {
	if r.owner == nil {
		return [4]uint8{}, false, errors.New("readback released")
	}
	px, ok, failed := r.owner.pixel.Poll()
	if failed {
		return px, false, errors.New("pick fence wait failed")
	}
	return px, ok, nil
}

func (r *readback) Release() {
	if r.owner == nil {
		return
	}
	r.owner.pixel.Cancel()
	r.owner.pending = nil
	r.owner = nil
}

func boolInt(v bool) int32 {
	if v {
		return 1
	}
	return 0
}

func checkError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s: gl error 0x%x", op, code)
	}
	return nil
}
