// Package framebuffer holds the offscreen GL targets the viewer renders
// into: the scene target that is presented to the window and the pick
// target that stores encoded vertex ids.
package framebuffer

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Target is an RGBA8 color attachment with a 24-bit depth buffer. Colors
// are sampled with nearest filtering so id values survive untouched.
type Target struct {
	fbo   uint32
	color uint32
	depth uint32
	size  image.Point
}

// New allocates a target of at least 1x1 pixels.
func New(width, height int) (*Target, error) {
	t := &Target{}
	gl.GenFramebuffers(1, &t.fbo)
	gl.GenTextures(1, &t.color)
	gl.GenRenderbuffers(1, &t.depth)

	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	t.allocate(width, height)
	gl.BindTexture(gl.TEXTURE_2D, t.color)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.color, 0)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, t.depth)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		t.Destroy()
		return nil, fmt.Errorf("render target incomplete: 0x%x", status)
	}
	return t, nil
}

func (t *Target) allocate(width, height int) {
	t.size = image.Pt(max(width, 1), max(height, 1))
	w, h := int32(t.size.X), int32(t.size.Y)

	gl.BindTexture(gl.TEXTURE_2D, t.color)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, w, h, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.BindRenderbuffer(gl.RENDERBUFFER, t.depth)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, w, h)
}

// Size returns the target size in pixels.
func (t *Target) Size() image.Point { return t.size }

// Resize reallocates the attachments when the size changed. Contents are
// undefined afterwards.
func (t *Target) Resize(width, height int) {
	if image.Pt(max(width, 1), max(height, 1)) == t.size {
		return
	}
	t.allocate(width, height)
}

// Bind makes t the draw target covering its whole area.
func (t *Target) Bind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.Viewport(0, 0, int32(t.size.X), int32(t.size.Y))
}

// Clear fills the bound target with c and resets depth.
func (t *Target) Clear(c [4]float32) {
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Present copies the color attachment onto the window framebuffer.
func (t *Target) Present() {
	w, h := int32(t.size.X), int32(t.size.Y)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, t.fbo)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(0, 0, w, h, 0, 0, w, h, gl.COLOR_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// Image reads the color attachment synchronously, top row first.
func (t *Target) Image() *image.RGBA {
	img := image.NewRGBA(image.Rectangle{Max: t.size})
	raw := make([]byte, len(img.Pix))

	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, t.fbo)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(t.size.X), int32(t.size.Y), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(raw))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	// GL rows run bottom-up.
	for y := 0; y < t.size.Y; y++ {
		src := raw[(t.size.Y-1-y)*img.Stride:]
		copy(img.Pix[y*img.Stride:(y+1)*img.Stride], src)
	}
	return img
}

// Destroy releases the GL objects. It is safe to call twice.
func (t *Target) Destroy() {
	if t.fbo != 0 {
		gl.DeleteFramebuffers(1, &t.fbo)
		t.fbo = 0
	}
	if t.color != 0 {
		gl.DeleteTextures(1, &t.color)
		t.color = 0
	}
	if t.depth != 0 {
		gl.DeleteRenderbuffers(1, &t.depth)
		t.depth = 0
	}
}
