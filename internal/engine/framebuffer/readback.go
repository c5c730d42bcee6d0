package framebuffer

import (
	"github.com/go-gl/gl/v4.1-core/gl"
)

// PixelReadback copies one texel into a pixel pack buffer and lets the
// caller poll for completion without stalling the pipeline.
type PixelReadback struct {
	pbo  uint32
	sync uintptr
}

// NewPixelReadback allocates the pack buffer. It is reused across reads.
func NewPixelReadback() *PixelReadback {
	r := &PixelReadback{}
	gl.GenBuffers(1, &r.pbo)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, r.pbo)
	gl.BufferData(gl.PIXEL_PACK_BUFFER, 4, nil, gl.STREAM_READ)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)
	return r
}

// Start queues a copy of texel (x, y), bottom-left origin, from t.
func (r *PixelReadback) Start(t *Target, x, y int32) {
	r.reset()
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, t.fbo)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, r.pbo)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(x, y, 1, 1, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	r.sync = gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0)
}

// Pending reports whether a copy has been started and not yet collected.
func (r *PixelReadback) Pending() bool {
	return r.sync != 0
}

// Poll checks the fence with a zero timeout. When the copy has landed it
// returns the texel and ok=true; failed=true means the fence wait failed.
func (r *PixelReadback) Poll() (px [4]uint8, ok bool, failed bool) {
	if r.sync == 0 {
		return px, false, false
	}
	switch gl.ClientWaitSync(r.sync, 0, 0) {
	case gl.ALREADY_SIGNALED, gl.CONDITION_SATISFIED:
	case gl.WAIT_FAILED:
		r.reset()
		return px, false, true
	default:
		return px, false, false
	}
	r.reset()

	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, r.pbo)
	ptr := gl.MapBufferRange(gl.PIXEL_PACK_BUFFER, 0, 4, gl.MAP_READ_BIT)
	if ptr != nil {
		px = *(*[4]uint8)(ptr)
		gl.UnmapBuffer(gl.PIXEL_PACK_BUFFER)
	}
	gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)
	return px, ptr != nil, ptr == nil
}

// Cancel drops an outstanding copy.
func (r *PixelReadback) Cancel() {
	r.reset()
}

func (r *PixelReadback) reset() {
	if r.sync != 0 {
		gl.DeleteSync(r.sync)
		r.sync = 0
	}
}

// Destroy releases the pack buffer.
func (r *PixelReadback) Destroy() {
	r.reset()
	if r.pbo != 0 {
		gl.DeleteBuffers(1, &r.pbo)
		r.pbo = 0
	}
}
