package gfx

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// frameTimeout bounds the fence wait after submitting a frame.
const frameTimeout = 5 * time.Second

// RenderSession owns the render target, the pipelines, and the per-frame
// GPU buffers the submission path uploads into. Buffers grow as needed and
// persist across frames.
type RenderSession struct {
	device    hal.Device
	queue     hal.Queue
	resources *ResourceTable

	pipelines *pipelineSet

	targetFormat  gputypes.TextureFormat
	target        hal.Texture
	targetView    hal.TextureView
	targetW       uint32
	targetH       uint32
	external      bool
	clearColor    gputypes.Color
	framesFlushed uint64

	uiBuf       hal.Buffer
	uiBufCap    uint64
	debugBuf    hal.Buffer
	debugBufCap uint64
	screenBuf   hal.Buffer
	xformBuf    hal.Buffer

	debugBindGroup hal.BindGroup
}

// NewRenderSession creates a session rendering into textures of the given
// color format.
func NewRenderSession(device hal.Device, queue hal.Queue, resources *ResourceTable, targetFormat gputypes.TextureFormat) (*RenderSession, error) {
	if device == nil {
		return nil, ErrNilDevice
	}

	pipelines, err := newPipelineSet(device, targetFormat)
	if err != nil {
		return nil, err
	}

	s := &RenderSession{
		device:       device,
		queue:        queue,
		resources:    resources,
		pipelines:    pipelines,
		targetFormat: targetFormat,
		clearColor:   gputypes.Color{R: 0, G: 0, B: 0, A: 1},
	}

	if s.screenBuf, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gfx_screen_uniforms",
		Size:  ScreenUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	}); err != nil {
		s.Destroy()
		return nil, fmt.Errorf("create screen uniform buffer: %w", err)
	}
	if s.xformBuf, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gfx_transform_uniforms",
		Size:  TransformUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	}); err != nil {
		s.Destroy()
		return nil, fmt.Errorf("create transform uniform buffer: %w", err)
	}

	debugBindGroup, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "gfx_debug_bind",
		Layout: pipelines.debugBindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: s.xformBuf.NativeHandle(), Offset: 0, Size: TransformUniformSize,
			}},
		},
	})
	if err != nil {
		s.Destroy()
		return nil, fmt.Errorf("create debug bind group: %w", err)
	}
	s.debugBindGroup = debugBindGroup

	return s, nil
}

// SetClearColor sets the color the target is cleared to each frame.
func (s *RenderSession) SetClearColor(c gputypes.Color) { s.clearColor = c }

// TargetView returns the current render target view, or nil before the
// first EnsureTarget.
func (s *RenderSession) TargetView() hal.TextureView { return s.targetView }

// TargetSize returns the current render target dimensions.
func (s *RenderSession) TargetSize() (uint32, uint32) { return s.targetW, s.targetH }

// FramesFlushed returns the number of frames submitted so far.
func (s *RenderSession) FramesFlushed() uint64 { return s.framesFlushed }

// SetExternalTarget directs rendering into a caller-owned texture view,
// typically a surface swapchain image. The session never destroys it.
// Passing nil returns to the internally managed offscreen target.
func (s *RenderSession) SetExternalTarget(view hal.TextureView, width, height uint32) {
	s.destroyTarget()
	if view == nil {
		return
	}
	s.external = true
	s.targetView = view
	s.targetW = width
	s.targetH = height
}

// EnsureTarget makes sure the render target matches the given size,
// recreating it on resize. Externally owned targets are left as they are;
// the surface dictates their size.
func (s *RenderSession) EnsureTarget(width, height uint32) error {
	if s.external {
		return nil
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("gfx: render target size %dx%d", width, height)
	}
	if s.target != nil && s.targetW == width && s.targetH == height {
		return nil
	}
	s.destroyTarget()

	tex, err := s.device.CreateTexture(&hal.TextureDescriptor{
		Label: "gfx_render_target",
		Size: hal.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        s.targetFormat,
		Usage: gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create render target: %w", err)
	}
	view, err := s.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "gfx_render_target_view",
	})
	if err != nil {
		s.device.DestroyTexture(tex)
		return fmt.Errorf("create render target view: %w", err)
	}

	s.target = tex
	s.targetView = view
	s.targetW = width
	s.targetH = height
	return nil
}

// Submit uploads the encoder's sealed batch, encodes one render pass
// replaying its draw calls in recording order, submits, and waits for the
// frame fence. On success the encoder returns to Idle; on any failure the
// batch is aborted, pins are released, and the error is returned.
func (s *RenderSession) Submit(e *FrameEncoder) error {
	if e.State() != BatchReady {
		return fmt.Errorf("%w: Submit in %s", ErrInvalidState, e.State())
	}
	e.state = BatchSubmitted

	if err := s.encodeFrame(e); err != nil {
		e.Abort()
		Logger().Error("frame submission failed", "error", err)
		return err
	}

	e.releasePins()
	e.state = BatchIdle
	s.framesFlushed++
	return nil
}

func (s *RenderSession) encodeFrame(e *FrameEncoder) error {
	batch := &e.batch

	// Re-validate every referenced handle. A destroy between EndBatch and
	// Submit marks the handle retired and fails the whole frame here.
	for _, h := range batch.pinned {
		if _, err := s.resources.resolve(h); err != nil {
			return err
		}
	}

	screen := batch.screen
	if screen.Width <= 0 || screen.Height <= 0 {
		if s.targetView == nil {
			return fmt.Errorf("gfx: no screen size recorded and no render target")
		}
		screen = ScreenUniforms{Width: int32(s.targetW), Height: int32(s.targetH)}
	}

	// The target is sized in physical pixels. Without an explicit surface
	// size the screen size is taken as physical too (no UI scaling).
	surface := batch.surface
	if surface.Width <= 0 || surface.Height <= 0 {
		surface = screen
	}
	if err := s.EnsureTarget(uint32(surface.Width), uint32(surface.Height)); err != nil {
		return err
	}

	if err := s.uploadFrame(batch, screen); err != nil {
		return err
	}

	// One bind group per distinct texture for this frame, freed after the
	// fence signals.
	bindGroups := make(map[Handle]hal.BindGroup)
	defer func() {
		for _, bg := range bindGroups {
			s.device.DestroyBindGroup(bg)
		}
	}()

	encoder, err := s.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "gfx_frame_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("gfx_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "gfx_frame_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       s.targetView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: s.clearColor,
		}},
	})

	for _, call := range batch.calls {
		rp.SetPipeline(s.pipelines.forMode(call.Mode))

		if call.Mode.IsDebug() {
			rp.SetVertexBuffer(0, s.debugBuf, 0)
			rp.SetScissorRect(0, 0, s.targetW, s.targetH)
			rp.SetBindGroup(0, s.debugBindGroup, nil)
		} else {
			rp.SetVertexBuffer(0, s.uiBuf, 0)
			x, y, w, h := clampScissor(call.Clip, s.targetW, s.targetH)
			rp.SetScissorRect(x, y, w, h)

			bg, err := s.uiBindGroup(bindGroups, call.Texture)
			if err != nil {
				rp.End()
				return err
			}
			rp.SetBindGroup(0, bg, nil)
		}

		rp.Draw(call.Vertices.Count, 1, call.Vertices.First, 0)
	}
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer s.device.FreeCommandBuffer(cmdBuf)

	fence, err := s.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer s.device.DestroyFence(fence)

	if err := s.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := s.device.Wait(fence, 1, frameTimeout)
	if err != nil || !ok {
		return fmt.Errorf("wait for frame fence: ok=%v err=%w", ok, err)
	}
	return nil
}

// uploadFrame writes the batch's vertex streams and uniforms to the GPU.
func (s *RenderSession) uploadFrame(batch *DrawBatch, screen ScreenUniforms) error {
	if len(batch.uiVertices) > 0 {
		buf, err := s.ensureVertexBuffer(&s.uiBuf, &s.uiBufCap,
			uint64(len(batch.uiVertices)), "gfx_ui_vertices")
		if err != nil {
			return err
		}
		s.queue.WriteBuffer(buf, 0, batch.uiVertices)
	}
	if len(batch.debugVertices) > 0 {
		buf, err := s.ensureVertexBuffer(&s.debugBuf, &s.debugBufCap,
			uint64(len(batch.debugVertices)), "gfx_debug_vertices")
		if err != nil {
			return err
		}
		s.queue.WriteBuffer(buf, 0, batch.debugVertices)
	}

	s.queue.WriteBuffer(s.screenBuf, 0, screen.Encode(nil))
	s.queue.WriteBuffer(s.xformBuf, 0, batch.transform.Encode(nil))
	return nil
}

// ensureVertexBuffer grows a persistent vertex buffer to at least size
// bytes, doubling to limit reallocation churn.
func (s *RenderSession) ensureVertexBuffer(buf *hal.Buffer, capacity *uint64, size uint64, label string) (hal.Buffer, error) {
	if *buf != nil && *capacity >= size {
		return *buf, nil
	}
	if *buf != nil {
		s.device.DestroyBuffer(*buf)
		*buf = nil
	}
	newCap := *capacity
	if newCap == 0 {
		newCap = 64 * 1024
	}
	for newCap < size {
		newCap *= 2
	}
	b, err := s.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  newCap,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	*buf = b
	*capacity = newCap
	return b, nil
}

// uiBindGroup returns the frame's bind group for a texture handle,
// creating it on first use. A zero handle binds the built-in white texture.
func (s *RenderSession) uiBindGroup(cache map[Handle]hal.BindGroup, texture Handle) (hal.BindGroup, error) {
	if texture.IsZero() {
		texture = s.resources.WhiteTexture()
	}
	if bg, ok := cache[texture]; ok {
		return bg, nil
	}

	view, err := s.resources.textureView(texture)
	if err != nil {
		return nil, err
	}

	bg, err := s.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "gfx_ui_bind",
		Layout: s.pipelines.uiBindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: s.screenBuf.NativeHandle(), Offset: 0, Size: ScreenUniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{
				TextureView: view.NativeHandle(),
			}},
			{Binding: 2, Resource: gputypes.SamplerBinding{
				Sampler: s.resources.Sampler().NativeHandle(),
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create ui bind group: %w", err)
	}
	cache[texture] = bg
	return bg, nil
}

// clampScissor clamps a clip rect to the target bounds and converts it to
// the x/y/w/h form the scissor call takes.
func clampScissor(c ClipRect, targetW, targetH uint32) (x, y, w, h uint32) {
	left := clampI32(c.Left, 0, int32(targetW))
	top := clampI32(c.Top, 0, int32(targetH))
	right := clampI32(c.Right, left, int32(targetW))
	bottom := clampI32(c.Bottom, top, int32(targetH))
	return uint32(left), uint32(top), uint32(right - left), uint32(bottom - top)
}

func clampI32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// destroyTarget releases the render target texture and view. Externally
// owned views are detached, never destroyed.
func (s *RenderSession) destroyTarget() {
	if s.external {
		s.targetView = nil
		s.external = false
	} else {
		if s.targetView != nil {
			s.device.DestroyTextureView(s.targetView)
			s.targetView = nil
		}
		if s.target != nil {
			s.device.DestroyTexture(s.target)
			s.target = nil
		}
	}
	s.targetW = 0
	s.targetH = 0
}

// Destroy releases every GPU object the session owns. Safe on a partially
// constructed session.
func (s *RenderSession) Destroy() {
	s.destroyTarget()
	if s.debugBindGroup != nil {
		s.device.DestroyBindGroup(s.debugBindGroup)
		s.debugBindGroup = nil
	}
	if s.uiBuf != nil {
		s.device.DestroyBuffer(s.uiBuf)
		s.uiBuf = nil
	}
	if s.debugBuf != nil {
		s.device.DestroyBuffer(s.debugBuf)
		s.debugBuf = nil
	}
	if s.screenBuf != nil {
		s.device.DestroyBuffer(s.screenBuf)
		s.screenBuf = nil
	}
	if s.xformBuf != nil {
		s.device.DestroyBuffer(s.xformBuf)
		s.xformBuf = nil
	}
	if s.pipelines != nil {
		s.pipelines.Destroy()
		s.pipelines = nil
	}
}
