package gfx

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Resource table errors.
var (
	// ErrInvalidHandle is returned when an operation references a stale,
	// unknown, or retired resource handle.
	ErrInvalidHandle = errors.New("gfx: invalid resource handle")

	// ErrWrongKind is returned when a handle resolves but names a resource
	// of a different kind than the operation expects.
	ErrWrongKind = errors.New("gfx: handle kind mismatch")

	// ErrNilDevice is returned when constructing GPU-facing objects without
	// a device.
	ErrNilDevice = errors.New("gfx: device is nil")

	// ErrEmptyShaderSource is returned when a program is created with
	// neither WGSL nor SPIR-V source.
	ErrEmptyShaderSource = errors.New("gfx: shader source is empty")
)

// BufferDesc describes a buffer to create.
type BufferDesc struct {
	// Label is an optional debug name carried onto the GPU object.
	Label string

	// Size is the buffer size in bytes. Ignored if Data is set.
	Size uint64

	// Usage specifies how the buffer will be used.
	Usage gputypes.BufferUsage

	// Data is optional initial contents, uploaded through the queue.
	Data []byte
}

// TextureDesc describes a 2D texture to create.
type TextureDesc struct {
	// Label is an optional debug name carried onto the GPU object.
	Label string

	// Width and Height are the texture dimensions in pixels.
	Width  uint32
	Height uint32

	// Format is the pixel format. RGBA8Unorm and R8Unorm (alpha-only glyph
	// atlases) are the formats the UI pipelines sample.
	Format gputypes.TextureFormat

	// Data is optional initial contents, tightly packed rows.
	Data []byte
}

// ProgramDesc describes a shader program to create. Exactly one of WGSL or
// SPIRV must be set; when both are present the precompiled SPIR-V wins.
type ProgramDesc struct {
	Label string
	WGSL  string
	SPIRV []uint32
}

// slot is one entry in the dense resource table.
type slot struct {
	generation uint32
	kind       ResourceKind
	live       bool

	// pins counts not-yet-submitted batches referencing this slot.
	// retired marks a destroy that was refused while pinned.
	pins    int
	retired bool

	label string

	buffer hal.Buffer
	bufLen uint64

	texture hal.Texture
	view    hal.TextureView
	width   uint32
	height  uint32
	format  gputypes.TextureFormat

	shader hal.ShaderModule
}

// ResourceTable owns every GPU buffer, texture, and shader program behind
// opaque generation-tagged handles. No other component touches GPU-resident
// memory directly; all mutations (create, update, destroy) go through the
// table and are serialized with frame submission on the owning thread.
//
// ResourceTable is NOT safe for concurrent use. The whole rendering pipeline
// is single-threaded on the thread owning the graphics device.
type ResourceTable struct {
	device hal.Device
	queue  hal.Queue

	slots []slot
	free  []uint32
	live  int

	// Built-ins: a 1x1 white texture for untextured draws and a
	// nearest-filter clamp sampler shared by the UI pipelines.
	white   Handle
	sampler hal.Sampler
}

// NewResourceTable creates a resource table over the given device and queue
// and allocates the built-in white texture and sampler.
func NewResourceTable(device hal.Device, queue hal.Queue) (*ResourceTable, error) {
	if device == nil {
		return nil, ErrNilDevice
	}

	t := &ResourceTable{
		device: device,
		queue:  queue,
	}

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "gfx_nearest_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}
	t.sampler = sampler

	white, err := t.CreateTexture(TextureDesc{
		Label:  "gfx_blank_white",
		Width:  1,
		Height: 1,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Data:   []byte{255, 255, 255, 255},
	})
	if err != nil {
		device.DestroySampler(sampler)
		return nil, fmt.Errorf("create blank white texture: %w", err)
	}
	t.white = white

	return t, nil
}

// WhiteTexture returns the built-in 1x1 white texture. Draw calls with a
// zero texture handle bind this instead.
func (t *ResourceTable) WhiteTexture() Handle { return t.white }

// Sampler returns the built-in nearest-filter clamp sampler.
func (t *ResourceTable) Sampler() hal.Sampler { return t.sampler }

// LiveCount returns the number of live resources in the table.
func (t *ResourceTable) LiveCount() int { return t.live }

// alloc takes a free slot (or grows the table) and returns its handle.
// Generations start at 1 so the zero Handle never resolves.
func (t *ResourceTable) alloc(kind ResourceKind) (Handle, *slot) {
	var index uint32
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		index = uint32(len(t.slots))
		t.slots = append(t.slots, slot{})
	}

	s := &t.slots[index]
	s.generation++
	s.kind = kind
	s.live = true
	s.pins = 0
	s.retired = false
	t.live++

	return Handle{index: index, generation: s.generation, kind: kind}, s
}

// resolve returns the slot named by h, or ErrInvalidHandle if h is zero,
// stale, retired, or out of range.
func (t *ResourceTable) resolve(h Handle) (*slot, error) {
	if h.IsZero() || int(h.index) >= len(t.slots) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, h)
	}
	s := &t.slots[h.index]
	if !s.live || s.generation != h.generation {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, h)
	}
	if s.retired {
		return nil, fmt.Errorf("%w: %v destroyed while referenced", ErrInvalidHandle, h)
	}
	if s.kind != h.kind {
		return nil, fmt.Errorf("%w: %v", ErrWrongKind, h)
	}
	return s, nil
}

// CreateBuffer creates a GPU buffer and optionally uploads initial data.
func (t *ResourceTable) CreateBuffer(desc BufferDesc) (Handle, error) {
	size := desc.Size
	if desc.Data != nil {
		size = uint64(len(desc.Data))
	}
	if size == 0 {
		return Handle{}, fmt.Errorf("gfx: buffer %q has zero size", desc.Label)
	}

	buf, err := t.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: desc.Usage,
	})
	if err != nil {
		return Handle{}, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}
	if desc.Data != nil {
		t.queue.WriteBuffer(buf, 0, desc.Data)
	}

	h, s := t.alloc(KindBuffer)
	s.label = desc.Label
	s.buffer = buf
	s.bufLen = size
	return h, nil
}

// UpdateBuffer overwrites a byte range of a live buffer through the queue.
func (t *ResourceTable) UpdateBuffer(h Handle, offset uint64, data []byte) error {
	s, err := t.resolve(h)
	if err != nil {
		return err
	}
	if s.kind != KindBuffer {
		return fmt.Errorf("%w: %v is not a buffer", ErrWrongKind, h)
	}
	if offset+uint64(len(data)) > s.bufLen {
		return fmt.Errorf("gfx: update of %v out of bounds: offset %d + len %d > size %d",
			h, offset, len(data), s.bufLen)
	}
	t.queue.WriteBuffer(s.buffer, offset, data)
	return nil
}

// CreateTexture creates a 2D texture with its default sampling view and
// optionally uploads initial pixel data (tightly packed rows).
func (t *ResourceTable) CreateTexture(desc TextureDesc) (Handle, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return Handle{}, fmt.Errorf("gfx: texture %q has zero dimensions", desc.Label)
	}

	tex, err := t.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return Handle{}, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}

	view, err := t.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: desc.Label + " view",
	})
	if err != nil {
		t.device.DestroyTexture(tex)
		return Handle{}, fmt.Errorf("create texture view %q: %w", desc.Label, err)
	}

	h, s := t.alloc(KindTexture)
	s.label = desc.Label
	s.texture = tex
	s.view = view
	s.width = desc.Width
	s.height = desc.Height
	s.format = desc.Format

	if desc.Data != nil {
		if err := t.UpdateTexture(h, 0, 0, desc.Width, desc.Height, desc.Data); err != nil {
			_ = t.Destroy(h)
			return Handle{}, err
		}
	}
	return h, nil
}

// UpdateTexture writes a sub-rectangle of pixel data (tightly packed rows)
// into a live texture through the queue.
func (t *ResourceTable) UpdateTexture(h Handle, x, y, w, ht uint32, data []byte) error {
	s, err := t.resolve(h)
	if err != nil {
		return err
	}
	if s.kind != KindTexture {
		return fmt.Errorf("%w: %v is not a texture", ErrWrongKind, h)
	}
	if x+w > s.width || y+ht > s.height {
		return fmt.Errorf("gfx: update of %v out of bounds: rect (%d,%d %dx%d) > texture %dx%d",
			h, x, y, w, ht, s.width, s.height)
	}

	bpp := formatBytesPerPixel(s.format)
	if uint64(len(data)) < uint64(w)*uint64(ht)*uint64(bpp) {
		return fmt.Errorf("gfx: update of %v short data: have %d bytes, need %d",
			h, len(data), uint64(w)*uint64(ht)*uint64(bpp))
	}

	t.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  s.texture,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: x, Y: y, Z: 0},
			Aspect:   gputypes.TextureAspectAll,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * bpp,
			RowsPerImage: ht,
		},
		&hal.Extent3D{Width: w, Height: ht, DepthOrArrayLayers: 1},
	)
	return nil
}

// CreateProgram compiles a shader program. Precompiled SPIR-V is passed
// through as-is; otherwise the WGSL source goes to the HAL directly. Use
// CompileShaderToSPIRV to target backends that want SPIR-V up front.
func (t *ResourceTable) CreateProgram(desc ProgramDesc) (Handle, error) {
	source := hal.ShaderSource{}
	switch {
	case len(desc.SPIRV) > 0:
		source.SPIRV = desc.SPIRV
	case desc.WGSL != "":
		source.WGSL = desc.WGSL
	default:
		return Handle{}, fmt.Errorf("%w: %q", ErrEmptyShaderSource, desc.Label)
	}

	module, err := t.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: source,
	})
	if err != nil {
		return Handle{}, fmt.Errorf("create program %q: %w", desc.Label, err)
	}

	h, s := t.alloc(KindProgram)
	s.label = desc.Label
	s.shader = module
	return h, nil
}

// Destroy releases the resource named by h and invalidates the handle.
//
// Destroying a handle still referenced by a not-yet-submitted batch is a
// use-after-free: it fails fast with ErrInvalidHandle, marks the handle
// retired so submitting the referencing batch also fails, and leaves the
// live count unchanged. Once the batch is submitted or aborted the pins
// release and Destroy succeeds.
func (t *ResourceTable) Destroy(h Handle) error {
	if h.IsZero() || int(h.index) >= len(t.slots) {
		return fmt.Errorf("%w: %v", ErrInvalidHandle, h)
	}
	s := &t.slots[h.index]
	if !s.live || s.generation != h.generation || s.kind != h.kind {
		return fmt.Errorf("%w: %v", ErrInvalidHandle, h)
	}

	if s.pins > 0 {
		s.retired = true
		Logger().Error("destroy of handle referenced by pending batch",
			"handle", h.String(), "pins", s.pins)
		return fmt.Errorf("%w: %v referenced by pending batch", ErrInvalidHandle, h)
	}

	switch s.kind {
	case KindBuffer:
		t.device.DestroyBuffer(s.buffer)
	case KindTexture:
		t.device.DestroyTextureView(s.view)
		t.device.DestroyTexture(s.texture)
	case KindProgram:
		t.device.DestroyShaderModule(s.shader)
	}

	t.slots[h.index] = slot{generation: s.generation}
	t.free = append(t.free, h.index)
	t.live--
	return nil
}

// Close releases every live resource and the built-ins. The table must not
// be used afterwards.
func (t *ResourceTable) Close() {
	for i := range t.slots {
		s := &t.slots[i]
		if !s.live {
			continue
		}
		switch s.kind {
		case KindBuffer:
			t.device.DestroyBuffer(s.buffer)
		case KindTexture:
			t.device.DestroyTextureView(s.view)
			t.device.DestroyTexture(s.texture)
		case KindProgram:
			t.device.DestroyShaderModule(s.shader)
		}
		s.live = false
	}
	t.live = 0
	t.slots = nil
	t.free = nil
	if t.sampler != nil {
		t.device.DestroySampler(t.sampler)
		t.sampler = nil
	}
}

// pin marks h as referenced by a pending batch. Stale handles fail.
func (t *ResourceTable) pin(h Handle) error {
	s, err := t.resolve(h)
	if err != nil {
		return err
	}
	s.pins++
	return nil
}

// unpin releases one pending-batch reference on h. Stale or retired handles
// are unpinned anyway so the destroy refusal can clear.
func (t *ResourceTable) unpin(h Handle) {
	if h.IsZero() || int(h.index) >= len(t.slots) {
		return
	}
	s := &t.slots[h.index]
	if !s.live || s.generation != h.generation {
		return
	}
	if s.pins > 0 {
		s.pins--
	}
	if s.pins == 0 {
		s.retired = false
	}
}

// textureView returns the sampling view of a live texture handle.
func (t *ResourceTable) textureView(h Handle) (hal.TextureView, error) {
	s, err := t.resolve(h)
	if err != nil {
		return nil, err
	}
	if s.kind != KindTexture {
		return nil, fmt.Errorf("%w: %v is not a texture", ErrWrongKind, h)
	}
	return s.view, nil
}

// textureFormat returns the pixel format of a live texture handle.
func (t *ResourceTable) textureFormat(h Handle) (gputypes.TextureFormat, error) {
	s, err := t.resolve(h)
	if err != nil {
		return 0, err
	}
	return s.format, nil
}

// shaderModule returns the compiled module of a live program handle.
func (t *ResourceTable) shaderModule(h Handle) (hal.ShaderModule, error) {
	s, err := t.resolve(h)
	if err != nil {
		return nil, err
	}
	if s.kind != KindProgram {
		return nil, fmt.Errorf("%w: %v is not a program", ErrWrongKind, h)
	}
	return s.shader, nil
}

// formatBytesPerPixel returns the byte size of one pixel for the formats
// the table uploads. Unknown formats default to 4.
func formatBytesPerPixel(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	default:
		return 4
	}
}
