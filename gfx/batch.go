package gfx

import (
	"errors"
	"fmt"

	"toybox/gfx/pack"
)

// ErrInvalidState is returned when a batch operation is called outside the
// state that allows it.
var ErrInvalidState = errors.New("gfx: invalid batch state")

// ErrPackingOverflow reports that vertex attributes were clamped during
// packing. It is advisory: callers log it and keep the clamped values
// rather than failing the frame.
var ErrPackingOverflow = errors.New("gfx: vertex attribute out of packable range")

// Vertex strides of the two staged streams, re-exported from the packing
// package so callers of the encoder need only one import.
const (
	StrideUI    = pack.StrideUI
	StrideDebug = pack.StrideDebug
)

// BatchState tracks the lifecycle of the per-frame draw batch.
type BatchState int

const (
	// BatchIdle means no batch is open. BeginBatch is the only valid call.
	BatchIdle BatchState = iota

	// BatchRecording means vertex data and draw calls are being staged.
	BatchRecording

	// BatchReady means the batch is sealed and waiting for submission.
	BatchReady

	// BatchSubmitted means the batch is on the GPU queue. Transient; the
	// encoder returns to BatchIdle when the frame fence signals.
	BatchSubmitted
)

// String returns a human-readable name for the batch state.
func (s BatchState) String() string {
	switch s {
	case BatchIdle:
		return "Idle"
	case BatchRecording:
		return "Recording"
	case BatchReady:
		return "Ready"
	case BatchSubmitted:
		return "Submitted"
	default:
		return fmt.Sprintf("BatchState(%d)", int(s))
	}
}

// DrawMode selects which pipeline a draw call runs on.
type DrawMode int

const (
	// ModeUI renders packed 2D vertices sampling an RGBA texture.
	ModeUI DrawMode = iota

	// ModeUIText renders packed 2D vertices sampling an alpha-only glyph
	// atlas, broadcasting the red channel as coverage.
	ModeUIText

	// ModeDebug renders 3D colored triangles through the transform matrix.
	ModeDebug

	// ModeDebugLines renders 3D colored line segments through the
	// transform matrix.
	ModeDebugLines
)

// IsDebug reports whether the mode draws from the 3D debug vertex stream.
func (m DrawMode) IsDebug() bool {
	return m == ModeDebug || m == ModeDebugLines
}

// String returns a human-readable name for the draw mode.
func (m DrawMode) String() string {
	switch m {
	case ModeUI:
		return "UI"
	case ModeUIText:
		return "UIText"
	case ModeDebug:
		return "Debug"
	case ModeDebugLines:
		return "DebugLines"
	default:
		return fmt.Sprintf("DrawMode(%d)", int(m))
	}
}

// VertexRange names a contiguous run of vertices in a staged stream.
type VertexRange struct {
	First uint32
	Count uint32
}

// ClipRect is a pixel-space scissor rectangle, left/top inclusive,
// right/bottom exclusive.
type ClipRect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

// Empty reports whether the rectangle covers no pixels.
func (c ClipRect) Empty() bool {
	return c.Right <= c.Left || c.Bottom <= c.Top
}

// DrawCall is one recorded draw: a vertex range on one pipeline, with the
// texture to bind and the scissor to apply. A zero Texture handle binds the
// built-in white texture. Clip is in physical target pixels and is ignored
// for the debug modes.
type DrawCall struct {
	Mode     DrawMode
	Vertices VertexRange
	Texture  Handle
	Clip     ClipRect
}

// DrawBatch accumulates one frame of staged vertex data and draw calls.
// Batches are recorded through the FrameEncoder and consumed by Submit.
type DrawBatch struct {
	uiVertices    []byte
	debugVertices []byte
	calls         []DrawCall

	screen    ScreenUniforms
	surface   ScreenUniforms
	transform TransformUniforms

	// pinned lists the resource handles the batch references, so destroys
	// between EndBatch and Submit fail fast instead of dangling.
	pinned []Handle
}

// UIVertexCount returns the number of staged UI vertices.
func (b *DrawBatch) UIVertexCount() uint32 {
	return uint32(len(b.uiVertices) / StrideUI)
}

// DebugVertexCount returns the number of staged debug vertices.
func (b *DrawBatch) DebugVertexCount() uint32 {
	return uint32(len(b.debugVertices) / StrideDebug)
}

// Calls returns the recorded draw calls in submission order.
func (b *DrawBatch) Calls() []DrawCall { return b.calls }

// FrameEncoder records one frame's draw batch at a time. It owns the state
// machine guarding the record/seal/submit cycle and stages all vertex data
// CPU-side until Submit uploads it in one pass.
//
// FrameEncoder is NOT safe for concurrent use; it lives on the thread that
// owns the device.
type FrameEncoder struct {
	resources *ResourceTable

	state BatchState
	batch DrawBatch
}

// NewFrameEncoder creates an encoder recording against the given table.
func NewFrameEncoder(resources *ResourceTable) *FrameEncoder {
	return &FrameEncoder{resources: resources}
}

// State returns the current batch state.
func (e *FrameEncoder) State() BatchState { return e.state }

// BeginBatch opens a new empty batch. The previous frame's staging storage
// is reused.
func (e *FrameEncoder) BeginBatch() error {
	if e.state != BatchIdle {
		return fmt.Errorf("%w: BeginBatch in %s", ErrInvalidState, e.state)
	}
	e.batch.uiVertices = e.batch.uiVertices[:0]
	e.batch.debugVertices = e.batch.debugVertices[:0]
	e.batch.calls = e.batch.calls[:0]
	e.batch.pinned = e.batch.pinned[:0]
	e.batch.screen = ScreenUniforms{}
	e.batch.surface = ScreenUniforms{}
	e.batch.transform = IdentityTransform()
	e.state = BatchRecording
	return nil
}

// StageUI appends packed UI vertex bytes to the batch and returns the range
// they occupy. The data length must be a whole number of UI vertices.
func (e *FrameEncoder) StageUI(data []byte) (VertexRange, error) {
	if e.state != BatchRecording {
		return VertexRange{}, fmt.Errorf("%w: StageUI in %s", ErrInvalidState, e.state)
	}
	if len(data)%StrideUI != 0 {
		return VertexRange{}, fmt.Errorf("gfx: UI vertex data length %d not a multiple of %d",
			len(data), StrideUI)
	}
	first := uint32(len(e.batch.uiVertices) / StrideUI)
	e.batch.uiVertices = append(e.batch.uiVertices, data...)
	return VertexRange{First: first, Count: uint32(len(data) / StrideUI)}, nil
}

// StageDebug appends packed debug vertex bytes to the batch and returns the
// range they occupy. The data length must be a whole number of debug
// vertices.
func (e *FrameEncoder) StageDebug(data []byte) (VertexRange, error) {
	if e.state != BatchRecording {
		return VertexRange{}, fmt.Errorf("%w: StageDebug in %s", ErrInvalidState, e.state)
	}
	if len(data)%StrideDebug != 0 {
		return VertexRange{}, fmt.Errorf("gfx: debug vertex data length %d not a multiple of %d",
			len(data), StrideDebug)
	}
	first := uint32(len(e.batch.debugVertices) / StrideDebug)
	e.batch.debugVertices = append(e.batch.debugVertices, data...)
	return VertexRange{First: first, Count: uint32(len(data) / StrideDebug)}, nil
}

// PushDraw records a draw call over previously staged vertices. The texture
// handle is validated immediately; recording order is submission order.
// Draws with an empty vertex range or, for UI modes, an empty clip rect are
// dropped here rather than reaching the GPU.
func (e *FrameEncoder) PushDraw(call DrawCall) error {
	if e.state != BatchRecording {
		return fmt.Errorf("%w: PushDraw in %s", ErrInvalidState, e.state)
	}

	var staged uint32
	if call.Mode.IsDebug() {
		staged = e.batch.DebugVertexCount()
	} else {
		staged = e.batch.UIVertexCount()
	}
	if call.Vertices.First+call.Vertices.Count > staged {
		return fmt.Errorf("gfx: draw range %d..%d exceeds %d staged %s vertices",
			call.Vertices.First, call.Vertices.First+call.Vertices.Count, staged, call.Mode)
	}

	if !call.Texture.IsZero() {
		if _, err := e.resources.textureView(call.Texture); err != nil {
			return err
		}
	}

	if call.Vertices.Count == 0 {
		return nil
	}
	if !call.Mode.IsDebug() && call.Clip.Empty() {
		return nil
	}

	e.batch.calls = append(e.batch.calls, call)
	return nil
}

// SetScreenSize records the logical screen size for the frame's UI draws.
// The UI vertex positions and shader-side clip distances work in this space.
func (e *FrameEncoder) SetScreenSize(width, height int32) error {
	if e.state != BatchRecording {
		return fmt.Errorf("%w: SetScreenSize in %s", ErrInvalidState, e.state)
	}
	e.batch.screen = ScreenUniforms{Width: width, Height: height}
	return nil
}

// SetSurfaceSize records the physical render target size in pixels for the
// frame. It differs from the screen size when UI scaling is in effect; the
// scissor rects and the render target are sized in this space. Unset, the
// target is sized from the screen size.
func (e *FrameEncoder) SetSurfaceSize(width, height int32) error {
	if e.state != BatchRecording {
		return fmt.Errorf("%w: SetSurfaceSize in %s", ErrInvalidState, e.state)
	}
	e.batch.surface = ScreenUniforms{Width: width, Height: height}
	return nil
}

// SetTransform records the view-projection matrix for the frame's debug
// draws.
func (e *FrameEncoder) SetTransform(t TransformUniforms) error {
	if e.state != BatchRecording {
		return fmt.Errorf("%w: SetTransform in %s", ErrInvalidState, e.state)
	}
	e.batch.transform = t
	return nil
}

// EndBatch seals the batch for submission and pins every referenced
// resource handle. Destroying a pinned handle before the batch is submitted
// or aborted fails with ErrInvalidHandle.
func (e *FrameEncoder) EndBatch() error {
	if e.state != BatchRecording {
		return fmt.Errorf("%w: EndBatch in %s", ErrInvalidState, e.state)
	}
	for _, call := range e.batch.calls {
		if call.Texture.IsZero() {
			continue
		}
		if err := e.resources.pin(call.Texture); err != nil {
			// Referenced handle died during recording. Unwind the pins
			// already taken and leave the encoder recording.
			for _, h := range e.batch.pinned {
				e.resources.unpin(h)
			}
			e.batch.pinned = e.batch.pinned[:0]
			return err
		}
		e.batch.pinned = append(e.batch.pinned, call.Texture)
	}
	e.state = BatchReady
	return nil
}

// Batch returns the encoder's current batch for inspection. The returned
// batch is owned by the encoder and reused across frames; callers must not
// retain it past the next BeginBatch.
func (e *FrameEncoder) Batch() *DrawBatch { return &e.batch }

// Abort discards the current batch from any state and returns the encoder
// to Idle, releasing any pins.
func (e *FrameEncoder) Abort() {
	e.releasePins()
	e.state = BatchIdle
}

// releasePins drops the batch's handle pins.
func (e *FrameEncoder) releasePins() {
	for _, h := range e.batch.pinned {
		e.resources.unpin(h)
	}
	e.batch.pinned = e.batch.pinned[:0]
}
