package gfx

import "fmt"

// ResourceKind identifies what a Handle refers to.
type ResourceKind uint8

const (
	// KindInvalid is the kind of the zero Handle.
	KindInvalid ResourceKind = iota

	// KindBuffer is a GPU buffer resource.
	KindBuffer

	// KindTexture is a GPU texture resource (with its default view).
	KindTexture

	// KindProgram is a compiled shader module.
	KindProgram
)

// String returns the string representation of ResourceKind.
func (k ResourceKind) String() string {
	switch k {
	case KindInvalid:
		return "Invalid"
	case KindBuffer:
		return "Buffer"
	case KindTexture:
		return "Texture"
	case KindProgram:
		return "Program"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Handle is an opaque reference to a GPU resource owned by a ResourceTable.
//
// A Handle is a generation-tagged index into the table's dense slot array:
// the index locates the slot, the generation detects staleness. Destroying a
// resource bumps the slot's generation, so every Handle that named the
// destroyed resource resolves to ErrInvalidHandle afterwards instead of
// silently aliasing whatever reuses the slot.
//
// The zero Handle is invalid and never resolves.
type Handle struct {
	index      uint32
	generation uint32
	kind       ResourceKind
}

// Kind returns what the handle refers to, or KindInvalid for the zero
// Handle.
func (h Handle) Kind() ResourceKind { return h.kind }

// IsZero reports whether h is the zero (never valid) Handle.
func (h Handle) IsZero() bool { return h == Handle{} }

// String returns a debug representation of the handle.
func (h Handle) String() string {
	if h.IsZero() {
		return "Handle(zero)"
	}
	return fmt.Sprintf("Handle(%s %d.%d)", h.kind, h.index, h.generation)
}
