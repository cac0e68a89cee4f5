// Package ui bridges an immediate-mode UI library's frame output (clipped,
// textured triangle meshes) to the gfx rendering system. It owns the
// texture atlas lifecycle and the conversion of UI meshes into packed
// vertex streams.
package ui

// TextureID names a UI-side texture. The UI library allocates these; the
// TextureManager maps them to GPU resource handles.
type TextureID uint64

// Vertex is one UI vertex as the UI library produces it: a position in
// logical points, a normalized texture coordinate, and an sRGB-encoded
// premultiplied color.
type Vertex struct {
	X, Y  float32
	U, V  float32
	Color [4]uint8
}

// Mesh is a run of indexed triangles sharing one texture. Indices are
// 16-bit; larger meshes must be split by the producer.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint16
	Texture  TextureID
}

// Rect is an axis-aligned rectangle in logical points, Y-down.
type Rect struct {
	Left, Top, Right, Bottom float32
}

// IsPositive reports whether the rectangle covers a positive area.
func (r Rect) IsPositive() bool {
	return r.Right > r.Left && r.Bottom > r.Top
}

// ClippedPrimitive is one mesh with the clip rectangle it must not paint
// outside of.
type ClippedPrimitive struct {
	Clip Rect
	Mesh Mesh
}

// ImageKind distinguishes the two pixel layouts the UI library uploads.
type ImageKind int

const (
	// ImageColor is 4-byte RGBA pixel data.
	ImageColor ImageKind = iota

	// ImageFont is 1-byte alpha coverage, used for glyph atlases.
	ImageFont
)

// ImageDelta is one texture upload from the UI library: either a whole
// image (Pos nil) or a sub-rectangle patch at Pos.
type ImageDelta struct {
	Kind   ImageKind
	Pos    *[2]int
	Width  int
	Height int
	Pixels []byte
}
