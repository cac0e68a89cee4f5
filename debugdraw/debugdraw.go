// Package debugdraw accumulates immediate-mode 3D debug geometry (colored
// lines and triangles) and flushes it into a frame batch as transform-space
// draw calls.
package debugdraw

import (
	"toybox/gfx"
	"toybox/gfx/pack"
)

// Vec3 is a 3D position in world space.
type Vec3 struct {
	X, Y, Z float32
}

// Painter collects one frame of debug geometry. Lines and triangles go to
// separate streams since they draw with different primitive topologies.
// Color is sticky: SetColor applies to everything pushed after it.
//
// Painter is not safe for concurrent use.
type Painter struct {
	color uint32

	lines []byte
	tris  []byte

	lineVerts uint32
	triVerts  uint32
}

// NewPainter creates a painter drawing in opaque white.
func NewPainter() *Painter {
	return &Painter{color: pack.Color(255, 255, 255, 255)}
}

// SetColor sets the sRGB color applied to subsequently pushed geometry.
func (p *Painter) SetColor(r, g, b, a uint8) {
	p.color = pack.Color(r, g, b, a)
}

// Line pushes one line segment.
func (p *Painter) Line(a, b Vec3) {
	p.lines = pack.AppendDebug(p.lines, a.X, a.Y, a.Z, p.color)
	p.lines = pack.AppendDebug(p.lines, b.X, b.Y, b.Z, p.color)
	p.lineVerts += 2
}

// Triangle pushes one filled triangle.
func (p *Painter) Triangle(a, b, c Vec3) {
	p.tris = pack.AppendDebug(p.tris, a.X, a.Y, a.Z, p.color)
	p.tris = pack.AppendDebug(p.tris, b.X, b.Y, b.Z, p.color)
	p.tris = pack.AppendDebug(p.tris, c.X, c.Y, c.Z, p.color)
	p.triVerts += 3
}

// Quad pushes a filled quadrilateral as two triangles. Vertices wind
// a-b-c-d around the perimeter.
func (p *Painter) Quad(a, b, c, d Vec3) {
	p.Triangle(a, b, c)
	p.Triangle(a, c, d)
}

// WireBox pushes the twelve edges of the axis-aligned box spanning min to
// max.
func (p *Painter) WireBox(min, max Vec3) {
	corners := [8]Vec3{
		{min.X, min.Y, min.Z},
		{max.X, min.Y, min.Z},
		{max.X, max.Y, min.Z},
		{min.X, max.Y, min.Z},
		{min.X, min.Y, max.Z},
		{max.X, min.Y, max.Z},
		{max.X, max.Y, max.Z},
		{min.X, max.Y, max.Z},
	}
	edges := [12][2]int{
		{0, 1}, {1, 2}, {2, 3}, {3, 0}, // bottom
		{4, 5}, {5, 6}, {6, 7}, {7, 4}, // top
		{0, 4}, {1, 5}, {2, 6}, {3, 7}, // verticals
	}
	for _, e := range edges {
		p.Line(corners[e[0]], corners[e[1]])
	}
}

// Axes pushes three colored axis lines of the given length at the origin:
// X red, Y green, Z blue. The sticky color is restored afterwards.
func (p *Painter) Axes(origin Vec3, length float32) {
	saved := p.color

	p.color = pack.Color(255, 0, 0, 255)
	p.Line(origin, Vec3{origin.X + length, origin.Y, origin.Z})
	p.color = pack.Color(0, 255, 0, 255)
	p.Line(origin, Vec3{origin.X, origin.Y + length, origin.Z})
	p.color = pack.Color(0, 0, 255, 255)
	p.Line(origin, Vec3{origin.X, origin.Y, origin.Z + length})

	p.color = saved
}

// LineCount returns the number of pending line segments.
func (p *Painter) LineCount() int { return int(p.lineVerts) / 2 }

// TriangleCount returns the number of pending triangles.
func (p *Painter) TriangleCount() int { return int(p.triVerts) / 3 }

// Empty reports whether the painter holds no geometry.
func (p *Painter) Empty() bool { return p.lineVerts == 0 && p.triVerts == 0 }

// Reset discards all pending geometry, keeping the buffers for reuse.
func (p *Painter) Reset() {
	p.lines = p.lines[:0]
	p.tris = p.tris[:0]
	p.lineVerts = 0
	p.triVerts = 0
}

// Flush stages the pending geometry into the encoder's current batch
// (triangles first, then lines on top) and resets the painter. Must be
// called between BeginBatch and EndBatch.
func (p *Painter) Flush(frame *gfx.FrameEncoder) error {
	if p.triVerts > 0 {
		vr, err := frame.StageDebug(p.tris)
		if err != nil {
			return err
		}
		if err := frame.PushDraw(gfx.DrawCall{Mode: gfx.ModeDebug, Vertices: vr}); err != nil {
			return err
		}
	}
	if p.lineVerts > 0 {
		vr, err := frame.StageDebug(p.lines)
		if err != nil {
			return err
		}
		if err := frame.PushDraw(gfx.DrawCall{Mode: gfx.ModeDebugLines, Vertices: vr}); err != nil {
			return err
		}
	}
	p.Reset()
	return nil
}
