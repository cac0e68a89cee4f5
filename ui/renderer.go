package ui

import (
	"fmt"

	"toybox/gfx"
	"toybox/gfx/pack"
)

// Renderer converts a frame of clipped UI primitives into packed draw
// calls on a frame encoder. It holds no GPU state of its own; textures
// live in the TextureManager and geometry is staged per frame.
type Renderer struct {
	textures *TextureManager

	// scaling maps physical backbuffer pixels to logical UI points.
	scaling float32
}

// NewRenderer creates a renderer drawing textures from the given manager.
func NewRenderer(textures *TextureManager) *Renderer {
	return &Renderer{
		textures: textures,
		scaling:  1.0,
	}
}

// SetScaling sets the pixels-per-point factor. Values at or below zero
// reset it to 1.
func (r *Renderer) SetScaling(s float32) {
	if s <= 0 {
		s = 1.0
	}
	r.scaling = s
}

// Scaling returns the current pixels-per-point factor.
func (r *Renderer) Scaling() float32 { return r.scaling }

// Record stages every primitive's geometry into the encoder's current
// batch, in paint order. The logical screen size (backbuffer over scaling)
// feeds the vertex shader; the physical backbuffer size sizes the render
// target, and scissor rects are scaled into it. Must be called between
// BeginBatch and EndBatch.
//
// Meshes are flattened through their index lists on the CPU since draws
// are non-indexed. Attributes out of packable range are clamped and
// logged, never fatal. Primitives with a non-positive clip rect are
// skipped entirely.
func (r *Renderer) Record(frame *gfx.FrameEncoder, prims []ClippedPrimitive, backbufferW, backbufferH int32) error {
	logicalW := int32(float32(backbufferW) / r.scaling)
	logicalH := int32(float32(backbufferH) / r.scaling)
	if err := frame.SetScreenSize(logicalW, logicalH); err != nil {
		return err
	}
	if err := frame.SetSurfaceSize(backbufferW, backbufferH); err != nil {
		return err
	}

	overflows := 0
	scratch := make([]byte, 0, 4096)

	for i := range prims {
		prim := &prims[i]
		if !prim.Clip.IsPositive() {
			continue
		}
		mesh := &prim.Mesh
		if len(mesh.Indices) == 0 {
			continue
		}
		if len(mesh.Indices)%3 != 0 {
			return fmt.Errorf("ui: mesh %d has %d indices, not triangles", i, len(mesh.Indices))
		}

		clipLo, clipHi, clipClamped := pack.ClipRect(
			int32(prim.Clip.Left),
			int32(prim.Clip.Top),
			int32(prim.Clip.Right),
			int32(prim.Clip.Bottom),
		)
		if clipClamped {
			overflows++
		}

		scratch = scratch[:0]
		for _, idx := range mesh.Indices {
			if int(idx) >= len(mesh.Vertices) {
				return fmt.Errorf("ui: mesh %d index %d out of range (%d vertices)",
					i, idx, len(mesh.Vertices))
			}
			v := &mesh.Vertices[idx]
			uv, uvClamped := pack.UV(v.U, v.V)
			if uvClamped {
				overflows++
			}
			color := pack.Color(v.Color[0], v.Color[1], v.Color[2], v.Color[3])
			scratch = pack.AppendUI(scratch, v.X, v.Y, uv, color, clipLo, clipHi)
		}

		vr, err := frame.StageUI(scratch)
		if err != nil {
			return err
		}

		texture, _ := r.textures.Handle(mesh.Texture)
		mode := gfx.ModeUI
		if r.textures.IsFontImage(mesh.Texture) {
			mode = gfx.ModeUIText
		}

		// The scissor works in physical pixels; clip rects arrive in
		// logical points.
		err = frame.PushDraw(gfx.DrawCall{
			Mode:     mode,
			Vertices: vr,
			Texture:  texture,
			Clip: gfx.ClipRect{
				Left:   int32(prim.Clip.Left * r.scaling),
				Top:    int32(prim.Clip.Top * r.scaling),
				Right:  int32(prim.Clip.Right*r.scaling + 0.5),
				Bottom: int32(prim.Clip.Bottom*r.scaling + 0.5),
			},
		})
		if err != nil {
			return err
		}
	}

	if overflows > 0 {
		gfx.Logger().Warn("clamped UI vertex attributes",
			"count", overflows, "error", gfx.ErrPackingOverflow)
	}
	return nil
}
