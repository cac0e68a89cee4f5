package ui

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"

	"toybox/gfx"
)

// textureEntry tracks one UI texture on the GPU.
type textureEntry struct {
	handle gfx.Handle
	font   bool
}

// TextureManager maps UI-side texture IDs to GPU texture handles and
// applies the per-frame upload deltas the UI library emits. Font atlases
// are kept single-channel; everything else is RGBA.
type TextureManager struct {
	table   *gfx.ResourceTable
	entries map[TextureID]textureEntry
}

// NewTextureManager creates a manager allocating through the given table.
func NewTextureManager(table *gfx.ResourceTable) *TextureManager {
	return &TextureManager{
		table:   table,
		entries: make(map[TextureID]textureEntry),
	}
}

// Handle returns the GPU handle for id. The zero Handle (and false) means
// the id is unknown; draws then fall back to the built-in white texture.
func (m *TextureManager) Handle(id TextureID) (gfx.Handle, bool) {
	e, ok := m.entries[id]
	return e.handle, ok
}

// IsFontImage reports whether id names an alpha-only glyph atlas.
func (m *TextureManager) IsFontImage(id TextureID) bool {
	return m.entries[id].font
}

// Count returns the number of tracked textures.
func (m *TextureManager) Count() int { return len(m.entries) }

// Apply uploads one texture delta. A delta without a position replaces the
// whole texture; one with a position patches a sub-rectangle of an
// existing texture.
func (m *TextureManager) Apply(id TextureID, delta ImageDelta) error {
	if delta.Width <= 0 || delta.Height <= 0 {
		return fmt.Errorf("ui: texture %d delta has size %dx%d", id, delta.Width, delta.Height)
	}

	bpp := 4
	format := gputypes.TextureFormatRGBA8Unorm
	if delta.Kind == ImageFont {
		bpp = 1
		format = gputypes.TextureFormatR8Unorm
	}
	if len(delta.Pixels) < delta.Width*delta.Height*bpp {
		return fmt.Errorf("ui: texture %d delta short pixels: have %d, need %d",
			id, len(delta.Pixels), delta.Width*delta.Height*bpp)
	}

	if delta.Pos != nil {
		e, ok := m.entries[id]
		if !ok {
			return fmt.Errorf("ui: patch for unknown texture %d", id)
		}
		return m.table.UpdateTexture(e.handle,
			uint32(delta.Pos[0]), uint32(delta.Pos[1]),
			uint32(delta.Width), uint32(delta.Height), delta.Pixels)
	}

	// Whole-image upload: replace any previous texture under this id.
	if e, ok := m.entries[id]; ok {
		delete(m.entries, id)
		if err := m.table.Destroy(e.handle); err != nil {
			return fmt.Errorf("ui: replace texture %d: %w", id, err)
		}
	}
	h, err := m.table.CreateTexture(gfx.TextureDesc{
		Label:  fmt.Sprintf("ui_texture_%d", id),
		Width:  uint32(delta.Width),
		Height: uint32(delta.Height),
		Format: format,
		Data:   delta.Pixels,
	})
	if err != nil {
		return fmt.Errorf("ui: texture %d: %w", id, err)
	}
	m.entries[id] = textureEntry{handle: h, font: delta.Kind == ImageFont}
	return nil
}

// Free releases the textures named by ids. Unknown ids are ignored; the UI
// library frees lazily and may repeat itself.
func (m *TextureManager) Free(ids ...TextureID) {
	for _, id := range ids {
		e, ok := m.entries[id]
		if !ok {
			continue
		}
		delete(m.entries, id)
		if err := m.table.Destroy(e.handle); err != nil {
			gfx.Logger().Warn("freeing UI texture failed",
				"texture", uint64(id), "error", err)
		}
	}
}

// DeltaFromImage converts an arbitrary image into a whole-image RGBA
// delta, resampling to the given size when it differs from the source
// bounds.
func DeltaFromImage(img image.Image, width, height int) ImageDelta {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if b := img.Bounds(); b.Dx() == width && b.Dy() == height {
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	} else {
		xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	}
	return ImageDelta{
		Kind:   ImageColor,
		Width:  width,
		Height: height,
		Pixels: dst.Pix,
	}
}
