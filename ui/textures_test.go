//go:build !nogpu

package ui

import (
	"image"
	"image/color"
	"testing"
)

func TestTextureManagerApplyAndFree(t *testing.T) {
	sys, cleanup := newTestSystem(t)
	defer cleanup()

	tm := NewTextureManager(sys.Resources)
	base := sys.Resources.LiveCount()

	const id TextureID = 1
	err := tm.Apply(id, ImageDelta{
		Kind: ImageColor, Width: 4, Height: 4,
		Pixels: make([]byte, 4*4*4),
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if tm.Count() != 1 {
		t.Errorf("count = %d, want 1", tm.Count())
	}
	if sys.Resources.LiveCount() != base+1 {
		t.Errorf("live = %d, want %d", sys.Resources.LiveCount(), base+1)
	}
	if _, ok := tm.Handle(id); !ok {
		t.Error("handle not found after Apply")
	}

	tm.Free(id)
	if tm.Count() != 0 {
		t.Errorf("count after free = %d, want 0", tm.Count())
	}
	if sys.Resources.LiveCount() != base {
		t.Errorf("live after free = %d, want %d", sys.Resources.LiveCount(), base)
	}

	// Repeated frees of the same id are ignored.
	tm.Free(id, id)
}

func TestTextureManagerPatch(t *testing.T) {
	sys, cleanup := newTestSystem(t)
	defer cleanup()

	tm := NewTextureManager(sys.Resources)
	const id TextureID = 3

	err := tm.Apply(id, ImageDelta{
		Kind: ImageFont, Width: 32, Height: 32,
		Pixels: make([]byte, 32*32),
	})
	if err != nil {
		t.Fatalf("full upload failed: %v", err)
	}

	pos := [2]int{8, 8}
	err = tm.Apply(id, ImageDelta{
		Kind: ImageFont, Pos: &pos, Width: 8, Height: 8,
		Pixels: make([]byte, 8*8),
	})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}

	// Patching an unknown id fails.
	unknown := [2]int{0, 0}
	err = tm.Apply(99, ImageDelta{
		Kind: ImageFont, Pos: &unknown, Width: 1, Height: 1,
		Pixels: []byte{0},
	})
	if err == nil {
		t.Error("expected error for patch of unknown texture")
	}
}

func TestTextureManagerReplace(t *testing.T) {
	sys, cleanup := newTestSystem(t)
	defer cleanup()

	tm := NewTextureManager(sys.Resources)
	base := sys.Resources.LiveCount()
	const id TextureID = 5

	for i := 0; i < 2; i++ {
		err := tm.Apply(id, ImageDelta{
			Kind: ImageColor, Width: 2, Height: 2,
			Pixels: make([]byte, 2*2*4),
		})
		if err != nil {
			t.Fatalf("upload %d failed: %v", i, err)
		}
	}
	// The replaced texture was destroyed, not leaked.
	if sys.Resources.LiveCount() != base+1 {
		t.Errorf("live = %d, want %d", sys.Resources.LiveCount(), base+1)
	}
}

func TestTextureManagerValidation(t *testing.T) {
	sys, cleanup := newTestSystem(t)
	defer cleanup()

	tm := NewTextureManager(sys.Resources)

	if err := tm.Apply(1, ImageDelta{Kind: ImageColor, Width: 0, Height: 4}); err == nil {
		t.Error("expected error for zero width")
	}
	if err := tm.Apply(1, ImageDelta{
		Kind: ImageColor, Width: 4, Height: 4, Pixels: make([]byte, 7),
	}); err == nil {
		t.Error("expected error for short pixel data")
	}
}

func TestDeltaFromImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})

	// Same size: direct conversion.
	d := DeltaFromImage(src, 2, 2)
	if d.Width != 2 || d.Height != 2 || len(d.Pixels) != 2*2*4 {
		t.Fatalf("delta = %dx%d with %d bytes", d.Width, d.Height, len(d.Pixels))
	}
	if d.Pixels[0] != 255 {
		t.Errorf("red channel = %d, want 255", d.Pixels[0])
	}

	// Resample to a different size.
	d = DeltaFromImage(src, 4, 4)
	if d.Width != 4 || d.Height != 4 || len(d.Pixels) != 4*4*4 {
		t.Fatalf("scaled delta = %dx%d with %d bytes", d.Width, d.Height, len(d.Pixels))
	}
}
