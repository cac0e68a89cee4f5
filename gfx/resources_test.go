//go:build !nogpu

package gfx

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func newTestTable(t *testing.T) (*ResourceTable, func()) {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	table, err := NewResourceTable(device, queue)
	if err != nil {
		cleanup()
		t.Fatalf("NewResourceTable failed: %v", err)
	}
	return table, func() {
		table.Close()
		cleanup()
	}
}

func TestCreateDestroyBuffer(t *testing.T) {
	table, cleanup := newTestTable(t)
	defer cleanup()

	base := table.LiveCount()
	h, err := table.CreateBuffer(BufferDesc{
		Label: "test_vertices",
		Data:  make([]byte, 256),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	if h.Kind() != KindBuffer {
		t.Errorf("kind = %s, want Buffer", h.Kind())
	}
	if table.LiveCount() != base+1 {
		t.Errorf("live = %d, want %d", table.LiveCount(), base+1)
	}

	if err := table.Destroy(h); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if table.LiveCount() != base {
		t.Errorf("live after destroy = %d, want %d", table.LiveCount(), base)
	}
}

func TestCreateBufferZeroSize(t *testing.T) {
	table, cleanup := newTestTable(t)
	defer cleanup()

	if _, err := table.CreateBuffer(BufferDesc{Label: "empty"}); err == nil {
		t.Fatal("expected error for zero-size buffer")
	}
}

func TestStaleHandleFails(t *testing.T) {
	table, cleanup := newTestTable(t)
	defer cleanup()

	h, err := table.CreateBuffer(BufferDesc{
		Label: "short_lived",
		Size:  64,
		Usage: gputypes.BufferUsageVertex,
	})
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	if err := table.Destroy(h); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	if err := table.UpdateBuffer(h, 0, []byte{1}); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("update stale handle: got %v, want ErrInvalidHandle", err)
	}
	if err := table.Destroy(h); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("double destroy: got %v, want ErrInvalidHandle", err)
	}
}

func TestSlotReuseBumpsGeneration(t *testing.T) {
	table, cleanup := newTestTable(t)
	defer cleanup()

	h1, err := table.CreateBuffer(BufferDesc{Label: "a", Size: 16, Usage: gputypes.BufferUsageVertex})
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	if err := table.Destroy(h1); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	// The freed slot is reused with a new generation; the old handle must
	// not alias the new resource.
	h2, err := table.CreateBuffer(BufferDesc{Label: "b", Size: 16, Usage: gputypes.BufferUsageVertex})
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	if h1 == h2 {
		t.Fatal("reused slot produced an identical handle")
	}
	if err := table.UpdateBuffer(h1, 0, []byte{1}); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("old handle after reuse: got %v, want ErrInvalidHandle", err)
	}
	if err := table.UpdateBuffer(h2, 0, make([]byte, 8)); err != nil {
		t.Errorf("new handle should work: %v", err)
	}
}

func TestUpdateBufferBounds(t *testing.T) {
	table, cleanup := newTestTable(t)
	defer cleanup()

	h, err := table.CreateBuffer(BufferDesc{Label: "bounded", Size: 32, Usage: gputypes.BufferUsageVertex})
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	if err := table.UpdateBuffer(h, 0, make([]byte, 32)); err != nil {
		t.Errorf("full update failed: %v", err)
	}
	if err := table.UpdateBuffer(h, 16, make([]byte, 32)); err == nil {
		t.Error("expected out-of-bounds error")
	}
}

func TestCreateTexture(t *testing.T) {
	table, cleanup := newTestTable(t)
	defer cleanup()

	h, err := table.CreateTexture(TextureDesc{
		Label:  "atlas",
		Width:  64,
		Height: 32,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Data:   make([]byte, 64*32*4),
	})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	if h.Kind() != KindTexture {
		t.Errorf("kind = %s, want Texture", h.Kind())
	}

	// Partial update inside bounds.
	if err := table.UpdateTexture(h, 8, 8, 16, 16, make([]byte, 16*16*4)); err != nil {
		t.Errorf("UpdateTexture failed: %v", err)
	}
	// Rect outside bounds.
	if err := table.UpdateTexture(h, 56, 0, 16, 16, make([]byte, 16*16*4)); err == nil {
		t.Error("expected out-of-bounds error")
	}
	// Short pixel data.
	if err := table.UpdateTexture(h, 0, 0, 16, 16, make([]byte, 10)); err == nil {
		t.Error("expected short-data error")
	}
}

func TestCreateTextureAlphaOnly(t *testing.T) {
	table, cleanup := newTestTable(t)
	defer cleanup()

	// R8 glyph atlas rows are 1 byte per pixel.
	h, err := table.CreateTexture(TextureDesc{
		Label:  "glyphs",
		Width:  128,
		Height: 128,
		Format: gputypes.TextureFormatR8Unorm,
		Data:   make([]byte, 128*128),
	})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	if err := table.UpdateTexture(h, 0, 0, 128, 128, make([]byte, 128*128)); err != nil {
		t.Errorf("UpdateTexture failed: %v", err)
	}
}

func TestCreateProgram(t *testing.T) {
	table, cleanup := newTestTable(t)
	defer cleanup()

	h, err := table.CreateProgram(ProgramDesc{Label: "ui", WGSL: uiShaderSource})
	if err != nil {
		t.Fatalf("CreateProgram failed: %v", err)
	}
	if h.Kind() != KindProgram {
		t.Errorf("kind = %s, want Program", h.Kind())
	}

	if _, err := table.CreateProgram(ProgramDesc{Label: "empty"}); !errors.Is(err, ErrEmptyShaderSource) {
		t.Errorf("empty source: got %v, want ErrEmptyShaderSource", err)
	}
}

func TestWrongKindFails(t *testing.T) {
	table, cleanup := newTestTable(t)
	defer cleanup()

	buf, err := table.CreateBuffer(BufferDesc{Label: "buf", Size: 16, Usage: gputypes.BufferUsageVertex})
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}
	if err := table.UpdateTexture(buf, 0, 0, 1, 1, []byte{0, 0, 0, 0}); err == nil {
		t.Error("expected kind mismatch error")
	}
}

func TestDestroyWhilePinned(t *testing.T) {
	table, cleanup := newTestTable(t)
	defer cleanup()

	tex, err := table.CreateTexture(TextureDesc{
		Label: "pinned", Width: 4, Height: 4,
		Format: gputypes.TextureFormatRGBA8Unorm,
	})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	before := table.LiveCount()

	if err := table.pin(tex); err != nil {
		t.Fatalf("pin failed: %v", err)
	}

	// Destroying a handle referenced by a pending batch fails fast and
	// leaves the live count untouched.
	if err := table.Destroy(tex); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("destroy while pinned: got %v, want ErrInvalidHandle", err)
	}
	if table.LiveCount() != before {
		t.Errorf("live count changed: %d, want %d", table.LiveCount(), before)
	}

	// The refused destroy retires the handle: further use fails too.
	if _, err := table.resolve(tex); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("resolve retired handle: got %v, want ErrInvalidHandle", err)
	}

	// Once the pin releases, the destroy goes through.
	table.unpin(tex)
	if err := table.Destroy(tex); err != nil {
		t.Fatalf("destroy after unpin failed: %v", err)
	}
	if table.LiveCount() != before-1 {
		t.Errorf("live count = %d, want %d", table.LiveCount(), before-1)
	}
}
