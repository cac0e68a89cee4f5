package pack

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestColorRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		r, g, b, a uint8
	}{
		{"black opaque", 0, 0, 0, 255},
		{"white opaque", 255, 255, 255, 255},
		{"transparent", 0, 0, 0, 0},
		{"red", 255, 0, 0, 255},
		{"mixed", 17, 34, 51, 68},
		{"max channels", 255, 254, 253, 252},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed := Color(tt.r, tt.g, tt.b, tt.a)
			r, g, b, a := ColorParts(packed)
			if r != tt.r || g != tt.g || b != tt.b || a != tt.a {
				t.Errorf("round trip (%d,%d,%d,%d) -> %#x -> (%d,%d,%d,%d)",
					tt.r, tt.g, tt.b, tt.a, packed, r, g, b, a)
			}
		})
	}
}

func TestColorByteOrder(t *testing.T) {
	// R must land in the low byte so the shader's unpack4x8unorm reads
	// channels in RGBA order.
	packed := Color(0x11, 0x22, 0x33, 0x44)
	if packed != 0x44332211 {
		t.Errorf("Color(0x11,0x22,0x33,0x44) = %#x, want 0x44332211", packed)
	}
}

func TestUV16(t *testing.T) {
	tests := []struct {
		name    string
		in      float32
		want    uint16
		clamped bool
	}{
		{"zero", 0, 0, false},
		{"one", 1, 65535, false},
		{"half", 0.5, 32768, false}, // round(32767.5)
		{"exact grid", 100.0 / 65535.0, 100, false},
		{"negative clamps", -0.25, 0, true},
		{"above one clamps", 1.5, 65535, true},
		{"just above one clamps", 1.00001, 65535, true},
		{"nan clamps to zero", float32(math.NaN()), 0, true},
		{"positive inf clamps", float32(math.Inf(1)), 65535, true},
		{"negative inf clamps", float32(math.Inf(-1)), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped := UV16(tt.in)
			if got != tt.want || clamped != tt.clamped {
				t.Errorf("UV16(%v) = (%d, %v), want (%d, %v)",
					tt.in, got, clamped, tt.want, tt.clamped)
			}
		})
	}
}

func TestUVRoundTrip(t *testing.T) {
	// Values on the 1/65535 grid must survive the round trip bit-exactly.
	for _, n := range []uint16{0, 1, 100, 255, 32767, 32768, 65534, 65535} {
		in := float32(n) / 65535
		packed, clamped := UV(in, in)
		if clamped {
			t.Fatalf("UV(%v) reported clamping", in)
		}
		u, v := UnpackUV(packed)
		if u != in || v != in {
			t.Errorf("UV round trip %v -> %#x -> (%v, %v)", in, packed, u, v)
		}
	}
}

func TestUVChannelsIndependent(t *testing.T) {
	packed, clamped := UV(0.25, 0.75)
	if clamped {
		t.Fatal("unexpected clamping")
	}
	u, v := UnpackUV(packed)
	if math.Abs(float64(u)-0.25) > 1.0/65535 {
		t.Errorf("u = %v, want ~0.25", u)
	}
	if math.Abs(float64(v)-0.75) > 1.0/65535 {
		t.Errorf("v = %v, want ~0.75", v)
	}
}

func TestClipRectRoundTrip(t *testing.T) {
	tests := []struct {
		name                     string
		left, top, right, bottom int32
	}{
		{"origin", 0, 0, 800, 600},
		{"negative bounds", -100, -50, 200, 150},
		{"full signed range", -32768, -32768, 32767, 32767},
		{"inverted", 50, 50, 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, clamped := ClipRect(tt.left, tt.top, tt.right, tt.bottom)
			if clamped {
				t.Fatalf("unexpected clamping for %+v", tt)
			}
			l, tp, r, b := UnpackClipRect(lo, hi)
			if l != tt.left || tp != tt.top || r != tt.right || b != tt.bottom {
				t.Errorf("round trip (%d,%d,%d,%d) -> (%d,%d,%d,%d)",
					tt.left, tt.top, tt.right, tt.bottom, l, tp, r, b)
			}
		})
	}
}

func TestClipRectClamps(t *testing.T) {
	lo, hi, clamped := ClipRect(-40000, 0, 40000, 100)
	if !clamped {
		t.Fatal("expected clamping to be reported")
	}
	l, _, r, _ := UnpackClipRect(lo, hi)
	if l != math.MinInt16 {
		t.Errorf("left clamped to %d, want %d", l, math.MinInt16)
	}
	if r != math.MaxInt16 {
		t.Errorf("right clamped to %d, want %d", r, math.MaxInt16)
	}
}

func TestClipRectWordLayout(t *testing.T) {
	// left/top in word 0 low/high halves, right/bottom in word 1.
	lo, hi, _ := ClipRect(1, 2, 3, 4)
	if lo != 0x00020001 {
		t.Errorf("lo = %#x, want 0x00020001", lo)
	}
	if hi != 0x00040003 {
		t.Errorf("hi = %#x, want 0x00040003", hi)
	}
}

func TestPutUILayout(t *testing.T) {
	var buf [StrideUI]byte
	PutUI(buf[:], 1.5, -2.5, 0xAABBCCDD, 0x11223344, 0x55667788, 0x99AABBCC)

	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])); got != 1.5 {
		t.Errorf("x = %v, want 1.5", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])); got != -2.5 {
		t.Errorf("y = %v, want -2.5", got)
	}
	if got := binary.LittleEndian.Uint32(buf[8:]); got != 0xAABBCCDD {
		t.Errorf("uv word = %#x", got)
	}
	if got := binary.LittleEndian.Uint32(buf[12:]); got != 0x11223344 {
		t.Errorf("color word = %#x", got)
	}
	if got := binary.LittleEndian.Uint32(buf[16:]); got != 0x55667788 {
		t.Errorf("clip lo word = %#x", got)
	}
	if got := binary.LittleEndian.Uint32(buf[20:]); got != 0x99AABBCC {
		t.Errorf("clip hi word = %#x", got)
	}
}

func TestAppendUI(t *testing.T) {
	var buf []byte
	for i := 0; i < 3; i++ {
		buf = AppendUI(buf, float32(i), float32(i), 0, 0, 0, 0)
	}
	if len(buf) != 3*StrideUI {
		t.Fatalf("len = %d, want %d", len(buf), 3*StrideUI)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[2*StrideUI:])); got != 2 {
		t.Errorf("third vertex x = %v, want 2", got)
	}
}

func TestPutDebugLayout(t *testing.T) {
	var buf [StrideDebug]byte
	PutDebug(buf[:], 1, 2, 3, 0xDEADBEEF)

	for i, want := range []float32{1, 2, 3} {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		if got != want {
			t.Errorf("position[%d] = %v, want %v", i, got, want)
		}
	}
	if got := binary.LittleEndian.Uint32(buf[12:]); got != 0xDEADBEEF {
		t.Errorf("color word = %#x", got)
	}
}
