// Package pack implements the bit-packing routines for vertex attributes.
//
// All functions are pure and allocation-free, operating on fixed-width
// integers so they can be tested without a graphics context. The packed
// formats are the wire contract with the vertex shader stage: every encoder
// here has an exact GPU-side inverse (unpack2x16unorm, bitfield extraction),
// and round-trips are lossless at the supported bit depths (8-bit color
// channels, 16-bit UV and clip channels).
//
// Out-of-range inputs are clamped, never wrapped. Encoders report clamping
// through a boolean so callers can surface a packing overflow without the
// encoder itself touching a logger.
package pack

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
)

// Vertex strides in bytes for the supported layouts.
const (
	// StrideUI is the byte stride of a packed UI vertex:
	// 2x float32 position + packed UV + packed color + 2x packed clip words.
	StrideUI = 24

	// StrideDebug is the byte stride of a packed debug vertex:
	// 3x float32 position + packed color.
	StrideDebug = 16
)

// uvScale is the largest encodable UV channel value.
const uvScale = 65535

// Color packs four sRGB-encoded 8-bit channels into one 32-bit word,
// R in the low byte. Pure bit-shifting, no rounding is involved.
func Color(r, g, b, a uint8) uint32 {
	return uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24
}

// ColorParts is the exact inverse of Color.
func ColorParts(c uint32) (r, g, b, a uint8) {
	return uint8(c), uint8(c >> 8), uint8(c >> 16), uint8(c >> 24)
}

// UV16 scales a normalized [0,1] float to a 16-bit unorm channel via
// round(v * 65535). Inputs outside [0,1] are clamped; the second return
// reports whether clamping occurred. NaN counts as clamped and encodes
// as zero.
func UV16(v float32) (uint16, bool) {
	if math32.IsNaN(v) {
		return 0, true
	}
	scaled := math32.Round(v * uvScale)
	if scaled < 0 {
		return 0, true
	}
	if scaled > uvScale {
		return uvScale, true
	}
	return uint16(scaled), false
}

// UV packs two normalized texture coordinates into one 32-bit word,
// u in the low 16 bits. Each channel is scaled independently.
func UV(u, v float32) (uint32, bool) {
	pu, cu := UV16(u)
	pv, cv := UV16(v)
	return uint32(pu) | uint32(pv)<<16, cu || cv
}

// UnpackUV inverts UV. The result differs from the original input by at
// most 1/65535 for inputs in [0,1]; this is the CPU reference for the
// shader-side unpack2x16unorm.
func UnpackUV(p uint32) (u, v float32) {
	return float32(p&0xffff) / uvScale, float32(p>>16) / uvScale
}

// Clip16 clamps a UI-space coordinate to the signed 16-bit range.
func Clip16(v int32) (int16, bool) {
	if v < math.MinInt16 {
		return math.MinInt16, true
	}
	if v > math.MaxInt16 {
		return math.MaxInt16, true
	}
	return int16(v), false
}

// ClipRect packs a UI-space clip rectangle into two 32-bit words: left and
// top in the low and high halves of the first word, right and bottom in the
// second. The shader extracts each channel with a signed 16-bit bitfield
// extraction and derives four clip-distance planes from them.
func ClipRect(left, top, right, bottom int32) (lo, hi uint32, clamped bool) {
	l, cl := Clip16(left)
	t, ct := Clip16(top)
	r, cr := Clip16(right)
	b, cb := Clip16(bottom)
	lo = uint32(uint16(l)) | uint32(uint16(t))<<16
	hi = uint32(uint16(r)) | uint32(uint16(b))<<16
	return lo, hi, cl || ct || cr || cb
}

// UnpackClipRect is the exact inverse of ClipRect for in-range values.
func UnpackClipRect(lo, hi uint32) (left, top, right, bottom int32) {
	left = int32(int16(lo & 0xffff))
	top = int32(int16(lo >> 16))
	right = int32(int16(hi & 0xffff))
	bottom = int32(int16(hi >> 16))
	return left, top, right, bottom
}

// PutUI writes one packed UI vertex into dst, which must hold at least
// StrideUI bytes. Layout is little-endian: x, y, uv, color, clipLo, clipHi.
func PutUI(dst []byte, x, y float32, uv, color, clipLo, clipHi uint32) {
	_ = dst[StrideUI-1]
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(x))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(y))
	binary.LittleEndian.PutUint32(dst[8:], uv)
	binary.LittleEndian.PutUint32(dst[12:], color)
	binary.LittleEndian.PutUint32(dst[16:], clipLo)
	binary.LittleEndian.PutUint32(dst[20:], clipHi)
}

// AppendUI appends one packed UI vertex to buf and returns the extended
// slice.
func AppendUI(buf []byte, x, y float32, uv, color, clipLo, clipHi uint32) []byte {
	var tmp [StrideUI]byte
	PutUI(tmp[:], x, y, uv, color, clipLo, clipHi)
	return append(buf, tmp[:]...)
}

// PutDebug writes one packed debug vertex (3D position + packed color) into
// dst, which must hold at least StrideDebug bytes.
func PutDebug(dst []byte, x, y, z float32, color uint32) {
	_ = dst[StrideDebug-1]
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(x))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(y))
	binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(z))
	binary.LittleEndian.PutUint32(dst[12:], color)
}

// AppendDebug appends one packed debug vertex to buf and returns the
// extended slice.
func AppendDebug(buf []byte, x, y, z float32, color uint32) []byte {
	var tmp [StrideDebug]byte
	PutDebug(tmp[:], x, y, z, color)
	return append(buf, tmp[:]...)
}
