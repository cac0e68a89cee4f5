package gfx

import (
	"encoding/binary"
	"math"
)

// Uniform buffer sizes in bytes. Both are padded to the 16-byte alignment
// WGSL uniform blocks require.
const (
	ScreenUniformSize    = 16
	TransformUniformSize = 64
)

// ScreenUniforms holds the logical screen size the UI vertex shader uses to
// map pixel coordinates to clip space.
type ScreenUniforms struct {
	Width  int32
	Height int32
}

// Encode appends the 16-byte uniform block layout to dst.
func (u ScreenUniforms) Encode(dst []byte) []byte {
	var buf [ScreenUniformSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(u.Width))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(u.Height))
	// 8 bytes of padding to the uniform block alignment.
	return append(dst, buf[:]...)
}

// TransformUniforms holds the row-major 4x4 matrix the debug vertex shader
// applies to world-space positions.
type TransformUniforms struct {
	Matrix [16]float32
}

// IdentityTransform returns a transform that passes positions through.
func IdentityTransform() TransformUniforms {
	return TransformUniforms{Matrix: [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

// Encode appends the 64-byte uniform block layout to dst. Rows are stored
// consecutively; the shader multiplies vec4 * matrix to match.
func (u TransformUniforms) Encode(dst []byte) []byte {
	var buf [TransformUniformSize]byte
	for i, v := range u.Matrix {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return append(dst, buf[:]...)
}
