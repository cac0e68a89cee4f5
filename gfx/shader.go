package gfx

import (
	"fmt"

	"github.com/gogpu/naga"
)

// CompileShaderToSPIRV compiles WGSL source to a SPIR-V word slice via the
// naga translator. Backends that take WGSL directly do not need this; it is
// for pre-validating shaders or targeting SPIR-V-only drivers.
func CompileShaderToSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("gfx: compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
