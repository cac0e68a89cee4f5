package gfx

import "testing"

const testShaderWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    var pos = array<vec2<f32>, 3>(
        vec2(-1.0, -1.0),
        vec2(3.0, -1.0),
        vec2(-1.0, 3.0),
    );
    return vec4(pos[idx], 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4(1.0, 0.0, 1.0, 1.0);
}
`

func TestCompileShaderToSPIRV(t *testing.T) {
	words, err := CompileShaderToSPIRV(testShaderWGSL)
	if err != nil {
		t.Fatalf("CompileShaderToSPIRV failed: %v", err)
	}
	if len(words) == 0 {
		t.Fatal("expected non-empty SPIR-V")
	}
	// SPIR-V modules always start with the magic number.
	if words[0] != 0x07230203 {
		t.Errorf("magic = %#x, want 0x07230203", words[0])
	}
}

func TestCompileShaderToSPIRVInvalid(t *testing.T) {
	if _, err := CompileShaderToSPIRV("not wgsl at all {"); err == nil {
		t.Fatal("expected error for invalid source")
	}
}

func TestShaderSourcesEmbedded(t *testing.T) {
	if UIShaderSource() == "" {
		t.Error("ui shader source is empty")
	}
	if DebugShaderSource() == "" {
		t.Error("debug shader source is empty")
	}
}

func TestBuiltinShadersCompile(t *testing.T) {
	// The embedded shaders carry the GPU-side half of the vertex packing
	// contract (unpack2x16unorm, sign-extended clip words, clip distances);
	// both must pass the WGSL translator.
	tests := []struct {
		name   string
		source string
	}{
		{"ui", UIShaderSource()},
		{"debug", DebugShaderSource()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words, err := CompileShaderToSPIRV(tt.source)
			if err != nil {
				t.Fatalf("CompileShaderToSPIRV failed: %v", err)
			}
			if len(words) == 0 || words[0] != 0x07230203 {
				t.Fatalf("not a SPIR-V module (len=%d)", len(words))
			}
		})
	}
}
