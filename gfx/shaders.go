package gfx

import _ "embed"

// Built-in WGSL shader sources, compiled at build time via go:embed.

//go:embed shaders/ui.wgsl
var uiShaderSource string

//go:embed shaders/debug.wgsl
var debugShaderSource string

// UIShaderSource returns the WGSL source of the built-in UI shader.
func UIShaderSource() string { return uiShaderSource }

// DebugShaderSource returns the WGSL source of the built-in debug shader.
func DebugShaderSource() string { return debugShaderSource }
