package pack

import "github.com/chewxy/math32"

// srgbBreak is the breakpoint of the piecewise sRGB transfer function.
// Both branches evaluate to the same value here (within float tolerance),
// so the curve is continuous.
const srgbBreak = 0.04045

// SRGBToLinear converts one sRGB-encoded channel in [0,1] to linear space.
// This is the CPU reference for the vertex-stage conversion: color leaves
// the vertex shader in linear space and the fragment stage never converts
// again.
func SRGBToLinear(s float32) float32 {
	if s <= srgbBreak {
		return s / 12.92
	}
	return math32.Pow((s+0.055)/1.055, 2.4)
}

// LinearToSRGB converts one linear channel in [0,1] to sRGB encoding.
func LinearToSRGB(l float32) float32 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*math32.Pow(l, 1.0/2.4) - 0.055
}
