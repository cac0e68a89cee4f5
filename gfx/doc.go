// Package gfx is the GPU rendering core of the toybox.
//
// It owns every GPU-resident object behind opaque generation-tagged handles
// (ResourceTable), accumulates per-frame draw calls in submission order
// (FrameEncoder), and flushes them to the WebGPU HAL once per frame. Vertex
// attributes cross the CPU/GPU boundary bit-packed; the packing routines live
// in gfx/pack and their GPU-side inverses in the embedded WGSL shaders.
//
// The pipeline is single-threaded and synchronous: packing, command building,
// and submission all happen on the thread owning the graphics device, and no
// operation suspends. Higher layers (immediate-mode UI, debug draws) never
// touch GPU memory directly; everything goes through the ResourceTable.
package gfx
