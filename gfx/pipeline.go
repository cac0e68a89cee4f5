package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// pipelineSet owns the render pipelines the frame submission path binds:
// UI RGBA, UI text (alpha-only atlas), and the two debug variants. All four
// target the same color format with premultiplied alpha blending.
type pipelineSet struct {
	device hal.Device

	targetFormat gputypes.TextureFormat

	uiShader    hal.ShaderModule
	debugShader hal.ShaderModule

	uiBindLayout    hal.BindGroupLayout
	debugBindLayout hal.BindGroupLayout
	uiPipeLayout    hal.PipelineLayout
	debugPipeLayout hal.PipelineLayout

	ui         hal.RenderPipeline
	uiText     hal.RenderPipeline
	debugTris  hal.RenderPipeline
	debugLines hal.RenderPipeline
}

// newPipelineSet compiles the built-in shaders and creates all pipelines
// for the given target format.
func newPipelineSet(device hal.Device, targetFormat gputypes.TextureFormat) (*pipelineSet, error) {
	p := &pipelineSet{
		device:       device,
		targetFormat: targetFormat,
	}
	if err := p.create(); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *pipelineSet) create() error {
	uiShader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "gfx_ui_shader",
		Source: hal.ShaderSource{WGSL: uiShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile ui shader: %w", err)
	}
	p.uiShader = uiShader

	debugShader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "gfx_debug_shader",
		Source: hal.ShaderSource{WGSL: debugShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile debug shader: %w", err)
	}
	p.debugShader = debugShader

	// UI bind group layout:
	//   Binding 0: ScreenUniforms (uniform buffer, vertex)
	//   Binding 1: texture (texture_2d, fragment)
	//   Binding 2: sampler (fragment)
	uiBindLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "gfx_ui_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create ui bind layout: %w", err)
	}
	p.uiBindLayout = uiBindLayout

	// Debug bind group layout:
	//   Binding 0: TransformUniforms (uniform buffer, vertex)
	debugBindLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "gfx_debug_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create debug bind layout: %w", err)
	}
	p.debugBindLayout = debugBindLayout

	uiPipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "gfx_ui_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.uiBindLayout},
	})
	if err != nil {
		return fmt.Errorf("create ui pipeline layout: %w", err)
	}
	p.uiPipeLayout = uiPipeLayout

	debugPipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "gfx_debug_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.debugBindLayout},
	})
	if err != nil {
		return fmt.Errorf("create debug pipeline layout: %w", err)
	}
	p.debugPipeLayout = debugPipeLayout

	if p.ui, err = p.createUIPipeline("gfx_ui_pipeline", "fs_main"); err != nil {
		return err
	}
	if p.uiText, err = p.createUIPipeline("gfx_ui_text_pipeline", "fs_text"); err != nil {
		return err
	}
	if p.debugTris, err = p.createDebugPipeline("gfx_debug_pipeline",
		gputypes.PrimitiveTopologyTriangleList); err != nil {
		return err
	}
	if p.debugLines, err = p.createDebugPipeline("gfx_debug_lines_pipeline",
		gputypes.PrimitiveTopologyLineList); err != nil {
		return err
	}
	return nil
}

func (p *pipelineSet) createUIPipeline(label, fragEntry string) (hal.RenderPipeline, error) {
	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: p.uiPipeLayout,
		Vertex: hal.VertexState{
			Module:     p.uiShader,
			EntryPoint: "vs_main",
			Buffers:    uiVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.uiShader,
			EntryPoint: fragEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    p.targetFormat,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return pipeline, nil
}

func (p *pipelineSet) createDebugPipeline(label string, topology gputypes.PrimitiveTopology) (hal.RenderPipeline, error) {
	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: p.debugPipeLayout,
		Vertex: hal.VertexState{
			Module:     p.debugShader,
			EntryPoint: "vs_main",
			Buffers:    debugVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.debugShader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    p.targetFormat,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: topology,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return pipeline, nil
}

// forMode returns the pipeline bound for a draw mode.
func (p *pipelineSet) forMode(m DrawMode) hal.RenderPipeline {
	switch m {
	case ModeUIText:
		return p.uiText
	case ModeDebug:
		return p.debugTris
	case ModeDebugLines:
		return p.debugLines
	default:
		return p.ui
	}
}

// Destroy releases all GPU objects. Safe on a partially created set.
func (p *pipelineSet) Destroy() {
	if p.ui != nil {
		p.device.DestroyRenderPipeline(p.ui)
		p.ui = nil
	}
	if p.uiText != nil {
		p.device.DestroyRenderPipeline(p.uiText)
		p.uiText = nil
	}
	if p.debugTris != nil {
		p.device.DestroyRenderPipeline(p.debugTris)
		p.debugTris = nil
	}
	if p.debugLines != nil {
		p.device.DestroyRenderPipeline(p.debugLines)
		p.debugLines = nil
	}
	if p.uiPipeLayout != nil {
		p.device.DestroyPipelineLayout(p.uiPipeLayout)
		p.uiPipeLayout = nil
	}
	if p.debugPipeLayout != nil {
		p.device.DestroyPipelineLayout(p.debugPipeLayout)
		p.debugPipeLayout = nil
	}
	if p.uiBindLayout != nil {
		p.device.DestroyBindGroupLayout(p.uiBindLayout)
		p.uiBindLayout = nil
	}
	if p.debugBindLayout != nil {
		p.device.DestroyBindGroupLayout(p.debugBindLayout)
		p.debugBindLayout = nil
	}
	if p.uiShader != nil {
		p.device.DestroyShaderModule(p.uiShader)
		p.uiShader = nil
	}
	if p.debugShader != nil {
		p.device.DestroyShaderModule(p.debugShader)
		p.debugShader = nil
	}
}

// uiVertexLayout returns the vertex buffer layout for the UI pipelines.
// Matches VertexIn in ui.wgsl:
//
//	location 0: position (vec2<f32>)
//	location 1: packed_uv (u32)
//	location 2: packed_color (u32)
//	location 3: packed_clip (vec2<u32>)
func uiVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: StrideUI,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatUint32, Offset: 8, ShaderLocation: 1},
				{Format: gputypes.VertexFormatUint32, Offset: 12, ShaderLocation: 2},
				{Format: gputypes.VertexFormatUint32x2, Offset: 16, ShaderLocation: 3},
			},
		},
	}
}

// debugVertexLayout returns the vertex buffer layout for the debug
// pipelines. Matches VertexIn in debug.wgsl:
//
//	location 0: position (vec3<f32>)
//	location 1: packed_color (u32)
func debugVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: StrideDebug,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatUint32, Offset: 12, ShaderLocation: 1},
			},
		},
	}
}
