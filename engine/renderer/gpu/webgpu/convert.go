//go:build webgpu

package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

// Bit-flag types share their values with wgpu-native and convert by cast. Enums are renumbered
// between the two APIs and go through the switches below.

var textureFormats = map[gputypes.TextureFormat]wgpu.TextureFormat{
	gputypes.TextureFormatR8Unorm:             wgpu.TextureFormatR8Unorm,
	gputypes.TextureFormatRGBA8Unorm:          wgpu.TextureFormatRGBA8Unorm,
	gputypes.TextureFormatRGBA8UnormSrgb:      wgpu.TextureFormatRGBA8UnormSrgb,
	gputypes.TextureFormatBGRA8Unorm:          wgpu.TextureFormatBGRA8Unorm,
	gputypes.TextureFormatBGRA8UnormSrgb:      wgpu.TextureFormatBGRA8UnormSrgb,
	gputypes.TextureFormatRGBA16Float:         wgpu.TextureFormatRGBA16Float,
	gputypes.TextureFormatRGBA32Float:         wgpu.TextureFormatRGBA32Float,
	gputypes.TextureFormatDepth16Unorm:        wgpu.TextureFormatDepth16Unorm,
	gputypes.TextureFormatDepth24Plus:         wgpu.TextureFormatDepth24Plus,
	gputypes.TextureFormatDepth24PlusStencil8: wgpu.TextureFormatDepth24PlusStencil8,
	gputypes.TextureFormatDepth32Float:        wgpu.TextureFormatDepth32Float,
}

func textureFormat(f gputypes.TextureFormat) (wgpu.TextureFormat, error) {
	if f == gputypes.TextureFormatUndefined {
		return wgpu.TextureFormatUndefined, nil
	}
	if out, ok := textureFormats[f]; ok {
		return out, nil
	}
	return wgpu.TextureFormatUndefined, fmt.Errorf("webgpu: unsupported texture format %v", f)
}

// fromTextureFormat maps a surface format reported by the adapter back into gputypes.
func fromTextureFormat(f wgpu.TextureFormat) (gputypes.TextureFormat, bool) {
	for k, v := range textureFormats {
		if v == f {
			return k, true
		}
	}
	return gputypes.TextureFormatUndefined, false
}

func textureDimension(d gputypes.TextureDimension) wgpu.TextureDimension {
	switch d {
	case gputypes.TextureDimension1D:
		return wgpu.TextureDimension1D
	case gputypes.TextureDimension3D:
		return wgpu.TextureDimension3D
	default:
		return wgpu.TextureDimension2D
	}
}

func addressMode(m gputypes.AddressMode) wgpu.AddressMode {
	switch m {
	case gputypes.AddressModeRepeat:
		return wgpu.AddressModeRepeat
	case gputypes.AddressModeMirrorRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeClampToEdge
	}
}

func filterMode(m gputypes.FilterMode) wgpu.FilterMode {
	if m == gputypes.FilterModeLinear {
		return wgpu.FilterModeLinear
	}
	return wgpu.FilterModeNearest
}

func mipmapFilterMode(m gputypes.MipmapFilterMode) wgpu.MipmapFilterMode {
	if m == gputypes.MipmapFilterModeLinear {
		return wgpu.MipmapFilterModeLinear
	}
	return wgpu.MipmapFilterModeNearest
}

func compareFunction(c gputypes.CompareFunction) wgpu.CompareFunction {
	switch c {
	case gputypes.CompareFunctionNever:
		return wgpu.CompareFunctionNever
	case gputypes.CompareFunctionLess:
		return wgpu.CompareFunctionLess
	case gputypes.CompareFunctionEqual:
		return wgpu.CompareFunctionEqual
	case gputypes.CompareFunctionLessEqual:
		return wgpu.CompareFunctionLessEqual
	case gputypes.CompareFunctionGreater:
		return wgpu.CompareFunctionGreater
	case gputypes.CompareFunctionNotEqual:
		return wgpu.CompareFunctionNotEqual
	case gputypes.CompareFunctionGreaterEqual:
		return wgpu.CompareFunctionGreaterEqual
	case gputypes.CompareFunctionAlways:
		return wgpu.CompareFunctionAlways
	default:
		return wgpu.CompareFunctionUndefined
	}
}

// stencilOperation shifts past gputypes' Undefined; an unset operation keeps.
func stencilOperation(op gputypes.StencilOperation) wgpu.StencilOperation {
	if op == gputypes.StencilOperationUndefined {
		return wgpu.StencilOperationKeep
	}
	return wgpu.StencilOperation(op - 1)
}

func blendFactor(f gputypes.BlendFactor) wgpu.BlendFactor {
	if f == gputypes.BlendFactorUndefined {
		return wgpu.BlendFactorOne
	}
	return wgpu.BlendFactor(f - 1)
}

func blendOperation(op gputypes.BlendOperation) wgpu.BlendOperation {
	if op == gputypes.BlendOperationUndefined {
		return wgpu.BlendOperationAdd
	}
	return wgpu.BlendOperation(op - 1)
}

func primitiveTopology(t gputypes.PrimitiveTopology) wgpu.PrimitiveTopology {
	switch t {
	case gputypes.PrimitiveTopologyPointList:
		return wgpu.PrimitiveTopologyPointList
	case gputypes.PrimitiveTopologyLineList:
		return wgpu.PrimitiveTopologyLineList
	case gputypes.PrimitiveTopologyLineStrip:
		return wgpu.PrimitiveTopologyLineStrip
	case gputypes.PrimitiveTopologyTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

func vertexStepMode(m gputypes.VertexStepMode) wgpu.VertexStepMode {
	if m == gputypes.VertexStepModeInstance {
		return wgpu.VertexStepModeInstance
	}
	return wgpu.VertexStepModeVertex
}

func loadOp(op gputypes.LoadOp) wgpu.LoadOp {
	if op == gputypes.LoadOpLoad {
		return wgpu.LoadOpLoad
	}
	return wgpu.LoadOpClear
}

func storeOp(op gputypes.StoreOp) wgpu.StoreOp {
	if op == gputypes.StoreOpDiscard {
		return wgpu.StoreOpDiscard
	}
	return wgpu.StoreOpStore
}

func indexFormat(f gputypes.IndexFormat) wgpu.IndexFormat {
	return wgpu.IndexFormat(f)
}

func bindGroupLayoutEntry(e gputypes.BindGroupLayoutEntry) (wgpu.BindGroupLayoutEntry, error) {
	out := wgpu.BindGroupLayoutEntry{
		Binding:    e.Binding,
		Visibility: wgpu.ShaderStage(e.Visibility),
	}
	switch {
	case e.Buffer != nil:
		out.Buffer = wgpu.BufferBindingLayout{
			Type:             wgpu.BufferBindingType(e.Buffer.Type),
			HasDynamicOffset: e.Buffer.HasDynamicOffset,
			MinBindingSize:   e.Buffer.MinBindingSize,
		}
	case e.Sampler != nil:
		out.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingType(e.Sampler.Type)}
	case e.Texture != nil:
		out.Texture = wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleType(e.Texture.SampleType),
			ViewDimension: wgpu.TextureViewDimension(e.Texture.ViewDimension),
			Multisampled:  e.Texture.Multisampled,
		}
	case e.StorageTexture != nil:
		format, err := textureFormat(e.StorageTexture.Format)
		if err != nil {
			return out, err
		}
		out.StorageTexture = wgpu.StorageTextureBindingLayout{
			Access:        wgpu.StorageTextureAccess(e.StorageTexture.Access),
			Format:        format,
			ViewDimension: wgpu.TextureViewDimension(e.StorageTexture.ViewDimension),
		}
	default:
		return out, fmt.Errorf("webgpu: binding %d has no resource type", e.Binding)
	}
	return out, nil
}

func vertexBufferLayouts(in []gputypes.VertexBufferLayout) []wgpu.VertexBufferLayout {
	out := make([]wgpu.VertexBufferLayout, len(in))
	for i, l := range in {
		attrs := make([]wgpu.VertexAttribute, len(l.Attributes))
		for j, a := range l.Attributes {
			attrs[j] = wgpu.VertexAttribute{
				Format:         wgpu.VertexFormat(a.Format),
				Offset:         a.Offset,
				ShaderLocation: a.ShaderLocation,
			}
		}
		out[i] = wgpu.VertexBufferLayout{
			ArrayStride: l.ArrayStride,
			StepMode:    vertexStepMode(l.StepMode),
			Attributes:  attrs,
		}
	}
	return out
}

func blendComponent(c gputypes.BlendComponent) wgpu.BlendComponent {
	return wgpu.BlendComponent{
		Operation: blendOperation(c.Operation),
		SrcFactor: blendFactor(c.SrcFactor),
		DstFactor: blendFactor(c.DstFactor),
	}
}

func colorTargets(in []gputypes.ColorTargetState) ([]wgpu.ColorTargetState, error) {
	out := make([]wgpu.ColorTargetState, len(in))
	for i, t := range in {
		format, err := textureFormat(t.Format)
		if err != nil {
			return nil, err
		}
		out[i] = wgpu.ColorTargetState{
			Format:    format,
			WriteMask: wgpu.ColorWriteMask(t.WriteMask),
		}
		if t.Blend != nil {
			out[i].Blend = &wgpu.BlendState{
				Color: blendComponent(t.Blend.Color),
				Alpha: blendComponent(t.Blend.Alpha),
			}
		}
	}
	return out, nil
}

func stencilFace(s gputypes.StencilFaceState) wgpu.StencilFaceState {
	compare := compareFunction(s.Compare)
	if compare == wgpu.CompareFunctionUndefined {
		compare = wgpu.CompareFunctionAlways
	}
	return wgpu.StencilFaceState{
		Compare:     compare,
		FailOp:      stencilOperation(s.FailOp),
		DepthFailOp: stencilOperation(s.DepthFailOp),
		PassOp:      stencilOperation(s.PassOp),
	}
}

func depthStencilState(ds *gputypes.DepthStencilState) (*wgpu.DepthStencilState, error) {
	if ds == nil {
		return nil, nil
	}
	format, err := textureFormat(ds.Format)
	if err != nil {
		return nil, err
	}
	return &wgpu.DepthStencilState{
		Format:              format,
		DepthWriteEnabled:   ds.DepthWriteEnabled,
		DepthCompare:        compareFunction(ds.DepthCompare),
		StencilFront:        stencilFace(ds.StencilFront),
		StencilBack:         stencilFace(ds.StencilBack),
		StencilReadMask:     ds.StencilReadMask,
		StencilWriteMask:    ds.StencilWriteMask,
		DepthBias:           ds.DepthBias,
		DepthBiasSlopeScale: ds.DepthBiasSlopeScale,
		DepthBiasClamp:      ds.DepthBiasClamp,
	}, nil
}

func primitiveState(p gputypes.PrimitiveState) wgpu.PrimitiveState {
	out := wgpu.PrimitiveState{
		Topology:  primitiveTopology(p.Topology),
		FrontFace: wgpu.FrontFace(p.FrontFace),
		CullMode:  wgpu.CullMode(p.CullMode),
	}
	if p.StripIndexFormat != nil {
		out.StripIndexFormat = indexFormat(*p.StripIndexFormat)
	}
	return out
}

func multisampleState(m gputypes.MultisampleState) wgpu.MultisampleState {
	count := m.Count
	if count == 0 {
		count = 1
	}
	mask := uint32(m.Mask)
	if m.Mask == 0 {
		mask = 0xFFFFFFFF
	}
	return wgpu.MultisampleState{
		Count:                  count,
		Mask:                   mask,
		AlphaToCoverageEnabled: m.AlphaToCoverageEnabled,
	}
}
