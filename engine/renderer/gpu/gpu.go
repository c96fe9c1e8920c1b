package gpu

import (
	"context"

	"github.com/gogpu/gputypes"
)

// Releaser is implemented by every GPU object that owns device memory or a driver handle.
type Releaser interface {
	// Release frees the underlying GPU object. Calling Release more than once is a no-op.
	Release()
}

// Buffer is a linear block of device memory.
type Buffer interface {
	Releaser

	// Size returns the allocated size of the buffer in bytes.
	//
	// Returns:
	//   - uint64: the allocation size in bytes
	Size() uint64

	// Usage returns the usage flags the buffer was created with.
	//
	// Returns:
	//   - gputypes.BufferUsage: the buffer usage flags
	Usage() gputypes.BufferUsage

	// Label returns the debug label of the buffer.
	//
	// Returns:
	//   - string: the label given at creation
	Label() string
}

// Texture is a device image with a fixed size and format.
type Texture interface {
	Releaser

	// Width returns the width of the texture in texels.
	//
	// Returns:
	//   - uint32: the texture width
	Width() uint32

	// Height returns the height of the texture in texels.
	//
	// Returns:
	//   - uint32: the texture height
	Height() uint32

	// Format returns the texel format of the texture.
	//
	// Returns:
	//   - gputypes.TextureFormat: the texture format
	Format() gputypes.TextureFormat

	// Usage returns the usage flags the texture was created with.
	//
	// Returns:
	//   - gputypes.TextureUsage: the texture usage flags
	Usage() gputypes.TextureUsage

	// CreateView creates a default full-resource view of the texture.
	//
	// Returns:
	//   - TextureView: the created view
	//   - error: an error if the backend fails to create the view
	CreateView() (TextureView, error)
}

// TextureView is a view into a Texture usable as a binding or render attachment.
type TextureView interface{ Releaser }

// Sampler describes how textures are filtered and addressed when sampled.
type Sampler interface{ Releaser }

// ShaderModule is a compiled shader module.
type ShaderModule interface{ Releaser }

// BindGroupLayout is a created bind group layout. It keeps the entries it was created from so
// bind groups can be checked against it before they reach the device.
type BindGroupLayout interface {
	Releaser

	// Entries returns the layout entries in declaration order.
	//
	// Returns:
	//   - []gputypes.BindGroupLayoutEntry: the layout entries
	Entries() []gputypes.BindGroupLayoutEntry
}

// BindGroup binds concrete resources to the slots of a BindGroupLayout.
type BindGroup interface{ Releaser }

// PipelineLayout is the ordered set of bind group layouts a pipeline is linked against.
type PipelineLayout interface{ Releaser }

// RenderPipeline is an executable render pipeline.
type RenderPipeline interface{ Releaser }

// CommandBuffer is a finished, submittable command stream.
type CommandBuffer interface{ Releaser }

// Device allocates GPU objects and exposes the submission queue.
// All creation calls are synchronous and return an error when the backend rejects the descriptor.
type Device interface {
	Releaser

	// CreateBuffer allocates a new buffer.
	//
	// Parameters:
	//   - desc: the buffer descriptor
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if the allocation fails
	CreateBuffer(desc *gputypes.BufferDescriptor) (Buffer, error)

	// CreateTexture allocates a new texture.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - Texture: the created texture
	//   - error: an error if the allocation fails
	CreateTexture(desc *gputypes.TextureDescriptor) (Texture, error)

	// CreateSampler creates a new sampler.
	//
	// Parameters:
	//   - desc: the sampler descriptor
	//
	// Returns:
	//   - Sampler: the created sampler
	//   - error: an error if creation fails
	CreateSampler(desc *gputypes.SamplerDescriptor) (Sampler, error)

	// CreateShaderModule compiles WGSL source into a shader module.
	//
	// Parameters:
	//   - desc: the shader module descriptor
	//
	// Returns:
	//   - ShaderModule: the compiled module
	//   - error: an error if compilation fails
	CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModule, error)

	// CreateBindGroupLayout creates a bind group layout from its entries.
	//
	// Parameters:
	//   - desc: the layout descriptor
	//
	// Returns:
	//   - BindGroupLayout: the created layout
	//   - error: an error if creation fails
	CreateBindGroupLayout(desc *gputypes.BindGroupLayoutDescriptor) (BindGroupLayout, error)

	// CreateBindGroup binds concrete resources against a layout.
	//
	// Parameters:
	//   - desc: the bind group descriptor
	//
	// Returns:
	//   - BindGroup: the created bind group
	//   - error: an error if creation fails
	CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error)

	// CreatePipelineLayout links bind group layouts into a pipeline layout.
	//
	// Parameters:
	//   - desc: the pipeline layout descriptor
	//
	// Returns:
	//   - PipelineLayout: the created pipeline layout
	//   - error: an error if creation fails
	CreatePipelineLayout(desc *PipelineLayoutDescriptor) (PipelineLayout, error)

	// CreateRenderPipeline creates an executable render pipeline.
	//
	// Parameters:
	//   - desc: the render pipeline descriptor
	//
	// Returns:
	//   - RenderPipeline: the created pipeline
	//   - error: an error if creation fails
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error)

	// CreateCommandEncoder starts a new command stream.
	//
	// Parameters:
	//   - label: the debug label of the encoder
	//
	// Returns:
	//   - CommandEncoder: the created encoder
	//   - error: an error if creation fails
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Queue returns the submission queue of the device.
	//
	// Returns:
	//   - Queue: the device queue
	Queue() Queue
}

// Queue submits command streams and performs direct writes to device memory.
type Queue interface {
	// WriteBuffer schedules a write of data into buf at offset.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the byte offset into the destination buffer
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the write is out of range or rejected by the backend
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// WriteTexture schedules a write of tightly described texel data into the first mip level of tex.
	//
	// Parameters:
	//   - tex: the destination texture
	//   - data: the texel bytes
	//   - layout: the layout of data
	//   - size: the extent of the region to write
	//
	// Returns:
	//   - error: an error if the write is rejected by the backend
	WriteTexture(tex Texture, data []byte, layout gputypes.TextureDataLayout, size gputypes.Extent3D) error

	// Submit submits finished command buffers for execution in order, then releases any
	// resources the encoders deferred until submission.
	//
	// Parameters:
	//   - cbs: the command buffers to submit
	//
	// Returns:
	//   - error: an error if submission fails
	Submit(cbs ...CommandBuffer) error

	// ReadBuffer copies a range of a buffer back to host memory, waiting for all submitted work first.
	// The buffer must have been created with gputypes.BufferUsageCopySrc.
	//
	// Parameters:
	//   - ctx: bounds the wait for the device
	//   - buf: the buffer to read
	//   - offset: the byte offset to start reading at
	//   - size: the number of bytes to read
	//
	// Returns:
	//   - []byte: a host copy of the requested range
	//   - error: an error if the readback fails or ctx is done
	ReadBuffer(ctx context.Context, buf Buffer, offset, size uint64) ([]byte, error)
}

// CommandEncoder records GPU commands in order. Commands recorded into the same encoder
// execute on the device in recording order.
type CommandEncoder interface {
	Releaser

	// CopyBufferToBuffer records a copy of size bytes from src to dst.
	//
	// Parameters:
	//   - src: the source buffer, created with gputypes.BufferUsageCopySrc
	//   - srcOffset: the byte offset into src
	//   - dst: the destination buffer, created with gputypes.BufferUsageCopyDst
	//   - dstOffset: the byte offset into dst
	//   - size: the number of bytes to copy, a multiple of CopyAlignment
	//
	// Returns:
	//   - error: an error if the copy could not be recorded
	CopyBufferToBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset uint64, size uint64) error

	// BeginRenderPass starts recording a render pass. The pass must be ended before any other
	// command is recorded into this encoder.
	//
	// Parameters:
	//   - desc: the render pass descriptor
	//
	// Returns:
	//   - RenderPass: the pass encoder
	//   - error: an error if the pass could not be started
	BeginRenderPass(desc *RenderPassDescriptor) (RenderPass, error)

	// DeferRelease keeps r alive until the command buffer produced by this encoder has been submitted.
	//
	// Parameters:
	//   - r: the resource to release after submission
	DeferRelease(r Releaser)

	// Finish ends recording and produces a command buffer.
	//
	// Returns:
	//   - CommandBuffer: the finished command buffer
	//   - error: an error if recording failed
	Finish() (CommandBuffer, error)
}

// RenderPass records draw commands into a render pass.
type RenderPass interface {
	SetPipeline(p RenderPipeline)
	SetBindGroup(index uint32, g BindGroup)
	SetVertexBuffer(slot uint32, buf Buffer)
	SetIndexBuffer(buf Buffer, format gputypes.IndexFormat)
	Draw(vertexCount, instanceCount uint32)
	DrawIndexed(indexCount, instanceCount uint32)
	End() error
}
