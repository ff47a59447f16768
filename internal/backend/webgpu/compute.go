//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/glia-ml/glia/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

// compileShader compiles WGSL into a ShaderModule, caching by name.
func (b *Backend) compileShader(name, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, ok := b.shaders[name]; ok {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	shader := b.device.CreateShaderModuleWGSL(code)

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()
	return shader
}

// pipeline returns a cached ComputePipeline or creates one with auto layout.
func (b *Backend) pipeline(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	b.mu.RLock()
	if p, ok := b.pipelines[name]; ok {
		b.mu.RUnlock()
		return p
	}
	b.mu.RUnlock()

	p := b.device.CreateComputePipelineSimple(nil, shader, "main")

	b.mu.Lock()
	b.pipelines[name] = p
	b.mu.Unlock()
	return p
}

// createBuffer creates a GPU buffer pre-filled with data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mapped := unsafe.Slice((*byte)(buffer.GetMappedRange(0, size)), size)
	copy(mapped, data)
	buffer.Unmap()
	return buffer
}

// createUniformBuffer creates a uniform buffer padded to the required
// 16-byte alignment.
func (b *Backend) createUniformBuffer(data []byte) *wgpu.Buffer {
	size := (uint64(len(data)) + 15) &^ 15
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mapped := unsafe.Slice((*byte)(buffer.GetMappedRange(0, size)), size)
	copy(mapped, data)
	buffer.Unmap()
	return buffer
}

// readBuffer copies a storage buffer back to host memory through a staging
// buffer; storage buffers cannot be mapped directly.
func (b *Backend) readBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	b.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("webgpu: failed to map staging buffer: %w", err)
	}
	mapped := unsafe.Slice((*byte)(staging.GetMappedRange(0, size)), size)
	out := make([]byte, size)
	copy(out, mapped)
	staging.Unmap()
	return out, nil
}

// newResultBuffer creates an uninitialized storage buffer for kernel output.
func (b *Backend) newResultBuffer(size uint64) *wgpu.Buffer {
	return b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
}

// runBinary dispatches an element-wise binary kernel over same-shape float32
// operands.
func (b *Backend) runBinary(x, y *tensor.Tensor, name, code string) (*tensor.Tensor, error) {
	n := x.NumElements()
	shader := b.compileShader(name, code)
	pipe := b.pipeline(name, shader)

	bufX := b.createBuffer(x.Data()[:x.ByteSize()], wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufX.Release()
	bufY := b.createBuffer(y.Data()[:y.ByteSize()], wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufY.Release()

	resultSize := uint64(x.ByteSize())
	bufOut := b.newResultBuffer(resultSize)
	defer bufOut.Release()

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(n))
	bufParams := b.createUniformBuffer(params)
	defer bufParams.Release()

	layout := pipe.GetBindGroupLayout(0)
	group := b.device.CreateBindGroupSimple(layout, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufX, 0, resultSize),
		wgpu.BufferBindingEntry(1, bufY, 0, resultSize),
		wgpu.BufferBindingEntry(2, bufOut, 0, resultSize),
		wgpu.BufferBindingEntry(3, bufParams, 0, 16),
	})
	defer group.Release()

	b.dispatch(pipe, group, uint32((n+workgroupSize-1)/workgroupSize), 1)

	data, err := b.readBuffer(bufOut, resultSize)
	if err != nil {
		return nil, err
	}
	out := tensor.MustNew(x.Shape(), tensor.Float32, tensor.WebGPU)
	copy(out.Data(), data)
	return out, nil
}

// runUnary dispatches an element-wise unary kernel over a float32 operand.
func (b *Backend) runUnary(x *tensor.Tensor, name, code string) (*tensor.Tensor, error) {
	n := x.NumElements()
	shader := b.compileShader(name, code)
	pipe := b.pipeline(name, shader)

	bufX := b.createBuffer(x.Data()[:x.ByteSize()], wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufX.Release()

	resultSize := uint64(x.ByteSize())
	bufOut := b.newResultBuffer(resultSize)
	defer bufOut.Release()

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(n))
	bufParams := b.createUniformBuffer(params)
	defer bufParams.Release()

	layout := pipe.GetBindGroupLayout(0)
	group := b.device.CreateBindGroupSimple(layout, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufX, 0, resultSize),
		wgpu.BufferBindingEntry(1, bufOut, 0, resultSize),
		wgpu.BufferBindingEntry(2, bufParams, 0, 16),
	})
	defer group.Release()

	b.dispatch(pipe, group, uint32((n+workgroupSize-1)/workgroupSize), 1)

	data, err := b.readBuffer(bufOut, resultSize)
	if err != nil {
		return nil, err
	}
	out := tensor.MustNew(x.Shape(), tensor.Float32, tensor.WebGPU)
	copy(out.Data(), data)
	return out, nil
}

// runMatMul dispatches the tiled matmul kernel: C[M,N] = A[M,K] @ B[K,N].
func (b *Backend) runMatMul(x, y *tensor.Tensor) (*tensor.Tensor, error) {
	m := x.Shape()[0]
	k := x.Shape()[1]
	n := y.Shape()[1]
	if y.Shape()[0] != k {
		return nil, fmt.Errorf("webgpu: matmul shape mismatch: %v @ %v", x.Shape(), y.Shape())
	}

	shader := b.compileShader("matmul", matmulShader)
	pipe := b.pipeline("matmul", shader)

	bufX := b.createBuffer(x.Data()[:x.ByteSize()], wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufX.Release()
	bufY := b.createBuffer(y.Data()[:y.ByteSize()], wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufY.Release()

	resultSize := uint64(m * n * 4)
	bufOut := b.newResultBuffer(resultSize)
	defer bufOut.Release()

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(m))
	binary.LittleEndian.PutUint32(params[4:8], uint32(k))
	binary.LittleEndian.PutUint32(params[8:12], uint32(n))
	bufParams := b.createUniformBuffer(params)
	defer bufParams.Release()

	layout := pipe.GetBindGroupLayout(0)
	group := b.device.CreateBindGroupSimple(layout, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufX, 0, uint64(x.ByteSize())),
		wgpu.BufferBindingEntry(1, bufY, 0, uint64(y.ByteSize())),
		wgpu.BufferBindingEntry(2, bufOut, 0, resultSize),
		wgpu.BufferBindingEntry(3, bufParams, 0, 16),
	})
	defer group.Release()

	// 16x16 threads per workgroup, one thread per output element.
	wx := uint32(math.Ceil(float64(n) / 16.0))
	wy := uint32(math.Ceil(float64(m) / 16.0))
	b.dispatch(pipe, group, wx, wy)

	data, err := b.readBuffer(bufOut, resultSize)
	if err != nil {
		return nil, err
	}
	out := tensor.MustNew(tensor.Shape{m, n}, tensor.Float32, tensor.WebGPU)
	copy(out.Data(), data)
	return out, nil
}

// dispatch records and submits one compute pass.
func (b *Backend) dispatch(pipe *wgpu.ComputePipeline, group *wgpu.BindGroup, wx, wy uint32) {
	encoder := b.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipe)
	pass.SetBindGroup(0, group, nil)
	pass.DispatchWorkgroups(wx, wy, 1)
	pass.End()
	b.queue.Submit(encoder.Finish(nil))
}
