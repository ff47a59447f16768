package tensor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Device represents the compute device a tensor lives on.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// buffer is a reference-counted byte buffer shared between tensor views.
// Reference counting enables cheap cloning and in-place kernel optimizations
// when refCount == 1.
type buffer struct {
	data     []byte
	refCount atomic.Int32
	mu       sync.Mutex // guards deallocation
}

func newBuffer(size int) *buffer {
	b := &buffer{data: make([]byte, size)}
	b.refCount.Store(1)
	return b
}

func (b *buffer) addRef() { b.refCount.Add(1) }

func (b *buffer) release() {
	if b.refCount.Add(-1) == 0 {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.data = nil
	}
}

func (b *buffer) isUnique() bool { return b.refCount.Load() == 1 }

// Tensor is a dense multi-dimensional array: the concrete values that bind to
// symbolic variables when a compiled function runs. Storage is row-major and
// reference counted for copy-on-write semantics.
type Tensor struct {
	buf    *buffer
	shape  Shape
	stride []int
	dtype  DataType
	device Device
	offset int
}

// New creates a zero-initialized tensor with the given shape and type.
func New(shape Shape, dtype DataType, device Device) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &Tensor{
		buf:    newBuffer(shape.NumElements() * dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// MustNew is New for callers that treat allocation failure as a bug.
func MustNew(shape Shape, dtype DataType, device Device) *Tensor {
	t, err := New(shape, dtype, device)
	if err != nil {
		panic(err)
	}
	return t
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape { return t.shape }

// Strides returns the tensor's memory strides.
func (t *Tensor) Strides() []int { return t.stride }

// DType returns the tensor's data type.
func (t *Tensor) DType() DataType { return t.dtype }

// Device returns the tensor's compute device.
func (t *Tensor) Device() Device { return t.device }

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int { return t.shape.NumElements() }

// ByteSize returns the total memory size in bytes.
func (t *Tensor) ByteSize() int { return t.NumElements() * t.dtype.Size() }

// Data returns the raw byte slice backing the tensor.
func (t *Tensor) Data() []byte { return t.buf.data[t.offset:] }

// AsFloat32 interprets the data as []float32. Panics on dtype mismatch.
func (t *Tensor) AsFloat32() []float32 {
	if t.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", t.dtype))
	}
	data := t.buf.data[t.offset:]
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), t.NumElements())
}

// AsFloat64 interprets the data as []float64. Panics on dtype mismatch.
func (t *Tensor) AsFloat64() []float64 {
	if t.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", t.dtype))
	}
	data := t.buf.data[t.offset:]
	return unsafe.Slice((*float64)(unsafe.Pointer(&data[0])), t.NumElements())
}

// AsInt32 interprets the data as []int32. Panics on dtype mismatch.
func (t *Tensor) AsInt32() []int32 {
	if t.dtype != Int32 {
		panic(fmt.Sprintf("tensor dtype is %s, not int32", t.dtype))
	}
	data := t.buf.data[t.offset:]
	return unsafe.Slice((*int32)(unsafe.Pointer(&data[0])), t.NumElements())
}

// AsInt64 interprets the data as []int64. Panics on dtype mismatch.
func (t *Tensor) AsInt64() []int64 {
	if t.dtype != Int64 {
		panic(fmt.Sprintf("tensor dtype is %s, not int64", t.dtype))
	}
	data := t.buf.data[t.offset:]
	return unsafe.Slice((*int64)(unsafe.Pointer(&data[0])), t.NumElements())
}

// AsBool interprets the data as []bool. Panics on dtype mismatch.
func (t *Tensor) AsBool() []bool {
	if t.dtype != Bool {
		panic(fmt.Sprintf("tensor dtype is %s, not bool", t.dtype))
	}
	data := t.buf.data[t.offset:]
	return unsafe.Slice((*bool)(unsafe.Pointer(&data[0])), t.NumElements())
}

// Clone creates a shallow copy that shares the buffer via reference counting.
// The data is only duplicated when a kernel later needs exclusive ownership.
func (t *Tensor) Clone() *Tensor {
	t.buf.addRef()
	return &Tensor{
		buf:    t.buf,
		shape:  t.shape.Clone(),
		stride: append([]int(nil), t.stride...),
		dtype:  t.dtype,
		device: t.device,
		offset: t.offset,
	}
}

// Copy creates a deep copy with freshly allocated storage.
func (t *Tensor) Copy() *Tensor {
	c := MustNew(t.shape, t.dtype, t.device)
	copy(c.Data(), t.Data()[:t.ByteSize()])
	return c
}

// Release decrements the reference count and frees the buffer at zero.
func (t *Tensor) Release() { t.buf.release() }

// IsUnique reports whether this tensor is the only reference to its buffer.
// Kernels may compute in place when this holds.
func (t *Tensor) IsUnique() bool { return t.buf.isUnique() }

// Retain temporarily raises the reference count so kernels will not modify
// the buffer in place. The returned func must be deferred to restore it.
// The function VM uses this to protect constants, inputs and shared state.
func (t *Tensor) Retain() func() {
	t.buf.addRef()
	return func() { t.buf.release() }
}

// flatOffset computes the flat element offset of a multi-index.
func (t *Tensor) flatOffset(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(t.shape), len(indices)))
	}
	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, t.shape[i]))
		}
		offset += idx * t.stride[i]
	}
	return offset
}

// String returns a short description of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor[%s]%v on %s", t.dtype, t.shape, t.device)
}
