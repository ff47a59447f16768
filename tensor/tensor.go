// Copyright 2026 The Glia Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for concrete tensor values in the
// Glia expression compiler.
//
// A Tensor is a dense n-dimensional array with a runtime dtype (float32,
// float64, int32, int64 or bool). Tensors feed compiled functions as
// arguments, initialize shared variables and come back as results:
//
//	a := tensor.MustFromSlice([]float64{1, 2, 3}, tensor.Shape{3})
//	s := tensor.Scalar(1.5)
//	v := tensor.Item[float64](s) // 1.5
package tensor

import (
	"io"

	"github.com/glia-ml/glia/internal/tensor"
)

// DType is the constraint for element types a tensor can hold.
type DType = tensor.DType

// DataType is the runtime tag of a tensor's element type.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Bool    DataType = tensor.Bool
)

// Device identifies where a tensor's data lives.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	WebGPU Device = tensor.WebGPU
)

// Shape holds the dimensions of a tensor. Shape{} is a 0-D scalar.
type Shape = tensor.Shape

// Tensor is a dense n-dimensional array.
type Tensor = tensor.Tensor

// Backend executes tensor kernels on one device.
type Backend = tensor.Backend

// TypeOf returns the DataType for a static element type.
func TypeOf[T DType]() DataType { return tensor.TypeOf[T]() }

// New allocates a zero-filled tensor.
func New(shape Shape, dtype DataType, device Device) (*Tensor, error) {
	return tensor.New(shape, dtype, device)
}

// MustNew is New but panics on error.
func MustNew(shape Shape, dtype DataType, device Device) *Tensor {
	return tensor.MustNew(shape, dtype, device)
}

// FromSlice creates a CPU tensor from a Go slice. The data is copied.
func FromSlice[T DType](data []T, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// MustFromSlice is FromSlice for literals in tests and examples.
func MustFromSlice[T DType](data []T, shape Shape) *Tensor {
	return tensor.MustFromSlice(data, shape)
}

// Scalar creates a 0-D tensor holding a single value.
func Scalar[T DType](v T) *Tensor { return tensor.Scalar(v) }

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape, dtype DataType) *Tensor { return tensor.Zeros(shape, dtype) }

// Ones creates a tensor filled with ones.
func Ones(shape Shape, dtype DataType) *Tensor { return tensor.Ones(shape, dtype) }

// Full creates a tensor filled with a value, converted to dtype.
func Full(shape Shape, dtype DataType, value float64) *Tensor {
	return tensor.Full(shape, dtype, value)
}

// Arange creates a 1-D tensor with values [start, end) step 1.
func Arange[T DType](start, end T) *Tensor { return tensor.Arange(start, end) }

// Eye creates an n×n identity matrix.
func Eye(n int, dtype DataType) *Tensor { return tensor.Eye(n, dtype) }

// Randn creates a float tensor with values drawn from N(0, 1).
func Randn(shape Shape, dtype DataType) *Tensor { return tensor.Randn(shape, dtype) }

// Rand creates a float tensor with values drawn from U(0, 1).
func Rand(shape Shape, dtype DataType) *Tensor { return tensor.Rand(shape, dtype) }

// Values returns a typed slice view of the tensor's data (zero-copy).
// Panics if T does not match the tensor's dtype.
func Values[T DType](t *Tensor) []T { return tensor.Values[T](t) }

// Item returns the single value of a scalar tensor.
func Item[T DType](t *Tensor) T { return tensor.Item[T](t) }

// BroadcastShapes returns the shape two operands broadcast to, whether any
// expansion happened, and an error when the shapes are incompatible.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}

// Save writes named tensors in the safetensors-style container format.
func Save(w io.Writer, tensors map[string]*Tensor) error {
	return tensor.Save(w, tensors)
}

// Load reads tensors written by Save.
func Load(r io.Reader) (map[string]*Tensor, error) {
	return tensor.Load(r)
}

// SaveFile writes named tensors to a file.
func SaveFile(path string, tensors map[string]*Tensor) error {
	return tensor.SaveFile(path, tensors)
}

// LoadFile reads tensors from a file written by SaveFile.
func LoadFile(path string) (map[string]*Tensor, error) {
	return tensor.LoadFile(path)
}
