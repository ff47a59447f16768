package tensor

import (
	"fmt"
	"math/rand"
)

// FromSlice creates a CPU tensor from a Go slice. The data is copied.
func FromSlice[T DType](data []T, shape Shape) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t, err := New(shape, TypeOf[T](), CPU)
	if err != nil {
		return nil, err
	}
	copy(Values[T](t), data)
	return t, nil
}

// MustFromSlice is FromSlice for literals in tests and examples.
func MustFromSlice[T DType](data []T, shape Shape) *Tensor {
	t, err := FromSlice(data, shape)
	if err != nil {
		panic(err)
	}
	return t
}

// Scalar creates a 0-D tensor holding a single value.
func Scalar[T DType](v T) *Tensor {
	t := MustNew(Shape{}, TypeOf[T](), CPU)
	Values[T](t)[0] = v
	return t
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape, dtype DataType) *Tensor {
	return MustNew(shape, dtype, CPU)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape, dtype DataType) *Tensor {
	return Full(shape, dtype, 1)
}

// Full creates a tensor filled with a value, converted to dtype.
func Full(shape Shape, dtype DataType, value float64) *Tensor {
	t := MustNew(shape, dtype, CPU)
	switch dtype {
	case Float32:
		fill(t.AsFloat32(), float32(value))
	case Float64:
		fill(t.AsFloat64(), value)
	case Int32:
		fill(t.AsInt32(), int32(value))
	case Int64:
		fill(t.AsInt64(), int64(value))
	case Bool:
		fill(t.AsBool(), value != 0)
	}
	return t
}

func fill[T any](dst []T, v T) {
	for i := range dst {
		dst[i] = v
	}
}

// Arange creates a 1-D tensor with values [start, end) step 1.
func Arange[T DType](start, end T) *Tensor {
	switch any(start).(type) {
	case bool:
		panic("arange: bool not supported")
	}
	n := 0
	switch s := any(start).(type) {
	case float32:
		n = int(any(end).(float32) - s)
	case float64:
		n = int(any(end).(float64) - s)
	case int32:
		n = int(any(end).(int32) - s)
	case int64:
		n = int(any(end).(int64) - s)
	}
	if n < 0 {
		n = 0
	}
	t := MustNew(Shape{n}, TypeOf[T](), CPU)
	vals := Values[T](t)
	cur := start
	for i := 0; i < n; i++ {
		vals[i] = cur
		cur = addOne(cur)
	}
	return t
}

func addOne[T DType](v T) T {
	switch x := any(v).(type) {
	case float32:
		return any(x + 1).(T)
	case float64:
		return any(x + 1).(T)
	case int32:
		return any(x + 1).(T)
	case int64:
		return any(x + 1).(T)
	}
	return v
}

// Eye creates an n×n identity matrix.
func Eye(n int, dtype DataType) *Tensor {
	t := MustNew(Shape{n, n}, dtype, CPU)
	for i := 0; i < n; i++ {
		switch dtype {
		case Float32:
			t.AsFloat32()[i*n+i] = 1
		case Float64:
			t.AsFloat64()[i*n+i] = 1
		case Int32:
			t.AsInt32()[i*n+i] = 1
		case Int64:
			t.AsInt64()[i*n+i] = 1
		default:
			panic(fmt.Sprintf("eye: unsupported dtype %s", dtype))
		}
	}
	return t
}

// Randn creates a float tensor with values drawn from N(0, 1).
func Randn(shape Shape, dtype DataType) *Tensor {
	t := MustNew(shape, dtype, CPU)
	switch dtype {
	case Float32:
		vals := t.AsFloat32()
		for i := range vals {
			vals[i] = float32(rand.NormFloat64())
		}
	case Float64:
		vals := t.AsFloat64()
		for i := range vals {
			vals[i] = rand.NormFloat64()
		}
	default:
		panic(fmt.Sprintf("randn: unsupported dtype %s", dtype))
	}
	return t
}

// Rand creates a float tensor with values drawn from U(0, 1).
func Rand(shape Shape, dtype DataType) *Tensor {
	t := MustNew(shape, dtype, CPU)
	switch dtype {
	case Float32:
		vals := t.AsFloat32()
		for i := range vals {
			vals[i] = rand.Float32()
		}
	case Float64:
		vals := t.AsFloat64()
		for i := range vals {
			vals[i] = rand.Float64()
		}
	default:
		panic(fmt.Sprintf("rand: unsupported dtype %s", dtype))
	}
	return t
}

// Values returns a typed slice view of the tensor's data (zero-copy).
// Panics if T does not match the tensor's dtype.
func Values[T DType](t *Tensor) []T {
	var dummy T
	switch any(dummy).(type) {
	case float32:
		return any(t.AsFloat32()).([]T)
	case float64:
		return any(t.AsFloat64()).([]T)
	case int32:
		return any(t.AsInt32()).([]T)
	case int64:
		return any(t.AsInt64()).([]T)
	case bool:
		return any(t.AsBool()).([]T)
	default:
		panic("unsupported type")
	}
}

// Item returns the single value of a scalar tensor.
func Item[T DType](t *Tensor) T {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("Item() only works for scalar tensors, got shape %v", t.Shape()))
	}
	return Values[T](t)[0]
}

// At returns the element at the given indices of a float tensor as float64.
func (t *Tensor) At(indices ...int) float64 {
	off := t.flatOffset(indices)
	switch t.dtype {
	case Float32:
		return float64(t.AsFloat32()[off])
	case Float64:
		return t.AsFloat64()[off]
	case Int32:
		return float64(t.AsInt32()[off])
	case Int64:
		return float64(t.AsInt64()[off])
	default:
		panic(fmt.Sprintf("At: unsupported dtype %s", t.dtype))
	}
}

// SetAt sets the element at the given indices of a float tensor.
func (t *Tensor) SetAt(value float64, indices ...int) {
	off := t.flatOffset(indices)
	switch t.dtype {
	case Float32:
		t.AsFloat32()[off] = float32(value)
	case Float64:
		t.AsFloat64()[off] = value
	case Int32:
		t.AsInt32()[off] = int32(value)
	case Int64:
		t.AsInt64()[off] = int64(value)
	default:
		panic(fmt.Sprintf("SetAt: unsupported dtype %s", t.dtype))
	}
}
