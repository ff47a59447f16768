// Package graph implements the symbolic expression IR: variables, apply
// nodes and operations that together form a computation graph. Graphs are
// built eagerly as immutable DAGs; the compiler clones and rewrites them
// before execution.
package graph

import (
	"fmt"
	"sync"

	"github.com/glia-ml/glia/internal/tensor"
)

// Var is a node in a symbolic expression graph. A Var is one of:
//   - a free input variable (bound to a concrete tensor at call time)
//   - a constant (wraps a concrete tensor)
//   - a shared variable's symbolic handle (persistent storage)
//   - the result of applying an op (owner != nil)
//
// Every Var carries a static dtype and shape, inferred at construction.
type Var struct {
	name   string
	dtype  tensor.DataType
	shape  tensor.Shape
	owner  *Apply
	value  *tensor.Tensor // non-nil for constants
	shared *Shared        // non-nil for shared variables
}

// Apply records one op application: the op, its inputs and its output.
type Apply struct {
	op     Op
	inputs []*Var
	out    *Var
}

// Op returns the applied operation.
func (a *Apply) Op() Op { return a.op }

// Inputs returns the input variables. The slice must not be mutated outside
// the rewrite package.
func (a *Apply) Inputs() []*Var { return a.inputs }

// Output returns the output variable.
func (a *Apply) Output() *Var { return a.out }

// NewVar creates a free input variable with the given dtype and static shape.
func NewVar(name string, dtype tensor.DataType, shape tensor.Shape) *Var {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("variable %q: %v", name, err))
	}
	return &Var{name: name, dtype: dtype, shape: shape.Clone()}
}

// Scalar creates a 0-D input variable.
func Scalar(name string, dtype tensor.DataType) *Var {
	return NewVar(name, dtype, tensor.Shape{})
}

// Vector creates a 1-D input variable.
func Vector(name string, dtype tensor.DataType, n int) *Var {
	return NewVar(name, dtype, tensor.Shape{n})
}

// Matrix creates a 2-D input variable.
func Matrix(name string, dtype tensor.DataType, rows, cols int) *Var {
	return NewVar(name, dtype, tensor.Shape{rows, cols})
}

// Const creates a constant from a concrete tensor.
func Const(t *tensor.Tensor) *Var {
	return &Var{dtype: t.DType(), shape: t.Shape().Clone(), value: t}
}

// ConstScalar creates a 0-D constant with the given value converted to dtype.
func ConstScalar(dtype tensor.DataType, v float64) *Var {
	return Const(tensor.Full(tensor.Shape{}, dtype, v))
}

// Name returns the variable's name, or a description of its producing op.
func (v *Var) Name() string {
	if v.name != "" {
		return v.name
	}
	if v.owner != nil {
		return v.owner.op.Name()
	}
	if v.value != nil {
		return "const"
	}
	return "?"
}

// DType returns the variable's data type.
func (v *Var) DType() tensor.DataType { return v.dtype }

// Shape returns the variable's static shape.
func (v *Var) Shape() tensor.Shape { return v.shape }

// Owner returns the Apply that produced this variable, or nil for leaves.
func (v *Var) Owner() *Apply { return v.owner }

// IsConst reports whether the variable is a constant, returning its value.
func (v *Var) IsConst() (*tensor.Tensor, bool) { return v.value, v.value != nil }

// SharedCell returns the Shared backing this variable, if any.
func (v *Var) SharedCell() *Shared { return v.shared }

// IsInput reports whether the variable is a free input (must be bound at
// call time).
func (v *Var) IsInput() bool {
	return v.owner == nil && v.value == nil && v.shared == nil
}

// String returns a short description of the variable.
func (v *Var) String() string {
	return fmt.Sprintf("%s[%s]%v", v.Name(), v.dtype, v.shape)
}

// Shared is a persistent storage cell bound to a symbolic variable. The cell
// keeps its value across function calls and may be updated by compiled
// functions (via update pairs) or directly with SetValue.
type Shared struct {
	name string

	mu    sync.RWMutex
	value *tensor.Tensor

	v *Var
}

// NewShared creates a shared variable holding the given initial value.
func NewShared(name string, value *tensor.Tensor) *Shared {
	if value == nil {
		panic(fmt.Sprintf("shared %q: nil initial value", name))
	}
	s := &Shared{name: name, value: value.Clone()}
	s.v = &Var{name: name, dtype: value.DType(), shape: value.Shape().Clone(), shared: s}
	return s
}

// Name returns the shared variable's name.
func (s *Shared) Name() string { return s.name }

// Var returns the symbolic handle to use in expressions.
func (s *Shared) Var() *Var { return s.v }

// Value returns the current value. The returned tensor shares storage with
// the cell (copy-on-write); callers must not mutate it through typed views.
func (s *Shared) Value() *tensor.Tensor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value.Clone()
}

// SetValue replaces the stored value. Shape and dtype must match the cell's
// declared type.
func (s *Shared) SetValue(t *tensor.Tensor) error {
	if t.DType() != s.v.dtype {
		return fmt.Errorf("shared %q: dtype mismatch: %s vs %s", s.name, t.DType(), s.v.dtype)
	}
	if !t.Shape().Equal(s.v.shape) {
		return fmt.Errorf("shared %q: shape mismatch: %v vs %v", s.name, t.Shape(), s.v.shape)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.value
	s.value = t.Clone()
	old.Release()
	return nil
}

// Update pairs a shared variable with the expression whose value replaces
// the cell's contents after each call of a compiled function.
type Update struct {
	Shared *Shared
	Expr   *Var
}
