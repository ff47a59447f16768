package tensor

// Backend is the kernel dispatch interface the compiled-function VM uses.
// Each method computes one primitive on concrete tensors. Binary element-wise
// kernels follow NumPy broadcasting; kernels panic on shape or dtype
// mismatches, which the graph layer rules out before execution.
//
// Implementations:
//   - CPU: pure Go with goroutine parallelism
//   - WebGPU: WGSL compute kernels with CPU fallback for uncovered ops
type Backend interface {
	// Element-wise binary operations (broadcasting).
	Add(a, b *Tensor) *Tensor
	Sub(a, b *Tensor) *Tensor
	Mul(a, b *Tensor) *Tensor
	Div(a, b *Tensor) *Tensor
	Pow(a, b *Tensor) *Tensor
	Maximum(a, b *Tensor) *Tensor
	Minimum(a, b *Tensor) *Tensor

	// Element-wise unary operations.
	Neg(x *Tensor) *Tensor
	Abs(x *Tensor) *Tensor
	Sign(x *Tensor) *Tensor
	Exp(x *Tensor) *Tensor
	Log(x *Tensor) *Tensor
	Log1p(x *Tensor) *Tensor
	Sqrt(x *Tensor) *Tensor
	Sqr(x *Tensor) *Tensor
	Sin(x *Tensor) *Tensor
	Cos(x *Tensor) *Tensor
	Tanh(x *Tensor) *Tensor
	Sigmoid(x *Tensor) *Tensor
	Softplus(x *Tensor) *Tensor

	// Linear algebra and shape operations.
	MatMul(a, b *Tensor) *Tensor
	Transpose(x *Tensor, axes ...int) *Tensor
	Reshape(x *Tensor, shape Shape) *Tensor
	Broadcast(x *Tensor, shape Shape) *Tensor

	// Reductions.
	Sum(x *Tensor) *Tensor
	SumDim(x *Tensor, dim int, keepDim bool) *Tensor
	MeanDim(x *Tensor, dim int, keepDim bool) *Tensor
	Max(x *Tensor) *Tensor
	MaxDim(x *Tensor, dim int, keepDim bool) *Tensor

	// Softmax along a dimension (numerically stable).
	Softmax(x *Tensor, dim int) *Tensor

	// Comparisons (broadcasting, bool result).
	Greater(a, b *Tensor) *Tensor
	Lower(a, b *Tensor) *Tensor
	Equal(a, b *Tensor) *Tensor

	// Element selection: where(cond, x, y) with broadcasting.
	Where(cond, x, y *Tensor) *Tensor

	// Type conversion.
	Cast(x *Tensor, dtype DataType) *Tensor

	// Metadata.
	Name() string
	Device() Device
}
