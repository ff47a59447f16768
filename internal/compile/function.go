// Package compile turns expression graphs into callable functions. Compiling
// rewrites the graph (per the optimization mode), plans execution and wires
// shared-variable updates; the result is a Function whose Call binds input
// tensors, evaluates lazily and applies updates atomically.
package compile

import (
	"fmt"
	"sync"
	"time"

	"github.com/glia-ml/glia/internal/backend/cpu"
	"github.com/glia-ml/glia/internal/graph"
	"github.com/glia-ml/glia/internal/rewrite"
	"github.com/glia-ml/glia/internal/tensor"
)

// Mode selects the optimization effort spent at compile time.
type Mode int

const (
	// FastRun applies the full rewrite pipeline. The default.
	FastRun Mode = iota
	// FastCompile skips the pattern rewrites, trading call speed for
	// near-instant compilation. Useful in tests and tight edit loops.
	FastCompile
)

func (m Mode) String() string {
	switch m {
	case FastRun:
		return "fast_run"
	case FastCompile:
		return "fast_compile"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

type config struct {
	inputs    []*graph.Var
	outputs   []*graph.Var
	updates   []graph.Update
	backend   tensor.Backend
	mode      Mode
	profiling bool
}

// Option configures Compile.
type Option func(*config)

// Inputs declares the free input variables, in the order Call expects them.
func Inputs(vars ...*graph.Var) Option {
	return func(c *config) { c.inputs = append(c.inputs, vars...) }
}

// Outputs declares the expressions whose values Call returns, in order.
func Outputs(vars ...*graph.Var) Option {
	return func(c *config) { c.outputs = append(c.outputs, vars...) }
}

// WithUpdates attaches shared-variable updates: after each call, every cell
// is replaced by its expression's value. All update expressions read the
// pre-call values.
func WithUpdates(updates ...graph.Update) Option {
	return func(c *config) { c.updates = append(c.updates, updates...) }
}

// WithBackend selects the backend that executes kernels. Defaults to the CPU
// backend.
func WithBackend(b tensor.Backend) Option {
	return func(c *config) { c.backend = b }
}

// WithMode selects the optimization mode. Defaults to FastRun.
func WithMode(m Mode) Option {
	return func(c *config) { c.mode = m }
}

// WithProfiling enables per-op timing collection, available through
// Function.Profile.
func WithProfiling() Option {
	return func(c *config) { c.profiling = true }
}

// Function is a compiled expression graph. Calls are serialized: each call
// sees a consistent snapshot of all shared variables and its updates are
// applied together after evaluation.
type Function struct {
	backend tensor.Backend
	mode    Mode

	inputs  []*graph.Var
	outputs []*graph.Var
	updates []graph.Update

	plan *plan
	prof *Profile

	mu sync.Mutex
}

// Compile builds a callable function from symbolic outputs and updates.
func Compile(opts ...Option) (*Function, error) {
	start := time.Now()

	c := &config{backend: cpu.New(), mode: FastRun}
	for _, opt := range opts {
		opt(c)
	}

	if len(c.outputs) == 0 && len(c.updates) == 0 {
		return nil, fmt.Errorf("compile: no outputs and no updates")
	}

	seen := make(map[*graph.Var]bool, len(c.inputs))
	for _, in := range c.inputs {
		if !in.IsInput() {
			return nil, fmt.Errorf("compile: %s is not a free input variable", in)
		}
		if seen[in] {
			return nil, fmt.Errorf("compile: duplicate input %s", in)
		}
		seen[in] = true
	}

	cells := make(map[*graph.Shared]bool, len(c.updates))
	for _, u := range c.updates {
		if u.Shared == nil || u.Expr == nil {
			return nil, fmt.Errorf("compile: update with nil shared or expression")
		}
		if cells[u.Shared] {
			return nil, fmt.Errorf("compile: duplicate update for shared %q", u.Shared.Name())
		}
		cells[u.Shared] = true
		if u.Expr.DType() != u.Shared.Var().DType() {
			return nil, fmt.Errorf("compile: update for %q has dtype %s, cell holds %s",
				u.Shared.Name(), u.Expr.DType(), u.Shared.Var().DType())
		}
		if !u.Expr.Shape().Equal(u.Shared.Var().Shape()) {
			return nil, fmt.Errorf("compile: update for %q has shape %v, cell holds %v",
				u.Shared.Name(), u.Expr.Shape(), u.Shared.Var().Shape())
		}
	}

	roots := make([]*graph.Var, 0, len(c.outputs)+len(c.updates))
	roots = append(roots, c.outputs...)
	for _, u := range c.updates {
		roots = append(roots, u.Expr)
	}

	for _, free := range graph.Inputs(roots) {
		if !seen[free] {
			return nil, fmt.Errorf("compile: graph depends on undeclared input %s", free)
		}
	}

	var pipeline *rewrite.Pipeline
	switch c.mode {
	case FastCompile:
		pipeline = rewrite.Minimal()
	default:
		pipeline = rewrite.Default()
	}
	roots = pipeline.Run(roots)

	f := &Function{
		backend: c.backend,
		mode:    c.mode,
		inputs:  c.inputs,
		outputs: roots[:len(c.outputs)],
		updates: make([]graph.Update, len(c.updates)),
	}
	for i, u := range c.updates {
		f.updates[i] = graph.Update{Shared: u.Shared, Expr: roots[len(c.outputs)+i]}
	}
	f.plan = newPlan(roots)

	if c.profiling {
		f.prof = newProfile(time.Since(start))
	}
	return f, nil
}

// MustCompile is Compile but panics on error.
func MustCompile(opts ...Option) *Function {
	f, err := Compile(opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Call evaluates the function on the given arguments, one per declared
// input, returning one tensor per declared output. Shared-variable updates
// are applied after all roots have been evaluated; a call that returns an
// error leaves every cell untouched.
func (f *Function) Call(args ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := time.Now()

	if len(args) != len(f.inputs) {
		return nil, fmt.Errorf("call: expected %d arguments, got %d", len(f.inputs), len(args))
	}
	for i, arg := range args {
		in := f.inputs[i]
		if arg == nil {
			return nil, fmt.Errorf("call: argument %d (%s) is nil", i, in.Name())
		}
		if arg.DType() != in.DType() {
			return nil, fmt.Errorf("call: argument %d (%s) has dtype %s, expected %s",
				i, in.Name(), arg.DType(), in.DType())
		}
		if !arg.Shape().Equal(in.Shape()) {
			return nil, fmt.Errorf("call: argument %d (%s) has shape %v, expected %v",
				i, in.Name(), arg.Shape(), in.Shape())
		}
	}

	m := newVM(f.backend, f.plan, f.prof)
	for i, arg := range args {
		m.bind(f.inputs[i], arg)
	}
	m.takeSnapshot()

	results := make([]*tensor.Tensor, len(f.outputs))
	for i, out := range f.outputs {
		t, err := m.eval(out)
		if err != nil {
			return nil, err
		}
		results[i] = t
	}

	newValues := make([]*tensor.Tensor, len(f.updates))
	for i, u := range f.updates {
		t, err := m.eval(u.Expr)
		if err != nil {
			return nil, err
		}
		newValues[i] = t
	}
	for i, u := range f.updates {
		if err := u.Shared.SetValue(newValues[i]); err != nil {
			return nil, fmt.Errorf("call: update %q: %w", u.Shared.Name(), err)
		}
	}

	// Results may alias argument or shared buffers; hand the caller
	// copy-on-write clones so later calls cannot disturb them.
	for i, t := range results {
		results[i] = t.Clone()
	}

	if f.prof != nil {
		f.prof.recordCall(time.Since(start))
	}
	return results, nil
}

// Call1 evaluates a single-output function, returning the lone result.
func (f *Function) Call1(args ...*tensor.Tensor) (*tensor.Tensor, error) {
	if len(f.outputs) != 1 {
		return nil, fmt.Errorf("call1: function has %d outputs", len(f.outputs))
	}
	out, err := f.Call(args...)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Inputs returns the declared input variables.
func (f *Function) Inputs() []*graph.Var { return f.inputs }

// Outputs returns the (rewritten) output expressions.
func (f *Function) Outputs() []*graph.Var { return f.outputs }

// Mode returns the optimization mode the function was compiled with.
func (f *Function) Mode() Mode { return f.mode }

// Profile returns collected timings, or nil when profiling is disabled.
func (f *Function) Profile() *Profile { return f.prof }
