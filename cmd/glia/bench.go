package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/glia-ml/glia/backend/cpu"
	"github.com/glia-ml/glia/backend/webgpu"
	"github.com/glia-ml/glia/expr"
	"github.com/glia-ml/glia/function"
	"github.com/glia-ml/glia/tensor"
)

var benchSize int
var benchIters int
var benchBackend string

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Compile and time a reference expression",
	Long: `Bench compiles sigmoid(x @ w + b) summed to a scalar, runs it
repeatedly on random data and prints the per-op timing profile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, release, err := pickBackend(benchBackend)
		if err != nil {
			return err
		}
		defer release()

		x := expr.Matrix("x", tensor.Float32, benchSize, benchSize)
		w := expr.NewShared("w", tensor.Randn(tensor.Shape{benchSize, benchSize}, tensor.Float32))
		b := expr.NewShared("b", tensor.Zeros(tensor.Shape{benchSize, benchSize}, tensor.Float32))

		out := expr.Sum(expr.Sigmoid(expr.Add(expr.MatMul(x, w.Var()), b.Var())))

		start := time.Now()
		f, err := function.Compile(
			function.Inputs(x),
			function.Outputs(out),
			function.WithBackend(backend),
			function.WithProfiling(),
		)
		if err != nil {
			return err
		}
		fmt.Printf("backend:  %s\n", backend.Name())
		fmt.Printf("compiled in %v\n", time.Since(start))

		arg := tensor.Randn(tensor.Shape{benchSize, benchSize}, tensor.Float32)
		for i := 0; i < benchIters; i++ {
			if _, err := f.Call(arg); err != nil {
				return err
			}
		}
		fmt.Print(f.Profile().String())
		return nil
	},
}

// pickBackend resolves a --backend flag value, returning the backend and a
// release func for any GPU resources it holds.
func pickBackend(name string) (tensor.Backend, func(), error) {
	switch name {
	case "cpu":
		return cpu.New(), func() {}, nil
	case "webgpu":
		gpu, err := webgpu.New()
		if err != nil {
			return nil, nil, fmt.Errorf("webgpu backend: %w", err)
		}
		return gpu, gpu.Release, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q, want cpu or webgpu", name)
	}
}

func init() {
	benchCmd.Flags().IntVar(&benchSize, "size", 512, "matrix dimension")
	benchCmd.Flags().IntVar(&benchIters, "iters", 10, "number of calls")
	benchCmd.Flags().StringVar(&benchBackend, "backend", "cpu", "kernel backend (cpu or webgpu)")
}
