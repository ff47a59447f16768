package cpu

import (
	"fmt"

	"golang.org/x/sys/cpu"

	"github.com/glia-ml/glia/internal/parallel"
	"github.com/glia-ml/glia/internal/tensor"
)

// blockSize is the cache block used by the tiled matmul kernel. With AVX2
// present the compiler vectorizes the inner loop well enough that larger
// tiles pay off.
var blockSize = pickBlockSize()

func pickBlockSize() int {
	if cpu.X86.HasAVX2 {
		return 128
	}
	return 64
}

// MatMul computes C = A @ B for 2-D tensors: [M, K] @ [K, N] -> [M, N].
func (c *Backend) MatMul(a, b *tensor.Tensor) *tensor.Tensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("matmul: dtype mismatch: %s vs %s", a.DType(), b.DType()))
	}
	if len(a.Shape()) != 2 || len(b.Shape()) != 2 {
		panic(fmt.Sprintf("matmul: requires 2D tensors, got %v and %v", a.Shape(), b.Shape()))
	}
	m, k := a.Shape()[0], a.Shape()[1]
	k2, n := b.Shape()[0], b.Shape()[1]
	if k != k2 {
		panic(fmt.Sprintf("matmul: shape mismatch: [%d,%d] @ [%d,%d]", m, k, k2, n))
	}

	out := tensor.MustNew(tensor.Shape{m, n}, a.DType(), c.device)
	switch a.DType() {
	case tensor.Float32:
		matmulKernel(out.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n, c.par)
	case tensor.Float64:
		matmulKernel(out.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, k, n, c.par)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}
	return out
}

// matmulKernel is a blocked ikj matmul, parallel over row blocks.
func matmulKernel[T float32 | float64](dst, a, b []T, m, k, n int, cfg parallel.Config) {
	bs := blockSize
	numRowBlocks := (m + bs - 1) / bs

	processRowBlock := func(rb int) {
		i0 := rb * bs
		i1 := min(i0+bs, m)
		for k0 := 0; k0 < k; k0 += bs {
			k1 := min(k0+bs, k)
			for j0 := 0; j0 < n; j0 += bs {
				j1 := min(j0+bs, n)
				for i := i0; i < i1; i++ {
					for kk := k0; kk < k1; kk++ {
						aik := a[i*k+kk]
						if aik == 0 {
							continue
						}
						brow := b[kk*n+j0 : kk*n+j1]
						crow := dst[i*n+j0 : i*n+j1]
						for j := range brow {
							crow[j] += aik * brow[j]
						}
					}
				}
			}
		}
	}

	if !cfg.Enabled || numRowBlocks == 1 {
		for rb := 0; rb < numRowBlocks; rb++ {
			processRowBlock(rb)
		}
		return
	}
	parallel.For(numRowBlocks, processRowBlock, parallel.Config{
		Enabled:      true,
		NumWorkers:   cfg.NumWorkers,
		MinChunkSize: 1,
	})
}
