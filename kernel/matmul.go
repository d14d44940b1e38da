package kernel

import (
	"golang.org/x/sync/errgroup"
)

// MatMulF32 computes alpha*A*B for row-major A (m x k) and B (k x n) into
// a freshly allocated, zeroed m x n output, tiling it into backend-sized
// panels and running one kernel call per panel concurrently via errgroup
// (spec.md §4.11's "may internally spawn worker threads over independent
// output panels; this is implementation-discretion and must not be
// observable to callers"). It takes no input C: a non-zero beta only
// attaches a PostOpAddC fused post-op, which adds the zeroed output buffer,
// so the result is alpha*A*B whatever beta is.
func MatMulF32(a []float32, b []float32, m, k, n int, alpha, beta float32) ([]float32, error) {
	backend := SelectBackend()
	mr, nr := backend.MR, backend.NR

	packedA := PackA(a, m, k, mr)
	packedB := PackB(b, k, n, nr)
	if alpha != 1 {
		packedA = scaleInPlace(packedA, alpha)
	}

	c := make([]float32, m*n)

	rowPanels := (m + mr - 1) / mr
	colPanels := (n + nr - 1) / nr

	var g errgroup.Group
	if maxWorkers > 0 {
		g.SetLimit(maxWorkers)
	}
	for rp := 0; rp < rowPanels; rp++ {
		rp := rp
		for cp := 0; cp < colPanels; cp++ {
			cp := cp
			g.Go(func() error {
				panelM := mr
				if (rp+1)*mr > m {
					panelM = m - rp*mr
				}
				panelN := nr
				if (cp+1)*nr > n {
					panelN = n - cp*nr
				}
				spec := &Spec{
					PackedA:   packedA[rp*mr*k : (rp+1)*mr*k],
					PackedB:   packedB[cp*nr*k : (cp+1)*nr*k],
					M:         panelM,
					N:         panelN,
					K:         k,
					MR:        mr,
					NR:        nr,
					RowStride: n,
					C:         c[rp*mr*n+cp*nr:],
				}
				if beta != 0 {
					spec.PostOps = []PostOp{{Kind: PostOpAddC}}
				}
				return Run(backend, spec)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c, nil
}

func scaleInPlace(v []float32, alpha float32) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * alpha
	}
	return out
}
