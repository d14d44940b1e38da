// Package kernel implements the matmul microkernel framework of spec.md
// §4.11: packed A/B panel layouts, a kernel contract carrying a fused
// post-op list, per-architecture backend dispatch (probed once and then
// process-wide immutable), and a quantized integer variant. The kernel
// contract is deliberately a plain struct of slices and sizes rather than a
// richer object graph, so that a future assembly backend could walk the
// same spec without re-entering Go.
package kernel

import (
	"runtime"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/corten-ml/corten/internal/xerrors"
)

// Backend names one registered microkernel: its panel dimensions and the
// byte alignment its packed buffers require.
type Backend struct {
	Name      string
	MR, NR    int
	Alignment int
	kernel    func(spec *Spec) error
}

var (
	backends     []Backend
	registerOnce sync.Once
	dispatchSF   singleflight.Group
	probeOnce    sync.Once
	selected     Backend
	maxWorkers   int    // 0 means unbounded, one goroutine per output panel
	forcedName   string // non-empty pins SelectBackend to a named backend
)

// SetMaxWorkers caps the number of concurrent panel goroutines MatMulF32
// spawns (package corten's Config.WithMatMulWorkers). n<=0 restores the
// unbounded default.
func SetMaxWorkers(n int) {
	maxWorkers = n
}

// SetBackendOverride pins SelectBackend to the named registered backend,
// bypassing GOARCH-based dispatch (package corten's kernel-selection
// config knob). An unknown name is ignored; clearing it with "" restores
// automatic dispatch.
func SetBackendOverride(name string) {
	forcedName = name
}

func registerBuiltins() {
	backends = []Backend{
		{Name: "generic-4x4", MR: 4, NR: 4, Alignment: 16, kernel: genericKernel},
		{Name: "generic-8x6-wide", MR: 8, NR: 6, Alignment: 32, kernel: genericKernel},
	}
}

// SelectBackend probes the host once (memoized via singleflight so
// concurrent first callers share one probe) and returns the best
// registered backend for runtime.GOARCH. The generic 4x4 backend is always
// registered as the guaranteed fallback (spec.md §4.11); corten has no
// SIMD-specific backend of its own, so "wide" here means a larger generic
// panel rather than real architecture intrinsics, and amd64/arm64 both
// select it while every other GOARCH falls back to generic-4x4.
func SelectBackend() Backend {
	registerOnce.Do(registerBuiltins)
	if forcedName != "" {
		for _, b := range backends {
			if b.Name == forcedName {
				return b
			}
		}
	}
	v, _, _ := dispatchSF.Do("select", func() (interface{}, error) {
		probeOnce.Do(func() {
			switch runtime.GOARCH {
			case "amd64", "arm64":
				selected = backends[1]
			default:
				selected = backends[0]
			}
		})
		return selected, nil
	})
	return v.(Backend)
}

// PostOpKind tags one fused post-operation the kernel applies after
// computing the raw accumulator tile.
type PostOpKind int

const (
	PostOpAddBiasRow PostOpKind = iota // add Bias[i] to every element of row i
	PostOpAddBiasCol                   // add Bias[j] to every element of column j
	PostOpMinClamp                     // clamp to >= Min
	PostOpMaxClamp                     // clamp to <= Max
	PostOpAddC                         // accumulate into the existing C buffer (beta=1 GEMM)
	PostOpDone                         // sentinel; the kernel stops walking the list here
)

// PostOp is one fused post-operation, carrying only the operands it needs.
type PostOp struct {
	Kind PostOpKind
	Bias []float32
	Min  float32
	Max  float32
}

// Spec is the kernel contract: packed A/B panels, the K loop length, the
// strided C destination, and the fused post-op sequence. M/N name the
// panel's logical rows/columns (<= the backend's MR/NR); K is the
// reduction length.
type Spec struct {
	PackedA   []float32 // mr x K, column-major panel
	PackedB   []float32 // K x nr, row-major panel
	M, N, K   int
	MR, NR    int
	C         []float32 // M x N, row-major, RowStride-strided
	RowStride int
	PostOps   []PostOp
}

// Run dispatches spec to the given backend's kernel.
func Run(b Backend, spec *Spec) error {
	if spec.M > spec.MR || spec.N > spec.NR {
		return xerrors.ErrShapeMismatch
	}
	return b.kernel(spec)
}

// genericKernel computes acc[i][j] = sum_k packedA[i + k*MR] * packedB[k*NR + j]
// for i<M, j<N, then walks the post-op list in order, writing the final
// result into the strided C buffer.
func genericKernel(spec *Spec) error {
	acc := make([][]float32, spec.M)
	for i := range acc {
		acc[i] = make([]float32, spec.N)
	}
	for k := 0; k < spec.K; k++ {
		for i := 0; i < spec.M; i++ {
			a := spec.PackedA[i+k*spec.MR]
			if a == 0 {
				continue
			}
			row := acc[i]
			boff := k * spec.NR
			for j := 0; j < spec.N; j++ {
				row[j] += a * spec.PackedB[boff+j]
			}
		}
	}
postOps:
	for _, op := range spec.PostOps {
		switch op.Kind {
		case PostOpDone:
			break postOps
		case PostOpAddBiasRow:
			for i := 0; i < spec.M; i++ {
				for j := 0; j < spec.N; j++ {
					acc[i][j] += op.Bias[i]
				}
			}
		case PostOpAddBiasCol:
			for i := 0; i < spec.M; i++ {
				for j := 0; j < spec.N; j++ {
					acc[i][j] += op.Bias[j]
				}
			}
		case PostOpMinClamp:
			for i := 0; i < spec.M; i++ {
				for j := 0; j < spec.N; j++ {
					if acc[i][j] < op.Min {
						acc[i][j] = op.Min
					}
				}
			}
		case PostOpMaxClamp:
			for i := 0; i < spec.M; i++ {
				for j := 0; j < spec.N; j++ {
					if acc[i][j] > op.Max {
						acc[i][j] = op.Max
					}
				}
			}
		case PostOpAddC:
			for i := 0; i < spec.M; i++ {
				for j := 0; j < spec.N; j++ {
					acc[i][j] += spec.C[i*spec.RowStride+j]
				}
			}
		}
	}
	for i := 0; i < spec.M; i++ {
		copy(spec.C[i*spec.RowStride:i*spec.RowStride+spec.N], acc[i])
	}
	return nil
}
