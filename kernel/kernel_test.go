package kernel_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corten-ml/corten/kernel"
)

func naiveMatMul(a, b []float32, m, k, n int) []float32 {
	c := make([]float32, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var acc float32
			for kk := 0; kk < k; kk++ {
				acc += a[i*k+kk] * b[kk*n+j]
			}
			c[i*n+j] = acc
		}
	}
	return c
}

func TestMatMulF32MatchesReference(t *testing.T) {
	m, k, n := 5, 3, 7
	a := make([]float32, m*k)
	b := make([]float32, k*n)
	for i := range a {
		a[i] = float32(i%5) - 2
	}
	for i := range b {
		b[i] = float32(i%3) + 1
	}
	want := naiveMatMul(a, b, m, k, n)
	got, err := kernel.MatMulF32(a, b, m, k, n, 1, 0)
	require.NoError(t, err)
	for i := range want {
		require.InDelta(t, want[i], got[i], 1e-3, "index %d", i)
	}
}

func TestMatMulF32IdentityMatrix(t *testing.T) {
	m, k, n := 2, 2, 2
	a := []float32{1, 0, 0, 1}
	b := []float32{1, 2, 3, 4}
	got, err := kernel.MatMulF32(a, b, m, k, n, 1, 0)
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3, 4}, got, "identity A reproduces B")
}

func TestMatMulInt8MatchesSpecScenario(t *testing.T) {
	a := []int8{11, 7, 3, 10, 6, 2, 9, 5, 1, 8, 4, 0}
	b := []int8{1, 4, 2, 5, 3, 6}
	got := kernel.MatMulInt8(a, b, 4, 3, 2, 12, 0, 1.0, 1.0, 1.0, 0)
	want := []int8{-38, -83, -44, -98, -50, -113, -56, -128}
	require.Equal(t, want, got)
}

func TestSigmoidSaturatesAndIsMonotonic(t *testing.T) {
	x := []float32{-30, -1, 0, 1, 30}
	kernel.SigmoidF32(x)
	require.Equal(t, float32(0), x[0])
	require.Equal(t, float32(1), x[4])
	require.InDelta(t, 0.5, x[2], 1e-6)
	require.Less(t, x[1], x[2])
	require.Less(t, x[2], x[3])
}

func TestTanhMatchesMathTanh(t *testing.T) {
	x := []float32{-3, -0.5, 0, 0.5, 3}
	got := append([]float32(nil), x...)
	kernel.TanhF32(got)
	for i, v := range x {
		require.InDelta(t, math.Tanh(float64(v)), got[i], 1e-4)
	}
}

func TestSelectBackendIsStableAcrossCalls(t *testing.T) {
	b1 := kernel.SelectBackend()
	b2 := kernel.SelectBackend()
	require.Equal(t, b1.Name, b2.Name)
}
