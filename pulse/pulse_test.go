package pulse_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/op"
	"github.com/corten-ml/corten/pulse"
	"github.com/corten-ml/corten/tdim"
	"github.com/corten-ml/corten/tensor"
)

func typedF(dt tensor.DatumType, dims ...int64) fact.TypedFact {
	shape := make([]tdim.TDim, len(dims))
	for i, d := range dims {
		shape[i] = tdim.FromInt(d)
	}
	return fact.TypedFact{DT: dt, Shape: shape}
}

func buildConv1DGraph(t *testing.T) *graph.Graph[fact.TypedFact] {
	t.Helper()
	g := graph.New[fact.TypedFact]("typed")
	src, err := g.AddSource("in", typedF(tensor.F32, 16))
	require.NoError(t, err)
	conv := op.Conv1D{Axis: 0, Kernel: []float32{1, 1, 1}}
	outs, err := g.WireNode("conv", conv, []graph.Outlet{src}, conv.ShapeRule)
	require.NoError(t, err)
	g.SetOutputOutlets(outs)
	return g
}

func TestPulsifyWiresDelayAheadOfConv1D(t *testing.T) {
	g := buildConv1DGraph(t)
	pulsed, mapping, err := pulse.Pulsify(g, 0, 4)
	require.NoError(t, err)
	require.NotEmpty(t, mapping)

	order, err := pulsed.EvalOrder()
	require.NoError(t, err)
	require.Len(t, order, 3) // source, delay, conv

	var sawDelay, sawConv bool
	for _, id := range order {
		n := pulsed.NodeByID(id)
		switch n.Op.OpName() {
		case "Delay":
			sawDelay = true
		case "Conv1D":
			sawConv = true
		}
	}
	require.True(t, sawDelay)
	require.True(t, sawConv)

	out := pulsed.OutputOutlets()[0]
	outFact, err := pulsed.OutletFact(out)
	require.NoError(t, err)
	require.Equal(t, 4, outFact.PulseLen())
	require.Equal(t, 2, outFact.Delay)
}

func TestCheckStreamConv1DMatchesFixed(t *testing.T) {
	g := buildConv1DGraph(t)
	pulsed, _, err := pulse.Pulsify(g, 0, 4)
	require.NoError(t, err)

	in, err := tensor.Zero(tensor.F32, []int{16})
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		require.NoError(t, in.SetAt(i, float64(i+1)))
	}

	require.NoError(t, pulse.CheckStream(g, pulsed, in))
}

// TestPulsifyWithPulseSizeOne covers spec.md §8's boundary behavior
// "pulse size 1 must work": a 1-tap kernel has zero overlap, so the Delay
// wired ahead of it carries no samples and each pulse maps straight through
// with output delay 0.
func TestPulsifyWithPulseSizeOne(t *testing.T) {
	g := graph.New[fact.TypedFact]("typed")
	src, err := g.AddSource("in", typedF(tensor.F32, 8))
	require.NoError(t, err)
	conv := op.Conv1D{Axis: 0, Kernel: []float32{2}}
	outs, err := g.WireNode("conv", conv, []graph.Outlet{src}, conv.ShapeRule)
	require.NoError(t, err)
	g.SetOutputOutlets(outs)

	pulsed, _, err := pulse.Pulsify(g, 0, 1)
	require.NoError(t, err)

	out := pulsed.OutputOutlets()[0]
	outFact, err := pulsed.OutletFact(out)
	require.NoError(t, err)
	require.Equal(t, 1, outFact.PulseLen())
	require.Equal(t, 0, outFact.Delay)

	in, err := tensor.Zero(tensor.F32, []int{8})
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		require.NoError(t, in.SetAt(i, float64(i+1)))
	}
	require.NoError(t, pulse.CheckStream(g, pulsed, in))
}
