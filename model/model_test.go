package model_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/model"
	"github.com/corten-ml/corten/op"
	"github.com/corten-ml/corten/plan"
	"github.com/corten-ml/corten/tdim"
	"github.com/corten-ml/corten/tensor"
)

func knownFact(dt tensor.DatumType, dims ...int64) *fact.InferenceFact {
	optDims := make([]fact.OptDim, len(dims))
	for i, d := range dims {
		optDims[i] = fact.SomeDim(tdim.FromInt(d))
	}
	return &fact.InferenceFact{DT: fact.SomeDT(dt), Shape: fact.ShapeFact{Dims: optDims}}
}

func buildInferenceAddGraph(t *testing.T) *graph.Graph[*fact.InferenceFact] {
	t.Helper()
	g := graph.New[*fact.InferenceFact]("inference")
	a, err := g.AddSource("a", knownFact(tensor.I32, 4))
	require.NoError(t, err)
	b, err := g.AddSource("b", knownFact(tensor.I32, 4))
	require.NoError(t, err)
	addOp := op.Add{}
	outs, err := g.WireNode("sum", addOp, []graph.Outlet{a, b}, func(ins []*fact.InferenceFact) ([]*fact.InferenceFact, error) {
		return []*fact.InferenceFact{knownFact(tensor.I32, 4)}, nil
	})
	require.NoError(t, err)
	g.SetOutputOutlets(outs)
	return g
}

func TestInferenceModelIntoTypedProducesRunnablePlan(t *testing.T) {
	g := buildInferenceAddGraph(t)
	im := model.New(g, 10)

	typed, err := im.IntoTyped()
	require.NoError(t, err)
	require.Equal(t, "typed", typed.Graph.Flavor())

	p, err := typed.Plan()
	require.NoError(t, err)
	sess := plan.NewSession(p, nil)

	a, err := tensor.Zero(tensor.I32, []int{4})
	require.NoError(t, err)
	b, err := tensor.Zero(tensor.I32, []int{4})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, a.SetAt(i, int64(i)))
		require.NoError(t, b.SetAt(i, int64(10)))
	}
	out, err := sess.Run(context.Background(), []*tensor.Tensor{a, b})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		v, err := out[0].At(i)
		require.NoError(t, err)
		require.Equal(t, int64(10+i), v)
	}
}

func TestTypedModelIntoOptimizedThenPlanRuns(t *testing.T) {
	g := buildInferenceAddGraph(t)
	im := model.New(g, 10)
	typed, err := im.IntoTyped()
	require.NoError(t, err)

	opt, err := typed.IntoOptimized()
	require.NoError(t, err)

	p, err := opt.Plan()
	require.NoError(t, err)
	sess := plan.NewSession(p, nil)
	a, err := tensor.Zero(tensor.I32, []int{4})
	require.NoError(t, err)
	b, err := tensor.Zero(tensor.I32, []int{4})
	require.NoError(t, err)
	out, err := sess.Run(context.Background(), []*tensor.Tensor{a, b})
	require.NoError(t, err)
	require.Equal(t, 4, out[0].Len())
}

// graphSignature renders a graph's eval order as "op1(fact1)|op2(fact2)|..."
// so two graphs can be compared structurally without depending on node ids,
// which are never stable across rebuilds.
func graphSignature(t *testing.T, g *graph.Graph[fact.TypedFact]) string {
	t.Helper()
	order, err := g.EvalOrder()
	require.NoError(t, err)
	sig := ""
	for _, id := range order {
		n := g.NodeByID(id)
		sig += n.Op.OpName() + "(" + n.Outputs[0].Fact.DebugString() + ")|"
	}
	return sig
}

func TestIntoOptimizedIsIdempotent(t *testing.T) {
	g := buildInferenceAddGraph(t)
	im := model.New(g, 10)
	typed, err := im.IntoTyped()
	require.NoError(t, err)

	once, err := typed.IntoOptimized()
	require.NoError(t, err)
	twice, err := once.IntoOptimized()
	require.NoError(t, err)

	require.Equal(t, graphSignature(t, once.Graph), graphSignature(t, twice.Graph))
}

func TestTypedModelIntoPulsedIntoTypedRoundTripsStructure(t *testing.T) {
	g := graph.New[fact.TypedFact]("typed")
	srcDims := []int64{16}
	shape := make([]tdim.TDim, len(srcDims))
	for i, d := range srcDims {
		shape[i] = tdim.FromInt(d)
	}
	_, err := g.AddSource("in", fact.TypedFact{DT: tensor.F32, Shape: shape})
	require.NoError(t, err)
	src := g.InputOutlets()[0]
	conv := op.Conv1D{Axis: 0, Kernel: []float32{1, 1, 1}}
	outs, err := g.WireNode("conv", conv, []graph.Outlet{src}, conv.ShapeRule)
	require.NoError(t, err)
	g.SetOutputOutlets(outs)

	typed := &model.TypedModel{ID: "t", Graph: g, IterCap: 10}
	pulsed, err := typed.IntoPulsed(0, 4)
	require.NoError(t, err)

	back, err := pulsed.IntoTyped()
	require.NoError(t, err)
	order, err := back.Graph.EvalOrder()
	require.NoError(t, err)
	require.Len(t, order, 3) // source, delay, conv
}
