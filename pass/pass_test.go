package pass_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/op"
	"github.com/corten-ml/corten/pass"
	"github.com/corten-ml/corten/patch"
	"github.com/corten-ml/corten/plan"
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

func buildSliceDownsampleGraph(t *testing.T) *graph.Graph[fact.TypedFact] {
	t.Helper()
	g := graph.New[fact.TypedFact]("typed")
	src, err := g.AddSource("in", typedF(tensor.I32, 16))
	require.NoError(t, err)
	sliceOp := op.Slice{Axis: 0, Begin: 1, End: 15}
	sliceOuts, err := g.WireNode("slice", sliceOp, []graph.Outlet{src}, sliceOp.ShapeRule)
	require.NoError(t, err)
	downOp := op.Downsample{Axis: 0, Stride: 2, Modulo: 1}
	downOuts, err := g.WireNode("down", downOp, sliceOuts, downOp.ShapeRule)
	require.NoError(t, err)
	g.SetOutputOutlets(downOuts)
	return g
}

func runScalarStream(t *testing.T, g *graph.Graph[fact.TypedFact]) []int64 {
	t.Helper()
	p, err := plan.New(g)
	require.NoError(t, err)
	sess := plan.NewSession(p, nil)
	in, err := tensor.Zero(tensor.I32, []int{16})
	require.NoError(t, err)
	for i := 0; i < 16; i++ {
		require.NoError(t, in.SetAt(i, int64(i)))
	}
	out, err := sess.Run(context.Background(), []*tensor.Tensor{in})
	require.NoError(t, err)
	vals := make([]int64, out[0].Len())
	for i := range vals {
		v, err := out[0].At(i)
		require.NoError(t, err)
		vals[i] = v.(int64)
	}
	return vals
}

func TestRunDeclutterPushesDownsampleAheadOfSlice(t *testing.T) {
	g := buildSliceDownsampleGraph(t)
	want := runScalarStream(t, g)
	require.Equal(t, []int64{2, 4, 6, 8, 10, 12, 14}, want)

	rewritten, err := pass.RunDeclutter(g, nil)
	require.NoError(t, err)

	order, err := rewritten.EvalOrder()
	require.NoError(t, err)
	nonSource := make([]*graph.Node[fact.TypedFact], 0, 2)
	for _, id := range order {
		n := rewritten.NodeByID(id)
		if !graph.IsSource(n.Op) {
			nonSource = append(nonSource, n)
		}
	}
	require.Len(t, nonSource, 2)
	require.Equal(t, "Downsample", nonSource[0].Op.OpName())
	require.Equal(t, "Slice", nonSource[1].Op.OpName())

	got := runScalarStream(t, rewritten)
	require.Equal(t, want, got)
}

func TestRunDeclutterIsNoOpWhenNoRewriteApplies(t *testing.T) {
	g := graph.New[fact.TypedFact]("typed")
	src, err := g.AddSource("in", typedF(tensor.I32, 4))
	require.NoError(t, err)
	idOp := op.Identity{}
	outs, err := g.WireNode("id", idOp, []graph.Outlet{src}, idOp.ShapeRule)
	require.NoError(t, err)
	g.SetOutputOutlets(outs)

	rewritten, err := pass.RunDeclutter(g, nil)
	require.NoError(t, err)
	order, err := rewritten.EvalOrder()
	require.NoError(t, err)
	require.Len(t, order, 2)
}

// flipA and flipB are a pair of pass-through ops whose Declutter hooks are
// mutual inverses: flipA always proposes replacing itself with flipB and
// vice versa, so a naive fixpoint driver would alternate forever. Exercises
// spec.md §8 scenario 6 against pass.runFamily's transition-reversal guard.
type flipA struct{ op.BaseOp }

func (flipA) OpName() string   { return "FlipA" }
func (flipA) OutputArity() int { return 1 }
func (flipA) ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error) { return inputs, nil }
func (flipA) Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error)      { return inputs, nil }
func (flipA) Validation() op.Validation                                  { return op.Exact }
func (flipA) Declutter(g *graph.Graph[fact.TypedFact], id graph.NodeID) (*patch.Patch[fact.TypedFact], error) {
	return flipDeclutter(g, id, flipB{})
}

type flipB struct{ op.BaseOp }

func (flipB) OpName() string   { return "FlipB" }
func (flipB) OutputArity() int { return 1 }
func (flipB) ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error) { return inputs, nil }
func (flipB) Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error)      { return inputs, nil }
func (flipB) Validation() op.Validation                                  { return op.Exact }
func (flipB) Declutter(g *graph.Graph[fact.TypedFact], id graph.NodeID) (*patch.Patch[fact.TypedFact], error) {
	return flipDeclutter(g, id, flipA{})
}

func flipDeclutter(g *graph.Graph[fact.TypedFact], id graph.NodeID, replacement op.Op) (*patch.Patch[fact.TypedFact], error) {
	node := g.NodeByID(id)
	p := patch.New[fact.TypedFact]("flip")
	tap := patch.Existing(node.Inputs[0])
	newIdx := p.AddNode(node.Name+"$flipped", replacement, []patch.Ref{tap}, replacement.ShapeRule)
	p.Shunt(graph.Outlet{Node: id, Slot: 0}, patch.Staged(newIdx, 0))
	return p, nil
}

// TestRunDeclutterStopsMutualInverseRewritesAfterOneApplication covers
// spec.md §8 scenario 6: the pass driver must terminate without panicking
// and return a graph equal modulo exactly one application of either rule,
// not an error, even though flipA and flipB would otherwise propose
// rewrites forever.
func TestRunDeclutterStopsMutualInverseRewritesAfterOneApplication(t *testing.T) {
	g := graph.New[fact.TypedFact]("typed")
	src, err := g.AddSource("in", typedF(tensor.I32, 4))
	require.NoError(t, err)
	a := flipA{}
	outs, err := g.WireNode("flip", a, []graph.Outlet{src}, a.ShapeRule)
	require.NoError(t, err)
	g.SetOutputOutlets(outs)

	rewritten, err := pass.RunDeclutter(g, nil)
	require.NoError(t, err)

	order, err := rewritten.EvalOrder()
	require.NoError(t, err)
	nonSource := make([]*graph.Node[fact.TypedFact], 0, 1)
	for _, id := range order {
		n := rewritten.NodeByID(id)
		if !graph.IsSource(n.Op) {
			nonSource = append(nonSource, n)
		}
	}
	require.Len(t, nonSource, 1)
	require.Equal(t, "FlipB", nonSource[0].Op.OpName())
}
