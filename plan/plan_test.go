package plan_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/op"
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

func scalarTensor(t *testing.T, v int64) *tensor.Tensor {
	t.Helper()
	tt, err := tensor.Zero(tensor.I32, []int{1})
	require.NoError(t, err)
	require.NoError(t, tt.SetAt(0, v))
	return tt
}

func buildAddGraph(t *testing.T) *graph.Graph[fact.TypedFact] {
	t.Helper()
	g := graph.New[fact.TypedFact]("typed")
	a, err := g.AddSource("a", typedF(tensor.I32, 1))
	require.NoError(t, err)
	b, err := g.AddSource("b", typedF(tensor.I32, 1))
	require.NoError(t, err)
	outs, err := g.WireNode("sum", op.Add{}, []graph.Outlet{a, b}, op.Add{}.ShapeRule)
	require.NoError(t, err)
	g.SetOutputOutlets(outs)
	return g
}

func TestPlanOrderAndRun(t *testing.T) {
	g := buildAddGraph(t)
	p, err := plan.New(g)
	require.NoError(t, err)
	require.Len(t, p.Order, 3)

	sess := plan.NewSession(p, nil)
	out, err := sess.Run(context.Background(), []*tensor.Tensor{scalarTensor(t, 2), scalarTensor(t, 3)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	v, err := out[0].At(0)
	require.NoError(t, err)
	require.Equal(t, int64(5), v)
}

func TestPlanRunIsRepeatable(t *testing.T) {
	g := buildAddGraph(t)
	p, err := plan.New(g)
	require.NoError(t, err)
	sess := plan.NewSession(p, nil)

	_, err = sess.Run(context.Background(), []*tensor.Tensor{scalarTensor(t, 1), scalarTensor(t, 1)})
	require.NoError(t, err)
	out, err := sess.Run(context.Background(), []*tensor.Tensor{scalarTensor(t, 10), scalarTensor(t, 20)})
	require.NoError(t, err)
	v, _ := out[0].At(0)
	require.Equal(t, int64(30), v)
}

func TestPlanRunRespectsCancelledContext(t *testing.T) {
	g := buildAddGraph(t)
	p, err := plan.New(g)
	require.NoError(t, err)
	sess := plan.NewSession(p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sess.Run(ctx, []*tensor.Tensor{scalarTensor(t, 1), scalarTensor(t, 1)})
	require.Error(t, err)
}

func TestPlanRunRespectsDeadline(t *testing.T) {
	g := buildAddGraph(t)
	p, err := plan.New(g)
	require.NoError(t, err)
	sess := plan.NewSession(p, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)
	_, err = sess.Run(ctx, []*tensor.Tensor{scalarTensor(t, 1), scalarTensor(t, 1)})
	require.Error(t, err)
}

func TestSessionStatefulDelayCarriesAcrossRunsAndResets(t *testing.T) {
	g := graph.New[fact.TypedFact]("typed")
	src, err := g.AddSource("in", typedF(tensor.I32, 3))
	require.NoError(t, err)
	d := &op.Delay{Axis: 0, Overlap: 2}
	outs, err := g.WireNode("delay", d, []graph.Outlet{src}, d.ShapeRule)
	require.NoError(t, err)
	g.SetOutputOutlets(outs)

	p, err := plan.New(g)
	require.NoError(t, err)
	sess := plan.NewSession(p, nil)

	in1, err := tensor.Zero(tensor.I32, []int{3})
	require.NoError(t, err)
	for i, v := range []int64{1, 2, 3} {
		require.NoError(t, in1.SetAt(i, v))
	}
	out1, err := sess.Run(context.Background(), []*tensor.Tensor{in1})
	require.NoError(t, err)
	// carry starts at zero, so first pulse is [0,0,1,2,3]
	require.Equal(t, []int{5}, out1[0].Shape())

	in2, err := tensor.Zero(tensor.I32, []int{3})
	require.NoError(t, err)
	for i, v := range []int64{4, 5, 6} {
		require.NoError(t, in2.SetAt(i, v))
	}
	out2, err := sess.Run(context.Background(), []*tensor.Tensor{in2})
	require.NoError(t, err)
	v0, _ := out2[0].At(0)
	require.Equal(t, int64(2), v0) // carried tail [2,3] from the first pulse

	sess.Reset()
	out3, err := sess.Run(context.Background(), []*tensor.Tensor{in1})
	require.NoError(t, err)
	v0again, _ := out3[0].At(0)
	require.Equal(t, int64(0), v0again) // carry cleared back to zero
}

// TestPlanKeepsDeclaredOutputAliveThroughFinalCollection covers a graph
// shaped like spec.md §8 scenario 5 (src -> unary_a -> unary_b -> out, with
// a side branch unary_a -> unary_c -> out2), except unary_a's own output is
// ALSO declared as a third graph output: unary_a is consumed for the last
// time by unary_b/unary_c partway through the run, but its value must
// still be readable by the final output-collection step.
func TestPlanKeepsDeclaredOutputAliveThroughFinalCollection(t *testing.T) {
	g := graph.New[fact.TypedFact]("typed")
	src, err := g.AddSource("in", typedF(tensor.I32, 1))
	require.NoError(t, err)
	aOuts, err := g.WireNode("unary_a", op.Identity{}, []graph.Outlet{src}, op.Identity{}.ShapeRule)
	require.NoError(t, err)
	bOuts, err := g.WireNode("unary_b", op.Identity{}, aOuts, op.Identity{}.ShapeRule)
	require.NoError(t, err)
	cOuts, err := g.WireNode("unary_c", op.Identity{}, aOuts, op.Identity{}.ShapeRule)
	require.NoError(t, err)
	g.SetOutputOutlets([]graph.Outlet{bOuts[0], cOuts[0], aOuts[0]})

	p, err := plan.New(g)
	require.NoError(t, err)
	sess := plan.NewSession(p, nil)

	out, err := sess.Run(context.Background(), []*tensor.Tensor{scalarTensor(t, 7)})
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, o := range out {
		v, err := o.At(0)
		require.NoError(t, err)
		require.Equal(t, int64(7), v)
	}
}

// TestConstantGraphRunsWithoutInputTensors covers spec.md §8's boundary
// behavior: a graph whose output is a constant must run without any input
// tensors. A graph with no AddSource call has an empty InputOutlets, so
// Run's arity check against a zero-length inputs slice passes naturally.
func TestConstantGraphRunsWithoutInputTensors(t *testing.T) {
	g := graph.New[fact.TypedFact]("typed")
	val, err := tensor.Zero(tensor.I32, []int{3})
	require.NoError(t, err)
	for i, v := range []int64{7, 8, 9} {
		require.NoError(t, val.SetAt(i, v))
	}
	c := op.Const{Value: val}
	outs, err := g.WireNode("const", c, nil, c.ShapeRule)
	require.NoError(t, err)
	g.SetOutputOutlets(outs)

	require.Empty(t, g.InputOutlets())

	p, err := plan.New(g)
	require.NoError(t, err)
	sess := plan.NewSession(p, nil)
	out, err := sess.Run(context.Background(), nil)
	require.NoError(t, err)
	for i, want := range []int64{7, 8, 9} {
		v, err := out[0].At(i)
		require.NoError(t, err)
		require.Equal(t, want, v)
	}
}
