package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tdim"
	"github.com/corten-ml/corten/tensor"
)

// unaryOp is a minimal test double for graph.Op: an operator with exactly
// one output.
type unaryOp struct{ name string }

func (u unaryOp) OpName() string   { return u.name }
func (u unaryOp) OutputArity() int { return 1 }

func typedF(dt tensor.DatumType, dims ...int64) fact.TypedFact {
	shape := make([]tdim.TDim, len(dims))
	for i, d := range dims {
		shape[i] = tdim.FromInt(d)
	}
	return fact.TypedFact{DT: dt, Shape: shape}
}

func identityRule(in []fact.TypedFact) ([]fact.TypedFact, error) {
	return []fact.TypedFact{in[0]}, nil
}

func TestAddSourceAndNode(t *testing.T) {
	g := graph.New[fact.TypedFact]("typed")
	src, err := g.AddSource("in", typedF(tensor.F32, 3))
	require.NoError(t, err)
	require.Equal(t, graph.NodeID(0), src.Node)

	outs, err := g.WireNode("id", unaryOp{"Identity"}, []graph.Outlet{src}, identityRule)
	require.NoError(t, err)
	require.Len(t, outs, 1)

	g.SetOutputOutlets(outs)
	order, err := g.EvalOrder()
	require.NoError(t, err)
	require.Equal(t, []graph.NodeID{0, 1}, order)
}

func TestDuplicateName(t *testing.T) {
	g := graph.New[fact.TypedFact]("typed")
	_, err := g.AddSource("a", typedF(tensor.F32, 1))
	require.NoError(t, err)
	_, err = g.AddSource("a", typedF(tensor.F32, 1))
	require.ErrorIs(t, err, xerrors.ErrDuplicateName)
}

func TestArityMismatch(t *testing.T) {
	g := graph.New[fact.TypedFact]("typed")
	_, err := g.AddNode("bad", unaryOp{"U"}, []fact.TypedFact{typedF(tensor.F32, 1), typedF(tensor.F32, 1)})
	require.ErrorIs(t, err, xerrors.ErrArityMismatch)
}

func TestInletFilled(t *testing.T) {
	g := graph.New[fact.TypedFact]("typed")
	src, _ := g.AddSource("a", typedF(tensor.F32, 1))
	id, _ := g.AddNode("n", unaryOp{"U"}, []fact.TypedFact{typedF(tensor.F32, 1)})
	require.NoError(t, g.AddEdge(src, graph.Inlet{Node: id, Slot: 0}))
	err := g.AddEdge(src, graph.Inlet{Node: id, Slot: 0})
	require.ErrorIs(t, err, xerrors.ErrInletFilled)
}

func TestWireNodeTransactional(t *testing.T) {
	g := graph.New[fact.TypedFact]("typed")
	src, _ := g.AddSource("a", typedF(tensor.F32, 1))
	failingRule := func(in []fact.TypedFact) ([]fact.TypedFact, error) {
		return nil, xerrors.ErrShapeInference
	}
	before := len(g.Nodes())
	_, err := g.WireNode("bad", unaryOp{"U"}, []graph.Outlet{src}, failingRule)
	require.Error(t, err)
	require.Equal(t, before, len(g.Nodes()), "failed wire must not mutate the graph")
}

func TestEvalOrderCycle(t *testing.T) {
	g := graph.New[fact.TypedFact]("typed")
	a, _ := g.AddNode("a", unaryOp{"U"}, []fact.TypedFact{typedF(tensor.F32, 1)})
	b, _ := g.AddNode("b", unaryOp{"U"}, []fact.TypedFact{typedF(tensor.F32, 1)})
	require.NoError(t, g.AddEdge(graph.Outlet{Node: a, Slot: 0}, graph.Inlet{Node: b, Slot: 0}))
	require.NoError(t, g.AddEdge(graph.Outlet{Node: b, Slot: 0}, graph.Inlet{Node: a, Slot: 0}))
	_, err := g.EvalOrder()
	require.ErrorIs(t, err, xerrors.ErrCyclicGraph)
}

func TestEvalOrderDeterministic(t *testing.T) {
	g := graph.New[fact.TypedFact]("typed")
	g.AddSource("a", typedF(tensor.F32, 1))
	g.AddSource("b", typedF(tensor.F32, 1))
	o1, err1 := g.EvalOrder()
	o2, err2 := g.EvalOrder()
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Equal(t, o1, o2)
}

func TestCompactDropsDeadBranch(t *testing.T) {
	g := graph.New[fact.TypedFact]("typed")
	src, _ := g.AddSource("src", typedF(tensor.F32, 1))
	live, err := g.WireNode("live", unaryOp{"U"}, []graph.Outlet{src}, identityRule)
	require.NoError(t, err)
	_, err = g.WireNode("dead", unaryOp{"U"}, []graph.Outlet{src}, identityRule)
	require.NoError(t, err)
	g.SetOutputOutlets(live)

	compacted, err := g.Compact()
	require.NoError(t, err)
	require.Len(t, compacted.Nodes(), 2, "only src and live should survive")
	require.Nil(t, compacted.NodeByName("dead"))
	require.NotNil(t, compacted.NodeByName("live"))
}
