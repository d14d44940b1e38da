package infer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/infer"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tdim"
	"github.com/corten-ml/corten/tensor"
)

func newFact() *fact.InferenceFact {
	return &fact.InferenceFact{Shape: fact.ShapeFact{Open: true}}
}

func TestEqualsPropagatesType(t *testing.T) {
	a, b := newFact(), newFact()
	a.DT = fact.SomeDT(tensor.F32)
	clauses := []infer.Clause{infer.Equals(infer.TypeExpr{F: a}, infer.TypeExpr{F: b})}
	require.NoError(t, infer.Solve(clauses, 10))
	require.True(t, b.DT.Known)
	require.Equal(t, tensor.F32, b.DT.DT)
}

func TestEqualsContradiction(t *testing.T) {
	a, b := newFact(), newFact()
	a.DT = fact.SomeDT(tensor.F32)
	b.DT = fact.SomeDT(tensor.I32)
	clauses := []infer.Clause{infer.Equals(infer.TypeExpr{F: a}, infer.TypeExpr{F: b})}
	err := infer.Solve(clauses, 10)
	require.ErrorIs(t, err, xerrors.ErrFactContradiction)
}

func TestEqualsZeroSolvesMissingDim(t *testing.T) {
	in, out := newFact(), newFact()
	in.Shape = fact.ShapeFact{Dims: []fact.OptDim{fact.SomeDim(tdim.FromInt(10))}}
	out.Shape = fact.ShapeFact{Dims: []fact.OptDim{{}}}

	// out[0] - in[0] + 2 == 0  =>  out[0] == in[0] - 2
	clauses := []infer.Clause{
		infer.EqualsZero(2,
			infer.LinearTerm{Coeff: 1, Dim: infer.DimExpr{F: out, Axis: 0}},
			infer.LinearTerm{Coeff: -1, Dim: infer.DimExpr{F: in, Axis: 0}},
		),
	}
	require.NoError(t, infer.Solve(clauses, 10))
	require.True(t, out.Shape.Dims[0].Known)
	require.Equal(t, tdim.FromInt(8), out.Shape.Dims[0].Dim)
}

func TestGivenFiresOnceGround(t *testing.T) {
	src, dst := newFact(), newFact()
	src.DT = fact.SomeDT(tensor.I32)
	fired := false
	clauses := []infer.Clause{
		infer.Given(infer.TypeExpr{F: src}, func(v interface{}) ([]infer.Clause, error) {
			fired = true
			return []infer.Clause{infer.Equals(infer.TypeExpr{F: src}, infer.TypeExpr{F: dst})}, nil
		}),
	}
	require.NoError(t, infer.Solve(clauses, 10))
	require.True(t, fired)
	require.True(t, dst.DT.Known)
}

func TestSolveToleratesUnresolvedOutlets(t *testing.T) {
	a, b := newFact(), newFact()
	clauses := []infer.Clause{infer.Equals(infer.TypeExpr{F: a}, infer.TypeExpr{F: b})}
	require.NoError(t, infer.Solve(clauses, 10))
	require.False(t, a.DT.Known)
	require.False(t, b.DT.Known)
}

func TestSolveDivergesPastCap(t *testing.T) {
	// A clause that is always ready, always reports progress and never
	// reports done never converges within the cap.
	a := newFact()
	a.Shape = fact.ShapeFact{Dims: []fact.OptDim{{}}}
	loop := &foreverClause{}
	err := infer.Solve([]infer.Clause{loop}, 3)
	require.ErrorIs(t, err, xerrors.ErrInferenceDiverged)
}

// foreverClause is always ready and always reports progress, simulating a
// pathological op pair that never reaches a fixpoint.
type foreverClause struct{}

func (foreverClause) Ready() bool { return true }
func (foreverClause) Apply() (bool, bool, []infer.Clause, error) {
	return true, false, nil, nil
}
