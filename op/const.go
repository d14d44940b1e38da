package op

import (
	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/infer"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tdim"
	"github.com/corten-ml/corten/tensor"
)

// Const is a zero-input operator that always produces the same tensor: the
// leaves of every inference-fact graph (spec.md §4.4's source/const duality
// — Const differs from a graph Source in that its value is known up front
// rather than supplied at run time).
type Const struct {
	BaseOp
	Value *tensor.Tensor
}

func (Const) OpName() string   { return "Const" }
func (Const) OutputArity() int { return 1 }

func (c Const) Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) != 0 {
		return nil, xerrors.ErrArityMismatch
	}
	return []*tensor.Tensor{c.Value}, nil
}

func (c Const) ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error) {
	if len(inputs) != 0 {
		return nil, xerrors.ErrArityMismatch
	}
	shape := make([]tdim.TDim, c.Value.Rank())
	for i, d := range c.Value.Shape() {
		shape[i] = tdim.FromInt(int64(d))
	}
	return []fact.TypedFact{{DT: c.Value.DatumType(), Shape: shape, Value: fact.SomeValue(c.Value)}}, nil
}

func (c Const) InferRules(inputs, outputs []*fact.InferenceFact) ([]infer.Clause, error) {
	if len(outputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	out := outputs[0]
	rank := c.Value.Rank()
	return []infer.Clause{
		infer.Equals(infer.TypeExpr{F: out}, constExpr{v: c.Value.DatumType()}),
		infer.Equals(infer.RankExpr{F: out}, constExpr{v: rank}),
		infer.Equals(infer.ValueExpr{F: out}, constExpr{v: c.Value}),
	}, nil
}

func (c Const) Cost(inputs []fact.TypedFact) []CostEntry {
	return []CostEntry{{Kind: CostMem, Count: int64(len(c.Value.Bytes()))}}
}

func (Const) Validation() Validation { return Exact }

// constExpr is a ground-only infer.Expr wrapping a fixed Go value, used to
// seed Equals clauses with the operator's own known attributes rather than
// another fact's field.
type constExpr struct{ v interface{} }

func (c constExpr) Ground() bool     { return true }
func (c constExpr) Get() interface{} { return c.v }
func (c constExpr) Set(v interface{}) (bool, error) {
	if !infer.ValuesEqual(c.v, v) {
		return false, xerrors.ErrFactContradiction
	}
	return false, nil
}
