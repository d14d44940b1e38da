package op

import (
	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tensor"
)

// Delay prepends the last Overlap samples seen along Axis to each new
// pulse, owning that carried window as session state (spec.md §4.10:
// "operators that need history... introduce a Delay node that stores the
// last D time samples and emits them lagged by D. The Delay node owns the
// ring buffer in its session state."). It is only ever wired into a pulsed
// graph, by another op's Pulsify hook.
type Delay struct {
	BaseOp
	Axis    int
	Overlap int
	carry   *tensor.Tensor
}

func (*Delay) OpName() string   { return "Delay" }
func (*Delay) OutputArity() int { return 1 }

func (*Delay) IsStateful() bool { return true }

func (d *Delay) Reset() { d.carry = nil }

// ShapeRule is a pass-through: Delay is only meaningful post-pulsification,
// where its shape contract is expressed directly by Pulsify's closures.
func (*Delay) ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	return []fact.TypedFact{inputs[0]}, nil
}

func (d *Delay) Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	in := inputs[0]
	if d.carry == nil {
		shape := append([]int(nil), in.Shape()...)
		if d.Axis < 0 || d.Axis >= len(shape) {
			return nil, xerrors.ErrShapeMismatch
		}
		shape[d.Axis] = d.Overlap
		carry, err := tensor.Zero(in.DatumType(), shape)
		if err != nil {
			return nil, err
		}
		d.carry = carry
	}
	out, err := concatAlongAxis(d.carry, in, d.Axis)
	if err != nil {
		return nil, err
	}
	full := out.Shape()[d.Axis]
	newCarry, err := selectAlongAxis(out, d.Axis, d.Overlap, func(i int) int { return full - d.Overlap + i })
	if err != nil {
		return nil, err
	}
	d.carry = newCarry
	return []*tensor.Tensor{out}, nil
}

func (*Delay) Validation() Validation { return Exact }
