package op

import (
	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tdim"
	"github.com/corten-ml/corten/tensor"
)

// Identity passes its single input through unchanged.
type Identity struct{ BaseOp }

func (Identity) OpName() string   { return "Identity" }
func (Identity) OutputArity() int { return 1 }

func (Identity) ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	return []fact.TypedFact{inputs[0]}, nil
}

func (Identity) Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	return inputs, nil
}

func (Identity) Validation() Validation { return Exact }

// Reshape reinterprets its input under a fixed target shape (element count
// preserved). Symbolic target dims are accepted by ShapeRule, but Eval
// fails when any target dim is not a concrete constant.
type Reshape struct {
	BaseOp
	Shape []tdim.TDim
}

func (Reshape) OpName() string   { return "Reshape" }
func (Reshape) OutputArity() int { return 1 }

func (r Reshape) ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	return []fact.TypedFact{{DT: inputs[0].DT, Shape: r.Shape}}, nil
}

func (r Reshape) Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	shape, err := concreteShape(r.Shape)
	if err != nil {
		return nil, err
	}
	out, err := inputs[0].Reshape(shape)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{out}, nil
}

func (Reshape) Validation() Validation { return Exact }

// Cast converts its input's element type to Target, per tensor.Cast's
// saturating/round-to-nearest-even rules.
type Cast struct {
	BaseOp
	Target tensor.DatumType
}

func (Cast) OpName() string   { return "Cast" }
func (Cast) OutputArity() int { return 1 }

func (c Cast) ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	return []fact.TypedFact{{DT: c.Target, Shape: inputs[0].Shape}}, nil
}

func (c Cast) Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	out, err := tensor.Cast(inputs[0], c.Target)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{out}, nil
}

func (c Cast) Validation() Validation {
	if c.Target.IsFloat() {
		return Rounding
	}
	return Exact
}

// AddDims inserts a size-1 axis at Axis.
type AddDims struct {
	BaseOp
	Axis int
}

func (AddDims) OpName() string   { return "AddDims" }
func (AddDims) OutputArity() int { return 1 }

func (a AddDims) ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	in := inputs[0]
	if a.Axis < 0 || a.Axis > len(in.Shape) {
		return nil, xerrors.ErrShapeInference
	}
	shape := make([]tdim.TDim, 0, len(in.Shape)+1)
	shape = append(shape, in.Shape[:a.Axis]...)
	shape = append(shape, tdim.FromInt(1))
	shape = append(shape, in.Shape[a.Axis:]...)
	return []fact.TypedFact{{DT: in.DT, Shape: shape}}, nil
}

func (a AddDims) Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	in := inputs[0].Shape()
	if a.Axis < 0 || a.Axis > len(in) {
		return nil, xerrors.ErrShapeMismatch
	}
	shape := make([]int, 0, len(in)+1)
	shape = append(shape, in[:a.Axis]...)
	shape = append(shape, 1)
	shape = append(shape, in[a.Axis:]...)
	out, err := inputs[0].Reshape(shape)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{out}, nil
}

func (AddDims) Validation() Validation { return Exact }

// RmDims removes the size-1 axis at Axis, failing if that axis is not
// actually of size 1.
type RmDims struct {
	BaseOp
	Axis int
}

func (RmDims) OpName() string   { return "RmDims" }
func (RmDims) OutputArity() int { return 1 }

func (r RmDims) ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	in := inputs[0]
	if r.Axis < 0 || r.Axis >= len(in.Shape) {
		return nil, xerrors.ErrShapeInference
	}
	if c, ok := in.Shape[r.Axis].AsConst(); !ok || c != 1 {
		return nil, xerrors.ErrShapeInference
	}
	shape := make([]tdim.TDim, 0, len(in.Shape)-1)
	shape = append(shape, in.Shape[:r.Axis]...)
	shape = append(shape, in.Shape[r.Axis+1:]...)
	return []fact.TypedFact{{DT: in.DT, Shape: shape}}, nil
}

func (r RmDims) Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	in := inputs[0].Shape()
	if r.Axis < 0 || r.Axis >= len(in) || in[r.Axis] != 1 {
		return nil, xerrors.ErrShapeMismatch
	}
	shape := make([]int, 0, len(in)-1)
	shape = append(shape, in[:r.Axis]...)
	shape = append(shape, in[r.Axis+1:]...)
	out, err := inputs[0].Reshape(shape)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{out}, nil
}

func (RmDims) Validation() Validation { return Exact }

func concreteShape(dims []tdim.TDim) ([]int, error) {
	out := make([]int, len(dims))
	for i, d := range dims {
		c, ok := d.AsConst()
		if !ok {
			return nil, xerrors.ErrNonDivisible
		}
		out[i] = int(c)
	}
	return out, nil
}
