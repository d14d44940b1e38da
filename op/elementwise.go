package op

import (
	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tensor"
)

// Add is the element-wise, broadcasting sum of two tensors of the same
// element type. Grounded on the table-driven binary element-wise op family
// of original_source/core/src/ops/element_wise.rs, collapsed here to the
// one combinator (a+b) evaluated over float64 for float types and int64
// for integer types; Bool operands combine by logical OR.
type Add struct{ BaseOp }

func (Add) OpName() string   { return "Add" }
func (Add) OutputArity() int { return 1 }

func (Add) ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error) {
	if len(inputs) != 2 {
		return nil, xerrors.ErrArityMismatch
	}
	a, b := inputs[0], inputs[1]
	if a.DT != b.DT {
		return nil, xerrors.ErrShapeInference
	}
	shape, err := broadcastShapes(a.Shape, b.Shape)
	if err != nil {
		return nil, err
	}
	return []fact.TypedFact{{DT: a.DT, Shape: shape}}, nil
}

func (Add) Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) != 2 {
		return nil, xerrors.ErrArityMismatch
	}
	return evalBinaryElementwise(inputs[0], inputs[1], addNative)
}

func (Add) Cost(inputs []fact.TypedFact) []CostEntry {
	if len(inputs) == 0 {
		return nil
	}
	n := int64(1)
	for _, d := range inputs[0].Shape {
		if c, ok := d.AsConst(); ok {
			n *= c
		}
	}
	return []CostEntry{{Kind: CostMAC, Count: n}}
}

func (Add) Validation() Validation { return Rounding }

func addNative(dt tensor.DatumType, a, b interface{}) (interface{}, error) {
	if dt.IsFloat() {
		return a.(float64) + b.(float64), nil
	}
	if dt == tensor.Bool {
		ab, bb := a.(bool), b.(bool)
		return ab || bb, nil
	}
	return a.(int64) + b.(int64), nil
}

// evalBinaryElementwise broadcasts a and b (numpy-style, same element type)
// and applies combine element-by-element into a freshly allocated result.
func evalBinaryElementwise(a, b *tensor.Tensor, combine func(dt tensor.DatumType, x, y interface{}) (interface{}, error)) ([]*tensor.Tensor, error) {
	if a.DatumType() != b.DatumType() {
		return nil, xerrors.ErrShapeMismatch
	}
	outShape, err := broadcastIntShapes(a.Shape(), b.Shape())
	if err != nil {
		return nil, err
	}
	out, err := tensor.Zero(a.DatumType(), outShape)
	if err != nil {
		return nil, err
	}
	aStr, bStr := strides(a.Shape()), strides(b.Shape())
	n := out.Len()
	for i := 0; i < n; i++ {
		av, err := a.At(broadcastOffset(i, outShape, a.Shape(), aStr))
		if err != nil {
			return nil, err
		}
		bv, err := b.At(broadcastOffset(i, outShape, b.Shape(), bStr))
		if err != nil {
			return nil, err
		}
		rv, err := combine(a.DatumType(), av, bv)
		if err != nil {
			return nil, err
		}
		if err := out.SetAt(i, rv); err != nil {
			return nil, err
		}
	}
	return []*tensor.Tensor{out}, nil
}
