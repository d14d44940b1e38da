package op

import (
	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/kernel"
	"github.com/corten-ml/corten/tdim"
	"github.com/corten-ml/corten/tensor"
)

// MatMul is a plain 2-D float matmul (M x K) * (K x N) -> (M x N) whose
// Eval calls the packed microkernel framework (package kernel) directly
// rather than implementing its own loop nest; it has no Codegen rewrite.
type MatMul struct{ BaseOp }

func (MatMul) OpName() string   { return "MatMul" }
func (MatMul) OutputArity() int { return 1 }

func (MatMul) ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error) {
	if len(inputs) != 2 {
		return nil, xerrors.ErrArityMismatch
	}
	a, b := inputs[0], inputs[1]
	if len(a.Shape) != 2 || len(b.Shape) != 2 || a.DT != b.DT {
		return nil, xerrors.ErrShapeInference
	}
	if !a.Shape[1].Equal(b.Shape[0]) {
		return nil, xerrors.ErrShapeInference
	}
	return []fact.TypedFact{{DT: a.DT, Shape: []tdim.TDim{a.Shape[0], b.Shape[1]}}}, nil
}

func (MatMul) Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) != 2 {
		return nil, xerrors.ErrArityMismatch
	}
	a, b := inputs[0], inputs[1]
	if a.Rank() != 2 || b.Rank() != 2 || a.DatumType() != tensor.F32 || b.DatumType() != tensor.F32 {
		return nil, xerrors.ErrShapeMismatch
	}
	m, k, n := a.Shape()[0], a.Shape()[1], b.Shape()[1]
	if b.Shape()[0] != k {
		return nil, xerrors.ErrShapeMismatch
	}
	af, err := tensorToF32Slice(a)
	if err != nil {
		return nil, err
	}
	bf, err := tensorToF32Slice(b)
	if err != nil {
		return nil, err
	}
	c, err := kernel.MatMulF32(af, bf, m, k, n, 1, 0)
	if err != nil {
		return nil, err
	}
	out, err := tensor.Zero(tensor.F32, []int{m, n})
	if err != nil {
		return nil, err
	}
	for i, v := range c {
		if err := out.SetAt(i, float64(v)); err != nil {
			return nil, err
		}
	}
	return []*tensor.Tensor{out}, nil
}

func (MatMul) Cost(inputs []fact.TypedFact) []CostEntry {
	if len(inputs) != 2 {
		return nil
	}
	m, _ := inputs[0].Shape[0].AsConst()
	k, _ := inputs[0].Shape[1].AsConst()
	n, _ := inputs[1].Shape[1].AsConst()
	return []CostEntry{{Kind: CostMAC, Count: m * k * n}}
}

func (MatMul) Validation() Validation { return Rounding }

func tensorToF32Slice(t *tensor.Tensor) ([]float32, error) {
	n := t.Len()
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v, err := t.At(i)
		if err != nil {
			return nil, err
		}
		out[i] = float32(v.(float64))
	}
	return out, nil
}

// QMatMul is the quantized counterpart of MatMul: int8 operands with
// per-operand zero points and scales, delegating to kernel.MatMulInt8
// (grounded on original_source/core/src/ops/matmul/mir_quant.rs).
type QMatMul struct {
	BaseOp
	A0, B0, C0             int32
	ScaleA, ScaleB, ScaleC float64
}

func (QMatMul) OpName() string   { return "QMatMul" }
func (QMatMul) OutputArity() int { return 1 }

func (QMatMul) ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error) {
	if len(inputs) != 2 {
		return nil, xerrors.ErrArityMismatch
	}
	a, b := inputs[0], inputs[1]
	if len(a.Shape) != 2 || len(b.Shape) != 2 || a.DT != tensor.I8 || b.DT != tensor.I8 {
		return nil, xerrors.ErrShapeInference
	}
	if !a.Shape[1].Equal(b.Shape[0]) {
		return nil, xerrors.ErrShapeInference
	}
	return []fact.TypedFact{{DT: tensor.I8, Shape: []tdim.TDim{a.Shape[0], b.Shape[1]}}}, nil
}

func (q QMatMul) Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) != 2 {
		return nil, xerrors.ErrArityMismatch
	}
	a, b := inputs[0], inputs[1]
	if a.Rank() != 2 || b.Rank() != 2 {
		return nil, xerrors.ErrShapeMismatch
	}
	m, k, n := a.Shape()[0], a.Shape()[1], b.Shape()[1]
	if b.Shape()[0] != k {
		return nil, xerrors.ErrShapeMismatch
	}
	ai, err := tensorToI8Slice(a)
	if err != nil {
		return nil, err
	}
	bi, err := tensorToI8Slice(b)
	if err != nil {
		return nil, err
	}
	c := kernel.MatMulInt8(ai, bi, m, k, n, q.A0, q.B0, q.ScaleA, q.ScaleB, q.ScaleC, q.C0)
	out, err := tensor.Zero(tensor.I8, []int{m, n})
	if err != nil {
		return nil, err
	}
	for i, v := range c {
		if err := out.SetAt(i, int64(v)); err != nil {
			return nil, err
		}
	}
	return []*tensor.Tensor{out}, nil
}

func (QMatMul) Cost(inputs []fact.TypedFact) []CostEntry {
	if len(inputs) != 2 {
		return nil
	}
	m, _ := inputs[0].Shape[0].AsConst()
	k, _ := inputs[0].Shape[1].AsConst()
	n, _ := inputs[1].Shape[1].AsConst()
	return []CostEntry{{Kind: CostMAC, Count: m * k * n}}
}

func (QMatMul) Validation() Validation { return Exact }

func tensorToI8Slice(t *tensor.Tensor) ([]int8, error) {
	n := t.Len()
	out := make([]int8, n)
	for i := 0; i < n; i++ {
		v, err := t.At(i)
		if err != nil {
			return nil, err
		}
		out[i] = int8(v.(int64))
	}
	return out, nil
}
