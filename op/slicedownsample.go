package op

import (
	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/patch"
	"github.com/corten-ml/corten/rewrite"
	"github.com/corten-ml/corten/tdim"
	"github.com/corten-ml/corten/tensor"
)

// Slice selects the half-open range [Begin, End) along Axis. Begin==End
// yields the zero-extent tensor (spec.md §4.14's edge case).
type Slice struct {
	BaseOp
	Axis       int
	Begin, End int64
}

func (Slice) OpName() string   { return "Slice" }
func (Slice) OutputArity() int { return 1 }

func (s Slice) ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	in := inputs[0]
	if s.Axis < 0 || s.Axis >= len(in.Shape) || s.Begin < 0 || s.End < s.Begin {
		return nil, xerrors.ErrShapeInference
	}
	shape := append([]tdim.TDim(nil), in.Shape...)
	shape[s.Axis] = tdim.FromInt(s.End - s.Begin)
	return []fact.TypedFact{{DT: in.DT, Shape: shape}}, nil
}

func (s Slice) Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	in := inputs[0]
	if s.Axis < 0 || s.Axis >= in.Rank() {
		return nil, xerrors.ErrShapeMismatch
	}
	begin := int(s.Begin)
	outLen := int(s.End - s.Begin)
	out, err := selectAlongAxis(in, s.Axis, outLen, func(i int) int { return begin + i })
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{out}, nil
}

func (Slice) Validation() Validation { return Exact }

// Downsample selects every Stride-th element along Axis, starting at
// Modulo (spec.md §4.13's stride+modulo contract): output[j] = input[Modulo
// + j*Stride].
type Downsample struct {
	BaseOp
	Axis   int
	Stride int64
	Modulo int64
}

func (Downsample) OpName() string   { return "Downsample" }
func (Downsample) OutputArity() int { return 1 }

func (d Downsample) ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	in := inputs[0]
	if d.Axis < 0 || d.Axis >= len(in.Shape) || d.Stride <= 0 {
		return nil, xerrors.ErrShapeInference
	}
	count, err := in.Shape[d.Axis].Sub(tdim.FromInt(d.Modulo)).DivCeil(d.Stride)
	if err != nil {
		return nil, err
	}
	shape := append([]tdim.TDim(nil), in.Shape...)
	shape[d.Axis] = count
	return []fact.TypedFact{{DT: in.DT, Shape: shape}}, nil
}

func (d Downsample) Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	in := inputs[0]
	if d.Axis < 0 || d.Axis >= in.Rank() || d.Stride <= 0 {
		return nil, xerrors.ErrShapeMismatch
	}
	full := int64(in.Shape()[d.Axis])
	outLen := 0
	if full > d.Modulo {
		outLen = int((full - d.Modulo + d.Stride - 1) / d.Stride)
	}
	out, err := selectAlongAxis(in, d.Axis, outLen, func(i int) int { return int(d.Modulo) + i*int(d.Stride) })
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{out}, nil
}

func (Downsample) Validation() Validation { return Exact }

// Declutter implements the Downsample/Slice commuting rewrite of spec.md
// §4.13: when this Downsample directly consumes a Slice's output on the
// same axis, pull the Downsample ahead of the Slice (grounded on
// rewrite.PushDownsampleOverSlice / original_source's
// pull_downsample_over_slice). Returns nil if the pattern doesn't apply or
// the downsampled length isn't concrete yet.
func (d Downsample) Declutter(g *graph.Graph[fact.TypedFact], id graph.NodeID) (*patch.Patch[fact.TypedFact], error) {
	node := g.NodeByID(id)
	if node == nil || len(node.Inputs) != 1 {
		return nil, nil
	}
	pred := g.NodeByID(node.Inputs[0].Node)
	if pred == nil {
		return nil, nil
	}
	sliceOp, ok := pred.Op.(Slice)
	if !ok || sliceOp.Axis != d.Axis {
		return nil, nil
	}
	finalLen, ok := node.Outputs[0].Fact.Shape[d.Axis].AsConst()
	if !ok {
		return nil, nil
	}

	newModulo, newBegin, newEnd := rewrite.PushDownsampleOverSlice(d.Stride, d.Modulo, sliceOp.Begin, finalLen)

	p := patch.New[fact.TypedFact]("push-downsample-over-slice")
	tap := patch.Existing(pred.Inputs[0])
	newDown := Downsample{Axis: d.Axis, Stride: d.Stride, Modulo: newModulo}
	downIdx := p.AddNode(node.Name+"$pushed", newDown, []patch.Ref{tap}, newDown.ShapeRule)
	newSlice := Slice{Axis: sliceOp.Axis, Begin: newBegin, End: newEnd}
	sliceIdx := p.AddNode(pred.Name+"$pushed", newSlice, []patch.Ref{patch.Staged(downIdx, 0)}, newSlice.ShapeRule)
	p.Shunt(graph.Outlet{Node: id, Slot: 0}, patch.Staged(sliceIdx, 0))
	return p, nil
}

// selectAlongAxis builds a fresh tensor of shape identical to t except
// axis, whose length becomes outLen, with element outIdx along axis
// sourced from mapIdx(outIdx) in t.
func selectAlongAxis(t *tensor.Tensor, axis, outLen int, mapIdx func(int) int) (*tensor.Tensor, error) {
	inShape := t.Shape()
	outShape := append([]int(nil), inShape...)
	outShape[axis] = outLen
	out, err := tensor.Zero(t.DatumType(), outShape)
	if err != nil {
		return nil, err
	}
	inStrides := strides(inShape)
	outStrides := strides(outShape)
	n := out.Len()
	coords := make([]int, len(outShape))
	for flat := 0; flat < n; flat++ {
		rem := flat
		for i, st := range outStrides {
			coords[i] = rem / st
			rem %= st
		}
		srcFlat := 0
		for i, c := range coords {
			if i == axis {
				c = mapIdx(c)
			}
			srcFlat += c * inStrides[i]
		}
		v, err := t.At(srcFlat)
		if err != nil {
			return nil, err
		}
		if err := out.SetAt(flat, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}
