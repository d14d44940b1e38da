package op

import (
	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tdim"
	"github.com/corten-ml/corten/tensor"
)

// Conv1D is a "valid" (no padding) 1-D convolution of a fixed float32
// Kernel along Axis: out.Shape[Axis] = in.Shape[Axis] - (len(Kernel)-1).
// Every other axis is treated as independent and convolved identically.
type Conv1D struct {
	BaseOp
	Axis   int
	Kernel []float32
}

func (Conv1D) OpName() string   { return "Conv1D" }
func (Conv1D) OutputArity() int { return 1 }

func (c Conv1D) ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	in := inputs[0]
	if c.Axis < 0 || c.Axis >= len(in.Shape) || len(c.Kernel) == 0 {
		return nil, xerrors.ErrShapeInference
	}
	shape := append([]tdim.TDim(nil), in.Shape...)
	shape[c.Axis] = in.Shape[c.Axis].Sub(tdim.FromInt(int64(len(c.Kernel) - 1)))
	return []fact.TypedFact{{DT: in.DT, Shape: shape}}, nil
}

func (c Conv1D) Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) != 1 {
		return nil, xerrors.ErrArityMismatch
	}
	in := inputs[0]
	k := len(c.Kernel)
	if c.Axis < 0 || c.Axis >= in.Rank() || k == 0 || in.Shape()[c.Axis] < k {
		return nil, xerrors.ErrShapeMismatch
	}
	outLen := in.Shape()[c.Axis] - k + 1
	outShape := append([]int(nil), in.Shape()...)
	outShape[c.Axis] = outLen
	out, err := tensor.Zero(in.DatumType(), outShape)
	if err != nil {
		return nil, err
	}
	if err := c.convolve(in, out); err != nil {
		return nil, err
	}
	return []*tensor.Tensor{out}, nil
}

// convolve fills out (already shaped outLen along Axis) with the valid
// convolution of in against c.Kernel.
func (c Conv1D) convolve(in, out *tensor.Tensor) error {
	inStrides := strides(in.Shape())
	outShape := out.Shape()
	outStrides := strides(outShape)
	n := out.Len()
	coords := make([]int, len(outShape))
	k := len(c.Kernel)
	for flat := 0; flat < n; flat++ {
		rem := flat
		for i, st := range outStrides {
			coords[i] = rem / st
			rem %= st
		}
		var acc float64
		for kk := 0; kk < k; kk++ {
			srcCoords := append([]int(nil), coords...)
			srcCoords[c.Axis] = coords[c.Axis] + kk
			srcFlat := 0
			for i, co := range srcCoords {
				srcFlat += co * inStrides[i]
			}
			v, err := in.At(srcFlat)
			if err != nil {
				return err
			}
			acc += toFloat64(v) * float64(c.Kernel[kk])
		}
		if err := out.SetAt(flat, acc); err != nil {
			return err
		}
	}
	return nil
}

func toFloat64(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func (c Conv1D) Cost(inputs []fact.TypedFact) []CostEntry {
	if len(inputs) == 0 {
		return nil
	}
	n := int64(1)
	for _, d := range inputs[0].Shape {
		if v, ok := d.AsConst(); ok {
			n *= v
		}
	}
	return []CostEntry{{Kind: CostMAC, Count: n * int64(len(c.Kernel))}}
}

func (Conv1D) Validation() Validation { return Rounding }

func (Conv1D) SupportsPulse() bool { return true }

// Pulsify wires a Delay(Overlap=len(Kernel)-1) ahead of a copy of this
// Conv1D into the pulsed graph: each pulse of the delay's output is
// len(Kernel)-1 samples longer than the plain stream pulse, exactly enough
// for Conv1D's own valid-convolution formula to again produce one
// full-length pulse of output (spec.md §4.10's pulse-time contract).
func (c Conv1D) Pulsify(src *graph.Graph[fact.TypedFact], id graph.NodeID, target *graph.Graph[fact.PulsedFact], mapping map[graph.NodeID]graph.NodeID, axis, pulseLen int) ([]graph.Outlet, error) {
	srcNode := src.NodeByID(id)
	if srcNode == nil || len(srcNode.Inputs) != 1 {
		return nil, xerrors.ErrShapeMismatch
	}
	predID, ok := mapping[srcNode.Inputs[0].Node]
	if !ok {
		return nil, xerrors.ErrShapeMismatch
	}
	predOutlet := graph.Outlet{Node: predID, Slot: srcNode.Inputs[0].Slot}

	overlap := len(c.Kernel) - 1
	delayOuts, err := target.WireNode(srcNode.Name+"$delay", &Delay{Axis: axis, Overlap: overlap},
		[]graph.Outlet{predOutlet}, delayedPulsedShapeRule(axis, overlap))
	if err != nil {
		return nil, err
	}
	convOuts, err := target.WireNode(srcNode.Name, c, delayOuts, convPulsedShapeRule(axis, overlap))
	if err != nil {
		return nil, err
	}
	return convOuts, nil
}

func delayedPulsedShapeRule(axis, overlap int) func([]fact.PulsedFact) ([]fact.PulsedFact, error) {
	return func(inputs []fact.PulsedFact) ([]fact.PulsedFact, error) {
		if len(inputs) != 1 {
			return nil, xerrors.ErrArityMismatch
		}
		in := inputs[0]
		out := in.Clone()
		out.Shape[axis] = tdim.FromInt(int64(in.PulseLen() + overlap))
		out.Delay = in.Delay + overlap
		return []fact.PulsedFact{out}, nil
	}
}

// convPulsedShapeRule mirrors Conv1D.Eval's valid-convolution length
// reduction (outLen = inLen - overlap) at the pulsed-fact level: Conv1D
// consumes its Delay's widened pulse and emits one full-length pulse back.
func convPulsedShapeRule(axis, overlap int) func([]fact.PulsedFact) ([]fact.PulsedFact, error) {
	return func(inputs []fact.PulsedFact) ([]fact.PulsedFact, error) {
		if len(inputs) != 1 {
			return nil, xerrors.ErrArityMismatch
		}
		in := inputs[0]
		out := in.Clone()
		out.Shape[axis] = tdim.FromInt(int64(in.PulseLen() - overlap))
		return []fact.PulsedFact{out}, nil
	}
}
