package pulse

import (
	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/op"
	"github.com/corten-ml/corten/tensor"
)

// runGraph evaluates g once in topological order, feeding inputs to its
// declared input outlets and returning its declared output tensors.
// Stateful ops carry their state directly (op.Op.Reset/IsStateful), so
// calling runGraph repeatedly against the same g replays a stream one
// chunk at a time — exactly what CheckStream needs to drive a pulsed
// graph's Session-equivalent behavior without depending on package plan's
// TypedFact-only Plan/Session (this needs to work over both TypedFact and
// PulsedFact graphs).
func runGraph[F graph.Fact[F]](g *graph.Graph[F], inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	order, err := g.EvalOrder()
	if err != nil {
		return nil, err
	}
	ins := g.InputOutlets()
	if len(inputs) != len(ins) {
		return nil, xerrors.ErrArityMismatch
	}
	values := make(map[graph.NodeID][]*tensor.Tensor, len(order))
	for i, o := range ins {
		values[o.Node] = []*tensor.Tensor{inputs[i]}
	}
	for _, id := range order {
		n := g.NodeByID(id)
		if graph.IsSource(n.Op) {
			continue
		}
		in := make([]*tensor.Tensor, len(n.Inputs))
		for i, o := range n.Inputs {
			prec, ok := values[o.Node]
			if !ok || o.Slot >= len(prec) {
				return nil, xerrors.MissingInput(n.Name)
			}
			in[i] = prec[o.Slot]
		}
		impl, ok := n.Op.(op.Op)
		if !ok {
			return nil, xerrors.ErrUnimplementedOp
		}
		out, err := impl.Eval(in)
		if err != nil {
			return nil, xerrors.OpEval(n.Op.OpName(), err)
		}
		values[id] = out
	}
	outs := g.OutputOutlets()
	result := make([]*tensor.Tensor, len(outs))
	for i, o := range outs {
		vs, ok := values[o.Node]
		if !ok || o.Slot >= len(vs) {
			return nil, xerrors.ErrShapeMismatch
		}
		result[i] = vs[o.Slot]
	}
	return result, nil
}

// CheckStream verifies that running pulsed one pulse at a time reproduces
// the same result as running fixed once over the full stream, accounting
// for the pulsed graph's accumulated delay — grounded on
// original_source/cli/src/stream_check.rs's offset/delay alignment, here
// specialized to axis 0 (the only streaming axis corten's op set
// pulsifies against). streamInput is the full streaming-axis input; both
// graphs are assumed single-input, single-output.
func CheckStream(fixed *graph.Graph[fact.TypedFact], pulsed *graph.Graph[fact.PulsedFact], streamInput *tensor.Tensor) error {
	fixedResult, err := runGraph(fixed, []*tensor.Tensor{streamInput})
	if err != nil {
		return err
	}

	outOutlet := pulsed.OutputOutlets()[0]
	outFact, err := pulsed.OutletFact(outOutlet)
	if err != nil {
		return err
	}
	outputPulse := outFact.PulseLen()
	delay := outFact.Delay
	axis := outFact.Axis

	inOutlet := pulsed.InputOutlets()[0]
	inFact, err := pulsed.OutletFact(inOutlet)
	if err != nil {
		return err
	}
	pulse := inFact.PulseLen()

	streamLen := streamInput.Shape()[axis]
	fixedOutputLen := fixedResult[0].Shape()[axis]

	for i := 0; ; i++ {
		offset := i * pulse
		count := 0
		if offset < streamLen {
			count = pulse
			if offset+count > streamLen {
				count = streamLen - offset
			}
		}
		pulseInput, err := makePulseInput(streamInput, axis, pulse, offset, count)
		if err != nil {
			return err
		}
		out, err := runGraph(pulsed, []*tensor.Tensor{pulseInput})
		if err != nil {
			return err
		}

		outputOffset := i * outputPulse
		if outputOffset+outputPulse < delay {
			continue
		}
		if outputOffset >= delay+fixedOutputLen {
			break
		}

		var fixedStart, pulsedStart, compareLen int
		switch {
		case outputOffset < delay:
			compareLen = pulse + outputOffset - delay
			fixedStart, pulsedStart = 0, outputPulse-compareLen
		case outputOffset+outputPulse > delay+fixedOutputLen:
			compareLen = fixedOutputLen + delay - outputOffset
			fixedStart, pulsedStart = outputOffset-delay, 0
		default:
			compareLen = outputPulse
			fixedStart, pulsedStart = outputOffset-delay, 0
		}
		if compareLen <= 0 {
			continue
		}

		wantSlice := op.Slice{Axis: axis, Begin: int64(fixedStart), End: int64(fixedStart + compareLen)}
		want, err := wantSlice.Eval([]*tensor.Tensor{fixedResult[0]})
		if err != nil {
			return err
		}
		gotSlice := op.Slice{Axis: axis, Begin: int64(pulsedStart), End: int64(pulsedStart + compareLen)}
		got, err := gotSlice.Eval([]*tensor.Tensor{out[0]})
		if err != nil {
			return err
		}
		if !tensorsEqual(want[0], got[0]) {
			return xerrors.ErrShapeMismatch
		}
	}
	return nil
}

func makePulseInput(stream *tensor.Tensor, axis, pulse, offset, count int) (*tensor.Tensor, error) {
	shape := append([]int(nil), stream.Shape()...)
	shape[axis] = pulse
	in, err := tensor.Zero(stream.DatumType(), shape)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return in, nil
	}
	sl := op.Slice{Axis: axis, Begin: int64(offset), End: int64(offset + count)}
	window, err := sl.Eval([]*tensor.Tensor{stream})
	if err != nil {
		return nil, err
	}
	for i := 0; i < window[0].Len(); i++ {
		v, err := window[0].At(i)
		if err != nil {
			return nil, err
		}
		if err := in.SetAt(i, v); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func tensorsEqual(a, b *tensor.Tensor) bool {
	ok, err := tensor.CloseEnough(a, b, tensor.RoundingOff)
	return err == nil && ok
}
