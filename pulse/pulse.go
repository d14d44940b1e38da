// Package pulse implements pulsification (spec.md §4.10): translating a
// typed graph whose one streaming axis carries a symbolic length into a
// pulsed graph that processes that axis in fixed-size chunks, grounded on
// original_source/core/src/pulse/mod.rs's PulsedTensorFact/PulsedModel.
// Each source's streaming axis is pinned to a fixed pulse length; every
// other node delegates to its operator's own Pulsify hook (op.Op.Pulsify),
// which may wire more than one replacement node (e.g. Conv1D wires a Delay
// ahead of itself) as long as it returns the outlets corresponding to the
// original node's declared outputs, in order.
package pulse

import (
	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/op"
	"github.com/corten-ml/corten/tdim"
)

// Pulsify translates src into a pulsed graph along axis, using pulseLen as
// the fixed chunk size. Returns the pulsed graph and the src-node-id ->
// pulsed-node-id mapping threaded through every op's Pulsify hook (so a
// later node can find where its pulsified predecessor landed).
func Pulsify(src *graph.Graph[fact.TypedFact], axis, pulseLen int) (*graph.Graph[fact.PulsedFact], map[graph.NodeID]graph.NodeID, error) {
	order, err := src.EvalOrder()
	if err != nil {
		return nil, nil, err
	}

	target := graph.New[fact.PulsedFact]("pulsed")
	mapping := make(map[graph.NodeID]graph.NodeID, len(order))

	for _, id := range order {
		node := src.NodeByID(id)
		if graph.IsSource(node.Op) {
			outlet, err := pulsifySource(node, target, axis, pulseLen)
			if err != nil {
				return nil, nil, err
			}
			mapping[id] = outlet.Node
			continue
		}
		impl, ok := node.Op.(op.Op)
		if !ok || !impl.SupportsPulse() {
			return nil, nil, xerrors.ErrUnsupportedPulse
		}
		outs, err := impl.Pulsify(src, id, target, mapping, axis, pulseLen)
		if err != nil {
			return nil, nil, err
		}
		if len(outs) == 0 {
			return nil, nil, xerrors.ErrUnsupportedPulse
		}
		mapping[id] = outs[len(outs)-1].Node
	}

	outputs := make([]graph.Outlet, len(src.OutputOutlets()))
	for i, o := range src.OutputOutlets() {
		newNode, ok := mapping[o.Node]
		if !ok {
			return nil, nil, xerrors.ErrUnsupportedPulse
		}
		outputs[i] = graph.Outlet{Node: newNode, Slot: o.Slot}
	}
	target.SetOutputOutlets(outputs)

	return target, mapping, nil
}

// pulsifySource pins a source's streaming axis to pulseLen, carrying the
// original symbolic length forward as FullLen for delay bookkeeping.
func pulsifySource(node *graph.Node[fact.TypedFact], target *graph.Graph[fact.PulsedFact], axis, pulseLen int) (graph.Outlet, error) {
	typed := node.Outputs[0].Fact
	if axis < 0 || axis >= len(typed.Shape) {
		return graph.Outlet{}, xerrors.ErrUnsupportedPulse
	}
	fullLen := typed.Shape[axis]
	shape := append([]tdim.TDim(nil), typed.Shape...)
	shape[axis] = tdim.FromInt(int64(pulseLen))
	pf := fact.PulsedFact{
		TypedFact: fact.TypedFact{DT: typed.DT, Shape: shape},
		Axis:      axis,
		Delay:     0,
		FullLen:   fullLen,
	}
	return target.AddSource(node.Name, pf)
}
