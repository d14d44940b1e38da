package model

import (
	"go.uber.org/zap"

	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/op"
)

// PulsedModel wraps a graph in the pulsed flavor.
type PulsedModel struct {
	ID      string
	Graph   *graph.Graph[fact.PulsedFact]
	IterCap int
	Logger  *zap.SugaredLogger
}

// IntoTyped drops the pulse-time contract (axis/delay/full-length) from
// every outlet's fact and rebuilds the typed graph, preserving exactly the
// node structure pulsification produced (including any Delay node an op's
// Pulsify hook wired in) — mirroring tract's PulsedModel::into_typed,
// which keeps pulsed nodes as concrete fixed-shape typed ops rather than
// reversing the transform.
func (m *PulsedModel) IntoTyped() (*TypedModel, error) {
	order, err := m.Graph.EvalOrder()
	if err != nil {
		return nil, err
	}

	target := graph.New[fact.TypedFact]("typed")
	mapping := make(map[graph.NodeID]graph.NodeID, len(order))
	for _, id := range order {
		n := m.Graph.NodeByID(id)
		if graph.IsSource(n.Op) {
			o, err := target.AddSource(n.Name, n.Outputs[0].Fact.TypedFact)
			if err != nil {
				return nil, err
			}
			mapping[id] = o.Node
			continue
		}
		if _, ok := n.Op.(op.Op); !ok {
			return nil, xerrors.ErrUnimplementedOp
		}
		mappedInputs := make([]graph.Outlet, len(n.Inputs))
		for i, o := range n.Inputs {
			mappedInputs[i] = graph.Outlet{Node: mapping[o.Node], Slot: o.Slot}
		}
		typedFacts := make([]fact.TypedFact, len(n.Outputs))
		for i, o := range n.Outputs {
			typedFacts[i] = o.Fact.TypedFact.Clone()
		}
		keepFacts := func([]fact.TypedFact) ([]fact.TypedFact, error) { return typedFacts, nil }
		outs, err := target.WireNode(n.Name, n.Op, mappedInputs, keepFacts)
		if err != nil {
			return nil, xerrors.Wiring(n.Name, n.Op.OpName(), err)
		}
		mapping[id] = outs[0].Node
	}

	outputs := make([]graph.Outlet, len(m.Graph.OutputOutlets()))
	for i, o := range m.Graph.OutputOutlets() {
		outputs[i] = graph.Outlet{Node: mapping[o.Node], Slot: o.Slot}
	}
	target.SetOutputOutlets(outputs)

	return &TypedModel{ID: m.ID, Graph: target, IterCap: m.IterCap, Logger: m.Logger}, nil
}
