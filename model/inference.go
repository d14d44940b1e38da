// Package model implements the public facade of spec.md §6.1: the
// InferenceModel → TypedModel → PulsedModel pipeline that ties the fact
// lattice (C3), graph IR (C4), inference solver (C7), pass driver (C8),
// planner (C9) and pulsification (C10) together into the handful of
// methods an external format parser or CLI actually calls. Constructing
// the initial InferenceModel from a concrete wire format (protobuf
// GraphDef/ModelProto) is an out-of-scope collaborator (spec.md §1/§6.2);
// this package picks up once that collaborator has produced a
// *graph.Graph[*fact.InferenceFact].
package model

import (
	"github.com/google/uuid"

	"go.uber.org/zap"

	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/infer"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/op"
)

// InferenceModel wraps a graph whose facts may still be partially known.
// ID is a process-local identity (assigned once at construction, grounded
// on the pack's uuid-per-entity convention) used only for log correlation
// across the pipeline's several stages.
type InferenceModel struct {
	ID      string
	Graph   *graph.Graph[*fact.InferenceFact]
	IterCap int
	Logger  *zap.SugaredLogger
}

// New wraps an already-built inference-flavor graph (as produced by an
// external format parser) with the pipeline bookkeeping this package adds.
func New(g *graph.Graph[*fact.InferenceFact], iterCap int) *InferenceModel {
	return &InferenceModel{ID: uuid.New().String(), Graph: g, IterCap: iterCap}
}

// SetInputFact overwrites the fact of the index-th declared input,
// refining whatever the parser guessed (spec.md §6.1).
func (m *InferenceModel) SetInputFact(index int, f *fact.InferenceFact) error {
	inputs := m.Graph.InputOutlets()
	if index < 0 || index >= len(inputs) {
		return xerrors.ErrShapeMismatch
	}
	return m.Graph.SetOutletFact(inputs[index], f)
}

// SetOutputNames declares the graph's outputs by node name, each
// contributing its single output slot.
func (m *InferenceModel) SetOutputNames(names []string) error {
	outlets := make([]graph.Outlet, len(names))
	for i, name := range names {
		n := m.Graph.NodeByName(name)
		if n == nil {
			return xerrors.ErrShapeMismatch
		}
		outlets[i] = graph.Outlet{Node: n.ID, Slot: 0}
	}
	m.Graph.SetOutputOutlets(outlets)
	return nil
}

// IntoTyped drives every fact to fully known via the inference solver
// (package infer), then rebuilds the graph in the typed flavor, rerunning
// each op's own ShapeRule over the now-concrete inputs — both to produce
// the TypedFact and as a consistency check that the solved facts actually
// satisfy the op's own shape contract.
func (m *InferenceModel) IntoTyped() (*TypedModel, error) {
	order, err := m.Graph.EvalOrder()
	if err != nil {
		return nil, err
	}

	var clauses []infer.Clause
	for _, id := range order {
		n := m.Graph.NodeByID(id)
		impl, ok := n.Op.(op.Op)
		if !ok {
			if graph.IsSource(n.Op) {
				continue
			}
			return nil, xerrors.ErrUnimplementedOp
		}
		inputs := make([]*fact.InferenceFact, len(n.Inputs))
		for i, o := range n.Inputs {
			f, err := m.Graph.OutletFact(o)
			if err != nil {
				return nil, err
			}
			inputs[i] = f
		}
		outputs := n.OutputFacts()
		cs, err := impl.InferRules(inputs, outputs)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, cs...)
	}
	if err := infer.Solve(clauses, m.IterCap); err != nil {
		return nil, err
	}

	target := graph.New[fact.TypedFact]("typed")
	mapping := make(map[graph.NodeID]graph.NodeID, len(order))
	for _, id := range order {
		n := m.Graph.NodeByID(id)
		if graph.IsSource(n.Op) {
			typed, err := n.Outputs[0].Fact.Concretize()
			if err != nil {
				return nil, err
			}
			o, err := target.AddSource(n.Name, typed)
			if err != nil {
				return nil, err
			}
			mapping[id] = o.Node
			continue
		}
		impl := n.Op.(op.Op)
		mappedInputs := make([]graph.Outlet, len(n.Inputs))
		for i, o := range n.Inputs {
			mappedInputs[i] = graph.Outlet{Node: mapping[o.Node], Slot: o.Slot}
		}
		outs, err := target.WireNode(n.Name, n.Op, mappedInputs, impl.ShapeRule)
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
