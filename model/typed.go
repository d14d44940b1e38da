package model

import (
	"go.uber.org/zap"

	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/pass"
	"github.com/corten-ml/corten/plan"
	"github.com/corten-ml/corten/pulse"
)

// TypedModel wraps a fully-typed graph (every fact concrete) through the
// declutter/codegen/pulsify/plan stages of spec.md §6.1.
type TypedModel struct {
	ID      string
	Graph   *graph.Graph[fact.TypedFact]
	IterCap int
	Logger  *zap.SugaredLogger
}

// Declutter runs the declutter pass family (package pass, C8) to a
// fixpoint, returning a new TypedModel over the rewritten graph.
func (m *TypedModel) Declutter() (*TypedModel, error) {
	g, err := pass.RunDeclutter(m.Graph, m.Logger)
	if err != nil {
		return nil, err
	}
	return &TypedModel{ID: m.ID, Graph: g, IterCap: m.IterCap, Logger: m.Logger}, nil
}

// IntoOptimized runs declutter to a fixpoint followed by the codegen pass
// family, matching spec.md §6.1's into_optimized (tract's combined
// declutter+codegen optimize_passes sequence).
func (m *TypedModel) IntoOptimized() (*TypedModel, error) {
	declt, err := m.Declutter()
	if err != nil {
		return nil, err
	}
	g, err := pass.RunCodegen(declt.Graph, declt.Logger)
	if err != nil {
		return nil, err
	}
	return &TypedModel{ID: declt.ID, Graph: g, IterCap: declt.IterCap, Logger: declt.Logger}, nil
}

// IntoPulsed translates the graph to the pulsed flavor along axis with a
// fixed pulseLen (package pulse, C10); may fail with ErrUnsupportedPulse
// if some op in the graph cannot be pulsified.
func (m *TypedModel) IntoPulsed(axis, pulseLen int) (*PulsedModel, error) {
	g, _, err := pulse.Pulsify(m.Graph, axis, pulseLen)
	if err != nil {
		return nil, err
	}
	return &PulsedModel{ID: m.ID, Graph: g, IterCap: m.IterCap, Logger: m.Logger}, nil
}

// Plan computes an immutable evaluation plan (package plan, C9) over the graph.
func (m *TypedModel) Plan() (*plan.Plan, error) {
	return plan.New(m.Graph)
}
