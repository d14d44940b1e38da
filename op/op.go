// Package op implements the operator trait of spec.md §4.5: a polymorphic
// contract (eval, shape rules, declutter/codegen lowering, pulsify, cost,
// validation) dispatched through a single interface, plus corten's built-in
// op set. Concrete ops are a heterogeneous open set identified by name, not
// by a closed sum type, matching the "trait objects carrying both behavior
// and data" redesign note.
package op

import (
	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/infer"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/patch"
	"github.com/corten-ml/corten/tensor"
)

// CostKind classifies one line item of an op's abstract execution cost.
type CostKind int

const (
	CostMAC CostKind = iota // one multiply-add
	CostDiv                 // one division
	CostMem                 // bytes moved
)

func (k CostKind) String() string {
	switch k {
	case CostMAC:
		return "mac"
	case CostDiv:
		return "div"
	case CostMem:
		return "mem"
	default:
		return "unknown"
	}
}

// CostEntry is one (kind, count) line item.
type CostEntry struct {
	Kind  CostKind
	Count int64
}

// Validation names the tolerance class a node's output is checked under
// (spec.md §4.5).
type Validation int

const (
	// Rounding allows the tensor.RoundingOn tolerance: the default for
	// floating-point numeric ops.
	Rounding Validation = iota
	// Exact requires bit-for-bit match: integer and data-movement ops.
	Exact
	// Random performs no check at all (e.g. dropout, random init).
	Random
)

// Op is the full operator trait. graph.Op is the minimal slice the graph
// package itself needs (name + arity); everything else here is consumed by
// the solver, pass driver, planner and pulsifier. Concrete ops embed
// BaseOp and override only the methods their behavior needs, matching the
// teacher's habit of embedding a no-op default rather than requiring every
// implementation to restate the whole contract.
type Op interface {
	graph.Op

	// Eval runs the operator against concrete input tensors.
	Eval(inputs []*tensor.Tensor) ([]*tensor.Tensor, error)

	// IsStateful reports whether the op carries state across Eval calls
	// (e.g. Delay's ring buffer) that Reset must clear between runs.
	IsStateful() bool
	// Reset clears any carried state. No-op for stateless ops.
	Reset()

	// ShapeRule computes output facts directly from input facts at the
	// typed-flavor level (spec.md §4.5's functional-rule half of
	// shape_rule/infer_rules).
	ShapeRule(inputs []fact.TypedFact) ([]fact.TypedFact, error)

	// InferRules registers constraint clauses against this node's
	// inference-level input/output facts (the constraint-clause half).
	InferRules(inputs, outputs []*fact.InferenceFact) ([]infer.Clause, error)

	// Declutter proposes a local algebraic rewrite of this node, or nil if
	// none applies. Must be a pure function of the current graph.
	Declutter(g *graph.Graph[fact.TypedFact], id graph.NodeID) (*patch.Patch[fact.TypedFact], error)

	// Codegen proposes a terminal lowering to an execution-optimized form,
	// or nil if none applies.
	Codegen(g *graph.Graph[fact.TypedFact], id graph.NodeID) (*patch.Patch[fact.TypedFact], error)

	// SupportsPulse reports whether Pulsify is meaningful for this op.
	SupportsPulse() bool
	// Pulsify rewrites this node for pulsed execution along axis with the
	// given fixed pulse length, wiring replacement node(s) into target and
	// returning their output outlets in declared-output order.
	Pulsify(src *graph.Graph[fact.TypedFact], id graph.NodeID, target *graph.Graph[fact.PulsedFact], mapping map[graph.NodeID]graph.NodeID, axis, pulseLen int) ([]graph.Outlet, error)

	// Cost estimates the abstract execution cost given the node's input facts.
	Cost(inputs []fact.TypedFact) []CostEntry

	// Validation names the tolerance class this op's output is checked under.
	Validation() Validation
}

// BaseOp supplies no-op defaults for every optional trait method, so a
// concrete op need only implement OpName/OutputArity/Eval/ShapeRule plus
// whichever optional hooks it actually supports.
type BaseOp struct{}

func (BaseOp) IsStateful() bool { return false }
func (BaseOp) Reset()           {}

func (BaseOp) InferRules(inputs, outputs []*fact.InferenceFact) ([]infer.Clause, error) {
	return nil, nil
}

func (BaseOp) Declutter(g *graph.Graph[fact.TypedFact], id graph.NodeID) (*patch.Patch[fact.TypedFact], error) {
	return nil, nil
}

func (BaseOp) Codegen(g *graph.Graph[fact.TypedFact], id graph.NodeID) (*patch.Patch[fact.TypedFact], error) {
	return nil, nil
}

func (BaseOp) SupportsPulse() bool { return false }

func (BaseOp) Pulsify(src *graph.Graph[fact.TypedFact], id graph.NodeID, target *graph.Graph[fact.PulsedFact], mapping map[graph.NodeID]graph.NodeID, axis, pulseLen int) ([]graph.Outlet, error) {
	return nil, xerrors.ErrUnimplementedOp
}

func (BaseOp) Cost(inputs []fact.TypedFact) []CostEntry { return nil }

func (BaseOp) Validation() Validation { return Rounding }
