package graph

// Op is the minimal operator contract the graph IR itself needs: enough
// identity and arity to build and validate nodes. The richer behavioral
// contract (eval, shape rules, declutter, codegen, pulsify, cost,
// validation — spec.md §4.5) lives in package op, whose Op type embeds
// this one; the graph package stays decoupled from operator semantics.
type Op interface {
	// OpName is a stable display name used in node debug strings and error
	// chains (spec.md's "<op_debug>" wiring-error context).
	OpName() string
	// OutputArity is the number of outputs this operator declares; AddNode
	// fails with ErrArityMismatch when output_facts.len() disagrees.
	OutputArity() int
}

// sourceHolder is the marker interface an Op implements to identify itself
// as a graph source (spec.md §3.4: "input outlets must originate from
// operators marked as sources").
type sourceHolder interface {
	IsSource() bool
}

// IsSource reports whether op is the graph's built-in source marker (or
// any operator that identifies itself as one via IsSource()==true).
func IsSource(op Op) bool {
	s, ok := op.(sourceHolder)
	return ok && s.IsSource()
}

type sourceMarker struct{}

func (sourceMarker) OpName() string   { return "Source" }
func (sourceMarker) OutputArity() int { return 1 }
func (sourceMarker) IsSource() bool   { return true }
func (sourceMarker) String() string   { return "Source" }

// SourceOp is the built-in operator used for every node created via
// AddSource.
var SourceOp Op = sourceMarker{}
