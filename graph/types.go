package graph

import "fmt"

// NodeID is a dense, insertion-order identifier, stable for the life of
// the graph (spec.md §3.4).
type NodeID int

// Outlet identifies an output port: (node, slot).
type Outlet struct {
	Node NodeID
	Slot int
}

func (o Outlet) String() string { return fmt.Sprintf("%d:%d", o.Node, o.Slot) }

// Inlet identifies an input port: (node, slot).
type Inlet struct {
	Node NodeID
	Slot int
}

func (i Inlet) String() string { return fmt.Sprintf("%d:%d", i.Node, i.Slot) }

// Fact is the capability interface a fact flavor must satisfy to
// parameterize Graph (spec.md §9: "parameterize it over the fact type
// with a small capability interface"). Every concrete flavor in package
// fact (InferenceFact, TypedFact, PulsedFact) satisfies this.
type Fact[F any] interface {
	Clone() F
	DebugString() string
}

// OutputSlot is one output of a Node: its current fact and the ordered
// list of inlets consuming it.
type OutputSlot[F Fact[F]] struct {
	Fact       F
	Successors []Inlet
}

// Node is a graph vertex: a dense id, a unique display name, an operator,
// its ordered inputs, and its outputs (spec.md §3.4).
type Node[F Fact[F]] struct {
	ID      NodeID
	Name    string
	Op      Op
	Inputs  []Outlet
	Outputs []OutputSlot[F]
}

// OutputFacts returns the current fact of each output, in order.
func (n *Node[F]) OutputFacts() []F {
	facts := make([]F, len(n.Outputs))
	for i, o := range n.Outputs {
		facts[i] = o.Fact
	}
	return facts
}

func (n *Node[F]) String() string {
	return fmt.Sprintf("#%d %q (%s)", n.ID, n.Name, n.Op.OpName())
}
