// Package graph implements the multi-level graph IR of spec.md §3.4/§4.4:
// nodes, outlets, inlets and edges, generic over the fact flavor (inference/
// typed/pulsed) and over the operator trait object. It is the one package
// every other core component builds on, so it stays deliberately small and
// mutation-transactional: a failed mutation leaves the graph untouched.
package graph

import (
	"github.com/corten-ml/corten/internal/xerrors"
)

// Graph is a DAG of Node[F], parameterized over the fact flavor F. The
// zero value is not usable; construct with New.
type Graph[F Fact[F]] struct {
	flavor  string
	nodes   []*Node[F]
	nameIdx map[string]NodeID
	inputs  []Outlet
	outputs []Outlet
}

// New returns an empty graph tagged with flavor (used only for debug
// strings — e.g. "inference", "typed", "pulsed").
func New[F Fact[F]](flavor string) *Graph[F] {
	return &Graph[F]{flavor: flavor, nameIdx: make(map[string]NodeID)}
}

// Flavor returns the graph's fact-flavor tag.
func (g *Graph[F]) Flavor() string { return g.flavor }

// Nodes returns the node slice. Callers must not mutate it directly;
// treat it as read-only except through the Graph's own mutators.
func (g *Graph[F]) Nodes() []*Node[F] { return g.nodes }

// NodeByID returns the node with the given id, or nil if out of range.
func (g *Graph[F]) NodeByID(id NodeID) *Node[F] {
	if int(id) < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// NodeByName returns the node with the given display name, or nil.
func (g *Graph[F]) NodeByName(name string) *Node[F] {
	id, ok := g.nameIdx[name]
	if !ok {
		return nil
	}
	return g.nodes[id]
}

// InputOutlets returns the graph's declared input outlets.
func (g *Graph[F]) InputOutlets() []Outlet { return g.inputs }

// OutputOutlets returns the graph's declared output outlets.
func (g *Graph[F]) OutputOutlets() []Outlet { return g.outputs }

// OutletFact returns the fact currently attached to outlet o.
func (g *Graph[F]) OutletFact(o Outlet) (F, error) {
	var zero F
	n := g.NodeByID(o.Node)
	if n == nil || o.Slot < 0 || o.Slot >= len(n.Outputs) {
		return zero, xerrors.ErrShapeMismatch
	}
	return n.Outputs[o.Slot].Fact, nil
}

// SetOutletFact overwrites the fact at outlet o (used by the inference
// solver and pass driver as facts are refined).
func (g *Graph[F]) SetOutletFact(o Outlet, f F) error {
	n := g.NodeByID(o.Node)
	if n == nil || o.Slot < 0 || o.Slot >= len(n.Outputs) {
		return xerrors.ErrShapeMismatch
	}
	n.Outputs[o.Slot].Fact = f
	return nil
}

// addNodeRaw appends a node with the given outputs, without edges, and
// returns its id. It never fails: arity/name validation happens in the
// exported constructors below so that they can fail transactionally
// before any mutation occurs.
func (g *Graph[F]) addNodeRaw(name string, op Op, facts []F) NodeID {
	id := NodeID(len(g.nodes))
	outs := make([]OutputSlot[F], len(facts))
	for i, f := range facts {
		outs[i] = OutputSlot[F]{Fact: f}
	}
	n := &Node[F]{ID: id, Name: name, Op: op, Outputs: outs}
	g.nodes = append(g.nodes, n)
	g.nameIdx[name] = id
	return id
}

// AddSource adds a node whose operator is the built-in source marker; its
// single output carries fact, and the outlet is recorded in the input
// list (spec.md §4.4).
func (g *Graph[F]) AddSource(name string, f F) (Outlet, error) {
	if _, exists := g.nameIdx[name]; exists {
		return Outlet{}, xerrors.ErrDuplicateName
	}
	id := g.addNodeRaw(name, SourceOp, []F{f})
	o := Outlet{Node: id, Slot: 0}
	g.inputs = append(g.inputs, o)
	return o, nil
}

// AddNode appends a node with the given operator and declared output
// facts, without wiring any inputs. Fails with ErrDuplicateName or
// ErrArityMismatch without mutating the graph.
func (g *Graph[F]) AddNode(name string, op Op, outputFacts []F) (NodeID, error) {
	if _, exists := g.nameIdx[name]; exists {
		return 0, xerrors.ErrDuplicateName
	}
	if len(outputFacts) != op.OutputArity() {
		return 0, xerrors.ErrArityMismatch
	}
	return g.addNodeRaw(name, op, outputFacts), nil
}

// AddEdge connects outlet o to inlet i: appends i to o's Successors and
// records o as the inlet-th input of the consuming node. Fails with
// ErrInletFilled if the inlet already has a different connection recorded
// at that slot index — i.e. a second AddEdge targeting the same (node,
// slot) without that slot being the next free one.
func (g *Graph[F]) AddEdge(o Outlet, i Inlet) error {
	src := g.NodeByID(o.Node)
	dst := g.NodeByID(i.Node)
	if src == nil || dst == nil || o.Slot < 0 || o.Slot >= len(src.Outputs) {
		return xerrors.ErrShapeMismatch
	}
	if i.Slot < 0 || i.Slot > len(dst.Inputs) {
		return xerrors.ErrShapeMismatch
	}
	if i.Slot < len(dst.Inputs) {
		return xerrors.ErrInletFilled
	}
	dst.Inputs = append(dst.Inputs, o)
	src.Outputs[o.Slot].Successors = append(src.Outputs[o.Slot].Successors, i)
	return nil
}

// WireNode computes output facts by calling shapeRule on the input
// outlets' current facts, then adds the node and wires the edges
// atomically: on any failure (duplicate name, arity mismatch, shape-rule
// error, bad input outlet) the graph is left exactly as it was before the
// call (spec.md §4.4's "all graph mutations are failable and
// transactional").
func (g *Graph[F]) WireNode(name string, op Op, inputs []Outlet, shapeRule func([]F) ([]F, error)) ([]Outlet, error) {
	if _, exists := g.nameIdx[name]; exists {
		return nil, xerrors.ErrDuplicateName
	}
	inputFacts := make([]F, len(inputs))
	for idx, o := range inputs {
		f, err := g.OutletFact(o)
		if err != nil {
			return nil, err
		}
		inputFacts[idx] = f
	}
	outFacts, err := shapeRule(inputFacts)
	if err != nil {
		return nil, xerrors.ErrShapeInference
	}
	if len(outFacts) != op.OutputArity() {
		return nil, xerrors.ErrArityMismatch
	}

	// Everything validated; now mutate. AddNode/AddEdge cannot fail past
	// this point for reasons already checked above, except AddEdge's inlet
	// bookkeeping which only ever appends here (fresh node, slots 0..n-1
	// in order), so the transactional guarantee holds.
	id, err := g.AddNode(name, op, outFacts)
	if err != nil {
		return nil, err
	}
	outlets := make([]Outlet, len(outFacts))
	for idx, o := range inputs {
		if err := g.AddEdge(o, Inlet{Node: id, Slot: idx}); err != nil {
			return nil, err
		}
	}
	for slot := range outFacts {
		outlets[slot] = Outlet{Node: id, Slot: slot}
	}
	return outlets, nil
}

// RedirectConsumers moves every current consumer of outlet from to outlet
// to: each inlet that was reading from now reads from to instead, and any
// declared graph output pointing at from is repointed at to. Used by
// package patch to apply a declutter/codegen rewrite's shunt-out step
// (spec.md §4.6).
func (g *Graph[F]) RedirectConsumers(from, to Outlet) error {
	src := g.NodeByID(from.Node)
	dst := g.NodeByID(to.Node)
	if src == nil || dst == nil || from.Slot < 0 || from.Slot >= len(src.Outputs) || to.Slot < 0 || to.Slot >= len(dst.Outputs) {
		return xerrors.ErrShapeMismatch
	}
	consumers := src.Outputs[from.Slot].Successors
	src.Outputs[from.Slot].Successors = nil
	for _, in := range consumers {
		consumer := g.NodeByID(in.Node)
		if consumer == nil || in.Slot < 0 || in.Slot >= len(consumer.Inputs) {
			return xerrors.ErrShapeMismatch
		}
		consumer.Inputs[in.Slot] = to
		dst.Outputs[to.Slot].Successors = append(dst.Outputs[to.Slot].Successors, in)
	}
	for i, o := range g.outputs {
		if o == from {
			g.outputs[i] = to
		}
	}
	return nil
}

// SetOutputOutlets replaces the graph's declared output list.
func (g *Graph[F]) SetOutputOutlets(outlets []Outlet) {
	g.outputs = append([]Outlet(nil), outlets...)
}
