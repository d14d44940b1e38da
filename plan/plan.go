// Package plan implements the session planner of spec.md §4.9, grounded on
// original_source/core/src/plan.rs's SimplePlan/SimpleState split: a Plan
// is the reusable, immutable part (eval order plus per-step flush lists)
// computed once from a fully-typed graph, and a Session (session.go) is
// the mutable, re-runnable execution of that plan.
package plan

import (
	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/graph"
)

// Plan is an eval order over a typed graph plus, for every step, the set
// of node results that are no longer needed past that step and can be
// flushed from a Session's working set.
type Plan struct {
	Graph      *graph.Graph[fact.TypedFact]
	Order      []graph.NodeID
	FlushLists [][]graph.NodeID
}

// New computes a Plan from g: a topological eval order (graph.EvalOrder)
// plus, for each node, the last step at which one of its outputs is still
// read as an input — the step after which it can be flushed. A node
// declared as a graph output is never flushed: spec.md §3.6 requires its
// value to survive through the session's final output-collection step,
// which reads values after the last entry in Order has run.
func New(g *graph.Graph[fact.TypedFact]) (*Plan, error) {
	order, err := g.EvalOrder()
	if err != nil {
		return nil, err
	}

	outputNodes := make(map[graph.NodeID]bool, len(g.OutputOutlets()))
	for _, o := range g.OutputOutlets() {
		outputNodes[o.Node] = true
	}

	neededUntil := make([]int, len(g.Nodes()))
	for step, id := range order {
		n := g.NodeByID(id)
		for _, in := range n.Inputs {
			neededUntil[in.Node] = step
		}
	}

	flushLists := make([][]graph.NodeID, len(order))
	for nodeIdx, flushAt := range neededUntil {
		if flushAt != 0 && !outputNodes[graph.NodeID(nodeIdx)] {
			flushLists[flushAt] = append(flushLists[flushAt], graph.NodeID(nodeIdx))
		}
	}

	return &Plan{Graph: g, Order: order, FlushLists: flushLists}, nil
}
