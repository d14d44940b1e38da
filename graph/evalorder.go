package graph

import (
	"container/heap"

	"github.com/corten-ml/corten/internal/xerrors"
)

// idHeap is a min-heap of NodeID, used to make Kahn's algorithm's frontier
// processing order deterministic: among all currently-ready nodes, the one
// with the smallest insertion id goes first (spec.md §4.4: "tie-break by
// insertion id to make ordering deterministic").
type idHeap []NodeID

func (h idHeap) Len() int            { return len(h) }
func (h idHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x interface{}) { *h = append(*h, x.(NodeID)) }
func (h *idHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// EvalOrder computes a deterministic topological order over the graph's
// nodes via Kahn's algorithm, breaking ties by ascending insertion id.
// Fails with ErrCyclicGraph if the graph is not a DAG.
func (g *Graph[F]) EvalOrder() ([]NodeID, error) {
	indeg := make([]int, len(g.nodes))
	for _, n := range g.nodes {
		indeg[n.ID] += len(n.Inputs)
	}

	ready := &idHeap{}
	heap.Init(ready)
	for _, n := range g.nodes {
		if indeg[n.ID] == 0 {
			heap.Push(ready, n.ID)
		}
	}

	order := make([]NodeID, 0, len(g.nodes))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(NodeID)
		order = append(order, id)
		n := g.nodes[id]
		for _, out := range n.Outputs {
			for _, succ := range out.Successors {
				indeg[succ.Node]--
				if indeg[succ.Node] == 0 {
					heap.Push(ready, succ.Node)
				}
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, xerrors.ErrCyclicGraph
	}
	return order, nil
}
