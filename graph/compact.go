package graph

// Compact returns a new graph containing only the nodes reachable from
// the current output outlets, renumbered densely in topological order
// (spec.md §4.4). Runs in O(N log N + E), not O(N+E): one reverse
// traversal from the outputs to mark live nodes, one filter of the eval
// order (a heap-ordered Kahn sort, O(N log N + E)), and one pass to
// rebuild nodes+edges under the new numbering.
func (g *Graph[F]) Compact() (*Graph[F], error) {
	live := g.reachableFromOutputs()

	order, err := g.EvalOrder()
	if err != nil {
		return nil, err
	}

	remap := make(map[NodeID]NodeID, len(live))
	out := New[F](g.flavor)

	// Pass 1: create every live node (no edges yet) in topological order,
	// so the new ids are dense and already eval-ordered.
	for _, oldID := range order {
		if !live[oldID] {
			continue
		}
		n := g.nodes[oldID]
		facts := make([]F, len(n.Outputs))
		for i, o := range n.Outputs {
			facts[i] = o.Fact
		}
		var newID NodeID
		if IsSource(n.Op) {
			o, _ := out.AddSource(n.Name, facts[0])
			newID = o.Node
		} else {
			newID, _ = out.AddNode(n.Name, n.Op, facts)
		}
		remap[oldID] = newID
	}

	// Pass 2: rewire edges under the new numbering, preserving each node's
	// original input order.
	for _, oldID := range order {
		if !live[oldID] {
			continue
		}
		n := g.nodes[oldID]
		newID := remap[oldID]
		for slot, in := range n.Inputs {
			newSrc, ok := remap[in.Node]
			if !ok {
				continue // input produced by a now-dead node: shouldn't happen for a live node
			}
			_ = out.AddEdge(Outlet{Node: newSrc, Slot: in.Slot}, Inlet{Node: newID, Slot: slot})
		}
	}

	newOutputs := make([]Outlet, 0, len(g.outputs))
	for _, o := range g.outputs {
		if newID, ok := remap[o.Node]; ok {
			newOutputs = append(newOutputs, Outlet{Node: newID, Slot: o.Slot})
		}
	}
	out.SetOutputOutlets(newOutputs)

	return out, nil
}

// reachableFromOutputs marks every node that is an ancestor (inclusive) of
// the graph's declared outputs, by walking Inputs backward.
func (g *Graph[F]) reachableFromOutputs() map[NodeID]bool {
	live := make(map[NodeID]bool, len(g.nodes))
	stack := make([]NodeID, 0, len(g.outputs))
	for _, o := range g.outputs {
		stack = append(stack, o.Node)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if live[id] {
			continue
		}
		live[id] = true
		n := g.nodes[id]
		for _, in := range n.Inputs {
			if !live[in.Node] {
				stack = append(stack, in.Node)
			}
		}
	}
	return live
}
