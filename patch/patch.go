// Package patch implements the model patch of spec.md §4.6: a description
// of a local graph rewrite built up independently of the live graph (tap-in
// new nodes wired against existing or newly-staged outlets, shunt-out
// rerouting of every current consumer of a replaced outlet), then applied
// to the graph in one Apply call. Apply is not atomic: a failure partway
// through leaves the nodes already wired in place. Grounded on the original implementation's
// TypedModelPatch (original_source/core/src/model/patch.rs: tap_model,
// shunt_outside, apply).
package patch

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/internal/xerrors"
)

// Ref names a source outlet a staged node's input, or a reroute's new
// target, resolves to: either an outlet already live in the graph, or the
// Slot-th output of the NewNodeIdx-th node staged earlier in the same patch.
type Ref struct {
	FromExisting bool
	Existing     graph.Outlet
	NewNodeIdx   int
	Slot         int
}

// Existing returns a Ref to an outlet already wired in the target graph.
func Existing(o graph.Outlet) Ref { return Ref{FromExisting: true, Existing: o} }

// Staged returns a Ref to the slot-th output of a node staged earlier in
// the same patch via AddNode (nodeIdx is the index AddNode returned).
func Staged(nodeIdx, slot int) Ref { return Ref{NewNodeIdx: nodeIdx, Slot: slot} }

// nodeSpec is one staged node addition: tap_model wiring against existing
// or already-staged outlets.
type nodeSpec[F graph.Fact[F]] struct {
	name      string
	op        graph.Op
	inputs    []Ref
	shapeRule func([]F) ([]F, error)
}

// reroute is one shunt-out step: every consumer currently reading from Old
// is repointed at New once New resolves.
type reroute struct {
	old graph.Outlet
	new Ref
}

// Patch describes a local rewrite of a Graph[F], built independently of the
// live graph and applied in one shot.
type Patch[F graph.Fact[F]] struct {
	context string
	nodes   []nodeSpec[F]
	reroute []reroute
}

// New returns an empty patch tagged with a short context label used in
// error messages (e.g. the declutter pass name).
func New[F graph.Fact[F]](context string) *Patch[F] {
	return &Patch[F]{context: context}
}

// AddNode stages a new node; inputs may reference existing graph outlets or
// outlets of nodes staged earlier in this same patch. Returns the staged
// node's index, for use as a later Staged() reference.
func (p *Patch[F]) AddNode(name string, op graph.Op, inputs []Ref, shapeRule func([]F) ([]F, error)) int {
	p.nodes = append(p.nodes, nodeSpec[F]{name: name, op: op, inputs: inputs, shapeRule: shapeRule})
	return len(p.nodes) - 1
}

// Shunt records that every current consumer of old (and any declared graph
// output equal to old) must be rerouted to new once the patch is applied.
func (p *Patch[F]) Shunt(old graph.Outlet, new Ref) {
	p.reroute = append(p.reroute, reroute{old: old, new: new})
}

// Fingerprint renders the op names of every node this patch stages, in
// staging order, joined by ",". The pass driver uses this as a cheap
// token identifying "what this rewrite turns the node into", to detect a
// later patch undoing an earlier one (package pass's loop guard).
func (p *Patch[F]) Fingerprint() string {
	names := make([]string, len(p.nodes))
	for i, spec := range p.nodes {
		names[i] = spec.op.OpName()
	}
	return strings.Join(names, ",")
}

// Apply wires every staged node into g in order (so later nodes may
// reference earlier ones), then performs every shunt-out reroute. A failure
// partway through leaves whatever nodes were already wired in place: the
// caller (the pass driver) is expected to treat any error as "this pass
// produced an inconsistent patch" and abort the whole optimization run
// rather than attempt a partial rollback, matching original_source's
// behavior of propagating apply() failures up through the pass driver.
func (p *Patch[F]) Apply(g *graph.Graph[F]) error {
	resolved := make([][]graph.Outlet, len(p.nodes))
	for i, spec := range p.nodes {
		ins := make([]graph.Outlet, len(spec.inputs))
		for j, r := range spec.inputs {
			o, err := p.resolve(resolved, r)
			if err != nil {
				return errors.Wrapf(err, "patch %s: resolving input %d of staged node %q", p.context, j, spec.name)
			}
			ins[j] = o
		}
		outs, err := g.WireNode(spec.name, spec.op, ins, spec.shapeRule)
		if err != nil {
			return errors.Wrapf(err, "patch %s: wiring staged node %q", p.context, spec.name)
		}
		resolved[i] = outs
	}
	for _, rr := range p.reroute {
		to, err := p.resolve(resolved, rr.new)
		if err != nil {
			return errors.Wrapf(err, "patch %s: resolving reroute target for %s", p.context, rr.old)
		}
		if err := g.RedirectConsumers(rr.old, to); err != nil {
			return errors.Wrapf(err, "patch %s: redirecting consumers of %s", p.context, rr.old)
		}
	}
	return nil
}

func (p *Patch[F]) resolve(resolved [][]graph.Outlet, r Ref) (graph.Outlet, error) {
	if r.FromExisting {
		return r.Existing, nil
	}
	if r.NewNodeIdx < 0 || r.NewNodeIdx >= len(resolved) {
		return graph.Outlet{}, xerrors.ErrShapeMismatch
	}
	outs := resolved[r.NewNodeIdx]
	if r.Slot < 0 || r.Slot >= len(outs) {
		return graph.Outlet{}, xerrors.ErrShapeMismatch
	}
	return outs[r.Slot], nil
}
