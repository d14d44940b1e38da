// Package pass implements the declutter/codegen pass driver of spec.md
// §4.8, grounded on original_source/core/src/model/typed.rs's
// optimize_passes: repeatedly walk the graph asking each node's operator
// for a local rewrite, apply it, and loop to a fixpoint, compacting dead
// nodes out between rounds. A rewritten node is never asked twice (its
// replacement gets a fresh node id and is free to be rewritten again,
// chaining further commute steps). Two rewrites that perpetually undo each
// other are caught by a transition-reversal guard (a later rewrite proposing
// to turn a node's op back into the op an earlier rewrite turned it from is
// skipped) backed by a patch-count watchdog for longer cycles. The guard
// skips only the reversing proposal; a watchdog trip ends the call and
// returns the graph as rewritten so far. Neither fails the run (spec.md
// §8 scenario 6).
package pass

import (
	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/internal/clog"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/op"
	"github.com/corten-ml/corten/patch"

	"go.uber.org/zap"
)

// proposer asks an op for a rewrite patch; Declutter and Codegen share
// this shape, letting RunDeclutter and RunCodegen share one fixpoint
// driver (runFamily) and differ only in which hook they call.
type proposer func(impl op.Op, g *graph.Graph[fact.TypedFact], id graph.NodeID) (*patch.Patch[fact.TypedFact], error)

func declutterProposer(impl op.Op, g *graph.Graph[fact.TypedFact], id graph.NodeID) (*patch.Patch[fact.TypedFact], error) {
	return impl.Declutter(g, id)
}

func codegenProposer(impl op.Op, g *graph.Graph[fact.TypedFact], id graph.NodeID) (*patch.Patch[fact.TypedFact], error) {
	return impl.Codegen(g, id)
}

// watchdogFactor bounds the total number of patches a single RunDeclutter/
// RunCodegen call may apply, as a multiple of the graph's starting node
// count: enough headroom for any realistic chain of commute rewrites,
// while still acting as a backstop behind the transition-reversal guard
// for longer cycles (three or more rewrites chasing each other) that a
// single pairwise reversal check can't see. Tripping it does not fail the
// pass: runFamily stops applying rewrites for the rest of the call and
// returns the compacted graph as rewritten so far.
const watchdogFactor = 64

// RunDeclutter repeatedly applies every node's Declutter rewrite to a
// fixpoint, compacting dead (orphaned) nodes between rounds.
func RunDeclutter(g *graph.Graph[fact.TypedFact], logger *zap.SugaredLogger) (*graph.Graph[fact.TypedFact], error) {
	return runFamily(g, declutterProposer, "declutter", logger)
}

// RunCodegen repeatedly applies every node's Codegen rewrite to a
// fixpoint. Codegen proposals are terminal lowerings (e.g. onto the
// kernel package's packed microkernels) run once declutter has settled.
func RunCodegen(g *graph.Graph[fact.TypedFact], logger *zap.SugaredLogger) (*graph.Graph[fact.TypedFact], error) {
	return runFamily(g, codegenProposer, "codegen", logger)
}

func runFamily(g *graph.Graph[fact.TypedFact], propose proposer, passName string, logger *zap.SugaredLogger) (*graph.Graph[fact.TypedFact], error) {
	if logger == nil {
		logger = clog.Nop()
	}
	watchdog := watchdogFactor * (len(g.Nodes()) + 1)
	patches := 0
	// seenTransitions records every "fromOpName->toFingerprint" rewrite
	// applied so far across the whole call, not just the current round: a
	// later proposal to turn a node back into an op it was rewritten from
	// is recognized as undoing that earlier step and is skipped rather
	// than applied, which is what stops two mutually inverse rewrites from
	// alternating forever.
	seenTransitions := make(map[string]bool)

	model := g
	for {
		compacted, err := model.Compact()
		if err != nil {
			return nil, xerrors.AfterPass(passName, err)
		}
		model = compacted

		tried := make(map[graph.NodeID]bool)
		progressedThisRound := false
		for {
			applied, err := sweepOnce(model, propose, passName, tried, seenTransitions, logger)
			if err != nil {
				return nil, err
			}
			if !applied {
				break
			}
			progressedThisRound = true
			patches++
			if patches > watchdog {
				logger.Debugf("%s: watchdog stopped further rewrites after %d patches", passName, patches)
				return model.Compact()
			}
		}
		if !progressedThisRound {
			return model.Compact()
		}
	}
}

// sweepOnce walks the current eval order once and applies the first
// not-yet-tried node's proposed rewrite, if any, then returns: the graph
// just mutated, so any cached order/ids from before this call are stale.
// tried remembers every node id visited so far this round, live or dead,
// so an orphaned pre-rewrite node is never asked again; its replacement
// carries a fresh id and is free to be proposed against on a later sweep.
// A proposal that would exactly reverse an earlier transition recorded in
// seenTransitions is skipped rather than applied.
func sweepOnce(model *graph.Graph[fact.TypedFact], propose proposer, passName string, tried map[graph.NodeID]bool, seenTransitions map[string]bool, logger *zap.SugaredLogger) (bool, error) {
	order, err := model.EvalOrder()
	if err != nil {
		return false, xerrors.AfterPass(passName, err)
	}
	for _, id := range order {
		if tried[id] {
			continue
		}
		node := model.NodeByID(id)
		impl, ok := node.Op.(op.Op)
		if !ok {
			tried[id] = true
			continue
		}
		p, err := propose(impl, model, id)
		if err != nil {
			return false, xerrors.AfterPass(passName, err)
		}
		tried[id] = true
		if p == nil {
			continue
		}
		fromOp := node.Op.OpName()
		toFingerprint := p.Fingerprint()
		reverseKey := toFingerprint + "->" + fromOp
		if seenTransitions[reverseKey] {
			logger.Debugf("%s: skipping rewrite at node %q (%s->%s would undo an earlier rewrite)", passName, node.Name, fromOp, toFingerprint)
			continue
		}
		logger.Debugf("%s: applying rewrite at node %q", passName, node.Name)
		if err := p.Apply(model); err != nil {
			return false, xerrors.AfterPass(passName, err)
		}
		seenTransitions[fromOp+"->"+toFingerprint] = true
		return true, nil
	}
	return false, nil
}
