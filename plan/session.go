package plan

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/corten-ml/corten/graph"
	"github.com/corten-ml/corten/internal/clog"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/op"
	"github.com/corten-ml/corten/tensor"
)

// Session is one re-runnable execution of a Plan. Stateful ops (Delay and
// friends) carry their own state directly in the op.Op instance stored on
// the graph's node, so a Session's only per-run bookkeeping is the
// node-id -> output-tensors working set; calling Reset clears every
// stateful op's carried state between independent logical streams
// (spec.md §4.9's "a session may be reset without rebuilding the plan").
type Session struct {
	// ID is a process-local identifier used for cross-cutting debug-log
	// correlation across a session's repeated Run calls; it plays no part
	// in graph identity (node ids stay dense integers, spec.md §3.4).
	ID     string
	plan   *Plan
	values map[graph.NodeID][]*tensor.Tensor
	logger *zap.SugaredLogger
}

// NewSession builds a Session over plan. A nil logger defaults to a no-op
// sink.
func NewSession(p *Plan, logger *zap.SugaredLogger) *Session {
	if logger == nil {
		logger = clog.Nop()
	}
	return &Session{ID: uuid.New().String(), plan: p, values: make(map[graph.NodeID][]*tensor.Tensor), logger: logger}
}

// Reset clears every stateful operator's carried state (e.g. a Delay
// node's ring buffer), readying the Session for a fresh, unrelated
// stream. It does not need to touch s.values: Run always starts a fresh
// working set.
func (s *Session) Reset() {
	for _, n := range s.plan.Graph.Nodes() {
		if impl, ok := n.Op.(op.Op); ok && impl.IsStateful() {
			impl.Reset()
		}
	}
}

// Run evaluates the plan's graph over inputs, assigned in order to the
// graph's declared input outlets, and returns the tensors at its declared
// output outlets. ctx is checked once per step: a cancelled or
// deadline-exceeded context aborts the run with ErrCancelled /
// ErrDeadlineExceeded rather than partway-through corrupt output.
func (s *Session) Run(ctx context.Context, inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	g := s.plan.Graph
	ins := g.InputOutlets()
	if len(inputs) != len(ins) {
		return nil, xerrors.ErrArityMismatch
	}
	for k := range s.values {
		delete(s.values, k)
	}
	for i, o := range ins {
		s.values[o.Node] = []*tensor.Tensor{inputs[i]}
	}

	for step, id := range s.plan.Order {
		if err := ctx.Err(); err != nil {
			return nil, mapCtxErr(err)
		}
		n := g.NodeByID(id)
		if graph.IsSource(n.Op) {
			continue
		}
		in := make([]*tensor.Tensor, len(n.Inputs))
		for i, o := range n.Inputs {
			prec, ok := s.values[o.Node]
			if !ok || o.Slot >= len(prec) {
				return nil, xerrors.StepFailure(step, n.Name, xerrors.MissingInput(n.Name))
			}
			in[i] = prec[o.Slot]
		}
		impl, ok := n.Op.(op.Op)
		if !ok {
			return nil, xerrors.StepFailure(step, n.Name, xerrors.ErrUnimplementedOp)
		}
		s.logger.Debugf("session %s step %d: evaluating %s", s.ID, step, n.Name)
		out, err := impl.Eval(in)
		if err != nil {
			return nil, xerrors.StepFailure(step, n.Name, xerrors.OpEval(n.Op.OpName(), err))
		}
		s.values[id] = out

		for _, flush := range s.plan.FlushLists[step] {
			s.logger.Debugf("step %d: flushing %s", step, g.NodeByID(flush).Name)
			delete(s.values, flush)
		}
	}

	outs := g.OutputOutlets()
	result := make([]*tensor.Tensor, len(outs))
	for i, o := range outs {
		vs, ok := s.values[o.Node]
		if !ok || o.Slot >= len(vs) {
			return nil, xerrors.ErrShapeMismatch
		}
		result[i] = vs[o.Slot]
	}
	return result, nil
}

func mapCtxErr(err error) error {
	if err == context.DeadlineExceeded {
		return xerrors.ErrDeadlineExceeded
	}
	return xerrors.ErrCancelled
}
