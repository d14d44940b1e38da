// Package xerrors defines the closed set of error kinds used across corten
// and the context-chaining helpers that wrap them as they bubble through
// layers. Callers branch on kind with errors.Is/errors.As; formatted
// messages are never part of the contract.
package xerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel kinds, one per spec.md §7 entry. Each is a distinct value so
// errors.Is distinguishes them even when two kinds share a message shape.
var (
	// ErrShapeInference is returned when a shape/type rule produces a
	// contradiction while wiring a node.
	ErrShapeInference = errors.New("shape inference contradiction")
	// ErrFactContradiction is returned when Unify cannot reconcile two facts.
	ErrFactContradiction = errors.New("fact contradiction")
	// ErrArityMismatch is returned when output_facts.len() != op arity.
	ErrArityMismatch = errors.New("arity mismatch")
	// ErrDuplicateName is returned when a node name collides with an existing one.
	ErrDuplicateName = errors.New("duplicate node name")
	// ErrInletFilled is returned when an inlet already has a connection.
	ErrInletFilled = errors.New("inlet already filled")
	// ErrCyclicGraph is returned when eval_order cannot find a topological order.
	ErrCyclicGraph = errors.New("cyclic graph")
	// ErrUnsupportedCast is returned for forbidden DatumType cast pairs.
	ErrUnsupportedCast = errors.New("unsupported cast")
	// ErrDivByZero is returned by TDim division by the zero constant.
	ErrDivByZero = errors.New("division by zero")
	// ErrNonDivisible is returned when a TDim division would be non-linear.
	ErrNonDivisible = errors.New("non-linear division")
	// ErrUnimplementedOp marks a placeholder operator reached at eval time.
	ErrUnimplementedOp = errors.New("unimplemented op")
	// ErrOpEval is returned when an operator's Eval fails at runtime.
	ErrOpEval = errors.New("operator eval failure")
	// ErrStepFailure wraps ErrOpEval (or a state error) with planner context.
	ErrStepFailure = errors.New("plan step failure")
	// ErrUnsupportedPulse is returned when a graph cannot be pulsified.
	ErrUnsupportedPulse = errors.New("unsupported pulsification")
	// ErrInferenceDiverged is returned when the solver exceeds its iteration cap.
	ErrInferenceDiverged = errors.New("inference solver diverged")
	// ErrCancelled is returned when a run is aborted via its cancellation token.
	ErrCancelled = errors.New("run cancelled")
	// ErrDeadlineExceeded is returned when a run's deadline expires.
	ErrDeadlineExceeded = errors.New("deadline exceeded")
	// ErrIO wraps a low-level I/O failure reading/writing a model or archive.
	ErrIO = errors.New("io error")
	// ErrParse wraps a malformed wire-format payload.
	ErrParse = errors.New("parse error")
	// ErrUnsupportedTensorEncoding is returned for unrecognized archive tensor encodings.
	ErrUnsupportedTensorEncoding = errors.New("unsupported tensor encoding")
	// ErrAllocFailure is returned when the host cannot satisfy a tensor's alignment/size.
	ErrAllocFailure = errors.New("tensor allocation failure")
	// ErrShapeMismatch is returned when a byte buffer or operand shape doesn't match expectations.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrUnderspecifiedFact is returned when concretize() cannot produce a typed fact.
	ErrUnderspecifiedFact = errors.New("underspecified fact")
)

// MissingInput reports a planner step that could not find a value for a
// required input slot.
func MissingInput(name string) error {
	return fmt.Errorf("%w: missing input %q", ErrStepFailure, name)
}

// StepFailure wraps cause with planner step context, matching spec.md's
// StepFailure(step, node_name, cause).
func StepFailure(step int, nodeName string, cause error) error {
	return errors.WithStack(fmt.Errorf("%w: step %d, node %q: %w", ErrStepFailure, step, nodeName, cause))
}

// OpEval wraps a runtime operator failure with the operator's display name.
func OpEval(name string, cause error) error {
	return errors.WithStack(fmt.Errorf("%w: op %q: %w", ErrOpEval, name, cause))
}

// Wiring annotates an error with the node being wired, mirroring the
// "wiring <node_name> (<op_debug>)" chain link from spec.md §7.
func Wiring(nodeName, opDebug string, cause error) error {
	return errors.Wrapf(cause, "wiring %s (%s)", nodeName, opDebug)
}

// AfterPass annotates an error with the declutter/codegen pass that produced it.
func AfterPass(passName string, cause error) error {
	return errors.Wrapf(cause, "after declutter pass %s", passName)
}
