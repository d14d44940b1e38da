// Package infer implements the inference solver of spec.md §4.7: a
// constraint engine that propagates partial type/shape/value facts across
// a node's input and output outlets until a fixpoint, tolerating
// unresolved outlets rather than failing outright.
//
// Ops register Expr/Clause values referencing their own *fact.InferenceFact
// pointers (InferRules); Solve then iterates the combined clause list from
// every node until no clause makes further progress or the iteration cap
// is exceeded (ErrInferenceDiverged).
package infer

import (
	"reflect"

	"github.com/corten-ml/corten/fact"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tdim"
	"github.com/corten-ml/corten/tensor"
)

// Expr is a single scalar slot of an InferenceFact (its element type, its
// rank, one of its dims, or its constant value) that a Clause can read and
// refine in place.
type Expr interface {
	// Ground reports whether the slot currently holds a known value.
	Ground() bool
	// Get returns the current value; only valid when Ground() is true.
	Get() interface{}
	// Set attempts to refine the slot to v. If the slot is already ground
	// it instead checks v against the existing value, returning
	// ErrFactContradiction on mismatch. changed is true only when the
	// slot's knowledge state actually advanced.
	Set(v interface{}) (changed bool, err error)
}

// TypeExpr exposes an InferenceFact's element type.
type TypeExpr struct{ F *fact.InferenceFact }

func (e TypeExpr) Ground() bool     { return e.F.DT.Known }
func (e TypeExpr) Get() interface{} { return e.F.DT.DT }
func (e TypeExpr) Set(v interface{}) (bool, error) {
	dt, ok := v.(tensor.DatumType)
	if !ok {
		return false, xerrors.ErrFactContradiction
	}
	if e.F.DT.Known {
		if e.F.DT.DT != dt {
			return false, xerrors.ErrFactContradiction
		}
		return false, nil
	}
	e.F.DT = fact.SomeDT(dt)
	return true, nil
}

// RankExpr exposes an InferenceFact's rank (closed-shape length).
type RankExpr struct{ F *fact.InferenceFact }

func (e RankExpr) Ground() bool     { return !e.F.Shape.Open }
func (e RankExpr) Get() interface{} { return len(e.F.Shape.Dims) }
func (e RankExpr) Set(v interface{}) (bool, error) {
	n, ok := v.(int)
	if !ok {
		return false, xerrors.ErrFactContradiction
	}
	if !e.F.Shape.Open {
		if len(e.F.Shape.Dims) != n {
			return false, xerrors.ErrFactContradiction
		}
		return false, nil
	}
	e.F.Shape.Open = false
	e.F.Shape.Dims = make([]fact.OptDim, n)
	return true, nil
}

// DimExpr exposes one axis of an InferenceFact's shape. It is only usable
// once the shape's rank is closed and axis is in range; until then Ground
// reports false and Set is a harmless no-op, so clauses naturally wait on
// the RankExpr to resolve first.
type DimExpr struct {
	F    *fact.InferenceFact
	Axis int
}

func (e DimExpr) inRange() bool {
	return !e.F.Shape.Open && e.Axis >= 0 && e.Axis < len(e.F.Shape.Dims)
}

func (e DimExpr) Ground() bool {
	return e.inRange() && e.F.Shape.Dims[e.Axis].Known
}

func (e DimExpr) Get() interface{} { return e.F.Shape.Dims[e.Axis].Dim }

func (e DimExpr) Set(v interface{}) (bool, error) {
	if !e.inRange() {
		return false, nil
	}
	d, ok := v.(tdim.TDim)
	if !ok {
		return false, xerrors.ErrFactContradiction
	}
	cur := e.F.Shape.Dims[e.Axis]
	if cur.Known {
		if !cur.Dim.Equal(d) {
			return false, xerrors.ErrFactContradiction
		}
		return false, nil
	}
	e.F.Shape.Dims[e.Axis] = fact.SomeDim(d)
	return true, nil
}

// ValueExpr exposes an InferenceFact's constant value, compared with
// tensor.CloseEnough under the tight (RoundingOff) tolerance: inference-time
// constant unification is expected to be exact, not merely close.
type ValueExpr struct{ F *fact.InferenceFact }

func (e ValueExpr) Ground() bool     { return e.F.Value.Known }
func (e ValueExpr) Get() interface{} { return e.F.Value.Value }
func (e ValueExpr) Set(v interface{}) (bool, error) {
	t, ok := v.(*tensor.Tensor)
	if !ok {
		return false, xerrors.ErrFactContradiction
	}
	if e.F.Value.Known {
		eq, err := tensor.CloseEnough(e.F.Value.Value, t, tensor.RoundingOff)
		if err != nil || !eq {
			return false, xerrors.ErrFactContradiction
		}
		return false, nil
	}
	e.F.Value = fact.SomeValue(t)
	return true, nil
}

// ValuesEqual compares two ground Expr values the same way the Equals
// clause does; exported so callers can seed a clause with a constExpr-style
// wrapper around a known value without duplicating the comparison rule.
func ValuesEqual(a, b interface{}) bool { return exprEqual(a, b) }

// exprEqual compares two ground values for the Equals clause. Dim values
// compare via TDim.Equal; everything else via reflect.DeepEqual, which is
// correct for the comparable DatumType/int cases and safe (if conservative)
// for *Tensor, where Equals is only ever used alongside a ValueExpr's own
// Set-time CloseEnough check.
func exprEqual(a, b interface{}) bool {
	if da, ok := a.(tdim.TDim); ok {
		if db, ok := b.(tdim.TDim); ok {
			return da.Equal(db)
		}
	}
	return reflect.DeepEqual(a, b)
}
