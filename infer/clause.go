package infer

import (
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tdim"
)

// Clause is one constraint the solver attempts to discharge each pass.
type Clause interface {
	// Ready reports whether the clause has enough ground inputs to attempt
	// Apply right now.
	Ready() bool
	// Apply performs whatever propagation it can. done signals the clause
	// has no further work ever (it can be dropped); newClauses are
	// additional clauses to fold into the solver's pending set, used by
	// Given to register follow-up constraints once its expr grounds.
	Apply() (changed, done bool, newClauses []Clause, err error)
}

// equalsClause unifies a set of Expr: once any one of them is ground, every
// other is set to that value; if two are ground and disagree, it fails.
type equalsClause struct{ exprs []Expr }

// Equals returns a clause asserting every expr denotes the same value.
func Equals(exprs ...Expr) Clause { return &equalsClause{exprs: exprs} }

func (c *equalsClause) Ready() bool { return true }

func (c *equalsClause) Apply() (bool, bool, []Clause, error) {
	var ground interface{}
	have := false
	for _, e := range c.exprs {
		if !e.Ground() {
			continue
		}
		v := e.Get()
		if !have {
			ground, have = v, true
			continue
		}
		if !exprEqual(ground, v) {
			return false, false, nil, xerrors.ErrFactContradiction
		}
	}
	if !have {
		return false, false, nil, nil
	}
	changed := false
	allGround := true
	for _, e := range c.exprs {
		if e.Ground() {
			continue
		}
		ch, err := e.Set(ground)
		if err != nil {
			return false, false, nil, err
		}
		changed = changed || ch
		if !e.Ground() {
			allGround = false
		}
	}
	return changed, allGround, nil, nil
}

// LinearTerm is one coeff*DimExpr summand of an EqualsZero constraint.
type LinearTerm struct {
	Coeff int64
	Dim   DimExpr
}

// linearEqualsZero asserts sum(coeff_i * dim_i) + const == 0, solving for
// the single unknown term once every other term is ground (spec.md §4.7's
// equals_zero affine constraint over symbolic dims).
type linearEqualsZero struct {
	terms []LinearTerm
	const_ int64
}

// EqualsZero returns an affine constraint over symbolic dims.
func EqualsZero(constTerm int64, terms ...LinearTerm) Clause {
	return &linearEqualsZero{terms: terms, const_: constTerm}
}

func (c *linearEqualsZero) missing() int {
	n := 0
	for _, t := range c.terms {
		if !t.Dim.Ground() {
			n++
		}
	}
	return n
}

func (c *linearEqualsZero) Ready() bool { return c.missing() <= 1 }

func (c *linearEqualsZero) Apply() (bool, bool, []Clause, error) {
	missingIdx := -1
	sum := tdim.FromInt(c.const_)
	for i, t := range c.terms {
		if !t.Dim.Ground() {
			missingIdx = i
			continue
		}
		sum = sum.Add(t.Dim.Get().(tdim.TDim).MulConst(t.Coeff))
	}
	if missingIdx < 0 {
		if n, ok := sum.AsConst(); !ok || n != 0 {
			return false, false, nil, xerrors.ErrFactContradiction
		}
		return false, true, nil, nil
	}
	coeff := c.terms[missingIdx].Coeff
	solved, err := sum.Neg().Div(coeff)
	if err != nil {
		return false, false, nil, err
	}
	changed, err := c.terms[missingIdx].Dim.Set(solved)
	if err != nil {
		return false, false, nil, err
	}
	return changed, c.terms[missingIdx].Dim.Ground(), nil, nil
}

// givenClause invokes continuation once expr becomes ground, folding in
// whatever follow-up clauses it returns (spec.md §4.7's given(expr, cont)).
type givenClause struct {
	expr Expr
	cont func(v interface{}) ([]Clause, error)
}

// Given returns a clause that fires continuation exactly once, as soon as
// expr is ground.
func Given(expr Expr, continuation func(v interface{}) ([]Clause, error)) Clause {
	return &givenClause{expr: expr, cont: continuation}
}

func (c *givenClause) Ready() bool { return c.expr.Ground() }

func (c *givenClause) Apply() (bool, bool, []Clause, error) {
	next, err := c.cont(c.expr.Get())
	if err != nil {
		return false, true, nil, err
	}
	return true, true, next, nil
}
