// Package tdim implements the symbolic dimension (spec.md §3.2/§4.2): an
// affine expression a*S + b over the single streaming symbol S, with
// arithmetic, comparison, and evaluation.
package tdim

import (
	"fmt"

	"github.com/corten-ml/corten/internal/xerrors"
)

// TDim represents a*S + b where S is the streaming symbol.
type TDim struct {
	a, b int64
}

// S is the streaming symbol, i.e. 1*S + 0.
var S = TDim{a: 1, b: 0}

// FromInt returns the constant dimension n (0*S + n).
func FromInt(n int64) TDim { return TDim{a: 0, b: n} }

// Coefficients returns (a, b) such that the dim equals a*S + b.
func (d TDim) Coefficients() (int64, int64) { return d.a, d.b }

// AsConst returns (n, true) iff the coefficient of S is zero.
func (d TDim) AsConst() (int64, bool) {
	if d.a == 0 {
		return d.b, true
	}
	return 0, false
}

// IsConst reports whether the dim has no dependency on S.
func (d TDim) IsConst() bool { return d.a == 0 }

// Add returns d + other.
func (d TDim) Add(other TDim) TDim {
	return TDim{a: d.a + other.a, b: d.b + other.b}
}

// Sub returns d - other.
func (d TDim) Sub(other TDim) TDim {
	return TDim{a: d.a - other.a, b: d.b - other.b}
}

// Neg returns -d.
func (d TDim) Neg() TDim {
	return TDim{a: -d.a, b: -d.b}
}

// MulConst returns d * n, a plain integer scalar (symbolic dims cannot be
// multiplied by one another and stay affine, so only scalar multiplication
// is exposed).
func (d TDim) MulConst(n int64) TDim {
	return TDim{a: d.a * n, b: d.b * n}
}

// Div performs explicit integer division by the integer divisor n: fails
// with ErrDivByZero if n==0, and with ErrNonDivisible if the coefficient
// of S does not divide evenly by n (spec.md §4.2: the quotient would be
// non-linear). For a pure constant (a==0) there is no symbolic
// term to stay linear, so b is divided by n with ordinary floor-division
// integer semantics regardless of remainder. For a genuinely symbolic dim
// (a!=0) the constant term must also divide evenly, since otherwise the
// result would not itself be an exact affine expression.
func (d TDim) Div(n int64) (TDim, error) {
	if n == 0 {
		return TDim{}, xerrors.ErrDivByZero
	}
	if d.a%n != 0 {
		return TDim{}, xerrors.ErrNonDivisible
	}
	if d.a == 0 {
		return TDim{a: 0, b: floorDiv(d.b, n)}, nil
	}
	if d.b%n != 0 {
		return TDim{}, xerrors.ErrNonDivisible
	}
	return TDim{a: d.a / n, b: d.b / n}, nil
}

// DivCeil performs ceiling division by the positive integer n,
// ceil((a*S+b)/n), computed by rewriting as Div of (a*S+b+n-1): this is
// the standard dimension-shrinking rule used by Downsample/Slice rewrites
// (spec.md §4.13). For a pure constant dim it never fails on a remainder;
// for a symbolic dim it succeeds only when both a and b+n-1 divide evenly
// by n, and fails with ErrNonDivisible otherwise (see Div).
func (d TDim) DivCeil(n int64) (TDim, error) {
	if n == 0 {
		return TDim{}, xerrors.ErrDivByZero
	}
	shifted := TDim{a: d.a, b: d.b + n - 1}
	return shifted.Div(n)
}

// floorDiv returns floor(a/n), unlike Go's "/" which truncates toward zero.
func floorDiv(a, n int64) int64 {
	q := a / n
	if a%n != 0 && (a < 0) != (n < 0) {
		q--
	}
	return q
}

// Evaluate substitutes sValue for S.
func (d TDim) Evaluate(sValue int64) int64 {
	return d.a*sValue + d.b
}

// Equal reports polynomial equality: a1==a2 && b1==b2.
func (d TDim) Equal(other TDim) bool {
	return d.a == other.a && d.b == other.b
}

// Cmp is the partial ordering from spec.md §4.2: when both dims are
// constant, behaves like a normal comparison. When S's sign cannot be
// assumed non-negative and the coefficients differ, the ordering is
// undefined and ok is false — corten treats S as ranging over the
// non-negative integers (it indexes a stream position), so a==0 with
// b-comparison is still decidable even when a coefficient is present, as
// long as both sides share the same coefficient of S (the S terms cancel).
func (d TDim) Cmp(other TDim) (cmp int, ok bool) {
	if d.a != other.a {
		return 0, false
	}
	switch {
	case d.b < other.b:
		return -1, true
	case d.b > other.b:
		return 1, true
	default:
		return 0, true
	}
}

// String renders the dim as e.g. "S", "3", "2*S+1", "-1*S+4".
func (d TDim) String() string {
	switch {
	case d.a == 0:
		return fmt.Sprintf("%d", d.b)
	case d.a == 1 && d.b == 0:
		return "S"
	case d.b == 0:
		return fmt.Sprintf("%d*S", d.a)
	case d.b > 0:
		return fmt.Sprintf("%d*S+%d", d.a, d.b)
	default:
		return fmt.Sprintf("%d*S%d", d.a, d.b)
	}
}
