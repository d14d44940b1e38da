package tensor

import (
	"math"

	"github.com/corten-ml/corten/internal/xerrors"
)

// Rounding selects the tolerance class used by CloseEnough, per the op
// validation policy of spec.md §4.5 (Exact ops demand bit-for-bit
// equality, Rounding ops allow the tolerances below).
type Rounding int

const (
	// RoundingOff uses the tight tolerance (ε=1e-4), for ops whose rounding
	// is expected to be negligible (pure elementwise arithmetic).
	RoundingOff Rounding = iota
	// RoundingOn uses the loose tolerance (ε=1e-2), for ops that legitimately
	// accumulate rounding error (reductions, matmul, convolution).
	RoundingOn
)

// toleranceOff/toleranceOn back RoundingOff/RoundingOn; package corten's
// Config.WithRoundingTolerance overrides them via SetTolerances so a host
// process can loosen or tighten validation without touching every
// CloseEnough call site.
var (
	toleranceOff = 1e-4
	toleranceOn  = 1e-2
)

// SetTolerances overrides the epsilon used by RoundingOff/RoundingOn.
func SetTolerances(off, on float64) {
	toleranceOff, toleranceOn = off, on
}

func epsilon(r Rounding) float64 {
	if r == RoundingOn {
		return toleranceOn
	}
	return toleranceOff
}

// CloseEnough compares a and b element-wise: for float types,
// |a−b| ≤ ε·max(1, |a|); for every other type, exact equality. Fails with
// ErrShapeMismatch if shapes differ.
func CloseEnough(a, b *Tensor, rounding Rounding) (bool, error) {
	if len(a.shape) != len(b.shape) {
		return false, xerrors.ErrShapeMismatch
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false, xerrors.ErrShapeMismatch
		}
	}
	if a.dt != b.dt {
		return false, xerrors.ErrShapeMismatch
	}
	eps := epsilon(rounding)
	n := a.Len()
	for i := 0; i < n; i++ {
		va, err := a.getNative(i)
		if err != nil {
			return false, err
		}
		vb, err := b.getNative(i)
		if err != nil {
			return false, err
		}
		if a.dt.IsFloat() {
			fa, fb := va.(float64), vb.(float64)
			if math.IsNaN(fa) || math.IsNaN(fb) {
				if math.IsNaN(fa) != math.IsNaN(fb) {
					return false, nil
				}
				continue
			}
			tol := eps * math.Max(1, math.Abs(fa))
			if math.Abs(fa-fb) > tol {
				return false, nil
			}
			continue
		}
		if va != vb {
			return false, nil
		}
	}
	return true, nil
}
