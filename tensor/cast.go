package tensor

import (
	"math"

	"github.com/corten-ml/corten/internal/xerrors"
)

// integer range bounds for saturating narrowing casts, indexed by DatumType.
func intRange(dt DatumType) (lo, hi int64, unsigned bool) {
	switch dt {
	case U8:
		return 0, math.MaxUint8, true
	case U16:
		return 0, math.MaxUint16, true
	case U32:
		return 0, math.MaxUint32, true
	case U64:
		return 0, math.MaxInt64, true // corten represents u64 natively as int64; values above MaxInt64 are out of our native range
	case I8:
		return math.MinInt8, math.MaxInt8, false
	case I16:
		return math.MinInt16, math.MaxInt16, false
	case I32:
		return math.MinInt32, math.MaxInt32, false
	case I64, TDim:
		return math.MinInt64, math.MaxInt64, false
	default:
		return 0, 0, false
	}
}

func saturate(n int64, target DatumType) int64 {
	lo, hi, _ := intRange(target)
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// Cast returns a new Tensor with every element converted from t.DatumType()
// to target, per spec.md §4.1: numeric widening/narrowing follows signed
// saturation on integer overflow and round-to-nearest-even on float→int;
// forbidden pairs (anything↔string, tdim↔float) fail with ErrUnsupportedCast.
func Cast(t *Tensor, target DatumType) (*Tensor, error) {
	if target == t.dt {
		return t.clone(), nil
	}
	if t.dt == String || target == String {
		return nil, xerrors.ErrUnsupportedCast
	}
	if (t.dt == TDim && target.IsFloat()) || (t.dt.IsFloat() && target == TDim) {
		return nil, xerrors.ErrUnsupportedCast
	}

	out, err := Allocate(target, t.shape, 0)
	if err != nil {
		return nil, err
	}
	n := t.Len()
	for i := 0; i < n; i++ {
		v, err := t.getNative(i)
		if err != nil {
			return nil, err
		}
		conv, err := convertNative(v, t.dt, target)
		if err != nil {
			return nil, err
		}
		if err := out.setNative(i, conv); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func convertNative(v interface{}, from, to DatumType) (interface{}, error) {
	switch from.IsFloat() {
	case true:
		f := v.(float64)
		if to.IsFloat() {
			return f, nil
		}
		if to == Bool {
			return f != 0, nil
		}
		// float -> int: round to nearest, ties to even, then saturate.
		r := math.RoundToEven(f)
		if math.IsNaN(r) {
			r = 0
		}
		return saturate(int64(r), to), nil
	default:
		switch from {
		case Bool:
			b := v.(bool)
			if to.IsFloat() {
				if b {
					return 1.0, nil
				}
				return 0.0, nil
			}
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		default: // integer or TDim family, represented as int64
			n := v.(int64)
			if to.IsFloat() {
				return float64(n), nil
			}
			if to == Bool {
				return n != 0, nil
			}
			return saturate(n, to), nil
		}
	}
}

// clone returns a deep copy of t (used when Cast is a no-op, and behind
// Clone).
func (t *Tensor) clone() *Tensor {
	c := &Tensor{dt: t.dt, shape: append([]int(nil), t.shape...), alignment: t.alignment}
	if t.dt == String {
		c.strs = append([]string(nil), t.strs...)
	} else {
		c.buf = append([]byte(nil), t.buf...)
	}
	return c
}

// Clone returns a deep, independently-mutable copy of t.
func (t *Tensor) Clone() *Tensor { return t.clone() }
