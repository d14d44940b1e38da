package fact

import (
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tdim"
	"github.com/corten-ml/corten/tensor"
)

// UnifyInference returns the meet of a and b: the most informative
// InferenceFact consistent with both. Fails with ErrFactContradiction if
// any field disagrees on a known value.
func UnifyInference(a, b *InferenceFact) (*InferenceFact, error) {
	out := &InferenceFact{}

	dt, err := unifyDT(a.DT, b.DT)
	if err != nil {
		return nil, err
	}
	out.DT = dt

	shape, err := unifyShape(a.Shape, b.Shape)
	if err != nil {
		return nil, err
	}
	out.Shape = shape

	val, err := unifyValue(a.Value, b.Value)
	if err != nil {
		return nil, err
	}
	out.Value = val

	return out, nil
}

func unifyDT(a, b OptDatumType) (OptDatumType, error) {
	if !a.Known {
		return b, nil
	}
	if !b.Known {
		return a, nil
	}
	if a.DT != b.DT {
		return OptDatumType{}, xerrors.ErrFactContradiction
	}
	return a, nil
}

func unifyDim(a, b OptDim) (OptDim, error) {
	if !a.Known {
		return b, nil
	}
	if !b.Known {
		return a, nil
	}
	if !a.Dim.Equal(b.Dim) {
		return OptDim{}, xerrors.ErrFactContradiction
	}
	return a, nil
}

func unifyShape(a, b ShapeFact) (ShapeFact, error) {
	switch {
	case a.Open && b.Open:
		// Both open: merge the overlapping known prefix, keep open.
		n := len(a.Dims)
		if len(b.Dims) < n {
			n = len(b.Dims)
		}
		out := ShapeFact{Open: true, Dims: make([]OptDim, n)}
		for i := 0; i < n; i++ {
			d, err := unifyDim(a.Dims[i], b.Dims[i])
			if err != nil {
				return ShapeFact{}, err
			}
			out.Dims[i] = d
		}
		return out, nil
	case a.Open && !b.Open:
		return unifyOpenClosed(a, b)
	case !a.Open && b.Open:
		return unifyOpenClosed(b, a)
	default:
		if len(a.Dims) != len(b.Dims) {
			return ShapeFact{}, xerrors.ErrFactContradiction
		}
		out := ShapeFact{Dims: make([]OptDim, len(a.Dims))}
		for i := range a.Dims {
			d, err := unifyDim(a.Dims[i], b.Dims[i])
			if err != nil {
				return ShapeFact{}, err
			}
			out.Dims[i] = d
		}
		return out, nil
	}
}

// unifyOpenClosed unifies an open shape (fewer known-rank dims, possibly
// more beyond) with a closed one: the closed shape wins the rank, and its
// prefix must be consistent with the open shape's known dims.
func unifyOpenClosed(open, closed ShapeFact) (ShapeFact, error) {
	if len(open.Dims) > len(closed.Dims) {
		return ShapeFact{}, xerrors.ErrFactContradiction
	}
	out := ShapeFact{Dims: make([]OptDim, len(closed.Dims))}
	for i := range closed.Dims {
		if i < len(open.Dims) {
			d, err := unifyDim(open.Dims[i], closed.Dims[i])
			if err != nil {
				return ShapeFact{}, err
			}
			out.Dims[i] = d
		} else {
			out.Dims[i] = closed.Dims[i]
		}
	}
	return out, nil
}

func unifyValue(a, b OptValue) (OptValue, error) {
	if !a.Known {
		return b, nil
	}
	if !b.Known {
		return a, nil
	}
	// Two distinct known constant tensors at the same outlet is a modeling
	// error upstream; corten treats it as a contradiction rather than
	// silently picking one (see spec.md §9's "prefer error" resolution of
	// the conflicting-fact Open Question).
	eq, err := tensor.CloseEnough(a.Value, b.Value, tensor.RoundingOff)
	if err != nil {
		return OptValue{}, err
	}
	if !eq {
		return OptValue{}, xerrors.ErrFactContradiction
	}
	return a, nil
}

// UnifyTyped returns the meet of two TypedFacts. Since every field is
// already fully known at this flavor, unification degenerates to an
// equality check; a mismatch is a contradiction, not a refinement.
func UnifyTyped(a, b TypedFact) (TypedFact, error) {
	if a.DT != b.DT {
		return TypedFact{}, xerrors.ErrFactContradiction
	}
	if len(a.Shape) != len(b.Shape) {
		return TypedFact{}, xerrors.ErrFactContradiction
	}
	shape := make([]tdim.TDim, len(a.Shape))
	for i := range a.Shape {
		if !a.Shape[i].Equal(b.Shape[i]) {
			return TypedFact{}, xerrors.ErrFactContradiction
		}
		shape[i] = a.Shape[i]
	}
	val, err := unifyValue(a.Value, b.Value)
	if err != nil {
		return TypedFact{}, err
	}
	return TypedFact{DT: a.DT, Shape: shape, Value: val}, nil
}
