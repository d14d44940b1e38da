package fact

import (
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tdim"
)

// Concretize returns the TypedFact equivalent of f iff every field is
// known; fails with ErrUnderspecifiedFact otherwise (spec.md §4.3).
func (f *InferenceFact) Concretize() (TypedFact, error) {
	if !f.DT.Known {
		return TypedFact{}, xerrors.ErrUnderspecifiedFact
	}
	rank, closed := f.Shape.Rank()
	if !closed {
		return TypedFact{}, xerrors.ErrUnderspecifiedFact
	}
	shape := make([]tdim.TDim, rank)
	for i, d := range f.Shape.Dims {
		if !d.Known {
			return TypedFact{}, xerrors.ErrUnderspecifiedFact
		}
		shape[i] = d.Dim
	}
	return TypedFact{DT: f.DT.DT, Shape: shape, Value: f.Value}, nil
}

// IsFullyKnown reports whether Concretize would succeed, without building
// the TypedFact.
func (f *InferenceFact) IsFullyKnown() bool {
	if !f.DT.Known {
		return false
	}
	_, closed := f.Shape.Rank()
	if !closed {
		return false
	}
	for _, d := range f.Shape.Dims {
		if !d.Known {
			return false
		}
	}
	return true
}
