package op

import (
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tensor"
)

// concatAlongAxis joins a and b along axis; every other axis must match
// exactly and both tensors must share an element type.
func concatAlongAxis(a, b *tensor.Tensor, axis int) (*tensor.Tensor, error) {
	if a.DatumType() != b.DatumType() {
		return nil, xerrors.ErrShapeMismatch
	}
	as, bs := a.Shape(), b.Shape()
	if len(as) != len(bs) || axis < 0 || axis >= len(as) {
		return nil, xerrors.ErrShapeMismatch
	}
	for i := range as {
		if i != axis && as[i] != bs[i] {
			return nil, xerrors.ErrShapeMismatch
		}
	}
	outShape := append([]int(nil), as...)
	outShape[axis] = as[axis] + bs[axis]
	out, err := tensor.Zero(a.DatumType(), outShape)
	if err != nil {
		return nil, err
	}
	return fillConcat(out, a, b, axis)
}

// fillConcat copies a then b into out along axis, element by element: the
// two source regions live in different tensors so this can't reuse
// selectAlongAxis's single-source index mapping.
func fillConcat(out, a, b *tensor.Tensor, axis int) (*tensor.Tensor, error) {
	outShape := out.Shape()
	outStrides := strides(outShape)
	aStrides := strides(a.Shape())
	bStrides := strides(b.Shape())
	aLen := a.Shape()[axis]
	n := out.Len()
	coords := make([]int, len(outShape))
	for flat := 0; flat < n; flat++ {
		rem := flat
		for i, st := range outStrides {
			coords[i] = rem / st
			rem %= st
		}
		c := coords[axis]
		var v interface{}
		var err error
		if c < aLen {
			srcFlat := 0
			for i, co := range coords {
				srcFlat += co * aStrides[i]
			}
			v, err = a.At(srcFlat)
		} else {
			srcCoords := append([]int(nil), coords...)
			srcCoords[axis] = c - aLen
			srcFlat := 0
			for i, co := range srcCoords {
				srcFlat += co * bStrides[i]
			}
			v, err = b.At(srcFlat)
		}
		if err != nil {
			return nil, err
		}
		if err := out.SetAt(flat, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}
