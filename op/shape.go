package op

import (
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tdim"
)

// broadcastShapes computes the numpy-style broadcast of two symbolic
// shapes: shorter shapes are padded on the left with constant-1 axes, then
// each axis must either match exactly or have one side equal to the
// constant 1.
func broadcastShapes(a, b []tdim.TDim) ([]tdim.TDim, error) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]tdim.TDim, n)
	for i := 0; i < n; i++ {
		da, oka := axisFromRight(a, i, n)
		db, okb := axisFromRight(b, i, n)
		switch {
		case !oka:
			out[n-1-i] = db
		case !okb:
			out[n-1-i] = da
		case da.Equal(db):
			out[n-1-i] = da
		case isOne(da):
			out[n-1-i] = db
		case isOne(db):
			out[n-1-i] = da
		default:
			return nil, xerrors.ErrShapeInference
		}
	}
	return out, nil
}

func axisFromRight(shape []tdim.TDim, i, n int) (tdim.TDim, bool) {
	pad := n - len(shape)
	idx := n - 1 - i - pad
	if idx < 0 || idx >= len(shape) {
		return tdim.TDim{}, false
	}
	return shape[idx], true
}

func isOne(d tdim.TDim) bool {
	c, ok := d.AsConst()
	return ok && c == 1
}

// broadcastIntShapes is broadcastShapes specialized to concrete ints, used
// by Eval once every dim is resolved to a runtime value.
func broadcastIntShapes(a, b []int) ([]int, error) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		da, oka := intAxisFromRight(a, i, n)
		db, okb := intAxisFromRight(b, i, n)
		switch {
		case !oka:
			out[n-1-i] = db
		case !okb:
			out[n-1-i] = da
		case da == db:
			out[n-1-i] = da
		case da == 1:
			out[n-1-i] = db
		case db == 1:
			out[n-1-i] = da
		default:
			return nil, xerrors.ErrShapeMismatch
		}
	}
	return out, nil
}

func intAxisFromRight(shape []int, i, n int) (int, bool) {
	pad := n - len(shape)
	idx := n - 1 - i - pad
	if idx < 0 || idx >= len(shape) {
		return 0, false
	}
	return shape[idx], true
}

// strides returns row-major strides for shape.
func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

// broadcastOffset maps a flat index into the output shape to the source
// flat index in srcShape (which broadcasts into outShape from the right,
// numpy-style): axes srcShape lacks, or holds as size 1, contribute 0 to
// the offset.
func broadcastOffset(flat int, outShape, srcShape []int, srcStrides []int) int {
	pad := len(outShape) - len(srcShape)
	off := 0
	rem := flat
	for axis := 0; axis < len(outShape); axis++ {
		dim := outShape[axis]
		coord := 0
		if dim > 0 {
			// decompose rem using outShape's strides, computed on the fly
			// to avoid a second allocation for the common small-rank case.
			stride := 1
			for k := axis + 1; k < len(outShape); k++ {
				stride *= outShape[k]
			}
			coord = (rem / stride) % dim
		}
		srcAxis := axis - pad
		if srcAxis < 0 {
			continue
		}
		if srcShape[srcAxis] == 1 {
			continue
		}
		off += coord * srcStrides[srcAxis]
	}
	return off
}
