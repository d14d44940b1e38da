package tensor

import (
	"fmt"

	"github.com/corten-ml/corten/internal/xerrors"
)

// defaultAlignment is used when callers don't care; it's wide enough to
// satisfy every matmul microkernel's packed-buffer alignment requirement
// (kernel.Backend.Alignment never exceeds it in the built-in backends).
const defaultAlignment = 64

// Tensor is a typed, contiguous n-dimensional buffer (spec.md §3.1).
// Tensors are logically owned by exactly one holder until shared: once a
// caller hands a *Tensor to more than one consumer (e.g. session values
// fed to two nodes, or constants threaded through declutter), it becomes
// immutable by convention — corten never mutates a Tensor it did not just
// allocate itself.
type Tensor struct {
	dt        DatumType
	shape     []int
	buf       []byte   // valid for fixed-width types
	strs      []string // valid only when dt == String
	alignment int
}

// DatumType returns the tensor's element type.
func (t *Tensor) DatumType() DatumType { return t.dt }

// Shape returns the tensor's shape. The returned slice must not be mutated.
func (t *Tensor) Shape() []int { return t.shape }

// Rank returns len(Shape()).
func (t *Tensor) Rank() int { return len(t.shape) }

// Len returns the element count, product(shape).
func (t *Tensor) Len() int { return product(t.shape) }

// Alignment returns the alignment recorded for the tensor at allocation.
func (t *Tensor) Alignment() int { return t.alignment }

// Bytes exposes the raw backing buffer for fixed-width types. Callers must
// not write through it once the tensor has more than one consumer.
func (t *Tensor) Bytes() []byte { return t.buf }

// Strings exposes the backing string slice for DatumType==String.
func (t *Tensor) Strings() []string { return t.strs }

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func bufLen(dt DatumType, shape []int) (int, error) {
	if !dt.IsFixedWidth() {
		return 0, nil
	}
	n := product(shape)
	sz := dt.Size()
	if sz == 0 {
		return 0, xerrors.ErrAllocFailure
	}
	return n * sz, nil
}

// Allocate returns an uninitialized (zero-valued, for determinism) Tensor
// of the given type and shape, recording align as its alignment (0 selects
// the package default). The backing buffer is an ordinary Go byte slice;
// its address is not forced onto an align-byte boundary. Fails with
// ErrAllocFailure if align is smaller than the element size.
func Allocate(dt DatumType, shape []int, align int) (*Tensor, error) {
	if align == 0 {
		align = defaultAlignment
	}
	if dt.IsFixedWidth() && align < dt.Size() {
		return nil, xerrors.ErrAllocFailure
	}
	t := &Tensor{dt: dt, shape: append([]int(nil), shape...), alignment: align}
	if dt == String {
		t.strs = make([]string, product(shape))
		return t, nil
	}
	n, err := bufLen(dt, shape)
	if err != nil {
		return nil, err
	}
	t.buf = make([]byte, n)
	return t, nil
}

// Zero is an alias for Allocate: Go slices are zero-initialized, so an
// uninitialized allocation is already a zeroed one.
func Zero(dt DatumType, shape []int) (*Tensor, error) {
	return Allocate(dt, shape, 0)
}

// Fill allocates a tensor and sets every element to v (reinterpreted via
// the element type's natural Go representation: float64 for float types,
// int64 for integer types, bool for Bool).
func Fill(dt DatumType, shape []int, v interface{}) (*Tensor, error) {
	t, err := Allocate(dt, shape, 0)
	if err != nil {
		return nil, err
	}
	n := t.Len()
	for i := 0; i < n; i++ {
		if err := t.setNative(i, v); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// FromRawBytes builds a Tensor from an exact-length byte buffer; fails with
// ErrShapeMismatch if len(data) does not equal product(shape)*dt.Size().
func FromRawBytes(dt DatumType, shape []int, data []byte) (*Tensor, error) {
	if dt == String {
		return nil, xerrors.ErrUnsupportedCast
	}
	want, err := bufLen(dt, shape)
	if err != nil {
		return nil, err
	}
	if len(data) != want {
		return nil, xerrors.ErrShapeMismatch
	}
	buf := append([]byte(nil), data...)
	return &Tensor{dt: dt, shape: append([]int(nil), shape...), buf: buf, alignment: defaultAlignment}, nil
}

// Reshape returns a new Tensor header over the same backing buffer (no
// copy) with a different shape of equal element count. Fails with
// ErrShapeMismatch if the element counts differ.
func (t *Tensor) Reshape(shape []int) (*Tensor, error) {
	if product(shape) != t.Len() {
		return nil, xerrors.ErrShapeMismatch
	}
	return &Tensor{
		dt:        t.dt,
		shape:     append([]int(nil), shape...),
		buf:       t.buf,
		strs:      t.strs,
		alignment: t.alignment,
	}, nil
}

// BroadcastIntoRank prepends size-1 axes until the tensor reaches rank r.
// No copy: stride-0 axes are represented purely in the shape header since
// corten's dense Tensor has no strides; callers that need an actual
// memory-broadcast materialize one explicitly via Fill+copy at eval time.
// Fails with ErrShapeMismatch if r < t.Rank().
func (t *Tensor) BroadcastIntoRank(r int) (*Tensor, error) {
	if r < t.Rank() {
		return nil, xerrors.ErrShapeMismatch
	}
	if r == t.Rank() {
		return t, nil
	}
	shape := make([]int, r)
	pad := r - t.Rank()
	for i := 0; i < pad; i++ {
		shape[i] = 1
	}
	copy(shape[pad:], t.shape)
	return t.Reshape(shape)
}

// String returns a short debug description, e.g. "3x224x224xf32".
func (t *Tensor) String() string {
	s := ""
	for _, d := range t.shape {
		s += fmt.Sprintf("%dx", d)
	}
	return s + t.dt.String()
}
