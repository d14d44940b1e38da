package tensor

import (
	"encoding/binary"
	"math"

	"github.com/corten-ml/corten/internal/xerrors"
)

// At decodes element i into its natural Go representation (bool, int64,
// float64 or string depending on DatumType). Exported for op kernels that
// need generic element-wise access without committing to one native width.
func (t *Tensor) At(i int) (interface{}, error) { return t.getNative(i) }

// SetAt encodes v into element i; see At for the accepted Go types.
func (t *Tensor) SetAt(i int, v interface{}) error { return t.setNative(i, v) }

// getNative decodes element i into its natural Go representation:
// bool for Bool, int64 for integer/TDim types, float64 for float types,
// string for String.
func (t *Tensor) getNative(i int) (interface{}, error) {
	if t.dt == String {
		if i < 0 || i >= len(t.strs) {
			return nil, xerrors.ErrShapeMismatch
		}
		return t.strs[i], nil
	}
	sz := t.dt.Size()
	off := i * sz
	if off < 0 || off+sz > len(t.buf) {
		return nil, xerrors.ErrShapeMismatch
	}
	b := t.buf[off : off+sz]
	switch t.dt {
	case Bool:
		return b[0] != 0, nil
	case U8:
		return int64(b[0]), nil
	case I8:
		return int64(int8(b[0])), nil
	case U16:
		return int64(binary.LittleEndian.Uint16(b)), nil
	case I16:
		return int64(int16(binary.LittleEndian.Uint16(b))), nil
	case U32:
		return int64(binary.LittleEndian.Uint32(b)), nil
	case I32:
		return int64(int32(binary.LittleEndian.Uint32(b))), nil
	case U64:
		return int64(binary.LittleEndian.Uint64(b)), nil
	case I64, TDim:
		return int64(binary.LittleEndian.Uint64(b)), nil
	case F16:
		return float64(f16ToF32(binary.LittleEndian.Uint16(b))), nil
	case F32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case F64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	default:
		return nil, xerrors.ErrUnsupportedCast
	}
}

// setNative encodes v (bool/int64/float64/string, or any Go numeric type
// which is coerced) into element i.
func (t *Tensor) setNative(i int, v interface{}) error {
	if t.dt == String {
		s, ok := v.(string)
		if !ok {
			return xerrors.ErrUnsupportedCast
		}
		t.strs[i] = s
		return nil
	}
	sz := t.dt.Size()
	off := i * sz
	if off < 0 || off+sz > len(t.buf) {
		return xerrors.ErrShapeMismatch
	}
	b := t.buf[off : off+sz]

	asI64 := func() (int64, bool) {
		switch x := v.(type) {
		case int64:
			return x, true
		case int:
			return int64(x), true
		case bool:
			if x {
				return 1, true
			}
			return 0, true
		case float64:
			return int64(x), true
		}
		return 0, false
	}
	asF64 := func() (float64, bool) {
		switch x := v.(type) {
		case float64:
			return x, true
		case int64:
			return float64(x), true
		case int:
			return float64(x), true
		}
		return 0, false
	}

	switch t.dt {
	case Bool:
		n, ok := asI64()
		if !ok {
			return xerrors.ErrUnsupportedCast
		}
		if n != 0 {
			b[0] = 1
		} else {
			b[0] = 0
		}
	case U8:
		n, ok := asI64()
		if !ok {
			return xerrors.ErrUnsupportedCast
		}
		b[0] = byte(n)
	case I8:
		n, ok := asI64()
		if !ok {
			return xerrors.ErrUnsupportedCast
		}
		b[0] = byte(int8(n))
	case U16:
		n, ok := asI64()
		if !ok {
			return xerrors.ErrUnsupportedCast
		}
		binary.LittleEndian.PutUint16(b, uint16(n))
	case I16:
		n, ok := asI64()
		if !ok {
			return xerrors.ErrUnsupportedCast
		}
		binary.LittleEndian.PutUint16(b, uint16(int16(n)))
	case U32:
		n, ok := asI64()
		if !ok {
			return xerrors.ErrUnsupportedCast
		}
		binary.LittleEndian.PutUint32(b, uint32(n))
	case I32:
		n, ok := asI64()
		if !ok {
			return xerrors.ErrUnsupportedCast
		}
		binary.LittleEndian.PutUint32(b, uint32(int32(n)))
	case U64:
		n, ok := asI64()
		if !ok {
			return xerrors.ErrUnsupportedCast
		}
		binary.LittleEndian.PutUint64(b, uint64(n))
	case I64, TDim:
		n, ok := asI64()
		if !ok {
			return xerrors.ErrUnsupportedCast
		}
		binary.LittleEndian.PutUint64(b, uint64(n))
	case F16:
		f, ok := asF64()
		if !ok {
			return xerrors.ErrUnsupportedCast
		}
		binary.LittleEndian.PutUint16(b, f32ToF16(float32(f)))
	case F32:
		f, ok := asF64()
		if !ok {
			return xerrors.ErrUnsupportedCast
		}
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(f)))
	case F64:
		f, ok := asF64()
		if !ok {
			return xerrors.ErrUnsupportedCast
		}
		binary.LittleEndian.PutUint64(b, math.Float64bits(f))
	default:
		return xerrors.ErrUnsupportedCast
	}
	return nil
}
