// Package tensor implements the typed n-dimensional buffer (Tensor) and its
// element-type tag (DatumType) from spec.md §3.1/§4.1: allocation, casting,
// broadcasting and tolerance-based comparison over a closed set of element
// types.
package tensor

import (
	"github.com/x448/float16"
)

// DatumType tags the element type of a Tensor. The set is closed: every
// switch over DatumType in this module is expected to be exhaustive.
type DatumType uint8

// The closed element-type set from spec.md §3.1.
const (
	Bool DatumType = iota
	U8
	U16
	U32
	U64
	I8
	I16
	I32
	I64
	F16
	F32
	F64
	String
	TDim
)

// String returns the canonical lowercase name used in error messages and
// debug dumps.
func (dt DatumType) String() string {
	switch dt {
	case Bool:
		return "bool"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F16:
		return "f16"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case String:
		return "string"
	case TDim:
		return "tdim"
	default:
		return "unknown"
	}
}

// Size returns the per-element byte size for fixed-width types. String and
// TDim are variable/logical-width and return 0; callers must not compute
// buffer_len from them directly (see IsFixedWidth).
func (dt DatumType) Size() int {
	switch dt {
	case Bool, U8, I8:
		return 1
	case U16, I16, F16:
		return 2
	case U32, I32, F32:
		return 4
	case U64, I64, F64:
		return 8
	case TDim:
		return 8 // stored as the evaluated i64 for fixed-rank tensors
	default:
		return 0
	}
}

// IsFixedWidth reports whether the type has a stable per-element byte size,
// i.e. is eligible for the buffer_len = product(shape) * Size() invariant.
func (dt DatumType) IsFixedWidth() bool {
	return dt != String
}

// IsNumber reports integer∪float membership (spec.md §4.1 classification).
func (dt DatumType) IsNumber() bool {
	return dt.IsInteger() || dt.IsFloat()
}

// IsInteger reports membership in the signed/unsigned integer subset.
func (dt DatumType) IsInteger() bool {
	switch dt {
	case U8, U16, U32, U64, I8, I16, I32, I64:
		return true
	default:
		return false
	}
}

// IsSigned reports whether the type's integer or float representation is signed.
func (dt DatumType) IsSigned() bool {
	switch dt {
	case I8, I16, I32, I64, F16, F32, F64:
		return true
	default:
		return false
	}
}

// IsFloat reports membership in the floating-point subset.
func (dt DatumType) IsFloat() bool {
	switch dt {
	case F16, F32, F64:
		return true
	default:
		return false
	}
}

// IsCopy reports membership in "everything but string" — the subset whose
// elements can be memcpy'd rather than deep-cloned.
func (dt DatumType) IsCopy() bool {
	return dt != String
}

// f16ToF32 widens a raw float16 bit pattern using the pack-standard
// x448/float16 library rather than a hand-rolled bit-twiddled conversion.
func f16ToF32(bits uint16) float32 {
	return float16.Frombits(bits).Float32()
}

// f32ToF16 narrows to a raw float16 bit pattern via x448/float16.
func f32ToF16(v float32) uint16 {
	return float16.Fromfloat32(v).Bits()
}
