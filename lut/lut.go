// Package lut implements the 256-entry byte lookup-table runtime of
// spec.md §4.12, grounded on original_source/linalg/src/frame/lut.rs:
// applying table[b] to every byte of a buffer, split into an unaligned
// scalar prefix, an aligned bulk processed chunkWidth bytes at a time, and
// a scalar suffix.
package lut

import (
	"unsafe"

	"github.com/corten-ml/corten/internal/xerrors"
)

// chunkWidth is the bulk-region block size; real backends would size this
// to the host's vector width, but corten's Go kernel processes the bulk
// region in fixed-size blocks purely to exercise the three-region split.
const chunkWidth = 16

// Table is a fixed 256-entry byte-to-byte mapping. Alignment is the input
// byte alignment Apply uses to size the unaligned scalar prefix; the
// Entries array itself is not placed on an Alignment boundary.
type Table struct {
	Entries   [256]byte
	Alignment int
}

// NewTable builds a Table from a 256-length mapping slice.
func NewTable(entries []byte, alignment int) (*Table, error) {
	if len(entries) != 256 {
		return nil, xerrors.ErrShapeMismatch
	}
	t := &Table{Alignment: alignment}
	copy(t.Entries[:], entries)
	return t, nil
}

// IsInvolution reports whether applying the table twice is the identity:
// table[table[b]] == b for every b.
func (t *Table) IsInvolution() bool {
	for b := 0; b < 256; b++ {
		if t.Entries[t.Entries[b]] != byte(b) {
			return false
		}
	}
	return true
}

// IsIdempotent reports whether applying the table twice equals applying it
// once: table[table[b]] == table[b] for every b.
func (t *Table) IsIdempotent() bool {
	for b := 0; b < 256; b++ {
		if t.Entries[t.Entries[b]] != t.Entries[b] {
			return false
		}
	}
	return true
}

// Apply maps every byte of src through the table into a freshly allocated
// buffer of equal length, walking the unaligned prefix, aligned bulk and
// scalar suffix as three explicit regions (spec.md §4.12).
func (t *Table) Apply(src []byte) []byte {
	out := make([]byte, len(src))
	n := len(src)

	prefix := unalignedPrefixLen(src, t.Alignment)
	if prefix > n {
		prefix = n
	}
	i := 0
	for ; i < prefix; i++ {
		out[i] = t.Entries[src[i]]
	}
	bulkEnd := prefix + (n-prefix)/chunkWidth*chunkWidth
	for ; i < bulkEnd; i += chunkWidth {
		applyBlock(t, src[i:i+chunkWidth], out[i:i+chunkWidth])
	}
	for ; i < n; i++ {
		out[i] = t.Entries[src[i]]
	}
	return out
}

// ApplyInPlace is Apply but overwrites src.
func (t *Table) ApplyInPlace(buf []byte) {
	for i, b := range buf {
		buf[i] = t.Entries[b]
	}
}

func applyBlock(t *Table, src, dst []byte) {
	for i, b := range src {
		dst[i] = t.Entries[b]
	}
}

// unalignedPrefixLen returns how many leading bytes of buf must be handled
// scalar-by-scalar before its address reaches an alignment-byte boundary,
// so the aligned bulk region can assume an aligned starting address the way
// a real vector-width kernel would require.
func unalignedPrefixLen(buf []byte, alignment int) int {
	if len(buf) == 0 || alignment <= 1 {
		return 0
	}
	addr := uintptr(unsafe.Pointer(&buf[0]))
	misalign := int(addr % uintptr(alignment))
	if misalign == 0 {
		return 0
	}
	return alignment - misalign
}
