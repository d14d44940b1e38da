// Package archive implements the on-disk model archive of spec.md §6.3: a
// 128-byte little-endian tensor-file header plus raw element bytes, and the
// .tgz container that bundles a set of named tensor files together. The
// textual graph.nnef document itself is an out-of-scope collaborator (§1);
// this package only grounds the tensor-file header/round-trip law and the
// tar+gzip container it travels in.
package archive

import (
	"encoding/binary"
	"io"

	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tensor"
)

const headerSize = 128

const maxRank = 8

var headerMagic = [2]byte{0x4E, 0xEF}

// itemType codes from spec.md §6.3.
const (
	itemFloat    uint16 = 0
	itemUnsigned uint16 = 1
	itemSigned   uint16 = 0x0100
)

// tensorHeader mirrors the 128-byte layout byte-for-byte:
// magic(2) | verMajor(1) | verMinor(1) | dataSize(4) | rank(4) | dims(8*4) |
// bitsPerItem(4) | vendor(2) | itemType(2) | reserved(32) | padding(44).
type tensorHeader struct {
	dataSize    uint32
	rank        uint32
	dims        [maxRank]uint32
	bitsPerItem uint32
	vendor      uint16
	itemType    uint16
}

// encodingFor maps a DatumType to its (itemType, bitsPerItem) archive
// encoding. Bool, String and TDim have no accepted encoding (spec.md §6.3
// lists only float/unsigned/signed) and fail with ErrUnsupportedTensorEncoding.
func encodingFor(dt tensor.DatumType) (uint16, uint32, error) {
	switch dt {
	case tensor.F16:
		return itemFloat, 16, nil
	case tensor.F32:
		return itemFloat, 32, nil
	case tensor.F64:
		return itemFloat, 64, nil
	case tensor.U8:
		return itemUnsigned, 8, nil
	case tensor.U16:
		return itemUnsigned, 16, nil
	case tensor.U32:
		return itemUnsigned, 32, nil
	case tensor.U64:
		return itemUnsigned, 64, nil
	case tensor.I8:
		return itemSigned, 8, nil
	case tensor.I16:
		return itemSigned, 16, nil
	case tensor.I32:
		return itemSigned, 32, nil
	case tensor.I64:
		return itemSigned, 64, nil
	default:
		return 0, 0, xerrors.ErrUnsupportedTensorEncoding
	}
}

// datumTypeFor is encodingFor's inverse.
func datumTypeFor(itemType uint16, bits uint32) (tensor.DatumType, error) {
	switch {
	case itemType == itemFloat && bits == 16:
		return tensor.F16, nil
	case itemType == itemFloat && bits == 32:
		return tensor.F32, nil
	case itemType == itemFloat && bits == 64:
		return tensor.F64, nil
	case itemType == itemUnsigned && bits == 8:
		return tensor.U8, nil
	case itemType == itemUnsigned && bits == 16:
		return tensor.U16, nil
	case itemType == itemUnsigned && bits == 32:
		return tensor.U32, nil
	case itemType == itemUnsigned && bits == 64:
		return tensor.U64, nil
	case itemType == itemSigned && bits == 8:
		return tensor.I8, nil
	case itemType == itemSigned && bits == 16:
		return tensor.I16, nil
	case itemType == itemSigned && bits == 32:
		return tensor.I32, nil
	case itemType == itemSigned && bits == 64:
		return tensor.I64, nil
	default:
		return 0, xerrors.ErrUnsupportedTensorEncoding
	}
}

// writeHeader serializes h as the fixed 128-byte record.
func writeHeader(w io.Writer, h tensorHeader) error {
	var buf [headerSize]byte
	buf[0], buf[1] = headerMagic[0], headerMagic[1]
	buf[2] = 1 // version major
	buf[3] = 0 // version minor
	binary.LittleEndian.PutUint32(buf[4:8], h.dataSize)
	binary.LittleEndian.PutUint32(buf[8:12], h.rank)
	for i := 0; i < maxRank; i++ {
		off := 12 + i*4
		binary.LittleEndian.PutUint32(buf[off:off+4], h.dims[i])
	}
	binary.LittleEndian.PutUint32(buf[44:48], h.bitsPerItem)
	binary.LittleEndian.PutUint16(buf[48:50], h.vendor)
	binary.LittleEndian.PutUint16(buf[50:52], h.itemType)
	// buf[52:84] reserved, buf[84:128] padding: left zero.
	_, err := w.Write(buf[:])
	if err != nil {
		return xerrors.ErrIO
	}
	return nil
}

// readHeader parses the fixed 128-byte record, rejecting a bad magic,
// unsupported version or a rank exceeding maxRank.
func readHeader(r io.Reader) (tensorHeader, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return tensorHeader{}, xerrors.ErrIO
	}
	if buf[0] != headerMagic[0] || buf[1] != headerMagic[1] {
		return tensorHeader{}, xerrors.ErrParse
	}
	if buf[2] != 1 {
		return tensorHeader{}, xerrors.ErrParse
	}
	h := tensorHeader{
		dataSize: binary.LittleEndian.Uint32(buf[4:8]),
		rank:     binary.LittleEndian.Uint32(buf[8:12]),
	}
	if h.rank > maxRank {
		return tensorHeader{}, xerrors.ErrParse
	}
	for i := 0; i < maxRank; i++ {
		off := 12 + i*4
		h.dims[i] = binary.LittleEndian.Uint32(buf[off : off+4])
	}
	h.bitsPerItem = binary.LittleEndian.Uint32(buf[44:48])
	h.vendor = binary.LittleEndian.Uint16(buf[48:50])
	h.itemType = binary.LittleEndian.Uint16(buf[50:52])
	return h, nil
}

// WriteTensor writes t as a header followed by its raw element bytes.
func WriteTensor(w io.Writer, t *tensor.Tensor) error {
	itemType, bits, err := encodingFor(t.DatumType())
	if err != nil {
		return err
	}
	shape := t.Shape()
	if len(shape) > maxRank {
		return xerrors.ErrUnsupportedTensorEncoding
	}
	h := tensorHeader{
		dataSize:    uint32(len(t.Bytes())),
		rank:        uint32(len(shape)),
		bitsPerItem: bits,
		itemType:    itemType,
	}
	for i, d := range shape {
		h.dims[i] = uint32(d)
	}
	if err := writeHeader(w, h); err != nil {
		return err
	}
	if _, err := w.Write(t.Bytes()); err != nil {
		return xerrors.ErrIO
	}
	return nil
}

// ReadTensor parses a header and its trailing raw bytes back into a Tensor.
func ReadTensor(r io.Reader) (*tensor.Tensor, error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	dt, err := datumTypeFor(h.itemType, h.bitsPerItem)
	if err != nil {
		return nil, err
	}
	shape := make([]int, h.rank)
	for i := range shape {
		shape[i] = int(h.dims[i])
	}
	data := make([]byte, h.dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, xerrors.ErrIO
	}
	return tensor.FromRawBytes(dt, shape, data)
}
