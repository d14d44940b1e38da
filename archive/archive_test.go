package archive_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corten-ml/corten/archive"
	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tensor"
)

func TestTensorRoundTripEveryAcceptedDatumType(t *testing.T) {
	dtypes := []tensor.DatumType{
		tensor.F16, tensor.F32, tensor.F64,
		tensor.U8, tensor.U16, tensor.U32, tensor.U64,
		tensor.I8, tensor.I16, tensor.I32, tensor.I64,
	}
	for _, dt := range dtypes {
		orig, err := tensor.Fill(dt, []int{2, 3}, 0.0)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, archive.WriteTensor(&buf, orig))

		got, err := archive.ReadTensor(&buf)
		require.NoError(t, err)
		require.Equal(t, orig.DatumType(), got.DatumType())
		require.Equal(t, orig.Shape(), got.Shape())
		require.Equal(t, orig.Bytes(), got.Bytes())
	}
}

func TestWriteTensorRejectsUnsupportedEncoding(t *testing.T) {
	s, err := tensor.Fill(tensor.Bool, []int{4}, false)
	require.NoError(t, err)
	var buf bytes.Buffer
	err = archive.WriteTensor(&buf, s)
	require.ErrorIs(t, err, xerrors.ErrUnsupportedTensorEncoding)
}

func TestReadTensorRejectsBadMagic(t *testing.T) {
	buf := make([]byte, 128)
	buf[0], buf[1] = 0xFF, 0xFF
	_, err := archive.ReadTensor(bytes.NewReader(buf))
	require.ErrorIs(t, err, xerrors.ErrParse)
}

func TestBundleRoundTrip(t *testing.T) {
	w, err := tensor.Fill(tensor.F32, []int{2, 2}, 1.5)
	require.NoError(t, err)
	b, err := tensor.Fill(tensor.I32, []int{3}, int64(7))
	require.NoError(t, err)

	bundle := &archive.Bundle{
		GraphDoc: []byte("version 1.0;\ngraph net() -> (y) { }\n"),
		Tensors:  map[string]*tensor.Tensor{"weight": w, "bias": b},
	}

	var out bytes.Buffer
	require.NoError(t, archive.Write(&out, bundle))

	got, err := archive.Read(&out)
	require.NoError(t, err)
	require.Equal(t, bundle.GraphDoc, got.GraphDoc)
	require.Len(t, got.Tensors, 2)
	require.Equal(t, w.Bytes(), got.Tensors["weight"].Bytes())
	require.Equal(t, b.Bytes(), got.Tensors["bias"].Bytes())
}
