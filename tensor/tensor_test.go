package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/corten-ml/corten/tensor"
)

type TensorSuite struct {
	suite.Suite
}

func TestTensorSuite(t *testing.T) {
	suite.Run(t, new(TensorSuite))
}

func (s *TensorSuite) TestAllocateZeroed() {
	t, err := tensor.Allocate(tensor.F32, []int{2, 3}, 0)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 6, t.Len())
	for i := 0; i < len(t.Bytes()); i++ {
		require.Zero(s.T(), t.Bytes()[i])
	}
}

func (s *TensorSuite) TestAllocateBadAlignment() {
	_, err := tensor.Allocate(tensor.F64, []int{1}, 2)
	require.Error(s.T(), err)
}

func (s *TensorSuite) TestFromRawBytesShapeMismatch() {
	_, err := tensor.FromRawBytes(tensor.F32, []int{3}, []byte{0, 1, 2})
	require.Error(s.T(), err)
}

func (s *TensorSuite) TestFromRawBytesRoundTrip() {
	data := []byte{0, 0, 128, 63} // 1.0f little-endian
	t, err := tensor.FromRawBytes(tensor.F32, []int{1}, data)
	require.NoError(s.T(), err)
	require.Equal(s.T(), data, t.Bytes())
}

func (s *TensorSuite) TestReshapeNoCopy() {
	t, err := tensor.Fill(tensor.I32, []int{2, 3}, int64(7))
	require.NoError(s.T(), err)
	r, err := t.Reshape([]int{3, 2})
	require.NoError(s.T(), err)
	require.Equal(s.T(), []int{3, 2}, r.Shape())

	_, err = t.Reshape([]int{4, 4})
	require.Error(s.T(), err)
}

func (s *TensorSuite) TestBroadcastIntoRank() {
	t, err := tensor.Fill(tensor.F32, []int{3}, 1.0)
	require.NoError(s.T(), err)
	b, err := t.BroadcastIntoRank(3)
	require.NoError(s.T(), err)
	require.Equal(s.T(), []int{1, 1, 3}, b.Shape())

	_, err = b.BroadcastIntoRank(1)
	require.Error(s.T(), err)
}

func (s *TensorSuite) TestCastRoundTrip() {
	// cast(cast(t, U), T) == t for all t: T when T fits in U (spec.md §8).
	orig, err := tensor.Fill(tensor.I16, []int{4}, int64(-7))
	require.NoError(s.T(), err)
	widened, err := tensor.Cast(orig, tensor.I32)
	require.NoError(s.T(), err)
	narrowed, err := tensor.Cast(widened, tensor.I16)
	require.NoError(s.T(), err)
	eq, err := tensor.CloseEnough(orig, narrowed, tensor.RoundingOff)
	require.NoError(s.T(), err)
	require.True(s.T(), eq)
}

func (s *TensorSuite) TestCastSaturatesOnOverflow() {
	big, err := tensor.Fill(tensor.I32, []int{1}, int64(1000))
	require.NoError(s.T(), err)
	narrow, err := tensor.Cast(big, tensor.I8)
	require.NoError(s.T(), err)
	v, err := narrow.Reshape([]int{1})
	require.NoError(s.T(), err)
	require.Equal(s.T(), int8(127), int8(v.Bytes()[0]))
}

func (s *TensorSuite) TestUnsupportedCastPairs() {
	str, err := tensor.Allocate(tensor.String, []int{1}, 0)
	require.NoError(s.T(), err)
	_, err = tensor.Cast(str, tensor.F32)
	require.Error(s.T(), err)

	dim, err := tensor.Fill(tensor.TDim, []int{1}, int64(4))
	require.NoError(s.T(), err)
	_, err = tensor.Cast(dim, tensor.F32)
	require.Error(s.T(), err)
}

func (s *TensorSuite) TestCloseEnoughShapeMismatch() {
	a, _ := tensor.Fill(tensor.F32, []int{2}, 1.0)
	b, _ := tensor.Fill(tensor.F32, []int{3}, 1.0)
	_, err := tensor.CloseEnough(a, b, tensor.RoundingOff)
	require.Error(s.T(), err)
}

func (s *TensorSuite) TestCloseEnoughTolerance() {
	a, _ := tensor.Fill(tensor.F32, []int{1}, 100.0)
	b, _ := tensor.Fill(tensor.F32, []int{1}, 100.5)
	eqTight, err := tensor.CloseEnough(a, b, tensor.RoundingOff)
	require.NoError(s.T(), err)
	require.False(s.T(), eqTight)

	eqLoose, err := tensor.CloseEnough(a, b, tensor.RoundingOn)
	require.NoError(s.T(), err)
	require.True(s.T(), eqLoose)
}
