package tdim_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corten-ml/corten/internal/xerrors"
	"github.com/corten-ml/corten/tdim"
)

func TestArithmetic(t *testing.T) {
	d := tdim.S.MulConst(2).Add(tdim.FromInt(3)) // 2*S+3
	a, b := d.Coefficients()
	require.Equal(t, int64(2), a)
	require.Equal(t, int64(3), b)
	require.Equal(t, int64(11), d.Evaluate(4))
}

func TestAsConst(t *testing.T) {
	n, ok := tdim.FromInt(7).AsConst()
	require.True(t, ok)
	require.Equal(t, int64(7), n)

	_, ok = tdim.S.AsConst()
	require.False(t, ok)
}

func TestDivByZero(t *testing.T) {
	_, err := tdim.FromInt(4).Div(0)
	require.ErrorIs(t, err, xerrors.ErrDivByZero)
}

func TestNonDivisible(t *testing.T) {
	d := tdim.S.MulConst(3)
	_, err := d.Div(2)
	require.ErrorIs(t, err, xerrors.ErrNonDivisible)
}

func TestDivExact(t *testing.T) {
	d := tdim.S.MulConst(6).Add(tdim.FromInt(9))
	q, err := d.Div(3)
	require.NoError(t, err)
	require.Equal(t, int64(7), q.Evaluate(2)) // (6*2+9)/3 = 7; 2*2+3=7 check below
	a, b := q.Coefficients()
	require.Equal(t, int64(2), a)
	require.Equal(t, int64(3), b)
}

func TestDivCeil(t *testing.T) {
	d := tdim.FromInt(7)
	q, err := d.DivCeil(3)
	require.NoError(t, err)
	n, ok := q.AsConst()
	require.True(t, ok)
	require.Equal(t, int64(3), n) // ceil(7/3) = 3
}

func TestEqualAndCmp(t *testing.T) {
	require.True(t, tdim.S.Equal(tdim.S))
	require.False(t, tdim.S.Equal(tdim.FromInt(1)))

	cmp, ok := tdim.FromInt(3).Cmp(tdim.FromInt(5))
	require.True(t, ok)
	require.Equal(t, -1, cmp)

	_, ok = tdim.S.Cmp(tdim.FromInt(5))
	require.False(t, ok, "comparison involving differing coefficients of S is unknown")
}

func TestString(t *testing.T) {
	require.Equal(t, "S", tdim.S.String())
	require.Equal(t, "4", tdim.FromInt(4).String())
	require.Equal(t, "2*S+1", tdim.S.MulConst(2).Add(tdim.FromInt(1)).String())
}
