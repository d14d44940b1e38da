package rewrite_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corten-ml/corten/rewrite"
)

func TestPushDownsampleOverSliceMatchesSpecScenario(t *testing.T) {
	// slice(axis=0, begin=1, end=15) on len-16 input, then
	// downsample(axis=0, stride=2, modulo=1): final downsampled length is 7
	// (spec.md scenario 2).
	newModulo, newBegin, newEnd := rewrite.PushDownsampleOverSlice(2, 1, 1, 7)
	require.Equal(t, int64(0), newModulo)
	require.Equal(t, int64(1), newBegin)
	require.Equal(t, int64(8), newEnd)
}

func TestPushDownsampleOverAddDimsShiftsAxisDown(t *testing.T) {
	require.Equal(t, 0, rewrite.PushDownsampleOverAddDims(2, []int{0, 1}))
	require.Equal(t, 2, rewrite.PushDownsampleOverAddDims(2, []int{3}))
}

func TestPushDownsampleOverRmDimsShiftsAxisUp(t *testing.T) {
	require.Equal(t, 4, rewrite.PushDownsampleOverRmDims(2, []int{0, 1}))
	require.Equal(t, 2, rewrite.PushDownsampleOverRmDims(2, []int{3}))
}
