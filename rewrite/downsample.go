// Package rewrite implements the Downsample/Slice commuting rewrites of
// spec.md §4.13, grounded on original_source/core/src/ops/downsample/
// array.rs's pull_downsample_over_slice/_adddims/_rmdims: pure arithmetic
// that computes a pushed-earlier Downsample's new parameters and the
// companion op's adjusted parameters, leaving the actual graph surgery to
// package patch. Kept free of any op/graph dependency so package op can
// import it from each affected operator's Declutter hook without a cycle.
package rewrite

// PushDownsampleOverSlice computes the parameters for pulling a Downsample
// that currently consumes a Slice's output earlier in the graph, ahead of
// that Slice. Given the original Slice(axis, begin, end) feeding
// Downsample(axis, stride, modulo), whose current output has length
// finalLen along axis, it returns the new Downsample's modulo (applied
// directly to the Slice's original input) and the new Slice's [begin, end)
// window over the downsampled stream — equivalent in meaning, but with the
// two ops' relative order swapped (spec.md §4.13).
func PushDownsampleOverSlice(stride, modulo, sliceBegin, finalLen int64) (newModulo, newBegin, newEnd int64) {
	newModulo = (modulo + sliceBegin) % stride
	left := (modulo + sliceBegin) / stride
	newBegin = left
	newEnd = finalLen + left
	return
}

// PushDownsampleOverAddDims adjusts a Downsample's axis as it is pulled
// ahead of an AddDims that currently precedes it: every inserted axis at
// or below the Downsample's axis shifts it down by one, since the
// Downsample now runs before those axes exist.
func PushDownsampleOverAddDims(axis int, insertedAxes []int) int {
	shift := 0
	for _, a := range insertedAxes {
		if a <= axis {
			shift++
		}
	}
	return axis - shift
}

// PushDownsampleOverRmDims adjusts a Downsample's axis as it is pulled
// ahead of an RmDims that currently precedes it: every removed axis at or
// below the Downsample's axis shifts it up by one, since the Downsample
// now runs before those axes are removed.
func PushDownsampleOverRmDims(axis int, removedAxes []int) int {
	shift := 0
	for _, a := range removedAxes {
		if a <= axis {
			shift++
		}
	}
	return axis + shift
}
