package kernel

// chunkWidth is the "SIMD width" fused nonlinearity kernels process a
// block at a time before falling back to the scalar tail (spec.md §4.11).
// corten has no real vector backend, so this just bounds how large a block
// sigmoidBlock/tanhBlock handle per call; the scalar tail loop in
// SigmoidF32/TanhF32 is still exercised whenever len(x) is not a multiple
// of it.
const chunkWidth = 8

// SigmoidF32 applies a rational approximation of the logistic sigmoid in
// place over x, computed as 0.5*(1+tanh(x/2)) through the (7,6) Padé tanh
// approximant of tanhScalar (there is no separate sigmoid rational),
// saturating outside [-18, 18].
func SigmoidF32(x []float32) {
	n := len(x)
	i := 0
	for ; i+chunkWidth <= n; i += chunkWidth {
		sigmoidBlock(x[i : i+chunkWidth])
	}
	for ; i < n; i++ {
		x[i] = sigmoidScalar(x[i])
	}
}

func sigmoidBlock(x []float32) {
	for i := range x {
		x[i] = sigmoidScalar(x[i])
	}
}

// sigmoidScalar approximates 1/(1+e^-x) through tanhScalar's (7,6) Padé
// rational, saturating to 0/1 outside [-18, 18].
func sigmoidScalar(x float32) float32 {
	switch {
	case x <= -18:
		return 0
	case x >= 18:
		return 1
	}
	// Evaluate via the numerically stable tanh identity: sigmoid(x) =
	// 0.5*(1+tanh(x/2)), so the single tanh rational below backs both
	// fused kernels without duplicating the polynomial.
	return 0.5 * (1 + tanhScalar(x*0.5))
}

// TanhF32 applies the framework's internal tanh approximation in place.
func TanhF32(x []float32) {
	n := len(x)
	i := 0
	for ; i+chunkWidth <= n; i += chunkWidth {
		tanhBlock(x[i : i+chunkWidth])
	}
	for ; i < n; i++ {
		x[i] = tanhScalar(x[i])
	}
}

func tanhBlock(x []float32) {
	for i := range x {
		x[i] = tanhScalar(x[i])
	}
}

// tanhScalar evaluates the (7,6) Padé rational approximant of tanh on
// [-9, 9], saturating to +-1 outside (tanh is within float32 epsilon of
// its asymptote well before 9).
func tanhScalar(x float32) float32 {
	switch {
	case x <= -9:
		return -1
	case x >= 9:
		return 1
	}
	x2 := x * x
	// Coefficients of the (7,6) Padé approximant; odd
	// numerator, even denominator, as tanh is an odd function.
	num := x * (135135 + x2*(17325+x2*(378+x2)))
	den := 135135 + x2*(62370+x2*(3150+x2*28))
	return num / den
}
