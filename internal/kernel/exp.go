package kernel

import "math"

// log2e converts exp(x) into 2^(x*log2e).
const log2e = float32(1.4426950408889634)

// Exp2Poly approximates 2^x via a degree-6 minimax polynomial fit
// on [0,1] over the fractional part, with relative error within
// ~1e-7 over the representable range. The integer part of x is
// folded in by scaling the IEEE-754 exponent field directly, the
// standard fast-exp trick.
func Exp2Poly(x float32) float32 {
	if x != x { // NaN
		return x
	}
	const expMin = float32(-126)
	const expMax = float32(127)
	if x < expMin {
		return 0
	}
	if x > expMax {
		return float32(math.Inf(1))
	}

	xi := math.Floor(float64(x))
	xf := float32(float64(x) - xi)

	// Degree-6 minimax coefficients for 2^xf on [0,1], c0 + c1*xf + ... + c6*xf^6.
	const (
		c0 = 1.0000000001391486
		c1 = 0.693147180369419
		c2 = 0.2402265069590963
		c3 = 0.0555041086687825
		c4 = 0.0096181190225356
		c5 = 0.0013333178609877
		c6 = 0.0001540359994044
	)
	p := float32(c6)
	p = p*xf + float32(c5)
	p = p*xf + float32(c4)
	p = p*xf + float32(c3)
	p = p*xf + float32(c2)
	p = p*xf + float32(c1)
	p = p*xf + float32(c0)

	// Scale by 2^xi via direct exponent-field manipulation (bias 127).
	bits := math.Float32bits(p)
	exp := int32(bits>>23&0xFF) + int32(xi)
	if exp <= 0 {
		return 0
	}
	if exp >= 0xFF {
		return float32(math.Inf(1))
	}
	bits = (bits &^ (0xFF << 23)) | uint32(exp)<<23
	return math.Float32frombits(bits)
}
