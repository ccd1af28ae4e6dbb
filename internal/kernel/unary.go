package kernel

import "math"

// NegateInt negates each element of src into dst.
func NegateInt(dst, src []int32) {
	for i, x := range src {
		dst[i] = -x
	}
}

// NegateFloat negates each element of src into dst.
func NegateFloat(dst, src []float32) {
	for i, x := range src {
		dst[i] = -x
	}
}

// ReciprocalFloat computes 1/x for each element; division by zero
// produces +Inf/-Inf following IEEE semantics rather than a domain
// error. Only integer modulo and negative sqrt are domain errors.
func ReciprocalFloat(dst, src []float32) {
	for i, x := range src {
		dst[i] = 1 / x
	}
}

// AbsInt computes |x| for each element.
func AbsInt(dst, src []int32) {
	for i, x := range src {
		if x < 0 {
			x = -x
		}
		dst[i] = x
	}
}

// AbsFloat computes |x| for each element.
func AbsFloat(dst, src []float32) {
	for i, x := range src {
		dst[i] = float32(math.Abs(float64(x)))
	}
}

// NotBit computes logical not over packed bits.
func NotBit(dst, src []byte, n int) {
	for i := 0; i < n; i++ {
		BitSet(dst, i, 1-BitGet(src, i))
	}
}

// IntToFloat widens each integer element to float32.
func IntToFloat(dst []float32, src []int32) {
	for i, x := range src {
		dst[i] = float32(x)
	}
}

// FloatToInt narrows each float32 element to int32, truncating
// toward zero and saturating at the int32 range.
func FloatToInt(dst []int32, src []float32) {
	const maxI = float32(1<<31 - 1)
	const minI = float32(-1 << 31)
	for i, f := range src {
		switch {
		case f >= maxI:
			dst[i] = 1<<31 - 1
		case f <= minI:
			dst[i] = -1 << 31
		default:
			dst[i] = int32(f)
		}
	}
}

// ByteToInt widens each byte element to int32.
func ByteToInt(dst []int32, src []byte) {
	for i, b := range src {
		dst[i] = int32(b)
	}
}

// IntToByte narrows each int32 element to byte (truncating).
func IntToByte(dst []byte, src []int32) {
	for i, x := range src {
		dst[i] = byte(x)
	}
}

// BitPack packs n 0/1 bytes from src into dst's bit-packed buffer.
func BitPack(dst []byte, src []int32) {
	for i, x := range src {
		BitSet(dst, i, uint64(x)&1)
	}
}

// BitUnpack unpacks n bits from src into dst as 0/1 ints.
func BitUnpack(dst []int32, src []byte, n int) {
	for i := 0; i < n; i++ {
		dst[i] = int32(BitGet(src, i))
	}
}

// SqrtFloat computes the square root of each element, reporting
// false (a domain error) if any element is negative.
func SqrtFloat(dst, src []float32) bool {
	for i, x := range src {
		if x < 0 {
			return false
		}
		dst[i] = float32(math.Sqrt(float64(x)))
	}
	return true
}

// ExpFloat computes exp(x) for each element via Exp2Poly, a
// polynomial approximation of 2^x scaled by log2e.
func ExpFloat(dst, src []float32) {
	for i, x := range src {
		dst[i] = Exp2Poly(x * log2e)
	}
}
