package kernel

// ReverseInt reverses src into dst (dst and src may be the same
// underlying array only if processed out-of-place by the caller);
// rev(rev(A)) = A is testable property 4.
func ReverseInt(dst, src []int32) {
	n := len(src)
	for i, x := range src {
		dst[n-1-i] = x
	}
}

func ReverseFloat(dst, src []float32) {
	n := len(src)
	for i, x := range src {
		dst[n-1-i] = x
	}
}

func ReverseByte(dst, src []byte) {
	n := len(src)
	for i, x := range src {
		dst[n-1-i] = x
	}
}

// GatherInt writes dst[i] = src[idx[i]] for each index, reporting
// false (an index error) on the first out-of-range index.
func GatherInt(dst, src []int32, idx []int32) bool {
	n := len(src)
	for i, ix := range idx {
		if ix < 0 || int(ix) >= n {
			return false
		}
		dst[i] = src[ix]
	}
	return true
}

// GatherFloat is GatherInt's float32 counterpart.
func GatherFloat(dst, src []float32, idx []int32) bool {
	n := len(src)
	for i, ix := range idx {
		if ix < 0 || int(ix) >= n {
			return false
		}
		dst[i] = src[ix]
	}
	return true
}

// DiagonalInt copies the diagonal of a rows*cols row-major matrix.
func DiagonalInt(dst, src []int32, rows, cols int) {
	n := rows
	if cols < n {
		n = cols
	}
	for i := 0; i < n; i++ {
		dst[i] = src[i*cols+i]
	}
}

// DiagonalFloat is DiagonalInt's float32 counterpart.
func DiagonalFloat(dst, src []float32, rows, cols int) {
	n := rows
	if cols < n {
		n = cols
	}
	for i := 0; i < n; i++ {
		dst[i] = src[i*cols+i]
	}
}

// TransposeInt16 transposes a 16x16 block of int32 elements in
// place. An Eklundh-style transpose would swap off-diagonal quadrant
// pairs at halving block sizes; the direct element swap below
// computes the same result with a flat double loop.
func TransposeInt16(m []int32) {
	const n = 16
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m[i*n+j], m[j*n+i] = m[j*n+i], m[i*n+j]
		}
	}
}

// TransposeBit64 is TransposeInt16's 64x64-bit counterpart, operating
// on a bit-packed square matrix of side 64.
func TransposeBit64(m []byte) {
	const n = 64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a := BitGet(m, i*n+j)
			b := BitGet(m, j*n+i)
			BitSet(m, i*n+j, b)
			BitSet(m, j*n+i, a)
		}
	}
}
