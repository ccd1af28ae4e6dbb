package kernel

import "github.com/arl-lang/arl/internal/workerpool"

// MatMul computes c = a*b for row-major float32 matrices: a is m*n,
// b is n*p, c is m*p. A blocked 4x4 inner micro-kernel accumulates
// in registers, split across workers over the outer (row) dimension
// via workerpool.RunRows. There is no L2/L3 panel packing: the
// interpreter's matrices stay small enough that the micro-kernel
// alone covers them.
func MatMul(pool *workerpool.Pool, c, a, b []float32, m, n, p int) {
	for i := range c {
		c[i] = 0
	}
	pool.RunRows(m, func(lo, hi int) error {
		for i := lo; i < hi; i += 4 {
			iEnd := i + 4
			if iEnd > hi {
				iEnd = hi
			}
			for j := 0; j < p; j += 4 {
				jEnd := j + 4
				if jEnd > p {
					jEnd = p
				}
				microKernel4x4(c, a, b, n, p, i, iEnd, j, jEnd)
			}
		}
		return nil
	})
}

// microKernel4x4 accumulates the (iEnd-i)x(jEnd-j) <= 4x4 output tile
// over the full k dimension in register-sized local accumulators.
func microKernel4x4(c, a, b []float32, n, p, i0, i1, j0, j1 int) {
	var acc [4][4]float32
	for k := 0; k < n; k++ {
		for ii := i0; ii < i1; ii++ {
			av := a[ii*n+k]
			for jj := j0; jj < j1; jj++ {
				acc[ii-i0][jj-j0] += av * b[k*p+jj]
			}
		}
	}
	for ii := i0; ii < i1; ii++ {
		for jj := j0; jj < j1; jj++ {
			c[ii*p+jj] = acc[ii-i0][jj-j0]
		}
	}
}

// MatVec computes c = a*x, a dot product per row.
func MatVec(c, a, x []float32, rows, cols int) {
	for i := 0; i < rows; i++ {
		c[i] = DotFloat(a[i*cols:i*cols+cols], x)
	}
}

// VecMat computes c = x*a, a blocked 4-wide column-strided loop.
func VecMat(c, x, a []float32, rows, cols int) {
	for i := range c {
		c[i] = 0
	}
	for j := 0; j < cols; j += 4 {
		jEnd := j + 4
		if jEnd > cols {
			jEnd = cols
		}
		for k := 0; k < rows; k++ {
			xv := x[k]
			for jj := j; jj < jEnd; jj++ {
				c[jj] += xv * a[k*cols+jj]
			}
		}
	}
}
