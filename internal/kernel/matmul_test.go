package kernel

import (
	"math"
	"testing"

	"github.com/arl-lang/arl/internal/workerpool"
)

func naiveMatMul(c, a, b []float32, m, n, p int) {
	for i := 0; i < m; i++ {
		for j := 0; j < p; j++ {
			var s float32
			for k := 0; k < n; k++ {
				s += a[i*n+k] * b[k*p+j]
			}
			c[i*p+j] = s
		}
	}
}

func TestMatMulMatchesNaive(t *testing.T) {
	m, n, p := 6, 5, 7
	a := make([]float32, m*n)
	b := make([]float32, n*p)
	for i := range a {
		a[i] = float32(i%7) - 3
	}
	for i := range b {
		b[i] = float32(i%5) - 2
	}
	want := make([]float32, m*p)
	naiveMatMul(want, a, b, m, n, p)

	got := make([]float32, m*p)
	pool := workerpool.New(2)
	MatMul(pool, got, a, b, m, n, p)

	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-4 {
			t.Fatalf("MatMul[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMatVec(t *testing.T) {
	a := []float32{1, 2, 3, 4, 5, 6} // 2x3
	x := []float32{1, 1, 1}
	c := make([]float32, 2)
	MatVec(c, a, x, 2, 3)
	if c[0] != 6 || c[1] != 15 {
		t.Fatalf("MatVec = %v, want [6 15]", c)
	}
}

func TestVecMat(t *testing.T) {
	a := []float32{1, 2, 3, 4, 5, 6} // 2x3
	x := []float32{1, 1}
	c := make([]float32, 3)
	VecMat(c, x, a, 2, 3)
	want := []float32{5, 7, 9}
	for i := range want {
		if c[i] != want[i] {
			t.Fatalf("VecMat[%d] = %v, want %v", i, c[i], want[i])
		}
	}
}
