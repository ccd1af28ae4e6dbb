// Package workerpool implements the fixed-size worker pool kernels
// fan out across for large inputs: split the output range into
// contiguous slices, dispatch each, join at the kernel boundary. The
// join barrier is golang.org/x/sync/errgroup rather than a raw
// sync.WaitGroup, so a kernel's sentinel error short-circuits the
// remaining slices and propagates like any other dispatch error.
package workerpool

import "golang.org/x/sync/errgroup"

// A kernel only fans out when its output has more than 512*N
// elements; anything smaller runs inline.
const elementsPerWorker = 512

// Pool holds the worker count N, configured once at startup. No
// goroutine is spawned in advance; Go's runtime scheduler plays that
// role, and Run enforces the contract that matters: at most N
// concurrent slices, joined at the kernel boundary.
type Pool struct {
	N int
}

func New(n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{N: n}
}

// Run splits [0, n) into at most p.N contiguous slices and invokes
// fn on each, joining before returning. Inputs at or below the
// threshold run inline on the calling goroutine.
func (p *Pool) Run(n int, fn func(lo, hi int) error) error {
	if p.N <= 1 || n <= elementsPerWorker*p.N {
		return fn(0, n)
	}
	var g errgroup.Group
	chunk := (n + p.N - 1) / p.N
	for lo := 0; lo < n; lo += chunk {
		lo := lo
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			return fn(lo, hi)
		})
	}
	return g.Wait()
}

// RunRows is Run's row-dimension counterpart for kernels that are
// only parallel over an outer dimension (matmul, softmax); when the
// outer dimension is too small to justify splitting it falls back to
// the serial path.
func (p *Pool) RunRows(rows int, fn func(lo, hi int) error) error {
	return p.Run(rows, fn)
}
