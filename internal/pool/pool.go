// Package pool implements the size-classed free-list allocator that
// backs every boxed array: a bounded array of free lists indexed by
// a size class on a 64*2^k byte ladder. Only the main thread ever
// mutates it, so there is no locking.
package pool

import (
	"fmt"

	"github.com/arl-lang/arl/internal/ierr"
)

// NumClasses caps the size-class ladder: class k holds blocks of
// 64*2^k bytes, and recursion to find a free block is bounded by
// this many classes.
const NumClasses = 30

// ClassSize returns the block size, in bytes, of size class k.
func ClassSize(k int) int {
	return 64 << uint(k)
}

// ClassFor returns the smallest size class whose block size is >= n bytes.
func ClassFor(n int) (int, error) {
	for k := 0; k < NumClasses; k++ {
		if ClassSize(k) >= n {
			return k, nil
		}
	}
	return 0, ierr.Wrap(ierr.OOM, 0, fmt.Errorf("no size class holds %d bytes (top class is %d bytes)", n, ClassSize(NumClasses-1)))
}

// Allocator is 30 free lists of same-size blocks, fed by splitting
// the next class up on an empty pop.
type Allocator struct {
	free [NumClasses][][]byte
}

func New() *Allocator {
	return &Allocator{}
}

// Alloc pops a block of size class k, splitting class k+1 on miss.
// Recursion depth is bounded by NumClasses; exceeding it is
// out-of-memory.
func (a *Allocator) Alloc(k int) ([]byte, error) {
	return a.alloc(k, 0)
}

func (a *Allocator) alloc(k, depth int) ([]byte, error) {
	if depth > NumClasses {
		return nil, ierr.Wrap(ierr.OOM, 0, fmt.Errorf("split-on-miss recursion exceeded %d classes at class %d", NumClasses, k))
	}
	list := a.free[k]
	if n := len(list); n > 0 {
		blk := list[n-1]
		a.free[k] = list[:n-1]
		return blk, nil
	}
	if k+1 >= NumClasses {
		// Top class empty too: mint a fresh block instead of failing.
		// Everything below this class is ultimately sourced from here
		// via split-on-miss, so this is the pool's one true allocation
		// site; every other class is fed by splitting a block handed
		// back from here.
		return make([]byte, ClassSize(k)), nil
	}
	parent, err := a.alloc(k+1, depth+1)
	if err != nil {
		return nil, err
	}
	half := len(parent) / 2
	a.free[k] = append(a.free[k], parent[half:half+half:half+half])
	return parent[:half:half], nil
}

// Free returns a block of size class k to its free list.
func (a *Allocator) Free(blk []byte, k int) {
	if k < 0 || k >= NumClasses {
		return
	}
	a.free[k] = append(a.free[k], blk)
}

// outstanding reports how many free blocks class k currently holds,
// used by tests to verify that teardown returns every block.
func (a *Allocator) outstanding(k int) int {
	return len(a.free[k])
}
