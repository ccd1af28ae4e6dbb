package workerpool

import (
	"sync/atomic"
	"testing"
)

func TestRunInlineBelowThreshold(t *testing.T) {
	p := New(4)
	var calls int32
	err := p.Run(10, func(lo, hi int) error {
		atomic.AddInt32(&calls, 1)
		if lo != 0 || hi != 10 {
			t.Fatalf("inline call got range [%d,%d), want [0,10)", lo, hi)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (single inline call)", calls)
	}
}

func TestRunCoversFullRangeAboveThreshold(t *testing.T) {
	p := New(4)
	n := elementsPerWorker*4 + 100
	covered := make([]int32, n)
	err := p.Run(n, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			atomic.AddInt32(&covered[i], 1)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, c := range covered {
		if c != 1 {
			t.Fatalf("index %d covered %d times, want exactly 1", i, c)
		}
	}
}

func TestRunPropagatesError(t *testing.T) {
	p := New(4)
	n := elementsPerWorker*4 + 100
	wantErr := errDummy{}
	err := p.Run(n, func(lo, hi int) error {
		if lo == 0 {
			return wantErr
		}
		return nil
	})
	if err == nil {
		t.Fatal("Run should propagate a slice error")
	}
}

type errDummy struct{}

func (errDummy) Error() string { return "dummy" }

func TestNewClampsToOne(t *testing.T) {
	p := New(0)
	if p.N != 1 {
		t.Fatalf("New(0).N = %d, want 1", p.N)
	}
	p2 := New(-5)
	if p2.N != 1 {
		t.Fatalf("New(-5).N = %d, want 1", p2.N)
	}
}
