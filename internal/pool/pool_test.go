package pool

import "testing"

func TestClassSizeLadder(t *testing.T) {
	if ClassSize(0) != 64 {
		t.Fatalf("ClassSize(0) = %d, want 64", ClassSize(0))
	}
	if ClassSize(1) != 128 {
		t.Fatalf("ClassSize(1) = %d, want 128", ClassSize(1))
	}
	if ClassSize(29) != 64<<29 {
		t.Fatalf("ClassSize(29) = %d, want %d", ClassSize(29), 64<<29)
	}
}

func TestClassFor(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{1, 0},
		{64, 0},
		{65, 1},
		{128, 1},
		{129, 2},
	}
	for _, tt := range tests {
		got, err := ClassFor(tt.n)
		if err != nil {
			t.Fatalf("ClassFor(%d) error: %v", tt.n, err)
		}
		if got != tt.want {
			t.Fatalf("ClassFor(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestAllocFreeRoundTrip(t *testing.T) {
	a := New()
	blk, err := a.Alloc(2)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if len(blk) != ClassSize(2) {
		t.Fatalf("block len = %d, want %d", len(blk), ClassSize(2))
	}
	a.Free(blk, 2)
	if got := a.outstanding(2); got != 1 {
		t.Fatalf("outstanding(2) = %d, want 1", got)
	}
}

// TestAllocSplitsOnMiss exercises the recursive split: allocating
// from an empty class borrows and splits the next class up, and
// freeing both halves back leaves the lower class with two blocks.
func TestAllocSplitsOnMiss(t *testing.T) {
	a := New()
	b0, err := a.Alloc(0)
	if err != nil {
		t.Fatalf("Alloc(0) #1: %v", err)
	}
	b1, err := a.Alloc(0)
	if err != nil {
		t.Fatalf("Alloc(0) #2: %v", err)
	}
	if len(b0) != ClassSize(0) || len(b1) != ClassSize(0) {
		t.Fatalf("split blocks have wrong size: %d, %d", len(b0), len(b1))
	}
	a.Free(b0, 0)
	a.Free(b1, 0)
	if got := a.outstanding(0); got != 2 {
		t.Fatalf("outstanding(0) after freeing both halves = %d, want 2", got)
	}
}

func TestClassForOutOfRangeIsOOM(t *testing.T) {
	_, err := ClassFor(1 << 62)
	if err == nil {
		t.Fatal("ClassFor(huge) should fail with OOM")
	}
}
