package handle

import (
	"testing"

	"github.com/arl-lang/arl/internal/pool"
	"github.com/arl-lang/arl/internal/value"
)

func newTable() *Table {
	return New(pool.New())
}

func TestAllocArrayRefcountStartsAtOne(t *testing.T) {
	tb := newTable()
	v, err := tb.AllocArray(value.TagInt, 10)
	if err != nil {
		t.Fatalf("AllocArray: %v", err)
	}
	e := tb.Entry(v)
	if e.Refcount != 1 {
		t.Fatalf("Refcount = %d, want 1", e.Refcount)
	}
	if value.ElementTag(v) != value.TagInt {
		t.Fatalf("ElementTag = %d, want TagInt", value.ElementTag(v))
	}
	if value.Count(v) != 10 {
		t.Fatalf("Count = %d, want 10", value.Count(v))
	}
}

// TestRetainReleaseRoundTrip checks that every live handle has
// refcount >= 1, and releasing back to zero frees its pool block so a
// subsequent allocation of the same size can reuse it.
func TestRetainReleaseRoundTrip(t *testing.T) {
	tb := newTable()
	v, err := tb.AllocArray(value.TagByte, 32)
	if err != nil {
		t.Fatalf("AllocArray: %v", err)
	}
	if _, err := tb.Retain(v); err != nil {
		t.Fatalf("Retain: %v", err)
	}
	if got := tb.Entry(v).Refcount; got != 2 {
		t.Fatalf("Refcount after Retain = %d, want 2", got)
	}
	tb.Release(v)
	if got := tb.Entry(v).Refcount; got != 1 {
		t.Fatalf("Refcount after one Release = %d, want 1", got)
	}
	tb.Release(v)
	if got := tb.Live(); got != 0 {
		t.Fatalf("Live() after final release = %d, want 0", got)
	}
}

func TestReleaseAtomicIsNoop(t *testing.T) {
	tb := newTable()
	tb.Release(value.MakeAtomInt(5)) // must not panic
}

func TestRetainOverflow(t *testing.T) {
	tb := newTable()
	v, _ := tb.AllocArray(value.TagInt, 1)
	for i := 0; i < 62; i++ {
		if _, err := tb.Retain(v); err != nil {
			t.Fatalf("Retain #%d: %v", i, err)
		}
	}
	if _, err := tb.Retain(v); err == nil {
		t.Fatal("expected overflow error retaining past 63")
	}
}

// TestMixedReleaseRecurses checks that releasing a mixed array
// recursively releases its contained element handles first.
func TestMixedReleaseRecurses(t *testing.T) {
	tb := newTable()
	inner, err := tb.AllocArray(value.TagInt, 4)
	if err != nil {
		t.Fatalf("AllocArray inner: %v", err)
	}
	mixed, err := tb.AllocMixed(1)
	if err != nil {
		t.Fatalf("AllocMixed: %v", err)
	}
	tb.Entry(mixed).Elements[0] = inner

	tb.Release(mixed)
	if got := tb.Live(); got != 0 {
		t.Fatalf("Live() after releasing mixed = %d, want 0 (inner should be freed too)", got)
	}
}

func TestAllocExhaustsTable(t *testing.T) {
	tb := newTable()
	for i := 0; i < numHandles; i++ {
		if _, err := tb.AllocArray(value.TagBit, 1); err != nil {
			t.Fatalf("AllocArray #%d: %v", i, err)
		}
	}
	if _, err := tb.AllocArray(value.TagBit, 1); err == nil {
		t.Fatal("expected OOM allocating past numHandles live handles")
	}
}
