package scope

import (
	"testing"

	"github.com/arl-lang/arl/internal/handle"
	"github.com/arl-lang/arl/internal/pool"
	"github.com/arl-lang/arl/internal/value"
)

func TestIndexMapping(t *testing.T) {
	if got := Index(0); got != 0 {
		t.Fatalf("Index(0) = %d, want 0", got)
	}
	if got := Index('a'); got != 1 {
		t.Fatalf("Index('a') = %d, want 1", got)
	}
	if got := Index('z'); got != 26 {
		t.Fatalf("Index('z') = %d, want 26", got)
	}
}

func TestTableHasFixedScopeCount(t *testing.T) {
	tb := New()
	// Every letter a..z plus the unnamed scope must resolve to a
	// distinct, in-range slot.
	seen := map[int]bool{}
	for _, l := range append([]byte{0}, []byte("abcdefghijklmnopqrstuvwxyz")...) {
		idx := Index(l)
		if idx < 0 || idx >= Count {
			t.Fatalf("Index(%q) = %d out of range [0,%d)", l, idx, Count)
		}
		seen[idx] = true
		tb.Scope(idx) // must not panic
	}
	if len(seen) != Count {
		t.Fatalf("distinct scope slots = %d, want %d", len(seen), Count)
	}
}

func TestSetBodyRejectsOversize(t *testing.T) {
	s := &Scope{}
	if err := s.SetBody(make([]byte, MaxBody)); err != nil {
		t.Fatalf("SetBody at MaxBody: %v", err)
	}
	if err := s.SetBody(make([]byte, MaxBody+1)); err == nil {
		t.Fatal("SetBody over MaxBody should fail")
	}
}

func TestSetBodyOverwritesInPlace(t *testing.T) {
	s := &Scope{}
	if err := s.SetBody([]byte{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("SetBody: %v", err)
	}
	if err := s.SetBody([]byte{9, 9}); err != nil {
		t.Fatalf("SetBody: %v", err)
	}
	if s.Len != 2 || s.Body[0] != 9 || s.Body[1] != 9 {
		t.Fatalf("SetBody did not overwrite in place: Len=%d Body=%v", s.Len, s.Body[:2])
	}
}

// TestTeardownReleasesAllBindings checks that after teardown
// every handle is released back to zero refcount.
func TestTeardownReleasesAllBindings(t *testing.T) {
	ht := handle.New(pool.New())
	tb := New()

	v, err := ht.AllocArray(value.TagInt, 4)
	if err != nil {
		t.Fatalf("AllocArray: %v", err)
	}
	tb.Scope(Index('a')).Vars[ArgSlot] = v

	tb.Teardown(ht)
	if got := ht.Live(); got != 0 {
		t.Fatalf("Live() after Teardown = %d, want 0", got)
	}
	if tb.Scope(Index('a')).Vars[ArgSlot] != 0 {
		t.Fatal("Teardown should zero workspace slots")
	}
}
