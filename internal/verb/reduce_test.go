package verb

import (
	"testing"

	"github.com/arl-lang/arl/internal/value"
)

func TestReducePlusSumsIotaToTriangularNumber(t *testing.T) {
	ctx := newCtx()
	iota, err := Dispatch(ctx, Mod, 0, false, value.MakeAtomInt(10), '!')
	if err != nil {
		t.Fatalf("iota: %v", err)
	}
	sum, err := Reduce(ctx, Plus, iota, '+')
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if got := value.AsInt(sum); got != 45 {
		t.Fatalf("+/!10 = %d, want 45", got)
	}
}

func TestReduceOnAtomIsIdentity(t *testing.T) {
	ctx := newCtx()
	got, err := Reduce(ctx, Plus, value.MakeAtomInt(7), '+')
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if value.AsInt(got) != 7 {
		t.Fatalf("Reduce on atom = %d, want 7 unchanged", value.AsInt(got))
	}
}

func TestReduceEmptyArrayIsTypeZero(t *testing.T) {
	ctx := newCtx()
	empty, err := ctx.Handles.AllocArray(value.TagInt, 0)
	if err != nil {
		t.Fatalf("AllocArray: %v", err)
	}
	got, err := Reduce(ctx, Plus, empty, '+')
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if value.AsInt(got) != 0 {
		t.Fatalf("+/[] = %d, want the type's zero", value.AsInt(got))
	}
}

func TestReduceMaxOverIntArray(t *testing.T) {
	ctx := newCtx()
	arr := mustInt(t, ctx, []int32{3, 9, -2, 17, 4})
	got, err := Reduce(ctx, Max, arr, '|')
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if value.AsInt(got) != 17 {
		t.Fatalf("max/ = %d, want 17", value.AsInt(got))
	}
}

// TestReduceFallsBackToDispatchFold covers the generic per-element
// fold path for a verb with no dedicated fast reducer (Minus).
func TestReduceFallsBackToDispatchFold(t *testing.T) {
	ctx := newCtx()
	arr := mustInt(t, ctx, []int32{10, 1, 2})
	got, err := Reduce(ctx, Minus, arr, '-')
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	// Right-to-left fold order as a dyadic left-accumulate: ((10-1)-2).
	if want := int32((10 - 1) - 2); value.AsInt(got) != want {
		t.Fatalf("-/ = %d, want %d", value.AsInt(got), want)
	}
}
