// Reduce implements the '/' adverb: fold a dyadic verb over an
// array. The fold runs left-to-right; sum and max are associative and
// commutative, so the order is unobservable for the fast paths. Sum
// and Max take the two-phase multi-accumulator kernels from
// internal/kernel directly; every other verb folds element-by-element
// via ElementAt and Dispatch, which is slower but correct for any
// dyadic verb a user reduces with.
package verb

import (
	"github.com/arl-lang/arl/internal/kernel"
	"github.com/arl-lang/arl/internal/value"
)

// Reduce folds code over v. A bare atom reduces to itself; a
// single-element array has nothing to fold.
func Reduce(ctx *Context, code Code, v value.Value, glyph byte) (value.Value, error) {
	if !value.IsBoxed(v) {
		return v, nil
	}
	n := value.Count(v)
	tag := value.ElementTag(v)

	switch code {
	case Plus:
		switch tag {
		case value.TagInt, value.TagSymbol:
			return value.MakeAtomInt(kernel.SumInt(kernel.IntView(ctx.Handles.Bytes(v), n))), nil
		case value.TagFloat:
			return value.MakeAtomFloat(kernel.SumFloat(kernel.FloatView(ctx.Handles.Bytes(v), n))), nil
		case value.TagByte:
			return value.MakeAtomInt(kernel.SumByte(ctx.Handles.Bytes(v)[:n])), nil
		case value.TagBit:
			return value.MakeAtomInt(kernel.SumBit(ctx.Handles.Bytes(v), n)), nil
		}
	case Max:
		switch tag {
		case value.TagInt, value.TagSymbol:
			if n == 0 {
				return value.MakeAtomInt(0), nil
			}
			return value.MakeAtomInt(kernel.MaxInt(kernel.IntView(ctx.Handles.Bytes(v), n))), nil
		case value.TagFloat:
			if n == 0 {
				return value.MakeAtomFloat(0), nil
			}
			return value.MakeAtomFloat(kernel.MaxFloat(kernel.FloatView(ctx.Handles.Bytes(v), n))), nil
		}
	}

	// General fold for every other dyadic verb: the element type's
	// zero on empty, else combine left-to-right via dispatch.
	if n == 0 {
		return zeroOf(tag), nil
	}
	acc := elementAt(ctx, v, 0)
	for i := 1; i < n; i++ {
		next, err := Dispatch(ctx, code, acc, true, elementAt(ctx, v, i), glyph)
		if err != nil {
			return 0, err
		}
		acc = next
	}
	return acc, nil
}

func zeroOf(tag uint64) value.Value {
	switch tag {
	case value.TagFloat:
		return value.MakeAtomFloat(0)
	case value.TagByte:
		return value.MakeAtomByte(0)
	case value.TagBit:
		return value.MakeAtomBit(0)
	default:
		return value.MakeAtomInt(0)
	}
}
