package verb

import (
	"github.com/arl-lang/arl/internal/handle"
	"github.com/arl-lang/arl/internal/ierr"
	"github.com/arl-lang/arl/internal/kernel"
	"github.com/arl-lang/arl/internal/value"
	"github.com/arl-lang/arl/internal/workerpool"
)

// Context bundles the collaborators dispatch needs to allocate a
// result and, for large inputs, fan a kernel out across the worker
// pool. It also owns the PRNG state, so random draws are per-context
// rather than process-global.
type Context struct {
	Handles *handle.Table
	Workers *workerpool.Pool

	rng kernel.PRNG
}

// Dispatch resolves arity, computes a result type, selects a kernel,
// then allocates and invokes it. left is the zero value and ignored
// when hasLeft is false (monadic call).
func Dispatch(ctx *Context, code Code, left value.Value, hasLeft bool, right value.Value, glyph byte) (value.Value, error) {
	arity := code.ResolveArity(hasLeft)

	switch code {
	case Plus, Minus, Times, Divide, Mod, Min, Max:
		if arity == Monadic {
			return dispatchMonadicArith(ctx, code, right, glyph)
		}
		return dispatchDyadicArith(ctx, code, left, right, glyph)
	case Less, Greater, Equal:
		return dispatchCompare(ctx, code, left, right, glyph)
	case Not:
		return dispatchNot(ctx, right, glyph)
	case Concat:
		if arity == Monadic {
			return dispatchEnlist(ctx, right)
		}
		return dispatchConcat(ctx, left, right, glyph)
	case Take, Drop:
		if arity == Monadic {
			return 0, ierr.New(ierr.NYI, glyph)
		}
		if code == Take {
			return dispatchTake(ctx, left, right, glyph)
		}
		return dispatchDrop(ctx, left, right, glyph)
	case Sqrt:
		return dispatchSqrt(ctx, right, glyph)
	case Exp:
		return dispatchExp(ctx, right)
	case Cast:
		if arity == Monadic {
			return 0, ierr.New(ierr.NYI, glyph)
		}
		return dispatchCast(ctx, left, right, glyph)
	case Gather:
		return dispatchGather(ctx, left, right, glyph)
	case MatMul:
		if arity == Monadic {
			return dispatchDiagonal(ctx, right, glyph)
		}
		return dispatchMatMul(ctx, left, right, glyph)
	case Norm:
		return dispatchNorm(ctx, right)
	case Softmax:
		return dispatchSoftmax(ctx, right)
	case PRNG:
		return dispatchPRNG(ctx, left, hasLeft)
	default:
		return 0, ierr.New(ierr.NYI, glyph)
	}
}

// isNumericArray reports whether v is a boxed numeric (bit/byte/int/float) array.
func isNumericArray(v value.Value) bool {
	t := value.ElementTag(v)
	return value.IsBoxed(v) && (t == value.TagBit || t == value.TagByte || t == value.TagInt || t == value.TagFloat)
}

func isNumericAtom(v value.Value) bool {
	t := value.ElementTag(v)
	return !value.IsBoxed(v) && (t == value.TagBit || t == value.TagByte || t == value.TagInt || t == value.TagFloat)
}

func isFloaty(v value.Value) bool { return value.ElementTag(v) == value.TagFloat }

// ---------------------------------------------------------------------
// Arithmetic (dyadic)
// ---------------------------------------------------------------------

func dispatchDyadicArith(ctx *Context, code Code, left, right value.Value, glyph byte) (value.Value, error) {
	if !isNumericAtom(left) && !isNumericArray(left) {
		return 0, ierr.New(ierr.Type, glyph)
	}
	if !isNumericAtom(right) && !isNumericArray(right) {
		return 0, ierr.New(ierr.Type, glyph)
	}

	leftArr, rightArr := value.IsBoxed(left), value.IsBoxed(right)
	resultFloat := isFloaty(left) || isFloaty(right) || code == Divide

	// atom-atom: compute directly, no allocation.
	if !leftArr && !rightArr {
		return arithScalar(code, left, right, resultFloat, glyph)
	}

	n := 0
	switch {
	case leftArr && rightArr:
		if value.Count(left) != value.Count(right) {
			return 0, ierr.New(ierr.Length, glyph)
		}
		n = value.Count(left)
	case leftArr:
		n = value.Count(left)
	default:
		n = value.Count(right)
	}

	if resultFloat {
		res, err := ctx.Handles.AllocArray(value.TagFloat, n)
		if err != nil {
			return 0, err
		}
		dst := kernel.FloatView(ctx.Handles.Bytes(res), n)
		lv := floatOperand(ctx, left, n)
		rv := floatOperand(ctx, right, n)
		if err := arithFloatArray(ctx, code, dst, lv, rv, leftArr, rightArr, glyph); err != nil {
			ctx.Handles.Release(res)
			return 0, err
		}
		return res, nil
	}

	res, err := ctx.Handles.AllocArray(value.TagInt, n)
	if err != nil {
		return 0, err
	}
	dst := kernel.IntView(ctx.Handles.Bytes(res), n)
	lv := intOperand(ctx, left, n)
	rv := intOperand(ctx, right, n)
	if err := arithIntArray(ctx, code, dst, lv, rv, leftArr, rightArr, glyph); err != nil {
		ctx.Handles.Release(res)
		return 0, err
	}
	return res, nil
}

func floatOperand(ctx *Context, v value.Value, n int) []float32 {
	if !value.IsBoxed(v) {
		return []float32{value.ToFloat32(v)}
	}
	if value.ElementTag(v) == value.TagFloat {
		return kernel.FloatView(ctx.Handles.Bytes(v), n)
	}
	// widen a non-float array (bit/byte/int) element-by-element for a
	// mixed-type array op.
	out := make([]float32, n)
	for i := range out {
		out[i] = value.ToFloat32(elementAt(ctx, v, i))
	}
	return out
}

func intOperand(ctx *Context, v value.Value, n int) []int32 {
	if !value.IsBoxed(v) {
		return []int32{value.ToInt32(v)}
	}
	if value.ElementTag(v) == value.TagInt || value.ElementTag(v) == value.TagSymbol {
		return kernel.IntView(ctx.Handles.Bytes(v), n)
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = value.ToInt32(elementAt(ctx, v, i))
	}
	return out
}

func arithFloatArray(ctx *Context, code Code, dst, l, r []float32, leftArr, rightArr bool, glyph byte) error {
	broadcast := func(f func(dst []float32, x float32, src []float32), arrFn func(dst, a, b []float32)) {
		switch {
		case leftArr && rightArr:
			arrFn(dst, l, r)
		case leftArr:
			f(dst, r[0], l)
		default:
			f(dst, l[0], r)
		}
	}
	switch code {
	case Plus:
		broadcast(kernel.AddFloatScalar, kernel.AddFloatArray)
	case Minus:
		if leftArr && rightArr {
			kernel.SubFloatArray(dst, l, r)
		} else if leftArr {
			for i, x := range l {
				dst[i] = x - r[0]
			}
		} else {
			for i, x := range r {
				dst[i] = l[0] - x
			}
		}
	case Times:
		if leftArr && rightArr {
			kernel.MulFloatArray(dst, l, r)
		} else if leftArr {
			for i, x := range l {
				dst[i] = x * r[0]
			}
		} else {
			for i, x := range r {
				dst[i] = l[0] * x
			}
		}
	case Divide:
		if leftArr && rightArr {
			kernel.DivFloatArray(dst, l, r)
		} else if leftArr {
			r0 := make([]float32, len(l))
			for i := range r0 {
				r0[i] = r[0]
			}
			kernel.DivFloatArray(dst, l, r0)
		} else {
			l0 := make([]float32, len(r))
			for i := range l0 {
				l0[i] = l[0]
			}
			kernel.DivFloatArray(dst, l0, r)
		}
	case Mod:
		return ierr.New(ierr.Type, glyph) // modulo is integer-only
	case Min:
		if leftArr && rightArr {
			kernel.MinFloatArray(dst, l, r)
		} else if leftArr {
			kernel.MinFloatArray(dst, l, repeatFloat(r[0], len(l)))
		} else {
			kernel.MinFloatArray(dst, repeatFloat(l[0], len(r)), r)
		}
	case Max:
		if leftArr && rightArr {
			kernel.MaxFloatArray(dst, l, r)
		} else if leftArr {
			kernel.MaxFloatArray(dst, l, repeatFloat(r[0], len(l)))
		} else {
			kernel.MaxFloatArray(dst, repeatFloat(l[0], len(r)), r)
		}
	}
	return nil
}

func repeatFloat(x float32, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = x
	}
	return out
}

func arithIntArray(ctx *Context, code Code, dst, l, r []int32, leftArr, rightArr bool, glyph byte) error {
	switch code {
	case Plus:
		if leftArr && rightArr {
			kernel.AddIntArray(dst, l, r)
		} else if leftArr {
			kernel.AddIntScalar(dst, r[0], l)
		} else {
			kernel.AddIntScalar(dst, l[0], r)
		}
	case Minus:
		if leftArr && rightArr {
			kernel.SubIntArray(dst, l, r)
		} else if leftArr {
			for i, x := range l {
				dst[i] = x - r[0]
			}
		} else {
			for i, x := range r {
				dst[i] = l[0] - x
			}
		}
	case Times:
		if leftArr && rightArr {
			kernel.MulIntArray(dst, l, r)
		} else if leftArr {
			kernel.MulIntScalar(dst, r[0], l)
		} else {
			kernel.MulIntScalar(dst, l[0], r)
		}
	case Mod:
		// y!z computes y mod z: the divisor is the right operand, in
		// every shape combination.
		switch {
		case leftArr && rightArr:
			if !kernel.ModIntArray(dst, l, r) {
				return ierr.New(ierr.Domain, glyph)
			}
		case leftArr:
			if !kernel.ModInt(dst, l, r[0]) {
				return ierr.New(ierr.Domain, glyph)
			}
		default:
			if !kernel.ModIntArray(dst, repeatInt(l[0], len(r)), r) {
				return ierr.New(ierr.Domain, glyph)
			}
		}
	case Min:
		if leftArr && rightArr {
			kernel.MinIntArray(dst, l, r)
		} else if leftArr {
			kernel.MinIntArray(dst, l, repeatInt(r[0], len(l)))
		} else {
			kernel.MinIntArray(dst, repeatInt(l[0], len(r)), r)
		}
	case Max:
		if leftArr && rightArr {
			kernel.MaxIntArray(dst, l, r)
		} else if leftArr {
			kernel.MaxIntArray(dst, l, repeatInt(r[0], len(l)))
		} else {
			kernel.MaxIntArray(dst, repeatInt(l[0], len(r)), r)
		}
	}
	return nil
}

func repeatInt(x int32, n int) []int32 {
	return kernel.Repeat(x, n)
}

func arithScalar(code Code, left, right value.Value, resultFloat bool, glyph byte) (value.Value, error) {
	if resultFloat {
		l, r := value.ToFloat32(left), value.ToFloat32(right)
		switch code {
		case Plus:
			return value.MakeAtomFloat(l + r), nil
		case Minus:
			return value.MakeAtomFloat(l - r), nil
		case Times:
			return value.MakeAtomFloat(l * r), nil
		case Divide:
			return value.MakeAtomFloat(l / r), nil
		case Min:
			if l < r {
				return value.MakeAtomFloat(l), nil
			}
			return value.MakeAtomFloat(r), nil
		case Max:
			if l > r {
				return value.MakeAtomFloat(l), nil
			}
			return value.MakeAtomFloat(r), nil
		case Mod:
			return 0, ierr.New(ierr.Type, glyph)
		}
	}
	l, r := value.ToInt32(left), value.ToInt32(right)
	switch code {
	case Plus:
		return value.MakeAtomInt(l + r), nil
	case Minus:
		return value.MakeAtomInt(l - r), nil
	case Times:
		return value.MakeAtomInt(l * r), nil
	case Divide:
		return value.MakeAtomFloat(float32(l) / float32(r)), nil
	case Mod:
		if r <= 0 {
			return 0, ierr.New(ierr.Domain, glyph)
		}
		dst := make([]int32, 1)
		kernel.ModInt(dst, []int32{l}, r)
		return value.MakeAtomInt(dst[0]), nil
	case Min:
		if l < r {
			return value.MakeAtomInt(l), nil
		}
		return value.MakeAtomInt(r), nil
	case Max:
		if l > r {
			return value.MakeAtomInt(l), nil
		}
		return value.MakeAtomInt(r), nil
	}
	return 0, ierr.New(ierr.NYI, glyph)
}

// ---------------------------------------------------------------------
// Arithmetic (monadic)
// ---------------------------------------------------------------------

func dispatchMonadicArith(ctx *Context, code Code, right value.Value, glyph byte) (value.Value, error) {
	switch code {
	case Minus: // negate
		return unaryNumeric(ctx, right, kernel.NegateInt, kernel.NegateFloat, glyph)
	case Divide: // reciprocal, always promotes to float
		return dispatchReciprocal(ctx, right)
	case Mod: // enum (iota): !n -> 0..n-1
		if value.IsBoxed(right) {
			return 0, ierr.New(ierr.Rank, glyph)
		}
		n := int(value.ToInt32(right))
		if n < 0 {
			return 0, ierr.New(ierr.Domain, glyph)
		}
		res, err := ctx.Handles.AllocArray(value.TagInt, n)
		if err != nil {
			return 0, err
		}
		dst := kernel.IntView(ctx.Handles.Bytes(res), n)
		for i := range dst {
			dst[i] = int32(i)
		}
		return res, nil
	case Max: // reverse
		return dispatchReverse(ctx, right, glyph)
	case Plus: // transpose / flip; identity on a non-matrix
		return dispatchTranspose(ctx, right, glyph)
	case Times: // first element
		if !value.IsBoxed(right) {
			return right, nil
		}
		if value.Count(right) == 0 {
			return 0, ierr.New(ierr.Length, glyph)
		}
		return firstElement(ctx, right), nil
	case Min: // where: not implemented
		return 0, ierr.New(ierr.NYI, glyph)
	}
	return 0, ierr.New(ierr.NYI, glyph)
}

func firstElement(ctx *Context, v value.Value) value.Value {
	switch value.ElementTag(v) {
	case value.TagInt:
		return value.MakeAtomInt(kernel.IntView(ctx.Handles.Bytes(v), value.Count(v))[0])
	case value.TagFloat:
		return value.MakeAtomFloat(kernel.FloatView(ctx.Handles.Bytes(v), value.Count(v))[0])
	case value.TagByte:
		return value.MakeAtomByte(kernel.ByteView(ctx.Handles.Bytes(v), value.Count(v))[0])
	default:
		return value.MakeAtomBit(kernel.BitGet(ctx.Handles.Bytes(v), 0))
	}
}

func unaryNumeric(ctx *Context, v value.Value, intFn func(dst, src []int32), floatFn func(dst, src []float32), glyph byte) (value.Value, error) {
	if !value.IsBoxed(v) {
		if isFloaty(v) {
			return value.MakeAtomFloat(applyFloat1(floatFn, value.AsFloat(v))), nil
		}
		return value.MakeAtomInt(applyInt1(intFn, value.ToInt32(v))), nil
	}
	n := value.Count(v)
	tag := value.ElementTag(v)
	if tag == value.TagFloat {
		res, err := ctx.Handles.AllocArray(value.TagFloat, n)
		if err != nil {
			return 0, err
		}
		floatFn(kernel.FloatView(ctx.Handles.Bytes(res), n), kernel.FloatView(ctx.Handles.Bytes(v), n))
		return res, nil
	}
	res, err := ctx.Handles.AllocArray(value.TagInt, n)
	if err != nil {
		return 0, err
	}
	intFn(kernel.IntView(ctx.Handles.Bytes(res), n), kernel.IntView(ctx.Handles.Bytes(v), n))
	return res, nil
}

func applyInt1(fn func(dst, src []int32), x int32) int32 {
	d := make([]int32, 1)
	fn(d, []int32{x})
	return d[0]
}

func applyFloat1(fn func(dst, src []float32), x float32) float32 {
	d := make([]float32, 1)
	fn(d, []float32{x})
	return d[0]
}

func dispatchReciprocal(ctx *Context, v value.Value) (value.Value, error) {
	if !value.IsBoxed(v) {
		return value.MakeAtomFloat(1 / value.ToFloat32(v)), nil
	}
	n := value.Count(v)
	res, err := ctx.Handles.AllocArray(value.TagFloat, n)
	if err != nil {
		return 0, err
	}
	src := floatOperand(ctx, v, n)
	kernel.ReciprocalFloat(kernel.FloatView(ctx.Handles.Bytes(res), n), src)
	return res, nil
}

func dispatchReverse(ctx *Context, v value.Value, glyph byte) (value.Value, error) {
	if !value.IsBoxed(v) {
		return v, nil
	}
	n := value.Count(v)
	tag := value.ElementTag(v)
	res, err := ctx.Handles.AllocArray(tag, n)
	if err != nil {
		return 0, err
	}
	switch tag {
	case value.TagFloat:
		kernel.ReverseFloat(kernel.FloatView(ctx.Handles.Bytes(res), n), kernel.FloatView(ctx.Handles.Bytes(v), n))
	case value.TagByte:
		kernel.ReverseByte(kernel.ByteView(ctx.Handles.Bytes(res), n), kernel.ByteView(ctx.Handles.Bytes(v), n))
	case value.TagInt, value.TagSymbol:
		kernel.ReverseInt(kernel.IntView(ctx.Handles.Bytes(res), n), kernel.IntView(ctx.Handles.Bytes(v), n))
	default:
		ctx.Handles.Release(res)
		return 0, ierr.New(ierr.NYI, glyph)
	}
	return res, nil
}

// dispatchTranspose handles the two fixed block shapes the kernels
// support: a 16x16 int matrix and a 64x64 bit matrix.
func dispatchTranspose(ctx *Context, v value.Value, glyph byte) (value.Value, error) {
	if !value.IsBoxed(v) || value.Rows(v) == 0 {
		return v, nil // transpose is identity on a non-matrix
	}
	rows := value.Rows(v)
	n := value.Count(v)
	cols := n / rows
	tag := value.ElementTag(v)
	switch {
	case tag == value.TagBit && rows == 64 && cols == 64:
		res, err := ctx.Handles.AllocArray(value.TagBit, n)
		if err != nil {
			return 0, err
		}
		dst := ctx.Handles.Bytes(res)
		copy(dst[:n/8], ctx.Handles.Bytes(v)[:n/8])
		kernel.TransposeBit64(dst)
		return value.MakeBoxed(value.TagBit, value.Handle(res), n, rows, value.StrideLog(v)), nil
	case tag == value.TagInt && rows == 16 && cols == 16:
		res, err := ctx.Handles.AllocArray(value.TagInt, n)
		if err != nil {
			return 0, err
		}
		dst := kernel.IntView(ctx.Handles.Bytes(res), n)
		copy(dst, kernel.IntView(ctx.Handles.Bytes(v), n))
		kernel.TransposeInt16(dst)
		return value.MakeBoxed(value.TagInt, value.Handle(res), n, rows, value.StrideLog(v)), nil
	default:
		return 0, ierr.New(ierr.NYI, glyph)
	}
}

// dispatchDiagonal copies the main diagonal of a matrix into a fresh
// rank-1 array of min(rows, cols) elements.
func dispatchDiagonal(ctx *Context, v value.Value, glyph byte) (value.Value, error) {
	if !value.IsBoxed(v) || value.Rows(v) == 0 {
		return 0, ierr.New(ierr.Rank, glyph)
	}
	rows := value.Rows(v)
	cols := value.Count(v) / rows
	n := rows
	if cols < n {
		n = cols
	}
	switch value.ElementTag(v) {
	case value.TagInt:
		res, err := ctx.Handles.AllocArray(value.TagInt, n)
		if err != nil {
			return 0, err
		}
		kernel.DiagonalInt(kernel.IntView(ctx.Handles.Bytes(res), n), kernel.IntView(ctx.Handles.Bytes(v), value.Count(v)), rows, cols)
		return res, nil
	case value.TagFloat:
		res, err := ctx.Handles.AllocArray(value.TagFloat, n)
		if err != nil {
			return 0, err
		}
		kernel.DiagonalFloat(kernel.FloatView(ctx.Handles.Bytes(res), n), kernel.FloatView(ctx.Handles.Bytes(v), value.Count(v)), rows, cols)
		return res, nil
	default:
		return 0, ierr.New(ierr.Type, glyph)
	}
}

// ---------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------

func dispatchCompare(ctx *Context, code Code, left, right value.Value, glyph byte) (value.Value, error) {
	if !isNumericAtom(left) && !isNumericArray(left) {
		return 0, ierr.New(ierr.Type, glyph)
	}
	if !isNumericAtom(right) && !isNumericArray(right) {
		return 0, ierr.New(ierr.Type, glyph)
	}
	leftArr, rightArr := value.IsBoxed(left), value.IsBoxed(right)
	compareFloat := isFloaty(left) || isFloaty(right)
	if !leftArr && !rightArr {
		var b uint64
		if compareFloat {
			l, r := value.ToFloat32(left), value.ToFloat32(right)
			switch code {
			case Less:
				if l < r {
					b = 1
				}
			case Greater:
				if l > r {
					b = 1
				}
			case Equal:
				if l == r {
					b = 1
				}
			}
			return value.MakeAtomBit(b), nil
		}
		l, r := value.ToInt32(left), value.ToInt32(right)
		switch code {
		case Less:
			if l < r {
				b = 1
			}
		case Greater:
			if l > r {
				b = 1
			}
		case Equal:
			if l == r {
				b = 1
			}
		}
		return value.MakeAtomBit(b), nil
	}
	n := value.Count(left)
	if leftArr && rightArr {
		if value.Count(left) != value.Count(right) {
			return 0, ierr.New(ierr.Length, glyph)
		}
	} else if !leftArr {
		n = value.Count(right)
	}
	res, err := ctx.Handles.AllocArray(value.TagBit, n)
	if err != nil {
		return 0, err
	}
	dst := ctx.Handles.Bytes(res)
	if compareFloat {
		l := floatOperand(ctx, left, n)
		r := floatOperand(ctx, right, n)
		if !leftArr {
			l = repeatFloat(l[0], n)
		}
		if !rightArr {
			r = repeatFloat(r[0], n)
		}
		switch code {
		case Less:
			kernel.LessFloatArray(dst, l, r)
		case Greater:
			kernel.GreaterFloatArray(dst, l, r)
		case Equal:
			kernel.EqualFloatArray(dst, l, r)
		}
		return res, nil
	}
	l := intOperand(ctx, left, n)
	r := intOperand(ctx, right, n)
	if !leftArr {
		l = repeatInt(l[0], n)
	}
	if !rightArr {
		r = repeatInt(r[0], n)
	}
	switch code {
	case Less:
		kernel.LessIntArray(dst, l, r)
	case Greater:
		kernel.GreaterIntArray(dst, l, r)
	case Equal:
		kernel.EqualIntArray(dst, l, r)
	}
	return res, nil
}

func dispatchNot(ctx *Context, v value.Value, glyph byte) (value.Value, error) {
	if !value.IsBoxed(v) {
		return value.MakeAtomBit(1 - value.AsBit(v)), nil
	}
	if value.ElementTag(v) != value.TagBit {
		return 0, ierr.New(ierr.Type, glyph)
	}
	n := value.Count(v)
	res, err := ctx.Handles.AllocArray(value.TagBit, n)
	if err != nil {
		return 0, err
	}
	kernel.NotBit(ctx.Handles.Bytes(res), ctx.Handles.Bytes(v), n)
	return res, nil
}

// ---------------------------------------------------------------------
// Concat / enlist
// ---------------------------------------------------------------------

func dispatchEnlist(ctx *Context, v value.Value) (value.Value, error) {
	if value.IsBoxed(v) {
		return v, nil
	}
	tag := value.ElementTag(v)
	res, err := ctx.Handles.AllocArray(tag, 1)
	if err != nil {
		return 0, err
	}
	writeScalarInto(ctx, res, 0, v)
	return res, nil
}

func writeScalarInto(ctx *Context, arr value.Value, i int, v value.Value) {
	tag := value.ElementTag(arr)
	buf := ctx.Handles.Bytes(arr)
	switch tag {
	case value.TagFloat:
		kernel.FloatView(buf, value.Count(arr))[i] = value.ToFloat32(v)
	case value.TagByte:
		buf[i] = value.AsByte(v)
	case value.TagBit:
		kernel.BitSet(buf, i, value.AsBit(v))
	case value.TagSymbol:
		s := value.AsSymbol(v)
		packed := uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24
		kernel.IntView(buf, value.Count(arr))[i] = int32(packed)
	default:
		kernel.IntView(buf, value.Count(arr))[i] = value.ToInt32(v)
	}
}

func dispatchConcat(ctx *Context, left, right value.Value, glyph byte) (value.Value, error) {
	lt, rt := value.ElementTag(left), value.ElementTag(right)
	if lt == value.TagSymbol || rt == value.TagSymbol {
		if lt != rt {
			return 0, ierr.New(ierr.Type, glyph)
		}
	}
	resultTag := value.Wider(lt, rt)
	ln := 1
	if value.IsBoxed(left) {
		ln = value.Count(left)
	}
	rn := 1
	if value.IsBoxed(right) {
		rn = value.Count(right)
	}
	n := ln + rn
	res, err := ctx.Handles.AllocArray(resultTag, n)
	if err != nil {
		return 0, err
	}
	if resultTag == value.TagByte {
		dst := ctx.Handles.Bytes(res)
		if value.IsBoxed(left) {
			copy(dst[:ln], ctx.Handles.Bytes(left)[:ln])
		} else {
			dst[0] = value.AsByte(left)
		}
		if value.IsBoxed(right) {
			copy(dst[ln:ln+rn], ctx.Handles.Bytes(right)[:rn])
		} else {
			dst[ln] = value.AsByte(right)
		}
		return res, nil
	}
	for i := 0; i < ln; i++ {
		writeScalarInto(ctx, res, i, elementAt(ctx, left, i))
	}
	for i := 0; i < rn; i++ {
		writeScalarInto(ctx, res, ln+i, elementAt(ctx, right, i))
	}
	return res, nil
}

// ElementAt returns the i'th element of a boxed array as a boxed/atomic
// value, or v unchanged if v isn't boxed. Exported for the reduce
// adverb, which walks an array one element at a time the same way
// Concat does.
func ElementAt(ctx *Context, v value.Value, i int) value.Value { return elementAt(ctx, v, i) }

func elementAt(ctx *Context, v value.Value, i int) value.Value {
	if !value.IsBoxed(v) {
		return v
	}
	switch value.ElementTag(v) {
	case value.TagFloat:
		return value.MakeAtomFloat(kernel.FloatView(ctx.Handles.Bytes(v), value.Count(v))[i])
	case value.TagByte:
		return value.MakeAtomByte(ctx.Handles.Bytes(v)[i])
	case value.TagBit:
		return value.MakeAtomBit(kernel.BitGet(ctx.Handles.Bytes(v), i))
	case value.TagSymbol:
		x := kernel.IntView(ctx.Handles.Bytes(v), value.Count(v))[i]
		return value.MakeAtomSymbol([4]byte{byte(x), byte(x >> 8), byte(x >> 16), byte(x >> 24)})
	default:
		return value.MakeAtomInt(kernel.IntView(ctx.Handles.Bytes(v), value.Count(v))[i])
	}
}

// ---------------------------------------------------------------------
// Take / Drop
// ---------------------------------------------------------------------

// srcElements returns (tag, count) for a take/drop right operand,
// treating an atom as a length-1 array the way APL's take/drop does.
func srcElements(v value.Value) (uint64, int) {
	if value.IsBoxed(v) {
		return value.ElementTag(v), value.Count(v)
	}
	return value.ElementTag(v), 1
}

func dispatchTake(ctx *Context, left, right value.Value, glyph byte) (value.Value, error) {
	if value.IsBoxed(left) {
		return 0, ierr.New(ierr.Rank, glyph)
	}
	x := int(value.ToInt32(left))
	abs := x
	fromEnd := x < 0
	if fromEnd {
		abs = -x
	}
	tag, srcN := srcElements(right)
	res, err := ctx.Handles.AllocArray(tag, abs)
	if err != nil {
		return 0, err
	}
	fill := value.MakeAtomInt(0)
	switch tag {
	case value.TagFloat:
		fill = value.MakeAtomFloat(0)
	case value.TagByte:
		fill = value.MakeAtomByte(0)
	case value.TagBit:
		fill = value.MakeAtomBit(0)
	}
	have := abs
	if srcN < have {
		have = srcN
	}
	if fromEnd {
		pad := abs - have
		for i := 0; i < pad; i++ {
			writeScalarInto(ctx, res, i, fill)
		}
		for i := 0; i < have; i++ {
			writeScalarInto(ctx, res, pad+i, elementAt(ctx, right, srcN-have+i))
		}
	} else {
		for i := 0; i < have; i++ {
			writeScalarInto(ctx, res, i, elementAt(ctx, right, i))
		}
		for i := have; i < abs; i++ {
			writeScalarInto(ctx, res, i, fill)
		}
	}
	return res, nil
}

func dispatchDrop(ctx *Context, left, right value.Value, glyph byte) (value.Value, error) {
	if value.IsBoxed(left) {
		return 0, ierr.New(ierr.Rank, glyph)
	}
	x := int(value.ToInt32(left))
	abs := x
	fromEnd := x < 0
	if fromEnd {
		abs = -x
	}
	tag, srcN := srcElements(right)
	n := srcN - abs
	if n < 0 {
		n = 0
	}
	res, err := ctx.Handles.AllocArray(tag, n)
	if err != nil {
		return 0, err
	}
	start := 0
	if !fromEnd {
		start = srcN - n // drop first `abs`, keep the trailing n
	}
	for i := 0; i < n; i++ {
		writeScalarInto(ctx, res, i, elementAt(ctx, right, start+i))
	}
	return res, nil
}

// ---------------------------------------------------------------------
// Sqrt / Exp
// ---------------------------------------------------------------------

func dispatchSqrt(ctx *Context, v value.Value, glyph byte) (value.Value, error) {
	if !value.IsBoxed(v) {
		d := make([]float32, 1)
		if !kernel.SqrtFloat(d, []float32{value.ToFloat32(v)}) {
			return 0, ierr.New(ierr.Domain, glyph)
		}
		return value.MakeAtomFloat(d[0]), nil
	}
	n := value.Count(v)
	res, err := ctx.Handles.AllocArray(value.TagFloat, n)
	if err != nil {
		return 0, err
	}
	src := floatOperand(ctx, v, n)
	if !kernel.SqrtFloat(kernel.FloatView(ctx.Handles.Bytes(res), n), src) {
		ctx.Handles.Release(res)
		return 0, ierr.New(ierr.Domain, glyph)
	}
	return res, nil
}

func dispatchExp(ctx *Context, v value.Value) (value.Value, error) {
	if !value.IsBoxed(v) {
		return value.MakeAtomFloat(kernel.ExpFloatScalar(value.ToFloat32(v))), nil
	}
	n := value.Count(v)
	res, err := ctx.Handles.AllocArray(value.TagFloat, n)
	if err != nil {
		return 0, err
	}
	kernel.ExpFloat(kernel.FloatView(ctx.Handles.Bytes(res), n), floatOperand(ctx, v, n))
	return res, nil
}

// ---------------------------------------------------------------------
// Cast
// ---------------------------------------------------------------------

func dispatchCast(ctx *Context, left, right value.Value, glyph byte) (value.Value, error) {
	if value.IsBoxed(left) || value.ElementTag(left) != value.TagSymbol {
		return 0, ierr.New(ierr.Type, glyph)
	}
	sym := value.AsSymbol(left)
	var targetTag uint64
	switch sym[0] {
	case 'i':
		targetTag = value.TagInt
	case 'f':
		targetTag = value.TagFloat
	case 'b':
		targetTag = value.TagByte
	case 't': // bit ("truth")
		targetTag = value.TagBit
	default:
		return 0, ierr.New(ierr.Domain, glyph)
	}
	if !value.IsBoxed(right) {
		switch targetTag {
		case value.TagInt:
			return value.MakeAtomInt(value.ToInt32(right)), nil
		case value.TagFloat:
			return value.MakeAtomFloat(value.ToFloat32(right)), nil
		case value.TagByte:
			return value.MakeAtomByte(byte(value.ToInt32(right))), nil
		default:
			return value.MakeAtomBit(uint64(uint32(value.ToInt32(right))) & 1), nil
		}
	}
	n := value.Count(right)
	res, err := ctx.Handles.AllocArray(targetTag, n)
	if err != nil {
		return 0, err
	}
	srcTag := value.ElementTag(right)
	switch {
	case targetTag == value.TagFloat && srcTag == value.TagInt:
		kernel.IntToFloat(kernel.FloatView(ctx.Handles.Bytes(res), n), kernel.IntView(ctx.Handles.Bytes(right), n))
	case targetTag == value.TagInt && srcTag == value.TagFloat:
		kernel.FloatToInt(kernel.IntView(ctx.Handles.Bytes(res), n), kernel.FloatView(ctx.Handles.Bytes(right), n))
	case targetTag == value.TagInt && srcTag == value.TagByte:
		kernel.ByteToInt(kernel.IntView(ctx.Handles.Bytes(res), n), ctx.Handles.Bytes(right)[:n])
	case targetTag == value.TagByte && srcTag == value.TagInt:
		kernel.IntToByte(ctx.Handles.Bytes(res)[:n], kernel.IntView(ctx.Handles.Bytes(right), n))
	case targetTag == value.TagBit && srcTag == value.TagInt:
		kernel.BitPack(ctx.Handles.Bytes(res), kernel.IntView(ctx.Handles.Bytes(right), n))
	case targetTag == value.TagInt && srcTag == value.TagBit:
		kernel.BitUnpack(kernel.IntView(ctx.Handles.Bytes(res), n), ctx.Handles.Bytes(right), n)
	default:
		ctx.Handles.Release(res)
		return 0, ierr.New(ierr.NYI, glyph)
	}
	return res, nil
}

// ---------------------------------------------------------------------
// Gather
// ---------------------------------------------------------------------

func dispatchGather(ctx *Context, left, right value.Value, glyph byte) (value.Value, error) {
	if !value.IsBoxed(left) {
		return 0, ierr.New(ierr.Rank, glyph)
	}
	srcTag := value.ElementTag(left)
	srcN := value.Count(left)
	if !value.IsBoxed(right) {
		i := value.ToInt32(right)
		if i < 0 || int(i) >= srcN {
			return 0, ierr.New(ierr.Index, glyph)
		}
		return elementAt(ctx, left, int(i)), nil
	}
	if value.ElementTag(right) != value.TagInt {
		return 0, ierr.New(ierr.Type, glyph)
	}
	idxN := value.Count(right)
	idx := kernel.IntView(ctx.Handles.Bytes(right), idxN)
	res, err := ctx.Handles.AllocArray(srcTag, idxN)
	if err != nil {
		return 0, err
	}
	ok := true
	switch srcTag {
	case value.TagFloat:
		ok = kernel.GatherFloat(kernel.FloatView(ctx.Handles.Bytes(res), idxN), kernel.FloatView(ctx.Handles.Bytes(left), srcN), idx)
	case value.TagInt, value.TagSymbol:
		ok = kernel.GatherInt(kernel.IntView(ctx.Handles.Bytes(res), idxN), kernel.IntView(ctx.Handles.Bytes(left), srcN), idx)
	default:
		ctx.Handles.Release(res)
		return 0, ierr.New(ierr.NYI, glyph)
	}
	if !ok {
		ctx.Handles.Release(res)
		return 0, ierr.New(ierr.Index, glyph)
	}
	return res, nil
}

// ---------------------------------------------------------------------
// MatMul / dot product
// ---------------------------------------------------------------------

func dispatchMatMul(ctx *Context, left, right value.Value, glyph byte) (value.Value, error) {
	if !value.IsBoxed(left) || !value.IsBoxed(right) {
		return 0, ierr.New(ierr.Rank, glyph)
	}
	if value.ElementTag(left) != value.TagFloat || value.ElementTag(right) != value.TagFloat {
		return 0, ierr.New(ierr.Type, glyph)
	}
	lRows, rRows := value.Rows(left), value.Rows(right)
	lN, rN := value.Count(left), value.Count(right)

	switch {
	case lRows == 0 && rRows == 0: // vector . vector -> dot product
		if lN != rN {
			return 0, ierr.New(ierr.Length, glyph)
		}
		return value.MakeAtomFloat(kernel.DotFloat(kernel.FloatView(ctx.Handles.Bytes(left), lN), kernel.FloatView(ctx.Handles.Bytes(right), rN))), nil
	case lRows > 0 && rRows == 0: // matrix . vector
		cols := lN / lRows
		if cols != rN {
			return 0, ierr.New(ierr.Length, glyph)
		}
		res, err := ctx.Handles.AllocArray(value.TagFloat, lRows)
		if err != nil {
			return 0, err
		}
		kernel.MatVec(kernel.FloatView(ctx.Handles.Bytes(res), lRows), kernel.FloatView(ctx.Handles.Bytes(left), lN), kernel.FloatView(ctx.Handles.Bytes(right), rN), lRows, cols)
		return res, nil
	case lRows == 0 && rRows > 0: // vector . matrix
		cols := rN / rRows
		if lN != rRows {
			return 0, ierr.New(ierr.Length, glyph)
		}
		res, err := ctx.Handles.AllocArray(value.TagFloat, cols)
		if err != nil {
			return 0, err
		}
		kernel.VecMat(kernel.FloatView(ctx.Handles.Bytes(res), cols), kernel.FloatView(ctx.Handles.Bytes(left), lN), kernel.FloatView(ctx.Handles.Bytes(right), rN), rRows, cols)
		return res, nil
	default: // matrix . matrix
		lCols := lN / lRows
		if lCols != rRows {
			return 0, ierr.New(ierr.Length, glyph)
		}
		rCols := rN / rRows
		res, err := ctx.Handles.AllocArray(value.TagFloat, lRows*rCols)
		if err != nil {
			return 0, err
		}
		kernel.MatMul(ctx.Workers, kernel.FloatView(ctx.Handles.Bytes(res), lRows*rCols), kernel.FloatView(ctx.Handles.Bytes(left), lN), kernel.FloatView(ctx.Handles.Bytes(right), rN), lRows, lCols, rCols)
		return value.MakeBoxed(value.TagFloat, value.Handle(res), lRows*rCols, lRows, 0), nil
	}
}

// ---------------------------------------------------------------------
// Normalisation / softmax / PRNG
// ---------------------------------------------------------------------

func dispatchNorm(ctx *Context, v value.Value) (value.Value, error) {
	if !value.IsBoxed(v) || value.ElementTag(v) != value.TagFloat {
		return 0, ierr.New(ierr.Type, 0)
	}
	n := value.Count(v)
	res, err := ctx.Handles.AllocArray(value.TagFloat, n)
	if err != nil {
		return 0, err
	}
	kernel.RMSNormalize(kernel.FloatView(ctx.Handles.Bytes(res), n), kernel.FloatView(ctx.Handles.Bytes(v), n))
	return res, nil
}

func dispatchSoftmax(ctx *Context, v value.Value) (value.Value, error) {
	if !value.IsBoxed(v) || value.ElementTag(v) != value.TagFloat {
		return 0, ierr.New(ierr.Type, 0)
	}
	n := value.Count(v)
	res, err := ctx.Handles.AllocArray(value.TagFloat, n)
	if err != nil {
		return 0, err
	}
	kernel.Softmax(kernel.FloatView(ctx.Handles.Bytes(res), n), kernel.FloatView(ctx.Handles.Bytes(v), n))
	return res, nil
}

func dispatchPRNG(ctx *Context, left value.Value, hasLeft bool) (value.Value, error) {
	if hasLeft {
		ctx.rng.Seed(uint32(value.ToInt32(left)))
	}
	res, err := ctx.Handles.AllocArray(value.TagFloat, 16)
	if err != nil {
		return 0, err
	}
	ctx.rng.Next16(kernel.FloatView(ctx.Handles.Bytes(res), 16))
	return res, nil
}
