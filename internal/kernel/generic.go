package kernel

import "golang.org/x/exp/constraints"

// Numeric is the element-type constraint spanning every width verb
// dispatch (component E) widens an atomic operand to: int32 for
// bit/byte/int arrays, float32 for float arrays.
type Numeric interface {
	constraints.Integer | constraints.Float
}

// Repeat broadcasts a scalar into an n-element slice, the shape
// every scalar-array binary kernel needs when one operand is an
// atom.
func Repeat[T Numeric](x T, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = x
	}
	return out
}
