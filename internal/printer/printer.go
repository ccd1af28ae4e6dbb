// Package printer implements the display formatter: dispatch on
// value shape to produce the text the REPL writes to standard
// output, with fixed-width truncation and five-significant-digit
// float formatting.
package printer

import (
	"strconv"
	"strings"

	"github.com/arl-lang/arl/internal/handle"
	"github.com/arl-lang/arl/internal/kernel"
	"github.com/arl-lang/arl/internal/value"
)

// maxWidth is where array output truncates with '..'.
const maxWidth = 191

// Format renders v for display, consulting h to read a boxed value's
// backing buffer.
func Format(h *handle.Table, v value.Value) string {
	if !value.IsBoxed(v) {
		return formatAtom(v)
	}
	return truncate(formatBoxed(h, v))
}

func truncate(s string) string {
	if len(s) <= maxWidth {
		return s
	}
	return s[:maxWidth] + ".."
}

func formatAtom(v value.Value) string {
	switch value.ElementTag(v) {
	case value.TagFloat:
		return formatFloat(value.AsFloat(v))
	case value.TagSymbol:
		return formatSymbol(value.AsSymbol(v))
	case value.TagBit:
		return strconv.FormatUint(value.AsBit(v), 10)
	case value.TagByte:
		return strconv.Itoa(int(value.AsByte(v)))
	default:
		return strconv.FormatInt(int64(value.AsInt(v)), 10)
	}
}

func formatSymbol(s [4]byte) string {
	n := 0
	for n < 4 && s[n] != 0 {
		n++
	}
	return "`" + string(s[:n])
}

// formatBoxed dispatches on a boxed array's element tag: a byte
// array displays verbatim as a string if every byte is printable; a
// symbol array lists backtick-prefixed names; a mixed array recurses
// per element; everything else lists scalar elements
// space-separated.
func formatBoxed(h *handle.Table, v value.Value) string {
	n := value.Count(v)
	tag := value.ElementTag(v)

	switch tag {
	case value.TagMixed:
		e := h.Entry(v)
		parts := make([]string, len(e.Elements))
		for i, el := range e.Elements {
			parts[i] = Format(h, el)
		}
		return strings.Join(parts, " ")
	case value.TagByte:
		buf := kernel.ByteView(h.Bytes(v), n)
		if printable(buf) {
			return string(buf)
		}
		parts := make([]string, n)
		for i, b := range buf {
			parts[i] = strconv.Itoa(int(b))
		}
		return strings.Join(parts, " ")
	case value.TagSymbol:
		words := kernel.IntView(h.Bytes(v), n)
		parts := make([]string, n)
		for i, w := range words {
			u := uint32(w)
			parts[i] = formatSymbol([4]byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)})
		}
		return strings.Join(parts, " ")
	case value.TagFloat:
		vals := kernel.FloatView(h.Bytes(v), n)
		parts := make([]string, n)
		for i, f := range vals {
			parts[i] = formatFloat(f)
		}
		return strings.Join(parts, " ")
	case value.TagBit:
		parts := make([]string, n)
		for i := 0; i < n; i++ {
			parts[i] = strconv.FormatUint(kernel.BitGet(h.Bytes(v), i), 10)
		}
		return strings.Join(parts, " ")
	default: // int
		vals := kernel.IntView(h.Bytes(v), n)
		parts := make([]string, n)
		for i, x := range vals {
			parts[i] = strconv.FormatInt(int64(x), 10)
		}
		return strings.Join(parts, " ")
	}
}

func printable(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			return false
		}
	}
	return true
}

// pow10 is the precomputed table of 40 powers of ten used for
// mantissa scaling during float formatting.
var pow10 [40]float64

func init() {
	p := 1.0
	for i := range pow10 {
		pow10[i] = p
		p *= 10
	}
}

// formatFloat prints five significant digits, switching to
// scientific notation outside a narrow range: values whose decimal
// exponent falls within [-4, 9) print fixed-point with trailing
// zeros trimmed; everything else uses scientific notation at the
// same precision. The mantissa is normalized into [1,10) against the
// pow10 table rather than a log10 call.
func formatFloat(f float32) string {
	x := float64(f)
	if x != x { // NaN
		return "nan"
	}
	if x == 0 {
		return "0"
	}
	neg := x < 0
	if neg {
		x = -x
	}

	mantissa, exp := normalizeMantissa(x)
	// Five significant digits: round the mantissa to 4 decimal places,
	// which can carry it to 10.000 and bump the exponent.
	mantissa = roundTo(mantissa, 4)
	if mantissa >= 10 {
		mantissa /= 10
		exp++
	}

	var s string
	if exp >= -4 && exp < 9 {
		digitsAfterPoint := 4 - exp
		if digitsAfterPoint < 0 {
			digitsAfterPoint = 0
		}
		s = trimTrailingZeros(strconv.FormatFloat(shiftDecimal(mantissa, exp), 'f', digitsAfterPoint, 64))
	} else {
		mant := trimTrailingZeros(strconv.FormatFloat(mantissa, 'f', 4, 64))
		sign := "+"
		e := exp
		if e < 0 {
			sign = "-"
			e = -e
		}
		s = mant + "e" + sign + strconv.Itoa(e)
	}
	if neg {
		s = "-" + s
	}
	return s
}

// normalizeMantissa reduces x to a value in [1,10) using the pow10
// table, returning the mantissa and its decimal exponent.
func normalizeMantissa(x float64) (float64, int) {
	exp := 0
	for x >= 10 {
		x /= 10
		exp++
	}
	for x < 1 {
		x *= 10
		exp--
	}
	return x, exp
}

func shiftDecimal(mantissa float64, exp int) float64 {
	if exp >= 0 {
		if exp < len(pow10) {
			return mantissa * pow10[exp]
		}
		return mantissa * pow10[len(pow10)-1]
	}
	if -exp < len(pow10) {
		return mantissa / pow10[-exp]
	}
	return mantissa / pow10[len(pow10)-1]
}

func roundTo(x float64, decimals int) float64 {
	scale := pow10[decimals]
	return float64(int64(x*scale+0.5)) / scale
}

func trimTrailingZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
