// Package verb implements the verb dispatch table: arity resolution,
// result-type computation, and kernel selection for each primitive
// opcode. A single glyph can be monadic or dyadic and dispatches to a
// different kernel per operand type and shape.
package verb

// Code is a primitive opcode in 0..31. Byte-streams carry it as
// Code+ByteBase; verb codes occupy byte values 32-95.
type Code byte

// ByteBase starts the monadic verb-application opcode range;
// DyadicByteBase is a second copy of the same codes used for dyadic
// application, since the evaluator's stack discipline needs arity
// fixed at compile time rather than re-derived from the run-time
// stack depth.
const ByteBase = 32
const DyadicByteBase = 96

// NumVerbs is the number of entries in the verb table.
const NumVerbs = int(numVerbs)

const (
	Plus Code = iota
	Minus
	Times
	Divide
	Mod
	Min
	Max
	Less
	Greater
	Equal
	Not
	Concat
	Take
	Drop
	Sqrt
	Exp
	Cast
	Gather
	MatMul
	Norm
	Softmax
	Assign
	PRNG
	numVerbs
)

// Valence: most verbs have a single fixed valence; a few are
// arity-polymorphic and resolve monadic-vs-dyadic from whether a left
// operand is present.
type Valence int

const (
	Monadic Valence = 1
	Dyadic  Valence = 2
	Either  Valence = 0 // decided by hasLeft at dispatch time
)

// Entry is one verb's dispatch table row, consulted by the \?
// meta-command and by arity resolution.
type Entry struct {
	Name    string
	Glyph   byte
	Valence Valence
}

// Norm, Softmax and PRNG have no natural ASCII operator glyph, so
// they take an uppercase letter; every scope/variable name is a
// lowercase letter, so the two alphabets never collide in the lexer.
// ';' is unusable as a glyph: the lexer always consumes it as the
// statement separator.
var table = [numVerbs]Entry{
	Plus:     {"plus", '+', Either},
	Minus:    {"minus", '-', Either},
	Times:    {"times", '*', Either},
	Divide:   {"divide", '%', Either},
	Mod:      {"mod", '!', Either},
	Min:      {"min", '&', Either},
	Max:      {"max", '|', Either},
	Less:     {"less", '<', Dyadic},
	Greater:  {"greater", '>', Dyadic},
	Equal:    {"equal", '=', Dyadic},
	Not:      {"not", '~', Monadic},
	Concat:   {"concat", ',', Either},
	Take:     {"take", '#', Either},
	Drop:     {"drop", '_', Either},
	Sqrt:     {"sqrt", '?', Monadic},
	Exp:      {"exp", '^', Monadic},
	Cast:     {"cast", '$', Either},
	Gather:   {"gather", '@', Dyadic},
	MatMul:   {"matmul", '.', Either}, // monadic '.' copies the main diagonal
	Norm:     {"norm", 'N', Monadic},
	Softmax:  {"softmax", 'S', Monadic},
	Assign:   {"assign", ':', Dyadic},
	PRNG:     {"prng", 'P', Either},
}

// Table returns the full verb table, used by the \? meta-command and
// by the lexer to recognize verb glyphs.
func Table() [numVerbs]Entry { return table }

// Lookup finds the verb code for a glyph byte, if any.
func Lookup(glyph byte) (Code, bool) {
	for i, e := range table {
		if e.Glyph == glyph {
			return Code(i), true
		}
	}
	return 0, false
}

func (c Code) Entry() Entry { return table[c] }

func (c Code) Glyph() byte { return table[c].Glyph }

// ResolveArity decides whether this call is monadic or dyadic:
// Either-valence verbs look at whether a left operand is present.
func (c Code) ResolveArity(hasLeft bool) Valence {
	v := table[c].Valence
	if v != Either {
		return v
	}
	if hasLeft {
		return Dyadic
	}
	return Monadic
}
