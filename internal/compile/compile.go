// Package compile turns one line of tokens into postfix
// byte-streams for internal/eval, one per ';'-separated statement.
//
// The grammar is right-to-left by construction: parseExpr recurses
// into the remainder of the token list *before* emitting the verb
// that combines with it, so the rightmost sub-expression's bytes
// always land in the stream before the verb that consumes them. A
// forward scan of the resulting bytes therefore evaluates the
// rightmost operand first, reproducing APL's right-to-left order.
// Parenthesised
// and bracketed sub-expressions fall out of the same recursion with
// no extra bytecode: parsePrimary just recurses into parseExpr again
// and splices the result in place of a plain value.
package compile

import (
	"github.com/arl-lang/arl/internal/handle"
	"github.com/arl-lang/arl/internal/ierr"
	"github.com/arl-lang/arl/internal/kernel"
	"github.com/arl-lang/arl/internal/lex"
	"github.com/arl-lang/arl/internal/scope"
	"github.com/arl-lang/arl/internal/value"
	"github.com/arl-lang/arl/internal/verb"
)

// Opcodes outside the slot range (0..31) and the two verb-apply ranges
// (32..54 monadic, 96..118 dyadic, see verb.ByteBase/DyadicByteBase).
const (
	OpAssign = 55 // followed by 1 byte: target slot
	OpReduce = 56 // followed by 1 byte: verb.Code to reduce with
	OpApply  = 57 // followed by 1 byte: callee scope index
)

// literalFloor is the lowest workspace slot the compiler may hand out
// for a pre-materialized literal. Slots below it are reserved for the
// fixed letter-to-slot variable mapping (slotOf), so a literal can
// never alias a name that's live in the same scope.
const literalFloor = scope.WorkspaceSize - 6

// Statement is one compiled ';'-separated piece of a line.
type Statement struct {
	DefineScope bool
	ScopeIndex  int
	Body        []byte // nil when DefineScope
	Quiet       bool    // true for a top-level assignment or scope definition
}

// Compiler compiles source lines against a fixed scope table,
// materializing literals directly into scope workspaces.
type Compiler struct {
	Scopes  *scope.Table
	Handles *handle.Table
}

func New(scopes *scope.Table, handles *handle.Table) *Compiler {
	return &Compiler{Scopes: scopes, Handles: handles}
}

// CompileLine splits line on top-level ';' and compiles each piece.
func (c *Compiler) CompileLine(line string) ([]Statement, error) {
	toks, err := lex.Tokenize(line)
	if err != nil {
		return nil, err
	}
	var out []Statement
	start := 0
	depth := 0
	// nextLit is threaded across every statement on this line, not reset
	// per statement: all statements on a line are compiled (and their
	// literals materialized into scope workspace slots) before any of
	// them is evaluated (see repl.evalAndPrint), so two statements each
	// claiming the same per-statement literal range would have the
	// second overwrite the first's still-unevaluated literal in place.
	nextLit := literalFloor
	for i, t := range toks {
		switch t.Kind {
		case lex.LParen, lex.LBracket, lex.LBrace:
			depth++
		case lex.RParen, lex.RBracket, lex.RBrace:
			depth--
		case lex.Semicolon, lex.EOF:
			if depth == 0 {
				piece := toks[start:i]
				if len(piece) > 0 {
					stmt, lit, err := c.compileStatement(piece, nextLit)
					if err != nil {
						return nil, err
					}
					out = append(out, stmt)
					nextLit = lit
				}
				start = i + 1
			}
		}
	}
	return out, nil
}

func (c *Compiler) compileStatement(toks []lex.Token, nextLit int) (Statement, int, error) {
	// ident :: { ... } defines a scope's body without evaluating it. Its
	// literals live in the callee scope's own workspace, independent of
	// the caller line's top-level literal range, so it always starts
	// fresh at literalFloor rather than sharing the threaded nextLit.
	if len(toks) >= 3 && toks[0].Kind == lex.Ident && toks[1].Kind == lex.DoubleColon && toks[2].Kind == lex.LBrace {
		close := matchBrace(toks, 2)
		if close < 0 {
			return Statement{}, nextLit, ierr.New(ierr.Parse, 0)
		}
		target := scope.Index(toks[0].Glyph)
		sc := c.Scopes.Scope(target)
		if sc.InUse {
			return Statement{}, nextLit, ierr.New(ierr.InUse, 0)
		}
		p := &parser{toks: toks[3:close], sc: sc, h: c.Handles, nextLit: literalFloor}
		body, err := p.parseExpr()
		if err != nil {
			return Statement{}, nextLit, err
		}
		if p.pos != len(p.toks) {
			return Statement{}, nextLit, ierr.New(ierr.Parse, 0)
		}
		if err := sc.SetBody(body); err != nil {
			return Statement{}, nextLit, err
		}
		return Statement{DefineScope: true, ScopeIndex: target, Quiet: true}, nextLit, nil
	}

	top := c.Scopes.Scope(0)
	quiet := len(toks) >= 2 && toks[0].Kind == lex.Ident && toks[1].Kind == lex.Colon
	p := &parser{toks: toks, sc: top, h: c.Handles, nextLit: nextLit}
	body, err := p.parseExpr()
	if err != nil {
		return Statement{}, nextLit, err
	}
	if p.pos != len(p.toks) {
		return Statement{}, nextLit, ierr.New(ierr.Parse, 0)
	}
	return Statement{Body: body, Quiet: quiet}, p.nextLit, nil
}

func matchBrace(toks []lex.Token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i].Kind {
		case lex.LBrace:
			depth++
		case lex.RBrace:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// slotOf maps a variable/scope letter to its fixed workspace slot.
// 'x' always names the implicit argument (slot 0, scope.ArgSlot),
// the k convention; every other letter gets its own slot in
// alphabetical order, shifted down one past 'x' to keep the mapping
// a bijection onto 0..25.
func slotOf(letter byte) byte {
	if letter == 'x' {
		return scope.ArgSlot
	}
	idx := int(letter-'a') + 1
	if letter > 'x' {
		idx--
	}
	return byte(idx)
}

type parser struct {
	toks    []lex.Token
	pos     int
	sc      *scope.Scope
	h       *handle.Table
	nextLit int
}

func (p *parser) peek() lex.Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return lex.Token{Kind: lex.EOF}
}

func (p *parser) next() lex.Token {
	t := p.peek()
	p.pos++
	return t
}

// parseExpr implements expr := ident ':' expr            (assignment)
//                       | verb expr | reduce expr         (prefix)
//                       | primary (verb expr)?            (infix)
func (p *parser) parseExpr() ([]byte, error) {
	if p.peek().Kind == lex.Ident && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Kind == lex.Colon {
		letter := p.next().Glyph
		p.next() // ':'
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return append(right, OpAssign, slotOf(letter)), nil
	}

	t := p.peek()
	if t.Kind == lex.Verb || t.Kind == lex.Reduce {
		p.pos++
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return append(right, opcodeFor(t, false)...), nil
	}

	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == lex.Verb {
		vt := p.next()
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out := append(left, right...)
		out = append(out, opcodeFor(vt, true)...)
		return out, nil
	}
	return left, nil
}

func opcodeFor(t lex.Token, dyadic bool) []byte {
	if t.Kind == lex.Reduce {
		return []byte{OpReduce, byte(t.Code)}
	}
	if dyadic {
		return []byte{verb.DyadicByteBase + byte(t.Code)}
	}
	return []byte{verb.ByteBase + byte(t.Code)}
}

// parsePrimary handles one value token plus its tightest-binding
// bracket-index and function-application suffixes; brackets bind
// tighter than verbs.
func (p *parser) parsePrimary() ([]byte, error) {
	var out []byte
	t := p.next()
	switch t.Kind {
	case lex.Number:
		slot, err := p.materializeNumber(t.Nums)
		if err != nil {
			return nil, err
		}
		out = []byte{slot}
	case lex.String:
		slot, err := p.materializeBytes(t.Bytes)
		if err != nil {
			return nil, err
		}
		out = []byte{slot}
	case lex.Symbol:
		slot, err := p.materializeSymbols(t.Syms)
		if err != nil {
			return nil, err
		}
		out = []byte{slot}
	case lex.LParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().Kind != lex.RParen {
			return nil, ierr.New(ierr.Parse, 0)
		}
		p.next()
		out = inner
	case lex.Ident:
		letter := t.Glyph
		if lex.StartsPrimary(p.peek()) {
			arg, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			out = append(arg, OpApply, byte(scope.Index(letter)))
			return p.applyBracketSuffix(out)
		}
		out = []byte{slotOf(letter)}
	default:
		return nil, ierr.New(ierr.Parse, 0)
	}
	return p.applyBracketSuffix(out)
}

func (p *parser) applyBracketSuffix(out []byte) ([]byte, error) {
	for p.peek().Kind == lex.LBracket {
		p.next()
		idx, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().Kind != lex.RBracket {
			return nil, ierr.New(ierr.Parse, 0)
		}
		p.next()
		out = append(out, idx...)
		out = append(out, verb.DyadicByteBase+byte(verb.Gather))
	}
	return out, nil
}

// allocLit hands out the next free literal slot for the statement
// currently being compiled. Only the top literalFloor..WorkspaceSize-1
// slots are ever used for literals, so they can never alias a named
// variable's fixed slot (slotOf); a statement needing more literals
// than that reserved range holds is rejected at compile time.
//
// Every line recompiles against the same fixed set of literal slots
// (literalFloor..WorkspaceSize-1 in scope 0), so a slot handed out here
// almost always already holds a boxed value materialized by some
// earlier line. Releasing it before handing the slot back out is what
// keeps those 256-entry-table handles from leaking one per literal
// array ever typed at the REPL.
func (p *parser) allocLit() (byte, error) {
	if p.nextLit >= scope.WorkspaceSize {
		return 0, ierr.New(ierr.Parse, 0)
	}
	slot := p.nextLit
	p.nextLit++
	p.h.Release(p.sc.Vars[slot])
	p.sc.Vars[slot] = 0
	return byte(slot), nil
}

func (p *parser) materializeNumber(nums []lex.NumLit) (byte, error) {
	slot, err := p.allocLit()
	if err != nil {
		return 0, err
	}
	if len(nums) == 1 {
		n := nums[0]
		if n.IsFloat {
			p.sc.Vars[slot] = value.MakeAtomFloat(n.F)
		} else {
			p.sc.Vars[slot] = value.MakeAtomInt(n.I)
		}
		return slot, nil
	}
	anyFloat := false
	for _, n := range nums {
		if n.IsFloat {
			anyFloat = true
		}
	}
	tag := uint64(value.TagInt)
	if anyFloat {
		tag = value.TagFloat
	}
	arr, err := p.h.AllocArray(tag, len(nums))
	if err != nil {
		return 0, err
	}
	buf := p.h.Bytes(arr)
	if anyFloat {
		dst := kernel.FloatView(buf, len(nums))
		for i, n := range nums {
			if n.IsFloat {
				dst[i] = n.F
			} else {
				dst[i] = float32(n.I)
			}
		}
	} else {
		dst := kernel.IntView(buf, len(nums))
		for i, n := range nums {
			dst[i] = n.I
		}
	}
	p.sc.Vars[slot] = arr
	return slot, nil
}

func (p *parser) materializeBytes(b []byte) (byte, error) {
	slot, err := p.allocLit()
	if err != nil {
		return 0, err
	}
	arr, err := p.h.AllocArray(value.TagByte, len(b))
	if err != nil {
		return 0, err
	}
	copy(p.h.Bytes(arr), b)
	p.sc.Vars[slot] = arr
	return slot, nil
}

func (p *parser) materializeSymbols(syms [][4]byte) (byte, error) {
	slot, err := p.allocLit()
	if err != nil {
		return 0, err
	}
	if len(syms) == 1 {
		p.sc.Vars[slot] = value.MakeAtomSymbol(syms[0])
		return slot, nil
	}
	arr, err := p.h.AllocArray(value.TagSymbol, len(syms))
	if err != nil {
		return 0, err
	}
	buf := p.h.Bytes(arr)
	for i, s := range syms {
		buf[i*4+0], buf[i*4+1], buf[i*4+2], buf[i*4+3] = s[0], s[1], s[2], s[3]
	}
	p.sc.Vars[slot] = arr
	return slot, nil
}
