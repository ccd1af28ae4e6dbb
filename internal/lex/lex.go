// Package lex tokenizes one line of source into the primitives the
// compiler's recursive-descent pass needs: number/string/symbol
// literals (with APL-style adjacent-scalar stranding into one array
// token), single-letter scope/variable names, verb glyphs, the reduce
// adverb '/', and the structural bytes '(' ')' '[' ']' '{' '}' ':'
// '::' ';'.
package lex

import (
	"strconv"

	"github.com/arl-lang/arl/internal/ierr"
	"github.com/arl-lang/arl/internal/verb"
)

type Kind int

const (
	EOF Kind = iota
	Number
	String
	Symbol
	Ident
	Verb
	Reduce
	Colon
	DoubleColon
	Semicolon
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
)

// NumLit is one stranded scalar inside a Number token.
type NumLit struct {
	IsFloat bool
	I       int32
	F       float32
}

// Token is a single lexical unit. Only the fields relevant to Kind are
// populated; the rest are left zero.
type Token struct {
	Kind  Kind
	Nums  []NumLit  // Number
	Bytes []byte    // String
	Syms  [][4]byte // Symbol
	Code  verb.Code // Verb, Reduce
	Glyph byte      // Verb, Reduce, Ident
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// StartsPrimary reports whether t can begin a primary expression,
// used by the compiler to detect bare-juxtaposition function
// application: a scope identifier directly followed by another
// primary, with no verb between them, invokes that scope.
func StartsPrimary(t Token) bool {
	switch t.Kind {
	case Number, String, Symbol, Ident, LParen:
		return true
	}
	return false
}

// Tokenize lexes one line, which may hold several ';'-separated
// statements. A line whose first non-space character is '/' is a
// comment and lexes to a single EOF token.
func Tokenize(line string) ([]Token, error) {
	i := 0
	n := len(line)
	skipSpace := func() {
		for i < n && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
	}
	skipSpace()
	if i < n && line[i] == '/' {
		return []Token{{Kind: EOF}}, nil
	}

	var toks []Token
	last := Token{Kind: EOF} // sentinel: "start of input"

	for {
		skipSpace()
		if i >= n {
			break
		}
		c := line[i]

		switch {
		case c == ';':
			i++
			last = Token{Kind: Semicolon}
		case c == '(':
			i++
			last = Token{Kind: LParen}
		case c == ')':
			i++
			last = Token{Kind: RParen}
		case c == '[':
			i++
			last = Token{Kind: LBracket}
		case c == ']':
			i++
			last = Token{Kind: RBracket}
		case c == '{':
			i++
			last = Token{Kind: LBrace}
		case c == '}':
			i++
			last = Token{Kind: RBrace}
		case c == ':':
			if i+1 < n && line[i+1] == ':' {
				i += 2
				last = Token{Kind: DoubleColon}
			} else {
				i++
				last = Token{Kind: Colon}
			}
		case c == '"':
			i++
			start := i
			for i < n && line[i] != '"' {
				i++
			}
			if i >= n {
				return nil, ierr.New(ierr.Parse, 0)
			}
			b := make([]byte, i-start)
			copy(b, line[start:i])
			i++ // closing quote
			last = Token{Kind: String, Bytes: b}
		case c == '`':
			var syms [][4]byte
			for i < n && line[i] == '`' {
				i++
				start := i
				for i < n && isAlnum(line[i]) {
					i++
				}
				var sym [4]byte
				copy(sym[:], line[start:i])
				syms = append(syms, sym)
				savedI := i
				skipSpace()
				if !(i < n && line[i] == '`') {
					i = savedI
					break
				}
			}
			if len(syms) == 0 {
				return nil, ierr.New(ierr.Parse, 0)
			}
			last = Token{Kind: Symbol, Syms: syms}
		case isDigit(c) || (c == '-' && i+1 < n && isDigit(line[i+1]) && negativeOK(last)):
			var nums []NumLit
			for {
				lit, adv, err := scanNumber(line[i:])
				if err != nil {
					return nil, err
				}
				nums = append(nums, lit)
				i += adv
				savedI := i
				skipSpace()
				if i < n && (isDigit(line[i]) || (line[i] == '-' && i+1 < n && isDigit(line[i+1]))) {
					continue
				}
				i = savedI
				break
			}
			last = Token{Kind: Number, Nums: nums}
		case isLower(c):
			i++
			last = Token{Kind: Ident, Glyph: c}
		default:
			if code, ok := verb.Lookup(c); ok {
				i++
				if i < n && line[i] == '/' {
					i++
					last = Token{Kind: Reduce, Code: code, Glyph: c}
				} else {
					last = Token{Kind: Verb, Code: code, Glyph: c}
				}
			} else {
				return nil, ierr.New(ierr.Parse, c)
			}
		}
		toks = append(toks, last)
	}
	toks = append(toks, Token{Kind: EOF})
	return toks, nil
}

// negativeOK reports whether a '-' at the current position should be
// read as the sign of a numeric literal rather than the Minus verb:
// true only when the previous token left us in an operator/start
// position.
func negativeOK(last Token) bool {
	switch last.Kind {
	case EOF, Verb, Reduce, Colon, DoubleColon, Semicolon, LParen, LBracket, LBrace:
		return true
	}
	return false
}

func scanNumber(s string) (NumLit, int, error) {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	isFloat := false
	if i < len(s) && s[i] == '.' && i+1 < len(s) && isDigit(s[i+1]) {
		isFloat = true
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	text := s[:i]
	if isFloat {
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return NumLit{}, 0, ierr.New(ierr.Parse, 0)
		}
		return NumLit{IsFloat: true, F: float32(f)}, i, nil
	}
	v, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return NumLit{}, 0, ierr.New(ierr.Parse, 0)
	}
	return NumLit{I: int32(v)}, i, nil
}
