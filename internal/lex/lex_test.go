package lex

import "testing"

func TestTokenizeCommentLine(t *testing.T) {
	toks, err := Tokenize("/ this is a comment")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(toks) != 1 || toks[0].Kind != EOF {
		t.Fatalf("comment line tokens = %+v, want single EOF", toks)
	}
}

func TestTokenizeStrandedNumbers(t *testing.T) {
	toks, err := Tokenize("1 2 3")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(toks) != 2 || toks[0].Kind != Number {
		t.Fatalf("tokens = %+v, want one Number token + EOF", toks)
	}
	if len(toks[0].Nums) != 3 {
		t.Fatalf("stranded numbers = %d, want 3", len(toks[0].Nums))
	}
	for i, want := range []int32{1, 2, 3} {
		if toks[0].Nums[i].I != want {
			t.Fatalf("Nums[%d] = %d, want %d", i, toks[0].Nums[i].I, want)
		}
	}
}

func TestTokenizeNegativeNumberAtStart(t *testing.T) {
	toks, err := Tokenize("-5")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != Number || toks[0].Nums[0].I != -5 {
		t.Fatalf("tokens = %+v, want Number -5", toks)
	}
}

func TestTokenizeMinusAsVerbAfterIdent(t *testing.T) {
	// "x-5": minus here is a verb, not a negative-number sign, since it
	// follows an identifier rather than an operator position.
	toks, err := Tokenize("x-5")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(toks) != 4 { // Ident, Verb('-'), Number(5), EOF
		t.Fatalf("tokens = %+v, want 4 tokens", toks)
	}
	if toks[0].Kind != Ident || toks[1].Kind != Verb || toks[2].Kind != Number {
		t.Fatalf("tokens = %+v, want Ident Verb Number", toks)
	}
}

func TestTokenizeReduceAdverb(t *testing.T) {
	toks, err := Tokenize("+/")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(toks) != 2 || toks[0].Kind != Reduce || toks[0].Glyph != '+' {
		t.Fatalf("tokens = %+v, want single Reduce('+') token", toks)
	}
}

func TestTokenizeString(t *testing.T) {
	toks, err := Tokenize(`"abc"`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != String || string(toks[0].Bytes) != "abc" {
		t.Fatalf("tokens = %+v, want String abc", toks)
	}
}

func TestTokenizeUnterminatedStringErrors(t *testing.T) {
	if _, err := Tokenize(`"abc`); err == nil {
		t.Fatal("unterminated string should error")
	}
}

func TestTokenizeSymbols(t *testing.T) {
	toks, err := Tokenize("`foo`bar")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != Symbol || len(toks[0].Syms) != 2 {
		t.Fatalf("tokens = %+v, want one Symbol token with 2 names", toks)
	}
}

func TestTokenizeDoubleColon(t *testing.T) {
	toks, err := Tokenize("a::{x}")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	kinds := make([]Kind, len(toks))
	for i, tk := range toks {
		kinds[i] = tk.Kind
	}
	want := []Kind{Ident, DoubleColon, LBrace, Ident, RBrace, EOF}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
}

func TestTokenizeUnknownCharErrors(t *testing.T) {
	// 'Z' is not a verb glyph, not a lowercase scope letter, and not a
	// structural character, so it falls through to the default case.
	if _, err := Tokenize("ZZZ"); err == nil {
		t.Fatal("expected error for an unknown character sequence")
	}
}

func TestTokenizeNormVerbGlyph(t *testing.T) {
	toks, err := Tokenize("Nx")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != Verb || toks[0].Glyph != 'N' {
		t.Fatalf("tokens = %+v, want Verb('N') first", toks)
	}
}

func TestStartsPrimary(t *testing.T) {
	toks, _ := Tokenize("5")
	if !StartsPrimary(toks[0]) {
		t.Fatal("Number should start a primary expression")
	}
	toks2, _ := Tokenize(";")
	if StartsPrimary(toks2[0]) {
		t.Fatal("Semicolon should not start a primary expression")
	}
}
