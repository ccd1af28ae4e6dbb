package verb

import "testing"

func TestLookupAndGlyph(t *testing.T) {
	code, ok := Lookup('+')
	if !ok || code != Plus {
		t.Fatalf("Lookup('+') = %v, %v; want Plus, true", code, ok)
	}
	if got := Plus.Glyph(); got != '+' {
		t.Fatalf("Plus.Glyph() = %q, want '+'", got)
	}
}

func TestLookupUnknownGlyph(t *testing.T) {
	if _, ok := Lookup('Z'); ok {
		t.Fatal("Lookup('Z') should fail, no verb uses that glyph")
	}
}

func TestResolveArityEither(t *testing.T) {
	if got := Plus.ResolveArity(true); got != Dyadic {
		t.Fatalf("Plus.ResolveArity(true) = %v, want Dyadic", got)
	}
	if got := Plus.ResolveArity(false); got != Monadic {
		t.Fatalf("Plus.ResolveArity(false) = %v, want Monadic", got)
	}
}

func TestResolveArityFixed(t *testing.T) {
	if got := Not.ResolveArity(true); got != Monadic {
		t.Fatalf("Not.ResolveArity(true) = %v, want Monadic (fixed valence)", got)
	}
	if got := Less.ResolveArity(false); got != Dyadic {
		t.Fatalf("Less.ResolveArity(false) = %v, want Dyadic (fixed valence)", got)
	}
}

func TestNormUsesLetterGlyphNotSemicolon(t *testing.T) {
	// Norm must not reuse ';', which the lexer always consumes as the
	// statement separator before verb-glyph lookup ever runs.
	if got := Norm.Glyph(); got != 'N' {
		t.Fatalf("Norm.Glyph() = %q, want 'N'", got)
	}
	code, ok := Lookup('N')
	if !ok || code != Norm {
		t.Fatalf("Lookup('N') = %v, %v; want Norm, true", code, ok)
	}
}

func TestTableCoversEveryCode(t *testing.T) {
	tbl := Table()
	if len(tbl) != NumVerbs {
		t.Fatalf("Table() length = %d, want %d", len(tbl), NumVerbs)
	}
	for i, e := range tbl {
		if e.Name == "" {
			t.Fatalf("verb code %d has no table entry", i)
		}
	}
}
