package lexer

import "testing"

func TestAdvanceIdempotentAtEOF(t *testing.T) {
	l := New("")
	for i := 0; i < 3; i++ {
		if l.Current().Type != EOF {
			t.Fatalf("iteration %d: expected EOF, got %v", i, l.Current().Type)
		}
		if _, err := l.Advance(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestKeywordsAndPunctuators(t *testing.T) {
	src := `int main() { if (x <= 10 && y >= 1) { return x + 1; } return 0; }`
	l := New(src)
	var types []TokenType
	for l.Current().Type != EOF {
		types = append(types, l.Current().Type)
		if _, err := l.Advance(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	want := []TokenType{
		KW_INT, IDENT, LPAREN, RPAREN, LBRACE,
		KW_IF, LPAREN, IDENT, LE, INT, ANDAND, IDENT, GE, INT, RPAREN,
		LBRACE, KW_RETURN, IDENT, PLUS, INT, SEMI, RBRACE,
		KW_RETURN, INT, SEMI, RBRACE,
	}
	if len(types) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(types), len(want), types)
	}
	for i, tt := range want {
		if types[i] != tt {
			t.Fatalf("token %d: got %v, want %v", i, types[i], tt)
		}
	}
}

func TestStringLiteralKeepsEscapesRaw(t *testing.T) {
	l := New(`"hi\n\"there\""`)
	tok := l.Current()
	if tok.Type != STRING {
		t.Fatalf("expected STRING, got %v", tok.Type)
	}
	if tok.Lex != `hi\n\"there\"` {
		t.Fatalf("unexpected lexeme: %q", tok.Lex)
	}
}

func TestLonePipeIsError(t *testing.T) {
	l := New("a | b")
	for l.Current().Type != IDENT || l.Current().Lex != "a" {
		if _, err := l.Advance(); err != nil {
			t.Fatalf("unexpected error before pipe: %v", err)
		}
	}
	if _, err := l.Advance(); err == nil {
		t.Fatal("expected error for lone `|`")
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	src := "// comment\nint /* block \n comment */ x;"
	l := New(src)
	if l.Current().Type != KW_INT {
		t.Fatalf("expected KW_INT, got %v", l.Current().Type)
	}
	l.Advance()
	if l.Current().Type != IDENT || l.Current().Lex != "x" {
		t.Fatalf("expected IDENT x, got %v %q", l.Current().Type, l.Current().Lex)
	}
}

func TestNumericOverflowNotDiagnosed(t *testing.T) {
	l := New("99999999999")
	tok := l.Current()
	if tok.Type != INT {
		t.Fatalf("expected INT, got %v", tok.Type)
	}
	// No panic, no error: overflow silently wraps.
}
