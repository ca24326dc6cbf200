package lexer

import (
	"testing"

	"github.com/kvance/go-m2cc/internal/token"
)

func collectKinds(src string) []token.Kind {
	l := New(src)
	var kinds []token.Kind
	for {
		tok := l.NextToken()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == token.EOF {
			break
		}
	}
	return kinds
}

func TestNextTokenBasic(t *testing.T) {
	input := "x = 1 + 2;\n"

	tests := []struct {
		expectedText string
		expectedKind token.Kind
	}{
		{"x", token.IDENT},
		{"=", token.ASSIGN},
		{"1", token.NUMBER},
		{"+", token.PLUS},
		{"2", token.NUMBER},
		{";", token.SEMICOLON},
		{"\n", token.NEWLINE},
		{"", token.EOF},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Kind != tt.expectedKind {
			t.Fatalf("tests[%d] - kind wrong. expected=%s, got=%s (text=%q)",
				i, tt.expectedKind, tok.Kind, tok.Text(input))
		}
		if got := tok.Text(input); got != tt.expectedText {
			t.Fatalf("tests[%d] - text wrong. expected=%q, got=%q", i, tt.expectedText, got)
		}
	}
}

func TestKeywords(t *testing.T) {
	input := "function end if elseif else while for parfor spmd switch case otherwise break continue return try catch global persistent classdef"

	expected := []token.Kind{
		token.KW_FUNCTION, token.KW_END, token.KW_IF, token.KW_ELSEIF, token.KW_ELSE,
		token.KW_WHILE, token.KW_FOR, token.KW_PARFOR, token.KW_SPMD, token.KW_SWITCH,
		token.KW_CASE, token.KW_OTHERWISE, token.KW_BREAK, token.KW_CONTINUE, token.KW_RETURN,
		token.KW_TRY, token.KW_CATCH, token.KW_GLOBAL, token.KW_PERSISTENT, token.KW_CLASSDEF,
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Kind != want {
			t.Fatalf("keyword[%d]: expected=%s, got=%s", i, want, tok.Kind)
		}
	}
}

func TestApostropheLatchTranspose(t *testing.T) {
	// After an identifier, ' is transpose; at expression start, ' opens a string.
	kinds := collectKinds("A'")
	want := []token.Kind{token.IDENT, token.TRANSPOSE, token.EOF}
	assertKinds(t, kinds, want)
}

func TestApostropheLatchString(t *testing.T) {
	kinds := collectKinds("x = 'hello'")
	want := []token.Kind{token.IDENT, token.ASSIGN, token.STRING, token.EOF}
	assertKinds(t, kinds, want)
}

func TestDotOperators(t *testing.T) {
	input := "A .* B ./ C .\\ D .^ E A.'"
	kinds := collectKinds(input)
	want := []token.Kind{
		token.IDENT, token.DOTSTAR, token.IDENT, token.DOTSLASH, token.IDENT,
		token.DOTBACKSLASH, token.IDENT, token.DOTCARET, token.IDENT,
		token.IDENT, token.DOTTRANSPOSE, token.EOF,
	}
	assertKinds(t, kinds, want)
}

func TestLineContinuation(t *testing.T) {
	input := "x = 1 + ...\n  2;"
	kinds := collectKinds(input)
	want := []token.Kind{
		token.IDENT, token.ASSIGN, token.NUMBER, token.PLUS, token.NUMBER, token.SEMICOLON, token.EOF,
	}
	assertKinds(t, kinds, want)
}

func TestBlockComment(t *testing.T) {
	input := "x = 1;\n%{\nignored\n%{\nnested\n%}\nstill ignored\n%}\ny = 2;"
	kinds := collectKinds(input)
	want := []token.Kind{
		token.IDENT, token.ASSIGN, token.NUMBER, token.SEMICOLON, token.NEWLINE,
		token.IDENT, token.ASSIGN, token.NUMBER, token.SEMICOLON, token.EOF,
	}
	assertKinds(t, kinds, want)
}

func TestNumberLiterals(t *testing.T) {
	tests := []struct {
		input string
		text  string
	}{
		{"10", "10"},
		{"10.5", "10.5"},
		{"10.*20", "10"}, // trailing dot not consumed before an operator
		{"1e10", "1e10"},
		{"1e-10", "1e-10"},
		{"1e", "1"}, // 'e' with no valid exponent backs out
	}
	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Kind != token.NUMBER {
			t.Fatalf("input %q: expected NUMBER, got %s", tt.input, tok.Kind)
		}
		if got := tok.Text(tt.input); got != tt.text {
			t.Errorf("input %q: text = %q, want %q", tt.input, got, tt.text)
		}
	}
}

func TestCountsFunctionsRequireEnd(t *testing.T) {
	l := New("function y = f(x)\n  y = x;\nend")
	for {
		tok := l.NextToken()
		if tok.Kind == token.EOF {
			break
		}
	}
	requires, ok := l.Counts().FunctionsRequireEnd()
	if !ok || !requires {
		t.Errorf("expected FunctionsRequireEnd()=(true,true), got (%v,%v)", requires, ok)
	}
}

func TestCountsFunctionsImplicitEnd(t *testing.T) {
	l := New("function y = f(x)\n  y = x;")
	for {
		tok := l.NextToken()
		if tok.Kind == token.EOF {
			break
		}
	}
	requires, ok := l.Counts().FunctionsRequireEnd()
	if !ok || requires {
		t.Errorf("expected FunctionsRequireEnd()=(false,true), got (%v,%v)", requires, ok)
	}
}

func TestIllegalCharacterRecorded(t *testing.T) {
	l := New("x = #")
	var tok token.Token
	for {
		tok = l.NextToken()
		if tok.Kind == token.EOF {
			break
		}
	}
	if len(l.Errors()) == 0 {
		t.Fatal("expected at least one lex error for '#'")
	}
}

func TestCaptureDoc(t *testing.T) {
	src := "function y = f(x)\n% Doubles the input.\n% Returns y = 2*x.\ny = 2*x;\n"
	got := CaptureDoc(src)
	want := "Doubles the input.\nReturns y = 2*x."
	if got != want {
		t.Errorf("CaptureDoc() = %q, want %q", got, want)
	}
}

func assertKinds(t *testing.T, got, want []token.Kind) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("token count mismatch: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token[%d]: got %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}
}
