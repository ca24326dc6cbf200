package token

import "testing"

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		lexeme string
		want   Kind
	}{
		{"function", KW_FUNCTION},
		{"end", KW_END},
		{"elseif", KW_ELSEIF},
		{"parfor", KW_PARFOR},
		{"classdef", KW_CLASSDEF},
		{"x", IDENT},
		{"Function", IDENT}, // case-sensitive: not a keyword
		{"", IDENT},
	}

	for _, tt := range tests {
		if got := LookupIdent(tt.lexeme); got != tt.want {
			t.Errorf("LookupIdent(%q) = %s, want %s", tt.lexeme, got, tt.want)
		}
	}
}

func TestKindIsKeyword(t *testing.T) {
	if !KW_WHILE.IsKeyword() {
		t.Error("KW_WHILE should be a keyword")
	}
	if IDENT.IsKeyword() {
		t.Error("IDENT should not be a keyword")
	}
	if PLUS.IsKeyword() {
		t.Error("PLUS should not be a keyword")
	}
}

func TestKindString(t *testing.T) {
	if got := NUMBER.String(); got != "NUMBER" {
		t.Errorf("NUMBER.String() = %q, want %q", got, "NUMBER")
	}
	if got := Kind(-99).String(); got != "UNKNOWN" {
		t.Errorf("unmapped Kind.String() = %q, want %q", got, "UNKNOWN")
	}
}

func TestTokenText(t *testing.T) {
	src := "x = foo123"
	tok := Token{Kind: IDENT, Line: 1, Start: 4, End: 10}
	if got := tok.Text(src); got != "foo123" {
		t.Errorf("Token.Text() = %q, want %q", got, "foo123")
	}
}
