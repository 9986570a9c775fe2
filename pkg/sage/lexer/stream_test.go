package lexer

import (
	"strings"
	"testing"
)

func mustTokenize(t *testing.T, source string) *Stream {
	t.Helper()
	s, err := Tokenize(source, "test.html")
	if err != nil {
		t.Fatalf("tokenize failed: %s", err)
	}
	return s
}

func TestStreamNavigation(t *testing.T) {
	s := mustTokenize(t, "{{ a + b }}")

	if !s.Test(VARIABLE_BEGIN) {
		t.Fatalf("expected VARIABLE_BEGIN, got %s", s.Current().Type)
	}
	if s.Peek().Type != NAME {
		t.Fatalf("expected peek NAME, got %s", s.Peek().Type)
	}

	tok := s.Next()
	if tok.Type != VARIABLE_BEGIN {
		t.Fatalf("Next returned %s, expected VARIABLE_BEGIN", tok.Type)
	}
	if s.Current().Type != NAME || s.Current().Literal != "a" {
		t.Fatalf("expected NAME a, got %s %q", s.Current().Type, s.Current().Literal)
	}

	s.Skip(2) // a, +
	if s.Current().Literal != "b" {
		t.Fatalf("expected b after Skip(2), got %q", s.Current().Literal)
	}
}

func TestStreamExpect(t *testing.T) {
	s := mustTokenize(t, "{{ a }}")

	if _, err := s.Expect(VARIABLE_BEGIN); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	_, err := s.Expect(INTEGER)
	if err == nil {
		t.Fatalf("expected an error for NAME where INTEGER wanted")
	}
	if !strings.Contains(err.Error(), "unexpected token 'a', expected INTEGER") {
		t.Errorf("unexpected message: %s", err)
	}
	if !strings.Contains(err.Error(), "test.html") {
		t.Errorf("error should carry filename: %s", err)
	}
}

func TestStreamExpectName(t *testing.T) {
	s := mustTokenize(t, "{% import 'x' as y %}")
	s.Skip(3) // {%, import, 'x'

	if _, err := s.ExpectName("as"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	s2 := mustTokenize(t, "{% import 'x' y %}")
	s2.Skip(3)
	if _, err := s2.ExpectName("as"); err == nil {
		t.Fatalf("expected an error for missing 'as'")
	}
}

func TestStreamEOFIsSticky(t *testing.T) {
	s := mustTokenize(t, "")
	if s.HasMore() {
		t.Fatalf("empty stream should have no tokens")
	}
	for i := 0; i < 3; i++ {
		if tok := s.Next(); tok.Type != EOF {
			t.Fatalf("expected EOF, got %s", tok.Type)
		}
	}
}

func TestTokenizeReportsErrors(t *testing.T) {
	_, err := Tokenize(`{{ "unterminated }}`, "bad.html")
	if err == nil {
		t.Fatalf("expected a lex error")
	}
	if !strings.Contains(err.Error(), "unterminated string literal") {
		t.Errorf("unexpected message: %s", err)
	}
}

func TestTokenDescribe(t *testing.T) {
	tests := []struct {
		tok      Token
		expected string
	}{
		{Token{Type: EOF}, "end of template"},
		{Token{Type: STRING, Literal: "hi"}, `"hi"`},
		{Token{Type: NAME, Literal: "foo"}, "foo"},
		{Token{Type: ADD, Literal: "+"}, "+"},
	}
	for _, tt := range tests {
		if got := tt.tok.Describe(); got != tt.expected {
			t.Errorf("Describe() = %q, want %q", got, tt.expected)
		}
	}
}
