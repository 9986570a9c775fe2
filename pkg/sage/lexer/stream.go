package lexer

import (
	"fmt"

	"github.com/sambeau/sage/pkg/sage/errors"
)

// Stream is the parser's read-only cursor over a fully lexed token
// slice. It supports current/peek inspection, advancing, and
// assert-and-consume, but never rewinds.
type Stream struct {
	tokens   []Token
	pos      int
	filename string
}

// Tokenize lexes the whole source up front and wraps the result in a
// Stream. Malformed input (unterminated strings or tags, stray
// characters) surfaces here as a syntax error.
func Tokenize(source, filename string) (*Stream, error) {
	l := NewWithFilename(source, filename)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == ILLEGAL {
			return nil, errors.NewSyntaxError(tok.Literal, tok.Line).WithFile(filename)
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			break
		}
	}
	return NewStream(tokens, filename), nil
}

// NewStream creates a stream over an already lexed token slice. The
// slice must end with an EOF token; one is appended if missing.
func NewStream(tokens []Token, filename string) *Stream {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != EOF {
		line := 1
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		tokens = append(tokens, Token{Type: EOF, Line: line})
	}
	return &Stream{tokens: tokens, filename: filename}
}

// Filename returns the source identifier for error reporting.
func (s *Stream) Filename() string {
	return s.filename
}

// Current returns the current token without consuming it.
func (s *Stream) Current() Token {
	return s.tokens[s.pos]
}

// Peek returns the token one past the current one without consuming.
func (s *Stream) Peek() Token {
	if s.pos+1 >= len(s.tokens) {
		return s.tokens[len(s.tokens)-1]
	}
	return s.tokens[s.pos+1]
}

// Next consumes and returns the current token.
func (s *Stream) Next() Token {
	tok := s.tokens[s.pos]
	if s.pos < len(s.tokens)-1 {
		s.pos++
	}
	return tok
}

// Skip advances past n tokens.
func (s *Stream) Skip(n int) {
	for i := 0; i < n; i++ {
		s.Next()
	}
}

// Expect consumes and returns the current token if its type matches,
// otherwise it fails with a syntax error naming the unexpected token.
func (s *Stream) Expect(t TokenType) (Token, error) {
	tok := s.Current()
	if tok.Type != t {
		msg := fmt.Sprintf("unexpected token '%s', expected %s", tok.Describe(), t)
		return tok, errors.NewSyntaxError(msg, tok.Line).WithFile(s.filename)
	}
	return s.Next(), nil
}

// ExpectName consumes and returns the current token if it is a NAME
// with the given value. Statement keywords are matched this way.
func (s *Stream) ExpectName(value string) (Token, error) {
	tok := s.Current()
	if !tok.IsName(value) {
		msg := fmt.Sprintf("unexpected token '%s', expected '%s'", tok.Describe(), value)
		return tok, errors.NewSyntaxError(msg, tok.Line).WithFile(s.filename)
	}
	return s.Next(), nil
}

// Test reports whether the current token has the given type.
func (s *Stream) Test(t TokenType) bool {
	return s.Current().Type == t
}

// TestName reports whether the current token is a NAME with the given
// value.
func (s *Stream) TestName(value string) bool {
	return s.Current().IsName(value)
}

// TestAny reports whether the current token's type is one of the given
// types.
func (s *Stream) TestAny(types ...TokenType) bool {
	for _, t := range types {
		if s.Current().Type == t {
			return true
		}
	}
	return false
}

// HasMore reports whether there are tokens left before end of input.
func (s *Stream) HasMore() bool {
	return s.Current().Type != EOF
}
