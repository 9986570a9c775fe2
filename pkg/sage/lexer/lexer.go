// Package lexer turns template source text into the token stream the
// parser consumes. A template alternates between literal data and two
// kinds of tags: {{ ... }} for expressions and {% ... %} for
// statements. {# ... #} comments are skipped entirely.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer scans template source in two modes: data mode, which buffers
// literal text until the next tag opener, and expression mode, which
// tokenizes the contents of a tag until its closing delimiter.
type Lexer struct {
	filename string
	input    string

	position     int  // current position in input (points to ch)
	readPosition int  // current reading position (after ch)
	ch           byte // current character (0 == EOF)
	line         int

	inExpr bool // inside {{ }} or {% %}
	closer byte // '}' closes a variable tag, '%' closes a block tag
	depth  int  // bracket nesting inside the current tag
}

// New creates a new lexer instance
func New(input string) *Lexer {
	return NewWithFilename(input, "<input>")
}

// NewWithFilename creates a new lexer instance with a specific filename
func NewWithFilename(input, filename string) *Lexer {
	l := &Lexer{
		filename: filename,
		input:    input,
		line:     1,
	}
	l.readChar()
	return l
}

// Filename returns the source identifier the lexer was created with.
func (l *Lexer) Filename() string {
	return l.filename
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0 // NUL represents EOF
		l.position = len(l.input)
	} else {
		l.ch = l.input[l.readPosition]
		l.position = l.readPosition
		l.readPosition++
	}
}

// peekChar returns the next character without advancing
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	if l.inExpr {
		return l.nextExprToken()
	}
	return l.nextDataToken()
}

// atOpener reports whether the current position starts a tag opener
// and returns the character after the brace ('{', '%' or '#').
func (l *Lexer) atOpener() (byte, bool) {
	if l.ch != '{' {
		return 0, false
	}
	switch l.peekChar() {
	case '{', '%', '#':
		return l.peekChar(), true
	}
	return 0, false
}

// nextDataToken scans literal template text up to the next tag opener
func (l *Lexer) nextDataToken() Token {
	if l.ch == 0 {
		return Token{Type: EOF, Line: l.line}
	}

	if kind, ok := l.atOpener(); ok {
		line := l.line
		l.readChar() // consume '{'
		l.readChar() // consume second delimiter char
		switch kind {
		case '{':
			l.inExpr = true
			l.closer = '}'
			l.depth = 0
			return Token{Type: VARIABLE_BEGIN, Literal: "{{", Line: line}
		case '%':
			l.inExpr = true
			l.closer = '%'
			l.depth = 0
			return Token{Type: BLOCK_BEGIN, Literal: "{%", Line: line}
		default: // comment
			if !l.skipComment() {
				return Token{Type: ILLEGAL, Literal: "unterminated comment", Line: line}
			}
			return l.nextDataToken()
		}
	}

	var out strings.Builder
	line := l.line
	for l.ch != 0 {
		if _, ok := l.atOpener(); ok {
			break
		}
		out.WriteByte(l.ch)
		l.readChar()
	}
	return Token{Type: DATA, Literal: out.String(), Line: line}
}

// skipComment consumes input up to and including the closing #}
func (l *Lexer) skipComment() bool {
	for l.ch != 0 {
		if l.ch == '#' && l.peekChar() == '}' {
			l.readChar()
			l.readChar()
			return true
		}
		l.readChar()
	}
	return false
}

// nextExprToken tokenizes the inside of a {{ }} or {% %} tag
func (l *Lexer) nextExprToken() Token {
	l.skipWhitespace()

	if l.ch == 0 {
		return Token{Type: ILLEGAL, Literal: "unexpected end of template, expected end of tag", Line: l.line}
	}

	// closing delimiter ends expression mode, but only outside brackets
	// so that }} inside a dict literal does not close the tag
	if l.depth == 0 {
		if l.closer == '}' && l.ch == '}' && l.peekChar() == '}' {
			line := l.line
			l.readChar()
			l.readChar()
			l.inExpr = false
			return Token{Type: VARIABLE_END, Literal: "}}", Line: line}
		}
		if l.closer == '%' && l.ch == '%' && l.peekChar() == '}' {
			line := l.line
			l.readChar()
			l.readChar()
			l.inExpr = false
			return Token{Type: BLOCK_END, Literal: "%}", Line: line}
		}
	}

	var tok Token
	switch l.ch {
	case '+':
		tok = l.newToken(ADD)
	case '-':
		tok = l.newToken(SUB)
	case '*':
		if l.peekChar() == '*' {
			tok = l.newTwoCharToken(POW)
		} else {
			tok = l.newToken(MUL)
		}
	case '/':
		if l.peekChar() == '/' {
			tok = l.newTwoCharToken(FLOORDIV)
		} else {
			tok = l.newToken(DIV)
		}
	case '%':
		tok = l.newToken(MOD)
	case '~':
		tok = l.newToken(TILDE)
	case '|':
		tok = l.newToken(PIPE)
	case '=':
		if l.peekChar() == '=' {
			tok = l.newTwoCharToken(EQ)
		} else {
			tok = l.newToken(ASSIGN)
		}
	case '!':
		if l.peekChar() == '=' {
			tok = l.newTwoCharToken(NE)
		} else {
			tok = Token{Type: ILLEGAL, Literal: "unexpected character '!'", Line: l.line}
		}
	case '<':
		if l.peekChar() == '=' {
			tok = l.newTwoCharToken(LTEQ)
		} else {
			tok = l.newToken(LT)
		}
	case '>':
		if l.peekChar() == '=' {
			tok = l.newTwoCharToken(GTEQ)
		} else {
			tok = l.newToken(GT)
		}
	case '.':
		tok = l.newToken(DOT)
	case ',':
		tok = l.newToken(COMMA)
	case ':':
		tok = l.newToken(COLON)
	case ';':
		tok = l.newToken(SEMICOLON)
	case '(':
		l.depth++
		tok = l.newToken(LPAREN)
	case ')':
		l.depth--
		tok = l.newToken(RPAREN)
	case '[':
		l.depth++
		tok = l.newToken(LBRACKET)
	case ']':
		l.depth--
		tok = l.newToken(RBRACKET)
	case '{':
		l.depth++
		tok = l.newToken(LBRACE)
	case '}':
		l.depth--
		tok = l.newToken(RBRACE)
	case '"', '\'':
		return l.readString(l.ch)
	default:
		if isDigit(l.ch) {
			return l.readNumber()
		}
		if l.isIdentStart() {
			line := l.line
			ident := l.readIdentifier()
			return Token{Type: LookupIdent(ident), Literal: ident, Line: line}
		}
		tok = Token{Type: ILLEGAL, Literal: "unexpected character " + string(l.ch), Line: l.line}
	}
	l.readChar()
	return tok
}

func (l *Lexer) newToken(t TokenType) Token {
	return Token{Type: t, Literal: string(l.ch), Line: l.line}
}

// newTwoCharToken consumes the first of a two-character operator and
// leaves the second for the trailing readChar in nextExprToken
func (l *Lexer) newTwoCharToken(t TokenType) Token {
	ch := l.ch
	line := l.line
	l.readChar()
	return Token{Type: t, Literal: string(ch) + string(l.ch), Line: line}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readString reads a quoted string literal, returning its unquoted value
func (l *Lexer) readString(quote byte) Token {
	line := l.line
	l.readChar() // consume opening quote
	var out strings.Builder
	for l.ch != quote {
		if l.ch == 0 {
			return Token{Type: ILLEGAL, Literal: "unterminated string literal", Line: line}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				out.WriteByte('\n')
			case 't':
				out.WriteByte('\t')
			case 'r':
				out.WriteByte('\r')
			case '\\', '\'', '"':
				out.WriteByte(l.ch)
			case 0:
				return Token{Type: ILLEGAL, Literal: "unterminated string literal", Line: line}
			default:
				out.WriteByte('\\')
				out.WriteByte(l.ch)
			}
			l.readChar()
			continue
		}
		out.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote
	return Token{Type: STRING, Literal: out.String(), Line: line}
}

// readNumber reads an integer or float literal
func (l *Lexer) readNumber() Token {
	line := l.line
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // consume '.'
		for isDigit(l.ch) {
			l.readChar()
		}
		return Token{Type: FLOAT, Literal: l.input[start:l.position], Line: line}
	}
	return Token{Type: INTEGER, Literal: l.input[start:l.position], Line: line}
}

// isIdentStart reports whether the current character can begin an
// identifier. ASCII fast-path with UTF-8 decoding for unicode letters.
func (l *Lexer) isIdentStart() bool {
	if l.ch == '_' || ('a' <= l.ch && l.ch <= 'z') || ('A' <= l.ch && l.ch <= 'Z') {
		return true
	}
	if l.ch >= utf8.RuneSelf {
		r, _ := utf8.DecodeRuneInString(l.input[l.position:])
		return unicode.IsLetter(r)
	}
	return false
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for l.isIdentStart() || isDigit(l.ch) {
		if l.ch >= utf8.RuneSelf {
			_, size := utf8.DecodeRuneInString(l.input[l.position:])
			for i := 0; i < size; i++ {
				l.readChar()
			}
			continue
		}
		l.readChar()
	}
	return l.input[start:l.position]
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
