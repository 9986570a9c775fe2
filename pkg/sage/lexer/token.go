package lexer

import "fmt"

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Template structure
	DATA           // literal template text between tags
	VARIABLE_BEGIN // {{
	VARIABLE_END   // }}
	BLOCK_BEGIN    // {%
	BLOCK_END      // %}

	// Identifiers and literals
	NAME    // foo, items — also true/false/none and soft keywords like 'as'
	INTEGER // 42
	FLOAT   // 3.14
	STRING  // "foo" or 'foo', Literal holds the unquoted text

	// Operators
	ADD      // +
	SUB      // -
	MUL      // *
	DIV      // /
	FLOORDIV // //
	MOD      // %
	POW      // **
	TILDE    // ~ (string concatenation)
	PIPE     // | (filter application)
	ASSIGN   // =
	EQ       // ==
	NE       // !=
	LT       // <
	LTEQ     // <=
	GT       // >
	GTEQ     // >=

	// Delimiters
	DOT       // .
	COMMA     // ,
	COLON     // :
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	LBRACE    // {
	RBRACE    // }

	// Keywords
	AND       // "and"
	OR        // "or"
	NOT       // "not"
	IF        // "if"
	ELIF      // "elif"
	ELSE      // "else"
	ENDIF     // "endif"
	FOR       // "for"
	ENDFOR    // "endfor"
	IN        // "in"
	IS        // "is"
	BLOCK     // "block"
	ENDBLOCK  // "endblock"
	EXTENDS   // "extends"
	INCLUDE   // "include"
	IMPORT    // "import"
	FROM      // "from"
	MACRO     // "macro"
	ENDMACRO  // "endmacro"
	CALL      // "call"
	ENDCALL   // "endcall"
	FILTER    // "filter"
	ENDFILTER // "endfilter"
	PRINT     // "print"
)

// keywords maps reserved identifier spellings to their token types.
// true/false/none and 'as' are deliberately absent: they stay NAME
// tokens and the parser matches them by value, so they remain usable
// where the grammar allows.
var keywords = map[string]TokenType{
	"and":       AND,
	"or":        OR,
	"not":       NOT,
	"if":        IF,
	"elif":      ELIF,
	"else":      ELSE,
	"endif":     ENDIF,
	"for":       FOR,
	"endfor":    ENDFOR,
	"in":        IN,
	"is":        IS,
	"block":     BLOCK,
	"endblock":  ENDBLOCK,
	"extends":   EXTENDS,
	"include":   INCLUDE,
	"import":    IMPORT,
	"from":      FROM,
	"macro":     MACRO,
	"endmacro":  ENDMACRO,
	"call":      CALL,
	"endcall":   ENDCALL,
	"filter":    FILTER,
	"endfilter": ENDFILTER,
	"print":     PRINT,
}

// LookupIdent returns the keyword token type for an identifier, or
// NAME if it is not a keyword.
func LookupIdent(ident string) TokenType {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return NAME
}

// Token represents a single token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %s, Line: %d}", t.Type.String(), t.Literal, t.Line)
}

// IsName reports whether the token is a NAME with the given value.
// Soft keywords like "as" are matched this way.
func (t Token) IsName(value string) bool {
	return t.Type == NAME && t.Literal == value
}

var tokenNames = map[TokenType]string{
	ILLEGAL:        "ILLEGAL",
	EOF:            "EOF",
	DATA:           "DATA",
	VARIABLE_BEGIN: "VARIABLE_BEGIN",
	VARIABLE_END:   "VARIABLE_END",
	BLOCK_BEGIN:    "BLOCK_BEGIN",
	BLOCK_END:      "BLOCK_END",
	NAME:           "NAME",
	INTEGER:        "INTEGER",
	FLOAT:          "FLOAT",
	STRING:         "STRING",
	ADD:            "ADD",
	SUB:            "SUB",
	MUL:            "MUL",
	DIV:            "DIV",
	FLOORDIV:       "FLOORDIV",
	MOD:            "MOD",
	POW:            "POW",
	TILDE:          "TILDE",
	PIPE:           "PIPE",
	ASSIGN:         "ASSIGN",
	EQ:             "EQ",
	NE:             "NE",
	LT:             "LT",
	LTEQ:           "LTEQ",
	GT:             "GT",
	GTEQ:           "GTEQ",
	DOT:            "DOT",
	COMMA:          "COMMA",
	COLON:          "COLON",
	SEMICOLON:      "SEMICOLON",
	LPAREN:         "LPAREN",
	RPAREN:         "RPAREN",
	LBRACKET:       "LBRACKET",
	RBRACKET:       "RBRACKET",
	LBRACE:         "LBRACE",
	RBRACE:         "RBRACE",
	AND:            "AND",
	OR:             "OR",
	NOT:            "NOT",
	IF:             "IF",
	ELIF:           "ELIF",
	ELSE:           "ELSE",
	ENDIF:          "ENDIF",
	FOR:            "FOR",
	ENDFOR:         "ENDFOR",
	IN:             "IN",
	IS:             "IS",
	BLOCK:          "BLOCK",
	ENDBLOCK:       "ENDBLOCK",
	EXTENDS:        "EXTENDS",
	INCLUDE:        "INCLUDE",
	IMPORT:         "IMPORT",
	FROM:           "FROM",
	MACRO:          "MACRO",
	ENDMACRO:       "ENDMACRO",
	CALL:           "CALL",
	ENDCALL:        "ENDCALL",
	FILTER:         "FILTER",
	ENDFILTER:      "ENDFILTER",
	PRINT:          "PRINT",
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return "UNKNOWN"
}

// Describe returns a human-readable description of the token for error
// messages: "end of template" for EOF, the literal for names and
// operators, a quoted form for strings.
func (t Token) Describe() string {
	switch t.Type {
	case EOF:
		return "end of template"
	case DATA:
		return "template data"
	case STRING:
		return fmt.Sprintf("%q", t.Literal)
	default:
		return t.Literal
	}
}
