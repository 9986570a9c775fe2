// Package errors provides the structured error type for the Sage
// template language.
//
// A failed parse produces exactly one TemplateError describing the
// first problem encountered in source order. There is no error
// recovery and no multi-error collection: a syntax error aborts the
// whole parse.
package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	// ClassParse covers user-facing syntax errors: unexpected tokens,
	// invalid assignment targets, malformed call arguments.
	ClassParse ErrorClass = "parse"

	// ClassAssert covers stricter contract violations that are still
	// located in user source, such as importing reserved names.
	ClassAssert ErrorClass = "assert"

	// ClassInternal marks defects in the lexer/parser contract itself.
	// These are never caused by template authors.
	ClassInternal ErrorClass = "internal"
)

// TemplateError represents any error from lexing or parsing.
type TemplateError struct {
	Class   ErrorClass `json:"class"`          // Error category
	Message string     `json:"message"`        // Human-readable message
	Line    int        `json:"line"`           // 1-based line (0 if unknown)
	File    string     `json:"file,omitempty"` // Source identifier (if known)
}

// NewSyntaxError creates a parse-class error at the given line.
func NewSyntaxError(message string, line int) *TemplateError {
	return &TemplateError{Class: ClassParse, Message: message, Line: line}
}

// NewAssertionError creates an assert-class error at the given line.
func NewAssertionError(message string, line int) *TemplateError {
	return &TemplateError{Class: ClassAssert, Message: message, Line: line}
}

// NewInternalError creates an internal-class error at the given line.
func NewInternalError(message string, line int) *TemplateError {
	return &TemplateError{Class: ClassInternal, Message: message, Line: line}
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *TemplateError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d: ", e.Line))
	}
	sb.WriteString(e.Message)

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *TemplateError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *TemplateError) WithFile(file string) *TemplateError {
	copy := *e
	copy.File = file
	return &copy
}

// IsSyntaxError returns true if this is a user-facing syntax error.
// Assertion errors count: they are a stricter subclass of syntax error.
func (e *TemplateError) IsSyntaxError() bool {
	return e.Class == ClassParse || e.Class == ClassAssert
}
