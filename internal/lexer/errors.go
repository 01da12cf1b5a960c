package lexer

import (
	"fmt"

	"github.com/cwbudde/go-ecma/pkg/token"
)

// ErrorKind classifies a lexical failure.
type ErrorKind int

const (
	UnexpectedCharacter ErrorKind = iota
	UnterminatedString
	UnterminatedTemplate
	UnterminatedRegExp
	UnterminatedComment
	InvalidNumericLiteral
	InvalidEscape
	InvalidUTF8
)

var errorKindNames = [...]string{
	UnexpectedCharacter:   "unexpected character",
	UnterminatedString:    "unterminated string literal",
	UnterminatedTemplate:  "unterminated template literal",
	UnterminatedRegExp:    "unterminated regular expression literal",
	UnterminatedComment:   "unterminated comment",
	InvalidNumericLiteral: "invalid numeric literal",
	InvalidEscape:         "invalid escape sequence",
	InvalidUTF8:           "invalid UTF-8 encoding",
}

// String returns the human-readable name of the error kind.
func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return "unknown lexical error"
}

// Error is a single lexical error with position information.
type Error struct {
	Kind    ErrorKind
	Message string
	Pos     token.Position
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Kind)
}
