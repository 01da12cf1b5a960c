// Package errors provides error formatting for the engine: script errors
// with source context, line/column information, and visual indicators
// pointing at the failure location, plus the stack-trace types shared by
// the VM and the embedding API.
package errors

import (
	"fmt"
	"strings"

	"github.com/cwbudde/go-ecma/pkg/token"
)

// Kind is the language-level error category.
type Kind string

const (
	SyntaxError    Kind = "SyntaxError"
	ReferenceError Kind = "ReferenceError"
	TypeError      Kind = "TypeError"
	RangeError     Kind = "RangeError"
	URIError       Kind = "URIError"
	EvalError      Kind = "EvalError"
	GenericError   Kind = "Error"

	// RuntimeLimit is host-only: interrupted execution or memory caps. It
	// surfaces to embedders as a plain Error.
	RuntimeLimit Kind = "RuntimeLimit"
)

// ScriptError is an engine failure crossing the embedding boundary: kind,
// message, position, and the captured stack trace.
type ScriptError struct {
	Kind    Kind
	Message string
	Source  string
	File    string
	Pos     token.Position
	Stack   StackTrace
}

// NewScriptError creates a script error without source context.
func NewScriptError(kind Kind, pos token.Position, message string) *ScriptError {
	return &ScriptError{Kind: kind, Pos: pos, Message: message}
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s: %s (at %s)", e.Kind, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Format renders the error with source context when available. If color is
// true, ANSI color codes highlight the caret.
func (e *ScriptError) Format(color bool) string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(fmt.Sprintf("%s in %s:%d:%d\n", e.Kind, e.File, e.Pos.Line, e.Pos.Column))
	} else {
		sb.WriteString(fmt.Sprintf("%s at line %d:%d\n", e.Kind, e.Pos.Line, e.Pos.Column))
	}

	if line := e.sourceLine(e.Pos.Line); line != "" {
		lineNum := fmt.Sprintf("%4d | ", e.Pos.Line)
		sb.WriteString(lineNum)
		sb.WriteString(line)
		sb.WriteString("\n")

		col := e.Pos.Column
		if col < 1 {
			col = 1
		}
		sb.WriteString(strings.Repeat(" ", len(lineNum)+col-1))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(e.Message)
	if color {
		sb.WriteString("\033[0m")
	}

	if len(e.Stack) > 0 {
		sb.WriteString("\n")
		sb.WriteString(e.Stack.String())
	}
	return sb.String()
}

// sourceLine extracts one line from the attached source.
func (e *ScriptError) sourceLine(n int) string {
	if e.Source == "" || n < 1 {
		return ""
	}
	lines := strings.Split(e.Source, "\n")
	if n > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[n-1], "\r")
}
