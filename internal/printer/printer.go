// Package printer renders a parsed program back to source text in a
// canonical form: one top-level statement per line, expressions fully
// parenthesized. Reparsing the output yields an equivalent tree, which the
// CLI's parse command and the round-trip tests rely on.
package printer

import (
	"io"
	"strings"

	"github.com/cwbudde/go-ecma/internal/ast"
)

// Print renders the program to a string.
func Print(program *ast.Program) string {
	var sb strings.Builder
	for _, stmt := range program.Statements {
		sb.WriteString(stmt.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Fprint renders the program to w.
func Fprint(w io.Writer, program *ast.Program) error {
	_, err := io.WriteString(w, Print(program))
	return err
}
