package errors

import (
	"fmt"
	"strings"

	"github.com/cwbudde/go-ecma/pkg/token"
)

// StackFrame is one frame of a captured call stack: the executing function
// and its source position derived from the bytecode's source map.
type StackFrame struct {
	FunctionName string
	FileName     string
	Pos          token.Position
}

// String formats the frame in the engine's stack trace style.
func (sf StackFrame) String() string {
	name := sf.FunctionName
	if name == "" {
		name = "<anonymous>"
	}
	if sf.Pos.Line > 0 {
		if sf.FileName != "" {
			return fmt.Sprintf("    at %s (%s:%d:%d)", name, sf.FileName, sf.Pos.Line, sf.Pos.Column)
		}
		return fmt.Sprintf("    at %s (%d:%d)", name, sf.Pos.Line, sf.Pos.Column)
	}
	return fmt.Sprintf("    at %s", name)
}

// StackTrace is a captured call stack, innermost frame first.
type StackTrace []StackFrame

// String renders the trace one frame per line.
func (st StackTrace) String() string {
	var sb strings.Builder
	for i, f := range st {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(f.String())
	}
	return sb.String()
}

// Top returns the innermost frame, or a zero frame when empty.
func (st StackTrace) Top() StackFrame {
	if len(st) == 0 {
		return StackFrame{}
	}
	return st[0]
}
