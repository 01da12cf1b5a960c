package errors

import (
	"strings"
	"testing"

	"github.com/cwbudde/go-ecma/pkg/token"
)

func TestScriptErrorFormat(t *testing.T) {
	err := &ScriptError{
		Kind:    TypeError,
		Message: "x is not a function",
		Source:  "const a = 1;\nx();\n",
		File:    "demo.js",
		Pos:     token.Position{Line: 2, Column: 1},
	}

	out := err.Format(false)
	if !strings.Contains(out, "TypeError in demo.js:2:1") {
		t.Errorf("header missing: %q", out)
	}
	if !strings.Contains(out, "x();") {
		t.Errorf("source line missing: %q", out)
	}
	if !strings.Contains(out, "^") {
		t.Errorf("caret missing: %q", out)
	}
	if !strings.Contains(out, "x is not a function") {
		t.Errorf("message missing: %q", out)
	}
}

func TestScriptErrorWithoutSource(t *testing.T) {
	err := NewScriptError(ReferenceError, token.Position{Line: 3, Column: 7}, "y is not defined")
	if got := err.Error(); !strings.Contains(got, "ReferenceError") || !strings.Contains(got, "3:7") {
		t.Errorf("Error() wrong: %q", got)
	}
}

func TestStackTraceFormat(t *testing.T) {
	st := StackTrace{
		{FunctionName: "inner", FileName: "a.js", Pos: token.Position{Line: 2, Column: 3}},
		{FunctionName: "", Pos: token.Position{Line: 9, Column: 1}},
	}
	out := st.String()
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 frames, got %d: %q", len(lines), out)
	}
	if !strings.Contains(lines[0], "at inner (a.js:2:3)") {
		t.Errorf("frame 0 wrong: %q", lines[0])
	}
	if !strings.Contains(lines[1], "<anonymous>") {
		t.Errorf("anonymous frame wrong: %q", lines[1])
	}
	if st.Top().FunctionName != "inner" {
		t.Errorf("Top() wrong: %+v", st.Top())
	}
}
