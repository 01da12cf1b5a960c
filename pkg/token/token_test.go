package token

import "testing"

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		name     string
		expected Type
	}{
		{"function", FUNCTION},
		{"return", RETURN},
		{"yield", YIELD},
		{"await", AWAIT},
		{"let", LET},
		{"static", STATIC},
		{"async", ASYNC},
		{"of", OF},
		{"foo", IDENT},
		{"undefined", IDENT}, // undefined is a global, not a keyword
		{"Function", IDENT},  // keywords are case-sensitive
	}

	for i, tt := range tests {
		if got := LookupIdent(tt.name); got != tt.expected {
			t.Errorf("tests[%d] - LookupIdent(%q) wrong. expected=%v, got=%v",
				i, tt.name, tt.expected, got)
		}
	}
}

func TestTypePredicates(t *testing.T) {
	if !NUMBER.IsLiteral() || !STRING.IsLiteral() || !TEMPLATE_TAIL.IsLiteral() {
		t.Error("literal tokens not classified as literals")
	}
	if LBRACE.IsLiteral() || FUNCTION.IsLiteral() {
		t.Error("non-literal tokens classified as literals")
	}
	if !RETURN.IsKeyword() || !AWAIT.IsKeyword() {
		t.Error("reserved words not classified as keywords")
	}
	if LET.IsKeyword() {
		t.Error("contextual keyword classified as reserved word")
	}
	if !LET.IsContextualKeyword() || !ASYNC.IsContextualKeyword() {
		t.Error("contextual keywords not classified")
	}
	if !ASSIGN.IsAssignOp() || !COALESCE_ASSIGN.IsAssignOp() || !USHR_ASSIGN.IsAssignOp() {
		t.Error("assignment operators not classified")
	}
	if EQ.IsAssignOp() || ARROW.IsAssignOp() {
		t.Error("non-assignment operators classified as assignments")
	}
}

func TestPositionString(t *testing.T) {
	p := Position{Line: 3, Column: 14, Offset: 42}
	if p.String() != "3:14" {
		t.Errorf("Position.String() wrong. expected=%q, got=%q", "3:14", p.String())
	}
}

func TestTokenString(t *testing.T) {
	tok := Token{Type: IDENT, Literal: "foo"}
	if tok.String() != `IDENT("foo")` {
		t.Errorf("Token.String() wrong. got=%q", tok.String())
	}
	tok = Token{Type: LBRACE, Literal: "{"}
	if tok.String() != "{" {
		t.Errorf("Token.String() wrong. got=%q", tok.String())
	}
}
