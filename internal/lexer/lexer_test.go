package lexer

import (
	"testing"

	"github.com/cwbudde/go-ecma/pkg/token"
)

func TestNextToken(t *testing.T) {
	input := `let x = 5;
x = x + 10;
`

	tests := []struct {
		expectedLiteral string
		expectedType    token.Type
	}{
		{"let", token.LET},
		{"x", token.IDENT},
		{"=", token.ASSIGN},
		{"5", token.NUMBER},
		{";", token.SEMICOLON},
		{"x", token.IDENT},
		{"=", token.ASSIGN},
		{"x", token.IDENT},
		{"+", token.PLUS},
		{"10", token.NUMBER},
		{";", token.SEMICOLON},
		{"", token.EOF},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken(token.GoalRegExp)
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%v, got=%v (literal=%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestOperators(t *testing.T) {
	input := `=== !== == != => ... ?. ?? ??= ** **= <<= >>>= &&= ||=`

	expected := []token.Type{
		token.STRICT_EQ, token.STRICT_NOT_EQ, token.EQ, token.NOT_EQ,
		token.ARROW, token.ELLIPSIS, token.QUESTION_DOT, token.COALESCE,
		token.COALESCE_ASSIGN, token.EXPONENT, token.EXPONENT_ASSIGN,
		token.SHL_ASSIGN, token.USHR_ASSIGN, token.LAND_ASSIGN,
		token.LOR_ASSIGN, token.EOF,
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken(token.GoalDiv)
		if tok.Type != want {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%v, got=%v (literal=%q)",
				i, want, tok.Type, tok.Literal)
		}
	}
}

func TestNumericLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"0", 0},
		{"123", 123},
		{"1_000_000", 1000000},
		{"123.456", 123.456},
		{".5", 0.5},
		{"1e3", 1000},
		{"1.5e-2", 0.015},
		{"0xFF", 255},
		{"0b1010", 10},
		{"0o17", 15},
		{"0755", 493}, // legacy octal
		{"08", 8},     // legacy decimal with leading zero
	}

	for i, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken(token.GoalRegExp)
		if tok.Type != token.NUMBER {
			t.Fatalf("tests[%d] (%q) - expected NUMBER, got=%v", i, tt.input, tok.Type)
		}
		if tok.Num != tt.expected {
			t.Errorf("tests[%d] (%q) - value wrong. expected=%v, got=%v",
				i, tt.input, tt.expected, tok.Num)
		}
	}
}

func TestLegacyOctalFlag(t *testing.T) {
	l := New("0755")
	tok := l.NextToken(token.GoalRegExp)
	if !tok.LegacyOctal {
		t.Error("expected LegacyOctal flag on 0755")
	}
	l = New("755")
	tok = l.NextToken(token.GoalRegExp)
	if tok.LegacyOctal {
		t.Error("unexpected LegacyOctal flag on 755")
	}
}

func TestBigIntLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"123n", "123"},
		{"0n", "0"},
		{"1_000n", "1000"},
		{"0xFFn", "0xFF"},
	}

	for i, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken(token.GoalRegExp)
		if tok.Type != token.BIGINT {
			t.Fatalf("tests[%d] (%q) - expected BIGINT, got=%v", i, tt.input, tok.Type)
		}
		if tok.Value != tt.expected {
			t.Errorf("tests[%d] (%q) - value wrong. expected=%q, got=%q",
				i, tt.input, tt.expected, tok.Value)
		}
	}
}

func TestStringLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`'hello'`, "hello"},
		{`"world"`, "world"},
		{`'it\'s'`, "it's"},
		{`"a\nb"`, "a\nb"},
		{`"\x41"`, "A"},
		{`"A"`, "A"},
		{`"\u{1F600}"`, "\U0001F600"},
		{`"\q"`, "q"}, // non-escape passes through
		{`"a\` + "\n" + `b"`, "ab"}, // line continuation
		{`''`, ""},
	}

	for i, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken(token.GoalRegExp)
		if tok.Type != token.STRING {
			t.Fatalf("tests[%d] (%q) - expected STRING, got=%v (errors=%v)",
				i, tt.input, tok.Type, l.Errors())
		}
		if tok.Value != tt.expected {
			t.Errorf("tests[%d] (%q) - value wrong. expected=%q, got=%q",
				i, tt.input, tt.expected, tok.Value)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`'abc`)
	tok := l.NextToken(token.GoalRegExp)
	if tok.Type != token.ILLEGAL {
		t.Fatalf("expected ILLEGAL, got=%v", tok.Type)
	}
	errs := l.Errors()
	if len(errs) != 1 || errs[0].Kind != UnterminatedString {
		t.Fatalf("expected one UnterminatedString error, got %v", errs)
	}
}

func TestTemplates(t *testing.T) {
	l := New("`a${x}b${y}c`")

	tok := l.NextToken(token.GoalRegExp)
	if tok.Type != token.TEMPLATE_HEAD || tok.Value != "a" {
		t.Fatalf("head wrong: %v %q", tok.Type, tok.Value)
	}
	tok = l.NextToken(token.GoalRegExp)
	if tok.Type != token.IDENT || tok.Value != "x" {
		t.Fatalf("substitution wrong: %v", tok)
	}
	tok = l.NextToken(token.GoalTemplateTail)
	if tok.Type != token.TEMPLATE_MIDDLE || tok.Value != "b" {
		t.Fatalf("middle wrong: %v %q", tok.Type, tok.Value)
	}
	tok = l.NextToken(token.GoalRegExp)
	if tok.Type != token.IDENT || tok.Value != "y" {
		t.Fatalf("substitution wrong: %v", tok)
	}
	tok = l.NextToken(token.GoalTemplateTail)
	if tok.Type != token.TEMPLATE_TAIL || tok.Value != "c" {
		t.Fatalf("tail wrong: %v %q", tok.Type, tok.Value)
	}
}

func TestTemplateNoSubstitution(t *testing.T) {
	l := New("`hi\\n`")
	tok := l.NextToken(token.GoalRegExp)
	if tok.Type != token.TEMPLATE {
		t.Fatalf("expected TEMPLATE, got=%v", tok.Type)
	}
	if tok.Value != "hi\n" {
		t.Errorf("cooked wrong: %q", tok.Value)
	}
	if tok.Raw != `hi\n` {
		t.Errorf("raw wrong: %q", tok.Raw)
	}
}

func TestTemplateMalformedEscape(t *testing.T) {
	l := New("`\\u{bad`")
	tok := l.NextToken(token.GoalRegExp)
	if tok.Type != token.TEMPLATE {
		t.Fatalf("expected TEMPLATE, got=%v", tok.Type)
	}
	if !tok.Malformed {
		t.Error("expected Malformed flag for invalid template escape")
	}
	if len(l.Errors()) != 0 {
		t.Errorf("template escape errors should be deferred to the parser, got %v", l.Errors())
	}
}

func TestRegExpVsDivision(t *testing.T) {
	// Under GoalRegExp a leading '/' starts a regex literal.
	l := New(`/ab+c/gi`)
	tok := l.NextToken(token.GoalRegExp)
	if tok.Type != token.REGEXP {
		t.Fatalf("expected REGEXP, got=%v", tok.Type)
	}
	if tok.Value != "ab+c" || tok.Flags != "gi" {
		t.Errorf("regexp payload wrong: body=%q flags=%q", tok.Value, tok.Flags)
	}

	// Under GoalDiv the same character is a division operator.
	l = New(`/ 2`)
	tok = l.NextToken(token.GoalDiv)
	if tok.Type != token.SLASH {
		t.Fatalf("expected SLASH, got=%v", tok.Type)
	}
}

func TestRegExpCharClass(t *testing.T) {
	l := New(`/[/]/`)
	tok := l.NextToken(token.GoalRegExp)
	if tok.Type != token.REGEXP || tok.Value != "[/]" {
		t.Fatalf("char class regexp wrong: %v %q", tok.Type, tok.Value)
	}
}

func TestNewlineBefore(t *testing.T) {
	input := "a\nb c /* x\ny */ d"
	l := New(input)

	tests := []struct {
		literal string
		newline bool
	}{
		{"a", false},
		{"b", true},
		{"c", false},
		{"d", true}, // multi-line comment counts as a line terminator
	}

	for i, tt := range tests {
		tok := l.NextToken(token.GoalRegExp)
		if tok.Literal != tt.literal {
			t.Fatalf("tests[%d] - literal wrong: %q", i, tok.Literal)
		}
		if tok.NewlineBefore != tt.newline {
			t.Errorf("tests[%d] (%q) - NewlineBefore expected=%v, got=%v",
				i, tt.literal, tt.newline, tok.NewlineBefore)
		}
	}
}

func TestUnicodeIdentifiers(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Δ", "Δ"},
		{"_private", "_private"},
		{"$jq", "$jq"},
		{`Abc`, "Abc"},
		{`\u{61}xy`, "axy"},
	}

	for i, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken(token.GoalRegExp)
		if tok.Type != token.IDENT {
			t.Fatalf("tests[%d] (%q) - expected IDENT, got=%v", i, tt.input, tok.Type)
		}
		if tok.Value != tt.expected {
			t.Errorf("tests[%d] (%q) - value wrong. expected=%q, got=%q",
				i, tt.input, tt.expected, tok.Value)
		}
	}
}

func TestEscapedKeywordFlagged(t *testing.T) {
	l := New(`\u0069f`)
	tok := l.NextToken(token.GoalRegExp)
	if tok.Type != token.IF {
		t.Fatalf("expected IF (decoded spelling), got=%v", tok.Type)
	}
	if !tok.HasEscape {
		t.Error("expected HasEscape on escaped keyword spelling")
	}
}

func TestPrivateIdentifier(t *testing.T) {
	l := New("#count")
	tok := l.NextToken(token.GoalRegExp)
	if tok.Type != token.PRIVATE_IDENT || tok.Value != "#count" {
		t.Fatalf("private ident wrong: %v %q", tok.Type, tok.Value)
	}
}

func TestPositions(t *testing.T) {
	l := New("a\n  bb")
	tok := l.NextToken(token.GoalRegExp)
	if tok.Pos.Line != 1 || tok.Pos.Column != 1 {
		t.Errorf("a position wrong: %v", tok.Pos)
	}
	tok = l.NextToken(token.GoalRegExp)
	if tok.Pos.Line != 2 || tok.Pos.Column != 3 {
		t.Errorf("bb position wrong: %v", tok.Pos)
	}
}

func TestSaveRestore(t *testing.T) {
	l := New("a /b/")
	_ = l.NextToken(token.GoalRegExp) // a
	st := l.Save()
	tok := l.NextToken(token.GoalDiv)
	if tok.Type != token.SLASH {
		t.Fatalf("expected SLASH, got=%v", tok.Type)
	}
	l.Restore(st)
	tok = l.NextToken(token.GoalRegExp)
	if tok.Type != token.REGEXP {
		t.Fatalf("expected REGEXP after restore, got=%v", tok.Type)
	}
}

func TestQuestionDotDigit(t *testing.T) {
	// "x?.5:y" must lex "?" then ".5", not "?.".
	l := New("?.5")
	tok := l.NextToken(token.GoalDiv)
	if tok.Type != token.QUESTION {
		t.Fatalf("expected QUESTION, got=%v", tok.Type)
	}
	tok = l.NextToken(token.GoalDiv)
	if tok.Type != token.NUMBER || tok.Num != 0.5 {
		t.Fatalf("expected NUMBER .5, got=%v %v", tok.Type, tok.Num)
	}
}
