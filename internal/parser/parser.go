// Package parser implements the ECMAScript parser: recursive descent with
// one-token lookahead, Pratt-style expression precedence, cover-grammar
// rewriting for arrow parameters and destructuring, and compile-time scope
// construction with early-error checking.
//
// The parser publishes a lexical goal symbol to the lexer before every
// token, per the grammar's InputElement productions; a "/" therefore lexes
// as a regular expression exactly where the grammar allows one. The saved
// lexer state lets the parser re-lex the current token under a different goal
// when a template literal resumes after a substitution.
package parser

import (
	"fmt"

	"github.com/cwbudde/go-ecma/internal/ast"
	"github.com/cwbudde/go-ecma/internal/lexer"
	"github.com/cwbudde/go-ecma/pkg/token"
)

// Precedence levels for operators (lowest to highest).
const (
	LOWEST int = iota + 1
	COMMA      // ,
	ASSIGN     // = += -= ...
	COND       // ?:
	NULLISH    // ??
	LOR        // ||
	LAND       // &&
	BOR        // |
	BXOR       // ^
	BAND       // &
	EQUALITY   // == != === !==
	RELATIONAL // < > <= >= in instanceof
	SHIFT      // << >> >>>
	SUM        // + -
	PRODUCT    // * / %
	EXPO       // ** (right associative)
	UNARY      // ! ~ + - typeof void delete await
	POSTFIX    // x++ x--
	CALL       // f(...) new.target a.b a[b] a`t`
)

// precedences maps token types to their infix precedence levels.
var precedences = map[token.Type]int{
	token.COMMA:           COMMA,
	token.QUESTION:        COND,
	token.COALESCE:        NULLISH,
	token.LOGICAL_OR:      LOR,
	token.LOGICAL_AND:     LAND,
	token.BIT_OR:          BOR,
	token.BIT_XOR:         BXOR,
	token.BIT_AND:         BAND,
	token.EQ:              EQUALITY,
	token.NOT_EQ:          EQUALITY,
	token.STRICT_EQ:       EQUALITY,
	token.STRICT_NOT_EQ:   EQUALITY,
	token.LESS:            RELATIONAL,
	token.GREATER:         RELATIONAL,
	token.LESS_EQ:         RELATIONAL,
	token.GREATER_EQ:      RELATIONAL,
	token.IN:              RELATIONAL,
	token.INSTANCEOF:      RELATIONAL,
	token.SHL:             SHIFT,
	token.SHR:             SHIFT,
	token.USHR:            SHIFT,
	token.PLUS:            SUM,
	token.MINUS:           SUM,
	token.ASTERISK:        PRODUCT,
	token.SLASH:           PRODUCT,
	token.PERCENT:         PRODUCT,
	token.EXPONENT:        EXPO,
	token.INC:             POSTFIX,
	token.DEC:             POSTFIX,
	token.LPAREN:          CALL,
	token.LBRACK:          CALL,
	token.DOT:             CALL,
	token.QUESTION_DOT:    CALL,
	token.TEMPLATE:        CALL,
	token.TEMPLATE_HEAD:   CALL,
	token.ASSIGN:          ASSIGN,
	token.PLUS_ASSIGN:     ASSIGN,
	token.MINUS_ASSIGN:    ASSIGN,
	token.ASTERISK_ASSIGN: ASSIGN,
	token.SLASH_ASSIGN:    ASSIGN,
	token.PERCENT_ASSIGN:  ASSIGN,
	token.EXPONENT_ASSIGN: ASSIGN,
	token.SHL_ASSIGN:      ASSIGN,
	token.SHR_ASSIGN:      ASSIGN,
	token.USHR_ASSIGN:     ASSIGN,
	token.AND_ASSIGN:      ASSIGN,
	token.OR_ASSIGN:       ASSIGN,
	token.XOR_ASSIGN:      ASSIGN,
	token.LAND_ASSIGN:     ASSIGN,
	token.LOR_ASSIGN:      ASSIGN,
	token.COALESCE_ASSIGN: ASSIGN,
}

// Error is a syntax error with position information.
type Error struct {
	Message string
	Pos     token.Position
}

func (e *Error) Error() string {
	return fmt.Sprintf("SyntaxError: %s:%s: %s", "", e.Pos, e.Message)
}

// prefixParseFn parses a prefix form starting at the current token.
type prefixParseFn func() ast.Expression

// infixParseFn parses an infix form given the already-parsed left operand.
type infixParseFn func(ast.Expression) ast.Expression

// flags tracking the statement context for early errors.
type context struct {
	inIteration bool
	inSwitch    bool
	labels      []string
	iterLabels  []string // labels usable by continue
}

// Parser parses one Program.
type Parser struct {
	l      *lexer.Lexer
	errors []*Error

	cur  token.Token
	peek token.Token

	// curState and peekState are the lexer states immediately before cur
	// and peek were lexed, allowing either to be re-lexed under a different
	// goal (a "}" resuming a template literal).
	curState  lexer.State
	peekState lexer.State

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn

	scope *ast.Scope
	ctx   context

	// parens records expressions that were explicitly parenthesized, which
	// licenses mixing ?? with && / || and exempts ** operands.
	parens map[ast.Expression]bool

	sourceKind ast.SourceKind

	// noIn suppresses the "in" operator while parsing a for-statement
	// header.
	noIn bool
}

// New creates a parser over the lexer for a classic script.
func New(l *lexer.Lexer) *Parser {
	return newParser(l, ast.ScriptSource, false)
}

// NewModule creates a parser with the module goal symbol: module code is
// always strict and allows top-level import/export.
func NewModule(l *lexer.Lexer) *Parser {
	return newParser(l, ast.ModuleSource, true)
}

// NewStrict creates a script parser whose code starts out strict, as for a
// host with a strict-mode default.
func NewStrict(l *lexer.Lexer) *Parser {
	return newParser(l, ast.ScriptSource, true)
}

func newParser(l *lexer.Lexer, kind ast.SourceKind, strict bool) *Parser {
	p := &Parser{
		l:          l,
		sourceKind: kind,
	}
	if kind == ast.ModuleSource {
		p.scope = ast.NewScope(nil, ast.ScopeModule)
	} else {
		p.scope = ast.NewScope(nil, ast.ScopeGlobal)
		p.scope.Strict = strict
	}

	p.parens = make(map[ast.Expression]bool)
	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.infixParseFns = make(map[token.Type]infixParseFn)
	p.registerParseFns()

	// Prime cur and peek.
	p.curState = p.l.Save()
	p.cur = p.l.NextToken(token.GoalRegExp)
	p.peekState = p.l.Save()
	p.peek = p.l.NextToken(p.goalAfter(p.cur))
	return p
}

// Errors returns the accumulated syntax errors, including lexical errors.
func (p *Parser) Errors() []*Error {
	errs := make([]*Error, 0, len(p.errors)+len(p.l.Errors()))
	for _, le := range p.l.Errors() {
		errs = append(errs, &Error{Message: le.Error(), Pos: le.Pos})
	}
	return append(errs, p.errors...)
}

// addError records a syntax error at the given position.
func (p *Parser) addError(pos token.Position, format string, args ...any) {
	p.errors = append(p.errors, &Error{
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	})
}

func (p *Parser) errorAtCur(format string, args ...any) {
	p.addError(p.cur.Pos, format, args...)
}

// goalAfter computes the lexical goal for the token following tok: after a
// token that can end an expression operand, "/" is division; anywhere else
// it starts a regular expression.
func (p *Parser) goalAfter(tok token.Token) token.Goal {
	switch tok.Type {
	case token.IDENT, token.NUMBER, token.BIGINT, token.STRING, token.REGEXP,
		token.TEMPLATE, token.TEMPLATE_TAIL, token.RPAREN, token.RBRACK,
		token.THIS, token.SUPER, token.TRUE, token.FALSE, token.NULL,
		token.INC, token.DEC, token.PRIVATE_IDENT:
		return token.GoalDiv
	default:
		if tok.Type.IsContextualKeyword() {
			return token.GoalDiv
		}
		return token.GoalRegExp
	}
}

// nextToken advances the token window.
func (p *Parser) nextToken() {
	p.cur = p.peek
	p.curState = p.peekState
	p.peekState = p.l.Save()
	p.peek = p.l.NextToken(p.goalAfter(p.cur))
}

// relexCur re-lexes the current token under a different goal and refreshes
// the lookahead behind it.
func (p *Parser) relexCur(goal token.Goal) {
	p.l.Restore(p.curState)
	p.cur = p.l.NextToken(goal)
	p.peekState = p.l.Save()
	p.peek = p.l.NextToken(p.goalAfter(p.cur))
}

// relexPeek re-lexes the lookahead token under a different goal.
func (p *Parser) relexPeek(goal token.Goal) {
	p.l.Restore(p.peekState)
	p.peek = p.l.NextToken(goal)
}

// save captures the full parser state for speculative parsing.
type state struct {
	cur        token.Token
	peek       token.Token
	curState   lexer.State
	peekState  lexer.State
	lexerState lexer.State
	errorCount int
}

func (p *Parser) save() state {
	return state{
		cur:        p.cur,
		peek:       p.peek,
		curState:   p.curState,
		peekState:  p.peekState,
		lexerState: p.l.Save(),
		errorCount: len(p.errors),
	}
}

func (p *Parser) restore(s state) {
	p.cur = s.cur
	p.peek = s.peek
	p.curState = s.curState
	p.peekState = s.peekState
	p.l.Restore(s.lexerState)
	p.errors = p.errors[:s.errorCount]
}

func (p *Parser) curIs(t token.Type) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peek.Type == t }

// accept consumes the current token if it has the given type.
func (p *Parser) accept(t token.Type) bool {
	if p.curIs(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token, reporting an error if it does not have
// the given type.
func (p *Parser) expect(t token.Type) bool {
	if p.curIs(t) {
		p.nextToken()
		return true
	}
	p.errorAtCur("expected %s, found %s", t, p.cur)
	return false
}

// consumeSemicolon implements automatic semicolon insertion: an absent
// semicolon is inserted before "}", at EOF, or after a line terminator.
func (p *Parser) consumeSemicolon() {
	if p.accept(token.SEMICOLON) {
		return
	}
	if p.curIs(token.RBRACE) || p.curIs(token.EOF) || p.cur.NewlineBefore {
		return
	}
	p.errorAtCur("missing semicolon before %s", p.cur)
}

// markUsesArguments records an arguments reference on the nearest
// non-arrow function scope, which owns the arguments object.
func (p *Parser) markUsesArguments() {
	s := p.scope.Function
	for s != nil && s.IsArrow && s.Outer != nil {
		s = s.Outer.Function
	}
	if s != nil {
		s.UsesArguments = true
	}
}

func (p *Parser) markParenthesized(e ast.Expression) { p.parens[e] = true }

func (p *Parser) isParenthesized(e ast.Expression) bool { return p.parens[e] }

// pushScope opens a nested scope of the given kind.
func (p *Parser) pushScope(kind ast.ScopeKind) *ast.Scope {
	p.scope = ast.NewScope(p.scope, kind)
	return p.scope
}

func (p *Parser) popScope() {
	p.scope = p.scope.Outer
}

// declare introduces a binding into the current scope, reporting duplicate
// declarations and strict-mode restricted names.
func (p *Parser) declare(name *ast.Identifier, kind ast.BindingKind) *ast.Binding {
	p.checkBindingName(name)
	var (
		b   *ast.Binding
		err error
	)
	if kind == ast.BindVar {
		b, err = p.scope.DeclareVar(name.Name, kind)
	} else if kind == ast.BindFunction && p.scope == p.scope.Function {
		b, err = p.scope.DeclareVar(name.Name, kind)
	} else {
		b, err = p.scope.Declare(name.Name, kind)
	}
	if err != nil {
		p.addError(name.Pos(), "%s", err.Error())
		return nil
	}
	if p.scope.Kind == ast.ScopeGlobal || p.scope.Kind == ast.ScopeModule {
		// Top-level bindings live in the global/module environment, never
		// in registers.
		b.MarkEscapes()
	}
	name.Binding = b
	return b
}

// checkBindingName reports the strict-mode restricted binding names and the
// contextual keywords that may never bind in their governing context.
func (p *Parser) checkBindingName(name *ast.Identifier) {
	switch name.Name {
	case "eval", "arguments":
		if p.scope.Strict {
			p.addError(name.Pos(), "cannot bind %q in strict mode", name.Name)
		}
	case "yield":
		if p.scope.Strict || p.scope.InGenerator {
			p.addError(name.Pos(), "cannot bind %q here", name.Name)
		}
	case "await":
		if p.scope.InAsync || p.sourceKind == ast.ModuleSource {
			p.addError(name.Pos(), "cannot bind %q here", name.Name)
		}
	case "let":
		if p.scope.Strict {
			p.addError(name.Pos(), "cannot bind %q in strict mode", name.Name)
		}
	}
}

// ParseProgram parses the whole input and resolves identifier references.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{
		Scope: p.scope,
		Kind:  p.sourceKind,
	}

	p.parseDirectivePrologue(&program.Statements, p.scope)
	program.Strict = p.scope.Strict

	for !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		if len(p.errors) > 0 {
			// Recovery beyond a single error is not attempted.
			break
		}
	}

	if len(p.errors) == 0 {
		resolve(program)
	}
	return program
}

// parseDirectivePrologue consumes leading string-literal expression
// statements, handling the "use strict" directive.
func (p *Parser) parseDirectivePrologue(out *[]ast.Statement, scope *ast.Scope) {
	for p.curIs(token.STRING) {
		// A directive is a string literal followed by a statement
		// terminator, with nothing else in the expression.
		switch p.peek.Type {
		case token.SEMICOLON, token.RBRACE, token.EOF:
		default:
			if !p.peek.NewlineBefore {
				return
			}
		}
		tok := p.cur
		if tok.Literal == `"use strict"` || tok.Literal == `'use strict'` {
			scope.Strict = true
		}
		p.nextToken()
		p.consumeSemicolon()
		lit := &ast.StringLiteral{Token: tok, Value: tok.Value}
		*out = append(*out, &ast.ExpressionStatement{Token: tok, Expression: lit})
	}
}
