package parser

import (
	"github.com/cwbudde/go-ecma/internal/ast"
	"github.com/cwbudde/go-ecma/pkg/token"
)

// parseFunctionExpression parses a function expression at FUNCTION.
func (p *Parser) parseFunctionExpression() ast.Expression {
	return p.parseFunctionLiteral(false, false)
}

// parseFunctionLiteral parses function [name](params) { body } starting at
// FUNCTION (the async prefix, if any, was already consumed). When
// isDeclaration is set, the name binds in the enclosing scope; otherwise an
// optional name binds inside the function itself.
func (p *Parser) parseFunctionLiteral(async, isDeclaration bool) ast.Expression {
	tok := p.cur
	p.expect(token.FUNCTION)

	generator := p.accept(token.ASTERISK)

	fn := &ast.FunctionLiteral{Token: tok, Generator: generator, Async: async}

	if p.cur.IsIdentLike() {
		fn.Name = &ast.Identifier{Token: p.cur, Name: identName(p.cur)}
		p.nextToken()
	} else if isDeclaration {
		p.errorAtCur("function declaration requires a name")
		return nil
	}

	if isDeclaration && fn.Name != nil {
		p.declare(fn.Name, ast.BindFunction)
	}

	scope := p.pushScope(ast.ScopeFunction)
	scope.InGenerator = generator
	scope.InAsync = async
	defer p.popScope()

	if !isDeclaration && fn.Name != nil {
		// A named function expression binds its own name inside itself.
		if b, err := scope.Declare(fn.Name.Name, ast.BindConst); err == nil {
			fn.Name.Binding = b
		}
	}

	fn.Scope = scope
	fn.Params, fn.SimpleParams = p.parseParameters(scope)
	fn.Body = p.parseFunctionBody(fn.Params, fn.SimpleParams, scope)
	if fn.Body == nil {
		return nil
	}
	fn.Strict = scope.Strict
	p.declareImplicitArguments(scope)
	return fn
}

// declareImplicitArguments gives functions that reference arguments an
// implicit var binding, unless a parameter or declaration shadows it.
func (p *Parser) declareImplicitArguments(scope *ast.Scope) {
	if scope.UsesArguments && !scope.IsArrow && !scope.Has("arguments") {
		_, _ = scope.Declare("arguments", ast.BindVar)
	}
}

// parseMethodBody parses (params) { body } for methods, accessors, and
// class elements.
func (p *Parser) parseMethodBody(generator, async bool) *ast.FunctionLiteral {
	tok := p.cur
	fn := &ast.FunctionLiteral{Token: tok, Generator: generator, Async: async}

	scope := p.pushScope(ast.ScopeFunction)
	scope.InGenerator = generator
	scope.InAsync = async
	defer p.popScope()

	fn.Scope = scope
	fn.Params, fn.SimpleParams = p.parseParameters(scope)
	fn.Body = p.parseFunctionBody(fn.Params, fn.SimpleParams, scope)
	if fn.Body == nil {
		return nil
	}
	fn.Strict = scope.Strict
	p.declareImplicitArguments(scope)
	return fn
}

// parseParameters parses the parenthesized formal parameter list, declaring
// each binding in scope. It reports whether the list is simple (identifiers
// only).
func (p *Parser) parseParameters(scope *ast.Scope) ([]ast.Pattern, bool) {
	var params []ast.Pattern
	simple := true

	if !p.expect(token.LPAREN) {
		return params, simple
	}
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		if p.curIs(token.ELLIPSIS) {
			restTok := p.cur
			p.nextToken()
			target := p.parseBindingPattern()
			if target == nil {
				return params, simple
			}
			simple = false
			params = append(params, &ast.RestElement{Token: restTok, Target: target})
			break
		}

		pat := p.parseBindingPattern()
		if pat == nil {
			return params, simple
		}
		if _, isIdent := pat.(*ast.Identifier); !isIdent {
			simple = false
		}
		if p.curIs(token.ASSIGN) {
			assignTok := p.cur
			p.nextToken()
			def := p.parseAssignExpr()
			if def == nil {
				return params, simple
			}
			simple = false
			pat = &ast.DefaultPattern{Token: assignTok, Target: pat, Default: def}
		}
		params = append(params, pat)
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)

	p.declareParameters(params, simple, scope)
	return params, simple
}

// declareParameters declares the parameter bindings. Duplicate names are
// tolerated only for simple parameter lists in sloppy mode.
func (p *Parser) declareParameters(params []ast.Pattern, simple bool, scope *ast.Scope) {
	for _, pat := range params {
		if id, ok := pat.(*ast.Identifier); ok {
			p.checkBindingName(id)
			if b, err := scope.Declare(id.Name, ast.BindParam); err != nil {
				if simple && !scope.Strict {
					id.Binding = scope.Get(id.Name)
					continue
				}
				p.addError(id.Pos(), "duplicate parameter name %q", id.Name)
			} else {
				id.Binding = b
			}
			continue
		}
		p.declarePattern(pat, ast.BindParam)
	}
}

// parseFunctionBody parses { statements } in the given function scope. The
// body block is the function scope itself, so top-level lexical
// declarations land beside the parameters.
func (p *Parser) parseFunctionBody(params []ast.Pattern, simple bool, scope *ast.Scope) *ast.BlockStatement {
	tok := p.cur
	if !p.expect(token.LBRACE) {
		return nil
	}

	block := &ast.BlockStatement{Token: tok, Scope: scope}

	wasStrict := scope.Strict
	p.parseDirectivePrologue(&block.Statements, scope)
	if scope.Strict && !wasStrict && !simple {
		p.addError(tok.Pos, "'use strict' directive requires a simple parameter list")
	}

	savedCtx := p.ctx
	p.ctx = context{}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		if len(p.errors) > 0 {
			break
		}
	}
	p.ctx = savedCtx
	p.expect(token.RBRACE)
	return block
}

// parseArrowFromParams finishes an arrow function whose parameter cover
// expressions have been collected. The current token is ARROW.
func (p *Parser) parseArrowFromParams(tok token.Token, paramExprs []ast.Expression, rest ast.Pattern, async bool) ast.Expression {
	p.expect(token.ARROW)

	arrow := &ast.ArrowFunction{Token: tok, Async: async, SimpleParams: true}

	// Rewrite the cover expressions into binding patterns.
	for _, e := range paramExprs {
		pat, err := p.toPattern(e)
		if err != nil {
			p.addError(tok.Pos, "%s", err.Error())
			return nil
		}
		if _, ok := pat.(*ast.MemberExpression); ok {
			p.addError(tok.Pos, "invalid arrow parameter")
			return nil
		}
		if _, ok := pat.(*ast.Identifier); !ok {
			arrow.SimpleParams = false
		}
		arrow.Params = append(arrow.Params, pat)
	}
	if rest != nil {
		arrow.SimpleParams = false
		arrow.Params = append(arrow.Params, rest)
	}

	scope := p.pushScope(ast.ScopeFunction)
	scope.IsArrow = true
	scope.InAsync = async
	scope.InGenerator = false
	defer p.popScope()
	arrow.Scope = scope

	for _, pat := range arrow.Params {
		if id, ok := pat.(*ast.Identifier); ok {
			p.checkBindingName(id)
			if b, err := scope.Declare(id.Name, ast.BindParam); err != nil {
				p.addError(id.Pos(), "duplicate parameter name %q", id.Name)
			} else {
				id.Binding = b
			}
			continue
		}
		p.declarePattern(pat, ast.BindParam)
	}

	if p.curIs(token.LBRACE) {
		arrow.Body = p.parseFunctionBody(arrow.Params, arrow.SimpleParams, scope)
		if arrow.Body == nil {
			return nil
		}
	} else {
		arrow.ExprBody = p.parseAssignExpr()
		if arrow.ExprBody == nil {
			return nil
		}
	}
	return arrow
}

// parseClassExpression parses a class in expression position.
func (p *Parser) parseClassExpression() ast.Expression {
	return p.parseClassLiteral(false)
}

// parseClassLiteral parses class [name] [extends e] { elements }. Class
// bodies are always strict.
func (p *Parser) parseClassLiteral(isDeclaration bool) ast.Expression {
	tok := p.cur
	p.expect(token.CLASS)

	class := &ast.ClassLiteral{Token: tok}

	if p.cur.IsIdentLike() {
		class.Name = &ast.Identifier{Token: p.cur, Name: identName(p.cur)}
		p.nextToken()
	} else if isDeclaration {
		p.errorAtCur("class declaration requires a name")
		return nil
	}

	if isDeclaration && class.Name != nil {
		p.declare(class.Name, ast.BindClass)
	}

	scope := p.pushScope(ast.ScopeClass)
	scope.Strict = true
	defer p.popScope()
	class.Scope = scope

	if class.Name != nil {
		// The class name is visible (immutably) inside the class body.
		if b, err := scope.Declare(class.Name.Name, ast.BindConst); err == nil && class.Name.Binding == nil {
			class.Name.Binding = b
		}
	}

	if p.accept(token.EXTENDS) {
		super := p.parseExpression(CALL - 1)
		if super == nil {
			return nil
		}
		class.SuperClass = super
	}

	if !p.expect(token.LBRACE) {
		return nil
	}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		if p.accept(token.SEMICOLON) {
			continue
		}
		el := p.parseClassElement()
		if el == nil {
			return nil
		}
		class.Elements = append(class.Elements, el)
	}
	p.expect(token.RBRACE)
	return class
}

// parseClassElement parses one class member.
func (p *Parser) parseClassElement() *ast.ClassElement {
	tok := p.cur

	static := false
	if p.curIs(token.STATIC) && !p.peekIs(token.LPAREN) && !p.peekIs(token.ASSIGN) &&
		!p.peekIs(token.SEMICOLON) && !p.peekIs(token.RBRACE) {
		static = true
		p.nextToken()
	}

	kind := ast.ClassMethod
	async := false
	generator := false

	if (p.curIs(token.GET) || p.curIs(token.SET)) && p.propertyNameFollows() {
		if p.cur.Type == token.GET {
			kind = ast.ClassGetter
		} else {
			kind = ast.ClassSetter
		}
		p.nextToken()
	} else if p.curIs(token.ASYNC) && !p.peek.NewlineBefore && (p.propertyNameFollows() || p.peekIs(token.ASTERISK)) {
		async = true
		p.nextToken()
	}
	if p.curIs(token.ASTERISK) {
		generator = true
		p.nextToken()
	}

	var key ast.Expression
	computed := false
	if p.curIs(token.PRIVATE_IDENT) {
		key = &ast.PrivateName{Token: p.cur, Name: p.cur.Value}
		p.nextToken()
	} else {
		var ok bool
		key, computed, ok = p.parseClassPropertyKey()
		if !ok {
			return nil
		}
	}

	switch {
	case kind == ast.ClassGetter || kind == ast.ClassSetter:
		fn := p.parseMethodBody(false, false)
		if fn == nil {
			return nil
		}
		if kind == ast.ClassGetter && len(fn.Params) != 0 {
			p.addError(tok.Pos, "getter must have no parameters")
		}
		if kind == ast.ClassSetter && len(fn.Params) != 1 {
			p.addError(tok.Pos, "setter must have exactly one parameter")
		}
		return &ast.ClassElement{Token: tok, Kind: kind, Key: key, Value: fn, Computed: computed, Static: static}

	case p.curIs(token.LPAREN):
		fn := p.parseMethodBody(generator, async)
		if fn == nil {
			return nil
		}
		if !computed {
			if id, ok := key.(*ast.Identifier); ok && id.Name == "constructor" {
				if generator || async {
					p.addError(tok.Pos, "constructor may not be a generator or async method")
				}
			}
		}
		return &ast.ClassElement{Token: tok, Kind: ast.ClassMethod, Key: key, Value: fn, Computed: computed, Static: static}

	default:
		if generator || async {
			p.errorAtCur("expected method body")
			return nil
		}
		// Field definition.
		var init ast.Expression
		if p.accept(token.ASSIGN) {
			init = p.parseAssignExpr()
			if init == nil {
				return nil
			}
		}
		p.consumeSemicolon()
		return &ast.ClassElement{Token: tok, Kind: ast.ClassField, Key: key, Value: init, Computed: computed, Static: static}
	}
}

// parseClassPropertyKey parses a class member name.
func (p *Parser) parseClassPropertyKey() (ast.Expression, bool, bool) {
	tok := p.cur
	switch {
	case p.curIs(token.LBRACK):
		p.nextToken()
		expr := p.parseAssignExpr()
		if expr == nil {
			return nil, false, false
		}
		p.expect(token.RBRACK)
		return expr, true, true
	case p.curIs(token.STRING):
		p.nextToken()
		return &ast.StringLiteral{Token: tok, Value: tok.Value}, false, true
	case p.curIs(token.NUMBER):
		p.nextToken()
		return &ast.NumberLiteral{Token: tok, Value: tok.Num}, false, true
	case tok.IsIdentLike() || tok.Type.IsKeyword():
		p.nextToken()
		name := identName(tok)
		return &ast.Identifier{Token: tok, Name: name}, false, true
	default:
		p.errorAtCur("expected class member name, found %s", tok)
		return nil, false, false
	}
}
