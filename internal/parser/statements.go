package parser

import (
	"github.com/cwbudde/go-ecma/internal/ast"
	"github.com/cwbudde/go-ecma/pkg/token"
)

// parseStatement dispatches on the current token.
func (p *Parser) parseStatement() ast.Statement {
	switch p.cur.Type {
	case token.LBRACE:
		return p.parseBlockStatement()
	case token.VAR:
		return p.parseVariableStatement(ast.DeclVar)
	case token.CONST:
		return p.parseVariableStatement(ast.DeclConst)
	case token.LET:
		// "let" is a declaration only when followed by a binding form;
		// otherwise it is an ordinary identifier expression.
		if p.peek.IsIdentLike() || p.peekIs(token.LBRACK) || p.peekIs(token.LBRACE) ||
			p.peekIs(token.YIELD) || p.peekIs(token.AWAIT) {
			return p.parseVariableStatement(ast.DeclLet)
		}
		return p.parseExpressionStatement()
	case token.SEMICOLON:
		tok := p.cur
		p.nextToken()
		return &ast.EmptyStatement{Token: tok}
	case token.IF:
		return p.parseIfStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.DO:
		return p.parseDoWhileStatement()
	case token.SWITCH:
		return p.parseSwitchStatement()
	case token.BREAK:
		return p.parseBreakStatement()
	case token.CONTINUE:
		return p.parseContinueStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.THROW:
		return p.parseThrowStatement()
	case token.TRY:
		return p.parseTryStatement()
	case token.FUNCTION:
		return p.parseFunctionDeclaration(false)
	case token.CLASS:
		return p.parseClassDeclaration()
	case token.ASYNC:
		if p.peekIs(token.FUNCTION) && !p.peek.NewlineBefore {
			p.nextToken()
			return p.parseFunctionDeclaration(true)
		}
		return p.parseExpressionStatement()
	case token.WITH:
		return p.parseWithStatement()
	case token.DEBUGGER:
		tok := p.cur
		p.nextToken()
		p.consumeSemicolon()
		return &ast.DebuggerStatement{Token: tok}
	case token.IMPORT:
		if p.peekIs(token.LPAREN) || p.peekIs(token.DOT) {
			return p.parseExpressionStatement()
		}
		return p.parseImportDeclaration()
	case token.EXPORT:
		return p.parseExportDeclaration()
	default:
		if p.cur.IsIdentLike() && p.peekIs(token.COLON) {
			return p.parseLabeledStatement()
		}
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	tok := p.cur
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	p.consumeSemicolon()
	return &ast.ExpressionStatement{Token: tok, Expression: expr}
}

// parseBlockStatement parses { ... } introducing a lexical scope.
func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	tok := p.cur
	if !p.expect(token.LBRACE) {
		return nil
	}

	scope := p.pushScope(ast.ScopeBlock)
	defer p.popScope()

	block := &ast.BlockStatement{Token: tok, Scope: scope}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		if len(p.errors) > 0 {
			break
		}
	}
	p.expect(token.RBRACE)
	return block
}

// parseVariableStatement parses a var/let/const declaration statement.
func (p *Parser) parseVariableStatement(kind ast.DeclarationKind) ast.Statement {
	stmt := p.parseVariableDeclaration(kind)
	if stmt == nil {
		return nil
	}
	p.consumeSemicolon()
	return stmt
}

// parseVariableDeclaration parses the declaration list without consuming
// the terminator, for reuse in for-statement headers.
func (p *Parser) parseVariableDeclaration(kind ast.DeclarationKind) *ast.VariableStatement {
	tok := p.cur
	p.nextToken() // consume var/let/const

	stmt := &ast.VariableStatement{Token: tok, Kind: kind}
	for {
		target := p.parseBindingPattern()
		if target == nil {
			return nil
		}
		p.declareDeclarator(target, kind)

		d := &ast.Declarator{Target: target}
		if p.accept(token.ASSIGN) {
			d.Init = p.parseAssignExpr()
			if d.Init == nil {
				return nil
			}
		} else {
			if kind == ast.DeclConst {
				p.addError(target.Pos(), "const declaration requires an initializer")
			}
			if _, isIdent := target.(*ast.Identifier); !isIdent {
				p.addError(target.Pos(), "destructuring declaration requires an initializer")
			}
		}
		stmt.Declarators = append(stmt.Declarators, d)
		if !p.accept(token.COMMA) {
			break
		}
	}
	return stmt
}

func (p *Parser) declareDeclarator(target ast.Pattern, kind ast.DeclarationKind) {
	bindKind := ast.BindVar
	switch kind {
	case ast.DeclLet:
		bindKind = ast.BindLet
	case ast.DeclConst:
		bindKind = ast.BindConst
	}
	p.declarePattern(target, bindKind)
}

func (p *Parser) parseIfStatement() ast.Statement {
	tok := p.cur
	p.nextToken()
	if !p.expect(token.LPAREN) {
		return nil
	}
	test := p.parseExpression(LOWEST)
	if test == nil {
		return nil
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	cons := p.parseStatement()
	if cons == nil {
		return nil
	}
	stmt := &ast.IfStatement{Token: tok, Test: test, Consequent: cons}
	if p.accept(token.ELSE) {
		stmt.Alternate = p.parseStatement()
		if stmt.Alternate == nil {
			return nil
		}
	}
	return stmt
}

// parseForStatement disambiguates the three for forms: classic three-clause,
// for-in, and for-of (plus for await ... of).
func (p *Parser) parseForStatement() ast.Statement {
	tok := p.cur
	p.nextToken()

	isAwait := false
	if p.curIs(token.AWAIT) {
		if !p.scope.InAsync && p.sourceKind != ast.ModuleSource {
			p.errorAtCur("'for await' is only allowed inside async functions")
		}
		isAwait = true
		p.nextToken()
	}

	if !p.expect(token.LPAREN) {
		return nil
	}

	// The header scope holds per-iteration lexical bindings.
	scope := p.pushScope(ast.ScopeBlock)
	defer p.popScope()

	inIteration := p.ctx.inIteration
	p.ctx.inIteration = true
	defer func() { p.ctx.inIteration = inIteration }()

	// Empty init: "for (;;)".
	if p.curIs(token.SEMICOLON) {
		if isAwait {
			p.errorAtCur("'for await' requires an of clause")
		}
		p.nextToken()
		return p.parseClassicForRest(tok, nil, scope)
	}

	switch p.cur.Type {
	case token.VAR, token.CONST:
		return p.parseForWithDeclaration(tok, scope, isAwait)
	case token.LET:
		if p.peek.IsIdentLike() || p.peekIs(token.LBRACK) || p.peekIs(token.LBRACE) {
			return p.parseForWithDeclaration(tok, scope, isAwait)
		}
	}

	// Expression-initialized form: for (expr ...), for (target in/of ...).
	p.noIn = true
	initExpr := p.parseExpression(LOWEST)
	p.noIn = false
	if initExpr == nil {
		return nil
	}

	switch {
	case p.curIs(token.IN):
		target, err := p.toPattern(initExpr)
		if err != nil {
			p.addError(tok.Pos, "%s", err.Error())
			return nil
		}
		p.nextToken()
		return p.parseForInRest(tok, target, false, ast.DeclVar, scope)
	case p.curIs(token.OF):
		target, err := p.toPattern(initExpr)
		if err != nil {
			p.addError(tok.Pos, "%s", err.Error())
			return nil
		}
		p.nextToken()
		return p.parseForOfRest(tok, target, false, ast.DeclVar, scope, isAwait)
	default:
		if isAwait {
			p.errorAtCur("'for await' requires an of clause")
		}
		init := &ast.ExpressionStatement{Token: tok, Expression: initExpr}
		if !p.expect(token.SEMICOLON) {
			return nil
		}
		return p.parseClassicForRest(tok, init, scope)
	}
}

// parseForWithDeclaration handles for headers that start with var/let/const.
func (p *Parser) parseForWithDeclaration(tok token.Token, scope *ast.Scope, isAwait bool) ast.Statement {
	kind := ast.DeclVar
	switch p.cur.Type {
	case token.LET:
		kind = ast.DeclLet
	case token.CONST:
		kind = ast.DeclConst
	}

	declTok := p.cur
	p.nextToken()
	target := p.parseBindingPattern()
	if target == nil {
		return nil
	}

	switch {
	case p.curIs(token.IN):
		p.declareDeclarator(target, kind)
		p.nextToken()
		return p.parseForInRest(tok, target, true, kind, scope)
	case p.curIs(token.OF):
		p.declareDeclarator(target, kind)
		p.nextToken()
		return p.parseForOfRest(tok, target, true, kind, scope, isAwait)
	default:
		if isAwait {
			p.errorAtCur("'for await' requires an of clause")
		}
		// Rewind-free classic path: continue the declaration list from the
		// already-parsed first declarator.
		p.declareDeclarator(target, kind)
		stmt := &ast.VariableStatement{Token: declTok, Kind: kind}
		d := &ast.Declarator{Target: target}
		if p.accept(token.ASSIGN) {
			p.noIn = true
			d.Init = p.parseAssignExpr()
			p.noIn = false
			if d.Init == nil {
				return nil
			}
		} else if kind == ast.DeclConst {
			p.addError(target.Pos(), "const declaration requires an initializer")
		}
		stmt.Declarators = append(stmt.Declarators, d)
		for p.accept(token.COMMA) {
			t2 := p.parseBindingPattern()
			if t2 == nil {
				return nil
			}
			p.declareDeclarator(t2, kind)
			d2 := &ast.Declarator{Target: t2}
			if p.accept(token.ASSIGN) {
				p.noIn = true
				d2.Init = p.parseAssignExpr()
				p.noIn = false
				if d2.Init == nil {
					return nil
				}
			} else if kind == ast.DeclConst {
				p.addError(t2.Pos(), "const declaration requires an initializer")
			}
			stmt.Declarators = append(stmt.Declarators, d2)
		}
		if !p.expect(token.SEMICOLON) {
			return nil
		}
		return p.parseClassicForRest(tok, stmt, scope)
	}
}

func (p *Parser) parseClassicForRest(tok token.Token, init ast.Statement, scope *ast.Scope) ast.Statement {
	stmt := &ast.ForStatement{Token: tok, Init: init, Scope: scope}

	if !p.curIs(token.SEMICOLON) {
		stmt.Test = p.parseExpression(LOWEST)
		if stmt.Test == nil {
			return nil
		}
	}
	if !p.expect(token.SEMICOLON) {
		return nil
	}
	if !p.curIs(token.RPAREN) {
		stmt.Update = p.parseExpression(LOWEST)
		if stmt.Update == nil {
			return nil
		}
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	stmt.Body = p.parseStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseForInRest(tok token.Token, target ast.Pattern, decl bool, kind ast.DeclarationKind, scope *ast.Scope) ast.Statement {
	object := p.parseExpression(LOWEST)
	if object == nil {
		return nil
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	body := p.parseStatement()
	if body == nil {
		return nil
	}
	return &ast.ForInStatement{Token: tok, Kind: kind, Decl: decl, Target: target, Object: object, Body: body, Scope: scope}
}

func (p *Parser) parseForOfRest(tok token.Token, target ast.Pattern, decl bool, kind ast.DeclarationKind, scope *ast.Scope, isAwait bool) ast.Statement {
	iterable := p.parseAssignExpr()
	if iterable == nil {
		return nil
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	body := p.parseStatement()
	if body == nil {
		return nil
	}
	return &ast.ForOfStatement{Token: tok, Kind: kind, Decl: decl, Target: target, Iterable: iterable, Body: body, Await: isAwait, Scope: scope}
}

func (p *Parser) parseWhileStatement() ast.Statement {
	tok := p.cur
	p.nextToken()
	if !p.expect(token.LPAREN) {
		return nil
	}
	test := p.parseExpression(LOWEST)
	if test == nil {
		return nil
	}
	if !p.expect(token.RPAREN) {
		return nil
	}

	inIteration := p.ctx.inIteration
	p.ctx.inIteration = true
	body := p.parseStatement()
	p.ctx.inIteration = inIteration
	if body == nil {
		return nil
	}
	return &ast.WhileStatement{Token: tok, Test: test, Body: body}
}

func (p *Parser) parseDoWhileStatement() ast.Statement {
	tok := p.cur
	p.nextToken()

	inIteration := p.ctx.inIteration
	p.ctx.inIteration = true
	body := p.parseStatement()
	p.ctx.inIteration = inIteration
	if body == nil {
		return nil
	}

	if !p.expect(token.WHILE) {
		return nil
	}
	if !p.expect(token.LPAREN) {
		return nil
	}
	test := p.parseExpression(LOWEST)
	if test == nil {
		return nil
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	// The semicolon after do-while is always insertable.
	p.accept(token.SEMICOLON)
	return &ast.DoWhileStatement{Token: tok, Body: body, Test: test}
}

func (p *Parser) parseSwitchStatement() ast.Statement {
	tok := p.cur
	p.nextToken()
	if !p.expect(token.LPAREN) {
		return nil
	}
	disc := p.parseExpression(LOWEST)
	if disc == nil {
		return nil
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	if !p.expect(token.LBRACE) {
		return nil
	}

	scope := p.pushScope(ast.ScopeBlock)
	defer p.popScope()

	inSwitch := p.ctx.inSwitch
	p.ctx.inSwitch = true
	defer func() { p.ctx.inSwitch = inSwitch }()

	stmt := &ast.SwitchStatement{Token: tok, Discriminant: disc, Scope: scope}
	seenDefault := false
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		caseTok := p.cur
		c := &ast.SwitchCase{Token: caseTok}
		if p.accept(token.CASE) {
			c.Test = p.parseExpression(LOWEST)
			if c.Test == nil {
				return nil
			}
		} else if p.accept(token.DEFAULT) {
			if seenDefault {
				p.addError(caseTok.Pos, "multiple default clauses in switch")
			}
			seenDefault = true
		} else {
			p.errorAtCur("expected 'case' or 'default', found %s", p.cur)
			return nil
		}
		if !p.expect(token.COLON) {
			return nil
		}
		for !p.curIs(token.CASE) && !p.curIs(token.DEFAULT) &&
			!p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
			s := p.parseStatement()
			if s != nil {
				c.Body = append(c.Body, s)
			}
			if len(p.errors) > 0 {
				return stmt
			}
		}
		stmt.Cases = append(stmt.Cases, c)
	}
	p.expect(token.RBRACE)
	return stmt
}

func (p *Parser) parseBreakStatement() ast.Statement {
	tok := p.cur
	p.nextToken()
	stmt := &ast.BreakStatement{Token: tok}
	if p.cur.IsIdentLike() && !p.cur.NewlineBefore {
		stmt.Label = &ast.Identifier{Token: p.cur, Name: identName(p.cur)}
		if !p.hasLabel(stmt.Label.Name, false) {
			p.addError(stmt.Label.Pos(), "undefined label %q", stmt.Label.Name)
		}
		p.nextToken()
	} else if !p.ctx.inIteration && !p.ctx.inSwitch {
		p.addError(tok.Pos, "illegal break statement")
	}
	p.consumeSemicolon()
	return stmt
}

func (p *Parser) parseContinueStatement() ast.Statement {
	tok := p.cur
	p.nextToken()
	stmt := &ast.ContinueStatement{Token: tok}
	if p.cur.IsIdentLike() && !p.cur.NewlineBefore {
		stmt.Label = &ast.Identifier{Token: p.cur, Name: identName(p.cur)}
		if !p.hasLabel(stmt.Label.Name, true) {
			p.addError(stmt.Label.Pos(), "undefined continue label %q", stmt.Label.Name)
		}
		p.nextToken()
	}
	if !p.ctx.inIteration {
		p.addError(tok.Pos, "illegal continue statement")
	}
	p.consumeSemicolon()
	return stmt
}

func (p *Parser) hasLabel(name string, iterationOnly bool) bool {
	set := p.ctx.labels
	if iterationOnly {
		set = p.ctx.iterLabels
	}
	for _, l := range set {
		if l == name {
			return true
		}
	}
	return false
}

func (p *Parser) parseReturnStatement() ast.Statement {
	tok := p.cur
	if !p.scope.InFunction {
		p.errorAtCur("'return' outside of function")
	}
	p.nextToken()

	stmt := &ast.ReturnStatement{Token: tok}
	// [no LineTerminator here] restriction.
	if !p.cur.NewlineBefore && !p.curIs(token.SEMICOLON) &&
		!p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		stmt.Argument = p.parseExpression(LOWEST)
		if stmt.Argument == nil {
			return nil
		}
	}
	p.consumeSemicolon()
	return stmt
}

func (p *Parser) parseThrowStatement() ast.Statement {
	tok := p.cur
	p.nextToken()
	if p.cur.NewlineBefore {
		p.errorAtCur("illegal newline after throw")
		return nil
	}
	arg := p.parseExpression(LOWEST)
	if arg == nil {
		return nil
	}
	p.consumeSemicolon()
	return &ast.ThrowStatement{Token: tok, Argument: arg}
}

func (p *Parser) parseTryStatement() ast.Statement {
	tok := p.cur
	p.nextToken()

	if !p.curIs(token.LBRACE) {
		p.errorAtCur("expected block after try")
		return nil
	}
	block := p.parseBlockStatement()
	if block == nil {
		return nil
	}

	stmt := &ast.TryStatement{Token: tok, Block: block}

	if p.accept(token.CATCH) {
		scope := p.pushScope(ast.ScopeCatch)
		stmt.CatchScope = scope
		if p.accept(token.LPAREN) {
			param := p.parseBindingPattern()
			if param == nil {
				p.popScope()
				return nil
			}
			p.declarePattern(param, ast.BindCatchParam)
			stmt.CatchParam = param
			if !p.expect(token.RPAREN) {
				p.popScope()
				return nil
			}
		}
		if !p.curIs(token.LBRACE) {
			p.errorAtCur("expected block after catch")
			p.popScope()
			return nil
		}
		stmt.Handler = p.parseBlockStatement()
		p.popScope()
		if stmt.Handler == nil {
			return nil
		}
	}

	if p.accept(token.FINALLY) {
		if !p.curIs(token.LBRACE) {
			p.errorAtCur("expected block after finally")
			return nil
		}
		stmt.Finalizer = p.parseBlockStatement()
		if stmt.Finalizer == nil {
			return nil
		}
	}

	if stmt.Handler == nil && stmt.Finalizer == nil {
		p.addError(tok.Pos, "try statement requires catch or finally")
	}
	return stmt
}

func (p *Parser) parseLabeledStatement() ast.Statement {
	labelTok := p.cur
	label := &ast.Identifier{Token: labelTok, Name: identName(labelTok)}
	if p.hasLabel(label.Name, false) {
		p.addError(labelTok.Pos, "duplicate label %q", label.Name)
	}
	p.nextToken() // label
	p.nextToken() // colon

	p.ctx.labels = append(p.ctx.labels, label.Name)
	iterBody := false
	switch p.cur.Type {
	case token.FOR, token.WHILE, token.DO:
		iterBody = true
		p.ctx.iterLabels = append(p.ctx.iterLabels, label.Name)
	}

	body := p.parseStatement()

	p.ctx.labels = p.ctx.labels[:len(p.ctx.labels)-1]
	if iterBody {
		p.ctx.iterLabels = p.ctx.iterLabels[:len(p.ctx.iterLabels)-1]
	}
	if body == nil {
		return nil
	}
	return &ast.LabeledStatement{Token: labelTok, Label: label, Body: body}
}

func (p *Parser) parseFunctionDeclaration(async bool) ast.Statement {
	tok := p.cur
	fn := p.parseFunctionLiteral(async, true)
	if fn == nil {
		return nil
	}
	return &ast.FunctionDeclaration{Token: tok, Function: fn.(*ast.FunctionLiteral)}
}

func (p *Parser) parseClassDeclaration() ast.Statement {
	tok := p.cur
	class := p.parseClassLiteral(true)
	if class == nil {
		return nil
	}
	return &ast.ClassDeclaration{Token: tok, Class: class.(*ast.ClassLiteral)}
}

func (p *Parser) parseWithStatement() ast.Statement {
	tok := p.cur
	if p.scope.Strict {
		p.errorAtCur("'with' statements are not allowed in strict mode")
	}
	p.nextToken()
	if !p.expect(token.LPAREN) {
		return nil
	}
	object := p.parseExpression(LOWEST)
	if object == nil {
		return nil
	}
	if !p.expect(token.RPAREN) {
		return nil
	}

	scope := p.pushScope(ast.ScopeWith)
	scope.Poisoned = true
	scope.PoisonChain()
	defer p.popScope()

	body := p.parseStatement()
	if body == nil {
		return nil
	}
	return &ast.WithStatement{Token: tok, Object: object, Body: body, Scope: scope}
}

// parseImportDeclaration parses the import statement forms.
func (p *Parser) parseImportDeclaration() ast.Statement {
	tok := p.cur
	if p.sourceKind != ast.ModuleSource {
		p.errorAtCur("import declarations are only allowed in modules")
	}
	p.nextToken()

	stmt := &ast.ImportDeclaration{Token: tok}

	// import "m";
	if p.curIs(token.STRING) {
		stmt.Source = &ast.StringLiteral{Token: p.cur, Value: p.cur.Value}
		p.nextToken()
		p.consumeSemicolon()
		return stmt
	}

	// Default import.
	if p.cur.IsIdentLike() {
		local := &ast.Identifier{Token: p.cur, Name: identName(p.cur)}
		p.declare(local, ast.BindImport)
		stmt.Specifiers = append(stmt.Specifiers, &ast.ImportSpecifier{
			Imported: &ast.Identifier{Token: p.cur, Name: "default"},
			Local:    local,
		})
		p.nextToken()
		if !p.accept(token.COMMA) {
			return p.finishImport(stmt)
		}
	}

	switch {
	case p.curIs(token.ASTERISK):
		p.nextToken()
		if !p.accept(token.AS) {
			p.errorAtCur("expected 'as' after 'import *'")
			return nil
		}
		ns := &ast.Identifier{Token: p.cur, Name: identName(p.cur)}
		p.declare(ns, ast.BindImport)
		stmt.Namespace = ns
		p.nextToken()
	case p.curIs(token.LBRACE):
		p.nextToken()
		for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
			imported := &ast.Identifier{Token: p.cur, Name: importExportName(p.cur)}
			p.nextToken()
			local := imported
			if p.accept(token.AS) {
				local = &ast.Identifier{Token: p.cur, Name: identName(p.cur)}
				p.nextToken()
			}
			p.declare(local, ast.BindImport)
			stmt.Specifiers = append(stmt.Specifiers, &ast.ImportSpecifier{Imported: imported, Local: local})
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.RBRACE)
	default:
		p.errorAtCur("unexpected token in import declaration: %s", p.cur)
		return nil
	}
	return p.finishImport(stmt)
}

func (p *Parser) finishImport(stmt *ast.ImportDeclaration) ast.Statement {
	if !p.accept(token.FROM) {
		p.errorAtCur("expected 'from' in import declaration")
		return nil
	}
	if !p.curIs(token.STRING) {
		p.errorAtCur("expected module specifier string")
		return nil
	}
	stmt.Source = &ast.StringLiteral{Token: p.cur, Value: p.cur.Value}
	p.nextToken()
	p.consumeSemicolon()
	return stmt
}

// importExportName allows string names and keywords in specifier positions.
func importExportName(tok token.Token) string {
	if tok.Value != "" {
		return tok.Value
	}
	return tok.Literal
}

// parseExportDeclaration parses the export statement forms.
func (p *Parser) parseExportDeclaration() ast.Statement {
	tok := p.cur
	if p.sourceKind != ast.ModuleSource {
		p.errorAtCur("export declarations are only allowed in modules")
	}
	p.nextToken()

	stmt := &ast.ExportDeclaration{Token: tok}

	switch p.cur.Type {
	case token.DEFAULT:
		p.nextToken()
		stmt.IsDefault = true
		switch p.cur.Type {
		case token.FUNCTION:
			decl := p.parseFunctionDeclaration(false)
			if decl == nil {
				return nil
			}
			stmt.Declaration = decl
		case token.CLASS:
			decl := p.parseClassDeclaration()
			if decl == nil {
				return nil
			}
			stmt.Declaration = decl
		case token.ASYNC:
			if p.peekIs(token.FUNCTION) && !p.peek.NewlineBefore {
				p.nextToken()
				decl := p.parseFunctionDeclaration(true)
				if decl == nil {
					return nil
				}
				stmt.Declaration = decl
				return stmt
			}
			fallthrough
		default:
			stmt.Default = p.parseAssignExpr()
			if stmt.Default == nil {
				return nil
			}
			p.consumeSemicolon()
		}
		return stmt

	case token.ASTERISK:
		stmt.Star = true
		p.nextToken()
		if p.accept(token.AS) {
			stmt.StarAs = &ast.Identifier{Token: p.cur, Name: importExportName(p.cur)}
			p.nextToken()
		}
		if !p.accept(token.FROM) {
			p.errorAtCur("expected 'from' in export * declaration")
			return nil
		}
		if !p.curIs(token.STRING) {
			p.errorAtCur("expected module specifier string")
			return nil
		}
		stmt.Source = &ast.StringLiteral{Token: p.cur, Value: p.cur.Value}
		p.nextToken()
		p.consumeSemicolon()
		return stmt

	case token.LBRACE:
		p.nextToken()
		for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
			local := &ast.Identifier{Token: p.cur, Name: importExportName(p.cur)}
			p.nextToken()
			exported := local
			if p.accept(token.AS) {
				exported = &ast.Identifier{Token: p.cur, Name: importExportName(p.cur)}
				p.nextToken()
			}
			stmt.Specifiers = append(stmt.Specifiers, &ast.ExportSpecifier{Local: local, Exported: exported})
			if !p.accept(token.COMMA) {
				break
			}
		}
		p.expect(token.RBRACE)
		if p.accept(token.FROM) {
			if !p.curIs(token.STRING) {
				p.errorAtCur("expected module specifier string")
				return nil
			}
			stmt.Source = &ast.StringLiteral{Token: p.cur, Value: p.cur.Value}
			p.nextToken()
		}
		p.consumeSemicolon()
		return stmt

	case token.VAR:
		stmt.Declaration = p.parseVariableStatement(ast.DeclVar)
	case token.LET:
		stmt.Declaration = p.parseVariableStatement(ast.DeclLet)
	case token.CONST:
		stmt.Declaration = p.parseVariableStatement(ast.DeclConst)
	case token.FUNCTION:
		stmt.Declaration = p.parseFunctionDeclaration(false)
	case token.CLASS:
		stmt.Declaration = p.parseClassDeclaration()
	case token.ASYNC:
		if p.peekIs(token.FUNCTION) && !p.peek.NewlineBefore {
			p.nextToken()
			stmt.Declaration = p.parseFunctionDeclaration(true)
		} else {
			p.errorAtCur("unexpected token after export")
			return nil
		}
	default:
		p.errorAtCur("unexpected token after export: %s", p.cur)
		return nil
	}
	if stmt.Declaration == nil {
		return nil
	}
	return stmt
}
