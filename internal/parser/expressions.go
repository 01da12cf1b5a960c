package parser

import (
	"github.com/cwbudde/go-ecma/internal/ast"
	"github.com/cwbudde/go-ecma/pkg/token"
)

// registerParseFns wires the Pratt parser tables.
func (p *Parser) registerParseFns() {
	prefix := map[token.Type]prefixParseFn{
		token.IDENT:         p.parseIdentifier,
		token.NUMBER:        p.parseNumberLiteral,
		token.BIGINT:        p.parseBigIntLiteral,
		token.STRING:        p.parseStringLiteral,
		token.REGEXP:        p.parseRegExpLiteral,
		token.TRUE:          p.parseBooleanLiteral,
		token.FALSE:         p.parseBooleanLiteral,
		token.NULL:          p.parseNullLiteral,
		token.THIS:          p.parseThisExpression,
		token.SUPER:         p.parseSuperExpression,
		token.LBRACK:        p.parseArrayLiteral,
		token.LBRACE:        p.parseObjectLiteral,
		token.LPAREN:        p.parseGroupedOrArrow,
		token.FUNCTION:      p.parseFunctionExpression,
		token.CLASS:         p.parseClassExpression,
		token.NEW:           p.parseNewExpression,
		token.TEMPLATE:      p.parseTemplateLiteralExpr,
		token.TEMPLATE_HEAD: p.parseTemplateLiteralExpr,
		token.NOT:           p.parseUnaryExpression,
		token.BIT_NOT:       p.parseUnaryExpression,
		token.PLUS:          p.parseUnaryExpression,
		token.MINUS:         p.parseUnaryExpression,
		token.TYPEOF:        p.parseUnaryExpression,
		token.VOID:          p.parseUnaryExpression,
		token.DELETE:        p.parseUnaryExpression,
		token.INC:           p.parsePrefixUpdate,
		token.DEC:           p.parsePrefixUpdate,
		token.YIELD:         p.parseYieldExpression,
		token.AWAIT:         p.parseAwaitExpression,
		token.IMPORT:        p.parseImportExpression,
		token.ASYNC:         p.parseAsyncExpression,
	}
	for t, fn := range prefix {
		p.prefixParseFns[t] = fn
	}
	// The remaining contextual keywords are ordinary identifiers in
	// expression position.
	for _, t := range []token.Type{token.LET, token.STATIC, token.GET,
		token.SET, token.OF, token.AS, token.FROM, token.TARGET, token.META} {
		p.prefixParseFns[t] = p.parseIdentifier
	}

	infix := map[token.Type]infixParseFn{
		token.PLUS:          p.parseBinaryExpression,
		token.MINUS:         p.parseBinaryExpression,
		token.ASTERISK:      p.parseBinaryExpression,
		token.SLASH:         p.parseBinaryExpression,
		token.PERCENT:       p.parseBinaryExpression,
		token.EXPONENT:      p.parseExponentExpression,
		token.SHL:           p.parseBinaryExpression,
		token.SHR:           p.parseBinaryExpression,
		token.USHR:          p.parseBinaryExpression,
		token.BIT_AND:       p.parseBinaryExpression,
		token.BIT_OR:        p.parseBinaryExpression,
		token.BIT_XOR:       p.parseBinaryExpression,
		token.EQ:            p.parseBinaryExpression,
		token.NOT_EQ:        p.parseBinaryExpression,
		token.STRICT_EQ:     p.parseBinaryExpression,
		token.STRICT_NOT_EQ: p.parseBinaryExpression,
		token.LESS:          p.parseBinaryExpression,
		token.GREATER:       p.parseBinaryExpression,
		token.LESS_EQ:       p.parseBinaryExpression,
		token.GREATER_EQ:    p.parseBinaryExpression,
		token.IN:            p.parseBinaryExpression,
		token.INSTANCEOF:    p.parseBinaryExpression,
		token.LOGICAL_AND:   p.parseLogicalExpression,
		token.LOGICAL_OR:    p.parseLogicalExpression,
		token.COALESCE:      p.parseLogicalExpression,
		token.QUESTION:      p.parseConditionalExpression,
		token.LPAREN:        p.parseCallExpression,
		token.LBRACK:        p.parseComputedMember,
		token.DOT:           p.parseDotMember,
		token.QUESTION_DOT:  p.parseOptionalChain,
		token.INC:           p.parsePostfixUpdate,
		token.DEC:           p.parsePostfixUpdate,
		token.COMMA:         p.parseSequenceExpression,
		token.TEMPLATE:      p.parseTaggedTemplate,
		token.TEMPLATE_HEAD: p.parseTaggedTemplate,
	}
	for t, fn := range infix {
		p.infixParseFns[t] = fn
	}
	for t := range precedences {
		if t.IsAssignOp() {
			p.infixParseFns[t] = p.parseAssignmentExpression
		}
	}
}

// curPrecedence returns the infix precedence of the current token, honoring
// the restricted productions: postfix update after a line terminator does
// not bind, and "in" is suppressed inside a for-statement header.
func (p *Parser) curPrecedence() int {
	if (p.curIs(token.INC) || p.curIs(token.DEC)) && p.cur.NewlineBefore {
		return LOWEST - 1
	}
	if p.curIs(token.IN) && p.noIn {
		return LOWEST - 1
	}
	if prec, ok := precedences[p.cur.Type]; ok {
		return prec
	}
	return LOWEST - 1
}

// parseExpression parses an expression whose operators bind tighter than
// prec.
func (p *Parser) parseExpression(prec int) ast.Expression {
	prefix := p.prefixParseFns[p.cur.Type]
	if prefix == nil {
		p.errorAtCur("unexpected token %s", p.cur)
		p.nextToken()
		return nil
	}
	left := prefix()
	if left == nil {
		return nil
	}

	for prec < p.curPrecedence() {
		infix := p.infixParseFns[p.cur.Type]
		if infix == nil {
			return left
		}
		left = infix(left)
		if left == nil {
			return nil
		}
	}
	return left
}

// parseAssignExpr parses one AssignmentExpression (no comma operator).
func (p *Parser) parseAssignExpr() ast.Expression {
	return p.parseExpression(COMMA)
}

func (p *Parser) parseIdentifier() ast.Expression {
	tok := p.cur

	// A bare identifier directly followed by "=>" is an arrow parameter.
	if p.peekIs(token.ARROW) && !p.peek.NewlineBefore {
		id := &ast.Identifier{Token: tok, Name: identName(tok)}
		p.nextToken()
		return p.parseArrowFromParams(tok, []ast.Expression{id}, nil, false)
	}

	name := tok.Value
	if name == "" {
		name = tok.Literal
	}
	if tok.HasEscape && tok.Type != token.IDENT {
		p.errorAtCur("keyword %q must not contain escape sequences", name)
	}
	if p.scope.Strict {
		switch tok.Type {
		case token.LET, token.STATIC:
			p.errorAtCur("%q is a reserved word in strict mode", name)
		}
	}
	if name == "arguments" {
		p.markUsesArguments()
	}
	p.nextToken()
	return &ast.Identifier{Token: tok, Name: name}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	tok := p.cur
	if tok.LegacyOctal && p.scope.Strict {
		p.errorAtCur("octal literals are not allowed in strict mode")
	}
	p.nextToken()
	return &ast.NumberLiteral{Token: tok, Value: tok.Num}
}

func (p *Parser) parseBigIntLiteral() ast.Expression {
	tok := p.cur
	p.nextToken()
	return &ast.BigIntLiteral{Token: tok, Value: tok.Value}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	tok := p.cur
	if tok.LegacyOctal && p.scope.Strict {
		p.errorAtCur("octal escape sequences are not allowed in strict mode")
	}
	p.nextToken()
	return &ast.StringLiteral{Token: tok, Value: tok.Value}
}

func (p *Parser) parseRegExpLiteral() ast.Expression {
	tok := p.cur
	p.nextToken()
	return &ast.RegExpLiteral{Token: tok, Pattern: tok.Value, Flags: tok.Flags}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	tok := p.cur
	p.nextToken()
	return &ast.BooleanLiteral{Token: tok, Value: tok.Type == token.TRUE}
}

func (p *Parser) parseNullLiteral() ast.Expression {
	tok := p.cur
	p.nextToken()
	return &ast.NullLiteral{Token: tok}
}

func (p *Parser) parseThisExpression() ast.Expression {
	tok := p.cur
	p.scope.Function.UsesThis = true
	p.nextToken()
	return &ast.ThisExpression{Token: tok}
}

func (p *Parser) parseSuperExpression() ast.Expression {
	tok := p.cur
	p.nextToken()
	switch p.cur.Type {
	case token.DOT, token.LBRACK, token.LPAREN:
		return &ast.SuperExpression{Token: tok}
	default:
		p.errorAtCur("'super' must be followed by a member access or call")
		return nil
	}
}

func (p *Parser) parseUnaryExpression() ast.Expression {
	tok := p.cur
	op := tok.Type
	p.nextToken()
	operand := p.parseExpression(UNARY - 1)
	if operand == nil {
		return nil
	}
	if op == token.DELETE && p.scope.Strict {
		if _, isIdent := operand.(*ast.Identifier); isIdent {
			p.addError(tok.Pos, "cannot delete a variable in strict mode")
		}
	}
	return &ast.UnaryExpression{Token: tok, Operator: op, Operand: operand}
}

func (p *Parser) parsePrefixUpdate() ast.Expression {
	tok := p.cur
	p.nextToken()
	operand := p.parseExpression(UNARY - 1)
	if operand == nil {
		return nil
	}
	p.checkSimpleAssignmentTarget(operand, tok.Pos)
	return &ast.UpdateExpression{Token: tok, Operator: tok.Type, Operand: operand, Prefix: true}
}

func (p *Parser) parsePostfixUpdate(left ast.Expression) ast.Expression {
	tok := p.cur
	p.checkSimpleAssignmentTarget(left, tok.Pos)
	p.nextToken()
	return &ast.UpdateExpression{Token: tok, Operator: tok.Type, Operand: left, Prefix: false}
}

// checkSimpleAssignmentTarget reports operands of ++/-- and compound
// assignment that are not identifiers or member expressions.
func (p *Parser) checkSimpleAssignmentTarget(e ast.Expression, pos token.Position) {
	switch t := e.(type) {
	case *ast.Identifier:
		if p.scope.Strict && (t.Name == "eval" || t.Name == "arguments") {
			p.addError(pos, "cannot assign to %q in strict mode", t.Name)
		}
	case *ast.MemberExpression:
		if t.Optional {
			p.addError(pos, "invalid assignment to an optional chain")
		}
	default:
		p.addError(pos, "invalid assignment target")
	}
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	tok := p.cur
	prec := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(prec)
	if right == nil {
		return nil
	}
	return &ast.BinaryExpression{Token: tok, Operator: tok.Type, Left: left, Right: right}
}

// parseExponentExpression handles the right-associative ** operator, which
// additionally rejects an un-parenthesized unary expression on its left.
func (p *Parser) parseExponentExpression(left ast.Expression) ast.Expression {
	tok := p.cur
	if u, ok := left.(*ast.UnaryExpression); ok && !p.isParenthesized(u) {
		p.addError(tok.Pos, "unary operand of ** must be parenthesized")
	}
	p.nextToken()
	right := p.parseExpression(EXPO - 1) // right associative
	if right == nil {
		return nil
	}
	return &ast.BinaryExpression{Token: tok, Operator: token.EXPONENT, Left: left, Right: right}
}


func (p *Parser) parseLogicalExpression(left ast.Expression) ast.Expression {
	tok := p.cur
	prec := p.curPrecedence()

	// ?? must not mix with && or || without parentheses.
	if tok.Type == token.COALESCE {
		if l, ok := left.(*ast.LogicalExpression); ok && !p.isParenthesized(l) &&
			(l.Operator == token.LOGICAL_AND || l.Operator == token.LOGICAL_OR) {
			p.addError(tok.Pos, "cannot mix ?? with %s without parentheses", l.Operator)
		}
	}

	p.nextToken()
	right := p.parseExpression(prec)
	if right == nil {
		return nil
	}
	if tok.Type == token.LOGICAL_AND || tok.Type == token.LOGICAL_OR {
		if r, ok := right.(*ast.LogicalExpression); ok && !p.isParenthesized(r) && r.Operator == token.COALESCE {
			p.addError(tok.Pos, "cannot mix %s with ?? without parentheses", tok.Type)
		}
	}
	if tok.Type == token.COALESCE {
		if r, ok := right.(*ast.LogicalExpression); ok && !p.isParenthesized(r) &&
			(r.Operator == token.LOGICAL_AND || r.Operator == token.LOGICAL_OR) {
			p.addError(tok.Pos, "cannot mix ?? with %s without parentheses", r.Operator)
		}
	}
	return &ast.LogicalExpression{Token: tok, Operator: tok.Type, Left: left, Right: right}
}

func (p *Parser) parseConditionalExpression(left ast.Expression) ast.Expression {
	tok := p.cur
	p.nextToken()
	cons := p.parseAssignExpr()
	if cons == nil {
		return nil
	}
	if !p.expect(token.COLON) {
		return nil
	}
	alt := p.parseAssignExpr()
	if alt == nil {
		return nil
	}
	return &ast.ConditionalExpression{Token: tok, Test: left, Consequent: cons, Alternate: alt}
}

func (p *Parser) parseAssignmentExpression(left ast.Expression) ast.Expression {
	tok := p.cur
	op := tok.Type

	var target ast.Pattern
	if op == token.ASSIGN {
		// Plain assignment accepts destructuring patterns via the cover
		// grammar: rewrite the already-parsed expression.
		t, err := p.toPattern(left)
		if err != nil {
			p.addError(tok.Pos, "%s", err.Error())
			return nil
		}
		target = t
	} else {
		p.checkSimpleAssignmentTarget(left, tok.Pos)
		t, ok := left.(ast.Pattern)
		if !ok {
			return nil
		}
		target = t
	}

	p.nextToken()
	value := p.parseAssignExpr()
	if value == nil {
		return nil
	}
	return &ast.AssignmentExpression{Token: tok, Operator: op, Target: target, Value: value}
}

func (p *Parser) parseSequenceExpression(left ast.Expression) ast.Expression {
	tok := p.cur
	exprs := []ast.Expression{left}
	for p.accept(token.COMMA) {
		next := p.parseAssignExpr()
		if next == nil {
			return nil
		}
		exprs = append(exprs, next)
	}
	return &ast.SequenceExpression{Token: tok, Expressions: exprs}
}

func (p *Parser) parseCallExpression(callee ast.Expression) ast.Expression {
	tok := p.cur
	args := p.parseArguments()

	// Direct eval poisons every scope visible from the call site.
	if id, ok := callee.(*ast.Identifier); ok && id.Name == "eval" {
		p.scope.HasDirectEval = true
		p.scope.PoisonChain()
	}
	return &ast.CallExpression{Token: tok, Callee: callee, Arguments: args}
}

// parseArguments parses a parenthesized argument list including spreads.
func (p *Parser) parseArguments() []ast.Expression {
	args := []ast.Expression{}
	p.expect(token.LPAREN)
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		if p.curIs(token.ELLIPSIS) {
			spreadTok := p.cur
			p.nextToken()
			arg := p.parseAssignExpr()
			if arg == nil {
				return args
			}
			args = append(args, &ast.SpreadElement{Token: spreadTok, Argument: arg})
		} else {
			arg := p.parseAssignExpr()
			if arg == nil {
				return args
			}
			args = append(args, arg)
		}
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return args
}

func (p *Parser) parseComputedMember(obj ast.Expression) ast.Expression {
	tok := p.cur
	p.nextToken()
	prop := p.parseExpression(LOWEST)
	if prop == nil {
		return nil
	}
	p.expect(token.RBRACK)
	return &ast.MemberExpression{Token: tok, Object: obj, Property: prop, Computed: true}
}

func (p *Parser) parseDotMember(obj ast.Expression) ast.Expression {
	tok := p.cur
	p.nextToken()
	prop := p.parsePropertyName()
	if prop == nil {
		return nil
	}
	return &ast.MemberExpression{Token: tok, Object: obj, Property: prop}
}

// parsePropertyName parses the identifier after "." — reserved words are
// permitted there.
func (p *Parser) parsePropertyName() ast.Expression {
	tok := p.cur
	if tok.Type == token.PRIVATE_IDENT {
		p.nextToken()
		return &ast.PrivateName{Token: tok, Name: tok.Value}
	}
	if !tok.IsIdentLike() && !tok.Type.IsKeyword() {
		p.errorAtCur("expected property name, found %s", tok)
		return nil
	}
	name := tok.Value
	if name == "" {
		name = tok.Literal
	}
	p.nextToken()
	return &ast.Identifier{Token: tok, Name: name}
}

// parseOptionalChain parses ?. links: ?.name, ?.[expr], ?.(args).
func (p *Parser) parseOptionalChain(obj ast.Expression) ast.Expression {
	tok := p.cur
	p.nextToken()
	switch p.cur.Type {
	case token.LBRACK:
		p.nextToken()
		prop := p.parseExpression(LOWEST)
		if prop == nil {
			return nil
		}
		p.expect(token.RBRACK)
		return &ast.MemberExpression{Token: tok, Object: obj, Property: prop, Computed: true, Optional: true}
	case token.LPAREN:
		args := p.parseArguments()
		return &ast.CallExpression{Token: tok, Callee: obj, Arguments: args, Optional: true}
	default:
		prop := p.parsePropertyName()
		if prop == nil {
			return nil
		}
		return &ast.MemberExpression{Token: tok, Object: obj, Property: prop, Optional: true}
	}
}

// parseNewExpression parses new expressions and the new.target meta
// property. The callee is a member expression: call parentheses bind to the
// new operator, not to the callee.
func (p *Parser) parseNewExpression() ast.Expression {
	tok := p.cur
	p.nextToken()

	if p.curIs(token.DOT) {
		p.nextToken()
		if !p.curIs(token.TARGET) {
			p.errorAtCur("expected 'target' after 'new.'")
			return nil
		}
		if !p.scope.InFunction {
			p.addError(tok.Pos, "new.target is only allowed inside functions")
		}
		p.nextToken()
		return &ast.MetaProperty{Token: tok, Meta: "new", Field: "target"}
	}

	callee := p.parseMemberOnly()
	if callee == nil {
		return nil
	}
	var args []ast.Expression
	if p.curIs(token.LPAREN) {
		args = p.parseArguments()
	}
	return &ast.NewExpression{Token: tok, Callee: callee, Arguments: args}
}

// parseMemberOnly parses a member expression without consuming call
// parentheses, for use as a new-expression callee.
func (p *Parser) parseMemberOnly() ast.Expression {
	prefix := p.prefixParseFns[p.cur.Type]
	if prefix == nil {
		p.errorAtCur("unexpected token %s", p.cur)
		return nil
	}
	expr := prefix()
	for expr != nil {
		switch p.cur.Type {
		case token.DOT:
			expr = p.parseDotMember(expr)
		case token.LBRACK:
			expr = p.parseComputedMember(expr)
		case token.QUESTION_DOT:
			p.errorAtCur("optional chain cannot be a new-expression callee")
			return nil
		default:
			return expr
		}
	}
	return expr
}

func (p *Parser) parseYieldExpression() ast.Expression {
	tok := p.cur
	if !p.scope.InGenerator {
		// Outside generators, yield is an ordinary identifier in sloppy
		// mode and a reserved word in strict mode.
		if p.scope.Strict {
			p.errorAtCur("'yield' is a reserved word in strict mode")
			return nil
		}
		return p.parseIdentifier()
	}
	p.nextToken()

	delegate := false
	if p.curIs(token.ASTERISK) && !p.cur.NewlineBefore {
		delegate = true
		p.nextToken()
	}

	// The argument is optional; ASI applies after a bare yield.
	var arg ast.Expression
	if !p.cur.NewlineBefore && p.startsExpression() {
		arg = p.parseAssignExpr()
	} else if delegate {
		p.errorAtCur("yield* requires an operand")
	}
	return &ast.YieldExpression{Token: tok, Argument: arg, Delegate: delegate}
}

func (p *Parser) parseAwaitExpression() ast.Expression {
	tok := p.cur
	if !p.scope.InAsync && p.sourceKind != ast.ModuleSource {
		if p.scope.Strict {
			p.errorAtCur("'await' is only allowed inside async functions")
			return nil
		}
		return p.parseIdentifier()
	}
	p.nextToken()
	arg := p.parseExpression(UNARY - 1)
	if arg == nil {
		return nil
	}
	return &ast.AwaitExpression{Token: tok, Argument: arg}
}

// parseImportExpression parses dynamic import(...) and import.meta in
// expression position.
func (p *Parser) parseImportExpression() ast.Expression {
	tok := p.cur
	p.nextToken()
	switch p.cur.Type {
	case token.DOT:
		p.nextToken()
		if !p.curIs(token.META) {
			p.errorAtCur("expected 'meta' after 'import.'")
			return nil
		}
		if p.sourceKind != ast.ModuleSource {
			p.addError(tok.Pos, "import.meta is only allowed in modules")
		}
		p.nextToken()
		return &ast.MetaProperty{Token: tok, Meta: "import", Field: "meta"}
	case token.LPAREN:
		p.nextToken()
		spec := p.parseAssignExpr()
		if spec == nil {
			return nil
		}
		p.expect(token.RPAREN)
		return &ast.ImportCall{Token: tok, Specifier: spec}
	default:
		p.errorAtCur("unexpected 'import' in expression position")
		return nil
	}
}

// startsExpression reports whether the current token can begin an
// expression.
func (p *Parser) startsExpression() bool {
	if _, ok := p.prefixParseFns[p.cur.Type]; ok {
		return true
	}
	return p.cur.IsIdentLike()
}

// parseTemplateLiteralExpr parses an untagged template literal.
func (p *Parser) parseTemplateLiteralExpr() ast.Expression {
	tpl := p.parseTemplateLiteral()
	if tpl == nil {
		return nil
	}
	for _, q := range tpl.Quasis {
		if q.Malformed {
			p.addError(q.Token.Pos, "invalid escape sequence in template literal")
		}
	}
	return tpl
}

// parseTemplateLiteral parses the quasi/substitution sequence of a template
// starting at TEMPLATE or TEMPLATE_HEAD.
func (p *Parser) parseTemplateLiteral() *ast.TemplateLiteral {
	tok := p.cur
	tpl := &ast.TemplateLiteral{Token: tok}

	if tok.Type == token.TEMPLATE {
		tpl.Quasis = append(tpl.Quasis, templateElement(tok))
		p.nextToken()
		return tpl
	}

	tpl.Quasis = append(tpl.Quasis, templateElement(tok))
	p.nextToken()
	for {
		expr := p.parseExpression(LOWEST)
		if expr == nil {
			return nil
		}
		tpl.Expressions = append(tpl.Expressions, expr)

		// The "}" closing the substitution must be re-lexed as a template
		// continuation under the template-tail goal.
		if !p.curIs(token.RBRACE) {
			p.errorAtCur("expected '}' in template literal, found %s", p.cur)
			return nil
		}
		p.relexCur(token.GoalTemplateTail)
		switch p.cur.Type {
		case token.TEMPLATE_MIDDLE:
			tpl.Quasis = append(tpl.Quasis, templateElement(p.cur))
			p.nextToken()
		case token.TEMPLATE_TAIL:
			tpl.Quasis = append(tpl.Quasis, templateElement(p.cur))
			p.nextToken()
			return tpl
		default:
			p.errorAtCur("unterminated template literal")
			return nil
		}
	}
}

func templateElement(tok token.Token) *ast.TemplateElement {
	return &ast.TemplateElement{
		Token:     tok,
		Cooked:    tok.Value,
		Raw:       tok.Raw,
		Malformed: tok.Malformed,
	}
}

// parseTaggedTemplate parses tag`...` given the already-parsed tag.
func (p *Parser) parseTaggedTemplate(tag ast.Expression) ast.Expression {
	tok := p.cur
	quasi := p.parseTemplateLiteral()
	if quasi == nil {
		return nil
	}
	return &ast.TaggedTemplate{Token: tok, Tag: tag, Quasi: quasi}
}

// parseGroupedOrArrow disambiguates a parenthesized expression from an
// arrow-function parameter list, per the CoverParenthesizedExpressionAndArrowParameterList
// production: parse the wider expression form, then rewrite to patterns if
// "=>" follows.
func (p *Parser) parseGroupedOrArrow() ast.Expression {
	lparen := p.cur
	p.nextToken()

	// "() => body" has no covering expression; handle it directly.
	if p.curIs(token.RPAREN) {
		p.nextToken()
		if !p.curIs(token.ARROW) || p.cur.NewlineBefore {
			p.errorAtCur("expected '=>' after empty parameter list")
			return nil
		}
		return p.parseArrowFromParams(lparen, nil, nil, false)
	}

	var exprs []ast.Expression
	var rest ast.Pattern
	for {
		if p.curIs(token.ELLIPSIS) {
			// A rest element is only legal if this turns out to be an
			// arrow parameter list.
			restTok := p.cur
			p.nextToken()
			target := p.parseBindingPattern()
			if target == nil {
				return nil
			}
			rest = &ast.RestElement{Token: restTok, Target: target}
			break
		}
		e := p.parseAssignExpr()
		if e == nil {
			return nil
		}
		exprs = append(exprs, e)
		if !p.accept(token.COMMA) {
			break
		}
		if p.curIs(token.RPAREN) {
			// Trailing comma: arrow parameters only.
			break
		}
	}
	if !p.expect(token.RPAREN) {
		return nil
	}

	if p.curIs(token.ARROW) && !p.cur.NewlineBefore {
		return p.parseArrowFromParams(lparen, exprs, rest, false)
	}

	if rest != nil {
		p.addError(lparen.Pos, "rest parameter is only allowed in an arrow parameter list")
		return nil
	}

	var result ast.Expression
	if len(exprs) == 1 {
		result = exprs[0]
	} else {
		result = &ast.SequenceExpression{Token: lparen, Expressions: exprs}
	}
	p.markParenthesized(result)
	return result
}

// parseAsyncExpression handles the forms beginning with the contextual
// keyword async: async function, async arrow functions, or the plain
// identifier.
func (p *Parser) parseAsyncExpression() ast.Expression {
	asyncTok := p.cur

	if p.peekIs(token.FUNCTION) && !p.peek.NewlineBefore {
		p.nextToken()
		return p.parseFunctionLiteral(true, false)
	}

	// async Ident => ... or async (params) => ...: speculative.
	if !p.peek.NewlineBefore && (p.peek.IsIdentLike() || p.peekIs(token.LPAREN)) {
		st := p.save()
		p.nextToken()
		if arrow := p.tryParseArrowAfterAsync(asyncTok); arrow != nil {
			return arrow
		}
		p.restore(st)
	}

	return p.parseIdentifier()
}

// tryParseArrowAfterAsync attempts to parse an async arrow function whose
// parameters begin at the current token. Returns nil (without reporting
// errors) when the lookahead is not an arrow.
func (p *Parser) tryParseArrowAfterAsync(asyncTok token.Token) ast.Expression {
	if p.cur.IsIdentLike() {
		if !p.peekIs(token.ARROW) || p.peek.NewlineBefore {
			return nil
		}
		id := &ast.Identifier{Token: p.cur, Name: identName(p.cur)}
		p.nextToken()
		return p.parseArrowFromParams(asyncTok, []ast.Expression{id}, nil, true)
	}

	// Parenthesized parameter list.
	grouped := p.parseGroupedOrArrowAsync(asyncTok)
	return grouped
}

// parseGroupedOrArrowAsync is parseGroupedOrArrow constrained to the arrow
// interpretation, for the async prefix case.
func (p *Parser) parseGroupedOrArrowAsync(asyncTok token.Token) ast.Expression {
	if !p.curIs(token.LPAREN) {
		return nil
	}
	st := p.save()
	lparen := p.cur
	p.nextToken()

	var exprs []ast.Expression
	var rest ast.Pattern
	if !p.curIs(token.RPAREN) {
		for {
			if p.curIs(token.ELLIPSIS) {
				restTok := p.cur
				p.nextToken()
				target := p.parseBindingPattern()
				if target == nil {
					p.restore(st)
					return nil
				}
				rest = &ast.RestElement{Token: restTok, Target: target}
				break
			}
			e := p.parseAssignExpr()
			if e == nil {
				p.restore(st)
				return nil
			}
			exprs = append(exprs, e)
			if !p.accept(token.COMMA) {
				break
			}
			if p.curIs(token.RPAREN) {
				break
			}
		}
	}
	if !p.curIs(token.RPAREN) {
		p.restore(st)
		return nil
	}
	p.nextToken()
	if !p.curIs(token.ARROW) || p.cur.NewlineBefore {
		p.restore(st)
		return nil
	}
	return p.parseArrowFromParams(lparen, exprs, rest, true)
}

func identName(tok token.Token) string {
	if tok.Value != "" {
		return tok.Value
	}
	return tok.Literal
}
