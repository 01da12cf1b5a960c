package parser

import (
	"fmt"

	"github.com/cwbudde/go-ecma/internal/ast"
	"github.com/cwbudde/go-ecma/pkg/token"
)

// toPattern rewrites an already-parsed expression into an assignment
// pattern. The rewrite is total for destructuring-legal expressions and
// returns an error for anything else; it never guesses intent.
func (p *Parser) toPattern(e ast.Expression) (ast.Pattern, error) {
	switch t := e.(type) {
	case *ast.Identifier:
		if p.scope.Strict && (t.Name == "eval" || t.Name == "arguments") {
			return nil, fmt.Errorf("cannot assign to %q in strict mode", t.Name)
		}
		return t, nil

	case *ast.MemberExpression:
		if t.Optional {
			return nil, fmt.Errorf("invalid assignment to an optional chain")
		}
		return t, nil

	case *ast.ArrayLiteral:
		pat := &ast.ArrayPattern{Token: t.Token}
		for i, el := range t.Elements {
			if el == nil {
				pat.Elements = append(pat.Elements, nil)
				continue
			}
			if spread, ok := el.(*ast.SpreadElement); ok {
				if i != len(t.Elements)-1 {
					return nil, fmt.Errorf("rest element must be last in a destructuring pattern")
				}
				target, err := p.toPattern(spread.Argument)
				if err != nil {
					return nil, err
				}
				if _, isDefault := target.(*ast.DefaultPattern); isDefault {
					return nil, fmt.Errorf("rest element may not have a default")
				}
				pat.Rest = target
				continue
			}
			target, err := p.toPattern(el)
			if err != nil {
				return nil, err
			}
			pat.Elements = append(pat.Elements, target)
		}
		return pat, nil

	case *ast.ObjectLiteral:
		pat := &ast.ObjectPattern{Token: t.Token}
		for i, prop := range t.Properties {
			switch prop.Kind {
			case ast.PropertySpread:
				if i != len(t.Properties)-1 {
					return nil, fmt.Errorf("rest element must be last in a destructuring pattern")
				}
				target, err := p.toPattern(prop.Argument)
				if err != nil {
					return nil, err
				}
				if _, ok := target.(*ast.Identifier); !ok {
					if _, ok := target.(*ast.MemberExpression); !ok {
						return nil, fmt.Errorf("object rest target must be an identifier or member expression")
					}
				}
				pat.Rest = target
			case ast.PropertyInit, ast.PropertyShorthand:
				entry := &ast.ObjectPatternProperty{
					Token:     prop.Token,
					Key:       prop.Key,
					Computed:  prop.Computed,
					Shorthand: prop.Kind == ast.PropertyShorthand,
				}
				value := prop.Value
				if def, ok := value.(*ast.AssignmentExpression); ok && def.Operator == token.ASSIGN {
					// Shorthand-with-default: {a = 1}.
					inner, ok := def.Target.(ast.Expression)
					if !ok {
						return nil, fmt.Errorf("invalid destructuring target")
					}
					target, err := p.toPattern(inner)
					if err != nil {
						return nil, err
					}
					entry.Value = target
					entry.Default = def.Value
				} else {
					target, err := p.toPattern(value)
					if err != nil {
						return nil, err
					}
					if def, ok := target.(*ast.DefaultPattern); ok {
						entry.Value = def.Target
						entry.Default = def.Default
					} else {
						entry.Value = target
					}
				}
				pat.Properties = append(pat.Properties, entry)
			default:
				return nil, fmt.Errorf("invalid destructuring target")
			}
		}
		return pat, nil

	case *ast.AssignmentExpression:
		if t.Operator != token.ASSIGN {
			return nil, fmt.Errorf("invalid destructuring target")
		}
		return &ast.DefaultPattern{Token: t.Token, Target: t.Target, Default: t.Value}, nil

	default:
		return nil, fmt.Errorf("invalid assignment target")
	}
}

// parseBindingPattern parses a declaration-position binding: an identifier,
// array pattern, or object pattern.
func (p *Parser) parseBindingPattern() ast.Pattern {
	switch p.cur.Type {
	case token.LBRACK:
		lit := p.parseArrayLiteral()
		if lit == nil {
			return nil
		}
		pat, err := p.toPattern(lit)
		if err != nil {
			p.errorAtCur("%s", err.Error())
			return nil
		}
		return pat
	case token.LBRACE:
		lit := p.parseObjectLiteral()
		if lit == nil {
			return nil
		}
		pat, err := p.toPattern(lit)
		if err != nil {
			p.errorAtCur("%s", err.Error())
			return nil
		}
		return pat
	default:
		if !p.cur.IsIdentLike() && p.cur.Type != token.YIELD && p.cur.Type != token.AWAIT {
			p.errorAtCur("expected binding identifier, found %s", p.cur)
			return nil
		}
		id := &ast.Identifier{Token: p.cur, Name: identName(p.cur)}
		p.nextToken()
		return id
	}
}

// declarePattern declares every identifier bound by the pattern.
func (p *Parser) declarePattern(pat ast.Pattern, kind ast.BindingKind) {
	switch t := pat.(type) {
	case *ast.Identifier:
		p.declare(t, kind)
	case *ast.ArrayPattern:
		for _, el := range t.Elements {
			if el != nil {
				p.declarePattern(el, kind)
			}
		}
		if t.Rest != nil {
			p.declarePattern(t.Rest, kind)
		}
	case *ast.ObjectPattern:
		for _, prop := range t.Properties {
			p.declarePattern(prop.Value, kind)
		}
		if t.Rest != nil {
			p.declarePattern(t.Rest, kind)
		}
	case *ast.DefaultPattern:
		p.declarePattern(t.Target, kind)
	case *ast.RestElement:
		p.declarePattern(t.Target, kind)
	case *ast.MemberExpression:
		p.addError(t.Pos(), "member expressions cannot appear in a binding pattern")
	}
}

// parseArrayLiteral parses [a, , b, ...c] with elisions and spreads.
func (p *Parser) parseArrayLiteral() ast.Expression {
	tok := p.cur
	lit := &ast.ArrayLiteral{Token: tok}
	p.nextToken()

	for !p.curIs(token.RBRACK) && !p.curIs(token.EOF) {
		if p.curIs(token.COMMA) {
			lit.Elements = append(lit.Elements, nil) // elision
			p.nextToken()
			continue
		}
		var el ast.Expression
		if p.curIs(token.ELLIPSIS) {
			spreadTok := p.cur
			p.nextToken()
			arg := p.parseAssignExpr()
			if arg == nil {
				return nil
			}
			el = &ast.SpreadElement{Token: spreadTok, Argument: arg}
		} else {
			el = p.parseAssignExpr()
			if el == nil {
				return nil
			}
		}
		lit.Elements = append(lit.Elements, el)
		if !p.curIs(token.RBRACK) && !p.expect(token.COMMA) {
			return nil
		}
	}
	p.expect(token.RBRACK)
	return lit
}

// parseObjectLiteral parses {k: v, k, [e]: v, m() {}, get k() {}, ...s}.
func (p *Parser) parseObjectLiteral() ast.Expression {
	tok := p.cur
	lit := &ast.ObjectLiteral{Token: tok}
	p.nextToken()

	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		prop := p.parsePropertyDefinition()
		if prop == nil {
			return nil
		}
		lit.Properties = append(lit.Properties, prop)
		if !p.curIs(token.RBRACE) && !p.expect(token.COMMA) {
			return nil
		}
	}
	p.expect(token.RBRACE)
	return lit
}

func (p *Parser) parsePropertyDefinition() *ast.PropertyDefinition {
	tok := p.cur

	if p.curIs(token.ELLIPSIS) {
		p.nextToken()
		arg := p.parseAssignExpr()
		if arg == nil {
			return nil
		}
		return &ast.PropertyDefinition{Token: tok, Kind: ast.PropertySpread, Argument: arg}
	}

	async := false
	generator := false
	kind := ast.PropertyInit

	// get/set/async prefixes apply only when another property name follows.
	if (p.curIs(token.GET) || p.curIs(token.SET)) && p.propertyNameFollows() {
		if p.cur.Type == token.GET {
			kind = ast.PropertyGet
		} else {
			kind = ast.PropertySet
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

	key, computed, shorthandOK := p.parseObjectPropertyKey()
	if key == nil {
		return nil
	}

	switch {
	case kind == ast.PropertyGet || kind == ast.PropertySet:
		fn := p.parseMethodBody(false, false)
		if fn == nil {
			return nil
		}
		if kind == ast.PropertyGet && len(fn.Params) != 0 {
			p.addError(tok.Pos, "getter must have no parameters")
		}
		if kind == ast.PropertySet && len(fn.Params) != 1 {
			p.addError(tok.Pos, "setter must have exactly one parameter")
		}
		return &ast.PropertyDefinition{Token: tok, Kind: kind, Key: key, Value: fn, Computed: computed}

	case p.curIs(token.LPAREN) || generator || async:
		fn := p.parseMethodBody(generator, async)
		if fn == nil {
			return nil
		}
		return &ast.PropertyDefinition{Token: tok, Kind: ast.PropertyMethod, Key: key, Value: fn, Computed: computed}

	case p.accept(token.COLON):
		value := p.parseAssignExpr()
		if value == nil {
			return nil
		}
		return &ast.PropertyDefinition{Token: tok, Kind: ast.PropertyInit, Key: key, Value: value, Computed: computed}

	default:
		if !shorthandOK || computed {
			p.errorAtCur("expected ':' after property name")
			return nil
		}
		id, ok := key.(*ast.Identifier)
		if !ok {
			p.errorAtCur("expected ':' after property name")
			return nil
		}
		// {a} or {a = 1}; the latter is only legal once rewritten to a
		// destructuring pattern.
		var value ast.Expression = &ast.Identifier{Token: id.Token, Name: id.Name}
		if p.curIs(token.ASSIGN) {
			assignTok := p.cur
			p.nextToken()
			def := p.parseAssignExpr()
			if def == nil {
				return nil
			}
			value = &ast.AssignmentExpression{
				Token:    assignTok,
				Operator: token.ASSIGN,
				Target:   value.(ast.Pattern),
				Value:    def,
			}
		}
		return &ast.PropertyDefinition{Token: tok, Kind: ast.PropertyShorthand, Key: id, Value: value}
	}
}

// propertyNameFollows reports whether the lookahead can be a property name
// (for disambiguating get/set/async prefixes from plain names).
func (p *Parser) propertyNameFollows() bool {
	switch p.peek.Type {
	case token.STRING, token.NUMBER, token.LBRACK:
		return true
	default:
		return p.peek.IsIdentLike() || p.peek.Type.IsKeyword()
	}
}

// parseObjectPropertyKey parses one property name. It reports whether the
// name admits the shorthand form.
func (p *Parser) parseObjectPropertyKey() (key ast.Expression, computed, shorthandOK bool) {
	tok := p.cur
	switch {
	case p.curIs(token.LBRACK):
		p.nextToken()
		expr := p.parseAssignExpr()
		if expr == nil {
			return nil, false, false
		}
		p.expect(token.RBRACK)
		return expr, true, false
	case p.curIs(token.STRING):
		p.nextToken()
		return &ast.StringLiteral{Token: tok, Value: tok.Value}, false, false
	case p.curIs(token.NUMBER):
		p.nextToken()
		return &ast.NumberLiteral{Token: tok, Value: tok.Num}, false, false
	case tok.IsIdentLike():
		p.nextToken()
		return &ast.Identifier{Token: tok, Name: identName(tok)}, false, true
	case tok.Type.IsKeyword():
		// Reserved words are fine as property names but not as shorthands.
		p.nextToken()
		return &ast.Identifier{Token: tok, Name: tok.Literal}, false, false
	default:
		p.errorAtCur("expected property name, found %s", tok)
		return nil, false, false
	}
}
