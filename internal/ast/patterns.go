package ast

import (
	"strings"

	"github.com/cwbudde/go-ecma/pkg/token"
)

// ArrayPattern is a destructuring target like [a, , b = 1, ...rest].
// Holes are nil elements; Rest, if present, binds the remaining elements.
type ArrayPattern struct {
	Token    token.Token
	Elements []Pattern
	Rest     Pattern
}

func (a *ArrayPattern) expressionNode()      {}
func (a *ArrayPattern) patternNode()         {}
func (a *ArrayPattern) TokenLiteral() string { return a.Token.Literal }
func (a *ArrayPattern) Pos() token.Position  { return a.Token.Pos }

func (a *ArrayPattern) String() string {
	parts := make([]string, 0, len(a.Elements)+1)
	for _, el := range a.Elements {
		if el == nil {
			parts = append(parts, "")
		} else {
			parts = append(parts, el.String())
		}
	}
	if a.Rest != nil {
		parts = append(parts, "..."+a.Rest.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ObjectPatternProperty is one entry of an object pattern: key, target
// pattern, and optional default.
type ObjectPatternProperty struct {
	Token     token.Token
	Key       Expression
	Value     Pattern
	Default   Expression // nil when absent
	Computed  bool
	Shorthand bool
}

func (p *ObjectPatternProperty) String() string {
	var out string
	switch {
	case p.Shorthand:
		out = p.Value.String()
	case p.Computed:
		out = "[" + p.Key.String() + "]: " + p.Value.String()
	default:
		out = p.Key.String() + ": " + p.Value.String()
	}
	if p.Default != nil {
		out += " = " + p.Default.String()
	}
	return out
}

// ObjectPattern is a destructuring target like {a, b: c = 1, ...rest}.
type ObjectPattern struct {
	Token      token.Token
	Properties []*ObjectPatternProperty
	Rest       Pattern
}

func (o *ObjectPattern) expressionNode()      {}
func (o *ObjectPattern) patternNode()         {}
func (o *ObjectPattern) TokenLiteral() string { return o.Token.Literal }
func (o *ObjectPattern) Pos() token.Position  { return o.Token.Pos }

func (o *ObjectPattern) String() string {
	parts := make([]string, 0, len(o.Properties)+1)
	for _, p := range o.Properties {
		parts = append(parts, p.String())
	}
	if o.Rest != nil {
		parts = append(parts, "..."+o.Rest.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// DefaultPattern is target = defaultExpr inside a destructuring pattern or
// parameter list.
type DefaultPattern struct {
	Token   token.Token
	Target  Pattern
	Default Expression
}

func (d *DefaultPattern) expressionNode()      {}
func (d *DefaultPattern) patternNode()         {}
func (d *DefaultPattern) TokenLiteral() string { return d.Token.Literal }
func (d *DefaultPattern) Pos() token.Position  { return d.Token.Pos }

func (d *DefaultPattern) String() string {
	return d.Target.String() + " = " + d.Default.String()
}

// RestElement is ...target in a parameter list.
type RestElement struct {
	Token  token.Token
	Target Pattern
}

func (r *RestElement) expressionNode()      {}
func (r *RestElement) patternNode()         {}
func (r *RestElement) TokenLiteral() string { return r.Token.Literal }
func (r *RestElement) String() string       { return "..." + r.Target.String() }
func (r *RestElement) Pos() token.Position  { return r.Token.Pos }
