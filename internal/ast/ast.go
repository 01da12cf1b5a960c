// Package ast defines the Abstract Syntax Tree node types for ECMAScript
// source, together with the compile-time Scope records the parser attaches
// to scope-introducing nodes.
package ast

import (
	"bytes"
	"strings"

	"github.com/cwbudde/go-ecma/pkg/token"
)

// Node is the base interface for all AST nodes.
// Every node in the AST must be able to provide its token literal, position
// information, and a string representation for debugging.
type Node interface {
	// TokenLiteral returns the literal value of the token this node is
	// associated with.
	TokenLiteral() string

	// String returns a canonical single-line source rendering of the node.
	// Reparsing the rendering yields an equivalent tree.
	String() string

	// Pos returns the position of the node in the source code.
	Pos() token.Position
}

// Expression represents any node that produces a value.
type Expression interface {
	Node
	expressionNode()
}

// Statement represents a node that performs an action.
type Statement interface {
	Node
	statementNode()
}

// Pattern represents a binding or assignment target: an identifier, a
// member expression (assignment only), or a destructuring pattern.
type Pattern interface {
	Node
	patternNode()
}

// SourceKind distinguishes the two program goal symbols.
type SourceKind int

const (
	ScriptSource SourceKind = iota
	ModuleSource
)

// Program is the root node of the AST.
type Program struct {
	Statements []Statement
	Scope      *Scope
	Kind       SourceKind
	Strict     bool
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out bytes.Buffer
	for i, stmt := range p.Statements {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(stmt.String())
	}
	return out.String()
}

func (p *Program) Pos() token.Position {
	if len(p.Statements) > 0 {
		return p.Statements[0].Pos()
	}
	return token.Position{Line: 1, Column: 1}
}

// Identifier is an identifier reference or binding occurrence.
type Identifier struct {
	Token token.Token
	Name  string

	// Binding is filled in by scope resolution: the compile-time binding
	// this reference was statically resolved to, or nil when the reference
	// requires a runtime name lookup (globals, poisoned scopes).
	Binding *Binding
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) patternNode()         {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Name }
func (i *Identifier) Pos() token.Position  { return i.Token.Pos }

// PrivateName is a #name reference inside a class body.
type PrivateName struct {
	Token token.Token
	Name  string // includes the leading '#'
}

func (p *PrivateName) expressionNode()      {}
func (p *PrivateName) TokenLiteral() string { return p.Token.Literal }
func (p *PrivateName) String() string       { return p.Name }
func (p *PrivateName) Pos() token.Position  { return p.Token.Pos }

// NumberLiteral is a numeric literal value.
type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (n *NumberLiteral) expressionNode()      {}
func (n *NumberLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *NumberLiteral) String() string       { return n.Token.Literal }
func (n *NumberLiteral) Pos() token.Position  { return n.Token.Pos }

// BigIntLiteral is an arbitrary-precision integer literal. Value holds the
// literal text without the "n" suffix.
type BigIntLiteral struct {
	Token token.Token
	Value string
}

func (b *BigIntLiteral) expressionNode()      {}
func (b *BigIntLiteral) TokenLiteral() string { return b.Token.Literal }
func (b *BigIntLiteral) String() string       { return b.Token.Literal }
func (b *BigIntLiteral) Pos() token.Position  { return b.Token.Pos }

// StringLiteral is a string literal; Value holds the decoded contents.
type StringLiteral struct {
	Token token.Token
	Value string
}

func (s *StringLiteral) expressionNode()      {}
func (s *StringLiteral) TokenLiteral() string { return s.Token.Literal }
func (s *StringLiteral) String() string       { return s.Token.Literal }
func (s *StringLiteral) Pos() token.Position  { return s.Token.Pos }

// BooleanLiteral is true or false.
type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (b *BooleanLiteral) expressionNode()      {}
func (b *BooleanLiteral) TokenLiteral() string { return b.Token.Literal }
func (b *BooleanLiteral) String() string       { return b.Token.Literal }
func (b *BooleanLiteral) Pos() token.Position  { return b.Token.Pos }

// NullLiteral is the null literal.
type NullLiteral struct {
	Token token.Token
}

func (n *NullLiteral) expressionNode()      {}
func (n *NullLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *NullLiteral) String() string       { return "null" }
func (n *NullLiteral) Pos() token.Position  { return n.Token.Pos }

// RegExpLiteral is a regular expression literal.
type RegExpLiteral struct {
	Token   token.Token
	Pattern string
	Flags   string
}

func (r *RegExpLiteral) expressionNode()      {}
func (r *RegExpLiteral) TokenLiteral() string { return r.Token.Literal }
func (r *RegExpLiteral) String() string       { return "/" + r.Pattern + "/" + r.Flags }
func (r *RegExpLiteral) Pos() token.Position  { return r.Token.Pos }

// ThisExpression is the this keyword.
type ThisExpression struct {
	Token token.Token
}

func (t *ThisExpression) expressionNode()      {}
func (t *ThisExpression) TokenLiteral() string { return t.Token.Literal }
func (t *ThisExpression) String() string       { return "this" }
func (t *ThisExpression) Pos() token.Position  { return t.Token.Pos }

// SuperExpression is the super keyword in super.x or super(...).
type SuperExpression struct {
	Token token.Token
}

func (s *SuperExpression) expressionNode()      {}
func (s *SuperExpression) TokenLiteral() string { return s.Token.Literal }
func (s *SuperExpression) String() string       { return "super" }
func (s *SuperExpression) Pos() token.Position  { return s.Token.Pos }

// MetaProperty is new.target or import.meta.
type MetaProperty struct {
	Token token.Token // NEW or IMPORT
	Meta  string      // "new" or "import"
	Field string      // "target" or "meta"
}

func (m *MetaProperty) expressionNode()      {}
func (m *MetaProperty) TokenLiteral() string { return m.Token.Literal }
func (m *MetaProperty) String() string       { return m.Meta + "." + m.Field }
func (m *MetaProperty) Pos() token.Position  { return m.Token.Pos }

// joinExpressions renders a separator-joined node list.
func joinExpressions[T Node](items []T, sep string) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return strings.Join(parts, sep)
}
