package ast

import (
	"bytes"
	"strings"

	"github.com/cwbudde/go-ecma/pkg/token"
)

// ArrayLiteral is [a, b, ...c]. Holes are represented by nil elements.
type ArrayLiteral struct {
	Token    token.Token // the '[' token
	Elements []Expression
}

func (a *ArrayLiteral) expressionNode()      {}
func (a *ArrayLiteral) TokenLiteral() string { return a.Token.Literal }
func (a *ArrayLiteral) Pos() token.Position  { return a.Token.Pos }

func (a *ArrayLiteral) String() string {
	parts := make([]string, len(a.Elements))
	for i, el := range a.Elements {
		if el == nil {
			parts[i] = ""
		} else {
			parts[i] = el.String()
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// PropertyKind classifies an object literal property.
type PropertyKind int

const (
	PropertyInit PropertyKind = iota
	PropertyShorthand
	PropertyMethod
	PropertyGet
	PropertySet
	PropertySpread
)

// PropertyDefinition is one entry of an object literal.
type PropertyDefinition struct {
	Token    token.Token
	Kind     PropertyKind
	Key      Expression // Identifier, StringLiteral, NumberLiteral, or computed expression
	Value    Expression // nil for spread (Argument holds the operand)
	Computed bool
	Argument Expression // spread operand
}

func (p *PropertyDefinition) Pos() token.Position { return p.Token.Pos }

func (p *PropertyDefinition) String() string {
	switch p.Kind {
	case PropertySpread:
		return "..." + p.Argument.String()
	case PropertyShorthand:
		return p.Key.String()
	case PropertyGet:
		return "get " + p.keyString() + p.Value.(*FunctionLiteral).paramsBodyString()
	case PropertySet:
		return "set " + p.keyString() + p.Value.(*FunctionLiteral).paramsBodyString()
	case PropertyMethod:
		fn := p.Value.(*FunctionLiteral)
		return fn.methodPrefix() + p.keyString() + fn.paramsBodyString()
	default:
		return p.keyString() + ": " + p.Value.String()
	}
}

func (p *PropertyDefinition) keyString() string {
	if p.Computed {
		return "[" + p.Key.String() + "]"
	}
	return p.Key.String()
}

// ObjectLiteral is {a: 1, b, [k]: v, m() {}, ...rest}.
type ObjectLiteral struct {
	Token      token.Token // the '{' token
	Properties []*PropertyDefinition
}

func (o *ObjectLiteral) expressionNode()      {}
func (o *ObjectLiteral) TokenLiteral() string { return o.Token.Literal }
func (o *ObjectLiteral) Pos() token.Position  { return o.Token.Pos }

func (o *ObjectLiteral) String() string {
	parts := make([]string, len(o.Properties))
	for i, p := range o.Properties {
		parts[i] = p.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// TemplateElement is one literal chunk of a template.
type TemplateElement struct {
	Token     token.Token
	Cooked    string
	Raw       string
	Malformed bool
}

// TemplateLiteral is `a${x}b`. len(Quasis) == len(Expressions)+1.
type TemplateLiteral struct {
	Token       token.Token
	Quasis      []*TemplateElement
	Expressions []Expression
}

func (t *TemplateLiteral) expressionNode()      {}
func (t *TemplateLiteral) TokenLiteral() string { return t.Token.Literal }
func (t *TemplateLiteral) Pos() token.Position  { return t.Token.Pos }

func (t *TemplateLiteral) String() string {
	var out bytes.Buffer
	out.WriteString("`")
	for i, q := range t.Quasis {
		out.WriteString(q.Raw)
		if i < len(t.Expressions) {
			out.WriteString("${")
			out.WriteString(t.Expressions[i].String())
			out.WriteString("}")
		}
	}
	out.WriteString("`")
	return out.String()
}

// TaggedTemplate is tag`...`.
type TaggedTemplate struct {
	Token token.Token
	Tag   Expression
	Quasi *TemplateLiteral
}

func (t *TaggedTemplate) expressionNode()      {}
func (t *TaggedTemplate) TokenLiteral() string { return t.Token.Literal }
func (t *TaggedTemplate) String() string       { return t.Tag.String() + t.Quasi.String() }
func (t *TaggedTemplate) Pos() token.Position  { return t.Token.Pos }

// SpreadElement is ...expr in call arguments and array literals.
type SpreadElement struct {
	Token    token.Token
	Argument Expression
}

func (s *SpreadElement) expressionNode()      {}
func (s *SpreadElement) TokenLiteral() string { return s.Token.Literal }
func (s *SpreadElement) String() string       { return "..." + s.Argument.String() }
func (s *SpreadElement) Pos() token.Position  { return s.Token.Pos }

// SequenceExpression is (a, b, c).
type SequenceExpression struct {
	Token       token.Token
	Expressions []Expression
}

func (s *SequenceExpression) expressionNode()      {}
func (s *SequenceExpression) TokenLiteral() string { return s.Token.Literal }
func (s *SequenceExpression) Pos() token.Position  { return s.Token.Pos }

func (s *SequenceExpression) String() string {
	return "(" + joinExpressions(s.Expressions, ", ") + ")"
}

// UnaryExpression is a prefix operator application: !x, -x, typeof x,
// void x, delete x.
type UnaryExpression struct {
	Token    token.Token
	Operator token.Type
	Operand  Expression
}

func (u *UnaryExpression) expressionNode()      {}
func (u *UnaryExpression) TokenLiteral() string { return u.Token.Literal }
func (u *UnaryExpression) Pos() token.Position  { return u.Token.Pos }

func (u *UnaryExpression) String() string {
	op := u.Operator.String()
	if u.Operator.IsKeyword() {
		op += " "
	}
	return "(" + op + u.Operand.String() + ")"
}

// UpdateExpression is ++x, --x, x++, x--.
type UpdateExpression struct {
	Token    token.Token
	Operator token.Type // INC or DEC
	Operand  Expression
	Prefix   bool
}

func (u *UpdateExpression) expressionNode()      {}
func (u *UpdateExpression) TokenLiteral() string { return u.Token.Literal }
func (u *UpdateExpression) Pos() token.Position  { return u.Token.Pos }

func (u *UpdateExpression) String() string {
	if u.Prefix {
		return "(" + u.Operator.String() + u.Operand.String() + ")"
	}
	return "(" + u.Operand.String() + u.Operator.String() + ")"
}

// BinaryExpression is a binary operator application, excluding the
// short-circuiting logical operators.
type BinaryExpression struct {
	Token    token.Token
	Operator token.Type
	Left     Expression
	Right    Expression
}

func (b *BinaryExpression) expressionNode()      {}
func (b *BinaryExpression) TokenLiteral() string { return b.Token.Literal }
func (b *BinaryExpression) Pos() token.Position  { return b.Token.Pos }

func (b *BinaryExpression) String() string {
	return "(" + b.Left.String() + " " + b.Operator.String() + " " + b.Right.String() + ")"
}

// LogicalExpression is &&, || or ?? with short-circuit evaluation.
type LogicalExpression struct {
	Token    token.Token
	Operator token.Type
	Left     Expression
	Right    Expression
}

func (l *LogicalExpression) expressionNode()      {}
func (l *LogicalExpression) TokenLiteral() string { return l.Token.Literal }
func (l *LogicalExpression) Pos() token.Position  { return l.Token.Pos }

func (l *LogicalExpression) String() string {
	return "(" + l.Left.String() + " " + l.Operator.String() + " " + l.Right.String() + ")"
}

// AssignmentExpression is target = value or a compound assignment. For
// plain "=", Target may be a destructuring pattern.
type AssignmentExpression struct {
	Token    token.Token
	Operator token.Type
	Target   Pattern
	Value    Expression
}

func (a *AssignmentExpression) expressionNode()      {}
func (a *AssignmentExpression) TokenLiteral() string { return a.Token.Literal }
func (a *AssignmentExpression) Pos() token.Position  { return a.Token.Pos }

func (a *AssignmentExpression) String() string {
	return "(" + a.Target.String() + " " + a.Operator.String() + " " + a.Value.String() + ")"
}

// ConditionalExpression is cond ? cons : alt.
type ConditionalExpression struct {
	Token      token.Token
	Test       Expression
	Consequent Expression
	Alternate  Expression
}

func (c *ConditionalExpression) expressionNode()      {}
func (c *ConditionalExpression) TokenLiteral() string { return c.Token.Literal }
func (c *ConditionalExpression) Pos() token.Position  { return c.Token.Pos }

func (c *ConditionalExpression) String() string {
	return "(" + c.Test.String() + " ? " + c.Consequent.String() + " : " + c.Alternate.String() + ")"
}

// MemberExpression is obj.prop, obj[expr], obj?.prop or super.prop.
type MemberExpression struct {
	Token    token.Token
	Object   Expression
	Property Expression // Identifier for dot access, arbitrary for computed
	Computed bool
	Optional bool // obj?.prop — this link is optional
}

func (m *MemberExpression) expressionNode()      {}
func (m *MemberExpression) patternNode()         {}
func (m *MemberExpression) TokenLiteral() string { return m.Token.Literal }
func (m *MemberExpression) Pos() token.Position  { return m.Token.Pos }

func (m *MemberExpression) String() string {
	dot := "."
	if m.Optional {
		dot = "?."
	}
	if m.Computed {
		if m.Optional {
			return m.Object.String() + "?.[" + m.Property.String() + "]"
		}
		return m.Object.String() + "[" + m.Property.String() + "]"
	}
	return m.Object.String() + dot + m.Property.String()
}

// CallExpression is callee(args) or callee?.(args), including super(args).
type CallExpression struct {
	Token     token.Token
	Callee    Expression
	Arguments []Expression
	Optional  bool // callee?.(args)
}

func (c *CallExpression) expressionNode()      {}
func (c *CallExpression) TokenLiteral() string { return c.Token.Literal }
func (c *CallExpression) Pos() token.Position  { return c.Token.Pos }

func (c *CallExpression) String() string {
	call := "("
	if c.Optional {
		call = "?.("
	}
	return c.Callee.String() + call + joinExpressions(c.Arguments, ", ") + ")"
}

// NewExpression is new Callee(args).
type NewExpression struct {
	Token     token.Token
	Callee    Expression
	Arguments []Expression
}

func (n *NewExpression) expressionNode()      {}
func (n *NewExpression) TokenLiteral() string { return n.Token.Literal }
func (n *NewExpression) Pos() token.Position  { return n.Token.Pos }

func (n *NewExpression) String() string {
	return "new " + n.Callee.String() + "(" + joinExpressions(n.Arguments, ", ") + ")"
}

// ImportCall is the dynamic import(specifier) expression.
type ImportCall struct {
	Token     token.Token
	Specifier Expression
}

func (i *ImportCall) expressionNode()      {}
func (i *ImportCall) TokenLiteral() string { return i.Token.Literal }
func (i *ImportCall) String() string       { return "import(" + i.Specifier.String() + ")" }
func (i *ImportCall) Pos() token.Position  { return i.Token.Pos }

// YieldExpression is yield or yield* inside a generator.
type YieldExpression struct {
	Token    token.Token
	Argument Expression // may be nil
	Delegate bool       // yield*
}

func (y *YieldExpression) expressionNode()      {}
func (y *YieldExpression) TokenLiteral() string { return y.Token.Literal }
func (y *YieldExpression) Pos() token.Position  { return y.Token.Pos }

func (y *YieldExpression) String() string {
	out := "yield"
	if y.Delegate {
		out += "*"
	}
	if y.Argument != nil {
		out += " " + y.Argument.String()
	}
	return "(" + out + ")"
}

// AwaitExpression is await expr inside an async function or module.
type AwaitExpression struct {
	Token    token.Token
	Argument Expression
}

func (a *AwaitExpression) expressionNode()      {}
func (a *AwaitExpression) TokenLiteral() string { return a.Token.Literal }
func (a *AwaitExpression) String() string       { return "(await " + a.Argument.String() + ")" }
func (a *AwaitExpression) Pos() token.Position  { return a.Token.Pos }

// FunctionLiteral covers function declarations, function expressions, and
// methods. Arrow functions have their own node.
type FunctionLiteral struct {
	Token     token.Token
	Name      *Identifier // nil for anonymous expressions
	Params    []Pattern
	Body      *BlockStatement
	Scope     *Scope // function scope (params + body var bindings)
	Generator bool
	Async     bool
	Strict    bool

	// SimpleParams reports whether every parameter is a plain identifier,
	// which selects the mapped arguments object and permits duplicate
	// parameter names in sloppy mode.
	SimpleParams bool
}

func (f *FunctionLiteral) expressionNode()      {}
func (f *FunctionLiteral) TokenLiteral() string { return f.Token.Literal }
func (f *FunctionLiteral) Pos() token.Position  { return f.Token.Pos }

func (f *FunctionLiteral) methodPrefix() string {
	prefix := ""
	if f.Async {
		prefix += "async "
	}
	if f.Generator {
		prefix += "*"
	}
	return prefix
}

func (f *FunctionLiteral) paramsBodyString() string {
	return "(" + joinExpressions(f.Params, ", ") + ") " + f.Body.String()
}

func (f *FunctionLiteral) String() string {
	var out bytes.Buffer
	if f.Async {
		out.WriteString("async ")
	}
	out.WriteString("function")
	if f.Generator {
		out.WriteString("*")
	}
	if f.Name != nil {
		out.WriteString(" ")
		out.WriteString(f.Name.Name)
	}
	out.WriteString(f.paramsBodyString())
	return out.String()
}

// ArrowFunction is (params) => body. ExprBody holds the concise body form;
// Body holds the block form. Exactly one is non-nil.
type ArrowFunction struct {
	Token    token.Token
	Params   []Pattern
	Body     *BlockStatement
	ExprBody Expression
	Scope    *Scope
	Async    bool

	SimpleParams bool
}

func (a *ArrowFunction) expressionNode()      {}
func (a *ArrowFunction) TokenLiteral() string { return a.Token.Literal }
func (a *ArrowFunction) Pos() token.Position  { return a.Token.Pos }

func (a *ArrowFunction) String() string {
	var out bytes.Buffer
	if a.Async {
		out.WriteString("async ")
	}
	out.WriteString("(" + joinExpressions(a.Params, ", ") + ") => ")
	if a.ExprBody != nil {
		out.WriteString(a.ExprBody.String())
	} else {
		out.WriteString(a.Body.String())
	}
	return out.String()
}

// ClassElementKind classifies members of a class body.
type ClassElementKind int

const (
	ClassMethod ClassElementKind = iota
	ClassGetter
	ClassSetter
	ClassField
)

// ClassElement is one member of a class body.
type ClassElement struct {
	Token    token.Token
	Kind     ClassElementKind
	Key      Expression
	Value    Expression // *FunctionLiteral for methods, initializer for fields (may be nil)
	Computed bool
	Static   bool
}

func (e *ClassElement) Pos() token.Position { return e.Token.Pos }

func (e *ClassElement) String() string {
	var out bytes.Buffer
	if e.Static {
		out.WriteString("static ")
	}
	key := e.Key.String()
	if e.Computed {
		key = "[" + key + "]"
	}
	switch e.Kind {
	case ClassGetter:
		out.WriteString("get " + key + e.Value.(*FunctionLiteral).paramsBodyString())
	case ClassSetter:
		out.WriteString("set " + key + e.Value.(*FunctionLiteral).paramsBodyString())
	case ClassField:
		out.WriteString(key)
		if e.Value != nil {
			out.WriteString(" = " + e.Value.String())
		}
		out.WriteString(";")
	default:
		fn := e.Value.(*FunctionLiteral)
		out.WriteString(fn.methodPrefix() + key + fn.paramsBodyString())
	}
	return out.String()
}

// ClassLiteral covers class declarations and class expressions.
type ClassLiteral struct {
	Token      token.Token
	Name       *Identifier // nil for anonymous class expressions
	SuperClass Expression  // nil when the class has no extends clause
	Elements   []*ClassElement
	Scope      *Scope // class scope holding the inner name binding
}

func (c *ClassLiteral) expressionNode()      {}
func (c *ClassLiteral) TokenLiteral() string { return c.Token.Literal }
func (c *ClassLiteral) Pos() token.Position  { return c.Token.Pos }

func (c *ClassLiteral) String() string {
	var out bytes.Buffer
	out.WriteString("class")
	if c.Name != nil {
		out.WriteString(" " + c.Name.Name)
	}
	if c.SuperClass != nil {
		out.WriteString(" extends " + c.SuperClass.String())
	}
	out.WriteString(" { ")
	for i, el := range c.Elements {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(el.String())
	}
	out.WriteString(" }")
	return out.String()
}
