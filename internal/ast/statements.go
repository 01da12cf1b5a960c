package ast

import (
	"bytes"
	"strings"

	"github.com/cwbudde/go-ecma/pkg/token"
)

// ExpressionStatement wraps an expression evaluated for its effects.
type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (e *ExpressionStatement) statementNode()       {}
func (e *ExpressionStatement) TokenLiteral() string { return e.Token.Literal }
func (e *ExpressionStatement) String() string       { return e.Expression.String() + ";" }
func (e *ExpressionStatement) Pos() token.Position  { return e.Token.Pos }

// DeclarationKind is var, let, or const.
type DeclarationKind int

const (
	DeclVar DeclarationKind = iota
	DeclLet
	DeclConst
)

func (k DeclarationKind) String() string {
	switch k {
	case DeclLet:
		return "let"
	case DeclConst:
		return "const"
	default:
		return "var"
	}
}

// Declarator is one name-initializer pair of a declaration statement.
type Declarator struct {
	Target Pattern
	Init   Expression // nil when absent
}

func (d *Declarator) String() string {
	if d.Init == nil {
		return d.Target.String()
	}
	return d.Target.String() + " = " + d.Init.String()
}

// VariableStatement is a var/let/const declaration list.
type VariableStatement struct {
	Token       token.Token
	Kind        DeclarationKind
	Declarators []*Declarator
}

func (v *VariableStatement) statementNode()       {}
func (v *VariableStatement) TokenLiteral() string { return v.Token.Literal }
func (v *VariableStatement) Pos() token.Position  { return v.Token.Pos }

func (v *VariableStatement) String() string {
	parts := make([]string, len(v.Declarators))
	for i, d := range v.Declarators {
		parts[i] = d.String()
	}
	return v.Kind.String() + " " + strings.Join(parts, ", ") + ";"
}

// BlockStatement is { ... }. It introduces a lexical scope.
type BlockStatement struct {
	Token      token.Token
	Statements []Statement
	Scope      *Scope
}

func (b *BlockStatement) statementNode()       {}
func (b *BlockStatement) TokenLiteral() string { return b.Token.Literal }
func (b *BlockStatement) Pos() token.Position  { return b.Token.Pos }

func (b *BlockStatement) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for i, s := range b.Statements {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(s.String())
	}
	out.WriteString(" }")
	return out.String()
}

// EmptyStatement is a bare semicolon.
type EmptyStatement struct {
	Token token.Token
}

func (e *EmptyStatement) statementNode()       {}
func (e *EmptyStatement) TokenLiteral() string { return e.Token.Literal }
func (e *EmptyStatement) String() string       { return ";" }
func (e *EmptyStatement) Pos() token.Position  { return e.Token.Pos }

// IfStatement is if (test) cons else alt.
type IfStatement struct {
	Token      token.Token
	Test       Expression
	Consequent Statement
	Alternate  Statement // nil when absent
}

func (i *IfStatement) statementNode()       {}
func (i *IfStatement) TokenLiteral() string { return i.Token.Literal }
func (i *IfStatement) Pos() token.Position  { return i.Token.Pos }

func (i *IfStatement) String() string {
	out := "if (" + i.Test.String() + ") " + i.Consequent.String()
	if i.Alternate != nil {
		out += " else " + i.Alternate.String()
	}
	return out
}

// ForStatement is the classic three-clause for loop. Init is either a
// VariableStatement or an ExpressionStatement, or nil.
type ForStatement struct {
	Token  token.Token
	Init   Statement
	Test   Expression // nil when absent
	Update Expression // nil when absent
	Body   Statement
	Scope  *Scope // header scope for per-iteration lexical bindings
}

func (f *ForStatement) statementNode()       {}
func (f *ForStatement) TokenLiteral() string { return f.Token.Literal }
func (f *ForStatement) Pos() token.Position  { return f.Token.Pos }

func (f *ForStatement) String() string {
	var out bytes.Buffer
	out.WriteString("for (")
	if f.Init != nil {
		out.WriteString(strings.TrimSuffix(f.Init.String(), ";"))
	}
	out.WriteString("; ")
	if f.Test != nil {
		out.WriteString(f.Test.String())
	}
	out.WriteString("; ")
	if f.Update != nil {
		out.WriteString(f.Update.String())
	}
	out.WriteString(") ")
	out.WriteString(f.Body.String())
	return out.String()
}

// ForInStatement is for (target in object) body.
type ForInStatement struct {
	Token  token.Token
	Kind   DeclarationKind // meaningful only when Decl is true
	Decl   bool            // target was declared in the header
	Target Pattern
	Object Expression
	Body   Statement
	Scope  *Scope
}

func (f *ForInStatement) statementNode()       {}
func (f *ForInStatement) TokenLiteral() string { return f.Token.Literal }
func (f *ForInStatement) Pos() token.Position  { return f.Token.Pos }

func (f *ForInStatement) String() string {
	return f.headerString("in", f.Object) + f.Body.String()
}

func (f *ForInStatement) headerString(op string, right Expression) string {
	var out bytes.Buffer
	out.WriteString("for (")
	if f.Decl {
		out.WriteString(f.Kind.String() + " ")
	}
	out.WriteString(f.Target.String())
	out.WriteString(" " + op + " ")
	out.WriteString(right.String())
	out.WriteString(") ")
	return out.String()
}

// ForOfStatement is for (target of iterable) body, or its await form.
type ForOfStatement struct {
	Token    token.Token
	Kind     DeclarationKind
	Decl     bool
	Target   Pattern
	Iterable Expression
	Body     Statement
	Await    bool
	Scope    *Scope
}

func (f *ForOfStatement) statementNode()       {}
func (f *ForOfStatement) TokenLiteral() string { return f.Token.Literal }
func (f *ForOfStatement) Pos() token.Position  { return f.Token.Pos }

func (f *ForOfStatement) String() string {
	var out bytes.Buffer
	out.WriteString("for ")
	if f.Await {
		out.WriteString("await ")
	}
	out.WriteString("(")
	if f.Decl {
		out.WriteString(f.Kind.String() + " ")
	}
	out.WriteString(f.Target.String())
	out.WriteString(" of ")
	out.WriteString(f.Iterable.String())
	out.WriteString(") ")
	out.WriteString(f.Body.String())
	return out.String()
}

// WhileStatement is while (test) body.
type WhileStatement struct {
	Token token.Token
	Test  Expression
	Body  Statement
}

func (w *WhileStatement) statementNode()       {}
func (w *WhileStatement) TokenLiteral() string { return w.Token.Literal }
func (w *WhileStatement) Pos() token.Position  { return w.Token.Pos }

func (w *WhileStatement) String() string {
	return "while (" + w.Test.String() + ") " + w.Body.String()
}

// DoWhileStatement is do body while (test);.
type DoWhileStatement struct {
	Token token.Token
	Body  Statement
	Test  Expression
}

func (d *DoWhileStatement) statementNode()       {}
func (d *DoWhileStatement) TokenLiteral() string { return d.Token.Literal }
func (d *DoWhileStatement) Pos() token.Position  { return d.Token.Pos }

func (d *DoWhileStatement) String() string {
	return "do " + d.Body.String() + " while (" + d.Test.String() + ");"
}

// SwitchCase is one case (or default) clause.
type SwitchCase struct {
	Token token.Token
	Test  Expression // nil for default
	Body  []Statement
}

func (c *SwitchCase) String() string {
	var out bytes.Buffer
	if c.Test == nil {
		out.WriteString("default:")
	} else {
		out.WriteString("case " + c.Test.String() + ":")
	}
	for _, s := range c.Body {
		out.WriteString(" " + s.String())
	}
	return out.String()
}

// SwitchStatement is switch (disc) { cases }. The case block introduces
// one lexical scope shared by all clauses.
type SwitchStatement struct {
	Token        token.Token
	Discriminant Expression
	Cases        []*SwitchCase
	Scope        *Scope
}

func (s *SwitchStatement) statementNode()       {}
func (s *SwitchStatement) TokenLiteral() string { return s.Token.Literal }
func (s *SwitchStatement) Pos() token.Position  { return s.Token.Pos }

func (s *SwitchStatement) String() string {
	var out bytes.Buffer
	out.WriteString("switch (" + s.Discriminant.String() + ") { ")
	for i, c := range s.Cases {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(c.String())
	}
	out.WriteString(" }")
	return out.String()
}

// BreakStatement is break or break label;.
type BreakStatement struct {
	Token token.Token
	Label *Identifier // nil when absent
}

func (b *BreakStatement) statementNode()       {}
func (b *BreakStatement) TokenLiteral() string { return b.Token.Literal }
func (b *BreakStatement) Pos() token.Position  { return b.Token.Pos }

func (b *BreakStatement) String() string {
	if b.Label != nil {
		return "break " + b.Label.Name + ";"
	}
	return "break;"
}

// ContinueStatement is continue or continue label;.
type ContinueStatement struct {
	Token token.Token
	Label *Identifier
}

func (c *ContinueStatement) statementNode()       {}
func (c *ContinueStatement) TokenLiteral() string { return c.Token.Literal }
func (c *ContinueStatement) Pos() token.Position  { return c.Token.Pos }

func (c *ContinueStatement) String() string {
	if c.Label != nil {
		return "continue " + c.Label.Name + ";"
	}
	return "continue;"
}

// ReturnStatement is return expr;.
type ReturnStatement struct {
	Token    token.Token
	Argument Expression // nil when absent
}

func (r *ReturnStatement) statementNode()       {}
func (r *ReturnStatement) TokenLiteral() string { return r.Token.Literal }
func (r *ReturnStatement) Pos() token.Position  { return r.Token.Pos }

func (r *ReturnStatement) String() string {
	if r.Argument == nil {
		return "return;"
	}
	return "return " + r.Argument.String() + ";"
}

// ThrowStatement is throw expr;.
type ThrowStatement struct {
	Token    token.Token
	Argument Expression
}

func (t *ThrowStatement) statementNode()       {}
func (t *ThrowStatement) TokenLiteral() string { return t.Token.Literal }
func (t *ThrowStatement) String() string       { return "throw " + t.Argument.String() + ";" }
func (t *ThrowStatement) Pos() token.Position  { return t.Token.Pos }

// TryStatement is try { } catch (param) { } finally { }. CatchParam may be
// nil for the bare catch form; Handler and Finalizer may each be nil but
// not both.
type TryStatement struct {
	Token      token.Token
	Block      *BlockStatement
	CatchParam Pattern // nil for catch {}
	CatchScope *Scope
	Handler    *BlockStatement
	Finalizer  *BlockStatement
}

func (t *TryStatement) statementNode()       {}
func (t *TryStatement) TokenLiteral() string { return t.Token.Literal }
func (t *TryStatement) Pos() token.Position  { return t.Token.Pos }

func (t *TryStatement) String() string {
	var out bytes.Buffer
	out.WriteString("try " + t.Block.String())
	if t.Handler != nil {
		out.WriteString(" catch ")
		if t.CatchParam != nil {
			out.WriteString("(" + t.CatchParam.String() + ") ")
		}
		out.WriteString(t.Handler.String())
	}
	if t.Finalizer != nil {
		out.WriteString(" finally " + t.Finalizer.String())
	}
	return out.String()
}

// LabeledStatement is label: stmt.
type LabeledStatement struct {
	Token token.Token
	Label *Identifier
	Body  Statement
}

func (l *LabeledStatement) statementNode()       {}
func (l *LabeledStatement) TokenLiteral() string { return l.Token.Literal }
func (l *LabeledStatement) String() string       { return l.Label.Name + ": " + l.Body.String() }
func (l *LabeledStatement) Pos() token.Position  { return l.Token.Pos }

// FunctionDeclaration is a hoisted function declaration.
type FunctionDeclaration struct {
	Token    token.Token
	Function *FunctionLiteral
}

func (f *FunctionDeclaration) statementNode()       {}
func (f *FunctionDeclaration) TokenLiteral() string { return f.Token.Literal }
func (f *FunctionDeclaration) String() string       { return f.Function.String() }
func (f *FunctionDeclaration) Pos() token.Position  { return f.Token.Pos }

// ClassDeclaration declares a class binding.
type ClassDeclaration struct {
	Token token.Token
	Class *ClassLiteral
}

func (c *ClassDeclaration) statementNode()       {}
func (c *ClassDeclaration) TokenLiteral() string { return c.Token.Literal }
func (c *ClassDeclaration) String() string       { return c.Class.String() }
func (c *ClassDeclaration) Pos() token.Position  { return c.Token.Pos }

// WithStatement is with (object) body. Legal only in sloppy mode; it
// poisons enclosed scopes for static resolution.
type WithStatement struct {
	Token  token.Token
	Object Expression
	Body   Statement
	Scope  *Scope
}

func (w *WithStatement) statementNode()       {}
func (w *WithStatement) TokenLiteral() string { return w.Token.Literal }
func (w *WithStatement) Pos() token.Position  { return w.Token.Pos }

func (w *WithStatement) String() string {
	return "with (" + w.Object.String() + ") " + w.Body.String()
}

// DebuggerStatement is the debugger keyword statement.
type DebuggerStatement struct {
	Token token.Token
}

func (d *DebuggerStatement) statementNode()       {}
func (d *DebuggerStatement) TokenLiteral() string { return d.Token.Literal }
func (d *DebuggerStatement) String() string       { return "debugger;" }
func (d *DebuggerStatement) Pos() token.Position  { return d.Token.Pos }

// ImportSpecifier is one imported binding.
type ImportSpecifier struct {
	Imported *Identifier // name in the source module ("default" for default imports)
	Local    *Identifier
}

// ImportDeclaration is import ... from "specifier";.
type ImportDeclaration struct {
	Token      token.Token
	Specifiers []*ImportSpecifier
	Namespace  *Identifier // import * as ns
	Source     *StringLiteral
}

func (i *ImportDeclaration) statementNode()       {}
func (i *ImportDeclaration) TokenLiteral() string { return i.Token.Literal }
func (i *ImportDeclaration) Pos() token.Position  { return i.Token.Pos }

func (i *ImportDeclaration) String() string {
	var out bytes.Buffer
	out.WriteString("import ")
	if len(i.Specifiers) == 0 && i.Namespace == nil {
		out.WriteString(i.Source.String() + ";")
		return out.String()
	}
	var parts []string
	var named []string
	for _, s := range i.Specifiers {
		if s.Imported.Name == "default" {
			parts = append(parts, s.Local.Name)
		} else if s.Imported.Name == s.Local.Name {
			named = append(named, s.Imported.Name)
		} else {
			named = append(named, s.Imported.Name+" as "+s.Local.Name)
		}
	}
	if i.Namespace != nil {
		parts = append(parts, "* as "+i.Namespace.Name)
	}
	if len(named) > 0 {
		parts = append(parts, "{"+strings.Join(named, ", ")+"}")
	}
	out.WriteString(strings.Join(parts, ", "))
	out.WriteString(" from " + i.Source.String() + ";")
	return out.String()
}

// ExportSpecifier is one exported name.
type ExportSpecifier struct {
	Local    *Identifier
	Exported *Identifier
}

// ExportDeclaration covers the export statement forms: named exports,
// re-exports, export default, and export *.
type ExportDeclaration struct {
	Token       token.Token
	Declaration Statement  // export <declaration>
	IsDefault   bool       // export default <function/class declaration>
	Default     Expression // export default <expr>
	Specifiers  []*ExportSpecifier
	Source      *StringLiteral // re-export source, nil otherwise
	Star        bool           // export * from "m"
	StarAs      *Identifier    // export * as ns from "m"
}

func (e *ExportDeclaration) statementNode()       {}
func (e *ExportDeclaration) TokenLiteral() string { return e.Token.Literal }
func (e *ExportDeclaration) Pos() token.Position  { return e.Token.Pos }

func (e *ExportDeclaration) String() string {
	switch {
	case e.Declaration != nil:
		if e.IsDefault {
			return "export default " + e.Declaration.String()
		}
		return "export " + e.Declaration.String()
	case e.Default != nil:
		return "export default " + e.Default.String() + ";"
	case e.Star:
		if e.StarAs != nil {
			return "export * as " + e.StarAs.Name + " from " + e.Source.String() + ";"
		}
		return "export * from " + e.Source.String() + ";"
	default:
		parts := make([]string, len(e.Specifiers))
		for i, s := range e.Specifiers {
			if s.Local.Name == s.Exported.Name {
				parts[i] = s.Local.Name
			} else {
				parts[i] = s.Local.Name + " as " + s.Exported.Name
			}
		}
		out := "export {" + strings.Join(parts, ", ") + "}"
		if e.Source != nil {
			out += " from " + e.Source.String()
		}
		return out + ";"
	}
}
