package parser

import "github.com/cwbudde/go-ecma/internal/ast"

// resolve walks the parsed tree and statically resolves identifier
// references to their compile-time bindings. References that cross a
// function boundary mark the binding as escaping (it must live in a runtime
// environment slot rather than a register). References through poisoned
// scopes (with, direct eval) stay unresolved and compile to runtime name
// lookups.
func resolve(program *ast.Program) {
	r := &resolver{scope: program.Scope}
	for _, stmt := range program.Statements {
		r.stmt(stmt)
	}
}

type resolver struct {
	scope *ast.Scope
}

func (r *resolver) inScope(s *ast.Scope, fn func()) {
	if s == nil || s == r.scope {
		fn()
		return
	}
	saved := r.scope
	r.scope = s
	fn()
	r.scope = saved
}

// ref resolves one identifier reference.
func (r *resolver) ref(id *ast.Identifier) {
	if id == nil || id.Binding != nil {
		return
	}
	b, poisoned := r.scope.Lookup(id.Name)
	if b == nil || poisoned {
		return // runtime name lookup
	}
	id.Binding = b
	if b.Scope.Function != r.scope.Function {
		b.MarkEscapes()
	}
}

func (r *resolver) stmt(s ast.Statement) {
	switch t := s.(type) {
	case *ast.ExpressionStatement:
		r.expr(t.Expression)
	case *ast.VariableStatement:
		for _, d := range t.Declarators {
			r.pattern(d.Target)
			r.expr(d.Init)
		}
	case *ast.BlockStatement:
		r.inScope(t.Scope, func() {
			for _, s2 := range t.Statements {
				r.stmt(s2)
			}
		})
	case *ast.IfStatement:
		r.expr(t.Test)
		r.stmt(t.Consequent)
		if t.Alternate != nil {
			r.stmt(t.Alternate)
		}
	case *ast.ForStatement:
		r.inScope(t.Scope, func() {
			if t.Init != nil {
				r.stmt(t.Init)
			}
			r.expr(t.Test)
			r.expr(t.Update)
			r.stmt(t.Body)
		})
	case *ast.ForInStatement:
		r.inScope(t.Scope, func() {
			r.pattern(t.Target)
			r.expr(t.Object)
			r.stmt(t.Body)
		})
	case *ast.ForOfStatement:
		r.inScope(t.Scope, func() {
			r.pattern(t.Target)
			r.expr(t.Iterable)
			r.stmt(t.Body)
		})
	case *ast.WhileStatement:
		r.expr(t.Test)
		r.stmt(t.Body)
	case *ast.DoWhileStatement:
		r.stmt(t.Body)
		r.expr(t.Test)
	case *ast.SwitchStatement:
		r.expr(t.Discriminant)
		r.inScope(t.Scope, func() {
			for _, c := range t.Cases {
				r.expr(c.Test)
				for _, s2 := range c.Body {
					r.stmt(s2)
				}
			}
		})
	case *ast.ReturnStatement:
		r.expr(t.Argument)
	case *ast.ThrowStatement:
		r.expr(t.Argument)
	case *ast.TryStatement:
		r.stmt(t.Block)
		if t.Handler != nil {
			r.inScope(t.CatchScope, func() {
				if t.CatchParam != nil {
					r.pattern(t.CatchParam)
				}
				r.stmt(t.Handler)
			})
		}
		if t.Finalizer != nil {
			r.stmt(t.Finalizer)
		}
	case *ast.LabeledStatement:
		r.stmt(t.Body)
	case *ast.FunctionDeclaration:
		r.function(t.Function)
	case *ast.ClassDeclaration:
		r.class(t.Class)
	case *ast.WithStatement:
		r.expr(t.Object)
		r.inScope(t.Scope, func() {
			r.stmt(t.Body)
		})
	case *ast.ImportDeclaration:
		// Import bindings are declared, never referenced here.
	case *ast.ExportDeclaration:
		if t.Declaration != nil {
			r.stmt(t.Declaration)
		}
		r.expr(t.Default)
		if t.Source == nil {
			for _, spec := range t.Specifiers {
				r.ref(spec.Local)
			}
		}
	}
}

func (r *resolver) expr(e ast.Expression) {
	switch t := e.(type) {
	case nil:
	case *ast.Identifier:
		r.ref(t)
	case *ast.ArrayLiteral:
		for _, el := range t.Elements {
			r.expr(el)
		}
	case *ast.ObjectLiteral:
		for _, prop := range t.Properties {
			if prop.Computed {
				r.expr(prop.Key)
			}
			r.expr(prop.Value)
			r.expr(prop.Argument)
		}
	case *ast.TemplateLiteral:
		for _, sub := range t.Expressions {
			r.expr(sub)
		}
	case *ast.TaggedTemplate:
		r.expr(t.Tag)
		r.expr(t.Quasi)
	case *ast.SpreadElement:
		r.expr(t.Argument)
	case *ast.SequenceExpression:
		for _, sub := range t.Expressions {
			r.expr(sub)
		}
	case *ast.UnaryExpression:
		r.expr(t.Operand)
	case *ast.UpdateExpression:
		r.expr(t.Operand)
	case *ast.BinaryExpression:
		r.expr(t.Left)
		r.expr(t.Right)
	case *ast.LogicalExpression:
		r.expr(t.Left)
		r.expr(t.Right)
	case *ast.AssignmentExpression:
		r.pattern(t.Target)
		r.expr(t.Value)
	case *ast.ConditionalExpression:
		r.expr(t.Test)
		r.expr(t.Consequent)
		r.expr(t.Alternate)
	case *ast.MemberExpression:
		r.expr(t.Object)
		if t.Computed {
			r.expr(t.Property)
		}
	case *ast.CallExpression:
		r.expr(t.Callee)
		for _, a := range t.Arguments {
			r.expr(a)
		}
	case *ast.NewExpression:
		r.expr(t.Callee)
		for _, a := range t.Arguments {
			r.expr(a)
		}
	case *ast.ImportCall:
		r.expr(t.Specifier)
	case *ast.YieldExpression:
		r.expr(t.Argument)
	case *ast.AwaitExpression:
		r.expr(t.Argument)
	case *ast.FunctionLiteral:
		r.function(t)
	case *ast.ArrowFunction:
		r.arrow(t)
	case *ast.ClassLiteral:
		r.class(t)
	}
}

// pattern resolves a binding or assignment pattern. Identifiers already
// carrying a binding are declaration sites; bare ones are assignment
// targets and resolve like references.
func (r *resolver) pattern(pat ast.Pattern) {
	switch t := pat.(type) {
	case nil:
	case *ast.Identifier:
		r.ref(t)
	case *ast.MemberExpression:
		r.expr(t)
	case *ast.ArrayPattern:
		for _, el := range t.Elements {
			if el != nil {
				r.pattern(el)
			}
		}
		if t.Rest != nil {
			r.pattern(t.Rest)
		}
	case *ast.ObjectPattern:
		for _, prop := range t.Properties {
			if prop.Computed {
				r.expr(prop.Key)
			}
			r.pattern(prop.Value)
			r.expr(prop.Default)
		}
		if t.Rest != nil {
			r.pattern(t.Rest)
		}
	case *ast.DefaultPattern:
		r.pattern(t.Target)
		r.expr(t.Default)
	case *ast.RestElement:
		r.pattern(t.Target)
	}
}

func (r *resolver) function(fn *ast.FunctionLiteral) {
	r.inScope(fn.Scope, func() {
		for _, p := range fn.Params {
			r.pattern(p)
		}
		for _, s := range fn.Body.Statements {
			r.stmt(s)
		}
	})
}

func (r *resolver) arrow(fn *ast.ArrowFunction) {
	r.inScope(fn.Scope, func() {
		for _, p := range fn.Params {
			r.pattern(p)
		}
		if fn.ExprBody != nil {
			r.expr(fn.ExprBody)
		} else {
			for _, s := range fn.Body.Statements {
				r.stmt(s)
			}
		}
	})
}

func (r *resolver) class(c *ast.ClassLiteral) {
	r.expr(c.SuperClass)
	r.inScope(c.Scope, func() {
		for _, el := range c.Elements {
			if el.Computed {
				r.expr(el.Key)
			}
			if el.Kind == ast.ClassField {
				r.expr(el.Value)
			} else if fn, ok := el.Value.(*ast.FunctionLiteral); ok {
				r.function(fn)
			}
		}
	})
}
