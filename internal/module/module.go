package module

import (
	"fmt"

	"github.com/cwbudde/go-ecma/internal/ast"
	"github.com/cwbudde/go-ecma/internal/bytecode"
	"github.com/cwbudde/go-ecma/internal/runtime"
)

// Status tracks a module record through its lifecycle.
type Status int

const (
	Unlinked Status = iota
	Linking
	Linked
	Evaluating
	Evaluated
	Failed
)

// importEntry is one imported binding.
type importEntry struct {
	specifier string
	imported  string // exporting module's name; "*" for namespace imports
	local     string
}

// exportEntry is one exported name.
type exportEntry struct {
	exported string
	local    string // local binding name; "" for re-exports
	from     string // source specifier for indirect exports
	imported string // name in the source module for indirect exports
	star     bool   // export * from
}

// Module is one module record: compiled code, environment, namespace, and
// the import/export tables scanned from the AST.
type Module struct {
	Specifier string
	Block     *bytecode.CodeBlock

	status    Status
	env       *runtime.Environment
	namespace *runtime.Object

	imports  []importEntry
	exports  []exportEntry
	requests []string

	deps      map[string]*Module
	evalError error
}

// New builds a module record from a parsed program and its compiled code.
func New(specifier string, program *ast.Program, block *bytecode.CodeBlock) *Module {
	m := &Module{
		Specifier: specifier,
		Block:     block,
		deps:      make(map[string]*Module),
	}
	m.scan(program)
	return m
}

// Status returns the record's lifecycle state.
func (m *Module) Status() Status { return m.status }

// Env returns the module environment (after linking).
func (m *Module) Env() *runtime.Environment { return m.env }

// Requests returns the module's requested specifiers in source order.
func (m *Module) Requests() []string { return m.requests }

// scan collects the import/export tables.
func (m *Module) scan(program *ast.Program) {
	addRequest := func(spec string) {
		for _, s := range m.requests {
			if s == spec {
				return
			}
		}
		m.requests = append(m.requests, spec)
	}

	for _, stmt := range program.Statements {
		switch t := stmt.(type) {
		case *ast.ImportDeclaration:
			spec := t.Source.Value
			addRequest(spec)
			if t.Namespace != nil {
				m.imports = append(m.imports, importEntry{specifier: spec, imported: "*", local: t.Namespace.Name})
			}
			for _, s := range t.Specifiers {
				m.imports = append(m.imports, importEntry{specifier: spec, imported: s.Imported.Name, local: s.Local.Name})
			}

		case *ast.ExportDeclaration:
			switch {
			case t.Declaration != nil:
				for _, name := range declaredNames(t.Declaration) {
					if t.IsDefault {
						m.exports = append(m.exports, exportEntry{exported: "default", local: name})
					} else {
						m.exports = append(m.exports, exportEntry{exported: name, local: name})
					}
				}
			case t.Default != nil:
				m.exports = append(m.exports, exportEntry{exported: "default", local: "*default*"})
			case t.Star:
				spec := t.Source.Value
				addRequest(spec)
				if t.StarAs != nil {
					m.exports = append(m.exports, exportEntry{exported: t.StarAs.Name, from: spec, imported: "*"})
				} else {
					m.exports = append(m.exports, exportEntry{from: spec, star: true})
				}
			case t.Source != nil:
				spec := t.Source.Value
				addRequest(spec)
				for _, s := range t.Specifiers {
					m.exports = append(m.exports, exportEntry{exported: s.Exported.Name, from: spec, imported: s.Local.Name})
				}
			default:
				for _, s := range t.Specifiers {
					m.exports = append(m.exports, exportEntry{exported: s.Exported.Name, local: s.Local.Name})
				}
			}
		}
	}
}

// declaredNames lists the bindings a declaration statement introduces.
func declaredNames(stmt ast.Statement) []string {
	switch t := stmt.(type) {
	case *ast.VariableStatement:
		var names []string
		for _, d := range t.Declarators {
			names = append(names, patternNames(d.Target)...)
		}
		return names
	case *ast.FunctionDeclaration:
		if t.Function.Name != nil {
			return []string{t.Function.Name.Name}
		}
	case *ast.ClassDeclaration:
		if t.Class.Name != nil {
			return []string{t.Class.Name.Name}
		}
	}
	return nil
}

func patternNames(p ast.Pattern) []string {
	switch t := p.(type) {
	case *ast.Identifier:
		return []string{t.Name}
	case *ast.ArrayPattern:
		var names []string
		for _, el := range t.Elements {
			if el != nil {
				names = append(names, patternNames(el)...)
			}
		}
		if t.Rest != nil {
			names = append(names, patternNames(t.Rest)...)
		}
		return names
	case *ast.ObjectPattern:
		var names []string
		for _, prop := range t.Properties {
			names = append(names, patternNames(prop.Value)...)
		}
		if t.Rest != nil {
			names = append(names, patternNames(t.Rest)...)
		}
		return names
	case *ast.DefaultPattern:
		return patternNames(t.Target)
	case *ast.RestElement:
		return patternNames(t.Target)
	}
	return nil
}

// ExportNames returns the module's flattened export name list (excluding
// star re-exports, which resolve during linking).
func (m *Module) ExportNames() []string {
	var names []string
	for _, e := range m.exports {
		if !e.star {
			names = append(names, e.exported)
		}
	}
	return names
}

// Loader resolves one module request. Specifiers are pre-normalized with
// Normalize before the callback runs; duplicate (referrer, specifier)
// loads hit the linker cache instead.
type Loader func(referrer, specifier string) (*Module, error)

// Linker drives link and evaluate over a module graph.
type Linker struct {
	realm  *runtime.Realm
	vm     *bytecode.VM
	loader Loader
	cache  map[string]*Module
}

// NewLinker creates a linker for the realm.
func NewLinker(realm *runtime.Realm, vm *bytecode.VM, loader Loader) *Linker {
	return &Linker{
		realm:  realm,
		vm:     vm,
		loader: loader,
		cache:  make(map[string]*Module),
	}
}

// Register inserts a module into the cache under its specifier.
func (l *Linker) Register(m *Module) {
	l.cache[m.Specifier] = m
}

// Lookup returns a cached module.
func (l *Linker) Lookup(specifier string) (*Module, bool) {
	m, ok := l.cache[specifier]
	return m, ok
}

// resolve loads (or finds) a dependency.
func (l *Linker) resolve(referrer *Module, request string) (*Module, error) {
	specifier := Normalize(referrer.Specifier, request)
	if m, ok := l.cache[specifier]; ok {
		return m, nil
	}
	if l.loader == nil {
		return nil, fmt.Errorf("module %q requested by %q: no module loader installed", specifier, referrer.Specifier)
	}
	m, err := l.loader(referrer.Specifier, specifier)
	if err != nil {
		return nil, err
	}
	if m.Specifier == "" {
		m.Specifier = specifier
	}
	l.cache[m.Specifier] = m
	return m, nil
}

// Link resolves the dependency graph and creates the module environments.
func (l *Linker) Link(m *Module) error {
	switch m.status {
	case Linking:
		return nil // cycle: in progress is fine
	case Linked, Evaluating, Evaluated:
		return nil
	case Failed:
		return m.evalError
	}
	m.status = Linking

	m.env = l.realm.NewModuleEnv(l.realm.GlobalEnv)

	for _, request := range m.requests {
		dep, err := l.resolve(m, request)
		if err != nil {
			m.status = Failed
			m.evalError = err
			return err
		}
		m.deps[Normalize(m.Specifier, request)] = dep
		if err := l.Link(dep); err != nil {
			m.status = Failed
			m.evalError = err
			return err
		}
	}

	m.status = Linked
	return nil
}

// Evaluate runs the module graph depth-first, copying exported values into
// importer environments before each importer body runs.
func (l *Linker) Evaluate(m *Module) error {
	switch m.status {
	case Evaluated:
		return m.evalError
	case Evaluating:
		return nil // cycle
	case Unlinked:
		if err := l.Link(m); err != nil {
			return err
		}
	case Failed:
		return m.evalError
	}
	m.status = Evaluating

	for _, dep := range m.deps {
		if err := l.Evaluate(dep); err != nil {
			m.status = Failed
			m.evalError = err
			return err
		}
	}

	if err := l.bindImports(m); err != nil {
		m.status = Failed
		m.evalError = err
		return err
	}

	if _, err := l.vm.RunModuleCode(m.Block, m.env); err != nil {
		m.status = Failed
		m.evalError = err
		return err
	}
	m.status = Evaluated
	return nil
}

// bindImports copies dependency exports into the importer's environment.
// Bindings are immutable on the importing side.
func (l *Linker) bindImports(m *Module) error {
	for _, imp := range m.imports {
		dep := m.deps[Normalize(m.Specifier, imp.specifier)]
		if dep == nil {
			return fmt.Errorf("unresolved module request %q in %q", imp.specifier, m.Specifier)
		}
		if imp.imported == "*" {
			ns := l.Namespace(dep)
			m.env.DeclareNamed(imp.local, false, true)
			m.env.InitNamed(imp.local, runtime.ObjectValue(ns))
			continue
		}
		v, err := l.resolveExport(dep, imp.imported, nil)
		if err != nil {
			return err
		}
		m.env.DeclareNamed(imp.local, false, true)
		m.env.InitNamed(imp.local, v)
	}
	return nil
}

// resolveExport reads one exported value, following indirect and star
// re-exports.
func (l *Linker) resolveExport(m *Module, name string, seen []*Module) (runtime.Value, error) {
	for _, s := range seen {
		if s == m {
			return runtime.Undefined(), fmt.Errorf("circular re-export of %q in %q", name, m.Specifier)
		}
	}
	seen = append(seen, m)

	for _, e := range m.exports {
		if e.star {
			continue
		}
		if e.exported != name {
			continue
		}
		if e.from != "" {
			dep := m.deps[Normalize(m.Specifier, e.from)]
			if dep == nil {
				return runtime.Undefined(), fmt.Errorf("unresolved re-export source %q", e.from)
			}
			if e.imported == "*" {
				return runtime.ObjectValue(l.Namespace(dep)), nil
			}
			return l.resolveExport(dep, e.imported, seen)
		}
		v, err := runtime.GetName(l.realm, m.env, e.local)
		if err != nil {
			return runtime.Undefined(), fmt.Errorf("export %q of %q is not initialized", name, m.Specifier)
		}
		return v, nil
	}

	// Star re-exports, searched in order.
	for _, e := range m.exports {
		if !e.star {
			continue
		}
		dep := m.deps[Normalize(m.Specifier, e.from)]
		if dep == nil {
			continue
		}
		if v, err := l.resolveExport(dep, name, seen); err == nil {
			return v, nil
		}
	}
	return runtime.Undefined(), fmt.Errorf("module %q does not export %q", m.Specifier, name)
}

// Namespace materializes (and caches) the module namespace exotic object.
func (l *Linker) Namespace(m *Module) *runtime.Object {
	if m.namespace != nil {
		return m.namespace
	}
	m.namespace = l.realm.NewModuleNamespace(m.env, m.ExportNames())
	return m.namespace
}
