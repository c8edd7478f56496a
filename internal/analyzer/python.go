package analyzer

import (
	"path/filepath"
	"strings"

	"codefacts/internal/complexity"
	"codefacts/internal/syntax"
)

// NewPython creates the Python analyzer
func NewPython(opts Options) Analyzer {
	return newTreeAnalyzer("python", 10, []string{".py", ".pyi"}, &pythonFrontend{}, opts)
}

type pythonFrontend struct{}

func (pythonFrontend) grammar(ext string) (syntax.Language, bool) {
	switch ext {
	case ".py", ".pyi":
		return syntax.LangPython, true
	}
	return "", false
}

func (pythonFrontend) rules() *complexity.Rules { return complexity.Python }

func (pythonFrontend) dependencies(t *syntax.Tree, path string) []Dependency {
	var deps []Dependency
	add := func(target string, kind DependencyKind, n *syntax.Node) {
		deps = append(deps, NewDependency(path, target, kind, LocationOf(n)))
	}

	t.Root.Walk(func(n *syntax.Node) bool {
		switch n.Type {
		case "import_statement":
			for _, name := range n.ChildrenByField("name") {
				add(importedModule(t, name), KindImport, n)
			}
			return false
		case "import_from_statement":
			if mod := n.ChildByField("module_name"); mod != nil {
				add(t.Text(mod), KindImport, n)
			}
			return false
		case "call":
			fn := n.ChildByField("function")
			if fn == nil {
				break
			}
			switch t.Text(fn) {
			case "__import__", "importlib.import_module", "import_module":
				if target, ok := stringValue(t, firstArgument(n)); ok {
					add(target, KindDynamicImport, n)
				}
			}
		}
		return true
	})
	return deps
}

// importedModule returns the dotted module of an import target, dropping any alias
func importedModule(t *syntax.Tree, n *syntax.Node) string {
	if n.Type == "aliased_import" {
		if name := n.ChildByField("name"); name != nil {
			return t.Text(name)
		}
	}
	return t.Text(n)
}

func (pythonFrontend) imports(t *syntax.Tree) []ImportInfo {
	var out []ImportInfo
	types := map[string]bool{"import_statement": true, "import_from_statement": true}
	for _, n := range t.Root.Find(types) {
		loc := LocationOf(n)
		names := n.ChildrenByField("name")

		if n.Type == "import_statement" {
			for _, name := range names {
				mod := importedModule(t, name)
				spec := ImportSpecifier{Name: mod, Kind: "namespace"}
				if alias := name.ChildByField("alias"); alias != nil {
					spec.Alias = t.Text(alias)
				}
				out = append(out, ImportInfo{Source: mod, Specifiers: []ImportSpecifier{spec}, Location: loc})
			}
			continue
		}

		mod := n.ChildByField("module_name")
		if mod == nil {
			continue
		}
		info := ImportInfo{Source: t.Text(mod), Specifiers: []ImportSpecifier{}, Location: loc}
		if hasChild(n, "wildcard_import") {
			info.Specifiers = append(info.Specifiers, ImportSpecifier{Name: "*", Kind: "namespace"})
		}
		for _, name := range names {
			spec := ImportSpecifier{Name: importedModule(t, name), Kind: "named"}
			if alias := name.ChildByField("alias"); alias != nil {
				spec.Alias = t.Text(alias)
			}
			info.Specifiers = append(info.Specifiers, spec)
		}
		out = append(out, info)
	}
	return out
}

// exports uses __all__ when the module declares it, otherwise every public
// top-level definition
func (pythonFrontend) exports(t *syntax.Tree) []ExportInfo {
	if all, ok := dunderAll(t); ok {
		return all
	}

	var out []ExportInfo
	for _, n := range t.Root.Children {
		def := unwrapDecorated(n)
		switch def.Type {
		case "function_definition", "class_definition":
			name := def.ChildByField("name")
			if name == nil || strings.HasPrefix(t.Text(name), "_") {
				continue
			}
			kind := "function"
			if def.Type == "class_definition" {
				kind = "class"
			}
			out = append(out, ExportInfo{Name: t.Text(name), Kind: kind, Location: LocationOf(n)})
		case "expression_statement":
			for _, v := range moduleAssignments(t, def) {
				if !strings.HasPrefix(v.Name, "_") {
					out = append(out, ExportInfo{Name: v.Name, Kind: "variable", Location: v.Location})
				}
			}
		}
	}
	return out
}

func dunderAll(t *syntax.Tree) ([]ExportInfo, bool) {
	for _, n := range t.Root.Children {
		if n.Type != "expression_statement" {
			continue
		}
		assign := n.FirstChildOfType("assignment")
		if assign == nil {
			continue
		}
		left, right := assign.ChildByField("left"), assign.ChildByField("right")
		if left == nil || right == nil || t.Text(left) != "__all__" {
			continue
		}
		out := []ExportInfo{}
		for _, item := range right.NamedChildren() {
			if name, ok := stringValue(t, item); ok {
				out = append(out, ExportInfo{Name: name, Kind: "named", Location: LocationOf(item)})
			}
		}
		return out, true
	}
	return nil, false
}

func unwrapDecorated(n *syntax.Node) *syntax.Node {
	if n.Type == "decorated_definition" {
		if def := n.ChildByField("definition"); def != nil {
			return def
		}
	}
	return n
}

func (p pythonFrontend) functions(t *syntax.Tree) []fnDecl {
	parents := parentIndex(t.Root)
	exported := exportedNames(p.exports(t))

	var out []fnDecl
	t.Root.Walk(func(n *syntax.Node) bool {
		if n.Type != "function_definition" && n.Type != "lambda" {
			return true
		}
		parent := parents[n]
		name := complexity.FunctionName(t, n, parent)
		kind := "lambda"
		if n.Type == "function_definition" {
			kind = "function"
			if enclosingClass(n, parents) != nil {
				kind = "method"
			}
		}
		out = append(out, fnDecl{
			node: n,
			info: FunctionInfo{
				Name:      name,
				Kind:      kind,
				Params:    pythonParams(t, n),
				Async:     hasChild(n, "async"),
				Generator: yields(n),
				Exported:  kind == "function" && atModuleLevel(n, parents) && exported[name],
				Location:  LocationOf(n),
			},
		})
		return true
	})
	return out
}

// enclosingClass returns the class whose body directly holds a definition
func enclosingClass(def *syntax.Node, parents map[*syntax.Node]*syntax.Node) *syntax.Node {
	p := parents[def]
	if p != nil && p.Type == "decorated_definition" {
		p = parents[p]
	}
	if p == nil || p.Type != "block" {
		return nil
	}
	if c := parents[p]; c != nil && c.Type == "class_definition" {
		return c
	}
	return nil
}

func atModuleLevel(def *syntax.Node, parents map[*syntax.Node]*syntax.Node) bool {
	p := parents[def]
	if p != nil && p.Type == "decorated_definition" {
		p = parents[p]
	}
	return p != nil && p.Type == "module"
}

func pythonParams(t *syntax.Tree, fn *syntax.Node) []string {
	params := fn.ChildByField("parameters")
	if params == nil {
		return []string{}
	}
	out := []string{}
	for _, p := range params.NamedChildren() {
		switch p.Type {
		case "identifier", "list_splat_pattern", "dictionary_splat_pattern":
			out = append(out, t.Text(p))
		case "default_parameter", "typed_default_parameter":
			if name := p.ChildByField("name"); name != nil {
				out = append(out, t.Text(name))
			}
		case "typed_parameter":
			if first := p.NamedChildren(); len(first) > 0 {
				out = append(out, t.Text(first[0]))
			}
		}
	}
	return out
}

// yields reports whether a function body yields, ignoring nested functions
func yields(fn *syntax.Node) bool {
	body := fn.ChildByField("body")
	found := false
	body.Walk(func(n *syntax.Node) bool {
		switch n.Type {
		case "yield":
			found = true
		case "function_definition", "lambda", "class_definition":
			return false
		}
		return !found
	})
	return found
}

func (pythonFrontend) classes(t *syntax.Tree) []ClassInfo {
	var out []ClassInfo
	for _, n := range t.Root.Find(map[string]bool{"class_definition": true}) {
		info := ClassInfo{Methods: []string{}, Location: LocationOf(n)}
		if name := n.ChildByField("name"); name != nil {
			info.Name = t.Text(name)
		}
		if supers := n.ChildByField("superclasses"); supers != nil {
			for _, s := range supers.NamedChildren() {
				if s.Type != "keyword_argument" && s.Type != "comment" {
					info.Extends = append(info.Extends, t.Text(s))
				}
			}
		}
		if body := n.ChildByField("body"); body != nil {
			for _, stmt := range body.Children {
				def := unwrapDecorated(stmt)
				if def.Type != "function_definition" {
					continue
				}
				if name := def.ChildByField("name"); name != nil {
					info.Methods = append(info.Methods, t.Text(name))
				}
			}
		}
		info.Exported = !strings.HasPrefix(info.Name, "_") && n.Start.Column == 0
		out = append(out, info)
	}
	return out
}

func (pythonFrontend) variables(t *syntax.Tree) []VariableInfo {
	var out []VariableInfo
	for _, n := range t.Root.Children {
		if n.Type == "expression_statement" {
			out = append(out, moduleAssignments(t, n)...)
		}
	}
	return out
}

// moduleAssignments returns the names bound by a top-level assignment statement
func moduleAssignments(t *syntax.Tree, stmt *syntax.Node) []VariableInfo {
	assign := stmt.FirstChildOfType("assignment")
	if assign == nil {
		return nil
	}
	kind := "assignment"
	if assign.ChildByField("type") != nil {
		kind = "annotated"
	}
	var out []VariableInfo
	for _, id := range identifiers(t, assign.ChildByField("left")) {
		out = append(out, VariableInfo{
			Name:     id,
			Kind:     kind,
			Exported: !strings.HasPrefix(id, "_"),
			Location: LocationOf(assign),
		})
	}
	return out
}

// comments returns # comments and the docstrings of the module, classes and functions
func (pythonFrontend) comments(t *syntax.Tree) []Comment {
	var out []Comment
	t.Root.Walk(func(n *syntax.Node) bool {
		switch n.Type {
		case "comment":
			out = append(out, Comment{Text: t.Text(n), Kind: "line", Location: LocationOf(n)})
		case "module":
			if doc := docstring(t, n); doc != nil {
				out = append(out, *doc)
			}
		case "function_definition", "class_definition":
			if doc := docstring(t, n.ChildByField("body")); doc != nil {
				out = append(out, *doc)
			}
		}
		return true
	})
	return out
}

func docstring(t *syntax.Tree, body *syntax.Node) *Comment {
	if body == nil {
		return nil
	}
	for _, stmt := range body.NamedChildren() {
		if stmt.Type == "comment" {
			continue
		}
		if stmt.Type != "expression_statement" || len(stmt.NamedChildren()) != 1 {
			return nil
		}
		str := stmt.NamedChildren()[0]
		if str.Type != "string" {
			return nil
		}
		return &Comment{Text: t.Text(str), Kind: "doc", Location: LocationOf(str)}
	}
	return nil
}

// candidates resolves relative module paths like ".util" or "..pkg.mod"
func (pythonFrontend) candidates(dir, target string) []string {
	rest := strings.TrimLeft(target, ".")
	base := dir
	for range len(target) - len(rest) - 1 {
		base = filepath.Dir(base)
	}
	if rest == "" {
		return []string{filepath.Join(base, "__init__.py")}
	}
	mod := filepath.Join(base, filepath.FromSlash(strings.ReplaceAll(rest, ".", "/")))
	return []string{mod + ".py", mod + ".pyi", filepath.Join(mod, "__init__.py")}
}
