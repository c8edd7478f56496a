package analyzer

import (
	"path/filepath"
	"strings"

	"codefacts/internal/complexity"
	"codefacts/internal/syntax"
)

// NewJavaScript creates the JavaScript analyzer
func NewJavaScript(opts Options) Analyzer {
	return newTreeAnalyzer("javascript", 10,
		[]string{".js", ".jsx", ".mjs", ".cjs"},
		&ecmaFrontend{}, opts)
}

// NewTypeScript creates the TypeScript analyzer. It also claims plain
// JavaScript so mixed projects resolve through one analyzer.
func NewTypeScript(opts Options) Analyzer {
	return newTreeAnalyzer("typescript", 20,
		[]string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx"},
		&ecmaFrontend{typescript: true}, opts)
}

type ecmaFrontend struct {
	typescript bool
}

var (
	jsResolveExts = []string{".js", ".jsx", ".mjs", ".cjs", ".json"}
	tsResolveExts = []string{".ts", ".tsx", ".d.ts", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs", ".json"}
)

func (f *ecmaFrontend) grammar(ext string) (syntax.Language, bool) {
	switch ext {
	case ".js", ".jsx", ".mjs", ".cjs":
		return syntax.LangJavaScript, true
	case ".ts", ".mts", ".cts":
		if f.typescript {
			return syntax.LangTypeScript, true
		}
	case ".tsx":
		if f.typescript {
			return syntax.LangTSX, true
		}
	}
	return "", false
}

func (f *ecmaFrontend) rules() *complexity.Rules { return complexity.ECMAScript }

func (f *ecmaFrontend) dependencies(t *syntax.Tree, path string) []Dependency {
	var deps []Dependency
	add := func(target string, kind DependencyKind, n *syntax.Node) {
		deps = append(deps, NewDependency(path, target, kind, LocationOf(n)))
	}

	t.Root.Walk(func(n *syntax.Node) bool {
		switch n.Type {
		case "import_statement":
			if clause := n.FirstChildOfType("import_require_clause"); clause != nil {
				if target, ok := stringValue(t, requireSource(clause)); ok {
					add(target, KindRequire, n)
				}
				return false
			}
			if target, ok := stringValue(t, n.ChildByField("source")); ok {
				add(target, KindImport, n)
			}
			return false
		case "export_statement":
			if target, ok := stringValue(t, n.ChildByField("source")); ok {
				add(target, KindImport, n)
			}
		case "call_expression":
			fn := n.ChildByField("function")
			if fn == nil {
				break
			}
			var kind DependencyKind
			switch {
			case fn.Type == "import":
				kind = KindDynamicImport
			case fn.Type == "identifier" && t.Text(fn) == "require":
				kind = KindRequire
			default:
				return true
			}
			if target, ok := stringValue(t, firstArgument(n)); ok {
				add(target, kind, n)
			}
		}
		return true
	})
	return deps
}

func requireSource(clause *syntax.Node) *syntax.Node {
	if src := clause.ChildByField("source"); src != nil {
		return src
	}
	return clause.FirstChildOfType("string")
}

// firstArgument returns the first argument node of a call
func firstArgument(call *syntax.Node) *syntax.Node {
	args := call.ChildByField("arguments")
	if args == nil {
		return nil
	}
	named := args.NamedChildren()
	for _, a := range named {
		if a.Type != "comment" {
			return a
		}
	}
	return nil
}

func (f *ecmaFrontend) imports(t *syntax.Tree) []ImportInfo {
	var out []ImportInfo
	for _, n := range t.Root.Find(map[string]bool{"import_statement": true}) {
		info := ImportInfo{
			Specifiers: []ImportSpecifier{},
			TypeOnly:   hasChild(n, "type"),
			Location:   LocationOf(n),
		}

		if clause := n.FirstChildOfType("import_require_clause"); clause != nil {
			info.Source, _ = stringValue(t, requireSource(clause))
			if id := clause.FirstChildOfType("identifier"); id != nil {
				info.Specifiers = append(info.Specifiers, ImportSpecifier{Name: t.Text(id), Kind: "default"})
			}
			out = append(out, info)
			continue
		}

		var ok bool
		if info.Source, ok = stringValue(t, n.ChildByField("source")); !ok {
			continue
		}
		if clause := n.FirstChildOfType("import_clause"); clause != nil {
			info.Specifiers = append(info.Specifiers, importSpecifiers(t, clause)...)
		}
		out = append(out, info)
	}
	return out
}

func importSpecifiers(t *syntax.Tree, clause *syntax.Node) []ImportSpecifier {
	var specs []ImportSpecifier
	for _, c := range clause.NamedChildren() {
		switch c.Type {
		case "identifier":
			specs = append(specs, ImportSpecifier{Name: t.Text(c), Kind: "default"})
		case "namespace_import":
			if id := c.FirstChildOfType("identifier"); id != nil {
				specs = append(specs, ImportSpecifier{Name: "*", Alias: t.Text(id), Kind: "namespace"})
			}
		case "named_imports":
			for _, s := range c.NamedChildren() {
				if s.Type != "import_specifier" {
					continue
				}
				spec := ImportSpecifier{Kind: "named"}
				if name := s.ChildByField("name"); name != nil {
					spec.Name = moduleExportName(t, name)
				}
				if alias := s.ChildByField("alias"); alias != nil {
					spec.Alias = t.Text(alias)
				}
				specs = append(specs, spec)
			}
		}
	}
	return specs
}

// moduleExportName handles both identifier and string export names
func moduleExportName(t *syntax.Tree, n *syntax.Node) string {
	if v, ok := stringValue(t, n); ok {
		return v
	}
	return t.Text(n)
}

func (f *ecmaFrontend) exports(t *syntax.Tree) []ExportInfo {
	var out []ExportInfo
	for _, n := range t.Root.Children {
		switch n.Type {
		case "export_statement":
			out = append(out, exportStatement(t, n)...)
		case "expression_statement":
			if e, ok := commonJSExport(t, n); ok {
				out = append(out, e)
			}
		}
	}
	return out
}

func exportStatement(t *syntax.Tree, n *syntax.Node) []ExportInfo {
	loc := LocationOf(n)
	source, _ := stringValue(t, n.ChildByField("source"))

	if hasChild(n, "default") {
		e := ExportInfo{Name: "default", Kind: "default", Default: true, Location: loc}
		if decl := n.ChildByField("declaration"); decl != nil {
			if names := declarationNames(t, decl); len(names) > 0 {
				e.Name, e.Kind = names[0].name, names[0].kind
			}
		}
		return []ExportInfo{e}
	}

	if decl := n.ChildByField("declaration"); decl != nil {
		var out []ExportInfo
		for _, d := range declarationNames(t, decl) {
			out = append(out, ExportInfo{Name: d.name, Kind: d.kind, Location: loc})
		}
		return out
	}

	if clause := n.FirstChildOfType("export_clause"); clause != nil {
		kind := "named"
		if source != "" {
			kind = "reexport"
		}
		var out []ExportInfo
		for _, s := range clause.NamedChildren() {
			if s.Type != "export_specifier" {
				continue
			}
			name := s.ChildByField("alias")
			if name == nil {
				name = s.ChildByField("name")
			}
			if name == nil {
				continue
			}
			out = append(out, ExportInfo{Name: moduleExportName(t, name), Kind: kind, Source: source, Location: loc})
		}
		return out
	}

	if ns := n.FirstChildOfType("namespace_export"); ns != nil {
		if id := ns.NamedChildren(); len(id) > 0 {
			return []ExportInfo{{Name: moduleExportName(t, id[0]), Kind: "reexport", Source: source, Location: loc}}
		}
	}
	if hasChild(n, "*") {
		return []ExportInfo{{Name: "*", Kind: "all", Source: source, Location: loc}}
	}
	return nil
}

type declName struct {
	name string
	kind string
}

// declarationNames lists the bindings a declaration introduces
func declarationNames(t *syntax.Tree, decl *syntax.Node) []declName {
	var kind string
	switch decl.Type {
	case "function_declaration", "generator_function_declaration", "function_signature":
		kind = "function"
	case "class_declaration", "abstract_class_declaration":
		kind = "class"
	case "interface_declaration":
		kind = "interface"
	case "type_alias_declaration":
		kind = "type"
	case "enum_declaration":
		kind = "enum"
	case "lexical_declaration", "variable_declaration":
		var out []declName
		for _, d := range decl.NamedChildren() {
			if d.Type != "variable_declarator" {
				continue
			}
			for _, id := range identifiers(t, d.ChildByField("name")) {
				out = append(out, declName{name: id, kind: "variable"})
			}
		}
		return out
	default:
		return nil
	}
	if name := decl.ChildByField("name"); name != nil {
		return []declName{{name: t.Text(name), kind: kind}}
	}
	return nil
}

// commonJSExport recognizes module.exports = x, module.exports.y = x and exports.y = x
func commonJSExport(t *syntax.Tree, stmt *syntax.Node) (ExportInfo, bool) {
	assign := stmt.FirstChildOfType("assignment_expression")
	if assign == nil {
		return ExportInfo{}, false
	}
	left := assign.ChildByField("left")
	if left == nil || left.Type != "member_expression" {
		return ExportInfo{}, false
	}

	loc := LocationOf(stmt)
	switch target := t.Text(left); {
	case target == "module.exports":
		return ExportInfo{Name: "default", Kind: "commonjs", Default: true, Location: loc}, true
	case strings.HasPrefix(target, "module.exports.") || strings.HasPrefix(target, "exports."):
		prop := left.ChildByField("property")
		if prop == nil {
			return ExportInfo{}, false
		}
		return ExportInfo{Name: t.Text(prop), Kind: "commonjs", Location: loc}, true
	}
	return ExportInfo{}, false
}

func (f *ecmaFrontend) functions(t *syntax.Tree) []fnDecl {
	parents := parentIndex(t.Root)
	exported := exportedNames(f.exports(t))
	rules := f.rules()

	var out []fnDecl
	t.Root.Walk(func(n *syntax.Node) bool {
		if !n.Named || !rules.Function[n.Type] {
			return true
		}
		parent := parents[n]
		name := complexity.FunctionName(t, n, parent)
		out = append(out, fnDecl{
			node: n,
			info: FunctionInfo{
				Name:      name,
				Kind:      ecmaFunctionKind(n.Type),
				Params:    ecmaParams(t, n),
				Async:     hasChild(n, "async"),
				Generator: strings.Contains(n.Type, "generator") || hasChild(n, "*"),
				Exported:  exported[name] || isExportedDecl(n, parents),
				Location:  LocationOf(n),
			},
		})
		return true
	})
	return out
}

func ecmaFunctionKind(typ string) string {
	switch typ {
	case "function_declaration":
		return "function"
	case "generator_function_declaration", "generator_function":
		return "generator"
	case "arrow_function":
		return "arrow"
	case "method_definition":
		return "method"
	}
	return "expression"
}

func ecmaParams(t *syntax.Tree, fn *syntax.Node) []string {
	if single := fn.ChildByField("parameter"); single != nil {
		return []string{t.Text(single)}
	}
	params := fn.ChildByField("parameters")
	if params == nil {
		return []string{}
	}
	out := []string{}
	for _, p := range params.NamedChildren() {
		switch p.Type {
		case "comment":
			continue
		case "required_parameter", "optional_parameter":
			if pat := p.ChildByField("pattern"); pat != nil {
				out = append(out, t.Text(pat))
				continue
			}
		case "assignment_pattern":
			if left := p.ChildByField("left"); left != nil {
				out = append(out, t.Text(left))
				continue
			}
		}
		out = append(out, t.Text(p))
	}
	return out
}

// isExportedDecl reports whether a function sits directly under an export,
// either as the declaration or as a const initializer
func isExportedDecl(fn *syntax.Node, parents map[*syntax.Node]*syntax.Node) bool {
	p := parents[fn]
	if p == nil {
		return false
	}
	if p.Type == "export_statement" {
		return true
	}
	if p.Type != "variable_declarator" {
		return false
	}
	decl := parents[p]
	return decl != nil && parents[decl] != nil && parents[decl].Type == "export_statement"
}

func exportedNames(exports []ExportInfo) map[string]bool {
	names := make(map[string]bool, len(exports))
	for _, e := range exports {
		if e.Source == "" && !e.Default {
			names[e.Name] = true
		}
	}
	return names
}

func (f *ecmaFrontend) classes(t *syntax.Tree) []ClassInfo {
	exported := exportedNames(f.exports(t))
	parents := parentIndex(t.Root)
	types := map[string]bool{"class_declaration": true, "abstract_class_declaration": true, "class": true}

	var out []ClassInfo
	for _, n := range t.Root.Find(types) {
		if !n.Named {
			continue
		}
		info := ClassInfo{
			Name:     "<anonymous>",
			Methods:  []string{},
			Location: LocationOf(n),
		}
		if name := n.ChildByField("name"); name != nil {
			info.Name = t.Text(name)
		} else if p := parents[n]; p != nil && p.Type == "variable_declarator" {
			if name := p.ChildByField("name"); name != nil {
				info.Name = t.Text(name)
			}
		}
		info.Exported = exported[info.Name] || parents[n] != nil && parents[n].Type == "export_statement"

		if heritage := n.FirstChildOfType("class_heritage"); heritage != nil {
			info.Extends, info.Implements = classHeritage(t, heritage)
		}
		if body := n.ChildByField("body"); body != nil {
			for _, m := range body.NamedChildren() {
				if m.Type != "method_definition" && m.Type != "method_signature" && m.Type != "abstract_method_signature" {
					continue
				}
				if name := m.ChildByField("name"); name != nil {
					info.Methods = append(info.Methods, t.Text(name))
				}
			}
		}
		out = append(out, info)
	}
	return out
}

// classHeritage reads extends and implements lists. JavaScript puts the
// superclass directly under class_heritage; TypeScript nests clauses.
func classHeritage(t *syntax.Tree, heritage *syntax.Node) (extends, implements []string) {
	ext := heritage.FirstChildOfType("extends_clause")
	impl := heritage.FirstChildOfType("implements_clause")
	if ext == nil && impl == nil {
		for _, c := range heritage.NamedChildren() {
			extends = append(extends, t.Text(c))
		}
		return extends, nil
	}
	if ext != nil {
		values := ext.ChildrenByField("value")
		if len(values) == 0 {
			values = ext.NamedChildren()
		}
		for _, v := range values {
			if v.Type != "type_arguments" {
				extends = append(extends, t.Text(v))
			}
		}
	}
	if impl != nil {
		for _, c := range impl.NamedChildren() {
			implements = append(implements, t.Text(c))
		}
	}
	return extends, implements
}

func (f *ecmaFrontend) variables(t *syntax.Tree) []VariableInfo {
	var out []VariableInfo
	collect := func(decl *syntax.Node, exported bool) {
		if decl.Type != "lexical_declaration" && decl.Type != "variable_declaration" {
			return
		}
		kind := "var"
		if k := decl.ChildByField("kind"); k != nil {
			kind = t.Text(k)
		} else if len(decl.Children) > 0 && !decl.Children[0].Named {
			kind = decl.Children[0].Type
		}
		for _, d := range decl.NamedChildren() {
			if d.Type != "variable_declarator" {
				continue
			}
			for _, id := range identifiers(t, d.ChildByField("name")) {
				out = append(out, VariableInfo{Name: id, Kind: kind, Exported: exported, Location: LocationOf(d)})
			}
		}
	}

	for _, n := range t.Root.Children {
		if n.Type == "export_statement" {
			if decl := n.ChildByField("declaration"); decl != nil {
				collect(decl, true)
			}
			continue
		}
		collect(n, false)
	}
	return out
}

func (f *ecmaFrontend) comments(t *syntax.Tree) []Comment {
	var out []Comment
	for _, n := range t.Root.Find(map[string]bool{"comment": true}) {
		text := t.Text(n)
		out = append(out, Comment{Text: text, Kind: commentKind(text), Location: LocationOf(n)})
	}
	return out
}

func (f *ecmaFrontend) candidates(dir, target string) []string {
	base := target
	if !filepath.IsAbs(base) {
		base = filepath.Join(dir, filepath.FromSlash(target))
	}
	exts := jsResolveExts
	if f.typescript {
		exts = tsResolveExts
	}

	out := []string{base}
	if f.typescript && strings.HasSuffix(base, ".js") {
		// compiled-output specifiers name the .ts source
		stem := strings.TrimSuffix(base, ".js")
		out = append(out, stem+".ts", stem+".tsx")
	}
	for _, e := range exts {
		out = append(out, base+e)
	}
	for _, e := range exts {
		out = append(out, filepath.Join(base, "index"+e))
	}
	return out
}
