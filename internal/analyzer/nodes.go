package analyzer

import (
	"strings"

	"codefacts/internal/syntax"
)

// parentIndex maps every node under root to its parent
func parentIndex(root *syntax.Node) map[*syntax.Node]*syntax.Node {
	parents := make(map[*syntax.Node]*syntax.Node)
	root.Walk(func(n *syntax.Node) bool {
		for _, c := range n.Children {
			parents[c] = n
		}
		return true
	})
	return parents
}

// stringValue returns the contents of a string literal node, without quotes
// or prefixes. ok is false for nodes that are not plain literals.
func stringValue(t *syntax.Tree, n *syntax.Node) (string, bool) {
	if n == nil || n.Type != "string" {
		return "", false
	}

	var b strings.Builder
	parts := false
	for _, c := range n.Children {
		switch c.Type {
		case "string_fragment", "string_content", "escape_sequence":
			b.WriteString(t.Text(c))
			parts = true
		case "interpolation", "template_substitution":
			return "", false
		}
	}
	if parts {
		return b.String(), true
	}

	// Grammars without content children expose only the quoted text
	raw := strings.TrimLeft(t.Text(n), "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`, "`"} {
		if len(raw) >= 2*len(q) && strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) {
			return raw[len(q) : len(raw)-len(q)], true
		}
	}
	return "", false
}

// hasChild reports whether n has a direct child of the given type
func hasChild(n *syntax.Node, typ string) bool {
	return n.FirstChildOfType(typ) != nil
}

// identifiers collects the binding names in a declarator target, which may be
// a plain identifier or a destructuring pattern
func identifiers(t *syntax.Tree, n *syntax.Node) []string {
	if n == nil {
		return nil
	}
	switch n.Type {
	case "identifier", "shorthand_property_identifier_pattern":
		return []string{t.Text(n)}
	case "assignment_pattern", "object_assignment_pattern":
		return identifiers(t, n.ChildByField("left"))
	case "pair_pattern":
		return identifiers(t, n.ChildByField("value"))
	case "attribute", "subscript", "member_expression", "subscript_expression":
		return nil
	}

	var names []string
	for _, c := range n.NamedChildren() {
		names = append(names, identifiers(t, c)...)
	}
	return names
}

// commentKind classifies a comment by its opening delimiter
func commentKind(text string) string {
	switch {
	case strings.HasPrefix(text, "/**"):
		return "doc"
	case strings.HasPrefix(text, "/*"):
		return "block"
	}
	return "line"
}
