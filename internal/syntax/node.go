// Package syntax holds an immutable copy of a tree-sitter parse tree.
//
// tree-sitter nodes share a per-tree cache that is not safe for concurrent
// reads, so parse results are copied once into plain Go values that any
// number of goroutines may walk.
package syntax

// Language identifies a grammar.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
)

// Point is a zero-based row/column position.
type Point struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Node is one syntax node. Nodes are never modified after Parse returns.
type Node struct {
	Type      string
	Field     string // field name under the parent, "" if none
	Named     bool
	Missing   bool
	StartByte int
	EndByte   int
	Start     Point
	End       Point
	Children  []*Node
}

// Tree is a parsed source file.
type Tree struct {
	Root     *Node
	Source   []byte
	Language Language
	// HasError is set when the parser recovered from syntax errors
	HasError bool
}

// Text returns the source text covered by n.
func (t *Tree) Text(n *Node) string {
	if n == nil || n.StartByte < 0 || n.EndByte > len(t.Source) || n.StartByte > n.EndByte {
		return ""
	}
	return string(t.Source[n.StartByte:n.EndByte])
}

// Line returns the one-based start line.
func (n *Node) Line() int { return n.Start.Row + 1 }

// EndLine returns the one-based end line.
func (n *Node) EndLine() int { return n.End.Row + 1 }

// ChildByField returns the first child under the field name.
func (n *Node) ChildByField(name string) *Node {
	for _, c := range n.Children {
		if c.Field == name {
			return c
		}
	}
	return nil
}

// ChildrenByField returns all children under the field name.
func (n *Node) ChildrenByField(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Field == name {
			out = append(out, c)
		}
	}
	return out
}

// NamedChildren returns the named children in order.
func (n *Node) NamedChildren() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Named {
			out = append(out, c)
		}
	}
	return out
}

// FirstChildOfType returns the first direct child with one of the types.
func (n *Node) FirstChildOfType(types ...string) *Node {
	for _, c := range n.Children {
		for _, t := range types {
			if c.Type == t {
				return c
			}
		}
	}
	return nil
}

// Walk visits n and its descendants depth-first in source order.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			continue
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
}

// Find returns all descendants (including n) whose type is in types.
func (n *Node) Find(types map[string]bool) []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if types[c.Type] {
			out = append(out, c)
		}
		return true
	})
	return out
}
