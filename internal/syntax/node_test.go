package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleTree() *Tree {
	// let x = y;
	src := []byte("let x = y;")
	x := &Node{Type: "identifier", Field: "name", Named: true, StartByte: 4, EndByte: 5}
	y := &Node{Type: "identifier", Field: "value", Named: true, StartByte: 8, EndByte: 9}
	decl := &Node{
		Type: "variable_declarator", Named: true, StartByte: 4, EndByte: 9,
		Children: []*Node{x, {Type: "=", StartByte: 6, EndByte: 7}, y},
	}
	root := &Node{
		Type: "program", Named: true, EndByte: 10,
		Children: []*Node{{
			Type: "lexical_declaration", Named: true, EndByte: 10,
			Children: []*Node{{Type: "let", EndByte: 3}, decl, {Type: ";", StartByte: 9, EndByte: 10}},
		}},
	}
	return &Tree{Root: root, Source: src, Language: LangJavaScript}
}

func TestWalkOrder(t *testing.T) {
	tree := sampleTree()

	var types []string
	tree.Root.Walk(func(n *Node) bool {
		types = append(types, n.Type)
		return true
	})
	assert.Equal(t, []string{
		"program", "lexical_declaration", "let", "variable_declarator",
		"identifier", "=", "identifier", ";",
	}, types)
}

func TestWalkSkipsChildren(t *testing.T) {
	tree := sampleTree()

	count := 0
	tree.Root.Walk(func(n *Node) bool {
		count++
		return n.Type != "lexical_declaration"
	})
	assert.Equal(t, 2, count)
}

func TestFieldsAndText(t *testing.T) {
	tree := sampleTree()
	decls := tree.Root.Find(map[string]bool{"variable_declarator": true})
	assert.Len(t, decls, 1)

	d := decls[0]
	assert.Equal(t, "x", tree.Text(d.ChildByField("name")))
	assert.Equal(t, "y", tree.Text(d.ChildByField("value")))
	assert.Nil(t, d.ChildByField("missing"))
	assert.Len(t, d.NamedChildren(), 2)
	assert.Equal(t, "=", d.FirstChildOfType("=").Type)
	assert.Equal(t, "", tree.Text(nil))
	assert.Equal(t, 1, d.Line())
}
