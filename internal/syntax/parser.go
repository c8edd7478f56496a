//go:build cgo

package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Parse parses source with the grammar for lang and returns an immutable copy
// of the tree. A fresh tree-sitter parser is used per call.
func Parse(ctx context.Context, source []byte, lang Language) (*Tree, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tsLang)
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parse error: no tree produced")
	}
	defer tree.Close()

	root := tree.RootNode()
	return &Tree{
		Root:     convert(root),
		Source:   source,
		Language: lang,
		HasError: root.HasError(),
	}, nil
}

// IsAvailable reports whether parsing is compiled in.
func IsAvailable() bool {
	return true
}

// getLanguage returns the tree-sitter Language for a given language identifier.
func getLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// convert copies the tree with a cursor so field names are preserved.
// The walk is iterative; deeply nested sources must not exhaust the stack.
func convert(root *sitter.Node) *Node {
	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()

	out := copyNode(cursor.CurrentNode(), "")
	stack := []*Node{out}

	for {
		if cursor.GoToFirstChild() {
			child := copyNode(cursor.CurrentNode(), cursor.CurrentFieldName())
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, child)
			stack = append(stack, child)
			continue
		}
		for {
			if len(stack) == 1 {
				return out
			}
			if cursor.GoToNextSibling() {
				stack = stack[:len(stack)-1]
				child := copyNode(cursor.CurrentNode(), cursor.CurrentFieldName())
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, child)
				stack = append(stack, child)
				break
			}
			if !cursor.GoToParent() {
				return out
			}
			stack = stack[:len(stack)-1]
		}
	}
}

func copyNode(n *sitter.Node, field string) *Node {
	start, end := n.StartPoint(), n.EndPoint()
	return &Node{
		Type:      n.Type(),
		Field:     field,
		Named:     n.IsNamed(),
		Missing:   n.IsMissing(),
		StartByte: int(n.StartByte()),
		EndByte:   int(n.EndByte()),
		Start:     Point{Row: int(start.Row), Column: int(start.Column)},
		End:       Point{Row: int(end.Row), Column: int(end.Column)},
	}
}
