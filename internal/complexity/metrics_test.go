package complexity

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codefacts/internal/syntax"
)

// a + b
func binaryTree() *syntax.Tree {
	return &syntax.Tree{
		Source: []byte("a + b"),
		Root: &syntax.Node{
			Type: "program", Named: true, EndByte: 5,
			Children: []*syntax.Node{{
				Type: "binary_expression", Named: true, EndByte: 5,
				Children: []*syntax.Node{
					{Type: "identifier", Field: "left", Named: true, StartByte: 0, EndByte: 1},
					{Type: "+", Field: "operator", StartByte: 2, EndByte: 3},
					{Type: "identifier", Field: "right", Named: true, StartByte: 4, EndByte: 5},
				},
			}},
		},
	}
}

func TestHalstead(t *testing.T) {
	c := NewCalculator(ECMAScript, ModeFlat)
	tree := binaryTree()

	h := c.Halstead(tree, tree.Root)
	assert.Equal(t, 1, h.DistinctOperators)
	assert.Equal(t, 2, h.DistinctOperands)
	assert.Equal(t, 3, h.Vocabulary)
	assert.Equal(t, 3, h.Length)
	assert.InDelta(t, 0.5, h.Difficulty, 1e-9)
	assert.InDelta(t, 3*math.Log2(3), h.Volume, 1e-9)
	assert.InDelta(t, h.Difficulty*h.Volume, h.Effort, 1e-9)
	assert.InDelta(t, h.Volume/3000, h.Bugs, 1e-12)
	assert.InDelta(t, h.Effort/18, h.Time, 1e-9)
}

func TestBinaryWithoutLogicalOperator(t *testing.T) {
	c := NewCalculator(ECMAScript, ModeFlat)
	tree := binaryTree()

	assert.Equal(t, 1, c.Cyclomatic(tree, tree.Root))
	assert.Equal(t, 0, c.Cognitive(tree, tree.Root))
}

func TestEmptyTree(t *testing.T) {
	c := NewCalculator(ECMAScript, "")
	assert.Equal(t, ModeFlat, c.Mode())

	tree := &syntax.Tree{Root: &syntax.Node{Type: "program", Named: true}}
	m := c.Compute(tree)
	assert.Equal(t, 1, m.Cyclomatic)
	assert.Equal(t, 0, m.Cognitive)
	assert.Zero(t, m.Halstead.Volume)
	assert.Zero(t, m.Halstead.Difficulty)

	// Must stay JSON-encodable: no NaN or Inf
	_, err := json.Marshal(m)
	require.NoError(t, err)

	assert.Equal(t, EmptyMetrics(), c.Compute(nil))
}

func TestAggregate(t *testing.T) {
	fc := &FileComplexity{Functions: []ComplexityResult{
		{Name: "a", Cyclomatic: 1, Cognitive: 0},
		{Name: "b", Cyclomatic: 5, Cognitive: 4},
	}}
	fc.Aggregate()

	assert.Equal(t, 2, fc.FunctionCount)
	assert.Equal(t, 6, fc.TotalCyclomatic)
	assert.Equal(t, 5, fc.MaxCyclomatic)
	assert.Equal(t, 4, fc.MaxCognitive)
	assert.InDelta(t, 3.0, fc.AverageCyclomatic, 1e-9)
	assert.InDelta(t, 2.0, fc.AverageCognitive, 1e-9)
}
