package complexity

import (
	"math"

	"codefacts/internal/syntax"
)

// Calculator computes metrics for one language's trees.
type Calculator struct {
	rules *Rules
	mode  Mode
}

// NewCalculator creates a calculator. An empty mode means ModeFlat.
func NewCalculator(rules *Rules, mode Mode) *Calculator {
	if mode == "" {
		mode = ModeFlat
	}
	return &Calculator{rules: rules, mode: mode}
}

// Mode returns the cognitive weighting in use
func (c *Calculator) Mode() Mode {
	return c.mode
}

// Compute returns the file-level metrics for tree.
func (c *Calculator) Compute(tree *syntax.Tree) Metrics {
	if tree == nil || tree.Root == nil {
		return EmptyMetrics()
	}
	return Metrics{
		Cyclomatic: c.Cyclomatic(tree, tree.Root),
		Cognitive:  c.Cognitive(tree, tree.Root),
		Halstead:   c.Halstead(tree, tree.Root),
	}
}

// Cyclomatic counts decision points under n, plus one.
func (c *Calculator) Cyclomatic(tree *syntax.Tree, n *syntax.Node) int {
	complexity := 1 // Base complexity
	n.Walk(func(node *syntax.Node) bool {
		if c.isDecision(tree, node) {
			complexity++
		}
		return true
	})
	return complexity
}

// Cognitive computes cognitive complexity under n in the calculator's mode.
func (c *Calculator) Cognitive(tree *syntax.Tree, n *syntax.Node) int {
	if c.mode == ModeNested {
		return c.cognitiveNested(tree, n, 0)
	}

	total := 0
	n.Walk(func(node *syntax.Node) bool {
		total += c.rules.Weights[node.Type]
		return true
	})
	return total
}

// cognitiveNested adds 1 plus the nesting level per decision point.
func (c *Calculator) cognitiveNested(tree *syntax.Tree, node *syntax.Node, nestingLevel int) int {
	complexity := 0

	if c.isDecision(tree, node) {
		// Add 1 for the construct plus nesting penalty
		complexity += 1 + nestingLevel
	}

	// Determine nesting level for children
	childNesting := nestingLevel
	if c.rules.Nesting[node.Type] {
		childNesting++
	}

	for _, child := range node.Children {
		complexity += c.cognitiveNested(tree, child, childNesting)
	}
	return complexity
}

// Halstead counts operators (distinct by type) and operands (distinct by text) under n.
func (c *Calculator) Halstead(tree *syntax.Tree, n *syntax.Node) Halstead {
	operators := make(map[string]int)
	operands := make(map[string]int)
	var h Halstead

	n.Walk(func(node *syntax.Node) bool {
		switch {
		case c.rules.Operands[node.Type]:
			operands[tree.Text(node)]++
			h.TotalOperands++
		case c.rules.Operators[node.Type]:
			operators[node.Type]++
			h.TotalOperators++
		}
		return true
	})

	h.DistinctOperators = len(operators)
	h.DistinctOperands = len(operands)
	h.Vocabulary = h.DistinctOperators + h.DistinctOperands
	h.Length = h.TotalOperators + h.TotalOperands

	if h.DistinctOperands > 0 {
		h.Difficulty = (float64(h.DistinctOperators) / 2) * (float64(h.TotalOperands) / float64(h.DistinctOperands))
	}
	vocab := float64(h.Vocabulary)
	if vocab == 0 {
		vocab = 1
	}
	h.Volume = float64(h.Length) * math.Log2(vocab)
	h.Effort = h.Difficulty * h.Volume
	h.Bugs = h.Volume / 3000
	h.Time = h.Effort / 18
	return h
}

// Functions returns per-function cyclomatic and cognitive complexity in source order.
func (c *Calculator) Functions(tree *syntax.Tree) []ComplexityResult {
	if tree == nil || tree.Root == nil {
		return nil
	}

	var results []ComplexityResult
	var walk func(node, parent *syntax.Node)
	walk = func(node, parent *syntax.Node) {
		if node.Named && c.rules.Function[node.Type] {
			startLine, endLine := node.Line(), node.EndLine()
			results = append(results, ComplexityResult{
				Name:       FunctionName(tree, node, parent),
				StartLine:  startLine,
				EndLine:    endLine,
				Lines:      endLine - startLine + 1,
				Cyclomatic: c.Cyclomatic(tree, node),
				Cognitive:  c.Cognitive(tree, node),
			})
		}
		for _, child := range node.Children {
			walk(child, node)
		}
	}
	walk(tree.Root, nil)
	return results
}

// File computes the full report for one file.
func (c *Calculator) File(path, language string, tree *syntax.Tree) *FileComplexity {
	fc := &FileComplexity{
		Path:      path,
		Language:  language,
		Metrics:   c.Compute(tree),
		Functions: c.Functions(tree),
	}
	if fc.Functions == nil {
		fc.Functions = make([]ComplexityResult, 0)
	}
	fc.Aggregate()
	return fc
}

func (c *Calculator) isDecision(tree *syntax.Tree, node *syntax.Node) bool {
	if !c.rules.Decision[node.Type] {
		return false
	}
	if c.rules.Logical[node.Type] {
		return c.isLogical(node)
	}
	return true
}

// isLogical checks whether a binary node's operator is a short-circuit operator.
func (c *Calculator) isLogical(node *syntax.Node) bool {
	if op := node.ChildByField("operator"); op != nil {
		return c.rules.LogicalOps[op.Type]
	}
	for _, child := range node.Children {
		if c.rules.LogicalOps[child.Type] {
			return true
		}
	}
	return false
}

// FunctionName names a function node, using the binding it is assigned to
// when the function itself is anonymous.
func FunctionName(tree *syntax.Tree, node, parent *syntax.Node) string {
	if name := node.ChildByField("name"); name != nil {
		return tree.Text(name)
	}
	if parent != nil {
		switch parent.Type {
		case "variable_declarator", "assignment":
			if n := parent.ChildByField("name"); n != nil {
				return tree.Text(n)
			}
			if n := parent.ChildByField("left"); n != nil {
				return tree.Text(n)
			}
		case "assignment_expression":
			if n := parent.ChildByField("left"); n != nil {
				return tree.Text(n)
			}
		case "pair":
			if n := parent.ChildByField("key"); n != nil {
				return tree.Text(n)
			}
		}
	}

	// Anonymous function
	switch node.Type {
	case "arrow_function", "function_expression", "function", "generator_function", "lambda":
		return "<anonymous>"
	}
	return "<unknown>"
}
