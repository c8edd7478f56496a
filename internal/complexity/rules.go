package complexity

// Rules are the per-language node tables the metrics are computed from.
type Rules struct {
	// Decision node types each add one to cyclomatic complexity
	Decision map[string]bool
	// Logical node types count only when their operator is in LogicalOps
	Logical    map[string]bool
	LogicalOps map[string]bool
	// Nesting node types deepen nesting for ModeNested
	Nesting map[string]bool
	// Weights are the ModeFlat cognitive weights; missing types weigh 0
	Weights map[string]int
	// Function node types are reported individually
	Function map[string]bool
	// Operators are node types counted as Halstead operators
	Operators map[string]bool
	// Operands are node types counted as Halstead operands, distinct by text
	Operands map[string]bool
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[s] = true
	}
	return m
}

// ECMAScript covers JavaScript, TypeScript and TSX grammars.
var ECMAScript = &Rules{
	Decision: set(
		"if_statement",
		"for_statement",
		"for_in_statement", // also for-of
		"while_statement",
		"switch_case",
		"switch_default",
		"catch_clause",
		"ternary_expression",
		"binary_expression", // for && and ||
	),
	Logical:    set("binary_expression"),
	LogicalOps: set("&&", "||"),
	Nesting: set(
		"if_statement",
		"for_statement",
		"for_in_statement",
		"while_statement",
		"do_statement",
		"switch_statement",
		"try_statement",
		"arrow_function",
		"function_expression",
		"function",
	),
	Weights: map[string]int{
		"if_statement":       1,
		"switch_statement":   1,
		"ternary_expression": 1,
		"for_statement":      1,
		"for_in_statement":   1,
		"while_statement":    1,
		"do_statement":       1,
		"catch_clause":       2,
	},
	Function: set(
		"function_declaration",
		"function_expression",
		"function",
		"arrow_function",
		"method_definition",
		"generator_function_declaration",
		"generator_function",
	),
	Operators: set(
		"+", "-", "*", "/", "%", "**",
		"=", "+=", "-=", "*=", "/=", "%=", "**=", "&&=", "||=", "??=",
		"<<=", ">>=", ">>>=", "&=", "|=", "^=",
		"==", "===", "!=", "!==", "<", ">", "<=", ">=",
		"&&", "||", "??", "!", "~", "&", "|", "^", "<<", ">>", ">>>",
		"++", "--", "?.", ".", "=>", "...",
		"if", "else", "for", "while", "do", "switch", "case", "default",
		"return", "break", "continue", "throw", "try", "catch", "finally",
		"new", "delete", "typeof", "instanceof", "void", "in", "of",
		"await", "yield", "async", "function", "class", "extends",
		"const", "let", "var", "import", "export", "from", "as",
		"ternary_expression", "call_expression",
	),
	Operands: set(
		"identifier",
		"property_identifier",
		"shorthand_property_identifier",
		"shorthand_property_identifier_pattern",
		"private_property_identifier",
		"type_identifier",
		"number",
		"string",
		"template_string",
		"regex",
		"true",
		"false",
		"null",
		"undefined",
		"this",
		"super",
	),
}

// Python covers the Python grammar.
var Python = &Rules{
	Decision: set(
		"if_statement",
		"elif_clause",
		"for_statement",
		"while_statement",
		"except_clause",
		"case_clause",
		"conditional_expression", // ternary
		"for_in_clause",          // comprehension loop
		"boolean_operator",       // and, or
	),
	Logical:    set("boolean_operator"),
	LogicalOps: set("and", "or"),
	Nesting: set(
		"if_statement",
		"for_statement",
		"while_statement",
		"try_statement",
		"with_statement",
		"match_statement",
		"lambda",
		"list_comprehension",
		"dictionary_comprehension",
		"set_comprehension",
		"generator_expression",
	),
	Weights: map[string]int{
		"if_statement":           1,
		"elif_clause":            1,
		"match_statement":        1,
		"conditional_expression": 1,
		"for_statement":          1,
		"while_statement":        1,
		"for_in_clause":          1,
		"except_clause":          2,
	},
	Function: set("function_definition", "lambda"),
	Operators: set(
		"+", "-", "*", "/", "//", "%", "**", "@",
		"=", "+=", "-=", "*=", "/=", "//=", "%=", "**=", "@=",
		"&=", "|=", "^=", "<<=", ">>=", ":=",
		"==", "!=", "<", ">", "<=", ">=",
		"and", "or", "not", "in", "is",
		"&", "|", "^", "~", "<<", ">>", ".", "->",
		"if", "elif", "else", "for", "while", "match", "case",
		"return", "break", "continue", "pass", "raise", "try", "except", "finally",
		"def", "class", "lambda", "with", "as", "yield", "await", "async",
		"import", "from", "del", "global", "nonlocal", "assert",
		"call",
	),
	Operands: set(
		"identifier",
		"integer",
		"float",
		"string",
		"true",
		"false",
		"none",
	),
}
