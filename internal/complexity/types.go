// Package complexity computes cyclomatic, cognitive and Halstead metrics over syntax trees.
package complexity

// Mode selects how cognitive complexity is weighted.
type Mode string

const (
	// ModeFlat adds a fixed weight per construct
	ModeFlat Mode = "flat"
	// ModeNested adds one plus the current nesting depth per construct
	ModeNested Mode = "nested"
)

// Halstead contains the Halstead size measures.
type Halstead struct {
	DistinctOperators int     `json:"distinctOperators"`
	DistinctOperands  int     `json:"distinctOperands"`
	TotalOperators    int     `json:"totalOperators"`
	TotalOperands     int     `json:"totalOperands"`
	Vocabulary        int     `json:"vocabulary"`
	Length            int     `json:"length"`
	Difficulty        float64 `json:"difficulty"`
	Volume            float64 `json:"volume"`
	Effort            float64 `json:"effort"`
	Bugs              float64 `json:"bugs"`
	Time              float64 `json:"time"`
}

// Metrics are the file-level measures.
type Metrics struct {
	// Cyclomatic is decision points + 1
	Cyclomatic int `json:"cyclomatic"`

	// Cognitive is the weighted sum of control-flow constructs
	Cognitive int `json:"cognitive"`

	Halstead Halstead `json:"halstead"`
}

// EmptyMetrics returns the metrics of a file with no code.
func EmptyMetrics() Metrics {
	return Metrics{Cyclomatic: 1}
}

// ComplexityResult contains complexity metrics for a single unit (function/method).
type ComplexityResult struct {
	// Name is the function/method name
	Name string `json:"name"`

	// StartLine is the line number where the function starts
	StartLine int `json:"startLine"`

	// EndLine is the line number where the function ends
	EndLine int `json:"endLine"`

	// Cyclomatic is the cyclomatic complexity (decision points + 1)
	Cyclomatic int `json:"cyclomatic"`

	// Cognitive is the cognitive complexity
	Cognitive int `json:"cognitive"`

	// Lines is the number of lines in the function
	Lines int `json:"lines"`
}

// FileComplexity contains complexity metrics for an entire file.
type FileComplexity struct {
	Path     string  `json:"path"`
	Language string  `json:"language"`
	Metrics  Metrics `json:"metrics"`

	// Functions contains complexity for each function/method
	Functions []ComplexityResult `json:"functions"`

	TotalCyclomatic   int     `json:"totalCyclomatic"`
	TotalCognitive    int     `json:"totalCognitive"`
	AverageCyclomatic float64 `json:"averageCyclomatic"`
	AverageCognitive  float64 `json:"averageCognitive"`
	MaxCyclomatic     int     `json:"maxCyclomatic"`
	MaxCognitive      int     `json:"maxCognitive"`
	FunctionCount     int     `json:"functionCount"`
}

// Aggregate computes aggregate metrics from function results.
func (fc *FileComplexity) Aggregate() {
	fc.FunctionCount = len(fc.Functions)
	if fc.FunctionCount == 0 {
		return
	}

	for _, f := range fc.Functions {
		fc.TotalCyclomatic += f.Cyclomatic
		fc.TotalCognitive += f.Cognitive

		if f.Cyclomatic > fc.MaxCyclomatic {
			fc.MaxCyclomatic = f.Cyclomatic
		}
		if f.Cognitive > fc.MaxCognitive {
			fc.MaxCognitive = f.Cognitive
		}
	}

	fc.AverageCyclomatic = float64(fc.TotalCyclomatic) / float64(fc.FunctionCount)
	fc.AverageCognitive = float64(fc.TotalCognitive) / float64(fc.FunctionCount)
}
