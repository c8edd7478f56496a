package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"codefacts/internal/analyzer"
	"codefacts/internal/cache"
	"codefacts/internal/complexity"
	"codefacts/internal/config"
	"codefacts/internal/errors"
	"codefacts/internal/project"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// dependencyList is the output of the deps command
type dependencyList struct {
	File         string                `json:"file"`
	Dependencies []analyzer.Dependency `json:"dependencies"`
}

// invalidation is the output of cache invalidate
type invalidation struct {
	Pattern string `json:"pattern"`
	Removed int    `json:"removed"`
}

// versionInfo is the output of the version command
type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
}

// writeResponse renders resp to w in the requested format
func writeResponse(w io.Writer, resp any, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, resp)
	case FormatHuman:
		return writeHuman(w, resp)
	default:
		return errors.Newf(errors.InvalidInput, "unsupported format: %s", format).With("format", string(format))
	}
}

func writeJSON(w io.Writer, resp any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func writeHuman(w io.Writer, resp any) error {
	switch v := resp.(type) {
	case *project.Descriptor:
		writeDescriptor(w, v)
	case *project.StructureNode:
		writeTree(w, v, "", true, true)
	case *project.Analysis:
		writeAnalysis(w, v)
	case *analyzer.FileAnalysis:
		writeFileAnalysis(w, v)
	case *dependencyList:
		writeDependencies(w, v.File, v.Dependencies)
	case *complexity.FileComplexity:
		writeComplexity(w, v)
	case cache.Stats:
		writeCacheStats(w, v)
	case *invalidation:
		fmt.Fprintf(w, "Removed %d cache entries matching %q\n", v.Removed, v.Pattern)
	case *config.Config:
		return toml.NewEncoder(w).Encode(v)
	case *versionInfo:
		fmt.Fprintf(w, "codefacts version %s\nCommit: %s\nBuilt: %s\n", v.Version, v.Commit, v.BuildDate)
	default:
		// For unknown types, fall back to JSON
		return writeJSON(w, resp)
	}
	return nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetBorder(false)
	t.SetCenterSeparator("")
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}

func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "%s\n%s\n", title, strings.Repeat("=", 60))
}

func writeDescriptor(w io.Writer, d *project.Descriptor) {
	heading(w, fmt.Sprintf("%s (%s)", d.Path, project.TypeDisplayName(d.Type)))

	md := d.Metadata
	fields := [][2]string{
		{"Scan ID", d.ScanID},
		{"Name", md.Name},
		{"Version", md.Version},
		{"Description", md.Description},
		{"License", md.License},
		{"Authors", strings.Join(md.Authors, ", ")},
		{"Files", humanize.Comma(int64(md.FileCount))},
		{"Total size", humanize.Bytes(uint64(md.TotalSize))},
	}
	if !md.LastModified.IsZero() {
		fields = append(fields, [2]string{"Last modified", humanize.Time(md.LastModified)})
	}
	if g := md.Git; g != nil {
		ref := g.Branch
		if g.Detached {
			ref = "(detached)"
		}
		fields = append(fields, [2]string{"Git", strings.TrimSpace(ref + " " + shortSHA(g.Commit))})
	}
	if d.CacheHit {
		fields = append(fields, [2]string{"Cached", "yes"})
	}
	for _, f := range fields {
		if f[1] != "" {
			fmt.Fprintf(w, "%-14s %s\n", f[0]+":", f[1])
		}
	}

	c := d.Configuration
	fmt.Fprintln(w)
	t := newTable(w, "Setting", "Value")
	rows := [][2]string{
		{"Package manager", c.PackageManager},
		{"Build tool", c.BuildTool},
		{"Workspace tool", c.WorkspaceTool},
		{"Source dirs", strings.Join(c.SourceDirs, ", ")},
		{"Test dirs", strings.Join(c.TestDirs, ", ")},
		{"Build dirs", strings.Join(c.BuildDirs, ", ")},
		{"Entry points", strings.Join(c.EntryPoints, ", ")},
		{"Config files", strings.Join(c.ConfigFiles, ", ")},
		{"Workspaces", strings.Join(c.Workspaces, ", ")},
	}
	for _, r := range rows {
		if r[1] != "" {
			t.Append([]string{r[0], r[1]})
		}
	}
	t.Render()
}

func writeTree(w io.Writer, n *project.StructureNode, prefix string, last, root bool) {
	label := n.Name
	if n.Kind == project.NodeDirectory {
		label += fmt.Sprintf("/ (%d files, %s)", n.FileCount, humanize.Bytes(uint64(n.TotalSize)))
	} else {
		label += " (" + humanize.Bytes(uint64(n.Size)) + ")"
	}

	childPrefix := prefix
	switch {
	case root:
		fmt.Fprintln(w, label)
	case last:
		fmt.Fprintf(w, "%s└── %s\n", prefix, label)
		childPrefix += "    "
	default:
		fmt.Fprintf(w, "%s├── %s\n", prefix, label)
		childPrefix += "│   "
	}
	for i, c := range n.Children {
		writeTree(w, c, childPrefix, i == len(n.Children)-1, false)
	}
}

func writeAnalysis(w io.Writer, a *project.Analysis) {
	heading(w, "Analysis of "+a.Path)
	if a.CacheHit {
		fmt.Fprintln(w, "(served from cache)")
	}

	t := newTable(w, "File", "Language", "Functions", "Classes", "Deps", "Cyclomatic", "Cognitive")
	for _, fa := range a.Files {
		name := relTo(a.Path, fa.Path)
		if fa.HasSyntaxErrors {
			name += " !"
		}
		t.Append([]string{
			name,
			fa.Language,
			strconv.Itoa(len(fa.Functions)),
			strconv.Itoa(len(fa.Classes)),
			strconv.Itoa(len(fa.Dependencies)),
			strconv.Itoa(fa.Metrics.Cyclomatic),
			strconv.Itoa(fa.Metrics.Cognitive),
		})
	}
	t.Render()

	if len(a.Graph) > 0 {
		fmt.Fprintf(w, "\nDependency graph (%d edges):\n", len(a.Graph))
		g := newTable(w, "From", "To", "Kind", "Line")
		for _, e := range a.Graph {
			to := e.To
			if !e.Resolved {
				to += " (unresolved)"
			}
			g.Append([]string{e.From, to, string(e.Kind), strconv.Itoa(e.Line)})
		}
		g.Render()
	}

	if len(a.Failures) > 0 {
		fmt.Fprintf(w, "\nFailures (%d):\n", len(a.Failures))
		for _, f := range a.Failures {
			fmt.Fprintf(w, "  ✗ %s [%s] %s\n", relTo(a.Path, f.Path), f.Code, f.Message)
		}
	}
	if len(a.Unanalyzed) > 0 {
		fmt.Fprintf(w, "\n%s files without an analyzer\n", humanize.Comma(int64(len(a.Unanalyzed))))
	}

	if s := a.Summary; s != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Files: %d, functions: %d\n", s.FileCount, s.FunctionCount)
		fmt.Fprintf(w, "Cyclomatic: total %d, average %.1f, max %d (%s)\n",
			s.TotalCyclomatic, s.AverageCyclomatic, s.MaxCyclomatic, s.MaxCyclomaticFile)
		fmt.Fprintf(w, "Cognitive: total %d\n", s.TotalCognitive)

		langs := make([]string, 0, len(s.Languages))
		for l := range s.Languages {
			langs = append(langs, l)
		}
		sort.Strings(langs)
		parts := make([]string, 0, len(langs))
		for _, l := range langs {
			parts = append(parts, fmt.Sprintf("%s %d", l, s.Languages[l]))
		}
		fmt.Fprintf(w, "Languages: %s\n", strings.Join(parts, ", "))
	}
}

func writeFileAnalysis(w io.Writer, fa *analyzer.FileAnalysis) {
	heading(w, fmt.Sprintf("%s (%s)", fa.Path, fa.Language))
	if fa.HasSyntaxErrors {
		fmt.Fprintln(w, "! file contains syntax errors; facts may be incomplete")
	}
	fmt.Fprintf(w, "Cyclomatic %d, cognitive %d, Halstead volume %.1f\n",
		fa.Metrics.Cyclomatic, fa.Metrics.Cognitive, fa.Metrics.Halstead.Volume)

	if len(fa.Imports) > 0 {
		fmt.Fprintf(w, "\nImports (%d):\n", len(fa.Imports))
		for _, im := range fa.Imports {
			names := make([]string, 0, len(im.Specifiers))
			for _, s := range im.Specifiers {
				n := s.Name
				if s.Alias != "" {
					n += " as " + s.Alias
				}
				names = append(names, n)
			}
			fmt.Fprintf(w, "  %s  %s\n", im.Source, strings.Join(names, ", "))
		}
	}
	if len(fa.Exports) > 0 {
		fmt.Fprintf(w, "\nExports (%d):\n", len(fa.Exports))
		for _, ex := range fa.Exports {
			fmt.Fprintf(w, "  %s (%s)\n", ex.Name, ex.Kind)
		}
	}
	if len(fa.Functions) > 0 {
		fmt.Fprintln(w)
		t := newTable(w, "Function", "Kind", "Params", "Line", "Cyclomatic", "Cognitive")
		for _, fn := range fa.Functions {
			t.Append([]string{
				fn.Name, fn.Kind, strings.Join(fn.Params, ", "),
				strconv.Itoa(fn.Location.Line), strconv.Itoa(fn.Cyclomatic), strconv.Itoa(fn.Cognitive),
			})
		}
		t.Render()
	}
	if len(fa.Classes) > 0 {
		fmt.Fprintf(w, "\nClasses (%d):\n", len(fa.Classes))
		for _, c := range fa.Classes {
			fmt.Fprintf(w, "  %s", c.Name)
			if len(c.Extends) > 0 {
				fmt.Fprintf(w, " extends %s", strings.Join(c.Extends, ", "))
			}
			if len(c.Implements) > 0 {
				fmt.Fprintf(w, " implements %s", strings.Join(c.Implements, ", "))
			}
			fmt.Fprintf(w, " [%d methods]\n", len(c.Methods))
		}
	}
	if len(fa.Dependencies) > 0 {
		fmt.Fprintln(w)
		writeDependencies(w, "", fa.Dependencies)
	}
}

func writeDependencies(w io.Writer, file string, deps []analyzer.Dependency) {
	if file != "" {
		heading(w, fmt.Sprintf("Dependencies of %s (%d)", file, len(deps)))
	}
	t := newTable(w, "Target", "Kind", "Line", "Resolved")
	for _, d := range deps {
		resolved := "-"
		switch {
		case d.External:
			resolved = "external"
		case d.Resolved:
			resolved = d.ResolvedPath
		}
		t.Append([]string{d.Target, string(d.Kind), strconv.Itoa(d.Location.Line), resolved})
	}
	t.Render()
}

func writeComplexity(w io.Writer, fc *complexity.FileComplexity) {
	heading(w, fmt.Sprintf("Complexity of %s (%s)", fc.Path, fc.Language))
	fmt.Fprintf(w, "Functions: %d\n", fc.FunctionCount)
	fmt.Fprintf(w, "Cyclomatic: file %d, total %d, average %.1f, max %d\n",
		fc.Metrics.Cyclomatic, fc.TotalCyclomatic, fc.AverageCyclomatic, fc.MaxCyclomatic)
	fmt.Fprintf(w, "Cognitive: file %d, total %d, average %.1f, max %d\n",
		fc.Metrics.Cognitive, fc.TotalCognitive, fc.AverageCognitive, fc.MaxCognitive)
	h := fc.Metrics.Halstead
	fmt.Fprintf(w, "Halstead: volume %.1f, difficulty %.1f, effort %.1f\n\n", h.Volume, h.Difficulty, h.Effort)

	if len(fc.Functions) == 0 {
		return
	}
	t := newTable(w, "Function", "Lines", "Cyclomatic", "Cognitive", "Risk")
	for _, fn := range fc.Functions {
		t.Append([]string{
			fn.Name,
			fmt.Sprintf("%d-%d", fn.StartLine, fn.EndLine),
			strconv.Itoa(fn.Cyclomatic),
			strconv.Itoa(fn.Cognitive),
			riskLevel(fn.Cyclomatic, fn.Cognitive),
		})
	}
	t.Render()
}

// riskLevel buckets a function by its worse metric
func riskLevel(cyclomatic, cognitive int) string {
	switch {
	case cyclomatic > 20 || cognitive > 30:
		return "high"
	case cyclomatic > 10 || cognitive > 15:
		return "medium"
	default:
		return "low"
	}
}

func writeCacheStats(w io.Writer, s cache.Stats) {
	t := newTable(w, "Tier", "Entries", "Hits")
	t.Append([]string{"hot", humanize.Comma(int64(s.HotSize)), humanize.Comma(s.HotHits)})
	t.Append([]string{"secondary", humanize.Comma(int64(s.SecondarySize)), humanize.Comma(s.SecondaryHits)})
	t.Append([]string{"persistent", humanize.Comma(int64(s.PersistentSize)), humanize.Comma(s.PersistentHits)})
	t.Render()
	fmt.Fprintf(w, "\nMisses: %s, sets: %s\n", humanize.Comma(s.Misses), humanize.Comma(s.Sets))
}

// printError reports a failed command. Typed errors keep their code and details in JSON.
func printError(w io.Writer, err error, format OutputFormat) {
	if format == FormatJSON {
		if e, ok := errors.As(err); ok {
			_ = writeJSON(w, map[string]any{"error": e})
			return
		}
		_ = writeJSON(w, map[string]any{"error": map[string]string{"message": err.Error()}})
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// exitCode is 2 for rejected input and 1 for every other failure
func exitCode(err error) int {
	switch errors.KindOf(err) {
	case errors.KindValidation, errors.KindSecurity:
		return 2
	}
	return 1
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
