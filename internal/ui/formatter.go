package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"testme/internal/config"
	"testme/internal/discovery"
	"testme/internal/domain"
	"testme/internal/parser"
)

// Report formats
const (
	FormatSimple   = "simple"
	FormatDetailed = "detailed"
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// Formats lists every supported report format
var Formats = []string{FormatSimple, FormatDetailed, FormatTable, FormatJSON, FormatYAML}

var (
	cyan    = color.New(color.FgCyan)
	green   = color.New(color.FgGreen)
	red     = color.New(color.FgRed)
	yellow  = color.New(color.FgYellow)
	gray    = color.New(color.FgHiBlack)
	magenta = color.New(color.FgMagenta)
	bold    = color.New(color.Bold)
)

// outputTailLines is how much of a failing test's output simple mode shows
const outputTailLines = 10

// Formatter formats and displays output
type Formatter struct {
	out     io.Writer
	root    string
	verbose bool
	quiet   bool
	colors  bool
	parser  parser.Parser
	cases   *discovery.Parser
}

// NewFormatter creates a new Formatter writing to w. p extracts failures from
// test output; cases lists test functions for --list -v.
func NewFormatter(w io.Writer, opts *config.Options, p parser.Parser, cases *discovery.Parser) *Formatter {
	return &Formatter{
		out:     w,
		root:    opts.GetRootPath(),
		verbose: opts.Verbose,
		quiet:   opts.Quiet,
		colors:  !opts.NoColor && !color.NoColor,
		parser:  p,
		cases:   cases,
	}
}

// BuildReport turns a summary into the machine readable report
func (f *Formatter) BuildReport(summary *domain.Summary) *domain.Report {
	report := &domain.Report{
		Meta: domain.ReportMeta{
			RunID:           summary.RunID,
			TotalTests:      summary.Total,
			PassedTests:     summary.Passed,
			FailedTests:     summary.Failed,
			ErrorTests:      summary.Errors,
			SkippedTests:    summary.Skipped,
			Duration:        summary.Duration.Round(time.Millisecond).String(),
			DurationSeconds: summary.Duration.Seconds(),
			Workers:         summary.Workers,
			Timestamp:       time.Now().Format(time.RFC3339),
		},
		Groups: summary.Groups,
	}
	for _, result := range summary.Results() {
		if result.Status != domain.StatusFailed && result.Status != domain.StatusError {
			continue
		}
		if f.parser != nil {
			report.Failures = append(report.Failures, f.parser.ParseFailure(result)...)
		}
	}
	return report
}

// PrintSummary prints the results of a run in format
func (f *Formatter) PrintSummary(summary *domain.Summary, format string) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(f.BuildReport(summary), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(f.out, string(data))
		return err
	case FormatYAML:
		return f.writeYAML(f.BuildReport(summary))
	case FormatTable:
		f.printTable(summary)
	case FormatDetailed:
		f.printResults(summary, true)
	case FormatSimple, "":
		f.printResults(summary, false)
	default:
		return fmt.Errorf("unknown format %q, expected one of %s", format, strings.Join(Formats, ", "))
	}

	if !f.quiet {
		f.printMetaStats(summary)
	}
	f.printVerdict(summary)
	return nil
}

// PrintConfig prints a resolved configuration as YAML
func (f *Formatter) PrintConfig(cfg *config.Resolved) error {
	return f.writeYAML(cfg)
}

func (f *Formatter) writeYAML(v any) error {
	enc := yaml.NewEncoder(f.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}

// PrintNotice prints a highlighted one-line message
func (f *Formatter) PrintNotice(message string) {
	yellow.Fprintln(f.out, message)
}

// clean strips colour codes from captured output when colours are off
func (f *Formatter) clean(output string) string {
	if f.colors && !color.NoColor {
		return output
	}
	return stripansi.Strip(output)
}

func (f *Formatter) relPath(path string) string {
	if rel, err := filepath.Rel(f.root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

func statusLabel(s domain.Status) string {
	switch s {
	case domain.StatusPassed:
		return green.Sprint("✓ PASS ")
	case domain.StatusFailed:
		return red.Sprint("✗ FAIL ")
	case domain.StatusError:
		return magenta.Sprint("! ERROR")
	case domain.StatusSkipped:
		return yellow.Sprint("- SKIP ")
	}
	return gray.Sprint("  " + strings.ToUpper(s.String()))
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func (f *Formatter) printPhases(phases []domain.PhaseResult) {
	for _, phase := range phases {
		mark := green.Sprint("✓")
		if !phase.Success {
			mark = red.Sprint("✗")
		}
		gray.Fprintf(f.out, "  %s %s (%s)", mark, phase.Phase, formatDuration(phase.Duration))
		if phase.Error != "" {
			red.Fprintf(f.out, " %s", phase.Error)
		}
		fmt.Fprintln(f.out)
	}
}

func (f *Formatter) printResults(summary *domain.Summary, detailed bool) {
	showGroups := len(summary.Groups) > 1 || detailed
	if detailed && len(summary.GlobalPhases) > 0 {
		cyan.Fprintln(f.out, "\n▸ global")
		f.printPhases(summary.GlobalPhases)
	}
	for _, group := range summary.Groups {
		if showGroups && !f.quiet {
			name := f.relPath(group.ConfigDir)
			if group.ConfigDir == "" {
				name = "(defaults)"
			}
			cyan.Fprintf(f.out, "\n▸ %s", name)
			gray.Fprintf(f.out, " [%s]\n", group.State)
		}
		if group.SkipReason != "" && !f.quiet {
			yellow.Fprintf(f.out, "  skipped: %s\n", group.SkipReason)
		}
		if group.Error != "" {
			red.Fprintf(f.out, "  %s\n", group.Error)
		}
		if detailed {
			f.printPhases(group.Phases)
		}

		for _, result := range group.Results {
			failed := result.Status == domain.StatusFailed || result.Status == domain.StatusError
			if f.quiet && !failed {
				continue
			}
			f.printResultLine(result)
			if detailed || failed || f.verbose {
				f.printOutput(result, detailed || f.verbose)
			}
		}
	}
}

func (f *Formatter) printResultLine(result domain.TestResult) {
	line := fmt.Sprintf("%s  %s", statusLabel(result.Status), result.File.RelPath)
	if result.Iteration > 1 {
		line += gray.Sprintf(" #%d", result.Iteration)
	}
	if result.Status != domain.StatusSkipped {
		line += gray.Sprintf(" (%s)", formatDuration(result.Duration))
	}
	if result.Passed+result.Failed > 0 {
		line += gray.Sprintf(" %d/%d assertions", result.Passed, result.Passed+result.Failed)
	}
	if result.Error != "" && result.Status != domain.StatusPassed {
		line += "  " + red.Sprint(result.Error)
	}
	fmt.Fprintln(f.out, line)
}

func (f *Formatter) printOutput(result domain.TestResult, full bool) {
	output := strings.TrimRight(f.clean(result.Output), "\n")
	if output == "" {
		return
	}
	lines := strings.Split(output, "\n")
	if !full && len(lines) > outputTailLines {
		gray.Fprintf(f.out, "    ... %d more lines\n", len(lines)-outputTailLines)
		lines = lines[len(lines)-outputTailLines:]
	}
	for _, line := range lines {
		fmt.Fprintf(f.out, "    %s\n", line)
	}
}

func (f *Formatter) printVerdict(summary *domain.Summary) {
	fmt.Fprintln(f.out)
	switch {
	case summary.Interrupted:
		yellow.Fprintf(f.out, "⚠ Interrupted after %d test(s)\n", summary.Total)
	case summary.Success() && summary.Total == 0:
		yellow.Fprintln(f.out, "No tests were run")
	case summary.Success():
		green.Fprintf(f.out, "✓ All %d test(s) passed\n", summary.Passed)
	default:
		red.Fprintf(f.out, "✗ %d failed, %d error(s), %d group error(s)\n", summary.Failed, summary.Errors, summary.GroupErrors)
		if !f.quiet {
			f.printFailedTestsTree(f.BuildReport(summary).Failures)
		}
	}
}

// printMetaStats prints the run statistics box
func (f *Formatter) printMetaStats(summary *domain.Summary) {
	fmt.Fprintln(f.out)
	cyan.Fprintln(f.out, "╔═══════════════════════════════════════════════════════════════╗")
	cyan.Fprintln(f.out, "║                    Test Execution Statistics                  ║")
	cyan.Fprintln(f.out, "╚═══════════════════════════════════════════════════════════════╝")

	rows := []struct {
		label string
		value string
		c     *color.Color
	}{
		{"Total Tests", fmt.Sprint(summary.Total), bold},
		{"Passed", fmt.Sprint(summary.Passed), green},
		{"Failed", fmt.Sprint(summary.Failed), red},
		{"Errors", fmt.Sprint(summary.Errors), magenta},
		{"Skipped", fmt.Sprint(summary.Skipped), yellow},
		{"Duration", formatDuration(summary.Duration), bold},
		{"Workers", fmt.Sprint(summary.Workers), bold},
	}

	fmt.Fprintln(f.out, "┌─────────────────────────────────┬─────────────────────────────┐")
	for i, row := range rows {
		fmt.Fprintf(f.out, "│ %-31s │ ", row.label)
		row.c.Fprintf(f.out, "%-27s", row.value)
		fmt.Fprintln(f.out, " │")
		if i < len(rows)-1 {
			fmt.Fprintln(f.out, "├─────────────────────────────────┼─────────────────────────────┤")
		}
	}
	fmt.Fprintln(f.out, "└─────────────────────────────────┴─────────────────────────────┘")
}

// TreeNode represents a node in the file tree structure
type TreeNode struct {
	Name     string
	Children map[string]*TreeNode
	Failures []domain.TestFailure
	IsFile   bool
}

// printFailedTestsTree prints a tree structure of failed tests
func (f *Formatter) printFailedTestsTree(failures []domain.TestFailure) {
	if len(failures) == 0 {
		return
	}

	fileMap := make(map[string][]domain.TestFailure)
	for _, failure := range failures {
		key := f.relPath(failure.FilePath)
		fileMap[key] = append(fileMap[key], failure)
	}

	root := &TreeNode{Children: make(map[string]*TreeNode)}
	for filePath, fileFailures := range fileMap {
		parts := strings.Split(strings.TrimPrefix(filePath, "./"), "/")
		current := root
		for i, part := range parts {
			if part == "" {
				continue
			}
			if current.Children[part] == nil {
				current.Children[part] = &TreeNode{
					Name:     part,
					Children: make(map[string]*TreeNode),
					IsFile:   i == len(parts)-1,
				}
			}
			current = current.Children[part]
			if i == len(parts)-1 {
				current.Failures = fileFailures
			}
		}
	}

	fmt.Fprintln(f.out)
	f.printTreeNode(root, "", true)
}

func (f *Formatter) printTreeNode(node *TreeNode, prefix string, isRoot bool) {
	keys := make([]string, 0, len(node.Children))
	for key := range node.Children {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for i, key := range keys {
		child := node.Children[key]
		isLastChild := i == len(keys)-1

		connector := prefix + "├── "
		childPrefix := prefix + "│   "
		if isLastChild {
			connector = prefix + "└── "
			childPrefix = prefix + "    "
		}
		if isRoot {
			connector, childPrefix = "", ""
		}

		if child.IsFile {
			yellow.Fprintf(f.out, "%s%s\n", connector, child.Name)
			for j, failure := range child.Failures {
				casePrefix := childPrefix + "├── "
				if j == len(child.Failures)-1 {
					casePrefix = childPrefix + "└── "
				}
				message, _, _ := strings.Cut(failure.Message, "\n")
				red.Fprintf(f.out, "%s%s\n", casePrefix, message)
			}
		} else {
			cyan.Fprintf(f.out, "%s%s/\n", connector, child.Name)
		}
		f.printTreeNode(child, childPrefix, false)
	}
}

// PrintTestList prints the discovered tests, with their test functions when
// showTestCases is set.
func (f *Formatter) PrintTestList(tests []domain.TestFile, showTestCases bool) error {
	if showTestCases {
		green.Fprintf(f.out, "Found %d test file(s) with test cases:\n\n", len(tests))
	} else {
		green.Fprintf(f.out, "Found %d test file(s):\n\n", len(tests))
	}

	for i, test := range tests {
		isLastFile := i == len(tests)-1
		branch, indent := "├── ", "│   "
		if isLastFile {
			branch, indent = "└── ", "    "
		}

		marker := gray.Sprintf(" [%s]", test.Type)
		if test.IsManual {
			marker += yellow.Sprint(" [manual]")
		}
		cyan.Fprintf(f.out, "%s%s", branch, test.RelPath)
		fmt.Fprintln(f.out, marker)

		if !showTestCases || f.cases == nil {
			continue
		}
		testCases, err := f.cases.FindTestCases(test)
		if err != nil {
			red.Fprintf(f.out, "%s└── error reading test file: %v\n", indent, err)
			continue
		}
		if len(testCases) == 0 {
			fmt.Fprintf(f.out, "%s└── %s\n", indent, gray.Sprint("(no test cases found)"))
			continue
		}
		for j, testCase := range testCases {
			prefix := "├── "
			if j == len(testCases)-1 {
				prefix = "└── "
			}
			fmt.Fprintf(f.out, "%s%s%s\n", indent, prefix, yellow.Sprint(testCase.Name))
		}
	}
	return nil
}
