package ui

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"testme/internal/config"
	"testme/internal/discovery"
	"testme/internal/domain"
	"testme/internal/parser"
)

func sampleSummary(root string) *domain.Summary {
	file := func(name string) domain.TestFile {
		return domain.NewTestFile(root, filepath.Join(root, "unit", name), domain.TypeShell, config.ArtifactDirName)
	}
	summary := &domain.Summary{RunID: "run-1", Duration: 1500 * time.Millisecond, Workers: 2}
	summary.Add(domain.GroupResult{
		ConfigDir: filepath.Join(root, "unit"),
		State:     domain.StateDone,
		Results: []domain.TestResult{
			{File: file("add.tst.sh"), Status: domain.StatusPassed, Output: "✓ adds\n", Passed: 1, Iteration: 1},
			{File: file("div.tst.sh"), Status: domain.StatusFailed, Output: "✗ divides\nExpected: 2\nReceived: 3\n", Failed: 1, Error: "exited with code 1", Iteration: 1},
		},
	})
	return summary
}

func newTestFormatter(buf *bytes.Buffer, root string, mutate func(*config.Options)) *Formatter {
	opts := config.New()
	opts.RootPath = root
	opts.NoColor = true
	if mutate != nil {
		mutate(opts)
	}
	return NewFormatter(buf, opts, parser.NewAssertionParser(), discovery.NewParser())
}

func TestFormatter_BuildReport(t *testing.T) {
	root := t.TempDir()
	report := newTestFormatter(&bytes.Buffer{}, root, nil).BuildReport(sampleSummary(root))

	assert.Equal(t, "run-1", report.Meta.RunID)
	assert.Equal(t, 2, report.Meta.TotalTests)
	assert.Equal(t, 1, report.Meta.PassedTests)
	assert.Equal(t, 1, report.Meta.FailedTests)
	assert.Equal(t, "1.5s", report.Meta.Duration)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "divides", report.Failures[0].Message)
	assert.Equal(t, "2", report.Failures[0].Expected)
	assert.Equal(t, "3", report.Failures[0].Received)
}

func TestFormatter_PrintSummary(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name     string
		format   string
		contains []string
	}{
		{"simple", FormatSimple, []string{"PASS", "unit/add.tst.sh", "FAIL", "unit/div.tst.sh", "exited with code 1", "Test Execution Statistics", "1 failed"}},
		{"detailed", FormatDetailed, []string{"▸ unit", "[done]", "✓ adds", "✗ divides"}},
		{"table", FormatTable, []string{"unit/div.tst.sh", "TOTAL", "FAIL"}},
		{"yaml", FormatYAML, []string{"run_id: run-1", "failed_tests: 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, newTestFormatter(&buf, root, nil).PrintSummary(sampleSummary(root), tt.format))
			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, newTestFormatter(&buf, root, nil).PrintSummary(sampleSummary(root), FormatJSON))

		var report domain.Report
		require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
		assert.Equal(t, 2, report.Meta.TotalTests)
		require.Len(t, report.Groups, 1)
		assert.Len(t, report.Groups[0].Results, 2)
	})

	t.Run("unknown format", func(t *testing.T) {
		err := newTestFormatter(&bytes.Buffer{}, root, nil).PrintSummary(sampleSummary(root), "xml")
		assert.ErrorContains(t, err, "unknown format")
	})

	t.Run("quiet hides passing tests", func(t *testing.T) {
		var buf bytes.Buffer
		f := newTestFormatter(&buf, root, func(o *config.Options) { o.Quiet = true })
		require.NoError(t, f.PrintSummary(sampleSummary(root), FormatSimple))
		assert.NotContains(t, buf.String(), "add.tst.sh")
		assert.Contains(t, buf.String(), "div.tst.sh")
		assert.NotContains(t, buf.String(), "Statistics")
	})

	t.Run("all passed", func(t *testing.T) {
		summary := &domain.Summary{}
		summary.Add(domain.GroupResult{Results: []domain.TestResult{{Status: domain.StatusPassed}}})
		var buf bytes.Buffer
		require.NoError(t, newTestFormatter(&buf, root, nil).PrintSummary(summary, FormatSimple))
		assert.Contains(t, buf.String(), "All 1 test(s) passed")
	})
}

func TestFormatter_PrintOutputTail(t *testing.T) {
	var output strings.Builder
	for i := 0; i < 15; i++ {
		output.WriteString("line\n")
	}
	var buf bytes.Buffer
	f := newTestFormatter(&buf, t.TempDir(), nil)
	f.printOutput(domain.TestResult{Output: output.String()}, false)

	assert.Contains(t, buf.String(), "... 5 more lines")
	assert.Equal(t, outputTailLines, strings.Count(buf.String(), "    line\n"))
}

func TestFormatter_PrintTestList(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "math.tst.sh")
	require.NoError(t, os.WriteFile(path, []byte("test_add() {\n  :\n}\ntest_sub() {\n  :\n}\n"), 0o644))
	tests := []domain.TestFile{domain.NewTestFile(root, path, domain.TypeShell, config.ArtifactDirName)}
	tests[0].IsManual = true

	var buf bytes.Buffer
	require.NoError(t, newTestFormatter(&buf, root, nil).PrintTestList(tests, true))

	out := buf.String()
	assert.Contains(t, out, "Found 1 test file(s) with test cases")
	assert.Contains(t, out, "└── math.tst.sh [shell] [manual]")
	assert.Contains(t, out, "├── test_add")
	assert.Contains(t, out, "└── test_sub")
}

func TestFormatter_PrintConfig(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Resolved{ConfigDir: "/project", Profile: "dev"}
	require.NoError(t, newTestFormatter(&buf, "/project", nil).PrintConfig(cfg))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.NotEmpty(t, decoded)
	assert.Contains(t, buf.String(), "dev")
}
