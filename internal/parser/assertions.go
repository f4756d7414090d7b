package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/acarl005/stripansi"

	"testme/internal/domain"
)

const (
	passMark = "✓"
	failMark = "✗"
)

var locationPattern = regexp.MustCompile(`\bat\s+(\S+?):(\d+)\s*$`)

// AssertionParser reads the ✓/✗ lines testme test helpers print
type AssertionParser struct{}

// NewAssertionParser creates a new AssertionParser
func NewAssertionParser() *AssertionParser {
	return &AssertionParser{}
}

// ParseTestCounts counts output lines that start with a pass or fail mark
func (p *AssertionParser) ParseTestCounts(result domain.TestResult) (passed, failed int) {
	for _, line := range lines(result.Output) {
		switch {
		case strings.HasPrefix(line, passMark):
			passed++
		case strings.HasPrefix(line, failMark):
			failed++
		}
	}
	return passed, failed
}

// ParseFailure returns one failure per ✗ line, with the Expected/Received
// lines that follow it. A failed test with no ✗ lines yields a single failure
// carrying the tail of its output.
func (p *AssertionParser) ParseFailure(result domain.TestResult) []domain.TestFailure {
	if result.Status == domain.StatusPassed {
		return nil
	}

	var failures []domain.TestFailure
	all := lines(result.Output)
	for i := 0; i < len(all); i++ {
		line := all[i]
		if !strings.HasPrefix(line, failMark) {
			continue
		}
		failure := domain.TestFailure{
			TestName: result.File.Name,
			FilePath: result.File.Path,
			Message:  strings.TrimSpace(strings.TrimPrefix(line, failMark)),
		}
		if m := locationPattern.FindStringSubmatch(line); m != nil {
			failure.File = m[1]
			failure.Line, _ = strconv.Atoi(m[2])
		}
		for i+1 < len(all) {
			next := all[i+1]
			if v, ok := strings.CutPrefix(next, "Expected:"); ok {
				failure.Expected = strings.TrimSpace(v)
			} else if v, ok := strings.CutPrefix(next, "Received:"); ok {
				failure.Received = strings.TrimSpace(v)
			} else {
				break
			}
			i++
		}
		failures = append(failures, failure)
	}

	if len(failures) == 0 {
		message := result.Error
		if message == "" {
			message = tail(all, 10)
		}
		failures = append(failures, domain.TestFailure{
			TestName: result.File.Name,
			FilePath: result.File.Path,
			Message:  message,
		})
	}
	return failures
}

func lines(output string) []string {
	raw := strings.Split(stripansi.Strip(output), "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func tail(all []string, n int) string {
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return strings.Join(all, "\n")
}
