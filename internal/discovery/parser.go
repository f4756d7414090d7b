package discovery

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"testme/internal/domain"
)

// Parser lists the test functions declared inside test files
type Parser struct {
	patterns map[domain.TestType][]*regexp.Regexp
}

// NewParser creates a new Parser
func NewParser() *Parser {
	jsPatterns := []*regexp.Regexp{
		// function testSomething() / async function testSomething()
		regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:async\s+)?function\s+(test\w*)\s*\(`),
		// test('name', ...) / it("name", ...)
		regexp.MustCompile(`(?m)^\s*(?:test|it)\s*\(\s*['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]`),
	}
	return &Parser{
		patterns: map[domain.TestType][]*regexp.Regexp{
			domain.TypeC: {
				// static void testSomething(void) / int test_math()
				regexp.MustCompile(`(?m)^\s*(?:static\s+)?(?:void|int|bool)\s+(test\w*)\s*\(`),
			},
			domain.TypePython: {
				regexp.MustCompile(`(?m)^\s*(?:async\s+)?def\s+(test\w*)\s*\(`),
			},
			domain.TypeGo: {
				regexp.MustCompile(`(?m)^func\s+(test\w*|Test\w*)\s*\(`),
			},
			domain.TypeJavaScript: jsPatterns,
			domain.TypeTypeScript: jsPatterns,
			domain.TypeEjs:        jsPatterns,
			domain.TypeShell: {
				// test_something() { / function test_something {
				regexp.MustCompile(`(?m)^\s*(?:function\s+)?(test\w*)\s*(?:\(\s*\))?\s*\{`),
			},
			domain.TypePowerShell: {
				regexp.MustCompile(`(?mi)^\s*function\s+(test[\w-]*)`),
			},
		},
	}
}

// FindTestCases returns the sorted, de-duplicated test function names of file.
// Types without a known convention return no cases.
func (p *Parser) FindTestCases(file domain.TestFile) ([]domain.TestCase, error) {
	content, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", file.Path, err)
	}

	found := make(map[string]bool)
	for _, pattern := range p.patterns[file.Type] {
		for _, match := range pattern.FindAllStringSubmatch(string(content), -1) {
			if len(match) > 1 {
				found[match[1]] = true
			}
		}
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)

	cases := make([]domain.TestCase, len(names))
	for i, name := range names {
		cases[i] = domain.TestCase{Name: name, FilePath: file.Path}
	}
	return cases, nil
}
