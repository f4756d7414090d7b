package discovery

import (
	"path/filepath"
	"testing"

	"testme/internal/config"
	"testme/internal/domain"
)

func testFiles(rel ...string) []domain.TestFile {
	root := filepath.FromSlash("/project")
	var files []domain.TestFile
	for _, r := range rel {
		path := filepath.Join(root, filepath.FromSlash(r))
		testType, _ := domain.TypeForExt(filepath.Ext(path))
		files = append(files, domain.NewTestFile(root, path, testType, config.ArtifactDirName))
	}
	return files
}

func relPaths(files []domain.TestFile) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.RelPath)
	}
	return out
}

func TestFilter_Match(t *testing.T) {
	filter := NewFilter()
	files := testFiles(
		"unit/math.tst.c",
		"unit/strings.tst.js",
		"integration/api.tst.c",
		"integration/http.tst.js",
		"integration/deep/db.tst.py",
	)

	tests := []struct {
		name     string
		patterns []string
		expected []string
	}{
		{
			name:     "empty patterns return all",
			patterns: nil,
			expected: relPaths(files),
		},
		{
			name:     "extension",
			patterns: []string{".c"},
			expected: []string{"unit/math.tst.c", "integration/api.tst.c"},
		},
		{
			name:     "directory component",
			patterns: []string{"deep"},
			expected: []string{"integration/deep/db.tst.py"},
		},
		{
			name:     "path suffix",
			patterns: []string{"unit/math.tst.c"},
			expected: []string{"unit/math.tst.c"},
		},
		{
			name:     "path suffix without extension",
			patterns: []string{"unit/strings"},
			expected: []string{"unit/strings.tst.js"},
		},
		{
			name:     "name without extension",
			patterns: []string{"http.tst"},
			expected: []string{"integration/http.tst.js"},
		},
		{
			name:     "glob on file name",
			patterns: []string{"*.tst.js"},
			expected: []string{"unit/strings.tst.js", "integration/http.tst.js"},
		},
		{
			name:     "glob on relative path",
			patterns: []string{"integration/**/*.py"},
			expected: []string{"integration/deep/db.tst.py"},
		},
		{
			name:     "or within a category",
			patterns: []string{"math", "db"},
			expected: []string{"unit/math.tst.c", "integration/deep/db.tst.py"},
		},
		{
			name:     "and across categories",
			patterns: []string{".c", "integration"},
			expected: []string{"integration/api.tst.c"},
		},
		{
			name:     "leading dot slash",
			patterns: []string{"./unit/math.tst.c"},
			expected: []string{"unit/math.tst.c"},
		},
		{
			name:     "no matches",
			patterns: []string{"nothing"},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := relPaths(filter.Match(files, tt.patterns))
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, result)
			}
			for i := range tt.expected {
				if result[i] != tt.expected[i] {
					t.Errorf("expected %s at %d, got %s", tt.expected[i], i, result[i])
				}
			}
		})
	}
}

func TestFilter_Explicit(t *testing.T) {
	filter := NewFilter()
	file := testFiles("manual/slow.tst.sh")[0]

	tests := []struct {
		name     string
		patterns []string
		expected bool
	}{
		{"file name", []string{"slow.tst.sh"}, true},
		{"base name", []string{"slow.tst"}, true},
		{"stem", []string{"slow"}, true},
		{"relative path", []string{"manual/slow.tst.sh"}, true},
		{"absolute path", []string{filepath.ToSlash(file.Path)}, true},
		{"wildcard", []string{"*.tst.sh"}, false},
		{"extension", []string{".sh"}, false},
		{"directory", []string{"manual"}, false},
		{"none", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter.Explicit(file, tt.patterns); got != tt.expected {
				t.Errorf("Explicit(%v) = %v, expected %v", tt.patterns, got, tt.expected)
			}
		})
	}
}
