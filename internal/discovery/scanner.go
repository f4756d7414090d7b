package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"testme/internal/config"
	"testme/internal/domain"
)

// Scanner finds test files under a root directory
type Scanner struct {
	skipDirs map[string]bool
}

// NewScanner creates a new Scanner with the given directory names to prune
func NewScanner(skipDirs []string) *Scanner {
	skipMap := make(map[string]bool)
	for _, dir := range skipDirs {
		skipMap[dir] = true
	}
	return &Scanner{skipDirs: skipMap}
}

// Discover walks root depth-first and returns every file that matches an
// include pattern, matches no exclude pattern and has a known test extension.
// Unreadable directories are skipped and reported as warnings.
func (s *Scanner) Discover(root string, include, exclude []string) ([]domain.TestFile, []error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, []error{fmt.Errorf("test path does not exist: %s", root)}
	}
	if !info.IsDir() {
		return nil, []error{fmt.Errorf("test path is not a directory: %s", root)}
	}
	for _, pattern := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, []error{fmt.Errorf("invalid pattern: %s", pattern)}
		}
	}

	var tests []domain.TestFile
	var warnings []error

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			warnings = append(warnings, fmt.Errorf("skipping %s: %w", path, err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && s.prune(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !matchAny(include, rel) || matchAny(exclude, rel) {
			return nil
		}
		testType, ok := domain.TypeForExt(filepath.Ext(path))
		if !ok {
			return nil
		}
		tests = append(tests, domain.NewTestFile(root, path, testType, config.ArtifactDirName))
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, filepath.SkipDir) {
		warnings = append(warnings, walkErr)
	}

	sort.Slice(tests, func(i, j int) bool {
		return tests[i].Path < tests[j].Path
	})
	return tests, warnings
}

func (s *Scanner) prune(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return s.skipDirs[name]
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
