package discovery

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"testme/internal/domain"
)

// Filter narrows discovered tests with command line patterns
type Filter struct{}

// NewFilter creates a new Filter
func NewFilter() *Filter {
	return &Filter{}
}

// Match returns the files selected by patterns. A pattern selects a file by
// extension (".c"), by a directory component ("integration"), by a suffix of
// its relative path with or without the extension ("unit/math.tst.c",
// "unit/math") or as a glob against the relative path, the file name or the
// name without extension. When extension patterns and other patterns are both
// given, a file must match one of each.
func (f *Filter) Match(files []domain.TestFile, patterns []string) []domain.TestFile {
	if len(patterns) == 0 {
		return files
	}

	var extPatterns, otherPatterns []string
	for _, p := range patterns {
		p = normalizePattern(p)
		if p == "" {
			continue
		}
		if isExtensionPattern(p) {
			extPatterns = append(extPatterns, p)
		} else {
			otherPatterns = append(otherPatterns, p)
		}
	}
	if len(extPatterns) == 0 && len(otherPatterns) == 0 {
		return files
	}

	var filtered []domain.TestFile
	for _, file := range files {
		if len(extPatterns) > 0 && !matchesAny(file, extPatterns, matchExtension) {
			continue
		}
		if len(otherPatterns) > 0 && !matchesAny(file, otherPatterns, matchOther) {
			continue
		}
		filtered = append(filtered, file)
	}
	return filtered
}

// Explicit reports whether one of patterns names file exactly, without
// wildcards. Manual tests only run when named this way.
func (f *Filter) Explicit(file domain.TestFile, patterns []string) bool {
	for _, p := range patterns {
		p = normalizePattern(p)
		if p == "" || hasWildcard(p) || isExtensionPattern(p) {
			continue
		}
		if p == file.Name || p == file.BaseName() || p == file.Stem() {
			return true
		}
		if matchSuffix(file, p) || matchSuffixNoExt(file, p) {
			return true
		}
		if filepath.IsAbs(filepath.FromSlash(p)) && filepath.Clean(filepath.FromSlash(p)) == file.Path {
			return true
		}
	}
	return false
}

func matchesAny(file domain.TestFile, patterns []string, match func(domain.TestFile, string) bool) bool {
	for _, p := range patterns {
		if match(file, p) {
			return true
		}
	}
	return false
}

func matchExtension(file domain.TestFile, p string) bool {
	return strings.EqualFold(file.Ext, p) || strings.HasSuffix(file.Name, p)
}

func matchOther(file domain.TestFile, p string) bool {
	return matchComponent(file, p) ||
		matchSuffix(file, p) ||
		matchSuffixNoExt(file, p) ||
		matchGlob(file, p)
}

// matchComponent matches a directory name anywhere in the relative path
func matchComponent(file domain.TestFile, p string) bool {
	if strings.Contains(p, "/") {
		return false
	}
	parts := strings.Split(file.RelPath, "/")
	for _, part := range parts[:len(parts)-1] {
		if part == p {
			return true
		}
	}
	return false
}

func matchSuffix(file domain.TestFile, p string) bool {
	path := filepath.ToSlash(file.Path)
	return file.RelPath == p ||
		strings.HasSuffix(file.RelPath, "/"+p) ||
		path == p ||
		strings.HasSuffix(path, "/"+p)
}

func matchSuffixNoExt(file domain.TestFile, p string) bool {
	rel := strings.TrimSuffix(file.RelPath, file.Ext)
	stem := rel
	if end := len(file.Name) - len(file.Ext); len(file.Stem()) < end {
		// drop inner extensions too: unit/math.tst -> unit/math
		stem = strings.TrimSuffix(rel, file.Name[len(file.Stem()):end])
	}
	for _, candidate := range []string{rel, stem} {
		if candidate == p || strings.HasSuffix(candidate, "/"+p) {
			return true
		}
	}
	return false
}

func matchGlob(file domain.TestFile, p string) bool {
	if !hasWildcard(p) {
		return false
	}
	for _, candidate := range []string{file.RelPath, file.Name, file.BaseName(), file.Stem()} {
		if ok, _ := doublestar.Match(p, candidate); ok {
			return true
		}
	}
	return false
}

func normalizePattern(p string) string {
	p = filepath.ToSlash(strings.TrimSpace(p))
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimSuffix(p, "/")
}

func isExtensionPattern(p string) bool {
	return len(p) > 1 && p[0] == '.' && !strings.ContainsAny(p, "/*?[{")
}

func hasWildcard(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}
