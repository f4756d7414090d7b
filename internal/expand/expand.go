// Package expand resolves ${...} placeholders in configuration strings.
//
// A placeholder is resolved in this order: special variables supplied by the
// caller, deferred names (left for a later pass), process environment
// variables, and finally a glob relative to a base directory. Resolution is a
// single left-to-right pass; substituted text is never rescanned.
package expand

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Special variable names
const (
	VarPlatform  = "PLATFORM"
	VarOS        = "OS"
	VarArch      = "ARCH"
	VarCC        = "CC"
	VarProfile   = "PROFILE"
	VarTestDir   = "TESTDIR"
	VarConfigDir = "CONFIGDIR"
)

// Expander substitutes ${...} placeholders
type Expander struct {
	lookupEnv func(string) (string, bool)
	deferred  map[string]bool
}

// Option configures an Expander
type Option func(*Expander)

// WithLookup replaces the environment lookup (os.LookupEnv by default)
func WithLookup(fn func(string) (string, bool)) Option {
	return func(e *Expander) {
		e.lookupEnv = fn
	}
}

// WithDeferred leaves the named placeholders untouched when they are not in
// the special variable map, so a later pass can resolve them.
func WithDeferred(names ...string) Option {
	return func(e *Expander) {
		for _, name := range names {
			e.deferred[name] = true
		}
	}
}

// New creates an Expander
func New(opts ...Option) *Expander {
	e := &Expander{
		lookupEnv: os.LookupEnv,
		deferred:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand resolves every placeholder in template. Globs are evaluated relative
// to baseDir.
func (e *Expander) Expand(template, baseDir string, special map[string]string) string {
	return scan(template, func(content string) string {
		return e.resolve(content, baseDir, special)
	})
}

// ExpandAll expands each value. A glob matching several files yields one
// element per match with the surrounding text repeated, so compiler flags and
// library lists stay one argument per path. The returned slice is always a
// new slice.
func (e *Expander) ExpandAll(values []string, baseDir string, special map[string]string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, e.expandList(v, baseDir, special)...)
	}
	return out
}

func (e *Expander) expandList(template, baseDir string, special map[string]string) []string {
	out := []string{""}
	rest := template
	for {
		start := strings.Index(rest, "${")
		end := -1
		if start >= 0 {
			end = closingBrace(rest, start+2)
		}
		if end < 0 {
			for i := range out {
				out[i] += rest
			}
			return out
		}
		values := e.resolveAll(rest[start+2:end], baseDir, special)
		next := make([]string, 0, len(out)*len(values))
		for _, prefix := range out {
			for _, v := range values {
				next = append(next, prefix+rest[:start]+v)
			}
		}
		out = next
		rest = rest[end+1:]
	}
}

// SpecialOnly substitutes placeholders whose name is an exact key of special
// and leaves everything else as written.
func SpecialOnly(template string, special map[string]string) string {
	return scan(template, func(content string) string {
		if v, ok := special[content]; ok {
			return v
		}
		return "${" + content + "}"
	})
}

// resolve joins multiple glob matches with spaces for scalar values
func (e *Expander) resolve(content, baseDir string, special map[string]string) string {
	return strings.Join(e.resolveAll(content, baseDir, special), " ")
}

func (e *Expander) resolveAll(content, baseDir string, special map[string]string) []string {
	if v, ok := special[content]; ok {
		return []string{v}
	}
	if e.deferred[content] {
		return []string{"${" + content + "}"}
	}
	if isIdentifier(content) {
		if v, ok := e.lookupEnv(content); ok {
			return []string{v}
		}
	}

	if matches := glob(content, baseDir); len(matches) > 0 {
		return matches
	}
	// Unknown variable names stay visible so the user can spot them
	if isIdentifier(content) {
		return []string{"${" + content + "}"}
	}
	return []string{content}
}

// scan walks template and replaces each ${...} with fn(content).
// Braces nest so glob alternations like ${*.{c,h}} stay in one placeholder.
func scan(template string, fn func(string) string) string {
	if template == "" || !strings.Contains(template, "${") {
		return template
	}

	var b strings.Builder
	rest := template
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := closingBrace(rest, start+2)
		if end < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:start])
		b.WriteString(fn(rest[start+2 : end]))
		rest = rest[end+1:]
	}
	return b.String()
}

func closingBrace(s string, from int) int {
	depth := 0
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

func glob(pattern, baseDir string) []string {
	if pattern == "" {
		return nil
	}
	if !filepath.IsAbs(pattern) {
		if baseDir == "" {
			baseDir = "."
		}
		pattern = filepath.Join(baseDir, pattern)
	}
	if abs, err := filepath.Abs(pattern); err == nil {
		pattern = abs
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
