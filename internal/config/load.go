package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/titanous/json5"

	"testme/internal/expand"
	"testme/internal/platform"
)

// ParseError reports a config file that could not be read or understood
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FindConfig walks from dir toward the filesystem root and returns the first
// config file found, or "" when there is none.
func FindConfig(dir string) string {
	dir = filepath.Clean(dir)
	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// FindParentConfig returns the nearest config strictly above configDir
func FindParentConfig(configDir string) string {
	parent := filepath.Dir(filepath.Clean(configDir))
	if parent == filepath.Clean(configDir) {
		return ""
	}
	return FindConfig(parent)
}

// Load reads one config file, blends the platform sections for p into the
// base sections and substitutes directory variables with the file's own
// directory. exp should defer CC and PROFILE, which are only known after the
// inheritance chain is merged.
func Load(path string, p platform.Platform, exp *expand.Expander) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	file, err := Parse(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	file.Path = abs
	file.Dir = filepath.Dir(abs)

	if err := file.blend(p); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	file.substitute(exp, p)
	return file, nil
}

// Parse decodes a JSON5 document into a File without blending or substitution
func Parse(data []byte) (*File, error) {
	var raw any
	if err := json5.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if raw == nil {
		return &File{}, nil
	}
	if _, ok := raw.(map[string]any); !ok {
		return nil, errors.New("parse: top level must be an object")
	}

	// Re-encode as strict JSON so the typed decoders see canonical input
	canonical, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	var file File
	if err := json.Unmarshal(canonical, &file); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	for _, key := range file.Inherit.List() {
		if !slices.Contains(InheritableKeys, key) {
			return nil, fmt.Errorf("inherit: unknown key %q", key)
		}
	}
	return &file, nil
}

func (f *File) blend(p platform.Platform) error {
	if f.Patterns != nil {
		f.Patterns = blendPatterns(f.Patterns, p)
	}
	if f.Compiler != nil && f.Compiler.C != nil {
		c := *f.Compiler.C
		c.GCC = blendFlagSet(c.GCC, p)
		c.Clang = blendFlagSet(c.Clang, p)
		c.MSVC = blendFlagSet(c.MSVC, p)
		compiler := *f.Compiler
		compiler.C = &c
		f.Compiler = &compiler
	}

	env := make(map[string]string)
	// env is the deprecated spelling; environment wins on conflicts
	for _, raw := range []map[string]json.RawMessage{f.RawEnv, f.RawEnvironment} {
		if err := blendEnvironment(env, raw, p); err != nil {
			return err
		}
	}
	if len(env) > 0 {
		f.Environment = env
	}
	return nil
}

func blendPatterns(ps *PatternSection, p platform.Platform) *PatternSection {
	out := &PatternSection{
		Include: slices.Clone(ps.Include),
		Exclude: slices.Clone(ps.Exclude),
	}
	if extra := platform.Select(p, ps.Windows, ps.MacOS, ps.Linux); extra != nil {
		out.Include = append(out.Include, extra.Include...)
		out.Exclude = append(out.Exclude, extra.Exclude...)
	}
	return out
}

func blendFlagSet(fs *FlagSet, p platform.Platform) *FlagSet {
	if fs == nil {
		return nil
	}
	out := &FlagSet{
		Flags:     slices.Clone(fs.Flags),
		Libraries: slices.Clone(fs.Libraries),
	}
	if extra := platform.Select(p, fs.Windows, fs.MacOS, fs.Linux); extra != nil {
		out.Flags = append(out.Flags, extra.Flags...)
		out.Libraries = append(out.Libraries, extra.Libraries...)
	}
	return out
}

func isPlatformKey(key string) bool {
	return key == platform.Windows.String() || key == platform.MacOS.String() || key == platform.Linux.String()
}

// blendEnvironment flattens an environment section into env. Values may be
// scalars or {default, windows, macosx, linux} objects; a top-level
// "windows"/"macosx"/"linux" (or "default") object holds variables for that
// platform only and overrides the base variables.
func blendEnvironment(env map[string]string, raw map[string]json.RawMessage, p platform.Platform) error {
	if len(raw) == 0 {
		return nil
	}
	overrides := make(map[string]string)
	for key, value := range raw {
		if isPlatformKey(key) || key == "default" {
			var vars map[string]json.RawMessage
			if err := json.Unmarshal(value, &vars); err == nil && !isPlatformValue(vars) {
				target := env
				if key != "default" {
					if key != p.String() {
						continue
					}
					target = overrides
				}
				for name, v := range vars {
					s, ok, err := envValue(v, p)
					if err != nil {
						return fmt.Errorf("environment %s.%s: %w", key, name, err)
					}
					if ok {
						target[name] = s
					}
				}
				continue
			}
		}
		s, ok, err := envValue(value, p)
		if err != nil {
			return fmt.Errorf("environment %s: %w", key, err)
		}
		if ok {
			env[key] = s
		}
	}
	for k, v := range overrides {
		env[k] = v
	}
	return nil
}

// isPlatformValue reports whether an object is a per-platform value rather than a variable map
func isPlatformValue(obj map[string]json.RawMessage) bool {
	if len(obj) == 0 {
		return false
	}
	for key, value := range obj {
		if key != "default" && !isPlatformKey(key) {
			return false
		}
		if len(value) > 0 && value[0] == '{' {
			return false
		}
	}
	return true
}

func envValue(raw json.RawMessage, p platform.Platform) (string, bool, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return "", false, nil
	}
	switch text[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case '{':
		var choice map[string]json.RawMessage
		if err := json.Unmarshal(raw, &choice); err != nil {
			return "", false, err
		}
		if v, ok := choice[p.String()]; ok {
			return envValue(v, p)
		}
		if v, ok := choice["default"]; ok {
			return envValue(v, p)
		}
		return "", false, nil
	case '[':
		return "", false, errors.New("arrays are not valid environment values")
	default:
		// numbers and booleans keep their literal spelling
		return text, true, nil
	}
}

func (f *File) substitute(exp *expand.Expander, p platform.Platform) {
	special := map[string]string{
		expand.VarPlatform:  p.Name(),
		expand.VarOS:        p.String(),
		expand.VarArch:      platform.Arch(),
		expand.VarConfigDir: f.Dir,
		expand.VarTestDir:   f.Dir,
	}

	if f.Compiler != nil && f.Compiler.C != nil {
		for _, entry := range []struct {
			fs   *FlagSet
			msvc bool
		}{
			{f.Compiler.C.GCC, false},
			{f.Compiler.C.Clang, false},
			{f.Compiler.C.MSVC, true},
		} {
			if entry.fs == nil {
				continue
			}
			entry.fs.Flags = normalizeFlags(exp.ExpandAll(entry.fs.Flags, f.Dir, special), f.Dir, entry.msvc)
			entry.fs.Libraries = exp.ExpandAll(entry.fs.Libraries, f.Dir, special)
		}
	}
	if f.Compiler != nil && f.Compiler.Es != nil {
		es := *f.Compiler.Es
		es.Require = exp.ExpandAll(es.Require, f.Dir, special)
		compiler := *f.Compiler
		compiler.Es = &es
		f.Compiler = &compiler
	}
	for key, value := range f.Environment {
		f.Environment[key] = exp.Expand(value, f.Dir, special)
	}
	if f.Services != nil {
		f.Services = anchorServices(f.Services, f.Dir, special)
	}
}

// anchorServices makes script paths absolute against dir so inherited
// services keep running the scripts of the config that defined them.
func anchorServices(s *ServiceSection, dir string, special map[string]string) *ServiceSection {
	out := *s
	for _, cmd := range []**string{
		&out.Skip, &out.Environment, &out.GlobalPrep, &out.Prep,
		&out.Setup, &out.Cleanup, &out.GlobalCleanup,
	} {
		if *cmd != nil {
			anchored := anchorCommand(expand.SpecialOnly(**cmd, special), dir)
			*cmd = &anchored
		}
	}
	if out.EnvFile != nil {
		path := absolutize(expand.SpecialOnly(*out.EnvFile, special), dir)
		out.EnvFile = &path
	}
	if s.HealthCheck != nil {
		hc := *s.HealthCheck
		if hc.Path != nil {
			path := absolutize(expand.SpecialOnly(*hc.Path, special), dir)
			hc.Path = &path
		}
		if hc.Command != nil {
			command := anchorCommand(expand.SpecialOnly(*hc.Command, special), dir)
			hc.Command = &command
		}
		out.HealthCheck = &hc
	}
	return &out
}

// anchorCommand rewrites a relative program path that exists under dir
func anchorCommand(command, dir string) string {
	words, err := shellquote.Split(command)
	if err != nil || len(words) == 0 {
		return command
	}
	program := words[0]
	if filepath.IsAbs(program) {
		return command
	}
	candidate := filepath.Join(dir, program)
	if _, err := os.Stat(candidate); err != nil {
		return command
	}
	// only the program word is rewritten, the arguments stay as written so
	// shell variables and operators still reach the shell
	rest := strings.TrimLeft(command, " \t")
	end := strings.IndexAny(rest, " \t")
	if end < 0 {
		end = len(rest)
	}
	if rest[:end] != program {
		return command
	}
	return shellquote.Join(candidate) + rest[end:]
}

// normalizeFlags anchors relative include and library search paths at dir,
// since compilers run from the test's artifact directory.
func normalizeFlags(flags []string, dir string, msvc bool) []string {
	prefixes := []string{"-I", "-L"}
	if msvc {
		prefixes = append(prefixes, "/I", "/LIBPATH:")
	}

	out := make([]string, 0, len(flags))
	for i := 0; i < len(flags); i++ {
		flag := flags[i]
		if slices.Contains(prefixes, flag) && i+1 < len(flags) {
			out = append(out, flag, absolutize(flags[i+1], dir))
			i++
			continue
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(flag, prefix) && len(flag) > len(prefix) {
				flag = prefix + absolutize(flag[len(prefix):], dir)
				break
			}
		}
		out = append(out, flag)
	}
	return out
}

func absolutize(path, dir string) string {
	if path == "" || filepath.IsAbs(path) || strings.ContainsAny(path, "$ ") {
		return path
	}
	return filepath.Join(dir, path)
}
