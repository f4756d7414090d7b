package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// TestType is the language of a test file, derived from its extension
type TestType int

const (
	TypeUnknown TestType = iota
	TypeShell
	TypePowerShell
	TypeBatch
	TypeC
	TypeJavaScript
	TypeTypeScript
	TypePython
	TypeGo
	TypeEjs
)

var typeNames = map[TestType]string{
	TypeUnknown:    "unknown",
	TypeShell:      "shell",
	TypePowerShell: "powershell",
	TypeBatch:      "batch",
	TypeC:          "c",
	TypeJavaScript: "javascript",
	TypeTypeScript: "typescript",
	TypePython:     "python",
	TypeGo:         "go",
	TypeEjs:        "ejscript",
}

var extensionTypes = map[string]TestType{
	".sh":  TypeShell,
	".ps1": TypePowerShell,
	".bat": TypeBatch,
	".cmd": TypeBatch,
	".c":   TypeC,
	".js":  TypeJavaScript,
	".ts":  TypeTypeScript,
	".py":  TypePython,
	".go":  TypeGo,
	".es":  TypeEjs,
}

func (t TestType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TestType(%d)", int(t))
}

func (t TestType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TestType) UnmarshalText(text []byte) error {
	for candidate, name := range typeNames {
		if name == string(text) {
			*t = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown test type %q", text)
}

// TypeForExt maps a final file extension (with the dot) to a test type
func TypeForExt(ext string) (TestType, bool) {
	t, ok := extensionTypes[strings.ToLower(ext)]
	return t, ok
}

// Extensions returns every recognized test file extension
func Extensions() []string {
	exts := make([]string, 0, len(extensionTypes))
	for ext := range extensionTypes {
		exts = append(exts, ext)
	}
	return exts
}

// TestFile is one discovered test. It is not modified after discovery.
type TestFile struct {
	Path        string   `json:"path" yaml:"path"`
	Name        string   `json:"name" yaml:"name"`
	Ext         string   `json:"ext" yaml:"ext"`
	Type        TestType `json:"type" yaml:"type"`
	Dir         string   `json:"dir" yaml:"dir"`
	ArtifactDir string   `json:"artifactDir" yaml:"artifactDir"`
	RelPath     string   `json:"relPath" yaml:"relPath"`
	IsManual    bool     `json:"manual,omitempty" yaml:"manual,omitempty"`
	ConfigDir   string   `json:"configDir,omitempty" yaml:"configDir,omitempty"`
}

// NewTestFile builds the record for path, relative to root. artifactDirName is
// the per-directory scratch directory name.
func NewTestFile(root, path string, t TestType, artifactDirName string) TestFile {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	dir := filepath.Dir(path)
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return TestFile{
		Path:        path,
		Name:        name,
		Ext:         ext,
		Type:        t,
		Dir:         dir,
		ArtifactDir: filepath.Join(dir, artifactDirName, strings.TrimSuffix(name, ext)),
		RelPath:     filepath.ToSlash(rel),
	}
}

// BaseName is the file name without its final extension
func (f TestFile) BaseName() string {
	return strings.TrimSuffix(f.Name, f.Ext)
}

// Stem is the file name without any extension (x.tst.c -> x)
func (f TestFile) Stem() string {
	name := f.Name
	if i := strings.IndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}

// TestCase is a single test function found inside a test file
type TestCase struct {
	Name     string // Test function name
	FilePath string // Path to the test file containing this case
}
