package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"testme/internal/config"
	"testme/internal/domain"
)

func createFiles(t *testing.T, root string, files []string) {
	t.Helper()
	for _, file := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(file))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", file, err)
		}
		if err := os.WriteFile(fullPath, []byte("test"), 0644); err != nil {
			t.Fatalf("failed to create file %s: %v", file, err)
		}
	}
}

func TestScanner_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	createFiles(t, tmpDir, []string{
		"unit/math.tst.c",
		"unit/strings.tst.py",
		"integration/api.tst.sh",
		"integration/notes.txt",
		"integration/readme.tst.md",
		"node_modules/pkg/dep.tst.js",
		".hidden/secret.tst.sh",
		"build/gen.tst.c",
		"unit/.testme/math.tst/copy.tst.c",
		"helper.c",
	})

	scanner := NewScanner(config.DefaultPathsToIgnore)

	t.Run("finds test files and prunes ignored directories", func(t *testing.T) {
		results, warnings := scanner.Discover(tmpDir, config.DefaultInclude, nil)
		if len(warnings) != 0 {
			t.Fatalf("unexpected warnings: %v", warnings)
		}

		var rel []string
		for _, r := range results {
			rel = append(rel, r.RelPath)
		}
		expected := []string{"integration/api.tst.sh", "unit/math.tst.c", "unit/strings.tst.py"}
		if len(rel) != len(expected) {
			t.Fatalf("expected %v, got %v", expected, rel)
		}
		for i := range expected {
			if rel[i] != expected[i] {
				t.Errorf("expected %s at %d, got %s", expected[i], i, rel[i])
			}
		}
	})

	t.Run("exclude overrides include", func(t *testing.T) {
		results, _ := scanner.Discover(tmpDir, []string{"**/*.tst.*"}, []string{"unit/**"})
		for _, r := range results {
			if r.RelPath == "unit/math.tst.c" || r.RelPath == "unit/strings.tst.py" {
				t.Errorf("excluded file %s was returned", r.RelPath)
			}
		}
		if len(results) != 1 {
			t.Errorf("expected 1 result, got %d", len(results))
		}
	})

	t.Run("unknown extensions are dropped", func(t *testing.T) {
		results, _ := scanner.Discover(tmpDir, []string{"**/*"}, nil)
		for _, r := range results {
			if r.Name == "readme.tst.md" || r.Name == "notes.txt" {
				t.Errorf("unexpected file %s", r.Name)
			}
		}
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		_, warnings := scanner.Discover("/non/existent/path", config.DefaultInclude, nil)
		if len(warnings) == 0 {
			t.Error("expected error for non-existent directory")
		}
	})

	t.Run("returns error for file instead of directory", func(t *testing.T) {
		_, warnings := scanner.Discover(filepath.Join(tmpDir, "helper.c"), config.DefaultInclude, nil)
		if len(warnings) == 0 {
			t.Error("expected error for file path")
		}
	})

	t.Run("rejects invalid patterns", func(t *testing.T) {
		_, warnings := scanner.Discover(tmpDir, []string{"[unclosed"}, nil)
		if len(warnings) == 0 {
			t.Error("expected error for invalid pattern")
		}
	})
}

func TestScanner_ExtensionRoundTrip(t *testing.T) {
	expected := map[string]domain.TestType{
		"c":   domain.TypeC,
		"js":  domain.TypeJavaScript,
		"ts":  domain.TypeTypeScript,
		"sh":  domain.TypeShell,
		"ps1": domain.TypePowerShell,
		"bat": domain.TypeBatch,
		"cmd": domain.TypeBatch,
		"py":  domain.TypePython,
		"go":  domain.TypeGo,
		"es":  domain.TypeEjs,
	}

	scanner := NewScanner(config.DefaultPathsToIgnore)
	for ext, testType := range expected {
		t.Run(ext, func(t *testing.T) {
			tmpDir := t.TempDir()
			createFiles(t, tmpDir, []string{"x.tst." + ext})

			results, warnings := scanner.Discover(tmpDir, []string{"**/*.tst." + ext}, nil)
			if len(warnings) != 0 {
				t.Fatalf("unexpected warnings: %v", warnings)
			}
			if len(results) != 1 {
				t.Fatalf("expected exactly 1 result, got %d", len(results))
			}
			r := results[0]
			if r.Type != testType {
				t.Errorf("expected type %s, got %s", testType, r.Type)
			}
			if want := filepath.Join(tmpDir, ".testme", "x.tst"); r.ArtifactDir != want {
				t.Errorf("expected artifact dir %s, got %s", want, r.ArtifactDir)
			}
		})
	}
}

func TestScanner_UnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	tmpDir := t.TempDir()
	createFiles(t, tmpDir, []string{"ok/a.tst.sh", "locked/b.tst.sh"})
	locked := filepath.Join(tmpDir, "locked")
	if err := os.Chmod(locked, 0); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	defer os.Chmod(locked, 0755)

	results, warnings := NewScanner(nil).Discover(tmpDir, config.DefaultInclude, nil)
	if len(results) != 1 || results[0].Name != "a.tst.sh" {
		t.Errorf("expected only a.tst.sh, got %v", results)
	}
	if len(warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", warnings)
	}
}
