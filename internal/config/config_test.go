package config

import (
	"path/filepath"
	"testing"
)

func TestOptions_GetRootPath(t *testing.T) {
	tests := []struct {
		name     string
		options  *Options
		expected string
	}{
		{
			name:     "absolute root",
			options:  &Options{RootPath: "/project/tests"},
			expected: "/project/tests",
		},
		{
			name:     "root is cleaned",
			options:  &Options{RootPath: "/project/tests/../unit"},
			expected: "/project/unit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.options.GetRootPath()
			if result != filepath.FromSlash(tt.expected) {
				t.Errorf("expected %s, got %s", tt.expected, result)
			}
		})
	}

	t.Run("empty root resolves to cwd", func(t *testing.T) {
		result := (&Options{}).GetRootPath()
		if !filepath.IsAbs(result) {
			t.Errorf("expected absolute path, got %s", result)
		}
	})
}

func TestOptions_GetConfigFile(t *testing.T) {
	t.Run("unset", func(t *testing.T) {
		if got := New().GetConfigFile(); got != "" {
			t.Errorf("expected empty, got %s", got)
		}
	})

	t.Run("relative to root", func(t *testing.T) {
		o := &Options{RootPath: "/project", ConfigFile: "ci/testme.json5"}
		expected := filepath.Join("/project", "ci", "testme.json5")
		if got := o.GetConfigFile(); got != expected {
			t.Errorf("expected %s, got %s", expected, got)
		}
	})

	t.Run("absolute", func(t *testing.T) {
		o := &Options{RootPath: "/project", ConfigFile: "/etc/testme.json5"}
		if got := o.GetConfigFile(); got != "/etc/testme.json5" {
			t.Errorf("expected /etc/testme.json5, got %s", got)
		}
	})
}

func TestNew(t *testing.T) {
	o := New()

	if o.RootPath != DefaultRootPath {
		t.Errorf("expected RootPath %s, got %s", DefaultRootPath, o.RootPath)
	}
	if o.Workers != 0 || o.Iterations != 0 || o.Timeout != 0 {
		t.Error("execution overrides should be unset by default")
	}
}
