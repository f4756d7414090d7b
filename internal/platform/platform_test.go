package platform

import (
	"errors"
	"testing"
)

func TestFromGOOS(t *testing.T) {
	tests := []struct {
		goos     string
		expected Platform
		section  string
	}{
		{"linux", Linux, "linux"},
		{"darwin", MacOS, "macosx"},
		{"windows", Windows, "windows"},
		{"freebsd", Linux, "linux"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			p := FromGOOS(tt.goos)
			if p != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, p)
			}
			if p.String() != tt.section {
				t.Errorf("expected section %s, got %s", tt.section, p.String())
			}
		})
	}
}

func TestArchName(t *testing.T) {
	if got := archName("amd64"); got != "x64" {
		t.Errorf("expected x64, got %s", got)
	}
	if got := archName("arm64"); got != "arm64" {
		t.Errorf("expected arm64, got %s", got)
	}
}

func TestDetectCompiler(t *testing.T) {
	only := func(names ...string) func(string) (string, error) {
		return func(name string) (string, error) {
			for _, n := range names {
				if n == name {
					return "/usr/bin/" + name, nil
				}
			}
			return "", errors.New("not found")
		}
	}

	t.Run("linux prefers gcc", func(t *testing.T) {
		if got := DetectCompiler(Linux, only("gcc", "clang")); got != GCC {
			t.Errorf("expected gcc, got %s", got)
		}
	})

	t.Run("macos prefers clang", func(t *testing.T) {
		if got := DetectCompiler(MacOS, only("gcc", "clang")); got != Clang {
			t.Errorf("expected clang, got %s", got)
		}
	})

	t.Run("windows finds cl", func(t *testing.T) {
		if got := DetectCompiler(Windows, only("cl")); got != MSVC {
			t.Errorf("expected msvc, got %s", got)
		}
	})

	t.Run("nothing installed", func(t *testing.T) {
		if got := DetectCompiler(Linux, only()); got != "" {
			t.Errorf("expected empty, got %s", got)
		}
	})
}
