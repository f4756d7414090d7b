//go:build !windows

package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCommand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"start.sh", "seed.py", "serve.js", "prep.ps1", "server"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(""), 0o755))
	}

	tests := []struct {
		name     string
		line     string
		wantName string
		wantArgs []string
	}{
		{"shell script", "start.sh --port 80", "sh", []string{filepath.Join(dir, "start.sh"), "--port", "80"}},
		{"python", "seed.py", "python3", []string{filepath.Join(dir, "seed.py")}},
		{"bun", "serve.js", "bun", []string{filepath.Join(dir, "serve.js")}},
		{"powershell", "prep.ps1", "pwsh", []string{"-NoProfile", "-File", filepath.Join(dir, "prep.ps1")}},
		{"binary in config dir", "server -v", filepath.Join(dir, "server"), []string{"-v"}},
		{"program on path", "make prep", "make", []string{"prep"}},
		{"quoted arguments", `echo "a b" 'c'`, "echo", []string{"a b", "c"}},
		{"shell operators", "make && make test", "sh", []string{"-c", "make && make test"}},
		{"variables", "server --port $PORT", "sh", []string{"-c", "server --port $PORT"}},
		{"missing script keeps name", "other.sh", "sh", []string{"other.sh"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := BuildCommand(tt.line, dir, []string{"A=1"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, cmd.Name)
			assert.Equal(t, tt.wantArgs, cmd.Args)
			assert.Equal(t, dir, cmd.Dir)
			assert.Equal(t, []string{"A=1"}, cmd.Env)
		})
	}
}

func TestBuildCommand_Errors(t *testing.T) {
	_, err := BuildCommand("   ", t.TempDir(), nil)
	assert.Error(t, err)

	_, err = BuildCommand(`echo "unterminated`, t.TempDir(), nil)
	assert.Error(t, err)
}
