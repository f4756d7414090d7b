package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"

	"testme/internal/platform"
	"testme/internal/process"
)

// shellOperators force a command line through the system shell, which also
// expands $VAR references
const shellOperators = "|&;<>`$"

// interpreters maps script extensions to the program that runs them
var interpreters = map[string][]string{
	".sh":  {"sh"},
	".ps1": {"pwsh", "-NoProfile", "-File"},
	".bat": {"cmd", "/c"},
	".cmd": {"cmd", "/c"},
	".js":  {"bun"},
	".ts":  {"bun"},
	".py":  {"python3"},
	".es":  {"ejs"},
}

// BuildCommand turns a configured script line into a process command. The
// line is split with shell quoting rules; a relative program path that exists
// under dir is resolved against it, and known script extensions run through
// their interpreter. dir is also the working directory.
func BuildCommand(line, dir string, env []string) (process.Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return process.Command{}, fmt.Errorf("empty command")
	}
	if strings.ContainsAny(line, shellOperators) {
		return shellCommand(line, dir, env), nil
	}

	words, err := shellquote.Split(line)
	if err != nil {
		return process.Command{}, fmt.Errorf("parse command %q: %w", line, err)
	}
	if len(words) == 0 {
		return process.Command{}, fmt.Errorf("empty command")
	}

	program := words[0]
	if !filepath.IsAbs(program) && dir != "" {
		if candidate := filepath.Join(dir, program); isFile(candidate) {
			program = candidate
		}
	}

	argv := append([]string{program}, words[1:]...)
	if interp, ok := interpreterFor(program); ok {
		argv = append(append([]string{}, interp...), argv...)
	}
	return process.Command{
		Name: argv[0],
		Args: argv[1:],
		Dir:  dir,
		Env:  env,
	}, nil
}

func interpreterFor(program string) ([]string, bool) {
	ext := strings.ToLower(filepath.Ext(program))
	interp, ok := interpreters[ext]
	if !ok {
		return nil, false
	}
	if ext == ".py" && platform.Current() == platform.Windows {
		return []string{"python"}, true
	}
	return interp, true
}

func shellCommand(line, dir string, env []string) process.Command {
	if platform.Current() == platform.Windows {
		return process.Command{Name: "cmd", Args: []string{"/c", line}, Dir: dir, Env: env}
	}
	return process.Command{Name: "sh", Args: []string{"-c", line}, Dir: dir, Env: env}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
