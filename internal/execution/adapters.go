package execution

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"testme/internal/domain"
	"testme/internal/platform"
	"testme/internal/process"
)

// LookPathFunc finds an executable on PATH
type LookPathFunc func(string) (string, error)

// interpreterAdapter runs a test file with the first interpreter found on PATH
type interpreterAdapter struct {
	tool       string
	candidates [][]string
	hint       string
	lookPath   LookPathFunc
	// extraArgs adds arguments between the interpreter and the file
	extraArgs func(job *Job) []string
}

func (a *interpreterAdapter) Prepare(ctx context.Context, job *Job) error {
	for _, candidate := range a.candidates {
		path, err := a.lookPath(candidate[0])
		if err != nil {
			continue
		}
		argv := append([]string{path}, candidate[1:]...)
		if a.extraArgs != nil {
			argv = append(argv, a.extraArgs(job)...)
		}
		job.argv = append(argv, job.File.Path)
		return nil
	}
	return &ToolchainError{Tool: a.tool, Hint: a.hint}
}

func (a *interpreterAdapter) Execute(ctx context.Context, job *Job) domain.TestResult {
	return execute(ctx, job, process.Command{
		Name: job.argv[0],
		Args: job.argv[1:],
		Dir:  job.File.Dir,
		Env:  job.Env,
	})
}

func (a *interpreterAdapter) Cleanup(job *Job) error {
	return removeArtifacts(job.File)
}

// removeArtifacts deletes the test's own artifact directory. The shared
// artifact root is left to pruneArtifactRoots, since sibling tests may be
// creating their directories under it.
func removeArtifacts(file domain.TestFile) error {
	if file.ArtifactDir == "" {
		return nil
	}
	return os.RemoveAll(file.ArtifactDir)
}

// DefaultAdapters returns the adapter for every test type on p
func DefaultAdapters(p platform.Platform, lookPath LookPathFunc) map[domain.TestType]Adapter {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	interp := func(tool, hint string, candidates ...[]string) *interpreterAdapter {
		return &interpreterAdapter{tool: tool, candidates: candidates, hint: hint, lookPath: lookPath}
	}

	python := interp("python", "install Python 3 from https://www.python.org/downloads/",
		[]string{"python3"}, []string{"python"})
	if p == platform.Windows {
		python.candidates = [][]string{{"python"}, {"py", "-3"}, {"python3"}}
	}

	ejs := interp("ejs", "install Ejscript from https://www.embedthis.com/ejscript/", []string{"ejs"})
	ejs.extraArgs = func(job *Job) []string {
		if job.Config == nil || len(job.Config.Compiler.Es.Require) == 0 {
			return nil
		}
		return []string{"--require", strings.Join(job.Config.Compiler.Es.Require, " ")}
	}

	return map[domain.TestType]Adapter{
		domain.TypeShell: interp("bash", platform.Select(p,
			"install Git for Windows or WSL to run shell tests",
			"bash ships with macOS; check your PATH",
			"install bash with your package manager"),
			[]string{"bash"}, []string{"sh"}),
		domain.TypePowerShell: interp("pwsh", "install PowerShell from https://aka.ms/powershell",
			[]string{"pwsh", "-NoProfile", "-File"},
			[]string{"powershell", "-NoProfile", "-ExecutionPolicy", "Bypass", "-File"}),
		domain.TypeBatch: interp("cmd", "batch tests run on Windows only",
			[]string{"cmd", "/c"}),
		domain.TypePython: python,
		domain.TypeJavaScript: interp("bun", "install Bun from https://bun.sh or Node.js from https://nodejs.org",
			[]string{"bun"}, []string{"node"}),
		domain.TypeTypeScript: interp("bun", "install Bun from https://bun.sh",
			[]string{"bun"}),
		domain.TypeGo: interp("go", "install Go from https://go.dev/dl/",
			[]string{"go", "run"}),
		domain.TypeEjs: ejs,
		domain.TypeC:   NewCAdapter(p, lookPath),
	}
}
