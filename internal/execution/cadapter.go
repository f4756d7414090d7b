package execution

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"testme/internal/domain"
	"testme/internal/platform"
	"testme/internal/process"
)

const (
	// CompileLogName is written to the artifact directory of every C test
	CompileLogName = "compile.log"
	// HeaderName is the assertion header C tests include
	HeaderName = "testme.h"
)

//go:embed include/testme.h
var bundledHeader []byte

// CAdapter compiles a C test into its artifact directory and runs the binary
type CAdapter struct {
	platform platform.Platform
	lookPath LookPathFunc
}

// NewCAdapter creates a CAdapter for p
func NewCAdapter(p platform.Platform, lookPath LookPathFunc) *CAdapter {
	return &CAdapter{platform: p, lookPath: lookPath}
}

func (a *CAdapter) hint() string {
	return platform.Select(a.platform,
		"install Visual Studio Build Tools and run from a Developer Command Prompt, or install clang",
		"run xcode-select --install",
		"install gcc or clang, e.g. apt install build-essential")
}

// Prepare compiles the test. A compiler that exits non-zero yields a
// *CompileError; a compiler that is missing yields a *ToolchainError.
func (a *CAdapter) Prepare(ctx context.Context, job *Job) error {
	compiler := ""
	if job.Config != nil {
		compiler = job.Config.Compiler.C.Compiler
	}
	if compiler == "" {
		return &ToolchainError{Tool: "C compiler", Hint: a.hint()}
	}
	path, err := a.lookPath(platform.CompilerBinary(compiler))
	if err != nil {
		return &ToolchainError{Tool: compiler, Hint: a.hint()}
	}

	if err := os.MkdirAll(job.File.ArtifactDir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(job.File.ArtifactDir, HeaderName), bundledHeader, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", HeaderName, err)
	}
	binary := filepath.Join(job.File.ArtifactDir, job.File.Stem())
	if a.platform == platform.Windows {
		binary += ".exe"
	}

	args := a.compileArgs(compiler, job, binary)
	res := process.Run(ctx, process.Command{
		Name: path,
		Args: args,
		Dir:  job.File.ArtifactDir,
		Env:  job.Env,
	}, job.Timeout)

	logPath := filepath.Join(job.File.ArtifactDir, CompileLogName)
	log := fmt.Sprintf("%s %s\n\n%s", path, strings.Join(args, " "), res.Output)
	if err := os.WriteFile(logPath, []byte(log), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", CompileLogName, err)
	}

	switch {
	case res.Err != nil:
		return fmt.Errorf("running %s: %w", compiler, res.Err)
	case res.TimedOut:
		return &CompileError{Log: logPath, Output: appendLine(res.Output, fmt.Sprintf("compilation timed out after %s", job.Timeout))}
	case res.ExitCode != 0:
		return &CompileError{Log: logPath, Output: res.Output}
	}
	job.argv = []string{binary}
	return nil
}

func (a *CAdapter) compileArgs(compiler string, job *Job, binary string) []string {
	var flags, libraries []string
	configDir := ""
	if job.Config != nil {
		flags = job.Config.Compiler.C.Flags
		libraries = job.Config.Compiler.C.Libraries
		configDir = job.Config.ConfigDir
	}
	// the bundled header comes last so a project's own testme.h wins
	includes := append(includeDirs(configDir, job.File.Dir), job.File.ArtifactDir)

	if compiler == platform.MSVC {
		args := []string{"/nologo"}
		if job.Debug {
			args = append(args, "/Zi", "/Od")
		}
		args = append(args, flags...)
		for _, dir := range includes {
			args = append(args, "/I"+dir)
		}
		args = append(args, job.File.Path, "/Fe:"+binary, "/Fo:"+job.File.ArtifactDir+string(filepath.Separator))
		if len(libraries) > 0 {
			args = append(args, "/link")
			for _, lib := range libraries {
				lib = strings.TrimPrefix(lib, "-l")
				if filepath.Ext(lib) == "" {
					lib += ".lib"
				}
				args = append(args, lib)
			}
		}
		return args
	}

	var args []string
	if job.Debug {
		args = append(args, "-g", "-O0")
	}
	args = append(args, flags...)
	for _, dir := range includes {
		args = append(args, "-I", dir)
	}
	args = append(args, "-o", binary, job.File.Path)
	for _, lib := range libraries {
		if !strings.HasPrefix(lib, "-") && !isLibraryPath(lib) {
			lib = "-l" + lib
		}
		args = append(args, lib)
	}
	return args
}

// isLibraryPath reports whether lib names an archive or shared object file
// rather than a library to look up with -l
func isLibraryPath(lib string) bool {
	return filepath.IsAbs(lib) || strings.ContainsAny(lib, `/\`)
}

// includeDirs returns the config directory, the test directory, the nearest
// ancestor holding testme.h and $TESTME_HOME/include, without duplicates.
func includeDirs(configDir, testDir string) []string {
	var dirs []string
	add := func(dir string) {
		if dir == "" {
			return
		}
		for _, d := range dirs {
			if d == dir {
				return
			}
		}
		dirs = append(dirs, dir)
	}
	add(configDir)
	add(testDir)
	add(headerDir(testDir))
	if home := os.Getenv("TESTME_HOME"); home != "" {
		add(filepath.Join(home, "include"))
	}
	return dirs
}

func headerDir(dir string) string {
	for {
		if info, err := os.Stat(filepath.Join(dir, HeaderName)); err == nil && !info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func (a *CAdapter) Execute(ctx context.Context, job *Job) domain.TestResult {
	return execute(ctx, job, process.Command{
		Name: job.argv[0],
		Dir:  job.File.Dir,
		Env:  job.Env,
	})
}

func (a *CAdapter) Cleanup(job *Job) error {
	return removeArtifacts(job.File)
}
