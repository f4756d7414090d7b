package platform

import (
	"os/exec"
	"runtime"
)

// Platform identifies the operating system family a run targets
type Platform int

const (
	Linux Platform = iota
	MacOS
	Windows
)

// Current returns the platform of the running process
func Current() Platform {
	return FromGOOS(runtime.GOOS)
}

// FromGOOS maps a GOOS value to a Platform. Unknown systems are treated as Linux.
func FromGOOS(goos string) Platform {
	switch goos {
	case "windows":
		return Windows
	case "darwin":
		return MacOS
	default:
		return Linux
	}
}

// String returns the config section name for the platform
func (p Platform) String() string {
	switch p {
	case Windows:
		return "windows"
	case MacOS:
		return "macosx"
	default:
		return "linux"
	}
}

// Select picks the value that belongs to p
func Select[T any](p Platform, windows, macos, linux T) T {
	switch p {
	case Windows:
		return windows
	case MacOS:
		return macos
	default:
		return linux
	}
}

// Arch returns the architecture name used in ${ARCH} and TESTME_ARCH
func Arch() string {
	return archName(runtime.GOARCH)
}

func archName(goarch string) string {
	switch goarch {
	case "amd64":
		return "x64"
	case "386":
		return "x86"
	default:
		return goarch
	}
}

// Name returns the ${PLATFORM} value, e.g. "linux-x64"
func (p Platform) Name() string {
	return p.String() + "-" + Arch()
}

// Compiler type names
const (
	GCC   = "gcc"
	Clang = "clang"
	MSVC  = "msvc"
)

// CompilerBinary returns the executable name for a compiler type
func CompilerBinary(compiler string) string {
	if compiler == MSVC {
		return "cl"
	}
	return compiler
}

// DetectCompiler returns the first C compiler type found on PATH in the
// platform's preference order, or an empty string when none is installed.
func DetectCompiler(p Platform, lookPath func(string) (string, error)) string {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	order := Select(p,
		[]string{MSVC, Clang, GCC},
		[]string{Clang, GCC},
		[]string{GCC, Clang},
	)
	for _, compiler := range order {
		if _, err := lookPath(CompilerBinary(compiler)); err == nil {
			return compiler
		}
	}
	return ""
}
