package config

import "time"

const (
	// DefaultRootPath is the directory discovery starts from
	DefaultRootPath = "."
	// DefaultProfile is the build profile when none is configured
	DefaultProfile = "dev"
	// DefaultTimeout is the per-test timeout
	DefaultTimeout = 30 * time.Second
	// DefaultIterations is how many times each test runs
	DefaultIterations = 1
	// DefaultFormat is the report format
	DefaultFormat = "simple"
	// DefaultScriptTimeout bounds each service script
	DefaultScriptTimeout = 30 * time.Second
	// DefaultSetupDelay is slept after setup when no health check is configured
	DefaultSetupDelay = time.Second
	// DefaultShutdownTimeout is the grace period before a setup process is killed
	DefaultShutdownTimeout = 5 * time.Second
	// DefaultHealthInterval is the health check poll interval
	DefaultHealthInterval = 100 * time.Millisecond
	// DefaultHealthTimeout is how long a health check may take to succeed
	DefaultHealthTimeout = 30 * time.Second
	// DefaultExpectedStatus is the HTTP status a health check expects
	DefaultExpectedStatus = 200
)

// ConfigFileNames are looked for in each directory, in order
var ConfigFileNames = []string{"testme.json5", "testme.json"}

// ArtifactDirName is the per-directory scratch directory for test artifacts
const ArtifactDirName = ".testme"

// DefaultInclude matches every supported test file type
var DefaultInclude = []string{
	"**/*.tst.sh",
	"**/*.tst.ps1",
	"**/*.tst.bat",
	"**/*.tst.cmd",
	"**/*.tst.c",
	"**/*.tst.js",
	"**/*.tst.ts",
	"**/*.tst.py",
	"**/*.tst.go",
	"**/*.tst.es",
}

// DefaultPathsToIgnore are directory names never descended into
var DefaultPathsToIgnore = []string{
	"node_modules",
	".git",
	".svn",
	".hg",
	"__pycache__",
	".pytest_cache",
	"coverage",
	"dist",
	"build",
	ArtifactDirName,
}
