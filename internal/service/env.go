package service

import (
	"bufio"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"testme/internal/config"
	"testme/internal/expand"
	"testme/internal/platform"
)

// RunInfo holds the invocation-wide values exported to scripts and tests
type RunInfo struct {
	RunID      string
	Platform   platform.Platform
	Verbose    bool
	Quiet      bool
	Keep       bool
	Depth      int
	Iterations int
	Duration   string
	Class      string
}

// Vars returns the TESTME_* variables for a config group. testDir is the
// directory of the test, or the config directory for lifecycle scripts.
func (r RunInfo) Vars(cfg *config.Resolved, testDir string) map[string]string {
	iterations := r.Iterations
	keep := r.Keep
	cc, profile, configDir := "", "", ""
	if cfg != nil {
		if cfg.Execution.Iterations > 0 {
			iterations = cfg.Execution.Iterations
		}
		keep = keep || cfg.Execution.KeepArtifacts
		cc = cfg.Compiler.C.Compiler
		profile = cfg.Profile
		configDir = cfg.ConfigDir
	}
	if testDir == "" {
		testDir = configDir
	}
	return map[string]string{
		"TESTME_PLATFORM":   r.Platform.Name(),
		"TESTME_OS":         r.Platform.String(),
		"TESTME_ARCH":       platform.Arch(),
		"TESTME_CC":         cc,
		"TESTME_PROFILE":    profile,
		"TESTME_DEPTH":      strconv.Itoa(r.Depth),
		"TESTME_VERBOSE":    flag(r.Verbose),
		"TESTME_QUIET":      flag(r.Quiet),
		"TESTME_ITERATIONS": strconv.Itoa(iterations),
		"TESTME_DURATION":   r.Duration,
		"TESTME_CLASS":      r.Class,
		"TESTME_TESTDIR":    testDir,
		"TESTME_CONFIGDIR":  configDir,
		"TESTME_KEEP":       flag(keep),
		"TESTME_RUN_ID":     r.RunID,
	}
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseEnvOutput reads KEY=VALUE lines. The first '=' splits the pair and
// the value is kept verbatim, so quotes, '#' and surrounding spaces belong to
// it. A leading "export " before the key is accepted. Blank lines, comment
// lines and lines without '=' are ignored.
func ParseEnvOutput(output string) map[string]string {
	vars := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if trimmed := strings.TrimSpace(line); trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(key), "export "))
		if !ok || key == "" {
			continue
		}
		vars[key] = value
	}
	return vars
}

// LoadEnvFile reads a dotenv file. ${CONFIGDIR} and ${TESTDIR} are replaced
// with configDir before parsing.
func LoadEnvFile(path, configDir string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	special := map[string]string{
		expand.VarConfigDir: configDir,
		expand.VarTestDir:   configDir,
	}
	vars, err := godotenv.Unmarshal(expand.SpecialOnly(string(data), special))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vars, nil
}

// Environ overlays layers, lowest precedence first, onto base and returns a
// sorted KEY=VALUE list with one entry per key.
func Environ(base []string, layers ...map[string]string) []string {
	merged := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			merged[k] = v
		}
	}
	for _, layer := range layers {
		maps.Copy(merged, layer)
	}

	out := make([]string, 0, len(merged))
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		out = append(out, k+"="+merged[k])
	}
	return out
}

// baseEnviron is the process environment scripts and tests start from
var baseEnviron = os.Environ
