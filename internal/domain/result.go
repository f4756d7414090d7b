package domain

import (
	"fmt"
	"time"
)

// Status is the outcome of one test execution
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusPassed
	StatusFailed
	StatusSkipped
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for candidate := StatusPending; candidate <= StatusError; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// TestResult is the result of executing a test file once
type TestResult struct {
	File      TestFile      `json:"file" yaml:"file"`
	Status    Status        `json:"status" yaml:"status"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Output    string        `json:"output,omitempty" yaml:"output,omitempty"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	ExitCode  *int          `json:"exitCode,omitempty" yaml:"exitCode,omitempty"`
	Passed    int           `json:"passed,omitempty" yaml:"passed,omitempty"`
	Failed    int           `json:"failed,omitempty" yaml:"failed,omitempty"`
	Iteration int           `json:"iteration,omitempty" yaml:"iteration,omitempty"`
}

// Success reports whether the test passed
func (r TestResult) Success() bool {
	return r.Status == StatusPassed
}

// GroupState is how far a config group's lifecycle got
type GroupState string

const (
	StateIdle          GroupState = "idle"
	StateSkipCheck     GroupState = "skip-check"
	StateSkipped       GroupState = "skipped"
	StateEnvironment   GroupState = "environment"
	StateGlobalPrep    GroupState = "global-prep"
	StatePrep          GroupState = "prep"
	StateSetup         GroupState = "setup"
	StateHealthCheck   GroupState = "health-check"
	StateReady         GroupState = "ready"
	StateCleanup       GroupState = "cleanup"
	StateGlobalCleanup GroupState = "global-cleanup"
	StateDone          GroupState = "done"
	StateAborted       GroupState = "aborted"
)

// GroupResult is the outcome of one config group
type GroupResult struct {
	ConfigDir  string        `json:"configDir" yaml:"configDir"`
	State      GroupState    `json:"state" yaml:"state"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	SkipReason string        `json:"skipReason,omitempty" yaml:"skipReason,omitempty"`
	Phases     []PhaseResult `json:"phases,omitempty" yaml:"phases,omitempty"`
	Results    []TestResult  `json:"results" yaml:"results"`
}

// Summary aggregates every group of a run
type Summary struct {
	RunID       string        `json:"runId" yaml:"runId"`
	Groups      []GroupResult `json:"groups" yaml:"groups"`
	Total       int           `json:"total" yaml:"total"`
	Passed      int           `json:"passed" yaml:"passed"`
	Failed      int           `json:"failed" yaml:"failed"`
	Errors      int           `json:"errors" yaml:"errors"`
	Skipped     int           `json:"skipped" yaml:"skipped"`
	GroupErrors int           `json:"groupErrors" yaml:"groupErrors"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Workers     int           `json:"workers" yaml:"workers"`
	Interrupted bool          `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
	// GlobalPhases are the global prep and cleanup scripts of the run
	GlobalPhases []PhaseResult `json:"globalPhases,omitempty" yaml:"globalPhases,omitempty"`
}

// Add records a group and updates the counters
func (s *Summary) Add(g GroupResult) {
	s.Groups = append(s.Groups, g)
	if g.Error != "" {
		s.GroupErrors++
	}
	for _, r := range g.Results {
		s.Total++
		switch r.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusError:
			s.Errors++
		case StatusSkipped:
			s.Skipped++
		}
	}
}

// Results returns every test result in group order
func (s *Summary) Results() []TestResult {
	var out []TestResult
	for _, g := range s.Groups {
		out = append(out, g.Results...)
	}
	return out
}

// Success reports whether the run should exit 0
func (s *Summary) Success() bool {
	return s.Failed == 0 && s.Errors == 0 && s.GroupErrors == 0 && !s.Interrupted
}
