package domain

// TestFailure is one failed assertion extracted from a test's output
type TestFailure struct {
	TestName string `json:"test_name" yaml:"test_name"`
	FilePath string `json:"file_path" yaml:"file_path"`
	Message  string `json:"message" yaml:"message"`
	Expected string `json:"expected,omitempty" yaml:"expected,omitempty"`
	Received string `json:"received,omitempty" yaml:"received,omitempty"`
	File     string `json:"file,omitempty" yaml:"file,omitempty"`
	Line     int    `json:"line,omitempty" yaml:"line,omitempty"`
	// Resolved is toggled in the failure viewer and saved with the report
	Resolved bool `json:"resolved,omitempty" yaml:"resolved,omitempty"`
}

// ReportMeta contains metadata about a test run
type ReportMeta struct {
	RunID           string  `json:"run_id" yaml:"run_id"`
	TotalTests      int     `json:"total_tests" yaml:"total_tests"`
	PassedTests     int     `json:"passed_tests" yaml:"passed_tests"`
	FailedTests     int     `json:"failed_tests" yaml:"failed_tests"`
	ErrorTests      int     `json:"error_tests" yaml:"error_tests"`
	SkippedTests    int     `json:"skipped_tests" yaml:"skipped_tests"`
	Duration        string  `json:"duration" yaml:"duration"`
	DurationSeconds float64 `json:"duration_seconds" yaml:"duration_seconds"`
	Workers         int     `json:"workers" yaml:"workers"`
	Timestamp       string  `json:"timestamp" yaml:"timestamp"`
}

// Report is the machine readable output of a run
type Report struct {
	Meta     ReportMeta    `json:"meta" yaml:"meta"`
	Groups   []GroupResult `json:"groups" yaml:"groups"`
	Failures []TestFailure `json:"failures" yaml:"failures"`
}
