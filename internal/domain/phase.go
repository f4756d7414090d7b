package domain

import "time"

// PhaseResult is the outcome of one lifecycle script
type PhaseResult struct {
	Phase    GroupState    `json:"phase" yaml:"phase"`
	Success  bool          `json:"success" yaml:"success"`
	Output   string        `json:"output,omitempty" yaml:"output,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}
