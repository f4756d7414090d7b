package cli

import "fmt"

// Exit codes
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

// ExitError carries the process exit code out of a command
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Fail returns an ExitError with code 1 and no message of its own
func Fail() *ExitError {
	return &ExitError{Code: ExitFailure}
}
