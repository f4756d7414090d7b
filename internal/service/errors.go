package service

import (
	"errors"
	"fmt"

	"testme/internal/domain"
)

// ErrSkipped is returned by Group.Start when the skip script asked for the
// group to be skipped. The wrapped message carries the script's output.
var ErrSkipped = errors.New("group skipped")

// PhaseError reports a lifecycle phase that failed and aborted its group
type PhaseError struct {
	Phase domain.GroupState
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// SkipReason returns the skip script's message from an ErrSkipped error
func SkipReason(err error) string {
	var skip *skipError
	if errors.As(err, &skip) {
		return skip.reason
	}
	return ""
}

type skipError struct {
	reason string
}

func (e *skipError) Error() string {
	if e.reason == "" {
		return ErrSkipped.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSkipped, e.reason)
}

func (e *skipError) Unwrap() error {
	return ErrSkipped
}
