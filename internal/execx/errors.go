package execx

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is checks.
var (
	ErrCommandNotAllowed = errors.New("command not allowed")
	ErrOutputTooLarge    = errors.New("output exceeds maximum size")
)

// CommandNotAllowedError is returned when the command name is not in the
// allowlist. No process is spawned.
type CommandNotAllowedError struct {
	Command string
}

func (e *CommandNotAllowedError) Error() string {
	return fmt.Sprintf("command not allowed: %s", e.Command)
}

func (e *CommandNotAllowedError) Is(target error) bool { return target == ErrCommandNotAllowed }

// SpawnError wraps an OS-level failure to create the process.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string { return "failed to start process: " + e.Err.Error() }

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError is returned when the process ran and exited non-zero. Stderr is
// embedded so callers can surface the tool's own diagnostic.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process exited with code %d: %s", e.Code, e.Stderr)
}

// SignalError is returned when the process was terminated by a signal.
type SignalError struct {
	Signal string
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("process terminated by signal %s", e.Signal)
}

// TimeoutError is returned when the process exceeded its wall-clock budget
// and was killed.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("process timed out after %v", e.Timeout)
}

// OutputLimitError is returned when a stream exceeded its byte cap and the
// process was killed. Partial output is discarded.
type OutputLimitError struct {
	Stream string
	Limit  int
}

func (e *OutputLimitError) Error() string {
	return fmt.Sprintf("%s exceeded maximum size of %d bytes", e.Stream, e.Limit)
}

func (e *OutputLimitError) Is(target error) bool { return target == ErrOutputTooLarge }
