package remote

import (
	"errors"
	"fmt"
)

// ConnectionError is returned when the host cannot be reached or rejects
// authentication.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// CommandError is returned by Run when a remote command exits non-zero, or by
// callers that find an error report in the output of a command that exited 0.
type CommandError struct {
	Command    string
	ExitStatus int
	Stdout     []byte
	Stderr     []byte
}

func (e *CommandError) Error() string {
	detail := Truncate(string(e.Stderr), 200)
	if detail == "" {
		detail = Truncate(string(e.Stdout), 200)
	}

	if e.ExitStatus == 0 {
		return fmt.Sprintf("remote command %q reported an error: %s", Truncate(e.Command, 120), detail)
	}

	if detail == "" {
		return fmt.Sprintf("remote command %q exited with status %d", Truncate(e.Command, 120), e.ExitStatus)
	}

	return fmt.Sprintf("remote command %q exited with status %d: %s", Truncate(e.Command, 120), e.ExitStatus, detail)
}

// TransferError is returned when a file cannot be written on the host.
type TransferError struct {
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("failed to transfer %s: %v", e.Path, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// IsConnectionError checks if an error is a connection error
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// IsCommandError checks if an error is a non-zero exit of a remote command
func IsCommandError(err error) (*CommandError, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr, true
	}

	return nil, false
}
