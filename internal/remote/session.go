// Package remote runs commands and writes files on the deployment host.
package remote

import (
	"context"
	"strings"

	"github.com/alessio/shellescape"
)

// Result is the outcome of one remote command. ExitStatus is -1 when the
// command ended without reporting a status.
type Result struct {
	Stdout     []byte
	Stderr     []byte
	ExitStatus int
}

func (r Result) Success() bool {
	return r.ExitStatus == 0
}

// Output returns stdout followed by stderr, which is how the engine CLI
// splits its log lines and payload.
func (r Result) Output() []byte {
	out := make([]byte, 0, len(r.Stdout)+len(r.Stderr))
	out = append(out, r.Stdout...)
	return append(out, r.Stderr...)
}

// Session is an authenticated channel to the host. Implementations must be
// safe to Close more than once.
type Session interface {
	// Execute runs a shell command. A non-zero exit is reported in the
	// result, not as an error; errors mean the command could not be run.
	Execute(ctx context.Context, command string) (Result, error)
	// TransferFile writes data to an absolute path on the host, replacing it.
	TransferFile(ctx context.Context, data []byte, path string) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, config Config) (Session, error)
}

// Run executes a command and turns a non-zero exit into a *CommandError.
func Run(ctx context.Context, s Session, command string) (Result, error) {
	result, err := s.Execute(ctx, command)
	if err != nil {
		return result, err
	}

	if !result.Success() {
		return result, &CommandError{
			Command:    command,
			ExitStatus: result.ExitStatus,
			Stdout:     result.Stdout,
			Stderr:     result.Stderr,
		}
	}

	return result, nil
}

// Quote escapes a value for a POSIX shell command line.
func Quote(value string) string {
	return shellescape.Quote(value)
}

// Join quotes every argument and joins them with spaces.
func Join(args ...string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = Quote(arg)
	}

	return strings.Join(quoted, " ")
}

// Truncate trims whitespace and cuts s to at most max runes.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)

	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max]) + "..."
}
