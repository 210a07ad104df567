// Package health probes the engine's health endpoint from the remote host.
package health

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/flowbaker/deployer/internal/remote"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	DefaultURL   = "http://127.0.0.1:5678/healthz"
	DefaultGrace = 10 * time.Second

	probeTimeoutSeconds = 10
)

type Result struct {
	Healthy    bool
	StatusCode int
	Status     string // value of the "status" field when the body is JSON
	Body       string
	Err        error
}

// Verifier waits a fixed grace period after a restart and then probes once.
type Verifier struct {
	URL   string
	Grace time.Duration
	// Sleep waits for the grace period; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewVerifier(url string, grace time.Duration) *Verifier {
	if url == "" {
		url = DefaultURL
	}

	return &Verifier{
		URL:   url,
		Grace: grace,
		Sleep: sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Command is the probe run on the remote host. The status code is printed on
// its own line after the body.
func (v *Verifier) Command() string {
	return fmt.Sprintf("curl -s -m %d -w %s %s", probeTimeoutSeconds, remote.Quote(`\n%{http_code}`), remote.Quote(v.URL))
}

func (v *Verifier) Check(ctx context.Context, session remote.Session) Result {
	wait := v.Sleep
	if wait == nil {
		wait = sleep
	}

	log.Info().Dur("grace", v.Grace).Msg("Waiting for service to start")

	if err := wait(ctx, v.Grace); err != nil {
		return Result{Err: err}
	}

	out, err := session.Execute(ctx, v.Command())
	if err != nil {
		return Result{Err: fmt.Errorf("failed to probe %s: %w", v.URL, err)}
	}

	if !out.Success() {
		return Result{
			Body: remote.Truncate(string(out.Stdout), 200),
			Err:  &remote.CommandError{Command: v.Command(), ExitStatus: out.ExitStatus, Stdout: out.Stdout, Stderr: out.Stderr},
		}
	}

	return Parse(out.Stdout)
}

// Parse reads curl output where the last line is the HTTP status code.
func Parse(output []byte) Result {
	output = bytes.TrimRight(output, "\r\n")

	var body, code []byte
	if idx := bytes.LastIndexByte(output, '\n'); idx >= 0 {
		body, code = output[:idx], output[idx+1:]
	} else {
		code = output
	}

	result := Result{Body: remote.Truncate(string(body), 200)}

	statusCode, err := strconv.Atoi(string(bytes.TrimSpace(code)))
	if err != nil {
		result.Err = fmt.Errorf("unexpected probe output %q", remote.Truncate(string(output), 80))
		return result
	}
	result.StatusCode = statusCode

	healthy := statusCode == 200

	if gjson.ValidBytes(body) {
		if status := gjson.GetBytes(body, "status"); status.Exists() {
			result.Status = status.String()
			healthy = healthy && result.Status == "ok"
		}
	}

	result.Healthy = healthy

	return result
}

func (r Result) String() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("unreachable (%v)", r.Err)
	case r.Healthy:
		return fmt.Sprintf("healthy (HTTP %d)", r.StatusCode)
	case r.Status != "":
		return fmt.Sprintf("unhealthy (HTTP %d, status %q)", r.StatusCode, r.Status)
	default:
		return fmt.Sprintf("unhealthy (HTTP %d)", r.StatusCode)
	}
}
