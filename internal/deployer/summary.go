package deployer

import (
	"fmt"
	"time"

	"github.com/flowbaker/deployer/internal/health"
	"github.com/flowbaker/deployer/pkg/domain"
	"github.com/flowbaker/deployer/pkg/n8n"
)

type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

type StepResult struct {
	Name     string
	Policy   Policy
	Status   StepStatus
	Duration time.Duration
	Err      error
	// Output holds the truncated stdout/stderr of a failed remote command.
	Output string
	Note   string
}

// Summary is the outcome of one run. It is returned even when the run aborts.
type Summary struct {
	RunID     string
	Host      string
	StartedAt time.Time
	Duration  time.Duration

	Steps    []StepResult
	Warnings []domain.ValidationWarning

	// Imported is the workflow list right after import, Final the list at
	// the end of the run.
	Imported []n8n.WorkflowSummary
	Final    []n8n.WorkflowSummary

	Activated      []string
	ConfigChanged  bool
	Health         *health.Result
	PendingSecrets []domain.SecretNotProvisioned

	Aborted bool
}

// Failed returns the steps that failed, in run order.
func (s *Summary) Failed() []StepResult {
	var failed []StepResult
	for _, step := range s.Steps {
		if step.Status == StepFailed {
			failed = append(failed, step)
		}
	}

	return failed
}

// OK reports a run with no failed step. Pending secrets do not count.
func (s *Summary) OK() bool {
	return !s.Aborted && len(s.Failed()) == 0
}

func (s *Summary) Step(name string) (StepResult, bool) {
	for _, step := range s.Steps {
		if step.Name == name {
			return step, true
		}
	}

	return StepResult{}, false
}

// ActiveEligible counts final workflows that are active or could be.
func (s *Summary) ActiveEligible() int {
	count := 0
	for _, w := range s.Final {
		if w.ActiveEligible() {
			count++
		}
	}

	return count
}

// AbortError is returned by Run when a step with the abort policy fails.
type AbortError struct {
	Step string
	Err  error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("deployment aborted at %s: %v", e.Step, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}
