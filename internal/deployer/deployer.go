// Package deployer runs the ordered deployment steps against one host.
package deployer

import (
	"context"
	"errors"
	"time"

	"github.com/flowbaker/deployer/internal/composepatch"
	"github.com/flowbaker/deployer/internal/health"
	"github.com/flowbaker/deployer/internal/remote"
	"github.com/flowbaker/deployer/pkg/catalog"
	"github.com/flowbaker/deployer/pkg/domain"
	"github.com/flowbaker/deployer/pkg/n8n"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Policy decides what a step failure does to the rest of the run.
type Policy string

const (
	// PolicyAbort stops the run and returns an *AbortError.
	PolicyAbort Policy = "abort"
	// PolicyContinue records the failure and moves on.
	PolicyContinue Policy = "continue"
	// PolicyTerminal marks the last step; its failure is recorded.
	PolicyTerminal Policy = "terminal"
)

const (
	StepConnect           = "connect"
	StepBuildWorkflows    = "build-workflows"
	StepTransferWorkflows = "transfer-workflows"
	StepImportWorkflows   = "import-workflows"
	StepVerifyImport      = "verify-import"
	StepBuildCredentials  = "build-credentials"
	StepImportCredentials = "import-credentials"
	StepActivateWorkflows = "activate-workflows"
	StepPatchConfig       = "patch-config"
	StepRestartService    = "restart-service"
	StepHealthCheck       = "health-check"
	StepFinalVerification = "final-verification"
)

type Step struct {
	Name        string
	Policy      Policy
	Description string

	run func(ctx context.Context, r *run) error
	// skip returns a reason when the step should not run.
	skip func(r *run) string
}

type Deployer struct {
	config  Config
	dialer  remote.Dialer
	catalog CatalogBuilder
	health  HealthChecker
	patcher ConfigPatcher
}

func New(opts Options) *Deployer {
	config := opts.Config.withDefaults()

	d := &Deployer{
		config:  config,
		dialer:  opts.Dialer,
		catalog: opts.Catalog,
		health:  opts.Health,
		patcher: opts.Patcher,
	}

	if d.dialer == nil {
		d.dialer = remote.NewSSHDialer()
	}

	if d.catalog == nil {
		d.catalog = catalog.NewBuilder()
	}

	if d.health == nil {
		d.health = health.NewVerifier(config.HealthURL, config.HealthGrace)
	}

	if d.patcher == nil {
		d.patcher = composepatch.NewPatcher()
	}

	return d
}

// Steps returns the step table in run order.
func (d *Deployer) Steps() []Step {
	return []Step{
		{Name: StepConnect, Policy: PolicyAbort, Description: "Open an SSH session to the host", run: d.connect},
		{Name: StepBuildWorkflows, Policy: PolicyAbort, Description: "Build, validate and serialize the workflow catalog", run: d.buildWorkflows},
		{Name: StepTransferWorkflows, Policy: PolicyAbort, Description: "Upload the workflow artifact to the staging path", run: d.transferWorkflows},
		{Name: StepImportWorkflows, Policy: PolicyContinue, Description: "Import workflows into the engine", run: d.importWorkflows},
		{Name: StepVerifyImport, Policy: PolicyContinue, Description: "List workflows known to the engine", run: d.verifyImport},
		{Name: StepBuildCredentials, Policy: PolicyAbort, Description: "Serialize placeholder credentials", run: d.buildCredentials},
		{Name: StepImportCredentials, Policy: PolicyContinue, Description: "Upload and import credentials", run: d.importCredentials},
		{Name: StepActivateWorkflows, Policy: PolicyContinue, Description: "Activate configured workflows", run: d.activateWorkflows, skip: d.skipActivation},
		{Name: StepPatchConfig, Policy: PolicyContinue, Description: "Enable the public API in the compose file", run: d.patchConfig},
		{Name: StepRestartService, Policy: PolicyContinue, Description: "Recreate the engine container", run: d.restartService},
		{Name: StepHealthCheck, Policy: PolicyContinue, Description: "Probe the health endpoint", run: d.healthCheck},
		{Name: StepFinalVerification, Policy: PolicyTerminal, Description: "Record the final workflow list", run: d.finalVerification},
	}
}

// run is the state shared by the steps of one deployment.
type run struct {
	logger  zerolog.Logger
	summary *Summary

	session     remote.Session
	batch       domain.DeploymentBatch
	workflows   []byte
	credentials []byte
}

// Run executes every step in order. The returned summary is never nil. The
// error is an *AbortError when a step with the abort policy failed, or the
// context error when the run was cancelled.
func (d *Deployer) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:     xid.New().String(),
		Host:      d.config.Remote.Address(),
		StartedAt: time.Now(),
	}

	r := &run{
		summary: summary,
		logger: log.With().
			Str("run_id", summary.RunID).
			Str("host", summary.Host).
			Logger(),
	}

	defer func() {
		summary.Duration = time.Since(summary.StartedAt)

		if r.session == nil {
			return
		}

		if err := r.session.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to close session")
		}
	}()

	r.logger.Info().Msg("Starting deployment")

	steps := d.Steps()
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			summary.Aborted = true
			skipRemaining(summary, steps[i:], "run cancelled")
			return summary, &AbortError{Step: step.Name, Err: err}
		}

		if step.skip != nil {
			if reason := step.skip(r); reason != "" {
				summary.Steps = append(summary.Steps, StepResult{Name: step.Name, Policy: step.Policy, Status: StepSkipped, Note: reason})
				r.logger.Info().Str("step", step.Name).Str("reason", reason).Msg("Step skipped")
				continue
			}
		}

		started := time.Now()
		err := step.run(ctx, r)

		result := StepResult{
			Name:     step.Name,
			Policy:   step.Policy,
			Status:   StepSucceeded,
			Duration: time.Since(started),
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			switch {
			case err == nil:
				err = ctxErr
			case !errors.Is(err, ctxErr):
				err = errors.Join(ctxErr, err)
			}

			result.Status = StepFailed
			result.Err = err
			summary.Steps = append(summary.Steps, result)
			summary.Aborted = true
			skipRemaining(summary, steps[i+1:], "run cancelled")

			r.logger.Warn().Err(err).Str("step", step.Name).Msg("Run cancelled during step")

			return summary, &AbortError{Step: step.Name, Err: err}
		}

		if err == nil {
			summary.Steps = append(summary.Steps, result)
			r.logger.Info().Str("step", step.Name).Dur("duration", result.Duration).Msg("Step succeeded")
			continue
		}

		result.Status = StepFailed
		result.Err = err
		result.Output = failureOutput(err)
		summary.Steps = append(summary.Steps, result)

		event := r.logger.Warn()
		if step.Policy == PolicyAbort {
			event = r.logger.Error()
		}

		if cmdErr, ok := remote.IsCommandError(err); ok {
			event = event.Int("exit_status", cmdErr.ExitStatus)
		}

		event.Err(err).Str("step", step.Name).Str("policy", string(step.Policy)).Msg("Step failed")

		if step.Policy == PolicyAbort {
			summary.Aborted = true
			skipRemaining(summary, steps[i+1:], "aborted after "+step.Name)
			return summary, &AbortError{Step: step.Name, Err: err}
		}
	}

	r.logger.Info().Bool("ok", summary.OK()).Int("failed_steps", len(summary.Failed())).Msg("Deployment finished")

	return summary, nil
}

func skipRemaining(summary *Summary, steps []Step, reason string) {
	for _, step := range steps {
		summary.Steps = append(summary.Steps, StepResult{Name: step.Name, Policy: step.Policy, Status: StepSkipped, Note: reason})
	}
}

func failureOutput(err error) string {
	cmdErr, ok := remote.IsCommandError(err)
	if !ok {
		return ""
	}

	output := remote.Truncate(string(cmdErr.Stderr), 500)
	if output == "" {
		output = remote.Truncate(string(cmdErr.Stdout), 500)
	}

	return output
}

// Status connects to the host and returns the workflows known to the engine.
func (d *Deployer) Status(ctx context.Context) ([]n8n.WorkflowSummary, error) {
	session, err := d.dialer.Dial(ctx, d.config.Remote)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	result, err := remote.Run(ctx, session, listCommand(d.config.Catalog.Service))
	if err != nil {
		return nil, err
	}

	return n8n.ParseWorkflowList(result.Output())
}
