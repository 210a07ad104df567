package deployer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flowbaker/deployer/internal/remote"
	"github.com/flowbaker/deployer/pkg/n8n"
)

var errNoSession = errors.New("no session")

func (r *run) requireSession() error {
	if r.session == nil {
		return errNoSession
	}

	return nil
}

func (d *Deployer) connect(ctx context.Context, r *run) error {
	session, err := d.dialer.Dial(ctx, d.config.Remote)
	if err != nil {
		return err
	}

	r.session = session

	return nil
}

func (d *Deployer) buildWorkflows(ctx context.Context, r *run) error {
	batch, err := d.catalog.Build(d.config.Catalog)
	if err != nil {
		return err
	}

	data, warnings, err := WorkflowArtifact(batch)
	for _, warning := range warnings {
		r.logger.Warn().Str("workflow", warning.Graph).Str("node", warning.Node).Str("kind", string(warning.Kind)).Msg(warning.Message)
	}
	r.summary.Warnings = append(r.summary.Warnings, warnings...)

	if err != nil {
		return err
	}

	r.batch = batch
	r.workflows = data

	r.logger.Info().Int("workflows", len(batch.Workflows)).Int("bytes", len(data)).Msg("Built workflow artifact")

	return nil
}

func (d *Deployer) transferWorkflows(ctx context.Context, r *run) error {
	if err := r.requireSession(); err != nil {
		return err
	}

	return r.session.TransferFile(ctx, r.workflows, d.config.WorkflowsPath())
}

func (d *Deployer) importWorkflows(ctx context.Context, r *run) error {
	result, err := runImport(ctx, r.session, importCommand(r.batch.Service, d.config.WorkflowsPath(), importWorkflows))
	if err != nil {
		return err
	}

	r.logger.Debug().Str("output", remote.Truncate(string(result.Output()), 500)).Msg("Workflow import output")

	return nil
}

func (d *Deployer) listWorkflows(ctx context.Context, r *run) ([]n8n.WorkflowSummary, error) {
	result, err := remote.Run(ctx, r.session, listCommand(r.batch.Service))
	if err != nil {
		return nil, err
	}

	return n8n.ParseWorkflowList(result.Stdout)
}

func (d *Deployer) verifyImport(ctx context.Context, r *run) error {
	workflows, err := d.listWorkflows(ctx, r)
	if err != nil {
		return err
	}

	r.summary.Imported = workflows

	for _, w := range workflows {
		r.logger.Info().Str("workflow", w.Name).Str("id", w.ID).Str("state", w.State()).Msg("Workflow present")
	}

	var missing []string
	for _, name := range r.batch.WorkflowNames() {
		if _, ok := n8n.FindByName(workflows, name); !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("workflows missing after import: %s", strings.Join(missing, ", "))
	}

	return nil
}

func (d *Deployer) buildCredentials(ctx context.Context, r *run) error {
	data, err := CredentialArtifact(r.batch)
	if err != nil {
		return err
	}

	r.credentials = data
	r.summary.PendingSecrets = r.batch.PendingSecrets()

	return nil
}

func (d *Deployer) importCredentials(ctx context.Context, r *run) error {
	staged := d.config.CredentialsPath()

	if err := r.session.TransferFile(ctx, r.credentials, staged); err != nil {
		return err
	}

	if _, err := runImport(ctx, r.session, importCommand(r.batch.Service, staged, importCredentials)); err != nil {
		return err
	}

	for i := range r.summary.PendingSecrets {
		r.summary.PendingSecrets[i].Imported = true
	}

	return nil
}

func (d *Deployer) skipActivation(r *run) string {
	if len(d.config.Activate) == 0 {
		return "no workflows configured for activation"
	}

	return ""
}

// activateWorkflows activates each configured workflow by id. Names from the
// catalog use their derived id; other names are looked up in the imported list.
func (d *Deployer) activateWorkflows(ctx context.Context, r *run) error {
	var errs []error

	for _, name := range d.config.Activate {
		id, err := r.workflowID(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if _, err := remote.Run(ctx, r.session, activateCommand(r.batch.Service, id)); err != nil {
			errs = append(errs, fmt.Errorf("failed to activate %q: %w", name, err))
			continue
		}

		r.summary.Activated = append(r.summary.Activated, name)
		r.logger.Info().Str("workflow", name).Str("id", id).Msg("Workflow activated")
	}

	return errors.Join(errs...)
}

func (r *run) workflowID(name string) (string, error) {
	if wf, ok := r.batch.WorkflowByName(name); ok && wf.ID() != "" {
		return wf.ID(), nil
	}

	if w, ok := n8n.FindByName(r.summary.Imported, name); ok && w.ID != "" {
		return w.ID, nil
	}

	return "", fmt.Errorf("workflow %q not found", name)
}

func (d *Deployer) patchConfig(ctx context.Context, r *run) error {
	changed, err := d.patcher.Ensure(ctx, r.session, d.config.ComposePath(), d.config.Patch)
	if err != nil {
		return err
	}

	r.summary.ConfigChanged = changed

	return nil
}

func (d *Deployer) restartService(ctx context.Context, r *run) error {
	_, err := remote.Run(ctx, r.session, restartCommand(d.config.ComposeDir, d.config.ComposeFile, d.config.ComposeService))
	return err
}

func (d *Deployer) healthCheck(ctx context.Context, r *run) error {
	result := d.health.Check(ctx, r.session)
	r.summary.Health = &result

	if result.Err != nil {
		return result.Err
	}

	if !result.Healthy {
		return fmt.Errorf("service is %s", result)
	}

	return nil
}

func (d *Deployer) finalVerification(ctx context.Context, r *run) error {
	workflows, err := d.listWorkflows(ctx, r)
	if err != nil {
		return err
	}

	r.summary.Final = workflows

	eligible := r.summary.ActiveEligible()
	r.logger.Info().Int("workflows", len(workflows)).Int("active_eligible", eligible).Msg("Final workflow state")

	if len(workflows) > 0 && eligible == 0 {
		return errors.New("no workflow is active or activatable")
	}

	return nil
}
