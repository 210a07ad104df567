package cli

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/flowbaker/deployer/internal/deployer"
	"github.com/flowbaker/deployer/pkg/catalog"
	"github.com/spf13/cobra"
)

func NewRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the workflow and credential artifacts locally",
		Long:  `Build the workflow catalog and write the import artifacts to a local directory without contacting the host.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return runRender(cmd, out)
		},
	}

	cmd.Flags().String("out", ".", "Directory to write the artifacts to")

	return cmd
}

func runRender(cmd *cobra.Command, out string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.ValidateCatalog(); err != nil {
		return err
	}

	batch, err := catalog.NewBuilder().Build(cfg.CatalogParams())
	if err != nil {
		return err
	}

	artifacts, err := deployer.BuildArtifacts(batch)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}

	deployConfig := cfg.Deployer()
	workflowsPath := filepath.Join(out, path.Base(deployConfig.WorkflowsPath()))
	credentialsPath := filepath.Join(out, path.Base(deployConfig.CredentialsPath()))

	if err := os.WriteFile(workflowsPath, artifacts.Workflows, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", workflowsPath, err)
	}

	if err := os.WriteFile(credentialsPath, artifacts.Credentials, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", credentialsPath, err)
	}

	printResult([]resultField{
		{Label: "Workflows", Value: fmt.Sprintf("%s (%d)", workflowsPath, len(batch.Workflows))},
		{Label: "Credentials", Value: fmt.Sprintf("%s (%d)", credentialsPath, len(batch.Credentials))},
	}, "Artifacts rendered")

	return nil
}
