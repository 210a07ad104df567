package cli

import (
	"fmt"

	"github.com/flowbaker/deployer/pkg/catalog"
	"github.com/spf13/cobra"
)

func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Build the workflow catalog and report validation warnings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd)
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command) error {
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

	warnings := 0
	for _, wf := range batch.Workflows {
		report := wf.Validate()

		if report.OK() {
			fmt.Printf("%s %s %s\n", successStyle.Render("✓"), wf.Name(), labelStyle.Render(fmt.Sprintf("%d nodes, %d connections", len(wf.Nodes()), len(wf.Connections()))))
			continue
		}

		fmt.Printf("%s %s\n", warningStyle.Render("⚠"), wf.Name())
		for _, warning := range report.Warnings {
			fmt.Printf("   • %s\n", warning)
		}
		warnings += len(report.Warnings)
	}

	for _, pending := range batch.PendingSecrets() {
		fmt.Printf("🔑 %s\n", pending.Error())
	}

	if warnings > 0 {
		fmt.Println(warningStyle.Render(fmt.Sprintf("\n%d warning(s)", warnings)))
	} else {
		fmt.Println(successStyle.Render("\nAll workflows are valid"))
	}

	return nil
}
