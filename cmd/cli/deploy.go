package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/flowbaker/deployer/internal/deployer"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewDeployCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy workflows and credentials to the remote host",
		Long: `Connect to the host, upload and import the workflow catalog and placeholder credentials,
enable the public API, restart the service and verify the result. Failures after the
workflow upload are reported in the summary without stopping the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd)
		},
	}

	return cmd
}

func runDeploy(cmd *cobra.Command) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := ensureSSHAuth(cfg); err != nil {
		return err
	}

	if err := cfg.ValidateRemote(); err != nil {
		return err
	}

	d := deployer.New(deployer.Options{Config: cfg.Deployer()})

	log.Info().Str("host", cfg.Remote().Address()).Msg("Starting deployment")

	summary, err := d.Run(ctx)
	printSummary(os.Stdout, summary)

	return err
}

func printSummary(w io.Writer, summary *deployer.Summary) {
	if summary == nil {
		return
	}

	fmt.Fprintf(w, "\n🚀 Deployment %s to %s\n\n", summary.RunID, summary.Host)

	for _, step := range summary.Steps {
		switch step.Status {
		case deployer.StepSucceeded:
			fmt.Fprintf(w, "%s %s %s\n", successStyle.Render("✓"), step.Name, labelStyle.Render(step.Duration.Round(time.Millisecond).String()))
		case deployer.StepSkipped:
			fmt.Fprintf(w, "%s %s %s\n", labelStyle.Render("-"), step.Name, labelStyle.Render("skipped: "+step.Note))
		case deployer.StepFailed:
			fmt.Fprintf(w, "%s %s %s\n", failureStyle.Render("✗"), step.Name, failureStyle.Render(step.Err.Error()))
			if step.Output != "" {
				for _, line := range strings.Split(step.Output, "\n") {
					fmt.Fprintf(w, "     %s\n", labelStyle.Render(line))
				}
			}
		}
	}

	if len(summary.Warnings) > 0 {
		fmt.Fprintf(w, "\n⚠️  Validation warnings (%d):\n", len(summary.Warnings))
		for _, warning := range summary.Warnings {
			fmt.Fprintf(w, "   • %s\n", warning)
		}
	}

	if len(summary.Final) > 0 {
		fmt.Fprintf(w, "\n📋 Workflows (%d, %d active or activatable):\n", len(summary.Final), summary.ActiveEligible())
		for _, wf := range summary.Final {
			fmt.Fprintf(w, "   • %s %s %s\n", wf.Name, labelStyle.Render("["+wf.ID+"]"), wf.State())
		}
	}

	if summary.Health != nil {
		style := successStyle
		if !summary.Health.Healthy {
			style = warningStyle
		}
		fmt.Fprintf(w, "\n🩺 Health: %s\n", style.Render(summary.Health.String()))
	}

	if len(summary.PendingSecrets) > 0 {
		fmt.Fprintln(w, "\n🔑 Credentials that still need real secrets:")
		for _, pending := range summary.PendingSecrets {
			state := "imported with placeholder"
			if !pending.Imported {
				state = "not imported"
			}
			fmt.Fprintf(w, "   • %s (%s, %s)\n", pending.CredentialName, pending.CredentialType, state)
			if len(pending.Workflows) > 0 {
				fmt.Fprintf(w, "     %s %s\n", labelStyle.Render("blocks:"), strings.Join(pending.Workflows, ", "))
			}
		}
	}

	fmt.Fprintln(w)

	switch {
	case summary.Aborted:
		fmt.Fprintln(w, failureStyle.Render("❌ Deployment aborted"))
	case summary.OK():
		fmt.Fprintln(w, successStyle.Render("✅ Deployment finished"))
	default:
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("⚠️  Deployment finished with %d failed step(s)", len(summary.Failed()))))
	}
}
