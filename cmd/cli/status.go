package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flowbaker/deployer/internal/deployer"
	"github.com/spf13/cobra"
)

func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the workflows on the remote host",
		Long:  `Connect to the host and list the workflows known to n8n with their activation state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}

	return cmd
}

func runStatus(cmd *cobra.Command) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := ensureSSHAuth(cfg); err != nil {
		return err
	}

	if err := cfg.ValidateSSH(); err != nil {
		return err
	}

	workflows, err := deployer.New(deployer.Options{Config: cfg.Deployer()}).Status(ctx)
	if err != nil {
		fmt.Println("❌ Could not read workflows")
		return err
	}

	if len(workflows) == 0 {
		fmt.Printf("❌ No workflows on %s\n", cfg.Remote().Address())
		fmt.Printf("Run '%s deploy' to import them\n", os.Args[0])
		return nil
	}

	fmt.Printf("✅ %d workflow(s) on %s\n", len(workflows), cfg.Remote().Address())
	for _, wf := range workflows {
		fmt.Printf("   %s %s %s\n", wf.Name, labelStyle.Render("["+wf.ID+"]"), wf.State())
	}

	return nil
}
