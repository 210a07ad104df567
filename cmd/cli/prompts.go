package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/flowbaker/deployer/internal/config"
	"golang.org/x/term"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#27ca3f"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f56"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9ca24"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#bababa"))
)

func theme() *huh.Theme {
	theme := huh.ThemeBase16()
	theme.Focused.Title = theme.Focused.Title.Foreground(lipgloss.Color("#f9ca24"))
	theme.Blurred.Title = theme.Blurred.Title.Foreground(lipgloss.Color("#bababa"))
	return theme
}

type resultField struct {
	Label string
	Value string
}

func printResult(fields []resultField, successMsg string) {
	check := successStyle.Render("✓")

	fmt.Println()
	for _, f := range fields {
		fmt.Printf("%s %s %s\n", check, labelStyle.Render(f.Label+":"), f.Value)
	}

	if successMsg != "" {
		fmt.Println(successStyle.Render("\n" + successMsg))
	}
}

// ensureSSHAuth asks for the SSH password when none is configured and stdin
// is a terminal. The answer is kept in memory only.
func ensureSSHAuth(cfg *config.Config) error {
	if cfg.HasSSHAuth() || !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}

	var password string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("SSH password for %s@%s", cfg.SSH.User, cfg.SSH.Host)).
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("password is required")
					}
					return nil
				}),
		),
	).WithTheme(theme()).Run()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	cfg.SSH.Password = password

	return nil
}
