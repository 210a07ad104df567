package deployer

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/flowbaker/deployer/internal/remote"
)

type importKind string

const (
	importWorkflows   importKind = "import:workflow"
	importCredentials importKind = "import:credentials"
)

// importCommand copies a staged artifact into the container and imports it.
func importCommand(container, stagedPath string, kind importKind) string {
	return remote.Join("docker", "cp", stagedPath, container+":"+stagedPath) +
		" && " +
		remote.Join("docker", "exec", container, "n8n", string(kind), "--input="+stagedPath)
}

// listCommand exports every workflow. Engine logs on stderr are dropped.
func listCommand(container string) string {
	return remote.Join("docker", "exec", container, "n8n", "export:workflow", "--all") + " 2>/dev/null"
}

func activateCommand(container, workflowID string) string {
	return remote.Join("docker", "exec", container, "n8n", "update:workflow", "--id="+workflowID, "--active=true")
}

func restartCommand(composeDir, composeFile, service string) string {
	return "cd " + remote.Quote(composeDir) + " && " +
		remote.Join("docker", "compose", "-f", composeFile, "up", "-d", service)
}

// reportedError returns the first line in which the engine CLI reports a
// failure. Import commands print these while still exiting 0.
func reportedError(result remote.Result) string {
	for _, stream := range [][]byte{result.Stderr, result.Stdout} {
		scanner := bufio.NewScanner(bytes.NewReader(stream))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if strings.HasPrefix(line, "Error") || strings.Contains(line, "An error occurred") {
				return line
			}
		}
	}

	return ""
}

// runImport runs an import command and treats a reported error as a failure.
func runImport(ctx context.Context, session remote.Session, command string) (remote.Result, error) {
	result, err := remote.Run(ctx, session, command)
	if err != nil {
		return result, err
	}

	if line := reportedError(result); line != "" {
		return result, &remote.CommandError{
			Command:    command,
			ExitStatus: result.ExitStatus,
			Stdout:     result.Stdout,
			Stderr:     []byte(line),
		}
	}

	return result, nil
}
