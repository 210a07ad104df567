package composepatch

import (
	"context"
	"fmt"

	"github.com/flowbaker/deployer/internal/remote"
	"github.com/rs/zerolog/log"
)

// Patcher applies a Patch to a file on the remote host.
type Patcher struct {
	// Backup keeps the previous content at <path>.bak before writing.
	Backup bool
}

func NewPatcher() *Patcher {
	return &Patcher{Backup: true}
}

// Ensure makes sure the patch is present in the remote file. The file is only
// written when it changes, so running it twice leaves one inserted line.
func (p *Patcher) Ensure(ctx context.Context, session remote.Session, path string, patch Patch) (bool, error) {
	current, err := remote.Run(ctx, session, "cat "+remote.Quote(path))
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	patched, changed, err := Apply(current.Stdout, patch)
	if err != nil {
		return false, fmt.Errorf("failed to patch %s: %w", path, err)
	}

	if !changed {
		log.Info().Str("path", path).Str("key", patch.Key).Msg("Config already contains key, nothing to patch")
		return false, nil
	}

	if p.Backup {
		if _, err := remote.Run(ctx, session, remote.Join("cp", "-p", path, path+".bak")); err != nil {
			return false, fmt.Errorf("failed to back up %s: %w", path, err)
		}
	}

	if err := session.TransferFile(ctx, patched, path); err != nil {
		return false, err
	}

	log.Info().Str("path", path).Str("key", patch.Key).Msg("Patched config")

	return true, nil
}
