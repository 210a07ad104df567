package deployer

import (
	"context"
	"path"
	"time"

	"github.com/flowbaker/deployer/internal/composepatch"
	"github.com/flowbaker/deployer/internal/health"
	"github.com/flowbaker/deployer/internal/remote"
	"github.com/flowbaker/deployer/pkg/catalog"
	"github.com/flowbaker/deployer/pkg/domain"
	"github.com/gosimple/slug"
)

const (
	DefaultStagingDir     = "/tmp"
	DefaultComposeDir     = "/root"
	DefaultComposeFile    = "docker-compose.yml"
	DefaultComposeService = "n8n"
)

// Config is everything one deployment run needs. Secrets arrive through
// Remote and are never logged.
type Config struct {
	Remote  remote.Config
	Catalog catalog.Params

	StagingDir     string
	ComposeDir     string
	ComposeFile    string
	ComposeService string
	Patch          composepatch.Patch

	// Activate lists workflow names to activate after import. Empty skips
	// the activation step.
	Activate []string

	HealthURL   string
	HealthGrace time.Duration
}

func (c Config) withDefaults() Config {
	if c.StagingDir == "" {
		c.StagingDir = DefaultStagingDir
	}

	if c.ComposeDir == "" {
		c.ComposeDir = DefaultComposeDir
	}

	if c.ComposeFile == "" {
		c.ComposeFile = DefaultComposeFile
	}

	if c.ComposeService == "" {
		c.ComposeService = DefaultComposeService
	}

	return c
}

func (c Config) stagingPath(artifact string) string {
	prefix := c.Catalog.NamePrefix
	if prefix == "" {
		prefix = catalog.DefaultNamePrefix
	}

	return path.Join(c.StagingDir, slug.Make(prefix)+"-"+artifact+".json")
}

// WorkflowsPath is where the workflow artifact is staged on the host.
func (c Config) WorkflowsPath() string {
	return c.withDefaults().stagingPath("workflows")
}

// CredentialsPath is where the credential artifact is staged on the host.
func (c Config) CredentialsPath() string {
	return c.withDefaults().stagingPath("credentials")
}

// ComposePath is the compose file that gets patched.
func (c Config) ComposePath() string {
	c = c.withDefaults()
	return path.Join(c.ComposeDir, c.ComposeFile)
}

type CatalogBuilder interface {
	Build(params catalog.Params) (domain.DeploymentBatch, error)
}

type HealthChecker interface {
	Check(ctx context.Context, session remote.Session) health.Result
}

type ConfigPatcher interface {
	Ensure(ctx context.Context, session remote.Session, path string, patch composepatch.Patch) (bool, error)
}

// Options wires a Deployer. Nil collaborators get production defaults.
type Options struct {
	Config  Config
	Dialer  remote.Dialer
	Catalog CatalogBuilder
	Health  HealthChecker
	Patcher ConfigPatcher
}
