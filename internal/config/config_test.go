package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 22, config.SSH.Port)
	assert.Equal(t, "root", config.SSH.User)
	assert.Equal(t, 15*time.Second, config.SSH.ConnectTimeout)
	assert.Equal(t, "root-n8n-1", config.N8N.Container)
	assert.Equal(t, "/tmp", config.N8N.StagingDir)
	assert.Equal(t, "http://127.0.0.1:5678/healthz", config.N8N.HealthURL)
	assert.Equal(t, 10*time.Second, config.N8N.HealthGrace)
	assert.Equal(t, "Africa/Johannesburg", config.Catalog.Timezone)
	assert.Equal(t, "N8N_PUBLIC_API_DISABLED", config.Patch.Key)
	assert.Empty(t, config.SSH.Host)
	assert.Empty(t, config.SSH.Password)

	err = config.ValidateRemote()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvSSHHost)
	assert.Contains(t, err.Error(), EnvSSHPassword+" or "+EnvSSHPrivateKey)
	assert.Contains(t, err.Error(), EnvCatalogBaseURL)

	assert.ErrorContains(t, config.ValidateCatalog(), EnvCatalogBaseURL)
}

func TestLoad_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DEPLOYER_SSH_HOST", "203.0.113.10")
	t.Setenv("DEPLOYER_SSH_PASSWORD", "from-secret-store")
	t.Setenv("DEPLOYER_SSH_PORT", "2222")
	t.Setenv("DEPLOYER_N8N_HEALTH_GRACE", "3s")
	t.Setenv("DEPLOYER_CATALOG_API_BASE_URL", "https://db.example.test")

	config, err := Load("")
	require.NoError(t, err)
	require.NoError(t, config.ValidateRemote())

	remote := config.Remote()
	assert.Equal(t, "203.0.113.10:2222", remote.Address())
	assert.Equal(t, "from-secret-store", remote.Password)

	deploy := config.Deployer()
	assert.Equal(t, 3*time.Second, deploy.HealthGrace)
	assert.Equal(t, "root-n8n-1", deploy.Catalog.Service)
	assert.Equal(t, "/tmp/draggonnb-workflows.json", deploy.WorkflowsPath())
	assert.Equal(t, "N8N_API_KEY", deploy.Patch.Anchor)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deployer.yaml")

	require.NoError(t, os.WriteFile(path, []byte(`ssh:
  host: 198.51.100.4
  private_key_path: /home/deploy/.ssh/id_ed25519
n8n:
  container: n8n-prod
  activate:
    - Acme - Content Queue Processor
catalog:
  api_base_url: https://db.example.test
  name_prefix: Acme
`), 0o600))

	t.Setenv("DEPLOYER_SSH_HOST", "192.0.2.1")

	config, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, config.ValidateRemote())

	assert.Equal(t, "192.0.2.1", config.SSH.Host)
	assert.True(t, config.HasSSHAuth())
	assert.Equal(t, "n8n-prod", config.CatalogParams().Service)
	assert.Equal(t, []string{"Acme - Content Queue Processor"}, config.N8N.Activate)
	assert.Equal(t, "/tmp/acme-workflows.json", config.Deployer().WorkflowsPath())
}

func TestLoad_SearchPathFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "deployer.yaml"), []byte("catalog:\n  timezone: Europe/Berlin\n"), 0o600))

	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", config.Catalog.Timezone)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "error reading config file")
}

func TestValidateSSH(t *testing.T) {
	config := &Config{SSH: SSHConfig{Host: "203.0.113.10", PrivateKeyPath: "/keys/id_ed25519"}}
	assert.NoError(t, config.ValidateSSH())
	assert.ErrorContains(t, config.ValidateRemote(), EnvCatalogBaseURL)

	config.SSH.Host = ""
	assert.ErrorContains(t, config.ValidateSSH(), EnvSSHHost)
}

// chdir changes the working directory for the duration of the test, like
// testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()

	previous, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))

	t.Cleanup(func() {
		if err := os.Chdir(previous); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
