// Package config loads deployer settings from a config file and DEPLOYER_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flowbaker/deployer/internal/composepatch"
	"github.com/flowbaker/deployer/internal/deployer"
	"github.com/flowbaker/deployer/internal/health"
	"github.com/flowbaker/deployer/internal/remote"
	"github.com/flowbaker/deployer/pkg/catalog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	EnvSSHHost        = "DEPLOYER_SSH_HOST"
	EnvSSHPassword    = "DEPLOYER_SSH_PASSWORD"
	EnvSSHPrivateKey  = "DEPLOYER_SSH_PRIVATE_KEY_PATH"
	EnvCatalogBaseURL = "DEPLOYER_CATALOG_API_BASE_URL"
)

type Config struct {
	SSH     SSHConfig     `mapstructure:"ssh"`
	N8N     N8NConfig     `mapstructure:"n8n"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Patch   PatchConfig   `mapstructure:"patch"`
}

type SSHConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	KnownHostsPath string        `mapstructure:"known_hosts_path"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type N8NConfig struct {
	Container   string        `mapstructure:"container"`
	StagingDir  string        `mapstructure:"staging_dir"`
	ComposeDir  string        `mapstructure:"compose_dir"`
	ComposeFile string        `mapstructure:"compose_file"`
	Service     string        `mapstructure:"service"`
	HealthURL   string        `mapstructure:"health_url"`
	HealthGrace time.Duration `mapstructure:"health_grace"`
	Activate    []string      `mapstructure:"activate"`
}

type CatalogConfig struct {
	APIBaseURL string `mapstructure:"api_base_url"`
	Timezone   string `mapstructure:"timezone"`
	NamePrefix string `mapstructure:"name_prefix"`
	Model      string `mapstructure:"model"`
}

type PatchConfig struct {
	Anchor string `mapstructure:"anchor"`
	Key    string `mapstructure:"key"`
	Value  string `mapstructure:"value"`
}

// Load reads configuration from path, or from deployer.yaml in the search
// paths when path is empty, then applies environment overrides. It does not
// validate; callers check what their command needs.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("DEPLOYER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range boundKeys {
		envVar := "DEPLOYER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, key)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("deployer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.deployer")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	log.Debug().
		Str("host", config.SSH.Host).
		Str("user", config.SSH.User).
		Str("container", config.N8N.Container).
		Msg("Config loaded")

	return &config, nil
}

var boundKeys = []string{
	"ssh.host", "ssh.port", "ssh.user", "ssh.password", "ssh.private_key_path",
	"ssh.known_hosts_path", "ssh.connect_timeout",
	"n8n.container", "n8n.staging_dir", "n8n.compose_dir", "n8n.compose_file",
	"n8n.service", "n8n.health_url", "n8n.health_grace", "n8n.activate",
	"catalog.api_base_url", "catalog.timezone", "catalog.name_prefix", "catalog.model",
	"patch.anchor", "patch.key", "patch.value",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ssh.port", remote.DefaultPort)
	v.SetDefault("ssh.user", remote.DefaultUser)
	v.SetDefault("ssh.connect_timeout", remote.DefaultTimeout)

	v.SetDefault("n8n.container", "root-n8n-1")
	v.SetDefault("n8n.staging_dir", deployer.DefaultStagingDir)
	v.SetDefault("n8n.compose_dir", deployer.DefaultComposeDir)
	v.SetDefault("n8n.compose_file", deployer.DefaultComposeFile)
	v.SetDefault("n8n.service", deployer.DefaultComposeService)
	v.SetDefault("n8n.health_url", health.DefaultURL)
	v.SetDefault("n8n.health_grace", health.DefaultGrace)
	v.SetDefault("n8n.activate", []string{})

	v.SetDefault("catalog.timezone", catalog.DefaultTimezone)
	v.SetDefault("catalog.name_prefix", catalog.DefaultNamePrefix)
	v.SetDefault("catalog.model", catalog.DefaultModel)

	v.SetDefault("patch.anchor", "N8N_API_KEY")
	v.SetDefault("patch.key", "N8N_PUBLIC_API_DISABLED")
	v.SetDefault("patch.value", "false")
}

// HasSSHAuth reports whether a password or private key is configured.
func (c *Config) HasSSHAuth() bool {
	return c.SSH.Password != "" || c.SSH.PrivateKeyPath != ""
}

// ValidateCatalog checks what building the workflows needs.
func (c *Config) ValidateCatalog() error {
	if c.Catalog.APIBaseURL == "" {
		return missingVars([]string{EnvCatalogBaseURL})
	}

	return nil
}

// ValidateSSH checks what opening a session needs.
func (c *Config) ValidateSSH() error {
	if missing := c.missingSSH(); len(missing) > 0 {
		return missingVars(missing)
	}

	return nil
}

// ValidateRemote checks what a deployment run needs.
func (c *Config) ValidateRemote() error {
	missing := c.missingSSH()

	if c.Catalog.APIBaseURL == "" {
		missing = append(missing, EnvCatalogBaseURL)
	}

	if len(missing) > 0 {
		return missingVars(missing)
	}

	return nil
}

func (c *Config) missingSSH() []string {
	var missing []string

	if c.SSH.Host == "" {
		missing = append(missing, EnvSSHHost)
	}

	if !c.HasSSHAuth() {
		missing = append(missing, EnvSSHPassword+" or "+EnvSSHPrivateKey)
	}

	return missing
}

func missingVars(vars []string) error {
	return fmt.Errorf("missing required environment variables: %s\n\nSet them in the environment or in deployer.yaml",
		strings.Join(vars, ", "))
}

func (c *Config) Remote() remote.Config {
	return remote.Config{
		Host:           c.SSH.Host,
		Port:           c.SSH.Port,
		User:           c.SSH.User,
		Password:       c.SSH.Password,
		PrivateKeyPath: c.SSH.PrivateKeyPath,
		KnownHostsPath: c.SSH.KnownHostsPath,
		Timeout:        c.SSH.ConnectTimeout,
	}
}

func (c *Config) CatalogParams() catalog.Params {
	return catalog.Params{
		APIBaseURL: c.Catalog.APIBaseURL,
		Timezone:   c.Catalog.Timezone,
		Service:    c.N8N.Container,
		NamePrefix: c.Catalog.NamePrefix,
		Model:      c.Catalog.Model,
	}
}

func (c *Config) Deployer() deployer.Config {
	return deployer.Config{
		Remote:         c.Remote(),
		Catalog:        c.CatalogParams(),
		StagingDir:     c.N8N.StagingDir,
		ComposeDir:     c.N8N.ComposeDir,
		ComposeFile:    c.N8N.ComposeFile,
		ComposeService: c.N8N.Service,
		Patch: composepatch.Patch{
			Anchor: c.Patch.Anchor,
			Key:    c.Patch.Key,
			Value:  c.Patch.Value,
		},
		Activate:    c.N8N.Activate,
		HealthURL:   c.N8N.HealthURL,
		HealthGrace: c.N8N.HealthGrace,
	}
}
