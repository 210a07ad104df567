package remote

import (
	"net"
	"strconv"
	"time"
)

const (
	DefaultPort    = 22
	DefaultUser    = "root"
	DefaultTimeout = 15 * time.Second
)

// Config holds what is needed to open a session on the deployment host.
// Password and PrivateKeyPath are alternatives; the key wins when both are set.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	PrivateKeyPath string
	KnownHostsPath string // empty disables host key verification
	Timeout        time.Duration
}

// DefaultConfig returns a config with the port, user and timeout filled in
func DefaultConfig() Config {
	return Config{
		Port:    DefaultPort,
		User:    DefaultUser,
		Timeout: DefaultTimeout,
	}
}

// Option mutates a Config
type Option func(*Config)

func WithHost(host string) Option {
	return func(c *Config) {
		c.Host = host
	}
}

func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

func WithUser(user string) Option {
	return func(c *Config) {
		c.User = user
	}
}

func WithPassword(password string) Option {
	return func(c *Config) {
		c.Password = password
	}
}

// WithPrivateKey sets the private key file used instead of a password
func WithPrivateKey(path string) Option {
	return func(c *Config) {
		c.PrivateKeyPath = path
	}
}

// WithKnownHosts enables host key verification against a known_hosts file
func WithKnownHosts(path string) Option {
	return func(c *Config) {
		c.KnownHostsPath = path
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// NewConfig builds a config from the defaults and the given options
func NewConfig(options ...Option) Config {
	config := DefaultConfig()

	for _, option := range options {
		option(&config)
	}

	return config
}

// Address returns host:port, defaulting the port to 22
func (c Config) Address() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}

	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}
