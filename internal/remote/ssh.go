package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// cancelWait bounds how long a cancelled command waits for its output streams.
const cancelWait = 2 * time.Second

var (
	ErrNoAuthMethod = errors.New("either a password or a private key is required")
	ErrNoHost       = errors.New("host is required")
)

// SSHDialer opens sessions over SSH, with SFTP for file transfer.
type SSHDialer struct{}

func NewSSHDialer() *SSHDialer {
	return &SSHDialer{}
}

func (d *SSHDialer) Dial(ctx context.Context, config Config) (Session, error) {
	addr := config.Address()

	if config.Host == "" {
		return nil, &ConnectionError{Addr: addr, Err: ErrNoHost}
	}

	clientConfig, err := clientConfig(config)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var netDialer net.Dialer
	conn, err := netDialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	deadline, _ := dialCtx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		conn.Close()
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		sshConn.Close()
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	log.Debug().Str("addr", addr).Str("user", config.User).Msg("SSH session established")

	return &sshSession{
		addr:   addr,
		client: ssh.NewClient(sshConn, chans, reqs),
	}, nil
}

func clientConfig(config Config) (*ssh.ClientConfig, error) {
	auth, err := authMethods(config)
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := hostKeyCallback(config)
	if err != nil {
		return nil, err
	}

	user := config.User
	if user == "" {
		user = DefaultUser
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         config.Timeout,
	}, nil
}

func authMethods(config Config) ([]ssh.AuthMethod, error) {
	if config.PrivateKeyPath != "" {
		pem, err := os.ReadFile(config.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}

		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}

		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}

	if config.Password == "" {
		return nil, ErrNoAuthMethod
	}

	// Some hosts only offer keyboard-interactive for password logins.
	password := config.Password
	answer := func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range answers {
			answers[i] = password
		}
		return answers, nil
	}

	return []ssh.AuthMethod{
		ssh.Password(password),
		ssh.KeyboardInteractive(answer),
	}, nil
}

func hostKeyCallback(config Config) (ssh.HostKeyCallback, error) {
	if config.KnownHostsPath == "" {
		log.Warn().Str("host", config.Host).Msg("Host key verification is disabled, set a known_hosts path to enable it")
		return ssh.InsecureIgnoreHostKey(), nil
	}

	callback, err := knownhosts.New(config.KnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts: %w", err)
	}

	return callback, nil
}

type sshSession struct {
	addr   string
	client *ssh.Client

	closeOnce sync.Once
	closeErr  error
}

func (s *sshSession) Execute(ctx context.Context, command string) (Result, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return Result{ExitStatus: -1}, fmt.Errorf("failed to open session on %s: %w", s.addr, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	log.Debug().Str("command", Truncate(command, 200)).Msg("Executing remote command")

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		session.Close()

		// The output buffers belong to the session until Run returns.
		select {
		case <-done:
			return Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitStatus: -1}, ctx.Err()
		case <-time.After(cancelWait):
			return Result{ExitStatus: -1}, ctx.Err()
		}
	case err = <-done:
	}

	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	var exitErr *ssh.ExitError
	var missingErr *ssh.ExitMissingError

	switch {
	case err == nil:
		result.ExitStatus = 0
	case errors.As(err, &exitErr):
		result.ExitStatus = exitErr.ExitStatus()
	case errors.As(err, &missingErr):
		result.ExitStatus = -1
	default:
		result.ExitStatus = -1
		return result, fmt.Errorf("failed to run remote command: %w", err)
	}

	return result, nil
}

func (s *sshSession) TransferFile(ctx context.Context, data []byte, path string) error {
	if err := ctx.Err(); err != nil {
		return &TransferError{Path: path, Err: err}
	}

	client, err := sftp.NewClient(s.client)
	if err != nil {
		return &TransferError{Path: path, Err: fmt.Errorf("failed to start sftp: %w", err)}
	}
	defer client.Close()

	file, err := client.Create(path)
	if err != nil {
		return &TransferError{Path: path, Err: err}
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		return &TransferError{Path: path, Err: err}
	}

	if err := file.Close(); err != nil {
		return &TransferError{Path: path, Err: err}
	}

	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("Transferred file")

	return nil
}

func (s *sshSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})

	return s.closeErr
}
