package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const testPassword = "correct horse"

type testServer struct {
	addr    string
	hostKey ssh.PublicKey
}

// startServer runs an SSH server on loopback that answers exec requests with
// run and serves sftp from the real filesystem.
func startServer(t *testing.T, run func(command string) (stdout, stderr string, status uint32)) testServer {
	t.Helper()

	_, private, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(private)
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		PasswordCallback: func(_ ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if string(password) == testPassword {
				return nil, nil
			}
			return nil, errors.New("access denied")
		},
	}
	config.AddHostKey(signer)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go serveConn(conn, config, run)
		}
	}()

	return testServer{addr: listener.Addr().String(), hostKey: signer.PublicKey()}
}

func serveConn(conn net.Conn, config *ssh.ServerConfig, run func(string) (string, string, uint32)) {
	_, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}

		go func() {
			for req := range requests {
				switch req.Type {
				case "exec":
					var payload struct{ Command string }
					_ = ssh.Unmarshal(req.Payload, &payload)
					req.Reply(true, nil)

					stdout, stderr, status := run(payload.Command)
					io.WriteString(channel, stdout)
					io.WriteString(channel.Stderr(), stderr)
					channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
					channel.Close()
				case "subsystem":
					var payload struct{ Name string }
					_ = ssh.Unmarshal(req.Payload, &payload)
					if payload.Name != "sftp" {
						req.Reply(false, nil)
						continue
					}
					req.Reply(true, nil)

					server, err := sftp.NewServer(channel)
					if err != nil {
						channel.Close()
						continue
					}
					go func() {
						_ = server.Serve()
						channel.Close()
					}()
				default:
					req.Reply(false, nil)
				}
			}
		}()
	}
}

func (s testServer) config(t *testing.T) Config {
	t.Helper()

	host, portString, err := net.SplitHostPort(s.addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portString)
	require.NoError(t, err)

	return NewConfig(WithHost(host), WithPort(port), WithUser("deploy"), WithPassword(testPassword))
}

func echoServer(command string) (string, string, uint32) {
	switch {
	case strings.HasPrefix(command, "echo "):
		return strings.TrimPrefix(command, "echo ") + "\n", "", 0
	case command == "false":
		return "", "boom", 3
	default:
		return "", "command not found", 127
	}
}

func TestSSHDialer_Execute(t *testing.T) {
	server := startServer(t, echoServer)

	session, err := NewSSHDialer().Dial(context.Background(), server.config(t))
	require.NoError(t, err)
	defer session.Close()

	result, err := session.Execute(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(result.Stdout))
	assert.True(t, result.Success())

	result, err = session.Execute(context.Background(), "false")
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitStatus)
	assert.Equal(t, "boom", string(result.Stderr))

	_, err = Run(context.Background(), session, "false")
	cmdErr, ok := IsCommandError(err)
	require.True(t, ok)
	assert.Equal(t, 3, cmdErr.ExitStatus)
	assert.Contains(t, err.Error(), "boom")
}

func TestSSHDialer_ExecuteCancelled(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	server := startServer(t, func(command string) (string, string, uint32) {
		if command == "sleep" {
			<-release
			return "", "", 0
		}
		return echoServer(command)
	})

	session, err := NewSSHDialer().Dial(context.Background(), server.config(t))
	require.NoError(t, err)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	started := time.Now()
	result, err := session.Execute(ctx, "sleep")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, -1, result.ExitStatus)
	assert.Less(t, time.Since(started), cancelWait+time.Second)
}

func TestSSHDialer_TransferFile(t *testing.T) {
	server := startServer(t, echoServer)

	session, err := NewSSHDialer().Dial(context.Background(), server.config(t))
	require.NoError(t, err)
	defer session.Close()

	target := filepath.Join(t.TempDir(), "workflows.json")
	require.NoError(t, session.TransferFile(context.Background(), []byte(`[{"name":"x"}]`), target))

	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"x"}]`, string(written))

	err = session.TransferFile(context.Background(), []byte("x"), filepath.Join(t.TempDir(), "missing", "dir", "file.json"))
	var transferErr *TransferError
	assert.ErrorAs(t, err, &transferErr)
}

func TestSSHDialer_KnownHosts(t *testing.T) {
	server := startServer(t, echoServer)

	knownHostsPath := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize(server.addr)}, server.hostKey)
	require.NoError(t, os.WriteFile(knownHostsPath, []byte(line+"\n"), 0o600))

	config := server.config(t)
	config.KnownHostsPath = knownHostsPath

	session, err := NewSSHDialer().Dial(context.Background(), config)
	require.NoError(t, err)
	require.NoError(t, session.Close())
	require.NoError(t, session.Close())

	_, otherKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherSigner, err := ssh.NewSignerFromKey(otherKey)
	require.NoError(t, err)

	wrongLine := knownhosts.Line([]string{knownhosts.Normalize(server.addr)}, otherSigner.PublicKey())
	require.NoError(t, os.WriteFile(knownHostsPath, []byte(wrongLine+"\n"), 0o600))

	_, err = NewSSHDialer().Dial(context.Background(), config)
	assert.True(t, IsConnectionError(err))
}

func TestSSHDialer_DialFailures(t *testing.T) {
	server := startServer(t, echoServer)

	wrongPassword := server.config(t)
	wrongPassword.Password = "nope"
	_, err := NewSSHDialer().Dial(context.Background(), wrongPassword)
	assert.True(t, IsConnectionError(err))

	noAuth := server.config(t)
	noAuth.Password = ""
	_, err = NewSSHDialer().Dial(context.Background(), noAuth)
	assert.ErrorIs(t, err, ErrNoAuthMethod)

	_, err = NewSSHDialer().Dial(context.Background(), NewConfig(WithPassword(testPassword)))
	assert.ErrorIs(t, err, ErrNoHost)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closedAddr := listener.Addr().(*net.TCPAddr)
	listener.Close()

	_, err = NewSSHDialer().Dial(context.Background(), NewConfig(
		WithHost("127.0.0.1"),
		WithPort(closedAddr.Port),
		WithPassword(testPassword),
	))
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, closedAddr.String(), connErr.Addr)
}

func TestConfig_Address(t *testing.T) {
	assert.Equal(t, "203.0.113.7:22", NewConfig(WithHost("203.0.113.7")).Address())
	assert.Equal(t, "[2001:db8::1]:2222", Config{Host: "2001:db8::1", Port: 2222}.Address())
}

func TestQuoteAndTruncate(t *testing.T) {
	assert.Equal(t, "'it'\"'\"'s here'", Quote("it's here"))
	assert.Equal(t, "/tmp/plain.json", Quote("/tmp/plain.json"))
	assert.Equal(t, "docker exec 'root n8n'", Join("docker", "exec", "root n8n"))

	assert.Equal(t, "abc", Truncate("  abc\n", 10))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
}
