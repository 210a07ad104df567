// Package remotetest provides an in-memory Session and Dialer for tests.
package remotetest

import (
	"context"
	"strings"
	"sync"

	"github.com/flowbaker/deployer/internal/remote"
	"github.com/google/shlex"
)

// Handler answers one command. It sees the session so that it can read or
// write Files.
type Handler func(s *Session, command string) (remote.Result, error)

type route struct {
	contains string
	handler  Handler
}

// Session records every command and transfer. Commands are matched against
// routes in registration order by substring; `cat` and `cp` work on Files;
// anything else exits 127.
type Session struct {
	mu sync.Mutex

	Files     map[string][]byte
	Commands  []string
	Transfers []string
	Closed    int

	// TransferErr fails the transfer of a given path.
	TransferErr map[string]error

	routes []route
}

func NewSession() *Session {
	return &Session{
		Files:       map[string][]byte{},
		TransferErr: map[string]error{},
	}
}

// On registers a handler for commands containing substr.
func (s *Session) On(substr string, handler Handler) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.routes = append(s.routes, route{contains: substr, handler: handler})

	return s
}

// Reply registers a fixed result for commands containing substr.
func (s *Session) Reply(substr string, stdout string, exitStatus int) *Session {
	return s.On(substr, func(*Session, string) (remote.Result, error) {
		return remote.Result{Stdout: []byte(stdout), ExitStatus: exitStatus}, nil
	})
}

func (s *Session) Execute(ctx context.Context, command string) (remote.Result, error) {
	if err := ctx.Err(); err != nil {
		return remote.Result{ExitStatus: -1}, err
	}

	s.mu.Lock()
	s.Commands = append(s.Commands, command)
	routes := append([]route(nil), s.routes...)
	s.mu.Unlock()

	for _, r := range routes {
		if strings.Contains(command, r.contains) {
			return r.handler(s, command)
		}
	}

	args, err := shlex.Split(command)
	if err == nil && len(args) > 0 {
		switch args[0] {
		case "cat":
			return s.cat(args[1:])
		case "cp":
			return s.cp(args[1:])
		}
	}

	return remote.Result{Stderr: []byte("command not found"), ExitStatus: 127}, nil
}

func (s *Session) TransferFile(ctx context.Context, data []byte, path string) error {
	if err := ctx.Err(); err != nil {
		return &remote.TransferError{Path: path, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.Transfers = append(s.Transfers, path)

	if err := s.TransferErr[path]; err != nil {
		return &remote.TransferError{Path: path, Err: err}
	}

	s.Files[path] = append([]byte(nil), data...)

	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Closed++

	return nil
}

// File returns the content written to path.
func (s *Session) File(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.Files[path]

	return data, ok
}

// Ran reports whether any recorded command contains substr.
func (s *Session) Ran(substr string) bool {
	return s.Count(substr) > 0
}

// Count returns how many recorded commands contain substr.
func (s *Session) Count(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, c := range s.Commands {
		if strings.Contains(c, substr) {
			count++
		}
	}

	return count
}

func (s *Session) cat(paths []string) (remote.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []byte
	for _, p := range paths {
		data, ok := s.Files[p]
		if !ok {
			return remote.Result{Stderr: []byte("cat: " + p + ": No such file or directory"), ExitStatus: 1}, nil
		}
		out = append(out, data...)
	}

	return remote.Result{Stdout: out}, nil
}

func (s *Session) cp(args []string) (remote.Result, error) {
	var paths []string
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			paths = append(paths, a)
		}
	}

	if len(paths) != 2 {
		return remote.Result{Stderr: []byte("cp: missing operand"), ExitStatus: 1}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.Files[paths[0]]
	if !ok {
		return remote.Result{Stderr: []byte("cp: cannot stat " + paths[0]), ExitStatus: 1}, nil
	}
	s.Files[paths[1]] = append([]byte(nil), data...)

	return remote.Result{}, nil
}

// Dialer hands out Session, or fails with Err.
type Dialer struct {
	Session *Session
	Err     error

	mu    sync.Mutex
	Dials []remote.Config
}

func (d *Dialer) Dial(ctx context.Context, config remote.Config) (remote.Session, error) {
	d.mu.Lock()
	d.Dials = append(d.Dials, config)
	d.mu.Unlock()

	if d.Err != nil {
		return nil, &remote.ConnectionError{Addr: config.Address(), Err: d.Err}
	}

	return d.Session, nil
}
