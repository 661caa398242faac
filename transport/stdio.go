package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/observerw/lsp-client/lsperr"
	"github.com/observerw/lsp-client/logger"
)

// Stdio spawns a language server as a host process and speaks LSP over its
// stdin/stdout pipes. This is the core's in-scope default transport,
// grounded on original_source's LocalServer/process_worker (spawn a
// subprocess, wire stdin/stdout as the duplex stream) and translated into
// the teacher's own os/exec idiom (none of the retrieved teacher transports
// use stdio directly since they dial an already-running server, but the
// spawn/pipe/kill shape mirrors how any process supervisor in this stack
// would be written).
type Stdio struct {
	Command string
	Args    []string
	Env     []string
	Dir     string

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

func NewStdio(command string, args ...string) *Stdio {
	return &Stdio{Command: command, Args: args}
}

func (s *Stdio) Start(ctx context.Context) (io.ReadWriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return nil, lsperr.New(lsperr.InternalError, "", fmt.Errorf("stdio transport already started"))
	}

	cmd := exec.CommandContext(ctx, s.Command, s.Args...)
	if s.Dir != "" {
		cmd.Dir = s.Dir
	}
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}
	cmd.Stderr = &stderrLogWriter{}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, lsperr.New(lsperr.InternalError, "", fmt.Errorf("stdin pipe: %w", err))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, lsperr.New(lsperr.InternalError, "", fmt.Errorf("stdout pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return nil, lsperr.New(lsperr.InternalError, "", fmt.Errorf("start %s: %w", s.Command, err))
	}

	s.cmd = cmd
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := cmd.Wait(); err != nil {
			logger.Debug("language server process exited", "command", s.Command, "err", err)
		}
	}()

	return joinRWC(stdout, stdin), nil
}

func (s *Stdio) Kill() error {
	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	// Idempotent: killing an already-exited process returns an error we
	// discard, matching original_source's best-effort process teardown.
	_ = cmd.Process.Kill()
	return nil
}

// stderrLogWriter forwards the server's stderr into the structured logger
// instead of letting it interleave with the host process's own stdout.
type stderrLogWriter struct{}

func (stderrLogWriter) Write(p []byte) (int, error) {
	logger.Debug("language server stderr", "line", string(p))
	return len(p), nil
}
