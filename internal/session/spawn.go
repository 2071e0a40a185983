package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// SpawnOptions controls how the child process is launched.
type SpawnOptions struct {
	Executable string
	// Args precede the token argument, e.g. the "child" subcommand.
	Args []string
	// Env is appended to the parent's environment.
	Env       []string
	Transport Transport
	Token     string
	Output    OutputMode
	Stdout    io.Writer
	Stderr    io.Writer
}

// Child is a running child process. A background goroutine reaps it so its
// exit can be observed while the parent is blocked elsewhere.
type Child struct {
	cmd      *exec.Cmd
	captured *bytes.Buffer
	done     chan struct{}
	waitErr  error
}

// Spawn starts the child with the rendezvous token delivered by opts.Transport.
func Spawn(opts SpawnOptions) (*Child, error) {
	executable := strings.TrimSpace(opts.Executable)
	if executable == "" {
		return nil, errors.New("spawn child: executable path is empty")
	}
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("spawn child: rendezvous token is empty")
	}

	args := append([]string(nil), opts.Args...)
	env := withoutVar(os.Environ(), TokenEnvVar)
	env = append(env, opts.Env...)
	switch opts.Transport {
	case TransportArg, "":
		args = append(args, TokenArgPrefix+opts.Token)
	case TransportEnv:
		env = append(env, TokenEnvVar+"="+opts.Token)
	default:
		return nil, fmt.Errorf("spawn child: unknown transport %q", opts.Transport)
	}

	cmd := exec.Command(executable, args...)
	cmd.Env = env
	cmd.Stderr = opts.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	child := &Child{cmd: cmd, done: make(chan struct{})}
	switch opts.Output {
	case OutputCapture:
		child.captured = &bytes.Buffer{}
		cmd.Stdout = child.captured
	case OutputInherit, "":
		cmd.Stdout = opts.Stdout
		if cmd.Stdout == nil {
			cmd.Stdout = os.Stdout
		}
	default:
		return nil, fmt.Errorf("spawn child: unknown output mode %q", opts.Output)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn child: %w", err)
	}
	go func() {
		child.waitErr = cmd.Wait()
		close(child.done)
	}()
	return child, nil
}

// PID returns the child's process ID.
func (c *Child) PID() int {
	return c.cmd.Process.Pid
}

// Done is closed once the child has exited and been reaped.
func (c *Child) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the child exits and returns its wait error.
func (c *Child) Wait() error {
	<-c.done
	return c.waitErr
}

// ExitCode blocks until the child exits. It is -1 when the child was killed by a signal.
func (c *Child) ExitCode() int {
	<-c.done
	if c.cmd.ProcessState == nil {
		return -1
	}
	return c.cmd.ProcessState.ExitCode()
}

// Output returns captured stdout. It is empty unless the child was spawned
// with OutputCapture, and blocks until the child exits.
func (c *Child) Output() []byte {
	<-c.done
	if c.captured == nil {
		return nil
	}
	return c.captured.Bytes()
}

// Kill terminates the child. Killing an exited child is not an error.
func (c *Child) Kill() error {
	select {
	case <-c.done:
		return nil
	default:
	}
	if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill child %d: %w", c.PID(), err)
	}
	return nil
}

func withoutVar(env []string, name string) []string {
	prefix := name + "="
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// SyncWriter returns w guarded by a mutex, unless w is a file. exec copies
// child output into a non-file writer on its own goroutine, so a writer shared
// between the child and this process must serialize writes. Wrapping twice
// returns the same guard.
func SyncWriter(w io.Writer) io.Writer {
	switch w.(type) {
	case *os.File, *syncWriter:
		return w
	}
	return &syncWriter{w: w}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
