package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"ipcpair/internal/ipcchan"
	"ipcpair/internal/logging"
)

var errConnectTimeout = errors.New("child did not connect before the connect timeout")

// Options configures RunParent.
type Options struct {
	Transport   Transport
	ChildOutput OutputMode
	Messages    []string

	// ReplyTimeout bounds each wait for a reply. Zero waits forever.
	ReplyTimeout time.Duration
	// ConnectTimeout bounds the wait for the child to connect. Zero waits forever.
	ConnectTimeout time.Duration

	RendezvousDir  string
	RendezvousName string

	Executable string
	// ChildArgs precede the token argument on the child's command line.
	ChildArgs []string
	// ChildEnv is appended to the child's environment.
	ChildEnv []string

	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Result describes a finished parent session.
type Result struct {
	SessionID   string
	Token       string
	ChildPID    int
	Exchanges   []Exchange
	ChildOutput []byte
	ExitCode    int
	// LoopErr is the receive failure that cut the session short, if any.
	LoopErr error
}

// ChildSucceeded reports whether the child exited with status 0.
func (r Result) ChildSucceeded() bool {
	return r.ChildPID > 0 && r.ExitCode == 0
}

// RunParent runs one complete session: it creates the rendezvous endpoint,
// spawns the child, accepts the child's channel pair, runs ParentLoop and
// waits for the child to exit. Once the child is spawned it is always waited
// on. The returned error is non-nil for setup and send failures and when ctx
// is canceled mid-session; a failed receive is reported in Result.LoopErr.
func RunParent(ctx context.Context, opts Options) (Result, error) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	output := opts.ChildOutput
	if output == "" {
		output = OutputInherit
	}
	stdout, stderr = SyncWriter(stdout), SyncWriter(stderr)
	for i, msg := range opts.Messages {
		if msg == Sentinel {
			return Result{}, fmt.Errorf("%w: message %d", ErrReservedMessage, i+1)
		}
	}

	fmt.Fprintln(stdout, "Parent process started")

	server, err := ipcchan.NewOneShotServer(ipcchan.ServerOptions{Dir: opts.RendezvousDir, Name: opts.RendezvousName})
	if err != nil {
		return Result{}, fmt.Errorf("create rendezvous: %w", err)
	}
	defer server.Close()

	result := Result{SessionID: server.Name(), Token: server.Token(), ExitCode: -1}
	ctx = logging.ContextWithRole(ctx, "parent")
	logger = logging.WithSession(logger, result.SessionID).With(logging.Int(logging.FieldPID, os.Getpid()))
	fmt.Fprintf(stdout, "One Shot Server name - Parent: %s\n", result.Token)
	logger.Debug("rendezvous endpoint ready", logging.String("token", result.Token))

	child, err := Spawn(SpawnOptions{
		Executable: opts.Executable,
		Args:       opts.ChildArgs,
		Env:        opts.ChildEnv,
		Transport:  opts.Transport,
		Token:      result.Token,
		Output:     output,
		Stdout:     stdout,
		Stderr:     stderr,
	})
	if err != nil {
		return result, err
	}
	result.ChildPID = child.PID()
	ctx = logging.ContextWithPeerPID(ctx, result.ChildPID)
	logger = logging.WithContext(ctx, logger)
	fmt.Fprintf(stdout, "Child process ID: %d\n", result.ChildPID)
	logger.Info("child spawned",
		logging.String("transport", string(opts.Transport)),
		logging.String("child_output", string(output)),
	)

	pair, err := acceptPair(ctx, server, child, opts.ConnectTimeout)
	if err != nil {
		logging.ErrorWithContext(logger, "handshake failed", "handshake_failed", logging.Error(err))
		_ = child.Kill()
		finishChild(&result, child, output, stdout, stderr, logger)
		return result, err
	}
	logger.Info("channel established")

	// Cancellation fails the pending receive and stops the child; the child
	// is still waited on below.
	stop := context.AfterFunc(ctx, func() {
		_ = child.Kill()
		_ = pair.Close()
	})
	defer stop()

	exchanges, loopErr := ParentLoop(pair.Sender, pair.Receiver, opts.Messages, LoopOptions{
		RecvTimeout: opts.ReplyTimeout,
		Out:         stdout,
		Err:         stderr,
		Logger:      logger,
	})
	result.Exchanges = exchanges
	if errors.Is(loopErr, ipcchan.ErrTimeout) {
		logging.WarnWithContext(logger, "reply timed out, stopping child", "reply_timeout",
			logging.Duration("reply_timeout", opts.ReplyTimeout),
			logging.String(logging.FieldImpact, "child is killed"),
		)
		_ = child.Kill()
	}
	// Dropping our ends unblocks a child still waiting for a command.
	if err := pair.Close(); err != nil {
		logger.Debug("close channel pair", logging.Error(err))
	}

	finishChild(&result, child, output, stdout, stderr, logger)
	if ctx.Err() != nil {
		result.LoopErr = loopErr
		return result, fmt.Errorf("session interrupted: %w", context.Cause(ctx))
	}
	if loopErr != nil && !errors.Is(loopErr, ErrReplyFailed) {
		return result, loopErr
	}
	result.LoopErr = loopErr
	return result, nil
}

// finishChild waits for the child, flushes captured output and prints the
// exit banner.
func finishChild(result *Result, child *Child, output OutputMode, stdout, stderr io.Writer, logger *slog.Logger) {
	waitErr := child.Wait()
	result.ExitCode = child.ExitCode()
	if output == OutputCapture {
		result.ChildOutput = child.Output()
		if len(result.ChildOutput) > 0 {
			_, _ = stdout.Write(result.ChildOutput)
		}
	}
	if waitErr == nil {
		fmt.Fprintln(stdout, "Child process exited successfully.")
		logger.Info("child exited", logging.Int("exit_code", result.ExitCode))
		return
	}
	fmt.Fprintln(stderr, "Child process exited with an error.")
	logging.WarnWithContext(logger, "child exited with an error", "child_failed",
		logging.Int("exit_code", result.ExitCode),
		logging.Error(waitErr),
		logging.String(logging.FieldImpact, "session reported as failed"),
	)
}

// acceptPair waits for the child's pair. The wait ends early if the child
// exits first or the connect timeout expires.
func acceptPair(ctx context.Context, server *ipcchan.OneShotServer, child *Child, timeout time.Duration) (ipcchan.Pair, error) {
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeoutCause(ctx, timeout, errConnectTimeout)
		defer cancelTimeout()
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	go func() {
		select {
		case <-child.Done():
			cancel(fmt.Errorf("%w (exit code %d)", ErrChildExited, child.ExitCode()))
		case <-ctx.Done():
		}
	}()

	pair, err := server.Accept(ctx)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return ipcchan.Pair{}, fmt.Errorf("accept child connection: %w", cause)
		}
		return ipcchan.Pair{}, fmt.Errorf("accept child connection: %w", err)
	}
	return pair, nil
}
