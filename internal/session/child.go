package session

import (
	"context"
	"fmt"
	"os"

	"ipcpair/internal/ipcchan"
	"ipcpair/internal/logging"
)

// RunChild performs the child side of the handshake and answers messages
// until the sentinel arrives. It creates the command and reply channels, hands
// the parent's ends over the rendezvous connection and keeps its own.
// Canceling ctx closes the command channel, which ends the loop.
func RunChild(ctx context.Context, cfg ChildConfig, opts LoopOptions) (Termination, error) {
	opts = opts.withDefaults()
	if cfg.Token == "" {
		return 0, ErrMissingToken
	}
	opts.Logger = logging.WithContext(logging.ContextWithRole(ctx, "child"),
		logging.WithSession(opts.Logger, cfg.SessionID()).With(
			logging.Int(logging.FieldPID, os.Getpid()),
			logging.String("token_source", string(cfg.Source)),
		))

	fmt.Fprintln(opts.Out, "Child process started")
	fmt.Fprintf(opts.Out, "One Shot Server name: %s\n", cfg.Token)

	cmdTx, cmdRx, err := ipcchan.Channel()
	if err != nil {
		return 0, fmt.Errorf("create command channel: %w", err)
	}
	defer cmdRx.Close()
	replyTx, replyRx, err := ipcchan.Channel()
	if err != nil {
		_ = cmdTx.Close()
		return 0, fmt.Errorf("create reply channel: %w", err)
	}
	defer replyTx.Close()

	rendezvous, err := ipcchan.Connect(cfg.Token)
	if err != nil {
		_ = cmdTx.Close()
		_ = replyRx.Close()
		return 0, err
	}
	defer rendezvous.Close()
	parentEnds := ipcchan.Pair{Sender: cmdTx, Receiver: replyRx}
	if err := rendezvous.Send(parentEnds); err != nil {
		_ = parentEnds.Close()
		return 0, fmt.Errorf("hand channels to parent: %w", err)
	}
	opts.Logger.Debug("channel pair handed to parent")

	stop := context.AfterFunc(ctx, func() {
		_ = cmdRx.Close()
	})
	defer stop()

	term, err := ChildLoop(cmdRx, replyTx, opts)
	fmt.Fprintln(opts.Out, "Child process finished.")
	opts.Logger.Debug("session loop ended", logging.String("termination", term.String()))
	return term, err
}
