package session

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"ipcpair/internal/logging"
)

// MessageSender is the sending half of a channel.
type MessageSender interface {
	Send(text string) error
}

// MessageReceiver is the receiving half of a channel. A non-positive timeout
// waits forever.
type MessageReceiver interface {
	RecvTimeout(d time.Duration) (string, error)
}

// Exchange is one message and the reply it produced.
type Exchange struct {
	Sent  string
	Reply string
}

// LoopOptions configures a session loop.
type LoopOptions struct {
	// RecvTimeout bounds each receive. Zero waits forever.
	RecvTimeout time.Duration
	// Out receives progress lines, Err receives failure lines.
	Out    io.Writer
	Err    io.Writer
	Logger *slog.Logger
}

func (o LoopOptions) withDefaults() LoopOptions {
	if o.Out == nil {
		o.Out = io.Discard
	}
	if o.Err == nil {
		o.Err = io.Discard
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o
}

// ParentLoop sends each message in order, waiting for exactly one reply after
// each, then sends the sentinel. A failed receive stops the loop without
// sending anything further, the sentinel included; the error wraps
// ErrReplyFailed. A failed send wraps ErrSendFailed.
func ParentLoop(tx MessageSender, rx MessageReceiver, messages []string, opts LoopOptions) ([]Exchange, error) {
	opts = opts.withDefaults()
	for i, msg := range messages {
		if msg == Sentinel {
			return nil, fmt.Errorf("%w: message %d", ErrReservedMessage, i+1)
		}
	}

	exchanges := make([]Exchange, 0, len(messages))
	for i, msg := range messages {
		logger := opts.Logger.With(logging.Int(logging.FieldMessageIndex, i+1))
		logger.Debug("sending message", logging.String("message", msg))
		if err := tx.Send(msg); err != nil {
			logging.ErrorWithContext(logger, "send to child failed", "message_send_failed", logging.Error(err))
			return exchanges, fmt.Errorf("%w: message %d: %w", ErrSendFailed, i+1, err)
		}

		reply, err := rx.RecvTimeout(opts.RecvTimeout)
		if err != nil {
			fmt.Fprintf(opts.Err, "Error receiving message: %v\n", err)
			logging.WarnWithContext(logger, "reply not received", "reply_receive_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "remaining messages and the sentinel are not sent"),
			)
			return exchanges, fmt.Errorf("%w: message %d: %w", ErrReplyFailed, i+1, err)
		}
		fmt.Fprintf(opts.Out, "Received from child: %s\n", reply)
		logger.Debug("reply received", logging.String("reply", reply))
		exchanges = append(exchanges, Exchange{Sent: msg, Reply: reply})
	}

	if err := tx.Send(Sentinel); err != nil {
		logging.ErrorWithContext(opts.Logger, "sentinel send failed", "sentinel_send_failed", logging.Error(err))
		return exchanges, fmt.Errorf("%w: sentinel: %w", ErrSendFailed, err)
	}
	opts.Logger.Debug("sentinel sent")
	return exchanges, nil
}

// Termination says why a child loop stopped.
type Termination int

const (
	// TerminatedBySentinel means the parent sent "quit".
	TerminatedBySentinel Termination = iota + 1
	// TerminatedByReceiveFailure means the command channel failed or closed.
	TerminatedByReceiveFailure
	// TerminatedBySendFailure means a reply could not be sent.
	TerminatedBySendFailure
)

func (t Termination) String() string {
	switch t {
	case TerminatedBySentinel:
		return "sentinel"
	case TerminatedByReceiveFailure:
		return "receive_failure"
	case TerminatedBySendFailure:
		return "send_failure"
	default:
		return fmt.Sprintf("termination(%d)", int(t))
	}
}

// ChildLoop answers every message with Reply until the sentinel arrives or a
// receive fails. Only a send failure is returned as an error.
func ChildLoop(rx MessageReceiver, tx MessageSender, opts LoopOptions) (Termination, error) {
	opts = opts.withDefaults()
	for handled := 1; ; handled++ {
		msg, err := rx.RecvTimeout(opts.RecvTimeout)
		if err != nil {
			fmt.Fprintf(opts.Err, "Error receiving message: %v\n", err)
			opts.Logger.Info("command channel closed", logging.Error(err), logging.Int("handled", handled-1))
			return TerminatedByReceiveFailure, nil
		}
		fmt.Fprintf(opts.Out, "Received from parent: %s\n", msg)
		if msg == Sentinel {
			fmt.Fprintln(opts.Out, "Child process exiting.")
			opts.Logger.Debug("sentinel received", logging.Int("handled", handled-1))
			return TerminatedBySentinel, nil
		}
		if err := tx.Send(Reply(msg)); err != nil {
			logging.ErrorWithContext(opts.Logger, "reply send failed", "reply_send_failed",
				logging.Int(logging.FieldMessageIndex, handled),
				logging.Error(err),
			)
			return TerminatedBySendFailure, fmt.Errorf("%w: reply %d: %w", ErrSendFailed, handled, err)
		}
	}
}
