package session

import "errors"

// Sentinel ends a session. It is never answered.
const Sentinel = "quit"

// ReplyPrefix starts every child reply.
const ReplyPrefix = "Child received: "

// Reply is the child's answer to a regular message.
func Reply(msg string) string {
	return ReplyPrefix + msg
}

var (
	// ErrSendFailed wraps a failed send. It is fatal to the session.
	ErrSendFailed = errors.New("send failed")
	// ErrReplyFailed wraps a failed wait for a reply. The parent stops sending
	// and proceeds to wait on the child.
	ErrReplyFailed = errors.New("reply not received")
	// ErrReservedMessage rejects a message sequence containing the sentinel.
	ErrReservedMessage = errors.New("message sequence contains the sentinel")
	// ErrChildExited reports a child that exited before completing the handshake.
	ErrChildExited = errors.New("child exited before connecting")
)
