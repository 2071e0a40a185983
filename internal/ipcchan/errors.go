package ipcchan

import "errors"

var (
	// ErrDisconnected indicates the peer endpoint was closed.
	ErrDisconnected = errors.New("ipcchan: channel disconnected")
	// ErrClosed indicates use of an endpoint after Close or transfer.
	ErrClosed = errors.New("ipcchan: endpoint closed")
	// ErrTimeout indicates a receive deadline expired before a message arrived.
	ErrTimeout = errors.New("ipcchan: receive timed out")
	// ErrMessageTooLarge indicates a payload that does not fit in one frame.
	ErrMessageTooLarge = errors.New("ipcchan: message too large")
	// ErrInvalidMessage indicates a malformed frame or a non UTF-8 payload.
	ErrInvalidMessage = errors.New("ipcchan: invalid message")
	// ErrServerSpent indicates a second Accept on a one-shot server.
	ErrServerSpent = errors.New("ipcchan: one-shot server already used")
	// ErrRendezvousUnavailable indicates the rendezvous endpoint is gone or was never created.
	ErrRendezvousUnavailable = errors.New("ipcchan: rendezvous endpoint unavailable")
	// ErrNameInUse indicates another live server holds the rendezvous name.
	ErrNameInUse = errors.New("ipcchan: rendezvous name in use")
)
