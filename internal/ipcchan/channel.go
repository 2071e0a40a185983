package ipcchan

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sys/unix"
)

// endpoint is one end of a seqpacket socketpair.
type endpoint struct {
	mu     sync.Mutex
	conn   *net.UnixConn
	closed bool
}

func newEndpoint(fd int, name string) (*endpoint, error) {
	file := os.NewFile(uintptr(fd), name)
	if file == nil {
		return nil, fmt.Errorf("wrap fd %d: invalid descriptor", fd)
	}
	// FileConn dups the descriptor; the original is closed either way.
	defer file.Close()

	conn, err := net.FileConn(file)
	if err != nil {
		return nil, fmt.Errorf("wrap fd %d: %w", fd, err)
	}
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("wrap fd %d: not a unix socket (%T)", fd, conn)
	}
	return &endpoint{conn: uc}, nil
}

func (e *endpoint) get() (*net.UnixConn, error) {
	if e == nil {
		return nil, ErrClosed
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.conn == nil {
		return nil, ErrClosed
	}
	return e.conn, nil
}

// rawFD returns the descriptor without changing its blocking mode. The value
// stays valid until the endpoint is closed.
func (e *endpoint) rawFD() (int, error) {
	conn, err := e.get()
	if err != nil {
		return -1, err
	}
	rc, err := conn.SyscallConn()
	if err != nil {
		return -1, err
	}
	fd := -1
	if err := rc.Control(func(v uintptr) { fd = int(v) }); err != nil {
		return -1, err
	}
	return fd, nil
}

func (e *endpoint) close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.conn == nil {
		return nil
	}
	return e.conn.Close()
}

// Sender is the sending half of a channel.
type Sender struct {
	ep *endpoint
}

// Receiver is the receiving half of a channel.
type Receiver struct {
	ep *endpoint
}

// Channel creates a new unidirectional channel.
func Channel() (*Sender, *Receiver, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("create socketpair: %w", err)
	}
	tx, err := newEndpoint(fds[0], "ipcchan-tx")
	if err != nil {
		_ = unix.Close(fds[1])
		return nil, nil, err
	}
	rx, err := newEndpoint(fds[1], "ipcchan-rx")
	if err != nil {
		_ = tx.close()
		return nil, nil, err
	}
	return &Sender{ep: tx}, &Receiver{ep: rx}, nil
}

// Send writes one text message. It fails with ErrInvalidMessage when text is
// not valid UTF-8 and with ErrMessageTooLarge when it does not fit in a frame.
func (s *Sender) Send(text string) error {
	if s == nil {
		return ErrClosed
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: payload is not valid UTF-8", ErrInvalidMessage)
	}
	if len(text) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLarge, len(text), MaxMessageSize)
	}
	conn, err := s.ep.get()
	if err != nil {
		return err
	}
	data, err := newFrame(kindText, []byte(text), 0).encode()
	if err != nil {
		return err
	}
	if _, _, err := conn.WriteMsgUnix(data, nil, nil); err != nil {
		if isDisconnect(err) {
			return fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Close releases the sending endpoint. The peer Receiver observes
// ErrDisconnected once queued messages are drained.
func (s *Sender) Close() error {
	if s == nil {
		return nil
	}
	return s.ep.close()
}

// Recv blocks until a message arrives or the channel is disconnected.
func (r *Receiver) Recv() (string, error) {
	if r == nil {
		return "", ErrClosed
	}
	conn, err := r.ep.get()
	if err != nil {
		return "", err
	}
	buf := make([]byte, MaxFrameSize)
	n, _, _, _, err := conn.ReadMsgUnix(buf, nil)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrDeadlineExceeded):
			return "", ErrTimeout
		case errors.Is(err, io.EOF), isDisconnect(err):
			return "", ErrDisconnected
		case errors.Is(err, net.ErrClosed):
			return "", ErrClosed
		}
		return "", fmt.Errorf("receive: %w", err)
	}
	// A zero-length read on a seqpacket socket means the peer hung up; every
	// real frame carries a header.
	if n == 0 {
		return "", ErrDisconnected
	}
	f, err := decodeFrame(buf[:n])
	if err != nil {
		return "", err
	}
	if f.hdr.Kind != kindText {
		return "", fmt.Errorf("%w: unexpected %s frame", ErrInvalidMessage, f.hdr.Kind)
	}
	return string(f.payload), nil
}

// RecvTimeout is Recv bounded by d. A non-positive d waits forever.
func (r *Receiver) RecvTimeout(d time.Duration) (string, error) {
	if d <= 0 {
		return r.Recv()
	}
	conn, err := r.ep.get()
	if err != nil {
		return "", err
	}
	if err := conn.SetReadDeadline(time.Now().Add(d)); err != nil {
		return "", fmt.Errorf("set read deadline: %w", err)
	}
	defer conn.SetReadDeadline(time.Time{}) //nolint:errcheck
	return r.Recv()
}

// Close releases the receiving endpoint.
func (r *Receiver) Close() error {
	if r == nil {
		return nil
	}
	return r.ep.close()
}

func isDisconnect(err error) bool {
	return errors.Is(err, unix.EPIPE) ||
		errors.Is(err, unix.ECONNRESET) ||
		errors.Is(err, unix.ENOTCONN)
}
