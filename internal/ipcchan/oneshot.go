package ipcchan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// maxSocketPath mirrors the sun_path limit on Linux, minus the terminator.
const maxSocketPath = 107

// pairFDs is the number of descriptors carried by a pair frame: sender first.
const pairFDs = 2

// Pair bundles the two endpoints one process hands to another.
type Pair struct {
	Sender   *Sender
	Receiver *Receiver
}

// Close releases both endpoints.
func (p Pair) Close() error {
	return errors.Join(p.Sender.Close(), p.Receiver.Close())
}

// ServerOptions configures a one-shot rendezvous server.
type ServerOptions struct {
	// Dir holds the socket and lock files. Defaults to os.TempDir().
	Dir string
	// Name is the rendezvous name. Defaults to "ipcpair-<uuid>".
	Name string
}

// OneShotServer accepts exactly one connection and yields the Pair sent on it.
type OneShotServer struct {
	name     string
	path     string
	lockPath string
	listener *net.UnixListener
	lock     *flock.Flock

	mu     sync.Mutex
	used   bool
	closed bool
}

// NewOneShotServer creates a listening rendezvous endpoint. The returned
// server's Token is the address a peer passes to Connect.
func NewOneShotServer(opts ServerOptions) (*OneShotServer, error) {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create rendezvous directory: %w", err)
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = "ipcpair-" + uuid.NewString()
	}
	if strings.ContainsRune(name, filepath.Separator) {
		return nil, fmt.Errorf("rendezvous name %q must not contain %q", name, filepath.Separator)
	}

	path := filepath.Join(dir, name+".sock")
	if len(path) > maxSocketPath {
		return nil, fmt.Errorf("rendezvous socket path too long (%d > %d): %s", len(path), maxSocketPath, path)
	}
	lockPath := filepath.Join(dir, name+".lock")

	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock rendezvous name: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrNameInUse, name)
	}

	// Holding the lock means any socket file left at path is stale.
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = lock.Unlock()
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.ListenUnix("unixpacket", &net.UnixAddr{Name: path, Net: "unixpacket"})
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("listen on rendezvous socket: %w", err)
	}
	listener.SetUnlinkOnClose(true)
	if err := os.Chmod(path, 0o600); err != nil {
		_ = listener.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("restrict rendezvous socket: %w", err)
	}

	return &OneShotServer{
		name:     name,
		path:     path,
		lockPath: lockPath,
		listener: listener,
		lock:     lock,
	}, nil
}

// Token returns the rendezvous address.
func (s *OneShotServer) Token() string {
	return s.path
}

// Name returns the rendezvous name without directory or suffix.
func (s *OneShotServer) Name() string {
	return s.name
}

// Accept waits for the single connection and returns the Pair it carries.
// The server is spent afterwards whatever the outcome; canceling ctx aborts
// the wait.
func (s *OneShotServer) Accept(ctx context.Context) (Pair, error) {
	s.mu.Lock()
	if s.used || s.closed {
		s.mu.Unlock()
		return Pair{}, ErrServerSpent
	}
	s.used = true
	s.mu.Unlock()
	defer s.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = s.listener.Close()
	})
	defer stop()

	conn, err := s.listener.AcceptUnix()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Pair{}, fmt.Errorf("accept rendezvous: %w", ctxErr)
		}
		return Pair{}, fmt.Errorf("accept rendezvous: %w", err)
	}
	defer conn.Close()
	// Nothing else may connect once the first peer is in.
	_ = s.listener.Close()

	pair, err := readPair(conn)
	if err != nil {
		return Pair{}, err
	}
	ack, err := newFrame(kindText, nil, 0).encode()
	if err == nil {
		// The pair is ours even if the peer is already gone.
		_, _, _ = conn.WriteMsgUnix(ack, nil, nil)
	}
	return pair, nil
}

// Close releases the listener and the name lock. It is safe to call more than once.
func (s *OneShotServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	if rmErr := os.Remove(s.lockPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
		err = rmErr
	}
	if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	return err
}

func readPair(conn *net.UnixConn) (Pair, error) {
	buf := make([]byte, MaxFrameSize)
	oob := make([]byte, unix.CmsgSpace(pairFDs*4))
	n, oobn, _, _, err := conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return Pair{}, fmt.Errorf("read rendezvous message: %w", err)
	}
	fds, err := parseRights(oob[:oobn])
	if err != nil {
		return Pair{}, err
	}
	if n == 0 {
		closeFDs(fds)
		return Pair{}, fmt.Errorf("read rendezvous message: %w", ErrDisconnected)
	}
	f, err := decodeFrame(buf[:n])
	if err != nil {
		closeFDs(fds)
		return Pair{}, err
	}
	if f.hdr.Kind != kindPair || int(f.hdr.NumFDs) != pairFDs || len(fds) != pairFDs {
		closeFDs(fds)
		return Pair{}, fmt.Errorf("%w: expected pair with %d descriptors, got %s with %d", ErrInvalidMessage, pairFDs, f.hdr.Kind, len(fds))
	}

	tx, err := newEndpoint(fds[0], "ipcchan-tx")
	if err != nil {
		_ = unix.Close(fds[1])
		return Pair{}, err
	}
	rx, err := newEndpoint(fds[1], "ipcchan-rx")
	if err != nil {
		_ = tx.close()
		return Pair{}, err
	}
	return Pair{Sender: &Sender{ep: tx}, Receiver: &Receiver{ep: rx}}, nil
}

func parseRights(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("%w: parse control message: %v", ErrInvalidMessage, err)
	}
	var fds []int
	for i := range msgs {
		rights, err := unix.ParseUnixRights(&msgs[i])
		if err != nil {
			closeFDs(fds)
			return nil, fmt.Errorf("%w: parse rights: %v", ErrInvalidMessage, err)
		}
		fds = append(fds, rights...)
	}
	return fds, nil
}

func closeFDs(fds []int) {
	for _, fd := range fds {
		_ = unix.Close(fd)
	}
}

// RendezvousSender is a connection to a OneShotServer that can carry one Pair.
type RendezvousSender struct {
	conn *net.UnixConn
	sent bool
}

// Connect dials the rendezvous endpoint named by token.
func Connect(token string) (*RendezvousSender, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrRendezvousUnavailable)
	}
	conn, err := net.DialUnix("unixpacket", nil, &net.UnixAddr{Name: token, Net: "unixpacket"})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.ECONNREFUSED) {
			return nil, fmt.Errorf("%w: %s", ErrRendezvousUnavailable, token)
		}
		return nil, fmt.Errorf("connect rendezvous %s: %w", token, err)
	}
	return &RendezvousSender{conn: conn}, nil
}

// Send transmits p and waits for the server to acknowledge it. On success the
// local endpoints are closed and belong to the other process; on failure the
// caller still owns p.
func (r *RendezvousSender) Send(p Pair) error {
	if r.sent {
		return ErrServerSpent
	}
	if p.Sender == nil || p.Receiver == nil {
		return errors.New("rendezvous send requires both a sender and a receiver")
	}
	txFD, err := p.Sender.ep.rawFD()
	if err != nil {
		return fmt.Errorf("pair sender: %w", err)
	}
	rxFD, err := p.Receiver.ep.rawFD()
	if err != nil {
		return fmt.Errorf("pair receiver: %w", err)
	}
	data, err := newFrame(kindPair, nil, pairFDs).encode()
	if err != nil {
		return err
	}
	r.sent = true
	if _, _, err := r.conn.WriteMsgUnix(data, unix.UnixRights(txFD, rxFD), nil); err != nil {
		return fmt.Errorf("%w: %v", ErrRendezvousUnavailable, err)
	}

	buf := make([]byte, HeaderSize)
	n, _, _, _, err := r.conn.ReadMsgUnix(buf, nil)
	if err != nil || n == 0 {
		if err == nil {
			err = ErrDisconnected
		}
		return fmt.Errorf("%w: no acknowledgement: %v", ErrRendezvousUnavailable, err)
	}
	_ = r.conn.Close()
	return p.Close()
}

// Close drops the rendezvous connection.
func (r *RendezvousSender) Close() error {
	if r == nil || r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
