package session_test

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"ipcpair/internal/ipcchan"
	"ipcpair/internal/session"
)

var defaultMessages = []string{"Hello from parent", "How are you?", "Goodbye!"}

// recorder is a MessageSender that keeps what it was given.
type recorder struct {
	sent   []string
	failAt int
}

func (r *recorder) Send(text string) error {
	if r.failAt > 0 && len(r.sent)+1 == r.failAt {
		return ipcchan.ErrDisconnected
	}
	r.sent = append(r.sent, text)
	return nil
}

// script is a MessageReceiver that replays fixed results.
type script struct {
	replies []string
	errAt   int
	calls   int
}

func (s *script) RecvTimeout(time.Duration) (string, error) {
	s.calls++
	if s.errAt > 0 && s.calls == s.errAt {
		return "", ipcchan.ErrDisconnected
	}
	if s.calls > len(s.replies) {
		return "", ipcchan.ErrDisconnected
	}
	return s.replies[s.calls-1], nil
}

func newPipe(t *testing.T) (*ipcchan.Sender, *ipcchan.Receiver) {
	t.Helper()
	tx, rx, err := ipcchan.Channel()
	if err != nil {
		t.Fatalf("Channel: %v", err)
	}
	t.Cleanup(func() {
		tx.Close()
		rx.Close()
	})
	return tx, rx
}

func TestParentAndChildLoopsOverChannels(t *testing.T) {
	cmdTx, cmdRx := newPipe(t)
	replyTx, replyRx := newPipe(t)

	var childOut bytes.Buffer
	type outcome struct {
		term session.Termination
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		term, err := session.ChildLoop(cmdRx, replyTx, session.LoopOptions{Out: &childOut})
		done <- outcome{term, err}
	}()

	var parentOut bytes.Buffer
	exchanges, err := session.ParentLoop(cmdTx, replyRx, defaultMessages, session.LoopOptions{Out: &parentOut, RecvTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("ParentLoop: %v", err)
	}

	res := <-done
	if res.err != nil || res.term != session.TerminatedBySentinel {
		t.Fatalf("ChildLoop = %s, %v", res.term, res.err)
	}

	if len(exchanges) != len(defaultMessages) {
		t.Fatalf("expected %d exchanges, got %d", len(defaultMessages), len(exchanges))
	}
	for i, ex := range exchanges {
		if ex.Sent != defaultMessages[i] || ex.Reply != session.Reply(defaultMessages[i]) {
			t.Fatalf("exchange %d = %+v", i, ex)
		}
	}

	wantParent := "Received from child: Child received: Hello from parent\n" +
		"Received from child: Child received: How are you?\n" +
		"Received from child: Child received: Goodbye!\n"
	if parentOut.String() != wantParent {
		t.Fatalf("parent output:\n%s", parentOut.String())
	}
	if !strings.HasSuffix(childOut.String(), "Received from parent: quit\nChild process exiting.\n") {
		t.Fatalf("child output:\n%s", childOut.String())
	}

	// The sentinel is never answered.
	if msg, err := replyRx.RecvTimeout(50 * time.Millisecond); !errors.Is(err, ipcchan.ErrTimeout) {
		t.Fatalf("unexpected reply after sentinel: %q, %v", msg, err)
	}
}

func TestParentLoopStopsOnReceiveFailure(t *testing.T) {
	tx := &recorder{}
	rx := &script{replies: []string{"first"}, errAt: 2}
	var errOut bytes.Buffer

	exchanges, err := session.ParentLoop(tx, rx, defaultMessages, session.LoopOptions{Err: &errOut})
	if !errors.Is(err, session.ErrReplyFailed) || !errors.Is(err, ipcchan.ErrDisconnected) {
		t.Fatalf("expected reply failure, got %v", err)
	}
	if len(exchanges) != 1 {
		t.Fatalf("expected one completed exchange, got %d", len(exchanges))
	}
	// No further messages and no sentinel after the failure.
	if !reflect.DeepEqual(tx.sent, defaultMessages[:2]) {
		t.Fatalf("unexpected sends: %v", tx.sent)
	}
	if !strings.HasPrefix(errOut.String(), "Error receiving message: ") {
		t.Fatalf("expected diagnostic, got %q", errOut.String())
	}
}

func TestParentLoopSendFailure(t *testing.T) {
	tx := &recorder{failAt: 2}
	rx := &script{replies: []string{"a", "b", "c"}}

	_, err := session.ParentLoop(tx, rx, defaultMessages, session.LoopOptions{})
	if !errors.Is(err, session.ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}
	if rx.calls != 1 {
		t.Fatalf("expected one receive before the failed send, got %d", rx.calls)
	}
}

func TestParentLoopRejectsSentinelInSequence(t *testing.T) {
	tx := &recorder{}
	_, err := session.ParentLoop(tx, &script{}, []string{"hi", session.Sentinel}, session.LoopOptions{})
	if !errors.Is(err, session.ErrReservedMessage) {
		t.Fatalf("expected ErrReservedMessage, got %v", err)
	}
	if len(tx.sent) != 0 {
		t.Fatalf("nothing should be sent, got %v", tx.sent)
	}
}

func TestParentLoopEmptySequenceSendsOnlySentinel(t *testing.T) {
	tx := &recorder{}
	exchanges, err := session.ParentLoop(tx, &script{}, nil, session.LoopOptions{})
	if err != nil {
		t.Fatalf("ParentLoop: %v", err)
	}
	if len(exchanges) != 0 || !reflect.DeepEqual(tx.sent, []string{session.Sentinel}) {
		t.Fatalf("unexpected result: exchanges=%v sent=%v", exchanges, tx.sent)
	}
}

func TestParentLoopReplyTimeout(t *testing.T) {
	cmdTx, _ := newPipe(t)
	_, replyRx := newPipe(t)

	start := time.Now()
	_, err := session.ParentLoop(cmdTx, replyRx, []string{"anyone?"}, session.LoopOptions{RecvTimeout: 50 * time.Millisecond})
	if !errors.Is(err, session.ErrReplyFailed) || !errors.Is(err, ipcchan.ErrTimeout) {
		t.Fatalf("expected reply timeout, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("timeout not honored")
	}
}

func TestChildLoopEndsOnDisconnect(t *testing.T) {
	cmdTx, cmdRx := newPipe(t)
	replyTx, replyRx := newPipe(t)

	if err := cmdTx.Send("one"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	cmdTx.Close()

	var errOut bytes.Buffer
	term, err := session.ChildLoop(cmdRx, replyTx, session.LoopOptions{Err: &errOut})
	if err != nil || term != session.TerminatedByReceiveFailure {
		t.Fatalf("ChildLoop = %s, %v", term, err)
	}
	reply, err := replyRx.Recv()
	if err != nil || reply != "Child received: one" {
		t.Fatalf("queued message should still be answered: %q, %v", reply, err)
	}
	if !strings.Contains(errOut.String(), "Error receiving message") {
		t.Fatalf("expected diagnostic, got %q", errOut.String())
	}
}

func TestChildLoopSendFailure(t *testing.T) {
	rx := &script{replies: []string{"hello"}}
	tx := &recorder{failAt: 1}

	term, err := session.ChildLoop(rx, tx, session.LoopOptions{})
	if term != session.TerminatedBySendFailure || !errors.Is(err, session.ErrSendFailed) {
		t.Fatalf("ChildLoop = %s, %v", term, err)
	}
}

func TestTerminationString(t *testing.T) {
	cases := map[session.Termination]string{
		session.TerminatedBySentinel:       "sentinel",
		session.TerminatedByReceiveFailure: "receive_failure",
		session.TerminatedBySendFailure:    "send_failure",
		session.Termination(42):            "termination(42)",
	}
	for term, want := range cases {
		if got := term.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(term), got, want)
		}
	}
}
