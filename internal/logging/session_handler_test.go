package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSessionIDHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSession(slog.New(slog.NewJSONHandler(&buf, nil)), "ipcpair-1234")
	logger.Info("rendezvous ready")

	if !strings.Contains(buf.String(), `"session_id":"ipcpair-1234"`) {
		t.Errorf("expected session_id in output, got: %s", buf.String())
	}
}

func TestSessionIDHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSession(slog.New(slog.NewJSONHandler(&buf, nil)), "session-abc").With("role", "child")
	logger.Info("connected")

	output := buf.String()
	if !strings.Contains(output, `"session_id":"session-abc"`) {
		t.Errorf("expected session_id in output, got: %s", output)
	}
	if !strings.Contains(output, `"role":"child"`) {
		t.Errorf("expected role attr in output, got: %s", output)
	}
}

func TestWithSessionReplacesEarlierID(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSession(slog.New(slog.NewJSONHandler(&buf, nil)), "first")
	logger = WithSession(logger, "second")
	logger.Info("x")

	output := buf.String()
	if strings.Contains(output, "first") {
		t.Errorf("earlier session id leaked: %s", output)
	}
	if strings.Count(output, "session_id") != 1 {
		t.Errorf("expected exactly one session_id, got: %s", output)
	}
}

func TestWithSessionEmptyIDIsNoop(t *testing.T) {
	base := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	if got := WithSession(base, "  "); got != base {
		t.Error("expected the same logger back for an empty id")
	}
}

func TestSessionIDHandlerNilBase(t *testing.T) {
	if _, ok := newSessionIDHandler(nil, "session-123").(NoopHandler); !ok {
		t.Error("expected NoopHandler when base is nil")
	}
}
