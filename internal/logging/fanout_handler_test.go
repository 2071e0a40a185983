package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Error("expected NoopHandler for all nil handlers")
	}

	inner := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Error("expected the single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsEachLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newFanoutHandler(infoHandler, debugHandler)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout to be enabled for debug")
	}

	slog.New(h).Debug("debug only message")
	if infoBuf.Len() != 0 {
		t.Error("info handler should not receive debug records")
	}
	if debugBuf.Len() == 0 {
		t.Error("debug handler should receive debug records")
	}
}

func TestFanoutHandlerPropagatesAttrsAndGroups(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("role", "parent")}).WithGroup("exchange"))
	logger.Info("reply received", slog.String("reply", "ok"))

	for name, buf := range map[string]*bytes.Buffer{"first": &buf1, "second": &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"role":"parent"`)) {
			t.Errorf("%s: expected role attribute, got %s", name, buf.String())
		}
		if !bytes.Contains(buf.Bytes(), []byte(`"exchange":{"reply":"ok"}`)) {
			t.Errorf("%s: expected grouped attribute, got %s", name, buf.String())
		}
	}
}
