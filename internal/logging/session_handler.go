package logging

import (
	"context"
	"log/slog"
	"strings"
)

// FieldSessionID is the structured logging key for the rendezvous session name.
const FieldSessionID = "session_id"

// sessionIDHandler injects session_id into every record it handles.
type sessionIDHandler struct {
	base      slog.Handler
	sessionID string
}

func newSessionIDHandler(base slog.Handler, sessionID string) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	if existing, ok := base.(*sessionIDHandler); ok {
		base = existing.base
	}
	return &sessionIDHandler{base: base, sessionID: sessionID}
}

// WithSession returns a logger whose records carry session_id=id. Wrapping a
// logger that already has a session replaces the earlier ID.
func WithSession(logger *slog.Logger, id string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return logger
	}
	return slog.New(newSessionIDHandler(logger.Handler(), id))
}

func (h *sessionIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *sessionIDHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(slog.String(FieldSessionID, h.sessionID))
	return h.base.Handle(ctx, record)
}

func (h *sessionIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sessionIDHandler{base: h.base.WithAttrs(attrs), sessionID: h.sessionID}
}

func (h *sessionIDHandler) WithGroup(name string) slog.Handler {
	return &sessionIDHandler{base: h.base.WithGroup(name), sessionID: h.sessionID}
}
