package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRole names the session side emitting the record (parent or child).
	FieldRole = "role"
	// FieldPID is the emitting process ID.
	FieldPID = "pid"
	// FieldPeerPID is the process ID of the other side, when known.
	FieldPeerPID = "peer_pid"
	// FieldEventType classifies a record for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step for the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldMessageIndex is the 1-based position of a message in the session sequence.
	FieldMessageIndex = "message_index"
)

type contextKey int

const (
	roleKey contextKey = iota
	peerPIDKey
)

// ContextWithRole tags ctx with the session role.
func ContextWithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

// ContextWithPeerPID tags ctx with the other process's ID.
func ContextWithPeerPID(ctx context.Context, pid int) context.Context {
	return context.WithValue(ctx, peerPIDKey, pid)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if role, ok := ctx.Value(roleKey).(string); ok && role != "" {
		fields = append(fields, slog.String(FieldRole, role))
	}
	if pid, ok := ctx.Value(peerPIDKey).(int); ok && pid > 0 {
		fields = append(fields, slog.Int(FieldPeerPID, pid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
