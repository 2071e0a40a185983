// Package logging assembles the structured slog loggers used by both halves of
// an ipcpair session.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// handler wrappers that stamp every record with the rendezvous session name so
// parent and child log lines can be correlated after the fact. Progress lines
// meant for humans are not logs; they are written directly to stdout by the
// session package. A no-op logger is provided for tests and wiring code that
// cannot fail.
package logging
