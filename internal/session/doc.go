// Package session runs the two halves of an ipcpair session.
//
// The parent creates a one-shot rendezvous, spawns the child with the
// rendezvous token (as a channel_name:<token> argument or the CHANNEL_NAME
// environment variable), receives the child's channel endpoints, and then
// drives a strict request/reply exchange ending with the "quit" sentinel. The
// child resolves its token into a ChildConfig, hands its endpoints back, and
// answers every message until the sentinel arrives or the channel drops.
//
// Human progress lines go to the configured stdout; structured diagnostics go
// to the slog logger.
package session
