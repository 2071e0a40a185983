// Package preflight checks that a session can run before a child is spawned.
//
// `ipcpair check` runs every check and prints one status line per result.
// Checks never leave state behind: probes create and tear down their own
// channels and rendezvous endpoints.
package preflight
