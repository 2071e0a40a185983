// Package main hosts the ipcpair CLI.
//
// `ipcpair run` is the parent side of a session: it opens a one-shot
// rendezvous endpoint, re-executes this binary through the hidden `child`
// command, swaps a channel pair with it and exchanges the configured messages.
// Configuration resolution and logger construction live in commandContext so
// both sides of a session see the same settings.
package main
