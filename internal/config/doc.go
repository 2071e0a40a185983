// Package config loads, normalizes, and validates ipcpair configuration.
//
// It supplies defaults (the three demo messages, arg transport, inherited
// child output), expands user paths including tilde shortcuts, reads TOML
// files, and honours the IPCPAIR_TRANSPORT and IPCPAIR_LOG_LEVEL environment
// overrides. Command-line flags are layered on top by the CLI.
package config
