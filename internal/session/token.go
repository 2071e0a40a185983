package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// TokenArgPrefix marks the child argument carrying the rendezvous token.
	TokenArgPrefix = "channel_name:"
	// TokenEnvVar names the environment variable carrying the rendezvous token.
	TokenEnvVar = "CHANNEL_NAME"
)

// ErrMissingToken reports a child started without a rendezvous token.
var ErrMissingToken = errors.New("rendezvous token not provided (expected " + TokenArgPrefix + "<token> argument or " + TokenEnvVar + " environment variable)")

// Transport selects how the rendezvous token reaches the child.
type Transport string

const (
	TransportArg Transport = "arg"
	TransportEnv Transport = "env"
)

// ParseTransport accepts "arg" or "env", case-insensitively.
func ParseTransport(value string) (Transport, error) {
	switch t := Transport(strings.ToLower(strings.TrimSpace(value))); t {
	case TransportArg, TransportEnv:
		return t, nil
	default:
		return "", fmt.Errorf("unknown token transport %q (want %q or %q)", value, TransportArg, TransportEnv)
	}
}

// OutputMode selects how the parent handles the child's stdout.
type OutputMode string

const (
	OutputInherit OutputMode = "inherit"
	OutputCapture OutputMode = "capture"
)

// ParseOutputMode accepts "inherit" or "capture", case-insensitively.
func ParseOutputMode(value string) (OutputMode, error) {
	switch m := OutputMode(strings.ToLower(strings.TrimSpace(value))); m {
	case OutputInherit, OutputCapture:
		return m, nil
	default:
		return "", fmt.Errorf("unknown child output mode %q (want %q or %q)", value, OutputInherit, OutputCapture)
	}
}

// ChildConfig is everything the child needs from its startup parameters.
type ChildConfig struct {
	Token string
	// Source records where the token was found.
	Source Transport
}

// SessionID derives the rendezvous name from the token so child logs
// correlate with the parent's.
func (c ChildConfig) SessionID() string {
	return strings.TrimSuffix(filepath.Base(c.Token), ".sock")
}

// ParseTokenArg returns the value of the first argument carrying TokenArgPrefix.
func ParseTokenArg(args []string) (string, bool) {
	for _, arg := range args {
		if token, ok := strings.CutPrefix(arg, TokenArgPrefix); ok {
			return token, true
		}
	}
	return "", false
}

// ResolveChildConfig builds a ChildConfig from arguments first and the
// environment second. lookupEnv is typically os.LookupEnv.
func ResolveChildConfig(args []string, lookupEnv func(string) (string, bool)) (ChildConfig, error) {
	if token, ok := ParseTokenArg(args); ok && strings.TrimSpace(token) != "" {
		return ChildConfig{Token: strings.TrimSpace(token), Source: TransportArg}, nil
	}
	if lookupEnv != nil {
		if token, ok := lookupEnv(TokenEnvVar); ok && strings.TrimSpace(token) != "" {
			return ChildConfig{Token: strings.TrimSpace(token), Source: TransportEnv}, nil
		}
	}
	return ChildConfig{}, ErrMissingToken
}
