package config

const (
	defaultConfigPath  = "~/.config/ipcpair/config.toml"
	projectConfigName  = "ipcpair.toml"
	defaultTransport   = TransportArg
	defaultChildOutput = OutputInherit
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"

	// Environment overrides, applied after the file is read.
	envTransport = "IPCPAIR_TRANSPORT"
	envLogLevel  = "IPCPAIR_LOG_LEVEL"
)

// Token transports.
const (
	TransportArg = "arg"
	TransportEnv = "env"
)

// Child output modes.
const (
	OutputInherit = "inherit"
	OutputCapture = "capture"
)

// reservedMessage ends a session and cannot be sent as a regular message.
// Kept in step with session.Sentinel.
const reservedMessage = "quit"

// DefaultMessages is the sequence a session sends when none is configured.
func DefaultMessages() []string {
	return []string{"Hello from parent", "How are you?", "Goodbye!"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Session: Session{
			Transport:   defaultTransport,
			ChildOutput: defaultChildOutput,
			Messages:    DefaultMessages(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
