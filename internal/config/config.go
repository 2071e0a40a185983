package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Session controls how the parent runs a session with its child.
type Session struct {
	// Transport selects how the rendezvous token reaches the child: "arg" or "env".
	Transport string `toml:"transport"`
	// ChildOutput selects child stdout handling: "inherit" or "capture".
	ChildOutput string `toml:"child_output"`
	// Messages is the ordered sequence sent before the sentinel.
	Messages []string `toml:"messages"`
	// ReplyTimeout bounds each wait for a reply, in seconds. 0 waits forever.
	ReplyTimeout int `toml:"reply_timeout"`
	// ConnectTimeout bounds the wait for the child to connect, in seconds. 0 waits forever.
	ConnectTimeout int `toml:"connect_timeout"`
	// ChildExecutable overrides the binary launched as the child. Empty means
	// the running executable, started with its "child" subcommand.
	ChildExecutable string `toml:"child_executable"`
}

// Rendezvous controls where one-shot rendezvous sockets are created.
type Rendezvous struct {
	// Dir holds the socket and lock files. Empty means the system temp dir.
	Dir string `toml:"dir"`
	// Name fixes the rendezvous name. Empty generates a unique one per run.
	Name string `toml:"name"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// File, when set, receives a JSON copy of every log record.
	File string `toml:"file"`
}

// Config encapsulates all configuration values for ipcpair.
type Config struct {
	Session    Session    `toml:"session"`
	Rendezvous Rendezvous `toml:"rendezvous"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error; defaults apply. The returned config has all path fields
// expanded and environment overrides applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the configured rendezvous directory, if any.
func (c *Config) EnsureDirectories() error {
	if dir := strings.TrimSpace(c.Rendezvous.Dir); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create rendezvous directory %q: %w", dir, err)
		}
	}
	return nil
}

// ReplyTimeoutDuration converts session.reply_timeout to a duration.
func (c *Config) ReplyTimeoutDuration() time.Duration {
	return time.Duration(c.Session.ReplyTimeout) * time.Second
}

// ConnectTimeoutDuration converts session.connect_timeout to a duration.
func (c *Config) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.Session.ConnectTimeout) * time.Second
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// expandCommand expands values that name a file. A bare command name is
// kept so it resolves through PATH at launch.
func expandCommand(command string) (string, error) {
	if command == "" || (!strings.HasPrefix(command, "~") && !strings.ContainsRune(command, filepath.Separator)) {
		return command, nil
	}
	return expandPath(command)
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
