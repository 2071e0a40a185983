package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"ipcpair/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose rendezvous directory is unique to the
// test. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := ShortTempDir(t)
	cfgVal := config.Default()
	cfgVal.Rendezvous.Dir = filepath.Join(base, "rv")
	cfgVal.Session.ConnectTimeout = 10
	cfgVal.Session.ReplyTimeout = 10

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithTransport sets how the token reaches the child.
func WithTransport(transport string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Session.Transport = transport
	}
}

// WithChildOutput sets the child stdout mode.
func WithChildOutput(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Session.ChildOutput = mode
	}
}

// WithMessages replaces the session message sequence.
func WithMessages(messages ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Session.Messages = append([]string(nil), messages...)
	}
}

// WithChildExecutable points the session at a specific child binary.
func WithChildExecutable(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Session.ChildExecutable = path
	}
}

// WithLogFile sends a JSON copy of logs to a file under the test directory.
func WithLogFile(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Logging.File = filepath.Join(b.baseDir, name)
	}
}

// WriteConfigFile encodes cfg into a TOML file and returns its path.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "ipcpair.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// ShortTempDir returns a temp directory short enough to hold unix sockets.
// t.TempDir embeds the test name and can exceed the sun_path limit.
func ShortTempDir(t testing.TB) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "ipcpair")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	return dir
}
