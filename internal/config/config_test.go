package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"ipcpair/internal/config"
)

func TestLoadDefaultConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "ipcpair", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if cfg.Session.Transport != config.TransportArg {
		t.Fatalf("expected arg transport by default, got %q", cfg.Session.Transport)
	}
	if cfg.Session.ChildOutput != config.OutputInherit {
		t.Fatalf("expected inherited output by default, got %q", cfg.Session.ChildOutput)
	}
	if !reflect.DeepEqual(cfg.Session.Messages, []string{"Hello from parent", "How are you?", "Goodbye!"}) {
		t.Fatalf("unexpected default messages: %v", cfg.Session.Messages)
	}
	if cfg.ReplyTimeoutDuration() != 0 || cfg.ConnectTimeoutDuration() != 0 {
		t.Fatal("expected unbounded timeouts by default")
	}
	if cfg.Rendezvous.Dir != "" || cfg.Rendezvous.Name != "" {
		t.Fatalf("expected empty rendezvous defaults, got %+v", cfg.Rendezvous)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadProjectConfigFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	t.Chdir(project)
	if err := os.WriteFile("ipcpair.toml", []byte("[session]\nchild_output = \"capture\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "ipcpair.toml" {
		t.Fatalf("expected project config, got %q exists=%v", resolved, exists)
	}
	if cfg.Session.ChildOutput != config.OutputCapture {
		t.Fatalf("expected capture from project config, got %q", cfg.Session.ChildOutput)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "ipcpair.toml")

	type payload struct {
		Session struct {
			Transport      string   `toml:"transport"`
			Messages       []string `toml:"messages"`
			ReplyTimeout   int      `toml:"reply_timeout"`
			ConnectTimeout int      `toml:"connect_timeout"`
		} `toml:"session"`
		Rendezvous struct {
			Dir  string `toml:"dir"`
			Name string `toml:"name"`
		} `toml:"rendezvous"`
	}
	custom := payload{}
	custom.Session.Transport = "ENV"
	custom.Session.Messages = []string{"one", "two"}
	custom.Session.ReplyTimeout = 5
	custom.Session.ConnectTimeout = 10
	custom.Rendezvous.Dir = filepath.Join(tempDir, "sockets")
	custom.Rendezvous.Name = "fixed"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Session.Transport != config.TransportEnv {
		t.Fatalf("expected transport normalized to env, got %q", cfg.Session.Transport)
	}
	if !reflect.DeepEqual(cfg.Session.Messages, []string{"one", "two"}) {
		t.Fatalf("unexpected messages: %v", cfg.Session.Messages)
	}
	if cfg.ReplyTimeoutDuration() != 5*time.Second {
		t.Fatalf("unexpected reply timeout: %s", cfg.ReplyTimeoutDuration())
	}
	if cfg.ConnectTimeoutDuration() != 10*time.Second {
		t.Fatalf("unexpected connect timeout: %s", cfg.ConnectTimeoutDuration())
	}
	if cfg.Rendezvous.Name != "fixed" {
		t.Fatalf("unexpected rendezvous name: %q", cfg.Rendezvous.Name)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if info, err := os.Stat(cfg.Rendezvous.Dir); err != nil || !info.IsDir() {
		t.Fatalf("expected rendezvous dir to exist: %v", err)
	}
}

func TestChildExecutableExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	workDir := t.TempDir()
	t.Chdir(workDir)

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "bare command", value: "true", want: "true"},
		{name: "home relative", value: "~/bin/child", want: filepath.Join(home, "bin", "child")},
		{name: "dir relative", value: "./child", want: filepath.Join(workDir, "child")},
		{name: "absolute", value: "/usr/bin/env", want: "/usr/bin/env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "ipcpair.toml")
			data, err := toml.Marshal(map[string]any{
				"session": map[string]any{"child_executable": tt.value},
			})
			if err != nil {
				t.Fatalf("marshal config: %v", err)
			}
			if err := os.WriteFile(configPath, data, 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			cfg, _, _, err := config.Load(configPath)
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if cfg.Session.ChildExecutable != tt.want {
				t.Fatalf("child_executable = %q, want %q", cfg.Session.ChildExecutable, tt.want)
			}
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ipcpair.toml")
	if err := os.WriteFile(configPath, []byte("[session]\ntransprt = \"env\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "transprt") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ipcpair.toml")
	if err := os.WriteFile(configPath, []byte("[session]\ntransport = \"arg\"\n[logging]\nlevel = \"info\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("IPCPAIR_TRANSPORT", "env")
	t.Setenv("IPCPAIR_LOG_LEVEL", "DEBUG")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Session.Transport != config.TransportEnv {
		t.Errorf("expected transport from env, got %q", cfg.Session.Transport)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level from env, got %q", cfg.Logging.Level)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !reflect.DeepEqual(cfg.Session.Messages, config.DefaultMessages()) {
		t.Fatalf("sample messages drifted from defaults: %v", cfg.Session.Messages)
	}

	loaded, _, exists, err := config.Load(path)
	if err != nil || !exists {
		t.Fatalf("sample should load cleanly: exists=%v err=%v", exists, err)
	}
	if loaded.Session.Transport != config.TransportArg {
		t.Fatalf("unexpected sample transport %q", loaded.Session.Transport)
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	cfg := config.Default()
	cfg.Session.ReplyTimeout = 3
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "reply_timeout = 3") {
		t.Fatalf("expected reply_timeout in encoded config:\n%s", data)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"transport":       func(c *config.Config) { c.Session.Transport = "pipe" },
		"child output":    func(c *config.Config) { c.Session.ChildOutput = "discard" },
		"reply timeout":   func(c *config.Config) { c.Session.ReplyTimeout = -1 },
		"connect timeout": func(c *config.Config) { c.Session.ConnectTimeout = -1 },
		"no messages":     func(c *config.Config) { c.Session.Messages = []string{} },
		"sentinel":        func(c *config.Config) { c.Session.Messages = []string{"hi", "quit"} },
		"invalid utf8":    func(c *config.Config) { c.Session.Messages = []string{string([]byte{0xff})} },
		"rendezvous name": func(c *config.Config) { c.Rendezvous.Name = "a/b" },
		"log format":      func(c *config.Config) { c.Logging.Format = "xml" },
		"log level":       func(c *config.Config) { c.Logging.Level = "loud" },
	}
	for name, mutate := range cases {
		cfg := config.Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
