package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ipcpair/internal/config"
	"ipcpair/internal/logging"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		c.configPath, c.configExists = path, exists
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if format := flagValue(c.logFormatFlag); format != "" {
			cfg.Logging.Format = strings.ToLower(format)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newLogger builds the diagnostic logger. Records go to w, which is stderr in
// normal use, so stdout stays reserved for session progress lines.
func (c *commandContext) newLogger(w io.Writer, component string) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: w,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logging.NewComponentLogger(logger, component), nil
}

// passthroughFlags repeats the persistent flags the user set so a re-executed
// child resolves the same configuration.
func (c *commandContext) passthroughFlags() []string {
	var flags []string
	if path := flagValue(c.configFlag); path != "" {
		flags = append(flags, "--config", path)
	}
	if level := flagValue(c.logLevelFlag); level != "" {
		flags = append(flags, "--log-level", level)
	}
	if format := flagValue(c.logFormatFlag); format != "" {
		flags = append(flags, "--log-format", format)
	}
	return flags
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
