package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeSession()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeSession() {
	if value, ok := os.LookupEnv(envTransport); ok && strings.TrimSpace(value) != "" {
		c.Session.Transport = value
	}
	c.Session.Transport = strings.ToLower(strings.TrimSpace(c.Session.Transport))
	if c.Session.Transport == "" {
		c.Session.Transport = defaultTransport
	}
	c.Session.ChildOutput = strings.ToLower(strings.TrimSpace(c.Session.ChildOutput))
	if c.Session.ChildOutput == "" {
		c.Session.ChildOutput = defaultChildOutput
	}
	if c.Session.Messages == nil {
		c.Session.Messages = DefaultMessages()
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Session.ChildExecutable, err = expandCommand(strings.TrimSpace(c.Session.ChildExecutable)); err != nil {
		return fmt.Errorf("session.child_executable: %w", err)
	}
	if c.Rendezvous.Dir, err = expandPath(strings.TrimSpace(c.Rendezvous.Dir)); err != nil {
		return fmt.Errorf("rendezvous.dir: %w", err)
	}
	c.Rendezvous.Name = strings.TrimSpace(c.Rendezvous.Name)
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if value, ok := os.LookupEnv(envLogLevel); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
