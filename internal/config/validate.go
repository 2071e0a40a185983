package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateRendezvous(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSession() error {
	switch c.Session.Transport {
	case TransportArg, TransportEnv:
	default:
		return fmt.Errorf("session.transport must be %q or %q, got %q", TransportArg, TransportEnv, c.Session.Transport)
	}
	switch c.Session.ChildOutput {
	case OutputInherit, OutputCapture:
	default:
		return fmt.Errorf("session.child_output must be %q or %q, got %q", OutputInherit, OutputCapture, c.Session.ChildOutput)
	}
	if c.Session.ReplyTimeout < 0 {
		return errors.New("session.reply_timeout must be zero or positive")
	}
	if c.Session.ConnectTimeout < 0 {
		return errors.New("session.connect_timeout must be zero or positive")
	}
	if len(c.Session.Messages) == 0 {
		return errors.New("session.messages must contain at least one message")
	}
	for i, msg := range c.Session.Messages {
		if msg == reservedMessage {
			return fmt.Errorf("session.messages[%d]: %q is reserved to end the session", i, reservedMessage)
		}
		if !utf8.ValidString(msg) {
			return fmt.Errorf("session.messages[%d]: not valid UTF-8", i)
		}
	}
	return nil
}

func (c *Config) validateRendezvous() error {
	if strings.ContainsRune(c.Rendezvous.Name, '/') {
		return fmt.Errorf("rendezvous.name %q must not contain '/'", c.Rendezvous.Name)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
