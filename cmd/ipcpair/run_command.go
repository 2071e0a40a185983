package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ipcpair/internal/config"
	"ipcpair/internal/session"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var transport string
	var childOutput string
	var messages []string
	var summary bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Spawn a child process and run one message session with it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg := *loaded
			flags := cmd.Flags()
			if flags.Changed("transport") {
				cfg.Session.Transport = strings.ToLower(strings.TrimSpace(transport))
			}
			if flags.Changed("child-output") {
				cfg.Session.ChildOutput = strings.ToLower(strings.TrimSpace(childOutput))
			}
			if flags.Changed("message") {
				cfg.Session.Messages = append([]string(nil), messages...)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			opts, err := parentOptions(&cfg, ctx)
			if err != nil {
				return err
			}
			opts.Stdout = session.SyncWriter(cmd.OutOrStdout())
			opts.Stderr = session.SyncWriter(cmd.ErrOrStderr())
			opts.Logger, err = ctx.newLogger(opts.Stderr, "parent")
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			result, err := session.RunParent(signalCtx, opts)
			if summary && result.ChildPID > 0 {
				printSummary(cmd.OutOrStdout(), result, shouldColorize(cmd.OutOrStdout()))
			}
			if err != nil {
				return err
			}
			if !result.ChildSucceeded() {
				return fmt.Errorf("child process %d exited with status %d", result.ChildPID, result.ExitCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Token transport: arg or env (overrides config)")
	cmd.Flags().StringVar(&childOutput, "child-output", "", "Child stdout handling: inherit or capture (overrides config)")
	cmd.Flags().StringArrayVarP(&messages, "message", "m", nil, "Message to send; repeat for a sequence (overrides config)")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print a table of the exchanged messages after the session")
	return cmd
}

// parentOptions maps configuration onto session options. Without a
// configured child executable the running binary is re-executed through its
// hidden child command.
func parentOptions(cfg *config.Config, ctx *commandContext) (session.Options, error) {
	transport, err := session.ParseTransport(cfg.Session.Transport)
	if err != nil {
		return session.Options{}, err
	}
	output, err := session.ParseOutputMode(cfg.Session.ChildOutput)
	if err != nil {
		return session.Options{}, err
	}

	executable := cfg.Session.ChildExecutable
	var childArgs []string
	if executable == "" {
		self, err := os.Executable()
		if err != nil {
			return session.Options{}, fmt.Errorf("resolve ipcpair executable: %w", err)
		}
		executable = self
		childArgs = append([]string{"child"}, ctx.passthroughFlags()...)
	}

	return session.Options{
		Transport:      transport,
		ChildOutput:    output,
		Messages:       cfg.Session.Messages,
		ReplyTimeout:   cfg.ReplyTimeoutDuration(),
		ConnectTimeout: cfg.ConnectTimeoutDuration(),
		RendezvousDir:  cfg.Rendezvous.Dir,
		RendezvousName: cfg.Rendezvous.Name,
		Executable:     executable,
		ChildArgs:      childArgs,
	}, nil
}
