package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ipcpair/internal/session"
)

func newChildCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:    "child [channel_name:<token>]",
		Short:  "Run the child side of a session (started by `ipcpair run`)",
		Hidden: true,
		Args:   cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			childCfg, err := session.ResolveChildConfig(args, os.LookupEnv)
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cmd.ErrOrStderr(), "child")
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			term, err := session.RunChild(signalCtx, childCfg, session.LoopOptions{
				Out:    cmd.OutOrStdout(),
				Err:    cmd.ErrOrStderr(),
				Logger: logger,
			})
			switch {
			case err == nil:
				return nil
			case term == 0:
				// Failed before the loop started.
				return fmt.Errorf("child session: %w", err)
			default:
				return fmt.Errorf("child session ended with %s: %w", term, err)
			}
		},
	}
}
