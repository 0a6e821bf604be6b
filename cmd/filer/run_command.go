package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sort the incoming directory once",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if dryRun {
				cfg.Mover.DryRun = true
			}
			logger, err := ctx.newLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			sess, err := openSession(signalCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			report, err := sess.runOnce(signalCtx)
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderReport(report, isTerminal(out)))
			}
			if report.HasFailures() {
				return fmt.Errorf("%d of %d files failed", report.Counts.Failed, report.Incoming)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Plan moves without touching the filesystem")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the run report as JSON")
	return cmd
}
