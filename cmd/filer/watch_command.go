package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"filer/internal/logging"
	"filer/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var debounce time.Duration
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sort the incoming directory whenever files arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
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

			opts := watch.Options{
				Dir:      cfg.Paths.IncomingDir,
				Debounce: time.Duration(cfg.Watch.DebounceSeconds) * time.Second,
				Interval: time.Duration(cfg.Watch.IntervalSeconds) * time.Second,
				Logger:   logger,
			}
			if cmd.Flags().Changed("debounce") {
				opts.Debounce = debounce
			}
			if cmd.Flags().Changed("interval") {
				opts.Interval = interval
			}

			err = watch.Run(signalCtx, opts, func(runCtx context.Context) error {
				report, err := sess.runOnce(runCtx)
				if err != nil {
					return err
				}
				if report.Incoming > 0 {
					logger.Info("run summary", logging.String(logging.FieldRunID, report.RunID),
						logging.String("summary", summaryLine(report)))
				}
				return nil
			})
			if err != nil {
				return err
			}
			logger.Info("filer watch shutting down")
			return nil
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Override watch.debounce_seconds")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Override watch.interval_seconds (0 disables periodic runs)")
	return cmd
}
