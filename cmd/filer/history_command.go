package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"filer/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runs bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently journaled moves",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			path := cfg.HistoryPath()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, "No history recorded yet (set history.enabled = true)")
				return nil
			}
			store, err := history.Open(path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if runs {
				entries, err := store.RecentRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, entries)
				}
				fmt.Fprintln(out, renderRuns(entries))
				return nil
			}

			moves, err := store.RecentMoves(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, moves)
			}
			if len(moves) == 0 {
				fmt.Fprintln(out, "No moves recorded")
				return nil
			}
			fmt.Fprintln(out, renderMoves(moves))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Maximum entries to show (default 50 moves, 20 runs)")
	cmd.Flags().BoolVar(&runs, "runs", false, "Show run summaries instead of moves")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit entries as JSON")
	return cmd
}

func renderMoves(moves []history.Move) string {
	rows := make([][]string, 0, len(moves))
	for _, m := range moves {
		target := m.FinalPath
		if m.ErrorMessage != "" {
			target = m.ErrorKind + ": " + m.ErrorMessage
		}
		rows = append(rows, []string{
			m.RecordedAt.Local().Format(time.DateTime),
			shortID(m.RunID),
			m.Method,
			m.Status,
			m.Source,
			target,
		})
	}
	return renderTable([]string{"Time", "Run", "Method", "Status", "Source", "Result"}, rows)
}

func renderRuns(entries []history.Run) string {
	rows := make([][]string, 0, len(entries))
	for _, r := range entries {
		mode := ""
		if r.DryRun {
			mode = "dry-run"
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format(time.DateTime),
			shortID(r.RunID),
			mode,
			strconv.Itoa(r.Incoming),
			strconv.Itoa(r.Similarity),
			strconv.Itoa(r.AI),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Unclassified),
		})
	}
	return renderTable(
		[]string{"Started", "Run", "Mode", "Incoming", "Similarity", "AI", "Skipped", "Failed", "Unclassified"},
		rows, 3, 4, 5, 6, 7, 8,
	)
}
