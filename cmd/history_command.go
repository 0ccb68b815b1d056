package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/RishiKendai/dupcheck/internal/db"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs stored in the SQLite history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.HistoryDB == "" {
				return errors.New("history is disabled: set DUPCHECK_HISTORY_DB or history_db")
			}

			history, err := db.OpenHistory(cfg.HistoryDB)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer history.Close()

			runs, err := history.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(ctx.stdout, "No runs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.RunID,
					r.Directory,
					strconv.Itoa(r.FileCount),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
					humanize.Time(r.FinishedAt),
				})
			}
			fmt.Fprintln(ctx.stdout, renderTable(
				[]string{"Run", "Directory", "Files", "Took", "Finished"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}
