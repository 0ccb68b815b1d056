package main

import (
	"io"

	"github.com/spf13/cobra"
)

const rootUsage = "dupcheck [dir]"

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var opts checkOptions

	ctx := newCommandContext(&configFlag, &logLevelFlag, stdout, stderr)

	rootCmd := &cobra.Command{
		Use:           rootUsage,
		Short:         "Find near-duplicate text files in a directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return &UsageError{Usage: rootUsage}
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), ctx, cmd, opts, args[0])
		},
	}
	rootCmd.Long = `Scores every pair of files in dir and writes name.txt (the index) and
result.txt (the score matrix) to the output directory. A .dupcheck.lock
file is kept there to serialize concurrent runs.`
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (trace, debug, info, warn, error)")

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "Directory receiving the index and matrix files")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "Pair scoring workers (1 scores sequentially)")
	flags.IntVar(&opts.top, "top", 0, "Suspicious pairs to report on stderr (0 disables)")
	flags.Float64Var(&opts.threshold, "threshold", 0, "Minimum score of a reported pair")

	rootCmd.AddCommand(newCompareCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}
