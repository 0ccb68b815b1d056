package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/RishiKendai/dupcheck/internal/plagiarism"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var showDiff bool

	cmd := &cobra.Command{
		Use:   "compare <file-a> <file-b>",
		Short: "Score two files against each other",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return &UsageError{Usage: "dupcheck compare <file-a> <file-b>"}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := readNormalized(args[0])
			if err != nil {
				return err
			}
			b, err := readNormalized(args[1])
			if err != nil {
				return err
			}

			score := plagiarism.Score(a, b)
			fmt.Fprintf(ctx.stdout, "%s\t%s\n",
				strconv.FormatFloat(score, 'g', 6, 64),
				plagiarism.GetRiskLevel(score),
			)

			if showDiff {
				dmp := diffmatchpatch.New()
				diffs := dmp.DiffMain(a, b, false)
				diffs = dmp.DiffCleanupSemantic(diffs)
				fmt.Fprintf(ctx.stdout, "distance %d\n", plagiarism.Distance(a, b))
				fmt.Fprintln(ctx.stdout, dmp.DiffPrettyText(diffs))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showDiff, "diff", false, "Print a character diff of the normalized texts")
	return cmd
}

func readNormalized(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", &plagiarism.FileReadError{Path: path, Err: err}
	}
	return plagiarism.Normalize(raw), nil
}
