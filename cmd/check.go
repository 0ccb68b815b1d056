package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/RishiKendai/dupcheck/internal/config"
	"github.com/RishiKendai/dupcheck/internal/db"
	"github.com/RishiKendai/dupcheck/internal/emit"
	"github.com/RishiKendai/dupcheck/internal/infra/mongo"
	"github.com/RishiKendai/dupcheck/internal/models"
	"github.com/RishiKendai/dupcheck/internal/plagiarism"
	"github.com/RishiKendai/dupcheck/internal/repository"
	"github.com/RishiKendai/dupcheck/internal/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type checkOptions struct {
	output    string
	workers   int
	top       int
	threshold float64
}

// apply copies the flags the user set over the loaded configuration
func (o checkOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.OutputDir = o.output
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("top") {
		cfg.ReportTop = o.top
	}
	if flags.Changed("threshold") {
		cfg.ReportThreshold = o.threshold
	}
}

func runCheck(parent context.Context, cmdCtx *commandContext, cmd *cobra.Command, opts checkOptions, dir string) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	opts.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *plagiarism.WorkerPool
	if cfg.Workers > 1 {
		pool = plagiarism.NewWorkerPool(ctx, cfg.Workers)
		defer pool.Close()
	}
	comparator := plagiarism.NewComparator(pool, plagiarism.WithReaders(cfg.Workers))

	emitter, closeSinks, err := buildEmitters(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	result, err := runner.New(comparator, emitter, nil).Run(ctx, "", dir)
	if err != nil {
		return err
	}

	summary := plagiarism.Summarize(result.Matrix, cfg.ReportThreshold)
	log.Info().
		Int("files", summary.Files).
		Int("pairs", summary.Pairs).
		Float64("mean", summary.MeanScore).
		Float64("max", summary.MaxScore).
		Int("flagged", summary.Flagged).
		Msg("Similarity summary")

	if cfg.ReportTop > 0 {
		pairs := plagiarism.TopPairs(result.Files, result.Matrix, cfg.ReportThreshold, cfg.ReportTop)
		writePairReport(cmdCtx.stderr, pairs)
	}
	return nil
}

// buildEmitters returns the file emitter followed by every configured store
func buildEmitters(ctx context.Context, cfg *config.Config) (emit.Emitter, func(), error) {
	emitters := emit.Multi{emit.NewFileEmitter(emit.FileOptions{
		Dir:        cfg.OutputDir,
		IndexFile:  cfg.IndexFile,
		MatrixFile: cfg.MatrixFile,
		Precision:  cfg.MatrixPrecision,
	})}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.HistoryDB != "" {
		history, err := openHistoryEmitter(cfg.HistoryDB)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, history.close)
		emitters = append(emitters, history.emitter)
	}

	if cfg.MongoURI != "" {
		client, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		closers = append(closers, func() { _ = client.Close(context.Background()) })
		runs := repository.NewRunsRepository(repository.NewMongoRepository(client))
		emitters = append(emitters, emit.NewStoreEmitter(runs))
	}

	return emitters, closeAll, nil
}

func writePairReport(w io.Writer, pairs []plagiarism.PairSimilarity) {
	if len(pairs) == 0 {
		fmt.Fprintln(w, "No suspicious pairs.")
		return
	}

	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{
			pairLabel(p.A),
			pairLabel(p.B),
			strconv.FormatFloat(p.Score, 'f', 4, 64),
			p.Risk,
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"File A", "File B", "Score", "Risk"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func pairLabel(f models.FileRecord) string {
	return strconv.Itoa(f.ID) + ": " + f.Path
}

type historySink struct {
	emitter emit.Emitter
	close   func()
}

func openHistoryEmitter(path string) (*historySink, error) {
	history, err := db.OpenHistory(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return &historySink{
		emitter: emit.NewHistoryEmitter(history),
		close:   func() { _ = history.Close() },
	}, nil
}
