package plagiarism

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RishiKendai/dupcheck/internal/metrics"
	"github.com/RishiKendai/dupcheck/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ReadFunc loads the raw content of one corpus file
type ReadFunc func(path string) ([]byte, error)

// scorers hands each pair job a Scorer whose row buffers survive across jobs
var scorers = sync.Pool{
	New: func() any { return NewScorer() },
}

// Comparator scores every unordered pair of a corpus. With a worker pool the
// pairs are scored in parallel; without one they are scored in a plain
// double loop. Both produce identical matrices.
type Comparator struct {
	pool    *WorkerPool
	readers int
	read    ReadFunc
}

type ComparatorOption func(*Comparator)

// WithReadFunc replaces os.ReadFile as the file loader
func WithReadFunc(fn ReadFunc) ComparatorOption {
	return func(c *Comparator) { c.read = fn }
}

// WithReaders bounds how many files are read concurrently
func WithReaders(n int) ComparatorOption {
	return func(c *Comparator) {
		if n > 0 {
			c.readers = n
		}
	}
}

// NewComparator creates a comparator. pool may be nil for sequential scoring.
func NewComparator(pool *WorkerPool, opts ...ComparatorOption) *Comparator {
	c := &Comparator{
		pool:    pool,
		readers: 1,
		read:    os.ReadFile,
	}
	if pool != nil {
		c.readers = pool.Size()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compare reads and normalizes every file once, then scores all pairs.
// Any read failure aborts the run and no matrix is returned.
func (c *Comparator) Compare(ctx context.Context, files []models.FileRecord) (*ScoreMatrix, error) {
	texts, err := c.NormalizeAll(ctx, files)
	if err != nil {
		return nil, err
	}
	return c.ScoreAll(ctx, texts)
}

// NormalizeAll returns the normalized text of each file, indexed like files.
func (c *Comparator) NormalizeAll(ctx context.Context, files []models.FileRecord) ([]string, error) {
	texts := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.readers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := c.read(f.Path)
			if err != nil {
				return &FileReadError{Path: f.Path, Err: err}
			}
			texts[i] = Normalize(raw)
			metrics.FilesNormalized.Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return texts, nil
}

// ScoreAll builds the matrix for already normalized texts.
func (c *Comparator) ScoreAll(ctx context.Context, texts []string) (*ScoreMatrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := len(texts)
	m := NewScoreMatrix(n)
	pairs := n * (n - 1) / 2
	if pairs == 0 {
		return m, nil
	}

	start := time.Now()
	var err error
	if c.pool == nil {
		err = scoreSequential(ctx, texts, m)
	} else {
		err = c.scorePooled(ctx, texts, m)
	}
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("files", n).
		Int("pairs", pairs).
		Dur("elapsed", time.Since(start)).
		Msg("Scored all pairs")

	return m, nil
}

func scoreSequential(ctx context.Context, texts []string, m *ScoreMatrix) error {
	s := NewScorer()
	for i := range texts {
		if err := ctx.Err(); err != nil {
			return err
		}
		for j := i + 1; j < len(texts); j++ {
			m.setPair(i, j, s.Score(texts[i], texts[j]))
			metrics.PairsCompared.Inc()
		}
	}
	return nil
}

func (c *Comparator) scorePooled(ctx context.Context, texts []string, m *ScoreMatrix) error {
	var (
		wg      sync.WaitGroup
		skipped atomic.Int64
	)

	submit := func() error {
		for i := range texts {
			for j := i + 1; j < len(texts); j++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				wg.Add(1)
				job := &PairJob{
					I: i, J: j,
					texts:   texts,
					matrix:  m,
					runCtx:  ctx,
					done:    wg.Done,
					skipped: &skipped,
				}
				if err := c.pool.Submit(ctx, job); err != nil {
					wg.Done()
					return err
				}
			}
		}
		return nil
	}

	err := submit()
	wg.Wait()
	if err != nil {
		return err
	}
	if skipped.Load() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrPoolClosed
	}
	return nil
}

// PairJob scores one (I, J) pair and writes both mirrored cells.
type PairJob struct {
	I, J int

	texts   []string
	matrix  *ScoreMatrix
	runCtx  context.Context
	done    func()
	skipped *atomic.Int64
}

// Execute executes the pair job
func (j *PairJob) Execute(ctx context.Context) error {
	defer j.done()

	if err := j.runCtx.Err(); err != nil {
		j.skipped.Add(1)
		return err
	}
	if err := ctx.Err(); err != nil {
		j.skipped.Add(1)
		return err
	}

	s := scorers.Get().(*Scorer)
	j.matrix.setPair(j.I, j.J, s.Score(j.texts[j.I], j.texts[j.J]))
	scorers.Put(s)

	metrics.PairsCompared.Inc()
	return nil
}
