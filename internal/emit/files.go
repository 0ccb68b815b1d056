package emit

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
)

const lockName = ".dupcheck.lock"

// FileOptions configures a FileEmitter
type FileOptions struct {
	Dir        string
	IndexFile  string
	MatrixFile string
	Precision  int
	// PerRun writes into Dir/<run id>/ instead of Dir
	PerRun bool
	// LockTimeout bounds the wait for the directory lock; zero waits 30s
	LockTimeout time.Duration
}

// FileEmitter writes the index and matrix text files. Both files are staged
// as temporaries and renamed into place under an advisory lock on the
// output directory. The lock file (.dupcheck.lock) stays in the directory
// so every run locks the same inode.
type FileEmitter struct {
	opts FileOptions
}

func NewFileEmitter(opts FileOptions) *FileEmitter {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 30 * time.Second
	}
	return &FileEmitter{opts: opts}
}

// Paths returns the index and matrix paths for a run
func (e *FileEmitter) Paths(runID string) (string, string) {
	dir := e.dir(runID)
	return filepath.Join(dir, e.opts.IndexFile), filepath.Join(dir, e.opts.MatrixFile)
}

func (e *FileEmitter) dir(runID string) string {
	if e.opts.PerRun && runID != "" {
		return filepath.Join(e.opts.Dir, runID)
	}
	return e.opts.Dir
}

func (e *FileEmitter) Emit(ctx context.Context, result *Result) error {
	dir := e.dir(result.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockName))
	lockCtx, cancel := context.WithTimeout(ctx, e.opts.LockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock output dir %s: %w", dir, err)
	}
	if !locked {
		return fmt.Errorf("lock output dir %s: held by another run", dir)
	}
	defer lock.Unlock()

	var index, matrix bytes.Buffer
	if err := WriteIndex(&index, result.Files); err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	if err := WriteMatrix(&matrix, result.Matrix, e.opts.Precision); err != nil {
		return fmt.Errorf("render matrix: %w", err)
	}

	indexPath, matrixPath := e.Paths(result.RunID)
	indexTmp, err := stage(dir, index.Bytes())
	if err != nil {
		return fmt.Errorf("stage index: %w", err)
	}
	defer os.Remove(indexTmp)
	matrixTmp, err := stage(dir, matrix.Bytes())
	if err != nil {
		return fmt.Errorf("stage matrix: %w", err)
	}
	defer os.Remove(matrixTmp)

	// The index goes last so a visible index always has its matrix
	if err := os.Rename(matrixTmp, matrixPath); err != nil {
		return fmt.Errorf("write %s: %w", matrixPath, err)
	}
	if err := os.Rename(indexTmp, indexPath); err != nil {
		os.Remove(matrixPath)
		return fmt.Errorf("write %s: %w", indexPath, err)
	}

	log.Info().
		Str("index", indexPath).
		Str("matrix", matrixPath).
		Int("files", len(result.Files)).
		Msg("Outputs written")
	return nil
}

// stage writes data to a synced temporary file in dir and returns its path
func stage(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, ".dupcheck-*.tmp")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}
