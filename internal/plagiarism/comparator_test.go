package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/RishiKendai/dupcheck/internal/models"
)

// memFiles serves file contents from a map
func memFiles(contents map[string]string) ReadFunc {
	return func(path string) ([]byte, error) {
		c, ok := contents[path]
		if !ok {
			return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
		}
		return []byte(c), nil
	}
}

func records(paths ...string) []models.FileRecord {
	out := make([]models.FileRecord, len(paths))
	for i, p := range paths {
		out[i] = models.FileRecord{ID: i, Path: p}
	}
	return out
}

func assertMatrixInvariants(t *testing.T, m *ScoreMatrix, n int) {
	t.Helper()
	if m.Size() != n {
		t.Fatalf("matrix size = %d, want %d", m.Size(), n)
	}
	for i := 0; i < n; i++ {
		if m.At(i, i) != 0 {
			t.Errorf("diagonal (%d,%d) = %v, want 0", i, i, m.At(i, i))
		}
		for j := 0; j < n; j++ {
			if m.At(i, j) != m.At(j, i) {
				t.Errorf("asymmetric cells (%d,%d)=%v (%d,%d)=%v", i, j, m.At(i, j), j, i, m.At(j, i))
			}
			if v := m.At(i, j); v < 0 || v > 1 {
				t.Errorf("cell (%d,%d) = %v out of range", i, j, v)
			}
		}
	}
}

func TestCompareSequential(t *testing.T) {
	contents := map[string]string{
		"d/a": "abc",
		"d/b": "abd",
		"d/c": "a\nb\nc",
		"d/d": "",
	}
	c := NewComparator(nil, WithReadFunc(memFiles(contents)))

	m, err := c.Compare(context.Background(), records("d/a", "d/b", "d/c", "d/d"))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	assertMatrixInvariants(t, m, 4)

	edits, length := 1.0, 3.0
	if got, want := m.At(0, 1), 1-edits/length; got != want {
		t.Errorf("abc/abd = %v, want %v", got, want)
	}
	// "a\nb\nc" normalizes to "abc"
	if got := m.At(0, 2); got != 1.0 {
		t.Errorf("identical after normalization = %v, want 1", got)
	}
	if got := m.At(0, 3); got != 0.0 {
		t.Errorf("abc vs empty = %v, want 0", got)
	}
}

func TestComparePooledMatchesSequential(t *testing.T) {
	contents := make(map[string]string)
	paths := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		p := fmt.Sprintf("corpus/%02d.txt", i)
		paths = append(paths, p)
		contents[p] = fmt.Sprintf("func f%d() {\n  return %d * x +   %d\n}\n", i%4, i, i*i)
	}
	files := records(paths...)

	seq, err := NewComparator(nil, WithReadFunc(memFiles(contents))).Compare(context.Background(), files)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}

	pool := NewWorkerPool(context.Background(), 4)
	defer pool.Close()
	par, err := NewComparator(pool, WithReadFunc(memFiles(contents))).Compare(context.Background(), files)
	if err != nil {
		t.Fatalf("pooled: %v", err)
	}

	assertMatrixInvariants(t, par, len(files))
	for i := range files {
		for j := range files {
			if seq.At(i, j) != par.At(i, j) {
				t.Fatalf("cell (%d,%d): sequential %v, pooled %v", i, j, seq.At(i, j), par.At(i, j))
			}
		}
	}
}

func TestCompareSingleFile(t *testing.T) {
	c := NewComparator(nil, WithReadFunc(memFiles(map[string]string{"only": "x"})))
	m, err := c.Compare(context.Background(), records("only"))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if m.Size() != 1 || m.At(0, 0) != 0 {
		t.Fatalf("expected 1x1 zero matrix, got size %d", m.Size())
	}
}

func TestCompareEmptyCorpus(t *testing.T) {
	m, err := NewComparator(nil).Compare(context.Background(), nil)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if m.Size() != 0 {
		t.Fatalf("expected empty matrix, got %d", m.Size())
	}
}

func TestCompareReadFailureAbortsRun(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	if err := os.WriteFile(good, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	missing := filepath.Join(dir, "missing.txt")

	pool := NewWorkerPool(context.Background(), 2)
	defer pool.Close()

	m, err := NewComparator(pool).Compare(context.Background(), records(good, missing))
	if m != nil {
		t.Fatalf("expected no matrix on read failure")
	}
	var readErr *FileReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected FileReadError, got %v", err)
	}
	if readErr.Path != missing {
		t.Fatalf("error path = %q, want %q", readErr.Path, missing)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected wrapped ErrNotExist, got %v", err)
	}
}

func TestCompareCancelled(t *testing.T) {
	contents := map[string]string{"a": "one", "b": "two", "c": "three"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, withPool := range []bool{false, true} {
		var pool *WorkerPool
		if withPool {
			pool = NewWorkerPool(context.Background(), 2)
		}
		m, err := NewComparator(pool, WithReadFunc(memFiles(contents))).Compare(ctx, records("a", "b", "c"))
		if pool != nil {
			pool.Close()
		}
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("pool=%v: expected context.Canceled, got %v", withPool, err)
		}
		if m != nil {
			t.Fatalf("pool=%v: expected no matrix", withPool)
		}
	}
}

func TestScoreAllOnClosedPool(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1)
	pool.Close()

	_, err := NewComparator(pool).ScoreAll(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestFromRows(t *testing.T) {
	m, err := FromRows([][]float64{{0, 0.5}, {0.5, 0}})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	if m.At(1, 0) != 0.5 {
		t.Fatalf("cell = %v", m.At(1, 0))
	}
	if _, err := FromRows([][]float64{{0, 0.5}, {0.4, 0}}); err == nil {
		t.Fatal("expected asymmetry error")
	}
	if _, err := FromRows([][]float64{{1}}); err == nil {
		t.Fatal("expected diagonal error")
	}
	if _, err := FromRows([][]float64{{0, 1}}); err == nil {
		t.Fatal("expected shape error")
	}
	if _, err := FromRows([][]float64{{0, 1.5}, {1.5, 0}}); err == nil {
		t.Fatal("expected range error")
	}
}
