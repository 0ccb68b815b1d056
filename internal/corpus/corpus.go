package corpus

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/RishiKendai/dupcheck/internal/models"
	"github.com/rs/zerolog/log"
)

// readBatch bounds how many directory entries are held per ReadDir call
const readBatch = 256

// DirectoryOpenError reports a target directory that does not exist or
// cannot be listed
type DirectoryOpenError struct {
	Path string
	Err  error
}

func (e *DirectoryOpenError) Error() string {
	return fmt.Sprintf("error directory name: %s: %v", e.Path, e.Err)
}

func (e *DirectoryOpenError) Unwrap() error { return e.Err }

// Corpus is the sorted set of files discovered in one directory
type Corpus struct {
	Dir   string
	Files []models.FileRecord
	// Skipped lists sub-directories that were left out of Files
	Skipped []string
	// TotalBytes is the sum of the sizes reported by the directory listing
	TotalBytes int64
}

// Enumerate lists dir and assigns ids by sorted path. Every entry except
// sub-directories becomes a FileRecord. Sub-directories are not descended
// into or compared; each one is logged at warn level and listed in Skipped.
func Enumerate(dir string) (*Corpus, error) {
	d, err := os.Open(dir)
	if err != nil {
		return nil, &DirectoryOpenError{Path: dir, Err: err}
	}
	defer d.Close()

	c := &Corpus{Dir: dir}
	var paths []string
	for {
		entries, err := d.ReadDir(readBatch)
		for _, entry := range entries {
			name := entry.Name()
			if name == "." || name == ".." {
				continue
			}
			full := Join(dir, name)
			if entry.IsDir() {
				c.Skipped = append(c.Skipped, full)
				log.Warn().Str("path", full).Msg("Skipping sub-directory")
				continue
			}
			if info, infoErr := entry.Info(); infoErr == nil {
				c.TotalBytes += info.Size()
			}
			paths = append(paths, full)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &DirectoryOpenError{Path: dir, Err: err}
		}
	}

	sort.Strings(paths)
	c.Files = make([]models.FileRecord, len(paths))
	for i, p := range paths {
		c.Files[i] = models.FileRecord{ID: i, Path: p}
	}
	return c, nil
}

// Join appends name to dir with a single '/' separator.
func Join(dir, name string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}
