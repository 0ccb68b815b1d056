package plagiarism

import "fmt"

// FileReadError reports a corpus file that could not be opened or read
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("error in open file: %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }
