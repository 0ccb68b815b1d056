package main

// UsageError reports a command line with the wrong number of arguments
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string {
	return "Usage: " + e.Usage
}
