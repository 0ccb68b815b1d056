package stream

import (
	"fmt"
	"strings"
)

// StreamMessage is a raw stream entry with its string fields
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

// RunRequest asks for one comparison run
type RunRequest struct {
	RunID     string
	Directory string
}

// ParseRunRequest reads a run request from the runId and directory fields.
// A missing runId is left empty for the runner to fill in.
func ParseRunRequest(msg *StreamMessage) (*RunRequest, error) {
	dir := strings.TrimSpace(msg.Fields["directory"])
	if dir == "" {
		return nil, fmt.Errorf("message %s: directory is required", msg.ID)
	}

	return &RunRequest{
		RunID:     strings.TrimSpace(msg.Fields["runId"]),
		Directory: dir,
	}, nil
}
