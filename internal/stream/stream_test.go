package stream

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/RishiKendai/dupcheck/internal/corpus"
)

func TestParseRunRequest(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		want    RunRequest
		wantErr bool
	}{
		{"full", map[string]string{"runId": "r1", "directory": "/data"}, RunRequest{RunID: "r1", Directory: "/data"}, false},
		{"no run id", map[string]string{"directory": " /data "}, RunRequest{Directory: "/data"}, false},
		{"no directory", map[string]string{"runId": "r1"}, RunRequest{}, true},
		{"blank directory", map[string]string{"directory": "  "}, RunRequest{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRunRequest(&StreamMessage{ID: "1-0", Fields: tt.fields})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *got != tt.want {
				t.Fatalf("got %+v, want %+v", *got, tt.want)
			}
		})
	}
}

type deadLetterSink struct {
	entries []map[string]interface{}
}

func (s *deadLetterSink) add(_ context.Context, values map[string]interface{}) error {
	s.entries = append(s.entries, values)
	return nil
}

func newTestRetryHandler(sink *deadLetterSink) *RetryHandler {
	return &RetryHandler{
		maxRetries: 2,
		baseDelay:  time.Millisecond,
		maxDelay:   5 * time.Millisecond,
		deadLetter: sink.add,
	}
}

func TestRetryWithBackoffEventuallySucceeds(t *testing.T) {
	sink := &deadLetterSink{}
	h := newTestRetryHandler(sink)

	calls := 0
	err := h.RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	}, "1-0", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if len(sink.entries) != 0 {
		t.Fatalf("dead letter used on success")
	}
}

func TestRetryWithBackoffDeadLetters(t *testing.T) {
	sink := &deadLetterSink{}
	h := newTestRetryHandler(sink)

	calls := 0
	cause := errors.New("boom")
	err := h.RetryWithBackoff(context.Background(), func() error {
		calls++
		return cause
	}, "7-0", map[string]interface{}{"directory": "/data"})
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want %v", err, cause)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if len(sink.entries) != 1 {
		t.Fatalf("dead letter entries = %d, want 1", len(sink.entries))
	}
	entry := sink.entries[0]
	if entry["original_id"] != "7-0" || entry["directory"] != "/data" || entry["error"] != "boom" {
		t.Fatalf("unexpected dead letter entry %+v", entry)
	}
}

func TestRetryWithBackoffPermanentErrorSkipsRetries(t *testing.T) {
	sink := &deadLetterSink{}
	h := newTestRetryHandler(sink)

	calls := 0
	err := h.RetryWithBackoff(context.Background(), func() error {
		calls++
		return &corpus.DirectoryOpenError{Path: "/missing", Err: os.ErrNotExist}
	}, "9-0", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if len(sink.entries) != 1 {
		t.Fatalf("dead letter entries = %d, want 1", len(sink.entries))
	}
}

func TestRetryWithBackoffCancelled(t *testing.T) {
	sink := &deadLetterSink{}
	h := newTestRetryHandler(sink)
	h.baseDelay = time.Hour
	h.maxDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	err := h.RetryWithBackoff(ctx, func() error {
		cancel()
		return errors.New("transient")
	}, "3-0", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(sink.entries) != 0 {
		t.Fatalf("cancelled message should stay pending, not dead-lettered")
	}
}

func TestBackoffIsCapped(t *testing.T) {
	h := &RetryHandler{baseDelay: time.Second, maxDelay: 4 * time.Second}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{10, 4 * time.Second},
	}
	for _, tt := range tests {
		if got := h.backoff(tt.attempt); got != tt.want {
			t.Fatalf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestConsumerOptionsDefaults(t *testing.T) {
	opts := ConsumerOptions{StreamKey: "s", Group: "g", Name: "n", ClaimMinIdle: 5 * time.Second}
	opts.setDefaults()
	if opts.ClaimMinIdle != 5*time.Second {
		t.Fatalf("ClaimMinIdle overwritten: %v", opts.ClaimMinIdle)
	}
	if opts.ClaimInterval != 30*time.Second || opts.TrimInterval != time.Hour {
		t.Fatalf("unexpected defaults %+v", opts)
	}
}
