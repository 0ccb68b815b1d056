package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RishiKendai/dupcheck/internal/corpus"
	"github.com/RishiKendai/dupcheck/internal/plagiarism"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RetryHandler retries failed runs with exponential backoff and moves
// messages that keep failing to the dead-letter stream
type RetryHandler struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	deadLetter func(ctx context.Context, values map[string]interface{}) error
}

func NewRetryHandler(client *redis.Client, deadLetterKey string) *RetryHandler {
	return &RetryHandler{
		maxRetries: 3,
		baseDelay:  time.Second,
		maxDelay:   30 * time.Second,
		deadLetter: func(ctx context.Context, values map[string]interface{}) error {
			return client.XAdd(ctx, &redis.XAddArgs{
				Stream: deadLetterKey,
				Values: values,
			}).Err()
		},
	}
}

// RetryWithBackoff calls fn until it succeeds or the retries run out.
// Errors that a retry cannot fix go to the dead-letter stream at once.
func (h *RetryHandler) RetryWithBackoff(
	ctx context.Context,
	fn func() error,
	messageID string,
	fields map[string]interface{},
) error {
	var err error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			delay := h.backoff(attempt)
			log.Warn().
				Err(err).
				Str("message_id", messageID).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying message")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err = fn(); err == nil {
			return nil
		}
		if isPermanent(err) || ctx.Err() != nil {
			break
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if dlqErr := h.sendToDeadLetter(ctx, messageID, fields, err); dlqErr != nil {
		return fmt.Errorf("%w (dead letter: %v)", err, dlqErr)
	}
	return err
}

func (h *RetryHandler) backoff(attempt int) time.Duration {
	delay := h.baseDelay << (attempt - 1)
	if delay <= 0 || delay > h.maxDelay {
		return h.maxDelay
	}
	return delay
}

func (h *RetryHandler) sendToDeadLetter(
	ctx context.Context,
	messageID string,
	fields map[string]interface{},
	cause error,
) error {
	values := make(map[string]interface{}, len(fields)+3)
	for k, v := range fields {
		values[k] = v
	}
	values["original_id"] = messageID
	values["error"] = cause.Error()
	values["failed_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := h.deadLetter(ctx, values); err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to move message to dead letter stream")
		return err
	}

	log.Warn().Err(cause).Str("message_id", messageID).Msg("Message moved to dead letter stream")
	return nil
}

// isPermanent reports errors caused by the corpus itself
func isPermanent(err error) bool {
	var dirErr *corpus.DirectoryOpenError
	var readErr *plagiarism.FileReadError
	return errors.As(err, &dirErr) || errors.As(err, &readErr)
}
