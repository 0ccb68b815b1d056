package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RishiKendai/dupcheck/internal/emit"
	"github.com/RishiKendai/dupcheck/internal/runner"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RunExecutor runs one comparison
type RunExecutor interface {
	Run(ctx context.Context, runID, dir string) (*emit.Result, error)
}

// ConsumerOptions names the stream, the group and this consumer
type ConsumerOptions struct {
	StreamKey     string
	Group         string
	Name          string
	Retention     time.Duration
	ClaimMinIdle  time.Duration // pending entries idle this long are taken over
	ClaimInterval time.Duration
	TrimInterval  time.Duration
}

func (o *ConsumerOptions) setDefaults() {
	if o.ClaimMinIdle <= 0 {
		o.ClaimMinIdle = time.Minute
	}
	if o.ClaimInterval <= 0 {
		o.ClaimInterval = 30 * time.Second
	}
	if o.TrimInterval <= 0 {
		o.TrimInterval = time.Hour
	}
}

// Consumer turns stream entries into comparison runs through a consumer
// group. Entries left pending by a crashed consumer are claimed again.
type Consumer struct {
	client    *redis.Client
	opts      ConsumerOptions
	runner    RunExecutor
	retry     *RetryHandler
	lastClaim time.Time
}

func NewConsumer(client *redis.Client, opts ConsumerOptions, r RunExecutor, retry *RetryHandler) *Consumer {
	opts.setDefaults()
	return &Consumer{
		client: client,
		opts:   opts,
		runner: r,
		retry:  retry,
	}
}

// Start blocks until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create consumer group")
	}

	c.claimStale(ctx)

	if c.opts.Retention > 0 {
		go c.trimLoop(ctx)
	}

	log.Info().
		Str("stream", c.opts.StreamKey).
		Str("group", c.opts.Group).
		Str("consumer", c.opts.Name).
		Msg("Consuming run requests")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Since(c.lastClaim) > c.opts.ClaimInterval {
			c.claimStale(ctx)
		}
		if err := c.readBatch(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("Error consuming messages")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	// MKSTREAM creates the stream if it doesn't exist
	err := c.client.XGroupCreateMkStream(ctx, c.opts.StreamKey, c.opts.Group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// claimStale takes over entries other consumers read but never acknowledged
func (c *Consumer) claimStale(ctx context.Context) {
	c.lastClaim = time.Now()

	start := "0-0"
	for {
		msgs, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.opts.StreamKey,
			Group:    c.opts.Group,
			Consumer: c.opts.Name,
			MinIdle:  c.opts.ClaimMinIdle,
			Start:    start,
			Count:    50,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Warn().Err(err).Msg("Failed to claim pending messages")
			}
			return
		}

		if len(msgs) > 0 {
			log.Info().Int("claimed", len(msgs)).Msg("Claimed pending messages")
		}
		for i := range msgs {
			c.handle(ctx, &msgs[i])
		}

		if next == "0-0" || next == "" {
			return
		}
		start = next
	}
}

func (c *Consumer) readBatch(ctx context.Context) error {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.opts.Group,
		Consumer: c.opts.Name,
		Streams:  []string{c.opts.StreamKey, ">"},
		Count:    10,
		Block:    time.Second,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, s := range streams {
		for i := range s.Messages {
			c.handle(ctx, &s.Messages[i])
		}
	}
	return nil
}

// handle runs one entry. Every entry is acknowledged once handled, failed
// ones after the retry handler has moved them to the dead letter stream.
// Entries interrupted by shutdown stay pending.
func (c *Consumer) handle(ctx context.Context, msg *redis.XMessage) {
	fields := make(map[string]string, len(msg.Values))
	values := make(map[string]interface{}, len(msg.Values))
	for k, v := range msg.Values {
		if s, ok := v.(string); ok {
			fields[k] = s
			values[k] = s
		}
	}

	req, err := ParseRunRequest(&StreamMessage{ID: msg.ID, Fields: fields})
	if err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Msg("Dropping malformed run request")
		c.ack(ctx, msg.ID)
		return
	}
	if req.RunID == "" {
		req.RunID = runner.NewRunID()
	}

	err = c.retry.RetryWithBackoff(ctx, func() error {
		_, err := c.runner.Run(ctx, req.RunID, req.Directory)
		return err
	}, msg.ID, values)
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Str("runId", req.RunID).Msg("Run request failed")
	}
	c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.opts.StreamKey, c.opts.Group, id).Err(); err != nil {
		log.Error().Err(err).Str("message_id", id).Msg("Failed to acknowledge message")
		return
	}
	log.Debug().Str("message_id", id).Msg("Message acknowledged")
}

// trimLoop drops entries older than the retention window
func (c *Consumer) trimLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.TrimInterval)
	defer ticker.Stop()

	for {
		c.trim(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Consumer) trim(ctx context.Context) {
	cutoff := time.Now().Add(-c.opts.Retention)
	minID := fmt.Sprintf("%d-0", cutoff.UnixMilli())

	trimmed, err := c.client.XTrimMinID(ctx, c.opts.StreamKey, minID).Result()
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("Failed to trim stream")
		}
		return
	}
	if trimmed > 0 {
		log.Debug().
			Int64("trimmed", trimmed).
			Dur("retention", c.opts.Retention).
			Msg("Trimmed old messages from stream")
	}
}
