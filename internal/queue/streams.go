// Package queue implements the durable event bus on Redis Streams. Each queue
// is a stream consumed through a consumer group, so every entry is delivered to
// exactly one consumer of the group and stays pending until acknowledged.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amishk599/jobboard/internal/model"
)

const payloadField = "payload"

// Delivery is one stream entry handed to a consumer.
type Delivery struct {
	ID      string
	Stream  string
	Payload []byte
}

// Publisher appends JSON payloads to streams.
type Publisher struct {
	rdb    *redis.Client
	maxLen int64
}

// NewPublisher returns a publisher. maxLen > 0 caps each stream approximately.
func NewPublisher(rdb *redis.Client, maxLen int64) *Publisher {
	return &Publisher{rdb: rdb, maxLen: maxLen}
}

// Publish marshals v and appends it to stream, returning the entry id.
func (p *Publisher) Publish(ctx context.Context, stream string, v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", stream, err)
	}
	return p.PublishRaw(ctx, stream, body)
}

// PublishRaw appends an already encoded payload to stream.
func (p *Publisher) PublishRaw(ctx context.Context, stream string, body []byte) (string, error) {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{payloadField: string(body)},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	id, err := p.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return "", model.Transient("publish to "+stream, err)
	}
	return id, nil
}

// ConsumerConfig names the stream, group and consumer and tunes receiving.
type ConsumerConfig struct {
	Stream   string
	Group    string
	Consumer string
	// Block is how long a receive waits for new entries. Must be positive.
	Block time.Duration
	// ClaimIdle reclaims entries left pending by other consumers for longer
	// than this. Zero disables reclaiming.
	ClaimIdle time.Duration
	Count     int64
}

// Consumer receives and acknowledges entries of one stream as a member of a
// consumer group.
type Consumer struct {
	rdb *redis.Client
	cfg ConsumerConfig
}

// NewConsumer returns a group consumer.
func NewConsumer(rdb *redis.Client, cfg ConsumerConfig) *Consumer {
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.Count <= 0 {
		cfg.Count = 10
	}
	return &Consumer{rdb: rdb, cfg: cfg}
}

// EnsureGroup creates the stream and consumer group if they do not exist.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return model.Transient("create group "+c.cfg.Group, err)
	}
	return nil
}

// Receive returns the next batch of entries: first entries reclaimed from
// stalled consumers, otherwise new entries, blocking up to Block. An empty
// batch with a nil error means the wait timed out.
func (c *Consumer) Receive(ctx context.Context) ([]Delivery, error) {
	if c.cfg.ClaimIdle > 0 {
		msgs, _, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.cfg.Stream,
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			MinIdle:  c.cfg.ClaimIdle,
			Start:    "0-0",
			Count:    c.cfg.Count,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, model.Transient("reclaim "+c.cfg.Stream, err)
		}
		if len(msgs) > 0 {
			return c.deliveries(msgs), nil
		}
	}

	streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.Count,
		Block:    c.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, model.Transient("read "+c.cfg.Stream, err)
	}

	var out []Delivery
	for _, s := range streams {
		out = append(out, c.deliveries(s.Messages)...)
	}
	return out, nil
}

func (c *Consumer) deliveries(msgs []redis.XMessage) []Delivery {
	out := make([]Delivery, 0, len(msgs))
	for _, m := range msgs {
		d := Delivery{ID: m.ID, Stream: c.cfg.Stream}
		if v, ok := m.Values[payloadField].(string); ok {
			d.Payload = []byte(v)
		}
		out = append(out, d)
	}
	return out
}

// Ack acknowledges an entry so it is not delivered again.
func (c *Consumer) Ack(ctx context.Context, id string) error {
	if err := c.rdb.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		return model.Transient("ack "+c.cfg.Stream, err)
	}
	return nil
}

// Pending returns how many entries of the group are delivered but not acked.
func (c *Consumer) Pending(ctx context.Context) (int64, error) {
	p, err := c.rdb.XPending(ctx, c.cfg.Stream, c.cfg.Group).Result()
	if err != nil {
		return 0, model.Transient("pending "+c.cfg.Stream, err)
	}
	return p.Count, nil
}
