package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	_, rdb := newTestServer(t)
	return rdb
}

func newTestServer(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func newConsumer(rdb *redis.Client, name string) *Consumer {
	return NewConsumer(rdb, ConsumerConfig{
		Stream:   "job-created",
		Group:    "alert-matchers",
		Consumer: name,
		Block:    50 * time.Millisecond,
	})
}

func TestPublishReceiveAck(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)
	c := newConsumer(rdb, "c1")
	if err := c.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup: %v", err)
	}
	// Creating the group twice is fine.
	if err := c.EnsureGroup(ctx); err != nil {
		t.Fatalf("second EnsureGroup: %v", err)
	}

	p := NewPublisher(rdb, 0)
	if _, err := p.Publish(ctx, "job-created", map[string]any{"id": 42}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, err := c.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Receive returned %d deliveries, want 1", len(got))
	}
	if string(got[0].Payload) != `{"id":42}` {
		t.Errorf("payload = %s", got[0].Payload)
	}

	pending, err := c.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending before ack = %d, want 1", pending)
	}

	if err := c.Ack(ctx, got[0].ID); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	if pending, _ := c.Pending(ctx); pending != 0 {
		t.Errorf("pending after ack = %d, want 0", pending)
	}
}

func TestReceiveTimesOutEmpty(t *testing.T) {
	ctx := context.Background()
	c := newConsumer(newTestRedis(t), "c1")
	if err := c.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup: %v", err)
	}

	got, err := c.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Receive on empty stream = %d deliveries, want 0", len(got))
	}
}

func TestCompetingConsumersEachEntryOnce(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)
	a := newConsumer(rdb, "a")
	b := newConsumer(rdb, "b")
	if err := a.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup: %v", err)
	}

	p := NewPublisher(rdb, 0)
	for i := 0; i < 3; i++ {
		if _, err := p.Publish(ctx, "job-created", map[string]int{"id": i}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	first, err := a.Receive(ctx)
	if err != nil {
		t.Fatalf("a.Receive: %v", err)
	}
	second, err := b.Receive(ctx)
	if err != nil {
		t.Fatalf("b.Receive: %v", err)
	}
	if len(first) != 3 {
		t.Errorf("a received %d, want 3", len(first))
	}
	if len(second) != 0 {
		t.Errorf("b received %d entries already delivered to a, want 0", len(second))
	}
}

func TestReceiveReclaimsStalledEntries(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestServer(t)
	cfg := ConsumerConfig{
		Stream:    "job-created",
		Group:     "alert-matchers",
		Block:     50 * time.Millisecond,
		ClaimIdle: time.Minute,
	}
	cfg.Consumer = "crashed"
	a := NewConsumer(rdb, cfg)
	cfg.Consumer = "survivor"
	b := NewConsumer(rdb, cfg)
	if err := a.EnsureGroup(ctx); err != nil {
		t.Fatalf("EnsureGroup: %v", err)
	}

	if _, err := NewPublisher(rdb, 0).Publish(ctx, "job-created", map[string]int{"id": 42}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// a takes the entry and never acks it.
	got, err := a.Receive(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("a.Receive = (%d, %v), want 1 entry", len(got), err)
	}

	// Not idle long enough yet.
	early, err := b.Receive(ctx)
	if err != nil {
		t.Fatalf("b.Receive: %v", err)
	}
	if len(early) != 0 {
		t.Fatalf("b received %d entries before claim_idle elapsed, want 0", len(early))
	}

	mr.FastForward(2 * time.Minute)
	reclaimed, err := b.Receive(ctx)
	if err != nil {
		t.Fatalf("b.Receive after idle: %v", err)
	}
	if len(reclaimed) != 1 || reclaimed[0].ID != got[0].ID {
		t.Fatalf("b reclaimed %+v, want entry %s", reclaimed, got[0].ID)
	}
	if string(reclaimed[0].Payload) != `{"id":42}` {
		t.Errorf("reclaimed payload = %s", reclaimed[0].Payload)
	}

	if err := b.Ack(ctx, reclaimed[0].ID); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	if pending, err := b.Pending(ctx); err != nil || pending != 0 {
		t.Errorf("pending after ack = (%d, %v), want 0", pending, err)
	}
}
