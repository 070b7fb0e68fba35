package cache

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/amishk599/jobboard/internal/model"
)

// DefaultSequenceKey is the counter key job ids are allocated from.
const DefaultSequenceKey = "job_counter"

// nextID raises the counter to the fence (ARGV[1]) when it is behind, then
// increments it. Both steps run atomically on the server.
var nextID = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local fence = tonumber(ARGV[1])
if cur < fence then
	redis.call('SET', KEYS[1], fence)
end
return redis.call('INCR', KEYS[1])
`)

// Sequence allocates monotonically increasing job ids from a Redis counter.
type Sequence struct {
	rdb *redis.Client
	key string
}

// NewSequence returns a sequence stored under key (DefaultSequenceKey if empty).
func NewSequence(rdb *redis.Client, key string) *Sequence {
	if key == "" {
		key = DefaultSequenceKey
	}
	return &Sequence{rdb: rdb, key: key}
}

// Next returns an id strictly greater than both the previous id handed out and
// fence. Passing the highest durable id as fence keeps a flushed or restored
// counter from reissuing ids.
func (s *Sequence) Next(ctx context.Context, fence int64) (int64, error) {
	id, err := nextID.Run(ctx, s.rdb, []string{s.key}, fence).Int64()
	if err != nil {
		return 0, model.Transient("allocate job id", err)
	}
	return id, nil
}
