// internal/research/pacing/redis.go
package pacing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// minRetry bounds the wait when the slot key has no readable TTL.
const minRetry = 10 * time.Millisecond

// RedisPacer shares one launch slot between every process using the same
// key. A launch claims the slot with SET NX PX; the others sleep until it
// expires.
type RedisPacer struct {
	client   redis.Cmdable
	key      string
	interval time.Duration
	owner    string
}

func NewRedisPacer(client redis.Cmdable, key string, interval time.Duration) *RedisPacer {
	if key == "" {
		key = DefaultKey
	}
	return &RedisPacer{
		client:   client,
		key:      key,
		interval: interval,
		owner:    uuid.NewString(),
	}
}

func (p *RedisPacer) Wait(ctx context.Context) error {
	if p.interval <= 0 {
		return ctx.Err()
	}
	for {
		ok, err := p.client.SetNX(ctx, p.key, p.owner, p.interval).Result()
		if err != nil {
			return fmt.Errorf("claim pacing slot %s: %w", p.key, err)
		}
		if ok {
			return nil
		}

		ttl, err := p.client.PTTL(ctx, p.key).Result()
		if err != nil {
			return fmt.Errorf("read pacing slot ttl %s: %w", p.key, err)
		}
		if ttl < minRetry {
			ttl = minRetry
		}
		if err := sleep(ctx, ttl); err != nil {
			return err
		}
	}
}
