// Package pacing spaces out launches of rate-limited provider calls.
package pacing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"research-workers/internal/common/config"
)

const DefaultKey = "research:pacing:llm"

// Pacer blocks until the caller may launch its next call.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Interval spaces successive Wait returns by a fixed interval within one
// process. The first Wait returns immediately.
type Interval struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func NewInterval(interval time.Duration) *Interval {
	return &Interval{interval: interval}
}

func (p *Interval) Wait(ctx context.Context) error {
	p.mu.Lock()
	now := time.Now()
	at := p.next
	if at.Before(now) {
		at = now
	}
	p.next = at.Add(p.interval)
	p.mu.Unlock()

	return sleep(ctx, time.Until(at))
}

// NewFromConfig picks the pacing backend. rdb is required for redis.
func NewFromConfig(rc config.ResearchConfig, rdb redis.Cmdable) (Pacer, error) {
	interval := config.GetDuration(rc.ChunkDelay)
	switch rc.Pacing.Backend {
	case "", config.PacingLocal:
		return NewInterval(interval), nil
	case config.PacingRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis pacing needs a redis client")
		}
		return NewRedisPacer(rdb, rc.Pacing.Key, interval), nil
	}
	return nil, fmt.Errorf("unknown pacing backend %q", rc.Pacing.Backend)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
