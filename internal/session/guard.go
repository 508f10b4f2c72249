package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MergeGuard admits one login merge per key at a time across requests.
type MergeGuard interface {
	// Acquire reports whether the caller now holds key. The hold lapses
	// after ttl even if never released.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops the hold on key so the merge can be attempted again.
	Release(ctx context.Context, key string) error
}

// RedisMergeGuard shares merge holds between service instances.
type RedisMergeGuard struct {
	client *redis.Client
}

// NewRedisMergeGuard creates a guard backed by client.
func NewRedisMergeGuard(client *redis.Client) *RedisMergeGuard {
	return &RedisMergeGuard{client: client}
}

// Acquire sets key only if it is absent.
func (g *RedisMergeGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, guardKey(key), time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}

// Release deletes key.
func (g *RedisMergeGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, guardKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func guardKey(key string) string {
	return fmt.Sprintf("cart:merge:%s", key)
}

// LocalMergeGuard holds merge keys in process memory. It is used when Redis
// is disabled and only guards requests served by this instance.
type LocalMergeGuard struct {
	mu    sync.Mutex
	holds map[string]time.Time // key -> expiry
	now   func() time.Time
}

// NewLocalMergeGuard creates an in-process guard.
func NewLocalMergeGuard() *LocalMergeGuard {
	return &LocalMergeGuard{
		holds: make(map[string]time.Time),
		now:   time.Now,
	}
}

// Acquire takes key unless an unexpired hold exists.
func (g *LocalMergeGuard) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, expiry := range g.holds {
		if !now.Before(expiry) {
			delete(g.holds, k)
		}
	}

	if _, held := g.holds[key]; held {
		return false, nil
	}
	g.holds[key] = now.Add(ttl)
	return true, nil
}

// Release drops key.
func (g *LocalMergeGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.holds, key)
	return nil
}
