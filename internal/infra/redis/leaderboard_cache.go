package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"quiz-ledger-service/internal/domain"
)

// LeaderboardCache stores leaderboard snapshots in Redis as JSON and falls back to
// the loader on a miss. Keys carry a generation number so invalidation is one INCR:
//
//	leaderboard:gen                 -> current generation
//	leaderboard:{gen}:{limit}       -> JSON []LeaderboardEntry
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *LeaderboardCache) GetLeaderboard(ctx context.Context, limit int, load func(context.Context) ([]domain.LeaderboardEntry, error)) ([]domain.LeaderboardEntry, error) {
	gen := c.generation(ctx)
	key := c.key(gen, limit)

	if entries, ok := c.read(ctx, key); ok {
		return entries, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if entries, ok := c.read(ctx, key); ok {
			return entries, nil
		}

		entries, err := load(ctx)
		if err != nil {
			return nil, err
		}

		if ttl := c.ttlWithJitter(); ttl > 0 {
			if data, err := json.Marshal(entries); err == nil {
				_ = c.client.Set(ctx, key, data, ttl).Err()
			}
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

// Invalidate moves every reader to a fresh generation; stale keys expire on their own.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.generationKey()).Err()
}

func (c *LeaderboardCache) read(ctx context.Context, key string) ([]domain.LeaderboardEntry, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *LeaderboardCache) generation(ctx context.Context) int64 {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0
	}
	return gen
}

func (c *LeaderboardCache) generationKey() string {
	return "leaderboard:gen"
}

func (c *LeaderboardCache) key(gen int64, limit int) string {
	return "leaderboard:" + strconv.FormatInt(gen, 10) + ":" + strconv.Itoa(limit)
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
