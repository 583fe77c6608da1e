package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quiz-ledger-service/internal/domain"
)

// LeaderboardCache keeps leaderboard snapshots per limit with a TTL to avoid
// re-aggregating the transaction log on every read.
type LeaderboardCache struct {
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu      sync.RWMutex
	gen     uint64
	entries map[int]cachedBoard
}

type cachedBoard struct {
	entries   []domain.LeaderboardEntry
	expiresAt time.Time
}

func NewLeaderboardCache(ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[int]cachedBoard),
	}
}

func (c *LeaderboardCache) GetLeaderboard(ctx context.Context, limit int, load func(context.Context) ([]domain.LeaderboardEntry, error)) ([]domain.LeaderboardEntry, error) {
	entries, gen, ok := c.lookup(limit)
	if ok {
		return entries, nil
	}

	// Loads started before an Invalidate share neither a flight nor a slot with later ones.
	key := strconv.FormatUint(gen, 10) + ":" + strconv.Itoa(limit)
	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if entries, _, ok := c.lookup(limit); ok {
			return entries, nil
		}
		entries, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.mu.Lock()
			if c.gen == gen {
				c.entries[limit] = cachedBoard{
					entries:   entries,
					expiresAt: c.clock().Add(c.ttlWithJitter()),
				}
			}
			c.mu.Unlock()
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

func (c *LeaderboardCache) Invalidate(context.Context) error {
	c.mu.Lock()
	c.gen++
	c.entries = make(map[int]cachedBoard)
	c.mu.Unlock()
	return nil
}

func (c *LeaderboardCache) lookup(limit int) ([]domain.LeaderboardEntry, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[limit]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, c.gen, false
	}
	return entry.entries, c.gen, true
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
