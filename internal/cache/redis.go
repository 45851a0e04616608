package cache

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/charismamove/apiserver/config"
	"github.com/charismamove/apiserver/types"
)

const (
	keyPrefix     = "charisma:announcements:"
	generationKey = keyPrefix + "gen"
)

// NewRedisClient connects to cfg.Addr and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Announcements caches announcement search results in Redis. Entries are
// namespaced by a generation counter that Invalidate bumps, so a publish
// hides every cached search at once.
type Announcements struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewAnnouncements(client redis.Cmdable, ttl time.Duration) *Announcements {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Announcements{client: client, ttl: ttl}
}

func (c *Announcements) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// Get returns the cached result for filter along with the generation it
// was looked up in. A miss must be filled with Set under that generation so
// that a publish racing the fill cannot resurrect stale results. Misses and
// Redis errors both report false.
func (c *Announcements) Get(ctx context.Context, filter types.AnnouncementFilter) ([]types.Announcement, int64, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, -1, false
	}
	data, err := c.client.Get(ctx, EntryKey(gen, filter)).Bytes()
	if err != nil {
		return nil, gen, false
	}
	var announcements []types.Announcement
	if err := json.Unmarshal(data, &announcements); err != nil {
		return nil, gen, false
	}
	return announcements, gen, true
}

// Set stores announcements for filter under gen. A negative gen, reported
// by Get when Redis was unreachable, stores nothing.
func (c *Announcements) Set(ctx context.Context, gen int64, filter types.AnnouncementFilter, announcements []types.Announcement) error {
	if gen < 0 {
		return nil
	}
	data, err := json.Marshal(announcements)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, EntryKey(gen, filter), data, c.ttl).Err()
}

func (c *Announcements) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}

// EntryKey is the Redis key of one cached search. Filter values are query
// escaped so distinct filters never share a key.
func EntryKey(generation int64, filter types.AnnouncementFilter) string {
	values := url.Values{
		"d": {strings.ToLower(strings.TrimSpace(filter.Departure))},
		"a": {strings.ToLower(strings.TrimSpace(filter.Destination))},
		"s": {strconv.Itoa(filter.MinSeats)},
	}
	return keyPrefix + strconv.FormatInt(generation, 10) + ":" + values.Encode()
}
