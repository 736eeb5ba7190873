package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Client wraps redis.Client but fails safe by swallowing connectivity errors.
type Client struct {
	client *redis.Client
	log    zerolog.Logger
}

// New creates a new Redis client.
func New(addr, password string, db int, log zerolog.Logger) *Client {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return NewFromRedis(redis.NewClient(opts), log)
}

// NewFromRedis wraps an already configured redis client.
func NewFromRedis(rdb *redis.Client, log zerolog.Logger) *Client {
	return &Client{client: rdb, log: log.With().Str("component", "cache").Logger()}
}

// Get returns value or nil if missing or redis unavailable.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	res, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		// fail safe: behave like cache miss
		c.log.Warn().Err(err).Str("key", key).Msg("cache get failed, treating as miss")
		return nil, nil
	}
	return res, nil
}

// Set stores value with TTL, ignoring redis errors.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
	return nil
}

// Expire re-arms the TTL of key, ignoring redis errors.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
		c.log.Debug().Err(err).Str("key", key).Msg("cache expire failed")
	}
	return nil
}

// Delete removes a key, ignoring redis errors.
func (c *Client) Delete(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
	return nil
}

// setIfCounter writes KEYS[1] only while the counter at KEYS[2] still holds ARGV[1].
var setIfCounter = redis.NewScript(`
if (redis.call("GET", KEYS[2]) or "0") == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

// Counter reads an integer counter. A missing counter reads as zero; ok is
// false when redis could not be asked.
func (c *Client) Counter(ctx context.Context, key string) (int64, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	n, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache counter read failed")
		return 0, false
	}
	return n, true
}

// DeleteAndBump removes key and increments counterKey in one MULTI block.
func (c *Client) DeleteAndBump(ctx context.Context, key, counterKey string) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.Incr(ctx, counterKey)
		return nil
	})
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
	return nil
}

// SetIfCounter stores value only if counterKey still equals counter, and
// reports whether it did.
func (c *Client) SetIfCounter(ctx context.Context, key, counterKey string, counter int64, value []byte, ttl time.Duration) bool {
	if c == nil || c.client == nil {
		return false
	}
	res, err := setIfCounter.Run(ctx, c.client,
		[]string{key, counterKey},
		strconv.FormatInt(counter, 10), value, ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache conditional set failed")
		return false
	}
	return res == 1
}

// Ping reports whether redis answers. Unlike the other methods it returns the error.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("cache not configured")
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
