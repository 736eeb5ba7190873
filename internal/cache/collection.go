package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Collection keys.
const (
	KeyCars       = "cars"
	KeyCategories = "categories"
	KeyRentals    = "rentals"
	KeyUsers      = "users"
)

// Policy is the expiration policy of a collection. An entry is evicted when
// either the absolute deadline passes or it goes unread for Sliding.
type Policy struct {
	Absolute time.Duration
	Sliding  time.Duration
}

// DefaultPolicy is 10 minutes absolute, 5 minutes sliding.
var DefaultPolicy = Policy{Absolute: 10 * time.Minute, Sliding: 5 * time.Minute}

type envelope[T any] struct {
	ExpiresAt time.Time `json:"expiresAt"`
	Items     []T       `json:"items"`
}

// Collection caches a whole ordered list of T under one key.
type Collection[T any] struct {
	client *Client
	key    string
	policy Policy
	log    zerolog.Logger
	now    func() time.Time
}

// NewCollection returns a collection cache stored under key.
func NewCollection[T any](client *Client, key string, policy Policy, log zerolog.Logger) *Collection[T] {
	if policy.Absolute <= 0 {
		policy.Absolute = DefaultPolicy.Absolute
	}
	if policy.Sliding <= 0 {
		policy.Sliding = DefaultPolicy.Sliding
	}
	return &Collection[T]{
		client: client,
		key:    key,
		policy: policy,
		log:    log.With().Str("collection", key).Logger(),
		now:    time.Now,
	}
}

// Key returns the redis key of the collection.
func (c *Collection[T]) Key() string {
	return c.key
}

// Get returns the cached items and true on a hit. Every hit slides the TTL,
// capped by the absolute deadline.
func (c *Collection[T]) Get(ctx context.Context) ([]T, bool) {
	data, _ := c.client.Get(ctx, c.key)
	if data == nil {
		return nil, false
	}

	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		c.log.Warn().Err(err).Msg("corrupt cache payload, evicting")
		_ = c.client.Delete(ctx, c.key)
		return nil, false
	}

	remaining := env.ExpiresAt.Sub(c.now())
	if remaining <= 0 {
		_ = c.client.Delete(ctx, c.key)
		return nil, false
	}
	_ = c.client.Expire(ctx, c.key, minDuration(c.policy.Sliding, remaining))

	if env.Items == nil {
		env.Items = []T{}
	}
	return env.Items, true
}

func (c *Collection[T]) genKey() string {
	return c.key + ":gen"
}

func (c *Collection[T]) encode(items []T) ([]byte, bool) {
	env := envelope[T]{ExpiresAt: c.now().Add(c.policy.Absolute), Items: items}
	payload, err := json.Marshal(env)
	if err != nil {
		c.log.Warn().Err(err).Msg("marshal cache payload")
		return nil, false
	}
	return payload, true
}

func (c *Collection[T]) ttl() time.Duration {
	return minDuration(c.policy.Sliding, c.policy.Absolute)
}

// Populate stores items with a fresh absolute deadline, unconditionally.
func (c *Collection[T]) Populate(ctx context.Context, items []T) {
	if payload, ok := c.encode(items); ok {
		_ = c.client.Set(ctx, c.key, payload, c.ttl())
	}
}

// Invalidate drops the collection and bumps its generation so that loads
// started before the call can no longer populate. Call only after the write
// has committed.
func (c *Collection[T]) Invalidate(ctx context.Context) {
	_ = c.client.DeleteAndBump(ctx, c.key, c.genKey())
	c.log.Debug().Msg("cache invalidated")
}

// ReadThrough serves from cache, or loads and returns the freshly loaded
// items. The load is cached only if no Invalidate ran while it was in flight.
func (c *Collection[T]) ReadThrough(ctx context.Context, load func(ctx context.Context) ([]T, error)) ([]T, error) {
	if items, ok := c.Get(ctx); ok {
		return items, nil
	}
	gen, genOK := c.client.Counter(ctx, c.genKey())
	items, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if !genOK {
		return items, nil
	}
	if payload, ok := c.encode(items); ok {
		if !c.client.SetIfCounter(ctx, c.key, c.genKey(), gen, payload, c.ttl()) {
			c.log.Debug().Int64("generation", gen).Msg("cache invalidated during load, not populating")
		}
	}
	return items, nil
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
