package users

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	totalsKeyPrefix = "users:bonus_total:"
	totalsCacheName = "bonus_totals"
)

// CacheRecorder observes cache hits and misses.
type CacheRecorder interface {
	Hit(cache string)
	Miss(cache string)
}

// TotalsCache keeps per-user bonus totals in Redis. A nil cache or client
// passes every read straight to the loader.
type TotalsCache struct {
	client   *redis.Client
	ttl      time.Duration
	group    singleflight.Group
	recorder CacheRecorder
}

// NewTotalsCache instantiates the cache helper.
func NewTotalsCache(client *redis.Client, ttl time.Duration) *TotalsCache {
	return &TotalsCache{client: client, ttl: ttl}
}

// SetRecorder attaches hit/miss observation.
func (c *TotalsCache) SetRecorder(r CacheRecorder) {
	if c != nil {
		c.recorder = r
	}
}

// Fetch returns the cached total for userID or populates it with loader.
// Concurrent misses for the same user share one loader call.
func (c *TotalsCache) Fetch(ctx context.Context, userID int64, loader func(context.Context) (BonusTotal, error)) (BonusTotal, error) {
	if loader == nil {
		return BonusTotal{}, errors.New("users: totals loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key := totalsKey(userID)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var total BonusTotal
		if err := json.Unmarshal(payload, &total); err == nil {
			c.observe(true)
			return total, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return BonusTotal{}, err
	}
	c.observe(false)

	// The shared load outlives any single caller's cancellation.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		total, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		if err := c.Store(loadCtx, total); err != nil {
			return nil, err
		}
		return total, nil
	})
	select {
	case <-ctx.Done():
		return BonusTotal{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return BonusTotal{}, res.Err
		}
		return res.Val.(BonusTotal), nil
	}
}

// Store writes one total.
func (c *TotalsCache) Store(ctx context.Context, total BonusTotal) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(total)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, totalsKey(total.UserID), raw, c.ttl).Err()
}

// StoreAll writes many totals in one pipeline.
func (c *TotalsCache) StoreAll(ctx context.Context, totals []BonusTotal) error {
	if c == nil || c.client == nil || len(totals) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for _, t := range totals {
		raw, err := json.Marshal(t)
		if err != nil {
			return err
		}
		pipe.Set(ctx, totalsKey(t.UserID), raw, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Invalidate drops the cached total of userID.
func (c *TotalsCache) Invalidate(ctx context.Context, userID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, totalsKey(userID)).Err()
}

func totalsKey(userID int64) string {
	return totalsKeyPrefix + strconv.FormatInt(userID, 10)
}

func (c *TotalsCache) observe(hit bool) {
	if c.recorder == nil {
		return
	}
	if hit {
		c.recorder.Hit(totalsCacheName)
		return
	}
	c.recorder.Miss(totalsCacheName)
}
