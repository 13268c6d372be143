// Package dedup filters redelivered messages. Kafka delivery is
// at-least-once, so after a rebalance the detector can see the same record
// twice; replaying it would append a duplicate to the user's history.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type Guard interface {
	// FirstSeen reports whether payload has not been seen before and marks
	// it as seen.
	FirstSeen(ctx context.Context, payload []byte) (bool, error)
	Close() error
}

// Noop lets everything through.
type Noop struct{}

func (Noop) FirstSeen(context.Context, []byte) (bool, error) { return true, nil }
func (Noop) Close() error                                     { return nil }

type RedisConfig struct {
	Addrs  []string
	Prefix string
	TTL    time.Duration
	// ConnectAttempts bounds the start-up health check loop.
	ConnectAttempts int
	RetryDelay      time.Duration
}

type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis connects to a single node or a cluster, depending on how many
// addresses are given, and waits for it to answer a health check.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("redis: no addresses configured")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = 30
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:          cfg.Addrs,
		RouteByLatency: len(cfg.Addrs) > 1,
	})
	r := &Redis{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}

	var err error
	for i := 0; i < cfg.ConnectAttempts; i++ {
		if err = client.Set(ctx, r.prefix+"health_check", "ok", 5*time.Second).Err(); err == nil {
			log.Printf("Connected to Redis at %v", cfg.Addrs)
			return r, nil
		}
		log.Printf("Waiting for Redis (attempt %d/%d): %v", i+1, cfg.ConnectAttempts, err)
		select {
		case <-ctx.Done():
			client.Close()
			return nil, ctx.Err()
		case <-time.After(cfg.RetryDelay):
		}
	}
	client.Close()
	return nil, fmt.Errorf("redis health check failed: %w", err)
}

func (r *Redis) key(payload []byte) string {
	sum := sha256.Sum256(payload)
	return r.prefix + "seen:" + hex.EncodeToString(sum[:])
}

func (r *Redis) FirstSeen(ctx context.Context, payload []byte) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(payload), 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
