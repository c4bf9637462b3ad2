package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Database keeps short lived counters. Every key expires after the TTL the
// implementation was created with.
type Database interface {
	Incr(ctx context.Context, key string) (int, error)
	Healthy(ctx context.Context) error
}

type RedisDatabase struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDatabase(addr string, password string, dbID int, ttl time.Duration) (Database, error) {

	db := &RedisDatabase{
		ttl: ttl,
	}

	redisOptions := &redis.Options{
		Addr: addr,
		DB:   dbID,
	}

	if password != "" {
		redisOptions.Password = password
	}

	redisClient := redis.NewClient(redisOptions)

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	db.rdb = redisClient

	return db, nil
}

func (db *RedisDatabase) Incr(ctx context.Context, key string) (int, error) {

	pipe := db.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// the TTL is refreshed on every increment, so a counter outlives its last write by ttl
	pipe.Expire(ctx, key, db.ttl)

	_, err := pipe.Exec(ctx)
	return int(incr.Val()), err
}

func (db *RedisDatabase) Healthy(ctx context.Context) error {
	return db.rdb.Ping(ctx).Err()
}
