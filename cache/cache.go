// Package cache tracks recently greeted users. The gateway delivers
// presence events at-least-once and possibly out of order, so without
// a cooldown record a duplicated join event would replay a user's
// ringtone. The cache is optional: when Redis is not configured the
// service runs without duplicate suppression.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dex-ringtone-service:"

// Cache is the greeting cooldown store.
type Cache interface {
	// MarkGreeted records that a user was just greeted in a guild.
	MarkGreeted(guildID, userID string, ttl time.Duration) error
	// RecentlyGreeted reports whether the user was greeted within the
	// cooldown window. Lookup failures count as "not greeted" so a
	// cache outage never silences greetings entirely.
	RecentlyGreeted(guildID, userID string) bool
	Ping() error
	Close() error
}

type DB struct {
	rdb *redis.Client
	ctx context.Context
}

// New connects to Redis. An empty addr yields a nil cache, which
// callers treat as "cooldown disabled".
func New(addr, password string, db int) (*DB, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("could not connect to cache at %s: %w", addr, err)
	}
	return &DB{rdb: rdb, ctx: ctx}, nil
}

func greetKey(guildID, userID string) string {
	return fmt.Sprintf("%sgreeted:%s:%s", keyPrefix, guildID, userID)
}

func (db *DB) MarkGreeted(guildID, userID string, ttl time.Duration) error {
	return db.rdb.Set(db.ctx, greetKey(guildID, userID), time.Now().Unix(), ttl).Err()
}

func (db *DB) RecentlyGreeted(guildID, userID string) bool {
	n, err := db.rdb.Exists(db.ctx, greetKey(guildID, userID)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

func (db *DB) Ping() error {
	return db.rdb.Ping(db.ctx).Err()
}

func (db *DB) Close() error {
	return db.rdb.Close()
}
