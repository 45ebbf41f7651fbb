// Package session stores leader portal sessions, in Redis or in the database.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"assessmentlinks/internal/models"
)

// RedisStore keeps sessions as JSON values that expire with the session
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed session store
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func key(id string) string { return fmt.Sprintf("leader:sess:%s", id) }

// Create stores s until its expiry
func (st *RedisStore) Create(ctx context.Context, s *models.LeaderSession) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}

	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := st.rdb.Set(ctx, key(s.ID), b, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get returns the session, or nil when it does not exist or has expired
func (st *RedisStore) Get(ctx context.Context, id string) (*models.LeaderSession, error) {
	b, err := st.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s models.LeaderSession
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}

// Delete removes the session
func (st *RedisStore) Delete(ctx context.Context, id string) error {
	if err := st.rdb.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
