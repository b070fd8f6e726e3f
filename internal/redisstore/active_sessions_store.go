package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rupeeflow/internal/models"
)

// Store mirrors live sessions into redis so other services can see what is
// charging right now without talking to this process.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns the redis-backed mirror.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(sessionID string) string {
	return fmt.Sprintf("meter:active:%s", sessionID)
}

// Save caches a session snapshot.
func (s *Store) Save(ctx context.Context, snap models.SessionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(snap.ID), data, s.ttl).Err()
}

// Get returns a cached snapshot.
func (s *Store) Get(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	result, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	var snap models.SessionSnapshot
	if err := json.Unmarshal([]byte(result), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Delete removes a cached snapshot.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}
