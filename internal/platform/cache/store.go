package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Store.Get when the key does not exist.
var ErrMiss = errors.New("platform/cache: miss")

// Store keeps JSON encoded values under string keys.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewStore returns a Store whose values expire after ttl. A zero ttl keeps
// values until overwritten.
func NewStore(client redis.Cmdable, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Put encodes v and stores it under key.
func (s *Store) Put(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("platform/cache: encode %s: %w", key, err)
	}
	return s.client.Set(ctx, key, payload, s.ttl).Err()
}

// Get decodes the value under key into dst.
func (s *Store) Get(ctx context.Context, key string, dst any) error {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("platform/cache: decode %s: %w", key, err)
	}
	return nil
}
