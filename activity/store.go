// Package activity provides a Redis-backed durable store for idle-timeout
// activity records. It satisfies the session engine's activity-storage
// contract: absent keys report ok=false and backend failures surface as
// wrapped errors for the caller to absorb.
package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the session engine.
var ErrRedisUnavailable = errors.New("activity storage redis unavailable")

// Store persists activity record keys under a common prefix.
//
// Performance: every operation is a single Redis round-trip.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates an activity store. prefix namespaces all keys, typically
// per application instance or per user.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "act"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) key(name string) string {
	return s.prefix + ":" + name
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Get(ctx context.Context, name string) (string, bool, error) {
	value, err := s.redis.Get(ctx, s.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return value, true, nil
}

// Set describes the set operation and its observable behavior.
//
// Set may return an error when input validation, dependency calls, or security checks fail.
// Set does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Set(ctx context.Context, name, value string) error {
	if err := s.redis.Set(ctx, s.key(name), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Remove describes the remove operation and its observable behavior.
//
// Remove may return an error when input validation, dependency calls, or security checks fail.
// Remove does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Remove(ctx context.Context, name string) error {
	if err := s.redis.Del(ctx, s.key(name)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping verifies backend connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
