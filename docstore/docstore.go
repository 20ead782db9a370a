// Package docstore implements the profile-document backend on Redis. Documents
// are JSON values keyed by collection and id; writes publish the new document
// on a per-document channel so live subscriptions observe every change.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goSession "github.com/MrEthical07/goSession"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the session engine.
var ErrRedisUnavailable = errors.New("document store redis unavailable")

// tombstone is published on delete so subscribers observe removal.
const tombstone = "null"

// Store is a Redis-backed [goSession.ProfileStore].
//
// Performance: GetDocument is a single Redis round-trip; SetDocument is a
// SET plus a PUBLISH.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a document store. prefix namespaces keys and pub/sub channels.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "doc"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) docKey(collection, id string) string {
	return s.prefix + ":" + collection + ":" + id
}

func (s *Store) channel(collection, id string) string {
	return s.prefix + ":ch:" + collection + ":" + id
}

// GetDocument describes the getdocument operation and its observable behavior.
//
// GetDocument may return an error when input validation, dependency calls, or security checks fail.
// GetDocument does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) GetDocument(ctx context.Context, collection, id string) (*goSession.ProfileRecord, error) {
	data, err := s.redis.Get(ctx, s.docKey(collection, id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, goSession.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var rec goSession.ProfileRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("document %s/%s is corrupt: %w", collection, id, err)
	}
	return &rec, nil
}

// SetDocument writes the document and publishes it to live subscribers.
func (s *Store) SetDocument(ctx context.Context, collection, id string, rec *goSession.ProfileRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.docKey(collection, id), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if err := s.redis.Publish(ctx, s.channel(collection, id), data).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteDocument removes the document and notifies live subscribers.
func (s *Store) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := s.redis.Del(ctx, s.docKey(collection, id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if err := s.redis.Publish(ctx, s.channel(collection, id), tombstone).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// SubscribeDocument describes the subscribedocument operation and its observable behavior.
//
// SubscribeDocument delivers every document write published after the
// subscription is established, and exists=false when the document is deleted.
// The returned unsubscribe is safe to call more than once.
func (s *Store) SubscribeDocument(collection, id string, onChange func(rec *goSession.ProfileRecord, exists bool), onError func(error)) goSession.Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())
	sub := s.redis.Subscribe(ctx, s.channel(collection, id))

	go func() {
		for msg := range sub.Channel() {
			if msg.Payload == "" || msg.Payload == tombstone {
				onChange(nil, false)
				continue
			}

			var rec goSession.ProfileRecord
			if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
				if onError != nil {
					onError(fmt.Errorf("document %s/%s push is corrupt: %w", collection, id, err))
				}
				continue
			}
			onChange(&rec, true)
		}
	}()

	return func() {
		cancel()
		_ = sub.Close()
	}
}
