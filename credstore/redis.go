package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDurable persists the refresh credential in redis. Intended for edge
// deployments where several gateway instances must observe the same session, the
// same way a browser's durable storage is shared between tabs.
type RedisDurable struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisDurable builds a redis-backed durable tier. prefix namespaces the key,
// subject scopes it to one principal (e.g. a user or device ID), and ttl bounds
// how long an untouched refresh credential survives.
func NewRedisDurable(client *redis.Client, prefix, subject string, ttl time.Duration) (*RedisDurable, error) {
	if client == nil {
		return nil, errors.New("credstore: redis client is required")
	}
	if subject == "" {
		return nil, errors.New("credstore: redis subject is required")
	}
	return &RedisDurable{
		client: client,
		key:    fmt.Sprintf("%s:refresh:%s", prefix, subject),
		ttl:    ttl,
	}, nil
}

// Put stores the refresh credential under the tier's key.
func (r *RedisDurable) Put(ctx context.Context, value string) error {
	return r.client.Set(ctx, r.key, value, r.ttl).Err()
}

// Get returns the stored refresh credential, or ErrNotFound.
func (r *RedisDurable) Get(ctx context.Context) (string, error) {
	value, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Delete removes the stored refresh credential.
func (r *RedisDurable) Delete(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

// Close is a no-op; the redis client is owned by the caller.
func (r *RedisDurable) Close() error {
	return nil
}
