package credstore

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	boltBucket = []byte("credentials")
	boltKey    = []byte("refresh")
)

// BoltDurable persists the refresh credential in a local bbolt file. It is the
// default durable tier for single-host deployments and the CLI.
type BoltDurable struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the credential database at path.
func OpenBolt(path string) (*BoltDurable, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("credstore: open bolt db: %w", err)
	}
	return &BoltDurable{db: db}, nil
}

// Put stores the refresh credential.
func (b *BoltDurable) Put(_ context.Context, value string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return bucket.Put(boltKey, []byte(value))
	})
}

// Get returns the stored refresh credential, or ErrNotFound.
func (b *BoltDurable) Get(_ context.Context) (string, error) {
	var value string
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return ErrNotFound
		}
		raw := bucket.Get(boltKey)
		if raw == nil {
			return ErrNotFound
		}
		value = string(raw)
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// Delete removes the stored refresh credential. Deleting an absent credential is
// not an error.
func (b *BoltDurable) Delete(_ context.Context) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return nil
		}
		return bucket.Delete(boltKey)
	})
}

// Close closes the underlying database file.
func (b *BoltDurable) Close() error {
	return b.db.Close()
}
