// Package kv provides the durable BoltDB-backed persistence layer
// liquidationd uses in place of native/cdp.MemState, grounded on
// services/identity-gateway/store.go's bucket-per-record-type shape.
package kv

import (
	"encoding/json"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketPositions   = []byte("positions")
	bucketAccounts    = []byte("accounts")
	bucketIdempotency = []byte("idempotency")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("kv: record not found")
)

// Store wraps a BoltDB handle with the positions and accounts buckets the
// Position Liquidator's engineState interface needs, plus the idempotency
// bucket for recorded responses.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the BoltDB file at path and ensures its
// buckets exist, mirroring services/identity-gateway/store.go's NewStore.
func Open(path string, options *bolt.Options) (*Store, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketPositions, bucketAccounts, bucketIdempotency} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) get(bucket, key []byte, out any) error {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		v := b.Get(key)
		if v == nil {
			return ErrNotFound
		}
		raw = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (s *Store) put(bucket, key []byte, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, raw)
	})
}
