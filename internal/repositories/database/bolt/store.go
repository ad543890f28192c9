package bolt

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// Bucket names.
const (
	bucketAccounts      = "accounts"
	bucketPlans         = "plans"
	bucketReplicaClocks = "replica_clocks"
)

// Store wraps the bbolt database backing the single-file deployment mode.
// bbolt serializes writers, so every Update here is one atomic mutation.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database file and its buckets.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{bucketAccounts, bucketPlans, bucketReplicaClocks} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// ctob converts a counter to its stored big-endian form.
func ctob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// btoc converts a stored counter back to a uint64.
func btoc(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
