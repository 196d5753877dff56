package state

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

type boltKV struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) a bbolt-backed Store at path.
func OpenBolt(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state db %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return newStore(&boltKV{db: db}), nil
}

func (k *boltKV) Get(bucket, key string) ([]byte, error) {
	var out []byte
	err := k.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bucket)).Get([]byte(key)); v != nil {
			out = bytes.Clone(v)
		}
		return nil
	})
	return out, err
}

func (k *boltKV) Put(bucket, key string, val []byte) error {
	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), val)
	})
}

func (k *boltKV) Delete(bucket, key string) error {
	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Delete([]byte(key))
	})
}

func (k *boltKV) Update(bucket, key string, fn func(old []byte) ([]byte, error)) error {
	return k.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		var old []byte
		if v := b.Get([]byte(key)); v != nil {
			old = bytes.Clone(v)
		}
		next, err := fn(old)
		if err != nil {
			return err
		}
		if next == nil {
			return b.Delete([]byte(key))
		}
		return b.Put([]byte(key), next)
	})
}

func (k *boltKV) Sweep(bucket string, drop func(key string, val []byte) bool) (int, error) {
	removed := 0
	err := k.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		var doomed [][]byte
		err := b.ForEach(func(key, val []byte) error {
			if drop(string(key), val) {
				doomed = append(doomed, bytes.Clone(key))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, key := range doomed {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		removed = len(doomed)
		return nil
	})
	return removed, err
}

func (k *boltKV) Close() error { return k.db.Close() }
