package pinata

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Cache maps content digests to IPFS hashes of earlier uploads.
type Cache interface {
	Get(key string) (hash string, ok bool, err error)
	Put(key, hash string) error
}

// BadgerCache is a Cache stored in a badger database.
type BadgerCache struct {
	db *badger.DB
}

const cachePrefix = "pin/"

// NewBadgerCache wraps an open database.
func NewBadgerCache(db *badger.DB) *BadgerCache {
	return &BadgerCache{db: db}
}

// OpenBadgerCache opens or creates a cache database in dir.
func OpenBadgerCache(dir string) (*BadgerCache, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open pin cache: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

// Get returns the hash stored for key.
func (c *BadgerCache) Get(key string) (string, bool, error) {
	var hash string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cachePrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			hash = string(val)
			return nil
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("read pin cache: %w", err)
	}
	return hash, true, nil
}

// Put records hash for key.
func (c *BadgerCache) Put(key, hash string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(cachePrefix+key), []byte(hash))
	})
	if err != nil {
		return fmt.Errorf("write pin cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
