// Package store is the embedded, ordered persistence layer for OHLC candle
// data. One bbolt database backs every market; each (market, interval) pair
// gets its own bucket keyed by big-endian candle timestamps, which makes
// chronological order and byte order coincide.
package store

import (
	"fmt"
	"sync"

	"go.etcd.io/bbolt"
)

var settingsBucket = []byte("settings")

// Store owns the single on-disk database. Callers obtain a StoreHandle to
// do actual work; Store itself only manages the file.
type Store struct {
	db *bbolt.DB
}

// Open creates or opens the bbolt database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Handle returns a new StoreHandle sharing the underlying database. Handles
// are cheap; each caller that needs market access should get its own.
func (s *Store) Handle() *StoreHandle {
	return &StoreHandle{
		db:      s.db,
		markets: make(map[string]*StoreMarketHandle),
	}
}

// StoreHandle caches one StoreMarketHandle per market so repeated lookups of
// the same market share bucket-name derivation and the interval cache below
// it.
type StoreHandle struct {
	db *bbolt.DB

	mu      sync.Mutex
	markets map[string]*StoreMarketHandle
}

// Market returns the StoreMarketHandle for id, creating it on first use.
func (h *StoreHandle) Market(id MarketIdentifier) (*StoreMarketHandle, error) {
	uid := id.UID()

	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.markets[uid]; ok {
		return existing, nil
	}

	err := h.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(settingsBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: open settings bucket: %w", err)
	}

	handle := newStoreMarketHandle(h.db, id)
	h.markets[uid] = handle
	return handle, nil
}
