package store

import (
	"fmt"
	"sync"

	"go.etcd.io/bbolt"
)

// StoreMarketHandle scopes store access to a single market. It lazily opens
// one StoreMarketDataHandle per interval and lets callers read or write the
// market's persisted settings.
type StoreMarketHandle struct {
	db *bbolt.DB
	id MarketIdentifier

	mu    sync.RWMutex
	trees map[Interval]*StoreMarketDataHandle
}

func newStoreMarketHandle(db *bbolt.DB, id MarketIdentifier) *StoreMarketHandle {
	return &StoreMarketHandle{
		db:    db,
		id:    id,
		trees: make(map[Interval]*StoreMarketDataHandle),
	}
}

// ID returns the market this handle is scoped to.
func (m *StoreMarketHandle) ID() MarketIdentifier {
	return m.id
}

// Settings returns the market's persisted settings, writing and returning
// the zero value the first time a market is seen.
func (m *StoreMarketHandle) Settings() (MarketSettings, error) {
	var settings MarketSettings
	var found bool

	err := m.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(settingsBucket)
		if bucket == nil {
			return nil
		}
		raw := bucket.Get([]byte(m.id.String()))
		if raw == nil {
			return nil
		}
		found = true
		return decode(raw, &settings)
	})
	if err != nil {
		return MarketSettings{}, err
	}
	if found {
		return settings, nil
	}

	settings = MarketSettings{}
	if err := m.SetSettings(settings); err != nil {
		return MarketSettings{}, err
	}
	return settings, nil
}

// SetSettings persists settings for this market.
func (m *StoreMarketHandle) SetSettings(settings MarketSettings) error {
	encoded, err := encode(settings)
	if err != nil {
		return err
	}
	return m.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(settingsBucket)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(m.id.String()), encoded)
	})
}

// Interval returns the StoreMarketDataHandle for the given candle width,
// opening its bucket on first use.
func (m *StoreMarketHandle) Interval(interval Interval) (*StoreMarketDataHandle, error) {
	m.mu.RLock()
	if handle, ok := m.trees[interval]; ok {
		m.mu.RUnlock()
		return handle, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if handle, ok := m.trees[interval]; ok {
		return handle, nil
	}

	bucketName := []byte(fmt.Sprintf("%s_%s", m.id.UID(), interval))
	if err := m.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		return nil, fmt.Errorf("store: open data bucket: %w", err)
	}

	handle := &StoreMarketDataHandle{
		db:         m.db,
		bucketName: bucketName,
		id:         m.id,
		interval:   interval,
	}
	m.trees[interval] = handle
	return handle, nil
}
