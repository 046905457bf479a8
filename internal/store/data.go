package store

import (
	"candlereactor/candleerr"

	"go.etcd.io/bbolt"
)

// StoreMarketDataHandle is a single (market, interval) candle series. Every
// operation opens its own bbolt transaction; bbolt serializes writers so no
// extra locking is required here.
type StoreMarketDataHandle struct {
	db         *bbolt.DB
	bucketName []byte
	id         MarketIdentifier
	interval   Interval
}

// PrevCloseTo returns the smallest stored timestamp greater than or equal to
// target. The name is historical: despite "prev", it looks forward from
// target. Returns candleerr.ErrNoData if no such candle is stored.
func (d *StoreMarketDataHandle) PrevCloseTo(target int64) (int64, error) {
	var result int64
	var found bool
	err := d.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(d.bucketName)
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		k, _ := c.Seek(timeKey(target))
		if k == nil {
			return nil
		}
		found = true
		result = keyTime(k)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, candleerr.ErrNoData
	}
	return result, nil
}

// NextCloseTo returns the largest stored timestamp less than or equal to
// target. The name is historical: despite "next", it looks backward from
// target. Returns candleerr.ErrNoData if no such candle is stored.
func (d *StoreMarketDataHandle) NextCloseTo(target int64) (int64, error) {
	var result int64
	var found bool
	err := d.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(d.bucketName)
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		k, _ := c.Seek(timeKey(target))
		if k != nil && keyTime(k) == target {
			found = true
			result = target
			return nil
		}
		if k == nil {
			k, _ = c.Last()
		} else {
			k, _ = c.Prev()
		}
		if k == nil {
			return nil
		}
		found = true
		result = keyTime(k)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, candleerr.ErrNoData
	}
	return result, nil
}

// CloseRange clamps [start, end] inward to stored candles via PrevCloseTo /
// NextCloseTo and returns the exact run between the clamped bounds.
func (d *StoreMarketDataHandle) CloseRange(start, end int64) ([]OHLC, error) {
	clampedStart, err := d.PrevCloseTo(start)
	if err != nil {
		return nil, err
	}
	clampedEnd, err := d.NextCloseTo(end)
	if err != nil {
		return nil, err
	}
	return d.ExactRange(clampedStart, clampedEnd)
}

// ExactRange walks forward, candle by candle, from start to end. Both
// bounds must land exactly on stored timestamps; ExactRange does not clamp.
func (d *StoreMarketDataHandle) ExactRange(start, end int64) ([]OHLC, error) {
	var ret []OHLC
	offset := start
	for {
		candle, err := d.OHLC(offset)
		if err != nil {
			return nil, err
		}
		ret = append(ret, candle)
		if offset == end {
			break
		}
		next, err := d.NextOHLC(offset)
		if err != nil {
			return nil, err
		}
		offset = next.Time
	}
	return ret, nil
}

// Extend inserts every candle in chunk, preserving the monotonic
// FirstAvailable flag (see Insert).
func (d *StoreMarketDataHandle) Extend(chunk []OHLC) error {
	for _, item := range chunk {
		if err := d.Insert(item); err != nil {
			return err
		}
	}
	return nil
}

// Insert writes a single candle. If a candle already stored at this
// timestamp has FirstAvailable set, the flag is carried forward onto the
// new value rather than cleared.
func (d *StoreMarketDataHandle) Insert(candle OHLC) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(d.bucketName)
		if err != nil {
			return err
		}
		key := timeKey(candle.Time)
		if raw := bucket.Get(key); raw != nil {
			var existing OHLC
			if err := decode(raw, &existing); err == nil && existing.FirstAvailable {
				candle.FirstAvailable = true
			}
		}
		encoded, err := encode(candle)
		if err != nil {
			return err
		}
		return bucket.Put(key, encoded)
	})
}

// OHLC returns the candle stored exactly at time, or candleerr.ErrNoData.
func (d *StoreMarketDataHandle) OHLC(time int64) (OHLC, error) {
	return d.get(timeKey(time), func(c *bbolt.Cursor, key []byte) ([]byte, []byte) {
		return c.Seek(key)
	}, func(k []byte) bool { return k != nil && keyTime(k) == time })
}

// PrevOHLC returns the candle stored at the largest timestamp strictly less
// than time.
func (d *StoreMarketDataHandle) PrevOHLC(time int64) (OHLC, error) {
	return d.get(timeKey(time), func(c *bbolt.Cursor, key []byte) ([]byte, []byte) {
		k, _ := c.Seek(key)
		if k == nil {
			return c.Last()
		}
		return c.Prev()
	}, func(k []byte) bool { return k != nil })
}

// NextOHLC returns the candle stored at the smallest timestamp strictly
// greater than time.
func (d *StoreMarketDataHandle) NextOHLC(time int64) (OHLC, error) {
	return d.get(timeKey(time), func(c *bbolt.Cursor, key []byte) ([]byte, []byte) {
		k, v := c.Seek(key)
		if k != nil && keyTime(k) == time {
			return c.Next()
		}
		return k, v
	}, func(k []byte) bool { return k != nil })
}

// FirstOHLC returns the earliest stored candle.
func (d *StoreMarketDataHandle) FirstOHLC() (OHLC, error) {
	return d.get(nil, func(c *bbolt.Cursor, _ []byte) ([]byte, []byte) {
		return c.First()
	}, func(k []byte) bool { return k != nil })
}

// LastOHLC returns the most recent stored candle.
func (d *StoreMarketDataHandle) LastOHLC() (OHLC, error) {
	return d.get(nil, func(c *bbolt.Cursor, _ []byte) ([]byte, []byte) {
		return c.Last()
	}, func(k []byte) bool { return k != nil })
}

func (d *StoreMarketDataHandle) get(
	key []byte,
	seek func(c *bbolt.Cursor, key []byte) ([]byte, []byte),
	ok func(k []byte) bool,
) (OHLC, error) {
	var result OHLC
	var found bool
	err := d.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(d.bucketName)
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		k, v := seek(c, key)
		if !ok(k) {
			return nil
		}
		found = true
		return decode(v, &result)
	})
	if err != nil {
		return OHLC{}, err
	}
	if !found {
		return OHLC{}, candleerr.ErrNoData
	}
	return result, nil
}
