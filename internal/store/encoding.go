package store

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

func encode(v interface{}) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode: %w", err)
	}
	return b, nil
}

func decode(raw []byte, v interface{}) error {
	if err := msgpack.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("store: decode: %w", err)
	}
	return nil
}

func timeKey(t int64) []byte {
	key := make([]byte, 8)
	key[0] = byte(t >> 56)
	key[1] = byte(t >> 48)
	key[2] = byte(t >> 40)
	key[3] = byte(t >> 32)
	key[4] = byte(t >> 24)
	key[5] = byte(t >> 16)
	key[6] = byte(t >> 8)
	key[7] = byte(t)
	return key
}

func keyTime(key []byte) int64 {
	return int64(key[0])<<56 | int64(key[1])<<48 | int64(key[2])<<40 | int64(key[3])<<32 |
		int64(key[4])<<24 | int64(key[5])<<16 | int64(key[6])<<8 | int64(key[7])
}
