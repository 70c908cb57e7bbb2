package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Store is a byte-valued cache with expiry.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const keyPrefix = "medilabel"

// ErrCorrupt is returned by GetJSON when a stored value cannot be decoded.
var ErrCorrupt = errors.New("cached value is corrupt")

// Key derives a cache key from the operation, the profile fingerprint and
// the uploaded bytes.
func Key(op, profile string, data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, op, profile, hex.EncodeToString(sum[:]))
}

// GetJSON loads key into v. ok is false on a miss.
func GetJSON(ctx context.Context, s Store, key string, v any) (ok bool, err error) {
	data, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := jsoniter.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

// SetJSON stores v under key.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	data, err := jsoniter.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data, ttl)
}
