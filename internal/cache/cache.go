package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache stores opaque byte payloads by key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// keyPrefix is bumped whenever a cached payload changes shape
const keyPrefix = "cram:v1:"

// CacheKey derives a stable key from a namespace and its parts
// (for example a collection, a query and its filters). Parts are
// separated so that ("ab","c") and ("a","bc") never collide.
func CacheKey(namespace string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	for _, p := range parts {
		h.Write([]byte{0x1f})
		h.Write([]byte(p))
	}
	return keyPrefix + sanitize(namespace) + ":" + hex.EncodeToString(h.Sum(nil))
}

// sanitize keeps namespace usable as part of a file name
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, s)
}
