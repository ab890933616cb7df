package cache

import (
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")

	// ErrEntryTooLarge is returned by Set when the value exceeds
	// Policy.MaxEntrySize. The value is not stored; callers continue uncached.
	ErrEntryTooLarge = errors.New("cache: entry exceeds max entry size")

	ErrInvalidPolicy   = errors.New("cache: invalid policy")
	ErrUnknownStrategy = errors.New("cache: unknown eviction strategy")
)

// ValidateKey checks if a key is usable as a cache key.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
