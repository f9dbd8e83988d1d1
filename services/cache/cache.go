package cache

import (
	"time"
)

// CacheService is the key/value store behind competitor cooldowns
type CacheService interface {
	// Get retrieves a value; a miss is an error
	Get(key string) ([]byte, error)

	// Set stores a value with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value
	Delete(key string) error
}
