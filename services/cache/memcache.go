package cache

import (
	stderrors "errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"sjsage522/pricewatch/logger"
)

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
}

var _ CacheService = (*MemcacheService)(nil)

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr string) *MemcacheService {
	client := memcache.New(serverAddr)
	client.Timeout = 500 * time.Millisecond
	return &MemcacheService{client: client}
}

// Ping checks that every server answers
func (m *MemcacheService) Ping() error {
	return m.client.Ping()
}

// Get retrieves a value from memcache
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		if !stderrors.Is(err, memcache.ErrCacheMiss) {
			logger.ForCache().Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}

// Delete removes a value from memcache; deleting a missing key is not an error
func (m *MemcacheService) Delete(key string) error {
	err := m.client.Delete(key)
	if stderrors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}
