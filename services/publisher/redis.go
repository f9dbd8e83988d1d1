package publisher

import (
	"context"
	"encoding/base64"
	"math/rand/v2"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher implements Publisher using Redis streams
type RedisPublisher struct {
	client          *redis.Client
	streamPrefix    string
	streamCount     int
	streamMaxLength int64
}

var _ Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(addr string, db int, streamPrefix string, streamCount int, streamMaxLength int64) *RedisPublisher {
	if streamCount < 1 {
		streamCount = 1
	}
	return &RedisPublisher{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
	}
}

// Ping checks the connection
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Stream returns the name of stream n, e.g. "pricewatch:0"
func (p *RedisPublisher) Stream(n int) string {
	return p.streamPrefix + ":" + strconv.Itoa(n)
}

// Publish base64-encodes message and appends it to a randomly chosen stream.
func (p *RedisPublisher) Publish(ctx context.Context, key string, message []byte) error {
	encoded := base64.StdEncoding.EncodeToString(message)
	stream := p.Stream(rand.IntN(p.streamCount))

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			key: encoded,
		},
	}).Err()
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams(ctx context.Context) error {
	for n := 0; n < p.streamCount; n++ {
		if err := p.client.XTrimMaxLen(ctx, p.Stream(n), p.streamMaxLength).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
