package counter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// cvforge:usage:{userID}:{date} - hash with count and updated_at
	keyUsage = "cvforge:usage:%s:%s"
)

// check and increment run inside one script, so redis executes them atomically
var incrementBelowScript = redis.NewScript(`
local count = tonumber(redis.call('HGET', KEYS[1], 'count') or '0')
local limit = tonumber(ARGV[1])
if count >= limit then
	return {0, count}
end
count = redis.call('HINCRBY', KEYS[1], 'count', 1)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[2])
return {1, count}
`)

var decrementScript = redis.NewScript(`
local count = tonumber(redis.call('HGET', KEYS[1], 'count') or '0')
if count <= 0 then
	return 0
end
count = redis.call('HINCRBY', KEYS[1], 'count', -1)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[1])
return count
`)

// implements Store using Redis
type RedisStore struct {
	client *redis.Client
}

// creates a new Redis-backed counter store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// creates a new Redis-backed counter store from a URL
func NewRedisStoreFromURL(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// retrieves the record for a user and date
func (s *RedisStore) Get(ctx context.Context, userID, date string) (*Record, error) {
	fields, err := s.client.HGetAll(ctx, fmt.Sprintf(keyUsage, userID, date)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read usage from redis: %w", err)
	}

	if len(fields) == 0 {
		return nil, nil
	}

	count, err := strconv.Atoi(fields["count"])
	if err != nil {
		return nil, fmt.Errorf("corrupt usage count in redis: %w", err)
	}

	updatedAt, _ := time.Parse(time.RFC3339Nano, fields["updated_at"]) //nolint:errcheck // zero time if missing

	return &Record{
		UserID:    userID,
		Date:      date,
		Count:     count,
		UpdatedAt: updatedAt,
	}, nil
}

// increments the count while it is below limit
func (s *RedisStore) IncrementBelow(ctx context.Context, userID, date string, limit int) (int, bool, error) {
	key := fmt.Sprintf(keyUsage, userID, date)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := incrementBelowScript.Run(ctx, s.client, []string{key}, limit, now).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment usage in redis: %w", err)
	}

	if len(res) != 2 {
		return 0, false, fmt.Errorf("unexpected redis script reply: %v", res)
	}

	return int(res[1]), res[0] == 1, nil
}

// decrements the count, floored at zero
func (s *RedisStore) Decrement(ctx context.Context, userID, date string) (int, error) {
	key := fmt.Sprintf(keyUsage, userID, date)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	count, err := decrementScript.Run(ctx, s.client, []string{key}, now).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to decrement usage in redis: %w", err)
	}

	return count, nil
}

// returns the underlying client (shared with rate limiting and notifications)
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// closes the redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
