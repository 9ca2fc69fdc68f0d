package counter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDate = "2026-03-14"

// runs the shared behavior checks against every backend available locally
func forEachStore(t *testing.T, fn func(t *testing.T, store Store)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "usage.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		fn(t, store)
	})

	t.Run("miniredis", func(t *testing.T) {
		mr := miniredis.RunT(t)

		store, err := NewRedisStoreFromURL("redis://" + mr.Addr())
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		fn(t, store)
	})

	t.Run("redis", func(t *testing.T) {
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			t.Skip("REDIS_URL not set")
		}

		store, err := NewRedisStoreFromURL(redisURL)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		fn(t, store)
	})

	t.Run("postgres", func(t *testing.T) {
		dbURL := os.Getenv("TEST_DATABASE_URL")
		if dbURL == "" {
			t.Skip("TEST_DATABASE_URL not set")
		}

		ctx := context.Background()
		pool, err := pgxpool.New(ctx, dbURL)
		require.NoError(t, err)
		t.Cleanup(pool.Close)

		store := NewPostgresStore(pool)
		require.NoError(t, store.Initialize(ctx))
		fn(t, store)
	})
}

// unique per subtest so shared redis/postgres backends don't collide
func testUser(t *testing.T) string {
	return fmt.Sprintf("user-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestStore_GetMissing(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		record, err := store.Get(context.Background(), testUser(t), testDate)
		require.NoError(t, err)
		assert.Nil(t, record)
	})
}

func TestStore_IncrementCreatesRecord(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		user := testUser(t)

		count, ok, err := store.IncrementBelow(ctx, user, testDate, 3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, count)

		record, err := store.Get(ctx, user, testDate)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, user, record.UserID)
		assert.Equal(t, testDate, record.Date)
		assert.Equal(t, 1, record.Count)
	})
}

func TestStore_IncrementStopsAtLimit(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		user := testUser(t)

		for want := 1; want <= 3; want++ {
			count, ok, err := store.IncrementBelow(ctx, user, testDate, 3)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want, count)
		}

		count, ok, err := store.IncrementBelow(ctx, user, testDate, 3)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 3, count)

		record, err := store.Get(ctx, user, testDate)
		require.NoError(t, err)
		assert.Equal(t, 3, record.Count)
	})
}

func TestStore_DatesAreIndependent(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		user := testUser(t)

		for range 3 {
			_, _, err := store.IncrementBelow(ctx, user, testDate, 3)
			require.NoError(t, err)
		}

		count, ok, err := store.IncrementBelow(ctx, user, "2026-03-15", 3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, count)
	})
}

func TestStore_DecrementFloorsAtZero(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		user := testUser(t)

		count, err := store.Decrement(ctx, user, testDate)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		_, _, err = store.IncrementBelow(ctx, user, testDate, 3)
		require.NoError(t, err)

		count, err = store.Decrement(ctx, user, testDate)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		count, err = store.Decrement(ctx, user, testDate)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestStore_ConcurrentIncrementNeverOversells(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		user := testUser(t)

		const callers = 50
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)

		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()

				_, ok, err := store.IncrementBelow(ctx, user, testDate, 3)
				assert.NoError(t, err)

				if ok {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, 3, accepted)

		record, err := store.Get(ctx, user, testDate)
		require.NoError(t, err)
		assert.Equal(t, 3, record.Count)
	})
}

func TestStore_ZeroLimitNeverIncrements(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		user := testUser(t)

		count, ok, err := store.IncrementBelow(ctx, user, testDate, 0)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, count)
	})
}

func TestMemoryStore_PutSeedsRecord(t *testing.T) {
	store := NewMemoryStore()
	store.Put(Record{UserID: "u1", Date: testDate, Count: 2})

	count, ok, err := store.IncrementBelow(context.Background(), "u1", testDate, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, store.Len())
}

func TestRedisStore_KeyLayout(t *testing.T) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	store := NewRedisStore(client)

	_, _, err := store.IncrementBelow(ctx, "u1", testDate, 3)
	require.NoError(t, err)

	key := fmt.Sprintf(keyUsage, "u1", testDate)
	assert.Equal(t, "1", mr.HGet(key, "count"))
	assert.NotEmpty(t, mr.HGet(key, "updated_at"))
}

func TestDateOf(t *testing.T) {
	// 23:30 at UTC-5 is already the next day in UTC
	loc := time.FixedZone("EST", -5*60*60)
	local := time.Date(2026, 3, 14, 23, 30, 0, 0, loc)

	assert.Equal(t, "2026-03-15", DateOf(local))
}
