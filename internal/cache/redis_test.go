package cache

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) *RedisCache {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping redis test - TEST_REDIS_URL not set")
	}
	c, err := NewRedisCache(url)
	if err != nil {
		t.Skipf("Skipping redis test - no connection available: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	_, err := NewRedisCache("not-a-redis-url")
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	key := "test:json:" + uuid.NewString()
	defer c.Delete(ctx, key)

	var missing map[string]int
	assert.ErrorIs(t, c.GetJSON(ctx, key, &missing), ErrNotFound)

	require.NoError(t, c.SetJSON(ctx, key, map[string]int{"max_file_size_mb": 10}, time.Minute))

	var got map[string]int
	require.NoError(t, c.GetJSON(ctx, key, &got))
	assert.Equal(t, 10, got["max_file_size_mb"])
}

func TestAcquireIsExclusive(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	key := "test:lock:" + uuid.NewString()

	release, err := c.Acquire(ctx, key, "first", time.Minute)
	require.NoError(t, err)

	_, err = c.Acquire(ctx, key, "second", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	release()

	release2, err := c.Acquire(ctx, key, "second", time.Minute)
	require.NoError(t, err)
	release2()
}

func TestPublish(t *testing.T) {
	c := testCache(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	channel := "test:events:" + uuid.NewString()
	sub := c.Subscribe(ctx, channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Publish(ctx, channel, map[string]string{"event": "submitted"}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &payload))
	assert.Equal(t, "submitted", payload["event"])
}
