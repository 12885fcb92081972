// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package notify_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterd/rosterd/internal/directory"
	"github.com/rosterd/rosterd/internal/notify"
	"github.com/rosterd/rosterd/pkg/errutil"
)

func newTestRedisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testQueueAccount() *directory.Account {
	return &directory.Account{
		ID:          ulid.Make(),
		Username:    "alice",
		Email:       "alice@example.com",
		DisplayName: "Alice",
	}
}

func TestRedisQueue_SendWelcome(t *testing.T) {
	ctx := context.Background()

	t.Run("enqueues the message payload", func(t *testing.T) {
		mr, client := newTestRedisClient(t)
		queue := notify.NewRedisQueueWithClient(client, "test:welcome")

		account := testQueueAccount()
		require.NoError(t, queue.SendWelcome(ctx, account))

		raw, err := mr.Lpop("test:welcome")
		require.NoError(t, err)

		var msg notify.Message
		require.NoError(t, json.Unmarshal([]byte(raw), &msg))
		assert.Equal(t, account.ID.String(), msg.AccountID)
		assert.Equal(t, "alice", msg.Username)
		assert.Equal(t, "alice@example.com", msg.Email)
		assert.Equal(t, "Alice", msg.DisplayName)
		assert.False(t, msg.EnqueuedAt.IsZero())
	})

	t.Run("empty key falls back to the default", func(t *testing.T) {
		mr, client := newTestRedisClient(t)
		queue := notify.NewRedisQueueWithClient(client, "")

		require.NoError(t, queue.SendWelcome(ctx, testQueueAccount()))
		assert.True(t, mr.Exists(notify.DefaultQueueKey))
	})

	t.Run("redis failure surfaces an enqueue error", func(t *testing.T) {
		mr, client := newTestRedisClient(t)
		queue := notify.NewRedisQueueWithClient(client, "test:welcome")
		mr.Close()

		err := queue.SendWelcome(ctx, testQueueAccount())
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "NOTIFY_ENQUEUE_FAILED")
	})
}

func TestRedisQueue_Len(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedisClient(t)
	queue := notify.NewRedisQueueWithClient(client, "test:welcome")

	n, err := queue.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, queue.SendWelcome(ctx, testQueueAccount()))
	require.NoError(t, queue.SendWelcome(ctx, testQueueAccount()))

	n, err = queue.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestNewRedisQueue_InvalidURL(t *testing.T) {
	queue, err := notify.NewRedisQueue("not-a-url", "")
	require.Error(t, err)
	assert.Nil(t, queue)
	errutil.AssertErrorCode(t, err, "NOTIFY_REDIS_INVALID_URL")
}

func TestNewRedisQueue_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	queue, err := notify.NewRedisQueue("redis://"+addr, "")
	require.Error(t, err)
	assert.Nil(t, queue)
	errutil.AssertErrorCode(t, err, "NOTIFY_REDIS_CONNECT_FAILED")
}
