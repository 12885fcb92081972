// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

// Package notify implements the welcome-notification outbox. Registration
// enqueues a message onto a Redis list and returns immediately; a dispatcher
// worker drains the list and hands messages to a Mailer with bounded retry.
// Delivery failures are surfaced to observability, never to the registrant.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/rosterd/rosterd/internal/directory"
)

// DefaultQueueKey is the Redis list the outbox lives on.
const DefaultQueueKey = "roster:welcome"

// deadLetterSuffix is appended to the queue key for undeliverable messages.
const deadLetterSuffix = ":dead"

// Message is the welcome notification payload carried through the queue.
type Message struct {
	AccountID   string    `json:"account_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// RedisQueue enqueues welcome notifications onto a Redis list. It implements
// directory.WelcomeNotifier.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue creates a RedisQueue from a Redis URL and verifies
// connectivity.
func NewRedisQueue(url, key string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("NOTIFY_REDIS_INVALID_URL").With("url", url).Wrap(err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // connect error takes precedence
		return nil, oops.Code("NOTIFY_REDIS_CONNECT_FAILED").Wrap(err)
	}

	return NewRedisQueueWithClient(client, key), nil
}

// NewRedisQueueWithClient creates a RedisQueue with an existing client
// (used by tests and by callers that manage the client themselves).
func NewRedisQueueWithClient(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{client: client, key: key}
}

var _ directory.WelcomeNotifier = (*RedisQueue)(nil)

// SendWelcome enqueues a welcome notification for the account.
func (q *RedisQueue) SendWelcome(ctx context.Context, account *directory.Account) error {
	msg := Message{
		AccountID:   account.ID.String(),
		Username:    account.Username,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		EnqueuedAt:  time.Now().UTC(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return oops.Code("NOTIFY_ENQUEUE_FAILED").
			With("operation", "marshal message").
			Wrap(err)
	}

	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return oops.Code("NOTIFY_ENQUEUE_FAILED").
			With("operation", "push message").
			With("queue", q.key).
			Wrap(err)
	}
	return nil
}

// Len returns the number of pending messages.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, oops.Code("NOTIFY_QUEUE_LEN_FAILED").With("queue", q.key).Wrap(err)
	}
	return n, nil
}

// Close closes the underlying Redis client.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
