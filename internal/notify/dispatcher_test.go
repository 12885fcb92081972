// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package notify_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterd/rosterd/internal/notify"
)

// recordingMailer captures deliveries and can be told to fail a number of
// times before succeeding.
type recordingMailer struct {
	mu        sync.Mutex
	delivered []notify.Message
	failTimes int
}

func (m *recordingMailer) SendWelcome(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTimes > 0 {
		m.failTimes--
		return errors.New("smtp unavailable")
	}
	m.delivered = append(m.delivered, msg)
	return nil
}

func (m *recordingMailer) deliveredCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.delivered)
}

func TestNewDispatcher_NilDependencies(t *testing.T) {
	_, client := newTestRedisClient(t)
	mailer := &recordingMailer{}

	t.Run("nil client", func(t *testing.T) {
		d, err := notify.NewDispatcher(nil, "", mailer, slog.Default())
		require.Error(t, err)
		assert.Nil(t, d)
	})

	t.Run("nil mailer", func(t *testing.T) {
		d, err := notify.NewDispatcher(client, "", nil, slog.Default())
		require.Error(t, err)
		assert.Nil(t, d)
	})
}

func TestDispatcher_DeliversMessages(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedisClient(t)
	queue := notify.NewRedisQueueWithClient(client, "test:welcome")
	mailer := &recordingMailer{}

	dispatcher, err := notify.NewDispatcher(client, "test:welcome", mailer, slog.Default())
	require.NoError(t, err)
	require.NoError(t, dispatcher.Start())
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, dispatcher.Stop(stopCtx))
	}()

	require.NoError(t, queue.SendWelcome(ctx, testQueueAccount()))
	require.NoError(t, queue.SendWelcome(ctx, testQueueAccount()))

	assert.Eventually(t, func() bool {
		return mailer.deliveredCount() == 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestDispatcher_RetriesTransientFailure(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedisClient(t)
	queue := notify.NewRedisQueueWithClient(client, "test:welcome")
	mailer := &recordingMailer{failTimes: 1}

	dispatcher, err := notify.NewDispatcher(client, "test:welcome", mailer, slog.Default())
	require.NoError(t, err)
	require.NoError(t, dispatcher.Start())
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, dispatcher.Stop(stopCtx))
	}()

	require.NoError(t, queue.SendWelcome(ctx, testQueueAccount()))

	assert.Eventually(t, func() bool {
		return mailer.deliveredCount() == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestDispatcher_DeadLettersUndeliverable(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedisClient(t)
	queue := notify.NewRedisQueueWithClient(client, "test:welcome")
	// Enough failures to exhaust every retry.
	mailer := &recordingMailer{failTimes: 100}

	dispatcher, err := notify.NewDispatcher(client, "test:welcome", mailer, slog.Default())
	require.NoError(t, err)

	var mu sync.Mutex
	var reasons []string
	dispatcher.OnFailure(func(reason string) {
		mu.Lock()
		defer mu.Unlock()
		reasons = append(reasons, reason)
	})

	require.NoError(t, dispatcher.Start())
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		require.NoError(t, dispatcher.Stop(stopCtx))
	}()

	require.NoError(t, queue.SendWelcome(ctx, testQueueAccount()))

	assert.Eventually(t, func() bool {
		dead, lenErr := mr.List("test:welcome:dead")
		return lenErr == nil && len(dead) == 1
	}, 10*time.Second, 50*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"delivery"}, reasons)
	assert.Zero(t, mailer.deliveredCount())
}

func TestDispatcher_DropsUndecodableMessage(t *testing.T) {
	mr, client := newTestRedisClient(t)
	mailer := &recordingMailer{}

	dispatcher, err := notify.NewDispatcher(client, "test:welcome", mailer, slog.Default())
	require.NoError(t, err)

	var mu sync.Mutex
	var reasons []string
	dispatcher.OnFailure(func(reason string) {
		mu.Lock()
		defer mu.Unlock()
		reasons = append(reasons, reason)
	})

	require.NoError(t, dispatcher.Start())
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, dispatcher.Stop(stopCtx))
	}()

	_, err = mr.Lpush("test:welcome", "{not json")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reasons) == 1 && reasons[0] == "decode"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestDispatcher_StartStop(t *testing.T) {
	_, client := newTestRedisClient(t)
	dispatcher, err := notify.NewDispatcher(client, "test:welcome", &recordingMailer{}, slog.Default())
	require.NoError(t, err)

	require.NoError(t, dispatcher.Start())
	assert.Error(t, dispatcher.Start(), "second start must fail")

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, dispatcher.Stop(stopCtx))
	assert.NoError(t, dispatcher.Stop(stopCtx), "stop is idempotent")
}
