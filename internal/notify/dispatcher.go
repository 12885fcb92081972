// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/rosterd/rosterd/pkg/errutil"
)

// Mailer delivers a single welcome notification.
type Mailer interface {
	SendWelcome(ctx context.Context, msg Message) error
}

// LogMailer is a Mailer that records deliveries in the log. It stands in for
// a real mail relay in development and tests.
type LogMailer struct {
	Logger *slog.Logger
}

// SendWelcome logs the delivery.
func (m *LogMailer) SendWelcome(_ context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("welcome email delivered",
		"account_id", msg.AccountID,
		"email", msg.Email,
	)
	return nil
}

// Dispatcher delivery tuning.
const (
	popTimeout      = 1 * time.Second
	deliveryTimeout = 10 * time.Second
	retryBase       = 500 * time.Millisecond
	maxRetries      = 3
)

// Dispatcher drains the welcome queue and delivers messages through a Mailer.
// Delivery is retried with exponential backoff; messages that still fail are
// moved to the dead-letter list and counted, never silently lost.
type Dispatcher struct {
	client *redis.Client
	key    string
	mailer Mailer
	logger *slog.Logger

	// failed is invoked with a reason label for every undeliverable message.
	failed func(reason string)

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher reading from the given queue key.
func NewDispatcher(client *redis.Client, key string, mailer Mailer, logger *slog.Logger) (*Dispatcher, error) {
	if client == nil {
		return nil, oops.Errorf("redis client is required")
	}
	if mailer == nil {
		return nil, oops.Errorf("mailer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if key == "" {
		key = DefaultQueueKey
	}
	return &Dispatcher{
		client: client,
		key:    key,
		mailer: mailer,
		logger: logger,
		failed: func(string) {},
	}, nil
}

// OnFailure registers a callback invoked with a reason label whenever a
// message is dead-lettered.
func (d *Dispatcher) OnFailure(fn func(reason string)) {
	if fn != nil {
		d.failed = fn
	}
}

// Start begins draining the queue in a background goroutine.
func (d *Dispatcher) Start() error {
	if !d.running.CompareAndSwap(false, true) {
		return oops.Errorf("dispatcher already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx)
	}()

	d.logger.Info("notification dispatcher started", "queue", d.key)
	return nil
}

// Stop cancels the drain loop and waits for in-flight delivery to finish or
// the context to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if !d.running.CompareAndSwap(true, false) {
		return nil
	}
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		return oops.Code("NOTIFY_STOP_TIMEOUT").Wrap(ctx.Err())
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		res, err := d.client.BRPop(ctx, popTimeout, d.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			errutil.LogError(d.logger, "queue pop failed", oops.Code("NOTIFY_POP_FAILED").With("queue", d.key).Wrap(err))
			// Back off so a dead Redis doesn't spin the loop.
			select {
			case <-time.After(popTimeout):
			case <-ctx.Done():
				return
			}
			continue
		}

		// BRPop returns [key, value].
		if len(res) != 2 {
			continue
		}
		d.deliver(ctx, []byte(res[1]))
	}
}

// deliver decodes and delivers one message, retrying transient failures.
func (d *Dispatcher) deliver(ctx context.Context, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.failed("decode")
		errutil.LogError(d.logger, "dropping undecodable notification", oops.Code("NOTIFY_DECODE_FAILED").Wrap(err))
		return
	}

	deliverCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(retryBase))
	err := retry.Do(deliverCtx, backoff, func(ctx context.Context) error {
		if sendErr := d.mailer.SendWelcome(ctx, msg); sendErr != nil {
			return retry.RetryableError(sendErr)
		}
		return nil
	})
	if err == nil {
		return
	}

	d.failed("delivery")
	errutil.LogError(d.logger, "welcome notification undeliverable",
		oops.Code("NOTIFY_DELIVERY_FAILED").
			With("account_id", msg.AccountID).
			With("email", msg.Email).
			Wrap(err))

	// Keep the message for operators; best effort.
	deadCtx, deadCancel := context.WithTimeout(context.WithoutCancel(ctx), popTimeout)
	defer deadCancel()
	if pushErr := d.client.LPush(deadCtx, d.key+deadLetterSuffix, raw).Err(); pushErr != nil {
		errutil.LogError(d.logger, "dead-letter push failed", oops.Code("NOTIFY_DEADLETTER_FAILED").Wrap(pushErr))
	}
}
