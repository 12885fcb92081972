// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package notify

import (
	"context"
	"time"

	"github.com/rosterd/rosterd/internal/directory"
)

// Direct is a WelcomeNotifier that hands messages straight to a Mailer,
// bypassing the queue. Used when no Redis is configured (dev, tests).
type Direct struct {
	Mailer Mailer
}

var _ directory.WelcomeNotifier = (*Direct)(nil)

// SendWelcome delivers the notification inline.
func (d *Direct) SendWelcome(ctx context.Context, account *directory.Account) error {
	return d.Mailer.SendWelcome(ctx, Message{
		AccountID:   account.ID.String(),
		Username:    account.Username,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		EnqueuedAt:  time.Now().UTC(),
	})
}
