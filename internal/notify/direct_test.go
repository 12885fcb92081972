// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterd/rosterd/internal/notify"
)

func TestDirect_SendWelcome(t *testing.T) {
	mailer := &recordingMailer{}
	direct := &notify.Direct{Mailer: mailer}

	account := testQueueAccount()
	require.NoError(t, direct.SendWelcome(context.Background(), account))

	require.Equal(t, 1, mailer.deliveredCount())
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	assert.Equal(t, account.ID.String(), mailer.delivered[0].AccountID)
	assert.Equal(t, account.Email, mailer.delivered[0].Email)
}

func TestDirect_PropagatesMailerError(t *testing.T) {
	mailer := &recordingMailer{failTimes: 1}
	direct := &notify.Direct{Mailer: mailer}

	err := direct.SendWelcome(context.Background(), testQueueAccount())
	assert.Error(t, err)
}
