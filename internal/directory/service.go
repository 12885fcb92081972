// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package directory

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/rosterd/rosterd/pkg/errutil"
)

// Pagination defaults applied when the caller leaves page/size unspecified.
const (
	DefaultPage     = 0
	DefaultPageSize = 10
)

// notifyTimeout bounds the welcome-notification enqueue. Registration never
// waits longer than this on the notifier, and never fails because of it.
const notifyTimeout = 5 * time.Second

// WelcomeNotifier delivers (or enqueues) a welcome notification for a newly
// registered account. Implementations must treat delivery as fire-and-forget
// relative to persistence: an error here is reported to observability, not to
// the registrant.
type WelcomeNotifier interface {
	SendWelcome(ctx context.Context, account *Account) error
}

// RegisterInput is the logical request shape for Register. Email and
// Password are mandatory; DisplayName is opaque profile payload.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// Service provides the account lifecycle operations: register, lookup,
// listing, and principal resolution for the authentication subsystem.
//
// The service holds no mutable state between calls; all durable state lives
// behind the AccountStore. The duplicate checks in Register are a fast path
// for a friendly error; the store's uniqueness constraints are the
// authoritative defense against the check-then-insert race.
type Service struct {
	accounts AccountStore
	hasher   PasswordHasher
	notifier WelcomeNotifier
	logger   *slog.Logger

	// notifyFailed is invoked when a welcome notification cannot be
	// enqueued. Wired to the observability counter in cmd; a no-op in tests
	// that don't care.
	notifyFailed func(reason string)
}

// NewService creates a Service.
func NewService(accounts AccountStore, hasher PasswordHasher, notifier WelcomeNotifier) (*Service, error) {
	return NewServiceWithLogger(accounts, hasher, notifier, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(accounts AccountStore, hasher PasswordHasher, notifier WelcomeNotifier, logger *slog.Logger) (*Service, error) {
	if accounts == nil {
		return nil, oops.Errorf("account store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if notifier == nil {
		return nil, oops.Errorf("welcome notifier is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		accounts:     accounts,
		hasher:       hasher,
		notifier:     notifier,
		logger:       logger,
		notifyFailed: func(string) {},
	}, nil
}

// OnNotifyFailure registers a callback invoked with a reason label whenever a
// welcome notification fails to enqueue.
func (s *Service) OnNotifyFailure(fn func(reason string)) {
	if fn != nil {
		s.notifyFailed = fn
	}
}

// Register creates a new account: validates the input, rejects duplicate
// email or username, hashes the password, persists the account, and enqueues
// a welcome notification. The notification is fire-and-forget; its failure
// never rolls back or fails the registration.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Account, error) {
	email := NormalizeEmail(input.Email)

	if err := ValidateUsername(input.Username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if input.Password == "" {
		return nil, oops.Code("ACCOUNT_INVALID").
			Wrapf(ErrInvalidAccount, "password cannot be empty")
	}

	// Fast-path duplicate checks. Absence is success here; the store's
	// unique indexes catch the concurrent registration that slips past.
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, oops.Code("ACCOUNT_DUPLICATE_EMAIL").
			With("email", email).
			Wrap(ErrDuplicateEmail)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	if _, err := s.accounts.GetByUsername(ctx, input.Username); err == nil {
		return nil, oops.Code("ACCOUNT_DUPLICATE_USERNAME").
			With("username", input.Username).
			Wrap(ErrDuplicateUsername)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "get account by username").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(input.Username, email, hash, input.DisplayName)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		// The store lost the race we pre-checked for; surface the same
		// duplicate errors the fast path would have produced.
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			return nil, oops.Code("ACCOUNT_DUPLICATE_EMAIL").
				With("email", email).
				Wrap(err)
		case errors.Is(err, ErrDuplicateUsername):
			return nil, oops.Code("ACCOUNT_DUPLICATE_USERNAME").
				With("username", input.Username).
				Wrap(err)
		}
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	s.sendWelcome(ctx, account)

	return account, nil
}

// sendWelcome enqueues the welcome notification with a bounded timeout.
// Failures are logged and counted, never returned.
func (s *Service) sendWelcome(ctx context.Context, account *Account) {
	// Detach from the request deadline: the registration already succeeded.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := s.notifier.SendWelcome(notifyCtx, account); err != nil {
		s.notifyFailed("enqueue")
		errutil.LogError(s.logger, "welcome notification failed", err)
	}
}

// GetByID returns the account with the given ID, or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id ulid.ULID) (*Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("ACCOUNT_NOT_FOUND").
				With("id", id.String()).
				Wrap(err)
		}
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return account, nil
}

// List returns the requested page of accounts in stable (id) order. Negative
// page numbers and non-positive sizes fall back to the defaults. A page past
// the end yields an empty slice, not an error.
func (s *Service) List(ctx context.Context, page, size int) ([]*Account, error) {
	if page < 0 {
		page = DefaultPage
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	// page*size must not overflow into a negative offset. Any page this far
	// out is past the end of the directory anyway.
	if page > math.MaxInt/size {
		return []*Account{}, nil
	}

	accounts, err := s.accounts.List(ctx, page*size, size)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("page", page).
			With("size", size).
			Wrap(err)
	}
	return accounts, nil
}

// FindPrincipalByUsername resolves a login identity for the authentication
// subsystem. It returns only the username and password hash; callers must
// never expose the result externally.
func (s *Service) FindPrincipalByUsername(ctx context.Context, username string) (*Principal, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("PRINCIPAL_NOT_FOUND").
				With("username", username).
				Wrap(ErrPrincipalNotFound)
		}
		return nil, oops.Code("PRINCIPAL_LOOKUP_FAILED").
			With("operation", "get account by username").
			With("username", username).
			Wrap(err)
	}
	return account.Principal(), nil
}
