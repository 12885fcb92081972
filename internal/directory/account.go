// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package directory

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, dots, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._]*$`)

// emailRegex is a pragmatic shape check, not an RFC 5322 validator. The
// mail exchanger has the final say on deliverability.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Account represents a person record in the directory.
//
// The ID is assigned once at creation and never changes. PasswordHash holds
// an argon2id PHC string; the plaintext credential is never stored.
type Account struct {
	ID           ulid.ULID
	Username     string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount creates an Account with a freshly assigned ID. The username and
// email must already be validated and the password already hashed.
func NewAccount(username, email, passwordHash, displayName string) (*Account, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID").
			Wrapf(ErrInvalidAccount, "password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &Account{
		ID:           ulid.Make(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Principal is the minimal authentication view of an account: exactly what a
// credential check needs and nothing else. It is never serialized to
// external callers.
type Principal struct {
	Username     string
	PasswordHash string
}

// Principal returns the authentication view of the account.
func (a *Account) Principal() *Principal {
	return &Principal{Username: a.Username, PasswordHash: a.PasswordHash}
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters, numbers, dots, and underscores
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("ACCOUNT_INVALID").
			Wrapf(ErrInvalidAccount, "username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("ACCOUNT_INVALID").
			With("min", MinUsernameLength).
			Wrapf(ErrInvalidAccount, "username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("ACCOUNT_INVALID").
			With("max", MaxUsernameLength).
			Wrapf(ErrInvalidAccount, "username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("ACCOUNT_INVALID").
			Wrapf(ErrInvalidAccount, "username must start with a letter and contain only letters, numbers, dots, and underscores")
	}
	return nil
}

// ValidateEmail validates an email address shape.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("ACCOUNT_INVALID").
			Wrapf(ErrInvalidAccount, "email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return oops.Code("ACCOUNT_INVALID").
			With("email", email).
			Wrapf(ErrInvalidAccount, "email %q is not a valid address", email)
	}
	return nil
}

// NormalizeEmail lowercases and trims an email for uniqueness comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountStore manages account persistence. Lookups return ErrNotFound when
// no account matches; callers decide where absence is an error.
type AccountStore interface {
	// Create stores a new account. Returns ErrDuplicateEmail or
	// ErrDuplicateUsername when a uniqueness constraint rejects the write.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByUsername retrieves an account by username (case-insensitive).
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// Update updates an existing account.
	Update(ctx context.Context, account *Account) error

	// List returns accounts ordered by ID, skipping offset rows and
	// returning at most limit. An offset past the end yields an empty slice.
	List(ctx context.Context, offset, limit int) ([]*Account, error)
}
