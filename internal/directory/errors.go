// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package directory

import "errors"

// Sentinel errors for the directory core. Callers match with errors.Is; the
// surrounding oops wrapping carries codes and context for logging.
var (
	// ErrNotFound is returned when a requested account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrPrincipalNotFound is returned when no account owns the username
	// being resolved for authentication.
	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("email already in use")

	// ErrDuplicateUsername is returned when a username is already registered.
	ErrDuplicateUsername = errors.New("username already in use")

	// ErrInvalidAccount is the umbrella error for structurally or
	// semantically invalid account data.
	ErrInvalidAccount = errors.New("invalid account data")
)
