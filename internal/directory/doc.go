// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

// Package directory implements the account directory core.
//
// # Domain Types
//
// Account is the sole entity. Create it through NewAccount, which assigns the
// ULID, validates username and email, and requires an already-derived
// password hash. Principal is the minimal authentication view of an account
// (username + password hash) and is obtained via Account.Principal.
//
// # Service
//
// Service exposes the four directory operations:
//   - Register - create an account (unique email/username, hashed credential)
//   - GetByID - fetch a single account
//   - List - stable-ordered pagination
//   - FindPrincipalByUsername - resolve a login identity
//
// Persistence lives behind the AccountStore interface; the core never talks
// to storage directly. Sentinel errors (ErrNotFound, ErrDuplicateEmail,
// ErrDuplicateUsername, ErrPrincipalNotFound, ErrInvalidAccount) are matched
// with errors.Is and wrapped with oops codes for structured context.
package directory
