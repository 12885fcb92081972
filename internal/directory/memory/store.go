// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

// Package memory provides an in-memory directory.AccountStore. It enforces
// the same uniqueness guarantees as the PostgreSQL store, so it doubles as
// the gateway test double and as a throwaway dev backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/rosterd/rosterd/internal/directory"
)

// Store is an in-memory AccountStore.
type Store struct {
	mu         sync.RWMutex
	byID       map[ulid.ULID]*directory.Account
	byEmail    map[string]ulid.ULID
	byUsername map[string]ulid.ULID
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		byID:       make(map[ulid.ULID]*directory.Account),
		byEmail:    make(map[string]ulid.ULID),
		byUsername: make(map[string]ulid.ULID),
	}
}

var _ directory.AccountStore = (*Store)(nil)

// Create stores a new account, enforcing email and username uniqueness
// case-insensitively.
func (s *Store) Create(_ context.Context, account *directory.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	emailKey := strings.ToLower(account.Email)
	usernameKey := strings.ToLower(account.Username)

	if _, exists := s.byEmail[emailKey]; exists {
		return directory.ErrDuplicateEmail
	}
	if _, exists := s.byUsername[usernameKey]; exists {
		return directory.ErrDuplicateUsername
	}

	cp := *account
	s.byID[account.ID] = &cp
	s.byEmail[emailKey] = account.ID
	s.byUsername[usernameKey] = account.ID
	return nil
}

// GetByID retrieves an account by ID.
func (s *Store) GetByID(_ context.Context, id ulid.ULID) (*directory.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.byID[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

// GetByEmail retrieves an account by email (case-insensitive).
func (s *Store) GetByEmail(_ context.Context, email string) (*directory.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, directory.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

// GetByUsername retrieves an account by username (case-insensitive).
func (s *Store) GetByUsername(_ context.Context, username string) (*directory.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, directory.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

// Update replaces an existing account. The ID must already exist; email and
// username changes keep the uniqueness indexes consistent.
func (s *Store) Update(_ context.Context, account *directory.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[account.ID]
	if !ok {
		return directory.ErrNotFound
	}

	emailKey := strings.ToLower(account.Email)
	usernameKey := strings.ToLower(account.Username)

	if id, exists := s.byEmail[emailKey]; exists && id != account.ID {
		return directory.ErrDuplicateEmail
	}
	if id, exists := s.byUsername[usernameKey]; exists && id != account.ID {
		return directory.ErrDuplicateUsername
	}

	delete(s.byEmail, strings.ToLower(current.Email))
	delete(s.byUsername, strings.ToLower(current.Username))

	cp := *account
	s.byID[account.ID] = &cp
	s.byEmail[emailKey] = account.ID
	s.byUsername[usernameKey] = account.ID
	return nil
}

// List returns accounts ordered by ID, skipping offset and returning at most
// limit. An offset past the end yields an empty slice.
func (s *Store) List(_ context.Context, offset, limit int) ([]*directory.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]ulid.ULID, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Compare(ids[j]) < 0
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) || limit <= 0 {
		return []*directory.Account{}, nil
	}

	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}

	accounts := make([]*directory.Account, 0, end-offset)
	for _, id := range ids[offset:end] {
		cp := *s.byID[id]
		accounts = append(accounts, &cp)
	}
	return accounts, nil
}
