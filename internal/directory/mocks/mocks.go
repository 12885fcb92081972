// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

// Package mocks provides testify mocks for the directory interfaces.
package mocks

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/rosterd/rosterd/internal/directory"
)

// MockAccountStore is a mock implementation of directory.AccountStore.
type MockAccountStore struct {
	mock.Mock
}

// NewMockAccountStore creates a MockAccountStore whose expectations are
// asserted when the test finishes.
func NewMockAccountStore(t *testing.T) *MockAccountStore {
	t.Helper()
	m := &MockAccountStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountStore) Create(ctx context.Context, account *directory.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountStore) GetByID(ctx context.Context, id ulid.ULID) (*directory.Account, error) {
	args := m.Called(ctx, id)
	if acc, ok := args.Get(0).(*directory.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountStore) GetByEmail(ctx context.Context, email string) (*directory.Account, error) {
	args := m.Called(ctx, email)
	if acc, ok := args.Get(0).(*directory.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountStore) GetByUsername(ctx context.Context, username string) (*directory.Account, error) {
	args := m.Called(ctx, username)
	if acc, ok := args.Get(0).(*directory.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountStore) Update(ctx context.Context, account *directory.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountStore) List(ctx context.Context, offset, limit int) ([]*directory.Account, error) {
	args := m.Called(ctx, offset, limit)
	if accs, ok := args.Get(0).([]*directory.Account); ok {
		return accs, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPasswordHasher is a mock implementation of directory.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a MockPasswordHasher whose expectations are
// asserted when the test finishes.
func NewMockPasswordHasher(t *testing.T) *MockPasswordHasher {
	t.Helper()
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// MockWelcomeNotifier is a mock implementation of directory.WelcomeNotifier.
type MockWelcomeNotifier struct {
	mock.Mock
}

// NewMockWelcomeNotifier creates a MockWelcomeNotifier whose expectations are
// asserted when the test finishes.
func NewMockWelcomeNotifier(t *testing.T) *MockWelcomeNotifier {
	t.Helper()
	m := &MockWelcomeNotifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockWelcomeNotifier) SendWelcome(ctx context.Context, account *directory.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}
