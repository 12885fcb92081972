// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

// Package postgres implements directory.AccountStore using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/rosterd/rosterd/internal/directory"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies it
// in unit tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements directory.AccountStore using PostgreSQL.
// The unique indexes on lower(email) and lower(username) are the
// authoritative uniqueness defense; violations surface as the directory
// duplicate errors.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

var _ directory.AccountStore = (*AccountRepository)(nil)

const accountColumns = `id, username, email, password_hash, display_name, created_at, updated_at`

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, account *directory.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		account.ID.String(),
		account.Username,
		account.Email,
		account.PasswordHash,
		account.DisplayName,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("username", account.Username).
			Wrap(err)
	}
	return nil
}

// duplicateError translates a unique-constraint violation into the matching
// directory sentinel, or returns nil for any other error.
func duplicateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	if strings.Contains(pgErr.ConstraintName, "username") {
		return oops.Code("ACCOUNT_DUPLICATE_USERNAME").
			With("constraint", pgErr.ConstraintName).
			Wrap(directory.ErrDuplicateUsername)
	}
	return oops.Code("ACCOUNT_DUPLICATE_EMAIL").
		With("constraint", pgErr.ConstraintName).
		Wrap(directory.ErrDuplicateEmail)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*directory.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id.String())

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(directory.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return account, nil
}

// GetByEmail retrieves an account by email (case-insensitive).
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*directory.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(directory.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			With("email", email).
			Wrap(err)
	}
	return account, nil
}

// GetByUsername retrieves an account by username (case-insensitive).
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*directory.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE LOWER(username) = LOWER($1)
	`, username)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("username", username).
			Wrap(directory.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_USERNAME_FAILED").
			With("operation", "get account by username").
			With("username", username).
			Wrap(err)
	}
	return account, nil
}

// Update updates an existing account.
func (r *AccountRepository) Update(ctx context.Context, account *directory.Account) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET
			username = $2,
			email = $3,
			password_hash = $4,
			display_name = $5,
			updated_at = $6
		WHERE id = $1
	`,
		account.ID.String(),
		account.Username,
		account.Email,
		account.PasswordHash,
		account.DisplayName,
		account.UpdatedAt,
	)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update account").
			With("id", account.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", account.ID.String()).
			Wrap(directory.ErrNotFound)
	}
	return nil
}

// List returns accounts ordered by ID. ULIDs sort lexicographically in
// creation order, so the page sequence is stable across calls.
func (r *AccountRepository) List(ctx context.Context, offset, limit int) ([]*directory.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "list accounts").
			With("offset", offset).
			With("limit", limit).
			Wrap(err)
	}
	defer rows.Close()

	accounts := []*directory.Account{}
	for rows.Next() {
		account, scanErr := scanAccount(rows)
		if scanErr != nil {
			return nil, oops.Code("ACCOUNT_LIST_FAILED").
				With("operation", "scan account row").
				Wrap(scanErr)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "iterate account rows").
			Wrap(err)
	}
	return accounts, nil
}

// scanAccount scans a single account row.
func scanAccount(row pgx.Row) (*directory.Account, error) {
	var (
		account directory.Account
		idStr   string
	)
	if err := row.Scan(
		&idStr,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.DisplayName,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("id", idStr).
			Wrap(err)
	}
	account.ID = id
	return &account, nil
}
