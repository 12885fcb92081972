// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

//go:build integration

package integration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/rosterd/rosterd/internal/directory"
	dirpostgres "github.com/rosterd/rosterd/internal/directory/postgres"
	"github.com/rosterd/rosterd/internal/notify"
)

var _ = Describe("Directory service on PostgreSQL", func() {
	var (
		ctx     context.Context
		service *directory.Service
		repo    *dirpostgres.AccountRepository
		seq     int
	)

	uniqueInput := func() directory.RegisterInput {
		seq++
		return directory.RegisterInput{
			Username:    fmt.Sprintf("it_user_%d_%s", seq, ulid.Make().String()[20:]),
			Email:       fmt.Sprintf("it_user_%d_%s@example.com", seq, ulid.Make().String()[20:]),
			Password:    "integration-pass-1",
			DisplayName: "Integration User",
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = dirpostgres.NewAccountRepository(testPool)

		var err error
		service, err = directory.NewService(
			repo,
			directory.NewArgon2idHasher(),
			&notify.Direct{Mailer: &notify.LogMailer{Logger: slog.Default()}},
		)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Register", func() {
		It("persists the account with a hashed credential", func() {
			input := uniqueInput()
			account, err := service.Register(ctx, input)
			Expect(err).NotTo(HaveOccurred())

			DeferCleanup(func() {
				_, _ = testPool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, account.ID.String())
			})

			stored, err := repo.GetByID(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Username).To(Equal(input.Username))
			Expect(stored.PasswordHash).To(HavePrefix("$argon2id$"))
			Expect(stored.PasswordHash).NotTo(ContainSubstring(input.Password))
		})

		It("rejects a duplicate email even with different case", func() {
			input := uniqueInput()
			account, err := service.Register(ctx, input)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() {
				_, _ = testPool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, account.ID.String())
			})

			dupe := uniqueInput()
			dupe.Email = strings.ToUpper(input.Email)
			_, err = service.Register(ctx, dupe)
			Expect(err).To(MatchError(directory.ErrDuplicateEmail))
		})

		It("rejects a duplicate username at the unique index", func() {
			input := uniqueInput()
			account, err := service.Register(ctx, input)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() {
				_, _ = testPool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, account.ID.String())
			})

			// Bypass the service fast path and hit the index directly.
			clone, err := directory.NewAccount(input.Username, uniqueInput().Email, "hash", "")
			Expect(err).NotTo(HaveOccurred())
			err = repo.Create(ctx, clone)
			Expect(err).To(MatchError(directory.ErrDuplicateUsername))
		})
	})

	Describe("GetByID", func() {
		It("returns not found for an unknown id", func() {
			_, err := service.GetByID(ctx, ulid.Make())
			Expect(err).To(MatchError(directory.ErrNotFound))
		})
	})

	Describe("List", func() {
		It("pages through accounts in id order", func() {
			created := make([]*directory.Account, 0, 5)
			for i := 0; i < 5; i++ {
				account, err := service.Register(ctx, uniqueInput())
				Expect(err).NotTo(HaveOccurred())
				created = append(created, account)
			}
			DeferCleanup(func() {
				for _, a := range created {
					_, _ = testPool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, a.ID.String())
				}
			})

			var all []*directory.Account
			for page := 0; ; page++ {
				batch, err := service.List(ctx, page, 2)
				Expect(err).NotTo(HaveOccurred())
				if len(batch) == 0 {
					break
				}
				all = append(all, batch...)
			}

			Expect(len(all)).To(BeNumerically(">=", 5))
			for i := 1; i < len(all); i++ {
				Expect(all[i-1].ID.Compare(all[i].ID)).To(BeNumerically("<", 0))
			}
		})
	})

	Describe("FindPrincipalByUsername", func() {
		It("resolves a registered account as a verifiable principal", func() {
			input := uniqueInput()
			account, err := service.Register(ctx, input)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() {
				_, _ = testPool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, account.ID.String())
			})

			principal, err := service.FindPrincipalByUsername(ctx, input.Username)
			Expect(err).NotTo(HaveOccurred())
			Expect(principal.Username).To(Equal(input.Username))

			ok, err := directory.NewArgon2idHasher().Verify(input.Password, principal.PasswordHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("returns principal not found for an unknown username", func() {
			_, err := service.FindPrincipalByUsername(ctx, "no_such_user")
			Expect(err).To(MatchError(directory.ErrPrincipalNotFound))
		})
	})
})
