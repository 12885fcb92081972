// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package directory

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("ACCOUNT_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher derives and verifies one-way credential hashes. It is
// stateless; a single instance is injected into the Service so the algorithm
// can be swapped without touching call sites.
type PasswordHasher interface {
	// Hash produces a salted one-way hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)
}

// argon2idParams are the cost parameters baked into new hashes.
// OWASP-recommended argon2id settings.
type argon2idParams struct {
	memory  uint32
	time    uint32
	threads uint8
	saltLen int
	keyLen  uint32
}

var defaultArgon2idParams = argon2idParams{
	memory:  64 * 1024, // 64 MB
	time:    1,
	threads: 4,
	saltLen: 16,
	keyLen:  32,
}

// Argon2idHasher implements PasswordHasher using argon2id, encoding hashes in
// PHC string format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>.
type Argon2idHasher struct {
	params argon2idParams
}

// NewArgon2idHasher creates an Argon2idHasher with default parameters.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: defaultArgon2idParams}
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("ACCOUNT_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.time, h.params.memory, h.params.threads, h.params.keyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.memory,
		h.params.time,
		h.params.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify checks if the password matches the encoded hash. The stored hash
// carries its own parameters, so hashes written with older costs still verify.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	salt, expected, params, err := decodeArgon2id(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, params.keyLen)
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func decodeArgon2id(encoded string) (salt, key []byte, params argon2idParams, err error) {
	fail := func(format string, args ...any) (salt, key []byte, p argon2idParams, err error) {
		return nil, nil, argon2idParams{}, oops.Code("ACCOUNT_INVALID_HASH").Errorf(format, args...)
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return fail("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return fail("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, scanErr := fmt.Sscanf(parts[2], "v=%d", &version); scanErr != nil {
		return fail("invalid hash version: %v", scanErr)
	}

	var memory, time, threads uint32
	if _, scanErr := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); scanErr != nil {
		return fail("invalid hash parameters: %v", scanErr)
	}
	// argon2.IDKey panics when time < 1.
	if time == 0 {
		return fail("invalid time value: %d", time)
	}
	// Cap memory at 4 GiB so a corrupt hash cannot demand absurd allocations.
	if memory == 0 || memory > 1<<22 {
		return fail("invalid memory value: %d", memory)
	}
	// Threads must fit uint8 for the argon2 API.
	if threads == 0 || threads > 255 {
		return fail("invalid threads value: %d", threads)
	}

	salt, decErr := base64.RawStdEncoding.DecodeString(parts[4])
	if decErr != nil {
		return fail("invalid salt encoding: %v", decErr)
	}
	key, decErr = base64.RawStdEncoding.DecodeString(parts[5])
	if decErr != nil {
		return fail("invalid key encoding: %v", decErr)
	}
	if len(key) == 0 || len(key) > 1<<10 {
		return fail("invalid hash key length: %d", len(key))
	}

	params = argon2idParams{
		memory:  memory,
		time:    time,
		threads: uint8(threads),
		keyLen:  uint32(len(key)),
	}
	return salt, key, params, nil
}
