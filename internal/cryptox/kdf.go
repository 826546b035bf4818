// Package cryptox holds the vault's cryptographic building blocks: PIN key
// derivation and AES-256-GCM field encryption. It composes standard
// primitives only.
package cryptox

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/docvault/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	KeySize  = 32
	SaltSize = 32

	DefaultPBKDF2Iterations = 210_000
	MinPBKDF2Iterations     = 100_000
)

// Algorithm names persisted next to the PIN verifier.
const (
	AlgPBKDF2   = "pbkdf2-sha256"
	AlgArgon2id = "argon2id"
)

// KDF stretches a low-entropy PIN into a KeySize key. Implementations are
// deterministic for the same (pin, salt).
type KDF interface {
	Name() string
	DeriveKey(pin, salt []byte) []byte
}

// PBKDF2 is PBKDF2-HMAC-SHA256. Iterations below MinPBKDF2Iterations are
// raised to the minimum.
type PBKDF2 struct {
	Iterations int
}

func (p PBKDF2) Name() string { return AlgPBKDF2 }

func (p PBKDF2) DeriveKey(pin, salt []byte) []byte {
	iter := p.Iterations
	if iter < MinPBKDF2Iterations {
		iter = MinPBKDF2Iterations
	}
	return pbkdf2SHA256(pin, salt, iter)
}

func pbkdf2SHA256(pin, salt []byte, iter int) []byte {
	return pbkdf2.Key(pin, salt, iter, KeySize, sha256.New)
}

// Argon2id derives keys with argon2.IDKey.
type Argon2id struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

// DefaultArgon2id returns the interactive parameter set: one pass over 64 MiB.
func DefaultArgon2id() Argon2id {
	return Argon2id{Time: 1, Memory: 64 * 1024, Threads: 4}
}

func (a Argon2id) Name() string { return AlgArgon2id }

func (a Argon2id) DeriveKey(pin, salt []byte) []byte {
	return argon2.IDKey(pin, salt, a.Time, a.Memory, a.Threads, KeySize)
}

// NewKDF resolves an algorithm name. An empty name selects PBKDF2.
func NewKDF(name string, iterations int) (KDF, error) {
	switch name {
	case "", AlgPBKDF2, "pbkdf2":
		if iterations == 0 {
			iterations = DefaultPBKDF2Iterations
		}
		return PBKDF2{Iterations: iterations}, nil
	case AlgArgon2id:
		return DefaultArgon2id(), nil
	default:
		return nil, fmt.Errorf("%w: unknown kdf %q", common.ErrInvalidArgument, name)
	}
}

// Describe encodes k's algorithm and cost so a verifier can be recomputed
// later even if the configured defaults change.
func Describe(k KDF) string {
	if p, ok := k.(PBKDF2); ok {
		return AlgPBKDF2 + ":" + strconv.Itoa(p.Iterations)
	}
	return k.Name()
}

// ParseKDF is the inverse of Describe. A bare algorithm name uses that
// algorithm's defaults.
func ParseKDF(desc string) (KDF, error) {
	name, cost, _ := strings.Cut(desc, ":")
	iter := 0
	if cost != "" {
		n, err := strconv.Atoi(cost)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: bad kdf cost %q", common.ErrInvalidArgument, desc)
		}
		iter = n
	}
	return NewKDF(name, iter)
}

// DeriveKey derives a key from pin and salt with the default PBKDF2 settings.
func DeriveKey(pin, salt []byte) []byte {
	return PBKDF2{Iterations: DefaultPBKDF2Iterations}.DeriveKey(pin, salt)
}

// MakeVerifier hashes a derived key into the value stored for PIN checks.
// The derived key itself is never persisted.
func MakeVerifier(derivedKey []byte) []byte {
	hash := sha256.Sum256(derivedKey)
	return hash[:]
}

// NewSalt returns SaltSize random bytes.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// NewKey returns a random KeySize key.
func NewKey() []byte {
	return common.GenerateRandByteArray(KeySize)
}
