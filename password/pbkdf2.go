package password

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	legacyMethod = "pbkdf2"

	// Werkzeug writes the iteration count into every hash it produces; this
	// only applies to hand-built strings that omit it.
	defaultLegacyIterations = 600000
	maxLegacyIterations     = 10_000_000
	legacySaltLength        = 16
	legacySaltAlphabet      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var legacyDigests = map[string]func() hash.Hash{
	"sha1":   sha1.New,
	"sha224": sha256.New224,
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

type parsedLegacy struct {
	digest     func() hash.Hash
	iterations int
	salt       string
	sum        []byte
}

// VerifyLegacy checks password against a Werkzeug PBKDF2 hash of the form
// pbkdf2:<digest>[:<iterations>]$<salt>$<hex>. The salt is used as its raw
// string bytes and the derived key length equals the digest size.
func VerifyLegacy(password string, encodedHash string) (bool, error) {
	parsed, err := parseLegacy(encodedHash)
	if err != nil {
		return false, err
	}

	computed := pbkdf2.Key(
		[]byte(password),
		[]byte(parsed.salt),
		parsed.iterations,
		len(parsed.sum),
		parsed.digest,
	)

	return subtle.ConstantTimeCompare(computed, parsed.sum) == 1, nil
}

// HashLegacy produces a Werkzeug-compatible pbkdf2:sha256 hash. New
// credentials never use it; it exists for fixtures and migration tooling.
func HashLegacy(password string, iterations int) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if iterations < 1 || iterations > maxLegacyIterations {
		return "", errors.New("legacy iterations out of range")
	}

	salt, err := legacySalt(legacySaltLength)
	if err != nil {
		return "", err
	}

	sum := pbkdf2.Key([]byte(password), []byte(salt), iterations, sha256.Size, sha256.New)
	return fmt.Sprintf("%s:sha256:%d$%s$%s", legacyMethod, iterations, salt, hex.EncodeToString(sum)), nil
}

func parseLegacy(encodedHash string) (*parsedLegacy, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 3 {
		return nil, malformed("invalid legacy format")
	}

	method := strings.Split(parts[0], ":")
	if len(method) < 2 || len(method) > 3 || method[0] != legacyMethod {
		return nil, malformed("invalid legacy method")
	}

	digest, ok := legacyDigests[method[1]]
	if !ok {
		return nil, malformed("unsupported legacy digest")
	}

	iterations := defaultLegacyIterations
	if len(method) == 3 {
		v, err := strconv.Atoi(method[2])
		if err != nil || v < 1 || v > maxLegacyIterations {
			return nil, malformed("invalid legacy iterations")
		}
		iterations = v
	}

	if parts[1] == "" {
		return nil, malformed("missing legacy salt")
	}

	sum, err := hex.DecodeString(parts[2])
	if err != nil {
		return nil, malformed("invalid legacy digest encoding")
	}
	if len(sum) != digest().Size() {
		return nil, malformed("invalid legacy digest length")
	}

	return &parsedLegacy{
		digest:     digest,
		iterations: iterations,
		salt:       parts[1],
		sum:        sum,
	}, nil
}

func legacySalt(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)

	max := big.NewInt(int64(len(legacySaltAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(legacySaltAlphabet[idx.Int64()])
	}

	return b.String(), nil
}
