package password

import (
	"errors"
	"strings"
)

var (
	// ErrMalformedHash is wrapped by every parse failure of a stored hash.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("empty password")
)

// Scheme identifies the algorithm a stored hash was produced with.
type Scheme uint8

const (
	SchemeUnknown Scheme = iota
	SchemeArgon2id
	SchemePBKDF2
)

func (s Scheme) String() string {
	switch s {
	case SchemeArgon2id:
		return "argon2id"
	case SchemePBKDF2:
		return "pbkdf2"
	default:
		return "unknown"
	}
}

// DetectScheme inspects only the tag prefix; it does not validate the rest of
// the string.
func DetectScheme(encodedHash string) Scheme {
	switch {
	case strings.HasPrefix(encodedHash, "$"+algorithmID+"$"):
		return SchemeArgon2id
	case strings.HasPrefix(encodedHash, legacyMethod+":"):
		return SchemePBKDF2
	default:
		return SchemeUnknown
	}
}

// Hasher dispatches verification by scheme tag and always hashes with the
// current scheme.
type Hasher struct {
	current *Argon2
}

// NewHasher builds a Hasher whose current scheme uses cfg.
func NewHasher(cfg Config) (*Hasher, error) {
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	return &Hasher{current: a}, nil
}

// Hash returns a current-scheme hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	return h.current.Hash(password)
}

// Verify reports whether password matches encodedHash. Unknown tags and
// malformed hashes never match.
func (h *Hasher) Verify(password, encodedHash string) bool {
	ok, err := h.VerifyErr(password, encodedHash)
	return err == nil && ok
}

// VerifyErr is Verify with the parse error exposed for diagnostics.
func (h *Hasher) VerifyErr(password, encodedHash string) (bool, error) {
	if len(password) > h.current.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}

	switch DetectScheme(encodedHash) {
	case SchemeArgon2id:
		return h.current.Verify(password, encodedHash)
	case SchemePBKDF2:
		return VerifyLegacy(password, encodedHash)
	default:
		return false, malformed("unknown scheme tag")
	}
}

// NeedsRehash is true for any legacy hash and for Argon2id hashes weaker than
// the configured target. Unknown or malformed hashes report false: there is
// nothing verifiable to upgrade.
func (h *Hasher) NeedsRehash(encodedHash string) bool {
	switch DetectScheme(encodedHash) {
	case SchemePBKDF2:
		return true
	case SchemeArgon2id:
		upgrade, err := h.current.NeedsUpgrade(encodedHash)
		return err == nil && upgrade
	default:
		return false
	}
}

// Scheme reports the scheme tag of encodedHash.
func (h *Hasher) Scheme(encodedHash string) Scheme {
	return DetectScheme(encodedHash)
}
