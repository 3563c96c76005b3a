package cookie

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretBytes is the shortest accepted signing secret.
const MinSecretBytes = 32

// ErrInvalidToken is returned for any cookie value that fails verification.
var ErrInvalidToken = errors.New("invalid session token")

// Config holds the signing material for session cookies.
//
// SecretKey signs new cookies. VerifyKeys optionally lists additional secrets
// by key ID so cookies signed before a rotation stay readable; when it is set,
// KeyID must name the entry matching SecretKey.
type Config struct {
	SecretKey    []byte
	KeyID        string
	VerifyKeys   map[string][]byte
	Issuer       string
	MaxFutureIAT time.Duration
}

// Codec signs and verifies the opaque value carried in the session cookie.
// The value only references a server-side session; it never carries identity
// or role data.
type Codec struct {
	config Config
}

type claims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewCodec validates cfg and returns a Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.SecretKey) < MinSecretBytes {
		return nil, fmt.Errorf("cookie secret must be at least %d bytes", MinSecretBytes)
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	for kid, key := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
		if len(key) < MinSecretBytes {
			return nil, fmt.Errorf("verify key %q is shorter than %d bytes", kid, MinSecretBytes)
		}
	}
	if len(cfg.VerifyKeys) > 0 {
		if cfg.KeyID == "" {
			return nil, errors.New("KeyID is required when VerifyKeys is set")
		}
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	cfg.SecretKey = append([]byte(nil), cfg.SecretKey...)
	return &Codec{config: cfg}, nil
}

// Encode returns the signed cookie value for sessionID.
func (c *Codec) Encode(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("session id is required")
	}

	cl := claims{
		SID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
			Issuer:   c.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, cl)
	if c.config.KeyID != "" {
		token.Header["kid"] = c.config.KeyID
	}

	return token.SignedString(c.config.SecretKey)
}

// Decode verifies value and returns the session ID it references. Every
// failure maps to [ErrInvalidToken].
func (c *Codec) Decode(value string) (string, error) {
	if value == "" {
		return "", ErrInvalidToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(c.config.MaxFutureIAT),
		jwt.WithIssuedAt(),
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(value, &claims{}, c.verifyKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	cl, ok := token.Claims.(*claims)
	if !ok || !token.Valid || cl.SID == "" {
		return "", ErrInvalidToken
	}
	if cl.IssuedAt != nil && cl.IssuedAt.Time.After(time.Now().Add(c.config.MaxFutureIAT)) {
		return "", fmt.Errorf("%w: iat too far in the future", ErrInvalidToken)
	}

	return cl.SID, nil
}

func (c *Codec) verifyKey(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	if len(c.config.VerifyKeys) > 0 {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := c.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return key, nil
	}

	return c.config.SecretKey, nil
}
