package jwt

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrInvalidToken is returned when a token cannot be parsed or fails verification.
	ErrInvalidToken = errors.New("jwt: invalid token")
	// ErrMissingSubject is returned when the sub claim is absent or not a user id.
	ErrMissingSubject = errors.New("jwt: missing or invalid sub claim")
)

// Manager signs and verifies HS256 session tokens.
// Implementations are safe for concurrent use.
type Manager interface {
	GenerateToken(userID int64, email string) (string, error)
	VerifyToken(token string) (*Claims, error)
}

// New creates a Manager. The secret must be at least MinSecretKeyLen characters.
func New(cfg Config) (Manager, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &managerImpl{
		secretKey: []byte(cfg.SecretKey),
		issuer:    cfg.Issuer,
		ttl:       ttl,
	}, nil
}

// UserID returns the numeric user id held in the subject claim.
func (c *Claims) UserID() (int64, error) {
	if c == nil || c.Subject == "" {
		return 0, ErrMissingSubject
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMissingSubject, c.Subject)
	}
	return id, nil
}
