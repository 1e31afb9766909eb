package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// MinSecretKeyLen is the minimum HMAC secret length accepted by New.
	MinSecretKeyLen = 32
	// DefaultTTL is used when Config.TTL is zero.
	DefaultTTL = 24 * time.Hour
)

// Config holds JWT configuration
type Config struct {
	SecretKey string
	Issuer    string
	TTL       time.Duration
}

// Claims represents the JWT claims carried by a DogeOW session token.
// Subject holds the numeric user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type managerImpl struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
}
