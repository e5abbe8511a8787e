package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/coachkit/trainer-platform/internal/model"
)

// ErrInvalidToken covers every access-token verification failure: bad
// signature, malformed payload, expiry. The caller is never told which.
var ErrInvalidToken = errors.New("invalid token")

// DefaultAccessTTL is the access-token lifetime used when none is configured.
const DefaultAccessTTL = 24 * time.Hour

// refreshSecretBytes is the entropy of a refresh secret before hex encoding.
const refreshSecretBytes = 64

// AccessClaims is the payload of a signed access token: a snapshot of the
// user at issuance plus the owning tenant id. The snapshot can go stale,
// which is why the request gate re-fetches both on every call.
type AccessClaims struct {
	User     model.User `json:"user"`
	TenantID string     `json:"tenant_id"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HS256 access tokens. It is immutable after
// construction and safe for concurrent use.
type TokenIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

// NewTokenIssuer builds an issuer around a signing secret. A zero accessTTL
// falls back to DefaultAccessTTL.
func NewTokenIssuer(secret string, accessTTL time.Duration) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	return &TokenIssuer{secret: []byte(secret), accessTTL: accessTTL}
}

// IssueAccess signs an access token carrying the user snapshot and tenant id.
// It returns the serialized token and its expiry.
func (i *TokenIssuer) IssueAccess(u model.User, tenantID string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.accessTTL)
	claims := AccessClaims{
		User:     u,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyAccess checks signature and expiry and returns the embedded claims.
// Any failure maps to ErrInvalidToken.
func (i *TokenIssuer) VerifyAccess(raw string) (*AccessClaims, error) {
	tok, err := jwt.ParseWithClaims(raw, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(*AccessClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// NewRefreshSecret returns a fresh opaque refresh secret: 64 random bytes,
// hex encoded. Possession of this string is the sole proof of validity.
func NewRefreshSecret() (string, error) {
	buf := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashRefreshSecret returns the SHA-256 hex digest of a raw refresh secret.
// Only this digest is ever persisted.
func HashRefreshSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
