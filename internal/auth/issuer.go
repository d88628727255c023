package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/weatherupdate/weather-update-service/internal/store"
)

// ErrInvalidCredentials is returned by Issue for an unknown username or a
// wrong password. The two cases are indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrTokenExpired is returned by Verify when the token's expiry has passed.
var ErrTokenExpired = errors.New("token expired")

// ErrInvalidToken is returned by Verify for any token that fails signature,
// parse, or claims validation (other than expiry).
var ErrInvalidToken = errors.New("invalid token")

// Issuer validates credentials against the credential store and issues signed,
// time-bounded HS256 bearer tokens. Tokens are stateless: validity is fully
// determined by signature and expiry, never by server-side storage.
type Issuer struct {
	store  store.Store
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an Issuer. secret signs and verifies tokens; ttl bounds
// token lifetime.
func NewIssuer(st store.Store, secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("issuer: signing secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("issuer: token TTL must be positive")
	}
	return &Issuer{
		store:  st,
		secret: []byte(secret),
		ttl:    ttl,
	}, nil
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue verifies the password against the stored hash and returns a signed
// token with the username as subject. Unknown users and wrong passwords both
// fail with ErrInvalidCredentials.
func (i *Issuer) Issue(ctx context.Context, username, password string) (string, error) {
	hash, err := i.store.Lookup(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if !CheckPassword(hash, password) {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates signature and expiry and returns the token's subject.
// Only HMAC signing methods are accepted.
func (i *Issuer) Verify(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
