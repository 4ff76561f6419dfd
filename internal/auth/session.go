package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// MinSecretLength is the minimum HMAC secret size accepted outside development
const MinSecretLength = 32

// ErrUnauthenticated is returned for any token that does not prove a session:
// malformed, badly signed, expired, wrong issuer or missing subject
var ErrUnauthenticated = errors.New("unauthenticated")

// SessionIssuer signs and validates HS256 session tokens whose subject is the user id.
// Tokens are not refreshed or revoked; they stay valid until they expire.
type SessionIssuer struct {
	now    func() time.Time
	issuer string
	key    []byte
	ttl    time.Duration
	secure bool
}

// NewSessionIssuer creates an issuer. secure controls the cookie's Secure flag.
func NewSessionIssuer(secret []byte, issuer string, ttl time.Duration, secure bool) (*SessionIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %v", ttl)
	}
	return &SessionIssuer{
		key:    secret,
		issuer: issuer,
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}, nil
}

// TTL returns the session lifetime
func (s *SessionIssuer) TTL() time.Duration {
	return s.ttl
}

// Issue returns a signed token for userID
func (s *SessionIssuer) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("cannot issue a session without a user id")
	}

	now := s.now()
	builder := jwt.NewBuilder().
		Subject(userID).
		IssuedAt(now).
		Expiration(now.Add(s.ttl))
	if s.issuer != "" {
		builder = builder.Issuer(s.issuer)
	}

	token, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("failed to build session token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.key))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return string(signed), nil
}

// Validate verifies the signature and claims and returns the user id
func (s *SessionIssuer) Validate(token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}

	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, s.key),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if parsed.Subject() == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return parsed.Subject(), nil
}
