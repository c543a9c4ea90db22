package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dom "github.com/birlikkoshan/tasksync/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 24 * time.Hour

var (
	ErrMissingToken = errors.New("token is missing")
	ErrExpiredToken = errors.New("token has expired")
	ErrInvalidToken = errors.New("token is invalid")
)

// Identity is the authenticated caller.
type Identity struct {
	UserID   int64
	Username string
}

// Claims is the signed token body.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserLookup resolves a user id from a token to a stored user.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (dom.User, error)
}

// Tokens issues and verifies HS256 tokens. It holds no mutable state and is
// safe for concurrent use.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	users  UserLookup
	now    func() time.Time
}

// Option configures Tokens.
type Option func(*Tokens)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tokens) { t.now = now }
}

// NewTokens returns a Tokens signing with secret. A non-positive ttl means 24h.
func NewTokens(secret string, ttl time.Duration, users UserLookup, opts ...Option) *Tokens {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	t := &Tokens{secret: []byte(secret), ttl: ttl, users: users, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Issue returns a signed token for u and its expiry.
func (t *Tokens) Issue(u dom.User) (string, time.Time, error) {
	now := t.now().UTC()
	exp := now.Add(t.ttl)
	claims := Claims{
		UserID:   u.ID,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Authenticate verifies raw and resolves it to a stored user. A token for a
// user that no longer exists is reported as ErrInvalidToken.
func (t *Tokens) Authenticate(ctx context.Context, raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrMissingToken
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, ErrInvalidToken
	}
	if claims.UserID <= 0 {
		return Identity{}, ErrInvalidToken
	}

	u, err := t.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Identity{}, ErrInvalidToken
		}
		return Identity{}, fmt.Errorf("resolve token user: %w", err)
	}
	return Identity{UserID: u.ID, Username: u.Username}, nil
}
