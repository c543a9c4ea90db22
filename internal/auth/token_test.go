package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/birlikkoshan/tasksync/internal/repo/repotest"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestTokens(t *testing.T) (*Tokens, *repotest.Store, *clock) {
	t.Helper()
	store := repotest.New()
	clk := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewTokens(testSecret, 24*time.Hour, store.Users(), WithClock(clk.now)), store, clk
}

func TestTokens_ValidWithinWindowExpiredAfter(t *testing.T) {
	tokens, store, clk := newTestTokens(t)
	ctx := context.Background()
	u, err := store.Users().Create(ctx, "alice", "hash")
	require.NoError(t, err)

	raw, exp, err := tokens.Issue(u)
	require.NoError(t, err)
	assert.Equal(t, clk.t.Add(24*time.Hour), exp)

	for _, after := range []time.Duration{0, time.Hour, 24*time.Hour - time.Second} {
		clk.t = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Add(after)
		id, err := tokens.Authenticate(ctx, raw)
		require.NoError(t, err, after)
		assert.Equal(t, u.ID, id.UserID)
		assert.Equal(t, "alice", id.Username)
	}

	clk.t = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Add(24*time.Hour + time.Second)
	_, err = tokens.Authenticate(ctx, raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokens_Missing(t *testing.T) {
	tokens, _, _ := newTestTokens(t)
	_, err := tokens.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestTokens_InvalidSignatureOrFormat(t *testing.T) {
	tokens, store, clk := newTestTokens(t)
	ctx := context.Background()
	u, err := store.Users().Create(ctx, "alice", "hash")
	require.NoError(t, err)

	other := NewTokens("another-secret-987654321", time.Hour, store.Users(), WithClock(clk.now))
	forged, _, err := other.Issue(u)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:           u.ID,
		Username:         u.Username,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: u.ID}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"garbage":      "not-a-token",
		"other secret": forged,
		"alg none":     unsigned,
		"no expiry":    noExp,
	} {
		_, err := tokens.Authenticate(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestTokens_DeletedUserIsInvalid(t *testing.T) {
	tokens, store, _ := newTestTokens(t)
	ctx := context.Background()
	u, err := store.Users().Create(ctx, "alice", "hash")
	require.NoError(t, err)
	raw, _, err := tokens.Issue(u)
	require.NoError(t, err)

	_, err = store.Users().Delete(ctx, u.ID)
	require.NoError(t, err)

	_, err = tokens.Authenticate(ctx, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_LookupFailureIsNotAnAuthError(t *testing.T) {
	tokens, store, _ := newTestTokens(t)
	ctx := context.Background()
	u, err := store.Users().Create(ctx, "alice", "hash")
	require.NoError(t, err)
	raw, _, err := tokens.Issue(u)
	require.NoError(t, err)

	store.Err = errors.New("connection refused")
	_, err = tokens.Authenticate(ctx, raw)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, store.Err)
}
