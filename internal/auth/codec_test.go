package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/NordCoder/enotary/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte(strings.Repeat("k", MinSecretLen))

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCodec(t *testing.T) (*Codec, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	c, err := NewCodec(Config{
		Secret:     testSecret,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Now:        clk.Now,
	})
	require.NoError(t, err)
	return c, clk
}

func TestNewCodec_RejectsShortSecret(t *testing.T) {
	_, err := NewCodec(Config{Secret: []byte("short"), AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.Error(t, err)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	c, clk := newTestCodec(t)

	iss, err := c.IssueAccessToken("user@example.com", "CLIENT", "42")
	require.NoError(t, err)
	require.Equal(t, 3, len(strings.Split(iss.Token, ".")))

	claims, err := c.ParseAndVerify(iss.Token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Subject)
	assert.Equal(t, "CLIENT", claims.Role)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, iss.JTI, claims.JTI())
	assert.Equal(t, KindAccess, claims.Kind)
	assert.WithinDuration(t, clk.now.Add(15*time.Minute), claims.Expiry(), 0)
}

func TestRefreshToken_HasNoRole(t *testing.T) {
	c, _ := newTestCodec(t)

	iss, err := c.IssueRefreshToken("user@example.com")
	require.NoError(t, err)

	claims, err := c.ParseAndVerify(iss.Token)
	require.NoError(t, err)
	assert.Empty(t, claims.Role)
	assert.Equal(t, KindRefresh, claims.Kind)
	assert.WithinDuration(t, iss.ExpiresAt, claims.Expiry(), 0)
}

func TestJTIsAreUnique(t *testing.T) {
	c, _ := newTestCodec(t)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		iss, err := c.IssueAccessToken("a@b.c", "CLIENT", "1")
		require.NoError(t, err)
		require.False(t, seen[iss.JTI])
		seen[iss.JTI] = true
	}
}

func TestParseAndVerify_ExpiredIsDistinct(t *testing.T) {
	c, clk := newTestCodec(t)
	iss, err := c.IssueAccessToken("user@example.com", "CLIENT", "1")
	require.NoError(t, err)

	clk.Advance(16 * time.Minute)

	_, err = c.ParseAndVerify(iss.Token)
	require.ErrorIs(t, err, domain.ErrExpiredToken)
	assert.False(t, errors.Is(err, domain.ErrInvalidToken))

	claims, err := c.ParseAllowExpired(iss.Token)
	require.NoError(t, err)
	assert.Equal(t, iss.JTI, claims.JTI())
	assert.Equal(t, "user@example.com", claims.Subject)
}

func TestParseAndVerify_Invalid(t *testing.T) {
	c, clk := newTestCodec(t)
	iss, err := c.IssueAccessToken("user@example.com", "ADMIN", "1")
	require.NoError(t, err)

	other, err := NewCodec(Config{
		Secret:     []byte(strings.Repeat("x", MinSecretLen)),
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Now:        clk.Now,
	})
	require.NoError(t, err)
	foreign, err := other.IssueAccessToken("user@example.com", "ADMIN", "1")
	require.NoError(t, err)

	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "ADMIN",
		Kind: KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			Subject:   "user@example.com",
			IssuedAt:  jwt.NewNumericDate(clk.now),
			ExpiresAt: jwt.NewNumericDate(clk.now.Add(time.Hour)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)

	parts := strings.Split(iss.Token, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	cases := map[string]string{
		"garbage":         "not-a-token",
		"empty":           "",
		"wrong key":       foreign.Token,
		"wrong algorithm": hs256,
		"bad signature":   tampered,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.ParseAndVerify(tok)
			require.ErrorIs(t, err, domain.ErrInvalidToken)
			_, err = c.ParseAllowExpired(tok)
			require.ErrorIs(t, err, domain.ErrInvalidToken)
		})
	}
}

func TestParseAndVerify_ExpiredWithBadSignatureIsInvalid(t *testing.T) {
	c, clk := newTestCodec(t)
	iss, err := c.IssueAccessToken("user@example.com", "CLIENT", "1")
	require.NoError(t, err)
	clk.Advance(time.Hour)

	parts := strings.Split(iss.Token, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("B", len(parts[2]))

	_, err = c.ParseAndVerify(tampered)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}
