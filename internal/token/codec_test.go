package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-256-bit-secret-for-unit-tests"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(testSecret, "HS256", 120)
	require.NoError(t, err)
	return c
}

func TestNewCodec_Validation(t *testing.T) {
	t.Run("unknown algorithm", func(t *testing.T) {
		_, err := NewCodec(testSecret, "XX999", 120)
		assert.Error(t, err)
	})

	t.Run("non-HMAC algorithm", func(t *testing.T) {
		_, err := NewCodec(testSecret, "RS256", 120)
		assert.Error(t, err)
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := NewCodec("", "HS256", 120)
		assert.Error(t, err)
	})

	t.Run("non-positive expiry falls back to default", func(t *testing.T) {
		c, err := NewCodec(testSecret, "HS256", 0)
		require.NoError(t, err)
		assert.Equal(t, 120, c.expireMinutes)
	})
}

func TestCodec_EncodeDecode(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.Encode(SessionClaims{
		UserID: "42",
		Scopes: []string{"profile", "notify"},
	})
	require.NoError(t, err)

	claims, err := codec.Decode(signed)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, []string{"profile", "notify"}, claims.Scopes)
}

func TestCodec_DecodeRejectsTamperedToken(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.Encode(SessionClaims{UserID: "42"})
	require.NoError(t, err)

	_, err = codec.Decode(signed + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_DecodeRejectsWrongSecret(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewCodec("a-different-secret-entirely", "HS256", 120)
	require.NoError(t, err)

	signed, err := other.Encode(SessionClaims{UserID: "42"})
	require.NoError(t, err)

	_, err = codec.Decode(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_DecodeRejectsWrongAlgorithm(t *testing.T) {
	codec := newTestCodec(t)

	// Token signed with HS512 must be rejected by an HS256 codec even
	// though the secret matches.
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = codec.Decode(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_DecodeExpiredToken(t *testing.T) {
	codec := newTestCodec(t)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = codec.Decode(signed)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestCodec_DecodeRejectsMissingSubject(t *testing.T) {
	codec := newTestCodec(t)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = codec.Decode(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCreateExpiry(t *testing.T) {
	c, err := NewCodec(testSecret, "HS256", 30)
	require.NoError(t, err)

	expiry := c.CreateExpiry()
	expected := time.Now().Add(30 * time.Minute)
	assert.WithinDuration(t, expected, expiry, 2*time.Second)
}

func TestRequireScopes(t *testing.T) {
	claims := &SessionClaims{UserID: "42", Scopes: []string{"profile", "notify"}}

	assert.NoError(t, claims.RequireScopes())
	assert.NoError(t, claims.RequireScopes("profile"))
	assert.NoError(t, claims.RequireScopes("profile", "notify"))

	err := claims.RequireScopes("admin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientScope))
}
