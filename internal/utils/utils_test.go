package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealerRoundTrip(t *testing.T) {
	s, err := NewSealer("app-secret")
	require.NoError(t, err)

	sealed, err := s.Seal("shpat_123")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "shpat_123")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "shpat_123", plain)
}

func TestSealerRejectsWrongKey(t *testing.T) {
	a, err := NewSealer("one")
	require.NoError(t, err)
	b, err := NewSealer("two")
	require.NoError(t, err)

	sealed, err := a.Seal("shpat_123")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.ErrorIs(t, err, ErrSealedTokenInvalid)
	_, err = a.Open("not base64!")
	assert.ErrorIs(t, err, ErrSealedTokenInvalid)
}

func TestNewSealerEmptySecret(t *testing.T) {
	_, err := NewSealer("")
	assert.Error(t, err)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	raw, err := NewSessionToken("secret", "api-key", "demo.myshopify.com", "42", time.Minute)
	require.NoError(t, err)

	claims, err := ParseSessionToken("secret", "api-key", raw)
	require.NoError(t, err)
	assert.Equal(t, "https://demo.myshopify.com", claims.Dest)
	assert.Equal(t, "42", claims.Subject)
}

func TestParseSessionTokenRejects(t *testing.T) {
	raw, err := NewSessionToken("secret", "api-key", "demo.myshopify.com", "42", time.Minute)
	require.NoError(t, err)
	expired, err := NewSessionToken("secret", "api-key", "demo.myshopify.com", "42", -time.Minute)
	require.NoError(t, err)
	badDest, err := NewSessionToken("secret", "api-key", "evil.example.com", "42", time.Minute)
	require.NoError(t, err)

	cases := map[string]struct{ secret, aud, raw string }{
		"wrong secret":   {"other", "api-key", raw},
		"wrong audience": {"secret", "other-key", raw},
		"expired":        {"secret", "api-key", expired},
		"foreign dest":   {"secret", "api-key", badDest},
		"garbage":        {"secret", "api-key", "a.b.c"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSessionToken(tc.secret, tc.aud, tc.raw)
			assert.ErrorIs(t, err, ErrInvalidSessionToken)
		})
	}
}

func TestShopDomain(t *testing.T) {
	d, err := ShopDomain("https://Demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "demo.myshopify.com", d)

	d, err = ShopDomain("demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "demo.myshopify.com", d)

	_, err = ShopDomain("https://example.com")
	assert.Error(t, err)
}
