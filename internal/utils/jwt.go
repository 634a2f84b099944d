package utils

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and signing session tokens
)

// SessionClaims are the claims Shopify puts in an embedded app session
// token.  Dest is the shop origin ("https://demo.myshopify.com"), Aud the
// app's API key and Sub the staff member's user id.
type SessionClaims struct {
	Dest string `json:"dest"`
	jwt.RegisteredClaims
}

// ErrInvalidSessionToken is returned for any token that fails parsing,
// signature, audience or expiry checks, or that carries no shop.
var ErrInvalidSessionToken = errors.New("invalid session token")

// ParseSessionToken verifies an HS256 session token signed with the app
// secret and returns its claims.  The audience must equal apiKey.
func ParseSessionToken(secret, apiKey, raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(apiKey),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidSessionToken
	}
	if _, err := ShopDomain(claims.Dest); err != nil {
		return nil, ErrInvalidSessionToken
	}
	return claims, nil
}

// ShopDomain extracts the myshopify domain from a dest claim.  Plain
// domains without a scheme are accepted as well.
func ShopDomain(dest string) (string, error) {
	host := dest
	if strings.Contains(dest, "://") {
		u, err := url.Parse(dest)
		if err != nil {
			return "", err
		}
		host = u.Host
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if !strings.HasSuffix(host, ".myshopify.com") || host == ".myshopify.com" {
		return "", errors.New("not a myshopify.com domain")
	}
	return host, nil
}

// NewSessionToken signs a session token the way Shopify App Bridge does.
// It is used by the operator CLI to call a local server and by tests.
func NewSessionToken(secret, apiKey, shopDomain, userID string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		Dest: "https://" + shopDomain,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + shopDomain + "/admin",
			Subject:   userID,
			Audience:  jwt.ClaimStrings{apiKey},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Second)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
