package utils // package utils provides token sealing and session token helpers

import (
	"crypto/rand"     // secure nonce generation
	"crypto/sha256"   // hash function for key derivation
	"encoding/base64" // sealed tokens are stored as text
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"          // derives the box key from the configured secret
	"golang.org/x/crypto/nacl/secretbox" // authenticated symmetric encryption
)

const nonceSize = 24

// ErrSealedTokenInvalid is returned when a sealed value cannot be decoded
// or fails authentication (wrong key or tampered data).
var ErrSealedTokenInvalid = errors.New("sealed token invalid")

// Sealer encrypts shop access tokens before they are written to the
// database.  Sealed values are base64(nonce || secretbox(token)).
type Sealer struct {
	key [32]byte
}

// NewSealer derives a 32-byte secretbox key from secret with HKDF-SHA256.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("sealer: empty secret")
	}
	s := &Sealer{}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("shop-access-token"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, err
	}
	return s, nil
}

// Seal encrypts plain and returns the text form stored in shops.access_token_sealed.
func (s *Sealer) Seal(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	out := secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrSealedTokenInvalid
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrSealedTokenInvalid
	}
	return string(plain), nil
}
