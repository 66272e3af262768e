// Package auth issues and verifies the opaque credentials that prove
// caller identity on both the HTTP API and the websocket relay.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrInvalidToken is returned for malformed or tampered credentials.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned for well-formed but stale credentials.
	ErrExpiredToken = errors.New("token expired")
)

// Claims are the facts sealed inside an access token.
type Claims struct {
	UserID    int64  `json:"sub"`
	Mobile    string `json:"mobile"`
	ExpiresAt int64  `json:"exp"`
}

// Tokens mints and verifies sealed access tokens. A token is the
// XChaCha20-Poly1305 sealing of the JSON claims under a key derived from
// the configured secret, base64url encoded with the nonce prepended.
type Tokens struct {
	key [chacha20poly1305.KeySize]byte
	ttl time.Duration
}

// NewTokens derives the sealing key from secret. ttl bounds the lifetime
// of every minted token.
func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret cannot be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	t := &Tokens{key: sha256.Sum256([]byte(secret)), ttl: ttl}
	return t, nil
}

// Mint issues a credential for the given user.
func (t *Tokens) Mint(userID int64, mobile string) (string, error) {
	claims := Claims{
		UserID:    userID,
		Mobile:    mobile,
		ExpiresAt: time.Now().Add(t.ttl).Unix(),
	}
	plaintext, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	aead, err := chacha20poly1305.NewX(t.key[:])
	if err != nil {
		return "", fmt.Errorf("init aead: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Verify resolves a credential to its claims. It returns ErrInvalidToken
// for anything that does not authenticate and ErrExpiredToken for
// credentials past their expiry.
func (t *Tokens) Verify(token string) (*Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) < chacha20poly1305.NonceSizeX {
		return nil, ErrInvalidToken
	}

	aead, err := chacha20poly1305.NewX(t.key[:])
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}

	nonce, sealed := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var claims Claims
	if err := json.Unmarshal(plaintext, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	if time.Now().Unix() >= claims.ExpiresAt {
		return nil, ErrExpiredToken
	}

	return &claims, nil
}
