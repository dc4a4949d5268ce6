package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"time"
)

const (
	TokenBytes = 32

	DefaultTokenTTL = time.Hour
)

// TokenGenerator produces URL-safe opaque access tokens.
type TokenGenerator struct {
	rand io.Reader
}

func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{rand: rand.Reader}
}

func (g *TokenGenerator) Generate() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ExpiryCalculator returns the expiry of a token issued now.
type ExpiryCalculator struct {
	TTL time.Duration
	Now func() time.Time
}

func NewExpiryCalculator(ttl time.Duration) *ExpiryCalculator {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &ExpiryCalculator{TTL: ttl, Now: time.Now}
}

func (c *ExpiryCalculator) ExpiresAt() time.Time {
	return c.Now().UTC().Add(c.TTL)
}
