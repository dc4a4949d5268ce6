package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenGenerator_URLSafeAndLongEnough(t *testing.T) {
	g := NewTokenGenerator()

	tok, err := g.Generate()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(tok)
	require.NoError(t, err)
	assert.Len(t, raw, TokenBytes)
	assert.False(t, strings.ContainsAny(tok, "+/="))
}

func TestTokenGenerator_Unique(t *testing.T) {
	g := NewTokenGenerator()
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		tok, err := g.Generate()
		require.NoError(t, err)
		_, dup := seen[tok]
		require.False(t, dup, "duplicate token generated")
		seen[tok] = struct{}{}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestTokenGenerator_ReaderFailure(t *testing.T) {
	g := &TokenGenerator{rand: failingReader{}}

	tok, err := g.Generate()
	assert.Error(t, err)
	assert.Empty(t, tok)
}

func TestExpiryCalculator(t *testing.T) {
	fixed := time.Date(2030, 1, 1, 10, 0, 0, 0, time.FixedZone("X", 2*3600))
	c := NewExpiryCalculator(0)
	c.Now = func() time.Time { return fixed }

	got := c.ExpiresAt()
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(fixed.Add(time.Hour)))
	assert.True(t, got.After(fixed))
}
