package token

import (
	"testing"
	"time"

	"github.com/Varun5711/tokenqueue/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NotExpiredAfterConstruction(t *testing.T) {
	now := time.Now()
	tok, err := New("t-1", "u-1", "secret", now.Add(time.Hour), now)
	require.NoError(t, err)

	assert.False(t, tok.IsExpired())
	assert.Equal(t, time.UTC, tok.ExpiresAt.Location())
}

func TestNew_RejectsPastOrPresentExpiry(t *testing.T) {
	now := time.Now()

	_, err := New("t-1", "u-1", "secret", now, now)
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = New("t-1", "u-1", "secret", now.Add(-time.Second), now)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestNew_RequiresAllFields(t *testing.T) {
	now := time.Now()
	exp := now.Add(time.Hour)

	cases := map[string]func() error{
		"id":      func() error { _, err := New("", "u", "a", exp, now); return err },
		"user":    func() error { _, err := New("t", "", "a", exp, now); return err },
		"access":  func() error { _, err := New("t", "u", "", exp, now); return err },
		"expires": func() error { _, err := New("t", "u", "a", time.Time{}, now); return err },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, apperr.Is(fn(), apperr.Validation))
		})
	}
}

func TestIsExpiredAt_Monotonic(t *testing.T) {
	base := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	tok := Restore("t-1", "u-1", "secret", base)

	assert.False(t, tok.IsExpiredAt(base.Add(-time.Nanosecond)))
	assert.True(t, tok.IsExpiredAt(base))

	for _, d := range []time.Duration{time.Nanosecond, time.Second, time.Hour, 24 * 365 * time.Hour} {
		assert.True(t, tok.IsExpiredAt(base.Add(d)), "expired at +%v", d)
	}
}

func TestIsExpiredAt_MixedZones(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	expiry := time.Date(2030, 1, 1, 13, 0, 0, 0, berlin) // 12:00 UTC
	tok := Restore("t-1", "u-1", "secret", expiry)

	assert.False(t, tok.IsExpiredAt(time.Date(2030, 1, 1, 11, 59, 0, 0, time.UTC)))
	assert.True(t, tok.IsExpiredAt(time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)))
}

func TestParseTimestamp_NaiveIsUTC(t *testing.T) {
	naive, err := ParseTimestamp("2030-01-01T12:00:00")
	require.NoError(t, err)
	aware, err := ParseTimestamp("2030-01-01T14:00:00+02:00")
	require.NoError(t, err)

	assert.True(t, naive.Equal(aware))
	assert.Equal(t, time.UTC, naive.Location())

	tok := Restore("t-1", "u-1", "secret", naive)
	assert.NotPanics(t, func() { tok.IsExpired() })
	assert.False(t, tok.IsExpiredAt(aware.Add(-time.Minute)))
}

func TestParseTimestamp_Variants(t *testing.T) {
	for _, s := range []string{
		"2030-01-01T12:00:00Z",
		"2030-01-01T12:00:00.123456",
		"2030-01-01 12:00:00",
		"2030-01-01 12:00:00.5",
	} {
		_, err := ParseTimestamp(s)
		assert.NoError(t, err, s)
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestFormatTimestamp_RoundTrip(t *testing.T) {
	in := time.Date(2030, 6, 1, 8, 30, 0, 500, time.FixedZone("X", -3*3600))
	out, err := ParseTimestamp(FormatTimestamp(in))
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
}

func TestEqual_ByID(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	a := Restore("t-1", "u-1", "one", exp)
	b := Restore("t-1", "u-2", "two", exp.Add(time.Hour))
	c := Restore("t-2", "u-1", "one", exp)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}
