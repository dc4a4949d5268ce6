package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/Varun5711/tokenqueue/internal/apperr"
)

// Token is an opaque bearer credential issued at login. It is immutable
// once persisted.
type Token struct {
	ID          string
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
}

// New builds a freshly issued token. expiresAt must be strictly after now.
func New(id, userID, accessToken string, expiresAt, now time.Time) (*Token, error) {
	switch {
	case strings.TrimSpace(id) == "":
		return nil, apperr.NewValidation("token id is required")
	case strings.TrimSpace(userID) == "":
		return nil, apperr.NewValidation("token user id is required")
	case accessToken == "":
		return nil, apperr.NewValidation("access token is required")
	case expiresAt.IsZero():
		return nil, apperr.NewValidation("token expiry is required")
	}

	if !expiresAt.After(now) {
		return nil, apperr.NewValidation("token expiry must be in the future")
	}

	return &Token{
		ID:          id,
		UserID:      userID,
		AccessToken: accessToken,
		ExpiresAt:   expiresAt.UTC(),
	}, nil
}

// Restore rehydrates a stored token. Stored tokens may already be expired,
// so no future check is applied.
func Restore(id, userID, accessToken string, expiresAt time.Time) *Token {
	return &Token{
		ID:          id,
		UserID:      userID,
		AccessToken: accessToken,
		ExpiresAt:   expiresAt.UTC(),
	}
}

func (t *Token) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

func (t *Token) IsExpiredAt(now time.Time) bool {
	return !now.UTC().Before(t.ExpiresAt.UTC())
}

func (t *Token) Equal(other *Token) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.ID == other.ID
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without a zone are
// taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
