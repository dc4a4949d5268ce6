package user

import (
	"regexp"
	"strings"
	"time"

	"github.com/Varun5711/tokenqueue/internal/apperr"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[a-zA-Z]{2,}$`)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// New validates the fields and returns a User with a lowercased email.
func New(id, name, email, passwordHash string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.NewValidation("user id is required")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.NewValidation("name is required")
	}

	if !ValidEmail(email) {
		return nil, apperr.NewValidation("invalid email format")
	}

	if passwordHash == "" {
		return nil, apperr.NewValidation("password hash is required")
	}

	now := time.Now().UTC()
	return &User{
		ID:           id,
		Name:         name,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
