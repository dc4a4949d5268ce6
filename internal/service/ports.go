// Package service holds the command and query handlers. Handlers take
// already-decoded inputs, talk to storage through repository ports and return
// apperr-tagged errors for the adapters to translate.
package service

import "time"

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

type TokenGenerator interface {
	Generate() (string, error)
}

type ExpiryCalculator interface {
	ExpiresAt() time.Time
}
