package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestHasher() *BcryptHasher {
	return NewBcryptHasher(bcrypt.MinCost)
}

func TestHash(t *testing.T) {
	password := "securePassword123"

	hash, err := newTestHasher().Hash(password)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if hash == "" {
		t.Error("expected non-empty hash")
	}

	if hash == password {
		t.Error("hash should not equal plaintext password")
	}
}

func TestHash_DifferentHashes(t *testing.T) {
	h := newTestHasher()

	hash1, err := h.Hash("securePassword123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hash2, err := h.Hash("securePassword123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if hash1 == hash2 {
		t.Error("same password should produce different hashes due to salt")
	}
}

func TestVerify_Correct(t *testing.T) {
	h := newTestHasher()

	hash, err := h.Hash("securePassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	ok, err := h.Verify("securePassword123", hash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected correct password to match")
	}
}

func TestVerify_IncorrectIsNotAnError(t *testing.T) {
	h := newTestHasher()

	hash, err := h.Hash("securePassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	for _, candidate := range []string{"wrongPassword456", ""} {
		ok, err := h.Verify(candidate, hash)
		if err != nil {
			t.Errorf("mismatch for %q should not be an error, got %v", candidate, err)
		}
		if ok {
			t.Errorf("expected %q not to match", candidate)
		}
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	ok, err := newTestHasher().Verify("password", "not-a-valid-bcrypt-hash")
	if err == nil {
		t.Error("expected error for invalid hash format")
	}
	if ok {
		t.Error("invalid hash must never verify")
	}
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	if got := NewBcryptHasher(0).cost; got != bcrypt.DefaultCost {
		t.Errorf("expected default cost, got %d", got)
	}
	if got := NewBcryptHasher(bcrypt.MaxCost + 1).cost; got != bcrypt.DefaultCost {
		t.Errorf("expected default cost, got %d", got)
	}
}
