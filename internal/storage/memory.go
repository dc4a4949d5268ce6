package storage

import (
	"context"
	"sync"
	"time"

	"github.com/Varun5711/tokenqueue/internal/models/token"
	"github.com/Varun5711/tokenqueue/internal/models/user"
)

type MemoryUserStorage struct {
	mu      sync.RWMutex
	byID    map[string]*user.User
	byEmail map[string]string
}

func NewMemoryUserStorage() *MemoryUserStorage {
	return &MemoryUserStorage{
		byID:    make(map[string]*user.User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryUserStorage) Save(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[u.ID]; exists {
		return nil
	}
	email := user.NormalizeEmail(u.Email)
	if _, taken := s.byEmail[email]; taken {
		return ErrEmailTaken
	}

	stored := *u
	s.byID[u.ID] = &stored
	s.byEmail[email] = u.ID
	return nil
}

func (s *MemoryUserStorage) GetByID(_ context.Context, id string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.byID[id]
	if !exists {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (s *MemoryUserStorage) GetByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byEmail[user.NormalizeEmail(email)]
	if !exists {
		return nil, nil
	}
	out := *s.byID[id]
	return &out, nil
}

func (s *MemoryUserStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

type MemoryTokenStorage struct {
	mu       sync.RWMutex
	byID     map[string]*token.Token
	byAccess map[string]string
}

func NewMemoryTokenStorage() *MemoryTokenStorage {
	return &MemoryTokenStorage{
		byID:     make(map[string]*token.Token),
		byAccess: make(map[string]string),
	}
}

func (s *MemoryTokenStorage) Save(_ context.Context, t *token.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *t
	s.byID[t.ID] = &stored
	s.byAccess[t.AccessToken] = t.ID
	return nil
}

func (s *MemoryTokenStorage) FindByAccessToken(_ context.Context, accessToken string) (*token.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byAccess[accessToken]
	if !exists {
		return nil, nil
	}
	out := *s.byID[id]
	return &out, nil
}

func (s *MemoryTokenStorage) Delete(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.byID[tokenID]
	if !exists {
		return false, nil
	}
	delete(s.byAccess, t.AccessToken)
	delete(s.byID, tokenID)
	return true, nil
}

func (s *MemoryTokenStorage) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, t := range s.byID {
		if t.IsExpiredAt(now) {
			delete(s.byAccess, t.AccessToken)
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryTokenStorage) List() []*token.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]*token.Token, 0, len(s.byID))
	for _, t := range s.byID {
		out := *t
		tokens = append(tokens, &out)
	}
	return tokens
}
