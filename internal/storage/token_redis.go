package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Varun5711/tokenqueue/internal/models/token"
	"github.com/redis/go-redis/v9"
)

const (
	tokenKeyPrefix   = "auth:token:"
	tokenIDKeyPrefix = "auth:token-id:"
)

type redisTokenRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	ExpiresAt string `json:"expires_at"`
}

// RedisTokenStorage keeps tokens under keys that expire with the token, so
// no reaper is needed for this backend.
type RedisTokenStorage struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisTokenStorage(client *redis.Client) *RedisTokenStorage {
	return &RedisTokenStorage{client: client, now: time.Now}
}

func (s *RedisTokenStorage) Save(ctx context.Context, t *token.Token) error {
	ttl := t.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("failed to save token: already expired")
	}

	data, err := json.Marshal(redisTokenRecord{
		ID:        t.ID,
		UserID:    t.UserID,
		ExpiresAt: token.FormatTimestamp(t.ExpiresAt),
	})
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tokenKeyPrefix+t.AccessToken, data, ttl)
		pipe.Set(ctx, tokenIDKeyPrefix+t.ID, t.AccessToken, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (s *RedisTokenStorage) FindByAccessToken(ctx context.Context, accessToken string) (*token.Token, error) {
	data, err := s.client.Get(ctx, tokenKeyPrefix+accessToken).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find token: %w", err)
	}

	var rec redisTokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	expiresAt, err := token.ParseTimestamp(rec.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token expiry: %w", err)
	}

	return token.Restore(rec.ID, rec.UserID, accessToken, expiresAt), nil
}

func (s *RedisTokenStorage) Delete(ctx context.Context, tokenID string) (bool, error) {
	accessToken, err := s.client.Get(ctx, tokenIDKeyPrefix+tokenID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete token: %w", err)
	}

	n, err := s.client.Del(ctx, tokenKeyPrefix+accessToken, tokenIDKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete token: %w", err)
	}
	return n > 0, nil
}
