package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Varun5711/tokenqueue/internal/models/token"
	"github.com/Varun5711/tokenqueue/internal/models/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUserStorage_SaveIsIdempotentOnID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStorage()

	u, err := user.New("u-1", "Ana", "ana@example.com", "hash")
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, u))
	require.NoError(t, s.Save(ctx, u))
	assert.Equal(t, 1, s.Len())

	other, err := user.New("u-2", "Ana Two", "ANA@example.com", "hash")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Save(ctx, other), ErrEmailTaken)

	got, err := s.GetByEmail(ctx, "Ana@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)

	missing, err := s.GetByID(ctx, "u-9")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryTokenStorage_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTokenStorage()
	now := time.Now()

	live := token.Restore("t-1", "u-1", "live", now.Add(time.Hour))
	dead := token.Restore("t-2", "u-1", "dead", now.Add(-time.Hour))
	require.NoError(t, s.Save(ctx, live))
	require.NoError(t, s.Save(ctx, dead))

	got, err := s.FindByAccessToken(ctx, "live")
	require.NoError(t, err)
	assert.True(t, got.Equal(live))

	n, err := s.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	gone, err := s.FindByAccessToken(ctx, "dead")
	assert.NoError(t, err)
	assert.Nil(t, gone)

	deleted, err := s.Delete(ctx, "t-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, "t-1")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Empty(t, s.List())
}
