package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NordCoder/enotary/internal/domain"
	"github.com/NordCoder/enotary/internal/domain/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokenRepo_MarkRevokedIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := NewRefreshTokenRepo()
	require.NoError(t, repo.Create(ctx, &auth.RefreshToken{JTI: "j1", Email: "a@b.c", Token: "raw1", ExpiresAt: time.Now().Add(time.Hour)}))

	changed, err := repo.MarkRevoked(ctx, "j1")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkRevoked(ctx, "j1")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repo.MarkRevoked(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, changed)

	rec, err := repo.FindByToken(ctx, "raw1")
	require.NoError(t, err)
	assert.True(t, rec.Revoked)
}

func TestRefreshTokenRepo_ConcurrentRevokeHasOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewRefreshTokenRepo()
	require.NoError(t, repo.Create(ctx, &auth.RefreshToken{JTI: "j1", Email: "a@b.c", Token: "raw1", ExpiresAt: time.Now().Add(time.Hour)}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := repo.MarkRevoked(ctx, "j1"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestRefreshTokenRepo_DuplicateAndMissing(t *testing.T) {
	ctx := context.Background()
	repo := NewRefreshTokenRepo()
	rec := &auth.RefreshToken{JTI: "j1", Email: "a@b.c", Token: "raw1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, rec))
	require.ErrorIs(t, repo.Create(ctx, rec), domain.ErrConflict)

	_, err := repo.FindByJTI(ctx, "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRevokedTokenRepo_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewRevokedTokenRepo()
	exp := time.Now().Add(time.Minute)

	require.NoError(t, repo.Add(ctx, "j1", exp))
	require.NoError(t, repo.Add(ctx, "j1", exp))

	ok, err := repo.Exists(ctx, "j1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, "j2")
	require.NoError(t, err)
	assert.False(t, ok)
}
