package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/cache"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/repositories"
	"github.com/3Eeeecho/supfile/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const cacheTTL = 10 * time.Minute

func newCachedRepo(t *testing.T) (*gorm.DB, *testutil.MemoryCache, repositories.ShareRepository) {
	t.Helper()
	db := testutil.NewDB(t)
	memCache := testutil.NewMemoryCache()
	return db, memCache, repositories.NewCachedShareRepository(repositories.NewShareRepository(db), memCache, cacheTTL)
}

func newShare(t *testing.T, repo repositories.ShareRepository, token string) *models.Share {
	t.Helper()
	hash := "$2a$10$hash"
	expires := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	share := &models.Share{
		ShareToken:   token,
		UserID:       uuid.NewString(),
		ExpiresAt:    &expires,
		PasswordHash: &hash,
	}
	share.SetTarget(models.FolderTarget(uuid.NewString()))
	require.NoError(t, repo.Create(context.Background(), share))
	return share
}

func TestCachedShareRepositoryHit(t *testing.T) {
	db, memCache, repo := newCachedRepo(t)
	ctx := context.Background()
	created := newShare(t, repo, "tok-hit")
	key := cache.GenerateShareTokenKey("tok-hit")

	found, err := repo.FindByToken(ctx, "tok-hit")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	require.True(t, memCache.Has(key))
	assert.GreaterOrEqual(t, memCache.TTLs[key], cacheTTL)
	assert.Less(t, memCache.TTLs[key], cacheTTL+time.Minute)

	// 删掉数据库记录后仍能从缓存读到
	require.NoError(t, db.Exec("DELETE FROM shares WHERE id = ?", created.ID).Error)
	cached, err := repo.FindByToken(ctx, "tok-hit")
	require.NoError(t, err)
	assert.Equal(t, created.ID, cached.ID)
	assert.Equal(t, created.UserID, cached.UserID)
	assert.Equal(t, created.Target(), cached.Target())
	require.NotNil(t, cached.ExpiresAt)
	assert.True(t, created.ExpiresAt.Equal(*cached.ExpiresAt))
	assert.True(t, cached.HasPassword())
}

func TestCachedShareRepositoryNotFoundMarker(t *testing.T) {
	_, memCache, repo := newCachedRepo(t)
	ctx := context.Background()
	key := cache.GenerateShareTokenKey("tok-late")

	_, err := repo.FindByToken(ctx, "tok-late")
	assert.ErrorIs(t, err, xerr.ErrShareNotFound)
	assert.True(t, memCache.Has(key))
	assert.Equal(t, time.Minute, memCache.TTLs[key])

	_, err = repo.FindByToken(ctx, "tok-late")
	assert.ErrorIs(t, err, xerr.ErrShareNotFound)

	// 创建时清掉"不存在"标记
	created := newShare(t, repo, "tok-late")
	found, err := repo.FindByToken(ctx, "tok-late")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestCachedShareRepositoryKeepsEntryAcrossDownloads(t *testing.T) {
	_, memCache, repo := newCachedRepo(t)
	ctx := context.Background()
	share := newShare(t, repo, "tok-count")
	key := cache.GenerateShareTokenKey("tok-count")

	_, err := repo.FindByToken(ctx, "tok-count")
	require.NoError(t, err)
	require.True(t, memCache.Has(key))
	deletes := memCache.Deletes

	for want := int64(1); want <= 3; want++ {
		found, err := repo.FindByToken(ctx, "tok-count")
		require.NoError(t, err)
		count, err := repo.IncrementDownloadCount(ctx, found)
		require.NoError(t, err)
		assert.Equal(t, want, count)
		assert.True(t, memCache.Has(key))
	}
	assert.Equal(t, deletes, memCache.Deletes)

	stored, err := repo.FindByID(ctx, share.UserID, share.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stored.DownloadCount)

	require.NoError(t, repo.Delete(ctx, share))
	assert.False(t, memCache.Has(key))
	_, err = repo.FindByToken(ctx, "tok-count")
	assert.ErrorIs(t, err, xerr.ErrShareNotFound)
}

func TestCachedShareRepositoryFallsBackToDB(t *testing.T) {
	_, memCache, repo := newCachedRepo(t)
	ctx := context.Background()
	share := newShare(t, repo, "tok-fallback")
	key := cache.GenerateShareTokenKey("tok-fallback")

	t.Run("corrupted entry", func(t *testing.T) {
		memCache.Set(key, map[string]string{"ID": share.ID, "ShareToken": "tok-fallback", "CreatedAt": "yesterday"})
		found, err := repo.FindByToken(ctx, "tok-fallback")
		require.NoError(t, err)
		assert.Equal(t, share.ID, found.ID)
	})

	t.Run("cache unavailable", func(t *testing.T) {
		memCache.Err = errors.New("connection refused")
		defer func() { memCache.Err = nil }()

		found, err := repo.FindByToken(ctx, "tok-fallback")
		require.NoError(t, err)
		assert.Equal(t, share.ID, found.ID)

		// 缓存失败不影响写操作
		count, err := repo.IncrementDownloadCount(ctx, share)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}
