package mapper

import (
	"testing"
	"time"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringMap(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v.(string)
	}
	return out
}

func TestShareMapRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.UTC)
	expires := now.Add(48 * time.Hour)
	folderID := "folder-1"
	hash := "$2a$10$abc"

	share := &models.Share{
		ID:            "share-1",
		ShareToken:    "tok",
		UserID:        "user-1",
		FolderID:      &folderID,
		ExpiresAt:     &expires,
		PasswordHash:  &hash,
		DownloadCount: 42,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	got, err := MapToShare(stringMap(ShareToMap(share)))
	require.NoError(t, err)
	assert.Equal(t, models.FolderTarget("folder-1"), got.Target())
	assert.Nil(t, got.FileID)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expires.Equal(*got.ExpiresAt))
	assert.True(t, now.Equal(got.CreatedAt))
	// 下载次数不进缓存
	assert.NotContains(t, ShareToMap(share), "DownloadCount")
	assert.Zero(t, got.DownloadCount)
	assert.True(t, got.HasPassword())

	// 无密码、永不过期
	share.PasswordHash = nil
	share.ExpiresAt = nil
	got, err = MapToShare(stringMap(ShareToMap(share)))
	require.NoError(t, err)
	assert.Nil(t, got.ExpiresAt)
	assert.False(t, got.HasPassword())
}

func TestMapToShareRejectsBadEntries(t *testing.T) {
	_, err := MapToShare(map[string]string{"ShareToken": "tok"})
	assert.Error(t, err)

	_, err = MapToShare(map[string]string{"ID": "s", "ShareToken": "tok", "DownloadCount": "lots"})
	assert.Error(t, err)

	_, err = MapToShare(map[string]string{"ID": "s", "ShareToken": "tok", "CreatedAt": "yesterday"})
	assert.Error(t, err)
}
