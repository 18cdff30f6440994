package explorer_test

import (
	"bytes"
	"context"
	"io"
	"sort"
	"testing"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/services/explorer"
	"github.com/3Eeeecho/supfile/internal/testutil"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readZip 读出归档中所有条目，目录条目的内容为空
func readZip(t *testing.T, r io.Reader) map[string]string {
	t.Helper()
	data, err := io.ReadAll(r)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		entries[f.Name] = string(content)
	}
	return entries
}

func entryNames(entries map[string]string) []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func TestFolderDownloadZip(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)
	root, sub, _, _ := buildTree(t, env, user.ID)

	// 回收站中的内容不进入归档
	trashed := env.Upload(t, user.ID, &sub.ID, "gone.txt", "gone")
	_, err := env.Files.SoftDelete(ctx, user.ID, trashed.ID)
	require.NoError(t, err)

	folder, reader, err := env.Folders.Download(ctx, user.ID, root.ID)
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, "root.zip", explorer.ArchiveName(folder))

	entries := readZip(t, reader)
	assert.Equal(t, []string{
		"root/",
		"root/sub/",
		"root/sub/deep/",
		"root/sub/deep/z.txt",
		"root/sub/y.txt",
		"root/x.txt",
	}, entryNames(entries))
	assert.Equal(t, "zzzz", entries["root/sub/deep/z.txt"])
	assert.Equal(t, "xx", entries["root/x.txt"])
}

func TestZipDeduplicatesAndSkipsMissingBlobs(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)
	root := env.Mkdir(t, user.ID, nil, "dup")

	// 上传允许重名
	env.Upload(t, user.ID, &root.ID, "a.txt", "first")
	env.Upload(t, user.ID, &root.ID, "a.txt", "second")
	missing := env.Upload(t, user.ID, &root.ID, "b.txt", "bbb")
	require.NoError(t, env.Storage.RemoveObject(ctx, missing.Bucket, missing.BlobPath))

	streamer := explorer.NewZipStreamer(env.FolderRepo, env.FileRepo, env.Storage)
	reader := streamer.Stream(ctx, root)
	defer reader.Close()

	entries := readZip(t, reader)
	assert.Equal(t, []string{"dup/", "dup/a (1).txt", "dup/a.txt"}, entryNames(entries))
	assert.ElementsMatch(t, []string{"first", "second"}, []string{entries["dup/a.txt"], entries["dup/a (1).txt"]})
}

func TestZipStreamStopsWhenReaderClosed(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser(t, 1<<20)
	root := env.Mkdir(t, user.ID, nil, "big")
	env.Upload(t, user.ID, &root.ID, "a.txt", string(bytes.Repeat([]byte("a"), 64*1024)))

	streamer := explorer.NewZipStreamer(env.FolderRepo, env.FileRepo, env.Storage)
	reader := streamer.Stream(context.Background(), &models.Folder{ID: root.ID, Name: root.Name, UserID: user.ID})

	buf := make([]byte, 16)
	_, err := reader.Read(buf)
	require.NoError(t, err)
	require.NoError(t, reader.Close())

	_, err = reader.Read(buf)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}
