package explorer_test

import (
	"context"
	"testing"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolderCreate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)

	docs := env.Mkdir(t, user.ID, nil, "  Docs ")
	assert.Equal(t, "Docs", docs.Name)
	assert.Nil(t, docs.ParentID)

	t.Run("duplicate name under same parent", func(t *testing.T) {
		_, err := env.Folders.Create(ctx, user.ID, "Docs", nil)
		assert.ErrorIs(t, err, xerr.ErrNameConflict)
	})

	t.Run("same name under another parent", func(t *testing.T) {
		sub, err := env.Folders.Create(ctx, user.ID, "Docs", &docs.ID)
		require.NoError(t, err)
		assert.Equal(t, docs.ID, *sub.ParentID)
	})

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", "   ", ".", "..", "a/b", "a\\b"} {
			_, err := env.Folders.Create(ctx, user.ID, name, nil)
			assert.ErrorIs(t, err, xerr.ErrFileNameInvalid, "name %q", name)
		}
	})

	t.Run("missing parent", func(t *testing.T) {
		_, err := env.Folders.Create(ctx, user.ID, "x", testutil.Ptr("does-not-exist"))
		assert.ErrorIs(t, err, xerr.ErrFolderNotFound)
	})

	t.Run("parent owned by someone else", func(t *testing.T) {
		other := env.CreateUser(t, 1<<20)
		_, err := env.Folders.Create(ctx, other.ID, "x", &docs.ID)
		assert.ErrorIs(t, err, xerr.ErrFolderNotFound)
	})
}

func TestFolderMoveRejectsCycles(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)

	a := env.Mkdir(t, user.ID, nil, "A")
	b := env.Mkdir(t, user.ID, &a.ID, "B")
	c := env.Mkdir(t, user.ID, &b.ID, "C")

	_, err := env.Folders.Move(ctx, user.ID, a.ID, &c.ID)
	assert.ErrorIs(t, err, xerr.ErrCannotMoveIntoSubtree)
	assert.Equal(t, xerr.KindInvalidOperation, xerr.Kind(err))

	_, err = env.Folders.Move(ctx, user.ID, a.ID, &a.ID)
	assert.ErrorIs(t, err, xerr.ErrCannotMoveIntoSelf)

	// 树结构没有变化
	stored, err := env.FolderRepo.FindByID(ctx, user.ID, a.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ParentID)

	// 合法移动：C 移到根目录，再把 A 移到 C 下
	moved, err := env.Folders.Move(ctx, user.ID, c.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)

	moved, err = env.Folders.Move(ctx, user.ID, a.ID, &c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, *moved.ParentID)
}

func TestFolderMoveNameConflict(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)

	target := env.Mkdir(t, user.ID, nil, "target")
	env.Mkdir(t, user.ID, &target.ID, "photos")
	photos := env.Mkdir(t, user.ID, nil, "photos")

	_, err := env.Folders.Move(ctx, user.ID, photos.ID, &target.ID)
	assert.ErrorIs(t, err, xerr.ErrNameConflict)
}

func TestFolderRename(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)

	a := env.Mkdir(t, user.ID, nil, "a")
	env.Mkdir(t, user.ID, nil, "b")

	_, err := env.Folders.Rename(ctx, user.ID, a.ID, "b")
	assert.ErrorIs(t, err, xerr.ErrNameConflict)

	renamed, err := env.Folders.Rename(ctx, user.ID, a.ID, "a") // 重命名为自身不算冲突
	require.NoError(t, err)
	assert.Equal(t, "a", renamed.Name)

	renamed, err = env.Folders.Rename(ctx, user.ID, a.ID, "c")
	require.NoError(t, err)
	assert.Equal(t, "c", renamed.Name)
}

// buildTree 创建 root/{x.txt, sub/{y.txt, deep/{z.txt}}} 以及一个兄弟目录
func buildTree(t *testing.T, env *testutil.Env, userID string) (root, sub, deep, sibling *models.Folder) {
	t.Helper()
	root = env.Mkdir(t, userID, nil, "root")
	sub = env.Mkdir(t, userID, &root.ID, "sub")
	deep = env.Mkdir(t, userID, &sub.ID, "deep")
	sibling = env.Mkdir(t, userID, nil, "sibling")

	env.Upload(t, userID, &root.ID, "x.txt", "xx")
	env.Upload(t, userID, &sub.ID, "y.txt", "yyy")
	env.Upload(t, userID, &deep.ID, "z.txt", "zzzz")
	env.Upload(t, userID, &sibling.ID, "keep.txt", "k")
	return root, sub, deep, sibling
}

func TestFolderSoftDeleteCascades(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)
	root, sub, deep, sibling := buildTree(t, env, user.ID)
	usedBefore := env.StorageUsed(t, user.ID)

	result, err := env.Folders.SoftDelete(ctx, user.ID, root.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.Folders)
	assert.EqualValues(t, 3, result.Files)
	require.NotNil(t, result.DeletedAt)

	for _, id := range []string{root.ID, sub.ID, deep.ID} {
		f, err := env.FolderRepo.FindByID(ctx, user.ID, id)
		require.NoError(t, err)
		assert.True(t, f.IsDeleted)
		require.NotNil(t, f.DeletedAt)
		assert.True(t, result.DeletedAt.Equal(*f.DeletedAt), "folder %s shares the cascade timestamp", f.Name)
	}
	for _, id := range []string{root.ID, sub.ID, deep.ID} {
		files, err := env.FileRepo.FindInFolder(ctx, user.ID, &id, true)
		require.NoError(t, err)
		for _, f := range files {
			assert.True(t, f.IsDeleted)
			assert.True(t, result.DeletedAt.Equal(*f.DeletedAt))
		}
	}

	// 兄弟目录不受影响，回收站不释放空间
	s, err := env.FolderRepo.FindByID(ctx, user.ID, sibling.ID)
	require.NoError(t, err)
	assert.False(t, s.IsDeleted)
	assert.Equal(t, usedBefore, env.StorageUsed(t, user.ID))

	// 已删除的目录不能再次删除
	_, err = env.Folders.SoftDelete(ctx, user.ID, root.ID)
	assert.ErrorIs(t, err, xerr.ErrFolderNotFound)

	// 回收站中的目录下不能新建
	_, err = env.Folders.Create(ctx, user.ID, "new", &sub.ID)
	assert.ErrorIs(t, err, xerr.ErrFolderNotFound)
}

func TestFolderRestoreCascades(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)
	root, sub, deep, _ := buildTree(t, env, user.ID)

	_, err := env.Folders.Restore(ctx, user.ID, root.ID)
	assert.ErrorIs(t, err, xerr.ErrNotInRecycleBin)

	_, err = env.Folders.SoftDelete(ctx, user.ID, root.ID)
	require.NoError(t, err)

	result, err := env.Folders.Restore(ctx, user.ID, root.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.Folders)
	assert.EqualValues(t, 3, result.Files)

	for _, id := range []string{root.ID, sub.ID, deep.ID} {
		f, err := env.FolderRepo.FindByID(ctx, user.ID, id)
		require.NoError(t, err)
		assert.False(t, f.IsDeleted)
		assert.Nil(t, f.DeletedAt)
	}
	contents, err := env.Folders.Get(ctx, user.ID, deep.ID)
	require.NoError(t, err)
	require.Len(t, contents.Files, 1)
	assert.Equal(t, "z.txt", contents.Files[0].OriginalName)

	// 再次恢复没有可恢复的内容
	_, err = env.Folders.Restore(ctx, user.ID, root.ID)
	assert.ErrorIs(t, err, xerr.ErrNotInRecycleBin)
}

func TestFolderRestoreNameConflict(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)

	old := env.Mkdir(t, user.ID, nil, "reports")
	_, err := env.Folders.SoftDelete(ctx, user.ID, old.ID)
	require.NoError(t, err)
	env.Mkdir(t, user.ID, nil, "reports")

	_, err = env.Folders.Restore(ctx, user.ID, old.ID)
	assert.ErrorIs(t, err, xerr.ErrNameConflict)
}

func TestFolderListAndGet(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)
	root, sub, _, _ := buildTree(t, env, user.ID)

	top, err := env.Folders.List(ctx, user.ID, nil, false)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "root", top[0].Name)
	assert.Equal(t, "sibling", top[1].Name)

	contents, err := env.Folders.Get(ctx, user.ID, root.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, contents.Folder.ID)
	require.Len(t, contents.Subfolders, 1)
	assert.Equal(t, sub.ID, contents.Subfolders[0].ID)
	require.Len(t, contents.Files, 1)

	_, err = env.Folders.SoftDelete(ctx, user.ID, sub.ID)
	require.NoError(t, err)

	children, err := env.Folders.List(ctx, user.ID, &root.ID, false)
	require.NoError(t, err)
	assert.Empty(t, children)

	children, err = env.Folders.List(ctx, user.ID, &root.ID, true)
	require.NoError(t, err)
	assert.Len(t, children, 1)
}

func TestFolderToggleFavorite(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)
	folder := env.Mkdir(t, user.ID, nil, "fav")

	updated, err := env.Folders.ToggleFavorite(ctx, user.ID, folder.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsFavorite)

	updated, err = env.Folders.ToggleFavorite(ctx, user.ID, folder.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsFavorite)
}
