package query_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/search"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/services/explorer"
	"github.com/3Eeeecho/supfile/internal/services/query"
	"github.com/3Eeeecho/supfile/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upload(t *testing.T, env *testutil.Env, userID string, folderID *string, name, mimeType, content string) models.File {
	t.Helper()
	res, err := env.Files.Upload(context.Background(), userID, folderID, []explorer.UploadItem{{
		OriginalName: name,
		MimeType:     mimeType,
		Size:         int64(len(content)),
		Content:      strings.NewReader(content),
	}})
	require.NoError(t, err)
	return res.Files[0]
}

func fileNames(files []models.File) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.OriginalName)
	}
	return names
}

func folderNames(folders []models.Folder) []string {
	names := make([]string, 0, len(folders))
	for _, f := range folders {
		names = append(names, f.Name)
	}
	return names
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, query.DefaultLimit, query.NormalizeLimit(0))
	assert.Equal(t, query.DefaultLimit, query.NormalizeLimit(-3))
	assert.Equal(t, 7, query.NormalizeLimit(7))
	assert.Equal(t, query.MaxLimit, query.NormalizeLimit(5000))
	assert.Equal(t, 0, query.NormalizeOffset(-1))
	assert.Equal(t, 15, query.NormalizeOffset(15))
}

func TestTrash(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)

	older := env.Upload(t, user.ID, nil, "older.txt", "o")
	newer := env.Upload(t, user.ID, nil, "newer.txt", "n")
	env.Upload(t, user.ID, nil, "kept.txt", "k")
	folder := env.Mkdir(t, user.ID, nil, "trashed")

	_, err := env.Files.SoftDelete(ctx, user.ID, older.ID)
	require.NoError(t, err)
	_, err = env.Files.SoftDelete(ctx, user.ID, newer.ID)
	require.NoError(t, err)
	_, err = env.Folders.SoftDelete(ctx, user.ID, folder.ID)
	require.NoError(t, err)

	// 固定删除时间，检查排序
	base := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, env.DB.Model(&models.File{}).Where("id = ?", older.ID).Update("deleted_at", base).Error)
	require.NoError(t, env.DB.Model(&models.File{}).Where("id = ?", newer.ID).Update("deleted_at", base.Add(time.Minute)).Error)

	listing, err := env.Query.Trash(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"newer.txt", "older.txt"}, fileNames(listing.Files))
	assert.Equal(t, []string{"trashed"}, folderNames(listing.Folders))

	other := env.CreateUser(t, 1<<20)
	listing, err = env.Query.Trash(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, listing.Files)
	assert.Empty(t, listing.Folders)
}

func TestFavoritesAndRecents(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)

	star := env.Upload(t, user.ID, nil, "star.txt", "s")
	plain := env.Upload(t, user.ID, nil, "plain.txt", "p")
	gone := env.Upload(t, user.ID, nil, "gone.txt", "g")
	folder := env.Mkdir(t, user.ID, nil, "pinned")

	_, err := env.Files.ToggleFavorite(ctx, user.ID, star.ID)
	require.NoError(t, err)
	_, err = env.Files.ToggleFavorite(ctx, user.ID, gone.ID)
	require.NoError(t, err)
	_, err = env.Files.SoftDelete(ctx, user.ID, gone.ID)
	require.NoError(t, err)
	_, err = env.Folders.ToggleFavorite(ctx, user.ID, folder.ID)
	require.NoError(t, err)

	favorites, err := env.Query.Favorites(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"star.txt"}, fileNames(favorites.Files))
	assert.Equal(t, []string{"pinned"}, folderNames(favorites.Folders))

	base := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, env.DB.Model(&models.File{}).Where("id = ?", star.ID).UpdateColumn("updated_at", base).Error)
	require.NoError(t, env.DB.Model(&models.File{}).Where("id = ?", plain.ID).UpdateColumn("updated_at", base.Add(time.Minute)).Error)

	recents, err := env.Query.Recents(ctx, user.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"plain.txt"}, fileNames(recents.Files))
	assert.Len(t, recents.Folders, 1)

	recents, err = env.Query.Recents(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"plain.txt", "star.txt"}, fileNames(recents.Files))
}

func TestSearch(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)

	reports := env.Mkdir(t, user.ID, nil, "Reports")
	env.Upload(t, user.ID, &reports.ID, "Quarterly Report.pdf", "q")
	env.Upload(t, user.ID, nil, "report_draft.txt", "d")
	env.Upload(t, user.ID, nil, "reportXdraft.txt", "x")
	env.Upload(t, user.ID, nil, "growth 100%.txt", "g")
	env.Upload(t, user.ID, nil, "growth 1000.txt", "h")
	trashed := env.Upload(t, user.ID, nil, "old report.txt", "o")
	_, err := env.Files.SoftDelete(ctx, user.ID, trashed.ID)
	require.NoError(t, err)

	t.Run("case insensitive across files and folders", func(t *testing.T) {
		res, err := env.Query.Search(ctx, user.ID, query.SearchRequest{Query: "  REPORT "})
		require.NoError(t, err)
		assert.Equal(t, "REPORT", res.Query)
		assert.ElementsMatch(t, []string{"Quarterly Report.pdf", "report_draft.txt", "reportXdraft.txt"}, fileNames(res.Files))
		assert.Equal(t, []string{"Reports"}, folderNames(res.Folders))
		assert.Equal(t, 4, res.Total)
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		res, err := env.Query.Search(ctx, user.ID, query.SearchRequest{Query: "report_"})
		require.NoError(t, err)
		assert.Equal(t, []string{"report_draft.txt"}, fileNames(res.Files))

		res, err = env.Query.Search(ctx, user.ID, query.SearchRequest{Query: "100%"})
		require.NoError(t, err)
		assert.Equal(t, []string{"growth 100%.txt"}, fileNames(res.Files))
	})

	t.Run("type filter", func(t *testing.T) {
		res, err := env.Query.Search(ctx, user.ID, query.SearchRequest{Query: "report", Type: query.TypeFolder})
		require.NoError(t, err)
		assert.Empty(t, res.Files)
		assert.Len(t, res.Folders, 1)

		res, err = env.Query.Search(ctx, user.ID, query.SearchRequest{Query: "report", Type: query.TypeFile, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, res.Files, 2)
		assert.Empty(t, res.Folders)
	})

	t.Run("blank query", func(t *testing.T) {
		_, err := env.Query.Search(ctx, user.ID, query.SearchRequest{Query: "   "})
		assert.ErrorIs(t, err, xerr.ErrSearchQueryRequired)
	})

	t.Run("other users see nothing", func(t *testing.T) {
		other := env.CreateUser(t, 1<<20)
		res, err := env.Query.Search(ctx, other.ID, query.SearchRequest{Query: "report"})
		require.NoError(t, err)
		assert.Zero(t, res.Total)
	})
}

func TestAdvancedSearch(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)

	photos := env.Mkdir(t, user.ID, nil, "photos")
	upload(t, env, user.ID, &photos.ID, "beach.jpg", "image/jpeg", strings.Repeat("b", 300))
	upload(t, env, user.ID, nil, "logo.png", "image/png", strings.Repeat("l", 40))
	upload(t, env, user.ID, nil, "clip.mp4", "video/mp4", strings.Repeat("c", 500))
	upload(t, env, user.ID, nil, "thesis.pdf", "application/pdf", strings.Repeat("t", 200))
	upload(t, env, user.ID, nil, "notes.md", "text/markdown", "n")
	upload(t, env, user.ID, nil, "budget.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "x")
	upload(t, env, user.ID, nil, "setup.exe", "application/x-msdownload", "e")

	t.Run("mime categories", func(t *testing.T) {
		res, err := env.Query.AdvancedSearch(ctx, user.ID, query.AdvancedSearchRequest{MimeType: "image"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"beach.jpg", "logo.png"}, fileNames(res.Files))
		assert.Empty(t, res.Folders)

		res, err = env.Query.AdvancedSearch(ctx, user.ID, query.AdvancedSearchRequest{MimeType: "document"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"thesis.pdf", "notes.md", "budget.xlsx"}, fileNames(res.Files))

		res, err = env.Query.AdvancedSearch(ctx, user.ID, query.AdvancedSearchRequest{MimeType: "video/mp4"})
		require.NoError(t, err)
		assert.Equal(t, []string{"clip.mp4"}, fileNames(res.Files))
	})

	t.Run("size range", func(t *testing.T) {
		res, err := env.Query.AdvancedSearch(ctx, user.ID, query.AdvancedSearchRequest{
			MinSize: testutil.Ptr[int64](100),
			MaxSize: testutil.Ptr[int64](300),
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"beach.jpg", "thesis.pdf"}, fileNames(res.Files))

		_, err = env.Query.AdvancedSearch(ctx, user.ID, query.AdvancedSearchRequest{
			MinSize: testutil.Ptr[int64](500),
			MaxSize: testutil.Ptr[int64](100),
		})
		assert.ErrorIs(t, err, xerr.ErrInvalidParams)
	})

	t.Run("folder scope", func(t *testing.T) {
		res, err := env.Query.AdvancedSearch(ctx, user.ID, query.AdvancedSearchRequest{FolderID: photos.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{"beach.jpg"}, fileNames(res.Files))
		assert.Empty(t, res.Folders)

		res, err = env.Query.AdvancedSearch(ctx, user.ID, query.AdvancedSearchRequest{FolderID: query.RootFolder, Type: query.TypeFolder})
		require.NoError(t, err)
		assert.Equal(t, []string{"photos"}, folderNames(res.Folders))
	})

	t.Run("created range", func(t *testing.T) {
		future := time.Now().UTC().Add(time.Hour)
		res, err := env.Query.AdvancedSearch(ctx, user.ID, query.AdvancedSearchRequest{CreatedAfter: &future})
		require.NoError(t, err)
		assert.Zero(t, res.Total)
	})
}

// fakeIndex 按名称包含匹配，可注入错误；fill 为真时用不存在的 ID 填满 size
type fakeIndex struct {
	mu   sync.Mutex
	docs map[string]search.Document
	err  error
	fill bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: make(map[string]search.Document)}
}

func (f *fakeIndex) Enabled() bool { return true }

func (f *fakeIndex) Index(ctx context.Context, doc search.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeIndex) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) SearchIDs(ctx context.Context, userID, kind, q string, size int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var ids []string
	for _, doc := range f.docs {
		if doc.UserID != userID || (kind != "" && doc.Kind != kind) {
			continue
		}
		name := strings.ToLower(doc.Name + " " + doc.OriginalName)
		if strings.Contains(name, strings.ToLower(q)) {
			ids = append(ids, doc.ID)
		}
	}
	for i := 0; f.fill && len(ids) < size; i++ {
		ids = append(ids, fmt.Sprintf("missing-%d", i))
	}
	return ids, nil
}

func TestSearchUsesIndexCandidates(t *testing.T) {
	index := newFakeIndex()
	env := testutil.NewEnvWithOptions(t, testutil.Options{Index: index})
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)

	env.Mkdir(t, user.ID, nil, "invoices")
	kept := env.Upload(t, user.ID, nil, "invoice-march.txt", "m")
	stale := env.Upload(t, user.ID, nil, "invoice-april.txt", "a")

	// 索引滞后于数据库：删掉的索引项不会再被搜到
	require.NoError(t, index.Remove(ctx, stale.ID))

	res, err := env.Query.Search(ctx, user.ID, query.SearchRequest{Query: "invoice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"invoice-march.txt"}, fileNames(res.Files))
	assert.Equal(t, []string{"invoices"}, folderNames(res.Folders))

	// 回收站中的文件即使还在索引里也由数据库过滤掉
	_, err = env.Files.SoftDelete(ctx, user.ID, kept.ID)
	require.NoError(t, err)
	res, err = env.Query.Search(ctx, user.ID, query.SearchRequest{Query: "invoice", Type: query.TypeFile})
	require.NoError(t, err)
	assert.Empty(t, res.Files)

	t.Run("index failure falls back to database", func(t *testing.T) {
		index.err = errors.New("cluster unavailable")
		res, err := env.Query.Search(ctx, user.ID, query.SearchRequest{Query: "invoice", Type: query.TypeFile})
		require.NoError(t, err)
		assert.Equal(t, []string{"invoice-april.txt"}, fileNames(res.Files))
	})
}

func TestSearchIgnoresTruncatedIndexCandidates(t *testing.T) {
	index := newFakeIndex()
	env := testutil.NewEnvWithOptions(t, testutil.Options{Index: index})
	ctx := context.Background()
	user := env.CreateUser(t, 1<<20)

	env.Upload(t, user.ID, nil, "report-q1.txt", "1")
	unindexed := env.Upload(t, user.ID, nil, "report-q2.txt", "2")
	require.NoError(t, index.Remove(ctx, unindexed.ID))

	res, err := env.Query.Search(ctx, user.ID, query.SearchRequest{Query: "report", Type: query.TypeFile})
	require.NoError(t, err)
	assert.Equal(t, []string{"report-q1.txt"}, fileNames(res.Files))

	// 候选数量达到上限说明被截断，改由数据库匹配
	index.fill = true
	res, err = env.Query.Search(ctx, user.ID, query.SearchRequest{Query: "report", Type: query.TypeFile})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"report-q1.txt", "report-q2.txt"}, fileNames(res.Files))

	adv, err := env.Query.AdvancedSearch(ctx, user.ID, query.AdvancedSearchRequest{Query: "report"})
	require.NoError(t, err)
	assert.Len(t, adv.Files, 2)
}

func TestAdvancedSearchRequestAcceptsBothCasings(t *testing.T) {
	var req query.AdvancedSearchRequest
	body := `{"query":"cat","mimeType":"image","minSize":10,"max_size":50,"maxSize":99,` +
		`"createdAfter":"2024-01-02T00:00:00Z","folderId":"root","limit":5}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, "cat", req.Query)
	assert.Equal(t, "image", req.MimeType)
	require.NotNil(t, req.MinSize)
	assert.Equal(t, int64(10), *req.MinSize)
	// 两种写法同时出现时以 snake_case 为准
	require.NotNil(t, req.MaxSize)
	assert.Equal(t, int64(50), *req.MaxSize)
	require.NotNil(t, req.CreatedAfter)
	assert.True(t, req.CreatedAfter.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, req.CreatedBefore)
	assert.Equal(t, query.RootFolder, req.FolderID)
	assert.Equal(t, 5, req.Limit)
}
