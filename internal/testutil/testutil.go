// Package testutil 测试用的内存数据库、内存存储和完整的服务装配
package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/3Eeeecho/supfile/internal/config"
	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/cache"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/search"
	"github.com/3Eeeecho/supfile/internal/pkg/storage"
	"github.com/3Eeeecho/supfile/internal/repositories"
	"github.com/3Eeeecho/supfile/internal/services/admin"
	"github.com/3Eeeecho/supfile/internal/services/explorer"
	"github.com/3Eeeecho/supfile/internal/services/query"
	"github.com/3Eeeecho/supfile/internal/services/share"
	"github.com/3Eeeecho/supfile/internal/setup"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	Bucket      = "files"
	FrontendURL = "http://localhost:3000"
	JWTSecret   = "test-secret"
)

// NewDB 每个测试一个独立的内存 sqlite
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	logger.ReplaceLogger(zap.NewNop())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库只存在于单个连接上
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, setup.AutoMigrate(db))
	return db
}

// MemoryCache cache.Cache 的内存实现, 忽略过期时间但记录下来
type MemoryCache struct {
	mu      sync.Mutex
	data    map[string]map[string]string
	TTLs    map[string]time.Duration
	Deletes int
	// Err 非空时所有操作都返回这个错误
	Err error
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]map[string]string),
		TTLs: make(map[string]time.Duration),
	}
}

var _ cache.Cache = (*MemoryCache)(nil)

func (m *MemoryCache) HMSet(ctx context.Context, key string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	h, ok := m.data[key]
	if !ok {
		h = make(map[string]string)
		m.data[key] = h
	}
	for k, v := range fields {
		s, _ := v.(string)
		h[k] = s
	}
	return nil
}

func (m *MemoryCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	h, ok := m.data[key]
	if !ok || len(h) == 0 {
		return nil, cache.ErrCacheMiss
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.TTLs[key] = expiration
	return nil
}

func (m *MemoryCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, k := range keys {
		delete(m.data, k)
		delete(m.TTLs, k)
	}
	m.Deletes++
	return nil
}

// Set 直接写入哈希，用来构造损坏的缓存条目
func (m *MemoryCache) Set(key string, fields map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fields
}

func (m *MemoryCache) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// Env 装配好的全部仓储和服务
type Env struct {
	DB      *gorm.DB
	Fs      afero.Fs
	Storage storage.StorageService
	Cache   *MemoryCache
	Clock   *Clock

	UserRepo   repositories.UserRepository
	FolderRepo repositories.FolderRepository
	FileRepo   repositories.FileRepository
	ShareRepo  repositories.ShareRepository

	Folders explorer.FolderService
	Files   explorer.FileService
	Shares  share.ShareService
	Query   query.QueryService
	Auth    admin.AuthService
	Users   admin.UserService
}

type Options struct {
	Limits  explorer.UploadLimits
	Index   search.Index
	Storage storage.StorageService
}

func NewEnv(t testing.TB) *Env {
	return NewEnvWithOptions(t, Options{})
}

func NewEnvWithOptions(t testing.TB, opts Options) *Env {
	t.Helper()
	db := NewDB(t)

	fsys := afero.NewMemMapFs()
	var ss storage.StorageService = storage.NewLocalStorageServiceWithFs(fsys)
	if opts.Storage != nil {
		ss = opts.Storage
	}
	index := opts.Index
	if index == nil {
		index = search.NoopIndex{}
	}
	limits := opts.Limits
	if limits.MaxFiles == 0 {
		limits.MaxFiles = 10
	}

	memCache := NewMemoryCache()
	clock := NewClock(time.Now().UTC())

	userRepo := repositories.NewUserRepository(db)
	folderRepo := repositories.NewFolderRepository(db)
	fileRepo := repositories.NewFileRepository(db)
	shareRepo := repositories.NewCachedShareRepository(repositories.NewShareRepository(db), memCache, time.Minute)

	tm := explorer.NewTransactionManager(db)
	zipStreamer := explorer.NewZipStreamer(folderRepo, fileRepo, ss)

	return &Env{
		DB:      db,
		Fs:      fsys,
		Storage: ss,
		Cache:   memCache,
		Clock:   clock,

		UserRepo:   userRepo,
		FolderRepo: folderRepo,
		FileRepo:   fileRepo,
		ShareRepo:  shareRepo,

		Folders: explorer.NewFolderService(folderRepo, fileRepo, tm, zipStreamer, index),
		Files: explorer.NewFileService(explorer.FileServiceDeps{
			UserRepo:           userRepo,
			FolderRepo:         folderRepo,
			FileRepo:           fileRepo,
			Quota:              explorer.NewQuotaLedger(userRepo),
			TransactionManager: tm,
			Storage:            ss,
			Index:              index,
			Bucket:             Bucket,
			Limits:             limits,
		}),
		Shares: share.NewShareService(shareRepo, folderRepo, fileRepo, ss, zipStreamer, FrontendURL, share.WithClock(clock.Now)),
		Query:  query.NewQueryService(folderRepo, fileRepo, index),
		Auth: admin.NewAuthService(userRepo, admin.AuthSettings{
			SecretKey:    JWTSecret,
			Issuer:       "supfile-test",
			ExpiresIn:    time.Hour,
			DefaultQuota: config.DefaultQuota,
		}),
		Users: admin.NewUserService(userRepo),
	}
}

// CreateUser 直接写库，不经过注册流程
func (e *Env) CreateUser(t testing.TB, quota int64) *models.User {
	t.Helper()
	user := &models.User{
		Email:        uuid.NewString() + "@example.com",
		Username:     "tester",
		StorageQuota: quota,
	}
	require.NoError(t, e.UserRepo.Create(context.Background(), user))
	return user
}

// StorageUsed 从数据库读取最新的已用空间
func (e *Env) StorageUsed(t testing.TB, userID string) int64 {
	t.Helper()
	user, err := e.UserRepo.FindByID(context.Background(), userID)
	require.NoError(t, err)
	return user.StorageUsed
}

// Mkdir 创建目录，失败时终止测试
func (e *Env) Mkdir(t testing.TB, userID string, parentID *string, name string) *models.Folder {
	t.Helper()
	folder, err := e.Folders.Create(context.Background(), userID, name, parentID)
	require.NoError(t, err)
	return folder
}

// Upload 上传单个文本文件
func (e *Env) Upload(t testing.TB, userID string, folderID *string, name, content string) models.File {
	t.Helper()
	res, err := e.Files.Upload(context.Background(), userID, folderID, []explorer.UploadItem{
		TextItem(name, content),
	})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	return res.Files[0]
}

func TextItem(name, content string) explorer.UploadItem {
	return explorer.UploadItem{
		OriginalName: name,
		MimeType:     "text/plain",
		Size:         int64(len(content)),
		Content:      strings.NewReader(content),
	}
}

func Ptr[T any](v T) *T {
	return &v
}

// Clock 可以手动拨动的时钟
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
