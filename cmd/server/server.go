package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/3Eeeecho/supfile/internal/config"
	"github.com/3Eeeecho/supfile/internal/handlers"
	"github.com/3Eeeecho/supfile/internal/pkg/cache"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/repositories"
	"github.com/3Eeeecho/supfile/internal/router"
	"github.com/3Eeeecho/supfile/internal/services/admin"
	"github.com/3Eeeecho/supfile/internal/services/explorer"
	"github.com/3Eeeecho/supfile/internal/services/query"
	"github.com/3Eeeecho/supfile/internal/services/share"
	"github.com/3Eeeecho/supfile/internal/setup"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	db          *gorm.DB
	redisClient *redis.Client
}

// NewServer 负责构建所有依赖
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	// 初始化数据库连接
	db, err := setup.InitDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 初始化 Redis 连接，未启用时为 nil
	redisClient, err := setup.InitRedis(ctx, &cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	index, err := setup.InitSearchIndex(ctx, &cfg.Elasticsearch)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Elasticsearch: %w", err)
	}

	ss, bucket, err := setup.InitStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// 初始化 Repositories
	userRepo := repositories.NewUserRepository(db)
	folderRepo := repositories.NewFolderRepository(db)
	fileRepo := repositories.NewFileRepository(db)
	shareRepo := repositories.NewShareRepository(db)
	if redisClient != nil {
		shareRepo = repositories.NewCachedShareRepository(shareRepo, cache.NewRedisCache(redisClient), cfg.Share.CacheTTL)
	}

	// 初始化 Services
	tm := explorer.NewTransactionManager(db)
	zipStreamer := explorer.NewZipStreamer(folderRepo, fileRepo, ss)
	folderService := explorer.NewFolderService(folderRepo, fileRepo, tm, zipStreamer, index)
	fileService := explorer.NewFileService(explorer.FileServiceDeps{
		UserRepo:           userRepo,
		FolderRepo:         folderRepo,
		FileRepo:           fileRepo,
		Quota:              explorer.NewQuotaLedger(userRepo),
		TransactionManager: tm,
		Storage:            ss,
		Index:              index,
		Bucket:             bucket,
		Limits: explorer.UploadLimits{
			MaxFiles:    cfg.Upload.MaxFiles,
			MaxFileSize: cfg.Upload.MaxFileSize,
		},
	})
	shareService := share.NewShareService(shareRepo, folderRepo, fileRepo, ss, zipStreamer, cfg.Share.FrontendURL)
	queryService := query.NewQueryService(folderRepo, fileRepo, index)
	authService := admin.NewAuthService(userRepo, admin.AuthSettings{
		SecretKey:    cfg.JWT.SecretKey,
		Issuer:       cfg.JWT.Issuer,
		ExpiresIn:    cfg.JWT.ExpiresIn,
		DefaultQuota: cfg.User.DefaultQuota,
	})
	userService := admin.NewUserService(userRepo)

	// 初始化 Handlers 和路由
	engine := router.InitRouter(router.Handlers{
		Auth:   handlers.NewAuthHandler(authService),
		User:   handlers.NewUserHandler(userService),
		Folder: handlers.NewFolderHandler(folderService),
		File:   handlers.NewFileHandler(fileService, cfg.Upload.MaxFiles),
		Query:  handlers.NewQueryHandler(queryService),
		Share:  handlers.NewShareHandler(shareService),
	}, cfg.JWT.SecretKey, cfg.Server.Mode)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		router:      engine,
		httpServer:  httpServer,
		db:          db,
		redisClient: redisClient,
	}, nil
}

// Run 启动服务器，并处理优雅关机
func (s *Server) Run(stopChan chan os.Signal) {
	defer setup.CloseDatabase(s.db)
	defer setup.CloseRedis(s.redisClient)

	// 启动 HTTP 服务器
	go func() {
		logger.Info("Run: Server is listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Run: Server failed to start", zap.Error(err))
		}
	}()

	// 等待停止信号
	<-stopChan
	logger.Info("Run: Shutting down server...")

	// 优雅关机
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Run: Server forced to shutdown", zap.Error(err))
		return
	}
	logger.Info("Run: Server exited gracefully")
}
