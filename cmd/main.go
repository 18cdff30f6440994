package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/3Eeeecho/supfile/cmd/server"
	"github.com/3Eeeecho/supfile/internal/config"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"go.uber.org/zap"
)

// @title SUPFile API
// @version 1.0
// @description 云盘服务: 目录树、回收站、空间配额、分享链接和搜索
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("加载配置出错", zap.Error(err))
	}

	// 初始化日志系统
	if err = os.MkdirAll("logs", 0755); err != nil {
		logger.Fatal("初始化日志系统失败", zap.Error(err))
	}
	logger.InitLogger(cfg.Log.OutputPath, cfg.Log.ErrorPath, cfg.Log.Level)
	defer logger.Sync()

	logger.Info("启动 SUPFile 服务...")

	srv, err := server.NewServer(context.Background(), cfg)
	if err != nil {
		logger.Fatal("无法启动应用程序", zap.Error(err))
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	srv.Run(stopChan)

	logger.Info("SUPFile 服务已退出。")
}
