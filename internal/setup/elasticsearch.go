package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/3Eeeecho/supfile/internal/config"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/search"
	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

// InitSearchIndex 未启用 Elasticsearch 时返回 NoopIndex，搜索完全走数据库
func InitSearchIndex(ctx context.Context, cfg *config.ElasticsearchConfig) (search.Index, error) {
	if !cfg.Enabled {
		logger.Info("InitSearchIndex: Elasticsearch disabled, searching database only")
		return search.NoopIndex{}, nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	// 获取集群信息，验证连接是否成功
	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("error connecting to Elasticsearch: %s", res.Status())
	}

	index := search.NewElasticIndex(client, cfg.Index)
	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := index.EnsureIndex(ensureCtx); err != nil {
		return nil, err
	}

	logger.Info("InitSearchIndex: Elasticsearch index ready", zap.String("index", cfg.Index))
	return index, nil
}
