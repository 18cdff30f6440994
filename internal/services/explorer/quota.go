package explorer

import (
	"context"
	"fmt"

	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuotaLedger 用户存储空间的记账
//
// Reserve 只做检查，不占用空间；调用方写完文件记录后再 Commit。
// 同一用户并发上传时两个请求可能都通过 Reserve，这是已知的竞争窗口。
type QuotaLedger interface {
	WithTx(tx *gorm.DB) QuotaLedger
	Reserve(ctx context.Context, userID string, bytes int64) error
	Commit(ctx context.Context, userID string, bytes int64) error
	// Release 减少已用空间，结果不小于 0
	Release(ctx context.Context, userID string, bytes int64) error
}

type quotaLedger struct {
	userRepo repositories.UserRepository
}

var _ QuotaLedger = (*quotaLedger)(nil)

func NewQuotaLedger(userRepo repositories.UserRepository) QuotaLedger {
	return &quotaLedger{userRepo: userRepo}
}

func (q *quotaLedger) WithTx(tx *gorm.DB) QuotaLedger {
	return &quotaLedger{userRepo: q.userRepo.WithTx(tx)}
}

func (q *quotaLedger) Reserve(ctx context.Context, userID string, bytes int64) error {
	if bytes < 0 {
		return xerr.ErrInvalidParams
	}
	user, err := q.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.StorageUsed+bytes > user.StorageQuota {
		logger.Warn("Reserve: Storage quota exceeded",
			zap.String("userID", userID),
			zap.Int64("storageUsed", user.StorageUsed),
			zap.Int64("storageQuota", user.StorageQuota),
			zap.Int64("required", bytes))
		return xerr.NewQuotaError(user.StorageUsed, user.StorageQuota, bytes)
	}
	return nil
}

func (q *quotaLedger) Commit(ctx context.Context, userID string, bytes int64) error {
	if bytes < 0 {
		return xerr.ErrInvalidParams
	}
	if err := q.userRepo.AddStorageUsed(ctx, userID, bytes); err != nil {
		return fmt.Errorf("quota ledger: commit: %w", err)
	}
	return nil
}

func (q *quotaLedger) Release(ctx context.Context, userID string, bytes int64) error {
	if bytes < 0 {
		return xerr.ErrInvalidParams
	}
	if err := q.userRepo.AddStorageUsed(ctx, userID, -bytes); err != nil {
		return fmt.Errorf("quota ledger: release: %w", err)
	}
	return nil
}
