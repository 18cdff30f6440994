package explorer_test

import (
	"context"
	"testing"

	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"github.com/3Eeeecho/supfile/internal/services/explorer"
	"github.com/3Eeeecho/supfile/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaLedger(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 100)
	ledger := explorer.NewQuotaLedger(env.UserRepo)

	require.NoError(t, ledger.Reserve(ctx, user.ID, 100))
	assert.ErrorIs(t, ledger.Reserve(ctx, user.ID, 101), xerr.ErrQuotaExceeded)
	assert.ErrorIs(t, ledger.Reserve(ctx, user.ID, -1), xerr.ErrInvalidParams)

	require.NoError(t, ledger.Commit(ctx, user.ID, 70))
	assert.EqualValues(t, 70, env.StorageUsed(t, user.ID))

	require.NoError(t, ledger.Release(ctx, user.ID, 20))
	assert.EqualValues(t, 50, env.StorageUsed(t, user.ID))

	// 释放超过已用空间时截断为 0
	require.NoError(t, ledger.Release(ctx, user.ID, 500))
	assert.Zero(t, env.StorageUsed(t, user.ID))

	assert.ErrorIs(t, ledger.Commit(ctx, "missing", 1), xerr.ErrUserNotFound)
}

// Reserve 不占用空间：两个并发上传都能通过检查，最终用量可能超过配额
func TestQuotaReserveDoesNotHoldSpace(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	user := env.CreateUser(t, 100)
	ledger := explorer.NewQuotaLedger(env.UserRepo)

	require.NoError(t, ledger.Reserve(ctx, user.ID, 80))
	require.NoError(t, ledger.Reserve(ctx, user.ID, 80))
	require.NoError(t, ledger.Commit(ctx, user.ID, 80))
	require.NoError(t, ledger.Commit(ctx, user.ID, 80))
	assert.EqualValues(t, 160, env.StorageUsed(t, user.ID))

	// 超出后后续上传全部被拒绝
	assert.ErrorIs(t, ledger.Reserve(ctx, user.ID, 0), xerr.ErrQuotaExceeded)
}
